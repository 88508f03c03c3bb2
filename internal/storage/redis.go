package storage

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/redis/go-redis/v9"
)

// DefaultRedisPrefix はRedisStoreのキー接頭辞の既定値。
const DefaultRedisPrefix = "foodshare:"

const (
	redisFieldValue    = "value"
	redisFieldRevision = "revision"
)

// RedisStore はRedisのハッシュ（value, revision）を使うStore実装。
// 書き込みはWATCHとMULTI/EXECで行い、監視中のキーが変更されていればErrConflictを返す。
type RedisStore struct {
	client *redis.Client
	prefix string
}

// NewRedisStore はRedisStoreを生成する。
func NewRedisStore(client *redis.Client, prefix string) *RedisStore {
	if prefix == "" {
		prefix = DefaultRedisPrefix
	}
	return &RedisStore{client: client, prefix: prefix}
}

// Load は指定キーのハッシュを読み込む。
func (s *RedisStore) Load(ctx context.Context, key string) (Entry, error) {
	vals, err := s.client.HGetAll(ctx, s.prefix+key).Result()
	if err != nil {
		return Entry{}, fmt.Errorf("failed to load entry %q: %w", key, err)
	}
	return entryFromHash(vals), nil
}

// Save はリビジョンを検証してハッシュを書き換える。
func (s *RedisStore) Save(ctx context.Context, key string, value []byte, expected int64) (int64, error) {
	fullKey := s.prefix + key
	next := expected + 1

	err := s.client.Watch(ctx, func(tx *redis.Tx) error {
		vals, err := tx.HGetAll(ctx, fullKey).Result()
		if err != nil {
			return err
		}
		if entryFromHash(vals).Revision != expected {
			return ErrConflict
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.HSet(ctx, fullKey,
				redisFieldValue, value,
				redisFieldRevision, next,
			)
			return nil
		})
		return err
	}, fullKey)

	switch {
	case err == nil:
		return next, nil
	case errors.Is(err, ErrConflict), errors.Is(err, redis.TxFailedErr):
		return 0, ErrConflict
	default:
		return 0, fmt.Errorf("failed to save entry %q: %w", key, err)
	}
}

// Delete は指定キーを削除する。
func (s *RedisStore) Delete(ctx context.Context, key string) error {
	if err := s.client.Del(ctx, s.prefix+key).Err(); err != nil {
		return fmt.Errorf("failed to delete entry %q: %w", key, err)
	}
	return nil
}

// Close はRedisクライアントを閉じる。
func (s *RedisStore) Close() error {
	return s.client.Close()
}

// entryFromHash はHGETALLの結果をEntryに変換する。
// リビジョンが読めない場合は0として扱う。
func entryFromHash(vals map[string]string) Entry {
	if len(vals) == 0 {
		return Entry{}
	}
	rev, err := strconv.ParseInt(vals[redisFieldRevision], 10, 64)
	if err != nil {
		rev = 0
	}
	return Entry{Value: []byte(vals[redisFieldValue]), Revision: rev}
}

var _ Store = (*RedisStore)(nil)
