package repository

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/hitoshi/foodshare/internal/storage"
)

// CorruptSuffix は解析できなかったコレクションの退避先キーの接尾辞。
const CorruptSuffix = ".corrupt"

// StoreCollection はStoreの1キーに保存されたコレクションのリポジトリ実装。
// 値が壊れている場合は元の値を<key>.corruptに退避したうえで空として扱い、
// 検証に失敗したレコードは警告ログを出して読み飛ばす。
type StoreCollection[T any] struct {
	store    storage.Store
	key      string
	validate func(T) error
	logger   *slog.Logger
}

// NewStoreCollection はStoreCollectionを生成する。
// validateがnilの場合はデコードできた全レコードを受け入れる。
func NewStoreCollection[T any](store storage.Store, key string, validate func(T) error, logger *slog.Logger) *StoreCollection[T] {
	if logger == nil {
		logger = slog.Default()
	}
	return &StoreCollection[T]{
		store:    store,
		key:      key,
		validate: validate,
		logger:   logger,
	}
}

// List はコレクション全体を取得する。
func (c *StoreCollection[T]) List(ctx context.Context) (Snapshot[T], error) {
	entry, err := c.store.Load(ctx, c.key)
	if err != nil {
		return Snapshot[T]{}, fmt.Errorf("failed to load %s: %w", c.key, err)
	}

	version, raws, err := decodeRaw(entry.Value)
	if err != nil {
		c.logger.Error("unparsable collection treated as empty",
			slog.String("key", c.key),
			slog.Int64("revision", entry.Revision),
			slog.String("error", err.Error()),
		)
		c.preserveCorrupt(ctx, entry.Value)
		return Snapshot[T]{Items: []T{}, Revision: entry.Revision}, nil
	}
	if version > envelopeVersion {
		c.logger.Warn("collection written by newer format version",
			slog.String("key", c.key),
			slog.Int("version", version),
		)
	}

	items := make([]T, 0, len(raws))
	for i, raw := range raws {
		var item T
		if err := json.Unmarshal(raw, &item); err != nil {
			c.logger.Warn("malformed record dropped",
				slog.String("key", c.key),
				slog.Int("index", i),
				slog.String("error", err.Error()),
			)
			continue
		}
		if c.validate != nil {
			if err := c.validate(item); err != nil {
				c.logger.Warn("invalid record dropped",
					slog.String("key", c.key),
					slog.Int("index", i),
					slog.String("error", err.Error()),
				)
				continue
			}
		}
		items = append(items, item)
	}

	return Snapshot[T]{Items: items, Revision: entry.Revision}, nil
}

// preserveCorrupt は次の保存で上書きされる前に壊れた値を退避する。
// 退避済みの値と同じ場合は書き込まない。失敗してもListは継続する。
func (c *StoreCollection[T]) preserveCorrupt(ctx context.Context, value []byte) {
	key := c.key + CorruptSuffix
	prev, err := c.store.Load(ctx, key)
	if err != nil {
		c.logger.Warn("failed to load corrupt backup", slog.String("key", key), slog.String("error", err.Error()))
		return
	}
	if bytes.Equal(prev.Value, value) {
		return
	}
	if _, err := c.store.Save(ctx, key, value, prev.Revision); err != nil {
		c.logger.Warn("failed to preserve corrupt collection", slog.String("key", key), slog.String("error", err.Error()))
		return
	}
	c.logger.Info("corrupt collection preserved", slog.String("key", key))
}

// Replace はコレクション全体を書き換える。
func (c *StoreCollection[T]) Replace(ctx context.Context, items []T, revision int64) (int64, error) {
	value, err := encodeItems(items)
	if err != nil {
		return 0, fmt.Errorf("failed to encode %s: %w", c.key, err)
	}
	next, err := c.store.Save(ctx, c.key, value, revision)
	if err != nil {
		// ErrConflictは呼び出し元で再試行判定するためラップして返す
		return 0, fmt.Errorf("failed to save %s: %w", c.key, err)
	}
	return next, nil
}

var _ CollectionRepository[struct{}] = (*StoreCollection[struct{}])(nil)
