package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// sqlQueries はkv_entriesテーブルに対するダイアレクトごとのクエリ。
type sqlQueries struct {
	load   string
	insert string
	update string
	delete string
}

// sqlStore はkv_entriesテーブルを使うStoreの共通実装。
// PostgreSQLとSQLiteはプレースホルダのみが異なる。
type sqlStore struct {
	db *sql.DB
	q  sqlQueries
}

func (s *sqlStore) Load(ctx context.Context, key string) (Entry, error) {
	var e Entry
	err := s.db.QueryRowContext(ctx, s.q.load, key).Scan(&e.Value, &e.Revision)
	if errors.Is(err, sql.ErrNoRows) {
		return Entry{}, nil
	}
	if err != nil {
		return Entry{}, fmt.Errorf("failed to load entry %q: %w", key, err)
	}
	return e, nil
}

// Save はexpectedが0なら新規挿入、それ以外はリビジョン一致時のみ更新する。
// 影響行数が0の場合は他の書き込みが先行したとみなす。
func (s *sqlStore) Save(ctx context.Context, key string, value []byte, expected int64) (int64, error) {
	now := time.Now().UTC()
	next := expected + 1

	var (
		res sql.Result
		err error
	)
	if expected == 0 {
		res, err = s.db.ExecContext(ctx, s.q.insert, key, value, next, now)
	} else {
		res, err = s.db.ExecContext(ctx, s.q.update, key, expected, value, next, now)
	}
	if err != nil {
		return 0, fmt.Errorf("failed to save entry %q: %w", key, err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}
	if n == 0 {
		return 0, ErrConflict
	}
	return next, nil
}

func (s *sqlStore) Delete(ctx context.Context, key string) error {
	if _, err := s.db.ExecContext(ctx, s.q.delete, key); err != nil {
		return fmt.Errorf("failed to delete entry %q: %w", key, err)
	}
	return nil
}

func (s *sqlStore) Close() error {
	return s.db.Close()
}
