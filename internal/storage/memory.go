package storage

import (
	"context"
	"sync"
)

// MemoryStore はプロセス内メモリに値を保持するStore実装。
// テストと単一プロセスでの開発用途を想定している。
type MemoryStore struct {
	mu      sync.Mutex
	entries map[string]Entry
}

// NewMemoryStore はMemoryStoreを生成する。
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{entries: make(map[string]Entry)}
}

// Load は指定キーの値のコピーを返す。
func (s *MemoryStore) Load(ctx context.Context, key string) (Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[key]
	if !ok {
		return Entry{}, nil
	}
	return Entry{Value: append([]byte(nil), e.Value...), Revision: e.Revision}, nil
}

// Save はリビジョンを検証して値を保存する。
func (s *MemoryStore) Save(ctx context.Context, key string, value []byte, expected int64) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	current := s.entries[key].Revision
	if current != expected {
		return 0, ErrConflict
	}

	next := current + 1
	s.entries[key] = Entry{Value: append([]byte(nil), value...), Revision: next}
	return next, nil
}

// Delete は指定キーを削除する。
func (s *MemoryStore) Delete(ctx context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.entries, key)
	return nil
}

// Close は何もしない。
func (s *MemoryStore) Close() error { return nil }

var _ Store = (*MemoryStore)(nil)
