package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"sync"
)

// fileRecord はファイルに書き出す1キー分のデータ。
type fileRecord struct {
	Revision int64           `json:"revision"`
	Value    json.RawMessage `json:"value"`
}

// FileStore はディレクトリ配下にキーごとのJSONファイルを書き出すStore実装。
// 値はJSONである必要がある。
// 書き込みは一時ファイルへの書き出しとrenameで行い、途中状態のファイルを残さない。
// 排他制御はプロセス内のみで、複数プロセスからの同時利用は想定しない。
type FileStore struct {
	dir string
	mu  sync.Mutex
}

// NewFileStore はFileStoreを生成する。ディレクトリが無ければ作成する。
func NewFileStore(dir string) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}
	return &FileStore{dir: dir}, nil
}

// Load は指定キーのファイルを読み込む。
// ファイルが壊れている場合は値をそのまま返し、解釈は上位層に任せる。
func (s *FileStore) Load(ctx context.Context, key string) (Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, err := s.read(key)
	if err != nil {
		return Entry{}, err
	}
	if rec == nil {
		return Entry{}, nil
	}
	return Entry{Value: []byte(rec.Value), Revision: rec.Revision}, nil
}

// Save はリビジョンを検証してファイルを書き換える。
func (s *FileStore) Save(ctx context.Context, key string, value []byte, expected int64) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, err := s.read(key)
	if err != nil {
		return 0, err
	}
	var current int64
	if rec != nil {
		current = rec.Revision
	}
	if current != expected {
		return 0, ErrConflict
	}

	raw := json.RawMessage(value)
	if !json.Valid(raw) {
		return 0, fmt.Errorf("value for %q is not valid JSON", key)
	}

	next := current + 1
	data, err := json.Marshal(fileRecord{Revision: next, Value: raw})
	if err != nil {
		return 0, fmt.Errorf("failed to encode file record: %w", err)
	}

	tmp, err := os.CreateTemp(s.dir, ".tmp-*")
	if err != nil {
		return 0, fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return 0, fmt.Errorf("failed to write temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return 0, fmt.Errorf("failed to close temp file: %w", err)
	}
	if err := os.Rename(tmpName, s.path(key)); err != nil {
		return 0, fmt.Errorf("failed to replace data file: %w", err)
	}

	return next, nil
}

// Delete は指定キーのファイルを削除する。
func (s *FileStore) Delete(ctx context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.Remove(s.path(key)); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to delete data file: %w", err)
	}
	return nil
}

// Close は何もしない。
func (s *FileStore) Close() error { return nil }

func (s *FileStore) path(key string) string {
	return filepath.Join(s.dir, url.PathEscape(key)+".json")
}

func (s *FileStore) read(key string) (*fileRecord, error) {
	data, err := os.ReadFile(s.path(key))
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read data file: %w", err)
	}

	var rec fileRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		// ファイル全体が壊れている場合はリビジョン0の不正値として扱う
		return &fileRecord{Revision: 0, Value: data}, nil
	}
	return &rec, nil
}

var _ Store = (*FileStore)(nil)
