package storage

import (
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS kv_entries (
	key TEXT PRIMARY KEY,
	value BLOB NOT NULL,
	revision INTEGER NOT NULL,
	updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);
`

// SQLiteStore は単一ファイルのSQLiteデータベースを使うStore実装。
type SQLiteStore struct {
	sqlStore
}

// NewSQLiteStore はSQLiteデータベースを開き、スキーマを作成する。
// pathに":memory:"を指定するとプロセス内のみのデータベースになる。
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", path+"?_busy_timeout=5000&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite database: %w", err)
	}
	// :memory: は接続ごとに別データベースになるため接続を1本に絞る
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(sqliteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate sqlite database: %w", err)
	}

	return &SQLiteStore{sqlStore{
		db: db,
		q: sqlQueries{
			load:   `SELECT value, revision FROM kv_entries WHERE key = ?`,
			insert: `INSERT OR IGNORE INTO kv_entries (key, value, revision, updated_at) VALUES (?, ?, ?, ?)`,
			update: `UPDATE kv_entries SET value = ?3, revision = ?4, updated_at = ?5 WHERE key = ?1 AND revision = ?2`,
			delete: `DELETE FROM kv_entries WHERE key = ?`,
		},
	}}, nil
}

var _ Store = (*SQLiteStore)(nil)
