package storage

import (
	"database/sql"
)

// PostgresStore はPostgreSQLのkv_entriesテーブルを使うStore実装。
// テーブルはdatabase.RunMigrationsで作成しておく必要がある。
type PostgresStore struct {
	sqlStore
}

// NewPostgresStore はPostgresStoreを生成する。
// dbのクローズはStore.Closeで行われる。
func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{sqlStore{
		db: db,
		q: sqlQueries{
			load: `SELECT value, revision FROM kv_entries WHERE key = $1`,
			insert: `INSERT INTO kv_entries (key, value, revision, updated_at)
				 VALUES ($1, $2, $3, $4)
				 ON CONFLICT (key) DO NOTHING`,
			update: `UPDATE kv_entries
				 SET value = $3, revision = $4, updated_at = $5
				 WHERE key = $1 AND revision = $2`,
			delete: `DELETE FROM kv_entries WHERE key = $1`,
		},
	}}
}

var _ Store = (*PostgresStore)(nil)
