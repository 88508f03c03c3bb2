// Package storage はキー単位で値を保存するキーバリューストアを提供する。
// 全ての値はリビジョン番号を持ち、保存時に呼び出し元が読んだリビジョンと
// 一致しない場合はErrConflictを返す（楽観的排他制御）。
package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// 保存キー
const (
	KeyUsers     = "users"
	KeyDonations = "donations"
	KeyRequests  = "requests"

	sessionKeyPrefix = "currentUser:"
)

// ErrConflict は保存時のリビジョン不一致を表す。
var ErrConflict = errors.New("storage: revision conflict")

// Entry は保存された値とそのリビジョン。
// キーが存在しない場合はValueがnil、Revisionが0になる。
type Entry struct {
	Value    []byte
	Revision int64
}

// Store はキーバリューストアのインターフェース。
// デプロイ先ごとに実装を差し替える（memory, file, postgres, sqlite, redis）。
type Store interface {
	// Load は指定キーの値を取得する。存在しない場合はゼロ値のEntryを返す。
	Load(ctx context.Context, key string) (Entry, error)

	// Save はexpectedが現在のリビジョンと一致する場合のみ値を保存し、新しいリビジョンを返す。
	// 一致しない場合はErrConflictを返す。
	Save(ctx context.Context, key string, value []byte, expected int64) (int64, error)

	// Delete は指定キーを削除する。存在しない場合もエラーにしない。
	Delete(ctx context.Context, key string) error

	// Close は下位のリソースを解放する。
	Close() error
}

// SessionKey はセッショントークンに対応するcurrentUserのキーを返す。
func SessionKey(token string) string {
	return sessionKeyPrefix + token
}

// IsSessionKey はキーがcurrentUserのキーかどうかを返す。
func IsSessionKey(key string) bool {
	return strings.HasPrefix(key, sessionKeyPrefix)
}

// Driver はストア実装の種類を表す。
type Driver string

const (
	DriverMemory   Driver = "memory"
	DriverFile     Driver = "file"
	DriverPostgres Driver = "postgres"
	DriverSQLite   Driver = "sqlite"
	DriverRedis    Driver = "redis"
)

// ParseDriver は文字列をDriverに変換する。
func ParseDriver(s string) (Driver, error) {
	switch Driver(s) {
	case DriverMemory, DriverFile, DriverPostgres, DriverSQLite, DriverRedis:
		return Driver(s), nil
	default:
		return "", fmt.Errorf("unknown storage driver: %q", s)
	}
}
