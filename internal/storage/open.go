package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/hitoshi/foodshare/internal/database"
)

// Options はOpenに渡す接続設定。使われる項目はDriverによって異なる。
type Options struct {
	Driver      Driver
	DataDir     string // file
	DatabaseURL string // postgres
	SQLitePath  string // sqlite
	RedisAddr   string // redis
	RedisPrefix string // redis
}

// Open は設定に応じたStore実装を生成し、疎通を確認する。
// postgresの場合はマイグレーション済みのデータベースを前提とする。
func Open(ctx context.Context, opts Options) (Store, error) {
	switch opts.Driver {
	case DriverMemory, "":
		return NewMemoryStore(), nil

	case DriverFile:
		return NewFileStore(opts.DataDir)

	case DriverPostgres:
		db, err := database.Open(opts.DatabaseURL)
		if err != nil {
			return nil, err
		}
		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		if err := db.PingContext(pingCtx); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to ping database: %w", err)
		}
		return NewPostgresStore(db), nil

	case DriverSQLite:
		return NewSQLiteStore(opts.SQLitePath)

	case DriverRedis:
		client := redis.NewClient(&redis.Options{Addr: opts.RedisAddr})
		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		if err := client.Ping(pingCtx).Err(); err != nil {
			client.Close()
			return nil, fmt.Errorf("failed to ping redis: %w", err)
		}
		return NewRedisStore(client, opts.RedisPrefix), nil

	default:
		return nil, fmt.Errorf("unknown storage driver: %q", opts.Driver)
	}
}
