package repository

import (
	"context"
	"errors"

	"github.com/hitoshi/foodshare/internal/model"
	"github.com/hitoshi/foodshare/internal/storage"
)

// MaxConflictRetries は読み込みから保存までをやり直す最大回数。
const MaxConflictRetries = 3

// RetryOnConflict はfnがstorage.ErrConflictを返す限り最大MaxConflictRetries回まで再実行する。
// fnは毎回コレクションを読み直し、検証からやり直す必要がある。
// 再試行が尽きた場合は最後のエラーをそのまま返す。
func RetryOnConflict(ctx context.Context, fn func() error) error {
	var err error
	for attempt := 0; attempt < MaxConflictRetries; attempt++ {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		err = fn()
		if !errors.Is(err, storage.ErrConflict) {
			return err
		}
	}
	return err
}

// RetryExhausted はRetryOnConflictの結果がリビジョン競合のままであれば
// CONCURRENT_UPDATEのAPIErrorに変換し、それ以外はそのまま返す。
func RetryExhausted(err error) error {
	if errors.Is(err, storage.ErrConflict) {
		return model.NewConcurrentUpdateError()
	}
	return err
}
