// Package repository はデータ永続化のインターフェースを定義する。
package repository

import (
	"context"

	"github.com/hitoshi/foodshare/internal/model"
)

// Snapshot はコレクション全体の読み込み結果。
// Revisionは読み込み時点のもので、Replaceにそのまま渡す。
type Snapshot[T any] struct {
	Items    []T
	Revision int64
}

// CollectionRepository は順序付きコレクションを丸ごと読み書きするインターフェース。
// 全ての操作はコレクション全体の再読み込みから始める。
type CollectionRepository[T any] interface {
	// List はコレクション全体を挿入順で取得する。キーが無い場合は空のスナップショットを返す。
	List(ctx context.Context) (Snapshot[T], error)

	// Replace はコレクション全体を書き換え、新しいリビジョンを返す。
	// revisionが古い場合はstorage.ErrConflictを返す。
	Replace(ctx context.Context, items []T, revision int64) (int64, error)
}

// UserRepository はusersコレクションの永続化インターフェース。
type UserRepository = CollectionRepository[model.User]

// DonationRepository はdonationsコレクションの永続化インターフェース。
type DonationRepository = CollectionRepository[model.Donation]

// RequestRepository はrequestsコレクションの永続化インターフェース。
type RequestRepository = CollectionRepository[model.Request]

// SessionRepository はcurrentUserの永続化インターフェース。
// トークンごとに1件のみ保持する。
type SessionRepository interface {
	// Save はセッションを保存する。同じトークンの既存セッションは上書きされる。
	Save(ctx context.Context, session *model.Session) error
	// FindByToken は指定トークンのセッションを取得する。存在しない場合はnilを返す。
	FindByToken(ctx context.Context, token string) (*model.Session, error)
	// DeleteByToken は指定トークンのセッションを削除する。
	DeleteByToken(ctx context.Context, token string) error
}
