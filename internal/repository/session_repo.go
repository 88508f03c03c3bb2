package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/hitoshi/foodshare/internal/model"
	"github.com/hitoshi/foodshare/internal/storage"
)

// maxSessionSaveAttempts はセッション上書き時のリビジョン競合の再試行回数。
const maxSessionSaveAttempts = 3

// StoreSessionRepo はStoreのcurrentUser:<token>キーを使うセッションリポジトリ。
type StoreSessionRepo struct {
	store  storage.Store
	logger *slog.Logger
}

// NewSessionRepository はStoreSessionRepoを生成する。
func NewSessionRepository(store storage.Store, logger *slog.Logger) *StoreSessionRepo {
	if logger == nil {
		logger = slog.Default()
	}
	return &StoreSessionRepo{store: store, logger: logger}
}

// Save はセッションを保存する。後勝ちで上書きする。
func (r *StoreSessionRepo) Save(ctx context.Context, session *model.Session) error {
	if session.Token == "" {
		return errors.New("session token is required")
	}
	value, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("failed to encode session: %w", err)
	}

	key := storage.SessionKey(session.Token)
	for attempt := 0; attempt < maxSessionSaveAttempts; attempt++ {
		entry, err := r.store.Load(ctx, key)
		if err != nil {
			return fmt.Errorf("failed to load session: %w", err)
		}
		_, err = r.store.Save(ctx, key, value, entry.Revision)
		if errors.Is(err, storage.ErrConflict) {
			continue
		}
		if err != nil {
			return fmt.Errorf("failed to save session: %w", err)
		}
		return nil
	}
	return fmt.Errorf("failed to save session: %w", storage.ErrConflict)
}

// FindByToken は指定トークンのセッションを取得する。
// 値が壊れている場合は警告ログを出してnilを返す。
func (r *StoreSessionRepo) FindByToken(ctx context.Context, token string) (*model.Session, error) {
	if token == "" {
		return nil, nil
	}
	entry, err := r.store.Load(ctx, storage.SessionKey(token))
	if err != nil {
		return nil, fmt.Errorf("failed to find session: %w", err)
	}
	if entry.Value == nil {
		return nil, nil
	}

	var session model.Session
	if err := json.Unmarshal(entry.Value, &session); err != nil {
		r.logger.Warn("unparsable session treated as absent", slog.String("error", err.Error()))
		return nil, nil
	}
	if session.Email == "" {
		r.logger.Warn("session without email treated as absent")
		return nil, nil
	}
	if _, err := model.ParseRole(string(session.Role)); err != nil {
		r.logger.Warn("session with unknown role treated as absent", slog.String("role", string(session.Role)))
		return nil, nil
	}
	session.Token = token
	return &session, nil
}

// DeleteByToken は指定トークンのセッションを削除する。
func (r *StoreSessionRepo) DeleteByToken(ctx context.Context, token string) error {
	if err := r.store.Delete(ctx, storage.SessionKey(token)); err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	return nil
}

// compile-time interface check
var _ SessionRepository = (*StoreSessionRepo)(nil)
