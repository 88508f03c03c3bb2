// Package auth はログイン、ログアウト、セッション管理を提供する。
package auth

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/hitoshi/foodshare/internal/model"
	"github.com/hitoshi/foodshare/internal/repository"
)

// AdminName は管理者セッションの表示名。
const AdminName = "Admin User"

// MinPasswordLength はパスワードの最小文字数。
const MinPasswordLength = 6

// MaxPasswordBytes はbcryptが扱えるパスワードの最大バイト数。
const MaxPasswordBytes = 72

// AdminCredential は設定で与えられる唯一の管理者アカウント。
// パスワードは起動時にハッシュ化し、平文は保持しない。
type AdminCredential struct {
	Email        string
	PasswordHash string
}

// NewAdminCredential は平文パスワードをハッシュ化してAdminCredentialを生成する。
func NewAdminCredential(email, password string, hasher PasswordHasher) (AdminCredential, error) {
	hash, err := hasher.Hash(password)
	if err != nil {
		return AdminCredential{}, fmt.Errorf("failed to hash admin password: %w", err)
	}
	return AdminCredential{Email: email, PasswordHash: hash}, nil
}

// LoginInput はログインフォームの入力。
type LoginInput struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Role     string `json:"role"`
}

// LoginResult はログイン成功時の結果。
type LoginResult struct {
	Session  *model.Session
	Redirect string
}

// ServiceConfig は認証サービスの設定。
type ServiceConfig struct {
	// SessionMaxAge を超えたセッションは無効になる。0の場合は期限なし。
	SessionMaxAge time.Duration
}

// Service は認証に関するビジネスロジックを提供する。
type Service struct {
	userRepo    repository.UserRepository
	sessionRepo repository.SessionRepository
	hasher      PasswordHasher
	admin       AdminCredential
	config      ServiceConfig
	now         func() time.Time
}

// NewService はServiceを生成する。
func NewService(
	userRepo repository.UserRepository,
	sessionRepo repository.SessionRepository,
	hasher PasswordHasher,
	admin AdminCredential,
	config ServiceConfig,
) *Service {
	return &Service{
		userRepo:    userRepo,
		sessionRepo: sessionRepo,
		hasher:      hasher,
		admin:       admin,
		config:      config,
		now:         time.Now,
	}
}

// AdminEmail は設定された管理者のメールアドレスを返す。
func (s *Service) AdminEmail() string {
	return s.admin.Email
}

// ValidateLogin はログインフォームを検証する。違反は全フィールド分まとめて返す。
func ValidateLogin(in LoginInput) (model.Role, error) {
	errs := model.FieldErrors{}

	switch {
	case in.Email == "":
		errs.Add("email", "Email is required")
	case !model.IsValidEmail(in.Email):
		errs.Add("email", "Email is invalid")
	}

	switch {
	case in.Password == "":
		errs.Add("password", "Password is required")
	case len(in.Password) < MinPasswordLength:
		errs.Add("password", "Password must be at least 6 characters")
	case len(in.Password) > MaxPasswordBytes:
		errs.Add("password", "Password must be at most 72 bytes")
	}

	role, err := model.ParseRole(in.Role)
	if err != nil {
		errs.Add("role", "Role is invalid")
	}

	return role, errs.Err()
}

// Login は認証情報を照合し、新しいセッションを発行する。
// currentTokenに既存のセッションがあれば破棄してから発行する。
// 失敗時はセッションを含むいかなる状態も変更しない。
func (s *Service) Login(ctx context.Context, currentToken string, in LoginInput) (*LoginResult, error) {
	role, err := ValidateLogin(in)
	if err != nil {
		return nil, err
	}

	var session *model.Session
	if role == model.RoleAdmin {
		session, err = s.authenticateAdmin(in)
	} else {
		session, err = s.authenticateUser(ctx, in, role)
	}
	if err != nil {
		return nil, err
	}

	token, err := generateSessionToken()
	if err != nil {
		return nil, fmt.Errorf("failed to generate session token: %w", err)
	}
	session.Token = token
	session.CreatedAt = s.now()

	if currentToken != "" {
		if err := s.sessionRepo.DeleteByToken(ctx, currentToken); err != nil {
			return nil, fmt.Errorf("failed to replace session: %w", err)
		}
	}
	if err := s.sessionRepo.Save(ctx, session); err != nil {
		return nil, fmt.Errorf("failed to save session: %w", err)
	}

	slog.Info("user logged in",
		slog.String("email", session.Email),
		slog.String("role", string(session.Role)),
	)

	return &LoginResult{Session: session, Redirect: session.Role.Dashboard()}, nil
}

func (s *Service) authenticateAdmin(in LoginInput) (*model.Session, error) {
	emailOK := model.SameEmail(in.Email, s.admin.Email)
	// メールアドレスが違っても照合を行い、応答時間を揃える
	passErr := s.hasher.Compare(s.admin.PasswordHash, in.Password)
	if !emailOK || passErr != nil {
		if passErr != nil && !errors.Is(passErr, ErrPasswordMismatch) {
			return nil, passErr
		}
		slog.Warn("admin login rejected", slog.String("email", in.Email))
		return nil, model.NewInvalidAdminCredentialsError()
	}
	return &model.Session{
		Email: s.admin.Email,
		Role:  model.RoleAdmin,
		Name:  AdminName,
	}, nil
}

func (s *Service) authenticateUser(ctx context.Context, in LoginInput, role model.Role) (*model.Session, error) {
	snap, err := s.userRepo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}

	for _, u := range snap.Items {
		if !model.SameEmail(u.Email, in.Email) || u.Role != role {
			continue
		}
		err := s.hasher.Compare(u.PasswordHash, in.Password)
		if errors.Is(err, ErrPasswordMismatch) {
			continue
		}
		if err != nil {
			return nil, err
		}
		return &model.Session{
			Email: u.Email,
			Role:  u.Role,
			Name:  u.Name,
		}, nil
	}

	slog.Warn("login rejected",
		slog.String("email", in.Email),
		slog.String("role", string(role)),
	)
	return nil, model.NewInvalidCredentialsError()
}

// Logout はセッションを破棄する。
func (s *Service) Logout(ctx context.Context, token string) error {
	if token == "" {
		return fmt.Errorf("session token is required")
	}

	if err := s.sessionRepo.DeleteByToken(ctx, token); err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}

	slog.Info("user logged out")
	return nil
}

// CurrentSession はトークンに対応するセッションを取得する。
// セッションが無い場合、期限切れの場合、または対応するユーザーが削除済みの場合はUNAUTHORIZEDを返す。
// 期限切れと削除済みユーザーのセッションはこの時点で破棄する。
func (s *Service) CurrentSession(ctx context.Context, token string) (*model.Session, error) {
	if token == "" {
		return nil, model.NewUnauthorizedError()
	}

	session, err := s.sessionRepo.FindByToken(ctx, token)
	if err != nil {
		return nil, fmt.Errorf("failed to find session: %w", err)
	}
	if session == nil {
		return nil, model.NewUnauthorizedError()
	}

	if s.expired(session) {
		return nil, s.revoke(ctx, token, "session expired")
	}

	if session.Role == model.RoleAdmin {
		if !model.SameEmail(session.Email, s.admin.Email) {
			return nil, s.revoke(ctx, token, "admin email changed")
		}
		return session, nil
	}

	snap, err := s.userRepo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	for _, u := range snap.Items {
		if model.SameEmail(u.Email, session.Email) && u.Role == session.Role {
			return session, nil
		}
	}
	return nil, s.revoke(ctx, token, "user no longer exists")
}

func (s *Service) expired(session *model.Session) bool {
	if s.config.SessionMaxAge <= 0 || session.CreatedAt.IsZero() {
		return false
	}
	return s.now().Sub(session.CreatedAt) > s.config.SessionMaxAge
}

func (s *Service) revoke(ctx context.Context, token, reason string) error {
	if err := s.sessionRepo.DeleteByToken(ctx, token); err != nil {
		return fmt.Errorf("failed to revoke session: %w", err)
	}
	slog.Info("session revoked", slog.String("reason", reason))
	return model.NewUnauthorizedError()
}

// NormalizeEmail は保存・比較前にメールアドレスの前後の空白を除去する。
func NormalizeEmail(email string) string {
	return strings.TrimSpace(email)
}

// generateSessionToken は暗号的に安全なセッショントークンを生成する。
func generateSessionToken() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
