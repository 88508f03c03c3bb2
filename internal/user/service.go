// Package user はユーザー登録と管理のドメインロジックを提供する。
package user

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/hitoshi/foodshare/internal/auth"
	"github.com/hitoshi/foodshare/internal/model"
	"github.com/hitoshi/foodshare/internal/repository"
	"github.com/hitoshi/foodshare/internal/security"
)

// LoginPath は登録完了後の遷移先。
const LoginPath = "/login"

// DefaultRedirectDelay は登録完了からログイン画面へ遷移するまでの待ち時間。
const DefaultRedirectDelay = 2 * time.Second

// RegisterInput は登録フォームの入力。
type RegisterInput struct {
	Name            string `json:"name"`
	Email           string `json:"email"`
	Password        string `json:"password"`
	ConfirmPassword string `json:"confirmPassword"`
	Role            string `json:"role"`
	Organization    string `json:"organization"`
}

// RegisterResult は登録成功時の結果。
// 遅延はクライアント側で行い、サーバーは待機しない。
type RegisterResult struct {
	User            model.User
	Redirect        string
	RedirectAfterMs int64
}

// ServiceConfig はユーザーサービスの設定。
type ServiceConfig struct {
	RedirectDelay time.Duration
}

// Service はユーザー管理のサービス層。
type Service struct {
	userRepo  repository.UserRepository
	hasher    auth.PasswordHasher
	sanitizer security.TextSanitizer
	config    ServiceConfig
	now       func() time.Time
}

// NewService はServiceの新しいインスタンスを生成する。
func NewService(
	userRepo repository.UserRepository,
	hasher auth.PasswordHasher,
	sanitizer security.TextSanitizer,
	config ServiceConfig,
) *Service {
	if config.RedirectDelay <= 0 {
		config.RedirectDelay = DefaultRedirectDelay
	}
	return &Service{
		userRepo:  userRepo,
		hasher:    hasher,
		sanitizer: sanitizer,
		config:    config,
		now:       time.Now,
	}
}

// ValidateRegistration は登録フォームを検証する。違反は全フィールド分まとめて返す。
func ValidateRegistration(in RegisterInput) (model.Role, error) {
	errs := model.FieldErrors{}

	name := strings.TrimSpace(in.Name)
	switch {
	case name == "":
		errs.Add("name", "Name is required")
	case len([]rune(name)) < 2:
		errs.Add("name", "Name must be at least 2 characters")
	}

	switch {
	case in.Email == "":
		errs.Add("email", "Email is required")
	case !model.IsValidEmail(in.Email):
		errs.Add("email", "Email is invalid")
	}

	switch {
	case in.Password == "":
		errs.Add("password", "Password is required")
	case len(in.Password) < auth.MinPasswordLength:
		errs.Add("password", "Password must be at least 6 characters")
	case len(in.Password) > auth.MaxPasswordBytes:
		errs.Add("password", "Password must be at most 72 bytes")
	case !hasPasswordClasses(in.Password):
		errs.Add("password", "Password must contain uppercase, lowercase, and number")
	}

	switch {
	case in.ConfirmPassword == "":
		errs.Add("confirmPassword", "Please confirm your password")
	case in.ConfirmPassword != in.Password:
		errs.Add("confirmPassword", "Passwords do not match")
	}

	role, err := model.ParseRole(in.Role)
	if err != nil || !role.Registrable() {
		errs.Add("role", "Role is invalid")
	} else if role.RequiresOrganization() && strings.TrimSpace(in.Organization) == "" {
		errs.Add("organization", "Organization name is required")
	}

	return role, errs.Err()
}

// hasPasswordClasses は英小文字、英大文字、数字をそれぞれ1文字以上含むかを返す。
func hasPasswordClasses(pw string) bool {
	var lower, upper, digit bool
	for _, r := range pw {
		switch {
		case r >= 'a' && r <= 'z':
			lower = true
		case r >= 'A' && r <= 'Z':
			upper = true
		case r >= '0' && r <= '9':
			digit = true
		}
	}
	return lower && upper && digit
}

// Register はユーザーを登録する。
// 登録済みのメールアドレスの場合はusersを変更せずにEMAIL_ALREADY_REGISTEREDを返す。
func (s *Service) Register(ctx context.Context, in RegisterInput) (*RegisterResult, error) {
	// タグだけの入力が必須チェックを通らないよう、除去してから検証する
	in.Name = s.sanitizer.Sanitize(in.Name)
	in.Organization = s.sanitizer.Sanitize(in.Organization)

	role, err := ValidateRegistration(in)
	if err != nil {
		return nil, err
	}

	hash, err := s.hasher.Hash(in.Password)
	if err != nil {
		return nil, err
	}

	newUser := model.User{
		ID:           model.NewID(),
		Name:         in.Name,
		Email:        auth.NormalizeEmail(in.Email),
		PasswordHash: hash,
		Role:         role,
		Organization: in.Organization,
		CreatedAt:    s.now(),
	}

	err = repository.RetryOnConflict(ctx, func() error {
		snap, err := s.userRepo.List(ctx)
		if err != nil {
			return fmt.Errorf("failed to list users: %w", err)
		}
		for _, u := range snap.Items {
			if model.SameEmail(u.Email, newUser.Email) {
				return model.NewEmailAlreadyRegisteredError()
			}
		}
		_, err = s.userRepo.Replace(ctx, append(snap.Items, newUser), snap.Revision)
		return err
	})
	if err != nil {
		return nil, repository.RetryExhausted(err)
	}

	slog.Info("user registered",
		slog.String("user_id", newUser.ID),
		slog.String("email", newUser.Email),
		slog.String("role", string(newUser.Role)),
	)

	return &RegisterResult{
		User:            newUser,
		Redirect:        LoginPath,
		RedirectAfterMs: s.config.RedirectDelay.Milliseconds(),
	}, nil
}

// List は登録済みの全ユーザーを登録順で返す。
func (s *Service) List(ctx context.Context) ([]model.User, error) {
	snap, err := s.userRepo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	return snap.Items, nil
}

// Delete は指定IDのユーザーのみを削除し、削除したユーザーを返す。
// 寄付とリクエストは削除しない。セッションは次回参照時に無効化される。
func (s *Service) Delete(ctx context.Context, userID string) (*model.User, error) {
	var removed *model.User
	err := repository.RetryOnConflict(ctx, func() error {
		removed = nil
		snap, err := s.userRepo.List(ctx)
		if err != nil {
			return fmt.Errorf("failed to list users: %w", err)
		}

		kept := make([]model.User, 0, len(snap.Items))
		for i := range snap.Items {
			if snap.Items[i].ID == userID && removed == nil {
				u := snap.Items[i]
				removed = &u
				continue
			}
			kept = append(kept, snap.Items[i])
		}
		if removed == nil {
			return model.NewUserNotFoundError(userID)
		}
		_, err = s.userRepo.Replace(ctx, kept, snap.Revision)
		return err
	})
	if err != nil {
		return nil, repository.RetryExhausted(err)
	}

	slog.Info("user deleted",
		slog.String("user_id", removed.ID),
		slog.String("email", removed.Email),
	)
	return removed, nil
}
