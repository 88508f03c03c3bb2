// Package model はドメインモデルを定義する。
package model

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Role はユーザーのロールを表す閉じた列挙型。
type Role string

const (
	// RoleDonor は食品を寄付するロール。
	RoleDonor Role = "donor"
	// RoleRecipient は寄付をリクエストする受け取り団体のロール。
	RoleRecipient Role = "recipient"
	// RoleAnalyst は集計を閲覧するロール。
	RoleAnalyst Role = "analyst"
	// RoleAdmin は管理者ロール。usersコレクションには保存されない。
	RoleAdmin Role = "admin"
)

// Roles は定義済みの全ロールを返す。
func Roles() []Role {
	return []Role{RoleDonor, RoleRecipient, RoleAnalyst, RoleAdmin}
}

// ParseRole は文字列をRoleに変換する。未知の値はエラー。
func ParseRole(s string) (Role, error) {
	switch Role(s) {
	case RoleDonor, RoleRecipient, RoleAnalyst, RoleAdmin:
		return Role(s), nil
	default:
		return "", fmt.Errorf("unknown role: %q", s)
	}
}

// Dashboard はロールに対応するダッシュボードのパスを返す。
func (r Role) Dashboard() string {
	switch r {
	case RoleDonor:
		return "/donor-dashboard"
	case RoleRecipient:
		return "/recipient-dashboard"
	case RoleAnalyst:
		return "/analyst-dashboard"
	case RoleAdmin:
		return "/admin-dashboard"
	default:
		return "/"
	}
}

// Registrable は自己登録が可能なロールかどうかを返す。
func (r Role) Registrable() bool {
	switch r {
	case RoleDonor, RoleRecipient, RoleAnalyst:
		return true
	default:
		return false
	}
}

// RequiresOrganization は登録時に団体名が必須のロールかどうかを返す。
func (r Role) RequiresOrganization() bool {
	return r == RoleDonor || r == RoleRecipient
}

// User はサービス利用ユーザーを表す。
// パスワードはbcryptハッシュのみを保持する。
type User struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"passwordHash"`
	Role         Role      `json:"role"`
	Organization string    `json:"organization"`
	CreatedAt    time.Time `json:"createdAt"`
}

// Session はログイン中の利用者（currentUser）を表す。
// Tokenはクライアントごとのスコープを識別し、保存時のキーに使われる。
type Session struct {
	Token     string    `json:"-"`
	Email     string    `json:"email"`
	Role      Role      `json:"role"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"createdAt"`
}

// NewID は作成時刻に基づく時系列順のIDを生成する。
func NewID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.New().String()
	}
	return id.String()
}

var emailPattern = regexp.MustCompile(`\S+@\S+\.\S+`)

// IsValidEmail はメールアドレスとして最低限の形式（x@y.z）を満たすかどうかを返す。
func IsValidEmail(email string) bool {
	return emailPattern.MatchString(email)
}

// SameEmail はメールアドレスを大文字小文字を区別せずに比較する。
func SameEmail(a, b string) bool {
	return strings.EqualFold(strings.TrimSpace(a), strings.TrimSpace(b))
}
