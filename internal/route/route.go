// Package route は画面遷移のナビゲーション表とロールによるガードを定義する。
package route

import (
	"strings"

	"github.com/hitoshi/foodshare/internal/model"
)

// 画面パス
const (
	PathLanding  = "/"
	PathLogin    = "/login"
	PathRegister = "/register"
)

// Outcome はガードの判定結果。
type Outcome string

const (
	// OutcomePermit は画面の表示を許可する。
	OutcomePermit Outcome = "permit"
	// OutcomeRedirect は別の画面へリダイレクトする。
	OutcomeRedirect Outcome = "redirect"
)

// Route はナビゲーション表の1エントリ。
// RequiredRoleが空の場合はガードなし。
type Route struct {
	Path         string
	RequiredRole model.Role
}

// Decision はナビゲーション結果。
type Decision struct {
	Outcome  Outcome `json:"outcome"`
	Path     string  `json:"path"`
	Redirect string  `json:"redirect,omitempty"`
}

var table = []Route{
	{Path: PathLanding},
	{Path: PathLogin},
	{Path: PathRegister},
	{Path: model.RoleDonor.Dashboard(), RequiredRole: model.RoleDonor},
	{Path: model.RoleRecipient.Dashboard(), RequiredRole: model.RoleRecipient},
	{Path: model.RoleAnalyst.Dashboard(), RequiredRole: model.RoleAnalyst},
	{Path: model.RoleAdmin.Dashboard(), RequiredRole: model.RoleAdmin},
}

// Routes はナビゲーション表のコピーを返す。
func Routes() []Route {
	out := make([]Route, len(table))
	copy(out, table)
	return out
}

// Lookup はパスに一致するルートを返す。末尾のスラッシュは無視する。
func Lookup(path string) (Route, bool) {
	if len(path) > 1 {
		path = strings.TrimRight(path, "/")
	}
	for _, r := range table {
		if r.Path == path {
			return r, true
		}
	}
	return Route{}, false
}

// Allowed はセッションがロールを要求するルートに入れるかどうかを返す。
// セッションが無い、またはロールが異なる場合はfalse。
func Allowed(required model.Role, session *model.Session) bool {
	if required == "" {
		return true
	}
	return session != nil && session.Role == required
}

// Resolve はパスとセッションから遷移先を決める。
// 未知のパスはランディングへ、ガード違反はログイン画面へリダイレクトする。
func Resolve(path string, session *model.Session) Decision {
	r, ok := Lookup(path)
	if !ok {
		return Decision{Outcome: OutcomeRedirect, Path: path, Redirect: PathLanding}
	}
	if !Allowed(r.RequiredRole, session) {
		return Decision{Outcome: OutcomeRedirect, Path: r.Path, Redirect: PathLogin}
	}
	return Decision{Outcome: OutcomePermit, Path: r.Path}
}
