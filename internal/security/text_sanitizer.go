// Package security はアプリケーションのセキュリティ機能を提供する。
//
// TextSanitizer は利用者が入力する自由記述（食品名、受け取り場所、説明、氏名、団体名）から
// HTMLタグを除去し、プレーンテキストとして保存できる形にする。
// bluemondayのStrictPolicyを使い、タグは一切通過させない。
package security

import (
	"html"
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

// maxSanitizePasses はエスケープされたタグを剥がすための最大反復回数。
const maxSanitizePasses = 4

// TextSanitizer はプレーンテキストのサニタイズ機能のインターフェース。
type TextSanitizer interface {
	// Sanitize はHTMLタグを除去し、前後の空白を取り除いたプレーンテキストを返す。
	// "&"や"<"などの文字自体は保持する。
	Sanitize(s string) string
}

// textSanitizer はTextSanitizerの実装。
type textSanitizer struct {
	policy *bluemonday.Policy
}

// NewTextSanitizer はTextSanitizerの新しいインスタンスを生成する。
func NewTextSanitizer() *textSanitizer {
	return &textSanitizer{policy: bluemonday.StrictPolicy()}
}

// Sanitize はタグを除去したテキストを返す。
// "&lt;b&gt;"のように実体参照で書かれたタグも、デコード後に再度除去する。
func (s *textSanitizer) Sanitize(input string) string {
	cur := input
	for i := 0; i < maxSanitizePasses; i++ {
		next := html.UnescapeString(s.policy.Sanitize(cur))
		if next == cur {
			break
		}
		cur = next
	}
	return strings.TrimSpace(cur)
}

// NopSanitizer は入力の前後の空白のみを除去するTextSanitizer。テスト用。
type NopSanitizer struct{}

// Sanitize は前後の空白を除去する。
func (NopSanitizer) Sanitize(s string) string { return strings.TrimSpace(s) }

var (
	_ TextSanitizer = (*textSanitizer)(nil)
	_ TextSanitizer = NopSanitizer{}
)
