package security

import (
	"strings"
	"testing"
)

func TestTextSanitizer_Sanitize(t *testing.T) {
	sanitizer := NewTextSanitizer()

	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"プレーンテキストはそのまま", "Fresh Bread", "Fresh Bread"},
		{"アンパサンドは保持される", "Fish & Chips", "Fish & Chips"},
		{"不等号は保持される", "a < b", "a < b"},
		{"前後の空白を除去", "  Rice  ", "Rice"},
		{"タグは除去される", "<b>Bread</b>", "Bread"},
		{"scriptは中身ごと除去される", `Milk<script>alert("x")</script>`, "Milk"},
		{"イベント属性付きタグは除去される", `<img src=x onerror=alert(1)>Cheese`, "Cheese"},
		{"エスケープされたタグも除去される", "&lt;b&gt;Soup&lt;/b&gt;", "Soup"},
		{"空文字列", "", ""},
		{"日本語", "<p>おにぎり</p>", "おにぎり"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := sanitizer.Sanitize(tt.input)
			if got != tt.want {
				t.Errorf("Sanitize(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

// TestTextSanitizer_Idempotent は同一入力に対して常に同一出力を返すことを検証する。
func TestTextSanitizer_Idempotent(t *testing.T) {
	sanitizer := NewTextSanitizer()
	inputs := []string{
		"Fish & Chips",
		"<i>Apples</i> & <b>Pears</b>",
		"&amp;lt;script&amp;gt;",
	}
	for _, in := range inputs {
		once := sanitizer.Sanitize(in)
		twice := sanitizer.Sanitize(once)
		if once != twice {
			t.Errorf("not idempotent for %q: %q then %q", in, once, twice)
		}
		if strings.Contains(twice, "<script") {
			t.Errorf("script tag survived for %q: %q", in, twice)
		}
	}
}

func TestNopSanitizer(t *testing.T) {
	if got := (NopSanitizer{}).Sanitize("  <b>x</b> "); got != "<b>x</b>" {
		t.Errorf("NopSanitizer.Sanitize = %q", got)
	}
}
