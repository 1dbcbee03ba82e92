package security

import (
	"html"
	"regexp"
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

// blockBreaks は改行として扱う要素。タグ除去の前に空白へ置き換える。
var blockBreaks = regexp.MustCompile(`(?i)<\s*(br|/p|/div|/li|/tr|/h[1-6])\s*/?>`)

// TextSanitizer はHTMLを含むテキストをプレーンテキストに変換する。
// すべてのタグを除去し、文字参照を復元して空白をまとめる。
type TextSanitizer struct {
	policy *bluemonday.Policy
}

// NewTextSanitizer はTextSanitizerを生成する。
func NewTextSanitizer() *TextSanitizer {
	return &TextSanitizer{policy: bluemonday.StrictPolicy()}
}

// PlainText はrawからタグを除去したテキストを返す。空文字列の入力には空文字列を返す。
func (s *TextSanitizer) PlainText(raw string) string {
	if raw == "" {
		return ""
	}
	withBreaks := blockBreaks.ReplaceAllString(raw, " ")
	stripped := s.policy.Sanitize(withBreaks)
	return strings.Join(strings.Fields(html.UnescapeString(stripped)), " ")
}
