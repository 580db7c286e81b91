// Package security はアプリケーションのセキュリティ機能を提供する。
//
// TextSanitizer はユーザー入力や配信メッセージからHTMLを除去し、
// プレーンテキストとして安全に保存・配信できる形に整える。
package security

import (
	"html"
	"strings"
	"unicode/utf8"

	"github.com/microcosm-cc/bluemonday"
)

// MaxMessageLength は通知・リマインダー本文の最大文字数。
const MaxMessageLength = 1000

// TextSanitizer はHTMLを除去してプレーンテキストを返す。
// bluemondayのStrictPolicyは並行利用に対して安全。
type TextSanitizer struct {
	policy *bluemonday.Policy
}

// NewTextSanitizer はTextSanitizerを生成する。
func NewTextSanitizer() *TextSanitizer {
	return &TextSanitizer{policy: bluemonday.StrictPolicy()}
}

// maxSanitizePasses はエンティティの多重エンコードを剥がす最大回数。
const maxSanitizePasses = 8

// Sanitize は全てのタグを除去し、前後の空白を取り除いたテキストを返す。
// StrictPolicyがエスケープしたエンティティは元の文字に戻す。
// MaxMessageLength を超える部分は切り捨てる。
//
// 戻したエンティティが新たなタグになり得るため、結果が変わらなくなるまで繰り返す。
// そのため Sanitize(Sanitize(x)) == Sanitize(x) が常に成り立つ。
// 規定回数で収束しない入力は空文字列として扱う。
func (s *TextSanitizer) Sanitize(raw string) string {
	text := raw
	for i := 0; i < maxSanitizePasses; i++ {
		next := s.pass(text)
		if next == text {
			return text
		}
		text = next
	}
	return ""
}

func (s *TextSanitizer) pass(text string) string {
	text = html.UnescapeString(s.policy.Sanitize(text))
	text = strings.TrimSpace(text)
	if utf8.RuneCountInString(text) > MaxMessageLength {
		runes := []rune(text)
		text = string(runes[:MaxMessageLength])
	}
	return text
}
