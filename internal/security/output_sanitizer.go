// Package security はアプリケーションのセキュリティ機能を提供する。
//
// OutputSanitizer はスクレイパープロセスが出力した標準出力・標準エラーを
// API応答や収集履歴に保存する前に無害化する。
// bluemondayのStrictPolicyで全てのタグを除去し、長さを制限する。
package security

import (
	"html"
	"strings"
	"unicode/utf8"

	"github.com/microcosm-cc/bluemonday"
)

// DefaultMaxMessageRunes はメッセージの既定の最大文字数。
const DefaultMaxMessageRunes = 2000

// maxStripPasses はタグ除去を繰り返す最大回数。
const maxStripPasses = 4

// truncatedSuffix は切り詰めたメッセージの末尾に付与する。
const truncatedSuffix = "…(truncated)"

// MessageSanitizer はプロセス出力の無害化機能のインターフェースを定義する。
type MessageSanitizer interface {
	// Sanitize はタグを除去し、前後の空白を取り除き、最大文字数で切り詰めた文字列を返す。
	// 空文字列の入力には空文字列を返す。
	Sanitize(raw string) string
}

// OutputSanitizer はMessageSanitizerの実装。
// bluemondayのポリシーはスレッドセーフなので複数のgoroutineから共有できる。
type OutputSanitizer struct {
	policy   *bluemonday.Policy
	maxRunes int
}

// NewOutputSanitizer はOutputSanitizerを生成する。
// maxRunesが0以下の場合はDefaultMaxMessageRunesを使用する。
func NewOutputSanitizer(maxRunes int) *OutputSanitizer {
	if maxRunes <= 0 {
		maxRunes = DefaultMaxMessageRunes
	}
	return &OutputSanitizer{
		policy:   bluemonday.StrictPolicy(),
		maxRunes: maxRunes,
	}
}

// Sanitize はプロセス出力を無害化する。
func (s *OutputSanitizer) Sanitize(raw string) string {
	if raw == "" {
		return ""
	}

	text := s.stripMarkup(raw)
	text = strings.TrimSpace(strings.ReplaceAll(text, "\r\n", "\n"))

	if utf8.RuneCountInString(text) <= s.maxRunes {
		return text
	}
	runes := []rune(text)
	return string(runes[:s.maxRunes]) + truncatedSuffix
}

// stripMarkup はタグを除去したプレーンテキストを返す。
// 実体参照で書かれたタグも除去するため、デコードしてからポリシーを適用する。
// 除去によって新たなタグが組み上がる入力もあるため、結果が変わらなくなるまで繰り返す。
// 収束しない場合はエンコードされたままの文字列を返す。
func (s *OutputSanitizer) stripMarkup(raw string) string {
	text := html.UnescapeString(raw)
	for i := 0; i < maxStripPasses; i++ {
		cleaned := html.UnescapeString(s.policy.Sanitize(text))
		if cleaned == text {
			return text
		}
		text = cleaned
	}
	return s.policy.Sanitize(text)
}
