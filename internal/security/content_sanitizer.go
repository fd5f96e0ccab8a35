// Package security はユーザー入力のサニタイズ機能を提供する。
//
// 日次ログのメモはリッチテキストとして受け付けるため、bluemondayの
// 許可リストポリシーで安全なタグのみを残してから保存する。
// 表示名や目標などのプレーンテキストはタグをすべて取り除く。
package security

import (
	"html"
	"net/url"

	"github.com/microcosm-cc/bluemonday"
)

// Sanitizer はHTML文字列をサニタイズする。
type Sanitizer interface {
	// Sanitize は安全な文字列を返す。空文字列の入力には空文字列を返す。
	Sanitize(raw string) string
}

// policySanitizer はbluemondayのポリシーを保持するSanitizer。
// bluemonday.Policyは構築後はスレッドセーフに使える。
type policySanitizer struct {
	policy *bluemonday.Policy
}

// NewNotesSanitizer は日次ログのメモ用のSanitizerを生成する。
// ポリシーの内容:
//   - 許可タグ: p, br, ul, ol, li, blockquote, strong, em, a
//   - aのhref: httpsのみ。rel="noopener noreferrer"とtarget="_blank"を付与
//   - 画像、script、iframe、style、on*属性は除去
func NewNotesSanitizer() Sanitizer {
	p := bluemonday.NewPolicy()

	p.AllowElements(
		"p", "br", "ul", "ol", "li",
		"blockquote", "strong", "em",
	)

	p.AllowAttrs("href").OnElements("a")
	p.AllowRelativeURLs(false)
	p.AllowURLSchemeWithCustomPolicy("https", func(u *url.URL) bool {
		return u.Host != ""
	})
	p.RequireNoReferrerOnLinks(true)
	p.AddTargetBlankToFullyQualifiedLinks(true)

	return &policySanitizer{policy: p}
}

// NewPlainTextSanitizer はタグを一切許可しないSanitizerを生成する。
// 戻り値はHTMLではなくプレーンテキスト。&や<は文字のまま残るため、
// HTMLとして描画する側でエスケープする。
func NewPlainTextSanitizer() Sanitizer {
	return &plainTextSanitizer{policy: bluemonday.StrictPolicy()}
}

// plainTextSanitizer はタグを除去したうえでエンティティを元の文字に戻す。
type plainTextSanitizer struct {
	policy *bluemonday.Policy
}

// Sanitize はタグを除去したプレーンテキストを返す。
func (s *plainTextSanitizer) Sanitize(raw string) string {
	if raw == "" {
		return ""
	}
	return html.UnescapeString(s.policy.Sanitize(raw))
}

// Sanitize はポリシーに従ってサニタイズした文字列を返す。
func (s *policySanitizer) Sanitize(raw string) string {
	if raw == "" {
		return ""
	}
	return s.policy.Sanitize(raw)
}
