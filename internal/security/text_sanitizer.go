// Package security はアプリケーションのセキュリティ機能を提供する。
//
// TextSanitizer はカタログに取り込む自由記述テキストからHTMLを除去する。
// APIはテキストをJSONで返し、クライアントがそのままDOMに挿入しても
// スクリプトが実行されないことを保証する。
package security

import (
	"html"
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

// TextSanitizer はプレーンテキスト化のインターフェース。
type TextSanitizer interface {
	// Sanitize は全てのHTMLタグを除去したプレーンテキストを返す。
	// 前後の空白は取り除く。同一入力に対して常に同一出力を返す（冪等）。
	Sanitize(raw string) string
}

// strictSanitizer はbluemondayのStrictPolicyによるTextSanitizerの実装。
type strictSanitizer struct {
	policy *bluemonday.Policy
}

// NewTextSanitizer はTextSanitizerを生成する。
// bluemondayのPolicyはスレッドセーフなため、生成後は共有して使用できる。
func NewTextSanitizer() TextSanitizer {
	return &strictSanitizer{policy: bluemonday.StrictPolicy()}
}

// Sanitize はタグを除去した後、bluemondayがエスケープした実体参照を戻す。
// 戻した結果に再びタグが現れる場合は再度サニタイズする。
func (s *strictSanitizer) Sanitize(raw string) string {
	out := raw
	for range 3 {
		stripped := html.UnescapeString(s.policy.Sanitize(out))
		if stripped == out {
			break
		}
		out = stripped
	}
	if strings.ContainsAny(out, "<>") {
		out = strings.NewReplacer("<", "", ">", "").Replace(out)
	}
	return strings.TrimSpace(out)
}
