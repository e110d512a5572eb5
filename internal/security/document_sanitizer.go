// Package security はアプリケーションのセキュリティ機能を提供する。
//
// DocumentSanitizerService はエクスポートするドキュメントのHTMLをサニタイズし、
// 変換結果に紛れ込んだスクリプトや危険な属性を除去する。
// bluemondayライブラリを使用した許可リストベースのポリシーで、
// ドキュメントとして意味のあるタグのみを通過させる。
package security

import (
	"net/url"

	"github.com/microcosm-cc/bluemonday"
)

// DocumentSanitizerService はドキュメントHTMLのサニタイズ機能のインターフェースを定義する。
// Markdown変換後、アップロードペイロード組み立て前に使用される。
type DocumentSanitizerService interface {
	// Sanitize はHTMLコンテンツをサニタイズして安全なHTMLを返す。
	// 見出し・段落・リスト・表・コードブロック等のドキュメント構造タグのみを通過させ、
	// script, iframe, styleタグおよびon*イベント属性を除去する。
	// imgタグのsrc属性はhttpsスキームのみ許可される。
	// 空文字列の入力には空文字列を返す。
	// 同一入力に対して常に同一出力を返す（冪等）。
	Sanitize(rawHTML string) string
}

// documentSanitizer はDocumentSanitizerServiceの実装。
// bluemondayのポリシーを保持し、スレッドセーフにサニタイズ処理を行う。
type documentSanitizer struct {
	policy *bluemonday.Policy
}

// NewDocumentSanitizer はDocumentSanitizerServiceの新しいインスタンスを生成する。
// 初期化時にbluemondayのカスタムポリシーを構築する。
// ポリシーの内容:
//   - 許可タグ: h1〜h6, p, br, hr, a, ul, ol, li, blockquote, pre, code,
//     strong, em, del, table, thead, tbody, tr, th, td, img
//   - 禁止タグ: script, iframe, style および全てのon*イベント属性
//   - imgのsrc属性: httpsスキームのみ許可
func NewDocumentSanitizer() *documentSanitizer {
	p := bluemonday.NewPolicy()

	// ドキュメント構造タグの許可リスト。
	// script, iframe, style等は許可リストに含めないことで自動的に除去される。
	// on*イベント属性はbluemondayのデフォルトで許可されないため除去される。
	p.AllowElements(
		"h1", "h2", "h3", "h4", "h5", "h6",
		"p", "br", "hr", "ul", "ol", "li",
		"blockquote", "pre", "code",
		"strong", "em", "del",
		"table", "thead", "tbody", "tr", "th", "td",
	)

	// aタグ: href属性のみ許可。相対URLはドキュメント内では解決できないため不許可。
	p.AllowAttrs("href").OnElements("a")
	p.AllowRelativeURLs(false)

	// imgタグ: src属性はhttpsスキームのみ許可（http, javascript, data等は拒否）。
	// alt属性はドキュメント変換時の代替テキストとして許可。
	p.AllowAttrs("src").OnElements("img")
	p.AllowAttrs("alt").OnElements("img")
	p.AllowURLSchemeWithCustomPolicy("https", func(u *url.URL) bool {
		return true
	})

	return &documentSanitizer{
		policy: p,
	}
}

// Sanitize はHTMLコンテンツをサニタイズして安全なHTMLを返す。
func (s *documentSanitizer) Sanitize(rawHTML string) string {
	return s.policy.Sanitize(rawHTML)
}
