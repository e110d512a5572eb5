// Package export はMarkdownコンテンツを整形済みドキュメントへ変換し、
// 外部ドキュメントバックエンドへアップロードするパイプラインを提供する。
package export

import (
	"bytes"
	"fmt"
	"sync"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
)

// markdownインスタンスは設定（拡張・オプション）が変化しないため共有する。
// 変換ごとの状態はConvert呼び出し内で生成される。
var (
	markdownInstance goldmark.Markdown
	markdownOnce     sync.Once
)

func getMarkdown() goldmark.Markdown {
	markdownOnce.Do(func() {
		markdownInstance = goldmark.New(
			goldmark.WithExtensions(
				extension.GFM,
			),
		)
	})
	return markdownInstance
}

// ConvertMarkdown はMarkdownテキストをHTMLへ変換する。
// GFM拡張（表・取り消し線・自動リンク）を有効にする。
// 入力に埋め込まれた生のHTMLはデフォルト設定により出力されない
// （サニタイズは後段のポリシーで二重に行う）。
// 任意の入力に対して変換は成功する。エラーは出力先の書き込み失敗のみ。
func ConvertMarkdown(source string) (string, error) {
	var buf bytes.Buffer
	if err := getMarkdown().Convert([]byte(source), &buf); err != nil {
		return "", fmt.Errorf("failed to convert markdown: %w", err)
	}
	return buf.String(), nil
}
