package export

import "strings"

// documentStyle はドキュメントバックエンドが書式として解釈するスタイル定義。
// 見出しサイズ・リスト余白・コードブロックの背景が変換後のドキュメントに反映される。
const documentStyle = `body { font-family: Arial, sans-serif; line-height: 1.6; }
h1 { font-size: 24px; font-weight: bold; margin-bottom: 0.5em; }
h2 { font-size: 20px; font-weight: bold; margin-top: 1em; margin-bottom: 0.5em; }
h3 { font-size: 16px; font-weight: bold; margin-top: 1em; margin-bottom: 0.5em; }
p { margin-bottom: 1em; }
ul, ol { margin-bottom: 1em; padding-left: 2em; }
li { margin-bottom: 0.3em; }
pre { background-color: #f5f5f5; padding: 10px; border-radius: 4px; white-space: pre-wrap; }
code { background-color: #f5f5f5; padding: 2px 4px; border-radius: 2px; font-family: monospace; }
blockquote { border-left: 4px solid #ccc; margin-left: 0; padding-left: 1em; color: #666; }`

// WrapDocument は変換済みHTML断片を完全なHTMLドキュメントに包む。
// バックエンドが書式を解釈しやすいよう、文字コード宣言とスタイルを付与する。
func WrapDocument(bodyHTML string) string {
	var b strings.Builder
	b.WriteString("<!DOCTYPE html>\n")
	b.WriteString("<html>\n<head>\n<meta charset=\"UTF-8\">\n<style>\n")
	b.WriteString(documentStyle)
	b.WriteString("\n</style>\n</head>\n<body>\n")
	b.WriteString(bodyHTML)
	b.WriteString("\n</body>\n</html>")
	return b.String()
}
