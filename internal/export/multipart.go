package export

import (
	"encoding/json"
	"fmt"
	"strings"
)

// boundary はmultipart/relatedリクエストの固定境界文字列。
// ドキュメントバックエンドとの互換性を保つため変更しない。
const boundary = "-------314159265358979323846"

// documentMIMEType はアップロード時にバックエンド側の
// ネイティブドキュメントへの変換を指示するMIMEタイプ。
const documentMIMEType = "application/vnd.google-apps.document"

// documentMetadata はmultipartの第1パートに載せるメタデータ。
type documentMetadata struct {
	Name     string `json:"name"`
	MimeType string `json:"mimeType"`
}

// BuildMultipartBody はドキュメント作成リクエストのmultipart/relatedボディを組み立てる。
// 第1パートはJSONメタデータ（タイトルと変換先MIMEタイプ）、
// 第2パートはHTMLコンテンツ。区切りはCRLF区切りの固定境界。
func BuildMultipartBody(title, htmlContent string) (string, error) {
	metadata := documentMetadata{
		Name:     title,
		MimeType: documentMIMEType,
	}
	metadataJSON, err := json.Marshal(metadata)
	if err != nil {
		return "", fmt.Errorf("failed to marshal document metadata: %w", err)
	}

	delimiter := "\r\n--" + boundary + "\r\n"
	closeDelimiter := "\r\n--" + boundary + "--"

	var b strings.Builder
	b.WriteString(delimiter)
	b.WriteString("Content-Type: application/json\r\n\r\n")
	b.Write(metadataJSON)
	b.WriteString(delimiter)
	b.WriteString("Content-Type: text/html\r\n\r\n")
	b.WriteString(htmlContent)
	b.WriteString(closeDelimiter)
	return b.String(), nil
}

// MultipartContentType はリクエストヘッダに設定するContent-Type値を返す。
func MultipartContentType() string {
	return "multipart/related; boundary=" + boundary
}
