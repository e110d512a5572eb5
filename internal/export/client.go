package export

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/hitoshi/bullpen/internal/model"
)

// defaultUploadEndpoint はドキュメントバックエンドのアップロードエンドポイント。
const defaultUploadEndpoint = "https://www.googleapis.com/upload/drive/v3/files?uploadType=multipart"

// Client はドキュメントバックエンドのアップロードクライアント。
// multipartエンドポイントを使用してHTMLコンテンツをネイティブドキュメントとして作成する。
type Client struct {
	httpClient *http.Client
	logger     *slog.Logger
	endpoint   string // 設定・テストで差し替え可能
}

// NewClient はClient の新しいインスタンスを生成する。
func NewClient(httpClient *http.Client, logger *slog.Logger) *Client {
	return &Client{
		httpClient: httpClient,
		logger:     logger,
		endpoint:   defaultUploadEndpoint,
	}
}

// SetEndpoint はアップロードエンドポイントを上書きする。
// 空文字列の場合は既定エンドポイントのまま変更しない。
func (c *Client) SetEndpoint(url string) {
	if url != "" {
		c.endpoint = url
	}
}

// uploadResponse はアップロード成功時のレスポンスボディ。
type uploadResponse struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// errorResponse はバックエンドの構造化エラーレスポンス。
type errorResponse struct {
	Error struct {
		Message string `json:"message"`
	} `json:"error"`
}

// CreateDocument はHTMLコンテンツをドキュメントバックエンドへアップロードし、
// 作成されたドキュメントの参照を返す。リトライは行わない（呼び出し元の再実行に任せる）。
// 失敗は3種類に分類される:
//   - 委任クレデンシャルの欠如（空トークン）→ EXPORT_NO_CREDENTIAL
//   - バックエンドの拒否（非2xxステータス）→ EXPORT_REJECTED
//   - 通信エラー → EXPORT_NETWORK
func (c *Client) CreateDocument(ctx context.Context, token, title, htmlContent string) (*model.DocumentReference, error) {
	if token == "" {
		return nil, model.NewExportNoCredentialError()
	}

	body, err := BuildMultipartBody(title, htmlContent)
	if err != nil {
		return nil, model.NewExportNetworkError(err.Error())
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, strings.NewReader(body))
	if err != nil {
		return nil, model.NewExportNetworkError(err.Error())
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", MultipartContentType())

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Error("failed to reach document backend",
			slog.String("error", err.Error()),
			slog.String("title", title),
		)
		return nil, model.NewExportNetworkError(err.Error())
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		c.logger.Error("failed to read document backend response",
			slog.String("error", err.Error()),
		)
		return nil, model.NewExportNetworkError(err.Error())
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		// 構造化エラーメッセージの抽出を試み、なければ生のステータスを使う
		reason := resp.Status
		var backendErr errorResponse
		if jsonErr := json.Unmarshal(respBody, &backendErr); jsonErr == nil && backendErr.Error.Message != "" {
			reason = backendErr.Error.Message
		}
		c.logger.Error("document backend rejected the upload",
			slog.Int("http_status", resp.StatusCode),
			slog.String("reason", reason),
		)
		return nil, model.NewExportRejectedError(reason)
	}

	var created uploadResponse
	if err := json.Unmarshal(respBody, &created); err != nil {
		c.logger.Error("failed to parse document backend response",
			slog.String("error", err.Error()),
		)
		return nil, model.NewExportNetworkError(err.Error())
	}

	return &model.DocumentReference{
		ID:   created.ID,
		Name: created.Name,
	}, nil
}
