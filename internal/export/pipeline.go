package export

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/hitoshi/bullpen/internal/metrics"
	"github.com/hitoshi/bullpen/internal/model"
	"github.com/hitoshi/bullpen/internal/security"
)

// DocumentCreator はドキュメント作成クライアントのインターフェース。
// Clientの部分集合として定義する。
type DocumentCreator interface {
	CreateDocument(ctx context.Context, token, title, htmlContent string) (*model.DocumentReference, error)
}

// Pipeline はMarkdownコンテンツのエクスポートパイプライン。
// 変換・サニタイズ・ドキュメント組み立て・アップロードを1回の実行として提供する。
// リトライは行わず、失敗は分類済みエラーとして呼び出し元に返す。
type Pipeline struct {
	creator   DocumentCreator
	sanitizer security.DocumentSanitizerService
	collector metrics.MetricsCollector
	logger    *slog.Logger
	timeout   time.Duration
}

// NewPipeline はPipelineを生成する。
// timeoutは1回のエクスポート実行全体（変換からアップロード完了まで）の上限。
func NewPipeline(creator DocumentCreator, sanitizer security.DocumentSanitizerService, collector metrics.MetricsCollector, logger *slog.Logger, timeout time.Duration) *Pipeline {
	return &Pipeline{
		creator:   creator,
		sanitizer: sanitizer,
		collector: collector,
		logger:    logger,
		timeout:   timeout,
	}
}

// Export はMarkdownコンテンツをドキュメントへ変換してアップロードする。
// 空白のみのコンテンツは検証エラー。tokenは委任クレデンシャル。
// 成功時は作成されたドキュメントの参照を返す。
func (p *Pipeline) Export(ctx context.Context, token, title, markdown string) (*model.DocumentReference, error) {
	if strings.TrimSpace(markdown) == "" {
		return nil, model.NewEmptyContentError()
	}

	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	// 1. Markdown → HTML変換
	bodyHTML, err := ConvertMarkdown(markdown)
	if err != nil {
		p.collector.RecordExportFailure(model.ErrCodeExportNetwork)
		return nil, model.NewExportNetworkError(err.Error())
	}

	// 2. 変換結果のサニタイズとドキュメント組み立て
	safeHTML := p.sanitizer.Sanitize(bodyHTML)
	document := WrapDocument(safeHTML)

	// 3. アップロード
	start := time.Now()
	ref, err := p.creator.CreateDocument(ctx, token, title, document)
	p.collector.RecordUploadLatency(time.Since(start))
	if err != nil {
		p.collector.RecordExportFailure(failureReason(err))
		p.logger.Error("export failed",
			slog.String("title", title),
			slog.String("error", err.Error()),
		)
		return nil, err
	}

	p.collector.RecordExportSuccess()
	p.logger.Info("export succeeded",
		slog.String("title", title),
		slog.String("document_id", ref.ID),
	)
	return ref, nil
}

// DefaultTitle は完了シグナルがタイトルを指定しなかった場合の既定タイトルを合成する。
func DefaultTitle(agentName string, now time.Time) string {
	return fmt.Sprintf("%s Result - %s", agentName, now.Format("2006-01-02 15:04:05"))
}

// failureReason はエラーをメトリクス用の失敗分類に変換する。
func failureReason(err error) string {
	if apiErr, ok := err.(*model.APIError); ok {
		return apiErr.Code
	}
	return "unknown"
}
