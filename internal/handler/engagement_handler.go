package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/hitoshi/bullpen/internal/middleware"
	"github.com/hitoshi/bullpen/internal/model"
)

// HostServiceInterface はエンゲージメントハンドラーが必要とするサービスインターフェース。
// host.Serviceの部分集合として定義する。
type HostServiceInterface interface {
	Engage(profileID, agentID string) (*model.Agent, error)
	Disengage(profileID string)
	Current(profileID string) (*model.Agent, bool)
	Complete(ctx context.Context, profileID, token, reportedAgentID, title, content string) (*model.ExportJob, error)
	ManualExport(ctx context.Context, profileID, token, title, content string) (*model.ExportJob, error)
	LatestJob(profileID string) (*model.ExportJob, bool)
}

// EngagementHandler はエージェントエンゲージメントとエクスポートのHTTPハンドラー。
type EngagementHandler struct {
	host HostServiceInterface
}

// NewEngagementHandler はEngagementHandlerを生成する。
func NewEngagementHandler(host HostServiceInterface) *EngagementHandler {
	return &EngagementHandler{host: host}
}

// engageRequest はエンゲージメント開始リクエストのボディ。
type engageRequest struct {
	AgentID string `json:"agent_id"`
}

// completeRequest は完了シグナルのリクエストボディ。
// AgentIDはエージェントが自己申告する識別子で、エンゲージ中のものと照合される。
type completeRequest struct {
	AgentID string `json:"agent_id"`
	Title   string `json:"title"`
	Content string `json:"content"`
}

// manualExportRequest は手動エクスポートのリクエストボディ。
type manualExportRequest struct {
	Title   string `json:"title"`
	Content string `json:"content"`
}

// engagementResponse は現在のエンゲージメント状態のAPIレスポンス。
type engagementResponse struct {
	Engaged bool           `json:"engaged"`
	Agent   *agentResponse `json:"agent,omitempty"`
}

// exportJobResponse はエクスポートジョブのAPIレスポンス。
type exportJobResponse struct {
	ID         string `json:"id"`
	Title      string `json:"title"`
	Status     string `json:"status"`
	Reason     string `json:"reason,omitempty"`
	DocumentID string `json:"document_id,omitempty"`
	StartedAt  string `json:"started_at"`
	FinishedAt string `json:"finished_at,omitempty"`
}

// Engage はエージェントとのエンゲージメントを開始する。
// 既存のエンゲージメントがあれば置き換える。
// POST /api/engagements
func (h *EngagementHandler) Engage(w http.ResponseWriter, r *http.Request) {
	profileID, err := middleware.ProfileIDFromContext(r.Context())
	if err != nil {
		writeUnauthorized(w)
		return
	}

	var req engageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeInvalidRequestBody(w)
		return
	}
	if req.AgentID == "" {
		writeAPIErrorResponse(w, http.StatusBadRequest, &model.APIError{
			Code:     "INVALID_REQUEST",
			Message:  "エージェントIDが空です。",
			Category: "validation",
			Action:   "エージェントIDを指定してください。",
		})
		return
	}

	agent, err := h.host.Engage(profileID, req.AgentID)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	resp := toAgentResponse(agent)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(engagementResponse{Engaged: true, Agent: &resp})
}

// CurrentEngagement は現在のエンゲージメント状態を返す。
// GET /api/engagements
func (h *EngagementHandler) CurrentEngagement(w http.ResponseWriter, r *http.Request) {
	profileID, err := middleware.ProfileIDFromContext(r.Context())
	if err != nil {
		writeUnauthorized(w)
		return
	}

	w.Header().Set("Content-Type", "application/json")

	agent, ok := h.host.Current(profileID)
	if !ok {
		json.NewEncoder(w).Encode(engagementResponse{Engaged: false})
		return
	}

	resp := toAgentResponse(agent)
	json.NewEncoder(w).Encode(engagementResponse{Engaged: true, Agent: &resp})
}

// Disengage はエンゲージメントを終了する。エクスポートは行わない。
// DELETE /api/engagements
func (h *EngagementHandler) Disengage(w http.ResponseWriter, r *http.Request) {
	profileID, err := middleware.ProfileIDFromContext(r.Context())
	if err != nil {
		writeUnauthorized(w)
		return
	}

	h.host.Disengage(profileID)
	w.WriteHeader(http.StatusNoContent)
}

// Complete はエージェントからの完了シグナルを処理し、
// 成果物をドキュメントとしてエクスポートする。
// POST /api/engagements/complete
func (h *EngagementHandler) Complete(w http.ResponseWriter, r *http.Request) {
	session, err := middleware.SessionFromContext(r.Context())
	if err != nil {
		writeUnauthorized(w)
		return
	}

	var req completeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeInvalidRequestBody(w)
		return
	}

	job, err := h.host.Complete(r.Context(), session.ProfileID, session.DriveToken, req.AgentID, req.Title, req.Content)
	if err != nil {
		// 失敗でもジョブが記録されていればレスポンスに含める
		handleExportError(w, err, job)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(toExportJobResponse(job))
}

// ManualExport は任意のMarkdownコンテンツのエクスポートを処理する。
// エンゲージ中のユーザーのみ実行できる。
// POST /api/exports
func (h *EngagementHandler) ManualExport(w http.ResponseWriter, r *http.Request) {
	session, err := middleware.SessionFromContext(r.Context())
	if err != nil {
		writeUnauthorized(w)
		return
	}

	var req manualExportRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeInvalidRequestBody(w)
		return
	}

	job, err := h.host.ManualExport(r.Context(), session.ProfileID, session.DriveToken, req.Title, req.Content)
	if err != nil {
		handleExportError(w, err, job)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(toExportJobResponse(job))
}

// LatestExport は最新のエクスポートジョブの状態を返す。
// GET /api/exports/latest
func (h *EngagementHandler) LatestExport(w http.ResponseWriter, r *http.Request) {
	profileID, err := middleware.ProfileIDFromContext(r.Context())
	if err != nil {
		writeUnauthorized(w)
		return
	}

	job, ok := h.host.LatestJob(profileID)
	if !ok {
		writeAPIErrorResponse(w, http.StatusNotFound, &model.APIError{
			Code:     "EXPORT_JOB_NOT_FOUND",
			Message:  "エクスポートジョブがありません。",
			Category: "export",
			Action:   "エクスポートを実行してください。",
		})
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(toExportJobResponse(job))
}

// handleExportError はエクスポート失敗のレスポンスを書き込む。
// 失敗ジョブが記録されている場合はジョブ情報も含める。
func handleExportError(w http.ResponseWriter, err error, job *model.ExportJob) {
	if job == nil {
		handleServiceError(w, err)
		return
	}

	statusCode := statusCodeForError(err)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(toExportJobResponse(job))
}

func toExportJobResponse(job *model.ExportJob) exportJobResponse {
	resp := exportJobResponse{
		ID:         job.ID,
		Title:      job.Title,
		Status:     string(job.Status),
		Reason:     job.Reason,
		DocumentID: job.DocumentID,
		StartedAt:  job.StartedAt.Format(time.RFC3339),
	}
	if !job.FinishedAt.IsZero() {
		resp.FinishedAt = job.FinishedAt.Format(time.RFC3339)
	}
	return resp
}
