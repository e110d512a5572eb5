package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/hitoshi/bullpen/internal/model"
)

// ProfileAdminInterface は管理ハンドラーが必要とするサービスインターフェース。
// profile.Serviceの部分集合として定義する。
type ProfileAdminInterface interface {
	List(ctx context.Context) ([]*model.Profile, error)
	SetStatus(ctx context.Context, id string, newStatus model.ProfileStatus) (*model.Profile, error)
}

// AdminHandler は管理コンソールのHTTPハンドラー。
type AdminHandler struct {
	profiles ProfileAdminInterface
}

// NewAdminHandler はAdminHandlerを生成する。
func NewAdminHandler(profiles ProfileAdminInterface) *AdminHandler {
	return &AdminHandler{profiles: profiles}
}

// profileResponse はプロフィール情報のAPIレスポンス。
type profileResponse struct {
	ID           string `json:"id"`
	Email        string `json:"email"`
	DisplayName  string `json:"display_name"`
	PhotoURL     string `json:"photo_url,omitempty"`
	Status       string `json:"status"`
	Role         string `json:"role"`
	FirstLoginAt string `json:"first_login_at"`
	LastLoginAt  string `json:"last_login_at"`
	LoginCount   int    `json:"login_count"`
}

// setStatusRequest は承認状態変更リクエストのボディ。
type setStatusRequest struct {
	Status string `json:"status"`
}

// ListProfiles は全プロフィールを承認待ち優先・最終ログイン降順で返す。
// GET /api/admin/profiles
func (h *AdminHandler) ListProfiles(w http.ResponseWriter, r *http.Request) {
	profiles, err := h.profiles.List(r.Context())
	if err != nil {
		handleServiceError(w, err)
		return
	}

	resp := make([]*profileResponse, 0, len(profiles))
	for _, p := range profiles {
		resp = append(resp, toProfileResponse(p))
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{"profiles": resp})
}

// SetProfileStatus は承認状態を変更する。
// 許可された遷移のみ受け付け、管理者プロフィールの状態は変更できない。
// PUT /api/admin/profiles/{id}/status
func (h *AdminHandler) SetProfileStatus(w http.ResponseWriter, r *http.Request) {
	profileID := chi.URLParam(r, "id")

	var req setStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeInvalidRequestBody(w)
		return
	}

	newStatus := model.ProfileStatus(req.Status)
	if !newStatus.Valid() {
		writeAPIErrorResponse(w, http.StatusBadRequest, &model.APIError{
			Code:     "INVALID_REQUEST",
			Message:  "不正な承認状態です。",
			Category: "validation",
			Action:   "pending, approved, rejectedのいずれかを指定してください。",
		})
		return
	}

	profile, err := h.profiles.SetStatus(r.Context(), profileID, newStatus)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(toProfileResponse(profile))
}

func toProfileResponse(p *model.Profile) *profileResponse {
	return &profileResponse{
		ID:           p.ID,
		Email:        p.Email,
		DisplayName:  p.DisplayName,
		PhotoURL:     p.PhotoURL,
		Status:       string(p.Status),
		Role:         string(p.Role),
		FirstLoginAt: p.FirstLoginAt.Format(time.RFC3339),
		LastLoginAt:  p.LastLoginAt.Format(time.RFC3339),
		LoginCount:   p.LoginCount,
	}
}
