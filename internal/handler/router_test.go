package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/hitoshi/bullpen/internal/middleware"
	"github.com/hitoshi/bullpen/internal/model"
	"github.com/hitoshi/bullpen/internal/watch"
)

// --- モック定義 ---

type mockSessionFinder struct {
	sessions map[string]*model.Session
}

func (m *mockSessionFinder) FindByID(ctx context.Context, id string) (*model.Session, error) {
	return m.sessions[id], nil
}

type mockHealthChecker struct {
	err error
}

func (m *mockHealthChecker) PingContext(ctx context.Context) error {
	return m.err
}

// newTestRouter はテスト用の全ルート構成を組み立てる。
// プロフィールストアには approved-user / pending-user / admin-user の3件が入っている。
func newTestRouter(t *testing.T) http.Handler {
	t.Helper()

	profiles := map[string]*model.Profile{
		"approved-user": {ID: "approved-user", Status: model.StatusApproved, Role: model.RoleUser},
		"pending-user":  {ID: "pending-user", Status: model.StatusPending, Role: model.RoleUser},
		"admin-user":    {ID: "admin-user", Status: model.StatusApproved, Role: model.RoleAdmin},
	}
	loader := &mockProfileGetter{
		getFn: func(ctx context.Context, id string) (*model.Profile, error) {
			if p, ok := profiles[id]; ok {
				return p, nil
			}
			return nil, model.NewProfileNotFoundError(id)
		},
	}

	sessions := &mockSessionFinder{sessions: map[string]*model.Session{}}
	for _, profileID := range []string{"approved-user", "pending-user", "admin-user"} {
		sessions.sessions[profileID+"-session"] = &model.Session{
			ID:         profileID + "-session",
			ProfileID:  profileID,
			DriveToken: "ya29.token",
			ExpiresAt:  time.Now().Add(time.Hour),
		}
	}

	rl := middleware.NewRateLimiter(middleware.DefaultRateLimiterConfig())
	t.Cleanup(rl.Stop)

	catalog := &mockCatalog{
		findFn: func(id string) (*model.Agent, error) {
			if id == "agent-a" {
				agent := testAgent("agent-a", "自動検証")
				return &agent, nil
			}
			return nil, model.NewAgentNotFoundError(id)
		},
	}

	host := &mockHostService{
		engageFn: func(profileID, agentID string) (*model.Agent, error) {
			agent := testAgent(agentID, "自動検証")
			return &agent, nil
		},
	}

	admin := &mockProfileAdmin{
		listFn: func(ctx context.Context) ([]*model.Profile, error) {
			return []*model.Profile{profiles["pending-user"]}, nil
		},
	}

	return NewRouter(&RouterDeps{
		HealthChecker:     &mockHealthChecker{},
		SessionFinder:     sessions,
		ProfileLoader:     loader,
		CORSAllowedOrigin: "http://localhost:3000",
		RateLimiter:       rl,
		CSRFConfig:        middleware.CSRFConfig{CookieSecure: false},

		AuthService: &mockAuthService{},
		AuthConfig:  testAuthConfig(),

		Catalog:     catalog,
		HostService: host,

		ProfileAdmin: admin,

		Watcher:       watch.NewHub(),
		ProfileGetter: loader,
		WatchGauge:    &spyGauge{},
	})
}

func withSessionCookie(req *http.Request, profileID string) *http.Request {
	req.AddCookie(&http.Cookie{Name: "session_id", Value: profileID + "-session"})
	return req
}

func withCSRF(req *http.Request) *http.Request {
	req.AddCookie(&http.Cookie{Name: "csrf_token", Value: "test-csrf-token"})
	req.Header.Set("X-CSRF-Token", "test-csrf-token")
	return req
}

// --- テスト ---

func TestRouter_Health_ReturnsOK(t *testing.T) {
	router := newTestRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	w := httptest.NewRecorder()

	router.ServeHTTP(w, req)

	if w.Result().StatusCode != http.StatusOK {
		t.Errorf("status = %d, want %d", w.Result().StatusCode, http.StatusOK)
	}
}

func TestRouter_Health_DBDown_Returns503(t *testing.T) {
	rl := middleware.NewRateLimiter(middleware.DefaultRateLimiterConfig())
	t.Cleanup(rl.Stop)

	router := NewRouter(&RouterDeps{
		HealthChecker:     &mockHealthChecker{err: context.DeadlineExceeded},
		SessionFinder:     &mockSessionFinder{},
		ProfileLoader:     &mockProfileGetter{},
		CORSAllowedOrigin: "http://localhost:3000",
		RateLimiter:       rl,
		AuthService:       &mockAuthService{},
		AuthConfig:        testAuthConfig(),
		Catalog:           &mockCatalog{},
		HostService:       &mockHostService{},
		ProfileAdmin:      &mockProfileAdmin{},
		Watcher:           watch.NewHub(),
		ProfileGetter:     &mockProfileGetter{},
		WatchGauge:        &spyGauge{},
	})

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	w := httptest.NewRecorder()

	router.ServeHTTP(w, req)

	if w.Result().StatusCode != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want %d", w.Result().StatusCode, http.StatusServiceUnavailable)
	}
}

func TestRouter_Agents_NoSession_Returns401(t *testing.T) {
	router := newTestRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/api/agents", nil)
	w := httptest.NewRecorder()

	router.ServeHTTP(w, req)

	if w.Result().StatusCode != http.StatusUnauthorized {
		t.Errorf("status = %d, want %d", w.Result().StatusCode, http.StatusUnauthorized)
	}
}

func TestRouter_Agents_PendingUser_Returns403(t *testing.T) {
	router := newTestRouter(t)

	req := withSessionCookie(httptest.NewRequest(http.MethodGet, "/api/agents", nil), "pending-user")
	w := httptest.NewRecorder()

	router.ServeHTTP(w, req)

	resp := w.Result()
	if resp.StatusCode != http.StatusForbidden {
		t.Errorf("status = %d, want %d", resp.StatusCode, http.StatusForbidden)
	}

	var body apiErrorResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if body.Code != model.ErrCodeApprovalRequired {
		t.Errorf("error code = %q, want %q", body.Code, model.ErrCodeApprovalRequired)
	}
}

func TestRouter_Agents_ApprovedUser_Returns200(t *testing.T) {
	router := newTestRouter(t)

	req := withSessionCookie(httptest.NewRequest(http.MethodGet, "/api/agents", nil), "approved-user")
	w := httptest.NewRecorder()

	router.ServeHTTP(w, req)

	if w.Result().StatusCode != http.StatusOK {
		t.Errorf("status = %d, want %d", w.Result().StatusCode, http.StatusOK)
	}
}

func TestRouter_AdminProfiles_NonAdmin_Returns403(t *testing.T) {
	router := newTestRouter(t)

	req := withSessionCookie(httptest.NewRequest(http.MethodGet, "/api/admin/profiles", nil), "approved-user")
	w := httptest.NewRecorder()

	router.ServeHTTP(w, req)

	resp := w.Result()
	if resp.StatusCode != http.StatusForbidden {
		t.Errorf("status = %d, want %d", resp.StatusCode, http.StatusForbidden)
	}

	var body apiErrorResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if body.Code != model.ErrCodeAdminRequired {
		t.Errorf("error code = %q, want %q", body.Code, model.ErrCodeAdminRequired)
	}
}

func TestRouter_AdminProfiles_Admin_Returns200(t *testing.T) {
	router := newTestRouter(t)

	req := withSessionCookie(httptest.NewRequest(http.MethodGet, "/api/admin/profiles", nil), "admin-user")
	w := httptest.NewRecorder()

	router.ServeHTTP(w, req)

	if w.Result().StatusCode != http.StatusOK {
		t.Errorf("status = %d, want %d", w.Result().StatusCode, http.StatusOK)
	}
}

func TestRouter_Engage_WithoutCSRFToken_Returns403(t *testing.T) {
	router := newTestRouter(t)

	req := withSessionCookie(
		httptest.NewRequest(http.MethodPost, "/api/engagements", strings.NewReader(`{"agent_id":"agent-a"}`)),
		"approved-user")
	w := httptest.NewRecorder()

	router.ServeHTTP(w, req)

	if w.Result().StatusCode != http.StatusForbidden {
		t.Errorf("status = %d, want %d", w.Result().StatusCode, http.StatusForbidden)
	}
}

func TestRouter_Engage_WithCSRFToken_Returns201(t *testing.T) {
	router := newTestRouter(t)

	req := withCSRF(withSessionCookie(
		httptest.NewRequest(http.MethodPost, "/api/engagements", strings.NewReader(`{"agent_id":"agent-a"}`)),
		"approved-user"))
	w := httptest.NewRecorder()

	router.ServeHTTP(w, req)

	if w.Result().StatusCode != http.StatusCreated {
		t.Errorf("status = %d, want %d", w.Result().StatusCode, http.StatusCreated)
	}
}

func TestRouter_Watch_PendingUser_IsAccessible(t *testing.T) {
	router := newTestRouter(t)

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	req := withSessionCookie(httptest.NewRequest(http.MethodGet, "/api/profile/watch", nil), "pending-user")
	req = req.WithContext(ctx)
	w := httptest.NewRecorder()

	router.ServeHTTP(w, req)

	resp := w.Result()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d, want %d", resp.StatusCode, http.StatusOK)
	}
	if !strings.Contains(w.Body.String(), `"decision":"waiting"`) {
		t.Errorf("body = %q, want waiting snapshot event", w.Body.String())
	}
}

func TestRouter_Me_NoSession_ReturnsUnauthenticatedDecision(t *testing.T) {
	router := newTestRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/auth/me", nil)
	w := httptest.NewRecorder()

	router.ServeHTTP(w, req)

	resp := w.Result()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d, want %d", resp.StatusCode, http.StatusOK)
	}

	var body meResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if body.Decision != "unauthenticated" {
		t.Errorf("decision = %q, want %q", body.Decision, "unauthenticated")
	}
}

func TestRouter_CSRFTokenEndpoint_NoAuth(t *testing.T) {
	router := newTestRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/api/csrf-token", nil)
	w := httptest.NewRecorder()

	router.ServeHTTP(w, req)

	if w.Result().StatusCode != http.StatusOK {
		t.Errorf("status = %d, want %d", w.Result().StatusCode, http.StatusOK)
	}
}
