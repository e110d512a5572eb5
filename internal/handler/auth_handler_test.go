package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/hitoshi/bullpen/internal/model"
)

// --- モック定義 ---

type mockAuthService struct {
	getLoginURLFn    func(state string) string
	handleCallbackFn func(ctx context.Context, code string) (*model.Session, *model.Profile, error)
	logoutFn         func(ctx context.Context, sessionID string) error
	currentSessionFn func(ctx context.Context, sessionID string) (*model.Session, error)
	currentProfileFn func(ctx context.Context, sessionID string) (*model.Profile, error)
}

func (m *mockAuthService) GetLoginURL(state string) string {
	if m.getLoginURLFn != nil {
		return m.getLoginURLFn(state)
	}
	return "https://accounts.google.com/o/oauth2/auth?state=" + state
}

func (m *mockAuthService) HandleCallback(ctx context.Context, code string) (*model.Session, *model.Profile, error) {
	if m.handleCallbackFn != nil {
		return m.handleCallbackFn(ctx, code)
	}
	return nil, nil, errors.New("not implemented")
}

func (m *mockAuthService) Logout(ctx context.Context, sessionID string) error {
	if m.logoutFn != nil {
		return m.logoutFn(ctx, sessionID)
	}
	return nil
}

func (m *mockAuthService) CurrentSession(ctx context.Context, sessionID string) (*model.Session, error) {
	if m.currentSessionFn != nil {
		return m.currentSessionFn(ctx, sessionID)
	}
	return nil, nil
}

func (m *mockAuthService) CurrentProfile(ctx context.Context, sessionID string) (*model.Profile, error) {
	if m.currentProfileFn != nil {
		return m.currentProfileFn(ctx, sessionID)
	}
	return nil, errors.New("not implemented")
}

func testAuthConfig() AuthHandlerConfig {
	return AuthHandlerConfig{
		BaseURL:       "http://localhost:3000",
		SessionMaxAge: 86400,
	}
}

// --- Login のテスト ---

func TestAuthHandler_Login_RedirectsWithStateCookie(t *testing.T) {
	h := NewAuthHandler(&mockAuthService{}, testAuthConfig())

	req := httptest.NewRequest(http.MethodGet, "/auth/google/login", nil)
	w := httptest.NewRecorder()

	h.Login(w, req)

	resp := w.Result()
	if resp.StatusCode != http.StatusTemporaryRedirect {
		t.Errorf("status = %d, want %d", resp.StatusCode, http.StatusTemporaryRedirect)
	}

	var stateCookie *http.Cookie
	for _, c := range resp.Cookies() {
		if c.Name == "oauth_state" {
			stateCookie = c
		}
	}
	if stateCookie == nil || stateCookie.Value == "" {
		t.Fatal("oauth_state cookie not set")
	}
	if !stateCookie.HttpOnly {
		t.Error("oauth_state cookie should be HttpOnly")
	}

	location := resp.Header.Get("Location")
	if location == "" {
		t.Error("expected redirect location")
	}
}

// --- Callback のテスト ---

func TestAuthHandler_Callback_SetsSessionCookieAndRedirects(t *testing.T) {
	svc := &mockAuthService{
		handleCallbackFn: func(ctx context.Context, code string) (*model.Session, *model.Profile, error) {
			if code != "auth-code" {
				t.Errorf("code = %q, want %q", code, "auth-code")
			}
			return &model.Session{
					ID:         "session-123",
					ProfileID:  "profile-123",
					DriveToken: "ya29.token",
					ExpiresAt:  time.Now().Add(24 * time.Hour),
				}, &model.Profile{
					ID:     "profile-123",
					Status: model.StatusPending,
				}, nil
		},
	}
	h := NewAuthHandler(svc, testAuthConfig())

	req := httptest.NewRequest(http.MethodGet, "/auth/google/callback?code=auth-code&state=valid", nil)
	req.AddCookie(&http.Cookie{Name: "oauth_state", Value: "valid"})
	w := httptest.NewRecorder()

	h.Callback(w, req)

	resp := w.Result()
	if resp.StatusCode != http.StatusTemporaryRedirect {
		t.Errorf("status = %d, want %d", resp.StatusCode, http.StatusTemporaryRedirect)
	}

	var sessionCookie *http.Cookie
	for _, c := range resp.Cookies() {
		if c.Name == "session_id" {
			sessionCookie = c
		}
	}
	if sessionCookie == nil {
		t.Fatal("session_id cookie not set")
	}
	if sessionCookie.Value != "session-123" {
		t.Errorf("session cookie value = %q, want %q", sessionCookie.Value, "session-123")
	}
	if !sessionCookie.HttpOnly {
		t.Error("session cookie should be HttpOnly")
	}

	if location := resp.Header.Get("Location"); location != "http://localhost:3000" {
		t.Errorf("redirect location = %q, want %q", location, "http://localhost:3000")
	}
}

func TestAuthHandler_Callback_StateMismatch_Returns400(t *testing.T) {
	h := NewAuthHandler(&mockAuthService{}, testAuthConfig())

	req := httptest.NewRequest(http.MethodGet, "/auth/google/callback?code=auth-code&state=evil", nil)
	req.AddCookie(&http.Cookie{Name: "oauth_state", Value: "valid"})
	w := httptest.NewRecorder()

	h.Callback(w, req)

	if w.Result().StatusCode != http.StatusBadRequest {
		t.Errorf("status = %d, want %d", w.Result().StatusCode, http.StatusBadRequest)
	}
}

func TestAuthHandler_Callback_MissingCode_Returns400(t *testing.T) {
	h := NewAuthHandler(&mockAuthService{}, testAuthConfig())

	req := httptest.NewRequest(http.MethodGet, "/auth/google/callback?state=valid", nil)
	req.AddCookie(&http.Cookie{Name: "oauth_state", Value: "valid"})
	w := httptest.NewRecorder()

	h.Callback(w, req)

	if w.Result().StatusCode != http.StatusBadRequest {
		t.Errorf("status = %d, want %d", w.Result().StatusCode, http.StatusBadRequest)
	}
}

func TestAuthHandler_Callback_ServiceError_NoSessionCookie(t *testing.T) {
	svc := &mockAuthService{
		handleCallbackFn: func(ctx context.Context, code string) (*model.Session, *model.Profile, error) {
			return nil, nil, model.NewProfileSyncFailedError("store unavailable")
		},
	}
	h := NewAuthHandler(svc, testAuthConfig())

	req := httptest.NewRequest(http.MethodGet, "/auth/google/callback?code=auth-code&state=valid", nil)
	req.AddCookie(&http.Cookie{Name: "oauth_state", Value: "valid"})
	w := httptest.NewRecorder()

	h.Callback(w, req)

	resp := w.Result()
	if resp.StatusCode != http.StatusInternalServerError {
		t.Errorf("status = %d, want %d", resp.StatusCode, http.StatusInternalServerError)
	}

	for _, c := range resp.Cookies() {
		if c.Name == "session_id" {
			t.Error("session cookie should not be set when callback fails")
		}
	}
}

// --- Logout のテスト ---

func TestAuthHandler_Logout_ClearsSessionCookie(t *testing.T) {
	logoutCalled := false
	svc := &mockAuthService{
		logoutFn: func(ctx context.Context, sessionID string) error {
			logoutCalled = true
			if sessionID != "session-123" {
				t.Errorf("sessionID = %q, want %q", sessionID, "session-123")
			}
			return nil
		},
	}
	h := NewAuthHandler(svc, testAuthConfig())

	req := httptest.NewRequest(http.MethodPost, "/auth/logout", nil)
	req.AddCookie(&http.Cookie{Name: "session_id", Value: "session-123"})
	w := httptest.NewRecorder()

	h.Logout(w, req)

	if !logoutCalled {
		t.Error("Logout should be called on service")
	}

	var sessionCookie *http.Cookie
	for _, c := range w.Result().Cookies() {
		if c.Name == "session_id" {
			sessionCookie = c
		}
	}
	if sessionCookie == nil {
		t.Fatal("session cookie should be cleared")
	}
	if sessionCookie.MaxAge != -1 {
		t.Errorf("session cookie MaxAge = %d, want -1", sessionCookie.MaxAge)
	}
}

// --- Me のテスト ---

func TestAuthHandler_Me_NoCookie_ReturnsUnauthenticated(t *testing.T) {
	h := NewAuthHandler(&mockAuthService{}, testAuthConfig())

	req := httptest.NewRequest(http.MethodGet, "/auth/me", nil)
	w := httptest.NewRecorder()

	h.Me(w, req)

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
	if body.Profile != nil {
		t.Error("profile should be omitted when unauthenticated")
	}
}

func TestAuthHandler_Me_ApprovedProfile_ReturnsAuthorized(t *testing.T) {
	svc := &mockAuthService{
		currentSessionFn: func(ctx context.Context, sessionID string) (*model.Session, error) {
			return &model.Session{ID: sessionID, ProfileID: "profile-123"}, nil
		},
		currentProfileFn: func(ctx context.Context, sessionID string) (*model.Profile, error) {
			return &model.Profile{
				ID:     "profile-123",
				Email:  "user@example.com",
				Status: model.StatusApproved,
				Role:   model.RoleUser,
			}, nil
		},
	}
	h := NewAuthHandler(svc, testAuthConfig())

	req := httptest.NewRequest(http.MethodGet, "/auth/me", nil)
	req.AddCookie(&http.Cookie{Name: "session_id", Value: "session-123"})
	w := httptest.NewRecorder()

	h.Me(w, req)

	var body meResponse
	if err := json.NewDecoder(w.Result().Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if body.Decision != "authorized" {
		t.Errorf("decision = %q, want %q", body.Decision, "authorized")
	}
	if body.Profile == nil || body.Profile.ID != "profile-123" {
		t.Errorf("profile = %+v, want ID %q", body.Profile, "profile-123")
	}
}

func TestAuthHandler_Me_PendingProfile_ReturnsWaiting(t *testing.T) {
	svc := &mockAuthService{
		currentSessionFn: func(ctx context.Context, sessionID string) (*model.Session, error) {
			return &model.Session{ID: sessionID, ProfileID: "profile-123"}, nil
		},
		currentProfileFn: func(ctx context.Context, sessionID string) (*model.Profile, error) {
			return &model.Profile{ID: "profile-123", Status: model.StatusPending}, nil
		},
	}
	h := NewAuthHandler(svc, testAuthConfig())

	req := httptest.NewRequest(http.MethodGet, "/auth/me", nil)
	req.AddCookie(&http.Cookie{Name: "session_id", Value: "session-123"})
	w := httptest.NewRecorder()

	h.Me(w, req)

	var body meResponse
	if err := json.NewDecoder(w.Result().Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if body.Decision != "waiting" {
		t.Errorf("decision = %q, want %q", body.Decision, "waiting")
	}
}

func TestAuthHandler_Me_ProfileLoadError_ReturnsLoading(t *testing.T) {
	svc := &mockAuthService{
		currentSessionFn: func(ctx context.Context, sessionID string) (*model.Session, error) {
			return &model.Session{ID: sessionID, ProfileID: "profile-123"}, nil
		},
		currentProfileFn: func(ctx context.Context, sessionID string) (*model.Profile, error) {
			return nil, errors.New("store unavailable")
		},
	}
	h := NewAuthHandler(svc, testAuthConfig())

	req := httptest.NewRequest(http.MethodGet, "/auth/me", nil)
	req.AddCookie(&http.Cookie{Name: "session_id", Value: "session-123"})
	w := httptest.NewRecorder()

	h.Me(w, req)

	var body meResponse
	if err := json.NewDecoder(w.Result().Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if body.Decision != "loading" {
		t.Errorf("decision = %q, want %q", body.Decision, "loading")
	}
}

func TestAuthHandler_Me_SessionNotFound_ReturnsUnauthenticated(t *testing.T) {
	svc := &mockAuthService{
		currentSessionFn: func(ctx context.Context, sessionID string) (*model.Session, error) {
			return nil, nil
		},
	}
	h := NewAuthHandler(svc, testAuthConfig())

	req := httptest.NewRequest(http.MethodGet, "/auth/me", nil)
	req.AddCookie(&http.Cookie{Name: "session_id", Value: "expired-session"})
	w := httptest.NewRecorder()

	h.Me(w, req)

	var body meResponse
	if err := json.NewDecoder(w.Result().Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if body.Decision != "unauthenticated" {
		t.Errorf("decision = %q, want %q", body.Decision, "unauthenticated")
	}
}
