// Package auth はOAuth認証フロー、セッション管理を提供する。
package auth

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"log/slog"
	"time"

	"github.com/hitoshi/bullpen/internal/metrics"
	"github.com/hitoshi/bullpen/internal/model"
	"github.com/hitoshi/bullpen/internal/repository"
)

// OAuthResult はOAuthプロバイダーから取得した認証結果を表す。
// AccessTokenはドキュメントアップロードの委任クレデンシャル。
type OAuthResult struct {
	Identity    model.Identity
	AccessToken string
}

// OAuthProvider はOAuth認証プロバイダーのインターフェース。
type OAuthProvider interface {
	// GetLoginURL はOAuth認証URLを生成する。
	GetLoginURL(state string) string
	// ExchangeCode は認可コードをトークンに交換し、認証結果を取得する。
	ExchangeCode(ctx context.Context, code string) (*OAuthResult, error)
}

// ProfileSyncer はログイン時のプロフィール同期インターフェース。
// profile.Serviceの部分集合として定義する。
type ProfileSyncer interface {
	Sync(ctx context.Context, identity model.Identity) (*model.Profile, error)
	Get(ctx context.Context, id string) (*model.Profile, error)
}

// ServiceConfig は認証サービスの設定。
type ServiceConfig struct {
	SessionMaxAge int // セッション有効期間（秒）
}

// Service は認証に関するビジネスロジックを提供する。
type Service struct {
	oauth       OAuthProvider
	profiles    ProfileSyncer
	sessionRepo repository.SessionRepository
	collector   metrics.MetricsCollector
	config      ServiceConfig
}

// NewService はServiceを生成する。
func NewService(
	oauth OAuthProvider,
	profiles ProfileSyncer,
	sessionRepo repository.SessionRepository,
	collector metrics.MetricsCollector,
	config ServiceConfig,
) *Service {
	return &Service{
		oauth:       oauth,
		profiles:    profiles,
		sessionRepo: sessionRepo,
		collector:   collector,
		config:      config,
	}
}

// GetLoginURL はOAuth認証URLを生成する。
func (s *Service) GetLoginURL(state string) string {
	return s.oauth.GetLoginURL(state)
}

// HandleCallback はOAuthコールバックを処理し、セッションを発行する。
// プロフィール同期が完了してからセッションを作成する。
// 同期に失敗した場合はセッションを発行せずログイン失敗として扱う。
// 委任クレデンシャルはセッションレコードに保存され、ログアウトで破棄される。
func (s *Service) HandleCallback(ctx context.Context, code string) (*model.Session, *model.Profile, error) {
	// 1. 認可コードをトークンに交換し、ユーザー情報を取得
	result, err := s.oauth.ExchangeCode(ctx, code)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to exchange oauth code: %w", err)
	}

	// 2. プロフィール同期（作成または更新）。セッション発行より先に完了させる
	synced, err := s.profiles.Sync(ctx, result.Identity)
	if err != nil {
		s.collector.RecordSyncFailure()
		slog.Error("profile sync failed during login",
			slog.String("profile_id", result.Identity.ID),
			slog.String("error", err.Error()),
		)
		return nil, nil, fmt.Errorf("failed to sync profile: %w", err)
	}

	// 3. セッションを発行（委任クレデンシャル付き）
	session, err := s.createSession(ctx, synced.ID, result.AccessToken)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create session: %w", err)
	}

	s.collector.RecordLogin()
	slog.Info("user logged in",
		slog.String("profile_id", synced.ID),
		slog.String("status", string(synced.Status)),
		slog.Int("login_count", synced.LoginCount),
	)

	return session, synced, nil
}

// Logout はセッションを破棄する。委任クレデンシャルも同時に破棄される。
func (s *Service) Logout(ctx context.Context, sessionID string) error {
	if sessionID == "" {
		return fmt.Errorf("session ID is required")
	}

	if err := s.sessionRepo.DeleteByID(ctx, sessionID); err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}

	slog.Info("user logged out", slog.String("session_id", sessionID))
	return nil
}

// CurrentSession はセッションIDからセッションを解決する。
// 期限切れ・存在しないセッションはnilを返す。
func (s *Service) CurrentSession(ctx context.Context, sessionID string) (*model.Session, error) {
	if sessionID == "" {
		return nil, nil
	}
	session, err := s.sessionRepo.FindByID(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to find session: %w", err)
	}
	return session, nil
}

// CurrentProfile はセッションから現在のプロフィールを取得する。
func (s *Service) CurrentProfile(ctx context.Context, sessionID string) (*model.Profile, error) {
	session, err := s.CurrentSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if session == nil {
		return nil, fmt.Errorf("session not found or expired")
	}
	return s.profiles.Get(ctx, session.ProfileID)
}

// createSession はセッションを作成し永続化する。
func (s *Service) createSession(ctx context.Context, profileID, driveToken string) (*model.Session, error) {
	sessionID, err := generateSessionID()
	if err != nil {
		return nil, fmt.Errorf("failed to generate session ID: %w", err)
	}

	session := &model.Session{
		ID:         sessionID,
		ProfileID:  profileID,
		DriveToken: driveToken,
		ExpiresAt:  time.Now().Add(time.Duration(s.config.SessionMaxAge) * time.Second),
		CreatedAt:  time.Now(),
	}

	if err := s.sessionRepo.Create(ctx, session); err != nil {
		return nil, fmt.Errorf("failed to save session: %w", err)
	}

	return session, nil
}

// generateSessionID は暗号的に安全なセッションIDを生成する。
func generateSessionID() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
