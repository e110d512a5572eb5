package middleware

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/hitoshi/bullpen/internal/gate"
	"github.com/hitoshi/bullpen/internal/model"
)

// ProfileLoader はプロフィールの取得に必要なインターフェース。
// profile.Serviceの部分集合として定義する。
type ProfileLoader interface {
	Get(ctx context.Context, id string) (*model.Profile, error)
}

// profileContextKey はリクエストコンテキストにプロフィールを格納するためのキー。
var profileContextKey = contextKey("profile")

// NewRequireApprovedMiddleware はセッションのプロフィールを読み込み、
// 承認済み（authorized判定）の場合のみ後続ハンドラへ進めるミドルウェアを返す。
// 承認待ち・拒否済みには403を返す。取得済みプロフィールはコンテキストに注入する。
// セッションミドルウェアの後段に配置すること。
func NewRequireApprovedMiddleware(profiles ProfileLoader) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			session, err := SessionFromContext(r.Context())
			if err != nil {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}

			profile, err := profiles.Get(r.Context(), session.ProfileID)
			if err != nil {
				slog.Error("failed to load profile for authorization",
					slog.String("profile_id", session.ProfileID),
					slog.String("error", err.Error()),
				)
				WriteInternalServerError(w)
				return
			}

			if gate.Decide(true, profile.Status) != gate.DecisionAuthorized {
				WriteErrorResponse(w, http.StatusForbidden, model.NewApprovalRequiredError())
				return
			}

			ctx := context.WithValue(r.Context(), profileContextKey, profile)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// NewRequireAdminMiddleware は承認済みかつ管理者権限を持つ場合のみ
// 後続ハンドラへ進めるミドルウェアを返す。
// RequireApprovedミドルウェアの後段に配置すること。
func NewRequireAdminMiddleware() func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			profile, err := ProfileFromContext(r.Context())
			if err != nil {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}

			if profile.Role != model.RoleAdmin {
				WriteErrorResponse(w, http.StatusForbidden, model.NewAdminRequiredError())
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// ProfileFromContext はリクエストコンテキストから承認判定済みプロフィールを取得する。
// RequireApprovedミドルウェアを通過したリクエストでのみ有効。
func ProfileFromContext(ctx context.Context) (*model.Profile, error) {
	profile, ok := ctx.Value(profileContextKey).(*model.Profile)
	if !ok || profile == nil {
		return nil, fmt.Errorf("profile not found in context")
	}
	return profile, nil
}

// ContextWithProfile はコンテキストにプロフィールを注入する。テスト用。
func ContextWithProfile(ctx context.Context, profile *model.Profile) context.Context {
	return context.WithValue(ctx, profileContextKey, profile)
}
