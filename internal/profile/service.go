// Package profile はプロフィールの同期・一覧・承認状態変更のドメインロジックを提供する。
package profile

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/hitoshi/bullpen/internal/model"
	"github.com/hitoshi/bullpen/internal/repository"
)

// Notifier はプロフィール更新のライブ配信インターフェース。
// watch.Hubの部分集合として定義する。
type Notifier interface {
	Publish(profile model.Profile)
}

// SessionRevoker はプロフィールの全セッション失効インターフェース。
// repository.SessionRepositoryの部分集合として定義する。
type SessionRevoker interface {
	DeleteByProfileID(ctx context.Context, profileID string) error
}

// Service はプロフィール管理のサービス層。
type Service struct {
	repo        repository.ProfileRepository
	notifier    Notifier
	sessions    SessionRevoker
	adminEmails map[string]struct{}

	// now はテストで時刻を固定するために差し替え可能にする。
	now func() time.Time
}

// NewService はServiceを生成する。
// adminEmailsは管理者許可リスト。リストに含まれるメールアドレスのidentityは
// ログイン同期のたびにrole=admin / status=approvedが強制される。
// sessionsはrejected遷移時のセッション失効に使う。nilの場合は失効しない。
func NewService(repo repository.ProfileRepository, notifier Notifier, sessions SessionRevoker, adminEmails []string) *Service {
	emails := make(map[string]struct{}, len(adminEmails))
	for _, e := range adminEmails {
		e = strings.ToLower(strings.TrimSpace(e))
		if e != "" {
			emails[e] = struct{}{}
		}
	}
	return &Service{
		repo:        repo,
		notifier:    notifier,
		sessions:    sessions,
		adminEmails: emails,
		now:         time.Now,
	}
}

// IsAdminEmail はメールアドレスが管理者許可リストに含まれるかを判定する。
func (s *Service) IsAdminEmail(email string) bool {
	_, ok := s.adminEmails[strings.ToLower(email)]
	return ok
}

// Sync はログイン時のプロフィール同期を行う。
// 存在しなければデフォルト値で作成し、存在すれば非正規化フィールドの更新と
// login_countのインクリメントを行う。許可リスト所属のidentityには
// role=admin / status=approvedを強制する（保存値より許可リストが常に優先）。
// 同期後の確定レコードをライブ購読者に配信してから返す。
func (s *Service) Sync(ctx context.Context, identity model.Identity) (*model.Profile, error) {
	isAdmin := s.IsAdminEmail(identity.Email)
	now := s.now()

	existing, err := s.repo.FindByID(ctx, identity.ID)
	if err != nil {
		return nil, syncFailure(err)
	}

	if existing == nil {
		// 初回ログイン: デフォルト値で作成。first_login_atはここで確定する。
		status := model.StatusPending
		role := model.RoleUser
		if isAdmin {
			status = model.StatusApproved
			role = model.RoleAdmin
		}

		newProfile := &model.Profile{
			ID:           identity.ID,
			Email:        identity.Email,
			DisplayName:  identity.DisplayName,
			PhotoURL:     identity.PhotoURL,
			Status:       status,
			Role:         role,
			FirstLoginAt: now,
			LastLoginAt:  now,
			LoginCount:   1,
		}

		if err := s.repo.Create(ctx, newProfile); err != nil {
			return nil, syncFailure(err)
		}

		slog.Info("profile created",
			slog.String("profile_id", newProfile.ID),
			slog.String("status", string(newProfile.Status)),
			slog.String("role", string(newProfile.Role)),
		)

		s.notifier.Publish(*newProfile)
		return newProfile, nil
	}

	// 2回目以降のログイン: 非正規化フィールドの更新とlogin_count+1。
	// first_login_atは変更しない。
	update := repository.ProfileLoginUpdate{
		ID:          identity.ID,
		Email:       identity.Email,
		DisplayName: identity.DisplayName,
		PhotoURL:    identity.PhotoURL,
		LastLoginAt: now,
		ForceAdmin:  isAdmin,
	}
	if err := s.repo.UpdateLogin(ctx, update); err != nil {
		return nil, syncFailure(err)
	}

	// login_countはSQL側でインクリメントされるため、確定値を再読み込みする
	synced, err := s.repo.FindByID(ctx, identity.ID)
	if err != nil {
		return nil, syncFailure(err)
	}
	if synced == nil {
		return nil, syncFailure(fmt.Errorf("profile disappeared during sync: %s", identity.ID))
	}

	slog.Info("profile synced",
		slog.String("profile_id", synced.ID),
		slog.Int("login_count", synced.LoginCount),
	)

	s.notifier.Publish(*synced)
	return synced, nil
}

// Get は指定IDのプロフィールを取得する。見つからない場合はエラーを返す。
func (s *Service) Get(ctx context.Context, id string) (*model.Profile, error) {
	profile, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, syncFailure(err)
	}
	if profile == nil {
		return nil, model.NewProfileNotFoundError(id)
	}
	return profile, nil
}

// List は全プロフィールを返す。並び順:
// pending状態を先頭（安定ソート）、次に最終ログイン日時の降順。
// ログイン記録のないプロフィールは末尾に並ぶ。
func (s *Service) List(ctx context.Context) ([]*model.Profile, error) {
	profiles, err := s.repo.ListAll(ctx)
	if err != nil {
		return nil, syncFailure(err)
	}

	sort.SliceStable(profiles, func(i, j int) bool {
		pi, pj := profiles[i], profiles[j]
		iPending := pi.Status == model.StatusPending
		jPending := pj.Status == model.StatusPending
		if iPending != jPending {
			return iPending
		}
		return pi.LastLoginAt.After(pj.LastLoginAt)
	})

	return profiles, nil
}

// allowedTransitions は管理者が実行できる承認状態遷移。
// 自己サービスの遷移は存在しない。
var allowedTransitions = map[model.ProfileStatus][]model.ProfileStatus{
	model.StatusPending:  {model.StatusApproved, model.StatusRejected},
	model.StatusApproved: {model.StatusPending},
	model.StatusRejected: {model.StatusPending},
}

// SetStatus は承認状態を変更し、確定したプロフィールを返す。
// 管理者プロフィールはapprovedに固定されており変更できない。
// 許可されている遷移: pending→approved, pending→rejected,
// approved→pending, rejected→pending。
// 確定レコードはライブ購読者に配信され、承認待ち中のセッションは
// 再ログインなしでauthorizedに遷移する。
func (s *Service) SetStatus(ctx context.Context, id string, newStatus model.ProfileStatus) (*model.Profile, error) {
	target, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, syncFailure(err)
	}
	if target == nil {
		return nil, model.NewProfileNotFoundError(id)
	}

	if target.Role == model.RoleAdmin {
		return nil, model.NewAdminProfileLockedError()
	}

	if !transitionAllowed(target.Status, newStatus) {
		return nil, model.NewInvalidTransitionError(target.Status, newStatus)
	}

	if err := s.repo.UpdateStatus(ctx, id, newStatus); err != nil {
		return nil, syncFailure(err)
	}

	target.Status = newStatus

	// rejected遷移では対象ユーザーの全セッションを失効させる。
	// 状態遷移は確定済みのため、失効の失敗はログのみで伝播しない
	// （認可は毎リクエストでstatusを再評価する）。
	if newStatus == model.StatusRejected && s.sessions != nil {
		if err := s.sessions.DeleteByProfileID(ctx, id); err != nil {
			slog.Warn("failed to revoke sessions for rejected profile",
				slog.String("profile_id", id),
				slog.String("error", err.Error()),
			)
		}
	}

	slog.Info("profile status updated",
		slog.String("profile_id", id),
		slog.String("status", string(newStatus)),
	)

	s.notifier.Publish(*target)
	return target, nil
}

// transitionAllowed は承認状態の遷移が許可されているかを判定する。
func transitionAllowed(from, to model.ProfileStatus) bool {
	for _, allowed := range allowedTransitions[from] {
		if allowed == to {
			return true
		}
	}
	return false
}

// syncFailure はストア操作の失敗をProfileSyncFailureに変換する。
// 既にAPIError（検証エラー等）の場合はそのまま伝播する。
func syncFailure(err error) error {
	var apiErr *model.APIError
	if errors.As(err, &apiErr) {
		return apiErr
	}
	return model.NewProfileSyncFailedError(err.Error())
}
