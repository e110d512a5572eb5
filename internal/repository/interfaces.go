// Package repository はデータ永続化のインターフェースを定義する。
package repository

import (
	"context"
	"time"

	"github.com/hitoshi/bullpen/internal/model"
)

// ProfileLoginUpdate はログイン同期時のプロフィール更新内容を表す。
// 非正規化フィールドの更新とlogin_countのインクリメントを1回の書き込みで行う。
type ProfileLoginUpdate struct {
	ID          string
	Email       string
	DisplayName string
	PhotoURL    string
	LastLoginAt time.Time

	// ForceAdmin が真の場合、role=admin / status=approved を強制する。
	// 管理者許可リストの自己修復（保存値より許可リストが常に優先）に使用する。
	ForceAdmin bool
}

// ProfileRepository はプロフィールデータの永続化インターフェース。
// 読み取り時にはスキーマ検証を行い、不正なレコードはエラーとして返す。
type ProfileRepository interface {
	// FindByID は指定IDのプロフィールを取得する。見つからない場合はnilを返す。
	// status/roleが定義外の値の場合は検証エラーを返す。
	FindByID(ctx context.Context, id string) (*model.Profile, error)

	// Create はプロフィールを新規作成する。first_login_atはこの時点で確定し、
	// 以後変更されない。
	Create(ctx context.Context, profile *model.Profile) error

	// UpdateLogin はログイン同期の更新を適用する。
	// 非正規化フィールドとlast_login_atを更新し、login_countを厳密に+1する。
	// first_login_atは変更しない。対象が存在しない場合はエラーを返す。
	UpdateLogin(ctx context.Context, update ProfileLoginUpdate) error

	// UpdateStatus は承認状態のみを更新する。対象が存在しない場合はエラーを返す。
	UpdateStatus(ctx context.Context, id string, status model.ProfileStatus) error

	// ListAll は全プロフィールを返す。並び順は呼び出し元が決める。
	ListAll(ctx context.Context) ([]*model.Profile, error)
}

// SessionRepository はセッションデータの永続化インターフェース。
type SessionRepository interface {
	// Create はセッションを作成する。
	Create(ctx context.Context, session *model.Session) error
	// FindByID は指定IDのセッションを取得する。期限切れの場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.Session, error)
	// DeleteByID は指定IDのセッションを削除する。
	DeleteByID(ctx context.Context, id string) error
	// DeleteByProfileID は指定プロフィールの全セッションを削除する。
	DeleteByProfileID(ctx context.Context, profileID string) error
	// DeleteExpired は期限切れの全セッションを削除し、削除件数を返す。
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}
