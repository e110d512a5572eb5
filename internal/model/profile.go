// Package model はドメインモデルを定義する。
package model

import "time"

// ProfileStatus はプロフィールの承認状態を表す。
type ProfileStatus string

const (
	// StatusPending は管理者の承認待ち状態。初回ログイン時のデフォルト。
	StatusPending ProfileStatus = "pending"
	// StatusApproved は承認済み状態。ダッシュボードへのアクセスが許可される。
	StatusApproved ProfileStatus = "approved"
	// StatusRejected は拒否された状態。承認待ちページに留まる。
	StatusRejected ProfileStatus = "rejected"
)

// Valid はProfileStatusが定義済みの値かどうかを判定する。
// ストアから読み込んだ値の検証に使用する。
func (s ProfileStatus) Valid() bool {
	switch s {
	case StatusPending, StatusApproved, StatusRejected:
		return true
	default:
		return false
	}
}

// ProfileRole はプロフィールの権限を表す。
type ProfileRole string

const (
	// RoleUser は一般ユーザー権限。
	RoleUser ProfileRole = "user"
	// RoleAdmin は管理者権限。管理コンソールへのアクセスが許可される。
	RoleAdmin ProfileRole = "admin"
)

// Valid はProfileRoleが定義済みの値かどうかを判定する。
func (r ProfileRole) Valid() bool {
	switch r {
	case RoleUser, RoleAdmin:
		return true
	default:
		return false
	}
}

// Profile はユーザーの承認状態・権限・ログイン履歴の永続レコードを表す。
// IDは外部IdP（Google）のユーザーIDと一致し、Identityごとに厳密に1件存在する。
type Profile struct {
	ID           string
	Email        string
	DisplayName  string
	PhotoURL     string
	Status       ProfileStatus
	Role         ProfileRole
	FirstLoginAt time.Time // 初回ログイン日時。作成後は不変。
	LastLoginAt  time.Time // 最終ログイン日時。ログイン同期ごとに更新。
	LoginCount   int       // ログイン回数。同期1回につき厳密に+1。
}

// Identity は外部IdPで認証されたユーザー情報を表す。
// このシステムは所有せず、読み取り専用の入力として扱う。
type Identity struct {
	ID          string // IdPのユーザーID（Googleのsub）
	Email       string
	DisplayName string
	PhotoURL    string
}
