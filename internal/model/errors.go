// Package model はドメインモデルを定義する。
package model

import "fmt"

// APIError は統一エラーフォーマットを表す。
// UIに表示する原因カテゴリと対処方法を含む。
type APIError struct {
	Code     string // エラーコード
	Message  string // エラーメッセージ
	Category string // カテゴリ: auth, validation, export, profile, system
	Action   string // ユーザー向け対処方法
}

// Error はerrorインターフェースを実装する。
func (e *APIError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// 定義済みエラーコード
const (
	ErrCodeProfileNotFound     = "PROFILE_NOT_FOUND"
	ErrCodeProfileInvalid      = "PROFILE_INVALID"
	ErrCodeProfileSyncFailed   = "PROFILE_SYNC_FAILED"
	ErrCodeInvalidTransition   = "INVALID_STATUS_TRANSITION"
	ErrCodeAdminProfileLocked  = "ADMIN_PROFILE_LOCKED"
	ErrCodeAgentNotFound       = "AGENT_NOT_FOUND"
	ErrCodeNotEngaged          = "NOT_ENGAGED"
	ErrCodeAgentMismatch       = "AGENT_MISMATCH"
	ErrCodeEmptyContent        = "EMPTY_CONTENT"
	ErrCodeExportInFlight      = "EXPORT_IN_FLIGHT"
	ErrCodeExportNoCredential  = "EXPORT_NO_CREDENTIAL"
	ErrCodeExportRejected      = "EXPORT_REJECTED"
	ErrCodeExportNetwork       = "EXPORT_NETWORK"
	ErrCodeApprovalRequired    = "APPROVAL_REQUIRED"
	ErrCodeAdminRequired       = "ADMIN_REQUIRED"
)

// NewProfileNotFoundError はプロフィールが見つからない場合のエラーを生成する。
func NewProfileNotFoundError(id string) *APIError {
	return &APIError{
		Code:     ErrCodeProfileNotFound,
		Message:  fmt.Sprintf("指定されたプロフィールが見つかりません: %s", id),
		Category: "profile",
		Action:   "プロフィールIDを確認してください。",
	}
}

// NewProfileInvalidError はストアから読み込んだプロフィールが
// スキーマ検証に失敗した場合のエラーを生成する。
// 欠損・不正なフィールドは信頼せず、同期失敗として扱う。
func NewProfileInvalidError(id, reason string) *APIError {
	return &APIError{
		Code:     ErrCodeProfileInvalid,
		Message:  fmt.Sprintf("プロフィールレコードが不正です（%s）: %s", id, reason),
		Category: "profile",
		Action:   "再度ログインしてください。解消しない場合は管理者に連絡してください。",
	}
}

// NewProfileSyncFailedError はプロフィール同期の失敗エラーを生成する。
func NewProfileSyncFailedError(reason string) *APIError {
	return &APIError{
		Code:     ErrCodeProfileSyncFailed,
		Message:  fmt.Sprintf("プロフィールの同期に失敗しました: %s", reason),
		Category: "profile",
		Action:   "しばらく待ってから再度ログインしてください。",
	}
}

// NewInvalidTransitionError は許可されていない承認状態遷移のエラーを生成する。
func NewInvalidTransitionError(from, to ProfileStatus) *APIError {
	return &APIError{
		Code:     ErrCodeInvalidTransition,
		Message:  fmt.Sprintf("許可されていない状態遷移です: %s → %s", from, to),
		Category: "validation",
		Action:   "承認待ちへの差し戻しか、承認待ちからの承認・拒否のみ実行できます。",
	}
}

// NewAdminProfileLockedError は管理者プロフィールへの状態変更エラーを生成する。
// 管理者は常にapprovedに固定され、状態変更の対象外。
func NewAdminProfileLockedError() *APIError {
	return &APIError{
		Code:     ErrCodeAdminProfileLocked,
		Message:  "管理者プロフィールの承認状態は変更できません。",
		Category: "validation",
		Action:   "一般ユーザーのプロフィールを選択してください。",
	}
}

// NewAgentNotFoundError はエージェントが見つからない場合のエラーを生成する。
func NewAgentNotFoundError(agentID string) *APIError {
	return &APIError{
		Code:     ErrCodeAgentNotFound,
		Message:  fmt.Sprintf("指定されたエージェントが見つかりません: %s", agentID),
		Category: "validation",
		Action:   "エージェントIDを確認してください。",
	}
}

// NewNotEngagedError はエージェント未選択状態での完了シグナルエラーを生成する。
func NewNotEngagedError() *APIError {
	return &APIError{
		Code:     ErrCodeNotEngaged,
		Message:  "エージェントが選択されていません。",
		Category: "validation",
		Action:   "エージェントを選択してから再度お試しください。",
	}
}

// NewAgentMismatchError は選択中でないエージェントからの完了シグナルエラーを生成する。
func NewAgentMismatchError(reported, engaged string) *APIError {
	return &APIError{
		Code:     ErrCodeAgentMismatch,
		Message:  fmt.Sprintf("完了シグナルの送信元が選択中のエージェントと一致しません: %s（選択中: %s）", reported, engaged),
		Category: "validation",
		Action:   "選択中のエージェントからの結果のみ保存できます。",
	}
}

// NewEmptyContentError は空コンテンツの手動エクスポートエラーを生成する。
func NewEmptyContentError() *APIError {
	return &APIError{
		Code:     ErrCodeEmptyContent,
		Message:  "エクスポートするコンテンツが空です。",
		Category: "validation",
		Action:   "Markdownコンテンツを入力してください。",
	}
}

// NewExportInFlightError はエクスポート実行中の多重送信エラーを生成する。
func NewExportInFlightError() *APIError {
	return &APIError{
		Code:     ErrCodeExportInFlight,
		Message:  "別のエクスポートが実行中です。",
		Category: "export",
		Action:   "実行中のエクスポートが完了してから再度お試しください。",
	}
}

// NewExportNoCredentialError は委任クレデンシャル欠如のエラーを生成する。
// 一般的な失敗ではなく、再ログインで解消できるユーザー対処可能なエラー。
func NewExportNoCredentialError() *APIError {
	return &APIError{
		Code:     ErrCodeExportNoCredential,
		Message:  "ドキュメント保存用のアクセス権限がありません。",
		Category: "auth",
		Action:   "再度ログインして、ドキュメントへのアクセスを許可してください。",
	}
}

// NewExportRejectedError はバックエンドがアップロードを拒否した場合のエラーを生成する。
// バックエンドの構造化エラーメッセージがあればそれを、なければ生のステータスを含める。
func NewExportRejectedError(reason string) *APIError {
	return &APIError{
		Code:     ErrCodeExportRejected,
		Message:  fmt.Sprintf("ドキュメントの作成が拒否されました: %s", reason),
		Category: "export",
		Action:   "再度ログインしてから、もう一度エクスポートしてください。",
	}
}

// NewExportNetworkError はアップロードの通信エラーを生成する。
func NewExportNetworkError(reason string) *APIError {
	return &APIError{
		Code:     ErrCodeExportNetwork,
		Message:  fmt.Sprintf("ドキュメントバックエンドへの接続に失敗しました: %s", reason),
		Category: "export",
		Action:   "ネットワーク接続を確認し、しばらく待ってから再度お試しください。",
	}
}

// NewApprovalRequiredError は未承認ユーザーのアクセス拒否を生成する。
// エラーではなくルーティング結果だが、APIとしては統一フォーマットで返す。
func NewApprovalRequiredError() *APIError {
	return &APIError{
		Code:     ErrCodeApprovalRequired,
		Message:  "アカウントは管理者の承認待ちです。",
		Category: "auth",
		Action:   "承認されるまでお待ちください。",
	}
}

// NewAdminRequiredError は管理者権限不足のアクセス拒否を生成する。
func NewAdminRequiredError() *APIError {
	return &APIError{
		Code:     ErrCodeAdminRequired,
		Message:  "管理者権限が必要です。",
		Category: "auth",
		Action:   "管理者アカウントでログインしてください。",
	}
}
