package model

import "time"

// Session はユーザーのログインセッションを表す。
// DriveTokenはログイン時にIdPから取得した委任クレデンシャルで、
// ドキュメントバックエンドへのアップロードにのみ使用される。
// 書き込みは認証サービスのみが行い、エクスポートパイプラインは読み取り専用。
type Session struct {
	ID         string
	ProfileID  string
	DriveToken string
	ExpiresAt  time.Time
	CreatedAt  time.Time
}
