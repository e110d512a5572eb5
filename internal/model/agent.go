package model

import "time"

// Agent は外部ホストされたエージェントの静的な記述子を表す。
// ライフサイクルは持たず、カタログに組み込みで定義される。
type Agent struct {
	ID          string
	Name        string
	Description string
	EmbedURL    string
	Icon        string
	Group       string // 表示用のグループ名
}

// ExportJobStatus はエクスポートジョブの状態を表す。
type ExportJobStatus string

const (
	// ExportJobInFlight はアップロードリクエストが進行中の状態。
	ExportJobInFlight ExportJobStatus = "in_flight"
	// ExportJobSucceeded はドキュメント作成に成功した終端状態。
	ExportJobSucceeded ExportJobStatus = "succeeded"
	// ExportJobFailed は失敗理由付きの終端状態。
	ExportJobFailed ExportJobStatus = "failed"
)

// ExportJob は1回のエクスポート試行を表す。永続化はしない。
// 完了シグナル受信または手動送信で作成され、成功・失敗で終端する。
type ExportJob struct {
	ID         string
	Title      string
	Status     ExportJobStatus
	Reason     string // Status=failedの場合の失敗理由
	DocumentID string // Status=succeededの場合のバックエンド採番ID
	StartedAt  time.Time
	FinishedAt time.Time
}

// DocumentReference はアップロード成功時にバックエンドが返すドキュメント参照。
type DocumentReference struct {
	ID   string
	Name string
}
