// Package host はエージェントの選択状態と完了シグナルの処理を提供する。
// ユーザーごとに選択中エージェントを追跡し、完了シグナルまたは手動送信を
// 受けてエクスポートパイプラインを起動する。
package host

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/hitoshi/bullpen/internal/catalog"
	"github.com/hitoshi/bullpen/internal/export"
	"github.com/hitoshi/bullpen/internal/model"
)

// Exporter はエクスポートパイプラインのインターフェース。
// export.Pipelineの部分集合として定義する。
type Exporter interface {
	Export(ctx context.Context, token, title, markdown string) (*model.DocumentReference, error)
}

// engagement はユーザーの選択中エージェント。
type engagement struct {
	agent     model.Agent
	startedAt time.Time
}

// Service はエージェント選択とエクスポート起動のサービス層。
// 選択状態とエクスポートジョブはプロセス内のみで保持する（永続化しない）。
type Service struct {
	registry *catalog.Registry
	exporter Exporter
	logger   *slog.Logger

	mu          sync.Mutex
	engagements map[string]*engagement      // プロフィールID → 選択中エージェント
	jobs        map[string]*model.ExportJob // ジョブID → エクスポートジョブ
	latest      map[string]string           // プロフィールID → 直近に開始したジョブID
	inFlight    map[string]int              // プロフィールID → 実行中ジョブ数

	now func() time.Time
}

// NewService はServiceを生成する。
func NewService(registry *catalog.Registry, exporter Exporter, logger *slog.Logger) *Service {
	return &Service{
		registry:    registry,
		exporter:    exporter,
		logger:      logger,
		engagements: make(map[string]*engagement),
		jobs:        make(map[string]*model.ExportJob),
		latest:      make(map[string]string),
		inFlight:    make(map[string]int),
		now:         time.Now,
	}
}

// Engage は指定エージェントを選択状態にする。
// 既に別のエージェントを選択中の場合は置き換える。
func (s *Service) Engage(profileID, agentID string) (*model.Agent, error) {
	agent, err := s.registry.Find(agentID)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	s.engagements[profileID] = &engagement{agent: *agent, startedAt: s.now()}
	s.mu.Unlock()

	s.logger.Info("agent engaged",
		slog.String("profile_id", profileID),
		slog.String("agent_id", agentID),
	)
	return agent, nil
}

// Disengage は選択状態を解除してカタログ閲覧に戻す。
// 未選択の場合は何もしない。実行中のエクスポートには影響しない。
func (s *Service) Disengage(profileID string) {
	s.mu.Lock()
	delete(s.engagements, profileID)
	s.mu.Unlock()
}

// Current は選択中のエージェントを返す。未選択の場合はfalse。
func (s *Service) Current(profileID string) (*model.Agent, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.engagements[profileID]
	if !ok {
		return nil, false
	}
	agent := e.agent
	return &agent, true
}

// Complete はエージェントからの完了シグナルを処理する。
// 送信元エージェントIDが選択中エージェントと一致する場合のみ受理し、
// コンテンツをエクスポートする。タイトル未指定時は既定タイトルを合成する。
// 完了シグナルは1回ごとに独立したジョブを開始する。別のエクスポートが
// 実行中でも拒否しない（in-flightゲートは手動エクスポートのみ）。
func (s *Service) Complete(ctx context.Context, profileID, token, reportedAgentID, title, content string) (*model.ExportJob, error) {
	s.mu.Lock()
	e, engaged := s.engagements[profileID]
	if !engaged {
		s.mu.Unlock()
		return nil, model.NewNotEngagedError()
	}
	if e.agent.ID != reportedAgentID {
		s.mu.Unlock()
		s.logger.Warn("completion signal from non-engaged agent discarded",
			slog.String("profile_id", profileID),
			slog.String("reported_agent_id", reportedAgentID),
			slog.String("engaged_agent_id", e.agent.ID),
		)
		return nil, model.NewAgentMismatchError(reportedAgentID, e.agent.ID)
	}
	agentName := e.agent.Name
	s.mu.Unlock()

	if title == "" {
		title = export.DefaultTitle(agentName, s.now())
	}
	return s.runExport(ctx, profileID, token, title, content, false)
}

// ManualExport は貼り付けられたコンテンツの手動エクスポートを処理する。
// エージェント選択中のみ実行できる。タイトル未指定時は既定タイトルを合成する。
// 同一ユーザーのエクスポートが実行中の間は開始を拒否する。
func (s *Service) ManualExport(ctx context.Context, profileID, token, title, content string) (*model.ExportJob, error) {
	s.mu.Lock()
	e, engaged := s.engagements[profileID]
	if !engaged {
		s.mu.Unlock()
		return nil, model.NewNotEngagedError()
	}
	agentName := e.agent.Name
	s.mu.Unlock()

	if strings.TrimSpace(content) == "" {
		return nil, model.NewEmptyContentError()
	}
	if title == "" {
		title = export.DefaultTitle(agentName, s.now())
	}
	return s.runExport(ctx, profileID, token, title, content, true)
}

// LatestJob は直近に開始したエクスポートジョブを返す。ジョブがない場合はfalse。
func (s *Service) LatestJob(profileID string) (*model.ExportJob, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	job, ok := s.jobs[s.latest[profileID]]
	if !ok {
		return nil, false
	}
	copied := *job
	return &copied, true
}

// runExport はエクスポートジョブを開始し、完了まで実行して確定する。
// ジョブはそれぞれ独立して実行される。manualの場合のみ、同一ユーザーの
// 実行中ジョブがあると開始を拒否する。
func (s *Service) runExport(ctx context.Context, profileID, token, title, content string, manual bool) (*model.ExportJob, error) {
	s.mu.Lock()
	if manual && s.inFlight[profileID] > 0 {
		s.mu.Unlock()
		return nil, model.NewExportInFlightError()
	}
	job := &model.ExportJob{
		ID:        uuid.NewString(),
		Title:     title,
		Status:    model.ExportJobInFlight,
		StartedAt: s.now(),
	}
	s.jobs[job.ID] = job
	s.latest[profileID] = job.ID
	s.inFlight[profileID]++
	s.mu.Unlock()

	ref, err := s.exporter.Export(ctx, token, title, content)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.inFlight[profileID]--
	if s.inFlight[profileID] == 0 {
		delete(s.inFlight, profileID)
	}
	// 後続ジョブに追い越された場合は記録を残さない（保持するのは直近1件のみ）
	if s.latest[profileID] != job.ID {
		delete(s.jobs, job.ID)
	}
	job.FinishedAt = s.now()
	if err != nil {
		job.Status = model.ExportJobFailed
		job.Reason = err.Error()
		copied := *job
		return &copied, err
	}
	job.Status = model.ExportJobSucceeded
	job.DocumentID = ref.ID
	copied := *job
	return &copied, nil
}
