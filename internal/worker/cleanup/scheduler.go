// Package cleanup は期限切れセッションのバックグラウンド削除を提供する。
// 期限切れセッションはFindByIDでは読めないが、委任クレデンシャルを含む
// レコードが残り続けるため、定期的にストアから物理削除する。
package cleanup

import (
	"context"
	"log/slog"
	"time"
)

// SessionCleaner は期限切れセッション削除のインターフェース。
// repository.SessionRepositoryの部分集合として定義する。
type SessionCleaner interface {
	// DeleteExpired は期限切れの全セッションを削除し、削除件数を返す。
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}

// Scheduler はセッションクリーンアップのスケジューリングを行う。
type Scheduler struct {
	sessions SessionCleaner
	logger   *slog.Logger
	now      func() time.Time
}

// NewScheduler はSchedulerの新しいインスタンスを生成する。
func NewScheduler(sessions SessionCleaner, logger *slog.Logger) *Scheduler {
	return &Scheduler{
		sessions: sessions,
		logger:   logger,
		now:      time.Now,
	}
}

// Start は指定間隔のティッカーでスケジューラを起動する。
// コンテキストがキャンセルされるまで実行を継続する。
func (s *Scheduler) Start(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	s.logger.Info("session cleanup scheduler started",
		slog.Duration("interval", interval),
	)

	// 起動直後に1回実行
	if err := s.RunOnce(ctx); err != nil {
		s.logger.Error("session cleanup failed",
			slog.String("error", err.Error()),
		)
	}

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("session cleanup scheduler stopped")
			return
		case <-ticker.C:
			if err := s.RunOnce(ctx); err != nil {
				s.logger.Error("session cleanup failed",
					slog.String("error", err.Error()),
				)
			}
		}
	}
}

// RunOnce は期限切れセッションを1回削除する。
func (s *Scheduler) RunOnce(ctx context.Context) error {
	start := s.now()

	deleted, err := s.sessions.DeleteExpired(ctx, start)
	if err != nil {
		return err
	}

	if deleted > 0 {
		s.logger.Info("expired sessions deleted",
			slog.Int64("deleted", deleted),
			slog.Duration("elapsed", time.Since(start)),
		)
	}
	return nil
}
