package importer

import (
	"context"
	"log/slog"
	"time"

	"github.com/hitoshi/minyanim/internal/calendar"
	"github.com/hitoshi/minyanim/internal/model"
)

const (
	// defaultRetryAttempts は一時的な失敗に対する試行回数（初回を含む）。
	defaultRetryAttempts = 3
	// defaultRetryBackoff は指数バックオフの初回遅延。
	defaultRetryBackoff = time.Minute
	// maxRetryBackoff は指数バックオフの最大遅延。
	maxRetryBackoff = 15 * time.Minute
)

// CalculateBackoff は失敗回数に基づいて指数バックオフ遅延を計算する。
// 初回はinitial、2倍ずつ増加し、maxRetryBackoffで頭打ちになる。
func CalculateBackoff(initial time.Duration, failures int) time.Duration {
	delay := initial
	for i := 0; i < failures; i++ {
		delay *= 2
		if delay > maxRetryBackoff {
			return maxRetryBackoff
		}
	}
	return delay
}

// importWithRetry は1団体を取り込み、一時的な失敗であればバックオフを挟んで再試行する。
// 再試行できないエラーやコンテキストのキャンセルでは即座に戻る。
func (s *Scheduler) importWithRetry(ctx context.Context, orgID string) (*calendar.ImportResult, error) {
	var (
		result *calendar.ImportResult
		err    error
	)
	for attempt := 1; ; attempt++ {
		result, err = s.importer.ImportOrganization(ctx, orgID)
		if err == nil || !model.IsRetryable(err) || attempt >= s.cfg.RetryAttempts {
			return result, err
		}

		delay := CalculateBackoff(s.cfg.RetryBackoff, attempt-1)
		s.logger.Warn("一時的な失敗のため取り込みを再試行します",
			slog.String("organization_id", orgID),
			slog.Int("attempt", attempt),
			slog.Duration("backoff", delay),
			slog.String("error", err.Error()),
		)
		if waitErr := s.sleep(ctx, delay); waitErr != nil {
			return result, err
		}
	}
}

// sleepContext はdの経過かコンテキストのキャンセルまで待つ。
func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
