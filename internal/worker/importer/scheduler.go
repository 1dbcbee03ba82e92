// Package importer は団体カレンダーの定期取り込みを提供する。
// cron式に従って取り込みが有効な全団体を並列数を制限しながら取り込む。
package importer

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"golang.org/x/time/rate"

	"github.com/hitoshi/minyanim/internal/calendar"
	"github.com/hitoshi/minyanim/internal/model"
)

const (
	// DefaultCronSpec は毎週日曜2時。
	DefaultCronSpec       = "0 2 * * 0"
	defaultMaxConcurrency = 4
	defaultRunTimeout     = 30 * time.Minute
)

// OrganizationLister は取り込み対象の団体を列挙するインターフェース。
type OrganizationLister interface {
	ListImportEnabled(ctx context.Context) ([]model.Organization, error)
}

// OrganizationImporter は1団体の取り込みを行うインターフェース。
type OrganizationImporter interface {
	ImportOrganization(ctx context.Context, orgID string) (*calendar.ImportResult, error)
}

// Config はSchedulerの設定。
type Config struct {
	// CronSpec は5フィールドのcron式。空の場合はDefaultCronSpec。
	CronSpec string
	// MaxConcurrency は同時に取り込む団体数の上限。
	MaxConcurrency int
	// OrgInterval は団体の取り込み開始の最小間隔。0の場合は間隔を空けない。
	OrgInterval time.Duration
	// RunTimeout は1サイクル全体のタイムアウト。
	RunTimeout time.Duration
	// Location はcron式を解釈するタイムゾーン。
	Location *time.Location
	// RunOnStart がtrueの場合は起動直後に1回実行する。
	RunOnStart bool
	// RetryAttempts は一時的な失敗（429/5xx、接続失敗）に対する試行回数（初回を含む）。
	RetryAttempts int
	// RetryBackoff は再試行までの初回遅延。以降は2倍ずつ増える。
	RetryBackoff time.Duration
}

// Summary は1サイクルの取り込み結果の集計。
type Summary struct {
	Organizations int
	Succeeded     int
	Failed        int
	NewEntries    int
	Updated       int
	Duplicates    int
	Duration      time.Duration
}

// Scheduler は取り込みサイクルのスケジューリングと並列制御を行う。
type Scheduler struct {
	orgs     OrganizationLister
	importer OrganizationImporter
	cfg      Config
	limiter  *rate.Limiter
	logger   *slog.Logger
	sleep    func(ctx context.Context, d time.Duration) error
}

// NewScheduler はSchedulerを生成する。未設定の項目にはデフォルト値を使う。
func NewScheduler(orgs OrganizationLister, importer OrganizationImporter, cfg Config, logger *slog.Logger) *Scheduler {
	if cfg.CronSpec == "" {
		cfg.CronSpec = DefaultCronSpec
	}
	if cfg.MaxConcurrency <= 0 {
		cfg.MaxConcurrency = defaultMaxConcurrency
	}
	if cfg.RunTimeout <= 0 {
		cfg.RunTimeout = defaultRunTimeout
	}
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	if cfg.RetryAttempts <= 0 {
		cfg.RetryAttempts = defaultRetryAttempts
	}
	if cfg.RetryBackoff <= 0 {
		cfg.RetryBackoff = defaultRetryBackoff
	}
	limiter := rate.NewLimiter(rate.Inf, 1)
	if cfg.OrgInterval > 0 {
		limiter = rate.NewLimiter(rate.Every(cfg.OrgInterval), 1)
	}
	return &Scheduler{
		orgs:     orgs,
		importer: importer,
		cfg:      cfg,
		limiter:  limiter,
		logger:   logger,
		sleep:    sleepContext,
	}
}

// ValidateCronSpec は5フィールドのcron式として解析できるかどうかを検証する。
func ValidateCronSpec(spec string) error {
	if _, err := cron.ParseStandard(spec); err != nil {
		return fmt.Errorf("cron式の解析に失敗 (%q): %w", spec, err)
	}
	return nil
}

// Start はcron式に従って取り込みサイクルを起動する。
// コンテキストがキャンセルされると実行中のサイクルの終了を待って戻る。
func (s *Scheduler) Start(ctx context.Context) error {
	clog := &cronLogger{logger: s.logger}
	c := cron.New(
		cron.WithLocation(s.cfg.Location),
		cron.WithLogger(clog),
		cron.WithChain(cron.Recover(clog), cron.SkipIfStillRunning(clog)),
	)
	if _, err := c.AddFunc(s.cfg.CronSpec, func() { s.runCycle(ctx) }); err != nil {
		return fmt.Errorf("cron式の解析に失敗 (%q): %w", s.cfg.CronSpec, err)
	}

	s.logger.Info("取り込みスケジューラを開始しました",
		slog.String("cron", s.cfg.CronSpec),
		slog.Int("max_concurrency", s.cfg.MaxConcurrency),
		slog.Duration("org_interval", s.cfg.OrgInterval),
	)

	if s.cfg.RunOnStart {
		s.runCycle(ctx)
	}

	c.Start()
	<-ctx.Done()
	<-c.Stop().Done()

	s.logger.Info("取り込みスケジューラを停止しました")
	return nil
}

func (s *Scheduler) runCycle(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}
	runCtx, cancel := context.WithTimeout(ctx, s.cfg.RunTimeout)
	defer cancel()

	if _, err := s.RunOnce(runCtx); err != nil {
		s.logger.Error("取り込みサイクルの実行に失敗しました",
			slog.String("error", err.Error()),
		)
	}
}

// RunOnce は取り込み対象の団体を1回列挙し、並列で取り込む。
// 1団体の失敗はサイクルを中断しない。
func (s *Scheduler) RunOnce(ctx context.Context) (*Summary, error) {
	start := time.Now()

	orgs, err := s.orgs.ListImportEnabled(ctx)
	if err != nil {
		return nil, fmt.Errorf("取り込み対象の団体一覧の取得に失敗: %w", err)
	}

	summary := &Summary{Organizations: len(orgs)}
	if len(orgs) == 0 {
		s.logger.Info("取り込み対象の団体はありません")
		return summary, nil
	}

	s.logger.Info("取り込みサイクルを開始します",
		slog.Int("organization_count", len(orgs)),
	)

	sem := make(chan struct{}, s.cfg.MaxConcurrency)
	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		waitErr  error
		launched int
	)

	for i := range orgs {
		if err := s.limiter.Wait(ctx); err != nil {
			waitErr = fmt.Errorf("取り込みが中断されました: %w", err)
			break
		}
		wg.Add(1)
		sem <- struct{}{}
		launched++

		go func(org model.Organization) {
			defer wg.Done()
			defer func() { <-sem }()

			result, err := s.importWithRetry(ctx, org.ID)

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				summary.Failed++
				return
			}
			summary.Succeeded++
			if result != nil {
				summary.NewEntries += result.NewEntries
				summary.Updated += result.UpdatedEntries
				summary.Duplicates += result.DuplicatesSkipped
			}
		}(orgs[i])
	}

	wg.Wait()
	summary.Failed += len(orgs) - launched
	summary.Duration = time.Since(start)

	s.logger.Info("取り込みサイクルが完了しました",
		slog.Int("organization_count", summary.Organizations),
		slog.Int("succeeded", summary.Succeeded),
		slog.Int("failed", summary.Failed),
		slog.Int("new_entries", summary.NewEntries),
		slog.Int("updated_entries", summary.Updated),
		slog.Int("duplicates_skipped", summary.Duplicates),
		slog.Float64("duration_ms", float64(summary.Duration.Milliseconds())),
	)

	return summary, waitErr
}

// cronLogger はcron.Loggerをslogで実装する。
type cronLogger struct {
	logger *slog.Logger
}

func (l *cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.logger.Debug(msg, keysAndValues...)
}

func (l *cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	args := append([]interface{}{slog.String("error", err.Error())}, keysAndValues...)
	l.logger.Error(msg, args...)
}

var _ cron.Logger = (*cronLogger)(nil)
