// Package cleanup は古いデータの自動削除ジョブを提供する。
// 保持期間を超過した取り込み項目とズマンのキャッシュを日次バッチで削除する。
package cleanup

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"
)

const (
	// DefaultEntryRetentionDays は取り込み項目の保持日数のデフォルト値。
	DefaultEntryRetentionDays = 30
	// DefaultZmanimRetentionDays はズマンのキャッシュの保持日数のデフォルト値。
	DefaultZmanimRetentionDays = 14
)

// EntryDeleter は取り込み項目を日付で削除するインターフェース。
type EntryDeleter interface {
	DeleteAllBefore(ctx context.Context, before time.Time) (int64, error)
}

// CacheDeleter はズマンのキャッシュを日付で削除するインターフェース。
type CacheDeleter interface {
	DeleteBefore(ctx context.Context, before time.Time) (int64, error)
}

// Recorder は削除件数をメトリクスに記録するインターフェース。
type Recorder interface {
	RecordCleanup(table string, deleted int64)
}

// CleanupJob は保持期間を超過したデータの自動削除ジョブ。
// 冪等な削除処理で、何度実行しても結果は変わらない。
type CleanupJob struct {
	entries  EntryDeleter
	cache    CacheDeleter
	recorder Recorder
	location *time.Location
	logger   *slog.Logger
	now      func() time.Time

	EntryRetentionDays  int // 取り込み項目の保持日数
	ZmanimRetentionDays int // ズマンのキャッシュの保持日数
}

// NewCleanupJob は新しいCleanupJobを生成する。recorderはnilでもよい。
// locは保持期間の基準となる暦日のタイムゾーン。
func NewCleanupJob(entries EntryDeleter, cache CacheDeleter, recorder Recorder, loc *time.Location, logger *slog.Logger) *CleanupJob {
	if loc == nil {
		loc = time.UTC
	}
	return &CleanupJob{
		entries:             entries,
		cache:               cache,
		recorder:            recorder,
		location:            loc,
		logger:              logger,
		now:                 time.Now,
		EntryRetentionDays:  DefaultEntryRetentionDays,
		ZmanimRetentionDays: DefaultZmanimRetentionDays,
	}
}

// Start は起動直後に1回、その後interval間隔でRunを実行する。
// コンテキストがキャンセルされるまで実行を継続する。
func (j *CleanupJob) Start(ctx context.Context, interval time.Duration) {
	j.runAndLog(ctx)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			j.runAndLog(ctx)
		}
	}
}

func (j *CleanupJob) runAndLog(ctx context.Context) {
	if err := j.Run(ctx); err != nil {
		j.logger.Error("クリーンアップジョブの実行に失敗しました", slog.String("error", err.Error()))
	}
}

// Run は保持期間を超過した取り込み項目とズマンのキャッシュを削除する。
// 一方の削除に失敗しても、もう一方は実行する。
func (j *CleanupJob) Run(ctx context.Context) error {
	today := j.today()

	errEntries := j.delete(ctx, "calendar_entries", j.EntryRetentionDays, today, j.entries.DeleteAllBefore)
	errCache := j.delete(ctx, "zmanim_cache", j.ZmanimRetentionDays, today, j.cache.DeleteBefore)
	return errors.Join(errEntries, errCache)
}

func (j *CleanupJob) delete(
	ctx context.Context,
	table string,
	retentionDays int,
	today time.Time,
	fn func(ctx context.Context, before time.Time) (int64, error),
) error {
	start := time.Now()
	before := today.AddDate(0, 0, -retentionDays)

	deleted, err := fn(ctx, before)
	if err != nil {
		j.logger.Error("クリーンアップに失敗しました",
			slog.String("table", table),
			slog.Int("retention_days", retentionDays),
			slog.String("error", err.Error()),
		)
		return fmt.Errorf("%sのクリーンアップに失敗: %w", table, err)
	}

	if j.recorder != nil {
		j.recorder.RecordCleanup(table, deleted)
	}
	j.logger.Info("クリーンアップが完了しました",
		slog.String("table", table),
		slog.Int64("deleted_count", deleted),
		slog.Int("retention_days", retentionDays),
		slog.String("before", before.Format("2006-01-02")),
		slog.Float64("duration_ms", float64(time.Since(start).Milliseconds())),
	)
	return nil
}

func (j *CleanupJob) today() time.Time {
	y, m, d := j.now().In(j.location).Date()
	return time.Date(y, m, d, 0, 0, 0, 0, j.location)
}
