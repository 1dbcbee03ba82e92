package provider

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/hitoshi/minyanim/internal/model"
)

// ResolutionRecorder は選択された提供元をメトリクスに記録するインターフェース。
type ResolutionRecorder interface {
	RecordResolution(provider string, events int, duration time.Duration)
}

// Resolver は優先度順の提供元から、日付ごとに最初に扱える提供元を選んで礼拝一覧を返す。
// 提供元の順序は生成時に一度だけ決まり、以後変更しない。
type Resolver struct {
	orgs      OrganizationReader
	providers []Provider
	recorder  ResolutionRecorder
	logger    *slog.Logger
}

// NewResolver はResolverを生成する。providersは優先度の降順に安定ソートする。recorderはnilでもよい。
func NewResolver(orgs OrganizationReader, recorder ResolutionRecorder, logger *slog.Logger, providers ...Provider) *Resolver {
	sorted := make([]Provider, len(providers))
	copy(sorted, providers)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Priority() > sorted[j].Priority()
	})
	return &Resolver{
		orgs:      orgs,
		providers: sorted,
		recorder:  recorder,
		logger:    logger,
	}
}

// Providers は優先度順の提供元名を返す。
func (r *Resolver) Providers() []string {
	names := make([]string, len(r.providers))
	for i, p := range r.providers {
		names[i] = p.Name()
	}
	return names
}

// EventsForDate は団体のdateの礼拝を開始時刻の昇順で返す。
// 団体が存在しない場合や扱える提供元がない場合は空のスライスを返す。
// 取り込みの提供元が0件を返した日は、次の提供元の結果を使う。
func (r *Resolver) EventsForDate(ctx context.Context, orgID string, date time.Time) ([]model.MinyanEvent, error) {
	start := time.Now()

	org, err := r.orgs.FindByID(ctx, orgID)
	if err != nil {
		return nil, fmt.Errorf("団体の取得に失敗: %w", err)
	}
	if org == nil {
		r.logger.Warn("団体が見つかりません",
			slog.String("organization_id", orgID),
		)
		return []model.MinyanEvent{}, nil
	}

	for _, p := range r.providers {
		if !p.CanHandle(ctx, org) {
			continue
		}
		events, err := p.EventsForDate(ctx, org, date)
		if err != nil {
			return nil, fmt.Errorf("%sからの礼拝一覧の取得に失敗: %w", p.Name(), err)
		}
		if len(events) == 0 && p.FallbackOnEmpty() {
			r.logger.Debug("提供元の結果が0件のため次の提供元を使用します",
				slog.String("organization_id", orgID),
				slog.String("provider", p.Name()),
				slog.String("date", date.Format("2006-01-02")),
			)
			continue
		}

		sort.SliceStable(events, func(i, j int) bool {
			return events[i].StartTime.Before(events[j].StartTime)
		})
		if r.recorder != nil {
			r.recorder.RecordResolution(p.Name(), len(events), time.Since(start))
		}
		return events, nil
	}

	r.logger.Warn("団体を扱える提供元がありません",
		slog.String("organization_id", orgID),
		slog.String("date", date.Format("2006-01-02")),
	)
	return []model.MinyanEvent{}, nil
}
