package zmanim

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

// Store はズマニームのキャッシュ保存先。
type Store interface {
	// Get は指定日のキャッシュを返す。見つからない場合はnilを返す。
	Get(ctx context.Context, date time.Time) (Times, error)
	// Put は指定日のズマニームを保存する。
	Put(ctx context.Context, date time.Time, times Times) error
}

// CachingOracle はStoreを読み通しキャッシュとして使うOracle。
type CachingOracle struct {
	source Oracle
	store  Store
	logger *slog.Logger
}

// NewCachingOracle はCachingOracleを生成する。
func NewCachingOracle(source Oracle, store Store, logger *slog.Logger) *CachingOracle {
	return &CachingOracle{source: source, store: store, logger: logger}
}

// TimesFor はキャッシュにあればそれを返し、なければ取得元から取得して保存する。
// キャッシュの読み書きの失敗はログに記録し、取得元の結果を優先する。
func (o *CachingOracle) TimesFor(ctx context.Context, date time.Time) (Times, error) {
	cached, err := o.store.Get(ctx, date)
	if err != nil {
		o.logger.Warn("ズマニームキャッシュの読み込みに失敗しました",
			slog.String("date", DateKey(date)),
			slog.String("error", err.Error()),
		)
	} else if len(cached) > 0 {
		return cached, nil
	}

	times, err := o.source.TimesFor(ctx, date)
	if err != nil {
		return nil, fmt.Errorf("ズマニームの取得に失敗: %w", err)
	}

	if len(times) > 0 {
		if err := o.store.Put(ctx, date, times); err != nil {
			o.logger.Warn("ズマニームキャッシュの保存に失敗しました",
				slog.String("date", DateKey(date)),
				slog.String("error", err.Error()),
			)
		}
	}

	return times, nil
}

var _ Oracle = (*CachingOracle)(nil)
