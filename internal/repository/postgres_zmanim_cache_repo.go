package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/hitoshi/minyanim/internal/zmanim"
)

// PostgresZmanimCacheRepo はPostgreSQLを使用したズマニームキャッシュ。
type PostgresZmanimCacheRepo struct {
	db  DBTX
	loc *time.Location
}

// NewPostgresZmanimCacheRepo はPostgresZmanimCacheRepoを生成する。
func NewPostgresZmanimCacheRepo(db DBTX, loc *time.Location) *PostgresZmanimCacheRepo {
	return &PostgresZmanimCacheRepo{db: db, loc: loc}
}

// Get は指定日のキャッシュを返す。キャッシュがない場合はnilを返す。
// 未知のズマン名の行は無視する。
func (r *PostgresZmanimCacheRepo) Get(ctx context.Context, date time.Time) (zmanim.Times, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT zman, at FROM zmanim_cache WHERE date = $1`,
		zmanim.DateKey(date),
	)
	if err != nil {
		return nil, fmt.Errorf("ズマニームキャッシュの取得に失敗しました: %w", err)
	}
	defer rows.Close()

	var times zmanim.Times
	for rows.Next() {
		var name string
		var at time.Time
		if err := rows.Scan(&name, &at); err != nil {
			return nil, fmt.Errorf("ズマニームキャッシュのスキャンに失敗しました: %w", err)
		}
		z, err := zmanim.ParseZman(name)
		if err != nil {
			continue
		}
		if times == nil {
			times = make(zmanim.Times)
		}
		times[z] = at.In(r.loc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("ズマニームキャッシュの読み取りに失敗しました: %w", err)
	}
	return times, nil
}

// Put は指定日のズマニームを保存する。既存の値は上書きする。
func (r *PostgresZmanimCacheRepo) Put(ctx context.Context, date time.Time, times zmanim.Times) error {
	key := zmanim.DateKey(date)
	for z, at := range times {
		_, err := r.db.ExecContext(ctx,
			`INSERT INTO zmanim_cache (date, zman, at) VALUES ($1, $2, $3)
			 ON CONFLICT (date, zman) DO UPDATE SET at = EXCLUDED.at`,
			key, string(z), at,
		)
		if err != nil {
			return fmt.Errorf("ズマニームキャッシュの保存に失敗しました: %w", err)
		}
	}
	return nil
}

// DeleteBefore はbeforeより前の日付のキャッシュを削除する。
func (r *PostgresZmanimCacheRepo) DeleteBefore(ctx context.Context, before time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM zmanim_cache WHERE date < $1`,
		zmanim.DateKey(before),
	)
	if err != nil {
		return 0, fmt.Errorf("古いズマニームキャッシュの削除に失敗しました: %w", err)
	}
	return res.RowsAffected()
}

var _ ZmanimCacheRepository = (*PostgresZmanimCacheRepo)(nil)
