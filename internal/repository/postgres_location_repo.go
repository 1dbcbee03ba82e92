package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/hitoshi/minyanim/internal/model"
)

// PostgresLocationRepo はPostgreSQLを使用した礼拝場所リポジトリ。
type PostgresLocationRepo struct {
	db DBTX
}

// NewPostgresLocationRepo はPostgresLocationRepoを生成する。
func NewPostgresLocationRepo(db DBTX) *PostgresLocationRepo {
	return &PostgresLocationRepo{db: db}
}

// FindByID は指定IDの場所を取得する。見つからない場合はnilを返す。
func (r *PostgresLocationRepo) FindByID(ctx context.Context, id string) (*model.Location, error) {
	loc := &model.Location{}
	err := r.db.QueryRowContext(ctx,
		`SELECT id, organization_id, name FROM locations WHERE id = $1`,
		id,
	).Scan(&loc.ID, &loc.OrganizationID, &loc.Name)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("礼拝場所の取得に失敗しました: %w", err)
	}
	return loc, nil
}

// Upsert は場所を作成または更新する。
func (r *PostgresLocationRepo) Upsert(ctx context.Context, loc *model.Location) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO locations (id, organization_id, name) VALUES ($1, $2, $3)
		 ON CONFLICT (id) DO UPDATE SET organization_id = EXCLUDED.organization_id, name = EXCLUDED.name`,
		loc.ID, loc.OrganizationID, loc.Name,
	)
	if err != nil {
		return fmt.Errorf("礼拝場所の保存に失敗しました: %w", err)
	}
	return nil
}

var _ LocationRepository = (*PostgresLocationRepo)(nil)
