package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/hitoshi/minyanim/internal/model"
)

const organizationColumns = `id, name, address, color, website_url, nusach,
	calendar_url, use_imported_calendar, created_at, updated_at`

// PostgresOrganizationRepo はPostgreSQLを使用した団体リポジトリ。
type PostgresOrganizationRepo struct {
	db DBTX
}

// NewPostgresOrganizationRepo はPostgresOrganizationRepoを生成する。
func NewPostgresOrganizationRepo(db DBTX) *PostgresOrganizationRepo {
	return &PostgresOrganizationRepo{db: db}
}

// FindByID は指定IDの団体を取得する。見つからない場合はnilを返す。
func (r *PostgresOrganizationRepo) FindByID(ctx context.Context, id string) (*model.Organization, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+organizationColumns+` FROM organizations WHERE id = $1`,
		id,
	)
	org, err := scanOrganization(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("団体の取得に失敗しました: %w", err)
	}
	return org, nil
}

// List は全団体を名前順で返す。
func (r *PostgresOrganizationRepo) List(ctx context.Context) ([]model.Organization, error) {
	return r.list(ctx, `SELECT `+organizationColumns+` FROM organizations ORDER BY name, id`)
}

// ListImportEnabled はカレンダー取り込みが有効な団体を返す。
func (r *PostgresOrganizationRepo) ListImportEnabled(ctx context.Context) ([]model.Organization, error) {
	return r.list(ctx,
		`SELECT `+organizationColumns+` FROM organizations
		 WHERE use_imported_calendar = true AND btrim(calendar_url) <> ''
		 ORDER BY id`,
	)
}

func (r *PostgresOrganizationRepo) list(ctx context.Context, query string) ([]model.Organization, error) {
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("団体一覧の取得に失敗しました: %w", err)
	}
	defer rows.Close()

	var orgs []model.Organization
	for rows.Next() {
		org, err := scanOrganization(rows)
		if err != nil {
			return nil, fmt.Errorf("団体のスキャンに失敗しました: %w", err)
		}
		orgs = append(orgs, *org)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("団体一覧の読み取りに失敗しました: %w", err)
	}
	return orgs, nil
}

// Upsert は団体を作成または更新する。
func (r *PostgresOrganizationRepo) Upsert(ctx context.Context, org *model.Organization) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO organizations (id, name, address, color, website_url, nusach,
		                            calendar_url, use_imported_calendar, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, now(), now())
		 ON CONFLICT (id) DO UPDATE SET
		    name = EXCLUDED.name, address = EXCLUDED.address, color = EXCLUDED.color,
		    website_url = EXCLUDED.website_url, nusach = EXCLUDED.nusach,
		    calendar_url = EXCLUDED.calendar_url,
		    use_imported_calendar = EXCLUDED.use_imported_calendar,
		    updated_at = now()`,
		org.ID, org.Name, org.Address, org.Color, org.WebsiteURL, string(org.Nusach),
		org.CalendarURL, org.UseImportedCalendar,
	)
	if err != nil {
		return fmt.Errorf("団体の保存に失敗しました: %w", err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanOrganization(s rowScanner) (*model.Organization, error) {
	org := &model.Organization{}
	var nusach string
	if err := s.Scan(
		&org.ID, &org.Name, &org.Address, &org.Color, &org.WebsiteURL, &nusach,
		&org.CalendarURL, &org.UseImportedCalendar, &org.CreatedAt, &org.UpdatedAt,
	); err != nil {
		return nil, err
	}
	org.Nusach = model.ParseNusach(nusach)
	return org, nil
}

var _ OrganizationRepository = (*PostgresOrganizationRepo)(nil)
