package seed

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/hitoshi/minyanim/internal/model"
	"github.com/hitoshi/minyanim/internal/repository"
)

// OrganizationWriter は団体の登録インターフェース。
type OrganizationWriter interface {
	Upsert(ctx context.Context, org *model.Organization) error
}

// LocationWriter は礼拝場所の登録インターフェース。
type LocationWriter interface {
	Upsert(ctx context.Context, loc *model.Location) error
}

// MinyanWriter は定例礼拝の登録インターフェース。
type MinyanWriter interface {
	Upsert(ctx context.Context, m *model.Minyan) error
}

// Stores はシード投入先のリポジトリ一式。
type Stores struct {
	Organizations OrganizationWriter
	Locations     LocationWriter
	Minyanim      MinyanWriter
}

// Result は投入件数の集計。
type Result struct {
	Organizations int
	Locations     int
	Minyanim      int
}

// Apply は検証済みのシードを団体→礼拝場所→定例礼拝の順に登録する。
// 最初のエラーで中断する。
func Apply(ctx context.Context, stores Stores, f *File, now time.Time) (*Result, error) {
	result := &Result{}
	for i := range f.Organizations {
		spec := &f.Organizations[i]

		org := toOrganization(spec, now)
		if err := stores.Organizations.Upsert(ctx, org); err != nil {
			return result, fmt.Errorf("団体の登録に失敗 (%s): %w", spec.ID, err)
		}
		result.Organizations++

		for _, l := range spec.Locations {
			loc := &model.Location{ID: l.ID, OrganizationID: spec.ID, Name: l.Name}
			if err := stores.Locations.Upsert(ctx, loc); err != nil {
				return result, fmt.Errorf("礼拝場所の登録に失敗 (%s): %w", l.ID, err)
			}
			result.Locations++
		}

		for j := range spec.Minyanim {
			m, err := toMinyan(spec, &spec.Minyanim[j])
			if err != nil {
				return result, err
			}
			if err := stores.Minyanim.Upsert(ctx, m); err != nil {
				return result, fmt.Errorf("定例礼拝の登録に失敗 (%s): %w", m.ID, err)
			}
			result.Minyanim++
		}
	}
	return result, nil
}

func toOrganization(spec *Organization, now time.Time) *model.Organization {
	return &model.Organization{
		ID:                  spec.ID,
		Name:                spec.Name,
		Address:             spec.Address,
		Color:               spec.Color,
		WebsiteURL:          spec.WebsiteURL,
		Nusach:              model.ParseNusach(spec.Nusach),
		CalendarURL:         spec.CalendarURL,
		UseImportedCalendar: spec.UseImportedCalendar,
		CreatedAt:           now,
		UpdatedAt:           now,
	}
}

// toMinyan は定義を定例礼拝に変換する。流儀の指定がない場合は団体の流儀を使う。
func toMinyan(org *Organization, spec *Minyan) (*model.Minyan, error) {
	sched, err := buildSchedule(spec.Schedule)
	if err != nil {
		return nil, fmt.Errorf("定例礼拝 %s の時刻表が不正です: %w", spec.ID, err)
	}
	nusach := spec.Nusach
	if nusach == "" {
		nusach = org.Nusach
	}
	enabled := true
	if spec.Enabled != nil {
		enabled = *spec.Enabled
	}
	return &model.Minyan{
		ID:             spec.ID,
		OrganizationID: org.ID,
		LocationID:     spec.LocationID,
		Type:           model.ParseMinyanType(spec.Type),
		Schedule:       sched,
		Nusach:         model.ParseNusach(nusach),
		Enabled:        enabled,
		Notes:          spec.Notes,
		Whatsapp:       spec.Whatsapp,
	}, nil
}

// Seeder はシードを1トランザクションでPostgreSQLに投入する。
type Seeder struct {
	db     repository.TxBeginner
	logger *slog.Logger
	now    func() time.Time
}

// NewSeeder はSeederを生成する。
func NewSeeder(db repository.TxBeginner, logger *slog.Logger) *Seeder {
	return &Seeder{db: db, logger: logger, now: time.Now}
}

// Run はシードを投入する。いずれかの登録に失敗した場合は全体をロールバックする。
func (s *Seeder) Run(ctx context.Context, f *File) (*Result, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("トランザクションの開始に失敗: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	stores := Stores{
		Organizations: repository.NewPostgresOrganizationRepo(tx),
		Locations:     repository.NewPostgresLocationRepo(tx),
		Minyanim:      repository.NewPostgresMinyanRepo(tx, s.logger),
	}
	result, err := Apply(ctx, stores, f, s.now())
	if err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("トランザクションのコミットに失敗: %w", err)
	}

	s.logger.Info("シードを投入しました",
		slog.Int("organizations", result.Organizations),
		slog.Int("locations", result.Locations),
		slog.Int("minyanim", result.Minyanim),
	)
	return result, nil
}
