package repository

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/hitoshi/minyanim/internal/model"
	"github.com/hitoshi/minyanim/internal/schedule"
)

// slotColumns はschedule.DayTypesの順に並べた時刻表の列名。
var slotColumns = []string{
	"start_time_1", "start_time_2", "start_time_3", "start_time_4",
	"start_time_5", "start_time_6", "start_time_7",
	"start_time_rc", "start_time_yt", "start_time_ch", "start_time_chrc",
}

// PostgresMinyanRepo はPostgreSQLを使用した定例礼拝リポジトリ。
type PostgresMinyanRepo struct {
	db     DBTX
	logger *slog.Logger
}

// NewPostgresMinyanRepo はPostgresMinyanRepoを生成する。
func NewPostgresMinyanRepo(db DBTX, logger *slog.Logger) *PostgresMinyanRepo {
	return &PostgresMinyanRepo{db: db, logger: logger}
}

// ListEnabledByOrganization は団体の有効な定例礼拝を返す。
// 時刻表を復元できない行はログに記録して除外する。
func (r *PostgresMinyanRepo) ListEnabledByOrganization(ctx context.Context, orgID string) ([]model.Minyan, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, organization_id, COALESCE(location_id, ''), type, nusach, enabled, notes, whatsapp,
		        start_time_1, start_time_2, start_time_3, start_time_4, start_time_5,
		        start_time_6, start_time_7, start_time_rc, start_time_yt, start_time_ch, start_time_chrc
		 FROM minyanim
		 WHERE organization_id = $1 AND enabled = true
		 ORDER BY id`,
		orgID,
	)
	if err != nil {
		return nil, fmt.Errorf("定例礼拝一覧の取得に失敗しました: %w", err)
	}
	defer rows.Close()

	var minyanim []model.Minyan
	for rows.Next() {
		var m model.Minyan
		var typ, nusach string
		slots := make([]string, len(slotColumns))
		dest := []any{&m.ID, &m.OrganizationID, &m.LocationID, &typ, &nusach, &m.Enabled, &m.Notes, &m.Whatsapp}
		for i := range slots {
			dest = append(dest, &slots[i])
		}
		if err := rows.Scan(dest...); err != nil {
			return nil, fmt.Errorf("定例礼拝のスキャンに失敗しました: %w", err)
		}

		sched, err := decodeSchedule(slots)
		if err != nil {
			r.logger.Warn("定例礼拝の時刻表を復元できないため除外します",
				slog.String("minyan_id", m.ID),
				slog.String("organization_id", m.OrganizationID),
				slog.String("error", err.Error()),
			)
			continue
		}
		m.Type = model.ParseMinyanType(typ)
		m.Nusach = model.ParseNusach(nusach)
		m.Schedule = sched
		minyanim = append(minyanim, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("定例礼拝一覧の読み取りに失敗しました: %w", err)
	}
	return minyanim, nil
}

// Upsert は定例礼拝を作成または更新する。
func (r *PostgresMinyanRepo) Upsert(ctx context.Context, m *model.Minyan) error {
	args := []any{
		m.ID, m.OrganizationID, nullString(m.LocationID), string(m.Type), string(m.Nusach),
		m.Enabled, m.Notes, m.Whatsapp,
	}
	args = append(args, encodeSchedule(m.Schedule)...)

	_, err := r.db.ExecContext(ctx,
		`INSERT INTO minyanim (id, organization_id, location_id, type, nusach, enabled, notes, whatsapp,
		                       start_time_1, start_time_2, start_time_3, start_time_4, start_time_5,
		                       start_time_6, start_time_7, start_time_rc, start_time_yt, start_time_ch, start_time_chrc)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19)
		 ON CONFLICT (id) DO UPDATE SET
		    organization_id = EXCLUDED.organization_id, location_id = EXCLUDED.location_id,
		    type = EXCLUDED.type, nusach = EXCLUDED.nusach, enabled = EXCLUDED.enabled,
		    notes = EXCLUDED.notes, whatsapp = EXCLUDED.whatsapp,
		    start_time_1 = EXCLUDED.start_time_1, start_time_2 = EXCLUDED.start_time_2,
		    start_time_3 = EXCLUDED.start_time_3, start_time_4 = EXCLUDED.start_time_4,
		    start_time_5 = EXCLUDED.start_time_5, start_time_6 = EXCLUDED.start_time_6,
		    start_time_7 = EXCLUDED.start_time_7, start_time_rc = EXCLUDED.start_time_rc,
		    start_time_yt = EXCLUDED.start_time_yt, start_time_ch = EXCLUDED.start_time_ch,
		    start_time_chrc = EXCLUDED.start_time_chrc`,
		args...,
	)
	if err != nil {
		return fmt.Errorf("定例礼拝の保存に失敗しました: %w", err)
	}
	return nil
}

// decodeSchedule は11列の文字列表現を時刻表に変換する。
func decodeSchedule(slots []string) (schedule.Schedule, error) {
	if len(slots) != len(schedule.DayTypes) {
		return schedule.Schedule{}, fmt.Errorf("時刻表の列数が不正です: %d", len(slots))
	}
	parsed := make(map[schedule.DayType]schedule.MinyanTime, len(slots))
	for i, dt := range schedule.DayTypes {
		mt, err := schedule.ParseMinyanTime(slots[i])
		if err != nil {
			return schedule.Schedule{}, fmt.Errorf("%s: %w", slotColumns[i], err)
		}
		parsed[dt] = mt
	}
	return schedule.NewSchedule(parsed)
}

// encodeSchedule は時刻表を列順の文字列表現に変換する。
func encodeSchedule(s schedule.Schedule) []any {
	out := make([]any, len(schedule.DayTypes))
	for i, dt := range schedule.DayTypes {
		out[i] = s.Slot(dt).String()
	}
	return out
}

var _ MinyanRepository = (*PostgresMinyanRepo)(nil)
