package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/hitoshi/minyanim/internal/model"
	"github.com/hitoshi/minyanim/internal/schedule"
)

const calendarEntryColumns = `id, organization_id, date::text, start_time::text, start_datetime,
	end_time::text, end_datetime, title, type, name, location, description, hebrew_date,
	raw_text, source_url, fingerprint, enabled, duplicate_reason, classification,
	classification_reason, notes, imported_at, updated_at, scraped_at`

// PostgresCalendarEntryRepo はPostgreSQLを使用した取り込み項目リポジトリ。
// DATE列はlocの暦日として読み書きする。
type PostgresCalendarEntryRepo struct {
	db  DBTX
	loc *time.Location
}

// NewPostgresCalendarEntryRepo はPostgresCalendarEntryRepoを生成する。
func NewPostgresCalendarEntryRepo(db DBTX, loc *time.Location) *PostgresCalendarEntryRepo {
	return &PostgresCalendarEntryRepo{db: db, loc: loc}
}

// FindByFingerprint はフィンガープリントで項目を検索する。見つからない場合はnilを返す。
func (r *PostgresCalendarEntryRepo) FindByFingerprint(ctx context.Context, fingerprint string) (*model.CalendarEntry, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+calendarEntryColumns+` FROM calendar_entries WHERE fingerprint = $1`,
		fingerprint,
	)
	entry, err := r.scan(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("取り込み項目の取得に失敗しました: %w", err)
	}
	return entry, nil
}

// ListByOrganizationAndDate は団体の指定日の全項目を返す。
func (r *PostgresCalendarEntryRepo) ListByOrganizationAndDate(ctx context.Context, orgID string, date time.Time) ([]model.CalendarEntry, error) {
	return r.list(ctx,
		`SELECT `+calendarEntryColumns+` FROM calendar_entries
		 WHERE organization_id = $1 AND date = $2
		 ORDER BY id`,
		orgID, date.Format(dateLayout),
	)
}

// ListEnabledByOrganizationAndDate は団体の指定日の有効な項目を開始時刻順で返す。
func (r *PostgresCalendarEntryRepo) ListEnabledByOrganizationAndDate(ctx context.Context, orgID string, date time.Time) ([]model.CalendarEntry, error) {
	return r.list(ctx,
		`SELECT `+calendarEntryColumns+` FROM calendar_entries
		 WHERE organization_id = $1 AND date = $2 AND enabled = true
		 ORDER BY start_datetime NULLS LAST, start_time NULLS LAST, id`,
		orgID, date.Format(dateLayout),
	)
}

func (r *PostgresCalendarEntryRepo) list(ctx context.Context, query string, args ...any) ([]model.CalendarEntry, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("取り込み項目一覧の取得に失敗しました: %w", err)
	}
	defer rows.Close()

	var entries []model.CalendarEntry
	for rows.Next() {
		entry, err := r.scan(rows)
		if err != nil {
			return nil, fmt.Errorf("取り込み項目のスキャンに失敗しました: %w", err)
		}
		entries = append(entries, *entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("取り込み項目一覧の読み取りに失敗しました: %w", err)
	}
	return entries, nil
}

// Create は項目を作成し、採番されたIDをentry.IDに設定する。
func (r *PostgresCalendarEntryRepo) Create(ctx context.Context, e *model.CalendarEntry) error {
	err := r.db.QueryRowContext(ctx,
		`INSERT INTO calendar_entries (organization_id, date, start_time, start_datetime, end_time,
		                               end_datetime, title, type, name, location, description,
		                               hebrew_date, raw_text, source_url, fingerprint, enabled,
		                               duplicate_reason, classification, classification_reason,
		                               notes, imported_at, updated_at, scraped_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16,
		         $17, $18, $19, $20, $21, $22, $23)
		 RETURNING id`,
		e.OrganizationID, e.Date.Format(dateLayout), timeOfDayArg(e.StartTime), nullTime(e.StartDatetime),
		timeOfDayArg(e.EndTime), nullTime(e.EndDatetime), e.Title, e.Type, e.Name, e.Location,
		e.Description, e.HebrewDate, e.RawText, e.SourceURL, e.Fingerprint, e.Enabled,
		nullString(e.DuplicateReason), string(e.Classification), e.ClassificationReason,
		e.Notes, e.ImportedAt, e.UpdatedAt, nullTime(e.ScrapedAt),
	).Scan(&e.ID)
	if err != nil {
		return fmt.Errorf("取り込み項目の作成に失敗しました: %w", err)
	}
	return nil
}

// Update は既存項目を上書き更新する。
func (r *PostgresCalendarEntryRepo) Update(ctx context.Context, e *model.CalendarEntry) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE calendar_entries SET
		    organization_id = $2, date = $3, start_time = $4, start_datetime = $5,
		    end_time = $6, end_datetime = $7, title = $8, type = $9, name = $10,
		    location = $11, description = $12, hebrew_date = $13, raw_text = $14,
		    source_url = $15, fingerprint = $16, enabled = $17, duplicate_reason = $18,
		    classification = $19, classification_reason = $20, notes = $21,
		    updated_at = $22, scraped_at = $23
		 WHERE id = $1`,
		e.ID, e.OrganizationID, e.Date.Format(dateLayout), timeOfDayArg(e.StartTime), nullTime(e.StartDatetime),
		timeOfDayArg(e.EndTime), nullTime(e.EndDatetime), e.Title, e.Type, e.Name,
		e.Location, e.Description, e.HebrewDate, e.RawText,
		e.SourceURL, e.Fingerprint, e.Enabled, nullString(e.DuplicateReason),
		string(e.Classification), e.ClassificationReason, e.Notes,
		e.UpdatedAt, nullTime(e.ScrapedAt),
	)
	if err != nil {
		return fmt.Errorf("取り込み項目の更新に失敗しました: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("更新対象の取り込み項目がありません: id=%d", e.ID)
	}
	return nil
}

// DeleteBefore は団体のbeforeより前の日付の項目を削除する。
func (r *PostgresCalendarEntryRepo) DeleteBefore(ctx context.Context, orgID string, before time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM calendar_entries WHERE organization_id = $1 AND date < $2`,
		orgID, before.Format(dateLayout),
	)
	if err != nil {
		return 0, fmt.Errorf("古い取り込み項目の削除に失敗しました: %w", err)
	}
	return res.RowsAffected()
}

// DeleteAllBefore は全団体のbeforeより前の日付の項目を削除する。
func (r *PostgresCalendarEntryRepo) DeleteAllBefore(ctx context.Context, before time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM calendar_entries WHERE date < $1`,
		before.Format(dateLayout),
	)
	if err != nil {
		return 0, fmt.Errorf("古い取り込み項目の削除に失敗しました: %w", err)
	}
	return res.RowsAffected()
}

func (r *PostgresCalendarEntryRepo) scan(s rowScanner) (*model.CalendarEntry, error) {
	e := &model.CalendarEntry{}
	var date, classification string
	var startTime, endTime, duplicateReason sql.NullString
	var startDatetime, endDatetime, scrapedAt sql.NullTime

	if err := s.Scan(
		&e.ID, &e.OrganizationID, &date, &startTime, &startDatetime,
		&endTime, &endDatetime, &e.Title, &e.Type, &e.Name, &e.Location, &e.Description, &e.HebrewDate,
		&e.RawText, &e.SourceURL, &e.Fingerprint, &e.Enabled, &duplicateReason, &classification,
		&e.ClassificationReason, &e.Notes, &e.ImportedAt, &e.UpdatedAt, &scrapedAt,
	); err != nil {
		return nil, err
	}

	d, err := parseDate(date, r.loc)
	if err != nil {
		return nil, fmt.Errorf("日付の解析に失敗しました: %w", err)
	}
	e.Date = d
	if e.StartTime, err = timeOfDayValue(startTime); err != nil {
		return nil, err
	}
	if e.EndTime, err = timeOfDayValue(endTime); err != nil {
		return nil, err
	}
	e.StartDatetime = nullTimeValue(startDatetime, r.loc)
	e.EndDatetime = nullTimeValue(endDatetime, r.loc)
	e.ScrapedAt = nullTimeValue(scrapedAt, r.loc)
	e.DuplicateReason = nullStringValue(duplicateReason)
	e.Classification = model.MinyanClassification(classification)
	return e, nil
}

func timeOfDayArg(t *schedule.TimeOfDay) sql.NullString {
	if t == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: t.String(), Valid: true}
}

func timeOfDayValue(ns sql.NullString) (*schedule.TimeOfDay, error) {
	if !ns.Valid {
		return nil, nil
	}
	t, err := schedule.ParseTimeOfDay(ns.String)
	if err != nil {
		return nil, fmt.Errorf("時刻の解析に失敗しました: %w", err)
	}
	return &t, nil
}

var _ CalendarEntryRepository = (*PostgresCalendarEntryRepo)(nil)
