// Package repository はデータ永続化のインターフェースとPostgreSQL実装を提供する。
package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/hitoshi/minyanim/internal/model"
	"github.com/hitoshi/minyanim/internal/zmanim"
)

// OrganizationRepository は団体データの永続化インターフェース。
type OrganizationRepository interface {
	// FindByID は指定IDの団体を取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.Organization, error)

	// List は全団体を名前順で返す。
	List(ctx context.Context) ([]model.Organization, error)

	// ListImportEnabled はカレンダー取り込みが有効な団体を返す。
	// URLが空白のみの団体は含めない。
	ListImportEnabled(ctx context.Context) ([]model.Organization, error)

	// Upsert は団体を作成または更新する。created_atは作成時のみ設定する。
	Upsert(ctx context.Context, org *model.Organization) error
}

// LocationRepository は礼拝場所の永続化インターフェース。
type LocationRepository interface {
	// FindByID は指定IDの場所を取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.Location, error)

	// Upsert は場所を作成または更新する。
	Upsert(ctx context.Context, loc *model.Location) error
}

// MinyanRepository は定例礼拝の永続化インターフェース。
type MinyanRepository interface {
	// ListEnabledByOrganization は団体の有効な定例礼拝を返す。
	// 時刻表を復元できない行はログに記録して除外する。
	ListEnabledByOrganization(ctx context.Context, orgID string) ([]model.Minyan, error)

	// Upsert は定例礼拝を作成または更新する。
	Upsert(ctx context.Context, m *model.Minyan) error
}

// CalendarEntryRepository は取り込み項目の永続化インターフェース。
type CalendarEntryRepository interface {
	// FindByFingerprint はフィンガープリントで項目を検索する。見つからない場合はnilを返す。
	FindByFingerprint(ctx context.Context, fingerprint string) (*model.CalendarEntry, error)

	// ListByOrganizationAndDate は団体の指定日の全項目を返す（無効な項目を含む）。
	ListByOrganizationAndDate(ctx context.Context, orgID string, date time.Time) ([]model.CalendarEntry, error)

	// ListEnabledByOrganizationAndDate は団体の指定日の有効な項目を開始時刻順で返す。
	ListEnabledByOrganizationAndDate(ctx context.Context, orgID string, date time.Time) ([]model.CalendarEntry, error)

	// Create は項目を作成し、採番されたIDをentry.IDに設定する。
	Create(ctx context.Context, entry *model.CalendarEntry) error

	// Update は既存項目を上書き更新する。
	Update(ctx context.Context, entry *model.CalendarEntry) error

	// DeleteBefore は団体のbeforeより前の日付の項目を削除し、削除件数を返す。
	DeleteBefore(ctx context.Context, orgID string, before time.Time) (int64, error)

	// DeleteAllBefore は全団体のbeforeより前の日付の項目を削除し、削除件数を返す。
	DeleteAllBefore(ctx context.Context, before time.Time) (int64, error)
}

// ZmanimCacheRepository はズマニームキャッシュの永続化インターフェース。
type ZmanimCacheRepository interface {
	zmanim.Store

	// DeleteBefore はbeforeより前の日付のキャッシュを削除し、削除件数を返す。
	DeleteBefore(ctx context.Context, before time.Time) (int64, error)
}

// DBTX は*sql.DBと*sql.Txに共通するクエリ実行のインターフェース。
type DBTX interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// TxBeginner はトランザクション開始用のインターフェース。
type TxBeginner interface {
	BeginTx(ctx context.Context, opts *sql.TxOptions) (*sql.Tx, error)
}

const dateLayout = "2006-01-02"

// nullString は空文字列をNULLとして扱うsql.NullStringに変換する。
func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

// nullStringValue はsql.NullStringから文字列を取得する。
func nullStringValue(ns sql.NullString) string {
	if ns.Valid {
		return ns.String
	}
	return ""
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}

func nullTimeValue(nt sql.NullTime, loc *time.Location) *time.Time {
	if !nt.Valid {
		return nil
	}
	t := nt.Time.In(loc)
	return &t
}

// parseDate はDATE列の文字列表現をloc上の0時に変換する。
func parseDate(s string, loc *time.Location) (time.Time, error) {
	return time.ParseInLocation(dateLayout, s, loc)
}
