// Package provider は団体・日付ごとの礼拝一覧を提供する。
//
// 取り込みカレンダーに基づくCalendarImportProviderと、定例スケジュールに基づく
// RuleBasedProviderを優先度順に並べ、Resolverが日付ごとに選択する。
package provider

import (
	"context"
	"time"

	"github.com/hitoshi/minyanim/internal/model"
)

const (
	// PriorityCalendarImport は取り込みカレンダーの優先度。
	PriorityCalendarImport = 100
	// PriorityRuleBased は定例スケジュールの優先度。
	PriorityRuleBased = 10

	defaultColor = "#000000"
)

// Provider は礼拝一覧の提供元のインターフェース。
type Provider interface {
	// Name はメトリクスとログに使う名前を返す。
	Name() string
	// Priority は大きいほど優先される。
	Priority() int
	// FallbackOnEmpty がtrueの場合、結果が0件の日は次の提供元を試す。
	FallbackOnEmpty() bool
	// CanHandle は団体を扱えるかどうかを返す。
	CanHandle(ctx context.Context, org *model.Organization) bool
	// EventsForDate はdate（設定タイムゾーンの0時）の礼拝を返す。
	EventsForDate(ctx context.Context, org *model.Organization, date time.Time) ([]model.MinyanEvent, error)
}

// OrganizationReader は団体の読み取りインターフェース。見つからない場合はnil, nilを返す。
type OrganizationReader interface {
	FindByID(ctx context.Context, id string) (*model.Organization, error)
}

// MinyanReader は定例礼拝の読み取りインターフェース。
type MinyanReader interface {
	ListEnabledByOrganization(ctx context.Context, orgID string) ([]model.Minyan, error)
}

// LocationReader は礼拝場所の読み取りインターフェース。見つからない場合はnil, nilを返す。
type LocationReader interface {
	FindByID(ctx context.Context, id string) (*model.Location, error)
}

// CalendarEntryReader は取り込み項目の読み取りインターフェース。
type CalendarEntryReader interface {
	ListEnabledByOrganizationAndDate(ctx context.Context, orgID string, date time.Time) ([]model.CalendarEntry, error)
}

func orgColor(org *model.Organization) string {
	if org.Color == "" {
		return defaultColor
	}
	return org.Color
}
