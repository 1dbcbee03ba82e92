package provider

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/hitoshi/minyanim/internal/calendar"
	"github.com/hitoshi/minyanim/internal/model"
)

// CalendarImportProvider は取り込み済みのカレンダー項目から礼拝一覧を作る。
// 取り込みが有効な団体のみを扱い、項目のない日は次の提供元に譲る。
type CalendarImportProvider struct {
	entries  CalendarEntryReader
	location *time.Location
	logger   *slog.Logger
}

// NewCalendarImportProvider はCalendarImportProviderを生成する。
// locは開始日時のない項目の日付と時刻を組み合わせるタイムゾーン。
func NewCalendarImportProvider(entries CalendarEntryReader, loc *time.Location, logger *slog.Logger) *CalendarImportProvider {
	return &CalendarImportProvider{entries: entries, location: loc, logger: logger}
}

func (p *CalendarImportProvider) Name() string { return "calendar_import" }

func (p *CalendarImportProvider) Priority() int { return PriorityCalendarImport }

func (p *CalendarImportProvider) FallbackOnEmpty() bool { return true }

// CanHandle はカレンダーURLが設定され、取り込みカレンダーの使用が有効な団体に対してtrueを返す。
func (p *CalendarImportProvider) CanHandle(_ context.Context, org *model.Organization) bool {
	return org.ImportEnabled()
}

// EventsForDate は有効な取り込み項目を礼拝に変換する。時刻のない項目は記録してスキップする。
func (p *CalendarImportProvider) EventsForDate(ctx context.Context, org *model.Organization, date time.Time) ([]model.MinyanEvent, error) {
	entries, err := p.entries.ListEnabledByOrganizationAndDate(ctx, org.ID, date)
	if err != nil {
		return nil, fmt.Errorf("取り込み項目の取得に失敗: %w", err)
	}

	events := make([]model.MinyanEvent, 0, len(entries))
	for i := range entries {
		ev, err := p.toEvent(org, &entries[i])
		if err != nil {
			p.logger.Warn("取り込み項目を礼拝に変換できません",
				slog.String("organization_id", org.ID),
				slog.Int64("entry_id", entries[i].ID),
				slog.String("error", err.Error()),
			)
			continue
		}
		events = append(events, ev)
	}
	return events, nil
}

func (p *CalendarImportProvider) toEvent(org *model.Organization, e *model.CalendarEntry) (model.MinyanEvent, error) {
	var start time.Time
	switch {
	case e.StartDatetime != nil:
		start = e.StartDatetime.In(p.location)
	case e.StartTime != nil:
		y, m, d := e.Date.Date()
		start = e.StartTime.On(time.Date(y, m, d, 0, 0, 0, 0, p.location))
	default:
		return model.MinyanEvent{}, fmt.Errorf("開始時刻がありません: %q", e.Title)
	}

	return model.MinyanEvent{
		ID:                 "calendar-" + strconv.FormatInt(e.ID, 10),
		Type:               entryType(e),
		OrganizationID:     org.ID,
		OrganizationName:   org.Name,
		OrganizationNusach: org.Nusach,
		LocationName:       e.Location,
		StartTime:          start,
		Qualifier:          e.Title,
		Nusach:             calendar.InferNusach(e.Title+" "+e.Notes, org.Nusach),
		Notes:              e.Notes,
		Color:              orgColor(org),
		Whatsapp:           "",
		Source:             model.EventSourceImported,
	}, nil
}

// entryType は項目の分類から礼拝の種類を決める。
// 分類が未設定の項目はタイトルから推定し、メギラ朗読はMEGILA_READINGとする。
func entryType(e *model.CalendarEntry) model.MinyanType {
	c := e.Classification
	if c == "" {
		if inferred, ok := calendar.InferMinyanType(e.Title); ok {
			c = inferred
		}
	}
	if t, ok := c.ToMinyanType(); ok {
		return t
	}
	if calendar.IsMegilaReading(strings.Join([]string{e.Title, e.Type, e.Description}, " ")) {
		return model.MinyanTypeMegilaReading
	}
	if c == model.ClassificationNonMinyan {
		return model.MinyanTypeNonMinyan
	}
	return model.MinyanTypeOther
}

var _ Provider = (*CalendarImportProvider)(nil)
