package calendar

import (
	"bytes"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	ical "github.com/arran4/golang-ical"
	"github.com/teambition/rrule-go"
)

// maxOccurrencesPerEvent は1つの繰り返し予定から展開する最大件数。
const maxOccurrencesPerEvent = 500

// ParseICS はiCalendarを解析し、繰り返し予定（RRULE）を取り込み期間内に展開する。
// EXDATEで除外された回は含めない。終日の予定は時刻なしの項目となる。
func ParseICS(body []byte, w Window, loc *time.Location, logger *slog.Logger) ([]ParsedEntry, error) {
	if len(bytes.TrimSpace(body)) == 0 {
		return nil, errors.New("iCalendarの内容が空です")
	}
	cal, err := ical.ParseCalendar(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("iCalendarのパースに失敗: %w", err)
	}

	var entries []ParsedEntry
	for _, ve := range cal.Events() {
		expanded, err := expandVEvent(ve, w, loc)
		if err != nil {
			uid := ""
			if p := ve.GetProperty(ical.ComponentPropertyUniqueId); p != nil {
				uid = p.Value
			}
			logger.Warn("VEVENTの解析に失敗しました",
				slog.String("uid", uid),
				slog.String("error", err.Error()),
			)
			continue
		}
		entries = append(entries, expanded...)
	}
	return entries, nil
}

func expandVEvent(ve *ical.VEvent, w Window, loc *time.Location) ([]ParsedEntry, error) {
	start, err := ve.GetStartAt()
	if err != nil {
		return nil, fmt.Errorf("DTSTARTを取得できません: %w", err)
	}
	end, endErr := ve.GetEndAt()
	allDay := isAllDay(ve)
	if isFloating(ve.GetProperty(ical.ComponentPropertyDtStart)) {
		start = reinterpret(start, loc)
		if endErr == nil && isFloating(ve.GetProperty(ical.ComponentPropertyDtEnd)) {
			end = reinterpret(end, loc)
		}
	}

	summary := propertyValue(ve, ical.ComponentPropertySummary)
	location := propertyValue(ve, ical.ComponentPropertyLocation)
	description := propertyValue(ve, ical.ComponentPropertyDescription)
	categories := propertyValue(ve, ical.ComponentProperty("CATEGORIES"))

	base := ParsedEntry{
		Title:       firstNonEmpty(summary, categories, untitledEvent),
		Name:        summary,
		Type:        categories,
		Location:    location,
		Description: description,
		RawText:     buildRawText(categories, summary, location, description),
	}

	build := func(occStart time.Time) ParsedEntry {
		p := base
		if allDay {
			// 終日の予定は日付のみを使う
			y, m, d := occStart.Date()
			p.Date = time.Date(y, m, d, 0, 0, 0, 0, loc)
			return p
		}
		p.setStart(occStart.In(loc))
		if endErr == nil && !end.IsZero() {
			p.setEnd(occStart.Add(end.Sub(start)))
		}
		return p
	}

	raw := propertyValue(ve, ical.ComponentPropertyRrule)
	if raw == "" {
		day := start
		if !allDay {
			day = start.In(loc)
		}
		if !w.Contains(day) {
			return nil, nil
		}
		return []ParsedEntry{build(start)}, nil
	}

	r, err := rrule.StrToRRule(raw)
	if err != nil {
		return nil, fmt.Errorf("RRULEのパースに失敗: %w", err)
	}
	r.DTStart(start)

	var set rrule.Set
	set.RRule(r)
	for _, ex := range exDates(ve, start.Location()) {
		set.ExDate(ex)
	}

	rangeStart := w.Start.In(start.Location())
	rangeEnd := w.End.AddDate(0, 0, 1).Add(-time.Second).In(start.Location())
	occurrences := set.Between(rangeStart, rangeEnd, true)
	if len(occurrences) > maxOccurrencesPerEvent {
		occurrences = occurrences[:maxOccurrencesPerEvent]
	}

	out := make([]ParsedEntry, 0, len(occurrences))
	for _, occ := range occurrences {
		out = append(out, build(occ))
	}
	return out, nil
}

func propertyValue(ve *ical.VEvent, prop ical.ComponentProperty) string {
	if p := ve.GetProperty(prop); p != nil {
		return strings.TrimSpace(p.Value)
	}
	return ""
}

func isAllDay(ve *ical.VEvent) bool {
	p := ve.GetProperty(ical.ComponentPropertyDtStart)
	if p == nil {
		return false
	}
	if vs, ok := p.ICalParameters["VALUE"]; ok && len(vs) > 0 && strings.EqualFold(vs[0], "DATE") {
		return true
	}
	return !strings.Contains(p.Value, "T")
}

// isFloating はTZIDもUTC指定もない日時（フローティング時刻）かどうかを返す。
func isFloating(p *ical.IANAProperty) bool {
	if p == nil || !strings.Contains(p.Value, "T") || strings.HasSuffix(p.Value, "Z") {
		return false
	}
	_, hasTZ := p.ICalParameters["TZID"]
	return !hasTZ
}

// reinterpret は壁時計の時刻を保ったままlocの時刻に置き換える。
func reinterpret(t time.Time, loc *time.Location) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), t.Minute(), t.Second(), 0, loc)
}

// exDates はEXDATEを解析する。TZIDがない場合は予定開始のロケーションで解釈する。
func exDates(ve *ical.VEvent, loc *time.Location) []time.Time {
	var out []time.Time
	for _, p := range ve.GetProperties(ical.ComponentPropertyExdate) {
		exLoc := loc
		if tzs, ok := p.ICalParameters["TZID"]; ok && len(tzs) > 0 {
			if l, err := time.LoadLocation(tzs[0]); err == nil {
				exLoc = l
			}
		}
		for _, part := range strings.Split(p.Value, ",") {
			if t, ok := parseICSTime(strings.TrimSpace(part), exLoc); ok {
				out = append(out, t)
			}
		}
	}
	return out
}

func parseICSTime(v string, loc *time.Location) (time.Time, bool) {
	layouts := []struct {
		layout string
		loc    *time.Location
	}{
		{"20060102T150405Z", time.UTC},
		{"20060102T150405", loc},
		{"20060102", loc},
	}
	for _, l := range layouts {
		if t, err := time.ParseInLocation(l.layout, v, l.loc); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}
