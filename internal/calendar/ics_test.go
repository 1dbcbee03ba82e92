package calendar

import (
	"strings"
	"testing"
	"time"
)

func icsBody(events ...string) []byte {
	lines := []string{
		"BEGIN:VCALENDAR",
		"VERSION:2.0",
		"PRODID:-//Test//Minyanim//EN",
	}
	lines = append(lines, events...)
	lines = append(lines, "END:VCALENDAR")
	return []byte(strings.Join(lines, "\r\n") + "\r\n")
}

func TestParseICS(t *testing.T) {
	w := Window{
		Start: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		End:   time.Date(2024, 1, 31, 0, 0, 0, 0, time.UTC),
	}

	body := icsBody(
		"BEGIN:VEVENT",
		"UID:single-1",
		"SUMMARY:Mincha & Maariv",
		"LOCATION:Beis Medrash",
		"DESCRIPTION:Followed by Daf Yomi",
		"DTSTART:20240108T163000Z",
		"DTEND:20240108T171500Z",
		"END:VEVENT",
		"BEGIN:VEVENT",
		"UID:outside-1",
		"SUMMARY:Old Event",
		"DTSTART:20231201T120000Z",
		"END:VEVENT",
		"BEGIN:VEVENT",
		"UID:allday-1",
		"SUMMARY:Rosh Chodesh Shevat",
		"DTSTART;VALUE=DATE:20240111",
		"DTEND;VALUE=DATE:20240112",
		"END:VEVENT",
	)

	entries, err := ParseICS(body, w, time.UTC, newTestLogger())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("got %d entries, want 2", len(entries))
	}

	timed := entries[0]
	if timed.Title != "Mincha & Maariv" || timed.Location != "Beis Medrash" {
		t.Errorf("timed entry = %+v", timed)
	}
	if timed.StartTime == nil || timed.StartTime.String() != "16:30:00" {
		t.Errorf("StartTime = %v", timed.StartTime)
	}
	if timed.EndTime == nil || timed.EndTime.String() != "17:15:00" {
		t.Errorf("EndTime = %v", timed.EndTime)
	}
	if !timed.Date.Equal(time.Date(2024, 1, 8, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("Date = %v", timed.Date)
	}

	allDay := entries[1]
	if allDay.StartTime != nil {
		t.Errorf("all-day entry should have no time, got %v", allDay.StartTime)
	}
	if !allDay.Date.Equal(time.Date(2024, 1, 11, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("all-day Date = %v", allDay.Date)
	}
}

func TestParseICS_RecurringWithExdate(t *testing.T) {
	w := Window{
		Start: time.Date(2024, 1, 7, 0, 0, 0, 0, time.UTC),
		End:   time.Date(2024, 1, 13, 0, 0, 0, 0, time.UTC),
	}
	body := icsBody(
		"BEGIN:VEVENT",
		"UID:daily-shacharis",
		"SUMMARY:Shacharis",
		"DTSTART:20240101T070000Z",
		"DTEND:20240101T074500Z",
		"RRULE:FREQ=DAILY;COUNT=30",
		"EXDATE:20240110T070000Z",
		"END:VEVENT",
	)

	entries, err := ParseICS(body, w, time.UTC, newTestLogger())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// 1/7〜1/13の7日間から1/10を除いた6件
	if len(entries) != 6 {
		t.Fatalf("got %d entries, want 6", len(entries))
	}
	for _, e := range entries {
		if e.Date.Day() == 10 {
			t.Errorf("excluded date 2024-01-10 was expanded")
		}
		if e.StartTime == nil || e.StartTime.String() != "07:00:00" {
			t.Errorf("StartTime = %v", e.StartTime)
		}
		if e.EndTime == nil || e.EndTime.String() != "07:45:00" {
			t.Errorf("EndTime = %v", e.EndTime)
		}
	}
}

func TestParseICS_Errors(t *testing.T) {
	w := NewWindow(time.Date(2024, 1, 8, 0, 0, 0, 0, time.UTC), 7, 56)

	if _, err := ParseICS(nil, w, time.UTC, newTestLogger()); err == nil {
		t.Error("expected error for empty body")
	}

	t.Run("不正なRRULEの予定はスキップ", func(t *testing.T) {
		body := icsBody(
			"BEGIN:VEVENT",
			"UID:bad-rule",
			"SUMMARY:Broken",
			"DTSTART:20240108T070000Z",
			"RRULE:FREQ=SOMETIMES",
			"END:VEVENT",
			"BEGIN:VEVENT",
			"UID:good",
			"SUMMARY:Maariv",
			"DTSTART:20240108T200000Z",
			"END:VEVENT",
		)
		entries, err := ParseICS(body, w, time.UTC, newTestLogger())
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(entries) != 1 || entries[0].Title != "Maariv" {
			t.Errorf("entries = %+v", entries)
		}
	})
}
