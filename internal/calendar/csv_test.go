package calendar

import (
	"bytes"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"
)

func newTestLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(io.Discard, nil))
}

func newBufferLogger(buf *bytes.Buffer) *slog.Logger {
	return slog.New(slog.NewJSONHandler(buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
}

func mustLoadNY(t *testing.T) *time.Location {
	t.Helper()
	loc, err := time.LoadLocation("America/New_York")
	if err != nil {
		t.Skipf("timezone data unavailable: %v", err)
	}
	return loc
}

func TestParseCSV(t *testing.T) {
	loc := mustLoadNY(t)
	input := strings.Join([]string{
		"Start,End,Name,Type,Location,Description,Hebrew Date",
		`1/8/2024 7:00 am,1/8/2024 7:45 am,Shacharis,Minyan,Main Shul,"Daily, with Tachanun",26 Tevet 5784`,
		"2024-01-08 16:30,,Mincha & Maariv,,Beis Medrash,,",
		"01/09/2024 19:30,,,Shiur,,,",
		"1/10/2024,,,,,,",
		"not a date,,Broken,,,,",
		",,Missing,,,,",
	}, "\n")

	var buf bytes.Buffer
	entries, err := ParseCSV(strings.NewReader(input), loc, newBufferLogger(&buf))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(entries) != 4 {
		t.Fatalf("got %d entries, want 4", len(entries))
	}

	first := entries[0]
	if first.Title != "Shacharis" || first.Type != "Minyan" || first.Location != "Main Shul" {
		t.Errorf("first entry = %+v", first)
	}
	if first.StartTime == nil || first.StartTime.String() != "07:00:00" {
		t.Errorf("first StartTime = %v", first.StartTime)
	}
	if first.EndTime == nil || first.EndTime.String() != "07:45:00" {
		t.Errorf("first EndTime = %v", first.EndTime)
	}
	if first.StartDatetime == nil || !first.StartDatetime.Equal(time.Date(2024, 1, 8, 7, 0, 0, 0, loc)) {
		t.Errorf("first StartDatetime = %v", first.StartDatetime)
	}
	if first.Description != "Daily, with Tachanun" {
		t.Errorf("Description = %q", first.Description)
	}
	if first.HebrewDate != "26 Tevet 5784" {
		t.Errorf("HebrewDate = %q", first.HebrewDate)
	}
	wantRaw := "Type: Minyan | Name: Shacharis | Location: Main Shul | Description: Daily, with Tachanun"
	if first.RawText != wantRaw {
		t.Errorf("RawText = %q, want %q", first.RawText, wantRaw)
	}

	if entries[1].StartTime == nil || entries[1].StartTime.String() != "16:30:00" {
		t.Errorf("second StartTime = %v", entries[1].StartTime)
	}

	t.Run("名前がなければ種類をタイトルにする", func(t *testing.T) {
		if entries[2].Title != "Shiur" {
			t.Errorf("Title = %q, want Shiur", entries[2].Title)
		}
	})

	t.Run("日付のみの行は時刻なし", func(t *testing.T) {
		e := entries[3]
		if e.StartTime != nil || e.StartDatetime != nil {
			t.Errorf("expected no time, got %v", e.StartTime)
		}
		if !e.Date.Equal(time.Date(2024, 1, 10, 0, 0, 0, 0, loc)) {
			t.Errorf("Date = %v", e.Date)
		}
		if e.Title != untitledEvent {
			t.Errorf("Title = %q, want %q", e.Title, untitledEvent)
		}
	})

	t.Run("解析できない行は警告", func(t *testing.T) {
		if !strings.Contains(buf.String(), "CSV行の日付を解析できません") {
			t.Errorf("expected warning log, got %s", buf.String())
		}
	})
}

func TestParseCSV_ColumnAliases(t *testing.T) {
	input := "title,start_date,CATEGORY,place,notes\n" +
		"Maariv,2024-01-08T20:00:00,Evening,Annex,Late\n"

	entries, err := ParseCSV(strings.NewReader(input), time.UTC, newTestLogger())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("got %d entries, want 1", len(entries))
	}
	e := entries[0]
	if e.Title != "Maariv" || e.Type != "Evening" || e.Location != "Annex" || e.Description != "Late" {
		t.Errorf("entry = %+v", e)
	}
	if e.StartTime == nil || e.StartTime.String() != "20:00:00" {
		t.Errorf("StartTime = %v", e.StartTime)
	}
}

func TestParseCSV_Empty(t *testing.T) {
	entries, err := ParseCSV(strings.NewReader(""), time.UTC, newTestLogger())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(entries) != 0 {
		t.Errorf("got %d entries, want 0", len(entries))
	}
}

func TestParseDateTime_LowercaseMeridiem(t *testing.T) {
	got, ok := parseDateTime("1/8/2024 5:15 pm", time.UTC)
	if !ok {
		t.Fatal("parseDateTime failed")
	}
	if want := time.Date(2024, 1, 8, 17, 15, 0, 0, time.UTC); !got.Equal(want) {
		t.Errorf("got %v, want %v", got, want)
	}
}
