package calendar

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"
)

// 列名の別名。先頭から順に探し、値が空でない最初の列を使う。
var (
	startColumns       = []string{"start", "start date", "start_date", "date"}
	endColumns         = []string{"end", "end date", "end_date"}
	nameColumns        = []string{"name", "title", "event", "summary"}
	typeColumns        = []string{"type", "category"}
	locationColumns    = []string{"location", "place"}
	descriptionColumns = []string{"description", "details", "notes"}
	hebrewDateColumns  = []string{"hebrew date", "hebrew_date", "hebrewdate", "jewish date"}
)

var dateTimeLayouts = []string{
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"1/2/2006 3:04 PM",
	"1/2/2006 3:04:05 PM",
	"1/2/2006 15:04:05",
	"1/2/2006 15:04",
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
}

var dateLayouts = []string{
	"2006-01-02",
	"1/2/2006",
}

// ParseCSV はヘッダー付きCSVを解析する。列名は大文字小文字を区別せず、列の順序・欠落は問わない。
// 日時はlocの時刻として解釈する。日付を解析できない行は警告を記録してスキップする。
func ParseCSV(r io.Reader, loc *time.Location, logger *slog.Logger) ([]ParsedEntry, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("CSVヘッダーの読み取りに失敗: %w", err)
	}
	index := make(map[string]int, len(header))
	for i, h := range header {
		key := strings.ToLower(strings.TrimSpace(strings.TrimPrefix(h, "\ufeff")))
		if _, exists := index[key]; !exists {
			index[key] = i
		}
	}

	var entries []ParsedEntry
	line := 1
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		line++
		if err != nil {
			logger.Warn("CSV行の読み取りに失敗しました",
				slog.Int("line", line),
				slog.String("error", err.Error()),
			)
			continue
		}

		entry, ok := parseCSVRecord(record, index, loc)
		if !ok {
			logger.Warn("CSV行の日付を解析できません",
				slog.Int("line", line),
			)
			continue
		}
		entries = append(entries, entry)
	}

	return entries, nil
}

func parseCSVRecord(record []string, index map[string]int, loc *time.Location) (ParsedEntry, bool) {
	get := func(names []string) string {
		for _, name := range names {
			i, ok := index[name]
			if !ok || i >= len(record) {
				continue
			}
			if v := strings.TrimSpace(record[i]); v != "" {
				return v
			}
		}
		return ""
	}

	var p ParsedEntry
	if start := get(startColumns); start != "" {
		if t, ok := parseDateTime(start, loc); ok {
			p.setStart(t)
		} else if d, ok := parseDate(start, loc); ok {
			p.Date = d
		}
	}
	if p.Date.IsZero() {
		return ParsedEntry{}, false
	}

	if end := get(endColumns); end != "" {
		if t, ok := parseDateTime(end, loc); ok {
			p.setEnd(t)
		}
	}

	p.Name = get(nameColumns)
	p.Type = get(typeColumns)
	p.Title = firstNonEmpty(p.Name, p.Type, untitledEvent)
	p.Location = get(locationColumns)
	p.Description = get(descriptionColumns)
	p.HebrewDate = get(hebrewDateColumns)
	p.RawText = buildRawText(p.Type, p.Name, p.Location, p.Description)

	return p, true
}

func parseDateTime(s string, loc *time.Location) (time.Time, bool) {
	s = strings.ToUpper(strings.TrimSpace(s))
	for _, layout := range dateTimeLayouts {
		if t, err := time.ParseInLocation(layout, s, loc); err == nil {
			return t, true
		}
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t.In(loc), true
	}
	return time.Time{}, false
}

func parseDate(s string, loc *time.Location) (time.Time, bool) {
	s = strings.TrimSpace(s)
	for _, layout := range dateLayouts {
		if t, err := time.ParseInLocation(layout, s, loc); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}
