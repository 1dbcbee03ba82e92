package calendar

import (
	"strings"
	"time"

	"github.com/hitoshi/minyanim/internal/schedule"
)

// untitledEvent はタイトルがない項目のタイトル。
const untitledEvent = "Untitled Event"

// ParsedEntry は各形式のパーサーが出力する1件の項目。
type ParsedEntry struct {
	Date          time.Time
	StartTime     *schedule.TimeOfDay
	StartDatetime *time.Time
	EndTime       *schedule.TimeOfDay
	EndDatetime   *time.Time
	Title         string
	Type          string
	Name          string
	Location      string
	Description   string
	HebrewDate    string
	RawText       string
}

// setStart は開始日時から日付と時刻を設定する。
func (p *ParsedEntry) setStart(t time.Time) {
	p.StartDatetime = &t
	y, m, d := t.Date()
	p.Date = time.Date(y, m, d, 0, 0, 0, 0, t.Location())
	tod := schedule.ClockOf(t)
	p.StartTime = &tod
}

func (p *ParsedEntry) setEnd(t time.Time) {
	p.EndDatetime = &t
	tod := schedule.ClockOf(t)
	p.EndTime = &tod
}

// buildRawText は "Type: x | Name: y | Location: z | Description: w" 形式の原文を組み立てる。
func buildRawText(typ, name, location, description string) string {
	var b strings.Builder
	if typ != "" {
		b.WriteString("Type: " + typ + " | ")
	}
	if name != "" {
		b.WriteString("Name: " + name + " | ")
	}
	if location != "" {
		b.WriteString("Location: " + location + " | ")
	}
	if description != "" {
		b.WriteString("Description: " + description)
	}
	return b.String()
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
