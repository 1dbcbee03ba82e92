package schedule

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

const minutesPerDay = 24 * 60

// TimeOfDay は日付を持たない時刻。
type TimeOfDay struct {
	Hour   int
	Minute int
	Second int
}

// NewTimeOfDay は範囲を検証してTimeOfDayを生成する。
func NewTimeOfDay(hour, minute, second int) (TimeOfDay, error) {
	if hour < 0 || hour > 23 || minute < 0 || minute > 59 || second < 0 || second > 59 {
		return TimeOfDay{}, fmt.Errorf("時刻が範囲外です: %02d:%02d:%02d", hour, minute, second)
	}
	return TimeOfDay{Hour: hour, Minute: minute, Second: second}, nil
}

// ClockOf はtの時計上の時刻を返す。
func ClockOf(t time.Time) TimeOfDay {
	h, m, s := t.Clock()
	return TimeOfDay{Hour: h, Minute: m, Second: s}
}

// ParseTimeOfDay は "HH:MM" または "HH:MM:SS" を解析する。
func ParseTimeOfDay(s string) (TimeOfDay, error) {
	parts := strings.Split(strings.TrimSpace(s), ":")
	if len(parts) < 2 || len(parts) > 3 {
		return TimeOfDay{}, fmt.Errorf("時刻の形式が不正です: %q", s)
	}
	values := make([]int, 3)
	for i, p := range parts {
		v, err := strconv.Atoi(p)
		if err != nil {
			return TimeOfDay{}, fmt.Errorf("時刻の形式が不正です: %q", s)
		}
		values[i] = v
	}
	return NewTimeOfDay(values[0], values[1], values[2])
}

// String は "HH:MM:SS" 形式を返す。
func (t TimeOfDay) String() string {
	return fmt.Sprintf("%02d:%02d:%02d", t.Hour, t.Minute, t.Second)
}

// HHMM は "HH:MM" 形式を返す。
func (t TimeOfDay) HHMM() string {
	return fmt.Sprintf("%02d:%02d", t.Hour, t.Minute)
}

// Kitchen は "3:04 PM" 形式を返す。
func (t TimeOfDay) Kitchen() string {
	return time.Date(2000, 1, 1, t.Hour, t.Minute, 0, 0, time.UTC).Format("3:04 PM")
}

// On はdateの暦日（dateのロケーション）におけるこの時刻を返す。
func (t TimeOfDay) On(date time.Time) time.Time {
	y, m, d := date.Date()
	return time.Date(y, m, d, t.Hour, t.Minute, t.Second, 0, date.Location())
}

// minutesOfDay は0時からの経過分を返す。
func (t TimeOfDay) minutesOfDay() int {
	return t.Hour*60 + t.Minute
}

func (t TimeOfDay) secondsOfDay() int {
	return t.Hour*3600 + t.Minute*60 + t.Second
}

// fromMinutes は経過分を0〜1439に折り返してTimeOfDayにする。日付の繰り越しは行わない。
func fromMinutes(total, second int) TimeOfDay {
	total = ((total % minutesPerDay) + minutesPerDay) % minutesPerDay
	return TimeOfDay{Hour: total / 60, Minute: total % 60, Second: second}
}
