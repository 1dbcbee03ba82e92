package calendar

import (
	"errors"
	"fmt"
	"net/url"
	"path"
	"strings"
	"time"
)

const (
	// DefaultPastDays は取り込み期間の開始（今日から何日前か）。
	DefaultPastDays = 7
	// DefaultAheadDays は取り込み期間の終了（今日から何日後か）。
	DefaultAheadDays = 56
)

// exportParams はカレンダーのCSVエクスポート用パラメータ。既に指定されていれば上書きしない。
var exportParams = []struct{ key, value string }{
	{"advanced", "Y"},
	{"date_start", "specific date"},
	{"date_start_x", "0"},
	{"has_second_date", "Y"},
	{"date_end", "specific date"},
	{"date_end_x", "0"},
	{"view", "other"},
	{"other_view_type", "csv"},
}

// directFileExtensions はエクスポートパラメータを付与しないファイル拡張子。
var directFileExtensions = map[string]bool{
	".ics": true, ".ical": true, ".ifb": true,
	".csv": true, ".rss": true, ".atom": true, ".xml": true,
}

// Window は取り込み対象の日付範囲。
type Window struct {
	Start time.Time
	End   time.Time
}

// NewWindow はnowの暦日を基準に、pastDays日前からaheadDays日後までの範囲を返す。
func NewWindow(now time.Time, pastDays, aheadDays int) Window {
	y, m, d := now.Date()
	today := time.Date(y, m, d, 0, 0, 0, 0, now.Location())
	return Window{
		Start: today.AddDate(0, 0, -pastDays),
		End:   today.AddDate(0, 0, aheadDays),
	}
}

// Contains はtの暦日が範囲内（両端を含む）かどうかを返す。
func (w Window) Contains(t time.Time) bool {
	y, m, d := t.Date()
	day := time.Date(y, m, d, 0, 0, 0, 0, w.Start.Location())
	return !day.Before(w.Start) && !day.After(w.End)
}

// IsValidCalendarURL はhttpまたはhttpsの絶対URLかどうかを返す。
func IsValidCalendarURL(raw string) bool {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return false
	}
	u, err := url.Parse(raw)
	if err != nil {
		return false
	}
	scheme := strings.ToLower(u.Scheme)
	return (scheme == "http" || scheme == "https") && u.Host != ""
}

// BuildExportURL はカレンダーURLに期間指定付きのCSVエクスポート用パラメータを追加する。
// 既存のパラメータは保持し、date_start_dateとdate_end_dateは常に置き換える。
// .icsなどファイルを直接指すURLはそのまま返す。
func BuildExportURL(base string, w Window) (string, error) {
	base = strings.TrimSpace(base)
	if base == "" {
		return "", errors.New("カレンダーURLが空です")
	}
	if w.End.Before(w.Start) {
		return "", errors.New("終了日が開始日より前です")
	}
	u, err := url.Parse(base)
	if err != nil {
		return "", fmt.Errorf("カレンダーURLのパースに失敗: %w", err)
	}
	if directFileExtensions[strings.ToLower(path.Ext(u.Path))] {
		return u.String(), nil
	}

	q := u.Query()
	for _, p := range exportParams {
		if !q.Has(p.key) {
			q.Set(p.key, p.value)
		}
	}
	q.Set("date_start_date", w.Start.Format("2006-01-02"))
	q.Set("date_end_date", w.End.Format("2006-01-02"))
	if !q.Has("status[]") {
		q.Set("status[]", "confirmed")
	}
	u.RawQuery = q.Encode()

	return u.String(), nil
}
