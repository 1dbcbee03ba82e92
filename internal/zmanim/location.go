package zmanim

import (
	"fmt"
	"time"
)

// Location はズマン計算の基準地点を表す。
type Location struct {
	Name      string
	Latitude  float64
	Longitude float64
	TimeZone  string
}

// DefaultLocation はティーネック（ニュージャージー州）。
var DefaultLocation = Location{
	Name:      "Teaneck, NJ",
	Latitude:  40.906871,
	Longitude: -74.020924,
	TimeZone:  "America/New_York",
}

// LoadTimeZone は地点のタイムゾーンを読み込む。
func (l Location) LoadTimeZone() (*time.Location, error) {
	loc, err := time.LoadLocation(l.TimeZone)
	if err != nil {
		return nil, fmt.Errorf("タイムゾーンの読み込みに失敗: %w", err)
	}
	return loc, nil
}

// DateKey はOracleの実装がキャッシュキーに使う暦日文字列を返す。
func DateKey(date time.Time) string {
	return date.Format("2006-01-02")
}
