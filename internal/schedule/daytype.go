// Package schedule はミニヤンの時刻表を扱う。
// 日の種別判定、時刻ルールの評価、11スロットの時刻表を提供する。
package schedule

import (
	"fmt"
	"time"
)

// DayType は時刻表のスロットを選ぶための日の種別。
type DayType int

// 日の種別。曜日以外の値は優先順位に従って曜日より優先される。
const (
	Sunday DayType = iota
	Monday
	Tuesday
	Wednesday
	Thursday
	Friday
	Shabbos
	RoshChodesh
	YomTov
	Chanuka
	RoshChodeshChanuka
)

// dayTypeCount はスロット数。
const dayTypeCount = 11

// DayTypes は全種別をスロット順に並べたもの。
var DayTypes = []DayType{
	Sunday, Monday, Tuesday, Wednesday, Thursday, Friday, Shabbos,
	RoshChodesh, YomTov, Chanuka, RoshChodeshChanuka,
}

var dayTypeNames = [dayTypeCount]string{
	"SUNDAY", "MONDAY", "TUESDAY", "WEDNESDAY", "THURSDAY", "FRIDAY", "SHABBOS",
	"ROSH_CHODESH", "YOM_TOV", "CHANUKA", "ROSH_CHODESH_CHANUKA",
}

// String は種別名を返す。
func (d DayType) String() string {
	if d.Valid() {
		return dayTypeNames[d]
	}
	return fmt.Sprintf("DayType(%d)", int(d))
}

// Valid は定義済みの種別かどうかを返す。
func (d DayType) Valid() bool {
	return d >= Sunday && d <= RoshChodeshChanuka
}

// ParseDayType は種別名をDayTypeに変換する。
func ParseDayType(s string) (DayType, error) {
	for i, name := range dayTypeNames {
		if name == s {
			return DayType(i), nil
		}
	}
	return 0, fmt.Errorf("未定義の日の種別です: %q", s)
}

func weekdayType(w time.Weekday) DayType {
	if w == time.Saturday {
		return Shabbos
	}
	return DayType(w)
}
