// Package hebrew はグレゴリオ暦とヘブライ暦の相互変換および祝祭日の判定を提供する。
// 計算は固定日（R.D.: 0001-01-01 を 1 とする通し日数）を介して行う。
package hebrew

import (
	"fmt"
	"time"
)

// Month はヘブライ暦の月を表す。ニサンを1とし、閏年のアダルIIを13とする。
type Month int

// 月の定義。年の始まりはティシュレイ（7）。
const (
	Nisan   Month = 1
	Iyar    Month = 2
	Sivan   Month = 3
	Tammuz  Month = 4
	Av      Month = 5
	Elul    Month = 6
	Tishrei Month = 7
	Heshvan Month = 8
	Kislev  Month = 9
	Tevet   Month = 10
	Shevat  Month = 11
	Adar    Month = 12
	AdarII  Month = 13
)

var monthNames = map[Month]string{
	Nisan:   "Nisan",
	Iyar:    "Iyar",
	Sivan:   "Sivan",
	Tammuz:  "Tammuz",
	Av:      "Av",
	Elul:    "Elul",
	Tishrei: "Tishrei",
	Heshvan: "Cheshvan",
	Kislev:  "Kislev",
	Tevet:   "Tevet",
	Shevat:  "Shevat",
	Adar:    "Adar",
	AdarII:  "Adar II",
}

const (
	// epoch はヘブライ暦紀元1年ティシュレイ1日の固定日。
	epoch int64 = -1373427
	// unixEpochFixed は1970-01-01の固定日。
	unixEpochFixed int64 = 719163
	secondsPerDay  int64 = 86400
)

// Date はヘブライ暦の日付を表す。
type Date struct {
	Year  int
	Month Month
	Day   int
}

// MonthName は月名を返す。閏年のアダルは "Adar I" となる。
func (d Date) MonthName() string {
	if d.Month == Adar && IsLeapYear(d.Year) {
		return "Adar I"
	}
	return monthNames[d.Month]
}

// String は "26 Tevet 5784" の形式で日付を返す。
func (d Date) String() string {
	return fmt.Sprintf("%d %s %d", d.Day, d.MonthName(), d.Year)
}

// IsLeapYear はヘブライ暦の閏年（13か月）かどうかを返す。
func IsLeapYear(year int) bool {
	return floorMod(7*int64(year)+1, 19) < 7
}

// MonthsInYear は年の月数を返す。
func MonthsInYear(year int) int {
	if IsLeapYear(year) {
		return 13
	}
	return 12
}

// DaysInYear は年の日数を返す（353〜355または383〜385）。
func DaysInYear(year int) int {
	y := int64(year)
	return int(newYear(y+1) - newYear(y))
}

// DaysInMonth は指定月の日数を返す。
func DaysInMonth(year int, month Month) int {
	switch {
	case month == Iyar, month == Tammuz, month == Elul, month == Tevet, month == AdarII:
		return 29
	case month == Adar && !IsLeapYear(year):
		return 29
	case month == Heshvan && !isLongHeshvan(year):
		return 29
	case month == Kislev && IsShortKislev(year):
		return 29
	}
	return 30
}

// IsShortKislev はキスレブが29日の年かどうかを返す。
func IsShortKislev(year int) bool {
	return DaysInYear(year)%10 == 3
}

func isLongHeshvan(year int) bool {
	return DaysInYear(year)%10 == 5
}

// FromGregorian はグレゴリオ暦の日付（tのロケーションにおける年月日）をヘブライ暦に変換する。
func FromGregorian(t time.Time) Date {
	return fromFixed(fixedFromGregorian(t.Year(), t.Month(), t.Day()))
}

// ToGregorian はヘブライ暦の日付をグレゴリオ暦（UTCの0時）に変換する。
func ToGregorian(d Date) time.Time {
	fixed := fixedFromHebrew(int64(d.Year), d.Month, int64(d.Day))
	return time.Unix((fixed-unixEpochFixed)*secondsPerDay, 0).UTC()
}

func fixedFromGregorian(year int, month time.Month, day int) int64 {
	t := time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
	return floorDiv(t.Unix(), secondsPerDay) + unixEpochFixed
}

// elapsedDays は紀元から指定年のティシュレイ1日（延期規則の一部を適用済み）までの日数を返す。
func elapsedDays(year int64) int64 {
	monthsElapsed := floorDiv(235*year-234, 19)
	partsElapsed := 12084 + 13753*monthsElapsed
	day := 29*monthsElapsed + floorDiv(partsElapsed, 25920)
	if floorMod(3*(day+1), 7) < 3 {
		day++
	}
	return day
}

func yearLengthCorrection(year int64) int64 {
	ny0 := elapsedDays(year - 1)
	ny1 := elapsedDays(year)
	ny2 := elapsedDays(year + 1)
	switch {
	case ny2-ny1 == 356:
		return 2
	case ny1-ny0 == 382:
		return 1
	}
	return 0
}

func newYear(year int64) int64 {
	return epoch + elapsedDays(year) + yearLengthCorrection(year)
}

func fixedFromHebrew(year int64, month Month, day int64) int64 {
	y := int(year)
	last := Month(MonthsInYear(y))
	fixed := newYear(year) + day - 1
	if month < Tishrei {
		for m := Tishrei; m <= last; m++ {
			fixed += int64(DaysInMonth(y, m))
		}
		for m := Nisan; m < month; m++ {
			fixed += int64(DaysInMonth(y, m))
		}
		return fixed
	}
	for m := Tishrei; m < month; m++ {
		fixed += int64(DaysInMonth(y, m))
	}
	return fixed
}

func fromFixed(fixed int64) Date {
	approx := floorDiv((fixed-epoch)*98496, 35975351) + 1
	year := approx - 1
	for newYear(year+1) <= fixed {
		year++
	}

	month := Tishrei
	if fixed >= fixedFromHebrew(year, Nisan, 1) {
		month = Nisan
	}
	y := int(year)
	for fixed > fixedFromHebrew(year, month, int64(DaysInMonth(y, month))) {
		month++
	}

	day := fixed - fixedFromHebrew(year, month, 1) + 1
	return Date{Year: y, Month: month, Day: int(day)}
}

func floorDiv(a, b int64) int64 {
	q := a / b
	if (a%b != 0) && ((a < 0) != (b < 0)) {
		q--
	}
	return q
}

func floorMod(a, b int64) int64 {
	return a - b*floorDiv(a, b)
}
