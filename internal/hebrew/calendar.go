package hebrew

import "time"

// Calendar はヘブライ暦に基づく日の判定を行う。
// InIsrael が false（ディアスポラ）の場合、祭日の第2日も労働禁止の祭日として扱う。
type Calendar struct {
	InIsrael bool
}

// NewCalendar はCalendarを生成する。
func NewCalendar(inIsrael bool) *Calendar {
	return &Calendar{InIsrael: inIsrael}
}

// IsRoshChodesh はローシュ・ホデシュ（月の30日または1日）かどうかを返す。
// ティシュレイ1日はローシュ・ハシャナのため含めない。
func (c *Calendar) IsRoshChodesh(date time.Time) bool {
	d := FromGregorian(date)
	return (d.Day == 1 && d.Month != Tishrei) || d.Day == 30
}

// IsChanukah はハヌカ（キスレブ25日から8日間）かどうかを返す。
func (c *Calendar) IsChanukah(date time.Time) bool {
	d := FromGregorian(date)
	switch d.Month {
	case Kislev:
		return d.Day >= 25
	case Tevet:
		if IsShortKislev(d.Year) {
			return d.Day <= 3
		}
		return d.Day <= 2
	}
	return false
}

// IsYomTovAssurBemelacha は労働が禁止される祭日（ヨム・キプールを含む）かどうかを返す。
func (c *Calendar) IsYomTovAssurBemelacha(date time.Time) bool {
	d := FromGregorian(date)
	diaspora := !c.InIsrael
	switch d.Month {
	case Nisan:
		return d.Day == 15 || d.Day == 21 || (diaspora && (d.Day == 16 || d.Day == 22))
	case Sivan:
		return d.Day == 6 || (diaspora && d.Day == 7)
	case Tishrei:
		switch d.Day {
		case 1, 2, 10, 15, 22:
			return true
		case 16, 23:
			return diaspora
		}
	}
	return false
}

// IsShabbos は土曜日かどうかを返す。
func (c *Calendar) IsShabbos(date time.Time) bool {
	return date.Weekday() == time.Saturday
}
