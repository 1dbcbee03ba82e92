package schedule

import "time"

// LiturgicalCalendar は日の種別判定に必要な暦の問い合わせ。
type LiturgicalCalendar interface {
	IsRoshChodesh(date time.Time) bool
	IsChanukah(date time.Time) bool
	IsYomTovAssurBemelacha(date time.Time) bool
	IsShabbos(date time.Time) bool
}

// DayClassifier は日付をDayTypeに分類する。
type DayClassifier interface {
	Classify(date time.Time) DayType
}

// Classifier はLiturgicalCalendarに基づいてDayTypeを決定する。
type Classifier struct {
	cal LiturgicalCalendar
}

// NewClassifier はClassifierを生成する。
func NewClassifier(cal LiturgicalCalendar) *Classifier {
	return &Classifier{cal: cal}
}

// Classify は日付のDayTypeを返す。
// 優先順位: ローシュ・ホデシュ＋ハヌカ > ローシュ・ホデシュ > ハヌカ > ヨム・トーブ > 曜日。
// 土曜日はShabbosとなる。
func (c *Classifier) Classify(date time.Time) DayType {
	rc := c.cal.IsRoshChodesh(date)
	chanuka := c.cal.IsChanukah(date)

	switch {
	case rc && chanuka:
		return RoshChodeshChanuka
	case rc:
		return RoshChodesh
	case chanuka:
		return Chanuka
	case c.cal.IsYomTovAssurBemelacha(date):
		return YomTov
	case c.cal.IsShabbos(date):
		return Shabbos
	}
	return weekdayType(date.Weekday())
}

var _ DayClassifier = (*Classifier)(nil)
