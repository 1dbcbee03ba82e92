package schedule

import (
	"context"
	"fmt"
	"time"
)

// Schedule は日の種別ごとの11スロットからなる時刻表。
// NewScheduleで生成したものは全スロットが設定済みであることが保証される。
type Schedule struct {
	slots [dayTypeCount]MinyanTime
}

// NewSchedule は全スロットが設定済みであることを検証してScheduleを生成する。
func NewSchedule(slots map[DayType]MinyanTime) (Schedule, error) {
	var s Schedule
	var missing []string
	for _, dt := range DayTypes {
		mt, ok := slots[dt]
		if !ok || !mt.IsResolved() {
			missing = append(missing, dt.String())
			continue
		}
		s.slots[dt] = mt
	}
	if len(missing) > 0 {
		return Schedule{}, fmt.Errorf("%w: %v", ErrUnresolvedSlot, missing)
	}
	return s, nil
}

// Uniform は全スロットに同じ指定を持つScheduleを返す。
func Uniform(mt MinyanTime) (Schedule, error) {
	slots := make(map[DayType]MinyanTime, dayTypeCount)
	for _, dt := range DayTypes {
		slots[dt] = mt
	}
	return NewSchedule(slots)
}

// Slot は指定種別のスロットを返す。
func (s Schedule) Slot(dt DayType) MinyanTime {
	if !dt.Valid() {
		return MinyanTime{}
	}
	return s.slots[dt]
}

// Slots はスロットをDayTypeをキーとするマップで返す。
func (s Schedule) Slots() map[DayType]MinyanTime {
	out := make(map[DayType]MinyanTime, dayTypeCount)
	for _, dt := range DayTypes {
		out[dt] = s.slots[dt]
	}
	return out
}

// Resolve はdateの種別に対応するスロットを返す。
func (s Schedule) Resolve(c DayClassifier, date time.Time) MinyanTime {
	return s.Slot(c.Classify(date))
}

// StartInstant はdateにおける開始時刻を返す。
// 礼拝なし、またはルールのズマンが存在しない場合はfalse。
// 返す時刻はdateのロケーションにおける暦日と組み合わせる。
func (s Schedule) StartInstant(ctx context.Context, c DayClassifier, e RuleEvaluator, date time.Time) (time.Time, bool, error) {
	mt := s.Resolve(c, date)

	if t, ok := mt.FixedTime(); ok {
		return t.On(date), true, nil
	}
	if rule, ok := mt.TimeRule(); ok {
		t, ok, err := e.Evaluate(ctx, rule, date)
		if err != nil || !ok {
			return time.Time{}, false, err
		}
		return t.On(date), true, nil
	}
	return time.Time{}, false, nil
}
