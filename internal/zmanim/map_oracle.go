package zmanim

import (
	"context"
	"time"
)

// MapOracle は日付ごとの固定値を返すOracle。
// 登録されていない日付は空のTimesを返す。
type MapOracle struct {
	days map[string]Times
}

// NewMapOracle は空のMapOracleを生成する。
func NewMapOracle() *MapOracle {
	return &MapOracle{days: make(map[string]Times)}
}

// Set は指定日のズマンを登録する。
func (o *MapOracle) Set(date time.Time, z Zman, at time.Time) {
	key := DateKey(date)
	if o.days[key] == nil {
		o.days[key] = make(Times)
	}
	o.days[key][z] = at
}

// TimesFor はOracleを実装する。
func (o *MapOracle) TimesFor(_ context.Context, date time.Time) (Times, error) {
	times := make(Times)
	for z, at := range o.days[DateKey(date)] {
		times[z] = at
	}
	return times, nil
}

var _ Oracle = (*MapOracle)(nil)
