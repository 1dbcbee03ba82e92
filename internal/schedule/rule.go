package schedule

import (
	"context"
	"fmt"
	"time"

	"github.com/hitoshi/minyanim/internal/zmanim"
)

// roundingStep は丸めモードの分単位の刻み。
const roundingStep = 5

// TimeRule はズマンからの相対時刻を表す。
// Roundedの場合は週（日曜〜金曜）で最も早いズマンを基準に5分単位へ切り捨てる。
type TimeRule struct {
	Zman          zmanim.Zman
	OffsetMinutes int
	Rounded       bool
}

// Describe は "Shekiya - 15 min (rounded)" のような表示用文字列を返す。
func (r TimeRule) Describe() string {
	s := r.Zman.String()
	switch {
	case r.OffsetMinutes > 0:
		s += fmt.Sprintf(" + %d min", r.OffsetMinutes)
	case r.OffsetMinutes < 0:
		s += fmt.Sprintf(" - %d min", -r.OffsetMinutes)
	}
	if r.Rounded {
		s += " (rounded)"
	}
	return s
}

// RuleEvaluator はTimeRuleを具体的な時刻に評価する。
type RuleEvaluator interface {
	Evaluate(ctx context.Context, rule TimeRule, date time.Time) (TimeOfDay, bool, error)
}

// Evaluator はOracleのズマンからTimeRuleを評価する。
type Evaluator struct {
	oracle zmanim.Oracle
	loc    *time.Location
}

// NewEvaluator はEvaluatorを生成する。locはズマンの時計時刻を読むタイムゾーン。
func NewEvaluator(oracle zmanim.Oracle, loc *time.Location) *Evaluator {
	if loc == nil {
		loc = time.UTC
	}
	return &Evaluator{oracle: oracle, loc: loc}
}

// Evaluate はdateの暦日におけるruleの時刻を返す。
// ズマンが存在しない場合はfalseを返す（その日は礼拝なし）。Oracleのエラーはそのまま返す。
func (e *Evaluator) Evaluate(ctx context.Context, rule TimeRule, date time.Time) (TimeOfDay, bool, error) {
	day := e.civilDate(date)
	if rule.Rounded {
		return e.evaluateRounded(ctx, rule, day)
	}

	at, ok, err := e.lookup(ctx, rule.Zman, day)
	if err != nil || !ok {
		return TimeOfDay{}, false, err
	}
	// 分未満を切り捨ててオフセットを加算し、秒は59に固定する
	return fromMinutes(at.minutesOfDay()+rule.OffsetMinutes, 59), true, nil
}

// evaluateRounded は週の日曜〜金曜のうち最も早い時計時刻を基準に評価する。
// 土曜日は対象外。1日でもズマンが欠ければ結果なしとする。
func (e *Evaluator) evaluateRounded(ctx context.Context, rule TimeRule, day time.Time) (TimeOfDay, bool, error) {
	sunday := day.AddDate(0, 0, -int(day.Weekday()))

	earliest := -1
	for i := 0; i < 6; i++ {
		at, ok, err := e.lookup(ctx, rule.Zman, sunday.AddDate(0, 0, i))
		if err != nil || !ok {
			return TimeOfDay{}, false, err
		}
		if secs := at.secondsOfDay(); earliest < 0 || secs < earliest {
			earliest = secs
		}
	}

	total := earliest/60 + rule.OffsetMinutes
	return fromMinutes(floorTo(total, roundingStep), 0), true, nil
}

func (e *Evaluator) lookup(ctx context.Context, z zmanim.Zman, day time.Time) (TimeOfDay, bool, error) {
	times, err := e.oracle.TimesFor(ctx, day)
	if err != nil {
		return TimeOfDay{}, false, fmt.Errorf("ズマン %s の取得に失敗: %w", z, err)
	}
	at, ok := times.Get(z)
	if !ok {
		return TimeOfDay{}, false, nil
	}
	return ClockOf(at.In(e.loc)), true, nil
}

func (e *Evaluator) civilDate(date time.Time) time.Time {
	y, m, d := date.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, e.loc)
}

// floorTo はvをstepの倍数へ負の無限大方向に切り捨てる。
func floorTo(v, step int) int {
	q := v / step
	if v%step != 0 && v < 0 {
		q--
	}
	return q * step
}

var _ RuleEvaluator = (*Evaluator)(nil)
