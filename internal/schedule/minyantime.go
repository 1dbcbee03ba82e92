package schedule

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/hitoshi/minyanim/internal/zmanim"
)

type slotKind int

const (
	slotUnresolved slotKind = iota
	slotFixed
	slotRule
	slotNone
)

// ErrUnresolvedSlot は未設定のスロットを表す。
var ErrUnresolvedSlot = errors.New("スロットが未設定です")

// MinyanTime は1スロットの時刻指定。固定時刻・時刻ルール・礼拝なしのいずれか。
// ゼロ値は未設定であり、Scheduleには格納できない。
type MinyanTime struct {
	kind  slotKind
	fixed TimeOfDay
	rule  TimeRule
}

// Fixed は固定時刻のスロットを返す。
func Fixed(t TimeOfDay) MinyanTime {
	return MinyanTime{kind: slotFixed, fixed: t}
}

// Rule は時刻ルールのスロットを返す。
func Rule(r TimeRule) MinyanTime {
	return MinyanTime{kind: slotRule, rule: r}
}

// NoService は礼拝なしのスロットを返す。
func NoService() MinyanTime {
	return MinyanTime{kind: slotNone}
}

// IsResolved は設定済みかどうかを返す。
func (m MinyanTime) IsResolved() bool { return m.kind != slotUnresolved }

// IsNoService は礼拝なしかどうかを返す。
func (m MinyanTime) IsNoService() bool { return m.kind == slotNone }

// FixedTime は固定時刻を返す。固定時刻でなければfalse。
func (m MinyanTime) FixedTime() (TimeOfDay, bool) {
	return m.fixed, m.kind == slotFixed
}

// TimeRule は時刻ルールを返す。時刻ルールでなければfalse。
func (m MinyanTime) TimeRule() (TimeRule, bool) {
	return m.rule, m.kind == slotRule
}

// Qualifier は表示用の補足を返す。固定時刻と礼拝なしは空文字列。
func (m MinyanTime) Qualifier() string {
	if m.kind == slotRule {
		return m.rule.Describe()
	}
	return ""
}

// String は永続化用の文字列表現を返す。
//
//	none
//	fixed:07:30
//	rule:NETZ:-5
//	rule:SHEKIYA:-15:rounded
func (m MinyanTime) String() string {
	switch m.kind {
	case slotFixed:
		if m.fixed.Second != 0 {
			return "fixed:" + m.fixed.String()
		}
		return "fixed:" + m.fixed.HHMM()
	case slotRule:
		s := fmt.Sprintf("rule:%s:%d", string(m.rule.Zman), m.rule.OffsetMinutes)
		if m.rule.Rounded {
			s += ":rounded"
		}
		return s
	case slotNone:
		return "none"
	}
	return ""
}

// ParseMinyanTime はStringの表現を解析する。空文字列は未設定としてエラーを返す。
func ParseMinyanTime(s string) (MinyanTime, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return MinyanTime{}, ErrUnresolvedSlot
	}
	if s == "none" {
		return NoService(), nil
	}

	kind, rest, ok := strings.Cut(s, ":")
	if !ok {
		return MinyanTime{}, fmt.Errorf("スロットの形式が不正です: %q", s)
	}

	switch kind {
	case "fixed":
		t, err := ParseTimeOfDay(rest)
		if err != nil {
			return MinyanTime{}, err
		}
		return Fixed(t), nil
	case "rule":
		parts := strings.Split(rest, ":")
		if len(parts) < 2 || len(parts) > 3 {
			return MinyanTime{}, fmt.Errorf("時刻ルールの形式が不正です: %q", s)
		}
		z, err := zmanim.ParseZman(parts[0])
		if err != nil {
			return MinyanTime{}, err
		}
		offset, err := strconv.Atoi(parts[1])
		if err != nil {
			return MinyanTime{}, fmt.Errorf("オフセットが不正です: %q", s)
		}
		rounded := false
		if len(parts) == 3 {
			if parts[2] != "rounded" {
				return MinyanTime{}, fmt.Errorf("時刻ルールの修飾子が不正です: %q", s)
			}
			rounded = true
		}
		return Rule(TimeRule{Zman: z, OffsetMinutes: offset, Rounded: rounded}), nil
	}
	return MinyanTime{}, fmt.Errorf("スロットの種類が不正です: %q", s)
}
