// Package zmanim はハラハー上の時刻（ズマニーム）とその取得元を提供する。
// 天文計算そのものは行わず、外部API・キャッシュ・固定値のいずれかから時刻を得る。
package zmanim

import (
	"context"
	"fmt"
	"time"
)

// Zman はハラハー上の時刻の種類を表す。
type Zman string

// 定義済みのズマン。
const (
	AlosHashachar Zman = "ALOS_HASHACHAR"
	ETT           Zman = "ETT"
	Misheyakir    Zman = "MISHEYAKIR"
	Netz          Zman = "NETZ"
	SZKS          Zman = "SZKS"
	MASZKS        Zman = "MASZKS"
	SZT           Zman = "SZT"
	MASZT         Zman = "MASZT"
	Chatzos       Zman = "CHATZOS"
	MinchaGedola  Zman = "MINCHA_GEDOLA"
	MinchaKetana  Zman = "MINCHA_KETANA"
	PlagHamincha  Zman = "PLAG_HAMINCHA"
	Shekiya       Zman = "SHEKIYA"
	EarliestShema Zman = "EARLIEST_SHEMA"
	Tzes          Zman = "TZES"
	ChatzosLaila  Zman = "CHATZOS_LAILA"
)

// All は全ズマンを一日の順に並べたもの。
var All = []Zman{
	AlosHashachar, ETT, Misheyakir, Netz,
	SZKS, MASZKS, SZT, MASZT,
	Chatzos, MinchaGedola, MinchaKetana, PlagHamincha,
	Shekiya, EarliestShema, Tzes, ChatzosLaila,
}

var displayNames = map[Zman]string{
	AlosHashachar: "Alos HaShachar",
	ETT:           "Earliest Tallis and Tefillin",
	Misheyakir:    "Misheyakir",
	Netz:          "Netz",
	SZKS:          "Sof Zman Krias Shma",
	MASZKS:        "Sof Zman Krias Shma (MGA)",
	SZT:           "Sof Zman Tefilla",
	MASZT:         "Sof Zman Tefilla (MGA)",
	Chatzos:       "Chatzos",
	MinchaGedola:  "Mincha Gedola",
	MinchaKetana:  "Mincha Ketana",
	PlagHamincha:  "Plag HaMincha",
	Shekiya:       "Shekiya",
	EarliestShema: "Earliest Shema",
	Tzes:          "Tzes",
	ChatzosLaila:  "Chatzos Laila",
}

// String は表示名を返す。
func (z Zman) String() string {
	if name, ok := displayNames[z]; ok {
		return name
	}
	return string(z)
}

// Valid は定義済みのズマンかどうかを返す。
func (z Zman) Valid() bool {
	_, ok := displayNames[z]
	return ok
}

// ParseZman は文字列をZmanに変換する。未定義の名前はエラーを返す。
func ParseZman(s string) (Zman, error) {
	z := Zman(s)
	if !z.Valid() {
		return "", fmt.Errorf("未定義のズマンです: %q", s)
	}
	return z, nil
}

// Times は1日分のズマンを保持する。値がないズマンはその日に存在しない。
type Times map[Zman]time.Time

// Get は指定ズマンの時刻を返す。
func (t Times) Get(z Zman) (time.Time, bool) {
	at, ok := t[z]
	return at, ok
}

// Oracle は日付ごとのズマンを提供する。
// dateは暦日として扱い、時刻部分は無視される。
type Oracle interface {
	TimesFor(ctx context.Context, date time.Time) (Times, error)
}
