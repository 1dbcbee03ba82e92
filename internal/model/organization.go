package model

import (
	"strings"
	"time"
)

// Nusach は祈祷の流儀を表す。
type Nusach string

// 流儀の一覧。
const (
	NusachEdotHamizrach Nusach = "EDOT_HAMIZRACH"
	NusachSefard        Nusach = "SEFARD"
	NusachAshkenaz      Nusach = "ASHKENAZ"
	NusachArizal        Nusach = "ARIZAL"
	NusachUnspecified   Nusach = "UNSPECIFIED"
)

var nusachDisplayNames = map[Nusach]string{
	NusachEdotHamizrach: "Edot Hamizrach",
	NusachSefard:        "Sefard",
	NusachAshkenaz:      "Ashkenaz",
	NusachArizal:        "Arizal",
	NusachUnspecified:   "Unspecified",
}

// DisplayName は表示名を返す。
func (n Nusach) DisplayName() string {
	if name, ok := nusachDisplayNames[n]; ok {
		return name
	}
	return nusachDisplayNames[NusachUnspecified]
}

// ParseNusach は文字列をNusachに変換する。該当しない場合はUNSPECIFIED。
func ParseNusach(s string) Nusach {
	n := Nusach(strings.ToUpper(strings.TrimSpace(s)))
	if _, ok := nusachDisplayNames[n]; ok {
		return n
	}
	return NusachUnspecified
}

// Organization はシナゴーグ等の団体を表す。
type Organization struct {
	ID                  string
	Name                string
	Address             string
	Color               string
	WebsiteURL          string
	Nusach              Nusach
	CalendarURL         string
	UseImportedCalendar bool
	CreatedAt           time.Time
	UpdatedAt           time.Time
}

// ImportEnabled はカレンダー取り込みが有効かどうかを返す。
// URLが空白のみの場合は無効とする。
func (o *Organization) ImportEnabled() bool {
	return o != nil && o.UseImportedCalendar && strings.TrimSpace(o.CalendarURL) != ""
}

// Location は団体内の礼拝場所を表す。
type Location struct {
	ID             string
	OrganizationID string
	Name           string
}
