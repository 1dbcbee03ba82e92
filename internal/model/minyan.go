package model

import (
	"strings"

	"github.com/hitoshi/minyanim/internal/schedule"
)

// MinyanType は礼拝またはカレンダー行事の種類を表す。
type MinyanType string

// 礼拝の種類（SHACHARIS〜MEGILA_READING）と礼拝以外の種類。
const (
	MinyanTypeShacharis     MinyanType = "SHACHARIS"
	MinyanTypeMincha        MinyanType = "MINCHA"
	MinyanTypeMaariv        MinyanType = "MAARIV"
	MinyanTypeMinchaMaariv  MinyanType = "MINCHA_MAARIV"
	MinyanTypeSelichos      MinyanType = "SELICHOS"
	MinyanTypeMegilaReading MinyanType = "MEGILAREADING"
	MinyanTypeNonMinyan     MinyanType = "NON_MINYAN"
	MinyanTypeOther         MinyanType = "OTHER"
)

var minyanTypeDisplayNames = map[MinyanType]string{
	MinyanTypeShacharis:     "Shacharis",
	MinyanTypeMincha:        "Mincha",
	MinyanTypeMaariv:        "Maariv",
	MinyanTypeMinchaMaariv:  "Mincha/Maariv",
	MinyanTypeSelichos:      "Selichos",
	MinyanTypeMegilaReading: "Megila Reading",
	MinyanTypeNonMinyan:     "Non-Minyan",
	MinyanTypeOther:         "Other",
}

// ParseMinyanType は保存値をMinyanTypeに変換する。大文字小文字は区別しない。
// 未知の値（旧形式の "MINYAN" を含む）はOTHERとする。
func ParseMinyanType(s string) MinyanType {
	t := MinyanType(strings.ToUpper(strings.TrimSpace(s)))
	if t == "MEGILA_READING" {
		return MinyanTypeMegilaReading
	}
	if _, ok := minyanTypeDisplayNames[t]; ok {
		return t
	}
	return MinyanTypeOther
}

// DisplayName は表示名を返す。
func (t MinyanType) DisplayName() string {
	if name, ok := minyanTypeDisplayNames[t]; ok {
		return name
	}
	return string(t)
}

// IsMinyan は礼拝かどうかを返す。
func (t MinyanType) IsMinyan() bool {
	switch t {
	case MinyanTypeShacharis, MinyanTypeMincha, MinyanTypeMaariv,
		MinyanTypeMinchaMaariv, MinyanTypeSelichos, MinyanTypeMegilaReading:
		return true
	}
	return false
}

// Minyan はルールに基づく定例の礼拝を表す。
type Minyan struct {
	ID             string
	OrganizationID string
	LocationID     string
	Type           MinyanType
	Schedule       schedule.Schedule
	Nusach         Nusach
	Enabled        bool
	Notes          string
	Whatsapp       string
}
