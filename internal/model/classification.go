package model

import "strings"

// MinyanClassification は取り込んだカレンダー項目の分類。
// SHACHARIS〜SELICHOSはMinyanTypeと1対1に対応し、NON_MINYANとOTHERには対応がない。
type MinyanClassification string

// 分類の一覧。
const (
	ClassificationShacharis    MinyanClassification = "SHACHARIS"
	ClassificationMincha       MinyanClassification = "MINCHA"
	ClassificationMaariv       MinyanClassification = "MAARIV"
	ClassificationMinchaMaariv MinyanClassification = "MINCHA_MAARIV"
	ClassificationSelichos     MinyanClassification = "SELICHOS"
	ClassificationNonMinyan    MinyanClassification = "NON_MINYAN"
	ClassificationOther        MinyanClassification = "OTHER"
)

var classificationDisplayNames = map[MinyanClassification]string{
	ClassificationShacharis:    "Shacharis",
	ClassificationMincha:       "Mincha",
	ClassificationMaariv:       "Maariv",
	ClassificationMinchaMaariv: "Mincha/Maariv",
	ClassificationSelichos:     "Selichos",
	ClassificationNonMinyan:    "Non-Minyan",
	ClassificationOther:        "Other",
}

var classificationToType = map[MinyanClassification]MinyanType{
	ClassificationShacharis:    MinyanTypeShacharis,
	ClassificationMincha:       MinyanTypeMincha,
	ClassificationMaariv:       MinyanTypeMaariv,
	ClassificationMinchaMaariv: MinyanTypeMinchaMaariv,
	ClassificationSelichos:     MinyanTypeSelichos,
}

// ParseClassification は名前または表示名を分類に変換する。該当しない場合はfalse。
func ParseClassification(s string) (MinyanClassification, bool) {
	s = strings.TrimSpace(s)
	for c, name := range classificationDisplayNames {
		if strings.EqualFold(s, string(c)) || strings.EqualFold(s, name) {
			return c, true
		}
	}
	return "", false
}

// DisplayName は表示名を返す。
func (c MinyanClassification) DisplayName() string {
	if name, ok := classificationDisplayNames[c]; ok {
		return name
	}
	return string(c)
}

// IsMinyan は礼拝に該当する分類かどうかを返す。
func (c MinyanClassification) IsMinyan() bool {
	_, ok := classificationToType[c]
	return ok
}

// ToMinyanType は対応するMinyanTypeを返す。NON_MINYANとOTHERはfalse。
func (c MinyanClassification) ToMinyanType() (MinyanType, bool) {
	t, ok := classificationToType[c]
	return t, ok
}

// ClassificationFromMinyanType はMinyanTypeを分類に変換する。
// MEGILA_READINGなど対応する分類がない種類はOTHERとなり、元には戻らない。
func ClassificationFromMinyanType(t MinyanType) MinyanClassification {
	for c, mt := range classificationToType {
		if mt == t {
			return c
		}
	}
	if t == MinyanTypeNonMinyan {
		return ClassificationNonMinyan
	}
	return ClassificationOther
}
