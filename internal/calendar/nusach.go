package calendar

import (
	"regexp"

	"github.com/hitoshi/minyanim/internal/model"
)

// nusachRules は判定順に並べた流儀のキーワード。sephardはsefardより先に判定する。
var nusachRules = []struct {
	nusach  model.Nusach
	pattern *regexp.Regexp
}{
	{model.NusachEdotHamizrach, regexp.MustCompile(`\b(?:sephardic|sephardi|sefardi|edot|edot hamizrach)\b`)},
	{model.NusachArizal, regexp.MustCompile(`\barizal\b`)},
	{model.NusachSefard, regexp.MustCompile(`\b(?:sefard|sfard|nusach sefard|ns)\b`)},
	{model.NusachAshkenaz, regexp.MustCompile(`\bashkenaz\b`)},
}

// InferNusach は取り込み項目のテキストから流儀を推定する。一致しない場合はfallbackを返す。
func InferNusach(text string, fallback model.Nusach) model.Nusach {
	normalized := NormalizeTitle(text)
	for _, rule := range nusachRules {
		if rule.pattern.MatchString(normalized) {
			return rule.nusach
		}
	}
	return fallback
}
