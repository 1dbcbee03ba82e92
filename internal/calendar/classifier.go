package calendar

import (
	"regexp"
	"strings"

	"github.com/hitoshi/minyanim/internal/model"
)

// Classification は分類結果と判定理由。
type Classification struct {
	Value  model.MinyanClassification
	Reason string
}

type namedPattern struct {
	name    string
	pattern *regexp.Regexp
}

func patterns(words ...string) []namedPattern {
	out := make([]namedPattern, 0, len(words))
	for _, w := range words {
		out = append(out, namedPattern{name: w, pattern: regexp.MustCompile(`\b` + w + `\b`)})
	}
	return out
}

// nonMinyanPatterns は礼拝以外の行事を示す語。
var nonMinyanPatterns = patterns(
	`daf\s+yomi`, `shiur`, `lecture`, `class`, `learning`, `study`, `kolel`,
	`gemara`, `chabura`, `meeting`, `event`, `program`, `workshop`, `seminar`,
)

// genericMinyanPatterns は種類を特定できないが礼拝を示す語。
var genericMinyanPatterns = patterns(`minyan`, `davening`, `netz`, `neitz`, `vasikin`)

var megilaPattern = regexp.MustCompile(`\bmegill?ah?\b`)

// Classify はタイトル・種類・説明から取り込み項目を分類する。
// 判定順: ミンハ／マアリブ併記、非礼拝語、礼拝の種類のキーワード、汎用の礼拝語。
// いずれにも一致しない場合はOTHER。
func Classify(title, typ, description string) Classification {
	text := NormalizeTitle(combineFields(title, typ, description))

	if minchaMaarivPattern.MatchString(text) {
		return Classification{
			Value:  model.ClassificationMinchaMaariv,
			Reason: "Matched combined Mincha/Maariv pattern",
		}
	}

	for _, p := range nonMinyanPatterns {
		if p.pattern.MatchString(text) {
			return Classification{
				Value:  model.ClassificationNonMinyan,
				Reason: "Matched non-minyan pattern: " + p.name,
			}
		}
	}

	if c, ok := InferMinyanType(text); ok && c != model.ClassificationOther {
		return Classification{
			Value:  c,
			Reason: "Matched " + c.DisplayName() + " keyword",
		}
	}

	for _, p := range genericMinyanPatterns {
		if p.pattern.MatchString(text) {
			return Classification{
				Value:  model.ClassificationOther,
				Reason: "Matched minyan pattern: " + p.name,
			}
		}
	}

	return Classification{
		Value:  model.ClassificationOther,
		Reason: "No specific pattern matched",
	}
}

// IsMegilaReading はメギラ朗読を示す語を含むかどうかを返す。
func IsMegilaReading(text string) bool {
	return megilaPattern.MatchString(NormalizeTitle(text))
}

func combineFields(fields ...string) string {
	parts := make([]string, 0, len(fields))
	for _, f := range fields {
		if f = strings.TrimSpace(f); f != "" {
			parts = append(parts, f)
		}
	}
	return strings.Join(parts, " ")
}
