// Package calendar は団体カレンダーの取り込みを提供する。
// テキストの正規化、分類、フィンガープリント生成、各形式のパース、取り込み処理を含む。
package calendar

import (
	"crypto/sha256"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"github.com/hitoshi/minyanim/internal/model"
	"github.com/hitoshi/minyanim/internal/schedule"
)

// NormalizedEntry はCalendarEntryから決定的に導出される正規化結果。
type NormalizedEntry struct {
	Title             string
	Time              *schedule.TimeOfDay
	Classification    model.MinyanClassification
	HasClassification bool
	Fingerprint       string
}

// Normalize は項目の正規化結果を返す。
func Normalize(orgID string, date time.Time, title string, t *schedule.TimeOfDay) NormalizedEntry {
	n := NormalizedEntry{
		Title:       NormalizeTitle(title),
		Time:        truncateSeconds(t),
		Fingerprint: GenerateFingerprint(orgID, date, title, t),
	}
	n.Classification, n.HasClassification = InferMinyanType(title)
	return n
}

// NormalizeTitle はタイトルを比較用に正規化する。
// 発音区別符号を除去し、区切り記号（- / & _）は空白に、その他の記号は削除する。
// 空白を1つにまとめ、前後の空白を除去して小文字にする。
func NormalizeTitle(raw string) string {
	if raw == "" {
		return ""
	}
	folded, _, err := transform.String(diacriticFolder(), raw)
	if err != nil {
		folded = raw
	}

	var b strings.Builder
	b.Grow(len(folded))
	for _, r := range folded {
		switch {
		case r == '-' || r == '/' || r == '&' || r == '_' || unicode.IsSpace(r):
			b.WriteRune(' ')
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			b.WriteRune(unicode.ToLower(r))
		}
	}
	return strings.Join(strings.Fields(b.String()), " ")
}

func diacriticFolder() transform.Transformer {
	return transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
}

// timePattern は "7:30 AM" "7:30am" "7.30 a.m." "19:30" "0730" "7:30:15 pm" "7 pm" に一致する。
// 区切りのない表記は4桁のみ受け付ける（NormalizeTimeで確認）。
// 文中の時刻（"Mincha 7:30 PM"）は対象外で、時刻だけの列として渡す。
var timePattern = regexp.MustCompile(`^(\d{1,2})(?:([:.]?)(\d{2}))?(?::(\d{2}))?\s*(?:([ap])\.?\s*(?:m\.?)?)?$`)

// NormalizeTime は時刻テキストを解析する。解析できない場合や範囲外の場合はfalse。
// 午前12時は00:00、午後12時は12:00となる。
func NormalizeTime(raw string) (schedule.TimeOfDay, bool) {
	s := strings.ToLower(strings.TrimSpace(raw))
	if s == "" {
		return schedule.TimeOfDay{}, false
	}
	m := timePattern.FindStringSubmatch(s)
	if m == nil {
		return schedule.TimeOfDay{}, false
	}

	hourText, sep, minuteText, secondText, meridiem := m[1], m[2], m[3], m[4], m[5]
	// "123" や "930" のような3桁は時刻とみなさない
	if minuteText != "" && sep == "" && len(hourText) != 2 {
		return schedule.TimeOfDay{}, false
	}

	hour, _ := strconv.Atoi(hourText)
	minute := 0
	if minuteText != "" {
		minute, _ = strconv.Atoi(minuteText)
	}
	second := 0
	if secondText != "" {
		second, _ = strconv.Atoi(secondText)
	}

	switch meridiem {
	case "a", "p":
		if hour < 1 || hour > 12 {
			return schedule.TimeOfDay{}, false
		}
		if meridiem == "a" && hour == 12 {
			hour = 0
		} else if meridiem == "p" && hour < 12 {
			hour += 12
		}
	default:
		// 24時間表記は分の指定が必須
		if minuteText == "" {
			return schedule.TimeOfDay{}, false
		}
	}

	t, err := schedule.NewTimeOfDay(hour, minute, second)
	if err != nil {
		return schedule.TimeOfDay{}, false
	}
	return t, true
}

var minchaMaarivPattern = regexp.MustCompile(`\bmincha\s*(?:and\s+)?(?:maariv|mariv|arvit)\b`)

type keywordRule struct {
	classification model.MinyanClassification
	keywords       []string
}

// keywordRules は判定順に並べたキーワード。
var keywordRules = []keywordRule{
	{model.ClassificationShacharis, []string{"shachar", "shachris", "morning"}},
	{model.ClassificationMincha, []string{"mincha", "afternoon"}},
	{model.ClassificationMaariv, []string{"maariv", "mariv", "arvit", "evening"}},
	{model.ClassificationSelichos, []string{"selichos", "selichot"}},
	// メギラ朗読に対応する分類はないためOTHERとする
	{model.ClassificationOther, []string{"megila", "megillah"}},
}

// InferMinyanType はテキストのキーワードから分類を推定する。
// ミンハとマアリブの併記を最初に判定する。いずれにも一致しない場合はfalse。
func InferMinyanType(text string) (model.MinyanClassification, bool) {
	normalized := NormalizeTitle(text)
	if normalized == "" {
		return "", false
	}
	if minchaMaarivPattern.MatchString(normalized) {
		return model.ClassificationMinchaMaariv, true
	}
	for _, rule := range keywordRules {
		for _, kw := range rule.keywords {
			if strings.Contains(normalized, kw) {
				return rule.classification, true
			}
		}
	}
	return "", false
}

// GenerateFingerprint は団体ID・日付・正規化タイトル・時刻（分単位）のSHA-256を16進64文字で返す。
// 時刻がnilの場合は時刻部分を空文字列とする。
func GenerateFingerprint(orgID string, date time.Time, title string, t *schedule.TimeOfDay) string {
	timePart := ""
	if t != nil {
		timePart = t.HHMM()
	}
	input := fmt.Sprintf("%s|%s|%s|%s", orgID, date.Format("2006-01-02"), NormalizeTitle(title), timePart)
	hash := sha256.Sum256([]byte(input))
	return fmt.Sprintf("%x", hash)
}

func truncateSeconds(t *schedule.TimeOfDay) *schedule.TimeOfDay {
	if t == nil {
		return nil
	}
	out := schedule.TimeOfDay{Hour: t.Hour, Minute: t.Minute}
	return &out
}
