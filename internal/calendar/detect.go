package calendar

import (
	"bytes"
	"mime"
	"net/url"
	"path"
	"strings"

	"golang.org/x/net/html"
)

// Format はカレンダーデータの形式。
type Format string

const (
	FormatUnknown Format = "unknown"
	FormatCSV     Format = "csv"
	FormatICS     Format = "ics"
	FormatFeed    Format = "feed"
	FormatHTML    Format = "html"
)

// sniffSize は形式判定で検査するボディ先頭のバイト数。
const sniffSize = 4096

var mediaTypeFormats = map[string]Format{
	"text/calendar":        FormatICS,
	"application/ics":      FormatICS,
	"text/csv":             FormatCSV,
	"application/csv":      FormatCSV,
	"application/rss+xml":  FormatFeed,
	"application/atom+xml": FormatFeed,
	"text/html":            FormatHTML,
}

// DetectFormat はContent-Typeとボディ先頭から形式を判定する。
// text/plainやapplication/octet-streamなど曖昧な型はボディで判定する。
func DetectFormat(contentType string, body []byte) Format {
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		mediaType = strings.TrimSpace(strings.Split(contentType, ";")[0])
	}
	if f, ok := mediaTypeFormats[strings.ToLower(mediaType)]; ok {
		return f
	}
	return sniffFormat(body)
}

func sniffFormat(body []byte) Format {
	n := len(body)
	if n > sniffSize {
		n = sniffSize
	}
	prefix := strings.TrimSpace(strings.TrimPrefix(string(body[:n]), "\ufeff"))
	lower := strings.ToLower(prefix)

	switch {
	case prefix == "":
		return FormatUnknown
	case strings.HasPrefix(lower, "begin:vcalendar"):
		return FormatICS
	case strings.Contains(lower, "<rss") || strings.Contains(lower, "<rdf:rdf"):
		return FormatFeed
	case strings.Contains(lower, "<feed") && strings.Contains(lower, "http://www.w3.org/2005/atom"):
		return FormatFeed
	case strings.HasPrefix(lower, "<!doctype html") || strings.Contains(lower, "<html"):
		return FormatHTML
	case looksLikeCSVHeader(lower):
		return FormatCSV
	default:
		return FormatUnknown
	}
}

// looksLikeCSVHeader は1行目がカンマ区切りで開始列を含むかどうかを返す。
func looksLikeCSVHeader(lower string) bool {
	first, _, _ := strings.Cut(lower, "\n")
	if !strings.Contains(first, ",") {
		return false
	}
	for _, col := range strings.Split(first, ",") {
		col = strings.Trim(strings.TrimSpace(col), `"`)
		for _, alias := range startColumns {
			if col == alias {
				return true
			}
		}
	}
	return false
}

// SourceLink はHTMLページから検出したカレンダーデータへのリンク。
type SourceLink struct {
	URL    string
	Format Format
}

var linkTypeFormats = map[string]Format{
	"text/calendar":        FormatICS,
	"text/csv":             FormatCSV,
	"application/rss+xml":  FormatFeed,
	"application/atom+xml": FormatFeed,
}

var extensionFormats = map[string]Format{
	".ics":  FormatICS,
	".ical": FormatICS,
	".csv":  FormatCSV,
	".rss":  FormatFeed,
	".atom": FormatFeed,
}

// FindSourceLinks はHTMLのlink要素（rel=alternate）とa要素からカレンダーデータへのリンクを検出する。
// webcal://はhttps://に置き換える。相対URLはbaseURLを基準に解決する。
func FindSourceLinks(htmlBody []byte, baseURL string) []SourceLink {
	var links []SourceLink

	base, err := url.Parse(baseURL)
	if err != nil {
		return links
	}
	seen := make(map[string]bool)
	add := func(href string, f Format) {
		resolved := resolveURL(base, href)
		if resolved == "" || seen[resolved] {
			return
		}
		seen[resolved] = true
		links = append(links, SourceLink{URL: resolved, Format: f})
	}

	tokenizer := html.NewTokenizer(bytes.NewReader(htmlBody))
	for {
		tt := tokenizer.Next()
		if tt == html.ErrorToken {
			return links
		}
		if tt != html.StartTagToken && tt != html.SelfClosingTagToken {
			continue
		}

		tn, hasAttr := tokenizer.TagName()
		tagName := string(tn)
		if !hasAttr || (tagName != "link" && tagName != "a") {
			continue
		}

		attrs := make(map[string]string)
		for {
			key, val, more := tokenizer.TagAttr()
			attrs[strings.ToLower(string(key))] = string(val)
			if !more {
				break
			}
		}
		href := strings.TrimSpace(attrs["href"])
		if href == "" {
			continue
		}

		if tagName == "link" {
			if strings.ToLower(attrs["rel"]) != "alternate" {
				continue
			}
			if f, ok := linkTypeFormats[strings.ToLower(attrs["type"])]; ok {
				add(href, f)
			}
			continue
		}

		if f := formatFromHref(href); f != FormatUnknown {
			add(href, f)
		}
	}
}

func formatFromHref(href string) Format {
	lower := strings.ToLower(href)
	if strings.HasPrefix(lower, "webcal://") {
		return FormatICS
	}
	u, err := url.Parse(href)
	if err != nil {
		return FormatUnknown
	}
	if f, ok := extensionFormats[strings.ToLower(path.Ext(u.Path))]; ok {
		return f
	}
	return FormatUnknown
}

// resolveURL は相対URLを解決する。webcalスキームはhttpsとして扱う。
func resolveURL(base *url.URL, rawRef string) string {
	if strings.HasPrefix(strings.ToLower(rawRef), "webcal://") {
		rawRef = "https://" + rawRef[len("webcal://"):]
	}
	ref, err := url.Parse(rawRef)
	if err != nil {
		return ""
	}
	resolved := base.ResolveReference(ref)
	if resolved.Scheme != "http" && resolved.Scheme != "https" {
		return ""
	}
	return resolved.String()
}

// formatPriority は複数のリンクがある場合の優先度。
var formatPriority = map[Format]int{
	FormatICS:  30,
	FormatCSV:  20,
	FormatFeed: 10,
}

// SelectBestLink は候補から最適なリンクを選ぶ。
// 優先順位: 同一ホスト > iCalendar > CSV > RSS/Atom > 先頭
func SelectBestLink(links []SourceLink, pageURL string) *SourceLink {
	if len(links) == 0 {
		return nil
	}
	pageHost := extractHost(pageURL)

	bestIdx, bestScore := 0, -1
	for i, l := range links {
		score := formatPriority[l.Format]
		if extractHost(l.URL) == pageHost {
			score += 100
		}
		if score > bestScore {
			bestScore = score
			bestIdx = i
		}
	}
	return &links[bestIdx]
}

func extractHost(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	return strings.ToLower(u.Hostname())
}
