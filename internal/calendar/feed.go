package calendar

import (
	"bytes"
	"fmt"
	"strings"
	"time"

	"github.com/mmcdole/gofeed"
)

// ParseFeed はRSS/Atomを解析し、公開日時（なければ更新日時）が取り込み期間内の記事を項目とする。
// 日時のない記事は対象外。
func ParseFeed(body []byte, w Window, loc *time.Location) ([]ParsedEntry, error) {
	fp := gofeed.NewParser()
	feed, err := fp.Parse(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("フィードのパースに失敗: %w", err)
	}

	var entries []ParsedEntry
	for _, item := range feed.Items {
		if item == nil {
			continue
		}
		at := item.PublishedParsed
		if at == nil {
			at = item.UpdatedParsed
		}
		if at == nil {
			continue
		}
		start := at.In(loc)
		if !w.Contains(start) {
			continue
		}

		title := strings.TrimSpace(item.Title)
		typ := ""
		if len(item.Categories) > 0 {
			typ = strings.TrimSpace(item.Categories[0])
		}
		description := strings.TrimSpace(item.Description)

		p := ParsedEntry{
			Title:       firstNonEmpty(title, typ, untitledEvent),
			Name:        title,
			Type:        typ,
			Description: description,
			RawText:     buildRawText(typ, title, "", description),
		}
		p.setStart(start)
		entries = append(entries, p)
	}
	return entries, nil
}
