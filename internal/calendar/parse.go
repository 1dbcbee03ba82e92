package calendar

import (
	"bytes"
	"fmt"
	"log/slog"
	"time"
)

// ParseDocument は判定済みの形式に応じてパーサーを選択する。
func ParseDocument(format Format, body []byte, w Window, loc *time.Location, logger *slog.Logger) ([]ParsedEntry, error) {
	switch format {
	case FormatCSV:
		return ParseCSV(bytes.NewReader(body), loc, logger)
	case FormatICS:
		return ParseICS(body, w, loc, logger)
	case FormatFeed:
		return ParseFeed(body, w, loc)
	default:
		return nil, fmt.Errorf("未対応の形式です: %s", format)
	}
}
