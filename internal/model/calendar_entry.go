package model

import (
	"time"

	"github.com/hitoshi/minyanim/internal/schedule"
)

// DuplicateReasonSimilar は同日に同じ正規化タイトルと時刻の項目がある場合の無効化理由。
const DuplicateReasonSimilar = "Auto-disabled: Similar entry exists"

// CalendarEntry は団体のカレンダーから取り込んだ1件の項目を表す。
// Fingerprintで一意に識別され、再取り込み時は既存行を更新する。
type CalendarEntry struct {
	ID                   int64
	OrganizationID       string
	Date                 time.Time
	StartTime            *schedule.TimeOfDay
	StartDatetime        *time.Time
	EndTime              *schedule.TimeOfDay
	EndDatetime          *time.Time
	Title                string
	Type                 string
	Name                 string
	Location             string
	Description          string
	HebrewDate           string
	RawText              string
	SourceURL            string
	Fingerprint          string
	Enabled              bool
	DuplicateReason      string
	Classification       MinyanClassification
	ClassificationReason string
	Notes                string
	ImportedAt           time.Time
	UpdatedAt            time.Time
	ScrapedAt            *time.Time
}
