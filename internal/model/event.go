package model

import "time"

// EventSource はMinyanEventの生成元。
type EventSource string

// 生成元の一覧。
const (
	EventSourceImported EventSource = "IMPORTED"
	EventSourceRules    EventSource = "RULES"
)

// MinyanEvent は特定日の1件の礼拝を表す。リクエストごとに計算され、永続化しない。
type MinyanEvent struct {
	ID                 string
	Type               MinyanType
	OrganizationID     string
	OrganizationName   string
	OrganizationNusach Nusach
	LocationName       string
	StartTime          time.Time
	Qualifier          string
	Nusach             Nusach
	Notes              string
	Color              string
	Whatsapp           string
	Source             EventSource
}
