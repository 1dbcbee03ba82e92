// Package model はドメインモデルを定義する。
package model

import (
	"errors"
	"fmt"
)

// エラーカテゴリ。クライアントは表示の出し分けに使う。
const (
	CategoryAuth       = "auth"
	CategoryValidation = "validation"
	CategoryCalendar   = "calendar"
	CategorySystem     = "system"
)

// APIError はAPIとワーカーで共通に扱うエラー。
// JSONレスポンスにはCode・Message・Category・Actionがそのまま載る。
type APIError struct {
	Code     string
	Message  string
	Category string
	Action   string // 利用者が取れる対処

	// Retryable は時間をおいて再試行すれば成功しうるエラーかどうか。
	Retryable bool
}

func (e *APIError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

const (
	ErrCodeOrganizationNotFound  = "ORGANIZATION_NOT_FOUND"
	ErrCodeInvalidDate           = "INVALID_DATE"
	ErrCodeCalendarNotConfigured = "CALENDAR_NOT_CONFIGURED"
	ErrCodeInvalidURL            = "INVALID_URL"
	ErrCodeSSRFBlocked           = "SSRF_BLOCKED"
	ErrCodeFetchFailed           = "FETCH_FAILED"
	ErrCodeParseFailed           = "PARSE_FAILED"
	ErrCodeUnauthorized          = "UNAUTHORIZED"
)

func NewOrganizationNotFoundError(orgID string) *APIError {
	return &APIError{
		Code:     ErrCodeOrganizationNotFound,
		Message:  fmt.Sprintf("団体 %q は登録されていません", orgID),
		Category: CategoryValidation,
		Action:   "/api/organizations で団体IDを確認してください。",
	}
}

func NewInvalidDateError(value string) *APIError {
	return &APIError{
		Code:     ErrCodeInvalidDate,
		Message:  fmt.Sprintf("日付を解釈できません: %q", value),
		Category: CategoryValidation,
		Action:   "日付は YYYY-MM-DD 形式で指定してください。",
	}
}

// NewCalendarNotConfiguredError はカレンダーURL未設定または取り込み無効の団体に対して返す。
func NewCalendarNotConfiguredError(orgID string) *APIError {
	return &APIError{
		Code:     ErrCodeCalendarNotConfigured,
		Message:  fmt.Sprintf("団体 %q はカレンダー取り込みの対象ではありません", orgID),
		Category: CategoryCalendar,
		Action:   "calendar_url を登録し use_imported_calendar を有効にしてください。",
	}
}

func NewInvalidURLError(reason string) *APIError {
	return &APIError{
		Code:     ErrCodeInvalidURL,
		Message:  fmt.Sprintf("カレンダーURLが不正です: %s", reason),
		Category: CategoryValidation,
		Action:   "http または https の絶対URLを登録してください。",
	}
}

// NewSSRFBlockedError はURLGuardが接続先を拒否したときに返す。
func NewSSRFBlockedError() *APIError {
	return &APIError{
		Code:     ErrCodeSSRFBlocked,
		Message:  "カレンダーURLの接続先が許可されていません。",
		Category: CategoryValidation,
		Action:   "インターネット上に公開されたカレンダーのURLを登録してください。",
	}
}

func NewFetchFailedError(reason string) *APIError {
	return &APIError{
		Code:     ErrCodeFetchFailed,
		Message:  fmt.Sprintf("カレンダーの取得に失敗しました: %s", reason),
		Category: CategoryCalendar,
		Action:   "団体のカレンダーが公開されているか確認してください。",
	}
}

// NewTransientFetchError は429/5xxや接続失敗など、時間をおけば回復しうる取得失敗。
func NewTransientFetchError(reason string) *APIError {
	e := NewFetchFailedError(reason)
	e.Action = "しばらく待ってから再度お試しください。"
	e.Retryable = true
	return e
}

// IsRetryable はerrが再試行可能な*APIErrorを含むかどうかを返す。
func IsRetryable(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Retryable
}

func NewParseFailedError(format string) *APIError {
	return &APIError{
		Code:     ErrCodeParseFailed,
		Message:  fmt.Sprintf("カレンダーを解析できませんでした（形式: %s）", format),
		Category: CategoryCalendar,
		Action:   "CSV・iCalendar・RSS/Atomのいずれかを公開しているURLか確認してください。",
	}
}

func NewUnauthorizedError() *APIError {
	return &APIError{
		Code:     ErrCodeUnauthorized,
		Message:  "管理者トークンが必要です。",
		Category: CategoryAuth,
		Action:   "Authorization: Bearer <ADMIN_TOKEN> を指定してください。",
	}
}
