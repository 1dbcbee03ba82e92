package middleware

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/hitoshi/minyanim/internal/model"
)

// retryAfterSeconds は再試行可能なエラーで返すRetry-Afterの秒数。
const retryAfterSeconds = 60

// ErrorResponseBody はAPIエラーの応答本文。
type ErrorResponseBody struct {
	Code      string `json:"code"`
	Message   string `json:"message"`
	Category  string `json:"category"`
	Action    string `json:"action"`
	Retryable bool   `json:"retryable,omitempty"`
	RequestID string `json:"request_id,omitempty"`
}

// WriteErrorResponse はapiErrをJSONで書き込む。
// RequestIDミドルウェアを通過していればリクエストIDを本文に含め、
// 再試行可能なエラーにはRetry-Afterを付ける。
func WriteErrorResponse(w http.ResponseWriter, statusCode int, apiErr *model.APIError) {
	h := w.Header()
	h.Set("Content-Type", "application/json")
	if apiErr.Retryable {
		h.Set("Retry-After", strconv.Itoa(retryAfterSeconds))
	}
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(ErrorResponseBody{
		Code:      apiErr.Code,
		Message:   apiErr.Message,
		Category:  apiErr.Category,
		Action:    apiErr.Action,
		Retryable: apiErr.Retryable,
		RequestID: h.Get(RequestIDHeader),
	})
}

// WriteInternalServerError は詳細を伏せた500応答を書き込む。詳細は呼び出し側でログに残す。
func WriteInternalServerError(w http.ResponseWriter) {
	WriteErrorResponse(w, http.StatusInternalServerError, &model.APIError{
		Code:     "INTERNAL_ERROR",
		Message:  "内部エラーが発生しました。",
		Category: model.CategorySystem,
		Action:   "しばらく待ってから再度お試しください。",
	})
}
