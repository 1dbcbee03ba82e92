package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/minyanim/internal/calendar"
)

// ImportRunIDHeader は取り込み実行IDを返すレスポンスヘッダー。
const ImportRunIDHeader = "X-Import-Run-ID"

// CalendarImporter は1団体のカレンダー取り込みを行うインターフェース。
type CalendarImporter interface {
	ImportOrganization(ctx context.Context, orgID string) (*calendar.ImportResult, error)
}

// ImportHandler はカレンダー取り込みAPIのハンドラー。
type ImportHandler struct {
	importer CalendarImporter
	logger   *slog.Logger
}

// NewImportHandler はImportHandlerを生成する。
func NewImportHandler(importer CalendarImporter, logger *slog.Logger) *ImportHandler {
	return &ImportHandler{importer: importer, logger: logger}
}

// ImportCalendar は POST /api/organizations/{id}/calendar/import を処理する。
// 取り込みに成功した場合は結果を200で返す。
// 取得・解析の失敗はエラーコードに応じたステータスで返し、実行IDをヘッダーに付ける。
func (h *ImportHandler) ImportCalendar(w http.ResponseWriter, r *http.Request) {
	orgID := chi.URLParam(r, "id")

	result, err := h.importer.ImportOrganization(r.Context(), orgID)
	if result != nil && result.RunID != "" {
		w.Header().Set(ImportRunIDHeader, result.RunID)
	}
	if err != nil {
		handleServiceError(w, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, result)
}
