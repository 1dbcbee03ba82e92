package handler

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/hitoshi/minyanim/internal/zmanim"
)

// ZmanimHandler はズマン一覧APIのハンドラー。
type ZmanimHandler struct {
	oracle   zmanim.Oracle
	place    zmanim.Location
	location *time.Location
	now      Clock
	logger   *slog.Logger
}

// NewZmanimHandler はZmanimHandlerを生成する。
func NewZmanimHandler(oracle zmanim.Oracle, place zmanim.Location, loc *time.Location, now Clock, logger *slog.Logger) *ZmanimHandler {
	return &ZmanimHandler{
		oracle:   oracle,
		place:    place,
		location: loc,
		now:      now,
		logger:   logger,
	}
}

type zmanResponse struct {
	Zman string `json:"zman"`
	Name string `json:"name"`
	At   string `json:"at"`
}

type zmanimResponse struct {
	Date     string         `json:"date"`
	Location string         `json:"location"`
	Zmanim   []zmanResponse `json:"zmanim"`
}

// GetZmanim は GET /api/zmanim を処理する。
// 値のないズマンは含めず、一日の順に並べて返す。
func (h *ZmanimHandler) GetZmanim(w http.ResponseWriter, r *http.Request) {
	date, err := parseDate(r.URL.Query().Get("date"), h.location, h.now())
	if err != nil {
		handleServiceError(w, h.logger, err)
		return
	}

	times, err := h.oracle.TimesFor(r.Context(), date)
	if err != nil {
		handleServiceError(w, h.logger, err)
		return
	}

	resp := zmanimResponse{
		Date:     date.Format(dateLayout),
		Location: h.place.Name,
		Zmanim:   make([]zmanResponse, 0, len(times)),
	}
	for _, z := range zmanim.All {
		at, ok := times.Get(z)
		if !ok {
			continue
		}
		resp.Zmanim = append(resp.Zmanim, zmanResponse{
			Zman: string(z),
			Name: z.String(),
			At:   at.In(h.location).Format(time.RFC3339),
		})
	}
	writeJSON(w, http.StatusOK, resp)
}
