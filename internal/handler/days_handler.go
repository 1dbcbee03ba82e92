package handler

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/minyanim/internal/hebrew"
	"github.com/hitoshi/minyanim/internal/model"
	"github.com/hitoshi/minyanim/internal/schedule"
)

// DaysHandler は日の種別とヘブライ暦日付を返すAPIのハンドラー。
type DaysHandler struct {
	classifier schedule.DayClassifier
	calendar   schedule.LiturgicalCalendar
	location   *time.Location
	logger     *slog.Logger
}

// NewDaysHandler はDaysHandlerを生成する。
func NewDaysHandler(classifier schedule.DayClassifier, cal schedule.LiturgicalCalendar, loc *time.Location, logger *slog.Logger) *DaysHandler {
	return &DaysHandler{
		classifier: classifier,
		calendar:   cal,
		location:   loc,
		logger:     logger,
	}
}

type hebrewDateResponse struct {
	Year      int    `json:"year"`
	Month     int    `json:"month"`
	MonthName string `json:"month_name"`
	Day       int    `json:"day"`
	Display   string `json:"display"`
}

type dayResponse struct {
	Date          string             `json:"date"`
	Weekday       string             `json:"weekday"`
	DayType       string             `json:"day_type"`
	HebrewDate    hebrewDateResponse `json:"hebrew_date"`
	IsShabbos     bool               `json:"is_shabbos"`
	IsRoshChodesh bool               `json:"is_rosh_chodesh"`
	IsChanukah    bool               `json:"is_chanukah"`
	IsYomTov      bool               `json:"is_yom_tov"`
}

// GetDay は GET /api/days/{date} を処理する。
func (h *DaysHandler) GetDay(w http.ResponseWriter, r *http.Request) {
	raw := chi.URLParam(r, "date")
	if raw == "" {
		handleServiceError(w, h.logger, model.NewInvalidDateError(raw))
		return
	}
	date, err := parseDate(raw, h.location, time.Time{})
	if err != nil {
		handleServiceError(w, h.logger, err)
		return
	}

	hd := hebrew.FromGregorian(date)
	writeJSON(w, http.StatusOK, dayResponse{
		Date:    date.Format(dateLayout),
		Weekday: date.Weekday().String(),
		DayType: h.classifier.Classify(date).String(),
		HebrewDate: hebrewDateResponse{
			Year:      hd.Year,
			Month:     int(hd.Month),
			MonthName: hd.MonthName(),
			Day:       hd.Day,
			Display:   hd.String(),
		},
		IsShabbos:     h.calendar.IsShabbos(date),
		IsRoshChodesh: h.calendar.IsRoshChodesh(date),
		IsChanukah:    h.calendar.IsChanukah(date),
		IsYomTov:      h.calendar.IsYomTovAssurBemelacha(date),
	})
}
