package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/minyanim/internal/model"
	"github.com/hitoshi/minyanim/internal/schedule"
)

// OrganizationFinder は団体を検索するインターフェース。見つからない場合はnil, nilを返す。
type OrganizationFinder interface {
	FindByID(ctx context.Context, id string) (*model.Organization, error)
}

// EventResolver は団体・日付の礼拝一覧を返すインターフェース。
type EventResolver interface {
	EventsForDate(ctx context.Context, orgID string, date time.Time) ([]model.MinyanEvent, error)
}

// EventsHandler は団体の礼拝一覧APIのハンドラー。
type EventsHandler struct {
	orgs       OrganizationFinder
	resolver   EventResolver
	classifier schedule.DayClassifier
	location   *time.Location
	now        Clock
	logger     *slog.Logger
}

// NewEventsHandler はEventsHandlerを生成する。
func NewEventsHandler(
	orgs OrganizationFinder,
	resolver EventResolver,
	classifier schedule.DayClassifier,
	loc *time.Location,
	now Clock,
	logger *slog.Logger,
) *EventsHandler {
	return &EventsHandler{
		orgs:       orgs,
		resolver:   resolver,
		classifier: classifier,
		location:   loc,
		now:        now,
		logger:     logger,
	}
}

type eventResponse struct {
	ID                 string `json:"id"`
	Type               string `json:"type"`
	TypeName           string `json:"type_name"`
	OrganizationID     string `json:"organization_id"`
	OrganizationName   string `json:"organization_name"`
	OrganizationNusach string `json:"organization_nusach"`
	LocationName       string `json:"location_name,omitempty"`
	StartTime          string `json:"start_time"`
	DisplayTime        string `json:"display_time"`
	Qualifier          string `json:"qualifier,omitempty"`
	Nusach             string `json:"nusach"`
	Notes              string `json:"notes,omitempty"`
	Color              string `json:"color"`
	Whatsapp           string `json:"whatsapp,omitempty"`
	Source             string `json:"source"`
}

type eventsResponse struct {
	OrganizationID string          `json:"organization_id"`
	Date           string          `json:"date"`
	DayType        string          `json:"day_type"`
	Events         []eventResponse `json:"events"`
}

// ListEvents は GET /api/organizations/{id}/events を処理する。
// dateクエリを省略した場合は設定タイムゾーンの今日を使う。
func (h *EventsHandler) ListEvents(w http.ResponseWriter, r *http.Request) {
	orgID := chi.URLParam(r, "id")

	date, err := parseDate(r.URL.Query().Get("date"), h.location, h.now())
	if err != nil {
		handleServiceError(w, h.logger, err)
		return
	}

	org, err := h.orgs.FindByID(r.Context(), orgID)
	if err != nil {
		handleServiceError(w, h.logger, err)
		return
	}
	if org == nil {
		handleServiceError(w, h.logger, model.NewOrganizationNotFoundError(orgID))
		return
	}

	events, err := h.resolver.EventsForDate(r.Context(), org.ID, date)
	if err != nil {
		handleServiceError(w, h.logger, err)
		return
	}

	resp := eventsResponse{
		OrganizationID: org.ID,
		Date:           date.Format(dateLayout),
		DayType:        h.classifier.Classify(date).String(),
		Events:         make([]eventResponse, 0, len(events)),
	}
	for i := range events {
		resp.Events = append(resp.Events, h.toEventResponse(&events[i]))
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *EventsHandler) toEventResponse(ev *model.MinyanEvent) eventResponse {
	start := ev.StartTime.In(h.location)
	return eventResponse{
		ID:                 ev.ID,
		Type:               string(ev.Type),
		TypeName:           ev.Type.DisplayName(),
		OrganizationID:     ev.OrganizationID,
		OrganizationName:   ev.OrganizationName,
		OrganizationNusach: string(ev.OrganizationNusach),
		LocationName:       ev.LocationName,
		StartTime:          start.Format(time.RFC3339),
		DisplayTime:        start.Format(time.Kitchen),
		Qualifier:          ev.Qualifier,
		Nusach:             string(ev.Nusach),
		Notes:              ev.Notes,
		Color:              ev.Color,
		Whatsapp:           ev.Whatsapp,
		Source:             string(ev.Source),
	}
}
