package provider

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/hitoshi/minyanim/internal/model"
	"github.com/hitoshi/minyanim/internal/schedule"
)

// RuleBasedProvider は定例礼拝のスケジュールから礼拝一覧を計算する。すべての団体を扱う。
type RuleBasedProvider struct {
	minyanim   MinyanReader
	locations  LocationReader
	classifier schedule.DayClassifier
	evaluator  schedule.RuleEvaluator
	logger     *slog.Logger
}

// NewRuleBasedProvider はRuleBasedProviderを生成する。
func NewRuleBasedProvider(
	minyanim MinyanReader,
	locations LocationReader,
	classifier schedule.DayClassifier,
	evaluator schedule.RuleEvaluator,
	logger *slog.Logger,
) *RuleBasedProvider {
	return &RuleBasedProvider{
		minyanim:   minyanim,
		locations:  locations,
		classifier: classifier,
		evaluator:  evaluator,
		logger:     logger,
	}
}

func (p *RuleBasedProvider) Name() string { return "rules" }

func (p *RuleBasedProvider) Priority() int { return PriorityRuleBased }

func (p *RuleBasedProvider) FallbackOnEmpty() bool { return false }

func (p *RuleBasedProvider) CanHandle(context.Context, *model.Organization) bool { return true }

// EventsForDate は有効な定例礼拝ごとに開始時刻を計算する。
// 礼拝なしの日と、ズマンが得られない日は含めない。
// 1件の時刻計算や場所の取得に失敗した礼拝は記録してスキップする。
func (p *RuleBasedProvider) EventsForDate(ctx context.Context, org *model.Organization, date time.Time) ([]model.MinyanEvent, error) {
	minyanim, err := p.minyanim.ListEnabledByOrganization(ctx, org.ID)
	if err != nil {
		return nil, fmt.Errorf("定例礼拝の取得に失敗: %w", err)
	}

	locationNames := make(map[string]string)
	events := make([]model.MinyanEvent, 0, len(minyanim))
	for _, m := range minyanim {
		start, ok, err := m.Schedule.StartInstant(ctx, p.classifier, p.evaluator, date)
		if err != nil {
			p.skipMinyan(org.ID, m.ID, "開始時刻を計算できないため礼拝をスキップします", err)
			continue
		}
		if !ok {
			continue
		}

		locationName, err := p.locationName(ctx, m.LocationID, locationNames)
		if err != nil {
			p.skipMinyan(org.ID, m.ID, "礼拝場所を取得できないため礼拝をスキップします", err)
			continue
		}

		events = append(events, model.MinyanEvent{
			ID:                 m.ID,
			Type:               m.Type,
			OrganizationID:     org.ID,
			OrganizationName:   org.Name,
			OrganizationNusach: org.Nusach,
			LocationName:       locationName,
			StartTime:          start,
			Qualifier:          m.Schedule.Resolve(p.classifier, date).Qualifier(),
			Nusach:             m.Nusach,
			Notes:              m.Notes,
			Color:              orgColor(org),
			Whatsapp:           m.Whatsapp,
			Source:             model.EventSourceRules,
		})
	}
	return events, nil
}

func (p *RuleBasedProvider) skipMinyan(orgID, minyanID, msg string, err error) {
	p.logger.Warn(msg,
		slog.String("organization_id", orgID),
		slog.String("minyan_id", minyanID),
		slog.String("error", err.Error()),
	)
}

func (p *RuleBasedProvider) locationName(ctx context.Context, id string, cache map[string]string) (string, error) {
	if id == "" {
		return "", nil
	}
	if name, ok := cache[id]; ok {
		return name, nil
	}
	loc, err := p.locations.FindByID(ctx, id)
	if err != nil {
		return "", fmt.Errorf("礼拝場所の取得に失敗 (location=%s): %w", id, err)
	}
	name := ""
	if loc != nil {
		name = loc.Name
	} else {
		p.logger.Warn("礼拝場所が見つかりません",
			slog.String("location_id", id),
		)
	}
	cache[id] = name
	return name, nil
}

var _ Provider = (*RuleBasedProvider)(nil)
