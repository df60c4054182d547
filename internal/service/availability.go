package service

import (
	"context"
	"fmt"

	"github.com/fouadsmari/DIA360-sub000/internal/interfaces"
	"github.com/fouadsmari/DIA360-sub000/internal/model"
)

// Availability which requested days the local cache already holds for an account
type Availability struct {
	AccountID   string   `json:"account_id"`
	DateFrom    string   `json:"date_from"`
	DateTo      string   `json:"date_to"`
	Requested   int      `json:"requested_days"`
	PresentDays []string `json:"present_days"`
	MissingDays []string `json:"missing_days"`
}

// Complete every requested day is cached.
func (a *Availability) Complete() bool {
	return len(a.MissingDays) == 0
}

// AvailabilityAnalyzer compares requested days with days cached at one insights level. It never writes.
type AvailabilityAnalyzer struct {
	metrics interfaces.MetricRepository
	level   model.InsightsLevel
}

// NewAvailabilityAnalyzer rows cached at another level do not make a day present.
func NewAvailabilityAnalyzer(metrics interfaces.MetricRepository, level model.InsightsLevel) *AvailabilityAnalyzer {
	return &AvailabilityAnalyzer{metrics: metrics, level: level}
}

// Analyze returns requested days minus days with at least one cached row.
// A range with from > to requests nothing and does not touch the store.
func (a *AvailabilityAnalyzer) Analyze(ctx context.Context, accountID string, r DateRange) (*Availability, error) {
	result := &Availability{
		AccountID:   accountID,
		DateFrom:    r.From,
		DateTo:      r.To,
		PresentDays: []string{},
		MissingDays: []string{},
	}
	requested := r.Days()
	result.Requested = len(requested)
	if len(requested) == 0 {
		return result, nil
	}

	present, err := a.metrics.DaysPresent(ctx, accountID, a.level, r.From, r.To)
	if err != nil {
		return nil, fmt.Errorf("availability for %s: %w", accountID, err)
	}
	have := make(map[string]struct{}, len(present))
	for _, d := range present {
		have[d] = struct{}{}
	}
	for _, d := range requested {
		if _, ok := have[d]; ok {
			result.PresentDays = append(result.PresentDays, d)
		} else {
			result.MissingDays = append(result.MissingDays, d)
		}
	}
	return result, nil
}
