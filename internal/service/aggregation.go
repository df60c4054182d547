package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/fouadsmari/DIA360-sub000/internal/adapter/facebook"
	"github.com/fouadsmari/DIA360-sub000/internal/cache"
	"github.com/fouadsmari/DIA360-sub000/internal/interfaces"
	"github.com/fouadsmari/DIA360-sub000/internal/model"

	"github.com/sirupsen/logrus"
)

// summaryKind tag of cached AccountSummary envelopes
const summaryKind = "account_summary"

// MetricTotals summed counters and the rates derived from them
type MetricTotals struct {
	Spend       float64 `json:"spend"`
	Impressions int64   `json:"impressions"`
	Reach       int64   `json:"reach"`
	Clicks      int64   `json:"clicks"`
	CTR         float64 `json:"ctr"`
	CPC         float64 `json:"cpc"`
	CPM         float64 `json:"cpm"`
}

func (t *MetricTotals) add(m *model.AdsMetric) {
	t.Spend += m.Spend
	t.Impressions += m.Impressions
	t.Reach += m.Reach
	t.Clicks += m.Clicks
}

// derive recomputes the rates; a zero denominator yields 0.
func (t *MetricTotals) derive() {
	t.CTR = facebook.CTR(t.Clicks, t.Impressions)
	t.CPC = facebook.CPC(t.Spend, t.Clicks)
	t.CPM = facebook.CPM(t.Spend, t.Impressions)
}

// DailyMetrics totals of one calendar day
type DailyMetrics struct {
	Date string `json:"date"`
	MetricTotals
}

// DailyAverages counters averaged over the days of the period
type DailyAverages struct {
	Spend       float64 `json:"spend"`
	Impressions float64 `json:"impressions"`
	Reach       float64 `json:"reach"`
	Clicks      float64 `json:"clicks"`
}

// PeriodSummary aggregates of one date range
type PeriodSummary struct {
	DateFrom     string         `json:"date_from"`
	DateTo       string         `json:"date_to"`
	Days         int            `json:"days"`
	DaysWithData int            `json:"days_with_data"`
	Rows         int            `json:"rows"`
	Totals       MetricTotals   `json:"totals"`
	Averages     DailyAverages  `json:"averages"`
	Daily        []DailyMetrics `json:"daily"`
}

// MetricChanges percent change of each aggregate, current vs previous
type MetricChanges struct {
	Spend       float64 `json:"spend"`
	Impressions float64 `json:"impressions"`
	Reach       float64 `json:"reach"`
	Clicks      float64 `json:"clicks"`
	CTR         float64 `json:"ctr"`
	CPC         float64 `json:"cpc"`
	CPM         float64 `json:"cpm"`
}

// AccountSummary response of the aggregated metrics operation
type AccountSummary struct {
	AccountID string         `json:"account_id"`
	Current   PeriodSummary  `json:"current"`
	Previous  *PeriodSummary `json:"previous,omitempty"`
	Changes   *MetricChanges `json:"changes,omitempty"`
}

// SummaryRequest one range, optionally compared with a second one.
// ComparePrevious picks the equally long period right before the current one.
type SummaryRequest struct {
	AccountID       string
	DateFrom        string
	DateTo          string
	CompareFrom     string
	CompareTo       string
	ComparePrevious bool
}

// PercentChange (current − previous) / previous × 100. A previous value of 0 gives
// 100 when current is positive and 0 otherwise.
func PercentChange(current, previous float64) float64 {
	if previous == 0 {
		if current > 0 {
			return 100
		}
		return 0
	}
	return (current - previous) / previous * 100
}

// Compare percent change of every aggregate.
func Compare(current, previous MetricTotals) MetricChanges {
	return MetricChanges{
		Spend:       PercentChange(current.Spend, previous.Spend),
		Impressions: PercentChange(float64(current.Impressions), float64(previous.Impressions)),
		Reach:       PercentChange(float64(current.Reach), float64(previous.Reach)),
		Clicks:      PercentChange(float64(current.Clicks), float64(previous.Clicks)),
		CTR:         PercentChange(current.CTR, previous.CTR),
		CPC:         PercentChange(current.CPC, previous.CPC),
		CPM:         PercentChange(current.CPM, previous.CPM),
	}
}

// Summarize groups rows by day over r. Every day of r appears in Daily, zero-filled when uncached.
func Summarize(r DateRange, rows []*model.AdsMetric) PeriodSummary {
	days := r.Days()
	summary := PeriodSummary{
		DateFrom: r.From,
		DateTo:   r.To,
		Days:     len(days),
		Daily:    make([]DailyMetrics, 0, len(days)),
	}
	byDay := make(map[string]*DailyMetrics, len(days))
	for _, d := range days {
		summary.Daily = append(summary.Daily, DailyMetrics{Date: d})
	}
	for i := range summary.Daily {
		byDay[summary.Daily[i].Date] = &summary.Daily[i]
	}

	for _, m := range rows {
		day, ok := byDay[m.DateStart]
		if !ok {
			continue
		}
		day.add(m)
		summary.Totals.add(m)
		summary.Rows++
	}
	for i := range summary.Daily {
		if summary.Daily[i].Impressions > 0 || summary.Daily[i].Spend > 0 || summary.Daily[i].Clicks > 0 || summary.Daily[i].Reach > 0 {
			summary.DaysWithData++
		}
		summary.Daily[i].derive()
	}
	summary.Totals.derive()

	if n := float64(summary.Days); n > 0 {
		summary.Averages = DailyAverages{
			Spend:       summary.Totals.Spend / n,
			Impressions: float64(summary.Totals.Impressions) / n,
			Reach:       float64(summary.Totals.Reach) / n,
			Clicks:      float64(summary.Totals.Clicks) / n,
		}
	}
	return summary
}

// AggregationService reads cached rows and builds summaries, memoized in the summary cache.
type AggregationService struct {
	metrics interfaces.MetricRepository
	cache   *cache.SummaryCache
	level   model.InsightsLevel
	logger  *logrus.Logger
}

// NewAggregationService cache may be nil. Only rows of level are aggregated so a level
// change never double counts.
func NewAggregationService(metrics interfaces.MetricRepository, summaryCache *cache.SummaryCache, level model.InsightsLevel, logger *logrus.Logger) *AggregationService {
	if level == "" {
		level = model.LevelAd
	}
	return &AggregationService{metrics: metrics, cache: summaryCache, level: level, logger: logger}
}

// AccountSummary totals, daily series and, when a second range is given, the comparison deltas.
func (s *AggregationService) AccountSummary(ctx context.Context, req SummaryRequest) (*AccountSummary, error) {
	accountID := facebook.NormalizeAccountID(req.AccountID)
	if accountID == "" {
		return nil, invalidf("account_id is required")
	}
	current, err := NewDateRange(req.DateFrom, req.DateTo)
	if err != nil {
		return nil, err
	}
	var previous *DateRange
	switch {
	case req.CompareFrom != "" || req.CompareTo != "":
		r, err := NewDateRange(req.CompareFrom, req.CompareTo)
		if err != nil {
			return nil, fmt.Errorf("compare range: %w", err)
		}
		previous = &r
	case req.ComparePrevious:
		r := current.PreviousPeriod()
		previous = &r
	}

	var key string
	if s.cache != nil {
		generation, err := s.cache.Generation(ctx, accountID)
		if err != nil {
			s.logger.WithError(err).WithField("account_id", accountID).Warn("summary cache unavailable")
		} else {
			key = s.cacheKey(accountID, generation, current, previous)
		}
	}
	if key != "" {
		var cached AccountSummary
		hit, err := s.cache.Load(ctx, key, summaryKind, &cached)
		if err != nil {
			s.logger.WithError(err).WithField("key", key).Warn("summary cache read failed")
		} else if hit {
			return &cached, nil
		}
	}

	out := &AccountSummary{AccountID: accountID}
	cur, err := s.period(ctx, accountID, current)
	if err != nil {
		return nil, err
	}
	out.Current = cur
	if previous != nil {
		prev, err := s.period(ctx, accountID, *previous)
		if err != nil {
			return nil, err
		}
		changes := Compare(cur.Totals, prev.Totals)
		out.Previous = &prev
		out.Changes = &changes
	}

	if key != "" {
		if err := s.cache.Store(ctx, key, summaryKind, out); err != nil {
			s.logger.WithError(err).WithField("key", key).Warn("summary cache write failed")
		}
	}
	return out, nil
}

// ListRows paginated raw cached rows for the ads table view.
func (s *AggregationService) ListRows(ctx context.Context, filter model.MetricFilter, page, pageSize int) ([]*model.AdsMetric, int64, error) {
	filter.AccountID = facebook.NormalizeAccountID(filter.AccountID)
	if filter.AccountID == "" {
		return nil, 0, invalidf("account_id is required")
	}
	r, err := NewDateRange(filter.DateFrom, filter.DateTo)
	if err != nil {
		return nil, 0, err
	}
	if filter.Level != "" && !filter.Level.Valid() {
		return nil, 0, invalidf("unknown level %q", filter.Level)
	}
	filter.DateFrom, filter.DateTo = r.From, r.To
	return s.metrics.PageMetrics(ctx, filter, page, pageSize)
}

func (s *AggregationService) period(ctx context.Context, accountID string, r DateRange) (PeriodSummary, error) {
	if r.Empty() {
		return Summarize(r, nil), nil
	}
	rows, err := s.metrics.ListMetrics(ctx, model.MetricFilter{
		AccountID: accountID,
		DateFrom:  r.From,
		DateTo:    r.To,
		Level:     s.level,
	})
	if err != nil {
		return PeriodSummary{}, fmt.Errorf("summary for %s: %w", accountID, err)
	}
	return Summarize(r, rows), nil
}

func (s *AggregationService) cacheKey(accountID, generation string, current DateRange, previous *DateRange) string {
	parts := []string{string(s.level), current.From, current.To}
	if previous != nil {
		parts = append(parts, previous.From, previous.To)
	}
	return cache.AccountKey(accountID, generation, strings.Join(parts, ":"))
}
