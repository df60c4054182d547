package interfaces

import (
	"context"

	"github.com/fouadsmari/DIA360-sub000/internal/model"
)

// InsightsClient external ads API: one call per request, no retry.
type InsightsClient interface {
	FetchInsights(ctx context.Context, req model.InsightsRequest) ([]model.InsightRow, error)
}

// MetricRepository local cache of daily insights rows
type MetricRepository interface {
	// DaysPresent distinct date_start values cached for the account at level within [from, to]
	DaysPresent(ctx context.Context, accountID string, level model.InsightsLevel, from, to string) ([]string, error)
	ListMetrics(ctx context.Context, filter model.MetricFilter) ([]*model.AdsMetric, error)
	PageMetrics(ctx context.Context, filter model.MetricFilter, page, pageSize int) ([]*model.AdsMetric, int64, error)
	// UpsertMetrics insert-or-replace keyed by model.IdentityColumns
	UpsertMetrics(ctx context.Context, rows []*model.AdsMetric) error
	PurgeMetrics(ctx context.Context, accountID, from, to string) (int64, error)
}

// SyncRunRepository persistence of sync run progress records
type SyncRunRepository interface {
	CreateRun(ctx context.Context, run *model.SyncRun) error
	UpdateRun(ctx context.Context, run *model.SyncRun) error
	GetRun(ctx context.Context, id string) (*model.SyncRun, error)
	LatestRun(ctx context.Context, accountID, from, to string) (*model.SyncRun, error)
}

// TokenSource resolves the access token used for Graph API calls.
type TokenSource interface {
	AccessToken(ctx context.Context) (string, error)
}

// Pacer spaces consecutive remote calls; *rate.Limiter satisfies it.
type Pacer interface {
	Wait(ctx context.Context) error
}

// SummaryInvalidator drops cached aggregates after the account's rows changed.
type SummaryInvalidator interface {
	InvalidateAccount(ctx context.Context, accountID string) error
}
