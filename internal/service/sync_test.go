package service

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/fouadsmari/DIA360-sub000/internal/adapter/facebook"
	"github.com/fouadsmari/DIA360-sub000/internal/model"
	"github.com/fouadsmari/DIA360-sub000/internal/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSmartSyncFillsOnlyMissingDays(t *testing.T) {
	ctx := context.Background()
	f := newSyncFixture(t, staticTokens{token: "tok"})
	require.NoError(t, f.metrics.UpsertMetrics(ctx, []*model.AdsMetric{
		cachedMetric("act_1", "10", "2025-07-02", 5, 500, 5),
	}))
	f.client.rows["2025-07-01"] = []model.InsightRow{insightRow("10", "2025-07-01", "12.50", "1000", "20")}
	f.client.rows["2025-07-03"] = []model.InsightRow{
		insightRow("10", "2025-07-03", "3", "300", "3"),
		insightRow("11", "2025-07-03", "4", "400", "4"),
	}

	res, err := f.svc.SmartSync(ctx, "1", "2025-07-01", "2025-07-03")
	require.NoError(t, err)
	assert.Equal(t, []string{"2025-07-01", "2025-07-03"}, res.Availability.MissingDays)
	assert.Equal(t, []string{"2025-07-02"}, res.Availability.PresentDays)
	assert.False(t, res.CanDisplay)
	assert.True(t, res.HasPartialData)
	assert.True(t, res.SyncRunning)
	require.NotNil(t, res.Run)
	assert.Equal(t, model.SyncStatusSyncing, res.Run.Status)
	assert.Equal(t, 2, res.Run.TotalDays)

	f.svc.Wait()

	run, err := f.svc.GetRun(ctx, res.Run.ID)
	require.NoError(t, err)
	assert.Equal(t, model.SyncStatusCompleted, run.Status)
	assert.Equal(t, 100, run.Progress)
	assert.Equal(t, 2, run.CompletedDays)
	assert.Equal(t, 3, run.RowsUpserted)
	assert.NotNil(t, run.FinishedAt)

	assert.Equal(t, []string{"2025-07-01", "2025-07-03"}, f.client.days())
	assert.Equal(t, 2, f.pacer.waits)
	assert.Equal(t, []string{"act_1"}, f.invalidator.accounts)
	for _, call := range f.client.calls {
		assert.Equal(t, "tok", call.AccessToken)
		assert.Equal(t, "act_1", call.AccountID)
		assert.Equal(t, call.Since, call.Until)
		assert.Equal(t, model.LevelAd, call.Level)
	}

	avail, err := f.svc.Availability(ctx, "act_1", "2025-07-01", "2025-07-03")
	require.NoError(t, err)
	assert.True(t, avail.Complete())
	assert.Len(t, avail.PresentDays, 3)
}

func TestSmartSyncCompleteRangeDoesNothing(t *testing.T) {
	ctx := context.Background()
	f := newSyncFixture(t, staticTokens{token: "tok"})
	require.NoError(t, f.metrics.UpsertMetrics(ctx, []*model.AdsMetric{
		cachedMetric("act_1", "10", "2025-07-01", 1, 10, 1),
		cachedMetric("act_1", "10", "2025-07-02", 1, 10, 1),
	}))

	res, err := f.svc.SmartSync(ctx, "act_1", "2025-07-01", "2025-07-02")
	require.NoError(t, err)
	assert.True(t, res.CanDisplay)
	assert.False(t, res.SyncRunning)
	assert.Nil(t, res.Run)
	f.svc.Wait()
	assert.Empty(t, f.client.days())

	latest, err := f.svc.LatestRun(ctx, "act_1", "2025-07-01", "2025-07-02")
	require.NoError(t, err)
	assert.Equal(t, model.SyncStatusIdle, latest.Status)
}

func TestRunRemoteErrorFailsRun(t *testing.T) {
	ctx := context.Background()
	f := newSyncFixture(t, staticTokens{token: "tok"})
	f.client.errs["2025-07-01"] = &facebook.APIError{StatusCode: 400, Code: 190, Message: "Invalid OAuth access token."}
	f.client.rows["2025-07-02"] = []model.InsightRow{insightRow("10", "2025-07-02", "1", "10", "1")}

	run, err := f.svc.Run(ctx, "act_1", "2025-07-01", "2025-07-02")
	require.Error(t, err)
	var apiErr *facebook.APIError
	assert.True(t, errors.As(err, &apiErr))
	require.NotNil(t, run)
	assert.Equal(t, model.SyncStatusFailed, run.Status)
	assert.Equal(t, "Invalid OAuth access token.", run.ErrorMessage)
	assert.Equal(t, 0, run.CompletedDays)

	// nothing after the failing day is fetched
	assert.Equal(t, []string{"2025-07-01"}, f.client.days())
	days, err := f.metrics.DaysPresent(ctx, "act_1", model.LevelAd, "2025-07-01", "2025-07-02")
	require.NoError(t, err)
	assert.Empty(t, days)
	assert.Empty(t, f.invalidator.accounts)

	stored, err := f.svc.GetRun(ctx, run.ID)
	require.NoError(t, err)
	assert.Equal(t, model.SyncStatusFailed, stored.Status)
	assert.Equal(t, "Invalid OAuth access token.", stored.ErrorMessage)

	latest, err := f.svc.LatestRun(ctx, "act_1", "2025-07-01", "2025-07-02")
	require.NoError(t, err)
	assert.Equal(t, run.ID, latest.ID)
}

func TestRunMissingTokenFailsRun(t *testing.T) {
	f := newSyncFixture(t, staticTokens{err: ErrNoAccessToken})

	run, err := f.svc.Run(context.Background(), "act_1", "2025-07-01", "2025-07-01")
	require.ErrorIs(t, err, ErrNoAccessToken)
	assert.Equal(t, model.SyncStatusFailed, run.Status)
	assert.Contains(t, run.ErrorMessage, "no facebook access token")
	assert.Empty(t, f.client.days())
}

func TestRunSkipsMalformedRows(t *testing.T) {
	ctx := context.Background()
	f := newSyncFixture(t, staticTokens{token: "tok"})
	f.client.rows["2025-07-01"] = []model.InsightRow{
		insightRow("10", "2025-07-01", "abc", "10", "1"),
		insightRow("11", "2025-07-01", "2", "20", "2"),
		insightRow("12", "2025-07-01", "-1", "20", "2"),
	}

	run, err := f.svc.Run(ctx, "act_1", "2025-07-01", "2025-07-01")
	require.NoError(t, err)
	assert.Equal(t, model.SyncStatusCompleted, run.Status)
	assert.Equal(t, 1, run.RowsUpserted)
	assert.Equal(t, 2, run.RowsSkipped)

	rows, err := f.metrics.ListMetrics(ctx, model.MetricFilter{AccountID: "act_1"})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "11", rows[0].AdID)
}

func TestRunSkipsUndecodableRowFromGraphAPI(t *testing.T) {
	ctx := context.Background()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"data":[
			{"ad_id":"10","date_start":"2025-07-01","date_stop":"2025-07-01","spend":"2","impressions":"20","clicks":"2"},
			{"ad_id":123,"date_start":"2025-07-01","date_stop":"2025-07-01","spend":"5","impressions":"50","clicks":"5"}
		]}`))
	}))
	t.Cleanup(srv.Close)

	db := openTestDB(t)
	metrics := repository.NewMetricRepository(db)
	svc := NewSyncService(SyncDeps{
		Metrics: metrics,
		Runs:    repository.NewSyncRunRepository(db),
		Client:  facebook.NewClientWithHTTP(srv.URL, "v21.0", srv.Client(), quietLogger()),
		Tokens:  staticTokens{token: "tok"},
		Options: SyncOptions{Fields: []string{"spend", "impressions", "clicks"}, Limit: 100},
		Logger:  quietLogger(),
	})

	run, err := svc.Run(ctx, "act_1", "2025-07-01", "2025-07-01")
	require.NoError(t, err)
	assert.Equal(t, model.SyncStatusCompleted, run.Status)
	assert.Equal(t, 1, run.RowsUpserted)
	assert.Equal(t, 1, run.RowsSkipped)

	rows, err := metrics.ListMetrics(ctx, model.MetricFilter{AccountID: "act_1"})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "10", rows[0].AdID)
}

func TestRunAtCampaignLevelStoresEachCampaign(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)
	metrics := repository.NewMetricRepository(db)
	// cached at ad level before the level switch
	require.NoError(t, metrics.UpsertMetrics(ctx, []*model.AdsMetric{cachedMetric("act_1", "10", "2025-07-01", 9, 90, 9)}))

	client := newFakeInsights()
	client.rows["2025-07-01"] = []model.InsightRow{
		{CampaignID: "c1", DateStart: "2025-07-01", Spend: "1", Impressions: "10", Clicks: "1"},
		{CampaignID: "c2", DateStart: "2025-07-01", Spend: "2", Impressions: "20", Clicks: "2"},
	}
	svc := NewSyncService(SyncDeps{
		Metrics: metrics,
		Runs:    repository.NewSyncRunRepository(db),
		Client:  client,
		Tokens:  staticTokens{token: "tok"},
		Options: SyncOptions{Level: model.LevelCampaign, Limit: 100},
		Logger:  quietLogger(),
	})

	avail, err := svc.Availability(ctx, "act_1", "2025-07-01", "2025-07-01")
	require.NoError(t, err)
	assert.Equal(t, []string{"2025-07-01"}, avail.MissingDays, "ad level rows do not cover the campaign level")

	run, err := svc.Run(ctx, "act_1", "2025-07-01", "2025-07-01")
	require.NoError(t, err)
	assert.Equal(t, 2, run.RowsUpserted)

	rows, err := metrics.ListMetrics(ctx, model.MetricFilter{AccountID: "act_1", Level: model.LevelCampaign})
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "c1", rows[0].CampaignID)
	assert.Equal(t, "c2", rows[1].CampaignID)

	avail, err = svc.Availability(ctx, "act_1", "2025-07-01", "2025-07-01")
	require.NoError(t, err)
	assert.True(t, avail.Complete())
}

func TestRunIsIdempotent(t *testing.T) {
	ctx := context.Background()
	f := newSyncFixture(t, staticTokens{token: "tok"})
	f.client.rows["2025-07-01"] = []model.InsightRow{
		insightRow("10", "2025-07-01", "1", "10", "1"),
		insightRow("11", "2025-07-01", "2", "20", "2"),
	}

	_, err := f.svc.Run(ctx, "act_1", "2025-07-01", "2025-07-01")
	require.NoError(t, err)

	// a cached range is left alone
	run, err := f.svc.Run(ctx, "act_1", "2025-07-01", "2025-07-01")
	require.NoError(t, err)
	assert.Equal(t, model.SyncStatusIdle, run.Status)
	assert.Equal(t, []string{"2025-07-01"}, f.client.days())

	// refetching the same rows replaces them instead of duplicating
	_, err = f.metrics.PurgeMetrics(ctx, "act_1", "2025-07-01", "2025-07-01")
	require.NoError(t, err)
	_, err = f.svc.Run(ctx, "act_1", "2025-07-01", "2025-07-01")
	require.NoError(t, err)
	again, skipped := facebook.MapRows(f.client.rows["2025-07-01"], "act_1", "2025-07-01", model.LevelAd, time.Now())
	require.Empty(t, skipped)
	require.NoError(t, f.metrics.UpsertMetrics(ctx, again))

	rows, err := f.metrics.ListMetrics(ctx, model.MetricFilter{AccountID: "act_1"})
	require.NoError(t, err)
	require.Len(t, rows, 2)
}

func TestRunEmptyDayStaysMissing(t *testing.T) {
	ctx := context.Background()
	f := newSyncFixture(t, staticTokens{token: "tok"})
	f.client.rows["2025-07-02"] = []model.InsightRow{insightRow("10", "2025-07-02", "1", "10", "1")}

	run, err := f.svc.Run(ctx, "act_1", "2025-07-01", "2025-07-02")
	require.NoError(t, err)
	assert.Equal(t, model.SyncStatusCompleted, run.Status)

	avail, err := f.svc.Availability(ctx, "act_1", "2025-07-01", "2025-07-02")
	require.NoError(t, err)
	assert.Equal(t, []string{"2025-07-01"}, avail.MissingDays)
}

func TestConcurrentTriggersJoinInFlightRun(t *testing.T) {
	ctx := context.Background()
	f := newSyncFixture(t, staticTokens{token: "tok"})
	f.client.gate = make(chan struct{})
	f.client.rows["2025-07-01"] = []model.InsightRow{insightRow("10", "2025-07-01", "1", "10", "1")}

	first, err := f.svc.SmartSync(ctx, "act_1", "2025-07-01", "2025-07-01")
	require.NoError(t, err)
	require.NotNil(t, first.Run)

	second, err := f.svc.SmartSync(ctx, "act_1", "2025-07-01", "2025-07-01")
	require.NoError(t, err)
	assert.True(t, second.SyncRunning)
	assert.Equal(t, first.Run.ID, second.Run.ID)

	run, err := f.svc.Run(ctx, "act_1", "2025-07-01", "2025-07-01")
	require.ErrorIs(t, err, ErrSyncInProgress)
	assert.Equal(t, first.Run.ID, run.ID)

	close(f.client.gate)
	f.svc.Wait()
	assert.Equal(t, []string{"2025-07-01"}, f.client.days())
	assert.Equal(t, 0, f.svc.guard.Len())

	done, err := f.svc.GetRun(ctx, first.Run.ID)
	require.NoError(t, err)
	assert.Equal(t, model.SyncStatusCompleted, done.Status)
}

func TestSyncValidation(t *testing.T) {
	f := newSyncFixture(t, staticTokens{token: "tok"})
	ctx := context.Background()

	_, err := f.svc.SmartSync(ctx, "", "2025-07-01", "2025-07-02")
	assert.ErrorIs(t, err, ErrInvalidInput)
	_, err = f.svc.SmartSync(ctx, "act_1", "07/01/2025", "2025-07-02")
	assert.ErrorIs(t, err, ErrInvalidInput)
	_, err = f.svc.GetRun(ctx, "")
	assert.ErrorIs(t, err, ErrInvalidInput)
	_, err = f.svc.GetRun(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)

	// from > to requests nothing
	res, err := f.svc.SmartSync(ctx, "act_1", "2025-07-03", "2025-07-01")
	require.NoError(t, err)
	assert.Equal(t, 0, res.Availability.Requested)
	assert.True(t, res.CanDisplay)
	assert.Empty(t, f.client.days())
}

func TestProgress(t *testing.T) {
	assert.Equal(t, 0, progress(0, 3))
	assert.Equal(t, 33, progress(1, 3))
	assert.Equal(t, 100, progress(3, 3))
	assert.Equal(t, 100, progress(4, 3))
	assert.Equal(t, 100, progress(0, 0))
}

func TestFailureMessage(t *testing.T) {
	assert.Equal(t, "Too many calls", failureMessage(&facebook.APIError{Code: 17, Message: "Too many calls"}))
	assert.Equal(t, "boom", failureMessage(errors.New("boom")))
}

func TestPurgeReopensDaysAndInvalidates(t *testing.T) {
	ctx := context.Background()
	f := newSyncFixture(t, staticTokens{token: "tok"})
	require.NoError(t, f.metrics.UpsertMetrics(ctx, []*model.AdsMetric{
		cachedMetric("act_1", "10", "2025-07-01", 1, 10, 1),
		cachedMetric("act_1", "10", "2025-07-02", 1, 10, 1),
	}))

	n, err := f.svc.Purge(ctx, "1", "2025-07-02", "2025-07-02")
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
	assert.Equal(t, []string{"act_1"}, f.invalidator.accounts)

	avail, err := f.svc.Availability(ctx, "act_1", "2025-07-01", "2025-07-02")
	require.NoError(t, err)
	assert.Equal(t, []string{"2025-07-02"}, avail.MissingDays)

	_, err = f.svc.Purge(ctx, "act_1", "2025-07-01", "")
	assert.ErrorIs(t, err, ErrInvalidInput)

	n, err = f.svc.Purge(ctx, "act_1", "", "")
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}
