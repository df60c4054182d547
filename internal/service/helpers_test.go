package service

import (
	"context"
	"io"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/fouadsmari/DIA360-sub000/internal/interfaces"
	"github.com/fouadsmari/DIA360-sub000/internal/model"
	"github.com/fouadsmari/DIA360-sub000/internal/repository"

	"github.com/glebarez/sqlite"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func quietLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "dia360.db")), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, db.AutoMigrate(
		&model.User{},
		&model.Client{},
		&model.ClientAdAccount{},
		&model.FacebookCredential{},
		&model.AdsMetric{},
		&model.SyncRun{},
	))
	return db
}

// fakeInsights serves canned rows or errors per requested day.
type fakeInsights struct {
	mu    sync.Mutex
	rows  map[string][]model.InsightRow
	errs  map[string]error
	calls []model.InsightsRequest
	// gate, when set, holds every call until it is closed
	gate chan struct{}
}

func newFakeInsights() *fakeInsights {
	return &fakeInsights{rows: map[string][]model.InsightRow{}, errs: map[string]error{}}
}

func (f *fakeInsights) FetchInsights(ctx context.Context, req model.InsightsRequest) ([]model.InsightRow, error) {
	if f.gate != nil {
		select {
		case <-f.gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, req)
	if err := f.errs[req.Since]; err != nil {
		return nil, err
	}
	return f.rows[req.Since], nil
}

func (f *fakeInsights) days() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, 0, len(f.calls))
	for _, c := range f.calls {
		out = append(out, c.Since)
	}
	return out
}

func insightRow(ad, day, spend, impressions, clicks string) model.InsightRow {
	return model.InsightRow{
		CampaignID:  "c1",
		AdsetID:     "s1",
		AdID:        ad,
		DateStart:   day,
		DateStop:    day,
		Spend:       model.FlexNumber(spend),
		Impressions: model.FlexNumber(impressions),
		Clicks:      model.FlexNumber(clicks),
	}
}

type staticTokens struct {
	token string
	err   error
}

func (s staticTokens) AccessToken(context.Context) (string, error) {
	return s.token, s.err
}

type countingPacer struct {
	mu    sync.Mutex
	waits int
}

func (p *countingPacer) Wait(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.waits++
	return ctx.Err()
}

type recordingInvalidator struct {
	mu       sync.Mutex
	accounts []string
}

func (r *recordingInvalidator) InvalidateAccount(_ context.Context, accountID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.accounts = append(r.accounts, accountID)
	return nil
}

type syncFixture struct {
	svc         *SyncService
	metrics     interfaces.MetricRepository
	runs        interfaces.SyncRunRepository
	client      *fakeInsights
	pacer       *countingPacer
	invalidator *recordingInvalidator
}

func newSyncFixture(t *testing.T, tokens staticTokens) *syncFixture {
	t.Helper()
	db := openTestDB(t)
	metrics := repository.NewMetricRepository(db)
	f := &syncFixture{
		metrics:     metrics,
		runs:        repository.NewSyncRunRepository(db),
		client:      newFakeInsights(),
		pacer:       &countingPacer{},
		invalidator: &recordingInvalidator{},
	}
	f.svc = NewSyncService(SyncDeps{
		Metrics:     metrics,
		Runs:        f.runs,
		Client:      f.client,
		Tokens:      tokens,
		Pacer:       f.pacer,
		Invalidator: f.invalidator,
		Options:     SyncOptions{Fields: []string{"spend", "impressions", "clicks"}, Limit: 100},
		Logger:      quietLogger(),
	})
	f.svc.now = func() time.Time { return time.Date(2025, 7, 10, 8, 0, 0, 0, time.UTC) }
	return f
}

func cachedMetric(account, ad, day string, spend float64, impressions, clicks int64) *model.AdsMetric {
	return &model.AdsMetric{
		AccountID:   account,
		Level:       model.LevelAd,
		AdID:        ad,
		DateStart:   day,
		DateStop:    day,
		Spend:       spend,
		Impressions: impressions,
		Clicks:      clicks,
		SyncedAt:    time.Date(2025, 7, 9, 0, 0, 0, 0, time.UTC),
	}
}
