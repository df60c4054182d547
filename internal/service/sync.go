package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/fouadsmari/DIA360-sub000/internal/adapter/facebook"
	"github.com/fouadsmari/DIA360-sub000/internal/interfaces"
	"github.com/fouadsmari/DIA360-sub000/internal/model"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// SyncOptions what each insights call asks for
type SyncOptions struct {
	Fields     []string
	Breakdowns []string
	Level      model.InsightsLevel
	Limit      int
	// RunTimeout bounds a background run; 0 means no bound.
	RunTimeout time.Duration
}

// SyncDeps collaborators of SyncService. Pacer and Invalidator are optional.
type SyncDeps struct {
	Metrics     interfaces.MetricRepository
	Runs        interfaces.SyncRunRepository
	Client      interfaces.InsightsClient
	Tokens      interfaces.TokenSource
	Pacer       interfaces.Pacer
	Invalidator interfaces.SummaryInvalidator
	Guard       *RunGuard
	Options     SyncOptions
	Logger      *logrus.Logger
}

// SyncService fills cache gaps: idle → syncing → completed | failed.
// Days are fetched one at a time; there is no retry, a later trigger re-plans what is still missing.
type SyncService struct {
	metrics     interfaces.MetricRepository
	runs        interfaces.SyncRunRepository
	analyzer    *AvailabilityAnalyzer
	client      interfaces.InsightsClient
	tokens      interfaces.TokenSource
	pacer       interfaces.Pacer
	invalidator interfaces.SummaryInvalidator
	guard       *RunGuard
	opts        SyncOptions
	logger      *logrus.Logger
	now         func() time.Time
	background  sync.WaitGroup
}

func NewSyncService(deps SyncDeps) *SyncService {
	guard := deps.Guard
	if guard == nil {
		guard = NewRunGuard()
	}
	opts := deps.Options
	if opts.Level == "" {
		opts.Level = model.LevelAd
	}
	return &SyncService{
		metrics:     deps.Metrics,
		runs:        deps.Runs,
		analyzer:    NewAvailabilityAnalyzer(deps.Metrics, opts.Level),
		client:      deps.Client,
		tokens:      deps.Tokens,
		pacer:       deps.Pacer,
		invalidator: deps.Invalidator,
		guard:       guard,
		opts:        opts,
		logger:      deps.Logger,
		now:         time.Now,
	}
}

// SmartSyncResult answer of the check-and-sync operation
type SmartSyncResult struct {
	Availability   *Availability  `json:"availability"`
	CanDisplay     bool           `json:"can_display"`
	HasPartialData bool           `json:"has_partial_data"`
	SyncRunning    bool           `json:"sync_running"`
	Run            *model.SyncRun `json:"run,omitempty"`
}

// Availability read-only gap analysis.
func (s *SyncService) Availability(ctx context.Context, accountID, from, to string) (*Availability, error) {
	accountID, r, err := s.validate(accountID, from, to)
	if err != nil {
		return nil, err
	}
	return s.analyzer.Analyze(ctx, accountID, r)
}

// SmartSync reports whether the range can be displayed and starts a background run for the
// missing days. A trigger for a range already being synced joins the in-flight run.
func (s *SyncService) SmartSync(ctx context.Context, accountID, from, to string) (*SmartSyncResult, error) {
	accountID, r, err := s.validate(accountID, from, to)
	if err != nil {
		return nil, err
	}
	avail, err := s.analyzer.Analyze(ctx, accountID, r)
	if err != nil {
		return nil, err
	}
	result := &SmartSyncResult{
		Availability:   avail,
		CanDisplay:     avail.Complete(),
		HasPartialData: len(avail.PresentDays) > 0,
	}
	if avail.Complete() {
		return result, nil
	}

	run, started, err := s.begin(ctx, accountID, r, avail)
	if err != nil {
		return nil, err
	}
	result.SyncRunning = true
	result.Run = run
	if !started {
		return result, nil
	}

	// the run outlives the request that triggered it
	bg := context.WithoutCancel(ctx)
	s.background.Add(1)
	go func() {
		defer s.background.Done()
		defer s.guard.Release(accountID, r, run.ID)
		runCtx := bg
		if s.opts.RunTimeout > 0 {
			var cancel context.CancelFunc
			runCtx, cancel = context.WithTimeout(bg, s.opts.RunTimeout)
			defer cancel()
		}
		// failures are recorded on the run record
		_ = s.execute(runCtx, run.Clone(), avail.MissingDays)
	}()
	return result, nil
}

// Run synchronizes the missing days of the range and returns the final run record.
// A fully cached range returns an unsaved idle record. The returned error is the
// run-fatal failure, if any; the record carries the same message.
func (s *SyncService) Run(ctx context.Context, accountID, from, to string) (*model.SyncRun, error) {
	accountID, r, err := s.validate(accountID, from, to)
	if err != nil {
		return nil, err
	}
	avail, err := s.analyzer.Analyze(ctx, accountID, r)
	if err != nil {
		return nil, err
	}
	if avail.Complete() {
		return s.idleRun(accountID, r), nil
	}

	run, started, err := s.begin(ctx, accountID, r, avail)
	if err != nil {
		return nil, err
	}
	if !started {
		return run, fmt.Errorf("%w: run %s", ErrSyncInProgress, run.ID)
	}
	defer s.guard.Release(accountID, r, run.ID)
	err = s.execute(ctx, run, avail.MissingDays)
	return run, err
}

// GetRun polls one run.
func (s *SyncService) GetRun(ctx context.Context, id string) (*model.SyncRun, error) {
	if id == "" {
		return nil, invalidf("run id is required")
	}
	return s.runs.GetRun(ctx, id)
}

// LatestRun latest run for the (account, range), or an idle record when there was none.
func (s *SyncService) LatestRun(ctx context.Context, accountID, from, to string) (*model.SyncRun, error) {
	accountID, r, err := s.validate(accountID, from, to)
	if err != nil {
		return nil, err
	}
	run, err := s.runs.LatestRun(ctx, accountID, r.From, r.To)
	if errors.Is(err, ErrNotFound) {
		return s.idleRun(accountID, r), nil
	}
	return run, err
}

// Purge deletes cached rows of the account, all of them when from and to are both empty,
// and drops its cached summaries. The purged days become missing again.
func (s *SyncService) Purge(ctx context.Context, accountID, from, to string) (int64, error) {
	accountID = facebook.NormalizeAccountID(accountID)
	if accountID == "" {
		return 0, invalidf("account_id is required")
	}
	if from != "" || to != "" {
		r, err := NewDateRange(from, to)
		if err != nil {
			return 0, err
		}
		from, to = r.From, r.To
	}
	n, err := s.metrics.PurgeMetrics(ctx, accountID, from, to)
	if err != nil {
		return 0, err
	}
	if s.invalidator != nil {
		if err := s.invalidator.InvalidateAccount(ctx, accountID); err != nil {
			s.logger.WithError(err).WithField("account_id", accountID).Warn("summary cache invalidation failed")
		}
	}
	s.logger.WithFields(logrus.Fields{"account_id": accountID, "date_from": from, "date_to": to, "rows": n}).Info("cached facebook metrics purged")
	return n, nil
}

// Wait blocks until background runs started by SmartSync have finished.
func (s *SyncService) Wait() {
	s.background.Wait()
}

func (s *SyncService) validate(accountID, from, to string) (string, DateRange, error) {
	accountID = facebook.NormalizeAccountID(accountID)
	if accountID == "" {
		return "", DateRange{}, invalidf("account_id is required")
	}
	r, err := NewDateRange(from, to)
	if err != nil {
		return "", DateRange{}, err
	}
	return accountID, r, nil
}

func (s *SyncService) idleRun(accountID string, r DateRange) *model.SyncRun {
	return &model.SyncRun{
		AccountID: accountID,
		DateFrom:  r.From,
		DateTo:    r.To,
		Status:    model.SyncStatusIdle,
	}
}

// begin leases the (account, range) key and records a syncing run. started=false means another
// run holds the lease; that run is returned instead.
func (s *SyncService) begin(ctx context.Context, accountID string, r DateRange, avail *Availability) (*model.SyncRun, bool, error) {
	runID := uuid.NewString()
	if holder, ok := s.guard.Acquire(accountID, r, runID); !ok {
		existing, err := s.runs.GetRun(ctx, holder)
		if err != nil {
			// the holder has not persisted its record yet
			existing = &model.SyncRun{ID: holder, AccountID: accountID, DateFrom: r.From, DateTo: r.To, Status: model.SyncStatusSyncing}
		}
		return existing, false, nil
	}

	run := &model.SyncRun{
		ID:        runID,
		AccountID: accountID,
		DateFrom:  r.From,
		DateTo:    r.To,
		Status:    model.SyncStatusSyncing,
		TotalDays: len(avail.MissingDays),
		StartedAt: s.now(),
	}
	if err := s.runs.CreateRun(ctx, run); err != nil {
		s.guard.Release(accountID, r, runID)
		return nil, false, err
	}
	s.logger.WithFields(logrus.Fields{
		"run_id":       run.ID,
		"account_id":   accountID,
		"date_from":    r.From,
		"date_to":      r.To,
		"missing_days": run.TotalDays,
	}).Info("facebook sync started")
	return run, true, nil
}

// execute fetches, maps and upserts each missing day in order, updating run as it goes.
func (s *SyncService) execute(ctx context.Context, run *model.SyncRun, days []string) error {
	log := s.logger.WithFields(logrus.Fields{"run_id": run.ID, "account_id": run.AccountID})
	defer s.invalidate(ctx, run)

	token, err := s.tokens.AccessToken(ctx)
	if err != nil {
		return s.fail(ctx, run, fmt.Errorf("resolve access token: %w", err))
	}

	for i, day := range days {
		if s.pacer != nil {
			if err := s.pacer.Wait(ctx); err != nil {
				return s.fail(ctx, run, fmt.Errorf("wait before %s: %w", day, err))
			}
		}

		rows, err := s.client.FetchInsights(ctx, model.InsightsRequest{
			AccessToken: token,
			AccountID:   run.AccountID,
			Since:       day,
			Until:       day,
			Fields:      s.opts.Fields,
			Level:       s.opts.Level,
			Breakdowns:  s.opts.Breakdowns,
			Limit:       s.opts.Limit,
		})
		if err != nil {
			return s.fail(ctx, run, err)
		}

		metrics, skipped := facebook.MapRows(rows, run.AccountID, day, s.opts.Level, s.now())
		for _, e := range skipped {
			log.WithError(e).WithField("day", day).Warn("insights row skipped")
		}
		if err := s.metrics.UpsertMetrics(ctx, metrics); err != nil {
			log.WithError(err).WithField("day", day).Error("storing insights failed")
			return s.fail(ctx, run, fmt.Errorf("store %s: %w", day, err))
		}

		run.RowsSkipped += len(skipped)
		run.RowsUpserted += len(metrics)
		run.CompletedDays = i + 1
		run.Progress = progress(run.CompletedDays, run.TotalDays)
		if err := s.runs.UpdateRun(ctx, run); err != nil {
			log.WithError(err).Warn("saving sync progress failed")
		}
		log.WithFields(logrus.Fields{"day": day, "rows": len(metrics), "progress": run.Progress}).Debug("day synced")
	}

	finished := s.now()
	run.Status = model.SyncStatusCompleted
	run.Progress = 100
	run.FinishedAt = &finished
	if err := s.runs.UpdateRun(ctx, run); err != nil {
		log.WithError(err).Error("saving completed sync run failed")
	}
	log.WithFields(logrus.Fields{
		"days":     run.CompletedDays,
		"upserted": run.RowsUpserted,
		"skipped":  run.RowsSkipped,
	}).Info("facebook sync completed")
	return nil
}

// fail finalizes run as failed, preserving the remote message when there is one.
func (s *SyncService) fail(ctx context.Context, run *model.SyncRun, cause error) error {
	finished := s.now()
	run.Status = model.SyncStatusFailed
	run.ErrorMessage = failureMessage(cause)
	run.FinishedAt = &finished
	// the run's own context may be what failed
	saveCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
	defer cancel()
	if err := s.runs.UpdateRun(saveCtx, run); err != nil {
		s.logger.WithError(err).WithField("run_id", run.ID).Error("saving failed sync run failed")
	}
	s.logger.WithError(cause).WithFields(logrus.Fields{
		"run_id":         run.ID,
		"account_id":     run.AccountID,
		"completed_days": run.CompletedDays,
		"total_days":     run.TotalDays,
	}).Warn("facebook sync failed")
	return cause
}

func (s *SyncService) invalidate(ctx context.Context, run *model.SyncRun) {
	if s.invalidator == nil || run.RowsUpserted == 0 {
		return
	}
	if err := s.invalidator.InvalidateAccount(context.WithoutCancel(ctx), run.AccountID); err != nil {
		s.logger.WithError(err).WithField("account_id", run.AccountID).Warn("summary cache invalidation failed")
	}
}

func failureMessage(err error) string {
	var remote interface{ RemoteMessage() string }
	if errors.As(err, &remote) && remote.RemoteMessage() != "" {
		return remote.RemoteMessage()
	}
	return err.Error()
}

// progress completed/total as a whole percentage, clamped to [0, 100]
func progress(completed, total int) int {
	if total <= 0 {
		return 100
	}
	p := completed * 100 / total
	if p > 100 {
		return 100
	}
	if p < 0 {
		return 0
	}
	return p
}
