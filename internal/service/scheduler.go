package service

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/fouadsmari/DIA360-sub000/internal/model"

	"github.com/alitto/pond/v2"
	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
)

// AccountLister ad accounts swept by the scheduler
type AccountLister interface {
	LinkedAdAccounts(ctx context.Context) ([]string, error)
}

// RangeSyncer runs one synchronous sync; *SyncService satisfies it.
type RangeSyncer interface {
	Run(ctx context.Context, accountID, from, to string) (*model.SyncRun, error)
}

// SchedulerOptions cron spec and sweep shape
type SchedulerOptions struct {
	Spec         string
	LookbackDays int
	Workers      int
	// SweepTimeout bounds one whole sweep; 0 means no bound.
	SweepTimeout time.Duration
}

// SweepResult outcome counts of one sweep
type SweepResult struct {
	Accounts  int `json:"accounts"`
	Completed int `json:"completed"`
	Failed    int `json:"failed"`
	Skipped   int `json:"skipped"`
}

// Scheduler periodically fills the lookback window of every linked ad account.
type Scheduler struct {
	cron     *cron.Cron
	accounts AccountLister
	syncer   RangeSyncer
	opts     SchedulerOptions
	logger   *logrus.Logger
	now      func() time.Time
	running  atomic.Bool
}

func NewScheduler(accounts AccountLister, syncer RangeSyncer, opts SchedulerOptions, logger *logrus.Logger) (*Scheduler, error) {
	if opts.Workers <= 0 {
		opts.Workers = 1
	}
	if opts.LookbackDays <= 0 {
		opts.LookbackDays = 1
	}
	s := &Scheduler{
		accounts: accounts,
		syncer:   syncer,
		opts:     opts,
		logger:   logger,
		now:      time.Now,
	}
	// seconds field optional: "0 30 3 * * *" and "30 3 * * *" are the same schedule
	parser := cron.NewParser(cron.SecondOptional | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)
	s.cron = cron.New(cron.WithParser(parser), cron.WithChain(cron.Recover(cron.PrintfLogger(logger))))
	if _, err := s.cron.AddFunc(opts.Spec, s.tick); err != nil {
		return nil, fmt.Errorf("invalid sync cron %q: %w", opts.Spec, err)
	}
	return s, nil
}

func (s *Scheduler) Start() {
	s.cron.Start()
	s.logger.WithFields(logrus.Fields{"cron": s.opts.Spec, "lookback_days": s.opts.LookbackDays}).Info("facebook sync scheduler started")
}

// Stop waits for a sweep in progress to finish.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
}

func (s *Scheduler) tick() {
	ctx := context.Background()
	if s.opts.SweepTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.opts.SweepTimeout)
		defer cancel()
	}
	if _, err := s.Sweep(ctx); err != nil {
		s.logger.WithError(err).Warn("scheduled facebook sync failed")
	}
}

// Sweep syncs the lookback range of every linked account, Workers at a time.
// Overlapping sweeps are skipped.
func (s *Scheduler) Sweep(ctx context.Context) (*SweepResult, error) {
	if !s.running.CompareAndSwap(false, true) {
		s.logger.Info("previous facebook sync sweep still running, skipping")
		return &SweepResult{}, nil
	}
	defer s.running.Store(false)

	accounts, err := s.accounts.LinkedAdAccounts(ctx)
	if err != nil {
		return nil, fmt.Errorf("list linked ad accounts: %w", err)
	}
	r := LookbackRange(s.now(), s.opts.LookbackDays)
	result := &SweepResult{Accounts: len(accounts)}
	if len(accounts) == 0 {
		return result, nil
	}

	var completed, failed, skipped atomic.Int64
	pool := pond.NewPool(s.opts.Workers, pond.WithQueueSize(len(accounts)))
	defer pool.StopAndWait()
	group := pool.NewGroupContext(ctx)
	groupCtx := group.Context()
	for _, accountID := range accounts {
		group.Submit(func() {
			if groupCtx.Err() != nil {
				return
			}
			run, err := s.syncer.Run(groupCtx, accountID, r.From, r.To)
			switch {
			case errors.Is(err, ErrSyncInProgress):
				skipped.Add(1)
			case err != nil:
				failed.Add(1)
				s.logger.WithError(err).WithField("account_id", accountID).Warn("scheduled account sync failed")
			case run != nil && run.Status == model.SyncStatusIdle:
				skipped.Add(1)
			default:
				completed.Add(1)
			}
		})
	}
	if err := group.Wait(); err != nil && !errors.Is(err, context.Canceled) && !errors.Is(err, pond.ErrGroupStopped) {
		s.logger.WithError(err).Warn("facebook sync sweep interrupted")
	}

	result.Completed = int(completed.Load())
	result.Failed = int(failed.Load())
	result.Skipped = int(skipped.Load())
	s.logger.WithFields(logrus.Fields{
		"accounts":  result.Accounts,
		"completed": result.Completed,
		"failed":    result.Failed,
		"skipped":   result.Skipped,
		"date_from": r.From,
		"date_to":   r.To,
	}).Info("facebook sync sweep finished")
	return result, ctx.Err()
}
