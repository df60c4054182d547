package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/fouadsmari/DIA360-sub000/internal/interfaces"
	"github.com/fouadsmari/DIA360-sub000/internal/model"

	"gorm.io/gorm"
)

// ErrNotFound returned when a looked-up record does not exist.
var ErrNotFound = errors.New("record not found")

type syncRunRepository struct {
	db *gorm.DB
}

// NewSyncRunRepository creates the sync run repository.
func NewSyncRunRepository(db *gorm.DB) interfaces.SyncRunRepository {
	return &syncRunRepository{db: db}
}

func (r *syncRunRepository) CreateRun(ctx context.Context, run *model.SyncRun) error {
	if err := r.db.WithContext(ctx).Create(run).Error; err != nil {
		return fmt.Errorf("create sync run: %w", err)
	}
	return nil
}

// UpdateRun persists the mutable progress fields of run.
func (r *syncRunRepository) UpdateRun(ctx context.Context, run *model.SyncRun) error {
	err := r.db.WithContext(ctx).Model(&model.SyncRun{}).
		Where("id = ?", run.ID).
		Select("status", "total_days", "completed_days", "progress", "rows_upserted", "rows_skipped",
			"error_message", "finished_at", "updated_at").
		Updates(run).Error
	if err != nil {
		return fmt.Errorf("update sync run %s: %w", run.ID, err)
	}
	return nil
}

func (r *syncRunRepository) GetRun(ctx context.Context, id string) (*model.SyncRun, error) {
	var run model.SyncRun
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&run).Error; err != nil {
		return nil, wrapNotFound(err, "sync run "+id)
	}
	return &run, nil
}

// LatestRun most recently started run for exactly this (account, range)
func (r *syncRunRepository) LatestRun(ctx context.Context, accountID, from, to string) (*model.SyncRun, error) {
	var run model.SyncRun
	err := r.db.WithContext(ctx).
		Where("account_id = ? AND date_from = ? AND date_to = ?", accountID, from, to).
		Order("started_at DESC").
		First(&run).Error
	if err != nil {
		return nil, wrapNotFound(err, "sync run for "+accountID)
	}
	return &run, nil
}

func wrapNotFound(err error, what string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("%s: %w", what, ErrNotFound)
	}
	return fmt.Errorf("load %s: %w", what, err)
}
