package repository

import (
	"context"
	"fmt"

	"github.com/fouadsmari/DIA360-sub000/internal/interfaces"
	"github.com/fouadsmari/DIA360-sub000/internal/model"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// upsertBatchSize rows per INSERT statement; keeps bind parameters well under driver limits
const upsertBatchSize = 200

// metricUpdateColumns every non-identity column is replaced on conflict
var metricUpdateColumns = []string{
	"campaign_name", "adset_name", "ad_name",
	"spend", "impressions", "clicks", "reach", "frequency", "ctr", "cpc", "cpm",
	"actions", "action_values", "cost_per_action_type", "synced_at", "updated_at",
}

type metricRepository struct {
	db *gorm.DB
}

// NewMetricRepository creates the cached-metrics repository.
func NewMetricRepository(db *gorm.DB) interfaces.MetricRepository {
	return &metricRepository{db: db}
}

func (r *metricRepository) scoped(ctx context.Context, filter model.MetricFilter) *gorm.DB {
	db := r.db.WithContext(ctx).Model(&model.AdsMetric{}).Where("account_id = ?", filter.AccountID)
	if filter.DateFrom != "" {
		db = db.Where("date_start >= ?", filter.DateFrom)
	}
	if filter.DateTo != "" {
		db = db.Where("date_start <= ?", filter.DateTo)
	}
	if filter.Level != "" {
		db = db.Where("level = ?", filter.Level)
	}
	if filter.CampaignID != "" {
		db = db.Where("campaign_id = ?", filter.CampaignID)
	}
	if filter.AdID != "" {
		db = db.Where("ad_id = ?", filter.AdID)
	}
	return db
}

// DaysPresent distinct cached days for the account within [from, to]; an empty level counts rows of any level.
func (r *metricRepository) DaysPresent(ctx context.Context, accountID string, level model.InsightsLevel, from, to string) ([]string, error) {
	var days []string
	err := r.scoped(ctx, model.MetricFilter{AccountID: accountID, DateFrom: from, DateTo: to, Level: level}).
		Distinct("date_start").
		Order("date_start ASC").
		Pluck("date_start", &days).Error
	if err != nil {
		return nil, fmt.Errorf("query cached days: %w", err)
	}
	return days, nil
}

// ListMetrics every cached row matching filter, ordered by day
func (r *metricRepository) ListMetrics(ctx context.Context, filter model.MetricFilter) ([]*model.AdsMetric, error) {
	var rows []*model.AdsMetric
	if err := r.scoped(ctx, filter).Order("date_start ASC, id ASC").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("list cached metrics: %w", err)
	}
	return rows, nil
}

// PageMetrics paginated variant of ListMetrics
func (r *metricRepository) PageMetrics(ctx context.Context, filter model.MetricFilter, page, pageSize int) ([]*model.AdsMetric, int64, error) {
	if page <= 0 {
		page = 1
	}
	if pageSize <= 0 || pageSize > 500 {
		pageSize = 100
	}

	var total int64
	if err := r.scoped(ctx, filter).Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("count cached metrics: %w", err)
	}
	var rows []*model.AdsMetric
	if err := r.scoped(ctx, filter).
		Order("date_start DESC, spend DESC, id ASC").
		Offset((page - 1) * pageSize).
		Limit(pageSize).
		Find(&rows).Error; err != nil {
		return nil, 0, fmt.Errorf("page cached metrics: %w", err)
	}
	return rows, total, nil
}

// UpsertMetrics inserts rows or replaces the existing row with the same identity, in one transaction.
func (r *metricRepository) UpsertMetrics(ctx context.Context, rows []*model.AdsMetric) error {
	if len(rows) == 0 {
		return nil
	}
	columns := make([]clause.Column, 0, len(model.IdentityColumns))
	for _, c := range model.IdentityColumns {
		columns = append(columns, clause.Column{Name: c})
	}

	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := tx.Clauses(clause.OnConflict{
			Columns:   columns,
			DoUpdates: clause.AssignmentColumns(metricUpdateColumns),
		}).CreateInBatches(rows, upsertBatchSize).Error
		if err != nil {
			return fmt.Errorf("upsert %d cached metrics: %w", len(rows), err)
		}
		return nil
	})
}

// PurgeMetrics deletes cached rows of an account, optionally limited to [from, to].
func (r *metricRepository) PurgeMetrics(ctx context.Context, accountID, from, to string) (int64, error) {
	db := r.db.WithContext(ctx).Where("account_id = ?", accountID)
	if from != "" {
		db = db.Where("date_start >= ?", from)
	}
	if to != "" {
		db = db.Where("date_start <= ?", to)
	}
	res := db.Delete(&model.AdsMetric{})
	if res.Error != nil {
		return 0, fmt.Errorf("purge cached metrics: %w", res.Error)
	}
	return res.RowsAffected, nil
}
