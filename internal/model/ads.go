package model

import (
	"time"

	"gorm.io/datatypes"
)

// AdsMetric one cached insights row: entity × day × breakdown combination. The entity is
// identified by level plus the campaign, adset and ad ids, whichever the level fills in.
// Dates are YYYY-MM-DD strings so range filters compare lexically on every dialect.
// Breakdown columns default to '' rather than NULL so the composite unique index holds.
type AdsMetric struct {
	ID                uint64         `gorm:"column:id;primaryKey;autoIncrement" json:"id"`
	AccountID         string         `gorm:"column:account_id;type:varchar(64);not null;uniqueIndex:uq_ads_metric_identity,priority:1;index:idx_ads_metric_account_day,priority:1" json:"account_id"`
	Level             InsightsLevel  `gorm:"column:level;type:varchar(16);not null;default:ad;uniqueIndex:uq_ads_metric_identity,priority:2" json:"level"`
	CampaignID        string         `gorm:"column:campaign_id;type:varchar(64);not null;default:'';uniqueIndex:uq_ads_metric_identity,priority:3" json:"campaign_id"`
	CampaignName      string         `gorm:"column:campaign_name;type:varchar(512)" json:"campaign_name"`
	AdsetID           string         `gorm:"column:adset_id;type:varchar(64);not null;default:'';uniqueIndex:uq_ads_metric_identity,priority:4" json:"adset_id"`
	AdsetName         string         `gorm:"column:adset_name;type:varchar(512)" json:"adset_name"`
	AdID              string         `gorm:"column:ad_id;type:varchar(64);not null;default:'';uniqueIndex:uq_ads_metric_identity,priority:5" json:"ad_id"`
	AdName            string         `gorm:"column:ad_name;type:varchar(512)" json:"ad_name"`
	DateStart         string         `gorm:"column:date_start;type:varchar(10);not null;uniqueIndex:uq_ads_metric_identity,priority:6;index:idx_ads_metric_account_day,priority:2" json:"date_start"`
	DateStop          string         `gorm:"column:date_stop;type:varchar(10);not null;uniqueIndex:uq_ads_metric_identity,priority:7" json:"date_stop"`
	Age               string         `gorm:"column:age;type:varchar(16);not null;default:'';uniqueIndex:uq_ads_metric_identity,priority:8" json:"age"`
	Gender            string         `gorm:"column:gender;type:varchar(16);not null;default:'';uniqueIndex:uq_ads_metric_identity,priority:9" json:"gender"`
	Country           string         `gorm:"column:country;type:varchar(8);not null;default:'';uniqueIndex:uq_ads_metric_identity,priority:10" json:"country"`
	PublisherPlatform string         `gorm:"column:publisher_platform;type:varchar(32);not null;default:'';uniqueIndex:uq_ads_metric_identity,priority:11" json:"publisher_platform"`
	PlatformPosition  string         `gorm:"column:platform_position;type:varchar(64);not null;default:'';uniqueIndex:uq_ads_metric_identity,priority:12" json:"platform_position"`
	ImpressionDevice  string         `gorm:"column:impression_device;type:varchar(32);not null;default:'';uniqueIndex:uq_ads_metric_identity,priority:13" json:"impression_device"`
	Spend             float64        `gorm:"column:spend;type:numeric(18,4);not null;default:0" json:"spend"`
	Impressions       int64          `gorm:"column:impressions;type:bigint;not null;default:0" json:"impressions"`
	Clicks            int64          `gorm:"column:clicks;type:bigint;not null;default:0" json:"clicks"`
	Reach             int64          `gorm:"column:reach;type:bigint;not null;default:0" json:"reach"`
	Frequency         float64        `gorm:"column:frequency;type:numeric(12,6);not null;default:0" json:"frequency"`
	CTR               float64        `gorm:"column:ctr;type:numeric(12,6);not null;default:0" json:"ctr"`
	CPC               float64        `gorm:"column:cpc;type:numeric(18,6);not null;default:0" json:"cpc"`
	CPM               float64        `gorm:"column:cpm;type:numeric(18,6);not null;default:0" json:"cpm"`
	Actions           datatypes.JSON `gorm:"column:actions" json:"actions,omitempty"`
	ActionValues      datatypes.JSON `gorm:"column:action_values" json:"action_values,omitempty"`
	CostPerAction     datatypes.JSON `gorm:"column:cost_per_action_type" json:"cost_per_action_type,omitempty"`
	SyncedAt          time.Time      `gorm:"column:synced_at;not null" json:"synced_at"`
	CreatedAt         time.Time      `gorm:"column:created_at;autoCreateTime" json:"created_at"`
	UpdatedAt         time.Time      `gorm:"column:updated_at;autoUpdateTime" json:"updated_at"`
}

// IdentityColumns conflict target of the metric upsert, same order as uq_ads_metric_identity.
var IdentityColumns = []string{
	"account_id", "level", "campaign_id", "adset_id", "ad_id", "date_start", "date_stop",
	"age", "gender", "country", "publisher_platform", "platform_position", "impression_device",
}

// SyncRun one gap-filling synchronization attempt for an (account, range) pair.
type SyncRun struct {
	ID            string     `gorm:"column:id;primaryKey;type:varchar(36)" json:"id"`
	AccountID     string     `gorm:"column:account_id;type:varchar(64);not null;index:idx_sync_run_range,priority:1" json:"account_id"`
	DateFrom      string     `gorm:"column:date_from;type:varchar(10);not null;index:idx_sync_run_range,priority:2" json:"date_from"`
	DateTo        string     `gorm:"column:date_to;type:varchar(10);not null;index:idx_sync_run_range,priority:3" json:"date_to"`
	Status        SyncStatus `gorm:"column:status;type:varchar(16);not null" json:"status"`
	TotalDays     int        `gorm:"column:total_days;not null;default:0" json:"total_days"`
	CompletedDays int        `gorm:"column:completed_days;not null;default:0" json:"completed_days"`
	Progress      int        `gorm:"column:progress;not null;default:0" json:"progress"`
	RowsUpserted  int        `gorm:"column:rows_upserted;not null;default:0" json:"rows_upserted"`
	RowsSkipped   int        `gorm:"column:rows_skipped;not null;default:0" json:"rows_skipped"`
	ErrorMessage  string     `gorm:"column:error_message;type:text" json:"error_message,omitempty"`
	StartedAt     time.Time  `gorm:"column:started_at;not null" json:"started_at"`
	FinishedAt    *time.Time `gorm:"column:finished_at" json:"finished_at,omitempty"`
	CreatedAt     time.Time  `gorm:"column:created_at;autoCreateTime" json:"created_at"`
	UpdatedAt     time.Time  `gorm:"column:updated_at;autoUpdateTime" json:"updated_at"`
}

// Clone copy safe to mutate independently of r.
func (r *SyncRun) Clone() *SyncRun {
	c := *r
	if r.FinishedAt != nil {
		t := *r.FinishedAt
		c.FinishedAt = &t
	}
	return &c
}

func (AdsMetric) TableName() string { return "facebook_ads_metrics" }
func (SyncRun) TableName() string   { return "facebook_sync_runs" }

// MetricFilter cached-row query; empty fields are ignored.
type MetricFilter struct {
	AccountID  string
	DateFrom   string
	DateTo     string
	Level      InsightsLevel
	CampaignID string
	AdID       string
}
