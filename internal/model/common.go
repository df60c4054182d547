package model

// SyncStatus lifecycle of a sync run
type SyncStatus string

const (
	SyncStatusIdle      SyncStatus = "idle"
	SyncStatusSyncing   SyncStatus = "syncing"
	SyncStatusCompleted SyncStatus = "completed"
	SyncStatusFailed    SyncStatus = "failed"
)

// Terminal reports whether the run can no longer change.
func (s SyncStatus) Terminal() bool {
	return s == SyncStatusCompleted || s == SyncStatusFailed
}

// Role user permission level
type Role string

const (
	RoleSuperadmin Role = "superadmin"
	RoleAdmin      Role = "admin"
	RoleStandard   Role = "standard"
)

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	switch r {
	case RoleSuperadmin, RoleAdmin, RoleStandard:
		return true
	}
	return false
}

// IsAdmin admin and superadmin may manage users, credentials and purge cached data.
func (r Role) IsAdmin() bool {
	return r == RoleSuperadmin || r == RoleAdmin
}

// InsightsLevel aggregation level of a Graph API insights row
type InsightsLevel string

const (
	LevelAccount  InsightsLevel = "account"
	LevelCampaign InsightsLevel = "campaign"
	LevelAdset    InsightsLevel = "adset"
	LevelAd       InsightsLevel = "ad"
)

// Valid reports whether l is a level the insights endpoint accepts.
func (l InsightsLevel) Valid() bool {
	switch l {
	case LevelAccount, LevelCampaign, LevelAdset, LevelAd:
		return true
	}
	return false
}
