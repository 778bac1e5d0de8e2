package subscription

import "time"

// Subscription represents a billed cloud account being monitored
type Subscription struct {
	ID             string     `json:"id"`
	DisplayName    string     `json:"display_name"`
	CredentialRef  string     `json:"credential_ref"` // opaque handle owned by the ingestion adapter
	IsActive       bool       `json:"is_active"`
	LastSyncAt     *time.Time `json:"last_sync_at,omitempty"`
	LastSyncStatus string     `json:"last_sync_status"`
	LastSyncError  string     `json:"last_sync_error,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
}

// Sync status values
const (
	SyncStatusNever   = "never"
	SyncStatusSuccess = "success"
	SyncStatusFailed  = "failed"
)

// Filter contains subscription filtering options
type Filter struct {
	ActiveOnly bool
	SyncStatus string
}
