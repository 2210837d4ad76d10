package repositories

import (
	"context"
	"time"

	gormModels "wayfarer/tripdesk/internal/models/gorm"

	gormlib "gorm.io/gorm"
)

// SyncHistoryRepo handles sync history operations
type SyncHistoryRepo struct {
	db *gormlib.DB
}

// NewSyncHistoryRepo creates a new sync history repository
func NewSyncHistoryRepo(db *gormlib.DB) *SyncHistoryRepo {
	return &SyncHistoryRepo{db: db}
}

// RecordSync records a sync attempt for an account. Called on every
// completed attempt regardless of outcome, so the cooldown window starts
// from the attempt, not only from successes.
func (r *SyncHistoryRepo) RecordSync(ctx context.Context, accountID string, event string) error {
	now := time.Now()

	syncHistory := gormModels.AccountSyncHistory{
		AccountID:  accountID,
		Event:      event,
		LastSyncAt: &now,
	}

	// Upsert: if a record exists for this account and event, update
	// last_sync_at. Otherwise create a new record.
	err := r.db.WithContext(ctx).
		Where("account_id = ? AND event = ?", accountID, event).
		Assign(gormModels.AccountSyncHistory{LastSyncAt: &now}).
		FirstOrCreate(&syncHistory).Error

	return err
}

// GetLastSyncTime retrieves the most recent sync timestamp for an account
// and event. Returns nil when the account has never synced.
func (r *SyncHistoryRepo) GetLastSyncTime(ctx context.Context, accountID string, event string) (*time.Time, error) {
	var syncHistory gormModels.AccountSyncHistory

	err := r.db.WithContext(ctx).
		Where("account_id = ? AND event = ?", accountID, event).
		Order("last_sync_at DESC").
		First(&syncHistory).Error

	if err != nil {
		if err == gormlib.ErrRecordNotFound {
			return nil, nil // No sync history found
		}
		return nil, err
	}

	return syncHistory.LastSyncAt, nil
}
