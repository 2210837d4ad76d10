package gorm

import "time"

// AccountSyncHistory tracks sync attempts per account and event. The
// last_sync_at column feeds the rate limiter: it is bumped on every
// completed attempt, success or not, so a failing job is not retried in a
// tight loop.
type AccountSyncHistory struct {
	ID         string     `gorm:"column:id;primaryKey;type:uuid;default:gen_random_uuid()"`
	AccountID  string     `gorm:"column:account_id;type:uuid;not null"`
	Event      string     `gorm:"column:event;type:varchar(50);not null"`
	CreatedAt  time.Time  `gorm:"column:created_at;autoCreateTime"`
	LastSyncAt *time.Time `gorm:"column:last_sync_at"`
}

// TableName specifies the table name for GORM
func (AccountSyncHistory) TableName() string {
	return "account_sync_history"
}
