package constants

// Sync event types for the account_sync_history table
const (
	SyncEventInboxScan    = "INBOX_SCAN"
	SyncEventStatusFanout = "STATUS_FANOUT"
)
