package gorm

import "time"

// Trip is a user's itinerary. Reservations hang off it; the trip resolves
// the owning account for everything underneath.
type Trip struct {
	ID        string     `gorm:"column:id;primaryKey;type:uuid"`
	OwnerID   string     `gorm:"column:owner_id;type:uuid;not null;index"`
	Name      string     `gorm:"column:name;type:varchar(255);not null"`
	StartDate *time.Time `gorm:"column:start_date"`
	EndDate   *time.Time `gorm:"column:end_date"`
	CreatedAt time.Time  `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time  `gorm:"column:updated_at;autoUpdateTime"`
}

// TableName specifies the table name for GORM
func (Trip) TableName() string {
	return "trips"
}
