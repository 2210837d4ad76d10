package gorm

import "time"

// Reservation is a single booked item on a trip. Only rows with
// Kind = "flight" are freshness-tracked; the cached status record lives
// inside the Details bag under the codec's reserved key.
type Reservation struct {
	ID             string     `gorm:"column:id;primaryKey;type:uuid"`
	TripID         string     `gorm:"column:trip_id;type:uuid;not null;index"`
	Kind           string     `gorm:"column:kind;type:varchar(32);not null;index"`
	Title          string     `gorm:"column:title;type:varchar(255)"`
	ScheduledStart time.Time  `gorm:"column:scheduled_start;not null;index"`
	ScheduledEnd   *time.Time `gorm:"column:scheduled_end"`
	Details        AttrBag    `gorm:"column:details;type:jsonb"`
	CreatedAt      time.Time  `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt      time.Time  `gorm:"column:updated_at;autoUpdateTime"`

	// Relationships
	Trip Trip `gorm:"foreignKey:TripID"`
}

// TableName specifies the table name for GORM
func (Reservation) TableName() string {
	return "reservations"
}
