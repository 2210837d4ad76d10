package repositories

import (
	"context"
	"time"

	"wayfarer/tripdesk/internal/constants"
	gormModels "wayfarer/tripdesk/internal/models/gorm"

	"github.com/google/uuid"
	gormlib "gorm.io/gorm"
)

// ReservationRepo handles reservation reads and the details-bag writes the
// freshness subsystem performs.
type ReservationRepo struct {
	db *gormlib.DB
}

// NewReservationRepo creates a new reservation repository
func NewReservationRepo(db *gormlib.DB) *ReservationRepo {
	return &ReservationRepo{db: db}
}

// GetByID fetches a single reservation.
func (r *ReservationRepo) GetByID(ctx context.Context, id string) (*gormModels.Reservation, error) {
	var res gormModels.Reservation
	err := r.db.WithContext(ctx).
		Where("id = ?", id).
		First(&res).Error
	if err != nil {
		if err == gormlib.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &res, nil
}

// ListFlightsByTrip returns every flight reservation on a trip, soonest
// departure first.
func (r *ReservationRepo) ListFlightsByTrip(ctx context.Context, tripID string) ([]gormModels.Reservation, error) {
	var out []gormModels.Reservation
	err := r.db.WithContext(ctx).
		Where("trip_id = ? AND kind = ?", tripID, constants.ReservationTypeFlight).
		Order("scheduled_start ASC").
		Find(&out).Error
	return out, err
}

// ListFlightsByOwner returns every flight reservation across all of an
// owner's trips whose departure falls inside [from, to).
func (r *ReservationRepo) ListFlightsByOwner(ctx context.Context, ownerID string, from, to time.Time) ([]gormModels.Reservation, error) {
	var out []gormModels.Reservation
	err := r.db.WithContext(ctx).
		Joins("JOIN trips ON trips.id = reservations.trip_id").
		Where("trips.owner_id = ? AND reservations.kind = ?", ownerID, constants.ReservationTypeFlight).
		Where("reservations.scheduled_start >= ? AND reservations.scheduled_start < ?", from, to).
		Order("reservations.scheduled_start ASC").
		Find(&out).Error
	return out, err
}

// UpdateDetails replaces a reservation's details bag wholesale. The bag is
// always written as a unit so a torn freshness record can never be observed.
func (r *ReservationRepo) UpdateDetails(ctx context.Context, id string, details gormModels.AttrBag) error {
	return r.db.WithContext(ctx).
		Model(&gormModels.Reservation{}).
		Where("id = ?", id).
		Update("details", details).Error
}

// UpdateDetailsBatch writes several details bags in one transaction so one
// poll tick's results land atomically.
func (r *ReservationRepo) UpdateDetailsBatch(ctx context.Context, updates map[string]gormModels.AttrBag) error {
	if len(updates) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Transaction(func(tx *gormlib.DB) error {
		for id, details := range updates {
			if err := tx.Model(&gormModels.Reservation{}).
				Where("id = ?", id).
				Update("details", details).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

// Create inserts a reservation. Used by tests and the CRUD layer.
func (r *ReservationRepo) Create(ctx context.Context, res *gormModels.Reservation) error {
	if res.ID == "" {
		res.ID = uuid.NewString()
	}
	return r.db.WithContext(ctx).Create(res).Error
}
