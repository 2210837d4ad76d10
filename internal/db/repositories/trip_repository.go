package repositories

import (
	"context"

	gormModels "wayfarer/tripdesk/internal/models/gorm"

	"github.com/google/uuid"
	gormlib "gorm.io/gorm"
)

// TripRepo resolves trips and their owning accounts.
type TripRepo struct {
	db *gormlib.DB
}

// NewTripRepo creates a new trip repository
func NewTripRepo(db *gormlib.DB) *TripRepo {
	return &TripRepo{db: db}
}

// GetByID fetches a single trip.
func (r *TripRepo) GetByID(ctx context.Context, id string) (*gormModels.Trip, error) {
	var trip gormModels.Trip
	err := r.db.WithContext(ctx).
		Where("id = ?", id).
		First(&trip).Error
	if err != nil {
		if err == gormlib.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &trip, nil
}

// GetOwnerID resolves the account that owns a trip.
func (r *TripRepo) GetOwnerID(ctx context.Context, tripID string) (string, error) {
	var ownerID string
	err := r.db.WithContext(ctx).
		Model(&gormModels.Trip{}).
		Where("id = ?", tripID).
		Pluck("owner_id", &ownerID).Error
	if err != nil {
		return "", err
	}
	return ownerID, nil
}

// Create inserts a trip. Used by tests and the CRUD layer.
func (r *TripRepo) Create(ctx context.Context, trip *gormModels.Trip) error {
	if trip.ID == "" {
		trip.ID = uuid.NewString()
	}
	return r.db.WithContext(ctx).Create(trip).Error
}
