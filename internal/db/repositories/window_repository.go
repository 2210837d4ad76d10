package repositories

import (
	"context"
	"time"

	"wayfarer/tripdesk/internal/models/entities"

	"github.com/jmoiron/sqlx"
)

// WindowRepository runs the hand-written fan-out window query. It stays on
// sqlx because the query is a flat join read on a hot path and does not
// benefit from ORM mapping.
type WindowRepository struct {
	db *sqlx.DB
}

func NewWindowRepository(db *sqlx.DB) *WindowRepository {
	return &WindowRepository{
		db: db,
	}
}

// FlightsInWindow returns every flight reservation whose scheduled start
// falls in [from, to), joined to its trip for the owner ID.
func (r WindowRepository) FlightsInWindow(
	ctx context.Context,
	from, to time.Time) ([]entities.FlightWindowRow, error) {
	const query = `
		SELECT r.id AS reservation_id,
		       r.trip_id AS trip_id,
		       t.owner_id AS owner_id,
		       r.scheduled_start AS scheduled_start
		FROM reservations r
		JOIN trips t ON t.id = r.trip_id
		WHERE r.kind = 'flight'
		  AND r.scheduled_start >= $1
		  AND r.scheduled_start < $2
		ORDER BY t.owner_id, r.scheduled_start
	`

	var rows []entities.FlightWindowRow
	if err := r.db.SelectContext(ctx, &rows, query, from, to); err != nil {
		return nil, err
	}
	return rows, nil
}
