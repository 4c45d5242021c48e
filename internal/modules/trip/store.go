// README: Trip store backed by PostgreSQL; all mutation goes through a conditional update.
package trip

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"

	"tripmatch/internal/infra"
	"tripmatch/internal/types"
)

type Store struct {
	db infra.Querier
}

func NewStore(db infra.Querier) *Store {
	return &Store{db: db}
}

func (s *Store) Create(ctx context.Context, t *Trip) error {
	_, err := s.db.Exec(ctx, `
		INSERT INTO trips (
			id, rider_id, driver_id, status, status_version,
			source, destination, distance_km,
			fare_amount, fare_currency, created_at
		) VALUES (
			$1, $2, $3, $4, $5,
			$6, $7, $8,
			$9, $10, $11
		)`,
		string(t.ID),
		string(t.RiderID),
		toStringPtr(t.DriverID),
		string(t.Status),
		t.StatusVersion,
		t.Source, t.Destination, t.DistanceKm,
		t.Fare.Amount, t.Fare.Currency,
		t.CreatedAt,
	)
	return err
}

const tripColumns = `id, rider_id, driver_id, status, status_version,
	       source, destination, distance_km,
	       fare_amount, fare_currency,
	       created_at, assigned_at, ended_at`

func (s *Store) Get(ctx context.Context, id types.ID) (*Trip, error) {
	row := s.db.QueryRow(ctx, `
		SELECT `+tripColumns+`
		FROM trips
		WHERE id = $1`, string(id),
	)
	return scanTrip(row)
}

type ListFilter struct {
	Status Status
	Limit  int
}

// List returns trips newest first, optionally filtered by status.
func (s *Store) List(ctx context.Context, f ListFilter) ([]*Trip, error) {
	limit := f.Limit
	if limit <= 0 {
		limit = 100
	}
	status := string(f.Status)
	rows, err := s.db.Query(ctx, `
		SELECT `+tripColumns+`
		FROM trips
		WHERE ($1 = '' OR status = $1)
		ORDER BY created_at DESC
		LIMIT $2`, status, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var trips []*Trip
	for rows.Next() {
		t, err := scanTrip(rows)
		if err != nil {
			return nil, err
		}
		trips = append(trips, t)
	}
	return trips, rows.Err()
}

// ActiveFor returns the newest non-terminal assigned trip for a party. An empty
// partyID matches any party (the demo clients poll without identifying themselves).
func (s *Store) ActiveFor(ctx context.Context, partyID types.ID, side Side) (*Trip, error) {
	row := s.db.QueryRow(ctx, `
		SELECT `+tripColumns+`
		FROM trips
		WHERE status IN ('assigned','active','ending_user','ending_driver')
		  AND ($1 = '' OR ($2 = 'driver' AND driver_id = $1) OR ($2 = 'user' AND rider_id = $1))
		ORDER BY created_at DESC
		LIMIT 1`, string(partyID), string(side),
	)
	return scanTrip(row)
}

// UpdateStatus performs the compare-and-swap that every lifecycle mutation rides
// on: the row only changes when both status and status_version still hold their
// expected values, so exactly one concurrent caller can win.
func (s *Store) UpdateStatus(ctx context.Context, id types.ID, from, to Status, version int, driverID *types.ID) (bool, error) {
	tag, err := s.db.Exec(ctx, `
		UPDATE trips
		SET status = $1,
		    status_version = status_version + 1,
		    driver_id = COALESCE($2, driver_id),
		    assigned_at = CASE WHEN $1 = 'assigned' THEN NOW() ELSE assigned_at END,
		    ended_at = CASE WHEN $1 = 'ended' THEN NOW() ELSE ended_at END
		WHERE id = $3 AND status = $4 AND status_version = $5`,
		string(to),
		toStringPtr(driverID),
		string(id),
		string(from),
		version,
	)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

func (s *Store) AppendEvent(ctx context.Context, e *Event) error {
	_, err := s.db.Exec(ctx, `
		INSERT INTO trip_events (
			trip_id, from_status, to_status, actor_type, actor_id, created_at
		) VALUES ($1, $2, $3, $4, $5, $6)`,
		string(e.TripID),
		string(e.FromStatus),
		string(e.ToStatus),
		e.ActorType,
		toStringPtr(e.ActorID),
		e.CreatedAt,
	)
	return err
}

func (s *Store) HasActiveByRider(ctx context.Context, riderID types.ID) (bool, error) {
	row := s.db.QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM trips
			WHERE rider_id = $1
			  AND status IN ('pending','assigned','active','ending_user','ending_driver')
		)`, string(riderID),
	)
	var exists bool
	if err := row.Scan(&exists); err != nil {
		return false, err
	}
	return exists, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTrip(row rowScanner) (*Trip, error) {
	var t Trip
	var driverID sql.NullString
	var distance sql.NullFloat64
	var assignedAt, endedAt sql.NullTime

	err := row.Scan(
		&t.ID, &t.RiderID, &driverID, &t.Status, &t.StatusVersion,
		&t.Source, &t.Destination, &distance,
		&t.Fare.Amount, &t.Fare.Currency,
		&t.CreatedAt, &assignedAt, &endedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	if driverID.Valid {
		d := types.ID(driverID.String)
		t.DriverID = &d
	}
	if distance.Valid {
		v := distance.Float64
		t.DistanceKm = &v
	}
	t.AssignedAt = toTimePtr(assignedAt)
	t.EndedAt = toTimePtr(endedAt)
	return &t, nil
}

func toStringPtr(v *types.ID) *string {
	if v == nil {
		return nil
	}
	s := string(*v)
	return &s
}

func toTimePtr(v sql.NullTime) *time.Time {
	if !v.Valid {
		return nil
	}
	t := v.Time
	return &t
}
