// README: Profile store backed by PostgreSQL.
package profile

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	"tripmatch/internal/infra"
	"tripmatch/internal/types"
)

var ErrNotFound = errors.New("profile not found")

type Store struct {
	db infra.Querier
}

func NewStore(db infra.Querier) *Store {
	return &Store{db: db}
}

const driverColumns = `id, name, vehicle_number, license_number, total_trips, earnings, points, rating`

func (s *Store) GetDriver(ctx context.Context, id types.ID) (*Driver, error) {
	row := s.db.QueryRow(ctx, `
		SELECT `+driverColumns+`
		FROM drivers
		WHERE id = $1`, string(id),
	)
	return scanDriver(row)
}

// FirstDriver returns the first available driver record. The demo driver client
// has no login; it just takes whichever driver exists.
func (s *Store) FirstDriver(ctx context.Context) (*Driver, error) {
	row := s.db.QueryRow(ctx, `
		SELECT ` + driverColumns + `
		FROM drivers
		ORDER BY id
		LIMIT 1`,
	)
	return scanDriver(row)
}

func (s *Store) GetUser(ctx context.Context, id types.ID) (*User, error) {
	row := s.db.QueryRow(ctx, `
		SELECT id, name, rating
		FROM users
		WHERE id = $1`, string(id),
	)
	var u User
	err := row.Scan(&u.ID, &u.Name, &u.Rating)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// CreditTrip folds one completed trip into the driver's running totals.
func (s *Store) CreditTrip(ctx context.Context, driverID types.ID, fare int64, points int) error {
	tag, err := s.db.Exec(ctx, `
		UPDATE drivers
		SET total_trips = total_trips + 1,
		    earnings = earnings + $1,
		    points = points + $2
		WHERE id = $3`,
		fare, points, string(driverID),
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() != 1 {
		return ErrNotFound
	}
	return nil
}

func scanDriver(row pgx.Row) (*Driver, error) {
	var d Driver
	err := row.Scan(
		&d.ID, &d.Name, &d.VehicleNumber, &d.LicenseNumber,
		&d.TotalTrips, &d.Earnings, &d.Points, &d.Rating,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &d, nil
}
