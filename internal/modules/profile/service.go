// README: Profile service serves detail lookups and keeps driver totals current.
package profile

import (
	"context"

	"tripmatch/internal/types"
)

type Service struct {
	store *Store
}

func NewService(store *Store) *Service {
	return &Service{store: store}
}

func (s *Service) DriverDetail(ctx context.Context, id types.ID) (*Driver, error) {
	return s.store.GetDriver(ctx, id)
}

func (s *Service) FirstAvailableDriver(ctx context.Context) (*Driver, error) {
	return s.store.FirstDriver(ctx)
}

func (s *Service) UserDetail(ctx context.Context, id types.ID) (*User, error) {
	return s.store.GetUser(ctx, id)
}

func (s *Service) DriverBonus(ctx context.Context, id types.ID) (*Driver, Bonus, error) {
	d, err := s.store.GetDriver(ctx, id)
	if err != nil {
		return nil, Bonus{}, err
	}
	return d, d.Bonus(), nil
}

// CreditTrip satisfies the trip ledger: called once per trip when it reaches its
// terminal state.
func (s *Service) CreditTrip(ctx context.Context, driverID types.ID, fare types.Money) error {
	return s.store.CreditTrip(ctx, driverID, fare.Amount, pointsPerTrip)
}
