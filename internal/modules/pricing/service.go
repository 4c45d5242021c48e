// README: Pricing service computes fare estimates from per-kilometre rates.
package pricing

import (
	"context"
	"errors"
	"math"

	"tripmatch/internal/types"
)

const rideType = "economy"

type Service struct {
	store *Store
}

func NewService(store *Store) *Service {
	return &Service{store: store}
}

// Estimate prices a trip of the given length. The demo tariff applies when no
// rate row exists.
func (s *Service) Estimate(ctx context.Context, distanceKm float64) (types.Money, error) {
	if distanceKm < 0 {
		return types.Money{}, errors.New("negative distance")
	}
	rate := defaultRate
	if s.store != nil {
		r, err := s.store.GetRate(ctx, rideType)
		if err == nil {
			rate = r
		} else if !errors.Is(err, ErrRateNotFound) {
			return types.Money{}, err
		}
	}
	amount := rate.BaseFare + int64(math.Round(float64(rate.PerKm)*distanceKm))
	return types.Money{Amount: amount, Currency: rate.Currency}, nil
}
