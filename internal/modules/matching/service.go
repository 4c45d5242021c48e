// README: Matching service owns the offer window and delegates assignment to the trip CAS.
package matching

import (
	"context"
	"errors"
	"time"

	"tripmatch/internal/config"
	"tripmatch/internal/modules/trip"
	"tripmatch/internal/types"
)

// TripSource lists the trips eligible for offering.
type TripSource interface {
	ListPending(ctx context.Context) ([]*trip.Trip, error)
}

// Assigner performs the atomic driver assignment. Its result is authoritative:
// a live local offer does not guarantee the assignment will win.
type Assigner interface {
	Assign(ctx context.Context, cmd trip.AssignCommand) (*trip.Trip, error)
}

var (
	ErrOffDuty       = errors.New("driver is not on duty")
	ErrNoOffer       = errors.New("no offer available")
	ErrOfferConflict = errors.New("trip already offered to another driver")
	ErrOfferExpired  = errors.New("offer expired")
)

type Service struct {
	store    *Store
	trips    TripSource
	assigner Assigner
	window   time.Duration
	now      func() time.Time
}

func NewService(store *Store, trips TripSource, assigner Assigner, cfg config.MatchingConfig) *Service {
	window := time.Duration(cfg.OfferWindowSeconds) * time.Second
	if window <= 0 {
		window = DefaultOfferWindow
	}
	return &Service{
		store:    store,
		trips:    trips,
		assigner: assigner,
		window:   window,
		now:      time.Now,
	}
}

func (s *Service) SetDuty(ctx context.Context, driverID types.ID, on bool) error {
	if driverID == "" {
		return trip.ErrBadRequest
	}
	return s.store.SetDuty(ctx, driverID, on)
}

// NextOffer returns the driver's current offer, or opens a new one on the
// most-recently-created pending trip that has no live offer outstanding.
// Polling drives the whole countdown: remaining time is derived from ExpiresAt,
// never from a running timer.
func (s *Service) NextOffer(ctx context.Context, driverID types.ID) (Offer, error) {
	if driverID == "" {
		return Offer{}, trip.ErrBadRequest
	}
	onDuty, err := s.store.IsOnDuty(ctx, driverID)
	if err != nil {
		return Offer{}, err
	}
	if !onDuty {
		return Offer{}, ErrOffDuty
	}

	if o, found, err := s.store.GetDriverOffer(ctx, driverID); err != nil {
		return Offer{}, err
	} else if found && s.now().Before(o.ExpiresAt) {
		return o, nil
	}

	pending, err := s.trips.ListPending(ctx)
	if err != nil {
		return Offer{}, err
	}
	for _, t := range pending {
		o, err := s.StartOffer(ctx, t.ID, driverID)
		if err == ErrOfferConflict {
			continue
		}
		if err != nil {
			return Offer{}, err
		}
		return o, nil
	}
	return Offer{}, ErrNoOffer
}

// StartOffer opens the decision window for one (trip, driver) pair. A live
// offer to a different driver yields ErrOfferConflict; re-offering to the same
// driver returns the existing window unchanged.
func (s *Service) StartOffer(ctx context.Context, tripID, driverID types.ID) (Offer, error) {
	o := Offer{
		TripID:    tripID,
		DriverID:  driverID,
		ExpiresAt: s.now().Add(s.window),
	}
	ok, err := s.store.PutOffer(ctx, o, s.window)
	if err != nil {
		return Offer{}, err
	}
	if ok {
		return o, nil
	}
	existing, found, err := s.store.GetOffer(ctx, tripID)
	if err != nil {
		return Offer{}, err
	}
	if found && existing.DriverID == driverID {
		return existing, nil
	}
	return Offer{}, ErrOfferConflict
}

// Accept redeems a live offer. Once the deadline has passed the accept fails
// even if the ids are right, and the trip stays pending for re-offer. When the
// offer is live, the trip CAS still has the last word: a concurrent direct
// assignment surfaces here as ErrAlreadyAssigned.
func (s *Service) Accept(ctx context.Context, tripID, driverID types.ID) (*trip.Trip, error) {
	o, found, err := s.store.GetOffer(ctx, tripID)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, ErrOfferExpired
	}
	if o.DriverID != driverID {
		return nil, ErrOfferConflict
	}
	if !s.now().Before(o.ExpiresAt) {
		_ = s.store.DeleteOffer(ctx, o)
		return nil, ErrOfferExpired
	}

	t, err := s.assigner.Assign(ctx, trip.AssignCommand{TripID: tripID, DriverID: driverID})
	if err != nil {
		if errors.Is(err, trip.ErrAlreadyAssigned) || errors.Is(err, trip.ErrInvalidState) {
			_ = s.store.DeleteOffer(ctx, o)
		}
		return nil, err
	}
	_ = s.store.DeleteOffer(ctx, o)
	return t, nil
}
