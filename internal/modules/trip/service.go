// README: Trip service implements the ride lifecycle state machine over the store CAS.
package trip

import (
	"context"
	"errors"
	"time"

	"tripmatch/internal/types"
)

// Pricing estimates a fare for a trip of the given length.
type Pricing interface {
	Estimate(ctx context.Context, distanceKm float64) (types.Money, error)
}

// Ledger is credited once a trip reaches its terminal state.
type Ledger interface {
	CreditTrip(ctx context.Context, driverID types.ID, fare types.Money) error
}

type Service struct {
	store   *Store
	pricing Pricing
	ledger  Ledger
}

func NewService(store *Store, pricing Pricing, ledger Ledger) *Service {
	return &Service{store: store, pricing: pricing, ledger: ledger}
}

var (
	ErrNotFound        = errors.New("trip not found")
	ErrInvalidState    = errors.New("operation not valid for trip state")
	ErrConflict        = errors.New("trip state conflict")
	ErrAlreadyAssigned = errors.New("trip already assigned")
	ErrActiveTrip      = errors.New("rider has an active trip")
	ErrBadRequest      = errors.New("bad request")
)

type CreateCommand struct {
	RiderID     types.ID
	Source      string
	Destination string
	DistanceKm  *float64
}

type AssignCommand struct {
	TripID   types.ID
	DriverID types.ID
}

type EndCommand struct {
	TripID types.ID
	Side   Side
}

func (s *Service) Create(ctx context.Context, cmd CreateCommand) (*Trip, error) {
	if cmd.RiderID == "" || cmd.Source == "" || cmd.Destination == "" {
		return nil, ErrBadRequest
	}
	active, err := s.store.HasActiveByRider(ctx, cmd.RiderID)
	if err != nil {
		return nil, err
	}
	if active {
		return nil, ErrActiveTrip
	}

	now := time.Now()
	t := &Trip{
		ID:            types.NewID(),
		RiderID:       cmd.RiderID,
		Status:        StatusPending,
		StatusVersion: 0,
		Source:        cmd.Source,
		Destination:   cmd.Destination,
		DistanceKm:    cmd.DistanceKm,
		Fare:          types.Money{Amount: 0, Currency: "INR"},
		CreatedAt:     now,
	}
	if s.pricing != nil && cmd.DistanceKm != nil {
		if m, err := s.pricing.Estimate(ctx, *cmd.DistanceKm); err == nil {
			t.Fare = m
		}
	}
	if err := s.store.Create(ctx, t); err != nil {
		return nil, err
	}
	_ = s.store.AppendEvent(ctx, &Event{
		TripID:     t.ID,
		FromStatus: StatusNone,
		ToStatus:   StatusPending,
		ActorType:  "rider",
		ActorID:    &cmd.RiderID,
		CreatedAt:  now,
	})
	return t, nil
}

// Assign binds a driver to a pending trip. Exactly one call per trip can ever
// succeed; concurrent losers get ErrAlreadyAssigned. The assigned trip is
// promoted to active in the same operation (activation-on-assignment policy).
func (s *Service) Assign(ctx context.Context, cmd AssignCommand) (*Trip, error) {
	if cmd.DriverID == "" {
		return nil, ErrBadRequest
	}
	t, err := s.store.Get(ctx, cmd.TripID)
	if err != nil {
		return nil, err
	}
	switch t.Status {
	case StatusPending:
	case StatusAssigned, StatusActive:
		return nil, ErrAlreadyAssigned
	default:
		return nil, ErrInvalidState
	}

	ok, err := s.store.UpdateStatus(ctx, t.ID, StatusPending, StatusAssigned, t.StatusVersion, &cmd.DriverID)
	if err != nil {
		return nil, err
	}
	if !ok {
		// Another driver won the pending->assigned race.
		return nil, ErrAlreadyAssigned
	}
	_ = s.store.AppendEvent(ctx, &Event{
		TripID:     t.ID,
		FromStatus: StatusPending,
		ToStatus:   StatusAssigned,
		ActorType:  "driver",
		ActorID:    &cmd.DriverID,
		CreatedAt:  time.Now(),
	})

	ok, err = s.store.UpdateStatus(ctx, t.ID, StatusAssigned, StatusActive, t.StatusVersion+1, nil)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrConflict
	}
	_ = s.store.AppendEvent(ctx, &Event{
		TripID:     t.ID,
		FromStatus: StatusAssigned,
		ToStatus:   StatusActive,
		ActorType:  "system",
		ActorID:    nil,
		CreatedAt:  time.Now(),
	})

	return s.store.Get(ctx, t.ID)
}

// endRetries bounds the re-read loop when both sides end concurrently.
const endRetries = 3

// EndRide records one side's end signal. The trip becomes ended only once both
// sides have signalled; a repeat signal from the same side, or any signal on an
// ended trip, is an idempotent no-op.
func (s *Service) EndRide(ctx context.Context, cmd EndCommand) (*Trip, error) {
	if cmd.Side != SideUser && cmd.Side != SideDriver {
		return nil, ErrBadRequest
	}
	for attempt := 0; attempt < endRetries; attempt++ {
		t, err := s.store.Get(ctx, cmd.TripID)
		if err != nil {
			return nil, err
		}
		if t.Status == StatusPending || t.Status == StatusAssigned {
			return nil, ErrInvalidState
		}

		to, effective := NextOnEnd(t.Status, cmd.Side)
		if !effective {
			return t, nil
		}

		ok, err := s.store.UpdateStatus(ctx, t.ID, t.Status, to, t.StatusVersion, nil)
		if err != nil {
			return nil, err
		}
		if !ok {
			// Lost a race with the other side; re-read and resolve again.
			continue
		}
		actorID := &t.RiderID
		if cmd.Side == SideDriver {
			actorID = t.DriverID
		}
		_ = s.store.AppendEvent(ctx, &Event{
			TripID:     t.ID,
			FromStatus: t.Status,
			ToStatus:   to,
			ActorType:  string(cmd.Side),
			ActorID:    actorID,
			CreatedAt:  time.Now(),
		})
		if to == StatusEnded && s.ledger != nil && t.DriverID != nil {
			_ = s.ledger.CreditTrip(ctx, *t.DriverID, t.Fare)
		}
		return s.store.Get(ctx, t.ID)
	}
	return nil, ErrConflict
}

func (s *Service) Get(ctx context.Context, id types.ID) (*Trip, error) {
	return s.store.Get(ctx, id)
}

func (s *Service) List(ctx context.Context, f ListFilter) ([]*Trip, error) {
	return s.store.List(ctx, f)
}

// ListPending returns pending trips newest first, for the offer manager.
func (s *Service) ListPending(ctx context.Context) ([]*Trip, error) {
	return s.store.List(ctx, ListFilter{Status: StatusPending})
}

func (s *Service) ActiveFor(ctx context.Context, partyID types.ID, side Side) (*Trip, error) {
	return s.store.ActiveFor(ctx, partyID, side)
}
