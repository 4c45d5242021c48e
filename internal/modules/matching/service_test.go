// README: Offer manager tests against miniredis with a pinned clock.
package matching

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"tripmatch/internal/config"
	"tripmatch/internal/modules/trip"
	"tripmatch/internal/types"
)

type stubTrips struct {
	pending []*trip.Trip
}

func (s *stubTrips) ListPending(context.Context) ([]*trip.Trip, error) {
	return s.pending, nil
}

type stubAssigner struct {
	err   error
	calls int
	last  trip.AssignCommand
}

func (s *stubAssigner) Assign(_ context.Context, cmd trip.AssignCommand) (*trip.Trip, error) {
	s.calls++
	s.last = cmd
	if s.err != nil {
		return nil, s.err
	}
	d := cmd.DriverID
	return &trip.Trip{ID: cmd.TripID, DriverID: &d, Status: trip.StatusActive}, nil
}

func pendingTrip(id types.ID) *trip.Trip {
	return &trip.Trip{ID: id, RiderID: "rider-1", Status: trip.StatusPending}
}

func newTestService(t *testing.T, trips TripSource, assigner Assigner) (*Service, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	svc := NewService(NewStore(client), trips, assigner, config.MatchingConfig{OfferWindowSeconds: 10})
	return svc, mr
}

func TestDutyRosterGatesOffers(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t, &stubTrips{pending: []*trip.Trip{pendingTrip("trip-1")}}, &stubAssigner{})

	if _, err := svc.NextOffer(ctx, "driver-1"); err != ErrOffDuty {
		t.Fatalf("expected ErrOffDuty before duty toggle, got %v", err)
	}

	if err := svc.SetDuty(ctx, "driver-1", true); err != nil {
		t.Fatalf("set duty: %v", err)
	}
	o, err := svc.NextOffer(ctx, "driver-1")
	if err != nil {
		t.Fatalf("next offer: %v", err)
	}
	if o.TripID != "trip-1" || o.DriverID != "driver-1" {
		t.Fatalf("unexpected offer %+v", o)
	}

	if err := svc.SetDuty(ctx, "driver-1", false); err != nil {
		t.Fatalf("unset duty: %v", err)
	}
	if _, err := svc.NextOffer(ctx, "driver-1"); err != ErrOffDuty {
		t.Fatalf("expected ErrOffDuty after going off duty, got %v", err)
	}
}

func TestNextOfferSkipsTripsWithLiveOffers(t *testing.T) {
	ctx := context.Background()
	// ListPending returns newest first; trip-new already offered elsewhere.
	trips := &stubTrips{pending: []*trip.Trip{pendingTrip("trip-new"), pendingTrip("trip-old")}}
	svc, _ := newTestService(t, trips, &stubAssigner{})

	_ = svc.SetDuty(ctx, "driver-1", true)
	_ = svc.SetDuty(ctx, "driver-2", true)

	o1, err := svc.NextOffer(ctx, "driver-1")
	if err != nil {
		t.Fatalf("first offer: %v", err)
	}
	if o1.TripID != "trip-new" {
		t.Fatalf("expected the most recent pending trip first, got %s", o1.TripID)
	}

	o2, err := svc.NextOffer(ctx, "driver-2")
	if err != nil {
		t.Fatalf("second offer: %v", err)
	}
	if o2.TripID != "trip-old" {
		t.Fatalf("expected the next unoffered trip, got %s", o2.TripID)
	}
}

func TestNextOfferReturnsExistingWindow(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t, &stubTrips{pending: []*trip.Trip{pendingTrip("trip-1")}}, &stubAssigner{})
	_ = svc.SetDuty(ctx, "driver-1", true)

	first, err := svc.NextOffer(ctx, "driver-1")
	if err != nil {
		t.Fatalf("first poll: %v", err)
	}
	second, err := svc.NextOffer(ctx, "driver-1")
	if err != nil {
		t.Fatalf("second poll: %v", err)
	}
	if !first.ExpiresAt.Equal(second.ExpiresAt) {
		t.Fatal("re-polling must not extend the offer window")
	}
}

func TestNextOfferNoPendingTrips(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t, &stubTrips{}, &stubAssigner{})
	_ = svc.SetDuty(ctx, "driver-1", true)

	if _, err := svc.NextOffer(ctx, "driver-1"); err != ErrNoOffer {
		t.Fatalf("expected ErrNoOffer, got %v", err)
	}
}

func TestStartOfferConflict(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t, &stubTrips{}, &stubAssigner{})

	if _, err := svc.StartOffer(ctx, "trip-1", "driver-1"); err != nil {
		t.Fatalf("start offer: %v", err)
	}
	if _, err := svc.StartOffer(ctx, "trip-1", "driver-2"); err != ErrOfferConflict {
		t.Fatalf("expected ErrOfferConflict for second driver, got %v", err)
	}
	// The holder re-requesting gets the same window back.
	o, err := svc.StartOffer(ctx, "trip-1", "driver-1")
	if err != nil {
		t.Fatalf("re-request by holder: %v", err)
	}
	if o.DriverID != "driver-1" {
		t.Fatalf("unexpected holder %s", o.DriverID)
	}
}

func TestAcceptHappyPath(t *testing.T) {
	ctx := context.Background()
	assigner := &stubAssigner{}
	svc, _ := newTestService(t, &stubTrips{}, assigner)

	if _, err := svc.StartOffer(ctx, "trip-1", "driver-1"); err != nil {
		t.Fatalf("start offer: %v", err)
	}
	got, err := svc.Accept(ctx, "trip-1", "driver-1")
	if err != nil {
		t.Fatalf("accept: %v", err)
	}
	if got.Status != trip.StatusActive {
		t.Fatalf("expected active trip back, got %s", got.Status)
	}
	if assigner.calls != 1 || assigner.last.DriverID != "driver-1" {
		t.Fatalf("expected one delegated assignment for driver-1, got %+v", assigner.last)
	}

	// The offer is consumed; a second accept finds nothing.
	if _, err := svc.Accept(ctx, "trip-1", "driver-1"); err != ErrOfferExpired {
		t.Fatalf("expected ErrOfferExpired after consume, got %v", err)
	}
}

func TestAcceptWrongDriver(t *testing.T) {
	ctx := context.Background()
	assigner := &stubAssigner{}
	svc, _ := newTestService(t, &stubTrips{}, assigner)

	if _, err := svc.StartOffer(ctx, "trip-1", "driver-1"); err != nil {
		t.Fatalf("start offer: %v", err)
	}
	if _, err := svc.Accept(ctx, "trip-1", "driver-2"); err != ErrOfferConflict {
		t.Fatalf("expected ErrOfferConflict, got %v", err)
	}
	if assigner.calls != 0 {
		t.Fatal("assignment must not be delegated for the wrong driver")
	}
}

func TestAcceptAfterDeadline(t *testing.T) {
	ctx := context.Background()
	assigner := &stubAssigner{}
	svc, _ := newTestService(t, &stubTrips{}, assigner)

	base := time.Now()
	svc.now = func() time.Time { return base }

	if _, err := svc.StartOffer(ctx, "trip-1", "driver-1"); err != nil {
		t.Fatalf("start offer: %v", err)
	}

	// Exactly at the deadline the accept already fails: expiry wins the tie.
	svc.now = func() time.Time { return base.Add(10 * time.Second) }
	if _, err := svc.Accept(ctx, "trip-1", "driver-1"); err != ErrOfferExpired {
		t.Fatalf("expected ErrOfferExpired at t=10s, got %v", err)
	}
	if assigner.calls != 0 {
		t.Fatal("an expired offer must never reach the matching engine")
	}

	// The trip is re-offerable afterwards.
	if _, err := svc.StartOffer(ctx, "trip-1", "driver-2"); err != nil {
		t.Fatalf("re-offer after expiry: %v", err)
	}
}

func TestAcceptAfterRedisExpiry(t *testing.T) {
	ctx := context.Background()
	svc, mr := newTestService(t, &stubTrips{}, &stubAssigner{})

	if _, err := svc.StartOffer(ctx, "trip-1", "driver-1"); err != nil {
		t.Fatalf("start offer: %v", err)
	}
	mr.FastForward(11 * time.Second)

	if _, err := svc.Accept(ctx, "trip-1", "driver-1"); err != ErrOfferExpired {
		t.Fatalf("expected ErrOfferExpired after TTL, got %v", err)
	}
}

func TestAcceptLosesAuthoritativeAssignment(t *testing.T) {
	ctx := context.Background()
	assigner := &stubAssigner{err: trip.ErrAlreadyAssigned}
	svc, _ := newTestService(t, &stubTrips{}, assigner)

	if _, err := svc.StartOffer(ctx, "trip-1", "driver-1"); err != nil {
		t.Fatalf("start offer: %v", err)
	}
	// The offer is live, but the trip CAS has the last word.
	if _, err := svc.Accept(ctx, "trip-1", "driver-1"); !errors.Is(err, trip.ErrAlreadyAssigned) {
		t.Fatalf("expected ErrAlreadyAssigned passthrough, got %v", err)
	}
}
