// README: Matching store backed by Redis; duty roster set plus one offer key per trip.
package matching

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"tripmatch/internal/types"
)

const (
	dutyKey           = "matching:duty"
	tripOfferPrefix   = "matching:trip:%s:offer"
	driverOfferPrefix = "matching:driver:%s:offer"
)

type Store struct {
	redis *redis.Client
}

func NewStore(redis *redis.Client) *Store {
	return &Store{redis: redis}
}

func (s *Store) SetDuty(ctx context.Context, driverID types.ID, on bool) error {
	if on {
		return s.redis.SAdd(ctx, dutyKey, string(driverID)).Err()
	}
	return s.redis.SRem(ctx, dutyKey, string(driverID)).Err()
}

func (s *Store) IsOnDuty(ctx context.Context, driverID types.ID) (bool, error) {
	return s.redis.SIsMember(ctx, dutyKey, string(driverID)).Result()
}

// PutOffer records an offer for a trip. The trip key is written with NX so only
// one live offer per trip can ever exist; the TTL mirrors the offer window so
// stale offers evaporate without any sweeper. Returns false when the trip
// already carries a live offer.
func (s *Store) PutOffer(ctx context.Context, o Offer, ttl time.Duration) (bool, error) {
	val := fmt.Sprintf("%s|%s", string(o.DriverID), o.ExpiresAt.UTC().Format(time.RFC3339Nano))
	ok, err := s.redis.SetNX(ctx, tripOfferKey(o.TripID), val, ttl).Result()
	if err != nil || !ok {
		return ok, err
	}
	// Secondary index so a polling driver can find their own offer.
	err = s.redis.Set(ctx, driverOfferKey(o.DriverID), string(o.TripID), ttl).Err()
	return true, err
}

// GetOffer returns the live offer for a trip, if any.
func (s *Store) GetOffer(ctx context.Context, tripID types.ID) (Offer, bool, error) {
	val, err := s.redis.Get(ctx, tripOfferKey(tripID)).Result()
	if err == redis.Nil {
		return Offer{}, false, nil
	}
	if err != nil {
		return Offer{}, false, err
	}
	o, err := parseOffer(tripID, val)
	if err != nil {
		return Offer{}, false, err
	}
	return o, true, nil
}

// GetDriverOffer returns the live offer held by a driver, if any.
func (s *Store) GetDriverOffer(ctx context.Context, driverID types.ID) (Offer, bool, error) {
	tripID, err := s.redis.Get(ctx, driverOfferKey(driverID)).Result()
	if err == redis.Nil {
		return Offer{}, false, nil
	}
	if err != nil {
		return Offer{}, false, err
	}
	o, found, err := s.GetOffer(ctx, types.ID(tripID))
	if err != nil || !found {
		return Offer{}, false, err
	}
	if o.DriverID != driverID {
		// The trip has since been offered to someone else.
		return Offer{}, false, nil
	}
	return o, true, nil
}

func (s *Store) DeleteOffer(ctx context.Context, o Offer) error {
	return s.redis.Del(ctx, tripOfferKey(o.TripID), driverOfferKey(o.DriverID)).Err()
}

func parseOffer(tripID types.ID, val string) (Offer, error) {
	parts := strings.SplitN(val, "|", 2)
	if len(parts) != 2 {
		return Offer{}, fmt.Errorf("malformed offer value %q", val)
	}
	expires, err := time.Parse(time.RFC3339Nano, parts[1])
	if err != nil {
		return Offer{}, fmt.Errorf("malformed offer expiry %q: %w", parts[1], err)
	}
	return Offer{TripID: tripID, DriverID: types.ID(parts[0]), ExpiresAt: expires}, nil
}

func tripOfferKey(tripID types.ID) string {
	return fmt.Sprintf(tripOfferPrefix, string(tripID))
}

func driverOfferKey(driverID types.ID) string {
	return fmt.Sprintf(driverOfferPrefix, string(driverID))
}
