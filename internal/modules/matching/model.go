// README: Offer model for the time-boxed driver decision window.
package matching

import (
	"time"

	"tripmatch/internal/types"
)

// Offer is a time-boxed proposal of one pending trip to one driver. Offers are
// ephemeral: they live only in Redis, bounded by their expiry, and are destroyed
// on accept. Expiry is detected by comparing against ExpiresAt on every read;
// there is no timer per offer.
type Offer struct {
	TripID    types.ID
	DriverID  types.ID
	ExpiresAt time.Time
}

// Remaining returns the seconds left on the offer window at the given instant,
// clamped at zero.
func (o Offer) Remaining(now time.Time) time.Duration {
	d := o.ExpiresAt.Sub(now)
	if d < 0 {
		return 0
	}
	return d
}

// DefaultOfferWindow bounds a driver's decision time when config does not say otherwise.
const DefaultOfferWindow = 10 * time.Second
