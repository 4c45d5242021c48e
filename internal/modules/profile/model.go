// README: Driver and rider profile records.
package profile

import "tripmatch/internal/types"

type Driver struct {
	ID            types.ID
	Name          string
	VehicleNumber string
	LicenseNumber string
	TotalTrips    int
	Earnings      int64
	Points        int
	Rating        float64
}

type User struct {
	ID     types.ID
	Name   string
	Rating float64
}

// Bonus is the monthly incentive derived from accumulated points:
// (points/10000 * rating/2) percent of earnings.
type Bonus struct {
	Percent float64
	Cash    float64
}

func (d Driver) Bonus() Bonus {
	pct := float64(d.Points) / 10000 * (d.Rating / 2)
	return Bonus{
		Percent: pct,
		Cash:    pct / 100 * float64(d.Earnings),
	}
}

// pointsPerTrip matches the demo ledger (9000 points over 300 completed trips).
const pointsPerTrip = 30
