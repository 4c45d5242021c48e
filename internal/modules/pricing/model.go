// README: Pricing rate definition.
package pricing

type Rate struct {
	RideType string
	BaseFare int64
	PerKm    int64
	Currency string
}

// defaultRate matches the demo tariff of flat 15 per kilometre.
var defaultRate = Rate{RideType: "economy", BaseFare: 0, PerKm: 15, Currency: "INR"}
