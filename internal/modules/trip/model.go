// README: Trip aggregate, status definitions, and the lifecycle transition table.
package trip

import (
	"time"

	"tripmatch/internal/types"
)

type Status string

const (
	StatusNone         Status = "none"
	StatusPending      Status = "pending"
	StatusAssigned     Status = "assigned"
	StatusActive       Status = "active"
	StatusEndingUser   Status = "ending_user"
	StatusEndingDriver Status = "ending_driver"
	StatusEnded        Status = "ended"
)

// Side identifies which party of a ride is acting.
type Side string

const (
	SideUser   Side = "user"
	SideDriver Side = "driver"
)

type Trip struct {
	ID            types.ID
	RiderID       types.ID
	DriverID      *types.ID
	Status        Status
	StatusVersion int
	Source        string
	Destination   string
	DistanceKm    *float64
	Fare          types.Money
	CreatedAt     time.Time
	AssignedAt    *time.Time
	EndedAt       *time.Time
}

type Event struct {
	ID         int64
	TripID     types.ID
	FromStatus Status
	ToStatus   Status
	ActorType  string
	ActorID    *types.ID
	CreatedAt  time.Time
}

// AllowedTransitions represents the trip state flow as code. Transitions are
// strictly forward; `ended` is absorbing.
var AllowedTransitions = map[Status][]Status{
	StatusPending:      {StatusAssigned},
	StatusAssigned:     {StatusActive},
	StatusActive:       {StatusEndingUser, StatusEndingDriver},
	StatusEndingUser:   {StatusEnded},
	StatusEndingDriver: {StatusEnded},
}

func CanTransition(from, to Status) bool {
	next, ok := AllowedTransitions[from]
	if !ok {
		return false
	}
	for _, s := range next {
		if s == to {
			return true
		}
	}
	return false
}

// endingStatus maps a side to the partial-end state it produces.
func endingStatus(side Side) Status {
	if side == SideDriver {
		return StatusEndingDriver
	}
	return StatusEndingUser
}

// NextOnEnd returns the status an end signal from the given side moves the trip
// to, or false when the signal is a no-op (that side already ended, or the trip
// is fully ended).
func NextOnEnd(current Status, side Side) (Status, bool) {
	switch current {
	case StatusActive:
		return endingStatus(side), true
	case StatusEndingUser:
		if side == SideUser {
			return "", false
		}
		return StatusEnded, true
	case StatusEndingDriver:
		if side == SideDriver {
			return "", false
		}
		return StatusEnded, true
	default:
		return "", false
	}
}

// Terminal reports whether no further transitions are possible.
func Terminal(s Status) bool {
	return s == StatusEnded
}
