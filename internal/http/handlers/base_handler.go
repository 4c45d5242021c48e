// README: Base handler utilities (JSON helpers, error to status-code mapping, DTOs).
package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"tripmatch/internal/modules/matching"
	"tripmatch/internal/modules/profile"
	"tripmatch/internal/modules/trip"
	"tripmatch/internal/types"
)

type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(c *gin.Context, status int, v any) {
	c.JSON(status, v)
}

func writeError(c *gin.Context, status int, msg string) {
	writeJSON(c, status, errorResponse{Error: msg})
}

func writeTripError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, trip.ErrBadRequest):
		writeError(c, http.StatusBadRequest, err.Error())
	case errors.Is(err, trip.ErrNotFound), errors.Is(err, profile.ErrNotFound):
		writeError(c, http.StatusNotFound, err.Error())
	case errors.Is(err, trip.ErrAlreadyAssigned),
		errors.Is(err, trip.ErrInvalidState),
		errors.Is(err, trip.ErrActiveTrip),
		errors.Is(err, trip.ErrConflict),
		errors.Is(err, matching.ErrOfferConflict),
		errors.Is(err, matching.ErrOffDuty):
		writeError(c, http.StatusConflict, err.Error())
	case errors.Is(err, matching.ErrOfferExpired):
		writeError(c, http.StatusGone, err.Error())
	default:
		writeError(c, http.StatusInternalServerError, "internal error")
	}
}

type fareResponse struct {
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
}

type tripResponse struct {
	ID          types.ID     `json:"id"`
	RiderID     types.ID     `json:"riderId"`
	DriverID    *types.ID    `json:"driverId"`
	Status      trip.Status  `json:"status"`
	Source      string       `json:"source"`
	Destination string       `json:"destination"`
	DistanceKm  *float64     `json:"distance"`
	Fare        fareResponse `json:"fare"`
	CreatedAt   time.Time    `json:"createdAt"`
	AssignedAt  *time.Time   `json:"assignedAt"`
	EndedAt     *time.Time   `json:"endedAt"`
}

func toTripResponse(t *trip.Trip) tripResponse {
	return tripResponse{
		ID:          t.ID,
		RiderID:     t.RiderID,
		DriverID:    t.DriverID,
		Status:      t.Status,
		Source:      t.Source,
		Destination: t.Destination,
		DistanceKm:  t.DistanceKm,
		Fare:        fareResponse{Amount: t.Fare.Amount, Currency: t.Fare.Currency},
		CreatedAt:   t.CreatedAt,
		AssignedAt:  t.AssignedAt,
		EndedAt:     t.EndedAt,
	}
}
