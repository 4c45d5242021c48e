// README: Driver handlers for duty toggle, offer polling, and offer accept.
package handlers

import (
	"context"
	"errors"
	"math"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"tripmatch/internal/modules/matching"
	"tripmatch/internal/modules/trip"
	"tripmatch/internal/types"
)

// MatchingService is the slice of the matching module the gateway needs.
type MatchingService interface {
	SetDuty(ctx context.Context, driverID types.ID, on bool) error
	NextOffer(ctx context.Context, driverID types.ID) (matching.Offer, error)
	Accept(ctx context.Context, tripID, driverID types.ID) (*trip.Trip, error)
}

type DriverHandler struct {
	matching MatchingService
}

func NewDriverHandler(m MatchingService) *DriverHandler {
	return &DriverHandler{matching: m}
}

type dutyReq struct {
	OnDuty *bool `json:"onDuty"`
}

func (h *DriverHandler) SetDuty(c *gin.Context) {
	driverID := c.Param("id")
	var req dutyReq
	if err := c.ShouldBindJSON(&req); err != nil || req.OnDuty == nil {
		writeError(c, http.StatusBadRequest, "missing onDuty")
		return
	}
	if err := h.matching.SetDuty(c.Request.Context(), types.ID(driverID), *req.OnDuty); err != nil {
		writeTripError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, gin.H{"driverId": driverID, "onDuty": *req.OnDuty})
}

type offerResponse struct {
	TripID           types.ID `json:"tripId"`
	DriverID         types.ID `json:"driverId"`
	ExpiresAt        string   `json:"expiresAt"`
	RemainingSeconds int      `json:"remainingSeconds"`
}

func toOfferResponse(o matching.Offer) offerResponse {
	return offerResponse{
		TripID:           o.TripID,
		DriverID:         o.DriverID,
		ExpiresAt:        o.ExpiresAt.UTC().Format(time.RFC3339),
		RemainingSeconds: int(math.Ceil(o.Remaining(time.Now()).Seconds())),
	}
}

func (h *DriverHandler) Offer(c *gin.Context) {
	driverID := types.ID(c.Param("id"))
	o, err := h.matching.NextOffer(c.Request.Context(), driverID)
	if errors.Is(err, matching.ErrNoOffer) {
		c.Status(http.StatusNoContent)
		return
	}
	if err != nil {
		writeTripError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, toOfferResponse(o))
}

func (h *DriverHandler) AcceptOffer(c *gin.Context) {
	tripID := types.ID(c.Param("id"))
	driverID := types.ID(c.Query("driver_id"))
	if driverID == "" {
		writeError(c, http.StatusBadRequest, "missing driver_id")
		return
	}
	t, err := h.matching.Accept(c.Request.Context(), tripID, driverID)
	if err != nil {
		writeTripError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, toTripResponse(t))
}
