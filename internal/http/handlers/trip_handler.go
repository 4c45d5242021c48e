// README: Trip handlers for create/list/active/assign/end.
package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"tripmatch/internal/maps"
	"tripmatch/internal/modules/trip"
	"tripmatch/internal/types"
)

// TripService is the slice of the trip module the gateway needs.
type TripService interface {
	Create(ctx context.Context, cmd trip.CreateCommand) (*trip.Trip, error)
	Get(ctx context.Context, id types.ID) (*trip.Trip, error)
	List(ctx context.Context, f trip.ListFilter) ([]*trip.Trip, error)
	ActiveFor(ctx context.Context, partyID types.ID, side trip.Side) (*trip.Trip, error)
	Assign(ctx context.Context, cmd trip.AssignCommand) (*trip.Trip, error)
	EndRide(ctx context.Context, cmd trip.EndCommand) (*trip.Trip, error)
}

// RouteEstimator fills in a missing distance at creation time. Failures are not
// fatal: the trip is created without a distance and fare estimation is skipped.
type RouteEstimator interface {
	RouteEstimate(ctx context.Context, origin, destination string) (maps.Route, error)
}

type TripHandler struct {
	trips  TripService
	routes RouteEstimator
}

func NewTripHandler(trips TripService, routes RouteEstimator) *TripHandler {
	return &TripHandler{trips: trips, routes: routes}
}

type createTripReq struct {
	RiderID     string   `json:"riderId"`
	Source      string   `json:"source"`
	Destination string   `json:"destination"`
	DistanceKm  *float64 `json:"distance"`
}

func (h *TripHandler) Create(c *gin.Context) {
	var req createTripReq
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "invalid json")
		return
	}
	if req.RiderID == "" || req.Source == "" || req.Destination == "" {
		writeError(c, http.StatusBadRequest, "missing fields")
		return
	}

	distance := req.DistanceKm
	if distance == nil && h.routes != nil {
		if r, err := h.routes.RouteEstimate(c.Request.Context(), req.Source, req.Destination); err == nil {
			distance = &r.DistanceKm
		}
	}

	t, err := h.trips.Create(c.Request.Context(), trip.CreateCommand{
		RiderID:     types.ID(req.RiderID),
		Source:      req.Source,
		Destination: req.Destination,
		DistanceKm:  distance,
	})
	if err != nil {
		writeTripError(c, err)
		return
	}
	writeJSON(c, http.StatusCreated, toTripResponse(t))
}

func (h *TripHandler) List(c *gin.Context) {
	f := trip.ListFilter{Status: trip.Status(c.Query("status"))}
	trips, err := h.trips.List(c.Request.Context(), f)
	if err != nil {
		writeTripError(c, err)
		return
	}
	out := make([]tripResponse, 0, len(trips))
	for _, t := range trips {
		out = append(out, toTripResponse(t))
	}
	writeJSON(c, http.StatusOK, out)
}

func (h *TripHandler) Active(c *gin.Context) {
	partyID := types.ID(c.Query("party_id"))
	side := trip.Side(c.Query("role"))
	if partyID != "" && side != trip.SideUser && side != trip.SideDriver {
		writeError(c, http.StatusBadRequest, "role must be \"user\" or \"driver\" when party_id is given")
		return
	}
	t, err := h.trips.ActiveFor(c.Request.Context(), partyID, side)
	if err != nil {
		writeTripError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, toTripResponse(t))
}

type assignDriverReq struct {
	DriverID string `json:"driverId"`
}

func (h *TripHandler) AssignDriver(c *gin.Context) {
	id := c.Param("id")
	var req assignDriverReq
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "invalid json")
		return
	}
	if req.DriverID == "" {
		writeError(c, http.StatusBadRequest, "missing driverId")
		return
	}
	t, err := h.trips.Assign(c.Request.Context(), trip.AssignCommand{
		TripID:   types.ID(id),
		DriverID: types.ID(req.DriverID),
	})
	if err != nil {
		writeTripError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, toTripResponse(t))
}

func (h *TripHandler) EndDriver(c *gin.Context) {
	h.endRide(c, trip.SideDriver)
}

func (h *TripHandler) EndUser(c *gin.Context) {
	h.endRide(c, trip.SideUser)
}

func (h *TripHandler) endRide(c *gin.Context, side trip.Side) {
	id := c.Param("id")
	t, err := h.trips.EndRide(c.Request.Context(), trip.EndCommand{
		TripID: types.ID(id),
		Side:   side,
	})
	if err != nil {
		writeTripError(c, err)
		return
	}
	msg := "Waiting for the other party to end the ride"
	if t.Status == trip.StatusEnded {
		msg = "Ride ended"
	}
	writeJSON(c, http.StatusOK, gin.H{"message": msg, "status": t.Status})
}
