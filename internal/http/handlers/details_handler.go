// README: Detail lookup handlers for driver and rider profiles.
package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"tripmatch/internal/modules/profile"
	"tripmatch/internal/types"
)

// ProfileService is the slice of the profile module the gateway needs.
type ProfileService interface {
	DriverDetail(ctx context.Context, id types.ID) (*profile.Driver, error)
	FirstAvailableDriver(ctx context.Context) (*profile.Driver, error)
	UserDetail(ctx context.Context, id types.ID) (*profile.User, error)
	DriverBonus(ctx context.Context, id types.ID) (*profile.Driver, profile.Bonus, error)
}

type DetailsHandler struct {
	profiles ProfileService
}

func NewDetailsHandler(profiles ProfileService) *DetailsHandler {
	return &DetailsHandler{profiles: profiles}
}

type driverResponse struct {
	ID            types.ID `json:"id"`
	Name          string   `json:"name"`
	VehicleNumber string   `json:"vehicleNumber"`
	LicenseNumber string   `json:"licenseNumber"`
	TotalTrips    int      `json:"totalTrips"`
	Earnings      int64    `json:"earnings"`
	Points        int      `json:"points"`
	Rating        float64  `json:"rating"`
}

func toDriverResponse(d *profile.Driver) driverResponse {
	return driverResponse{
		ID:            d.ID,
		Name:          d.Name,
		VehicleNumber: d.VehicleNumber,
		LicenseNumber: d.LicenseNumber,
		TotalTrips:    d.TotalTrips,
		Earnings:      d.Earnings,
		Points:        d.Points,
		Rating:        d.Rating,
	}
}

// FirstDriver serves the demo driver client, which has no login and simply
// fetches whichever driver exists.
func (h *DetailsHandler) FirstDriver(c *gin.Context) {
	d, err := h.profiles.FirstAvailableDriver(c.Request.Context())
	if err != nil {
		writeTripError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, toDriverResponse(d))
}

func (h *DetailsHandler) Detail(c *gin.Context) {
	role := c.Param("role")
	id := types.ID(c.Param("id"))
	switch role {
	case "driver":
		d, err := h.profiles.DriverDetail(c.Request.Context(), id)
		if err != nil {
			writeTripError(c, err)
			return
		}
		writeJSON(c, http.StatusOK, toDriverResponse(d))
	case "user":
		u, err := h.profiles.UserDetail(c.Request.Context(), id)
		if err != nil {
			writeTripError(c, err)
			return
		}
		writeJSON(c, http.StatusOK, gin.H{"id": u.ID, "name": u.Name, "rating": u.Rating})
	default:
		writeError(c, http.StatusBadRequest, "role must be \"driver\" or \"user\"")
	}
}

func (h *DetailsHandler) DriverBonus(c *gin.Context) {
	id := types.ID(c.Param("id"))
	d, bonus, err := h.profiles.DriverBonus(c.Request.Context(), id)
	if err != nil {
		writeTripError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, gin.H{
		"driverId":     d.ID,
		"points":       d.Points,
		"rating":       d.Rating,
		"earnings":     d.Earnings,
		"bonusPercent": bonus.Percent,
		"bonusCash":    bonus.Cash,
	})
}
