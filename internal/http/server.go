// README: API gateway; registers HTTP routes and delegates to module services.
package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"tripmatch/internal/http/handlers"
	"tripmatch/internal/http/middleware"
)

type ServerDeps struct {
	Trips    handlers.TripService
	Matching handlers.MatchingService
	Profiles handlers.ProfileService
	Routes   handlers.RouteEstimator
}

type Server struct {
	deps ServerDeps
}

func NewServer(deps ServerDeps) *Server {
	return &Server{deps: deps}
}

func (s *Server) Routes() http.Handler {
	r := gin.New()
	r.Use(middleware.Logging(), middleware.Recovery())

	tripHandler := handlers.NewTripHandler(s.deps.Trips, s.deps.Routes)
	r.POST("/api/trips", tripHandler.Create)
	r.GET("/api/trips", tripHandler.List)
	r.GET("/api/trips/active", tripHandler.Active)
	r.PUT("/api/trips/:id/assign-driver", tripHandler.AssignDriver)
	r.PUT("/api/trips/:id/end-driver", tripHandler.EndDriver)
	r.PUT("/api/trips/:id/end-user", tripHandler.EndUser)

	driverHandler := handlers.NewDriverHandler(s.deps.Matching)
	r.PUT("/api/drivers/:id/duty", driverHandler.SetDuty)
	r.GET("/api/drivers/:id/offer", driverHandler.Offer)
	r.PUT("/api/trips/:id/accept-offer", driverHandler.AcceptOffer)

	detailsHandler := handlers.NewDetailsHandler(s.deps.Profiles)
	r.GET("/api/details/driver", detailsHandler.FirstDriver)
	r.GET("/api/details/driver/:id/bonus", detailsHandler.DriverBonus)
	r.GET("/api/details/:role/:id", detailsHandler.Detail)

	r.GET("/health", func(c *gin.Context) {
		c.String(http.StatusOK, "OK")
	})

	return r
}
