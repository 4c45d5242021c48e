// README: Entry point; loads config, wires services, starts the HTTP server.
package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"tripmatch/internal/config"
	httptransport "tripmatch/internal/http"
	"tripmatch/internal/http/handlers"
	"tripmatch/internal/infra"
	"tripmatch/internal/maps"
	"tripmatch/internal/modules/matching"
	"tripmatch/internal/modules/pricing"
	"tripmatch/internal/modules/profile"
	"tripmatch/internal/modules/trip"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	dbPool, err := infra.NewDB(ctx, cfg.DB.DSN)
	if err != nil {
		log.Fatal(err)
	}
	defer dbPool.Close()

	redisClient := infra.NewRedis(cfg.Redis.Addr, cfg.Redis.Password)

	pricingSvc := pricing.NewService(pricing.NewStore(dbPool))
	profileSvc := profile.NewService(profile.NewStore(dbPool))
	tripSvc := trip.NewService(trip.NewStore(dbPool), pricingSvc, profileSvc)
	matchingSvc := matching.NewService(matching.NewStore(redisClient), tripSvc, tripSvc, cfg.Matching)

	var routeSvc handlers.RouteEstimator
	if cfg.Maps.APIKey != "" {
		rs, err := maps.NewRouteService(cfg.Maps.APIKey)
		if err != nil {
			log.Fatalf("maps init: %v", err)
		}
		routeSvc = rs
	}

	handler := httptransport.NewServer(httptransport.ServerDeps{
		Trips:    tripSvc,
		Matching: matchingSvc,
		Profiles: profileSvc,
		Routes:   routeSvc,
	})

	server := &http.Server{Addr: cfg.HTTP.Addr, Handler: handler.Routes()}

	go func() {
		<-ctx.Done()
		_ = server.Shutdown(context.Background())
	}()

	log.Printf("listening on %s", cfg.HTTP.Addr)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatal(err)
	}
}
