package main

import (
	"github.com/homesignal/tracker/internal/config"
	"github.com/homesignal/tracker/internal/enrich"
	"github.com/homesignal/tracker/internal/geoip"
	"github.com/homesignal/tracker/internal/handlers"
	"github.com/homesignal/tracker/internal/httpserver"
	"github.com/homesignal/tracker/internal/ingest"
	"github.com/homesignal/tracker/internal/logging"
	"github.com/homesignal/tracker/internal/store"
)

func main() {
	logger := logging.NewLoggerWithService("tracker")

	config.LoadEnv(logger)
	cfg, err := config.Load()
	if err != nil {
		logger.WithError(err).Fatal("invalid configuration")
	}

	// Connect to durable storage (Postgres) using a connection pool.
	db, err := store.NewPostgresStore(cfg.DBURL)
	if err != nil {
		logger.WithError(err).Fatal("database unreachable")
	}
	defer db.Close()

	// Ensure required tables/indexes exist so a fresh database needs no
	// manual migration step.
	if err := db.EnsureSchema(); err != nil {
		logger.WithError(err).Fatal("schema bootstrap failed")
	}

	// GeoIP is optional: a missing database disables the geo enrichment
	// step instead of failing the boot.
	geo, err := geoip.NewReader(cfg.GeoIPDBPath)
	if err != nil {
		logger.WithError(err).Fatal("geoip database unusable")
	}
	if geo == nil {
		logger.Info("geoip disabled, sessions will not be located")
	} else {
		defer geo.Close()
	}

	metrics := handlers.NewMetrics()
	enricher := enrich.NewEnricher(db, geo, logger, metrics.Enrich)
	dispatcher := enrich.NewAsyncDispatcher(enricher, logger)
	pipeline := ingest.NewPipeline(db, dispatcher, logger, metrics.Ingest)

	router := httpserver.NewRouter(cfg, db, pipeline, enricher, metrics)

	logger.WithField("addr", cfg.ListenAddr).Info("server started")
	if err := router.Run(cfg.ListenAddr); err != nil {
		logger.WithError(err).Fatal("server stopped")
	}
}
