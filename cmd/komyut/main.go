package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"komyut/internal/cache"
	"komyut/internal/config"
	"komyut/internal/events"
	"komyut/internal/fare"
	"komyut/internal/geocode"
	"komyut/internal/gtfs"
	"komyut/internal/handler"
	"komyut/internal/itinerary"
	"komyut/internal/journey"
	"komyut/internal/metrics"
	"komyut/internal/realtime"
	"komyut/internal/server"
	"komyut/internal/storage"
	"komyut/internal/transit"
)

func main() {
	cfg := config.Load()

	// CLI flags
	importGTFS := flag.Bool("import-gtfs", false, "Download and import GTFS data, then exit")
	gtfsFile := flag.String("gtfs-file", "", "Import a local GTFS zip instead of downloading (with -import-gtfs)")
	importFares := flag.Bool("import-fares", false, "Import fare tables from the fares directory, then exit")
	flag.IntVar(&cfg.Port, "port", cfg.Port, "HTTP server port")
	flag.StringVar(&cfg.DBPath, "db", cfg.DBPath, "SQLite database path")
	flag.StringVar(&cfg.GTFSDir, "gtfs-dir", cfg.GTFSDir, "Directory for GTFS data files")
	flag.StringVar(&cfg.FaresDir, "fares-dir", cfg.FaresDir, "Directory holding distance_fares.csv and station_fares.csv")
	flag.Parse()
	cfg.ImportGTFS = *importGTFS
	cfg.ImportFares = *importFares

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: cfg.LogLevel,
	}))

	// Cancelled on SIGINT/SIGTERM for graceful shutdown
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := storage.Open(cfg.DBPath, logger)
	if err != nil {
		logger.Error("failed to open database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	downloader := gtfs.NewDownloader(cfg.GTFSURL, cfg.GTFSDir, cfg.GeocodeUserAgent, logger)
	scheduler := gtfs.NewScheduler(downloader, db, cfg.Location(), logger)
	fares := gtfs.NewFareImporter(db, logger)

	// One-shot modes
	if cfg.ImportGTFS || cfg.ImportFares {
		if err := runImports(ctx, cfg, *gtfsFile, db, scheduler, fares, logger); err != nil {
			logger.Error("import failed", "error", err)
			os.Exit(1)
		}
		return
	}

	if err := fares.Import(ctx, cfg.FaresDir); err != nil {
		logger.Error("fare table import failed", "error", err)
	}

	collector := metrics.New()

	catalog := transit.NewCatalog(db, logger)
	reloadCatalog := func(ctx context.Context) {
		if err := catalog.Reload(ctx); err != nil {
			logger.Error("catalog reload failed", "error", err)
			return
		}
		snap := catalog.Snapshot()
		collector.CatalogLoaded(snap.Stops.Len(), len(snap.Routes))
	}
	if db.HasData(ctx) {
		reloadCatalog(ctx)
	}

	// Geocoding, cached in Redis when configured
	var store cache.Store
	if cfg.RedisAddr != "" {
		rc, err := cache.NewRedis(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB, logger)
		if err != nil {
			logger.Warn("redis unavailable, using in-process cache", "error", err)
		} else {
			defer rc.Close()
			store = rc
		}
	}
	if store == nil {
		store = cache.NewMemory(cfg.CacheTTL, 10*time.Minute)
	}
	geocoder := geocode.NewCached(geocode.New(cfg.NominatimURL, cfg.GeocodeUserAgent), store, cfg.CacheTTL, logger)

	// GTFS-RT service alerts
	alerts := realtime.NewStore()
	if cfg.AlertsURL != "" {
		fetcher := realtime.NewFetcher(cfg.AlertsURL, realtime.DefaultPollInterval, alerts, logger)
		fetcher.OnUpdate(collector.AlertsLoaded)
		go fetcher.Start(ctx)
	}

	selector := fare.NewSelector(db, db, logger)
	resolver := transit.NewResolver(db, cfg.DirectionalRoutes)
	planner := itinerary.New(catalog, db, resolver, selector,
		itinerary.Options{
			SnapRadiusMeters: cfg.SnapRadiusMeters,
			Concurrency:      cfg.FareConcurrency,
			PathDistance:     cfg.PathDistance,
		},
		logger,
		itinerary.WithGeocoder(geocoder),
		itinerary.WithPaths(db),
		itinerary.WithAlerts(alerts),
		itinerary.WithMetrics(collector),
	)

	tripOpts := []journey.Option{journey.WithMetrics(collector)}
	if cfg.NATSURL != "" {
		pub, err := events.NewNATSPublisher(cfg.NATSURL, logger, collector)
		if err != nil {
			logger.Warn("NATS unavailable, trip events disabled", "error", err)
		} else {
			defer pub.Close()
			tripOpts = append(tripOpts, journey.WithNotifier(pub))
		}
	}
	trips := journey.NewService(db, cfg.CompletionPoints, logger, tripOpts...)

	h := handler.New(handler.Deps{
		Catalog:  catalog,
		Nearby:   db,
		Routes:   resolver,
		Planner:  planner,
		Fares:    selector,
		Trips:    trips,
		Geocoder: geocoder,
		Alerts:   alerts,
	}, logger)
	srv := server.New(cfg, h, db, collector, logger)

	scheduler.OnImport(func(ctx context.Context) {
		reloadCatalog(ctx)
		srv.SetReady()
	})

	// First import runs behind the readiness gate
	go func() {
		if err := scheduler.EnsureData(ctx); err != nil {
			logger.Error("failed to ensure GTFS data", "error", err)
		}
		if err := scheduler.CheckAndUpdate(ctx); err != nil {
			logger.Error("daily GTFS check failed", "error", err)
		}
	}()
	go scheduler.StartBackground(ctx)

	if err := srv.ListenAndServe(ctx); err != nil {
		logger.Error("server error", "error", err)
		os.Exit(1)
	}
}

func runImports(ctx context.Context, cfg *config.Config, gtfsFile string, db *storage.DB, scheduler *gtfs.Scheduler, fares *gtfs.FareImporter, logger *slog.Logger) error {
	if cfg.ImportGTFS {
		logger.Info("force importing GTFS data")
		var err error
		if gtfsFile != "" {
			err = gtfs.NewImporter(db, logger).ImportFile(ctx, gtfsFile)
		} else {
			err = scheduler.ForceUpdate(ctx)
		}
		if err != nil {
			return err
		}
		logger.Info("GTFS import complete")
	}
	if cfg.ImportFares {
		if err := fares.Import(ctx, cfg.FaresDir); err != nil {
			return err
		}
		logger.Info("fare import complete", "dir", cfg.FaresDir)
	}
	return nil
}
