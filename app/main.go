package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/lysyi3m/rent-comb/app/api"
	"github.com/lysyi3m/rent-comb/app/cfg"
	"github.com/lysyi3m/rent-comb/app/crawl"
	"github.com/lysyi3m/rent-comb/app/database"
	"github.com/lysyi3m/rent-comb/app/listing"
	"github.com/lysyi3m/rent-comb/app/sector"
	"github.com/lysyi3m/rent-comb/app/tasks"
)

func main() {
	appCfg, err := cfg.Load()
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}
	if appCfg == nil {
		// --help was shown
		return
	}

	level := slog.LevelInfo
	if appCfg.Debug {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: level})))

	slog.Info("Starting Rent Comb server", "version", appCfg.Version)

	db, err := database.NewConnection(appCfg.DBPath)
	if err != nil {
		slog.Error("Failed to connect to database", "path", appCfg.DBPath, "error", err)
		os.Exit(1)
	}
	defer db.Close()

	version, dirty, err := database.RunMigrations(db)
	if err != nil {
		slog.Error("Failed to run migrations", "error", err)
		os.Exit(1)
	}
	slog.Info("Database ready", "path", appCfg.DBPath, "schema_version", version, "dirty", dirty)

	store := sector.NewStore(appCfg.NeighborhoodMapPath, appCfg.DiscoveredZonesPath)
	if err := store.Load(); err != nil {
		slog.Error("Failed to load neighborhood map", "path", appCfg.NeighborhoodMapPath, "error", err)
		os.Exit(1)
	}
	resolver := sector.NewResolver(store)
	learner := sector.NewLearner(store, resolver)

	portalCache := crawl.NewPortalCache(appCfg.PortalsDir)
	if err := portalCache.Run(); err != nil {
		slog.Error("Failed to load portal configurations", "dir", appCfg.PortalsDir, "error", err)
		os.Exit(1)
	}

	listingRepo := database.NewListingRepository(db)
	searchRepo := database.NewSearchRepository(db)
	runRepo := database.NewRunRepository(db)

	filterer := listing.NewFilterer(appCfg.MaxPrice, appCfg.TargetCities, learner)
	ingester := listing.NewIngester(listingRepo, filterer, resolver)
	reaper := listing.NewReaper(listingRepo)

	httpClient := &http.Client{}
	newAdapter := func(config *crawl.Config) (tasks.PartitionAdapter, error) {
		adapter, err := crawl.NewAdapter(config, httpClient, appCfg.UserAgent, appCfg.ChromePath, listingRepo)
		if err != nil {
			return nil, err
		}
		return adapter, nil
	}

	scheduler := tasks.NewScheduler(portalCache, newAdapter, ingester, runRepo, listingRepo, resolver, reaper, learner)
	scheduler.Start()

	handler := api.NewHandler(portalCache, listingRepo, searchRepo, runRepo, store, resolver, scheduler, reaper)
	server := api.NewServer(handler, appCfg.APIAccessKey)

	httpServer := &http.Server{
		Addr:         ":" + appCfg.Port,
		Handler:      server,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	serverErrChan := make(chan error, 1)
	go func() {
		slog.Info("Starting HTTP server", "port", appCfg.Port, "portals", portalCache.GetConfigCount(), "workers", appCfg.WorkerCount)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErrChan <- fmt.Errorf("HTTP server error: %w", err)
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	select {
	case sig := <-sigChan:
		slog.Info("Received signal", "signal", sig)
	case err := <-serverErrChan:
		slog.Error("Server error", "error", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	shutdown(shutdownCtx, httpServer, scheduler, store)

	slog.Info("Rent Comb server shutdown complete")
}

// shutdown stops intake first, then the workers, and persists the
// neighborhood store last so writes made by in-flight tasks are flushed.
func shutdown(ctx context.Context, server interface{ Shutdown(context.Context) error },
	scheduler interface{ Stop() }, store interface{ Flush() error }) {
	if err := server.Shutdown(ctx); err != nil {
		slog.Error("HTTP server shutdown error", "error", err)
	} else {
		slog.Info("HTTP server stopped")
	}

	scheduler.Stop()
	slog.Info("Scheduler stopped")

	if err := store.Flush(); err != nil {
		slog.Warn("Neighborhood store flush failed", "error", err)
	}
}
