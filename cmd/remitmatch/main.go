package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/savegress/remitmatch/internal/api"
	"github.com/savegress/remitmatch/internal/config"
	"github.com/savegress/remitmatch/internal/matching"
	"github.com/savegress/remitmatch/internal/opendental"
	"github.com/savegress/remitmatch/internal/storage"
)

func main() {
	log.Println("Starting RemitMatch...")

	cfg := loadConfig()

	// Claim cache
	store, err := storage.NewClaimStore(cfg.Storage.DataPath)
	if err != nil {
		log.Fatalf("Failed to open claim store: %v", err)
	}
	defer store.Close()

	// OpenDental API client
	odClient := opendental.NewClient(&opendental.ClientConfig{
		BaseURL:     cfg.OpenDental.BaseURL,
		DevKey:      cfg.OpenDental.DevKey,
		CustomerKey: cfg.OpenDental.CustomerKey,
		Timeout:     cfg.OpenDental.Timeout,
	})
	carriers := opendental.NewCarriers(odClient)

	// Matcher
	matcherCfg := matching.DefaultConfig()
	if cfg.Matching.MinScore > 0 {
		matcherCfg.MinScore = cfg.Matching.MinScore
	}
	if cfg.Matching.NameGateScore > 0 {
		matcherCfg.NameGateScore = cfg.Matching.NameGateScore
	}
	if cfg.Matching.FeeOverrideNameScore > 0 {
		matcherCfg.FeeOverrideNameScore = cfg.Matching.FeeOverrideNameScore
	}
	if cfg.Matching.ProcedureFloor > 0 {
		matcherCfg.ProcedureFloor = cfg.Matching.ProcedureFloor
	}
	matcher := matching.New(odClient, carriers, matcherCfg)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Periodic cache retention cleanup
	go runCleanup(ctx, store, cfg.Storage)

	// Create API server
	server := api.NewServer(matcher, store)

	httpServer := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      server.Router(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Printf("RemitMatch API listening on %s", httpServer.Addr)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("HTTP server error: %v", err)
		}
	}()

	// Wait for shutdown signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down RemitMatch...")

	shutdownTimeout := cfg.Server.ShutdownTimeout
	if shutdownTimeout <= 0 {
		shutdownTimeout = 10 * time.Second
	}
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer shutdownCancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Printf("HTTP server shutdown error: %v", err)
	}

	log.Println("RemitMatch stopped")
}

func runCleanup(ctx context.Context, store *storage.ClaimStore, cfg config.StorageConfig) {
	if cfg.RetentionDays <= 0 || cfg.CleanupEvery <= 0 {
		return
	}

	ticker := time.NewTicker(cfg.CleanupEvery)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			cutoff := time.Now().AddDate(0, 0, -cfg.RetentionDays).Format("2006-01-02")
			if err := store.DeleteBefore(ctx, cutoff); err != nil {
				log.Printf("Claim cache cleanup failed: %v", err)
			}
		}
	}
}

func loadConfig() *config.Config {
	configPath := os.Getenv("REMITMATCH_CONFIG")
	if configPath != "" {
		cfg, err := config.Load(configPath)
		if err != nil {
			log.Printf("Failed to load config from %s: %v, using defaults", configPath, err)
			return config.LoadFromEnv()
		}
		return cfg
	}
	return config.LoadFromEnv()
}
