// Package main provides the embedded persistence server for desktop
// platforms. Window shells communicate over REST and WebSocket on
// localhost.
package main

import (
	"context"
	"net/http"
	"os"
	"time"

	"github.com/spf13/pflag"

	"github.com/inkpad-app/inkpad/cmd/desktop/handlers"
	"github.com/inkpad-app/inkpad/internal/config"
	"github.com/inkpad-app/inkpad/internal/hostsvc"
	"github.com/inkpad-app/inkpad/internal/kv"
	"github.com/inkpad-app/inkpad/internal/lifecycle"
	"github.com/inkpad-app/inkpad/internal/logging"
	"github.com/inkpad-app/inkpad/internal/storage"
)

func main() {
	var (
		configPath = pflag.String("config", "", "path to the YAML configuration file")
		addr       = pflag.String("addr", "", "listen address override")
		dataDir    = pflag.String("data-dir", "", "data directory override")
		logLevel   = pflag.String("log-level", "", "log level override")
	)
	pflag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		logging.Init(os.Stderr, "info")
		logging.Error("failed to load configuration", err)
		os.Exit(1)
	}
	if *addr != "" {
		cfg.Addr = *addr
	}
	if *dataDir != "" {
		cfg.DataDir = *dataDir
	}
	if *logLevel != "" {
		cfg.LogLevel = *logLevel
	}

	logging.Init(os.Stderr, cfg.LogLevel)
	log := logging.With("desktop")

	kvs, err := kv.Open(cfg.DataDir, cfg.LocalQuotaBytes)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to open key-value store")
	}

	var svc hostsvc.FileService
	if cfg.HostFiles {
		disk, err := hostsvc.NewDiskService(cfg.HostFilesDir())
		if err != nil {
			// The store falls back to the key-value backend on its own.
			log.Warn().Err(err).Msg("host file service unavailable")
		} else {
			svc = disk
		}
	}

	hub := NewWSHub()
	store := storage.New(kvs, svc, storage.Options{
		DebounceWindow: cfg.DebounceWindow(),
		WriteTimeout:   cfg.WriteTimeout(),
		OnEvent:        hub.NotifyStorageEvent,
	})

	ctx := context.Background()
	if err := store.Initialize(ctx); err != nil {
		log.Fatal().Err(err).Msg("failed to initialize storage")
	}
	log.Info().Str("backend", store.BackendName()).
		Str("migration", store.MigrationState()).
		Str("addr", cfg.Addr).
		Msg("inkpad desktop server starting")

	guard := lifecycle.NewGuard(store, 0)

	mux := handlers.NewMux(store, guard)
	mux.HandleFunc("/ws", HandleWebSocket(hub))

	server := &http.Server{
		Addr:         cfg.Addr,
		Handler:      mux,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	errs := make(chan error, 1)
	go func() { errs <- server.ListenAndServe() }()

	go func() {
		if err := <-errs; err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server failed")
		}
	}()

	// Block until a shutdown signal, then settle unsaved work before the
	// process may exit.
	if err := guard.WaitForShutdown(ctx); err != nil {
		log.Error().Err(err).Msg("unsaved work did not settle cleanly")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("server shutdown failed")
	}
	if err := store.Close(context.Background()); err != nil {
		log.Error().Err(err).Msg("storage close failed")
	}
}
