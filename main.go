package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/isdelr/usercache/internal/api"
	"github.com/isdelr/usercache/internal/config"
	"github.com/isdelr/usercache/internal/database"
	"github.com/isdelr/usercache/internal/logger"
	"github.com/isdelr/usercache/internal/monitoring"
	"github.com/isdelr/usercache/internal/remote"
	"github.com/isdelr/usercache/internal/services"
	"github.com/isdelr/usercache/internal/websocket"
	"github.com/rs/zerolog/log"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}
	logger.Init(cfg.LogLevel)

	// Set up database
	db, err := database.New(cfg.DatabasePath)
	if err != nil {
		log.Fatal().Err(err).Str("path", cfg.DatabasePath).Msg("Failed to initialize database")
	}
	defer db.Close()

	if err := database.Migrate(db); err != nil {
		log.Fatal().Err(err).Msg("Failed to apply database migrations")
	}

	// Set up remote API client
	apiClient, err := remote.New(cfg.APIBaseURL, remote.WithTimeout(cfg.HTTPTimeout))
	if err != nil {
		log.Fatal().Err(err).Str("url", cfg.APIBaseURL).Msg("Failed to initialize API client")
	}

	// Set up WebSocket Hub
	hub := websocket.NewHub()
	go hub.Run()

	// Set up services
	userService := services.NewUserService(db)
	eventService := services.NewEventService(db)
	directoryService := services.NewDirectoryService(userService, apiClient, eventService)

	// Set up and run the background cache warmer
	var warmer *monitoring.CacheWarmer
	if cfg.WarmSchedule != "off" {
		warmer, err = monitoring.NewCacheWarmer(directoryService, cfg.WarmSchedule, cfg.HTTPTimeout)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to configure cache warmer")
		}
		warmer.Start()
	}

	// Set up router
	router := api.NewRouter(hub, directoryService, eventService, cfg.AllowedOrigins)

	// Set up server
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.ServerPort),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Graceful shutdown
	go func() {
		log.Info().Int("port", cfg.ServerPort).Str("api", cfg.APIBaseURL).Msg("Server starting")
		if err := srv.ListenAndServe(); err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("ListenAndServe failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info().Msg("Shutting down server...")

	if warmer != nil {
		warmer.Stop()
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}
	hub.Stop()

	log.Info().Msg("Server exiting")
}
