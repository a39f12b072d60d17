package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"clinic-console-server/internal/bus"
	"clinic-console-server/internal/config"
	"clinic-console-server/internal/db"
	"clinic-console-server/internal/services"
	"clinic-console-server/pkg/logger"
	"clinic-console-server/router"

	"go.uber.org/zap"
)

// SetupServer initializes and returns a configured HTTP server plus a cleanup
// function that releases the database and bus
func SetupServer(cfg *config.Config) (*http.Server, func(), error) {
	if cfg == nil {
		return nil, nil, errors.New("configuration is required")
	}

	if cfg.Server.Port <= 0 {
		return nil, nil, errors.New("invalid server port")
	}

	// Initialize database
	database, err := db.NewDatabase(cfg.Database.DSN)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	// Initialize change-notification bus
	changeBus, err := newBus(cfg)
	if err != nil {
		if closeErr := database.Close(); closeErr != nil {
			logger.Warn("Failed to close database", zap.Error(closeErr))
		}
		return nil, nil, fmt.Errorf("failed to initialize bus: %w", err)
	}

	// Initialize repositories
	conversationRepo := db.NewConversationRepository(database.GetDB())
	messageRepo := db.NewMessageRepository(database.GetDB())
	appointmentRepo := db.NewAppointmentRepository(database.GetDB())
	profileRepo := db.NewProfileRepository(database.GetDB())

	// Initialize services
	conversationService := services.NewConversationService(conversationRepo, profileRepo, changeBus)
	messageService := services.NewMessageService(messageRepo, conversationRepo, changeBus)
	appointmentService := services.NewAppointmentService(appointmentRepo, profileRepo, changeBus)
	performanceService := services.NewPerformanceService(conversationRepo, messageRepo, profileRepo)

	handler := router.NewRouter(cfg, router.Services{
		Conversations: conversationService,
		Messages:      messageService,
		Appointments:  appointmentService,
		Performance:   performanceService,
		Profiles:      profileRepo,
	})

	// Create server with security timeouts
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           handler,
		ReadTimeout:       15 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	cleanup := func() {
		if err := changeBus.Close(); err != nil {
			logger.Warn("Failed to close bus", zap.Error(err))
		}
		if err := database.Close(); err != nil {
			logger.Warn("Failed to close database", zap.Error(err))
		}
	}

	return srv, cleanup, nil
}

// newBus selects the change-notification transport from configuration
func newBus(cfg *config.Config) (bus.Bus, error) {
	switch cfg.Bus.Driver {
	case "", "memory":
		return bus.NewMemoryBus(), nil
	case "amqp":
		return bus.NewAMQPBus(cfg.Bus.URL, cfg.Bus.Exchange)
	default:
		return nil, fmt.Errorf("unknown bus driver %q", cfg.Bus.Driver)
	}
}

// StartServer starts the HTTP server and handles graceful shutdown
func StartServer(srv *http.Server) error {
	// Start server in a goroutine
	go func() {
		logger.Info("Starting server",
			zap.String("addr", srv.Addr),
			zap.String("version", version),
		)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Server error", zap.Error(err))
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")

	// Create a timeout context for shutdown
	ctxShutdown, cancelShutdown := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancelShutdown()

	if err := srv.Shutdown(ctxShutdown); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	return nil
}

// StartServerWithContext starts the HTTP server with a context for shutdown control
func StartServerWithContext(ctx context.Context, srv *http.Server) error {
	// Start server in a goroutine
	go func() {
		logger.Info("Starting server", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Server error", zap.Error(err))
		}
	}()

	// Wait for context cancellation
	<-ctx.Done()

	logger.Info("Shutting down server...")

	ctxShutdown, cancelShutdown := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancelShutdown()

	if err := srv.Shutdown(ctxShutdown); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	return nil
}
