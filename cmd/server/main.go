package main

import (
	"flag"
	"os"

	"clinic-console-server/internal/config"
	"clinic-console-server/pkg/logger"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

var version = "dev"

func main() {
	configPath := flag.String("config", "", "path to JSON config file (absolute)")
	flag.Parse()

	// Deployment secrets come from .env when present; missing file is fine.
	_ = godotenv.Load()

	cfg := config.DefaultConfig()
	if *configPath != "" {
		loaded, err := config.LoadConfig(*configPath)
		if err != nil {
			os.Stderr.WriteString("failed to load config: " + err.Error() + "\n")
			os.Exit(1)
		}
		cfg = loaded
	}

	// Initialize logger
	if err := logger.Init(cfg.Logging.Path, cfg.Logging.Level); err != nil {
		panic(err)
	}
	defer logger.Info("Server shutting down")

	// Setup and start server
	srv, cleanup, err := SetupServer(cfg)
	if err != nil {
		logger.Fatal("Failed to setup server", zap.Error(err))
	}
	defer cleanup()

	if err := StartServer(srv); err != nil {
		logger.Fatal("Server error", zap.Error(err))
	}
}
