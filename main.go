package main

import (
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"go.uber.org/zap"

	"tasklist-backend/internal/config"
	"tasklist-backend/internal/repository"
	"tasklist-backend/internal/server"
	"tasklist-backend/internal/service"
	"tasklist-backend/internal/token"
)

func main() {
	logger, err := zap.NewProduction()
	if err != nil {
		panic(err)
	}
	defer func() {
		_ = logger.Sync() // Flushes buffer, if any
	}()

	log := logrus.New()

	// A .env file is optional; real deployments set the environment directly.
	_ = godotenv.Load()

	// Load configuration
	cfgPath := "configs/config.yml"
	cfg, err := config.LoadConfig(cfgPath)
	if err != nil {
		logger.Fatal("Failed to load config", zap.Error(err))
	}

	// Database connection
	db, err := repository.NewPostgresDB(cfg.Database.URL, logger)
	if err != nil {
		logger.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer db.Close()

	// Run migrations
	repository.MigrateDB(db, logger)

	// Seed the bootstrap admin account on first boot
	userRepo := repository.NewUserRepository(db, logger)
	codec := token.NewCodec(cfg.Auth.Secret, time.Duration(cfg.Auth.TokenMaxAgeSecs)*time.Second)
	authService := service.NewAuthService(userRepo, codec, logger)
	if err := authService.EnsureAdmin(cfg.Auth.BootstrapPassword); err != nil {
		logger.Fatal("Failed to seed admin account", zap.Error(err))
	}

	// Initialize and run the server
	srv := server.NewServer(db, cfg, logger, log)
	srv.Run(cfg.Server.Port)
}
