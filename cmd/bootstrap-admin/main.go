package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"time"

	identityapp "github.com/donation/backend/internal/application/identity"
	"github.com/donation/backend/internal/domain/shared"
	"github.com/donation/backend/internal/infrastructure/auth"
	"github.com/donation/backend/internal/infrastructure/config"
	"github.com/donation/backend/internal/infrastructure/logger"
	"github.com/donation/backend/internal/infrastructure/persistence"
	"go.uber.org/zap"
)

// passwordEnv keeps the password out of shell history and process listings
const passwordEnv = "DONATION_BOOTSTRAP_PASSWORD"

func main() {
	var (
		email    string
		name     string
		password string
		role     string
		logLevel string
	)

	flag.StringVar(&email, "email", "", "Admin email (required)")
	flag.StringVar(&name, "name", "Administrator", "Admin display name")
	flag.StringVar(&password, "password", "", "Admin password; prefer the "+passwordEnv+" environment variable")
	flag.StringVar(&role, "role", "superadmin", "Admin role: superadmin or admin")
	flag.StringVar(&logLevel, "log-level", "info", "Log level (debug, info, warn, error)")
	flag.Parse()

	if password == "" {
		password = os.Getenv(passwordEnv)
	}
	if email == "" || password == "" {
		fmt.Fprintf(os.Stderr, "Usage: bootstrap-admin -email <email> [-name <name>] [-role superadmin|admin]\n"+
			"The password is read from -password or %s.\n", passwordEnv)
		os.Exit(2)
	}

	log, err := logger.New(&logger.Config{
		Level:      logLevel,
		Format:     "console",
		Output:     "stdout",
		TimeFormat: "2006-01-02 15:04:05",
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer func() {
		_ = logger.Sync(log)
	}()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal("Failed to load configuration", zap.Error(err))
	}

	db, err := persistence.NewDatabase(&cfg.Database)
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer db.Close()

	if cfg.Database.AutoMigrate {
		if err := db.AutoMigrate(); err != nil {
			log.Fatal("Failed to migrate schema", zap.Error(err))
		}
	}

	jwtService, err := auth.NewJWTService(cfg.Auth)
	if err != nil {
		log.Fatal("Failed to initialize JWT service", zap.Error(err))
	}
	authService := identityapp.NewAuthService(persistence.NewGormAdminRepository(db.DB), jwtService, nil,
		identityapp.AuthServiceConfigFrom(cfg.Auth), log)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	profile, err := authService.Bootstrap(ctx, identityapp.CreateAdminRequest{
		Email:    email,
		Name:     name,
		Password: password,
		Role:     role,
	})
	if err != nil {
		var domainErr *shared.DomainError
		if errors.As(err, &domainErr) {
			log.Fatal("Bootstrap refused", zap.String("code", domainErr.Code), zap.String("reason", domainErr.Message))
		}
		log.Fatal("Bootstrap failed", zap.Error(err))
	}

	log.Info("Admin created",
		zap.String("id", profile.ID.String()),
		zap.String("email", profile.Email),
		zap.String("role", string(profile.Role)),
	)
}
