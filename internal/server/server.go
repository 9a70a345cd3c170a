// Package server boots the HTTP service: it connects storage, runs
// migrations, wires the alignment engine and event subscribers, and
// serves the API until a shutdown signal arrives.
package server

import (
	"context"
	"crypto/rand"
	"database/sql"
	"encoding/hex"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/maitreyyi/SANA-Development-sub001/internal/api"
	"github.com/maitreyyi/SANA-Development-sub001/internal/config"
	"github.com/maitreyyi/SANA-Development-sub001/internal/core/align"
	"github.com/maitreyyi/SANA-Development-sub001/internal/core/event"
	"github.com/maitreyyi/SANA-Development-sub001/internal/core/fileserver"
	"github.com/maitreyyi/SANA-Development-sub001/internal/core/job"
	"github.com/maitreyyi/SANA-Development-sub001/internal/core/service"
	"github.com/maitreyyi/SANA-Development-sub001/internal/core/user"
	"github.com/maitreyyi/SANA-Development-sub001/internal/database"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/crypto/bcrypt"
)

func Run(ctx context.Context, cfg *config.Config) error {
	level, err := zerolog.ParseLevel(cfg.Logging.Level)
	if err == nil {
		zerolog.SetGlobalLevel(level)
	}
	log.Debug().Str("level", cfg.Logging.Level).Msg("log level configured")

	db, err := database.Connect(ctx, cfg.Database.Path)
	if err != nil {
		return fmt.Errorf("database connect: %w", err)
	}
	defer db.Close()

	if err := database.Migrate(ctx, db); err != nil {
		return fmt.Errorf("migrations: %w", err)
	}

	// Auto-generate the JWT secret on first boot
	jwtSecret, err := ensureSetting(ctx, db, "jwt_secret", 32)
	if err != nil {
		return fmt.Errorf("jwt secret: %w", err)
	}
	if cfg.Auth.JWTSecret != "" {
		jwtSecret = cfg.Auth.JWTSecret
	}

	users := user.NewStore(db)
	adminPassword, err := ensureAdmin(ctx, users, cfg.Auth.AdminUsername, cfg.Auth.AdminPassword)
	if err != nil {
		return fmt.Errorf("admin setup: %w", err)
	}

	jobs, err := job.NewStore(cfg.Jobs.Dir)
	if err != nil {
		return fmt.Errorf("job store: %w", err)
	}

	bus := event.NewBus()
	setupEventLogging(bus)

	runGrace, err := time.ParseDuration(cfg.Sana.RunGrace)
	if err != nil {
		runGrace = 5 * time.Minute
	}
	engine := align.NewEngine(jobs, bus, align.Config{
		BinDir:        cfg.Sana.BinDir,
		MaxConcurrent: cfg.Jobs.MaxConcurrent,
		RunGrace:      runGrace,
	})

	jwtExpiry, err := time.ParseDuration(cfg.Auth.JWTExpiry)
	if err != nil {
		jwtExpiry = 24 * time.Hour
	}
	linkExpiry, err := time.ParseDuration(cfg.Limits.LinkExpiry)
	if err != nil {
		linkExpiry = 24 * time.Hour
	}

	baseURL := cfg.Server.BaseURL
	if baseURL == "" {
		baseURL = fmt.Sprintf("http://%s:%d", cfg.Server.Host, cfg.Server.Port)
	}

	signer := fileserver.NewSigner(jwtSecret)
	svc := service.NewAlignService(jobs, engine, bus, signer, cfg.Limits.PerUserConcurrent, baseURL, linkExpiry)
	fileSrv := fileserver.NewServer(jobs.Root())

	e := echo.New()
	e.HideBanner = true

	api.SetupRouter(e, api.RouterConfig{
		Users:     users,
		JWTSecret: jwtSecret,
		JWTExpiry: jwtExpiry,
		Svc:       svc,
		Files:     fileSrv,
	})

	printBanner(cfg, adminPassword)

	go func() {
		addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
		if err := e.Start(addr); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("HTTP server failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-quit:
	case <-ctx.Done():
	}

	log.Info().Msg("shutting down...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := e.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("server shutdown error")
	}
	return nil
}

// setupEventLogging records the job lifecycle in the structured log.
func setupEventLogging(bus event.Bus) {
	bus.Subscribe(event.EventJobCreated, func(ctx context.Context, ev event.Event) error {
		if je, ok := ev.Payload.(event.JobEvent); ok {
			log.Info().Str("job_id", je.JobID).Str("user_id", je.UserID).Str("version", je.Version).Msg("job created")
		}
		return nil
	})
	bus.Subscribe(event.EventJobStarted, func(ctx context.Context, ev event.Event) error {
		if je, ok := ev.Payload.(event.JobEvent); ok {
			log.Info().Str("job_id", je.JobID).Str("version", je.Version).Msg("alignment started")
		}
		return nil
	})
	bus.Subscribe(event.EventJobCompleted, func(ctx context.Context, ev event.Event) error {
		if je, ok := ev.Payload.(event.JobEvent); ok {
			log.Info().Str("job_id", je.JobID).Str("archive", je.Archive).Msg("alignment completed")
		}
		return nil
	})
	bus.Subscribe(event.EventJobFailed, func(ctx context.Context, ev event.Event) error {
		if je, ok := ev.Payload.(event.JobEvent); ok {
			log.Warn().Str("job_id", je.JobID).Str("error", je.Error).Msg("alignment failed")
		}
		return nil
	})
}

func ensureSetting(ctx context.Context, db *sql.DB, key string, byteLen int) (string, error) {
	var value string
	err := db.QueryRowContext(ctx, `SELECT value FROM settings WHERE key = ?`, key).Scan(&value)
	if err == nil && value != "" {
		return value, nil
	}
	if err != nil && err != sql.ErrNoRows {
		return "", err
	}

	b := make([]byte, byteLen)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	value = hex.EncodeToString(b)
	_, err = db.ExecContext(ctx, `
		INSERT INTO settings (key, value, updated_at) VALUES (?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT (key) DO UPDATE SET value = excluded.value, updated_at = CURRENT_TIMESTAMP
	`, key, value)
	if err != nil {
		return "", err
	}
	return value, nil
}

// ensureAdmin creates the first admin account on an empty user table and
// returns its generated password, shown once in the boot banner.
func ensureAdmin(ctx context.Context, users *user.Store, username, password string) (string, error) {
	count, err := users.Count(ctx)
	if err != nil {
		return "", err
	}
	if count > 0 {
		return "", nil
	}

	if password == "" {
		b := make([]byte, 8)
		rand.Read(b)
		password = hex.EncodeToString(b)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), 12)
	if err != nil {
		return "", err
	}

	if _, err := users.Create(ctx, username, "", string(hash), "admin"); err != nil {
		return "", err
	}
	return password, nil
}

func printBanner(cfg *config.Config, adminPassword string) {
	fmt.Println()
	fmt.Println("═══════════════════════════════════════════════════════")
	fmt.Println("  SANA alignment service started")
	fmt.Println()
	if adminPassword != "" {
		fmt.Println("  Admin credentials (save these, shown only once):")
		fmt.Printf("    Username: %s\n", cfg.Auth.AdminUsername)
		fmt.Printf("    Password: %s\n", adminPassword)
		fmt.Println()
	}
	fmt.Printf("  HTTP:  http://%s:%d\n", cfg.Server.Host, cfg.Server.Port)
	fmt.Printf("  Jobs:  %s\n", cfg.Jobs.Dir)
	fmt.Println("═══════════════════════════════════════════════════════")
	fmt.Println()
}
