package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/campuslost/lostfound/internal/api"
	"github.com/campuslost/lostfound/internal/auth"
	"github.com/campuslost/lostfound/internal/blob"
	"github.com/campuslost/lostfound/internal/config"
	"github.com/campuslost/lostfound/internal/db"
	"github.com/campuslost/lostfound/internal/mail"
	"github.com/campuslost/lostfound/internal/metrics"
	"github.com/campuslost/lostfound/internal/service"
	"github.com/campuslost/lostfound/internal/store"
)

// purgeInterval is how often expired token revocations are removed.
const purgeInterval = time.Hour

func runServer(ctx context.Context, cfg *config.Config) error {
	logger, closeLog, err := setupLogger(cfg.Log.Level, cfg.Log.File)
	if err != nil {
		return err
	}
	defer closeLog()

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	database, err := openDatabase(cfg.Database.Path)
	if err != nil {
		return err
	}
	defer database.Close()
	logger.Info("database ready", "path", cfg.Database.Path)

	jwtSecret := cfg.Auth.JWTSecret
	if jwtSecret == "" {
		// Persisted so tokens survive restarts.
		jwtSecret, err = store.GetJWTSecret(ctx, database)
		if err != nil {
			return fmt.Errorf("loading JWT secret: %w", err)
		}
	}

	revoker, closeRevoker, err := newRevoker(cfg, database)
	if err != nil {
		return err
	}
	defer closeRevoker()

	mailer, closeMailer, err := newMailer(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer closeMailer()

	templates, err := mail.NewRenderer(cfg.FrontendBaseURL)
	if err != nil {
		return fmt.Errorf("loading email templates: %w", err)
	}

	m := metrics.New()
	images := &blob.SQLiteStore{DB: database}

	svc, err := service.New(database, service.Options{
		Mailer:     mailer,
		Templates:  templates,
		Blobs:      images,
		Metrics:    m,
		Logger:     logger,
		Revoker:    revoker,
		JWTSecret:  jwtSecret,
		AsyncEmail: cfg.Mail.Async,
	})
	if err != nil {
		return err
	}

	password, err := svc.Accounts.EnsureAdmin(ctx, cfg.Admin.Name, cfg.Admin.Email)
	if err != nil {
		return fmt.Errorf("creating admin account: %w", err)
	}
	if password != "" {
		printAdminCreated(os.Stdout, cfg.Admin.Email, password)
	}

	if sqliteRevoker, ok := revoker.(*auth.SQLiteRevoker); ok {
		go purgeRevocations(ctx, sqliteRevoker, logger)
	}

	server := &http.Server{
		Addr: cfg.Server.Addr,
		Handler: api.NewRouter(svc, api.Options{
			Logger:  logger,
			Metrics: m,
			Images:  images,
			Debug:   cfg.Server.Debug,
		}),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server started", "addr", cfg.Server.Addr, "mail", cfg.Mail.Driver, "revocation", cfg.Auth.Revocation)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("server forced to shutdown", "error", err)
	}

	logger.Info("waiting for pending emails")
	svc.Wait()
	logger.Info("server stopped, closing database")
	return nil
}

func runInit(ctx context.Context, cfg *config.Config) error {
	if _, err := os.Stat(cfg.Database.Path); err == nil {
		return fmt.Errorf("database file %s already exists", cfg.Database.Path)
	}

	database, err := openDatabase(cfg.Database.Path)
	if err != nil {
		os.Remove(cfg.Database.Path)
		return err
	}
	defer database.Close()

	svc, err := service.New(database, service.Options{
		Logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
	if err != nil {
		return err
	}
	password, err := svc.Accounts.EnsureAdmin(ctx, cfg.Admin.Name, cfg.Admin.Email)
	if err != nil {
		database.Close()
		os.Remove(cfg.Database.Path)
		return fmt.Errorf("creating admin account: %w", err)
	}

	fmt.Printf("Database created: %s\n", cfg.Database.Path)
	fmt.Println("Schema initialized.")
	fmt.Println()
	printAdminCreated(os.Stdout, cfg.Admin.Email, password)
	return nil
}

func openDatabase(path string) (*sql.DB, error) {
	database, err := db.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	if err := db.EnsureSchema(database); err != nil {
		database.Close()
		return nil, fmt.Errorf("ensuring schema: %w", err)
	}
	return database, nil
}

// printAdminCreated prints the bootstrap admin credentials.
func printAdminCreated(w io.Writer, email, password string) {
	fmt.Fprintln(w, "Admin account created:")
	fmt.Fprintf(w, "  Email:    %s\n", email)
	fmt.Fprintf(w, "  Password: %s\n", password)
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Save this password, it cannot be recovered.")
	fmt.Fprintln(w, "The admin can change it after logging in.")
}

func newRevoker(cfg *config.Config, database *sql.DB) (auth.Revoker, func(), error) {
	switch cfg.Auth.Revocation {
	case config.RevocationRedis:
		r, err := auth.NewRedisRevoker(cfg.Auth.Redis.Addr, cfg.Auth.Redis.Password, cfg.Auth.Redis.DB)
		if err != nil {
			return nil, nil, fmt.Errorf("connecting to redis: %w", err)
		}
		return r, func() { r.Close() }, nil
	default:
		return &auth.SQLiteRevoker{DB: database}, func() {}, nil
	}
}

func newMailer(ctx context.Context, cfg *config.Config, logger *slog.Logger) (mail.Mailer, func(), error) {
	mc := cfg.Mail
	switch mc.Driver {
	case config.MailDriverSMTP:
		return mail.NewSMTPMailer(mc.SMTP.Host, mc.SMTP.Port, mc.SMTP.Username, mc.SMTP.Password, mc.From), func() {}, nil
	case config.MailDriverNATS:
		m, err := mail.NewNATSMailer(ctx, mc.NATS.URL, mc.NATS.Subject, mc.From)
		if err != nil {
			return nil, nil, fmt.Errorf("connecting to nats: %w", err)
		}
		return m, func() { m.Close() }, nil
	default:
		return &mail.LogMailer{Logger: logger}, func() {}, nil
	}
}

func purgeRevocations(ctx context.Context, r *auth.SQLiteRevoker, logger *slog.Logger) {
	ticker := time.NewTicker(purgeInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := r.Purge(ctx)
			if err != nil {
				logger.Error("purging revoked tokens", "error", err)
				continue
			}
			if n > 0 {
				logger.Debug("purged revoked tokens", "count", n)
			}
		}
	}
}
