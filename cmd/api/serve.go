package main

import (
	"context"
	"crypto/rand"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"consent-records/internal/adapters/auth/jwtauth"
	blobminio "consent-records/internal/adapters/blob/minio"
	pg "consent-records/internal/adapters/storage/postgres"
	"consent-records/internal/config"
	"consent-records/internal/domain/accessgrants"
	"consent-records/internal/platform/logger"
	"consent-records/internal/ports/auth"
	"consent-records/internal/ports/blob"
	"consent-records/internal/router"

	"github.com/spf13/cobra"
)

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Levanta la API HTTP",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cmd.Context())
		},
	}
}

func newLogger(cfg *config.Config) logger.Logger {
	return logger.New(logger.Options{
		Level:  logger.ParseLevel(cfg.LogLevel),
		Format: logger.ParseFormat(cfg.LogFormat),
		App:    cfg.AppName,
	})
}

func openDB(ctx context.Context, cfg *config.Config, migrate bool) (*sql.DB, error) {
	if cfg.DBDSN == "" {
		return nil, nil
	}
	db, err := pg.Open(ctx, cfg.DBDSN)
	if err != nil {
		return nil, err
	}
	if migrate {
		if err := pg.Migrate(ctx, db); err != nil {
			_ = db.Close()
			return nil, err
		}
	}
	return db, nil
}

// signingKey devuelve JWT_SECRET o, en desarrollo, una clave efímera.
func signingKey(cfg *config.Config) ([]byte, bool, error) {
	if cfg.JWTSecret != "" {
		return []byte(cfg.JWTSecret), false, nil
	}
	key := make([]byte, 32)
	if _, err := rand.Read(key); err != nil {
		return nil, false, fmt.Errorf("generate signing key: %w", err)
	}
	return key, true, nil
}

func buildApp(ctx context.Context, cfg *config.Config, log logger.Logger, db *sql.DB) (*router.App, error) {
	key, ephemeral, err := signingKey(cfg)
	if err != nil {
		return nil, err
	}
	if ephemeral {
		log.Warn("JWT_SECRET not set, using ephemeral key and debug headers", nil)
	}

	tokens, err := jwtauth.New(jwtauth.Config{
		SigningKey: key,
		TTL:        cfg.JWTTTL,
		Issuer:     cfg.AppName,
	})
	if err != nil {
		return nil, err
	}

	var blobs blob.Store
	if cfg.BlobBackend == config.BlobBackendMinio {
		store, err := blobminio.New(ctx, blobminio.Options{
			Endpoint:  cfg.MinioEndpoint,
			AccessKey: cfg.MinioAccessKey,
			SecretKey: cfg.MinioSecretKey,
			Bucket:    cfg.MinioBucket,
			UseSSL:    cfg.MinioUseSSL,
		})
		if err != nil {
			return nil, err
		}
		blobs = store
	}

	var (
		verifier auth.AuthVerifier = tokens
		issuer   auth.TokenIssuer  = tokens
	)

	return router.Build(router.Options{
		AuthVerifier:     verifier,
		TokenIssuer:      issuer,
		DebugHeaders:     cfg.DevAuth(),
		DB:               db,
		Blobs:            blobs,
		BlobSigningKey:   cfg.SigningKey(),
		Logger:           log,
		GrantDefaultDays: cfg.GrantDefaultDays,
		DownloadURLTTL:   cfg.DownloadURLTTL,
		MaxUploadBytes:   cfg.MaxUploadBytes,
	}), nil
}

func runServer(ctx context.Context) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	log := newLogger(cfg)
	defer logger.Sync(log)

	db, err := openDB(ctx, cfg, true)
	if err != nil {
		log.Error("database unavailable", map[string]any{"err": err})
		return err
	}
	if db != nil {
		defer db.Close()
		log.Info("using postgres storage", nil)
	} else {
		log.Warn("DB_DSN not set, using in-memory storage", nil)
	}

	app, err := buildApp(ctx, cfg, log, db)
	if err != nil {
		return err
	}

	sweepCtx, cancelSweep := context.WithCancel(ctx)
	defer cancelSweep()
	sweeper := accessgrants.NewSweeper(app.Grants, log, cfg.ExpirySweepInterval)
	sweeper.Start(sweepCtx)
	defer sweeper.Stop()

	srv := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           app.Handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("starting server", map[string]any{"addr": srv.Addr, "env": cfg.Env})
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(quit)

	select {
	case err := <-errCh:
		if err != nil {
			log.Error("server error", map[string]any{"err": err})
			return err
		}
		return nil
	case <-quit:
	}

	log.Info("shutting down server", nil)
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("server shutdown failed", map[string]any{"err": err})
		return err
	}
	log.Info("server stopped", nil)
	return nil
}
