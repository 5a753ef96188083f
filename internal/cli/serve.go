package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"planner/internal/auth"
	"planner/internal/blob"
	"planner/internal/config"
	"planner/internal/planner"
	"planner/internal/server"
	"planner/internal/storage/sqlite"
	"planner/internal/users"
)

const shutdownTimeout = 5 * time.Second

// ServeOptions holds flags for the serve command.
type ServeOptions struct {
	*RootOptions
	Addr   string
	Static string
}

// NewServeCommand creates the serve command.
func NewServeCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ServeOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API and the static frontend",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := *opts.Config
			if cmd.Flags().Changed("addr") {
				cfg.Addr = opts.Addr
			}
			if cmd.Flags().Changed("static") {
				cfg.StaticDir = opts.Static
			}
			return runServe(cmd, &cfg)
		},
	}

	cmd.Flags().StringVar(&opts.Addr, "addr", "", "HTTP listen address (overrides config)")
	cmd.Flags().StringVar(&opts.Static, "static", "", "directory with the built frontend (overrides config)")

	return cmd
}

func runServe(cmd *cobra.Command, cfg *config.Config) error {
	logger, err := newLogger(cmd, cfg)
	if err != nil {
		return err
	}
	logger.Info("planner", slog.String("version", Version))

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	store, err := sqlite.Open(ctx, cfg.DBPath, logger)
	if err != nil {
		return fmt.Errorf("unable to open database: %w", err)
	}
	defer store.Close()

	blobs, serveBlobs, err := openBlobStore(ctx, cfg.Blob)
	if err != nil {
		return err
	}

	userSvc := users.NewService(store, store, blobs, cfg.BcryptCost, logger)
	if cfg.SeedUsers {
		if _, err := userSvc.Seed(ctx, users.DefaultSeed); err != nil {
			return fmt.Errorf("seed users: %w", err)
		}
	}
	if cfg.SessionSecret == config.DevSessionSecret {
		logger.Warn("using the built-in session secret; set PLANNER_SESSION_SECRET")
	}

	srv := server.New(server.Options{
		Users:        userSvc,
		Planner:      planner.NewService(store, blobs, logger),
		Slots:        store,
		Tokens:       auth.NewIssuer(cfg.SessionSecret, cfg.SessionTTL),
		Logger:       logger,
		Blobs:        blobs,
		ServeBlobs:   serveBlobs,
		StaticDir:    cfg.StaticDir,
		CookieSecure: cfg.CookieSecure,
		CORSOrigins:  cfg.CORSOrigins,
		Health:       store.Ping,
	})

	httpServer := &http.Server{
		Addr:              cfg.Addr,
		Handler:           srv.Engine(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("starting server", slog.String("addr", httpServer.Addr))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
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
			return fmt.Errorf("server stopped unexpectedly: %w", err)
		}
	case <-quit:
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("failed to shutdown server", slog.String("error", err.Error()))
	}

	logger.Info("server stopped")
	return nil
}

// openBlobStore builds the configured blob driver. The boolean reports whether
// the server has to serve the bytes itself.
func openBlobStore(ctx context.Context, cfg config.BlobConfig) (blob.Store, bool, error) {
	switch cfg.Driver {
	case "s3":
		store, err := blob.NewS3Store(ctx, blob.S3Options{
			Bucket:     cfg.Bucket,
			Region:     cfg.Region,
			Endpoint:   cfg.Endpoint,
			AccessKey:  cfg.AccessKey,
			SecretKey:  cfg.SecretKey,
			PresignTTL: cfg.PresignTTL,
		})
		if err != nil {
			return nil, false, fmt.Errorf("open s3 blob store: %w", err)
		}
		return store, false, nil
	default:
		store, err := blob.NewFSStore(cfg.Dir, "/api/blobs")
		if err != nil {
			return nil, false, fmt.Errorf("open blob directory: %w", err)
		}
		return store, true, nil
	}
}
