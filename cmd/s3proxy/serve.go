package main

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
	"golang.org/x/sync/errgroup"

	"github.com/sagarc03/s3proxy"
	"github.com/sagarc03/s3proxy/config"
	"github.com/sagarc03/s3proxy/filesystem"
	s3proxyhttp "github.com/sagarc03/s3proxy/http"
	"github.com/sagarc03/s3proxy/metrics"
	"github.com/sagarc03/s3proxy/s3store"
)

const (
	description      = "Serve S3 objects over HTTP with a MIME type policy"
	repositoryURL    = "https://github.com/sagarc03/s3proxy"
	documentationURL = "https://github.com/sagarc03/s3proxy#readme"
)

func newServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP server",
		Long:  `Start the s3proxy HTTP server.`,
		Args:  cobra.NoArgs,
		RunE:  runServe,
	}

	cmd.Flags().Int("port", 8080, "HTTP server port (env: S3PROXY_SERVER_PORT)")
	cmd.Flags().String("path-prefix", "/s3proxy", "external route prefix (env: S3PROXY_SERVER_PATH_PREFIX)")
	cmd.Flags().String("backend", config.BackendS3, "storage backend: s3, filesystem (env: S3PROXY_STORAGE_BACKEND)")
	cmd.Flags().String("storage-path", "", "filesystem backend root directory (env: S3PROXY_STORAGE_PATH)")
	cmd.Flags().String("region", "", "default S3 region (env: S3PROXY_STORAGE_S3_REGION)")
	cmd.Flags().String("endpoint", "", "S3-compatible endpoint URL (env: S3PROXY_STORAGE_S3_ENDPOINT)")

	return cmd
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := config.FromContext(cmd.Context())
	if err != nil {
		return err
	}

	reader, closeReader, err := newObjectReader(cfg)
	if err != nil {
		return err
	}
	defer closeReader()

	handlerConfig := cfg.HandlerConfig()
	handlerConfig.Metadata = s3proxyhttp.Metadata{
		Name:             cfg.Name,
		Version:          version,
		Description:      description,
		RepositoryURL:    repositoryURL,
		DocumentationURL: documentationURL,
	}

	var serviceConfig s3proxy.ServiceConfig
	if cfg.Metrics.Enabled {
		m := metrics.New()
		serviceConfig.Observer = m
		handlerConfig.Metrics = m
	}

	policy := cfg.NewPolicy()
	service, err := s3proxy.NewProxyService(policy, reader, serviceConfig)
	if err != nil {
		return fmt.Errorf("create service: %w", err)
	}

	handler := s3proxyhttp.NewHandler(&handlerConfig, service)

	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	server := &http.Server{
		Addr:              addr,
		Handler:           handler.Router(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       cfg.Server.ReadTimeoutDuration(),
		WriteTimeout:      cfg.Server.WriteTimeoutDuration(),
		IdleTimeout:       120 * time.Second,
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		slog.Info("starting server",
			"addr", addr,
			"prefix", cfg.Server.PathPrefix,
			"backend", cfg.Storage.Backend,
			"inline_types", len(policy.InlineTypes()),
			"metrics", cfg.Metrics.Enabled,
		)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()

		slog.Info("shutting down server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeoutDuration())
		defer cancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server shutdown: %w", err)
		}
		return nil
	})

	return g.Wait()
}

// newObjectReader opens the configured storage backend. The returned func
// releases it.
func newObjectReader(cfg *config.Config) (s3proxy.ObjectReader, func(), error) {
	switch cfg.Storage.Backend {
	case config.BackendFilesystem:
		root, err := os.OpenRoot(cfg.Storage.Path)
		if err != nil {
			return nil, nil, fmt.Errorf("open storage root: %w", err)
		}
		slog.Info("using filesystem storage", "path", cfg.Storage.Path)
		return filesystem.NewFileStorage(root), func() { _ = root.Close() }, nil
	case config.BackendS3:
		slog.Info("using s3 storage",
			"region", cfg.Storage.S3.Region,
			"endpoint", cfg.Storage.S3.Endpoint,
			"profiles", len(cfg.Storage.S3.Profiles),
		)
		return s3store.New(cfg.Storage.S3), func() {}, nil
	default:
		return nil, nil, fmt.Errorf("unknown storage backend %q", cfg.Storage.Backend)
	}
}
