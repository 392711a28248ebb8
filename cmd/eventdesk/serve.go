package main

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"

	"github.com/alfredjeanlab/eventdesk/internal/backend"
	"github.com/alfredjeanlab/eventdesk/internal/config"
	"github.com/alfredjeanlab/eventdesk/internal/metrics"
	"github.com/alfredjeanlab/eventdesk/internal/notify"
	"github.com/alfredjeanlab/eventdesk/internal/panel"
	"github.com/alfredjeanlab/eventdesk/internal/repo"
	"github.com/alfredjeanlab/eventdesk/internal/server"
	"github.com/alfredjeanlab/eventdesk/internal/session"
	eventsync "github.com/alfredjeanlab/eventdesk/internal/sync"
)

const (
	sessionSweepInterval = time.Minute
	shutdownTimeout      = 10 * time.Second
)

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "serve",
		Short:   "Start the admin panel",
		GroupID: "system",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := slog.New(slog.NewTextHandler(os.Stderr, nil))
			slog.SetDefault(logger)

			// Load configuration. Missing backend settings stop here,
			// before any listener opens.
			cfg, err := config.Load()
			if err != nil {
				return err
			}

			// Connect to the backend.
			kind, _ := backend.Detect(cfg.BackendURL)
			st, err := openStore(cfg)
			if err != nil {
				return err
			}
			logger.Info("backend connected", "kind", kind, "url", backend.Describe(cfg.BackendURL))

			var m *metrics.Metrics
			if cfg.MetricsEnabled {
				m = metrics.New()
				st = m.WrapStore(st)
			}

			// Create notification publisher.
			var publisher notify.Publisher
			if cfg.NATSURL != "" {
				pub, err := notify.NewNATSPublisher(cfg.NATSURL)
				if err != nil {
					st.Close()
					return err
				}
				publisher = pub
				logger.Info("notifications enabled", "nats_url", cfg.NATSURL)
			} else {
				publisher = &notify.NoopPublisher{}
				logger.Info("notifications disabled (EVENTDESK_NATS_URL not set)")
			}

			// Create panel components.
			events := repo.New(st, publisher, repo.Options{CacheTTL: cfg.CacheTTL, Logger: logger})
			sessions := session.NewManager(session.Options{TTL: cfg.SessionTTL, Secure: cfg.CookieSecure})
			sessions.StartReaper(sessionSweepInterval)

			srv, err := server.New(panel.New(events, logger), sessions, server.Options{Metrics: m, Logger: logger})
			if err != nil {
				sessions.Stop()
				publisher.Close()
				st.Close()
				return err
			}

			// Start HTTP server.
			lis, err := net.Listen("tcp", cfg.HTTPAddr)
			if err != nil {
				sessions.Stop()
				publisher.Close()
				st.Close()
				return err
			}
			httpServer := &http.Server{
				Handler:           srv.Handler(),
				ReadHeaderTimeout: 10 * time.Second,
			}
			go func() {
				logger.Info("HTTP server listening", "addr", lis.Addr().String())
				if err := httpServer.Serve(lis); err != nil && !errors.Is(err, http.ErrServerClosed) {
					logger.Error("HTTP server error", "err", err)
				}
			}()

			// Start gRPC health listener if configured.
			var (
				grpcServer *grpc.Server
				healthSrv  *health.Server
			)
			if cfg.GRPCAddr != "" {
				glis, err := net.Listen("tcp", cfg.GRPCAddr)
				if err != nil {
					logger.Error("failed to start gRPC health listener", "addr", cfg.GRPCAddr, "err", err)
				} else {
					healthSrv = server.NewHealthServer()
					grpcServer = server.NewGRPCServer(healthSrv)
					go func() {
						logger.Info("gRPC health server listening", "addr", glis.Addr().String())
						if err := grpcServer.Serve(glis); err != nil {
							logger.Error("gRPC server error", "err", err)
						}
					}()
				}
			}

			// Start sync scheduler if a destination is configured.
			var scheduler *eventsync.Scheduler
			if cfg.SyncInterval > 0 && cfg.SyncS3Bucket != "" {
				s3Dest, err := eventsync.NewS3Destination(cmd.Context(), eventsync.S3Options{
					Bucket:   cfg.SyncS3Bucket,
					Key:      cfg.SyncS3Key,
					Region:   cfg.SyncS3Region,
					Endpoint: cfg.SyncS3Endpoint,
				})
				if err != nil {
					logger.Error("failed to create S3 sync destination", "err", err)
				} else {
					scheduler = eventsync.NewScheduler(events, []eventsync.Destination{s3Dest}, cfg.SyncInterval, logger)
					scheduler.Start()
					logger.Info("sync scheduler started", "destination", s3Dest.String(), "interval", cfg.SyncInterval)
				}
			}

			logger.Info("eventdesk started", "http_addr", cfg.HTTPAddr, "grpc_addr", cfg.GRPCAddr)

			// Wait for SIGINT or SIGTERM.
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			<-ctx.Done()
			logger.Info("received signal, shutting down")

			// Graceful shutdown.
			if healthSrv != nil {
				healthSrv.Shutdown()
			}
			if scheduler != nil {
				scheduler.Stop()
				logger.Info("sync scheduler stopped")
			}
			if grpcServer != nil {
				grpcServer.GracefulStop()
				logger.Info("gRPC server stopped")
			}

			shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			if err := httpServer.Shutdown(shutdownCtx); err != nil {
				logger.Error("HTTP server shutdown error", "err", err)
			}
			logger.Info("HTTP server stopped")

			sessions.Stop()
			if err := publisher.Close(); err != nil {
				logger.Error("error closing publisher", "err", err)
			}
			if err := st.Close(); err != nil {
				logger.Error("error closing backend", "err", err)
			}

			logger.Info("shutdown complete")
			return nil
		},
	}
}
