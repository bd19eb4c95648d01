package main

import (
	"context"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/alfredjeanlab/formdesk/internal/cache"
	"github.com/alfredjeanlab/formdesk/internal/config"
	"github.com/alfredjeanlab/formdesk/internal/events"
	"github.com/alfredjeanlab/formdesk/internal/i18n"
	"github.com/alfredjeanlab/formdesk/internal/media"
	"github.com/alfredjeanlab/formdesk/internal/model"
	"github.com/alfredjeanlab/formdesk/internal/presence"
	"github.com/alfredjeanlab/formdesk/internal/server"
	formsync "github.com/alfredjeanlab/formdesk/internal/sync"
	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:     "serve",
	Short:   "Start the formdesk HTTP and gRPC servers",
	GroupID: "system",
	// The server needs no client connection.
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error { return nil },
	RunE: func(cmd *cobra.Command, args []string) error {
		logger := slog.New(slog.NewTextHandler(os.Stderr, nil))
		slog.SetDefault(logger)

		cfg, err := config.Load()
		if err != nil {
			return err
		}

		st, err := openStore(cfg)
		if err != nil {
			return err
		}
		logger.Info("store opened", "backend", cfg.Backend())

		var publisher events.Publisher
		if cfg.NATSURL != "" {
			pub, err := events.NewNATSPublisher(cfg.NATSURL)
			if err != nil {
				st.Close()
				return err
			}
			publisher = pub
			logger.Info("events enabled", "nats_url", cfg.NATSURL)
		} else {
			publisher = &events.NoopPublisher{}
			logger.Info("events disabled (FORMDESK_NATS_URL not set)")
		}

		catalog, err := i18n.New()
		if err != nil {
			publisher.Close()
			st.Close()
			return err
		}

		formServer := server.NewFormServer(st, publisher, catalog)
		formServer.PresenceIdle = cfg.PresenceIdle

		if cfg.MediaS3Bucket != "" {
			objects, err := media.NewS3Store(context.Background(), media.S3Config{
				Bucket:    cfg.MediaS3Bucket,
				Region:    cfg.MediaS3Region,
				Endpoint:  cfg.MediaS3Endpoint,
				PublicURL: cfg.MediaPublicURL,
			})
			if err != nil {
				publisher.Close()
				st.Close()
				return err
			}
			formServer.UseObjectStore(objects)
			logger.Info("media stored in S3", "bucket", cfg.MediaS3Bucket)
		} else {
			logger.Info("media kept in memory (FORMDESK_MEDIA_S3_BUCKET not set)")
		}

		formServer.Presence.StartReaper(&presence.ReaperConfig{
			IdleThreshold: cfg.PresenceIdle,
			OnGone: func(tt model.TicketType, actor string) {
				logger.Info("editor went idle", "ticket_type", tt, "actor", actor)
			},
		})

		grpcServer := server.NewGRPCServer(formServer, cfg.AuthToken)
		lis, err := net.Listen("tcp", cfg.GRPCAddr)
		if err != nil {
			formServer.Presence.Stop()
			publisher.Close()
			st.Close()
			return err
		}
		go func() {
			logger.Info("gRPC server listening", "addr", cfg.GRPCAddr)
			if err := grpcServer.Serve(lis); err != nil {
				logger.Error("gRPC server error", "err", err)
			}
		}()

		httpServer := &http.Server{
			Addr:              cfg.HTTPAddr,
			Handler:           formServer.NewHTTPHandler(cfg.AuthToken),
			ReadHeaderTimeout: 10 * time.Second,
		}
		go func() {
			logger.Info("HTTP server listening", "addr", cfg.HTTPAddr)
			if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				logger.Error("HTTP server error", "err", err)
			}
		}()

		var scheduler *formsync.Scheduler
		if cfg.SyncInterval > 0 {
			if dests := syncDestinations(context.Background(), cfg, logger); len(dests) > 0 {
				scheduler = formsync.NewScheduler(st, dests, cfg.SyncInterval, logger)
				scheduler.Start()
				logger.Info("sync scheduler started", "interval", cfg.SyncInterval)
			}
		}

		// Other replicas' edits evict this replica's cached forms.
		var invalidatorCancel context.CancelFunc
		if cfg.NATSURL != "" {
			sub, err := events.NewNATSSubscriber(cfg.NATSURL)
			if err != nil {
				logger.Error("failed to create cache subscriber", "err", err)
			} else {
				var ctx context.Context
				ctx, invalidatorCancel = context.WithCancel(context.Background())
				inv := cache.NewInvalidator(formServer.Cache, logger)
				go func() {
					if err := inv.Run(ctx, sub); err != nil {
						logger.Error("cache invalidator error", "err", err)
					}
					sub.Close()
				}()
			}
		}

		logger.Info("formdesk server started",
			"grpc_addr", cfg.GRPCAddr,
			"http_addr", cfg.HTTPAddr,
		)

		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		sig := <-sigCh
		logger.Info("received signal, shutting down", "signal", sig)

		if invalidatorCancel != nil {
			invalidatorCancel()
		}
		if scheduler != nil {
			scheduler.Stop()
			logger.Info("sync scheduler stopped")
		}
		formServer.Presence.Stop()

		grpcServer.GracefulStop()
		logger.Info("gRPC server stopped")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Error("HTTP server shutdown error", "err", err)
		}
		logger.Info("HTTP server stopped")

		if err := publisher.Close(); err != nil {
			logger.Error("error closing publisher", "err", err)
		}
		if err := st.Close(); err != nil {
			logger.Error("error closing store", "err", err)
		}

		logger.Info("shutdown complete")
		return nil
	},
}
