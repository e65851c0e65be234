package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/DoyleJ11/number-duel-backend/internal/archive"
	"github.com/DoyleJ11/number-duel-backend/internal/config"
	"github.com/DoyleJ11/number-duel-backend/internal/httpapi"
	"github.com/DoyleJ11/number-duel-backend/internal/hub"
	"github.com/DoyleJ11/number-duel-backend/internal/logging"
	"github.com/DoyleJ11/number-duel-backend/internal/room"
	"github.com/DoyleJ11/number-duel-backend/internal/ws"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const (
	archiveQueueSize = 64
	memoryArchiveCap = 200
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Fatal error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	log, err := logging.New(cfg.LogLevel, cfg.LogEncoding)
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	var store archive.Store = archive.NewMemoryStore(memoryArchiveCap)
	if cfg.DatabaseURL != "" {
		pg, err := archive.OpenPostgres(cfg.DatabaseURL)
		if err != nil {
			return err
		}
		defer func() { _ = pg.Close() }()
		store = pg
		log.Info("archiving matches to postgres")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	recorder := archive.NewRecorder(store, archiveQueueSize, log)
	// The registry outlives the signal context; it is stopped by Shutdown.
	h := hub.NewHub(context.Background(), room.Config{
		FillDuration: cfg.FillDuration,
		GracePeriod:  cfg.DisconnectGrace,
		InboxSize:    cfg.RoomInboxSize,
	}, recorder, log)

	// Build the router *with* the hub injected
	srv := &http.Server{
		Addr: cfg.Addr(),
		Handler: httpapi.SetupRoutes(httpapi.Deps{
			Hub:     h,
			Matches: store,
			WS: ws.Options{
				OriginPatterns: cfg.Origins(),
				OutboxSize:     cfg.OutboxSize,
				WriteTimeout:   cfg.WriteTimeout,
				PingInterval:   cfg.PingInterval,
			},
			Log: log,
		}),
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return recorder.Run(gctx)
	})
	g.Go(func() error {
		log.Info("listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info("shutting down")
		h.Shutdown()
		<-h.Done()
		sctx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		return srv.Shutdown(sctx)
	})

	if err := g.Wait(); err != nil {
		return err
	}
	log.Info("stopped cleanly")
	return nil
}
