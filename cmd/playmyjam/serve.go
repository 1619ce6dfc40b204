package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"

	"github.com/krishangMittal/PlayMyJam/internal/handler"
	"github.com/krishangMittal/PlayMyJam/internal/hub"
	"github.com/krishangMittal/PlayMyJam/internal/idgen"
	"github.com/krishangMittal/PlayMyJam/internal/reaper"
	"github.com/krishangMittal/PlayMyJam/internal/service"
	pkglog "github.com/krishangMittal/PlayMyJam/pkg/log"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP and WebSocket server",
	RunE:  runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	logger := pkglog.L()

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	// 1. Store, cache, publisher
	b, err := openBackend(ctx, cfg)
	if err != nil {
		return err
	}
	defer b.Close()

	if err := b.store.Migrate(ctx); err != nil {
		return fmt.Errorf("failed to migrate store: %w", err)
	}
	logger.Info().Msg("store migration completed")

	// 2. Registry and services
	codes, err := idgen.NewRoomCodeGenerator(cfg.Rooms.CodeLength)
	if err != nil {
		return err
	}

	h := hub.NewHub()
	jam := service.NewJamService(h, b.store, b.publisher, idgen.NewRequestIDGenerator(), service.JamConfig{
		RecentLimit:       cfg.Requests.RecentLimit,
		MaxFieldLength:    cfg.Requests.MaxFieldLength,
		StrictTransitions: cfg.Requests.StrictTransitions,
		SyncInterval:      cfg.Presence.SyncInterval,
	})
	if err := jam.Start(ctx); err != nil {
		return err
	}

	rooms := service.NewRoomService(b.store, h, codes, cfg.Requests.ListLimit)

	// 3. Reaper
	var rp *reaper.Reaper
	if cfg.Reaper.Enabled {
		rp, err = newReaper(ctx, cfg, b)
		if err != nil {
			return err
		}
		rp.WithPresence(h).Start(ctx)
		logger.Info().
			Dur("interval", cfg.Reaper.Interval).
			Dur("retention", cfg.Reaper.Retention).
			Bool("archive", cfg.Archive.Enabled).
			Msg("reaper started")
	}

	// 4. Router
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(pkglog.GinMiddleware(logger))

	handler.NewHandler(rooms).RegisterRoutes(r)
	ws := handler.NewWSHandler(jam, cfg.WebSocket)
	ws.RegisterRoutes(r)

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{Addr: addr, Handler: r}

	serverErr := make(chan error, 1)
	go func() {
		logger.Info().Str("addr", addr).Str("store", cfg.Store.Driver).Msg("playmyjam starting")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	// 5. Wait for shutdown signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-quit:
		logger.Info().Msg("shutdown signal received")
	case err := <-serverErr:
		logger.Error().Err(err).Msg("HTTP server error")
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Warn().Err(err).Msg("HTTP server forced to shutdown")
	}

	// Hijacked WebSocket connections are not covered by Shutdown.
	h.CloseAll()
	if err := ws.Wait(shutdownCtx); err != nil {
		logger.Warn().Err(err).Int("connections", h.ClientCount()).Msg("connections did not drain in time")
	}

	if rp != nil {
		rp.Stop()
		select {
		case <-rp.Done():
		case <-shutdownCtx.Done():
			logger.Warn().Msg("reaper did not stop in time")
		}
	}

	if err := jam.Stop(); err != nil {
		logger.Warn().Err(err).Msg("error stopping jam service")
	}
	cancel()

	logger.Info().Msg("playmyjam stopped")
	return nil
}
