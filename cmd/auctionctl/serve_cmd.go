package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"auction-tracker/internal/api/handlers"
	"auction-tracker/internal/api/middleware"
	"auction-tracker/internal/metrics"
	"auction-tracker/internal/services"
	"auction-tracker/internal/stub"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
)

const shutdownTimeout = 30 * time.Second

var stubSeed bool

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the auction views as JSON over HTTP",
	Long: `Run the viewer: list and detail views, bidding and item creation under
/api/v1, plus /health and /metrics. Detail requests share one live tracking
session, switching it to whichever auction was requested last.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.Close()

		ctx := cmd.Context()
		reg := prometheus.NewRegistry()
		reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

		tracker, catalog, err := a.tracking(ctx, metrics.New(reg))
		if err != nil {
			return err
		}

		refresher := services.NewCronRefresher(a.cfg.Tracker.PollSchedule, a.log)
		refresher.Register(tracker)
		if err := refresher.Start(ctx); err != nil {
			return fmt.Errorf("start refresher: %w", err)
		}
		defer refresher.Stop()

		e := echo.New()
		e.HideBanner = true
		e.HidePort = true
		middleware.Apply(e, a.log)
		handlers.NewViewHandler(catalog, tracker, a.cfg.Tracker.LoadTimeout, a.log).Register(e, reg)

		addr := fmt.Sprintf("%s:%d", a.cfg.Server.Host, a.cfg.Server.Port)
		a.log.Info("Starting viewer", "address", addr, "api", a.cfg.API.BaseURL)

		errCh := make(chan error, 1)
		go func() {
			if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
				errCh <- err
			}
			close(errCh)
		}()

		select {
		case err := <-errCh:
			if err != nil {
				return fmt.Errorf("viewer failed: %w", err)
			}
		case <-ctx.Done():
		}

		a.log.Info("Shutting down viewer...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := e.Shutdown(shutdownCtx); err != nil {
			a.log.Error("Viewer forced to shutdown", "error", err)
		}
		a.log.Info("Viewer stopped")
		return nil
	},
}

var stubCmd = &cobra.Command{
	Use:   "stub",
	Short: "Run an in-memory stand-in for the auction service",
	Long: `Run a development backend implementing the REST endpoints and the push
channel the client uses. State lives in memory and is lost on exit.

Point the client at it with --base-url http://127.0.0.1:3000`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.Close()

		store := stub.NewMemoryStore(nil)
		if stubSeed {
			store.Seed()
		}

		addr := fmt.Sprintf("%s:%d", a.cfg.Stub.Host, a.cfg.Stub.Port)
		srv := &http.Server{
			Addr:              addr,
			Handler:           stub.NewServer(store, a.log).Router(),
			ReadHeaderTimeout: 5 * time.Second,
		}
		a.log.Info("Starting stub backend", "address", addr, "seeded", stubSeed)

		errCh := make(chan error, 1)
		go func() {
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				errCh <- err
			}
			close(errCh)
		}()

		select {
		case err := <-errCh:
			if err != nil {
				return fmt.Errorf("stub backend failed: %w", err)
			}
		case <-cmd.Context().Done():
		}

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	},
}

func init() {
	stubCmd.Flags().BoolVar(&stubSeed, "seed", true, "start with demo users and auctions")
}
