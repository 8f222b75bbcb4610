package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	theme "github.com/goliatone/go-theme"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/goliatone/go-signup/pkg/metrics"
	"github.com/goliatone/go-signup/pkg/renderers/web"
	"github.com/goliatone/go-signup/pkg/signup"
)

const shutdownTimeout = 10 * time.Second

func newServeCmd(a *app) *cobra.Command {
	var listen string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the sign-up form and JSON API over HTTP",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if listen != "" {
				a.cfg.Listen = listen
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return runServe(ctx, a)
		},
	}
	cmd.Flags().StringVarP(&listen, "listen", "l", "", "listen address (overrides config)")
	return cmd
}

func runServe(ctx context.Context, a *app) error {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	router, handler, err := newServeRouter(a, reg)
	if err != nil {
		return err
	}

	srv := &http.Server{
		Addr:              a.cfg.Listen,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		a.logger.Info("signup: listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("listen: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		return handler.Sessions().Run(gctx, time.Minute)
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		a.logger.Info("signup: shutting down")
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

// newServeRouter mounts the sign-up handler next to /metrics and /healthz.
// Every session controller reports its submit outcomes to a recorder
// registered on reg.
func newServeRouter(a *app, reg *prometheus.Registry) (*mux.Router, *web.Handler, error) {
	recorder, err := metrics.NewRecorder(reg)
	if err != nil {
		return nil, nil, fmt.Errorf("metrics: %w", err)
	}

	handler, err := web.New(
		func() *signup.Controller { return a.newController(signup.WithObserver(recorder)) },
		web.WithSessionTTL(a.cfg.SessionTTL),
		web.WithTheme(&theme.RendererConfig{
			Theme:   a.cfg.Theme.Name,
			Variant: a.cfg.Theme.Variant,
			Tokens:  a.cfg.Theme.Tokens,
		}),
		web.WithLogger(a.logger),
	)
	if err != nil {
		return nil, nil, err
	}

	router := mux.NewRouter()
	router.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg})).Methods(http.MethodGet)
	router.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}).Methods(http.MethodGet)
	router.PathPrefix("/").Handler(handler)
	return router, handler, nil
}
