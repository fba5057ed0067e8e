package main

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"hdi1d/internal/app"
	"hdi1d/internal/config"
	"hdi1d/internal/httpapi"
)

const shutdownGrace = 30 * time.Second

type serveOpts struct {
	addr        string
	cors        bool
	corsOrigins string
	swagger     bool
	maxQueue    int
	tempTTL     time.Duration
}

func newServeCmd(g *globalOpts) *cobra.Command {
	o := &serveOpts{}
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the web UI and the JSON API",
		Example: "  hdi1d serve --addr :7860\n" +
			"  hdi1d serve --backend synthetic --history-db ~/.hdi1d/history.db",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := g.cfg
			f := cmd.Flags()
			if f.Changed("addr") {
				cfg.Addr = o.addr
			}
			if f.Changed("cors") {
				cfg.CORSEnabled = o.cors
			}
			if f.Changed("cors-origins") {
				cfg.CORSAllowedOrigins = splitCSV(o.corsOrigins)
			}
			if f.Changed("swagger") {
				cfg.Swagger = o.swagger
			}
			if f.Changed("max-queue-depth") {
				cfg.MaxQueueDepth = o.maxQueue
			}
			if f.Changed("temp-ttl") {
				cfg.TempTTLSec = int(o.tempTTL / time.Second)
			}
			return runServe(cmd.Context(), cfg, g)
		},
	}
	cmd.Flags().StringVar(&o.addr, "addr", "", "HTTP listen address, e.g. :7860")
	cmd.Flags().BoolVar(&o.cors, "cors", false, "Enable CORS")
	cmd.Flags().StringVar(&o.corsOrigins, "cors-origins", "", "Comma-separated allowed origins")
	cmd.Flags().BoolVar(&o.swagger, "swagger", false, "Serve API docs under /swagger/")
	cmd.Flags().IntVar(&o.maxQueue, "max-queue-depth", 0, "Requests allowed to wait for the generation slot")
	cmd.Flags().DurationVar(&o.tempTTL, "temp-ttl", 0, "Delete download copies older than this (0 disables)")
	return cmd
}

func runServe(parent context.Context, cfg config.Config, g *globalOpts) error {
	lg := g.log
	a, err := app.New(cfg, lg)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()
	httpapi.SetBaseContext(ctx)

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           a.HTTPHandler(),
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	grp, gctx := errgroup.WithContext(ctx)
	grp.Go(func() error {
		lg.Info().Str("event", "listen").Str("addr", cfg.Addr).Str("backend", a.Manager.BackendName()).Msg("serve")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	if cfg.TempTTLSec > 0 {
		grp.Go(func() error {
			runJanitor(gctx, a, time.Duration(cfg.TempTTLSec)*time.Second)
			return nil
		})
	}
	grp.Go(func() error {
		<-gctx.Done()
		lg.Info().Str("event", "shutdown").Msg("serve")
		sctx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
		defer cancel()
		if err := srv.Shutdown(sctx); err != nil {
			lg.Warn().Err(err).Msg("graceful shutdown error")
		}
		if err := a.Close(sctx); err != nil {
			lg.Warn().Err(err).Msg("release error")
		}
		return nil
	})
	return grp.Wait()
}

// runJanitor deletes download copies older than ttl until ctx is done.
func runJanitor(ctx context.Context, a *app.App, ttl time.Duration) {
	interval := ttl / 2
	if interval < time.Minute {
		interval = time.Minute
	}
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			rep := a.Store.CleanOlderThan(ttl)
			if len(rep.Deleted) > 0 || rep.Err() != nil {
				ev := a.Log.Info()
				if rep.Err() != nil {
					ev = a.Log.Warn().Err(rep.Err())
				}
				ev.Str("event", "janitor").Int("deleted", len(rep.Deleted)).Int("failed", len(rep.Failed)).Msg("serve")
			}
		}
	}
}
