package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"crewauction/internal/admin"
	"crewauction/internal/ledger/store"
	"crewauction/internal/live"
	"crewauction/internal/platform/httpserver"
	"crewauction/internal/platform/metrics"
	"crewauction/internal/platform/redis"
	"crewauction/internal/ratelimit"
	"crewauction/internal/session"
	"crewauction/internal/settlement"
	httptransport "crewauction/internal/transport/http"
)

const shutdownTimeout = 10 * time.Second

func newServeCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP and websocket server",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return serve(ctx, a)
		},
	}
}

// serve wires the ledger, engine, session registry and live hub, then runs
// the HTTP server, heartbeat and reaper until ctx is cancelled.
func serve(ctx context.Context, a *app) error {
	cfg, log := a.cfg, a.log
	m := metrics.New(prometheus.DefaultRegisterer)

	ledger, err := store.Open(ctx, cfg.Ledger, store.WithLogger(log))
	if err != nil {
		return err
	}
	defer ledger.Close()
	if err := ledger.Migrate(ctx); err != nil {
		return err
	}

	registry, err := session.NewRegistry(ledger, session.WithLogger(log), session.WithMetrics(m))
	if err != nil {
		return err
	}

	hubOpts := []live.HubOption{live.WithHubLogger(log), live.WithHubMetrics(m)}
	rc, err := redis.New(ctx, cfg.Redis)
	if err != nil {
		return err
	}
	if rc != nil {
		defer rc.Close()
		hubOpts = append(hubOpts, live.WithMirror(live.NewRedisMirror(rc.Client, cfg.Redis.Channel)))
		log.Info("broadcast mirror enabled", "channel", cfg.Redis.Channel)
	}
	hub := live.NewHub(registry, hubOpts...)

	engine, err := settlement.New(ledger,
		settlement.WithLogger(log),
		settlement.WithMetrics(m),
		settlement.WithBroadcaster(hub),
	)
	if err != nil {
		return err
	}
	adminSvc, err := admin.New(cfg.Admin.AccessCode, admin.WithCodeHash(cfg.Admin.AccessCodeHash))
	if err != nil {
		return err
	}
	liveHandler, err := live.NewHandler(engine, registry,
		live.WithHandlerLogger(log),
		live.WithSendBuffer(cfg.Live.SendBuffer),
		live.WithAllowedOrigins(cfg.HTTP.AllowedOrigins),
	)
	if err != nil {
		return err
	}
	reaper, err := session.NewReaper(registry, cfg.Live.ReapInterval, cfg.Live.StaleAfter,
		session.WithReaperLogger(log),
		session.WithReaperMetrics(m),
	)
	if err != nil {
		return err
	}

	attempts := ratelimit.NewInMemoryBucketStore()
	limiter := ratelimit.New(attempts, log, cfg.HTTP.AuthRateLimit, cfg.HTTP.AuthRateWindow)

	router := httptransport.NewRouter(httptransport.Deps{
		Settler:        engine,
		Catalogue:      ledger,
		Ledger:         ledger,
		Admin:          adminSvc,
		Live:           liveHandler,
		Logger:         log,
		Metrics:        m,
		Gatherer:       prometheus.DefaultGatherer,
		AllowedOrigins: cfg.HTTP.AllowedOrigins,
		ProtectSales:   cfg.Admin.ProtectSales,
		AuthLimiter:    limiter.RateLimitAuth(),
	})
	srv := httpserver.New(cfg.HTTP.Addr, router, log)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("auctiond listening", "addr", cfg.HTTP.Addr, "ledger", cfg.Ledger.Driver)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error { return hub.RunHeartbeat(gctx, cfg.Live.HeartbeatInterval) })
	g.Go(func() error { return hub.RunMirror(gctx) })
	g.Go(func() error { return reaper.Run(gctx) })
	g.Go(func() error { return ratelimit.RunSweeper(gctx, attempts, cfg.Live.ReapInterval) })
	g.Go(func() error {
		<-gctx.Done()
		log.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(gctx), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}
