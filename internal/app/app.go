// Package app provides the top-level application lifecycle: it wires
// the quote session, its storage and chain adapters, and the HTTP
// server, and runs them until shutdown.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/alanyoungcy/swapquoter/internal/config"
	"github.com/alanyoungcy/swapquoter/internal/domain"
	"github.com/alanyoungcy/swapquoter/internal/quoter"
	"github.com/alanyoungcy/swapquoter/internal/server"
	"github.com/alanyoungcy/swapquoter/internal/server/handler"
	"github.com/alanyoungcy/swapquoter/internal/server/ws"
)

const shutdownTimeout = 10 * time.Second

// App is the root application object. It owns the configuration,
// logger, and a list of cleanup functions run in reverse order on
// shutdown.
type App struct {
	cfg     *config.Config
	logger  *slog.Logger
	closers []func()
}

// New creates a new App from the given configuration and logger.
func New(cfg *config.Config, logger *slog.Logger) *App {
	return &App{
		cfg:    cfg,
		logger: logger.With(slog.String("component", "app")),
	}
}

// Run wires all dependencies, starts the HTTP server and the WebSocket
// hub, and blocks until the context is cancelled.
func (a *App) Run(ctx context.Context) error {
	deps, cleanup, err := Wire(ctx, a.cfg, a.logger)
	if err != nil {
		return fmt.Errorf("app: wire dependencies: %w", err)
	}
	a.closers = append(a.closers, cleanup)

	// --- Quote session ---
	projector := quoter.NewProjector()
	scheduler := quoter.NewPollScheduler(quoter.SystemClock())
	racer := quoter.NewGasRacer(deps.GasProbe, domain.NopTracker{}, quoter.SystemClock(), a.logger)
	selector := quoter.NewSelector(a.logger)
	orch := quoter.NewOrchestrator(quoter.OrchestratorDeps{
		Source:    deps.QuoteSource,
		NetConfig: deps.NetConfigSource,
		Allowance: deps.Allowance,
		Racer:     racer,
		Fees:      deps.Fees,
		L1Fees:    deps.L1Fees,
		Prices:    deps.MarketData,
		Registry:  deps.Registry,
		Selector:  selector,
		Scheduler: scheduler,
		Projector: projector,
		History:   deps.History,
		Archiver:  deps.Archiver,
		Logger:    a.logger,
	})
	svc := quoter.NewService(orch, projector, deps.History, a.logger)
	a.closers = append(a.closers, svc.StopPollingForQuotes)

	// --- WebSocket hub, fed by state changes ---
	hub := ws.NewHub(a.logger)
	projector.OnChange(func(state domain.SwapsState) {
		hub.Broadcast("state", state)
	})

	// --- HTTP server ---
	srv := server.NewServer(
		server.Config{
			Port:        a.cfg.Server.Port,
			CORSOrigins: a.cfg.Server.CORSOrigins,
		},
		server.Handlers{
			Health: handler.NewHealthHandler(a.logger, deps.HealthChecks),
			Quotes: handler.NewQuotesHandler(svc, a.logger),
		},
		hub,
		a.logger,
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		hub.Run(gctx)
		return nil
	})
	g.Go(srv.Start)
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	return g.Wait()
}

// Close tears down all resources in reverse registration order. Safe to
// call multiple times.
func (a *App) Close() {
	a.logger.Info("shutting down application")
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}
