// Package server is the HTTP and WebSocket surface of the quoter.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/alanyoungcy/swapquoter/internal/server/handler"
	"github.com/alanyoungcy/swapquoter/internal/server/middleware"
	"github.com/alanyoungcy/swapquoter/internal/server/ws"
)

// Config holds the HTTP server configuration.
type Config struct {
	Port        int
	CORSOrigins []string
}

// Handlers aggregates the HTTP handlers the server registers.
type Handlers struct {
	Health *handler.HealthHandler
	Quotes *handler.QuotesHandler
}

// Server is the headless HTTP + WebSocket API server.
type Server struct {
	httpServer *http.Server
	logger     *slog.Logger
}

// NewServer registers all routes and wires the middleware chain.
func NewServer(cfg Config, handlers Handlers, wsHub *ws.Hub, logger *slog.Logger) *Server {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /api/health", handlers.Health.HealthCheck)

	mux.HandleFunc("POST /api/quotes/fetch", handlers.Quotes.FetchQuotes)
	mux.HandleFunc("GET /api/quotes/state", handlers.Quotes.GetState)
	mux.HandleFunc("GET /api/quotes/top", handlers.Quotes.TopQuote)
	mux.HandleFunc("DELETE /api/quotes", handlers.Quotes.ClearQuotes)
	mux.HandleFunc("POST /api/quotes/refresh", handlers.Quotes.Refresh)
	mux.HandleFunc("POST /api/quotes/stop", handlers.Quotes.StopPolling)
	mux.HandleFunc("POST /api/quotes/reset", handlers.Quotes.Reset)
	mux.HandleFunc("POST /api/quotes/select", handlers.Quotes.Select)
	mux.HandleFunc("PATCH /api/quotes/preferences", handlers.Quotes.UpdatePreferences)
	mux.HandleFunc("GET /api/quotes/history", handlers.Quotes.History)

	if wsHub != nil {
		mux.HandleFunc("GET /ws", wsHub.HandleWS)
	}

	var h http.Handler = mux
	h = middleware.Logging(logger)(h)
	h = middleware.CORS(cfg.CORSOrigins)(h)

	return &Server{
		httpServer: &http.Server{
			Addr:         fmt.Sprintf(":%d", cfg.Port),
			Handler:      h,
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 30 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		logger: logger,
	}
}

// Start begins listening for HTTP requests. It blocks until the server
// encounters an error or is shut down.
func (s *Server) Start() error {
	s.logger.Info("server: starting", slog.String("addr", s.httpServer.Addr))
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server: listen: %w", err)
	}
	return nil
}

// Shutdown gracefully shuts down the server, waiting for in-flight
// requests to finish within the context deadline.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("server: shutting down")
	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("server: shutdown: %w", err)
	}
	return nil
}
