// Package httpserver hosts the relay's HTTP surface: the signaling WebSocket
// endpoint plus the health, version and metrics routes around it.
package httpserver

import (
	"context"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
)

// BuildInfo identifies the running binary on the version endpoint.
type BuildInfo struct {
	Version string `json:"version"`
	Commit  string `json:"commit"`
}

// Config assembles the HTTP surface.
type Config struct {
	// Signal handles WebSocket upgrades on GET /signal.
	Signal http.Handler

	Build  BuildInfo
	Logger zerolog.Logger
}

// Server wraps http.Server with the relay's routes and graceful shutdown.
type Server struct {
	httpServer *http.Server
	log        zerolog.Logger
}

func New(cfg Config) *Server {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger(cfg.Logger))
	r.Use(middleware.Recoverer)
	// The health endpoint is probed cross-origin by browser clients checking
	// relay availability before connecting, so CORS stays permissive.
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodGet, http.MethodOptions},
		AllowedHeaders: []string{"*"},
	}))

	r.Get("/health", handleHealth)
	r.Get("/version", handleVersion(cfg.Build))
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())
	r.Handle("/signal", cfg.Signal)

	return &Server{
		httpServer: &http.Server{
			Handler: r,
			// WebSocket sessions outlive any sane write timeout; only bound
			// the handshake read side.
			ReadHeaderTimeout: 10 * time.Second,
		},
		log: cfg.Logger,
	}
}

// Serve accepts connections on ln until Shutdown or a fatal listener error.
func (s *Server) Serve(ln net.Listener) error {
	s.log.Info().Str("addr", ln.Addr().String()).Msg("http server listening")
	if err := s.httpServer.Serve(ln); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Shutdown stops accepting new connections and waits for in-flight requests.
// Open WebSocket sessions are not waited for; they end when the process does.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) Close() error {
	return s.httpServer.Close()
}
