// Package api provides the JSON HTTP server exposing the generation
// pipeline: diagram generation, plain-English edits, local syntax linting
// and a render proxy.
package api

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/plantflow/plantflow/internal/cache"
)

// defaultRateBurst is the per-IP token bucket size when unconfigured.
const defaultRateBurst = 60

// defaultRatePerSec is the sustained per-IP request rate.
const defaultRatePerSec = 10.0

// ServerConfig contains configuration for creating the API server.
type ServerConfig struct {
	Logger      *slog.Logger         // Required
	Pipeline    diagramPipeline      // Required: generation orchestrator
	Renderer    imageRenderer        // Required: PlantUML render client
	RenderCache *cache.Cache[[]byte] // Optional: nil disables image caching
	CORSOrigins []string             // Allowed origins
	TrustProxy  bool                 // Trust X-Real-IP/X-Forwarded-For
	RateBurst   int                  // Per-IP burst (0 = default 60)
}

// Server is the JSON API HTTP server.
type Server struct {
	handler http.Handler
}

// NewServer creates a server with all routes and middleware configured.
func NewServer(cfg ServerConfig) (*Server, error) {
	if cfg.Pipeline == nil {
		return nil, errors.New("pipeline is required")
	}
	if cfg.Renderer == nil {
		return nil, errors.New("renderer is required")
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	h := &diagrams{
		pipeline:    cfg.Pipeline,
		renderer:    cfg.Renderer,
		renderCache: cfg.RenderCache,
		logger:      logger,
	}

	mux := http.NewServeMux()
	registerHealthRoutes(mux)

	mux.HandleFunc("POST /api/v1/diagrams", h.generate)
	mux.HandleFunc("POST /api/v1/diagrams/edit", h.edit)
	mux.HandleFunc("POST /api/v1/diagrams/validate", h.validate)
	mux.HandleFunc("GET /api/v1/kinds", h.kinds)
	mux.HandleFunc("POST /api/v1/render", h.renderImage)

	burst := cfg.RateBurst
	if burst <= 0 {
		burst = defaultRateBurst
	}
	rl := newRateLimiter(defaultRatePerSec, burst)

	// Recovery → logging → rate limit → CORS → routes.
	var handler http.Handler = mux
	handler = corsMiddleware(cfg.CORSOrigins)(handler)
	handler = rateLimitMiddleware(rl, cfg.TrustProxy, logger)(handler)
	handler = loggingMiddleware(logger)(handler)
	handler = recoveryMiddleware(logger)(handler)

	return &Server{handler: handler}, nil
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.handler.ServeHTTP(w, r)
}
