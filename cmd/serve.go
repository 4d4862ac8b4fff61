package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/firebase/genkit/go/genkit"
	"github.com/firebase/genkit/go/plugins/googlegenai"
	"github.com/spf13/cobra"

	"github.com/plantflow/plantflow/internal/api"
	"github.com/plantflow/plantflow/internal/cache"
	"github.com/plantflow/plantflow/internal/config"
	"github.com/plantflow/plantflow/internal/diagram"
	"github.com/plantflow/plantflow/internal/log"
	"github.com/plantflow/plantflow/internal/observability"
	"github.com/plantflow/plantflow/internal/pipeline"
	"github.com/plantflow/plantflow/internal/render"
	"github.com/plantflow/plantflow/internal/syntax"
)

// Server timeout configuration.
const (
	readHeaderTimeout = 10 * time.Second
	readTimeout       = 30 * time.Second
	writeTimeout      = 2 * time.Minute // generation can span several retries
	idleTimeout       = 2 * time.Minute
	shutdownTimeout   = 30 * time.Second
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the plantflow HTTP API server",
	RunE: func(_ *cobra.Command, _ []string) error {
		return runServe()
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

// runServe initializes every component and starts the HTTP server.
func runServe() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	logger := log.New(log.Config{Level: slog.LevelDebug})
	logger.Info("starting plantflow API server", "version", AppVersion, "addr", cfg.Addr)

	// Tracing must be registered before Genkit initialization.
	otelShutdown, err := observability.Setup(ctx, observability.Config{
		Endpoint:    cfg.OtelEndpoint,
		Environment: cfg.Environment,
		ServiceName: cfg.ServiceName,
	})
	if err != nil {
		return fmt.Errorf("setting up tracing: %w", err)
	}
	defer func() {
		sctx, scancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer scancel()
		if err := otelShutdown(sctx); err != nil {
			logger.Warn("tracing shutdown error", "error", err)
		}
	}()

	g := genkit.Init(ctx, genkit.WithPlugins(&googlegenai.GoogleAI{}))
	if g == nil {
		return errors.New("initializing genkit with googleai provider")
	}
	logger.Info("initialized Genkit", "model", cfg.FullModelName())

	generator, err := pipeline.NewGenkitGenerator(g, cfg.FullModelName())
	if err != nil {
		return fmt.Errorf("creating generator: %w", err)
	}

	renderer, err := render.NewClient(render.ClientConfig{
		BaseURL: cfg.PlantUMLURL,
		Timeout: cfg.RenderTimeout(),
		Logger:  logger.With("component", "render"),
	})
	if err != nil {
		return fmt.Errorf("creating render client: %w", err)
	}

	syntaxMode := syntax.ModePerLine
	if cfg.StrictQuoteCheck {
		syntaxMode = syntax.ModeStrictDocument
	}

	p, err := pipeline.New(pipeline.Config{
		Generator:        generator,
		Renderer:         renderer,
		Logger:           logger.With("component", "pipeline"),
		Cache:            cache.New[diagram.Candidate](cfg.GenerationCacheSize, cfg.GenerationTTL()),
		MaxRetries:       cfg.MaxRetries,
		Temperature:      cfg.Temperature,
		RetryTemperature: cfg.RetryTemperature,
		SyntaxMode:       syntaxMode,
	})
	if err != nil {
		return fmt.Errorf("creating pipeline: %w", err)
	}

	server, err := api.NewServer(api.ServerConfig{
		Logger:      logger.With("component", "api"),
		Pipeline:    p,
		Renderer:    renderer,
		RenderCache: cache.New[[]byte](cfg.RenderCacheSize, cfg.RenderTTL()),
		CORSOrigins: cfg.CORSOrigins,
		TrustProxy:  cfg.TrustProxy,
		RateBurst:   cfg.RateBurst,
	})
	if err != nil {
		return fmt.Errorf("creating API server: %w", err)
	}

	httpServer := &http.Server{
		Addr:              cfg.Addr,
		Handler:           server,
		ReadHeaderTimeout: readHeaderTimeout,
		ReadTimeout:       readTimeout,
		WriteTimeout:      writeTimeout,
		IdleTimeout:       idleTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("listening", "addr", cfg.Addr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("server error: %w", err)
	case <-ctx.Done():
		logger.Info("shutting down")
	}

	sctx, scancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer scancel()
	if err := httpServer.Shutdown(sctx); err != nil {
		return fmt.Errorf("graceful shutdown: %w", err)
	}

	logger.Info("server stopped")
	return nil
}
