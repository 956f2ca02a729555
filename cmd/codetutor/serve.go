package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ashureev/codeedge/internal/api"
	"github.com/ashureev/codeedge/internal/config"
	"github.com/ashureev/codeedge/internal/convlog"
	"github.com/ashureev/codeedge/internal/llm"
	"github.com/ashureev/codeedge/internal/metrics"
	"github.com/ashureev/codeedge/internal/middleware"
	"github.com/ashureev/codeedge/internal/problem"
	"github.com/ashureev/codeedge/internal/prompts"
	"github.com/ashureev/codeedge/internal/runner"
	"github.com/ashureev/codeedge/internal/sampling"
	"github.com/ashureev/codeedge/internal/store"
	"github.com/ashureev/codeedge/internal/tracker"
	"github.com/ashureev/codeedge/internal/tutor"
	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/spf13/cobra"
)

const shutdownTimeout = 10 * time.Second

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the tutor HTTP server",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		if port, _ := cmd.Flags().GetString("port"); port != "" {
			cfg.Port = port
		}
		return serve(cfg)
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringP("port", "p", "", "Port to listen on (overrides PORT)")
}

// components are the long-lived services behind the router.
type components struct {
	store    store.Store
	gateway  llm.Gateway
	catalog  *prompts.Catalog
	sampler  *sampling.Sampler
	history  *tracker.ConversationTracker
	progress *tracker.ProgressTracker
	executor runner.Executor
	convlog  convlog.Logger
	metrics  *metrics.Metrics
	limiter  *middleware.RateLimiter
}

//nolint:gocyclo // Startup wiring is intentionally sequential to keep dependency setup explicit.
func serve(cfg *config.Config) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	slog.Info("Starting server",
		"port", cfg.Port,
		"llm_provider", cfg.LLM.Provider,
		"store", cfg.Store.Backend,
		"code_runner", cfg.Runner.Backend)

	st, locker, err := store.Open(ctx, cfg.Store)
	if err != nil {
		return fmt.Errorf("initialize store: %w", err)
	}
	defer func() {
		if closeErr := st.Close(); closeErr != nil {
			slog.Error("Failed to close store", "error", closeErr)
		}
	}()
	if err := st.Ping(ctx); err != nil {
		return fmt.Errorf("store health check: %w", err)
	}
	slog.Info("Store connected", "backend", cfg.Store.Backend, "distributed_locks", locker != nil)

	catalog, err := prompts.Load(cfg.PromptCatalogPath)
	if err != nil {
		return err
	}

	gateway, err := llm.New(cfg.LLM)
	if err != nil {
		return fmt.Errorf("initialize llm gateway: %w", err)
	}

	executor, err := runner.New(ctx, cfg.Runner)
	if err != nil {
		return fmt.Errorf("initialize code runner: %w", err)
	}
	if closer, ok := executor.(io.Closer); ok {
		defer func() { _ = closer.Close() }()
	}

	convLogger, err := convlog.New(cfg.ConversationLog, slog.Default())
	if err != nil {
		return fmt.Errorf("initialize conversation logger: %w", err)
	}
	defer func() {
		if closeErr := convLogger.Close(); closeErr != nil {
			slog.Warn("Failed to close conversation logger", "error", closeErr)
		}
	}()

	var m *metrics.Metrics
	if cfg.MetricsEnabled {
		m = metrics.New()
	}

	var limiter *middleware.RateLimiter
	if cfg.RateLimit.Requests > 0 {
		limiter = middleware.NewRateLimiter(cfg.RateLimit.Requests, cfg.RateLimit.Window)
		defer limiter.Stop()
	}

	sampler := sampling.NewSeeded(cfg.RandomSeed)
	locks := tracker.NewLocks(locker)

	router := newRouter(cfg, components{
		store:    st,
		gateway:  gateway,
		catalog:  catalog,
		sampler:  sampler,
		history:  tracker.NewConversationTracker(st, locks),
		progress: tracker.NewProgressTracker(st, locks, sampler),
		executor: executor,
		convlog:  convLogger,
		metrics:  m,
		limiter:  limiter,
	})

	if cfg.GRPCHealthAddr != "" {
		lis, err := net.Listen("tcp", cfg.GRPCHealthAddr)
		if err != nil {
			return fmt.Errorf("listen for grpc health: %w", err)
		}
		stopHealth := serveGRPCHealth(ctx, lis, st, healthInterval)
		defer stopHealth()
		slog.Info("gRPC health service listening", "addr", lis.Addr().String())
	}

	// WriteTimeout stays 0: tutor answers may stream for as long as the LLM takes.
	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      0,
		IdleTimeout:       120 * time.Second,
	}

	serverErrors := make(chan error, 1)
	go func() {
		slog.Info("Server listening", "addr", srv.Addr)
		serverErrors <- srv.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
	}
	stop()

	slog.Info("Shutting down gracefully...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		_ = srv.Close()
		return fmt.Errorf("server forced to shutdown: %w", err)
	}

	slog.Info("Server stopped successfully")
	return nil
}

// newRouter wires handlers and middleware. LLM-backed routes and /run share
// the per-client rate limit.
func newRouter(cfg *config.Config, c components) http.Handler {
	r := chi.NewRouter()

	// Global middleware.
	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.RealIP)
	r.Use(chiMiddleware.Logger)
	r.Use(chiMiddleware.Recoverer)
	r.Use(c.metrics.Middleware)
	r.Use(middleware.CORS(cfg.AllowedOrigins))

	gateway := c.metrics.Gateway(c.gateway)
	generator := problem.NewGenerator(gateway, c.catalog, c.progress, c.sampler, cfg.LLM.ProblemModel)
	responder := tutor.NewResponder(gateway, c.catalog, cfg.LLM.TutorModel)
	problems := api.NewProblemHandler(generator, c.progress, c.metrics)

	// Unthrottled routes.
	api.NewHealthHandler(c.store).RegisterHealth(r)
	problems.RegisterProgress(r)
	if c.metrics != nil {
		r.Handle("/metrics", c.metrics.Handler())
	}

	r.Group(func(r chi.Router) {
		if c.limiter != nil {
			r.Use(c.limiter.Middleware)
		}
		api.NewTutorHandler(responder, c.history, c.convlog, cfg.AllowedOrigins).RegisterRoutes(r)
		problems.RegisterGeneration(r)
		api.NewPortfolioHandler(gateway, c.catalog, cfg.LLM.ChatModel).RegisterRoutes(r)
		api.NewRunHandler(c.metrics.Executor(c.executor)).RegisterRoutes(r)
	})

	return r
}
