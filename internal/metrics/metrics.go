// Package metrics exposes Prometheus collectors for the tutor service.
package metrics

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/ashureev/codeedge/internal/domain"
	"github.com/ashureev/codeedge/internal/llm"
	"github.com/ashureev/codeedge/internal/runner"
	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const (
	namespace  = "codeedge"
	otherLabel = "other"
)

// Code run outcomes.
const (
	RunSuccess  = "success"
	RunFailure  = "failure"
	RunTimeout  = "timeout"
	RunRejected = "rejected"
	RunError    = "error"
)

// Metrics holds the service collectors. A nil *Metrics is valid and records
// nothing, so callers never need to check whether metrics are enabled.
type Metrics struct {
	registry *prometheus.Registry

	httpRequests *prometheus.CounterVec
	httpDuration *prometheus.HistogramVec
	llmCalls     *prometheus.CounterVec
	llmDuration  *prometheus.HistogramVec
	codeRuns     *prometheus.CounterVec
	codeDuration prometheus.Histogram
	problems     *prometheus.CounterVec
	solved       *prometheus.CounterVec
}

// New creates a Metrics with its own registry, including Go runtime and
// process collectors.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		httpRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "http_requests_total",
				Help:      "Total number of HTTP requests by route, method and status.",
			},
			[]string{"route", "method", "status"},
		),
		httpDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "http_request_duration_seconds",
				Help:      "Duration of HTTP requests by route.",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"route"},
		),
		llmCalls: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "llm_calls_total",
				Help:      "Total number of LLM completions by model and outcome.",
			},
			[]string{"model", "outcome"},
		),
		llmDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "llm_call_duration_seconds",
				Help:      "Duration of LLM completions by model.",
				Buckets:   []float64{0.25, 0.5, 1, 2, 5, 10, 20, 40, 60},
			},
			[]string{"model"},
		),
		codeRuns: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "code_runs_total",
				Help:      "Total number of code executions by outcome.",
			},
			[]string{"outcome"},
		),
		codeDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "code_run_duration_seconds",
				Help:      "Duration of code executions.",
				Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10, 30},
			},
		),
		problems: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "problems_generated_total",
				Help:      "Total number of generated problems by mode and difficulty.",
			},
			[]string{"mode", "difficulty"},
		),
		solved: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "problems_solved_total",
				Help:      "Total number of recorded solves by difficulty.",
			},
			[]string{"difficulty"},
		),
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.httpRequests, m.httpDuration,
		m.llmCalls, m.llmDuration,
		m.codeRuns, m.codeDuration,
		m.problems, m.solved,
	)
	return m
}

// Registry returns the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// Handler serves the exposition format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// Middleware records request counts and latency labelled by chi route pattern.
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	if m == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := chiMiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		route := routePattern(r)
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		m.httpRequests.WithLabelValues(route, r.Method, strconv.Itoa(status)).Inc()
		m.httpDuration.WithLabelValues(route).Observe(time.Since(start).Seconds())
	})
}

// routePattern avoids unbounded label cardinality from raw paths.
func routePattern(r *http.Request) string {
	if rctx := chi.RouteContext(r.Context()); rctx != nil {
		if pattern := rctx.RoutePattern(); pattern != "" {
			return strings.TrimSuffix(pattern, "/*")
		}
	}
	return "unmatched"
}

// ObserveLLM records one completion.
func (m *Metrics) ObserveLLM(model string, d time.Duration, err error) {
	if m == nil {
		return
	}
	outcome := "success"
	switch {
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		outcome = "canceled"
	case err != nil:
		outcome = "error"
	}
	m.llmCalls.WithLabelValues(model, outcome).Inc()
	m.llmDuration.WithLabelValues(model).Observe(d.Seconds())
}

// ObserveRun records one code execution.
func (m *Metrics) ObserveRun(res domain.CodeExecutionResult, d time.Duration, err error) {
	if m == nil {
		return
	}
	m.codeRuns.WithLabelValues(RunOutcome(res, err)).Inc()
	m.codeDuration.Observe(d.Seconds())
}

// RunOutcome classifies an execution for the code_runs_total counter.
func RunOutcome(res domain.CodeExecutionResult, err error) string {
	switch {
	case err != nil:
		return RunError
	case res.Success:
		return RunSuccess
	case res.Error == runner.ErrSourceTooLarge.Error():
		return RunRejected
	case strings.HasPrefix(res.Error, "execution timed out"):
		return RunTimeout
	default:
		return RunFailure
	}
}

// ProblemGenerated records a generated problem. mode is "structured" or
// "advanced". Difficulties outside easy, medium and hard share the
// "other" label.
func (m *Metrics) ProblemGenerated(mode string, difficulty domain.Difficulty) {
	if m == nil {
		return
	}
	m.problems.WithLabelValues(mode, difficultyLabel(difficulty)).Inc()
}

func difficultyLabel(d domain.Difficulty) string {
	if !d.Valid() {
		return otherLabel
	}
	return string(d)
}

// ProblemSolved records a solve reported through update-progress.
func (m *Metrics) ProblemSolved(difficulty domain.Difficulty) {
	if m == nil || !difficulty.Valid() {
		return
	}
	m.solved.WithLabelValues(string(difficulty)).Inc()
}

// Gateway wraps g so every completion is observed.
func (m *Metrics) Gateway(g llm.Gateway) llm.Gateway {
	if m == nil {
		return g
	}
	return &instrumentedGateway{next: g, m: m}
}

type instrumentedGateway struct {
	next llm.Gateway
	m    *Metrics
}

func (g *instrumentedGateway) Complete(ctx context.Context, req llm.Request) (string, error) {
	start := time.Now()
	text, err := g.next.Complete(ctx, req)
	g.m.ObserveLLM(req.Model, time.Since(start), err)
	return text, err
}

// Executor wraps e so every execution is observed.
func (m *Metrics) Executor(e runner.Executor) runner.Executor {
	if m == nil {
		return e
	}
	return &instrumentedExecutor{next: e, m: m}
}

type instrumentedExecutor struct {
	next runner.Executor
	m    *Metrics
}

func (e *instrumentedExecutor) Execute(ctx context.Context, source string) (domain.CodeExecutionResult, error) {
	start := time.Now()
	res, err := e.next.Execute(ctx, source)
	e.m.ObserveRun(res, time.Since(start), err)
	return res, err
}
