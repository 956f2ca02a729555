package metrics

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/ashureev/codeedge/internal/domain"
	"github.com/ashureev/codeedge/internal/llm"
	"github.com/ashureev/codeedge/internal/runner"
	"github.com/go-chi/chi/v5"
)

func scrape(t *testing.T, m *Metrics) string {
	t.Helper()
	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("scrape returned %d", rec.Code)
	}
	return rec.Body.String()
}

func requireSample(t *testing.T, body, sample string) {
	t.Helper()
	if !strings.Contains(body, sample) {
		t.Fatalf("expected exposition to contain %q", sample)
	}
}

type stubGateway struct {
	err error
}

func (g stubGateway) Complete(context.Context, llm.Request) (string, error) {
	return "ok", g.err
}

type stubExecutor struct {
	res domain.CodeExecutionResult
}

func (e stubExecutor) Execute(context.Context, string) (domain.CodeExecutionResult, error) {
	return e.res, nil
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	m.ObserveLLM("model", 0, nil)
	m.ProblemSolved(domain.DifficultyEasy)
	m.ProblemGenerated("structured", domain.DifficultyEasy)

	g := stubGateway{}
	if got := m.Gateway(g); got != llm.Gateway(g) {
		t.Fatal("nil metrics should return the gateway unchanged")
	}

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 from nil handler, got %d", rec.Code)
	}
}

func TestProblemGeneratedBoundsDifficultyLabel(t *testing.T) {
	m := New()
	for i := 0; i < 50; i++ {
		m.ProblemGenerated("structured", domain.Difficulty(fmt.Sprintf("junk%d", i)))
	}
	m.ProblemGenerated("structured", domain.DifficultyHard)

	body := scrape(t, m)
	requireSample(t, body, `codeedge_problems_generated_total{difficulty="other",mode="structured"} 50`)
	requireSample(t, body, `codeedge_problems_generated_total{difficulty="hard",mode="structured"} 1`)
	if strings.Contains(body, "junk") {
		t.Fatal("raw difficulty values must not become label values")
	}
}

func TestGatewayCountsOutcomes(t *testing.T) {
	m := New()
	ok := m.Gateway(stubGateway{})
	bad := m.Gateway(stubGateway{err: errors.New("boom")})

	_, _ = ok.Complete(context.Background(), llm.Request{Model: "m1"})
	_, _ = ok.Complete(context.Background(), llm.Request{Model: "m1"})
	_, _ = bad.Complete(context.Background(), llm.Request{Model: "m1"})

	body := scrape(t, m)
	requireSample(t, body, `codeedge_llm_calls_total{model="m1",outcome="success"} 2`)
	requireSample(t, body, `codeedge_llm_calls_total{model="m1",outcome="error"} 1`)
}

func TestRunOutcome(t *testing.T) {
	tests := []struct {
		name string
		res  domain.CodeExecutionResult
		err  error
		want string
	}{
		{"success", domain.CodeExecutionResult{Success: true}, nil, RunSuccess},
		{"failure", domain.CodeExecutionResult{Error: "division by zero"}, nil, RunFailure},
		{"timeout", domain.CodeExecutionResult{Error: "execution timed out after 10s"}, nil, RunTimeout},
		{"rejected", domain.CodeExecutionResult{Error: runner.ErrSourceTooLarge.Error()}, nil, RunRejected},
		{"infra", domain.CodeExecutionResult{}, errors.New("docker down"), RunError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := RunOutcome(tt.res, tt.err); got != tt.want {
				t.Fatalf("RunOutcome = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestExecutorObservesRuns(t *testing.T) {
	m := New()
	e := m.Executor(stubExecutor{res: domain.CodeExecutionResult{Success: true, Output: "x\n"}})
	if _, err := e.Execute(context.Background(), "print('x')"); err != nil {
		t.Fatalf("Execute failed: %v", err)
	}
	requireSample(t, scrape(t, m), `codeedge_code_runs_total{outcome="success"} 1`)
}

func TestMiddlewareUsesRoutePattern(t *testing.T) {
	m := New()
	r := chi.NewRouter()
	r.Use(m.Middleware)
	r.Get("/items/{id}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	})

	for _, path := range []string{"/items/1", "/items/2"} {
		r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, path, nil))
	}

	requireSample(t, scrape(t, m), `codeedge_http_requests_total{method="GET",route="/items/{id}",status="418"} 2`)
}
