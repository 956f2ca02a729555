package api

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/ashureev/codeedge/internal/domain"
	"github.com/ashureev/codeedge/internal/metrics"
	"github.com/ashureev/codeedge/internal/problem"
	"github.com/go-chi/chi/v5"
)

const defaultCategory = "data_structures"

// Generator produces problem statements.
type Generator interface {
	Structured(ctx context.Context, userID, category, concept string, difficulty domain.Difficulty) (*problem.Problem, error)
	Advanced(ctx context.Context, concept string) (*problem.Problem, error)
}

// Progress records solves and reports learner progress.
type Progress interface {
	RecordSolved(ctx context.Context, userID string, difficulty domain.Difficulty) (*domain.ProgressRecord, error)
	Progress(ctx context.Context, userID string) (*domain.ProgressRecord, error)
}

// ProblemHandler serves problem generation and progress routes.
type ProblemHandler struct {
	generator Generator
	progress  Progress
	metrics   *metrics.Metrics
}

// NewProblemHandler creates a problem handler. m may be nil.
func NewProblemHandler(generator Generator, progress Progress, m *metrics.Metrics) *ProblemHandler {
	return &ProblemHandler{generator: generator, progress: progress, metrics: m}
}

// RegisterGeneration registers the LLM-backed generation route.
func (h *ProblemHandler) RegisterGeneration(r chi.Router) {
	r.Get("/generate-question", h.GenerateQuestion)
}

// RegisterProgress registers the progress routes.
func (h *ProblemHandler) RegisterProgress(r chi.Router) {
	r.Post("/update-progress", h.UpdateProgress)
	r.Get("/progress", h.GetProgress)
}

// GenerateQuestion handles GET /generate-question.
func (h *ProblemHandler) GenerateQuestion(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	userID := orDefault(q.Get("user_id"), defaultUserID)
	category := orDefault(q.Get("category"), defaultCategory)
	concept := q.Get("concept")
	difficulty := domain.Difficulty(q.Get("difficulty"))
	useAdvanced := strings.EqualFold(q.Get("use_advanced"), "true")

	ctx := r.Context()
	if useAdvanced {
		p, err := h.generator.Advanced(ctx, concept)
		if err != nil {
			slog.Error("Failed to generate advanced problem", "user_id", userID, "concept", concept, "error", err)
			Failure(w, http.StatusInternalServerError, err.Error())
			return
		}
		h.metrics.ProblemGenerated("advanced", p.Difficulty)
		JSON(w, http.StatusOK, map[string]interface{}{
			"success":     true,
			"question":    p.Content,
			"title":       p.Title,
			"difficulty":  p.Difficulty,
			"concept":     p.Category,
			"is_advanced": true,
		})
		return
	}

	slog.Info("Generating question",
		"user_id", userID,
		"category", category,
		"concept", concept,
		"difficulty", difficulty)

	p, err := h.generator.Structured(ctx, userID, category, concept, difficulty)
	if err != nil {
		slog.Error("Failed to generate problem", "user_id", userID, "category", category, "error", err)
		Failure(w, http.StatusInternalServerError, err.Error())
		return
	}
	h.metrics.ProblemGenerated("structured", p.Difficulty)
	JSON(w, http.StatusOK, map[string]interface{}{
		"success":     true,
		"question":    p.Content,
		"difficulty":  p.Difficulty,
		"concept":     p.Concept,
		"is_advanced": false,
	})
}

type updateProgressRequest struct {
	UserID     string `json:"user_id"`
	Difficulty string `json:"difficulty"`
}

// UpdateProgress handles POST /update-progress.
func (h *ProblemHandler) UpdateProgress(w http.ResponseWriter, r *http.Request) {
	var req updateProgressRequest
	if err := decodeBody(r, &req); err != nil {
		Failure(w, http.StatusBadRequest, err.Error())
		return
	}

	userID := orDefault(req.UserID, defaultUserID)
	difficulty := domain.Difficulty(orDefault(req.Difficulty, string(domain.DifficultyEasy)))

	rec, err := h.progress.RecordSolved(r.Context(), userID, difficulty)
	if err != nil {
		slog.Error("Error updating progress", "user_id", userID, "difficulty", difficulty, "error", err)
		Failure(w, http.StatusInternalServerError, err.Error())
		return
	}
	h.metrics.ProblemSolved(difficulty)

	JSON(w, http.StatusOK, progressBody(rec))
}

// GetProgress handles GET /progress.
func (h *ProblemHandler) GetProgress(w http.ResponseWriter, r *http.Request) {
	userID := orDefault(r.URL.Query().Get("user_id"), defaultUserID)

	rec, err := h.progress.Progress(r.Context(), userID)
	if err != nil {
		slog.Error("Error reading progress", "user_id", userID, "error", err)
		Failure(w, http.StatusInternalServerError, err.Error())
		return
	}
	JSON(w, http.StatusOK, progressBody(rec))
}

func progressBody(rec *domain.ProgressRecord) map[string]interface{} {
	return map[string]interface{}{
		"success":            true,
		"current_difficulty": rec.CurrentDifficulty,
		"progress": map[string]int{
			"easy_solved":   rec.EasySolved,
			"medium_solved": rec.MediumSolved,
			"hard_solved":   rec.HardSolved,
		},
	}
}
