package api

import (
	"log/slog"
	"net/http"

	"github.com/ashureev/codeedge/internal/runner"
	"github.com/go-chi/chi/v5"
)

// RunHandler serves POST /run.
type RunHandler struct {
	executor runner.Executor
}

// NewRunHandler creates a run handler.
func NewRunHandler(executor runner.Executor) *RunHandler {
	return &RunHandler{executor: executor}
}

// RegisterRoutes registers the code execution route.
func (h *RunHandler) RegisterRoutes(r chi.Router) {
	r.Post("/run", h.Run)
}

type runRequest struct {
	Code string `json:"code"`
}

// Run executes the submitted code. Program errors are reported with 200;
// only infrastructure failures produce 500.
func (h *RunHandler) Run(w http.ResponseWriter, r *http.Request) {
	var req runRequest
	if err := decodeBody(r, &req); err != nil {
		Failure(w, http.StatusBadRequest, err.Error())
		return
	}

	res, err := h.executor.Execute(r.Context(), req.Code)
	if err != nil {
		slog.Error("Code execution failed", "error", err)
		Failure(w, http.StatusInternalServerError, err.Error())
		return
	}
	JSON(w, http.StatusOK, res)
}
