package api

import (
	"log/slog"
	"net/http"

	"github.com/ashureev/codeedge/internal/llm"
	"github.com/ashureev/codeedge/internal/prompts"
	"github.com/go-chi/chi/v5"
)

// PortfolioHandler serves the portfolio-site chat agents under /api.
type PortfolioHandler struct {
	gateway llm.Gateway
	catalog *prompts.Catalog
	model   string
}

// NewPortfolioHandler creates a handler answering with model.
func NewPortfolioHandler(gateway llm.Gateway, catalog *prompts.Catalog, model string) *PortfolioHandler {
	return &PortfolioHandler{gateway: gateway, catalog: catalog, model: model}
}

// RegisterRoutes registers one POST route per configured agent.
func (h *PortfolioHandler) RegisterRoutes(r chi.Router) {
	r.Route("/api", func(r chi.Router) {
		for _, agent := range h.catalog.AgentNames() {
			r.Post("/"+agent, h.chat(agent))
		}
	})
}

type chatRequest struct {
	Message string `json:"message"`
}

func (h *PortfolioHandler) chat(agent string) http.HandlerFunc {
	system, _ := h.catalog.AgentPrompt(agent)
	return func(w http.ResponseWriter, r *http.Request) {
		var req chatRequest
		if err := decodeBody(r, &req); err != nil {
			Error(w, http.StatusBadRequest, err.Error())
			return
		}

		text, err := h.gateway.Complete(r.Context(), llm.Request{
			Model:    h.model,
			Messages: []llm.Message{llm.System(system), llm.User(req.Message)},
		})
		if err != nil {
			slog.Error("Portfolio chat failed", "agent", agent, "error", err)
			Error(w, http.StatusInternalServerError, err.Error())
			return
		}
		JSON(w, http.StatusOK, map[string]string{"response": text})
	}
}
