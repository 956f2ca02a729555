// Package tutor answers student questions with persona prompts and history.
package tutor

import (
	"context"
	"fmt"
	"strings"

	"github.com/ashureev/codeedge/internal/domain"
	"github.com/ashureev/codeedge/internal/llm"
	"github.com/ashureev/codeedge/internal/prompts"
	"github.com/ashureev/codeedge/internal/tracker"
	"github.com/samber/lo"
)

const (
	tutorTemperature = 0.7
	tutorMaxTokens   = 1024

	greetingReply = "Hi!"
)

var greetings = []string{"hi", "hello", "hey"}

// Question is a single tutor request.
type Question struct {
	Kind     string // debug, explain, concept or general
	Problem  string
	Code     string
	Question string
	History  []domain.ConversationEntry
}

// Responder renders persona prompts and asks the gateway for an answer.
type Responder struct {
	gateway llm.Gateway
	catalog *prompts.Catalog
	model   string
}

// NewResponder creates a Responder using model for every call.
func NewResponder(gateway llm.Gateway, catalog *prompts.Catalog, model string) *Responder {
	return &Responder{gateway: gateway, catalog: catalog, model: model}
}

// IsGreeting reports whether question is a bare greeting.
func IsGreeting(question string) bool {
	return lo.Contains(greetings, strings.ToLower(strings.TrimSpace(question)))
}

// Respond returns the tutor's answer. Gateway failures are reported in the
// returned text rather than as an error.
func (r *Responder) Respond(ctx context.Context, q Question) string {
	return r.Stream(ctx, q, nil)
}

// Stream is Respond with incremental delivery through onChunk. A nil
// onChunk disables streaming.
func (r *Responder) Stream(ctx context.Context, q Question, onChunk llm.ChunkFunc) string {
	if IsGreeting(q.Question) {
		if onChunk != nil {
			_ = onChunk(ctx, greetingReply)
		}
		return greetingReply
	}

	prompt := prompts.Render(r.catalog.PersonaTemplate(q.Kind), map[string]string{
		"history":  tracker.FormatForPrompt(q.History),
		"problem":  q.Problem,
		"code":     q.Code,
		"question": q.Question,
	})

	text, err := r.gateway.Complete(ctx, llm.Request{
		Model:       r.model,
		Messages:    []llm.Message{llm.User(prompt)},
		Temperature: llm.Float(tutorTemperature),
		MaxTokens:   tutorMaxTokens,
		OnChunk:     onChunk,
	})
	if err != nil {
		return fmt.Sprintf("Error getting tutor response: %v", err)
	}
	return strings.TrimSpace(text)
}
