// Package llm wraps hosted chat-completion providers behind one Gateway.
package llm

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/ashureev/codeedge/internal/config"
)

// ErrEmptyResponse is returned when a provider answers without any content.
var ErrEmptyResponse = errors.New("llm returned no content")

// Role identifies the author of a chat message.
type Role string

// Chat roles.
const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is one chat turn.
type Message struct {
	Role    Role
	Content string
}

// ChunkFunc receives streamed text as it arrives.
type ChunkFunc func(ctx context.Context, chunk string) error

// Request describes a single completion call.
type Request struct {
	Model       string
	Messages    []Message
	Temperature *float64 // nil = provider default
	MaxTokens   int      // 0 = provider default
	OnChunk     ChunkFunc
}

// Gateway sends a chat and returns the first choice's text.
type Gateway interface {
	Complete(ctx context.Context, req Request) (string, error)
}

// Float returns a pointer to v for Request.Temperature.
func Float(v float64) *float64 {
	return &v
}

// System returns a system message.
func System(content string) Message { return Message{Role: RoleSystem, Content: content} }

// User returns a user message.
func User(content string) Message { return Message{Role: RoleUser, Content: content} }

// Unavailable is a Gateway that fails every call with Err.
type Unavailable struct {
	Err error
}

// Complete implements Gateway.
func (u Unavailable) Complete(context.Context, Request) (string, error) {
	return "", u.Err
}

// New builds the Gateway for cfg. A missing API key yields an Unavailable
// gateway so that routes not backed by the LLM keep serving.
func New(cfg config.LLMConfig) (Gateway, error) {
	if cfg.APIKey == "" {
		slog.Warn("LLM API key not set, LLM-backed routes will fail", "provider", cfg.Provider)
		return Unavailable{Err: fmt.Errorf("llm provider %s is not configured: missing API key", cfg.Provider)}, nil
	}

	var g Gateway
	switch cfg.Provider {
	case config.ProviderAnthropic:
		g = NewAnthropic(cfg.APIKey, cfg.BaseURL, cfg.TutorModel)
	case config.ProviderGroq, config.ProviderOpenAI:
		oa, err := NewOpenAI(cfg.APIKey, cfg.BaseURL, cfg.TutorModel)
		if err != nil {
			return nil, err
		}
		g = oa
	default:
		return nil, fmt.Errorf("unsupported llm provider %q", cfg.Provider)
	}
	return WithTimeout(g, cfg.Timeout), nil
}

// WithTimeout bounds every call through g by d. A non-positive d returns g.
func WithTimeout(g Gateway, d time.Duration) Gateway {
	if d <= 0 {
		return g
	}
	return timeoutGateway{next: g, timeout: d}
}

type timeoutGateway struct {
	next    Gateway
	timeout time.Duration
}

func (t timeoutGateway) Complete(ctx context.Context, req Request) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()
	return t.next.Complete(ctx, req)
}
