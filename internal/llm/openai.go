package llm

import (
	"context"
	"fmt"

	"github.com/samber/lo"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"
)

// OpenAIGateway talks to any OpenAI-compatible endpoint, Groq included.
type OpenAIGateway struct {
	llm *openai.LLM
}

// NewOpenAI creates a gateway. baseURL may be empty for api.openai.com.
func NewOpenAI(apiKey, baseURL, defaultModel string) (*OpenAIGateway, error) {
	opts := []openai.Option{
		openai.WithToken(apiKey),
		openai.WithModel(defaultModel),
	}
	if baseURL != "" {
		opts = append(opts, openai.WithBaseURL(baseURL))
	}

	client, err := openai.New(opts...)
	if err != nil {
		return nil, fmt.Errorf("create openai client: %w", err)
	}
	return &OpenAIGateway{llm: client}, nil
}

// Complete implements Gateway.
func (g *OpenAIGateway) Complete(ctx context.Context, req Request) (string, error) {
	messages := lo.Map(req.Messages, func(m Message, _ int) llms.MessageContent {
		return llms.TextParts(chatMessageType(m.Role), m.Content)
	})

	var opts []llms.CallOption
	if req.Model != "" {
		opts = append(opts, llms.WithModel(req.Model))
	}
	if req.Temperature != nil {
		opts = append(opts, llms.WithTemperature(*req.Temperature))
	}
	if req.MaxTokens > 0 {
		opts = append(opts, llms.WithMaxTokens(req.MaxTokens))
	}
	if req.OnChunk != nil {
		opts = append(opts, llms.WithStreamingFunc(func(ctx context.Context, chunk []byte) error {
			return req.OnChunk(ctx, string(chunk))
		}))
	}

	resp, err := g.llm.GenerateContent(ctx, messages, opts...)
	if err != nil {
		return "", fmt.Errorf("chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", ErrEmptyResponse
	}
	return resp.Choices[0].Content, nil
}

func chatMessageType(r Role) llms.ChatMessageType {
	switch r {
	case RoleSystem:
		return llms.ChatMessageTypeSystem
	case RoleAssistant:
		return llms.ChatMessageTypeAI
	default:
		return llms.ChatMessageTypeHuman
	}
}
