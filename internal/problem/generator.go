// Package problem generates coding problems through the LLM gateway.
package problem

import (
	"context"
	"fmt"
	"strings"

	"github.com/ashureev/codeedge/internal/domain"
	"github.com/ashureev/codeedge/internal/llm"
	"github.com/ashureev/codeedge/internal/prompts"
	"github.com/ashureev/codeedge/internal/sampling"
)

// ErrUnknownCategory is returned when a category has no prompts.
var ErrUnknownCategory = prompts.ErrUnknownCategory

const (
	generationTemperature = 0.8
	generationMaxTokens   = 500

	verifyExamplesNudge = "Generate a new problem. Make sure to test all examples and verify the outputs are correct. For each example, first write and test the solution, then include the example only if the output matches."
	randomNudge         = "Generate a new problem."
)

// DifficultySource reports a learner's current difficulty.
type DifficultySource interface {
	Current(ctx context.Context, userID string) (domain.Difficulty, error)
}

// Problem is a generated problem statement.
type Problem struct {
	Content    string
	Title      string
	Category   string
	Concept    string
	Difficulty domain.Difficulty
	Advanced   bool
}

// Generator builds problem prompts and asks the gateway for a statement.
type Generator struct {
	gateway  llm.Gateway
	catalog  *prompts.Catalog
	progress DifficultySource
	sampler  *sampling.Sampler
	model    string
}

// NewGenerator creates a Generator that uses model for every call.
func NewGenerator(gateway llm.Gateway, catalog *prompts.Catalog, progress DifficultySource, sampler *sampling.Sampler, model string) *Generator {
	if sampler == nil {
		sampler = sampling.NewSeeded(0)
	}
	return &Generator{
		gateway:  gateway,
		catalog:  catalog,
		progress: progress,
		sampler:  sampler,
		model:    model,
	}
}

// Structured generates a problem from the category/concept/difficulty table.
// With no concept, the difficulty comes from the learner's progress and the
// concept is drawn uniformly from the category.
func (g *Generator) Structured(ctx context.Context, userID, category, concept string, difficulty domain.Difficulty) (*Problem, error) {
	if concept == "" {
		current, err := g.progress.Current(ctx, userID)
		if err != nil {
			return nil, fmt.Errorf("current difficulty: %w", err)
		}
		difficulty = current

		picked, ok := sampling.Choice(g.sampler, g.catalog.Concepts(category))
		if !ok {
			return nil, fmt.Errorf("%w: %q", ErrUnknownCategory, category)
		}
		concept = picked
	}

	instruction := g.catalog.StructuredPrompt(category, concept, difficulty)
	nudge := fmt.Sprintf(
		"Generate a problem in the %s category, specifically about %s, with %s difficulty. Include a clear problem title.",
		category, concept, difficulty,
	)

	content, err := g.complete(ctx, instruction, nudge)
	if err != nil {
		return nil, err
	}
	return &Problem{
		Content:    content,
		Title:      extractTitle(content),
		Category:   category,
		Concept:    concept,
		Difficulty: difficulty,
	}, nil
}

// Advanced generates a medium problem from the generic template. An empty
// concept picks a category at random.
func (g *Generator) Advanced(ctx context.Context, concept string) (*Problem, error) {
	category, nudge := concept, verifyExamplesNudge
	if category == "" {
		picked, ok := sampling.Choice(g.sampler, g.catalog.AdvancedCategories())
		if !ok {
			return nil, fmt.Errorf("%w: no advanced categories configured", ErrUnknownCategory)
		}
		category, nudge = picked, randomNudge
	}

	instruction, err := g.catalog.AdvancedPrompt(category, domain.DifficultyMedium)
	if err != nil {
		return nil, err
	}

	content, err := g.complete(ctx, instruction, nudge)
	if err != nil {
		return nil, err
	}
	return &Problem{
		Content:    content,
		Title:      extractTitle(content),
		Category:   category,
		Concept:    category,
		Difficulty: domain.DifficultyMedium,
		Advanced:   true,
	}, nil
}

func (g *Generator) complete(ctx context.Context, instruction, nudge string) (string, error) {
	content, err := g.gateway.Complete(ctx, llm.Request{
		Model:       g.model,
		Messages:    []llm.Message{llm.System(instruction), llm.User(nudge)},
		Temperature: llm.Float(generationTemperature),
		MaxTokens:   generationMaxTokens,
	})
	if err != nil {
		return "", fmt.Errorf("generate problem: %w", err)
	}
	return content, nil
}

// extractTitle returns the first line with a leading "Title: " removed.
func extractTitle(content string) string {
	first, _, _ := strings.Cut(content, "\n")
	return strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(first), "Title: "))
}
