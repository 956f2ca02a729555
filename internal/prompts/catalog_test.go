package prompts

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/ashureev/codeedge/internal/domain"
)

func mustDefault(t *testing.T) *Catalog {
	t.Helper()
	c, err := Default()
	if err != nil {
		t.Fatalf("Default failed: %v", err)
	}
	return c
}

func TestDefaultCatalogShape(t *testing.T) {
	c := mustDefault(t)

	if got := c.Categories(); len(got) != 2 || got[0] != "algorithms" || got[1] != "data_structures" {
		t.Fatalf("unexpected categories: %v", got)
	}
	if n := len(c.Concepts("data_structures")); n != 12 {
		t.Fatalf("expected 12 data structure concepts, got %d", n)
	}
	if n := len(c.Concepts("algorithms")); n != 8 {
		t.Fatalf("expected 8 algorithm concepts, got %d", n)
	}
	if n := len(c.AdvancedCategories()); n != 18 {
		t.Fatalf("expected 18 advanced categories, got %d", n)
	}
	if c.Concepts("nope") != nil {
		t.Fatal("expected nil concepts for unknown category")
	}
	for cat, concepts := range c.Structured {
		for concept, levels := range concepts {
			for _, d := range domain.Difficulties {
				if levels[d] == "" {
					t.Errorf("%s/%s missing %s prompt", cat, concept, d)
				}
			}
		}
	}
}

func TestStructuredPromptFallback(t *testing.T) {
	c := mustDefault(t)
	fallback := c.StructuredPrompt("data_structures", "arrays", domain.DifficultyMedium)
	if !strings.Contains(fallback, "array sorting, searching, matrix operations") {
		t.Fatalf("unexpected fallback prompt: %q", fallback)
	}

	tests := []struct {
		category, concept string
		difficulty        domain.Difficulty
	}{
		{"made_up", "arrays", domain.DifficultyEasy},
		{"algorithms", "made_up", domain.DifficultyEasy},
		{"algorithms", "sorting", domain.Difficulty("")},
		{"algorithms", "sorting", domain.Difficulty("insane")},
	}
	for _, tt := range tests {
		if got := c.StructuredPrompt(tt.category, tt.concept, tt.difficulty); got != fallback {
			t.Errorf("%s/%s/%s: expected fallback, got %q", tt.category, tt.concept, tt.difficulty, got)
		}
	}

	hit := c.StructuredPrompt("algorithms", "graph_algorithms", domain.DifficultyHard)
	if !strings.Contains(hit, "Floyd-Warshall, MST") {
		t.Fatalf("unexpected prompt: %q", hit)
	}
}

func TestPersonaTemplate(t *testing.T) {
	c := mustDefault(t)
	for _, kind := range []string{PersonaDebug, PersonaExplain, PersonaConcept, PersonaGeneral} {
		tmpl := c.PersonaTemplate(kind)
		for _, ph := range []string{"{history}", "{problem}", "{code}", "{question}"} {
			if !strings.Contains(tmpl, ph) {
				t.Errorf("%s persona missing %s", kind, ph)
			}
		}
	}
	if c.PersonaTemplate("weird") != c.PersonaTemplate(PersonaGeneral) {
		t.Fatal("expected unknown persona to fall back to general")
	}
	if !strings.Contains(c.PersonaTemplate(PersonaDebug), "Error/Issue: {question}") {
		t.Fatal("debug persona should label the question as the error")
	}
}

func TestRenderIsLiteralAndSinglePass(t *testing.T) {
	got := Render("Q: {question} / C: {code} / {missing}", map[string]string{
		"question": "why {code}?",
		"code":     "print('$1 \\n')",
	})
	want := "Q: why {code}? / C: print('$1 \\n') / {missing}"
	if got != want {
		t.Fatalf("expected %q, got %q", want, got)
	}
}

func TestAdvancedPrompt(t *testing.T) {
	c := mustDefault(t)
	p, err := c.AdvancedPrompt("sliding_window", domain.DifficultyMedium)
	if err != nil {
		t.Fatalf("AdvancedPrompt failed: %v", err)
	}
	for _, want := range []string{
		"focusing on sliding_window.",
		"Category Description: Problems involving fixed or variable size window over arrays/strings",
		"Difficulty: medium",
		"5. Focus on the core concepts of sliding_window",
		"Title: [Problem Title]",
	} {
		if !strings.Contains(p, want) {
			t.Errorf("prompt missing %q", want)
		}
	}

	if _, err := c.AdvancedPrompt("astrology", domain.DifficultyMedium); !errors.Is(err, ErrUnknownCategory) {
		t.Fatalf("expected ErrUnknownCategory, got %v", err)
	}
}

func TestAgentPrompts(t *testing.T) {
	c := mustDefault(t)
	p, ok := c.AgentPrompt("client")
	if !ok || p != "You are a helpful business advisor agent for a portfolio website." {
		t.Fatalf("unexpected client prompt %q (ok=%v)", p, ok)
	}
	if len(c.AgentNames()) != 5 {
		t.Fatalf("expected 5 agents, got %v", c.AgentNames())
	}
}

func TestLoadOverrideValidates(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "catalog.yaml")
	broken := "fallback: {category: x, concept: y, difficulty: easy}\nstructured: {}\n"
	if err := os.WriteFile(path, []byte(broken), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := Load(path); err == nil {
		t.Fatal("expected catalog without fallback prompt to be rejected")
	}

	if _, err := Load(filepath.Join(dir, "missing.yaml")); err == nil {
		t.Fatal("expected missing file to fail")
	}

	c, err := Load("")
	if err != nil || c == nil {
		t.Fatalf("expected embedded catalog, got %v", err)
	}
}
