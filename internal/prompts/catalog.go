// Package prompts holds the immutable prompt catalog: structured problem
// instructions, the advanced problem template, tutor personas and portfolio
// agent prompts.
package prompts

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"slices"
	"strings"

	"github.com/ashureev/codeedge/internal/domain"
	"github.com/samber/lo"
	"gopkg.in/yaml.v3"
)

//go:embed catalog.yaml
var defaultCatalog []byte

// Persona kinds accepted by PersonaTemplate.
const (
	PersonaDebug   = "debug"
	PersonaExplain = "explain"
	PersonaConcept = "concept"
	PersonaGeneral = "general"
)

var personaKinds = []string{PersonaDebug, PersonaExplain, PersonaConcept, PersonaGeneral}

// ErrUnknownCategory is returned for categories the catalog does not define.
var ErrUnknownCategory = errors.New("unknown problem category")

// Fallback names the structured prompt used when a lookup misses.
type Fallback struct {
	Category   string            `yaml:"category"`
	Concept    string            `yaml:"concept"`
	Difficulty domain.Difficulty `yaml:"difficulty"`
}

// Advanced holds the generic problem template and its category table.
type Advanced struct {
	Template   string            `yaml:"template"`
	Categories map[string]string `yaml:"categories"`
}

// Catalog is the full prompt set. It is read-only after loading.
type Catalog struct {
	Fallback   Fallback                                           `yaml:"fallback"`
	Structured map[string]map[string]map[domain.Difficulty]string `yaml:"structured"`
	Advanced   Advanced                                           `yaml:"advanced"`
	Personas   map[string]string                                  `yaml:"personas"`
	Agents     map[string]string                                  `yaml:"agents"`

	fallbackPrompt string
}

// Default returns the embedded catalog.
func Default() (*Catalog, error) {
	return Parse(defaultCatalog)
}

// Load reads a catalog from path, or the embedded one when path is empty.
func Load(path string) (*Catalog, error) {
	if path == "" {
		return Default()
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read prompt catalog: %w", err)
	}
	return Parse(data)
}

// Parse decodes and validates a YAML catalog.
func Parse(data []byte) (*Catalog, error) {
	var c Catalog
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("decode prompt catalog: %w", err)
	}
	if err := c.validate(); err != nil {
		return nil, fmt.Errorf("invalid prompt catalog: %w", err)
	}
	return &c, nil
}

func (c *Catalog) validate() error {
	fb, ok := c.lookup(c.Fallback.Category, c.Fallback.Concept, c.Fallback.Difficulty)
	if !ok {
		return fmt.Errorf("fallback prompt %s/%s/%s is missing",
			c.Fallback.Category, c.Fallback.Concept, c.Fallback.Difficulty)
	}
	c.fallbackPrompt = fb

	for _, kind := range personaKinds {
		if strings.TrimSpace(c.Personas[kind]) == "" {
			return fmt.Errorf("persona %q is missing", kind)
		}
	}
	if len(c.Advanced.Categories) > 0 && c.Advanced.Template == "" {
		return errors.New("advanced template is missing")
	}
	return nil
}

func (c *Catalog) lookup(category, concept string, difficulty domain.Difficulty) (string, bool) {
	text, ok := c.Structured[category][concept][difficulty]
	return text, ok && text != ""
}

// StructuredPrompt returns the instruction for category/concept/difficulty,
// or the fallback instruction when any key is missing.
func (c *Catalog) StructuredPrompt(category, concept string, difficulty domain.Difficulty) string {
	if text, ok := c.lookup(category, concept, difficulty); ok {
		return text
	}
	return c.fallbackPrompt
}

// Categories returns the structured categories in sorted order.
func (c *Catalog) Categories() []string {
	return sortedKeys(c.Structured)
}

// Concepts returns the concepts of a structured category in sorted order.
// Unknown categories yield nil.
func (c *Catalog) Concepts(category string) []string {
	concepts, ok := c.Structured[category]
	if !ok {
		return nil
	}
	return sortedKeys(concepts)
}

// PersonaTemplate returns the tutor template for kind. Unknown kinds get the
// general persona.
func (c *Catalog) PersonaTemplate(kind string) string {
	if t, ok := c.Personas[kind]; ok && t != "" {
		return t
	}
	return c.Personas[PersonaGeneral]
}

// AdvancedCategories returns the advanced categories in sorted order.
func (c *Catalog) AdvancedCategories() []string {
	return sortedKeys(c.Advanced.Categories)
}

// AdvancedPrompt renders the generic problem template for category.
func (c *Catalog) AdvancedPrompt(category string, difficulty domain.Difficulty) (string, error) {
	description, ok := c.Advanced.Categories[category]
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownCategory, category)
	}
	return Render(c.Advanced.Template, map[string]string{
		"category":    category,
		"description": description,
		"difficulty":  string(difficulty),
	}), nil
}

// AgentPrompt returns the system prompt of a portfolio agent.
func (c *Catalog) AgentPrompt(agent string) (string, bool) {
	p, ok := c.Agents[agent]
	return p, ok
}

// AgentNames returns the configured portfolio agents in sorted order.
func (c *Catalog) AgentNames() []string {
	return sortedKeys(c.Agents)
}

// Render substitutes each {name} in template with vars[name]. Substitution is
// literal and single pass, so values are never re-expanded.
func Render(template string, vars map[string]string) string {
	pairs := make([]string, 0, len(vars)*2)
	for _, k := range sortedKeys(vars) {
		pairs = append(pairs, "{"+k+"}", vars[k])
	}
	return strings.NewReplacer(pairs...).Replace(template)
}

func sortedKeys[V any](m map[string]V) []string {
	keys := lo.Keys(m)
	slices.Sort(keys)
	return keys
}
