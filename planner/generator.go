// Package planner produces and scores business plan drafts through the LLM
// boundary. The Generator creates drafts, optionally conditioned on prior
// critique feedback; the Scorer evaluates drafts against numeric quality
// criteria.
package planner

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/planforge/planforge/llm"
	"github.com/planforge/planforge/plan"
)

// Brief describes the business being planned.
type Brief struct {
	// Business is the type of business (e.g. "Falooda shop", "SaaS startup").
	Business string `json:"business"`

	// Location is where the business will operate (e.g. "Sweden").
	Location string `json:"location"`
}

// Validate checks that the brief is usable.
func (b Brief) Validate() error {
	if b.Business == "" {
		return fmt.Errorf("business is required")
	}
	if b.Location == "" {
		return fmt.Errorf("location is required")
	}
	return nil
}

// llmCompleter is the subset of the LLM client the planner needs.
type llmCompleter interface {
	Complete(ctx context.Context, req llm.Request) (*llm.Response, error)
}

// Generator produces plan drafts.
type Generator struct {
	client    llmCompleter
	templates Templates
	logger    *slog.Logger
	maxTokens int
}

// GeneratorOption configures a Generator.
type GeneratorOption func(*Generator)

// WithGeneratorLogger sets the logger.
func WithGeneratorLogger(logger *slog.Logger) GeneratorOption {
	return func(g *Generator) {
		g.logger = logger
	}
}

// WithGeneratorTemplates substitutes the prompt templates.
func WithGeneratorTemplates(t Templates) GeneratorOption {
	return func(g *Generator) {
		g.templates = t
	}
}

// NewGenerator creates a plan generator.
func NewGenerator(client llmCompleter, opts ...GeneratorOption) *Generator {
	g := &Generator{
		client:    client,
		templates: DefaultTemplates(),
		logger:    slog.Default(),
		maxTokens: 8192,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Generate produces a plan draft for the brief. When prior is non-nil the
// draft is a refinement: the critique's weaknesses, suggestions, and
// recommendations are passed through verbatim into the request so the next
// draft addresses them. The returned plan always has at least one topic
// and canonical field shapes.
func (g *Generator) Generate(ctx context.Context, brief Brief, prior *plan.Critique, previous *plan.Plan) (*plan.Plan, error) {
	if err := brief.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrGenerationFailed, err)
	}

	system := render(g.templates.PlanningSystem, map[string]string{
		"experts": expertRoster(),
	})

	var user string
	if prior == nil {
		g.logger.Info("Generating initial plan draft",
			"business", brief.Business,
			"location", brief.Location)
		user = render(g.templates.PlanningUser, map[string]string{
			"business": brief.Business,
			"location": brief.Location,
		})
	} else {
		g.logger.Info("Generating refined plan draft",
			"business", brief.Business,
			"location", brief.Location,
			"prior_score", prior.Score,
			"weaknesses", len(prior.Weaknesses))
		vars := critiqueVars(prior)
		vars["business"] = brief.Business
		vars["location"] = brief.Location
		vars["previous"] = ""
		if previous != nil {
			vars["previous"] = previous.Format()
		}
		user = render(g.templates.RefinementUser, vars)
	}

	resp, err := g.client.Complete(ctx, llm.Request{
		Capability: "planning",
		Messages: []llm.Message{
			{Role: "system", Content: system},
			{Role: "user", Content: user},
		},
		MaxTokens: g.maxTokens,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrGenerationFailed, err)
	}

	raw, err := llm.DecodeObject(resp.Content)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrGenerationFailed, err)
	}

	draft, err := plan.NormalizePlan(raw)
	if err != nil {
		// Schema violations stay discriminable so the orchestrator can
		// retry the step rather than fail the run.
		return nil, err
	}

	g.logger.Info("Plan draft generated",
		"model", resp.Model,
		"topics", draft.TopicCount(),
		"subtopics", draft.SubtopicCount(),
		"tokens", resp.Usage.TotalTokens)

	return draft, nil
}
