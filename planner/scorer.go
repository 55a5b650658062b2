package planner

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/planforge/planforge/llm"
	"github.com/planforge/planforge/plan"
)

// maxFormatRetries is the total number of LLM call attempts when the
// critique response isn't valid JSON. On each retry, the parse error is fed
// back to the LLM as a correction prompt so it can fix the output format.
const maxFormatRetries = 3

// Scorer produces scored critiques of plan drafts.
type Scorer struct {
	client      llmCompleter
	templates   Templates
	logger      *slog.Logger
	temperature float64
	maxTokens   int
}

// ScorerOption configures a Scorer.
type ScorerOption func(*Scorer)

// WithScorerLogger sets the logger.
func WithScorerLogger(logger *slog.Logger) ScorerOption {
	return func(s *Scorer) {
		s.logger = logger
	}
}

// WithScorerTemplates substitutes the prompt templates.
func WithScorerTemplates(t Templates) ScorerOption {
	return func(s *Scorer) {
		s.templates = t
	}
}

// WithScorerTemperature overrides the review sampling temperature.
func WithScorerTemperature(temp float64) ScorerOption {
	return func(s *Scorer) {
		s.temperature = temp
	}
}

// NewScorer creates a critique scorer.
func NewScorer(client llmCompleter, opts ...ScorerOption) *Scorer {
	s := &Scorer{
		client:      client,
		templates:   DefaultTemplates(),
		logger:      slog.Default(),
		temperature: 0.3, // lower temperature for more consistent reviews
		maxTokens:   4096,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Score evaluates a plan draft and returns a critique whose score lies in
// [1,10]. The score is the orchestrator's sole acceptance criterion.
func (s *Scorer) Score(ctx context.Context, brief Brief, draft *plan.Plan) (*plan.Critique, error) {
	if draft == nil || draft.TopicCount() == 0 {
		return nil, fmt.Errorf("%w: empty plan", ErrCritiqueFailed)
	}

	s.logger.Info("Scoring plan draft",
		"business", brief.Business,
		"location", brief.Location,
		"topics", draft.TopicCount(),
		"subtopics", draft.SubtopicCount())

	messages := []llm.Message{
		{Role: "system", Content: s.templates.CritiqueSystem},
		{Role: "user", Content: render(s.templates.CritiqueUser, map[string]string{
			"business": brief.Business,
			"location": brief.Location,
			"topics":   draft.Format(),
		})},
	}

	var lastErr error
	for attempt := range maxFormatRetries {
		resp, err := s.client.Complete(ctx, llm.Request{
			Capability:  "reviewing",
			Messages:    messages,
			Temperature: &s.temperature,
			MaxTokens:   s.maxTokens,
		})
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrCritiqueFailed, err)
		}

		critique, parseErr := parseCritique(resp.Content)
		if parseErr == nil {
			s.logger.Info("Critique completed",
				"model", resp.Model,
				"score", critique.Score,
				"strengths", len(critique.Strengths),
				"weaknesses", len(critique.Weaknesses),
				"attempt", attempt+1)
			return critique, nil
		}

		lastErr = parseErr

		if attempt+1 >= maxFormatRetries {
			break
		}

		s.logger.Warn("Critique LLM format retry",
			"attempt", attempt+1,
			"error", parseErr)

		messages = append(messages,
			llm.Message{Role: "assistant", Content: resp.Content},
			llm.Message{Role: "user", Content: critiqueFormatCorrectionPrompt(parseErr)},
		)
	}

	if errors.Is(lastErr, plan.ErrSchema) {
		return nil, lastErr
	}
	return nil, fmt.Errorf("%w: %w", ErrCritiqueFailed, lastErr)
}

// parseCritique extracts and normalizes a critique from LLM output.
func parseCritique(content string) (*plan.Critique, error) {
	raw, err := llm.DecodeObject(content)
	if err != nil {
		return nil, err
	}
	return plan.NormalizeCritique(raw)
}

// critiqueFormatCorrectionPrompt builds a correction message for the LLM
// when the critique response isn't valid JSON.
func critiqueFormatCorrectionPrompt(err error) string {
	return fmt.Sprintf(
		"Your response could not be parsed. Error: %s\n\n"+
			"Respond with ONLY a valid JSON object matching this structure:\n"+
			"```json\n"+
			"{\n"+
			"  \"assessment\": \"Overall judgment\",\n"+
			"  \"strength_list\": [\"...\"],\n"+
			"  \"weakness_list\": [\"...\"],\n"+
			"  \"suggestion_list\": [\"...\"],\n"+
			"  \"recommendation_list\": [\"...\"],\n"+
			"  \"score\": 7\n"+
			"}\n"+
			"```",
		err.Error(),
	)
}
