package plan_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/planforge/planforge/plan"
)

func TestNormalizePlan_FromMap(t *testing.T) {
	raw := map[string]any{
		"topics": []any{
			map[string]any{
				"title":       "Market Analysis",
				"description": "Understand demand",
				"subtopics": []any{
					map[string]any{"title": "Demographics", "description": "Who buys"},
					"Foot traffic",
				},
			},
			"Permits and Licensing",
		},
	}

	p, err := plan.NormalizePlan(raw)
	require.NoError(t, err)
	require.Len(t, p.Topics, 2)

	assert.Equal(t, "market-analysis", p.Topics[0].ID)
	assert.Equal(t, "Market Analysis", p.Topics[0].Title)
	require.Len(t, p.Topics[0].Subtopics, 2)
	assert.Equal(t, "Foot traffic", p.Topics[0].Subtopics[1].Title)

	// Bare string topics get a title and an empty subtopic list.
	assert.Equal(t, "Permits and Licensing", p.Topics[1].Title)
	assert.NotNil(t, p.Topics[1].Subtopics)
	assert.Empty(t, p.Topics[1].Subtopics)
}

func TestNormalizePlan_AliasKeys(t *testing.T) {
	raw := map[string]any{
		"topics": []any{
			map[string]any{"topic": "Legal Review", "reason": "Regulatory exposure"},
		},
	}

	p, err := plan.NormalizePlan(raw)
	require.NoError(t, err)
	assert.Equal(t, "Legal Review", p.Topics[0].Title)
	assert.Equal(t, "Regulatory exposure", p.Topics[0].Description)
}

func TestNormalizePlan_SchemaViolations(t *testing.T) {
	tests := []struct {
		name string
		in   any
	}{
		{"missing topics", map[string]any{}},
		{"topics not a list", map[string]any{"topics": "nope"}},
		{"empty topics", map[string]any{"topics": []any{}}},
		{"topic missing title", map[string]any{"topics": []any{map[string]any{"description": "x"}}}},
		{"unsupported shape", 42},
		{"nil typed plan", (*plan.Plan)(nil)},
		{"typed plan no topics", plan.Plan{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := plan.NormalizePlan(tt.in)
			require.Error(t, err)
			assert.ErrorIs(t, err, plan.ErrSchema)
		})
	}
}

func TestNormalizePlan_Idempotent(t *testing.T) {
	raw := map[string]any{
		"topics": []any{
			map[string]any{"title": "Market Analysis", "subtopics": []any{"Demographics"}},
			map[string]any{"title": "Market Analysis"},
		},
	}

	once, err := plan.NormalizePlan(raw)
	require.NoError(t, err)

	twice, err := plan.NormalizePlan(once)
	require.NoError(t, err)
	assert.Equal(t, once, twice)

	// De-duplicated IDs survive re-normalization unchanged.
	assert.Equal(t, "market-analysis", twice.Topics[0].ID)
	assert.Equal(t, "market-analysis-2", twice.Topics[1].ID)
}

func TestNormalizeCritique_FromMap(t *testing.T) {
	raw := map[string]any{
		"assessment":          "Decent first draft",
		"score":               6.5,
		"strength_list":       []any{"broad coverage"},
		"weakness_list":       []any{"no budget", "vague timeline"},
		"suggestion_list":     []any{"add financial projections"},
		"recommendation_list": []any{},
	}

	c, err := plan.NormalizeCritique(raw)
	require.NoError(t, err)
	assert.Equal(t, "Decent first draft", c.Assessment)
	assert.Equal(t, 6.5, c.Score)
	assert.Equal(t, []string{"broad coverage"}, c.Strengths)
	assert.Len(t, c.Weaknesses, 2)
	assert.NotNil(t, c.Recommendations)
	assert.Empty(t, c.Recommendations)
}

func TestNormalizeCritique_ListAliases(t *testing.T) {
	raw := map[string]any{
		"score":     8,
		"strengths": []any{"clear structure"},
	}

	c, err := plan.NormalizeCritique(raw)
	require.NoError(t, err)
	assert.Equal(t, 8.0, c.Score)
	assert.Equal(t, []string{"clear structure"}, c.Strengths)
}

func TestNormalizeCritique_ScoreClamped(t *testing.T) {
	low, err := plan.NormalizeCritique(map[string]any{"score": -3})
	require.NoError(t, err)
	assert.Equal(t, plan.ScoreMin, low.Score)

	high, err := plan.NormalizeCritique(map[string]any{"score": 42})
	require.NoError(t, err)
	assert.Equal(t, plan.ScoreMax, high.Score)
}

func TestNormalizeCritique_SchemaViolations(t *testing.T) {
	tests := []struct {
		name string
		in   any
	}{
		{"missing score", map[string]any{"assessment": "fine"}},
		{"non-numeric score", map[string]any{"score": "eight"}},
		{"unsupported shape", []string{"nope"}},
		{"nil typed critique", (*plan.Critique)(nil)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := plan.NormalizeCritique(tt.in)
			require.Error(t, err)
			assert.ErrorIs(t, err, plan.ErrSchema)
		})
	}
}

func TestNormalizeCritique_Idempotent(t *testing.T) {
	once, err := plan.NormalizeCritique(map[string]any{
		"score":         7,
		"assessment":    "good",
		"strength_list": []any{"a"},
	})
	require.NoError(t, err)

	twice, err := plan.NormalizeCritique(once)
	require.NoError(t, err)
	assert.Equal(t, once, twice)
}
