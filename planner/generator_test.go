package planner_test

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/planforge/planforge/llm"
	"github.com/planforge/planforge/plan"
	"github.com/planforge/planforge/planner"
)

// fakeCompleter replays canned responses and records every request.
type fakeCompleter struct {
	responses []string
	err       error
	requests  []llm.Request
}

func (f *fakeCompleter) Complete(_ context.Context, req llm.Request) (*llm.Response, error) {
	f.requests = append(f.requests, req)
	if f.err != nil {
		return nil, f.err
	}
	idx := len(f.requests) - 1
	if idx >= len(f.responses) {
		idx = len(f.responses) - 1
	}
	return &llm.Response{Content: f.responses[idx], Model: "fake-model"}, nil
}

const validPlanJSON = `{
  "topics": [
    {
      "title": "Market Analysis",
      "description": "Local demand",
      "subtopics": [{"title": "Demographics", "description": "Who buys"}]
    },
    {"title": "Permits and Licensing"}
  ]
}`

func TestGenerator_Generate_Initial(t *testing.T) {
	client := &fakeCompleter{responses: []string{validPlanJSON}}
	gen := planner.NewGenerator(client)

	brief := planner.Brief{Business: "coffee shop", Location: "Lisbon"}
	p, err := gen.Generate(context.Background(), brief, nil, nil)
	require.NoError(t, err)

	require.Len(t, p.Topics, 2)
	assert.Equal(t, "market-analysis", p.Topics[0].ID)

	require.Len(t, client.requests, 1)
	req := client.requests[0]
	assert.Equal(t, "planning", req.Capability)
	require.Len(t, req.Messages, 2)
	assert.Equal(t, "system", req.Messages[0].Role)
	assert.Contains(t, req.Messages[1].Content, "coffee shop")
	assert.Contains(t, req.Messages[1].Content, "Lisbon")
}

func TestGenerator_Generate_RefinementCarriesCritique(t *testing.T) {
	client := &fakeCompleter{responses: []string{validPlanJSON}}
	gen := planner.NewGenerator(client)

	brief := planner.Brief{Business: "coffee shop", Location: "Lisbon"}
	previous := &plan.Plan{Topics: []plan.Topic{{ID: "market-analysis", Title: "Market Analysis"}}}
	critique := &plan.Critique{
		Assessment:      "needs work",
		Score:           5,
		Strengths:       []string{"clear structure"},
		Weaknesses:      []string{"no budget section"},
		Suggestions:     []string{"add financial projections"},
		Recommendations: []string{"consult an accountant"},
	}

	_, err := gen.Generate(context.Background(), brief, critique, previous)
	require.NoError(t, err)

	prompt := client.requests[0].Messages[1].Content
	// The critique lists pass through verbatim.
	assert.Contains(t, prompt, "no budget section")
	assert.Contains(t, prompt, "add financial projections")
	assert.Contains(t, prompt, "consult an accountant")
	assert.Contains(t, prompt, "clear structure")
	// The previous outline is included for context.
	assert.Contains(t, prompt, "Market Analysis")
}

func TestGenerator_Generate_SchemaErrorPassesThrough(t *testing.T) {
	client := &fakeCompleter{responses: []string{`{"topics": []}`}}
	gen := planner.NewGenerator(client)

	_, err := gen.Generate(context.Background(), planner.Brief{Business: "b", Location: "l"}, nil, nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, plan.ErrSchema)
	assert.NotErrorIs(t, err, planner.ErrGenerationFailed)
}

func TestGenerator_Generate_LLMFailureWrapped(t *testing.T) {
	client := &fakeCompleter{err: fmt.Errorf("connection refused")}
	gen := planner.NewGenerator(client)

	_, err := gen.Generate(context.Background(), planner.Brief{Business: "b", Location: "l"}, nil, nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, planner.ErrGenerationFailed)
}

func TestGenerator_Generate_UnparsableResponseWrapped(t *testing.T) {
	client := &fakeCompleter{responses: []string{"sorry, no JSON today"}}
	gen := planner.NewGenerator(client)

	_, err := gen.Generate(context.Background(), planner.Brief{Business: "b", Location: "l"}, nil, nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, planner.ErrGenerationFailed)
	assert.False(t, errors.Is(err, plan.ErrSchema))
}

func TestBrief_Validate(t *testing.T) {
	assert.Error(t, planner.Brief{}.Validate())
	assert.Error(t, planner.Brief{Business: "b"}.Validate())
	assert.Error(t, planner.Brief{Location: "l"}.Validate())
	assert.NoError(t, planner.Brief{Business: "b", Location: "l"}.Validate())
}
