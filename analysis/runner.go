package analysis

import (
	"context"
	"fmt"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/planforge/planforge/expert"
	"github.com/planforge/planforge/llm"
	"github.com/planforge/planforge/plan"
	"github.com/planforge/planforge/planner"
)

// Task pairs a plan topic with the expert assigned to analyze it.
type Task struct {
	Topic  plan.Topic
	Expert expert.Expert
}

// Result is the outcome of analyzing a single topic. Err is set when the
// analysis failed; failed topics never abort the run.
type Result struct {
	TopicID string
	Title   string
	Expert  expert.Expert
	Content string
	Err     error
}

// llmCompleter is the slice of the LLM client the runner needs.
type llmCompleter interface {
	Complete(ctx context.Context, req llm.Request) (*llm.Response, error)
}

// researchGatherer supplies markdown reference material for a set of URLs.
type researchGatherer interface {
	Gather(ctx context.Context, urls []string) string
}

// Runner executes per-topic expert analyses with bounded concurrency.
type Runner struct {
	client      llmCompleter
	templates   Templates
	research    researchGatherer
	sourceURLs  []string
	logger      *slog.Logger
	concurrency int
	maxTokens   int
}

// RunnerOption configures a Runner.
type RunnerOption func(*Runner)

// WithRunnerLogger sets the logger.
func WithRunnerLogger(logger *slog.Logger) RunnerOption {
	return func(r *Runner) {
		r.logger = logger
	}
}

// WithRunnerTemplates replaces the default prompt templates.
func WithRunnerTemplates(t Templates) RunnerOption {
	return func(r *Runner) {
		r.templates = t
	}
}

// WithResearch enables reference-material gathering from the given URLs.
// The material is fetched once per run and shared across all topics.
func WithResearch(svc researchGatherer, urls []string) RunnerOption {
	return func(r *Runner) {
		r.research = svc
		r.sourceURLs = urls
	}
}

// NewRunner creates an analysis runner. Concurrency must be positive.
func NewRunner(client llmCompleter, concurrency int, opts ...RunnerOption) (*Runner, error) {
	if client == nil {
		return nil, fmt.Errorf("client is required")
	}
	if concurrency < 1 {
		return nil, fmt.Errorf("concurrency must be positive, got %d", concurrency)
	}

	r := &Runner{
		client:      client,
		templates:   DefaultTemplates(),
		logger:      slog.Default(),
		concurrency: concurrency,
		maxTokens:   8192,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r, nil
}

// RunAll analyzes every task concurrently, at most r.concurrency at a time.
// Results come back in task order. A failing topic records its error in the
// corresponding Result and the remaining topics still run.
func (r *Runner) RunAll(ctx context.Context, brief planner.Brief, tasks []Task) []Result {
	results := make([]Result, len(tasks))
	if len(tasks) == 0 {
		return results
	}

	researchContext := ""
	if r.research != nil && len(r.sourceURLs) > 0 {
		researchContext = r.research.Gather(ctx, r.sourceURLs)
	}

	var g errgroup.Group
	g.SetLimit(r.concurrency)

	for i, task := range tasks {
		g.Go(func() error {
			content, err := r.analyzeTopic(ctx, brief, task, researchContext)
			results[i] = Result{
				TopicID: task.Topic.ID,
				Title:   task.Topic.Title,
				Expert:  task.Expert,
				Content: content,
				Err:     err,
			}
			if err != nil {
				r.logger.Warn("topic analysis failed",
					"topic_id", task.Topic.ID,
					"expert", task.Expert,
					"error", err)
			}
			return nil
		})
	}
	// Workers never return errors; failures land in their result slot.
	_ = g.Wait()

	return results
}

func (r *Runner) analyzeTopic(ctx context.Context, brief planner.Brief, task Task, researchContext string) (string, error) {
	vars := map[string]string{
		"business": brief.Business,
		"location": brief.Location,
	}
	for k, v := range topicVars(task.Topic) {
		vars[k] = v
	}

	userPrompt := render(r.templates.User, vars)
	if researchContext != "" {
		userPrompt += render(r.templates.ResearchSection, map[string]string{
			"research": researchContext,
		})
	}

	resp, err := r.client.Complete(ctx, llm.Request{
		Capability: "analysis",
		Messages: []llm.Message{
			{Role: "system", Content: render(r.templates.System, expertVars(task.Expert))},
			{Role: "user", Content: userPrompt},
		},
		MaxTokens: r.maxTokens,
	})
	if err != nil {
		return "", fmt.Errorf("analyze topic %q: %w", task.Topic.ID, err)
	}
	return resp.Content, nil
}
