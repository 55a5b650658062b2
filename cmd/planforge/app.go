package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/planforge/planforge/analysis"
	"github.com/planforge/planforge/config"
	"github.com/planforge/planforge/events"
	"github.com/planforge/planforge/expert"
	"github.com/planforge/planforge/llm"
	"github.com/planforge/planforge/metrics"
	"github.com/planforge/planforge/planner"
	"github.com/planforge/planforge/research"
	"github.com/planforge/planforge/store"
	"github.com/planforge/planforge/workflow"
)

// app bundles the assembled components for one invocation.
type app struct {
	cfg          *config.Config
	orchestrator *workflow.Orchestrator
	store        *store.Manager
	publisher    *events.Publisher
}

func (a *app) close() {
	a.publisher.Close()
}

// loadConfig loads an explicit config file, or the layered user/project
// configuration when no path is given.
func loadConfig(configPath string) (*config.Config, error) {
	if configPath == "" {
		return config.NewLoader(slog.Default()).Load()
	}

	cfg, err := config.LoadFromFile(configPath)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// buildApp loads config and wires the workflow components.
func buildApp(configPath string) (*app, error) {
	cfg, err := loadConfig(configPath)
	if err != nil {
		return nil, err
	}
	return buildAppFromConfig(cfg)
}

// buildAppFromConfig wires the workflow components from a validated config.
// Watch mode calls this once per reload, so the pieces that must exist only
// once per process (the metrics listener) are guarded here.
func buildAppFromConfig(cfg *config.Config) (*app, error) {
	logger := slog.Default()

	client := llm.NewClient(cfg.Registry(),
		llm.WithTimeout(cfg.Workflow.CallTimeout),
		llm.WithLogger(logger),
		llm.WithCallObserver(metrics.RecordLLMCall),
	)

	generator := planner.NewGenerator(client, planner.WithGeneratorLogger(logger))
	scorer := planner.NewScorer(client,
		planner.WithScorerLogger(logger),
		planner.WithScorerTemperature(cfg.Models.Temperature),
	)

	runnerOpts := []analysis.RunnerOption{analysis.WithRunnerLogger(logger)}
	if len(cfg.Research.SourceURLs) > 0 {
		svc := research.NewService(
			research.WithServiceLogger(logger),
			research.WithFetcher(research.NewFetcher(cfg.Research.FetchTimeout, "planforge-research/"+Version)),
		)
		runnerOpts = append(runnerOpts, analysis.WithResearch(svc, cfg.Research.SourceURLs))
	}
	runner, err := analysis.NewRunner(client, cfg.Workflow.MaxConcurrency, runnerOpts...)
	if err != nil {
		return nil, err
	}

	publisher, err := events.Connect(cfg.NATS.URL, logger)
	if err != nil {
		// Events are best-effort; a dead broker should not block a run.
		logger.Warn("Event publishing disabled", "error", err)
		publisher = nil
	}

	st := store.NewManager(cfg.Store.Dir)

	orch, err := workflow.New(
		workflow.Config{
			ScoreThreshold: cfg.Workflow.ScoreThreshold,
			MaxRetries:     cfg.Workflow.MaxRetries,
			TopicLimit:     cfg.Workflow.TopicLimit,
		},
		generator,
		scorer,
		expert.NewRouter(),
		runner,
		workflow.WithLogger(logger),
		workflow.WithStore(st),
		workflow.WithPublisher(publisher),
	)
	if err != nil {
		publisher.Close()
		return nil, err
	}

	if cfg.Metrics.ListenAddr != "" {
		metricsOnce.Do(func() {
			go serveMetrics(cfg.Metrics.ListenAddr, logger)
		})
	}

	return &app{cfg: cfg, orchestrator: orch, store: st, publisher: publisher}, nil
}

var metricsOnce sync.Once

func serveMetrics(addr string, logger *slog.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	logger.Info("Metrics listener started", "addr", addr)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Warn("Metrics listener stopped", "error", err)
	}
}

// signalContext returns a context canceled on SIGINT/SIGTERM.
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
}

func planCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "plan <business> <location>",
		Short: "Generate and refine a research plan without running analyses",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := buildApp(*configPath)
			if err != nil {
				return err
			}
			defer a.close()

			ctx, cancel := signalContext()
			defer cancel()

			brief := planner.Brief{Business: args[0], Location: args[1]}
			p, converged, err := a.orchestrator.RunPlanningLoop(ctx, brief)
			if err != nil {
				return err
			}

			if !converged {
				fmt.Fprintln(os.Stderr, "Warning: plan accepted after exhausting retries")
			}
			fmt.Print(p.Format())
			return nil
		},
	}
}

func runCmd(configPath *string) *cobra.Command {
	var watch bool

	cmd := &cobra.Command{
		Use:   "run <business> <location>",
		Short: "Run the full workflow: plan, critique, route and analyze",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := signalContext()
			defer cancel()

			brief := planner.Brief{Business: args[0], Location: args[1]}

			if watch {
				return runWatch(ctx, *configPath, brief)
			}

			cfg, err := loadConfig(*configPath)
			if err != nil {
				return err
			}
			return runOnce(ctx, cfg, brief)
		},
	}

	cmd.Flags().BoolVar(&watch, "watch", false, "Keep running, re-executing the workflow when the config file changes")
	return cmd
}

// runOnce wires an app from the given config, executes one workflow run and
// prints the outcome.
func runOnce(ctx context.Context, cfg *config.Config, brief planner.Brief) error {
	a, err := buildAppFromConfig(cfg)
	if err != nil {
		return err
	}
	defer a.close()

	result, err := a.orchestrator.Run(ctx, brief)
	if err != nil {
		return err
	}

	fmt.Printf("Run %s finished: %s (score %.1f, %d iterations)\n",
		result.RunID, result.Status, result.FinalScore, result.Iterations)
	if result.Report != nil {
		fmt.Printf("Analyzed %d topics (%d failed)\n",
			len(result.Report.Results), result.Report.Failed())
	}
	fmt.Printf("Artifacts: %s\n", a.store.RunPath(result.Slug))
	return nil
}

// runWatch executes one run, then watches the config file and re-runs the
// workflow with freshly loaded tunables on every validated change. It exits
// when the context is canceled.
func runWatch(ctx context.Context, configPath string, brief planner.Brief) error {
	logger := slog.Default()

	watchPath := configPath
	if watchPath == "" {
		watchPath = config.NewLoader(logger).FindProjectConfig()
	}
	if watchPath == "" {
		return fmt.Errorf("watch mode needs a config file: pass --config or create %s", config.ProjectConfigFile)
	}

	watcher, err := config.NewWatcher(watchPath, logger)
	if err != nil {
		return err
	}
	if err := watcher.Start(ctx); err != nil {
		return err
	}
	defer func() { _ = watcher.Stop() }()

	cfg, err := loadConfig(configPath)
	if err != nil {
		return err
	}
	if err := runOnce(ctx, cfg, brief); err != nil {
		logger.Error("Run failed, waiting for next config change", "error", err)
	}

	return watchLoop(ctx, watcher.Updates(), func(ctx context.Context, cfg *config.Config) error {
		return runOnce(ctx, cfg, brief)
	}, logger)
}

// watchLoop re-runs the workflow for each reloaded config until the context
// is canceled or the updates channel closes. A failed run keeps the loop
// alive so the next config change gets another attempt.
func watchLoop(ctx context.Context, updates <-chan *config.Config, run func(context.Context, *config.Config) error, logger *slog.Logger) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case cfg, ok := <-updates:
			if !ok {
				return nil
			}
			logger.Info("Configuration reloaded, starting new run",
				"score_threshold", cfg.Workflow.ScoreThreshold,
				"max_retries", cfg.Workflow.MaxRetries)
			if err := run(ctx, cfg); err != nil {
				logger.Error("Run failed, waiting for next config change", "error", err)
			}
		}
	}
}

func routeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "route <query>",
		Short: "Show which expert a research query routes to",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			decision := expert.NewRouter().Route(args[0])
			fmt.Println(decision.Expert)
			return nil
		},
	}
}

func reportsCmd(configPath *string) *cobra.Command {
	var pattern string

	cmd := &cobra.Command{
		Use:   "reports",
		Short: "List persisted run reports",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(*configPath)
			if err != nil {
				return err
			}

			paths, err := store.NewManager(cfg.Store.Dir).ListReports(pattern)
			if err != nil {
				return err
			}
			for _, p := range paths {
				fmt.Println(p)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&pattern, "pattern", "**/report.md", "Glob pattern relative to the runs directory")
	return cmd
}

func configCmd(configPath *string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage planforge configuration",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "init",
		Short: "Create the user config file with defaults if it doesn't exist",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return config.NewLoader(slog.Default()).EnsureUserConfig()
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Print the effective configuration after layering",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(*configPath)
			if err != nil {
				return err
			}
			out, err := yaml.Marshal(cfg)
			if err != nil {
				return err
			}
			fmt.Fprint(cmd.OutOrStdout(), string(out))
			return nil
		},
	})

	return cmd
}
