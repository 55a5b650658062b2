// Package store persists workflow artifacts on disk: accepted plans,
// critique history, per-topic analysis reports and the merged report.
// Runs live under {base}/runs/{slug}/.
package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/planforge/planforge/plan"
)

const (
	// PlanFile is the accepted plan artifact name.
	PlanFile = "plan.json"

	// CritiquesFile holds the full critique history for a run.
	CritiquesFile = "critiques.json"

	// MergedReportFile is the final merged analysis document.
	MergedReportFile = "report.md"

	// reportsDir holds per-topic analysis files.
	reportsDir = "reports"
)

// ErrPlanNotFound indicates no persisted plan exists for the slug.
var ErrPlanNotFound = errors.New("plan not found")

var slugPattern = regexp.MustCompile(`^[a-z0-9]+(-[a-z0-9]+)*$`)

// ValidateSlug rejects slugs that could escape the runs directory.
func ValidateSlug(slug string) error {
	if !slugPattern.MatchString(slug) {
		return fmt.Errorf("invalid slug %q: must be lowercase alphanumeric with hyphens", slug)
	}
	return nil
}

// Manager owns the artifact directory layout for workflow runs.
type Manager struct {
	baseDir string
}

// NewManager creates a store rooted at baseDir.
func NewManager(baseDir string) *Manager {
	return &Manager{baseDir: baseDir}
}

// RunPath returns the directory holding a run's artifacts.
func (m *Manager) RunPath(slug string) string {
	return filepath.Join(m.baseDir, "runs", slug)
}

// SavePlan writes the plan to {run}/plan.json.
func (m *Manager) SavePlan(ctx context.Context, slug string, p *plan.Plan) error {
	if err := ValidateSlug(slug); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	return m.writeJSON(filepath.Join(m.RunPath(slug), PlanFile), p)
}

// LoadPlan reads the plan from {run}/plan.json.
func (m *Manager) LoadPlan(ctx context.Context, slug string) (*plan.Plan, error) {
	if err := ValidateSlug(slug); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	data, err := os.ReadFile(filepath.Join(m.RunPath(slug), PlanFile))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrPlanNotFound, slug)
		}
		return nil, fmt.Errorf("read plan: %w", err)
	}

	var p plan.Plan
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("parse plan: %w", err)
	}
	return &p, nil
}

// SaveCritiques writes the critique history to {run}/critiques.json.
func (m *Manager) SaveCritiques(ctx context.Context, slug string, critiques []plan.Critique) error {
	if err := ValidateSlug(slug); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	return m.writeJSON(filepath.Join(m.RunPath(slug), CritiquesFile), critiques)
}

// SaveTopicReport writes one topic's analysis to {run}/reports/{topicID}.md.
func (m *Manager) SaveTopicReport(ctx context.Context, slug, topicID, content string) error {
	if err := ValidateSlug(slug); err != nil {
		return err
	}
	if err := ValidateSlug(topicID); err != nil {
		return fmt.Errorf("invalid topic ID: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	path := filepath.Join(m.RunPath(slug), reportsDir, topicID+".md")
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("create reports directory: %w", err)
	}
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		return fmt.Errorf("write topic report: %w", err)
	}
	return nil
}

// SaveMergedReport writes the merged analysis document to {run}/report.md.
func (m *Manager) SaveMergedReport(ctx context.Context, slug, content string) error {
	if err := ValidateSlug(slug); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	path := filepath.Join(m.RunPath(slug), MergedReportFile)
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("create run directory: %w", err)
	}
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		return fmt.Errorf("write merged report: %w", err)
	}
	return nil
}

// ListReports returns all persisted report paths matching the glob pattern,
// relative to the runs directory. Pattern supports ** (e.g. "**/reports/*.md"
// for every topic report across runs). Results are sorted.
func (m *Manager) ListReports(pattern string) ([]string, error) {
	absPattern := filepath.Join(m.baseDir, "runs", pattern)
	matches, err := doublestar.FilepathGlob(absPattern)
	if err != nil {
		return nil, fmt.Errorf("invalid pattern %q: %w", pattern, err)
	}

	root := filepath.Join(m.baseDir, "runs")
	rel := make([]string, 0, len(matches))
	for _, match := range matches {
		r, err := filepath.Rel(root, match)
		if err != nil {
			continue
		}
		rel = append(rel, r)
	}
	sort.Strings(rel)
	return rel, nil
}

func (m *Manager) writeJSON(path string, v any) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("create directory: %w", err)
	}
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("write %s: %w", filepath.Base(path), err)
	}
	return nil
}
