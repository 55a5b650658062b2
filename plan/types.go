// Package plan defines the business plan domain types and the schema
// normalizer that turns loosely-shaped model output into canonical records.
package plan

import (
	"fmt"
	"regexp"
	"strings"
)

// Subtopic is a nested section owned by its parent Topic.
type Subtopic struct {
	Title       string `json:"title"`
	Description string `json:"description"`
}

// Topic is a named section of a business plan. Order within a plan is
// meaningful and reflects presentation order.
type Topic struct {
	// ID uniquely identifies the topic within its plan. Assigned during
	// normalization from the title (slugified, de-duplicated).
	ID          string     `json:"id"`
	Title       string     `json:"title"`
	Description string     `json:"description"`
	Subtopics   []Subtopic `json:"subtopics"`
}

// Plan is an ordered collection of topics. Plans are replaced wholesale on
// each regeneration, never mutated in place, so prior drafts stay
// inspectable.
type Plan struct {
	Topics []Topic `json:"topics"`

	// GenerationIteration records which planning iteration produced this
	// draft. Zero for the initial draft.
	GenerationIteration int `json:"generation_iteration"`
}

// Critique is a scored evaluation of a plan draft. List fields are always
// non-nil after normalization. A Critique is immutable once produced.
type Critique struct {
	Assessment      string   `json:"assessment"`
	Score           float64  `json:"score"`
	Strengths       []string `json:"strength_list"`
	Weaknesses      []string `json:"weakness_list"`
	Suggestions     []string `json:"suggestion_list"`
	Recommendations []string `json:"recommendation_list"`
}

// ScoreMin and ScoreMax bound the critique score range.
const (
	ScoreMin = 1.0
	ScoreMax = 10.0
)

// TopicCount returns the number of topics in the plan.
func (p *Plan) TopicCount() int {
	return len(p.Topics)
}

// SubtopicCount returns the total number of subtopics across all topics.
func (p *Plan) SubtopicCount() int {
	n := 0
	for _, t := range p.Topics {
		n += len(t.Subtopics)
	}
	return n
}

// Format renders the plan as a numbered outline suitable for embedding in
// prompts and for CLI output.
func (p *Plan) Format() string {
	var sb strings.Builder
	for i, t := range p.Topics {
		fmt.Fprintf(&sb, "%d. %s\n", i+1, t.Title)
		if t.Description != "" {
			fmt.Fprintf(&sb, "   %s\n", t.Description)
		}
		for j, s := range t.Subtopics {
			fmt.Fprintf(&sb, "   %d.%d %s", i+1, j+1, s.Title)
			if s.Description != "" {
				fmt.Fprintf(&sb, " - %s", s.Description)
			}
			sb.WriteString("\n")
		}
	}
	return sb.String()
}

// FormatBullets renders a string list as "- item" lines, one per line.
// Used to pass critique feedback through to refinement prompts verbatim.
func FormatBullets(items []string) string {
	if len(items) == 0 {
		return ""
	}
	var sb strings.Builder
	for _, item := range items {
		sb.WriteString("- ")
		sb.WriteString(item)
		sb.WriteString("\n")
	}
	return strings.TrimRight(sb.String(), "\n")
}

var nonSlugChars = regexp.MustCompile(`[^a-z0-9]+`)

// SlugifyTitle derives a topic ID from its title: lowercase alphanumeric
// with hyphens, no leading or trailing hyphen.
func SlugifyTitle(title string) string {
	slug := strings.ToLower(strings.TrimSpace(title))
	slug = nonSlugChars.ReplaceAllString(slug, "-")
	slug = strings.Trim(slug, "-")
	if slug == "" {
		slug = "topic"
	}
	return slug
}

// AssignTopicIDs fills in missing topic IDs from titles, de-duplicating
// with a numeric suffix. Existing IDs are preserved.
func AssignTopicIDs(topics []Topic) {
	seen := make(map[string]bool, len(topics))
	for i := range topics {
		base := topics[i].ID
		if base == "" {
			base = SlugifyTitle(topics[i].Title)
		}
		id := base
		for n := 2; seen[id]; n++ {
			id = fmt.Sprintf("%s-%d", base, n)
		}
		seen[id] = true
		topics[i].ID = id
	}
}
