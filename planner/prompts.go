package planner

import (
	"fmt"
	"strings"

	"github.com/planforge/planforge/expert"
	"github.com/planforge/planforge/plan"
)

// Templates holds the prompt templates used by the generator and scorer.
// Templates are frozen at construction: components receive a copy and never
// consult ambient/global state, which keeps tests deterministic when
// substituted templates are injected.
type Templates struct {
	// PlanningSystem frames the generation role. {{experts}} expands to
	// the expert roster.
	PlanningSystem string

	// PlanningUser requests the initial draft. {{business}} and
	// {{location}} expand to the brief.
	PlanningUser string

	// RefinementUser requests an improved draft. Expands {{business}},
	// {{location}}, {{previous}}, {{assessment}}, {{strengths}},
	// {{weaknesses}}, {{suggestions}}, {{recommendations}}.
	RefinementUser string

	// CritiqueSystem frames the review role.
	CritiqueSystem string

	// CritiqueUser requests a scored review. Expands {{business}},
	// {{location}}, {{topics}}.
	CritiqueUser string
}

// DefaultTemplates returns the built-in prompt templates.
func DefaultTemplates() Templates {
	return Templates{
		PlanningSystem: `You are an elite business strategist who leads a team of domain experts:
{{experts}}
You identify the critical areas of research required to establish a new business so each area can be researched independently by a dedicated expert.`,

		PlanningUser: `Produce the research outline for establishing a {{business}} in {{location}}.

Identify a comprehensive set of topics, each self-contained and actionable for one dedicated expert. Consider market conditions, competition, regulations, infrastructure, and cultural factors specific to {{location}}.

Respond with ONLY a JSON object in this exact structure:
{
  "topics": [
    {
      "title": "Research area name",
      "description": "Why this area is critical for {{business}} in {{location}}",
      "subtopics": [
        {"title": "Actionable subtopic", "description": "What the expert should establish"}
      ]
    }
  ]
}`,

		RefinementUser: `The previous research outline for establishing a {{business}} in {{location}} was reviewed. Produce an improved complete outline that addresses every weakness and suggestion while preserving what worked.

Previous outline:
{{previous}}

Review assessment:
{{assessment}}

Strengths to preserve:
{{strengths}}

Weaknesses to address:
{{weaknesses}}

Suggested improvements:
{{suggestions}}

Strategic recommendations:
{{recommendations}}

Respond with ONLY a JSON object in this exact structure:
{
  "topics": [
    {
      "title": "Research area name",
      "description": "Why this area is critical",
      "subtopics": [
        {"title": "Actionable subtopic", "description": "What the expert should establish"}
      ]
    }
  ]
}`,

		CritiqueSystem: `You are an elite business strategist and critical reviewer. You evaluate research outlines prepared for launching new businesses, judging clarity, completeness, localization, relevance, and actionable guidance.`,

		CritiqueUser: `Critically evaluate this research outline for establishing a {{business}} in {{location}}:

{{topics}}

Evaluate strategic relevance, completeness of subtopics, localization depth, independence and actionability per topic, risk coverage, and inclusion of KPIs and quantitative estimates.

Respond with ONLY a JSON object in this exact structure:
{
  "assessment": "High-level judgment on quality, completeness, and practicality",
  "strength_list": ["Specific strength"],
  "weakness_list": ["Specific gap or weakness"],
  "suggestion_list": ["Actionable step to address a weakness"],
  "recommendation_list": ["Optional strategic enhancement"],
  "score": 7
}

The score is a number from 1 to 10: Poor (1-3), Adequate (4-6), Good (7-8), Excellent (9-10). Be specific and critical; avoid vague statements.`,
	}
}

// render substitutes {{key}} placeholders in a template.
func render(template string, vars map[string]string) string {
	out := template
	for key, val := range vars {
		out = strings.ReplaceAll(out, "{{"+key+"}}", val)
	}
	return out
}

// expertRoster formats the expert taxonomy for the planning system prompt.
func expertRoster() string {
	var sb strings.Builder
	for _, e := range expert.All {
		fmt.Fprintf(&sb, "- %s: %s\n", strings.ReplaceAll(e.String(), "_", " "), expert.Descriptions[e])
	}
	return strings.TrimRight(sb.String(), "\n")
}

// critiqueVars builds the substitution set shared by critique-aware prompts.
func critiqueVars(c *plan.Critique) map[string]string {
	return map[string]string{
		"assessment":      c.Assessment,
		"strengths":       plan.FormatBullets(c.Strengths),
		"weaknesses":      plan.FormatBullets(c.Weaknesses),
		"suggestions":     plan.FormatBullets(c.Suggestions),
		"recommendations": plan.FormatBullets(c.Recommendations),
	}
}
