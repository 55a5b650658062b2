package analysis

import (
	"strings"

	"github.com/planforge/planforge/expert"
	"github.com/planforge/planforge/plan"
)

// Templates holds the prompt templates used for per-topic analysis.
type Templates struct {
	// System frames the expert persona. {{expert}} and {{expertise}}
	// expand to the assigned expert's name and domain description.
	System string

	// User requests the analysis. Expands {{business}}, {{location}},
	// {{topic}}, {{description}} and {{subtopics}}.
	User string

	// ResearchSection is appended to the user prompt when reference
	// material is available. {{research}} expands to the gathered
	// markdown sources.
	ResearchSection string
}

// DefaultTemplates returns the built-in analysis prompt templates.
func DefaultTemplates() Templates {
	return Templates{
		System: `You are a senior {{expert}} consultant. Your domain: {{expertise}}.
You produce thorough, actionable analysis grounded in specifics of the business and its location. Write in markdown with clear section headings.`,

		User: `A new {{business}} is being established in {{location}}. Analyze the following research topic from your domain perspective.

Topic: {{topic}}
{{description}}

Cover each of these areas:
{{subtopics}}

Provide concrete findings, risks, and recommended actions. Be specific to {{location}} where it matters.`,

		ResearchSection: `

Reference material gathered for this topic:

{{research}}

Cite the reference material where it supports a finding.`,
	}
}

// render substitutes {{key}} placeholders with their values.
func render(template string, vars map[string]string) string {
	out := template
	for key, value := range vars {
		out = strings.ReplaceAll(out, "{{"+key+"}}", value)
	}
	return out
}

func topicVars(t plan.Topic) map[string]string {
	lines := make([]string, 0, len(t.Subtopics))
	for _, s := range t.Subtopics {
		line := s.Title
		if s.Description != "" {
			line += ": " + s.Description
		}
		lines = append(lines, line)
	}
	return map[string]string{
		"topic":       t.Title,
		"description": t.Description,
		"subtopics":   plan.FormatBullets(lines),
	}
}

func expertVars(e expert.Expert) map[string]string {
	return map[string]string{
		"expert":    strings.ReplaceAll(e.String(), "_", " "),
		"expertise": expert.Descriptions[e],
	}
}
