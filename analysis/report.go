package analysis

import (
	"fmt"
	"strings"

	"github.com/planforge/planforge/planner"
)

// Report is the merged output of a full analysis run. Results keep the
// order of the plan's topics.
type Report struct {
	Brief   planner.Brief
	Results []Result
}

// Succeeded counts topics that produced analysis content.
func (r *Report) Succeeded() int {
	n := 0
	for _, res := range r.Results {
		if res.Err == nil {
			n++
		}
	}
	return n
}

// Failed counts topics whose analysis errored.
func (r *Report) Failed() int {
	return len(r.Results) - r.Succeeded()
}

// Format renders the report as a single markdown document. Each topic
// becomes a section attributed to its expert; failed topics are recorded
// with the failure so the gap is visible in the final document.
func (r *Report) Format() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "# Business Plan Analysis: %s in %s\n", r.Brief.Business, r.Brief.Location)

	for _, res := range r.Results {
		fmt.Fprintf(&sb, "\n## %s\n", res.Title)
		fmt.Fprintf(&sb, "*Analyzed by: %s*\n\n", strings.ReplaceAll(res.Expert.String(), "_", " "))
		if res.Err != nil {
			fmt.Fprintf(&sb, "Analysis unavailable: %v\n", res.Err)
			continue
		}
		sb.WriteString(strings.TrimSpace(res.Content))
		sb.WriteString("\n")
	}

	if failed := r.Failed(); failed > 0 {
		fmt.Fprintf(&sb, "\n---\n%d of %d topic analyses failed.\n", failed, len(r.Results))
	}
	return sb.String()
}
