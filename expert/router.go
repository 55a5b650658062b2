package expert

import (
	"strings"
	"unicode"
)

// Router maps query text to an expert. Routing is a pure function of the
// input: identical text always yields the identical expert, and every
// input, including empty or nonsense text, yields some valid expert. That
// determinism is what makes re-runs idempotent and routing testable.
type Router struct {
	keywords map[Expert][]weightedTerm
}

type weightedTerm struct {
	term   string
	weight int
}

// NewRouter creates a router with the built-in keyword vocabulary.
func NewRouter() *Router {
	return &Router{keywords: defaultKeywords()}
}

// Route assigns the query to exactly one expert. Queries that match no
// domain vocabulary fall back to the general business analyst.
func (r *Router) Route(query string) Decision {
	return Decision{Query: query, Expert: r.classify(query)}
}

func (r *Router) classify(query string) Expert {
	tokens := tokenize(query)
	if len(tokens) == 0 {
		return Fallback
	}

	folded := " " + strings.Join(tokens, " ") + " "

	best := Fallback
	bestScore := 0
	for _, e := range All {
		score := 0
		for _, wt := range r.keywords[e] {
			if strings.Contains(folded, " "+wt.term+" ") {
				score += wt.weight
			}
		}
		// Strict > keeps ties resolved by position in All.
		if score > bestScore {
			best = e
			bestScore = score
		}
	}
	return best
}

// tokenize lowercases and splits on non-letter, non-digit runes.
func tokenize(s string) []string {
	return strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}

// defaultKeywords is the routing vocabulary. Multi-word terms are matched
// against the normalized token stream, so "supply chain" matches however
// the query punctuates it.
func defaultKeywords() map[Expert][]weightedTerm {
	return map[Expert][]weightedTerm{
		ExpertFinancial: {
			{"financial", 3}, {"finance", 3}, {"budget", 3}, {"budgeting", 3},
			{"funding", 2}, {"investment", 2}, {"revenue", 2}, {"accounting", 3},
			{"cash flow", 3}, {"profit", 2}, {"cost", 1}, {"pricing", 1},
			{"capital", 2}, {"roi", 2}, {"tax", 2},
		},
		ExpertMarketing: {
			{"marketing", 3}, {"brand", 2}, {"branding", 3}, {"campaign", 3},
			{"advertising", 3}, {"promotion", 2}, {"social media", 3},
			{"awareness", 1}, {"seo", 2}, {"content", 1},
		},
		ExpertOperations: {
			{"operations", 3}, {"operational", 3}, {"workflow", 2},
			{"process", 1}, {"production", 2}, {"facility", 2},
			{"equipment", 2}, {"staffing plan", 1}, {"quality control", 2},
			{"scheduling", 2},
		},
		ExpertLegal: {
			{"legal", 3}, {"law", 3}, {"laws", 3}, {"regulation", 3},
			{"regulatory", 3}, {"compliance", 3}, {"permit", 3},
			{"license", 3}, {"licensing", 3}, {"contract", 2},
			{"liability", 2}, {"intellectual property", 3},
		},
		ExpertTechnology: {
			{"technology", 3}, {"software", 3}, {"hardware", 2}, {"it", 1},
			{"digital", 1}, {"platform", 1}, {"automation", 2}, {"ai", 2},
			{"website", 2}, {"app", 2}, {"data", 1}, {"infrastructure", 1},
		},
		ExpertSales: {
			{"sales", 3}, {"selling", 3}, {"crm", 3}, {"pipeline", 2},
			{"conversion", 2}, {"leads", 2}, {"upsell", 2},
			{"distribution channel", 1},
		},
		ExpertHR: {
			{"hiring", 3}, {"recruitment", 3}, {"recruiting", 3},
			{"staff", 2}, {"staffing", 2}, {"training", 2}, {"employee", 2},
			{"hr", 3}, {"human resources", 3}, {"payroll", 2},
			{"onboarding", 2}, {"culture", 1},
		},
		ExpertSupplyChain: {
			{"supply chain", 3}, {"supplier", 3}, {"procurement", 3},
			{"inventory", 3}, {"sourcing", 3}, {"logistics", 2},
			{"warehouse", 2}, {"shipping", 2}, {"vendor", 2},
		},
		ExpertCompetitiveIntelligence: {
			{"competitor", 3}, {"competitors", 3}, {"competition", 3},
			{"market research", 3}, {"market analysis", 3},
			{"competitive", 2}, {"benchmarking", 2}, {"industry analysis", 2},
			{"market share", 2},
		},
		ExpertCustomerExperience: {
			{"customer experience", 3}, {"customer satisfaction", 3},
			{"customer service", 3}, {"support", 2}, {"retention", 2},
			{"loyalty", 2}, {"feedback", 2}, {"customer", 1},
		},
		ExpertPublicRelations: {
			{"public relations", 3}, {"pr", 2}, {"media", 2}, {"press", 2},
			{"reputation", 3}, {"communications", 2}, {"community", 1},
			{"sponsorship", 2},
		},
		ExpertBusinessAnalyst: {
			{"strategy", 2}, {"strategic", 2}, {"business model", 2},
			{"planning", 1}, {"vision", 1}, {"mission", 1}, {"swot", 2},
			{"roadmap", 1}, {"expansion", 1},
		},
	}
}
