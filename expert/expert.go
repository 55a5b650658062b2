// Package expert provides the fixed specialist taxonomy and a deterministic
// router that assigns business plan topics to domain experts.
package expert

// Expert identifies a specialist analysis domain.
type Expert string

const (
	ExpertTechnology              Expert = "technology_expert"
	ExpertLegal                   Expert = "legal_expert"
	ExpertBusinessAnalyst         Expert = "business_analyst"
	ExpertHR                      Expert = "hr_expert"
	ExpertCompetitiveIntelligence Expert = "competitive_intelligence_expert"
	ExpertFinancial               Expert = "financial_expert"
	ExpertOperations              Expert = "operations_expert"
	ExpertSales                   Expert = "sales_expert"
	ExpertMarketing               Expert = "marketing_expert"
	ExpertCustomerExperience      Expert = "customer_experience_expert"
	ExpertPublicRelations         Expert = "public_relations_expert"
	ExpertSupplyChain             Expert = "supply_chain_expert"
)

// Fallback is the general-purpose expert assigned when no specific domain
// matches. Every query routes somewhere; this is where "somewhere" lands.
const Fallback = ExpertBusinessAnalyst

// All lists every expert in fixed order. The order is load-bearing: the
// router breaks score ties by position in this list, which keeps routing
// deterministic.
var All = []Expert{
	ExpertFinancial,
	ExpertMarketing,
	ExpertOperations,
	ExpertLegal,
	ExpertTechnology,
	ExpertSales,
	ExpertHR,
	ExpertSupplyChain,
	ExpertCompetitiveIntelligence,
	ExpertCustomerExperience,
	ExpertPublicRelations,
	ExpertBusinessAnalyst,
}

// Descriptions summarizes each expert's domain, used in planning prompts so
// the generator covers every specialty.
var Descriptions = map[Expert]string{
	ExpertTechnology:              "software, AI, hardware, IT topics",
	ExpertLegal:                   "laws, contracts, compliance",
	ExpertBusinessAnalyst:         "strategy, planning, business processes",
	ExpertHR:                      "hiring, policies, training",
	ExpertCompetitiveIntelligence: "market research, competitor analysis",
	ExpertFinancial:               "investments, accounting, budgeting",
	ExpertOperations:              "logistics, workflows",
	ExpertSales:                   "sales strategies, CRM",
	ExpertMarketing:               "campaigns, branding",
	ExpertCustomerExperience:      "customer satisfaction, support strategy",
	ExpertPublicRelations:         "media, reputation, communications",
	ExpertSupplyChain:             "procurement, inventory, logistics",
}

// IsValid reports whether e is a member of the fixed taxonomy.
func (e Expert) IsValid() bool {
	_, ok := Descriptions[e]
	return ok
}

// String returns the expert identifier.
func (e Expert) String() string {
	return string(e)
}

// Parse converts a string to an Expert, returning empty for unknown values.
func Parse(s string) Expert {
	e := Expert(s)
	if e.IsValid() {
		return e
	}
	return ""
}

// Decision records a routing outcome for a query.
type Decision struct {
	Query  string `json:"query"`
	Expert Expert `json:"expert"`
}
