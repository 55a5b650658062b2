package expert_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/planforge/planforge/expert"
)

func TestRouter_Route(t *testing.T) {
	router := expert.NewRouter()

	tests := []struct {
		query string
		want  expert.Expert
	}{
		{"Budget and funding requirements for the first year", expert.ExpertFinancial},
		{"Permits, licensing and regulatory compliance", expert.ExpertLegal},
		{"Social media advertising campaign strategy", expert.ExpertMarketing},
		{"Hiring and training baristas", expert.ExpertHR},
		{"Supplier sourcing and inventory management", expert.ExpertSupplyChain},
		{"Competitor landscape and market share analysis", expert.ExpertCompetitiveIntelligence},
		{"Point of sale software and website platform", expert.ExpertTechnology},
		{"Customer service and loyalty programs", expert.ExpertCustomerExperience},
		{"Press coverage and reputation management", expert.ExpertPublicRelations},
		{"Daily production scheduling and equipment maintenance", expert.ExpertOperations},
		{"Sales pipeline and CRM setup", expert.ExpertSales},
	}

	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			d := router.Route(tt.query)
			assert.Equal(t, tt.want, d.Expert)
			assert.Equal(t, tt.query, d.Query)
		})
	}
}

func TestRouter_Deterministic(t *testing.T) {
	router := expert.NewRouter()
	query := "Marketing budget for legal compliance training"

	first := router.Route(query)
	for range 50 {
		assert.Equal(t, first.Expert, router.Route(query).Expert)
	}
}

func TestRouter_FallbackOnNoMatch(t *testing.T) {
	router := expert.NewRouter()

	for _, query := range []string{"", "   ", "xyzzy frobnicate", "!!!"} {
		d := router.Route(query)
		assert.Equal(t, expert.Fallback, d.Expert, "query %q", query)
	}
}

func TestRouter_Totality(t *testing.T) {
	router := expert.NewRouter()

	// Whatever the input, the decision names a valid expert.
	queries := []string{
		"complete nonsense 12345",
		"marketing legal finance hr all at once",
		"ünïcödé qüery",
	}
	for _, q := range queries {
		d := router.Route(q)
		assert.True(t, d.Expert.IsValid(), "query %q routed to %q", q, d.Expert)
	}
}

func TestRouter_MultiWordTerms(t *testing.T) {
	router := expert.NewRouter()

	// Multi-word vocabulary matches across punctuation.
	d := router.Route("supply-chain: vendor/warehouse setup")
	assert.Equal(t, expert.ExpertSupplyChain, d.Expert)
}

func TestExpert_Parse(t *testing.T) {
	assert.Equal(t, expert.ExpertFinancial, expert.Parse("financial"))
	assert.Equal(t, expert.Expert(""), expert.Parse("astrologer"))
}

func TestAll_CoversEveryDescribedExpert(t *testing.T) {
	assert.Len(t, expert.All, len(expert.Descriptions))
	for _, e := range expert.All {
		assert.True(t, e.IsValid())
	}
}
