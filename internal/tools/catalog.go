package tools

// Param documents one tool argument.
type Param struct {
	Name        string `json:"name"`
	Type        string `json:"type"`
	Required    bool   `json:"required"`
	Description string `json:"description,omitempty"`
}

// Descriptor documents one tool for catalog listings.
type Descriptor struct {
	Name        Name    `json:"name"`
	Description string  `json:"description"`
	Params      []Param `json:"params,omitempty"`
}

var catalog = map[Name]Descriptor{
	SearchEntities: {
		Name:        SearchEntities,
		Description: "Search SAM.gov entity registrations by name, UEI, or CAGE code",
		Params: []Param{
			{Name: "name", Type: "string", Description: "legal business name (one of name/uei/cage_code required)"},
			{Name: "uei", Type: "string", Description: "unique entity identifier"},
			{Name: "cage_code", Type: "string", Description: "CAGE code"},
			{Name: "state", Type: "string", Description: "two-letter state filter"},
			{Name: "naics_code", Type: "string", Description: "primary NAICS filter"},
			{Name: "limit", Type: "integer", Description: "page size, max 10"},
		},
	},
	SearchOpportunities: {
		Name:        SearchOpportunities,
		Description: "Search SAM.gov contract opportunities in a posted-date range",
		Params: []Param{
			{Name: "posted_from", Type: "string", Required: true, Description: "MM/DD/YYYY"},
			{Name: "posted_to", Type: "string", Required: true, Description: "MM/DD/YYYY"},
			{Name: "title", Type: "string"},
			{Name: "naics_code", Type: "string"},
			{Name: "state", Type: "string"},
			{Name: "set_aside", Type: "string"},
			{Name: "limit", Type: "integer", Description: "page size, max 100"},
		},
	},
	CheckExclusions: {
		Name:        CheckExclusions,
		Description: "Screen a party against the SAM.gov exclusion (debarment) list",
		Params: []Param{
			{Name: "name", Type: "string", Description: "party name (name or uei required)"},
			{Name: "uei", Type: "string", Description: "unique entity identifier"},
		},
	},
	GetEntityAwards: {
		Name:        GetEntityAwards,
		Description: "Join a SAM.gov registration with its USASpending award history for a fiscal year",
		Params: []Param{
			{Name: "uei", Type: "string", Required: true},
			{Name: "fiscal_year", Type: "integer", Description: "defaults to the current federal fiscal year"},
		},
	},
	AnalyzeOpportunityMarket: {
		Name:        AnalyzeOpportunityMarket,
		Description: "Size an opportunity's market from historical awards under its NAICS code",
		Params: []Param{
			{Name: "opportunity_id", Type: "string", Description: "notice ID (this or solicitation_number required)"},
			{Name: "solicitation_number", Type: "string"},
			{Name: "fiscal_year", Type: "integer"},
		},
	},
	GetAgencyAwards: {
		Name:        GetAgencyAwards,
		Description: "Summarize contract awards issued by one toptier agency in a fiscal year",
		Params: []Param{
			{Name: "agency_code", Type: "string", Required: true, Description: "toptier agency code, e.g. 075"},
			{Name: "fiscal_year", Type: "integer"},
			{Name: "limit", Type: "integer", Description: "page size, max 100"},
		},
	},
	GetSpendingByCategory: {
		Name:        GetSpendingByCategory,
		Description: "Aggregate fiscal-year federal spending along one dimension",
		Params: []Param{
			{Name: "category", Type: "string", Required: true, Description: "awarding_agency, recipient, naics, or psc"},
			{Name: "fiscal_year", Type: "integer"},
			{Name: "limit", Type: "integer", Description: "page size, max 100"},
		},
	},
	GetBudgetOverview: {
		Name:        GetBudgetOverview,
		Description: "Report a toptier agency's budgetary resources and obligation rate",
		Params: []Param{
			{Name: "agency_code", Type: "string", Required: true},
			{Name: "fiscal_year", Type: "integer"},
		},
	},
	SearchRecipients: {
		Name:        SearchRecipients,
		Description: "Search USASpending award recipients by keyword",
		Params: []Param{
			{Name: "search_text", Type: "string", Required: true},
			{Name: "limit", Type: "integer", Description: "page size, max 100"},
		},
	},
	SearchContracts: {
		Name:        SearchContracts,
		Description: "Search aggregator contract records with client-side vendor/amount filters",
		Params: []Param{
			{Name: "agency_key", Type: "string"},
			{Name: "naics_code", Type: "string"},
			{Name: "vendor_name", Type: "string", Description: "substring match, applied client-side"},
			{Name: "min_amount", Type: "number", Description: "applied client-side"},
			{Name: "max_amount", Type: "number", Description: "applied client-side"},
			{Name: "limit", Type: "integer", Description: "page size, max 50"},
		},
	},
	SearchGrants: {
		Name:        SearchGrants,
		Description: "Search aggregator grant records",
		Params: []Param{
			{Name: "agency_key", Type: "string"},
			{Name: "keyword", Type: "string"},
			{Name: "limit", Type: "integer", Description: "page size, max 50"},
		},
	},
	SearchVendors: {
		Name:        SearchVendors,
		Description: "Search aggregator vendor profiles by keyword",
		Params: []Param{
			{Name: "keyword", Type: "string", Required: true},
			{Name: "limit", Type: "integer", Description: "page size, max 50"},
		},
	},
	SearchUnifiedOpportunities: {
		Name:        SearchUnifiedOpportunities,
		Description: "Search the aggregator's cross-source opportunity feed",
		Params: []Param{
			{Name: "keyword", Type: "string", Description: "this or naics_code required"},
			{Name: "naics_code", Type: "string"},
			{Name: "limit", Type: "integer", Description: "page size, max 50"},
		},
	},
	GetSpendingSummary: {
		Name:        GetSpendingSummary,
		Description: "Group sampled aggregator contract spending by agency, vendor, NAICS, PSC, month, or overall",
		Params: []Param{
			{Name: "group_by", Type: "string", Required: true, Description: "agency, vendor, naics, psc, month, or overall"},
			{Name: "agency_key", Type: "string"},
			{Name: "naics_code", Type: "string"},
			{Name: "limit", Type: "integer", Description: "sample size, max 50"},
		},
	},
}

// Catalog returns descriptors for every tool in stable order.
func Catalog() []Descriptor {
	out := make([]Descriptor, 0, len(All))
	for _, name := range All {
		out = append(out, catalog[name])
	}
	return out
}

// Describe returns the descriptor for one tool.
func Describe(name Name) (Descriptor, bool) {
	desc, ok := catalog[name]
	return desc, ok
}
