// Package tools names every operation the server exposes and routes
// tool calls to the shapers and the join engine. The tool set is a
// closed enum; dispatch is an exhaustive switch so an unhandled name
// cannot slip through silently.
package tools

import (
	"context"
	"fmt"
	"strconv"

	"github.com/blencorp/capture-mcp-server/internal/core/engine"
	"github.com/blencorp/capture-mcp-server/internal/core/sanitize"
	"github.com/blencorp/capture-mcp-server/internal/core/shaper"
	"github.com/blencorp/capture-mcp-server/internal/metrics"
)

// Name identifies one tool.
type Name string

const (
	SearchEntities             Name = "search_entities"
	SearchOpportunities        Name = "search_opportunities"
	CheckExclusions            Name = "check_exclusions"
	GetEntityAwards            Name = "get_entity_awards"
	AnalyzeOpportunityMarket   Name = "analyze_opportunity_market"
	GetAgencyAwards            Name = "get_agency_awards"
	GetSpendingByCategory      Name = "get_spending_by_category"
	GetBudgetOverview          Name = "get_budget_overview"
	SearchRecipients           Name = "search_recipients"
	SearchContracts            Name = "search_contracts"
	SearchGrants               Name = "search_grants"
	SearchVendors              Name = "search_vendors"
	SearchUnifiedOpportunities Name = "search_unified_opportunities"
	GetSpendingSummary         Name = "get_spending_summary"
)

// All lists every tool in catalog order.
var All = []Name{
	SearchEntities,
	SearchOpportunities,
	CheckExclusions,
	GetEntityAwards,
	AnalyzeOpportunityMarket,
	GetAgencyAwards,
	GetSpendingByCategory,
	GetBudgetOverview,
	SearchRecipients,
	SearchContracts,
	SearchGrants,
	SearchVendors,
	SearchUnifiedOpportunities,
	GetSpendingSummary,
}

// Valid reports whether the name is a known tool.
func (n Name) Valid() bool {
	for _, known := range All {
		if n == known {
			return true
		}
	}
	return false
}

// Registry wires tool names to the clients that serve them.
type Registry struct {
	SAM        *shaper.SAMClient
	Spending   *shaper.SpendingClient
	Aggregator *shaper.AggregatorClient
	Correlator *engine.Correlator
}

// Dispatch sanitizes the raw arguments and invokes the named tool.
// The returned error covers validation and configuration failures
// only; upstream failures come back as the result value.
func (r *Registry) Dispatch(ctx context.Context, name Name, rawArgs map[string]any) (any, error) {
	args := sanitize.CleanArgs(rawArgs)

	result, err := r.dispatch(ctx, name, args)
	metrics.RecordToolCall(string(name), err == nil)
	return result, err
}

func (r *Registry) dispatch(ctx context.Context, name Name, args map[string]any) (any, error) {
	switch name {
	case SearchEntities:
		return r.SAM.SearchEntities(ctx, shaper.EntityQuery{
			Name:  stringArg(args, "name"),
			UEI:   stringArg(args, "uei"),
			CAGE:  stringArg(args, "cage_code"),
			State: stringArg(args, "state"),
			NAICS: stringArg(args, "naics_code"),
			Limit: intArg(args, "limit"),
		})
	case SearchOpportunities:
		return r.SAM.SearchOpportunities(ctx, shaper.OpportunityQuery{
			PostedFrom: stringArg(args, "posted_from"),
			PostedTo:   stringArg(args, "posted_to"),
			Title:      stringArg(args, "title"),
			NAICS:      stringArg(args, "naics_code"),
			State:      stringArg(args, "state"),
			SetAside:   stringArg(args, "set_aside"),
			Limit:      intArg(args, "limit"),
		})
	case CheckExclusions:
		return r.SAM.CheckExclusions(ctx, shaper.ExclusionQuery{
			Name: stringArg(args, "name"),
			UEI:  stringArg(args, "uei"),
		})
	case GetEntityAwards:
		return r.Correlator.EntityAwards(ctx, stringArg(args, "uei"), intArg(args, "fiscal_year"))
	case AnalyzeOpportunityMarket:
		identifier := stringArg(args, "opportunity_id")
		if identifier == "" {
			identifier = stringArg(args, "solicitation_number")
		}
		return r.Correlator.OpportunityMarket(ctx, identifier, intArg(args, "fiscal_year"))
	case GetAgencyAwards:
		return r.Spending.AgencyAwards(ctx, stringArg(args, "agency_code"), intArg(args, "fiscal_year"), intArg(args, "limit"))
	case GetSpendingByCategory:
		return r.Spending.SpendingByCategory(ctx, stringArg(args, "category"), intArg(args, "fiscal_year"), intArg(args, "limit"))
	case GetBudgetOverview:
		return r.Spending.BudgetOverview(ctx, stringArg(args, "agency_code"), intArg(args, "fiscal_year"))
	case SearchRecipients:
		return r.Spending.SearchRecipients(ctx, stringArg(args, "search_text"), intArg(args, "limit"))
	case SearchContracts:
		return r.Aggregator.SearchContracts(ctx, shaper.ContractQuery{
			AgencyKey:  stringArg(args, "agency_key"),
			NAICS:      stringArg(args, "naics_code"),
			VendorName: stringArg(args, "vendor_name"),
			MinAmount:  floatArg(args, "min_amount"),
			MaxAmount:  floatArg(args, "max_amount"),
			Limit:      intArg(args, "limit"),
		})
	case SearchGrants:
		return r.Aggregator.SearchGrants(ctx, shaper.GrantQuery{
			AgencyKey: stringArg(args, "agency_key"),
			Keyword:   stringArg(args, "keyword"),
			Limit:     intArg(args, "limit"),
		})
	case SearchVendors:
		return r.Aggregator.SearchVendors(ctx, stringArg(args, "keyword"), intArg(args, "limit"))
	case SearchUnifiedOpportunities:
		return r.Aggregator.SearchOpportunities(ctx, stringArg(args, "keyword"), stringArg(args, "naics_code"), intArg(args, "limit"))
	case GetSpendingSummary:
		return r.Aggregator.SpendingSummary(ctx, shaper.SummaryQuery{
			GroupBy:   stringArg(args, "group_by"),
			AgencyKey: stringArg(args, "agency_key"),
			NAICS:     stringArg(args, "naics_code"),
			Limit:     intArg(args, "limit"),
		})
	default:
		return nil, fmt.Errorf("unknown tool %q", name)
	}
}

// stringArg reads an optional string argument; absent or non-string
// values read as empty.
func stringArg(args map[string]any, key string) string {
	if value, ok := args[key].(string); ok {
		return value
	}
	return ""
}

// intArg reads an optional integer argument. JSON numbers decode as
// float64, and LLM clients occasionally send numerics as strings, so
// both are accepted.
func intArg(args map[string]any, key string) int {
	switch value := args[key].(type) {
	case int:
		return value
	case float64:
		return int(value)
	case string:
		parsed, err := strconv.Atoi(value)
		if err != nil {
			return 0
		}
		return parsed
	default:
		return 0
	}
}

func floatArg(args map[string]any, key string) float64 {
	switch value := args[key].(type) {
	case int:
		return float64(value)
	case float64:
		return value
	case string:
		parsed, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return 0
		}
		return parsed
	default:
		return 0
	}
}
