// Package engine answers questions that span two API families. No
// upstream offers a combined endpoint, so each operation runs its
// stages sequentially: the second stage's query is built from data
// extracted out of the first stage's result. Joins are all-or-nothing;
// a failure in either stage aborts the whole operation.
package engine

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/blencorp/capture-mcp-server/internal/core"
	"github.com/blencorp/capture-mcp-server/internal/core/shaper"
)

// Scale thresholds classify an opportunity's likely contract size by
// the average historical award under its NAICS code.
const (
	scaleSmallCeiling  = 100_000
	scaleMediumCeiling = 1_000_000
)

// Correlator joins SAM.gov registry data with USASpending award data.
type Correlator struct {
	SAM      *shaper.SAMClient
	Spending *shaper.SpendingClient
	Clock    func() time.Time
}

// JoinFailure is the single top-level error shape for an aborted join.
// PartialData is always null: a half-completed join is never returned
// as success.
type JoinFailure struct {
	Error       string `json:"error"`
	Suggestion  string `json:"suggestion,omitempty"`
	PartialData any    `json:"partial_data"`
}

// EntityAwardsResult combines a SAM.gov registration with its
// USASpending award history. The two APIs share no primary key, so the
// join runs on the entity's legal business name as free text.
type EntityAwardsResult struct {
	Entity      *shaper.Entity        `json:"entity"`
	FiscalYear  int                   `json:"fiscal_year"`
	TotalAwards int                   `json:"total_awards"`
	TotalAmount float64               `json:"total_amount"`
	Awards      []shaper.AwardSummary `json:"awards"`
	Sources     map[string]string     `json:"sources"`
	JoinKey     string                `json:"join_key"`
	JoinNote    string                `json:"join_note"`
}

// EntityAwards looks up an entity registration by UEI, then fetches
// its awards for the given federal fiscal year.
func (c *Correlator) EntityAwards(ctx context.Context, uei string, fiscalYear int) (any, error) {
	if err := c.ready(); err != nil {
		return nil, err
	}
	if uei == "" {
		return nil, errors.New("uei is required")
	}
	fiscalYear = c.defaultFiscalYear(fiscalYear)

	entity, toolErr, err := c.SAM.LookupEntity(ctx, uei)
	if err != nil {
		return nil, err
	}
	if toolErr != nil {
		// Fail closed: no spending query without a confirmed entity.
		return &JoinFailure{Error: toolErr.Error, Suggestion: toolErr.Suggestion}, nil
	}

	awards, toolErr, err := c.Spending.AwardsByRecipient(ctx, entity.LegalName, fiscalYear, 0)
	if err != nil {
		return nil, err
	}
	if toolErr != nil {
		return &JoinFailure{Error: toolErr.Error}, nil
	}

	result := &EntityAwardsResult{
		Entity:      entity,
		FiscalYear:  fiscalYear,
		TotalAwards: len(awards),
		TotalAmount: totalAmount(awards),
		Awards:      awards,
		Sources: map[string]string{
			"entity": "SAM.gov",
			"awards": "USASpending.gov",
		},
		JoinKey:  entity.LegalName,
		JoinNote: "awards matched by legal business name free-text search; name matches are not guaranteed unique",
	}
	return result, nil
}

// OpportunityMarketResult pairs one contract opportunity with
// historical spending under its NAICS code.
type OpportunityMarketResult struct {
	Opportunity    *shaper.Opportunity   `json:"opportunity"`
	NAICSCode      string                `json:"naics_code"`
	FiscalYear     int                   `json:"fiscal_year"`
	SampleCount    int                   `json:"sample_count"`
	TotalSpending  float64               `json:"total_spending"`
	AverageAward   float64               `json:"average_award"`
	EstimatedScale string                `json:"estimated_scale"`
	TopAwards      []shaper.AwardSummary `json:"top_awards"`
	Sources        map[string]string     `json:"sources"`
}

// OpportunityMarket locates an opportunity by notice ID or
// solicitation number, then sizes its market from the largest recent
// awards under the same NAICS code.
func (c *Correlator) OpportunityMarket(ctx context.Context, identifier string, fiscalYear int) (any, error) {
	if err := c.ready(); err != nil {
		return nil, err
	}
	if identifier == "" {
		return nil, errors.New("opportunity_id or solicitation_number is required")
	}
	fiscalYear = c.defaultFiscalYear(fiscalYear)

	opportunity, toolErr, err := c.SAM.FindOpportunity(ctx, identifier)
	if err != nil {
		return nil, err
	}
	if toolErr != nil {
		return &JoinFailure{Error: toolErr.Error, Suggestion: toolErr.Suggestion}, nil
	}

	if opportunity.NAICSCode == "" {
		return &JoinFailure{
			Error:      fmt.Sprintf("opportunity %s carries no NAICS code; market context needs one", opportunity.NoticeID),
			Suggestion: "look up recent spending directly with get_spending_by_category",
		}, nil
	}

	awards, toolErr, err := c.Spending.AwardsByNAICS(ctx, opportunity.NAICSCode, fiscalYear)
	if err != nil {
		return nil, err
	}
	if toolErr != nil {
		return &JoinFailure{Error: toolErr.Error}, nil
	}

	total := totalAmount(awards)
	average := 0.0
	if len(awards) > 0 {
		average = total / float64(len(awards))
	}

	result := &OpportunityMarketResult{
		Opportunity:    opportunity,
		NAICSCode:      opportunity.NAICSCode,
		FiscalYear:     fiscalYear,
		SampleCount:    len(awards),
		TotalSpending:  total,
		AverageAward:   average,
		EstimatedScale: classifyScale(average, len(awards)),
		TopAwards:      awards,
		Sources: map[string]string{
			"opportunity": "SAM.gov",
			"awards":      "USASpending.gov",
		},
	}
	return result, nil
}

// classifyScale buckets the average historical award into an ordinal
// size class. An empty sample is reported as unknown rather than small.
func classifyScale(average float64, sampleCount int) string {
	switch {
	case sampleCount == 0:
		return "unknown"
	case average < scaleSmallCeiling:
		return "small"
	case average < scaleMediumCeiling:
		return "medium"
	default:
		return "large"
	}
}

func (c *Correlator) ready() error {
	if c == nil || c.SAM == nil || c.Spending == nil {
		return errors.New("correlator is not configured")
	}
	return nil
}

func (c *Correlator) defaultFiscalYear(year int) int {
	if year > 0 {
		return year
	}
	now := time.Now().UTC()
	if c != nil && c.Clock != nil {
		now = c.Clock()
	}
	return core.FiscalYear(now)
}

func totalAmount(awards []shaper.AwardSummary) float64 {
	var total float64
	for _, award := range awards {
		total += award.Amount
	}
	return total
}
