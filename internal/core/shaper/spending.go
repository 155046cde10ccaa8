package shaper

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/blencorp/capture-mcp-server/internal/core"
)

const (
	// spendingLimitMax is the page-size ceiling for USASpending queries.
	spendingLimitMax = 100
	// naicsMarketSampleSize caps the award sample used for market context.
	naicsMarketSampleSize = 20
)

// contractTypeCodes restricts spending_by_award queries to contract
// awards (the A-D IDV-less award types).
var contractTypeCodes = []string{"A", "B", "C", "D"}

// spendingCategories enumerates the supported spending_by_category
// dimensions and their upstream path segments.
var spendingCategories = map[string]string{
	"awarding_agency": "awarding_agency",
	"recipient":       "recipient",
	"naics":           "naics",
	"psc":             "psc",
}

// SpendingClient shapes the USASpending.gov award APIs. No API key is
// required for this family.
type SpendingClient struct {
	Gateway Caller
	BaseURL string
	Clock   func() time.Time
}

// AwardSummary is the shaped award record.
type AwardSummary struct {
	ID        string  `json:"id"`
	Recipient string  `json:"recipient"`
	Amount    float64 `json:"amount"`
	StartDate string  `json:"start_date,omitempty"`
	EndDate   string  `json:"end_date,omitempty"`
	Agency    string  `json:"awarding_agency,omitempty"`
	Type      string  `json:"award_type,omitempty"`
}

// AgencyAwardsResult is the shaped agency-award payload. TotalAmount
// is computed client-side by summing the returned page; the upstream
// endpoint supplies no ready aggregate.
type AgencyAwardsResult struct {
	AgencyCode    string         `json:"agency_code"`
	FiscalYear    int            `json:"fiscal_year"`
	TotalAwards   int            `json:"total_awards"`
	TotalAmount   float64        `json:"total_amount"`
	AwardsSummary []AwardSummary `json:"awards_summary"`
}

type spendingAwardPayload struct {
	Results []struct {
		AwardID        string  `json:"Award ID"`
		RecipientName  string  `json:"Recipient Name"`
		AwardAmount    float64 `json:"Award Amount"`
		StartDate      string  `json:"Start Date"`
		EndDate        string  `json:"End Date"`
		AwardingAgency string  `json:"Awarding Agency"`
		AwardType      string  `json:"Award Type"`
	} `json:"results"`
}

type awardFilters struct {
	TimePeriod []map[string]string `json:"time_period"`
	Agencies   []map[string]string `json:"agencies,omitempty"`
	Recipients []string            `json:"recipient_search_text,omitempty"`
	NAICSCodes []string            `json:"naics_codes,omitempty"`
	TypeCodes  []string            `json:"award_type_codes"`
}

// AgencyAwards summarizes contract awards issued by one toptier agency
// in a fiscal year.
func (c *SpendingClient) AgencyAwards(ctx context.Context, agencyCode string, fiscalYear, limit int) (any, error) {
	if err := c.ready(); err != nil {
		return nil, err
	}
	if agencyCode == "" {
		return nil, errors.New("agency_code is required (toptier agency code, e.g. 075)")
	}
	fiscalYear = c.defaultFiscalYear(fiscalYear)

	filters := awardFilters{
		TimePeriod: fiscalWindow(fiscalYear),
		Agencies: []map[string]string{
			{"type": "awarding", "tier": "toptier", "toptier_code": agencyCode},
		},
		TypeCodes: contractTypeCodes,
	}

	awards, toolErr, err := c.awardPage(ctx, filters, core.ClampLimit(limit, 10, spendingLimitMax))
	if err != nil {
		return nil, err
	}
	if toolErr != nil {
		return toolErr, nil
	}

	result := &AgencyAwardsResult{
		AgencyCode:    agencyCode,
		FiscalYear:    fiscalYear,
		TotalAwards:   len(awards),
		TotalAmount:   sumAwards(awards),
		AwardsSummary: awards,
	}
	return result, nil
}

// AwardsByRecipient fetches awards whose recipient matches a free-text
// name inside a fiscal-year window. Name matching is the upstream's
// free-text search, not an exact key.
func (c *SpendingClient) AwardsByRecipient(ctx context.Context, recipientName string, fiscalYear, limit int) ([]AwardSummary, *core.ToolError, error) {
	if err := c.ready(); err != nil {
		return nil, nil, err
	}
	if recipientName == "" {
		return nil, nil, errors.New("recipient name is required")
	}

	filters := awardFilters{
		TimePeriod: fiscalWindow(c.defaultFiscalYear(fiscalYear)),
		Recipients: []string{recipientName},
		TypeCodes:  contractTypeCodes,
	}
	return c.awardPage(ctx, filters, core.ClampLimit(limit, 25, spendingLimitMax))
}

// AwardsByNAICS fetches the largest awards under one NAICS code inside
// a fiscal-year window, capped to the market sample size.
func (c *SpendingClient) AwardsByNAICS(ctx context.Context, naicsCode string, fiscalYear int) ([]AwardSummary, *core.ToolError, error) {
	if err := c.ready(); err != nil {
		return nil, nil, err
	}
	if naicsCode == "" {
		return nil, nil, errors.New("naics code is required")
	}

	filters := awardFilters{
		TimePeriod: fiscalWindow(c.defaultFiscalYear(fiscalYear)),
		NAICSCodes: []string{naicsCode},
		TypeCodes:  contractTypeCodes,
	}
	return c.awardPage(ctx, filters, naicsMarketSampleSize)
}

func (c *SpendingClient) awardPage(ctx context.Context, filters awardFilters, limit int) ([]AwardSummary, *core.ToolError, error) {
	body := map[string]any{
		"filters": filters,
		"fields": []string{
			"Award ID", "Recipient Name", "Award Amount",
			"Start Date", "End Date", "Awarding Agency", "Award Type",
		},
		"limit": limit,
		"page":  1,
		"sort":  "Award Amount",
		"order": "desc",
	}

	req, err := postRequest(c.BaseURL, "/api/v2/search/spending_by_award/", body)
	if err != nil {
		return nil, nil, err
	}

	resp := c.Gateway.Call(ctx, core.FamilySpending, req)
	if !resp.Success {
		return nil, upstreamError(resp), nil
	}

	var payload spendingAwardPayload
	if err := json.Unmarshal(resp.Data, &payload); err != nil {
		return nil, decodeError(core.FamilySpending, err), nil
	}

	awards := make([]AwardSummary, 0, len(payload.Results))
	for _, record := range payload.Results {
		awards = append(awards, AwardSummary{
			ID:        record.AwardID,
			Recipient: record.RecipientName,
			Amount:    record.AwardAmount,
			StartDate: record.StartDate,
			EndDate:   record.EndDate,
			Agency:    record.AwardingAgency,
			Type:      record.AwardType,
		})
	}
	return awards, nil, nil
}

// CategorySpendingResult is the shaped spending-by-category payload.
type CategorySpendingResult struct {
	Category    string           `json:"category"`
	FiscalYear  int              `json:"fiscal_year"`
	TotalAmount float64          `json:"total_amount"`
	Results     []CategoryBucket `json:"results"`
}

// CategoryBucket is one named spending bucket.
type CategoryBucket struct {
	Name   string  `json:"name"`
	Code   string  `json:"code,omitempty"`
	Amount float64 `json:"amount"`
}

type spendingCategoryPayload struct {
	Results []struct {
		Name   string  `json:"name"`
		Code   string  `json:"code"`
		Amount float64 `json:"amount"`
	} `json:"results"`
}

// SpendingByCategory aggregates fiscal-year spending along one of the
// supported dimensions.
func (c *SpendingClient) SpendingByCategory(ctx context.Context, category string, fiscalYear, limit int) (any, error) {
	if err := c.ready(); err != nil {
		return nil, err
	}
	segment, ok := spendingCategories[category]
	if !ok {
		return nil, fmt.Errorf("unsupported category %q; use one of awarding_agency, recipient, naics, psc", category)
	}
	fiscalYear = c.defaultFiscalYear(fiscalYear)

	body := map[string]any{
		"filters": map[string]any{
			"time_period": fiscalWindow(fiscalYear),
		},
		"limit": core.ClampLimit(limit, 10, spendingLimitMax),
		"page":  1,
	}

	req, err := postRequest(c.BaseURL, "/api/v2/search/spending_by_category/"+segment+"/", body)
	if err != nil {
		return nil, err
	}

	resp := c.Gateway.Call(ctx, core.FamilySpending, req)
	if !resp.Success {
		return upstreamError(resp), nil
	}

	var payload spendingCategoryPayload
	if err := json.Unmarshal(resp.Data, &payload); err != nil {
		return decodeError(core.FamilySpending, err), nil
	}

	result := &CategorySpendingResult{
		Category:   category,
		FiscalYear: fiscalYear,
		Results:    make([]CategoryBucket, 0, len(payload.Results)),
	}
	for _, record := range payload.Results {
		result.Results = append(result.Results, CategoryBucket{
			Name:   record.Name,
			Code:   record.Code,
			Amount: record.Amount,
		})
		result.TotalAmount += record.Amount
	}
	return result, nil
}

// BudgetOverviewResult is the shaped budgetary-resources payload.
type BudgetOverviewResult struct {
	AgencyCode          string  `json:"agency_code"`
	FiscalYear          int     `json:"fiscal_year"`
	BudgetaryResources  float64 `json:"budgetary_resources"`
	TotalObligated      float64 `json:"total_obligated"`
	ObligationRate      float64 `json:"obligation_rate"`
	ReportedFiscalYears int     `json:"reported_fiscal_years"`
}

type spendingBudgetPayload struct {
	AgencyDataByYear []struct {
		FiscalYear         int     `json:"fiscal_year"`
		BudgetaryResources float64 `json:"agency_budgetary_resources"`
		TotalObligated     float64 `json:"agency_total_obligated"`
	} `json:"agency_data_by_year"`
}

// BudgetOverview reports one toptier agency's budgetary resources and
// obligations for a fiscal year.
func (c *SpendingClient) BudgetOverview(ctx context.Context, agencyCode string, fiscalYear int) (any, error) {
	if err := c.ready(); err != nil {
		return nil, err
	}
	if agencyCode == "" {
		return nil, errors.New("agency_code is required (toptier agency code, e.g. 075)")
	}
	fiscalYear = c.defaultFiscalYear(fiscalYear)

	req, err := getRequest(c.BaseURL, "/api/v2/agency/"+agencyCode+"/budgetary_resources/", nil)
	if err != nil {
		return nil, err
	}

	resp := c.Gateway.Call(ctx, core.FamilySpending, req)
	if !resp.Success {
		return upstreamError(resp), nil
	}

	var payload spendingBudgetPayload
	if err := json.Unmarshal(resp.Data, &payload); err != nil {
		return decodeError(core.FamilySpending, err), nil
	}

	for _, year := range payload.AgencyDataByYear {
		if year.FiscalYear != fiscalYear {
			continue
		}
		result := &BudgetOverviewResult{
			AgencyCode:          agencyCode,
			FiscalYear:          fiscalYear,
			BudgetaryResources:  year.BudgetaryResources,
			TotalObligated:      year.TotalObligated,
			ReportedFiscalYears: len(payload.AgencyDataByYear),
		}
		if year.BudgetaryResources > 0 {
			result.ObligationRate = year.TotalObligated / year.BudgetaryResources
		}
		return result, nil
	}

	return &core.ToolError{
		Error:      fmt.Sprintf("no budgetary data for agency %s in fiscal year %d", agencyCode, fiscalYear),
		Suggestion: "budget data lags the current fiscal year; try an earlier year",
	}, nil
}

// RecipientSearchResult is the shaped recipient-search payload.
type RecipientSearchResult struct {
	SearchText string      `json:"search_text"`
	Recipients []Recipient `json:"recipients"`
}

// Recipient is the shaped award-recipient record.
type Recipient struct {
	Name   string  `json:"name"`
	UEI    string  `json:"uei,omitempty"`
	Level  string  `json:"recipient_level,omitempty"`
	Amount float64 `json:"total_amount"`
}

type spendingRecipientPayload struct {
	Results []struct {
		Name   string  `json:"name"`
		UEI    string  `json:"uei"`
		Level  string  `json:"recipient_level"`
		Amount float64 `json:"amount"`
	} `json:"results"`
}

// SearchRecipients looks up award recipients by free-text keyword.
func (c *SpendingClient) SearchRecipients(ctx context.Context, searchText string, limit int) (any, error) {
	if err := c.ready(); err != nil {
		return nil, err
	}
	if searchText == "" {
		return nil, errors.New("search_text is required")
	}

	body := map[string]any{
		"keyword": searchText,
		"limit":   core.ClampLimit(limit, 10, spendingLimitMax),
		"page":    1,
		"sort":    "amount",
		"order":   "desc",
	}

	req, err := postRequest(c.BaseURL, "/api/v2/recipient/duns/", body)
	if err != nil {
		return nil, err
	}

	resp := c.Gateway.Call(ctx, core.FamilySpending, req)
	if !resp.Success {
		return upstreamError(resp), nil
	}

	var payload spendingRecipientPayload
	if err := json.Unmarshal(resp.Data, &payload); err != nil {
		return decodeError(core.FamilySpending, err), nil
	}

	result := &RecipientSearchResult{
		SearchText: searchText,
		Recipients: make([]Recipient, 0, len(payload.Results)),
	}
	for _, record := range payload.Results {
		result.Recipients = append(result.Recipients, Recipient{
			Name:   record.Name,
			UEI:    record.UEI,
			Level:  record.Level,
			Amount: record.Amount,
		})
	}
	return result, nil
}

func (c *SpendingClient) ready() error {
	if c == nil || c.Gateway == nil {
		return errors.New("spending client is not configured")
	}
	return nil
}

func (c *SpendingClient) defaultFiscalYear(year int) int {
	if year > 0 {
		return year
	}
	now := time.Now().UTC()
	if c != nil && c.Clock != nil {
		now = c.Clock()
	}
	return core.FiscalYear(now)
}

func fiscalWindow(year int) []map[string]string {
	start, end := core.FiscalYearRange(year)
	return []map[string]string{{"start_date": start, "end_date": end}}
}

func sumAwards(awards []AwardSummary) float64 {
	var total float64
	for _, award := range awards {
		total += award.Amount
	}
	return total
}
