package shaper

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/blencorp/capture-mcp-server/internal/core"
)

func newSpendingClient(caller *stubCaller) *SpendingClient {
	return &SpendingClient{
		Gateway: caller,
		BaseURL: "https://api.usaspending.gov",
		Clock: func() time.Time {
			return time.Date(2024, 11, 20, 9, 0, 0, 0, time.UTC)
		},
	}
}

const awardPayload = `{
	"results": [
		{"Award ID": "75N98024C00001", "Recipient Name": "Acme Federal Services LLC", "Award Amount": 5000000, "Start Date": "2024-01-15", "End Date": "2026-01-14", "Awarding Agency": "Department of Health and Human Services", "Award Type": "DEFINITIVE CONTRACT"},
		{"Award ID": "75N98024C00002", "Recipient Name": "Beta Systems Inc", "Award Amount": 3250000, "Awarding Agency": "Department of Health and Human Services"},
		{"Award ID": "75N98024C00003", "Recipient Name": "Gamma Analytics", "Award Amount": 1100000},
		{"Award ID": "75N98024C00004", "Recipient Name": "Delta Logistics", "Award Amount": 640000},
		{"Award ID": "75N98024C00005", "Recipient Name": "Epsilon Research", "Award Amount": 98000}
	]
}`

func TestAgencyAwardsSummarizesPage(t *testing.T) {
	caller := &stubCaller{}
	queueSuccess(caller, awardPayload)
	client := newSpendingClient(caller)

	shaped, err := client.AgencyAwards(context.Background(), "075", 2024, 5)
	require.NoError(t, err)

	result, ok := shaped.(*AgencyAwardsResult)
	require.True(t, ok)
	require.Equal(t, "075", result.AgencyCode)
	require.Equal(t, 2024, result.FiscalYear)
	require.Equal(t, 5, result.TotalAwards)
	require.InDelta(t, 10088000, result.TotalAmount, 0.01)
	require.Len(t, result.AwardsSummary, 5)
	require.Equal(t, "75N98024C00001", result.AwardsSummary[0].ID)
}

func TestAgencyAwardsSendsFiscalWindowAndClampsLimit(t *testing.T) {
	caller := &stubCaller{}
	queueSuccess(caller, `{"results": []}`)
	client := newSpendingClient(caller)

	_, err := client.AgencyAwards(context.Background(), "075", 2024, 500)
	require.NoError(t, err)
	require.Equal(t, 1, caller.calls())

	body := decodeBody(t, caller.bodies[0])
	require.Equal(t, float64(100), body["limit"])
	require.Equal(t, "Award Amount", body["sort"])
	require.Equal(t, "desc", body["order"])

	filters := body["filters"].(map[string]any)
	window := filters["time_period"].([]any)[0].(map[string]any)
	require.Equal(t, "2023-10-01", window["start_date"])
	require.Equal(t, "2024-09-30", window["end_date"])
}

func TestAgencyAwardsRequiresAgencyCode(t *testing.T) {
	caller := &stubCaller{}
	client := newSpendingClient(caller)

	_, err := client.AgencyAwards(context.Background(), "", 2024, 10)
	require.ErrorContains(t, err, "agency_code is required")
	require.Zero(t, caller.calls())
}

func TestAwardsByRecipientDefaultsFiscalYear(t *testing.T) {
	caller := &stubCaller{}
	queueSuccess(caller, awardPayload)
	client := newSpendingClient(caller)

	awards, toolErr, err := client.AwardsByRecipient(context.Background(), "Acme Federal Services LLC", 0, 0)
	require.NoError(t, err)
	require.Nil(t, toolErr)
	require.Len(t, awards, 5)

	// November 2024 falls in federal fiscal year 2025.
	body := decodeBody(t, caller.bodies[0])
	filters := body["filters"].(map[string]any)
	window := filters["time_period"].([]any)[0].(map[string]any)
	require.Equal(t, "2024-10-01", window["start_date"])
	require.Equal(t, "2025-09-30", window["end_date"])
	require.Equal(t, []any{"Acme Federal Services LLC"}, filters["recipient_search_text"])
}

func TestAwardsByNAICSUsesMarketSampleSize(t *testing.T) {
	caller := &stubCaller{}
	queueSuccess(caller, awardPayload)
	client := newSpendingClient(caller)

	awards, toolErr, err := client.AwardsByNAICS(context.Background(), "541512", 2024)
	require.NoError(t, err)
	require.Nil(t, toolErr)
	require.Len(t, awards, 5)

	body := decodeBody(t, caller.bodies[0])
	require.Equal(t, float64(naicsMarketSampleSize), body["limit"])
	filters := body["filters"].(map[string]any)
	require.Equal(t, []any{"541512"}, filters["naics_codes"])
}

func TestSpendingByCategoryRejectsUnknownDimension(t *testing.T) {
	caller := &stubCaller{}
	client := newSpendingClient(caller)

	_, err := client.SpendingByCategory(context.Background(), "zipcode", 2024, 10)
	require.ErrorContains(t, err, `unsupported category "zipcode"`)
	require.Zero(t, caller.calls())
}

func TestSpendingByCategoryShapesBuckets(t *testing.T) {
	caller := &stubCaller{}
	queueSuccess(caller, `{"results": [
		{"name": "Department of Defense", "code": "097", "amount": 400000000},
		{"name": "Department of Health and Human Services", "code": "075", "amount": 250000000}
	]}`)
	client := newSpendingClient(caller)

	shaped, err := client.SpendingByCategory(context.Background(), "awarding_agency", 2024, 10)
	require.NoError(t, err)

	result, ok := shaped.(*CategorySpendingResult)
	require.True(t, ok)
	require.Equal(t, "awarding_agency", result.Category)
	require.Len(t, result.Results, 2)
	require.InDelta(t, 650000000, result.TotalAmount, 0.01)
	require.Contains(t, caller.requests[0].URL.Path, "/spending_by_category/awarding_agency/")
}

func TestBudgetOverviewMatchesRequestedYear(t *testing.T) {
	caller := &stubCaller{}
	queueSuccess(caller, `{"agency_data_by_year": [
		{"fiscal_year": 2024, "agency_budgetary_resources": 2000000000, "agency_total_obligated": 1500000000},
		{"fiscal_year": 2023, "agency_budgetary_resources": 1800000000, "agency_total_obligated": 1700000000}
	]}`)
	client := newSpendingClient(caller)

	shaped, err := client.BudgetOverview(context.Background(), "075", 2024)
	require.NoError(t, err)

	result, ok := shaped.(*BudgetOverviewResult)
	require.True(t, ok)
	require.Equal(t, 2024, result.FiscalYear)
	require.InDelta(t, 0.75, result.ObligationRate, 0.0001)
	require.Equal(t, 2, result.ReportedFiscalYears)
}

func TestBudgetOverviewYearNotReported(t *testing.T) {
	caller := &stubCaller{}
	queueSuccess(caller, `{"agency_data_by_year": [{"fiscal_year": 2023, "agency_budgetary_resources": 100, "agency_total_obligated": 50}]}`)
	client := newSpendingClient(caller)

	shaped, err := client.BudgetOverview(context.Background(), "075", 2026)
	require.NoError(t, err)

	toolErr, ok := shaped.(*core.ToolError)
	require.True(t, ok)
	require.Contains(t, toolErr.Error, "fiscal year 2026")
	require.Contains(t, toolErr.Suggestion, "earlier year")
}

func TestSearchRecipientsShapesPayload(t *testing.T) {
	caller := &stubCaller{}
	queueSuccess(caller, `{"results": [
		{"name": "Acme Federal Services LLC", "uei": "ABC123DEF456", "recipient_level": "P", "amount": 12000000}
	]}`)
	client := newSpendingClient(caller)

	shaped, err := client.SearchRecipients(context.Background(), "Acme", 10)
	require.NoError(t, err)

	result, ok := shaped.(*RecipientSearchResult)
	require.True(t, ok)
	require.Equal(t, "Acme", result.SearchText)
	require.Len(t, result.Recipients, 1)
	require.Equal(t, "ABC123DEF456", result.Recipients[0].UEI)
}

func TestSpendingNetworkFailureBecomesToolError(t *testing.T) {
	caller := &stubCaller{}
	queueFailure(caller, "network error calling spending API: connection refused")
	client := newSpendingClient(caller)

	shaped, err := client.SearchRecipients(context.Background(), "Acme", 10)
	require.NoError(t, err)

	toolErr, ok := shaped.(*core.ToolError)
	require.True(t, ok)
	require.Contains(t, toolErr.Error, "connection refused")
}
