package engine

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/blencorp/capture-mcp-server/internal/core"
	"github.com/blencorp/capture-mcp-server/internal/core/shaper"
)

// stubCaller replays canned responses in order and counts calls per
// family so tests can prove a failed first stage never reaches the
// second.
type stubCaller struct {
	responses []*core.APIResponse
	families  []core.Family
}

func (s *stubCaller) Call(_ context.Context, family core.Family, _ *http.Request) *core.APIResponse {
	s.families = append(s.families, family)
	if len(s.responses) == 0 {
		return core.APIError("stub caller has no response queued")
	}
	resp := s.responses[0]
	s.responses = s.responses[1:]
	return resp
}

func (s *stubCaller) familyCalls(family core.Family) int {
	count := 0
	for _, called := range s.families {
		if called == family {
			count++
		}
	}
	return count
}

func newCorrelator(caller *stubCaller) *Correlator {
	clock := func() time.Time {
		return time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)
	}
	return &Correlator{
		SAM: &shaper.SAMClient{
			Gateway: caller,
			BaseURL: "https://api.sam.gov",
			APIKey:  "test-key",
			Clock:   clock,
		},
		Spending: &shaper.SpendingClient{
			Gateway: caller,
			BaseURL: "https://api.usaspending.gov",
			Clock:   clock,
		},
		Clock: clock,
	}
}

const entityPayload = `{
	"totalRecords": 1,
	"entityData": [{
		"entityRegistration": {
			"ueiSAM": "ABC123DEF456",
			"legalBusinessName": "Acme Federal Services LLC",
			"registrationStatus": "Active",
			"physicalAddress": {"city": "Arlington", "stateOrProvinceCode": "VA"}
		}
	}]
}`

const awardsPayload = `{
	"results": [
		{"Award ID": "A-1", "Recipient Name": "Acme Federal Services LLC", "Award Amount": 4000000},
		{"Award ID": "A-2", "Recipient Name": "Acme Federal Services LLC", "Award Amount": 1000000}
	]
}`

func TestEntityAwardsJoinsOnLegalName(t *testing.T) {
	caller := &stubCaller{responses: []*core.APIResponse{
		core.APISuccess([]byte(entityPayload)),
		core.APISuccess([]byte(awardsPayload)),
	}}
	correlator := newCorrelator(caller)

	shaped, err := correlator.EntityAwards(context.Background(), "ABC123DEF456", 2024)
	require.NoError(t, err)

	result, ok := shaped.(*EntityAwardsResult)
	require.True(t, ok)
	require.Equal(t, "Acme Federal Services LLC", result.Entity.LegalName)
	require.Equal(t, 2024, result.FiscalYear)
	require.Equal(t, 2, result.TotalAwards)
	require.InDelta(t, 5000000, result.TotalAmount, 0.01)
	require.Equal(t, "Acme Federal Services LLC", result.JoinKey)
	require.Contains(t, result.JoinNote, "not guaranteed unique")
	require.Equal(t, "SAM.gov", result.Sources["entity"])
	require.Equal(t, "USASpending.gov", result.Sources["awards"])

	require.Equal(t, 1, caller.familyCalls(core.FamilySAM))
	require.Equal(t, 1, caller.familyCalls(core.FamilySpending))
}

func TestEntityAwardsFailsClosedOnMissingEntity(t *testing.T) {
	caller := &stubCaller{responses: []*core.APIResponse{
		core.APISuccess([]byte(`{"totalRecords": 0, "entityData": []}`)),
	}}
	correlator := newCorrelator(caller)

	shaped, err := correlator.EntityAwards(context.Background(), "MISSING12345", 2024)
	require.NoError(t, err)

	failure, ok := shaped.(*JoinFailure)
	require.True(t, ok)
	require.Contains(t, failure.Error, "MISSING12345 not found")
	require.Nil(t, failure.PartialData)
	require.Zero(t, caller.familyCalls(core.FamilySpending), "entity miss must not trigger a spending query")
}

func TestEntityAwardsAbortsWhenSpendingFails(t *testing.T) {
	caller := &stubCaller{responses: []*core.APIResponse{
		core.APISuccess([]byte(entityPayload)),
		core.APIError("spending API returned status 502: bad gateway"),
	}}
	correlator := newCorrelator(caller)

	shaped, err := correlator.EntityAwards(context.Background(), "ABC123DEF456", 2024)
	require.NoError(t, err)

	failure, ok := shaped.(*JoinFailure)
	require.True(t, ok)
	require.Contains(t, failure.Error, "status 502")
	require.Nil(t, failure.PartialData, "a half-completed join must not leak entity data")
}

func TestEntityAwardsRequiresUEI(t *testing.T) {
	caller := &stubCaller{}
	correlator := newCorrelator(caller)

	_, err := correlator.EntityAwards(context.Background(), "", 2024)
	require.ErrorContains(t, err, "uei is required")
	require.Empty(t, caller.families)
}

const opportunityPayload = `{
	"totalRecords": 1,
	"opportunitiesData": [{
		"noticeId": "abc111",
		"title": "Cloud Migration Support",
		"solicitationNumber": "75N98025R00012",
		"naicsCode": "541512",
		"postedDate": "2025-06-01"
	}]
}`

func TestOpportunityMarketSizesByNAICS(t *testing.T) {
	caller := &stubCaller{responses: []*core.APIResponse{
		core.APISuccess([]byte(opportunityPayload)),
		core.APISuccess([]byte(awardsPayload)),
	}}
	correlator := newCorrelator(caller)

	shaped, err := correlator.OpportunityMarket(context.Background(), "abc111", 2025)
	require.NoError(t, err)

	result, ok := shaped.(*OpportunityMarketResult)
	require.True(t, ok)
	require.Equal(t, "541512", result.NAICSCode)
	require.Equal(t, 2, result.SampleCount)
	require.InDelta(t, 5000000, result.TotalSpending, 0.01)
	require.InDelta(t, 2500000, result.AverageAward, 0.01)
	require.Equal(t, "large", result.EstimatedScale)
	require.Len(t, result.TopAwards, 2)
}

func TestOpportunityMarketFailsClosedWithoutNAICS(t *testing.T) {
	caller := &stubCaller{responses: []*core.APIResponse{
		core.APISuccess([]byte(`{
			"totalRecords": 1,
			"opportunitiesData": [{"noticeId": "abc111", "title": "Untyped Notice"}]
		}`)),
	}}
	correlator := newCorrelator(caller)

	shaped, err := correlator.OpportunityMarket(context.Background(), "abc111", 2025)
	require.NoError(t, err)

	failure, ok := shaped.(*JoinFailure)
	require.True(t, ok)
	require.Contains(t, failure.Error, "no NAICS code")
	require.Zero(t, caller.familyCalls(core.FamilySpending))
}

func TestOpportunityMarketNotFound(t *testing.T) {
	caller := &stubCaller{responses: []*core.APIResponse{
		core.APISuccess([]byte(`{"totalRecords": 0, "opportunitiesData": []}`)),
	}}
	correlator := newCorrelator(caller)

	shaped, err := correlator.OpportunityMarket(context.Background(), "stale-notice", 2025)
	require.NoError(t, err)

	failure, ok := shaped.(*JoinFailure)
	require.True(t, ok)
	require.Contains(t, failure.Error, "not found among postings")
	require.Contains(t, failure.Suggestion, "search_opportunities")
	require.Zero(t, caller.familyCalls(core.FamilySpending))
}

func TestClassifyScale(t *testing.T) {
	require.Equal(t, "unknown", classifyScale(0, 0))
	require.Equal(t, "small", classifyScale(99999.99, 3))
	require.Equal(t, "medium", classifyScale(100000, 3))
	require.Equal(t, "medium", classifyScale(999999.99, 3))
	require.Equal(t, "large", classifyScale(1000000, 3))
}
