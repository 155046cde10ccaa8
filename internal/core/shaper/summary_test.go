package shaper

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func summaryRecords() []ContractRecord {
	return []ContractRecord{
		{Key: "c-1", ObligatedAmount: 500000, AwardDate: "2024-03-12", AgencyCode: "075", AgencyName: "HHS", RecipientUEI: "UEI1", RecipientName: "Acme", NAICSCode: "541512", PSCCode: "D302"},
		{Key: "c-2", ObligatedAmount: 300000, AwardDate: "2024-03-28", AgencyCode: "075", AgencyName: "HHS", RecipientUEI: "UEI2", RecipientName: "Beta", NAICSCode: "541512"},
		{Key: "c-3", ObligatedAmount: 300000, AwardDate: "2024-04-05T10:30:00Z", AgencyCode: "097", AgencyName: "DoD", RecipientUEI: "UEI1", RecipientName: "Acme", NAICSCode: "541611", PSCCode: "R408"},
		{Key: "c-4", ObligatedAmount: 150000, AwardDate: "not-a-date", AgencyCode: "047", AgencyName: "GSA", RecipientUEI: "", RecipientName: ""},
		{Key: "c-5", ObligatedAmount: 50000, AwardDate: "", AgencyCode: "", AgencyName: ""},
	}
}

func TestSummarizeByAgencyOrdersAndRanks(t *testing.T) {
	keyFn, err := summaryKeyFunc("agency")
	require.NoError(t, err)

	result := summarize("agency", summaryRecords(), keyFn)
	require.Equal(t, 5, result.SampledRecords)
	require.InDelta(t, 1300000, result.TotalObligated, 0.01)
	require.Len(t, result.Buckets, 4)

	require.Equal(t, []SpendingBucket{
		{Rank: 1, Key: "075", Label: "HHS", TotalObligated: 800000, AwardCount: 2},
		{Rank: 2, Key: "097", Label: "DoD", TotalObligated: 300000, AwardCount: 1},
		{Rank: 3, Key: "047", Label: "GSA", TotalObligated: 150000, AwardCount: 1},
		{Rank: 4, Key: "UNK", Label: "Unknown Agency", TotalObligated: 50000, AwardCount: 1},
	}, result.Buckets)
}

func TestSummarizeTieBreaksByKey(t *testing.T) {
	records := []ContractRecord{
		{Key: "c-1", ObligatedAmount: 100, NAICSCode: "541611"},
		{Key: "c-2", ObligatedAmount: 100, NAICSCode: "541512"},
	}
	keyFn, err := summaryKeyFunc("naics")
	require.NoError(t, err)

	result := summarize("naics", records, keyFn)
	require.Equal(t, "541512", result.Buckets[0].Key)
	require.Equal(t, 1, result.Buckets[0].Rank)
	require.Equal(t, "541611", result.Buckets[1].Key)
	require.Equal(t, 2, result.Buckets[1].Rank)
}

func TestSummarizeByVendorBucketsMissingUEI(t *testing.T) {
	keyFn, err := summaryKeyFunc("vendor")
	require.NoError(t, err)

	result := summarize("vendor", summaryRecords(), keyFn)
	require.Equal(t, "UEI1", result.Buckets[0].Key)
	require.InDelta(t, 800000, result.Buckets[0].TotalObligated, 0.01)

	var unknown *SpendingBucket
	for i := range result.Buckets {
		if result.Buckets[i].Key == "UNK" {
			unknown = &result.Buckets[i]
		}
	}
	require.NotNil(t, unknown)
	require.Equal(t, "Unknown Vendor", unknown.Label)
	require.Equal(t, 2, unknown.AwardCount)
}

func TestSummarizeByNAICSUsesSentinel(t *testing.T) {
	keyFn, err := summaryKeyFunc("naics")
	require.NoError(t, err)

	result := summarize("naics", summaryRecords(), keyFn)
	keys := make([]string, 0, len(result.Buckets))
	for _, bucket := range result.Buckets {
		keys = append(keys, bucket.Key)
	}
	require.Contains(t, keys, "Unspecified NAICS")
}

func TestSummarizeByMonthNormalizesDates(t *testing.T) {
	keyFn, err := summaryKeyFunc("month")
	require.NoError(t, err)

	result := summarize("month", summaryRecords(), keyFn)

	totals := make(map[string]float64)
	counts := make(map[string]int)
	for _, bucket := range result.Buckets {
		totals[bucket.Key] = bucket.TotalObligated
		counts[bucket.Key] = bucket.AwardCount
	}
	require.InDelta(t, 800000, totals["2024-03"], 0.01)
	require.InDelta(t, 300000, totals["2024-04"], 0.01)
	require.Equal(t, 2, counts["Unknown"])
}

func TestSummarizeOverallCollapsesToOneBucket(t *testing.T) {
	keyFn, err := summaryKeyFunc("overall")
	require.NoError(t, err)

	result := summarize("overall", summaryRecords(), keyFn)
	require.Len(t, result.Buckets, 1)
	require.Equal(t, "all", result.Buckets[0].Key)
	require.Equal(t, "All Spending", result.Buckets[0].Label)
	require.Equal(t, 5, result.Buckets[0].AwardCount)
	require.InDelta(t, 1300000, result.Buckets[0].TotalObligated, 0.01)
}

func TestSummaryKeyFuncRejectsUnknownDimension(t *testing.T) {
	_, err := summaryKeyFunc("contract_type")
	require.ErrorContains(t, err, `unsupported group_by "contract_type"`)
}

func TestSpendingSummaryRejectsBadDimensionBeforeNetwork(t *testing.T) {
	caller := &stubCaller{}
	client := newAggregatorClient(caller)

	_, err := client.SpendingSummary(context.Background(), SummaryQuery{GroupBy: "bogus"})
	require.Error(t, err)
	require.Zero(t, caller.calls())
}

func TestSpendingSummaryEndToEnd(t *testing.T) {
	caller := &stubCaller{}
	queueSuccess(caller, contractPayload)
	client := newAggregatorClient(caller)

	shaped, err := client.SpendingSummary(context.Background(), SummaryQuery{GroupBy: "agency", AgencyKey: "075"})
	require.NoError(t, err)

	result, ok := shaped.(*SpendingSummaryResult)
	require.True(t, ok)
	require.Equal(t, 3, result.SampledRecords)
	require.Equal(t, "HHS", result.Buckets[0].Label)
	require.Contains(t, result.Note, "sampled contract page")
}
