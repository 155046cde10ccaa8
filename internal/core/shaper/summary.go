package shaper

import (
	"context"
	"fmt"
	"sort"
	"time"
)

// Sentinel bucket labels for records missing the grouping value.
// Missing values land in explicit buckets rather than being dropped.
const (
	unknownAgencyKey    = "UNK"
	unknownVendorKey    = "UNK"
	unspecifiedNAICSKey = "Unspecified NAICS"
	unspecifiedPSCKey   = "Unspecified PSC"
	unknownMonthKey     = "Unknown"
	overallBucketKey    = "all"
	unknownAgencyLabel  = "Unknown Agency"
	unknownVendorLabel  = "Unknown Vendor"
	overallBucketLabel  = "All Spending"
	summaryMonthLayout  = "2006-01"
	summaryDateLayout   = "2006-01-02"
)

// summaryDimensions enumerates the supported group_by values.
var summaryDimensions = []string{"agency", "vendor", "naics", "psc", "month", "overall"}

// SpendingBucket is one ranked grouping of obligated spending.
type SpendingBucket struct {
	Rank           int     `json:"rank"`
	Key            string  `json:"key"`
	Label          string  `json:"label,omitempty"`
	TotalObligated float64 `json:"total_obligated"`
	AwardCount     int     `json:"award_count"`
}

// SpendingSummaryResult is the shaped spending-summary payload.
type SpendingSummaryResult struct {
	GroupBy        string           `json:"group_by"`
	SampledRecords int              `json:"sampled_records"`
	TotalObligated float64          `json:"total_obligated"`
	Buckets        []SpendingBucket `json:"buckets"`
	Note           string           `json:"note,omitempty"`
}

// SummaryQuery carries spending-summary filters.
type SummaryQuery struct {
	GroupBy   string
	AgencyKey string
	NAICS     string
	Limit     int
}

// SpendingSummary fetches a page of contract records and buckets their
// obligated amounts along the requested dimension. The summary covers
// the sampled page, not the full upstream data set.
func (c *AggregatorClient) SpendingSummary(ctx context.Context, query SummaryQuery) (any, error) {
	keyFn, err := summaryKeyFunc(query.GroupBy)
	if err != nil {
		return nil, err
	}

	records, _, toolErr, err := c.contractPage(ctx, query.AgencyKey, query.NAICS, query.Limit)
	if err != nil {
		return nil, err
	}
	if toolErr != nil {
		return toolErr, nil
	}

	result := summarize(query.GroupBy, records, keyFn)
	result.Note = "summary covers the sampled contract page, not all upstream records"
	return result, nil
}

type bucketKeyFunc func(ContractRecord) (key, label string)

func summaryKeyFunc(groupBy string) (bucketKeyFunc, error) {
	switch groupBy {
	case "agency":
		return func(r ContractRecord) (string, string) {
			if r.AgencyCode == "" {
				return unknownAgencyKey, unknownAgencyLabel
			}
			return r.AgencyCode, r.AgencyName
		}, nil
	case "vendor":
		return func(r ContractRecord) (string, string) {
			if r.RecipientUEI == "" {
				return unknownVendorKey, unknownVendorLabel
			}
			return r.RecipientUEI, r.RecipientName
		}, nil
	case "naics":
		return func(r ContractRecord) (string, string) {
			if r.NAICSCode == "" {
				return unspecifiedNAICSKey, ""
			}
			return r.NAICSCode, ""
		}, nil
	case "psc":
		return func(r ContractRecord) (string, string) {
			if r.PSCCode == "" {
				return unspecifiedPSCKey, ""
			}
			return r.PSCCode, ""
		}, nil
	case "month":
		return func(r ContractRecord) (string, string) {
			return monthBucket(r.AwardDate), ""
		}, nil
	case "overall":
		return func(ContractRecord) (string, string) {
			return overallBucketKey, overallBucketLabel
		}, nil
	default:
		return nil, fmt.Errorf("unsupported group_by %q; use one of %v", groupBy, summaryDimensions)
	}
}

// monthBucket derives a UTC year-month bucket from an award date.
// Unparseable or missing dates bucket as Unknown.
func monthBucket(awardDate string) string {
	if awardDate == "" {
		return unknownMonthKey
	}
	if parsed, err := time.Parse(summaryDateLayout, awardDate); err == nil {
		return parsed.UTC().Format(summaryMonthLayout)
	}
	if parsed, err := time.Parse(time.RFC3339, awardDate); err == nil {
		return parsed.UTC().Format(summaryMonthLayout)
	}
	return unknownMonthKey
}

func summarize(groupBy string, records []ContractRecord, keyFn bucketKeyFunc) *SpendingSummaryResult {
	type accumulator struct {
		label string
		total float64
		count int
	}

	buckets := make(map[string]*accumulator)
	result := &SpendingSummaryResult{
		GroupBy:        groupBy,
		SampledRecords: len(records),
	}

	for _, record := range records {
		key, label := keyFn(record)
		acc, ok := buckets[key]
		if !ok {
			acc = &accumulator{label: label}
			buckets[key] = acc
		}
		acc.total += record.ObligatedAmount
		acc.count++
		result.TotalObligated += record.ObligatedAmount
	}

	result.Buckets = make([]SpendingBucket, 0, len(buckets))
	for key, acc := range buckets {
		result.Buckets = append(result.Buckets, SpendingBucket{
			Key:            key,
			Label:          acc.label,
			TotalObligated: acc.total,
			AwardCount:     acc.count,
		})
	}

	// Descending by total, key ascending on ties, so ranks are stable.
	sort.Slice(result.Buckets, func(i, j int) bool {
		if result.Buckets[i].TotalObligated != result.Buckets[j].TotalObligated {
			return result.Buckets[i].TotalObligated > result.Buckets[j].TotalObligated
		}
		return result.Buckets[i].Key < result.Buckets[j].Key
	})
	for i := range result.Buckets {
		result.Buckets[i].Rank = i + 1
	}

	return result
}
