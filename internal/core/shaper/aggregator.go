package shaper

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/blencorp/capture-mcp-server/internal/core"
	"github.com/blencorp/capture-mcp-server/internal/core/sanitize"
)

// aggregatorLimitMax is the page-size ceiling for aggregator queries.
const aggregatorLimitMax = 50

// AggregatorClient shapes the unified third-party aggregator API. The
// API key rides in a request header rather than the query string.
type AggregatorClient struct {
	Gateway Caller
	BaseURL string
	APIKey  string
}

// ContractRecord is the normalized contract shape shared by contract
// search and spending summaries. Missing amounts default to zero.
type ContractRecord struct {
	Key             string  `json:"key"`
	Title           string  `json:"title,omitempty"`
	ObligatedAmount float64 `json:"obligated_amount"`
	AwardDate       string  `json:"award_date,omitempty"`
	AgencyName      string  `json:"agency_name,omitempty"`
	AgencyCode      string  `json:"agency_code,omitempty"`
	RecipientName   string  `json:"recipient_name,omitempty"`
	RecipientUEI    string  `json:"recipient_uei,omitempty"`
	NAICSCode       string  `json:"naics_code,omitempty"`
	PSCCode         string  `json:"psc_code,omitempty"`
}

type aggregatorContractPayload struct {
	Count   int `json:"count"`
	Results []struct {
		Key             string   `json:"key"`
		Title           string   `json:"title"`
		ObligatedAmount *float64 `json:"obligated_amount"`
		AwardDate       string   `json:"award_date"`
		Agency          struct {
			Name string `json:"name"`
			Key  string `json:"key"`
		} `json:"agency"`
		Vendor struct {
			Name string `json:"name"`
			UEI  string `json:"uei"`
		} `json:"vendor"`
		NAICSCode string `json:"naics_code"`
		PSCCode   string `json:"psc_code"`
	} `json:"results"`
}

// ContractQuery carries contract-search filters. VendorName and the
// amount bounds are not supported server-side by the aggregator; they
// are applied client-side to the returned page only.
type ContractQuery struct {
	AgencyKey  string
	NAICS      string
	VendorName string
	MinAmount  float64
	MaxAmount  float64
	Limit      int
}

// ContractSearchResult is the shaped contract-search payload.
// TotalUpstream counts matches before client-side filtering; Note is
// set whenever a client-side filter narrowed the page.
type ContractSearchResult struct {
	TotalUpstream int              `json:"total_upstream_matches"`
	Returned      int              `json:"returned"`
	Contracts     []ContractRecord `json:"contracts"`
	Note          string           `json:"note,omitempty"`
}

// SearchContracts queries aggregator contract records.
func (c *AggregatorClient) SearchContracts(ctx context.Context, query ContractQuery) (any, error) {
	records, count, toolErr, err := c.contractPage(ctx, query.AgencyKey, query.NAICS, query.Limit)
	if err != nil {
		return nil, err
	}
	if toolErr != nil {
		return toolErr, nil
	}

	filtered, note := filterContracts(records, query)
	return &ContractSearchResult{
		TotalUpstream: count,
		Returned:      len(filtered),
		Contracts:     filtered,
		Note:          note,
	}, nil
}

// contractPage fetches one normalized page of contract records. Also
// feeds SpendingSummary.
func (c *AggregatorClient) contractPage(ctx context.Context, agencyKey, naics string, limit int) ([]ContractRecord, int, *core.ToolError, error) {
	if err := c.ready(); err != nil {
		return nil, 0, nil, err
	}

	params := url.Values{}
	params.Set("page_size", strconv.Itoa(core.ClampLimit(limit, 25, aggregatorLimitMax)))
	if agencyKey != "" {
		params.Set("agency_key", agencyKey)
	}
	if naics != "" {
		params.Set("naics_code", naics)
	}

	req, err := c.getWithKey("/v1/contracts", params)
	if err != nil {
		return nil, 0, nil, err
	}

	resp := c.Gateway.Call(ctx, core.FamilyAggregator, req)
	if !resp.Success {
		return nil, 0, upstreamError(resp), nil
	}

	var payload aggregatorContractPayload
	if err := json.Unmarshal(resp.Data, &payload); err != nil {
		return nil, 0, decodeError(core.FamilyAggregator, err), nil
	}

	records := make([]ContractRecord, 0, len(payload.Results))
	for _, raw := range payload.Results {
		record := ContractRecord{
			Key:           raw.Key,
			Title:         raw.Title,
			AwardDate:     raw.AwardDate,
			AgencyName:    raw.Agency.Name,
			AgencyCode:    raw.Agency.Key,
			RecipientName: raw.Vendor.Name,
			RecipientUEI:  raw.Vendor.UEI,
			NAICSCode:     raw.NAICSCode,
			PSCCode:       raw.PSCCode,
		}
		if raw.ObligatedAmount != nil {
			record.ObligatedAmount = *raw.ObligatedAmount
		}
		records = append(records, record)
	}
	return records, payload.Count, nil, nil
}

// filterContracts applies the filters the aggregator cannot evaluate
// server-side. Filtering covers only the fetched page, not the full
// upstream result set.
func filterContracts(records []ContractRecord, query ContractQuery) ([]ContractRecord, string) {
	vendor := strings.ToLower(query.VendorName)
	filtered := make([]ContractRecord, 0, len(records))
	for _, record := range records {
		if vendor != "" && !strings.Contains(strings.ToLower(record.RecipientName), vendor) {
			continue
		}
		if query.MinAmount > 0 && record.ObligatedAmount < query.MinAmount {
			continue
		}
		if query.MaxAmount > 0 && record.ObligatedAmount > query.MaxAmount {
			continue
		}
		filtered = append(filtered, record)
	}

	note := ""
	if vendor != "" || query.MinAmount > 0 || query.MaxAmount > 0 {
		note = "vendor_name and amount filters are applied client-side within the returned page only"
	}
	return filtered, note
}

// GrantRecord is the shaped grant record.
type GrantRecord struct {
	Key         string  `json:"key"`
	Title       string  `json:"title,omitempty"`
	Amount      float64 `json:"amount"`
	AwardDate   string  `json:"award_date,omitempty"`
	AgencyName  string  `json:"agency_name,omitempty"`
	Recipient   string  `json:"recipient,omitempty"`
	CFDAProgram string  `json:"cfda_program,omitempty"`
}

type aggregatorGrantPayload struct {
	Count   int `json:"count"`
	Results []struct {
		Key    string   `json:"key"`
		Title  string   `json:"title"`
		Amount *float64 `json:"amount"`
		Date   string   `json:"award_date"`
		Agency struct {
			Name string `json:"name"`
		} `json:"agency"`
		Recipient struct {
			Name string `json:"name"`
		} `json:"recipient"`
		CFDAProgram string `json:"cfda_program"`
	} `json:"results"`
}

// GrantQuery carries grant-search filters.
type GrantQuery struct {
	AgencyKey string
	Keyword   string
	Limit     int
}

// GrantSearchResult is the shaped grant-search payload.
type GrantSearchResult struct {
	TotalUpstream int           `json:"total_upstream_matches"`
	Grants        []GrantRecord `json:"grants"`
}

// SearchGrants queries aggregator grant records.
func (c *AggregatorClient) SearchGrants(ctx context.Context, query GrantQuery) (any, error) {
	if err := c.ready(); err != nil {
		return nil, err
	}

	params := url.Values{}
	params.Set("page_size", strconv.Itoa(core.ClampLimit(query.Limit, 25, aggregatorLimitMax)))
	if query.AgencyKey != "" {
		params.Set("agency_key", query.AgencyKey)
	}
	if query.Keyword != "" {
		params.Set("search", sanitize.CleanStrict(query.Keyword))
	}

	req, err := c.getWithKey("/v1/grants", params)
	if err != nil {
		return nil, err
	}

	resp := c.Gateway.Call(ctx, core.FamilyAggregator, req)
	if !resp.Success {
		return upstreamError(resp), nil
	}

	var payload aggregatorGrantPayload
	if err := json.Unmarshal(resp.Data, &payload); err != nil {
		return decodeError(core.FamilyAggregator, err), nil
	}

	result := &GrantSearchResult{
		TotalUpstream: payload.Count,
		Grants:        make([]GrantRecord, 0, len(payload.Results)),
	}
	for _, raw := range payload.Results {
		grant := GrantRecord{
			Key:         raw.Key,
			Title:       raw.Title,
			AwardDate:   raw.Date,
			AgencyName:  raw.Agency.Name,
			Recipient:   raw.Recipient.Name,
			CFDAProgram: raw.CFDAProgram,
		}
		if raw.Amount != nil {
			grant.Amount = *raw.Amount
		}
		result.Grants = append(result.Grants, grant)
	}
	return result, nil
}

// VendorRecord is the shaped vendor profile.
type VendorRecord struct {
	Key        string `json:"key"`
	Name       string `json:"name"`
	UEI        string `json:"uei,omitempty"`
	City       string `json:"city,omitempty"`
	State      string `json:"state,omitempty"`
	PrimeNAICS string `json:"primary_naics,omitempty"`
}

type aggregatorVendorPayload struct {
	Count   int `json:"count"`
	Results []struct {
		Key      string `json:"key"`
		Name     string `json:"name"`
		UEI      string `json:"uei"`
		Location struct {
			City  string `json:"city"`
			State string `json:"state"`
		} `json:"location"`
		PrimaryNAICS string `json:"primary_naics"`
	} `json:"results"`
}

// VendorSearchResult is the shaped vendor-search payload.
type VendorSearchResult struct {
	TotalUpstream int            `json:"total_upstream_matches"`
	Vendors       []VendorRecord `json:"vendors"`
}

// SearchVendors queries aggregator vendor profiles by keyword.
func (c *AggregatorClient) SearchVendors(ctx context.Context, keyword string, limit int) (any, error) {
	if err := c.ready(); err != nil {
		return nil, err
	}
	if keyword == "" {
		return nil, errors.New("search keyword is required")
	}

	params := url.Values{}
	params.Set("search", sanitize.CleanStrict(keyword))
	params.Set("page_size", strconv.Itoa(core.ClampLimit(limit, 25, aggregatorLimitMax)))

	req, err := c.getWithKey("/v1/vendors", params)
	if err != nil {
		return nil, err
	}

	resp := c.Gateway.Call(ctx, core.FamilyAggregator, req)
	if !resp.Success {
		return upstreamError(resp), nil
	}

	var payload aggregatorVendorPayload
	if err := json.Unmarshal(resp.Data, &payload); err != nil {
		return decodeError(core.FamilyAggregator, err), nil
	}

	result := &VendorSearchResult{
		TotalUpstream: payload.Count,
		Vendors:       make([]VendorRecord, 0, len(payload.Results)),
	}
	for _, raw := range payload.Results {
		result.Vendors = append(result.Vendors, VendorRecord{
			Key:        raw.Key,
			Name:       raw.Name,
			UEI:        raw.UEI,
			City:       raw.Location.City,
			State:      raw.Location.State,
			PrimeNAICS: raw.PrimaryNAICS,
		})
	}
	return result, nil
}

// UnifiedOpportunity is the shaped aggregator opportunity record.
type UnifiedOpportunity struct {
	Key        string `json:"key"`
	Title      string `json:"title"`
	AgencyName string `json:"agency_name,omitempty"`
	NAICSCode  string `json:"naics_code,omitempty"`
	PostedDate string `json:"posted_date,omitempty"`
	DueDate    string `json:"due_date,omitempty"`
	Source     string `json:"source,omitempty"`
}

type aggregatorOpportunityPayload struct {
	Count   int `json:"count"`
	Results []struct {
		Key    string `json:"key"`
		Title  string `json:"title"`
		Agency struct {
			Name string `json:"name"`
		} `json:"agency"`
		NAICSCode  string `json:"naics_code"`
		PostedDate string `json:"posted_date"`
		DueDate    string `json:"due_date"`
		Source     string `json:"source"`
	} `json:"results"`
}

// UnifiedOpportunityResult is the shaped aggregator opportunity payload.
type UnifiedOpportunityResult struct {
	TotalUpstream int                  `json:"total_upstream_matches"`
	Opportunities []UnifiedOpportunity `json:"opportunities"`
}

// SearchOpportunities queries the aggregator's cross-source
// opportunity feed.
func (c *AggregatorClient) SearchOpportunities(ctx context.Context, keyword, naics string, limit int) (any, error) {
	if err := c.ready(); err != nil {
		return nil, err
	}
	if keyword == "" && naics == "" {
		return nil, errors.New("either a search keyword or a naics_code is required")
	}

	params := url.Values{}
	params.Set("page_size", strconv.Itoa(core.ClampLimit(limit, 25, aggregatorLimitMax)))
	if keyword != "" {
		params.Set("search", sanitize.CleanStrict(keyword))
	}
	if naics != "" {
		params.Set("naics_code", naics)
	}

	req, err := c.getWithKey("/v1/opportunities", params)
	if err != nil {
		return nil, err
	}

	resp := c.Gateway.Call(ctx, core.FamilyAggregator, req)
	if !resp.Success {
		return upstreamError(resp), nil
	}

	var payload aggregatorOpportunityPayload
	if err := json.Unmarshal(resp.Data, &payload); err != nil {
		return decodeError(core.FamilyAggregator, err), nil
	}

	result := &UnifiedOpportunityResult{
		TotalUpstream: payload.Count,
		Opportunities: make([]UnifiedOpportunity, 0, len(payload.Results)),
	}
	for _, raw := range payload.Results {
		result.Opportunities = append(result.Opportunities, UnifiedOpportunity{
			Key:        raw.Key,
			Title:      raw.Title,
			AgencyName: raw.Agency.Name,
			NAICSCode:  raw.NAICSCode,
			PostedDate: raw.PostedDate,
			DueDate:    raw.DueDate,
			Source:     raw.Source,
		})
	}
	return result, nil
}

func (c *AggregatorClient) getWithKey(path string, params url.Values) (*http.Request, error) {
	req, err := getRequest(c.BaseURL, path, params)
	if err != nil {
		return nil, err
	}
	req.Header.Set("X-Api-Key", c.APIKey)
	return req, nil
}

func (c *AggregatorClient) ready() error {
	if c == nil || c.Gateway == nil {
		return errors.New("aggregator client is not configured")
	}
	if strings.TrimSpace(c.APIKey) == "" {
		return errors.New("aggregator API key is not configured; set the aggregator.api_key config or CAPTURE_AGGREGATOR_API_KEY")
	}
	return nil
}
