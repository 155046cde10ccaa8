package shaper

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/blencorp/capture-mcp-server/internal/core"
	"github.com/blencorp/capture-mcp-server/internal/core/sanitize"
)

const (
	// samEntityLimitMax is the page-size ceiling for entity searches.
	samEntityLimitMax = 10
	// samOpportunityLimitMax is the page-size ceiling for opportunity searches.
	samOpportunityLimitMax = 100
	// opportunityLookupWindow bounds the FindOpportunity scan; the
	// opportunity API has no fetch-by-ID endpoint, so lookups scan a
	// recent page of postings.
	opportunityLookupWindow = 30 * 24 * time.Hour

	samDateLayout = "01/02/2006"
)

// SAMClient shapes the SAM.gov entity, opportunity, and exclusion APIs.
type SAMClient struct {
	Gateway Caller
	BaseURL string
	APIKey  string
	Clock   func() time.Time
}

// EntityQuery carries search filters for entity registrations. At least
// one of Name, UEI, or CAGE is required.
type EntityQuery struct {
	Name  string
	UEI   string
	CAGE  string
	State string
	NAICS string
	Limit int
}

// Entity is the shaped registration record.
type Entity struct {
	UEI            string `json:"uei"`
	LegalName      string `json:"legal_name"`
	DBAName        string `json:"dba_name,omitempty"`
	CAGE           string `json:"cage_code,omitempty"`
	Status         string `json:"registration_status"`
	ExpirationDate string `json:"expiration_date,omitempty"`
	City           string `json:"city,omitempty"`
	State          string `json:"state,omitempty"`
}

// EntitySearchResult is the shaped entity-search payload.
type EntitySearchResult struct {
	TotalRecords int      `json:"total_records"`
	Entities     []Entity `json:"entities"`
}

type samEntityPayload struct {
	TotalRecords int `json:"totalRecords"`
	EntityData   []struct {
		EntityRegistration struct {
			UeiSAM                     string `json:"ueiSAM"`
			LegalBusinessName          string `json:"legalBusinessName"`
			DbaName                    string `json:"dbaName"`
			CageCode                   string `json:"cageCode"`
			RegistrationStatus         string `json:"registrationStatus"`
			RegistrationExpirationDate string `json:"registrationExpirationDate"`
			PhysicalAddress            struct {
				City                string `json:"city"`
				StateOrProvinceCode string `json:"stateOrProvinceCode"`
			} `json:"physicalAddress"`
		} `json:"entityRegistration"`
	} `json:"entityData"`
}

// SearchEntities queries entity registrations and returns a flat,
// renamed result page.
func (c *SAMClient) SearchEntities(ctx context.Context, query EntityQuery) (any, error) {
	if err := c.ready(); err != nil {
		return nil, err
	}
	if query.Name == "" && query.UEI == "" && query.CAGE == "" {
		return nil, errors.New("at least one of name, uei, or cage_code is required")
	}

	params := url.Values{}
	params.Set("api_key", c.APIKey)
	params.Set("size", strconv.Itoa(core.ClampLimit(query.Limit, 5, samEntityLimitMax)))
	params.Set("page", "0")
	if query.Name != "" {
		params.Set("legalBusinessName", sanitize.CleanStrict(query.Name))
	}
	if query.UEI != "" {
		params.Set("ueiSAM", query.UEI)
	}
	if query.CAGE != "" {
		params.Set("cageCode", query.CAGE)
	}
	if query.State != "" {
		params.Set("stateProvince", query.State)
	}
	if query.NAICS != "" {
		params.Set("primaryNaics", query.NAICS)
	}

	req, err := getRequest(c.BaseURL, "/entity-information/v3/entities", params)
	if err != nil {
		return nil, err
	}

	resp := c.Gateway.Call(ctx, core.FamilySAM, req)
	if !resp.Success {
		return upstreamError(resp), nil
	}

	var payload samEntityPayload
	if err := json.Unmarshal(resp.Data, &payload); err != nil {
		return decodeError(core.FamilySAM, err), nil
	}

	result := &EntitySearchResult{
		TotalRecords: payload.TotalRecords,
		Entities:     make([]Entity, 0, len(payload.EntityData)),
	}
	for _, record := range payload.EntityData {
		reg := record.EntityRegistration
		result.Entities = append(result.Entities, Entity{
			UEI:            reg.UeiSAM,
			LegalName:      reg.LegalBusinessName,
			DBAName:        reg.DbaName,
			CAGE:           reg.CageCode,
			Status:         reg.RegistrationStatus,
			ExpirationDate: reg.RegistrationExpirationDate,
			City:           reg.PhysicalAddress.City,
			State:          reg.PhysicalAddress.StateOrProvinceCode,
		})
	}
	return result, nil
}

// LookupEntity fetches a single registration by UEI. Returns a nil
// entity with a not-found ToolError when the UEI has no active
// registration.
func (c *SAMClient) LookupEntity(ctx context.Context, uei string) (*Entity, *core.ToolError, error) {
	if err := c.ready(); err != nil {
		return nil, nil, err
	}
	if uei == "" {
		return nil, nil, errors.New("uei is required")
	}

	shaped, err := c.SearchEntities(ctx, EntityQuery{UEI: uei, Limit: 1})
	if err != nil {
		return nil, nil, err
	}
	if toolErr, ok := shaped.(*core.ToolError); ok {
		return nil, toolErr, nil
	}

	result := shaped.(*EntitySearchResult)
	if len(result.Entities) == 0 {
		return nil, &core.ToolError{
			Error:      fmt.Sprintf("entity %s not found in SAM.gov", uei),
			Suggestion: "verify the UEI is correct and the registration is active",
		}, nil
	}
	entity := result.Entities[0]
	return &entity, nil, nil
}

// OpportunityQuery carries search filters for contract opportunities.
// PostedFrom and PostedTo (MM/DD/YYYY) are both required; the API
// rejects open-ended date ranges.
type OpportunityQuery struct {
	PostedFrom string
	PostedTo   string
	Title      string
	NAICS      string
	State      string
	SetAside   string
	Limit      int
}

// Opportunity is the shaped contract-opportunity record.
type Opportunity struct {
	NoticeID           string `json:"notice_id"`
	Title              string `json:"title"`
	SolicitationNumber string `json:"solicitation_number,omitempty"`
	AgencyPath         string `json:"agency,omitempty"`
	Type               string `json:"type,omitempty"`
	PostedDate         string `json:"posted_date,omitempty"`
	ResponseDeadline   string `json:"response_deadline,omitempty"`
	NAICSCode          string `json:"naics_code,omitempty"`
	SetAside           string `json:"set_aside,omitempty"`
	Link               string `json:"link,omitempty"`
}

// OpportunitySearchResult is the shaped opportunity-search payload.
type OpportunitySearchResult struct {
	TotalRecords  int           `json:"total_records"`
	Opportunities []Opportunity `json:"opportunities"`
}

type samOpportunityPayload struct {
	TotalRecords      int `json:"totalRecords"`
	OpportunitiesData []struct {
		NoticeID           string `json:"noticeId"`
		Title              string `json:"title"`
		SolicitationNumber string `json:"solicitationNumber"`
		FullParentPathName string `json:"fullParentPathName"`
		Type               string `json:"type"`
		PostedDate         string `json:"postedDate"`
		ResponseDeadLine   string `json:"responseDeadLine"`
		NaicsCode          string `json:"naicsCode"`
		TypeOfSetAside     string `json:"typeOfSetAsideDescription"`
		UILink             string `json:"uiLink"`
	} `json:"opportunitiesData"`
}

// SearchOpportunities queries posted contract opportunities.
func (c *SAMClient) SearchOpportunities(ctx context.Context, query OpportunityQuery) (any, error) {
	if err := c.ready(); err != nil {
		return nil, err
	}
	if query.PostedFrom == "" || query.PostedTo == "" {
		return nil, errors.New("posted_from and posted_to are both required (MM/DD/YYYY)")
	}

	params := url.Values{}
	params.Set("api_key", c.APIKey)
	params.Set("postedFrom", query.PostedFrom)
	params.Set("postedTo", query.PostedTo)
	params.Set("limit", strconv.Itoa(core.ClampLimit(query.Limit, 10, samOpportunityLimitMax)))
	params.Set("offset", "0")
	if query.Title != "" {
		params.Set("title", sanitize.CleanStrict(query.Title))
	}
	if query.NAICS != "" {
		params.Set("ncode", query.NAICS)
	}
	if query.State != "" {
		params.Set("state", query.State)
	}
	if query.SetAside != "" {
		params.Set("typeOfSetAside", query.SetAside)
	}

	req, err := getRequest(c.BaseURL, "/opportunities/v2/search", params)
	if err != nil {
		return nil, err
	}

	resp := c.Gateway.Call(ctx, core.FamilySAM, req)
	if !resp.Success {
		return upstreamError(resp), nil
	}

	result, toolErr := shapeOpportunities(resp.Data)
	if toolErr != nil {
		return toolErr, nil
	}
	return result, nil
}

func shapeOpportunities(data []byte) (*OpportunitySearchResult, *core.ToolError) {
	var payload samOpportunityPayload
	if err := json.Unmarshal(data, &payload); err != nil {
		return nil, decodeError(core.FamilySAM, err)
	}

	result := &OpportunitySearchResult{
		TotalRecords:  payload.TotalRecords,
		Opportunities: make([]Opportunity, 0, len(payload.OpportunitiesData)),
	}
	for _, record := range payload.OpportunitiesData {
		result.Opportunities = append(result.Opportunities, Opportunity{
			NoticeID:           record.NoticeID,
			Title:              record.Title,
			SolicitationNumber: record.SolicitationNumber,
			AgencyPath:         record.FullParentPathName,
			Type:               record.Type,
			PostedDate:         record.PostedDate,
			ResponseDeadline:   record.ResponseDeadLine,
			NAICSCode:          record.NaicsCode,
			SetAside:           record.TypeOfSetAside,
			Link:               record.UILink,
		})
	}
	return result, nil
}

// FindOpportunity locates one opportunity by notice ID or solicitation
// number. The opportunity API offers no direct fetch-by-ID endpoint,
// so this scans a fixed trailing 30-day window of postings; anything
// older is reported as not found with guidance to search by explicit
// date range instead.
func (c *SAMClient) FindOpportunity(ctx context.Context, identifier string) (*Opportunity, *core.ToolError, error) {
	if err := c.ready(); err != nil {
		return nil, nil, err
	}
	if identifier == "" {
		return nil, nil, errors.New("opportunity_id or solicitation_number is required")
	}

	now := c.now()
	params := url.Values{}
	params.Set("api_key", c.APIKey)
	params.Set("postedFrom", now.Add(-opportunityLookupWindow).Format(samDateLayout))
	params.Set("postedTo", now.Format(samDateLayout))
	params.Set("limit", strconv.Itoa(samOpportunityLimitMax))
	params.Set("offset", "0")

	req, err := getRequest(c.BaseURL, "/opportunities/v2/search", params)
	if err != nil {
		return nil, nil, err
	}

	resp := c.Gateway.Call(ctx, core.FamilySAM, req)
	if !resp.Success {
		return nil, upstreamError(resp), nil
	}

	result, toolErr := shapeOpportunities(resp.Data)
	if toolErr != nil {
		return nil, toolErr, nil
	}

	wanted := strings.ToLower(identifier)
	for _, opp := range result.Opportunities {
		if strings.ToLower(opp.NoticeID) == wanted || strings.ToLower(opp.SolicitationNumber) == wanted {
			found := opp
			return &found, nil, nil
		}
	}

	return nil, &core.ToolError{
		Error:      fmt.Sprintf("opportunity %q not found among postings from the last 30 days", identifier),
		Suggestion: "older notices are outside this lookup window; use search_opportunities with an explicit posted_from/posted_to range",
	}, nil
}

// ExclusionQuery identifies the party to screen. Exactly one of Name
// or UEI is required.
type ExclusionQuery struct {
	Name string
	UEI  string
}

// Exclusion is the shaped debarment/exclusion record.
type Exclusion struct {
	Name            string `json:"name"`
	UEI             string `json:"uei,omitempty"`
	Classification  string `json:"classification,omitempty"`
	Type            string `json:"exclusion_type,omitempty"`
	Program         string `json:"exclusion_program,omitempty"`
	ExcludingAgency string `json:"excluding_agency,omitempty"`
	ActivationDate  string `json:"activation_date,omitempty"`
	TerminationDate string `json:"termination_date,omitempty"`
}

// ExclusionCheckResult is the shaped exclusion-screening payload.
// Clear=true means no active exclusion matched.
type ExclusionCheckResult struct {
	TotalMatches int         `json:"total_matches"`
	Clear        bool        `json:"clear"`
	Exclusions   []Exclusion `json:"exclusions"`
}

type samExclusionPayload struct {
	TotalRecords   int `json:"totalRecords"`
	ExcludedEntity []struct {
		ExclusionDetails struct {
			ClassificationType string `json:"classificationType"`
			ExclusionType      string `json:"exclusionType"`
			ExclusionProgram   string `json:"exclusionProgram"`
		} `json:"exclusionDetails"`
		ExclusionIdentification struct {
			UeiSAM string `json:"ueiSAM"`
			Name   string `json:"name"`
		} `json:"exclusionIdentification"`
		ExclusionActions struct {
			ListOfActions []struct {
				CreateDate      string `json:"createDate"`
				TerminationDate string `json:"terminationDate"`
				ExcludingAgency string `json:"excludingAgency"`
			} `json:"listOfActions"`
		} `json:"exclusionActions"`
	} `json:"excludedEntity"`
}

// CheckExclusions screens a party against the SAM.gov exclusion list.
func (c *SAMClient) CheckExclusions(ctx context.Context, query ExclusionQuery) (any, error) {
	if err := c.ready(); err != nil {
		return nil, err
	}
	if query.Name == "" && query.UEI == "" {
		return nil, errors.New("either name or uei is required")
	}

	params := url.Values{}
	params.Set("api_key", c.APIKey)
	if query.UEI != "" {
		params.Set("ueiSAM", query.UEI)
	} else {
		params.Set("exclusionName", sanitize.CleanStrict(query.Name))
	}

	req, err := getRequest(c.BaseURL, "/entity-information/v4/exclusions", params)
	if err != nil {
		return nil, err
	}

	resp := c.Gateway.Call(ctx, core.FamilySAM, req)
	if !resp.Success {
		return upstreamError(resp), nil
	}

	var payload samExclusionPayload
	if err := json.Unmarshal(resp.Data, &payload); err != nil {
		return decodeError(core.FamilySAM, err), nil
	}

	result := &ExclusionCheckResult{
		TotalMatches: payload.TotalRecords,
		Clear:        payload.TotalRecords == 0,
		Exclusions:   make([]Exclusion, 0, len(payload.ExcludedEntity)),
	}
	for _, record := range payload.ExcludedEntity {
		exclusion := Exclusion{
			Name:           record.ExclusionIdentification.Name,
			UEI:            record.ExclusionIdentification.UeiSAM,
			Classification: record.ExclusionDetails.ClassificationType,
			Type:           record.ExclusionDetails.ExclusionType,
			Program:        record.ExclusionDetails.ExclusionProgram,
		}
		if actions := record.ExclusionActions.ListOfActions; len(actions) > 0 {
			exclusion.ExcludingAgency = actions[0].ExcludingAgency
			exclusion.ActivationDate = actions[0].CreateDate
			exclusion.TerminationDate = actions[0].TerminationDate
		}
		result.Exclusions = append(result.Exclusions, exclusion)
	}
	return result, nil
}

func (c *SAMClient) ready() error {
	if c == nil || c.Gateway == nil {
		return errors.New("sam client is not configured")
	}
	if strings.TrimSpace(c.APIKey) == "" {
		return errors.New("SAM API key is not configured; set the sam.api_key config or CAPTURE_SAM_API_KEY")
	}
	return nil
}

func (c *SAMClient) now() time.Time {
	if c != nil && c.Clock != nil {
		return c.Clock()
	}
	return time.Now().UTC()
}
