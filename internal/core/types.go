package core

import "encoding/json"

// Family identifies an upstream API family. Each family has its own
// pacing queue in the gateway; calls to different families never block
// each other.
type Family string

const (
	// FamilySAM covers the SAM.gov entity, opportunity, and exclusion APIs.
	FamilySAM Family = "sam"
	// FamilySpending covers the USASpending.gov award APIs.
	FamilySpending Family = "spending"
	// FamilyAggregator covers the unified third-party aggregator API.
	FamilyAggregator Family = "aggregator"
)

// Families lists every defined API family.
var Families = []Family{FamilySAM, FamilySpending, FamilyAggregator}

// Valid reports whether the family is one of the defined constants.
func (f Family) Valid() bool {
	switch f {
	case FamilySAM, FamilySpending, FamilyAggregator:
		return true
	default:
		return false
	}
}

// APIResponse is the outcome of one gated upstream call. Success=false
// implies Data is nil and Error carries a human-readable classification.
// The gateway never propagates upstream conditions as Go errors.
type APIResponse struct {
	Data    json.RawMessage
	Success bool
	Error   string
}

// APIError builds a failed response.
func APIError(message string) *APIResponse {
	return &APIResponse{Success: false, Error: message}
}

// APISuccess builds a successful response carrying the raw body.
func APISuccess(data []byte) *APIResponse {
	return &APIResponse{Data: data, Success: true}
}

// ToolError is the universal failure shape returned to tool callers.
// Absence of domain fields plus presence of Error signals "this call
// did not succeed".
type ToolError struct {
	Error      string `json:"error"`
	Details    string `json:"details,omitempty"`
	Suggestion string `json:"suggestion,omitempty"`
}
