// Package shaper maps each upstream API family into compact,
// consistently named result shapes. One client per family: SAM.gov
// (entities, opportunities, exclusions), USASpending.gov (awards,
// category spending, budgets, recipients), and the unified aggregator
// (contracts, grants, vendors, spending summaries). Every upstream
// call goes through the gateway; validation happens before any
// network traffic.
package shaper

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"strings"

	"github.com/blencorp/capture-mcp-server/internal/core"
)

const userAgent = "capture-mcp-server (github.com/blencorp/capture-mcp-server)"

// Caller issues one gated upstream call. Satisfied by *gateway.Gateway;
// tests substitute spies.
type Caller interface {
	Call(ctx context.Context, family core.Family, req *http.Request) *core.APIResponse
}

func getRequest(base, path string, query url.Values) (*http.Request, error) {
	target, err := url.Parse(strings.TrimRight(base, "/") + path)
	if err != nil {
		return nil, err
	}
	if len(query) > 0 {
		target.RawQuery = query.Encode()
	}

	req, err := http.NewRequest(http.MethodGet, target.String(), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", userAgent)
	return req, nil
}

func postRequest(base, path string, payload any) (*http.Request, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequest(http.MethodPost, strings.TrimRight(base, "/")+path, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", userAgent)
	return req, nil
}

// upstreamError passes a gateway failure through verbatim.
func upstreamError(resp *core.APIResponse) *core.ToolError {
	return &core.ToolError{Error: resp.Error}
}

func decodeError(family core.Family, err error) *core.ToolError {
	return &core.ToolError{
		Error:   "could not parse " + string(family) + " API response",
		Details: err.Error(),
	}
}
