package shaper

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/blencorp/capture-mcp-server/internal/core"
)

// stubCaller replays canned gateway responses and records every request
// it receives, body included, so tests can assert on what was sent.
type stubCaller struct {
	responses []*core.APIResponse
	requests  []*http.Request
	bodies    []string
}

func (s *stubCaller) Call(_ context.Context, _ core.Family, req *http.Request) *core.APIResponse {
	body := ""
	if req.Body != nil {
		raw, _ := io.ReadAll(req.Body)
		body = string(raw)
	}
	s.requests = append(s.requests, req)
	s.bodies = append(s.bodies, body)

	if len(s.responses) == 0 {
		return core.APIError("stub caller has no response queued")
	}
	resp := s.responses[0]
	s.responses = s.responses[1:]
	return resp
}

func (s *stubCaller) calls() int { return len(s.requests) }

func queueSuccess(s *stubCaller, payload string) {
	s.responses = append(s.responses, core.APISuccess([]byte(payload)))
}

func queueFailure(s *stubCaller, message string) {
	s.responses = append(s.responses, core.APIError(message))
}

func decodeBody(t *testing.T, body string) map[string]any {
	t.Helper()
	var decoded map[string]any
	require.NoError(t, json.Unmarshal([]byte(body), &decoded))
	return decoded
}
