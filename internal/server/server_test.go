package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/blencorp/capture-mcp-server/internal/config"
	"github.com/blencorp/capture-mcp-server/internal/core"
	"github.com/blencorp/capture-mcp-server/internal/core/engine"
	"github.com/blencorp/capture-mcp-server/internal/core/shaper"
	apperrors "github.com/blencorp/capture-mcp-server/internal/errors"
	"github.com/blencorp/capture-mcp-server/internal/server/handlers"
	"github.com/blencorp/capture-mcp-server/internal/tools"
)

type stubCaller struct {
	responses []*core.APIResponse
}

func (s *stubCaller) Call(_ context.Context, _ core.Family, _ *http.Request) *core.APIResponse {
	if len(s.responses) == 0 {
		return core.APIError("stub caller has no response queued")
	}
	resp := s.responses[0]
	s.responses = s.responses[1:]
	return resp
}

func newTestServer(caller *stubCaller) *Server {
	sam := &shaper.SAMClient{Gateway: caller, BaseURL: "https://api.sam.gov", APIKey: "sam-key"}
	spending := &shaper.SpendingClient{Gateway: caller, BaseURL: "https://api.usaspending.gov"}
	aggregator := &shaper.AggregatorClient{Gateway: caller, BaseURL: "https://agg.example.com", APIKey: "agg-key"}
	registry := &tools.Registry{
		SAM:        sam,
		Spending:   spending,
		Aggregator: aggregator,
		Correlator: &engine.Correlator{SAM: sam, Spending: spending},
	}
	return New(config.ServerConfig{Host: "127.0.0.1", Port: 0}, registry)
}

func TestServerUsesStandardErrorHandlers(t *testing.T) {
	srv := newTestServer(&stubCaller{})

	req := httptest.NewRequest(http.MethodGet, "/does-not-exist", nil)
	rec := httptest.NewRecorder()

	srv.Handler().ServeHTTP(rec, req)

	require.Equal(t, http.StatusNotFound, rec.Code)

	var body apperrors.HTTPErrorResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	assert.Equal(t, "NOT_FOUND", body.Error.Code)
}

func TestServerMethodNotAllowed(t *testing.T) {
	srv := newTestServer(&stubCaller{})

	req := httptest.NewRequest(http.MethodDelete, "/tools", nil)
	rec := httptest.NewRecorder()

	srv.Handler().ServeHTTP(rec, req)

	require.Equal(t, http.StatusMethodNotAllowed, rec.Code)

	var body apperrors.HTTPErrorResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	assert.Equal(t, "METHOD_NOT_ALLOWED", body.Error.Code)
}

func TestServerToolRoutes(t *testing.T) {
	t.Run("Catalog", func(t *testing.T) {
		srv := newTestServer(&stubCaller{})

		req := httptest.NewRequest(http.MethodGet, "/tools", nil)
		rec := httptest.NewRecorder()
		srv.Handler().ServeHTTP(rec, req)

		require.Equal(t, http.StatusOK, rec.Code)

		var response handlers.CatalogResponse
		require.NoError(t, json.NewDecoder(rec.Body).Decode(&response))
		assert.Len(t, response.Tools, len(tools.All))
	})

	t.Run("Call", func(t *testing.T) {
		caller := &stubCaller{responses: []*core.APIResponse{
			core.APISuccess([]byte(`{"totalRecords": 0, "excludedEntity": []}`)),
		}}
		srv := newTestServer(caller)

		body := `{"name": "check_exclusions", "arguments": {"uei": "ABC123DEF456"}}`
		req := httptest.NewRequest(http.MethodPost, "/tools/call", strings.NewReader(body))
		rec := httptest.NewRecorder()
		srv.Handler().ServeHTTP(rec, req)

		require.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), `"clear":true`)
	})
}

func TestServerHealthRoutes(t *testing.T) {
	handlers.InitHealthManager("test")
	srv := newTestServer(&stubCaller{})

	for _, path := range []string{"/health", "/health/live", "/health/ready", "/health/startup"} {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		rec := httptest.NewRecorder()
		srv.Handler().ServeHTTP(rec, req)
		assert.Equal(t, http.StatusOK, rec.Code, "probe %s", path)
	}
}

func TestServerRequestIDHeader(t *testing.T) {
	srv := newTestServer(&stubCaller{})

	req := httptest.NewRequest(http.MethodGet, "/tools", nil)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))
}
