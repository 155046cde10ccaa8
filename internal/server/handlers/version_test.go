package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVersionHandler(t *testing.T) {
	SetVersionInfo("1.4.0", "abc1234", "2026-08-01T00:00:00Z")
	t.Cleanup(func() { SetVersionInfo("dev", "unknown", "unknown") })

	req := httptest.NewRequest(http.MethodGet, "/version", nil)
	recorder := httptest.NewRecorder()
	VersionHandler(recorder, req)

	require.Equal(t, http.StatusOK, recorder.Code)
	assert.Equal(t, "application/json", recorder.Header().Get("Content-Type"))

	var response VersionResponse
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &response))

	assert.Equal(t, "capture-mcp", response.App.Name)
	assert.Equal(t, "1.4.0", response.App.Version)
	assert.Equal(t, "abc1234", response.App.Commit)
	assert.NotEmpty(t, response.App.GoVersion)
	assert.NotEmpty(t, response.Runtime.Platform)
	assert.Greater(t, response.Runtime.NumCPU, 0)
}
