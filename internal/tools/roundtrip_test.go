package tools

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/blencorp/capture-mcp-server/internal/core"
	"github.com/blencorp/capture-mcp-server/internal/core/gateway"
	"github.com/blencorp/capture-mcp-server/internal/core/shaper"
)

// Exercises the full path: dispatch → shaper → paced gateway → live
// HTTP upstream → shaped result.
func TestAgencyAwardsRoundTrip(t *testing.T) {
	var hits atomic.Int32
	var capturedPath string
	var capturedBody map[string]any

	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		capturedPath = r.URL.Path
		body, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(body, &capturedBody)

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"results": [
			{"Award ID": "CONT_AWD_1", "Recipient Name": "Acme Federal LLC", "Award Amount": 3000000,
			 "Awarding Agency": "Department of Health and Human Services", "Award Type": "Definitive Contract"},
			{"Award ID": "CONT_AWD_2", "Recipient Name": "Beta Systems Inc", "Award Amount": 2000000,
			 "Awarding Agency": "Department of Health and Human Services", "Award Type": "Definitive Contract"}
		]}`))
	}))
	defer upstream.Close()

	gw := gateway.New(gateway.Intervals{
		core.FamilySpending: time.Millisecond,
	}, 5*time.Second)

	registry := &Registry{
		Spending: &shaper.SpendingClient{
			Gateway: gw,
			BaseURL: upstream.URL,
			Clock: func() time.Time {
				return time.Date(2025, 6, 15, 0, 0, 0, 0, time.UTC)
			},
		},
	}

	result, err := registry.Dispatch(context.Background(), GetAgencyAwards, map[string]any{
		"agency_code": "075",
		"fiscal_year": float64(2024),
		"limit":       float64(5),
	})
	require.NoError(t, err)
	require.Equal(t, int32(1), hits.Load())

	assert.Equal(t, "/api/v2/search/spending_by_award/", capturedPath)
	filters, ok := capturedBody["filters"].(map[string]any)
	require.True(t, ok)
	window := filters["time_period"].([]any)[0].(map[string]any)
	assert.Equal(t, "2023-10-01", window["start_date"])
	assert.Equal(t, "2024-09-30", window["end_date"])

	awards, ok := result.(*shaper.AgencyAwardsResult)
	require.True(t, ok)
	assert.Equal(t, "075", awards.AgencyCode)
	assert.Equal(t, 2024, awards.FiscalYear)
	assert.Equal(t, 2, awards.TotalAwards)
	assert.InDelta(t, 5_000_000, awards.TotalAmount, 0.01)
	assert.Equal(t, "Acme Federal LLC", awards.AwardsSummary[0].Recipient)
}
