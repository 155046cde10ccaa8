package gateway

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/blencorp/capture-mcp-server/internal/core"
)

func newTestGateway(interval time.Duration) *Gateway {
	return New(Intervals{
		core.FamilySAM:        interval,
		core.FamilySpending:   interval,
		core.FamilyAggregator: interval,
	}, 5*time.Second)
}

func TestCallSuccess(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"totalRecords":1}`))
	}))
	defer server.Close()

	g := newTestGateway(time.Millisecond)
	req, err := http.NewRequest(http.MethodGet, server.URL, nil)
	require.NoError(t, err)

	resp := g.Call(context.Background(), core.FamilySAM, req)
	require.True(t, resp.Success)
	require.Empty(t, resp.Error)
	require.JSONEq(t, `{"totalRecords":1}`, string(resp.Data))
}

func TestCallUpstreamStatusError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		_, _ = w.Write([]byte(`{"message":"API key missing"}`))
	}))
	defer server.Close()

	g := newTestGateway(time.Millisecond)
	req, err := http.NewRequest(http.MethodGet, server.URL, nil)
	require.NoError(t, err)

	resp := g.Call(context.Background(), core.FamilySAM, req)
	require.False(t, resp.Success)
	require.Nil(t, resp.Data)
	require.Contains(t, resp.Error, "status 403")
	require.Contains(t, resp.Error, "API key missing")
}

func TestCallNetworkError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	server.Close()

	g := newTestGateway(time.Millisecond)
	req, err := http.NewRequest(http.MethodGet, server.URL, nil)
	require.NoError(t, err)

	resp := g.Call(context.Background(), core.FamilySpending, req)
	require.False(t, resp.Success)
	require.Contains(t, resp.Error, "network error")
}

func TestCallNilRequest(t *testing.T) {
	g := newTestGateway(time.Millisecond)
	resp := g.Call(context.Background(), core.FamilySAM, nil)
	require.False(t, resp.Success)
	require.Contains(t, resp.Error, "could not be constructed")
}

func TestCallUnknownFamily(t *testing.T) {
	g := newTestGateway(time.Millisecond)
	req, err := http.NewRequest(http.MethodGet, "http://127.0.0.1:0", nil)
	require.NoError(t, err)

	resp := g.Call(context.Background(), core.Family("bogus"), req)
	require.False(t, resp.Success)
	require.Contains(t, resp.Error, "unknown API family")
}

func TestPacingReleasesFIFO(t *testing.T) {
	const interval = 60 * time.Millisecond

	var mu sync.Mutex
	var order []string
	var stamps []time.Time
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		order = append(order, r.Header.Get("X-Probe"))
		stamps = append(stamps, time.Now())
		mu.Unlock()
	}))
	defer server.Close()

	g := newTestGateway(interval)

	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		req, err := http.NewRequest(http.MethodGet, server.URL, nil)
		require.NoError(t, err)
		req.Header.Set("X-Probe", fmt.Sprintf("%d", i))

		wg.Add(1)
		go func(r *http.Request) {
			defer wg.Done()
			resp := g.Call(context.Background(), core.FamilySAM, r)
			require.True(t, resp.Success)
		}(req)

		// Stagger launches so arrival order at the gate is deterministic.
		time.Sleep(10 * time.Millisecond)
	}
	wg.Wait()

	require.Equal(t, []string{"0", "1", "2", "3", "4"}, order)

	// The 5th release must trail the 1st by at least four full intervals;
	// delays compound serially rather than expiring together.
	span := stamps[4].Sub(stamps[0])
	require.GreaterOrEqual(t, span, 4*interval-20*time.Millisecond)
}

func TestPacingFamiliesIndependent(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	defer server.Close()

	g := New(Intervals{
		core.FamilySAM:        time.Millisecond,
		core.FamilySpending:   500 * time.Millisecond,
		core.FamilyAggregator: time.Millisecond,
	}, 5*time.Second)

	// Occupy the spending queue with two back-to-back calls; the second
	// waits out the full spending interval.
	var wg sync.WaitGroup
	for i := 0; i < 2; i++ {
		req, err := http.NewRequest(http.MethodGet, server.URL, nil)
		require.NoError(t, err)
		wg.Add(1)
		go func(r *http.Request) {
			defer wg.Done()
			g.Call(context.Background(), core.FamilySpending, r)
		}(req)
	}

	time.Sleep(20 * time.Millisecond)

	req, err := http.NewRequest(http.MethodGet, server.URL, nil)
	require.NoError(t, err)

	start := time.Now()
	resp := g.Call(context.Background(), core.FamilySAM, req)
	elapsed := time.Since(start)

	require.True(t, resp.Success)
	require.Less(t, elapsed, 200*time.Millisecond, "sam call must not queue behind the spending family")

	wg.Wait()
}

func TestPacingCanceledWaiterKeepsChainIntact(t *testing.T) {
	const interval = 80 * time.Millisecond

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	defer server.Close()

	g := newTestGateway(interval)

	first, err := http.NewRequest(http.MethodGet, server.URL, nil)
	require.NoError(t, err)
	require.True(t, g.Call(context.Background(), core.FamilySAM, first).Success)

	// Second caller abandons its wait.
	ctx, cancel := context.WithCancel(context.Background())
	second, err := http.NewRequest(http.MethodGet, server.URL, nil)
	require.NoError(t, err)
	done := make(chan *core.APIResponse, 1)
	go func() {
		done <- g.Call(ctx, core.FamilySAM, second)
	}()
	time.Sleep(10 * time.Millisecond)
	cancel()

	resp := <-done
	require.False(t, resp.Success)
	require.Contains(t, resp.Error, "aborted before send")

	// A third caller must still get through the gate.
	third, err := http.NewRequest(http.MethodGet, server.URL, nil)
	require.NoError(t, err)
	require.True(t, g.Call(context.Background(), core.FamilySAM, third).Success)
}
