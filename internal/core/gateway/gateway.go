// Package gateway paces every outbound upstream call. Each API family
// owns an independent FIFO queue: a caller chains itself onto the
// family tail, waits for the previous caller to clear the gate, sleeps
// out the remainder of the family's minimum interval, stamps the new
// release time, and only then hands the gate to the next waiter. The
// HTTP request itself runs outside the gate, so slow responses never
// stall the queue.
package gateway

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/blencorp/capture-mcp-server/internal/core"
	"github.com/blencorp/capture-mcp-server/internal/metrics"
)

// DefaultTimeout bounds each upstream HTTP call.
const DefaultTimeout = 30 * time.Second

// Intervals maps each family to its minimum spacing between released calls.
type Intervals map[core.Family]time.Duration

// DefaultIntervals holds the fixed per-family pacing configuration.
// The spending family targets roughly 1000 calls per hour.
var DefaultIntervals = Intervals{
	core.FamilySAM:        100 * time.Millisecond,
	core.FamilySpending:   3600 * time.Millisecond,
	core.FamilyAggregator: 100 * time.Millisecond,
}

type familyState struct {
	mu   sync.Mutex
	tail chan struct{}

	// last is written only by the goroutine holding the gate;
	// the next holder observes it through the closed tail channel.
	last     time.Time
	interval time.Duration
}

// Gateway spaces calls per upstream family and classifies failures.
// Construct one per process and inject it into every shaper.
type Gateway struct {
	Client *http.Client
	Clock  func() time.Time

	states map[core.Family]*familyState
}

// New builds a gateway with the given pacing intervals. Families absent
// from intervals fall back to DefaultIntervals.
func New(intervals Intervals, timeout time.Duration) *Gateway {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	states := make(map[core.Family]*familyState, len(core.Families))
	for _, family := range core.Families {
		interval, ok := intervals[family]
		if !ok {
			interval = DefaultIntervals[family]
		}
		sentinel := make(chan struct{})
		close(sentinel)
		states[family] = &familyState{tail: sentinel, interval: interval}
	}

	return &Gateway{
		Client: &http.Client{Timeout: timeout},
		states: states,
	}
}

// Call sends one HTTP request through the family's pacing gate and
// returns a classified APIResponse. It never returns upstream
// conditions as Go errors: non-2xx statuses, transport failures, and
// unsendable requests all surface inside the response.
func (g *Gateway) Call(ctx context.Context, family core.Family, req *http.Request) *core.APIResponse {
	if req == nil {
		return core.APIError("request could not be constructed")
	}
	if ctx == nil {
		ctx = context.Background()
	}

	state, ok := g.states[family]
	if !ok {
		return core.APIError(fmt.Sprintf("unknown API family %q", family))
	}

	if err := g.pace(ctx, state, family); err != nil {
		return core.APIError(fmt.Sprintf("request aborted before send: %v", err))
	}

	resp, err := g.client().Do(req.WithContext(ctx))
	if err != nil {
		metrics.RecordUpstreamRequest(string(family), 0)
		return core.APIError(fmt.Sprintf("network error calling %s API: %v", family, err))
	}
	defer resp.Body.Close() // nolint:errcheck // best-effort cleanup on HTTP response body

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		metrics.RecordUpstreamRequest(string(family), 0)
		return core.APIError(fmt.Sprintf("network error calling %s API: reading response: %v", family, err))
	}

	metrics.RecordUpstreamRequest(string(family), resp.StatusCode)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return core.APIError(fmt.Sprintf("%s API returned status %d: %s", family, resp.StatusCode, strings.TrimSpace(string(body))))
	}

	return core.APISuccess(body)
}

// pace enqueues the caller on the family's FIFO chain and sleeps out
// whatever remains of the minimum interval since the previous release.
// Waiters are released strictly in arrival order; each one measures its
// delay against the timestamp left by the waiter before it, so delays
// compound serially rather than expiring together.
func (g *Gateway) pace(ctx context.Context, state *familyState, family core.Family) error {
	state.mu.Lock()
	prev := state.tail
	gate := make(chan struct{})
	state.tail = gate
	state.mu.Unlock()

	select {
	case <-prev:
	case <-ctx.Done():
		// Hand the gate off only once the predecessor has cleared,
		// otherwise the successor would jump the queue.
		go func() {
			<-prev
			close(gate)
		}()
		return ctx.Err()
	}

	// The gate must always be handed off, even on an abandoned wait,
	// or every later caller for this family deadlocks.
	defer close(gate)

	waited := time.Duration(0)
	if !state.last.IsZero() {
		elapsed := g.now().Sub(state.last)
		if remaining := state.interval - elapsed; remaining > 0 {
			waited = remaining
			timer := time.NewTimer(remaining)
			defer timer.Stop()
			select {
			case <-timer.C:
			case <-ctx.Done():
				return ctx.Err()
			}
		}
	}

	state.last = g.now()
	metrics.RecordGateWait(string(family), waited)
	return nil
}

// Interval reports the configured minimum spacing for a family.
func (g *Gateway) Interval(family core.Family) time.Duration {
	if state, ok := g.states[family]; ok {
		return state.interval
	}
	return 0
}

func (g *Gateway) client() *http.Client {
	if g != nil && g.Client != nil {
		return g.Client
	}
	return &http.Client{Timeout: DefaultTimeout}
}

func (g *Gateway) now() time.Time {
	if g != nil && g.Clock != nil {
		return g.Clock()
	}
	return time.Now().UTC()
}
