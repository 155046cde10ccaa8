package metrics

import (
	"strconv"
	"time"

	"github.com/blencorp/capture-mcp-server/internal/observability"
)

// Metric names following Prometheus conventions
var (
	ToolCallsTotal        = "app_tool_calls_total"
	UpstreamRequestsTotal = "app_upstream_requests_total"
	GateWaitDuration      = "app_gate_wait_duration_ms"
	HealthCheckTotal      = "app_health_check_total"
	HealthCheckDuration   = "app_health_check_duration_ms"
	ServerStartTime       = "app_server_start_time_seconds"
)

// RecordToolCall records a tool invocation with its outcome.
func RecordToolCall(tool string, success bool) {
	status := "success"
	if !success {
		status = "failure"
	}

	if observability.TelemetrySystem != nil {
		_ = observability.TelemetrySystem.Counter(
			ToolCallsTotal,
			1,
			map[string]string{
				"tool":   tool,
				"status": status,
			},
		)
	}
}

// RecordUpstreamRequest records one gated upstream HTTP call. A status
// of 0 denotes a transport failure with no response.
func RecordUpstreamRequest(family string, status int) {
	outcome := "network_error"
	if status >= 200 && status <= 299 {
		outcome = "ok"
	} else if status > 0 {
		outcome = "http_" + strconv.Itoa(status)
	}

	if observability.TelemetrySystem != nil {
		_ = observability.TelemetrySystem.Counter(
			UpstreamRequestsTotal,
			1,
			map[string]string{
				"family":  family,
				"outcome": outcome,
			},
		)
	}
}

// RecordGateWait records how long a caller was paced at a family gate.
func RecordGateWait(family string, wait time.Duration) {
	if observability.TelemetrySystem != nil {
		_ = observability.TelemetrySystem.Histogram(
			GateWaitDuration,
			wait,
			map[string]string{
				"family": family,
			},
		)
	}
}

// RecordHealthCheck records a health check execution.
func RecordHealthCheck(checkName string, healthy bool, duration time.Duration) {
	status := "healthy"
	if !healthy {
		status = "unhealthy"
	}

	if observability.TelemetrySystem != nil {
		_ = observability.TelemetrySystem.Counter(
			HealthCheckTotal,
			1,
			map[string]string{
				"check":  checkName,
				"status": status,
			},
		)

		_ = observability.TelemetrySystem.Histogram(
			HealthCheckDuration,
			duration,
			map[string]string{
				"check": checkName,
			},
		)
	}
}

// SetServerStartTime records the server start time (Unix timestamp).
func SetServerStartTime(timestamp int64) {
	if observability.TelemetrySystem != nil {
		_ = observability.TelemetrySystem.Gauge(
			ServerStartTime,
			float64(timestamp),
			nil,
		)
	}
}
