package cmd

import (
	"github.com/blencorp/capture-mcp-server/internal/config"
	"github.com/blencorp/capture-mcp-server/internal/core"
	"github.com/blencorp/capture-mcp-server/internal/core/engine"
	"github.com/blencorp/capture-mcp-server/internal/core/gateway"
	"github.com/blencorp/capture-mcp-server/internal/core/shaper"
	"github.com/blencorp/capture-mcp-server/internal/tools"
)

// buildRegistry wires the gateway, the three upstream clients, and the
// join engine into a tool registry. Both serve and call go through this
// so one-shot invocations get the same pacing and validation as the
// server.
func buildRegistry(cfg *config.Config) *tools.Registry {
	gw := gateway.New(gateway.Intervals{
		core.FamilySAM:        cfg.SAM.Interval,
		core.FamilySpending:   cfg.Spending.Interval,
		core.FamilyAggregator: cfg.Aggregator.Interval,
	}, cfg.Gateway.Timeout)

	sam := &shaper.SAMClient{
		Gateway: gw,
		BaseURL: cfg.SAM.BaseURL,
		APIKey:  cfg.SAM.APIKey,
	}
	spending := &shaper.SpendingClient{
		Gateway: gw,
		BaseURL: cfg.Spending.BaseURL,
	}
	aggregator := &shaper.AggregatorClient{
		Gateway: gw,
		BaseURL: cfg.Aggregator.BaseURL,
		APIKey:  cfg.Aggregator.APIKey,
	}

	return &tools.Registry{
		SAM:        sam,
		Spending:   spending,
		Aggregator: aggregator,
		Correlator: &engine.Correlator{SAM: sam, Spending: spending},
	}
}
