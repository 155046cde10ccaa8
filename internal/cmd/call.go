package cmd

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/blencorp/capture-mcp-server/internal/config"
	errwrap "github.com/blencorp/capture-mcp-server/internal/errors"
	"github.com/blencorp/capture-mcp-server/internal/observability"
	"github.com/blencorp/capture-mcp-server/internal/output"
	"github.com/blencorp/capture-mcp-server/internal/tools"
)

var callCmd = &cobra.Command{
	Use:   "call <tool>",
	Short: "Invoke a single tool",
	Long: `Invoke one tool and print its result.

Arguments are passed with repeated --arg key=value flags, or as a raw
JSON object with --json. Tool failures (upstream errors, no matches)
are part of the result, not command failures.

Examples:
  capture-mcp call search_entities --arg name="Acme Corp"
  capture-mcp call get_entity_awards --arg uei=ABC123DEF456 --arg fiscal_year=2024
  capture-mcp call get_spending_summary --json '{"group_by": "agency"}'`,
	Args: cobra.ExactArgs(1),
	RunE: runCall,
}

func init() {
	rootCmd.AddCommand(callCmd)

	callCmd.Flags().StringArray("arg", nil, "tool argument as key=value (repeatable)")
	callCmd.Flags().String("json", "", "tool arguments as a JSON object")
	callCmd.Flags().String("output", "table", "Output format: table, json, markdown")
}

func runCall(cmd *cobra.Command, args []string) error {
	name := tools.Name(strings.TrimSpace(args[0]))
	if !name.Valid() {
		return fmt.Errorf("unknown tool: %s (run 'capture-mcp tools' to list)", args[0])
	}

	pairs, err := cmd.Flags().GetStringArray("arg")
	if err != nil {
		return err
	}
	rawJSON, err := cmd.Flags().GetString("json")
	if err != nil {
		return err
	}
	formatName, err := cmd.Flags().GetString("output")
	if err != nil {
		return err
	}
	format, err := output.ParseFormat(formatName)
	if err != nil {
		return err
	}

	toolArgs, err := collectArgs(pairs, rawJSON)
	if err != nil {
		return err
	}

	cfg := config.GetConfig()
	if cfg == nil {
		return errwrap.NewConfigInvalidError("configuration not loaded")
	}
	registry := buildRegistry(cfg)

	observability.CLILogger.Debug("Invoking tool",
		zap.String("tool", string(name)),
		zap.Int("args", len(toolArgs)))

	result, err := registry.Dispatch(cmd.Context(), name, toolArgs)
	if err != nil {
		return err
	}

	rendered, err := output.NewFormatter(format).FormatResult(string(name), result)
	if err != nil {
		return err
	}
	cmd.Println(rendered)
	return nil
}

// collectArgs merges --json and --arg inputs, with --arg pairs winning.
// Values that parse as JSON literals keep their type; everything else
// stays a string.
func collectArgs(pairs []string, rawJSON string) (map[string]any, error) {
	toolArgs := make(map[string]any)

	if rawJSON != "" {
		if err := json.Unmarshal([]byte(rawJSON), &toolArgs); err != nil {
			return nil, fmt.Errorf("invalid --json argument object: %w", err)
		}
	}

	for _, pair := range pairs {
		key, value, found := strings.Cut(pair, "=")
		if !found || key == "" {
			return nil, fmt.Errorf("invalid --arg %q: expected key=value", pair)
		}
		var parsed any
		if err := json.Unmarshal([]byte(value), &parsed); err == nil {
			toolArgs[key] = parsed
		} else {
			toolArgs[key] = value
		}
	}

	return toolArgs, nil
}
