package cmd

import (
	"os"

	"github.com/fulmenhq/gofulmen/foundry"
	"github.com/fulmenhq/gofulmen/telemetry"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/blencorp/capture-mcp-server/internal/config"
	"github.com/blencorp/capture-mcp-server/internal/observability"
)

const appName = "capture-mcp"

var (
	cfgFile string
	verbose bool

	// Version info set by main package
	versionInfo struct {
		Version   string
		Commit    string
		BuildDate string
	}
)

// SetVersionInfo is called by main package to set version information
func SetVersionInfo(version, commit, buildDate string) {
	versionInfo.Version = version
	versionInfo.Commit = commit
	versionInfo.BuildDate = buildDate
}

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   appName,
	Short: "Federal procurement tool-calling server",
	Long: `capture-mcp exposes SAM.gov, USASpending.gov, and aggregator
procurement data as tool calls for LLM clients.

Use the subcommands to perform specific operations.`,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	// Disable global telemetry early to prevent config loading from emitting
	// metrics to stdout. Server mode will initialize proper telemetry later.
	disabledConfig := &telemetry.Config{Enabled: false}
	if sys, err := telemetry.NewSystem(disabledConfig); err == nil {
		telemetry.SetGlobalSystem(sys)
	}

	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "",
		"config file (default is $XDG_CONFIG_HOME/capture-mcp/config.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false,
		"verbose output (sets log level to debug)")
}

// initConfig loads the layered configuration before any command runs.
func initConfig() {
	observability.InitCLILogger(appName, verbose)

	overrides := make(map[string]any)
	if cfgFile != "" {
		fileOverrides, err := readConfigFile(cfgFile)
		if err != nil {
			ExitWithCode(observability.CLILogger, foundry.ExitConfigInvalid,
				"Failed to read config file", err)
		}
		mergeInto(overrides, fileOverrides)
	}
	if verbose {
		mergeInto(overrides, map[string]any{
			"logging": map[string]any{"level": "debug"},
		})
	}

	if _, err := config.Load(overrides); err != nil {
		ExitWithCode(observability.CLILogger, foundry.ExitConfigInvalid,
			"Failed to load configuration", err)
	}
}

// readConfigFile parses an explicit config file into an override map so it
// takes precedence over the default user config location.
func readConfigFile(path string) (map[string]any, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	overrides := make(map[string]any)
	if err := yaml.Unmarshal(data, &overrides); err != nil {
		return nil, err
	}
	return overrides, nil
}

func mergeInto(dst, src map[string]any) {
	for key, value := range src {
		if srcMap, ok := value.(map[string]any); ok {
			if dstMap, ok := dst[key].(map[string]any); ok {
				mergeInto(dstMap, srcMap)
				continue
			}
		}
		dst[key] = value
	}
}
