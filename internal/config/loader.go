// Package config provides centralized configuration management. It
// merges three layers: embedded defaults, an optional user config file
// discovered via XDG paths, and environment variables plus runtime
// overrides.
package config

import (
	_ "embed"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	gfconfig "github.com/fulmenhq/gofulmen/config"
	"github.com/go-viper/mapstructure/v2"
	"gopkg.in/yaml.v3"
)

//go:embed defaults.yaml
var defaultsYAML []byte

const (
	appName   = "capture-mcp"
	envPrefix = "CAPTURE_"
)

var (
	appConfig *Config
	configMu  sync.RWMutex
)

// EnvVarSpec defines environment variable mappings for config fields
// following the pattern: {PREFIX}{NAME} maps to config path
type EnvVarSpec = gfconfig.EnvVarSpec

// Environment variable types
const (
	EnvString = gfconfig.EnvString
	EnvInt    = gfconfig.EnvInt
	EnvBool   = gfconfig.EnvBool
)

// Load merges the config layers and decodes them into a typed Config.
// It is safe to call multiple times (e.g. for config reload).
func Load(runtimeOverrides ...map[string]any) (*Config, error) {
	merged := map[string]any{}
	if err := yaml.Unmarshal(defaultsYAML, &merged); err != nil {
		return nil, fmt.Errorf("failed to parse embedded defaults: %w", err)
	}

	userLayer, err := loadUserConfig()
	if err != nil {
		return nil, err
	}
	deepMerge(merged, userLayer)

	envOverrides, err := gfconfig.LoadEnvOverrides(getEnvSpecs())
	if err != nil {
		return nil, fmt.Errorf("failed to load environment overrides: %w", err)
	}
	deepMerge(merged, envOverrides)

	for _, overrides := range runtimeOverrides {
		deepMerge(merged, overrides)
	}

	cfg, err := decode(merged)
	if err != nil {
		return nil, err
	}

	setConfig(cfg)
	return cfg, nil
}

// GetConfig returns the current application configuration (thread-safe)
func GetConfig() *Config {
	configMu.RLock()
	defer configMu.RUnlock()
	return appConfig
}

// setConfig updates the current configuration (thread-safe)
func setConfig(cfg *Config) {
	configMu.Lock()
	defer configMu.Unlock()
	appConfig = cfg
}

// DefaultConfigPath returns the XDG-compliant path to the user config file.
func DefaultConfigPath() string {
	configDir := gfconfig.GetAppConfigDir(appName)
	if strings.TrimSpace(configDir) == "" {
		return ""
	}
	return filepath.Join(configDir, "config.yaml")
}

// loadUserConfig reads the first user config file that exists. A
// missing file is not an error; a malformed one is.
func loadUserConfig() (map[string]any, error) {
	for _, path := range gfconfig.GetAppConfigPaths(appName) {
		raw, err := os.ReadFile(path)
		if err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}

		layer := map[string]any{}
		if err := yaml.Unmarshal(raw, &layer); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
		return layer, nil
	}
	return map[string]any{}, nil
}

func decode(merged map[string]any) (*Config, error) {
	cfg := &Config{}
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           cfg,
		WeaklyTypedInput: true,
		DecodeHook: mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
			mapstructure.StringToFloat64HookFunc(),
		),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create decoder: %w", err)
	}

	if err := decoder.Decode(merged); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	return cfg, nil
}

// deepMerge overlays src onto dst, merging nested maps and replacing
// everything else.
func deepMerge(dst, src map[string]any) {
	for key, value := range src {
		srcMap, srcOK := value.(map[string]any)
		dstMap, dstOK := dst[key].(map[string]any)
		if srcOK && dstOK {
			deepMerge(dstMap, srcMap)
			continue
		}
		dst[key] = value
	}
}

// getEnvSpecs returns environment variable specifications for config
// mapping. Maps {PREFIX}{NAME} environment variables to config paths.
func getEnvSpecs() []EnvVarSpec {
	return []EnvVarSpec{
		// Server config
		{Name: envPrefix + "HOST", Path: []string{"server", "host"}, Type: EnvString},
		{Name: envPrefix + "PORT", Path: []string{"server", "port"}, Type: EnvInt},
		// Duration fields are parsed as strings and converted by mapstructure decode hook
		{Name: envPrefix + "READ_TIMEOUT", Path: []string{"server", "read_timeout"}, Type: EnvString},
		{Name: envPrefix + "WRITE_TIMEOUT", Path: []string{"server", "write_timeout"}, Type: EnvString},
		{Name: envPrefix + "IDLE_TIMEOUT", Path: []string{"server", "idle_timeout"}, Type: EnvString},
		{Name: envPrefix + "SHUTDOWN_TIMEOUT", Path: []string{"server", "shutdown_timeout"}, Type: EnvString},

		// Upstream families
		{Name: envPrefix + "SAM_BASE_URL", Path: []string{"sam", "base_url"}, Type: EnvString},
		{Name: envPrefix + "SAM_API_KEY", Path: []string{"sam", "api_key"}, Type: EnvString},
		{Name: envPrefix + "SAM_INTERVAL", Path: []string{"sam", "interval"}, Type: EnvString},
		{Name: envPrefix + "SPENDING_BASE_URL", Path: []string{"spending", "base_url"}, Type: EnvString},
		{Name: envPrefix + "SPENDING_INTERVAL", Path: []string{"spending", "interval"}, Type: EnvString},
		{Name: envPrefix + "AGGREGATOR_BASE_URL", Path: []string{"aggregator", "base_url"}, Type: EnvString},
		{Name: envPrefix + "AGGREGATOR_API_KEY", Path: []string{"aggregator", "api_key"}, Type: EnvString},
		{Name: envPrefix + "AGGREGATOR_INTERVAL", Path: []string{"aggregator", "interval"}, Type: EnvString},

		// Gateway config
		{Name: envPrefix + "GATEWAY_TIMEOUT", Path: []string{"gateway", "timeout"}, Type: EnvString},

		// Logging config
		{Name: envPrefix + "LOG_LEVEL", Path: []string{"logging", "level"}, Type: EnvString},
		{Name: envPrefix + "LOG_PROFILE", Path: []string{"logging", "profile"}, Type: EnvString},

		// Metrics config
		{Name: envPrefix + "METRICS_ENABLED", Path: []string{"metrics", "enabled"}, Type: EnvBool},
		{Name: envPrefix + "METRICS_PORT", Path: []string{"metrics", "port"}, Type: EnvInt},

		// Health config
		{Name: envPrefix + "HEALTH_ENABLED", Path: []string{"health", "enabled"}, Type: EnvBool},

		// Debug config
		{Name: envPrefix + "DEBUG_ENABLED", Path: []string{"debug", "enabled"}, Type: EnvBool},
		{Name: envPrefix + "DEBUG_PPROF_ENABLED", Path: []string{"debug", "pprof_enabled"}, Type: EnvBool},
	}
}
