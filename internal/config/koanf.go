package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// DefaultConfigPaths lists the paths searched for a config file, in
// priority order. The first one found wins.
var DefaultConfigPaths = []string{
	"config.yaml",
	"config.yml",
	"/etc/svcgraph/config.yaml",
	"/etc/svcgraph/config.yml",
}

// ConfigPathEnvVar overrides the search above with an explicit path.
const ConfigPathEnvVar = "CONFIG_PATH"

// LoadWithKoanf loads the demo's configuration with three-layer
// precedence: struct defaults, then an optional YAML file, then
// environment variables (highest priority), exactly the order the
// teacher's internal/config/koanf.go composes for its own, much larger,
// Config.
func LoadWithKoanf() (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(defaultConfig(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("config: load defaults: %w", err)
	}

	if path := findConfigFile(); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("config: load file %s: %w", path, err)
		}
	}

	envProvider := env.Provider("SVCGRAPH_", ".", envTransformFunc)
	if err := k.Load(envProvider, nil); err != nil {
		return nil, fmt.Errorf("config: load environment: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("config: unmarshal: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config: validate: %w", err)
	}

	return cfg, nil
}

func findConfigFile() string {
	if envPath := os.Getenv(ConfigPathEnvVar); envPath != "" {
		if _, err := os.Stat(envPath); err == nil {
			return envPath
		}
	}
	for _, path := range DefaultConfigPaths {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}

// envTransformFunc maps SVCGRAPH_KEEPALIVE_PING_INTERVAL to
// keepalive.ping_interval, the same SCREAMING_SNAKE -> dotted.path
// transform the teacher's envTransformFunc performs, minus the
// legacy-name remapping table that existed only for its product's
// historical env var names.
func envTransformFunc(key string) string {
	key = strings.TrimPrefix(key, "SVCGRAPH_")
	key = strings.ToLower(key)
	parts := strings.SplitN(key, "_", 2)
	if len(parts) != 2 {
		return key
	}
	switch parts[0] {
	case "keepalive", "reconnect", "supervisor", "channels", "logging":
		return parts[0] + "." + parts[1]
	default:
		return key
	}
}

// GetKoanfInstance is not exposed here: the demo has no need to poke at
// the underlying *koanf.Koanf after loading, unlike the teacher's
// WatchConfigFile-based hot reload (dropped along with the config
// sections it watched).
