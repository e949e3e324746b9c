package config

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/knadh/koanf/parsers/json"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"github.com/kilianp07/cellsched/core/metrics"
	"github.com/kilianp07/cellsched/core/scheduler"
	"github.com/kilianp07/cellsched/infra/mqtt"
)

// EnvPrefix marks environment overrides, e.g. CS_STORE__BACKEND=sqlite.
const EnvPrefix = "CS_"

type Config struct {
	Scheduler scheduler.Config `json:"scheduler"`
	Snapshot  SnapshotConfig   `json:"snapshot"`
	Store     StoreConfig      `json:"store"`
	Metrics   metrics.Config   `json:"metrics"`
	RunLog    RunLogConfig     `json:"run_log"`
	Sentry    SentryConfig     `json:"sentry"`
	MQTT      mqtt.Config      `json:"mqtt"`
	API       APIConfig        `json:"api"`
	Trigger   TriggerConfig    `json:"trigger"`
}

// Load reads the configuration file at path, applies CS_ environment
// overrides, then defaults, and validates the result. An empty path loads
// the environment only.
func Load(path string) (*Config, error) {
	k := koanf.New(".")
	if path != "" {
		ext := strings.ToLower(filepath.Ext(path))
		var parser koanf.Parser
		switch ext {
		case ".yaml", ".yml":
			parser = yaml.Parser()
		case ".json":
			parser = json.Parser()
		default:
			return nil, fmt.Errorf("unsupported config format: %s", ext)
		}
		if err := k.Load(file.Provider(path), parser); err != nil {
			return nil, err
		}
	}
	// Optional environment overrides
	if err := k.Load(env.Provider(EnvPrefix, "__", func(s string) string {
		s = strings.TrimPrefix(strings.ToLower(s), strings.ToLower(EnvPrefix))
		return strings.ReplaceAll(s, "__", ".")
	}), nil); err != nil {
		return nil, err
	}
	var cfg Config
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "json"}); err != nil {
		return nil, err
	}
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Default returns a configuration with every default applied.
func Default() *Config {
	var cfg Config
	cfg.SetDefaults()
	return &cfg
}

// SetDefaults applies the defaults of every section.
func (c *Config) SetDefaults() {
	c.Scheduler.SetDefaults()
	c.Snapshot.SetDefaults()
	c.Store.SetDefaults()
	c.RunLog.SetDefaults()
	c.MQTT.SetDefaults()
	c.API.SetDefaults()
}

// Validate checks every section and reports all problems at once.
func (c Config) Validate() error {
	var errs []error
	add := func(section string, err error) {
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", section, err))
		}
	}
	add("scheduler", c.Scheduler.Validate())
	add("store", c.Store.Validate())
	add("metrics", c.Metrics.Validate())
	add("run_log", c.RunLog.Validate())
	add("mqtt", c.MQTT.Validate())
	add("api", c.API.Validate())
	add("trigger", c.Trigger.Validate())
	return errors.Join(errs...)
}
