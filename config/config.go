package config

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/knadh/koanf/parsers/json"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"github.com/kilianp07/cityguard/core/dispatch"
	"github.com/kilianp07/cityguard/core/escalation"
	"github.com/kilianp07/cityguard/core/factory"
	"github.com/kilianp07/cityguard/core/metrics"
	"github.com/kilianp07/cityguard/infra/llm"
	"github.com/kilianp07/cityguard/infra/logger"
	"github.com/kilianp07/cityguard/infra/mqtt"
)

type Config struct {
	Grid       GridConfig           `json:"grid"`
	Escalation escalation.Config    `json:"escalation"`
	Dispatch   dispatch.Config      `json:"dispatch"`
	Store      factory.ModuleConfig `json:"store"`
	Metrics    metrics.Config       `json:"metrics"`
	Logging    logger.Options       `json:"logging"`
	Fleet      FleetConfig          `json:"fleet"`
	MQTT       mqtt.Config          `json:"mqtt"`
	LLM        llm.Config           `json:"llm"`
	Selection  SelectionConfig      `json:"selection"`
	API        APIConfig            `json:"api"`
}

// Default returns a configuration with every section defaulted.
func Default() *Config {
	var cfg Config
	cfg.SetDefaults()
	return &cfg
}

// Load reads path (yaml or json by extension) and then applies K_
// environment overrides, for example K_ESCALATION__MAX_ITERATIONS=5. An
// empty path loads defaults plus the environment.
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
	if err := k.Load(env.Provider("K_", ".", func(s string) string {
		s = strings.TrimPrefix(strings.ToLower(s), "k_")
		return strings.ReplaceAll(s, "__", ".")
	}), nil); err != nil {
		return nil, err
	}
	var cfg Config
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "json"}); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	cfg.SetDefaults()
	return &cfg, nil
}

// SetDefaults fills every section.
func (c *Config) SetDefaults() {
	c.Grid.SetDefaults()
	c.Escalation.SetDefaults()
	c.Dispatch.SetDefaults()
	if c.Store.Type == "" {
		c.Store.Type = "memory"
	}
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	c.Fleet.SetDefaults()
	c.MQTT.SetDefaults()
	c.LLM.SetDefaults()
	c.Selection.SetDefaults()
	c.API.SetDefaults()
}

// Validate checks every section.
func (c Config) Validate() error {
	checks := []struct {
		section string
		err     error
	}{
		{"grid", c.Grid.Validate()},
		{"escalation", c.Escalation.Validate()},
		{"dispatch", c.Dispatch.Validate()},
		{"fleet", c.Fleet.Validate()},
		{"mqtt", c.MQTT.Validate()},
		{"llm", c.LLM.Validate()},
		{"selection", c.Selection.Validate()},
	}
	for _, ch := range checks {
		if ch.err != nil {
			return fmt.Errorf("%s: %w", ch.section, ch.err)
		}
	}
	switch c.Logging.Level {
	case "", "trace", "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging: unknown level %q", c.Logging.Level)
	}
	if c.Selection.Policy == PolicyLLM && !c.LLM.Enabled {
		return fmt.Errorf("selection: policy llm needs llm.enabled")
	}
	return nil
}
