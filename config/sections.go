package config

import (
	"fmt"
	"math/rand"
	"time"

	"github.com/kilianp07/cityguard/core/grid"
)

// GridConfig controls the generated city map.
type GridConfig struct {
	Width           int     `json:"width"`
	Height          int     `json:"height"`
	ObstacleDensity float64 `json:"obstacle_density"`
	CongestionZones int     `json:"congestion_zones"`
	ZoneMinRadius   int     `json:"zone_min_radius"`
	ZoneMaxRadius   int     `json:"zone_max_radius"`
	// Seed makes generation reproducible. Zero picks a time based seed.
	Seed int64 `json:"seed"`
}

// SetDefaults applies the reference 30x30 map.
func (c *GridConfig) SetDefaults() {
	if c.Width <= 0 {
		c.Width = 30
	}
	if c.Height <= 0 {
		c.Height = 30
	}
	if c.ObstacleDensity == 0 {
		c.ObstacleDensity = 0.2
	}
	if c.CongestionZones == 0 {
		c.CongestionZones = 5
	}
	if c.ZoneMinRadius <= 0 {
		c.ZoneMinRadius = 1
	}
	if c.ZoneMaxRadius <= 0 {
		c.ZoneMaxRadius = 3
	}
}

// Validate checks mandatory fields.
func (c GridConfig) Validate() error {
	if c.Width < 0 || c.Height < 0 {
		return fmt.Errorf("size must not be negative")
	}
	if c.ObstacleDensity < 0 || c.ObstacleDensity >= 1 {
		return fmt.Errorf("obstacle_density must be in [0,1)")
	}
	if c.CongestionZones < 0 {
		return fmt.Errorf("congestion_zones must not be negative")
	}
	if c.ZoneMaxRadius > 0 && c.ZoneMinRadius > c.ZoneMaxRadius {
		return fmt.Errorf("zone_min_radius exceeds zone_max_radius")
	}
	return nil
}

// Options converts the section into generation options.
func (c GridConfig) Options() grid.Options {
	seed := c.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return grid.Options{
		ObstacleDensity: c.ObstacleDensity,
		CongestionZones: c.CongestionZones,
		ZoneMinRadius:   c.ZoneMinRadius,
		ZoneMaxRadius:   c.ZoneMaxRadius,
		Rand:            rand.New(rand.NewSource(seed)),
	}
}

// Fleet modes.
const (
	FleetSimulated = "simulated"
	FleetMQTT      = "mqtt"
)

// FleetConfig selects where observers come from.
type FleetConfig struct {
	Mode        string  `json:"mode"`
	Size        int     `json:"size"`
	FailureRate float64 `json:"failure_rate"`
	LayoutFile  string  `json:"layout_file"`
	// DiscoveryMS is how long an mqtt fleet waits for discovery answers.
	DiscoveryMS int `json:"discovery_ms"`
}

// SetDefaults fills unset fields.
func (c *FleetConfig) SetDefaults() {
	if c.Mode == "" {
		c.Mode = FleetSimulated
	}
	if c.Size <= 0 {
		c.Size = 20
	}
	if c.DiscoveryMS <= 0 {
		c.DiscoveryMS = 2000
	}
}

// Validate checks mandatory fields.
func (c FleetConfig) Validate() error {
	switch c.Mode {
	case "", FleetSimulated, FleetMQTT:
	default:
		return fmt.Errorf("unknown mode %q", c.Mode)
	}
	if c.FailureRate < 0 || c.FailureRate > 1 {
		return fmt.Errorf("failure_rate must be in [0,1]")
	}
	if c.Size < 0 {
		return fmt.Errorf("size must not be negative")
	}
	return nil
}

// DiscoveryWait returns the discovery window.
func (c FleetConfig) DiscoveryWait() time.Duration {
	return time.Duration(c.DiscoveryMS) * time.Millisecond
}

// Selection policies.
const (
	PolicyTopK = "topk"
	PolicyLLM  = "llm"
)

// SelectionConfig chooses and tunes the selection policy.
type SelectionConfig struct {
	Policy         string  `json:"policy"`
	DistanceWeight float64 `json:"distance_weight"`
	SpeedWeight    float64 `json:"speed_weight"`
}

// SetDefaults fills unset fields.
func (c *SelectionConfig) SetDefaults() {
	if c.Policy == "" {
		c.Policy = PolicyTopK
	}
	if c.DistanceWeight == 0 && c.SpeedWeight == 0 {
		c.DistanceWeight = 0.7
		c.SpeedWeight = 0.3
	}
}

// Validate checks mandatory fields.
func (c SelectionConfig) Validate() error {
	switch c.Policy {
	case "", PolicyTopK, PolicyLLM:
	default:
		return fmt.Errorf("unknown policy %q", c.Policy)
	}
	if c.DistanceWeight < 0 || c.SpeedWeight < 0 {
		return fmt.Errorf("weights must not be negative")
	}
	return nil
}

// APIConfig configures the HTTP API started by the serve command.
type APIConfig struct {
	Addr string `json:"addr"`
	// Token, when set, is required as a bearer token on every request.
	Token string `json:"token"`
}

// SetDefaults fills unset fields.
func (c *APIConfig) SetDefaults() {
	if c.Addr == "" {
		c.Addr = ":8080"
	}
}
