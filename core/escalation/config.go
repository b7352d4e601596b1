package escalation

import "fmt"

// Config bounds one query.
type Config struct {
	NearbyRadius  float64 `json:"nearby_radius"`
	FleetSize     int     `json:"fleet_size"`
	MaxIterations int     `json:"max_iterations"`
	// Verbose is forwarded to observers in every task order.
	Verbose bool `json:"verbose"`
}

// SetDefaults fills unset fields.
func (c *Config) SetDefaults() {
	if c.NearbyRadius <= 0 {
		c.NearbyRadius = 5
	}
	if c.FleetSize <= 0 {
		c.FleetSize = 3
	}
	if c.MaxIterations <= 0 {
		c.MaxIterations = 3
	}
}

// Validate checks the configuration.
func (c Config) Validate() error {
	if c.NearbyRadius < 0 {
		return fmt.Errorf("escalation.nearby_radius must not be negative")
	}
	if c.FleetSize < 0 {
		return fmt.Errorf("escalation.fleet_size must not be negative")
	}
	if c.MaxIterations < 0 {
		return fmt.Errorf("escalation.max_iterations must not be negative")
	}
	return nil
}
