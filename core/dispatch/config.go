package dispatch

import (
	"fmt"
	"time"
)

// DefaultWorkers bounds the per-round worker pool when no size is configured.
const DefaultWorkers = 5

// Config controls the dispatcher worker pool.
type Config struct {
	Workers            int `json:"workers"`
	TaskTimeoutSeconds int `json:"task_timeout_seconds"`
}

// SetDefaults fills unset fields.
func (c *Config) SetDefaults() {
	if c.Workers <= 0 {
		c.Workers = DefaultWorkers
	}
}

// Validate checks the configuration.
func (c Config) Validate() error {
	if c.Workers < 0 {
		return fmt.Errorf("dispatch.workers must be positive")
	}
	if c.TaskTimeoutSeconds < 0 {
		return fmt.Errorf("dispatch.task_timeout_seconds must not be negative")
	}
	return nil
}

// TaskTimeout returns the per task timeout, zero meaning none.
func (c Config) TaskTimeout() time.Duration {
	return time.Duration(c.TaskTimeoutSeconds) * time.Second
}
