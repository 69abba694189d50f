// Copyright 2025 The Admission Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package config

import (
	"fmt"
	"time"
)

// RateLimitConfig defines admission-control configuration.
type RateLimitConfig struct {
	// Enabled controls whether admission control is active.
	Enabled *bool `yaml:"enabled,omitempty" json:"enabled,omitempty"`

	// Backend is the window store backend ("memory", "sql", or "redis").
	Backend string `yaml:"backend,omitempty" json:"backend,omitempty"`

	// SQLDatabase references a database from the databases section.
	// Required when backend is "sql".
	SQLDatabase string `yaml:"sql_database,omitempty" json:"sql_database,omitempty"`

	// FailMode decides behavior when the store errors: "open" admits the
	// request, "closed" denies it.
	FailMode string `yaml:"fail_mode,omitempty" json:"fail_mode,omitempty"`

	// SweepInterval is how often expired window records are reclaimed.
	SweepInterval time.Duration `yaml:"sweep_interval,omitempty" json:"sweep_interval,omitempty"`

	// Policies overrides the built-in policy table. A policy listed here
	// replaces the built-in of the same name wholesale.
	Policies []PolicyConfig `yaml:"policies,omitempty" json:"policies,omitempty"`
}

// PolicyConfig overrides one named policy.
type PolicyConfig struct {
	// Name of the tier ("auth", "ai", "api", "expensive", or a new one).
	Name string `yaml:"name" json:"name"`

	// MaxRequests allowed per window.
	MaxRequests int64 `yaml:"max_requests" json:"max_requests"`

	// Window duration, e.g. "1m" or "15m".
	Window time.Duration `yaml:"window" json:"window"`
}

// IsEnabled returns true if admission control is enabled.
// Defaults to enabled: this service exists to limit.
func (c *RateLimitConfig) IsEnabled() bool {
	return c != nil && (c.Enabled == nil || *c.Enabled)
}

// SetDefaults sets default values.
func (c *RateLimitConfig) SetDefaults() {
	if c.Enabled == nil {
		c.Enabled = BoolPtr(true)
	}
	if c.Backend == "" {
		c.Backend = "memory"
	}
	if c.FailMode == "" {
		c.FailMode = "open"
	}
	if c.SweepInterval == 0 {
		c.SweepInterval = 5 * time.Minute
	}
}

// Validate validates the RateLimitConfig.
func (c *RateLimitConfig) Validate() error {
	if !c.IsEnabled() {
		return nil
	}

	switch c.Backend {
	case "", "memory", "sql", "redis":
	default:
		return fmt.Errorf("invalid rate_limiting.backend %q, must be 'memory', 'sql', or 'redis'", c.Backend)
	}

	if c.Backend == "sql" && c.SQLDatabase == "" {
		return fmt.Errorf("rate_limiting.backend 'sql' requires 'sql_database' reference")
	}

	switch c.FailMode {
	case "", "open", "closed":
	default:
		return fmt.Errorf("invalid rate_limiting.fail_mode %q, must be 'open' or 'closed'", c.FailMode)
	}

	if c.SweepInterval < 0 {
		return fmt.Errorf("rate_limiting.sweep_interval must not be negative")
	}

	for i, p := range c.Policies {
		if p.Name == "" {
			return fmt.Errorf("rate_limiting.policies[%d].name is required", i)
		}
		if p.MaxRequests <= 0 {
			return fmt.Errorf("rate_limiting.policies[%d].max_requests must be positive", i)
		}
		if p.Window <= 0 {
			return fmt.Errorf("rate_limiting.policies[%d].window must be positive", i)
		}
	}

	return nil
}
