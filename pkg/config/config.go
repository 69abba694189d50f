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

// Package config defines the admissiond configuration model and its loader.
package config

import (
	"fmt"
)

// Config is the root configuration.
type Config struct {
	Server    ServerConfig               `yaml:"server" json:"server"`
	Logging   LoggingConfig              `yaml:"logging" json:"logging"`
	RateLimit *RateLimitConfig           `yaml:"rate_limiting" json:"rate_limiting"`
	Databases map[string]*DatabaseConfig `yaml:"databases,omitempty" json:"databases,omitempty"`
	Redis     *RedisConfig               `yaml:"redis,omitempty" json:"redis,omitempty"`
}

// ServerConfig configures the HTTP surface.
type ServerConfig struct {
	// Host is the bind address.
	Host string `yaml:"host,omitempty" json:"host,omitempty"`

	// Port is the listen port.
	Port int `yaml:"port,omitempty" json:"port,omitempty"`

	// Metrics enables the Prometheus /metrics endpoint.
	Metrics *bool `yaml:"metrics,omitempty" json:"metrics,omitempty"`

	// Auth configures JWT principal extraction. Optional: without it the
	// service identifies clients by network address only.
	Auth *AuthConfig `yaml:"auth,omitempty" json:"auth,omitempty"`
}

// AuthConfig configures JWT validation against an external provider.
type AuthConfig struct {
	// JWKSURL is where the provider publishes its public keys.
	JWKSURL string `yaml:"jwks_url" json:"jwks_url"`

	// Issuer is the expected token issuer.
	Issuer string `yaml:"issuer,omitempty" json:"issuer,omitempty"`

	// Audience is the expected token audience.
	Audience string `yaml:"audience,omitempty" json:"audience,omitempty"`
}

// LoggingConfig configures slog output.
type LoggingConfig struct {
	// Level is one of debug, info, warn, error.
	Level string `yaml:"level,omitempty" json:"level,omitempty"`

	// Format is "text" or "json".
	Format string `yaml:"format,omitempty" json:"format,omitempty"`
}

// RedisConfig configures the Redis window-store backend.
type RedisConfig struct {
	Addr     string `yaml:"addr" json:"addr"`
	Password string `yaml:"password,omitempty" json:"password,omitempty"`
	DB       int    `yaml:"db,omitempty" json:"db,omitempty"`
}

// BoolPtr returns a pointer to the given bool. Convenience for optional
// boolean fields.
func BoolPtr(b bool) *bool {
	return &b
}

// SetDefaults applies defaults throughout the config tree.
func (c *Config) SetDefaults() {
	if c.Server.Host == "" {
		c.Server.Host = "0.0.0.0"
	}
	if c.Server.Port == 0 {
		c.Server.Port = 8080
	}
	if c.Server.Metrics == nil {
		c.Server.Metrics = BoolPtr(true)
	}
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if c.Logging.Format == "" {
		c.Logging.Format = "text"
	}
	if c.RateLimit == nil {
		c.RateLimit = &RateLimitConfig{}
	}
	c.RateLimit.SetDefaults()
	for _, db := range c.Databases {
		db.SetDefaults()
	}
}

// Validate checks the whole config tree.
func (c *Config) Validate() error {
	if c.Server.Port < 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port %d out of range", c.Server.Port)
	}
	if c.Server.Auth != nil && c.Server.Auth.JWKSURL == "" {
		return fmt.Errorf("server.auth.jwks_url is required when auth is configured")
	}

	switch c.Logging.Level {
	case "", "debug", "info", "warn", "warning", "error":
	default:
		return fmt.Errorf("invalid logging.level %q", c.Logging.Level)
	}
	switch c.Logging.Format {
	case "", "text", "json":
	default:
		return fmt.Errorf("invalid logging.format %q (valid: text, json)", c.Logging.Format)
	}

	for name, db := range c.Databases {
		if err := db.Validate(); err != nil {
			return fmt.Errorf("databases.%s: %w", name, err)
		}
	}

	if c.RateLimit != nil {
		if err := c.RateLimit.Validate(); err != nil {
			return err
		}
		if c.RateLimit.Backend == "sql" {
			if _, ok := c.Databases[c.RateLimit.SQLDatabase]; !ok {
				return fmt.Errorf("rate_limiting.sql_database %q not found in databases", c.RateLimit.SQLDatabase)
			}
		}
		if c.RateLimit.Backend == "redis" && c.Redis == nil {
			return fmt.Errorf("rate_limiting.backend 'redis' requires a redis section")
		}
	}
	if c.Redis != nil && c.Redis.Addr == "" {
		return fmt.Errorf("redis.addr is required")
	}

	return nil
}

// GetDatabase returns the named database config.
func (c *Config) GetDatabase(name string) (*DatabaseConfig, bool) {
	db, ok := c.Databases[name]
	return db, ok
}
