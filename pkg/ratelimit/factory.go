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

package ratelimit

import (
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/tukanos/admission/pkg/config"
)

// NewLimiterFromConfig creates a Limiter from configuration, selecting the
// window store backend. Disabled rate limiting yields an always-allow
// limiter so call sites need no nil checks.
//
// Example config:
//
//	databases:
//	  default:
//	    driver: sqlite
//	    database: ./admission.db
//
//	rate_limiting:
//	  enabled: true
//	  backend: sql
//	  sql_database: default
//	  fail_mode: open
func NewLimiterFromConfig(cfg *config.Config, pool *config.DBPool) (*Limiter, error) {
	rlCfg := cfg.RateLimit
	if rlCfg == nil || !rlCfg.IsEnabled() {
		return NewDisabledLimiter(), nil
	}

	var store Store

	switch rlCfg.Backend {
	case "sql":
		if pool == nil {
			return nil, fmt.Errorf("DBPool is required for the SQL backend")
		}
		dbCfg, ok := cfg.GetDatabase(rlCfg.SQLDatabase)
		if !ok {
			return nil, fmt.Errorf("database %q not found", rlCfg.SQLDatabase)
		}
		db, err := pool.Get(dbCfg)
		if err != nil {
			return nil, fmt.Errorf("failed to get database connection: %w", err)
		}
		store, err = NewSQLStore(db, dbCfg.Dialect())
		if err != nil {
			return nil, fmt.Errorf("failed to create SQL store: %w", err)
		}
	case "redis":
		if cfg.Redis == nil {
			return nil, fmt.Errorf("redis configuration is required for the redis backend")
		}
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		var err error
		store, err = NewRedisStore(client)
		if err != nil {
			return nil, fmt.Errorf("failed to create redis store: %w", err)
		}
	case "memory", "":
		store = NewMemoryStore()
	default:
		return nil, fmt.Errorf("unsupported rate limit backend: %s", rlCfg.Backend)
	}

	return NewLimiter(store, ParseFailMode(rlCfg.FailMode)), nil
}

// PoliciesFromConfig returns the effective policy table: the built-in tiers
// with any configured overrides applied on top, by name. An override replaces
// the policy constant; existing window records are never migrated.
func PoliciesFromConfig(rlCfg *config.RateLimitConfig) map[string]Policy {
	policies := DefaultPolicies()
	if rlCfg == nil {
		return policies
	}
	for _, p := range rlCfg.Policies {
		policies[p.Name] = Policy{
			Name:        p.Name,
			MaxRequests: p.MaxRequests,
			Window:      p.Window,
		}
	}
	return policies
}
