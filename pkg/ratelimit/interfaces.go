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
	"context"
	"time"
)

// Store holds one window record per (policy, identifier) pair.
//
// Implementations must be thread-safe. Take is the single admission
// operation: lookup, window bookkeeping, and the allow/deny decision happen
// as one atomic unit so that concurrent requests for the same identifier can
// never both observe the same counter value.
type Store interface {
	// Take records one request for the identifier under the policy and
	// returns the verdict. A request arriving at or after the record's reset
	// time starts a fresh window; counts are never carried over.
	Take(ctx context.Context, id string, p Policy) (Verdict, error)

	// Reset removes all window records for the identifier across policies.
	// Used for manual quota resets and tests.
	Reset(ctx context.Context, id string) error

	// Sweep removes every record whose reset time is before the given
	// instant and returns how many were removed. Correctness does not depend
	// on it; expired records are also detected lazily by Take.
	Sweep(ctx context.Context, before time.Time) (int, error)

	// Close releases any resources held by the store.
	Close() error
}

// Ensure interface compliance at compile time.
var (
	_ Store = (*MemoryStore)(nil)
	_ Store = (*SQLStore)(nil)
	_ Store = (*RedisStore)(nil)
)
