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
	"sync"
	"time"
)

// windowKey uniquely identifies a window record.
type windowKey struct {
	Policy     string
	Identifier string
}

// windowRecord is the per-identifier counter state. Count keeps incrementing
// past the limit; denial is re-derived from the comparison on every request,
// so the overage is harmless and the reset time is never advanced by denials.
type windowRecord struct {
	Count     int64
	ResetTime time.Time
}

// MemoryStore is an in-memory implementation of Store.
// It is thread-safe and suitable for single-instance deployments.
type MemoryStore struct {
	records map[windowKey]*windowRecord
	mu      sync.Mutex
}

// NewMemoryStore creates a new in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		records: make(map[windowKey]*windowRecord),
	}
}

// Take records one request and returns the verdict.
func (s *MemoryStore) Take(ctx context.Context, id string, p Policy) (Verdict, error) {
	return s.take(time.Now(), id, p), nil
}

// take holds the lock for the whole decision so that exactly one first-request
// initialization happens per window, no matter how many callers race.
func (s *MemoryStore) take(now time.Time, id string, p Policy) Verdict {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := windowKey{Policy: p.Name, Identifier: id}
	rec, ok := s.records[key]

	// A record whose reset time has been reached is treated as absent: the
	// boundary is exclusive on the still-live side. The replacement is a hard
	// reset, not a decay.
	if !ok || !rec.ResetTime.After(now) {
		rec = &windowRecord{Count: 1, ResetTime: now.Add(p.Window)}
		s.records[key] = rec
		return Verdict{Allowed: true, Remaining: p.MaxRequests - 1, ResetTime: rec.ResetTime}
	}

	rec.Count++
	if rec.Count > p.MaxRequests {
		return Verdict{Allowed: false, Remaining: 0, ResetTime: rec.ResetTime}
	}
	return Verdict{Allowed: true, Remaining: p.MaxRequests - rec.Count, ResetTime: rec.ResetTime}
}

// Reset removes all window records for the identifier.
func (s *MemoryStore) Reset(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for key := range s.records {
		if key.Identifier == id {
			delete(s.records, key)
		}
	}
	return nil
}

// Sweep removes every record whose reset time is before the given instant.
func (s *MemoryStore) Sweep(ctx context.Context, before time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for key, rec := range s.records {
		if rec.ResetTime.Before(before) {
			delete(s.records, key)
			removed++
		}
	}
	return removed, nil
}

// Close clears the store.
func (s *MemoryStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.records = make(map[windowKey]*windowRecord)
	return nil
}

// Len returns the number of records in the store (for testing).
func (s *MemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.records)
}
