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
	"log/slog"
	"sync"
	"time"

	"github.com/tukanos/admission/pkg/observability"
)

// DefaultSweepInterval is how often the reclaimer sweeps expired records.
const DefaultSweepInterval = 5 * time.Minute

// Reclaimer periodically evicts expired window records so the store's memory
// stays bounded over the process lifetime. It is housekeeping, not
// correctness: admission decisions detect expired records lazily, the sweep
// only reclaims the space. A failed or panicking sweep is logged and the next
// scheduled run tries again.
type Reclaimer struct {
	store    Store
	interval time.Duration

	startOnce sync.Once
	stopOnce  sync.Once
	stop      chan struct{}
	done      chan struct{}
}

// NewReclaimer creates a reclaimer for the given store. A non-positive
// interval falls back to DefaultSweepInterval.
func NewReclaimer(store Store, interval time.Duration) *Reclaimer {
	if interval <= 0 {
		interval = DefaultSweepInterval
	}
	return &Reclaimer{
		store:    store,
		interval: interval,
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}
}

// Start launches the sweep loop. Calling Start more than once is a no-op.
func (r *Reclaimer) Start() {
	r.startOnce.Do(func() {
		go r.run()
	})
}

// Stop terminates the sweep loop and waits for an in-flight sweep to finish.
// Safe to call multiple times and safe to call before Start.
func (r *Reclaimer) Stop() {
	r.stopOnce.Do(func() {
		close(r.stop)
	})
	r.startOnce.Do(func() {
		close(r.done)
	})
	<-r.done
}

func (r *Reclaimer) run() {
	defer close(r.done)

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-r.stop:
			return
		case <-ticker.C:
			r.sweep()
		}
	}
}

// sweep runs one eviction pass. Panics are contained here so a misbehaving
// store can never take down the host process or leave a lock held.
func (r *Reclaimer) sweep() {
	defer func() {
		if rec := recover(); rec != nil {
			slog.Error("admission sweep panicked", "panic", rec)
		}
	}()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	removed, err := r.store.Sweep(ctx, time.Now())
	if m := observability.GetGlobalMetrics(); m != nil {
		m.RecordSweep(ctx, removed, err)
	}
	if err != nil {
		slog.Warn("admission sweep failed", "error", err)
		return
	}
	if removed > 0 {
		slog.Debug("admission sweep evicted expired records", "removed", removed)
	}
}
