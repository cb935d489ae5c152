// v1
// internal/state/store.go
package state

import (
	"sync"
	"time"

	"solarmon/internal/history"
	"solarmon/internal/telemetry"
)

// Status carries the two channels through which the API layer learns of
// trouble: a derived staleness flag and the most recent collector error.
type Status struct {
	Stale     bool   `json:"stale"`
	LastError string `json:"last_error,omitempty"`
}

// Snapshot is the externally visible aggregate returned to readers: the
// latest sample (nil before the first ingestion), the buffered history in
// chronological order, and the current status. All three fields come from
// one critical section, so a reader never sees a half-updated state.
type Snapshot struct {
	Latest  *telemetry.CalibratedSample  `json:"latest"`
	History []telemetry.CalibratedSample `json:"history"`
	Status  Status                       `json:"status"`
}

// Store is the single point of synchronized truth between the collector
// loop (its only writer) and an arbitrary number of concurrent readers.
// The mutex is held only for in-memory updates and copies, never across
// I/O.
type Store struct {
	mu        sync.Mutex
	latest    *telemetry.CalibratedSample
	ring      *history.Ring
	lastError string
	freshFor  time.Duration
}

// NewStore builds an empty store with the given history capacity and
// freshness window.
func NewStore(capacity int, freshFor time.Duration) *Store {
	return &Store{ring: history.NewRing(capacity), freshFor: freshFor}
}

// ApplySample publishes one calibrated sample: latest, history, and the
// error reset happen under a single lock so the update is all-or-nothing.
func (s *Store) ApplySample(sample telemetry.CalibratedSample) {
	s.mu.Lock()
	defer s.mu.Unlock()
	copied := sample
	s.latest = &copied
	s.ring.Append(sample)
	s.lastError = ""
}

// RecordError stores the most recent collector error without touching the
// latest sample or the history.
func (s *Store) RecordError(err error) {
	if err == nil {
		return
	}
	s.mu.Lock()
	s.lastError = err.Error()
	s.mu.Unlock()
}

// Snapshot returns a consistent copy of the shared state. Staleness is
// computed at read time from the latest sample's timestamp against the
// freshness window; a store that has never seen a sample is stale.
func (s *Store) Snapshot(now time.Time) Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap := Snapshot{
		History: s.ring.Snapshot(),
		Status:  Status{Stale: true, LastError: s.lastError},
	}
	if s.latest != nil {
		copied := *s.latest
		snap.Latest = &copied
		snap.Status.Stale = now.Sub(copied.Timestamp) > s.freshFor
	}
	return snap
}
