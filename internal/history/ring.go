// v0
// internal/history/ring.go
package history

import (
	"fmt"

	"solarmon/internal/telemetry"
)

// Ring is a fixed-capacity, insertion-ordered buffer of calibrated samples
// kept for charting. When full, appending evicts the oldest entry. The ring
// is not safe for concurrent use on its own; the state store owns locking.
type Ring struct {
	data  []telemetry.CalibratedSample
	start int
	size  int
}

// NewRing allocates a ring with the given capacity. Capacity is fixed at
// construction; a value below one is a programmer error.
func NewRing(capacity int) *Ring {
	if capacity < 1 {
		panic(fmt.Sprintf("history: capacity must be at least 1, got %d", capacity))
	}
	return &Ring{data: make([]telemetry.CalibratedSample, capacity)}
}

// Append inserts a sample, evicting the oldest one when the ring is full.
func (r *Ring) Append(sample telemetry.CalibratedSample) {
	if r.size < len(r.data) {
		r.data[(r.start+r.size)%len(r.data)] = sample
		r.size++
		return
	}
	r.data[r.start] = sample
	r.start = (r.start + 1) % len(r.data)
}

// Len reports the number of buffered samples.
func (r *Ring) Len() int {
	return r.size
}

// Snapshot returns a fresh chronological copy that later appends cannot
// affect.
func (r *Ring) Snapshot() []telemetry.CalibratedSample {
	if r.size == 0 {
		return nil
	}
	out := make([]telemetry.CalibratedSample, r.size)
	for i := 0; i < r.size; i++ {
		out[i] = r.data[(r.start+i)%len(r.data)]
	}
	return out
}
