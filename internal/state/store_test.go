// v1
// internal/state/store_test.go
package state

import (
	"errors"
	"reflect"
	"testing"
	"time"

	"solarmon/internal/telemetry"
)

func sampleAt(ts time.Time, powerW float64) telemetry.CalibratedSample {
	return telemetry.CalibratedSample{Timestamp: ts, PowerW: powerW}
}

func TestEmptyStoreIsStale(t *testing.T) {
	s := NewStore(10, 15*time.Second)
	snap := s.Snapshot(time.Now())

	if snap.Latest != nil {
		t.Fatalf("expected no latest sample, got %+v", snap.Latest)
	}
	if len(snap.History) != 0 {
		t.Fatalf("expected empty history, got %d entries", len(snap.History))
	}
	if !snap.Status.Stale {
		t.Fatal("expected empty store to report stale")
	}
}

func TestApplySampleUpdatesAllFields(t *testing.T) {
	s := NewStore(10, 15*time.Second)
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

	s.RecordError(errors.New("serial error: device unplugged"))
	s.ApplySample(sampleAt(now, 300))

	snap := s.Snapshot(now.Add(time.Second))
	if snap.Latest == nil || snap.Latest.PowerW != 300 {
		t.Fatalf("unexpected latest sample: %+v", snap.Latest)
	}
	if len(snap.History) != 1 {
		t.Fatalf("expected one history entry, got %d", len(snap.History))
	}
	if snap.Status.Stale {
		t.Fatal("fresh sample must not be stale")
	}
	if snap.Status.LastError != "" {
		t.Fatalf("expected successful sample to clear the error, got %q", snap.Status.LastError)
	}
}

func TestRecordErrorLeavesSamplesUntouched(t *testing.T) {
	s := NewStore(10, 15*time.Second)
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	s.ApplySample(sampleAt(now, 250))

	s.RecordError(errors.New("parse line: field voltage_v missing"))

	snap := s.Snapshot(now.Add(time.Second))
	if snap.Latest == nil || snap.Latest.PowerW != 250 {
		t.Fatalf("error must not mutate latest, got %+v", snap.Latest)
	}
	if len(snap.History) != 1 {
		t.Fatalf("error must not mutate history, got %d entries", len(snap.History))
	}
	if snap.Status.LastError != "parse line: field voltage_v missing" {
		t.Fatalf("unexpected last error: %q", snap.Status.LastError)
	}
}

func TestStalenessComputedAtReadTime(t *testing.T) {
	s := NewStore(10, 15*time.Second)
	ts := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	s.ApplySample(sampleAt(ts, 100))

	if s.Snapshot(ts.Add(10 * time.Second)).Status.Stale {
		t.Fatal("sample within freshness window reported stale")
	}
	if !s.Snapshot(ts.Add(16 * time.Second)).Status.Stale {
		t.Fatal("sample beyond freshness window reported fresh")
	}
}

func TestSnapshotIdempotentWithoutWrites(t *testing.T) {
	s := NewStore(10, 15*time.Second)
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	s.ApplySample(sampleAt(now, 100))
	s.ApplySample(sampleAt(now.Add(time.Second), 110))

	readAt := now.Add(2 * time.Second)
	first := s.Snapshot(readAt)
	second := s.Snapshot(readAt)
	if !reflect.DeepEqual(first, second) {
		t.Fatalf("consecutive snapshots differ:\n%+v\n%+v", first, second)
	}
}

func TestSnapshotUnaffectedByLaterWrites(t *testing.T) {
	s := NewStore(2, 15*time.Second)
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	s.ApplySample(sampleAt(now, 100))

	snap := s.Snapshot(now)
	s.ApplySample(sampleAt(now.Add(time.Second), 200))
	s.ApplySample(sampleAt(now.Add(2*time.Second), 300))

	if snap.Latest.PowerW != 100 {
		t.Fatalf("snapshot latest mutated by later write: %v", snap.Latest.PowerW)
	}
	if len(snap.History) != 1 || snap.History[0].PowerW != 100 {
		t.Fatalf("snapshot history mutated by later writes: %+v", snap.History)
	}
}
