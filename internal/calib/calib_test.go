// v0
// internal/calib/calib_test.go
package calib

import (
	"math"
	"testing"
	"time"

	"solarmon/internal/telemetry"
)

func TestApplyGainOffset(t *testing.T) {
	raw := telemetry.RawSample{VoltageV: 37.9, CurrentA: 7.9, PowerW: 1.0}
	s := Settings{VoltageGain: 1.013, VoltageOffset: 0.1, CurrentGain: 1.051, CurrentOffset: -0.05}
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

	sample := Apply(raw, s, now)

	wantV := 37.9*1.013 + 0.1
	wantI := 7.9*1.051 - 0.05
	if math.Abs(sample.VoltageV-wantV) > 1e-9 {
		t.Fatalf("expected voltage %v, got %v", wantV, sample.VoltageV)
	}
	if math.Abs(sample.CurrentA-wantI) > 1e-9 {
		t.Fatalf("expected current %v, got %v", wantI, sample.CurrentA)
	}
	if math.Abs(sample.PowerW-wantV*wantI) > 1e-9 {
		t.Fatalf("power must equal voltage*current, got %v", sample.PowerW)
	}
	if !sample.Timestamp.Equal(now) {
		t.Fatalf("expected host timestamp %v, got %v", now, sample.Timestamp)
	}
	if sample.EnergyWhDay != 0 {
		t.Fatalf("expected zero energy before integration, got %v", sample.EnergyWhDay)
	}
}

func TestApplyPreservesUnavailableTemperatures(t *testing.T) {
	front := 25.0
	raw := telemetry.RawSample{VoltageV: 12, CurrentA: 1, TempFrontC: &front, TempBackC: nil}
	s := Settings{VoltageGain: 1, CurrentGain: 1}

	sample := Apply(raw, s, time.Now())

	if sample.TempFrontC == nil || *sample.TempFrontC != 25.0 {
		t.Fatalf("expected front temperature 25.0, got %v", sample.TempFrontC)
	}
	if sample.TempBackC != nil {
		t.Fatalf("expected back temperature to stay unavailable, got %v", *sample.TempBackC)
	}
}

func TestSettingsValidate(t *testing.T) {
	cases := []struct {
		name string
		s    Settings
		ok   bool
	}{
		{name: "identity", s: Settings{VoltageGain: 1, CurrentGain: 1}, ok: true},
		{name: "zero voltage gain", s: Settings{VoltageGain: 0, CurrentGain: 1}, ok: false},
		{name: "zero current gain", s: Settings{VoltageGain: 1, CurrentGain: 0}, ok: false},
		{name: "nan gain", s: Settings{VoltageGain: math.NaN(), CurrentGain: 1}, ok: false},
		{name: "inf offset", s: Settings{VoltageGain: 1, CurrentGain: 1, VoltageOffset: math.Inf(1)}, ok: false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.s.Validate()
			if tc.ok && err != nil {
				t.Fatalf("expected valid settings, got %v", err)
			}
			if !tc.ok && err == nil {
				t.Fatal("expected validation error")
			}
		})
	}
}

func TestStoreReplaceRejectedKeepsPrevious(t *testing.T) {
	initial := Settings{VoltageGain: 1.01, CurrentGain: 0.99}
	store, err := NewStore(initial)
	if err != nil {
		t.Fatalf("store init failed: %v", err)
	}

	if err := store.Replace(Settings{VoltageGain: 0, CurrentGain: 1}); err == nil {
		t.Fatal("expected invalid settings to be rejected")
	}
	if got := store.Current(); got != initial {
		t.Fatalf("expected previous settings to remain active, got %+v", got)
	}

	next := Settings{VoltageGain: 1.02, CurrentGain: 1.0}
	if err := store.Replace(next); err != nil {
		t.Fatalf("unexpected error replacing settings: %v", err)
	}
	if got := store.Current(); got != next {
		t.Fatalf("expected new settings, got %+v", got)
	}
}

func TestGain(t *testing.T) {
	g, err := Gain(38.4, 37.9)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if math.Abs(g-38.4/37.9) > 1e-12 {
		t.Fatalf("unexpected gain: %v", g)
	}

	if _, err := Gain(38.4, 0); err == nil {
		t.Fatal("expected error for zero reported value")
	}
}
