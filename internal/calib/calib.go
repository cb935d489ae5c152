// v0
// internal/calib/calib.go
package calib

import (
	"errors"
	"fmt"
	"math"
	"sync"
	"time"

	"solarmon/internal/telemetry"
)

// Settings holds the gain/offset pairs applied to every raw sample. The
// JSON tags match both the configuration file keys and the payload of the
// calibration API.
type Settings struct {
	VoltageGain   float64 `json:"voltage_gain" yaml:"voltage_gain"`
	VoltageOffset float64 `json:"voltage_offset" yaml:"voltage_offset"`
	CurrentGain   float64 `json:"current_gain" yaml:"current_gain"`
	CurrentOffset float64 `json:"current_offset" yaml:"current_offset"`
}

// Validate rejects settings that would corrupt every subsequent sample.
// Gains must be finite and non-zero; offsets must be finite.
func (s Settings) Validate() error {
	if !isFinite(s.VoltageGain) || s.VoltageGain == 0 {
		return errors.New("voltage_gain must be finite and non-zero")
	}
	if !isFinite(s.CurrentGain) || s.CurrentGain == 0 {
		return errors.New("current_gain must be finite and non-zero")
	}
	if !isFinite(s.VoltageOffset) {
		return errors.New("voltage_offset must be finite")
	}
	if !isFinite(s.CurrentOffset) {
		return errors.New("current_offset must be finite")
	}
	return nil
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

// Apply converts a raw sample to calibrated physical units. Power is always
// recomputed host-side from the corrected voltage and current so the
// published invariant power == voltage * current holds regardless of what
// the device reported. Unavailable temperatures stay unavailable.
// EnergyWhDay is left zero for the energy integrator to fill in.
func Apply(raw telemetry.RawSample, s Settings, now time.Time) telemetry.CalibratedSample {
	voltage := raw.VoltageV*s.VoltageGain + s.VoltageOffset
	current := raw.CurrentA*s.CurrentGain + s.CurrentOffset
	return telemetry.CalibratedSample{
		Timestamp:  now,
		VoltageV:   voltage,
		CurrentA:   current,
		PowerW:     voltage * current,
		TempFrontC: raw.TempFrontC,
		TempBackC:  raw.TempBackC,
	}
}

// Store is the single point of truth for the runtime-reloadable calibration.
// The collector reads one consistent snapshot per sample; the HTTP layer
// replaces the whole set atomically.
type Store struct {
	mu       sync.RWMutex
	settings Settings
}

// NewStore validates and installs the initial settings.
func NewStore(initial Settings) (*Store, error) {
	if err := initial.Validate(); err != nil {
		return nil, fmt.Errorf("initial calibration: %w", err)
	}
	return &Store{settings: initial}, nil
}

// Current returns the active settings by value.
func (st *Store) Current() Settings {
	st.mu.RLock()
	defer st.mu.RUnlock()
	return st.settings
}

// Replace installs new settings if they validate. On rejection the previous
// settings remain in effect; new settings apply only to samples ingested
// afterwards, never retroactively to published history.
func (st *Store) Replace(next Settings) error {
	if err := next.Validate(); err != nil {
		return err
	}
	st.mu.Lock()
	st.settings = next
	st.mu.Unlock()
	return nil
}

// Gain computes the suggested gain from a reference instrument reading and
// the value the device reported for the same quantity.
func Gain(measured, reported float64) (float64, error) {
	if reported == 0 {
		return 0, errors.New("reported value cannot be 0")
	}
	return measured / reported, nil
}
