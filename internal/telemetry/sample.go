// v1
// internal/telemetry/sample.go
package telemetry

import "time"

// RawSample is one device-reported measurement exactly as it arrived on the
// serial link, before any host-side calibration. Temperatures are pointers
// because the firmware reports null when a DS18B20 address did not resolve,
// which is distinct from a valid 0.0 °C reading.
type RawSample struct {
	UptimeMs   int64
	VoltageV   float64
	CurrentA   float64
	PowerW     float64
	TempFrontC *float64
	TempBackC  *float64
}

// CalibratedSample is the unit of record: a raw sample after gain/offset
// correction, stamped with the host wall clock and carrying the running
// daily energy total at the instant it was produced. The JSON tags match
// the payload served by /api/latest and streamed to the sinks.
type CalibratedSample struct {
	Timestamp   time.Time `json:"timestamp"`
	VoltageV    float64   `json:"voltage_v"`
	CurrentA    float64   `json:"current_a"`
	PowerW      float64   `json:"power_w"`
	TempFrontC  *float64  `json:"temp_front_c"`
	TempBackC   *float64  `json:"temp_back_c"`
	EnergyWhDay float64   `json:"energy_wh_day"`
}
