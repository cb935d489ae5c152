// v1
// internal/telemetry/parser.go
package telemetry

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
)

// ErrNotSample reports a well-formed telemetry line whose discriminator is
// not "sample" (boot banners, diagnostic events, error reports). Callers
// skip these silently; they are not parse failures.
var ErrNotSample = errors.New("line is not a sample record")

// sampleEnvelope mirrors the device line format while deferring numeric
// decoding so that a non-numeric value in a numeric field is reported as a
// parse error instead of a silent zero.
type sampleEnvelope struct {
	Type       string          `json:"type"`
	UptimeMs   json.RawMessage `json:"uptime_ms"`
	VoltageV   json.RawMessage `json:"voltage_v"`
	CurrentA   json.RawMessage `json:"current_a"`
	PowerW     json.RawMessage `json:"power_w"`
	TempFrontC json.RawMessage `json:"temp_front_c"`
	TempBackC  json.RawMessage `json:"temp_back_c"`
}

// ParseLine decodes one newline-stripped telemetry line. It returns
// ErrNotSample for recognized non-sample records and a descriptive error
// for malformed JSON, missing required fields, or non-numeric values.
func ParseLine(line []byte) (RawSample, error) {
	dec := json.NewDecoder(bytes.NewReader(line))
	dec.UseNumber()
	var env sampleEnvelope
	if err := dec.Decode(&env); err != nil {
		return RawSample{}, fmt.Errorf("decode telemetry line: %w", err)
	}
	if env.Type != "sample" {
		return RawSample{}, ErrNotSample
	}

	uptime, err := requiredInt("uptime_ms", env.UptimeMs)
	if err != nil {
		return RawSample{}, err
	}
	voltage, err := requiredFloat("voltage_v", env.VoltageV)
	if err != nil {
		return RawSample{}, err
	}
	current, err := requiredFloat("current_a", env.CurrentA)
	if err != nil {
		return RawSample{}, err
	}
	power, err := requiredFloat("power_w", env.PowerW)
	if err != nil {
		return RawSample{}, err
	}
	front, err := optionalFloat("temp_front_c", env.TempFrontC)
	if err != nil {
		return RawSample{}, err
	}
	back, err := optionalFloat("temp_back_c", env.TempBackC)
	if err != nil {
		return RawSample{}, err
	}

	return RawSample{
		UptimeMs:   uptime,
		VoltageV:   voltage,
		CurrentA:   current,
		PowerW:     power,
		TempFrontC: front,
		TempBackC:  back,
	}, nil
}

func requiredInt(field string, raw json.RawMessage) (int64, error) {
	if len(raw) == 0 {
		return 0, fmt.Errorf("field %s missing", field)
	}
	var n json.Number
	if err := json.Unmarshal(raw, &n); err != nil {
		return 0, fmt.Errorf("field %s is not numeric", field)
	}
	v, err := n.Int64()
	if err != nil {
		return 0, fmt.Errorf("field %s is not an integer: %w", field, err)
	}
	return v, nil
}

func requiredFloat(field string, raw json.RawMessage) (float64, error) {
	if len(raw) == 0 {
		return 0, fmt.Errorf("field %s missing", field)
	}
	var n json.Number
	if err := json.Unmarshal(raw, &n); err != nil {
		return 0, fmt.Errorf("field %s is not numeric", field)
	}
	v, err := n.Float64()
	if err != nil {
		return 0, fmt.Errorf("field %s is not a number: %w", field, err)
	}
	return v, nil
}

// optionalFloat resolves a field the firmware may omit or set to null when
// the sensor is unavailable. Absence is not an error; a present value that
// is not numeric still is.
func optionalFloat(field string, raw json.RawMessage) (*float64, error) {
	if len(raw) == 0 || bytes.Equal(bytes.TrimSpace(raw), []byte("null")) {
		return nil, nil
	}
	var n json.Number
	if err := json.Unmarshal(raw, &n); err != nil {
		return nil, fmt.Errorf("field %s is not numeric", field)
	}
	v, err := n.Float64()
	if err != nil {
		return nil, fmt.Errorf("field %s is not a number: %w", field, err)
	}
	return &v, nil
}
