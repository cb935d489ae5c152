// v1
// internal/telemetry/parser_test.go
package telemetry

import (
	"errors"
	"testing"
)

func TestParseLineSample(t *testing.T) {
	raw := []byte(`{"type":"sample","uptime_ms":123456,"voltage_v":37.9,"current_a":7.9,"power_w":299.41,"temp_front_c":41.2,"temp_back_c":38.7}`)

	sample, err := ParseLine(raw)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if sample.UptimeMs != 123456 {
		t.Fatalf("unexpected uptime: %d", sample.UptimeMs)
	}
	if sample.VoltageV != 37.9 {
		t.Fatalf("unexpected voltage: %v", sample.VoltageV)
	}
	if sample.CurrentA != 7.9 {
		t.Fatalf("unexpected current: %v", sample.CurrentA)
	}
	if sample.PowerW != 299.41 {
		t.Fatalf("unexpected power: %v", sample.PowerW)
	}
	if sample.TempFrontC == nil || *sample.TempFrontC != 41.2 {
		t.Fatalf("unexpected front temperature: %v", sample.TempFrontC)
	}
	if sample.TempBackC == nil || *sample.TempBackC != 38.7 {
		t.Fatalf("unexpected back temperature: %v", sample.TempBackC)
	}
}

func TestParseLineNonSampleType(t *testing.T) {
	raw := []byte(`{"type":"event","uptime_ms":10,"message":"boot complete"}`)

	_, err := ParseLine(raw)
	if !errors.Is(err, ErrNotSample) {
		t.Fatalf("expected ErrNotSample, got %v", err)
	}
}

func TestParseLineMalformedJSON(t *testing.T) {
	_, err := ParseLine([]byte(`{"type":"sample","voltage_v":`))
	if err == nil {
		t.Fatal("expected error for truncated JSON")
	}
	if errors.Is(err, ErrNotSample) {
		t.Fatalf("malformed line must not be classified as non-sample: %v", err)
	}
}

func TestParseLineMissingRequiredField(t *testing.T) {
	raw := []byte(`{"type":"sample","uptime_ms":1,"voltage_v":12.0,"power_w":0}`)

	_, err := ParseLine(raw)
	if err == nil {
		t.Fatal("expected error for missing current_a")
	}
}

func TestParseLineNonNumericField(t *testing.T) {
	raw := []byte(`{"type":"sample","uptime_ms":1,"voltage_v":"abc","current_a":1.0,"power_w":12.0}`)

	_, err := ParseLine(raw)
	if err == nil {
		t.Fatal("expected error for non-numeric voltage")
	}
}

func TestParseLineNullTemperatures(t *testing.T) {
	raw := []byte(`{"type":"sample","uptime_ms":1,"voltage_v":12.0,"current_a":1.0,"power_w":12.0,"temp_front_c":null}`)

	sample, err := ParseLine(raw)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if sample.TempFrontC != nil {
		t.Fatalf("expected nil front temperature, got %v", *sample.TempFrontC)
	}
	if sample.TempBackC != nil {
		t.Fatalf("expected nil back temperature, got %v", *sample.TempBackC)
	}
}

func TestParseLineZeroTemperatureIsPresent(t *testing.T) {
	raw := []byte(`{"type":"sample","uptime_ms":1,"voltage_v":12.0,"current_a":1.0,"power_w":12.0,"temp_front_c":0.0,"temp_back_c":null}`)

	sample, err := ParseLine(raw)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if sample.TempFrontC == nil || *sample.TempFrontC != 0 {
		t.Fatalf("expected explicit 0.0 front temperature, got %v", sample.TempFrontC)
	}
}
