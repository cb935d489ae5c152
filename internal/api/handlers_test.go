// v1
// internal/api/handlers_test.go
package api

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"solarmon/internal/calib"
	"solarmon/internal/state"
	"solarmon/internal/telemetry"
)

func testHandlers(t *testing.T) (*Handlers, *state.Store) {
	t.Helper()
	cal, err := calib.NewStore(calib.Settings{VoltageGain: 1.01, CurrentGain: 0.99})
	if err != nil {
		t.Fatalf("calibration store init failed: %v", err)
	}
	st := state.NewStore(8, 15*time.Second)
	return &Handlers{
		Log:         slog.New(slog.NewTextHandler(io.Discard, nil)),
		Snapshots:   st,
		Calibration: cal,
		Started:     time.Now(),
	}, st
}

func TestLatestEmptyState(t *testing.T) {
	h, _ := testHandlers(t)
	router := NewRouter(h)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/latest", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("unexpected status: %d", rec.Code)
	}
	var snap struct {
		Latest  *telemetry.CalibratedSample  `json:"latest"`
		History []telemetry.CalibratedSample `json:"history"`
		Status  struct {
			Stale     bool   `json:"stale"`
			LastError string `json:"last_error"`
		} `json:"status"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &snap); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if snap.Latest != nil {
		t.Fatalf("expected null latest, got %+v", snap.Latest)
	}
	if !snap.Status.Stale {
		t.Fatal("expected stale status before first sample")
	}
}

func TestLatestReturnsIngestedSample(t *testing.T) {
	h, st := testHandlers(t)
	router := NewRouter(h)

	st.ApplySample(telemetry.CalibratedSample{
		Timestamp: time.Now(),
		VoltageV:  38.1,
		CurrentA:  8.0,
		PowerW:    304.8,
	})

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/latest", nil))

	var snap struct {
		Latest  *telemetry.CalibratedSample  `json:"latest"`
		History []telemetry.CalibratedSample `json:"history"`
		Status  struct {
			Stale bool `json:"stale"`
		} `json:"status"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &snap); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if snap.Latest == nil || snap.Latest.PowerW != 304.8 {
		t.Fatalf("unexpected latest sample: %+v", snap.Latest)
	}
	if len(snap.History) != 1 {
		t.Fatalf("expected one history entry, got %d", len(snap.History))
	}
	if snap.Status.Stale {
		t.Fatal("fresh sample reported stale")
	}
}

func TestCalibrationRoundTrip(t *testing.T) {
	h, _ := testHandlers(t)
	router := NewRouter(h)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/calibration", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("unexpected GET status: %d", rec.Code)
	}
	var current calib.Settings
	if err := json.Unmarshal(rec.Body.Bytes(), &current); err != nil {
		t.Fatalf("decode settings: %v", err)
	}
	if current.VoltageGain != 1.01 {
		t.Fatalf("unexpected initial voltage gain: %v", current.VoltageGain)
	}

	body := strings.NewReader(`{"voltage_gain":1.013,"voltage_offset":0.1,"current_gain":1.051,"current_offset":-0.05}`)
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPut, "/api/calibration", body))
	if rec.Code != http.StatusOK {
		t.Fatalf("unexpected PUT status: %d, body %s", rec.Code, rec.Body.String())
	}
	if got := h.Calibration.Current(); got.VoltageGain != 1.013 || got.CurrentOffset != -0.05 {
		t.Fatalf("settings not applied: %+v", got)
	}
}

func TestCalibrationRejectsInvalidSettings(t *testing.T) {
	h, _ := testHandlers(t)
	router := NewRouter(h)
	before := h.Calibration.Current()

	body := strings.NewReader(`{"voltage_gain":0,"current_gain":1}`)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPut, "/api/calibration", body))

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
	var payload map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &payload); err != nil {
		t.Fatalf("decode error payload: %v", err)
	}
	if payload["error"] == "" {
		t.Fatal("expected error message in response")
	}
	if got := h.Calibration.Current(); got != before {
		t.Fatalf("rejected reload changed settings: %+v", got)
	}
}

func TestCalibrationRejectsMalformedBody(t *testing.T) {
	h, _ := testHandlers(t)
	router := NewRouter(h)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPut, "/api/calibration", strings.NewReader(`{"voltage_gain":`)))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for malformed body, got %d", rec.Code)
	}
}

func TestHealth(t *testing.T) {
	h, _ := testHandlers(t)
	router := NewRouter(h)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("unexpected status: %d", rec.Code)
	}
	var payload map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &payload); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if payload["ok"] != true {
		t.Fatalf("unexpected health payload: %v", payload)
	}
}

func TestDashboardServesHTML(t *testing.T) {
	h, _ := testHandlers(t)
	router := NewRouter(h)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("unexpected status: %d", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/html") {
		t.Fatalf("unexpected content type: %q", ct)
	}
	if !strings.Contains(rec.Body.String(), "/api/latest") {
		t.Fatal("dashboard page does not reference the snapshot API")
	}
}
