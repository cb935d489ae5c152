// v1
// internal/api/handlers.go
package api

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"solarmon/internal/calib"
	"solarmon/internal/metrics"
	"solarmon/internal/state"
	"solarmon/internal/sysinfo"
)

// snapshotSource exposes the subset of the state store the handlers need.
// The small interface keeps the API layer testable without a collector.
type snapshotSource interface {
	Snapshot(now time.Time) state.Snapshot
}

// Handlers carries the collaborators shared by all HTTP handlers.
type Handlers struct {
	Log         *slog.Logger
	Snapshots   snapshotSource
	Calibration *calib.Store
	Metrics     *metrics.Metrics
	CSVPath     string
	Started     time.Time
}

// Latest serves the consistent point-in-time snapshot consumed by the
// dashboard: latest sample, buffered history, and status.
func (h *Handlers) Latest(w http.ResponseWriter, r *http.Request) {
	writeJSON(h.Log, w, http.StatusOK, h.Snapshots.Snapshot(time.Now()))
}

// CalibrationGet returns the active gain/offset settings.
func (h *Handlers) CalibrationGet(w http.ResponseWriter, r *http.Request) {
	writeJSON(h.Log, w, http.StatusOK, h.Calibration.Current())
}

// CalibrationPut replaces the active settings at runtime. Invalid values
// are rejected and the previous settings stay in effect; accepted settings
// apply to samples ingested after the reload, never to published history.
func (h *Handlers) CalibrationPut(w http.ResponseWriter, r *http.Request) {
	var next calib.Settings
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&next); err != nil {
		h.Metrics.IncCalibrationReload("rejected")
		writeError(h.Log, w, http.StatusBadRequest, "invalid calibration payload: "+err.Error())
		return
	}
	if err := h.Calibration.Replace(next); err != nil {
		h.Metrics.IncCalibrationReload("rejected")
		writeError(h.Log, w, http.StatusBadRequest, err.Error())
		return
	}
	h.Metrics.IncCalibrationReload("ok")
	h.Log.Info("calibration_reloaded",
		slog.Float64("voltage_gain", next.VoltageGain),
		slog.Float64("voltage_offset", next.VoltageOffset),
		slog.Float64("current_gain", next.CurrentGain),
		slog.Float64("current_offset", next.CurrentOffset),
	)
	writeJSON(h.Log, w, http.StatusOK, next)
}

// System serves host diagnostics for the machine running the daemon.
func (h *Handlers) System(w http.ResponseWriter, r *http.Request) {
	writeJSON(h.Log, w, http.StatusOK, sysinfo.Collect(r.Context(), h.Log, h.CSVPath))
}

// Health is the liveness probe.
func (h *Handlers) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(h.Log, w, http.StatusOK, map[string]any{
		"ok":       true,
		"uptime_s": int64(time.Since(h.Started).Seconds()),
	})
}

// Dashboard serves the embedded status page.
func (h *Handlers) Dashboard(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write([]byte(dashboardHTML)); err != nil {
		h.Log.Error("write_response_failed", slog.Any("err", err))
	}
}

func writeJSON(log *slog.Logger, w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		log.Error("write_response_failed", slog.Any("err", err))
	}
}

func writeError(log *slog.Logger, w http.ResponseWriter, status int, message string) {
	writeJSON(log, w, status, map[string]string{"error": message})
}
