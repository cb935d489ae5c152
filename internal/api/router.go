// v1
// internal/api/router.go
package api

import (
	"net/http"

	"github.com/gorilla/mux"
)

// NewRouter wires the HTTP surface: the dashboard page, the snapshot and
// calibration APIs, host diagnostics, health, and the Prometheus scrape
// endpoint. Each route is individually instrumented so the request metrics
// carry a stable route label.
func NewRouter(h *Handlers) *mux.Router {
	r := mux.NewRouter()

	r.Handle("/", h.Metrics.WrapHandler("dashboard", http.HandlerFunc(h.Dashboard))).Methods(http.MethodGet)
	r.Handle("/api/latest", h.Metrics.WrapHandler("latest", http.HandlerFunc(h.Latest))).Methods(http.MethodGet)
	r.Handle("/api/calibration", h.Metrics.WrapHandler("calibration_get", http.HandlerFunc(h.CalibrationGet))).Methods(http.MethodGet)
	r.Handle("/api/calibration", h.Metrics.WrapHandler("calibration_put", http.HandlerFunc(h.CalibrationPut))).Methods(http.MethodPut)
	r.Handle("/api/system", h.Metrics.WrapHandler("system", http.HandlerFunc(h.System))).Methods(http.MethodGet)
	r.Handle("/health", h.Metrics.WrapHandler("health", http.HandlerFunc(h.Health))).Methods(http.MethodGet)
	r.Handle("/metrics", h.Metrics.Handler()).Methods(http.MethodGet)

	return r
}
