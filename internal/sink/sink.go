// v1
// internal/sink/sink.go
package sink

import (
	"context"
	"log/slog"

	"github.com/google/uuid"

	"solarmon/internal/metrics"
	"solarmon/internal/telemetry"
)

// Sink is an append-only destination for calibrated samples. Implementations
// must tolerate being offered samples they cannot deliver: a sink failure is
// reported through the error return and must never stop ingestion.
type Sink interface {
	Name() string
	Write(ctx context.Context, sample telemetry.CalibratedSample) error
	Close() error
}

// Envelope is the JSON payload streamed to the MQTT and Kafka sinks: the
// calibrated sample plus a unique event ID and the reporting device name.
type Envelope struct {
	ID     string `json:"id"`
	Source string `json:"source"`
	telemetry.CalibratedSample
}

// NewEnvelope wraps one sample for streaming.
func NewEnvelope(source string, sample telemetry.CalibratedSample) Envelope {
	return Envelope{ID: uuid.NewString(), Source: source, CalibratedSample: sample}
}

// Fanout offers each sample to every configured sink in order. Per-sink
// failures are logged and counted; they never propagate and never prevent
// later sinks from seeing the same sample.
type Fanout struct {
	sinks []Sink
	log   *slog.Logger
	mtx   *metrics.Metrics
}

// NewFanout builds a fan-out over the given sinks.
func NewFanout(log *slog.Logger, mtx *metrics.Metrics, sinks ...Sink) *Fanout {
	return &Fanout{sinks: sinks, log: log, mtx: mtx}
}

func (f *Fanout) Name() string {
	return "fanout"
}

// Write never returns an error; the fan-out is the boundary where sink
// trouble stops.
func (f *Fanout) Write(ctx context.Context, sample telemetry.CalibratedSample) error {
	for _, s := range f.sinks {
		if err := s.Write(ctx, sample); err != nil {
			f.mtx.IncSinkError(s.Name())
			f.log.Warn("sink_write_failed", slog.String("sink", s.Name()), slog.Any("err", err))
		}
	}
	return nil
}

// Close closes every sink, returning the first error encountered.
func (f *Fanout) Close() error {
	var firstErr error
	for _, s := range f.sinks {
		if err := s.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
