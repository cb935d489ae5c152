// v2
// internal/collector/collector.go
package collector

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"solarmon/internal/calib"
	"solarmon/internal/energy"
	"solarmon/internal/metrics"
	"solarmon/internal/sink"
	"solarmon/internal/state"
	"solarmon/internal/telemetry"
)

// maxLineBytes bounds the buffered remainder of a line. A link spewing
// garbage without newlines is treated as a parse error, not an allocation.
const maxLineBytes = 64 * 1024

// Link is an open telemetry connection. The production implementation is a
// serial port; tests substitute in-memory fakes. SetReadTimeout bounds each
// blocking read so the loop can recheck cancellation.
type Link interface {
	io.ReadWriteCloser
	SetReadTimeout(timeout time.Duration) error
}

// Dialer opens the telemetry link. It is retried with backoff for the
// lifetime of the process.
type Dialer interface {
	Dial() (Link, error)
}

// Config captures the collector's runtime tunables.
type Config struct {
	// ReadTimeout bounds each blocking read on the link.
	ReadTimeout time.Duration
	// BackoffMin is the first reconnect delay after a link failure.
	BackoffMin time.Duration
	// BackoffMax caps the exponential reconnect delay.
	BackoffMax time.Duration
}

const (
	defaultReadTimeout = 2 * time.Second
	defaultBackoffMin  = time.Second
	defaultBackoffMax  = 30 * time.Second
)

// Collector owns the serial link lifecycle: connect, read line by line,
// reconnect with capped exponential backoff, and stop on cancellation. It
// is the only writer of the shared state store.
type Collector struct {
	cfg     Config
	dialer  Dialer
	calib   *calib.Store
	energy  *energy.Accumulator
	state   *state.Store
	samples sink.Sink
	mtx     *metrics.Metrics
	log     *slog.Logger
	now     func() time.Time
}

// New wires a collector. Dialer, calibration store, energy accumulator,
// state store, and logger are required; the sink and metrics are optional.
func New(cfg Config, dialer Dialer, cal *calib.Store, acc *energy.Accumulator, st *state.Store, samples sink.Sink, mtx *metrics.Metrics, log *slog.Logger) (*Collector, error) {
	if dialer == nil {
		return nil, errors.New("dialer must not be nil")
	}
	if cal == nil {
		return nil, errors.New("calibration store must not be nil")
	}
	if acc == nil {
		return nil, errors.New("energy accumulator must not be nil")
	}
	if st == nil {
		return nil, errors.New("state store must not be nil")
	}
	if log == nil {
		return nil, errors.New("logger must not be nil")
	}
	if cfg.ReadTimeout <= 0 {
		cfg.ReadTimeout = defaultReadTimeout
	}
	if cfg.BackoffMin <= 0 {
		cfg.BackoffMin = defaultBackoffMin
	}
	if cfg.BackoffMax < cfg.BackoffMin {
		cfg.BackoffMax = defaultBackoffMax
	}
	return &Collector{
		cfg:     cfg,
		dialer:  dialer,
		calib:   cal,
		energy:  acc,
		state:   st,
		samples: samples,
		mtx:     mtx,
		log:     log,
		now:     time.Now,
	}, nil
}

// Run blocks until the context is cancelled, cycling between dialing the
// link and reading lines from it. Link failures are recorded in the state
// store and retried forever; they never terminate the loop.
func (c *Collector) Run(ctx context.Context) error {
	c.log.Info("collector_started",
		slog.Duration("readTimeout", c.cfg.ReadTimeout),
		slog.Duration("backoffMin", c.cfg.BackoffMin),
		slog.Duration("backoffMax", c.cfg.BackoffMax),
	)
	defer c.log.Info("collector_stopped")

	backoff := c.cfg.BackoffMin
	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		link, err := c.dialer.Dial()
		if err != nil {
			c.state.RecordError(fmt.Errorf("open link: %w", err))
			c.mtx.IncLinkError("dial")
			c.log.Warn("link_open_failed", slog.Any("err", err), slog.Duration("retryIn", backoff))
			if !sleepCtx(ctx, backoff) {
				return ctx.Err()
			}
			backoff = nextBackoff(backoff, c.cfg.BackoffMax)
			continue
		}
		backoff = c.cfg.BackoffMin
		c.log.Info("link_open")

		readErr := c.readLines(ctx, link)
		if cerr := link.Close(); cerr != nil {
			c.log.Warn("link_close_failed", slog.Any("err", cerr))
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if readErr != nil {
			c.state.RecordError(fmt.Errorf("read link: %w", readErr))
			c.mtx.IncLinkError("read")
			c.log.Warn("link_lost", slog.Any("err", readErr), slog.Duration("retryIn", backoff))
		}
		if !sleepCtx(ctx, backoff) {
			return ctx.Err()
		}
	}
}

// readLines consumes the link until a read error or cancellation. Reads are
// bounded by the configured timeout; a timed-out read returns zero bytes
// and simply loops back to the cancellation check, keeping any partial line
// buffered.
func (c *Collector) readLines(ctx context.Context, link Link) error {
	if err := link.SetReadTimeout(c.cfg.ReadTimeout); err != nil {
		return fmt.Errorf("set read timeout: %w", err)
	}

	buf := make([]byte, 512)
	var pending []byte
	for {
		if ctx.Err() != nil {
			return nil
		}

		n, err := link.Read(buf)
		if n > 0 {
			pending = append(pending, buf[:n]...)
			for {
				idx := bytes.IndexByte(pending, '\n')
				if idx < 0 {
					break
				}
				line := strings.TrimSpace(string(pending[:idx]))
				pending = pending[idx+1:]
				c.handleLine(ctx, line)
			}
			if len(pending) > maxLineBytes {
				c.state.RecordError(errors.New("telemetry line exceeds maximum length"))
				c.mtx.IncParseError()
				pending = nil
			}
		}
		if err != nil {
			if errors.Is(err, io.EOF) {
				return errors.New("link closed")
			}
			return err
		}
	}
}

// handleLine runs one line through parse, calibrate, integrate, publish,
// and sink. The state store update is all-or-nothing: a failed parse only
// touches the error field, and the sink is offered the sample only after
// it has been published.
func (c *Collector) handleLine(ctx context.Context, line string) {
	if line == "" {
		return
	}

	raw, err := telemetry.ParseLine([]byte(line))
	if errors.Is(err, telemetry.ErrNotSample) {
		return
	}
	if err != nil {
		c.state.RecordError(fmt.Errorf("parse line: %w", err))
		c.mtx.IncParseError()
		c.log.Warn("line_dropped", slog.Any("err", err))
		return
	}

	now := c.now()
	sample := calib.Apply(raw, c.calib.Current(), now)
	sample.EnergyWhDay = c.energy.Add(now, sample.PowerW)

	c.state.ApplySample(sample)
	c.mtx.ObserveSample(sample)

	if c.samples != nil {
		if err := c.samples.Write(ctx, sample); err != nil {
			c.mtx.IncSinkError(c.samples.Name())
			c.log.Warn("sink_write_failed", slog.String("sink", c.samples.Name()), slog.Any("err", err))
		}
	}
}

func nextBackoff(current, max time.Duration) time.Duration {
	next := current * 2
	if next > max {
		return max
	}
	return next
}

// sleepCtx waits for d, returning false if the context was cancelled first.
func sleepCtx(ctx context.Context, d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
