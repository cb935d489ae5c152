// v1
// internal/energy/accumulator.go
package energy

import "time"

// DefaultMaxGap matches the deployed integrator's clamp: a gap longer than
// one hour between observations is treated as missing data, not energy.
const DefaultMaxGap = time.Hour

type state int

const (
	stateUninitialized state = iota
	stateAccumulating
)

// Accumulator integrates instantaneous power into a daily watt-hour total
// that resets when the local calendar date advances. It is a pure state
// machine: the clock is always passed in, so it can be tested without I/O.
// It is not safe for concurrent use; the collector is its only caller.
type Accumulator struct {
	st      state
	totalWh float64
	year    int
	month   time.Month
	day     int
	lastTS  time.Time
	loc     *time.Location
	maxGap  time.Duration
}

// NewAccumulator builds an integrator for the given timezone. Rollover is
// detected by comparing calendar dates in loc, so it survives process
// restarts and irregular sampling gaps. maxGap bounds the largest gap that
// still contributes energy; values <= 0 fall back to DefaultMaxGap.
func NewAccumulator(loc *time.Location, maxGap time.Duration) *Accumulator {
	if loc == nil {
		loc = time.Local
	}
	if maxGap <= 0 {
		maxGap = DefaultMaxGap
	}
	return &Accumulator{loc: loc, maxGap: maxGap}
}

// Add feeds one (timestamp, power) observation and returns the daily total
// after the transition:
//   - the first observation seeds the accumulator and contributes nothing;
//   - a same-date observation adds powerW * Δt/3600;
//   - a date change resets the total to zero, and the rollover sample
//     itself contributes no pre-reset energy;
//   - Δt <= 0 (clock jump backwards, duplicate timestamp) contributes
//     nothing rather than subtracting;
//   - Δt > maxGap is treated as a gap and excluded, so one delayed sample
//     cannot inject a spurious energy spike.
func (a *Accumulator) Add(ts time.Time, powerW float64) float64 {
	y, m, d := ts.In(a.loc).Date()

	if a.st == stateUninitialized {
		a.seed(y, m, d, ts)
		return a.totalWh
	}

	if y != a.year || m != a.month || d != a.day {
		a.totalWh = 0
		a.seed(y, m, d, ts)
		return a.totalWh
	}

	dt := ts.Sub(a.lastTS)
	if dt > 0 && dt <= a.maxGap {
		a.totalWh += powerW * dt.Hours()
	}
	a.lastTS = ts
	return a.totalWh
}

func (a *Accumulator) seed(y int, m time.Month, d int, ts time.Time) {
	a.year, a.month, a.day = y, m, d
	a.lastTS = ts
	a.st = stateAccumulating
}

// TotalWh returns the accumulated energy for the current date.
func (a *Accumulator) TotalWh() float64 {
	return a.totalWh
}

// Date returns the local calendar date the accumulation belongs to.
func (a *Accumulator) Date() (year int, month time.Month, day int) {
	return a.year, a.month, a.day
}
