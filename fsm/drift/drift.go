// Package drift implements the single-channel rate-of-change and trend
// detector described in spec.md §4.1: an EMA-smoothed slope estimator with
// trend classification, time-to-failure projection, and sticky-fault
// discipline. Update is synchronous, allocation-free, and guarded against
// re-entrant invocation the way goti's indicator Add methods are guarded
// against invalid input — except here a detected domain or concurrency
// violation latches the whole FSM rather than just rejecting one sample.
package drift

import (
	"errors"
	"fmt"
	"sync/atomic"

	"github.com/sentinellabs/sentinelfsm/config"
	"github.com/sentinellabs/sentinelfsm/fsm/core"
)

// State is the closed set of states a channel can occupy. The zero value is
// StateLearning, matching the state Init leaves a fresh FSM in.
type State int

const (
	StateLearning State = iota
	StateStable
	StateDriftingUp
	StateDriftingDown
	StateFault
)

func (s State) String() string {
	switch s {
	case StateLearning:
		return "LEARNING"
	case StateStable:
		return "STABLE"
	case StateDriftingUp:
		return "DRIFTING_UP"
	case StateDriftingDown:
		return "DRIFTING_DOWN"
	case StateFault:
		return "FAULT"
	default:
		return "UNKNOWN"
	}
}

// Errors mirror the §6 error taxonomy. ErrDomain and ErrFault are sticky:
// once returned, every subsequent Update returns ErrFault until Reset.
// ErrTemporal is transient and discards only the offending sample.
var (
	ErrNull     = errors.New("drift: nil config")
	ErrConfig   = errors.New("drift: invalid config")
	ErrDomain   = errors.New("drift: non-finite sample")
	ErrTemporal = errors.New("drift: timestamp did not strictly advance")
	ErrFault    = errors.New("drift: fsm latched in FAULT state")
)

// Result is the read-only snapshot produced by each Update call.
type Result struct {
	State    State
	N        uint64
	EMAValue float64
	Slope    float64
	TTF      float64
	HasTTF   bool
}

// FSM is one Drift state machine instance. The zero value is not usable;
// construct with New. All fields are inlined (no heap-backed slices or
// maps), satisfying the no-allocation-after-init requirement of spec §5.
type FSM struct {
	cfg config.DriftConfig

	state       State
	n           uint64
	emaValue    float64
	slope       float64
	lastValue   float64
	lastTS      uint64
	initialized bool
	faultSticky bool
	ttf         float64
	hasTTF      bool

	// inUse is the re-entrancy guard from spec §5: a second concurrent
	// Update call on the same instance is detected via CompareAndSwap and
	// converted into a sticky fault rather than racing on the fields above.
	inUse atomic.Bool
}

// New validates cfg and returns a freshly initialized FSM in StateLearning.
// cfg is copied; the caller's value is never retained or mutated, matching
// the "config is set once by Init" rule.
func New(cfg *config.DriftConfig) (*FSM, error) {
	if cfg == nil {
		return nil, ErrNull
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrConfig, err)
	}
	f := &FSM{cfg: *cfg}
	f.clear()
	return f, nil
}

// Update advances the FSM by one observation tick. See spec §4.1 for the
// full algorithm; this implementation follows it step for step.
func (f *FSM) Update(value float64, tsMS uint64) (Result, error) {
	if !f.inUse.CompareAndSwap(false, true) {
		// A second concurrent caller landed here while another Update was
		// in flight. The instance is not re-entrant (spec §5); treat this
		// as an internal fault rather than letting both calls race on the
		// fields below.
		f.state = StateFault
		f.faultSticky = true
		return f.result(), ErrFault
	}
	defer f.inUse.Store(false)

	if f.faultSticky {
		return f.result(), ErrFault
	}

	if !core.IsFinite(value) {
		f.state = StateFault
		f.faultSticky = true
		return f.result(), ErrDomain
	}

	if f.initialized && tsMS <= f.lastTS {
		return f.result(), ErrTemporal
	}

	if f.initialized && f.cfg.ResetOnGap && tsMS-f.lastTS > f.cfg.MaxGapMS {
		f.seed(value, tsMS)
		return f.result(), nil
	}

	if !f.initialized {
		f.seed(value, tsMS)
		return f.result(), nil
	}

	dt := float64(tsMS - f.lastTS)
	rawSlope := (value - f.lastValue) / dt

	newEMA := core.EMAStep(f.cfg.Alpha, value, f.emaValue)
	newSlope := core.EMAStep(f.cfg.Alpha, rawSlope, f.slope)
	if !core.IsFinite(newEMA) || !core.IsFinite(newSlope) {
		// An EMA of finite inputs cannot itself become non-finite, but the
		// guard costs nothing and spec §9 asks for it defensively.
		f.state = StateFault
		f.faultSticky = true
		return f.result(), ErrDomain
	}

	f.emaValue = newEMA
	f.slope = newSlope
	f.n++
	f.lastValue = value
	f.lastTS = tsMS
	f.classify()

	return f.result(), nil
}

// seed (re)initializes the EMA state from a fresh sample: the very first
// accepted observation, or the first observation after a gap large enough
// to trigger ResetOnGap. n becomes 1 and the state returns to LEARNING;
// fault_sticky is untouched (seeding never clears a latched fault, and is
// never reached while one is active).
func (f *FSM) seed(value float64, tsMS uint64) {
	f.emaValue = value
	f.slope = 0
	f.lastValue = value
	f.lastTS = tsMS
	f.n = 1
	f.initialized = true
	f.state = StateLearning
	f.hasTTF = false
	f.ttf = 0
}

// classify applies the LEARNING/STABLE/DRIFTING_* rule and recomputes TTF.
func (f *FSM) classify() {
	switch {
	case f.n < uint64(f.cfg.NMin):
		f.state = StateLearning
	case abs(f.slope) <= f.cfg.MaxSafeSlope:
		f.state = StateStable
	case f.slope > 0:
		f.state = StateDriftingUp
	default:
		f.state = StateDriftingDown
	}

	f.hasTTF = false
	f.ttf = 0
	if f.slope == 0 {
		return
	}
	switch f.state {
	case StateDriftingUp:
		ttf := (f.cfg.UpperLimit - f.emaValue) / f.slope
		if ttf > 0 {
			f.ttf, f.hasTTF = ttf, true
		}
	case StateDriftingDown:
		ttf := (f.emaValue - f.cfg.LowerLimit) / -f.slope
		if ttf > 0 {
			f.ttf, f.hasTTF = ttf, true
		}
	}
}

func (f *FSM) result() Result {
	return Result{
		State:    f.state,
		N:        f.n,
		EMAValue: f.emaValue,
		Slope:    f.slope,
		TTF:      f.ttf,
		HasTTF:   f.hasTTF,
	}
}

func (f *FSM) clear() {
	f.state = StateLearning
	f.n = 0
	f.emaValue = 0
	f.slope = 0
	f.lastValue = 0
	f.lastTS = 0
	f.initialized = false
	f.faultSticky = false
	f.ttf = 0
	f.hasTTF = false
}

// Reset clears all mutable state, including the sticky fault latch, while
// preserving the validated config. To change configuration, call Reset and
// construct a new FSM with New instead (config is immutable post-Init).
func (f *FSM) Reset() {
	f.clear()
}

// State returns the current classification.
func (f *FSM) State() State { return f.state }

// Slope returns the current EMA-smoothed slope, in units per millisecond.
func (f *FSM) Slope() float64 { return f.slope }

// EMAValue returns the current EMA-smoothed value.
func (f *FSM) EMAValue() float64 { return f.emaValue }

// TTF returns the projected time-to-failure in milliseconds and whether it
// is currently defined (only while drifting toward a configured limit).
func (f *FSM) TTF() (float64, bool) { return f.ttf, f.hasTTF }

// IsFaulted reports whether the sticky fault latch is set.
func (f *FSM) IsFaulted() bool { return f.faultSticky }

// N returns the accepted-observation counter.
func (f *FSM) N() uint64 { return f.n }

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
