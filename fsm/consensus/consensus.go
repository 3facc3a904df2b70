// Package consensus implements the triple-modular-redundant voter described
// in spec.md §4.2: three sensor readings, tagged with a health status, are
// fused into one trusted value per tick, tolerant of exactly one liar.
// Update is synchronous, allocation-free, and pure — same inputs and config
// always produce the same output (spec §4.2 "Determinism").
package consensus

import (
	"errors"
	"fmt"
	"sync/atomic"

	"github.com/sentinellabs/sentinelfsm/config"
	"github.com/sentinellabs/sentinelfsm/fsm/core"
)

// State is the closed set of states the voter can occupy.
type State int

const (
	StateInit State = iota
	StateAgree
	StateDisagree
	StateDegraded
	StateNoQuorum
	StateFault
)

func (s State) String() string {
	switch s {
	case StateInit:
		return "INIT"
	case StateAgree:
		return "AGREE"
	case StateDisagree:
		return "DISAGREE"
	case StateDegraded:
		return "DEGRADED"
	case StateNoQuorum:
		return "NO_QUORUM"
	case StateFault:
		return "FAULT"
	default:
		return "UNKNOWN"
	}
}

// Health is the per-sensor status tag an upstream Drift instance (or any
// other health classifier) attaches to a reading before voting.
type Health int

const (
	Healthy Health = iota
	Degraded
	Faulty
)

func (h Health) String() string {
	switch h {
	case Healthy:
		return "HEALTHY"
	case Degraded:
		return "DEGRADED"
	case Faulty:
		return "FAULTY"
	default:
		return "UNKNOWN"
	}
}

// SensorInput is one tick's reading from one of the three voted sensors.
type SensorInput struct {
	Value  float64
	Health Health
}

// Errors mirror the §6 error taxonomy.
var (
	ErrNull   = errors.New("consensus: nil config")
	ErrConfig = errors.New("consensus: invalid config")
	ErrQuorum = errors.New("consensus: fewer than 2 active sensors")
	ErrFault  = errors.New("consensus: fsm latched in FAULT state")
)

// Result is the read-only snapshot produced by each Update call.
type Result struct {
	Value         float64
	Confidence    float64
	State         State
	ActiveSensors int
	SensorsAgree  bool
	Spread        float64
	Valid         bool
	Used          [3]bool
}

// FSM is one Consensus voter instance, always fed exactly three sensors.
type FSM struct {
	cfg config.ConsensusConfig

	state        State
	lastValue    float64
	n            uint64
	faultReentry bool

	inUse atomic.Bool
}

// New validates cfg and returns a freshly initialized FSM in StateInit.
func New(cfg *config.ConsensusConfig) (*FSM, error) {
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

// Update fuses three sensor readings into one trusted value. See spec
// §4.2 for the full voting algorithm; this implementation follows it step
// for step.
func (f *FSM) Update(inputs [3]SensorInput) (Result, error) {
	if !f.inUse.CompareAndSwap(false, true) {
		f.state = StateFault
		f.faultReentry = true
		return f.noQuorumResult(), ErrFault
	}
	defer f.inUse.Store(false)

	if f.faultReentry {
		return f.noQuorumResult(), ErrFault
	}

	var used [3]bool
	var activeIdx [3]int
	activeCount := 0
	for i, in := range inputs {
		if in.Health != Faulty && core.IsFinite(in.Value) {
			used[i] = true
			activeIdx[activeCount] = i
			activeCount++
		}
	}
	active := activeIdx[:activeCount]

	if activeCount < 2 {
		f.state = StateNoQuorum
		return Result{
			Value:         f.lastValue,
			Confidence:    0.1,
			State:         f.state,
			ActiveSensors: activeCount,
			SensorsAgree:  false,
			Spread:        0,
			Valid:         false,
			Used:          used,
		}, ErrQuorum
	}

	spread := spreadOf(inputs, active)

	value := f.vote(inputs, used, active)
	if !core.IsFinite(value) {
		f.state = StateFault
		f.faultReentry = true
		return f.noQuorumResult(), ErrFault
	}

	sensorsAgree := spread <= f.cfg.MaxDeviation

	anyDegraded := false
	for _, idx := range active {
		if inputs[idx].Health == Degraded {
			anyDegraded = true
			break
		}
	}

	switch {
	case anyDegraded || activeCount == 2:
		f.state = StateDegraded
	case sensorsAgree:
		f.state = StateAgree
	default:
		f.state = StateDisagree
	}

	confidence := computeConfidence(used, inputs, spread, f.cfg.MaxDeviation)

	f.lastValue = value
	f.n++

	return Result{
		Value:         value,
		Confidence:    confidence,
		State:         f.state,
		ActiveSensors: activeCount,
		SensorsAgree:  sensorsAgree,
		Spread:        spread,
		Valid:         true,
		Used:          used,
	}, nil
}

// vote computes the consensus value per §4.2 step 5: median-of-three or
// tie-broken pair in mid-value mode, health-weighted mean in weighted mode.
func (f *FSM) vote(inputs [3]SensorInput, used [3]bool, active []int) float64 {
	if f.cfg.UseWeightedAvg {
		return weightedAverage(inputs, active)
	}
	if len(active) == 3 {
		return medianOfThree(inputs[active[0]].Value, inputs[active[1]].Value, inputs[active[2]].Value)
	}
	// Exactly two actives: apply the configured tie-breaker.
	tb := f.cfg.TieBreaker
	if used[tb] {
		return inputs[tb].Value
	}
	return (inputs[active[0]].Value + inputs[active[1]].Value) / 2
}

// medianOfThree sorts three values locally (no allocation) and returns the
// middle one.
func medianOfThree(a, b, c float64) float64 {
	if a > b {
		a, b = b, a
	}
	if b > c {
		b, c = c, b
	}
	if a > b {
		a, b = b, a
	}
	return b
}

// weightedAverage weights each active sensor by health: HEALTHY=1.0,
// DEGRADED=0.5. §9's open question: with exactly two actives and
// tie_breaker pointing at the (excluded) FAULTY sensor, this still reduces
// to the health-weighted mean of the two actives (a plain mean when both
// share the same health), since the weighted sum over the active set
// already ignores the FAULTY one.
func weightedAverage(inputs [3]SensorInput, active []int) float64 {
	var sumW, sumWV float64
	for _, idx := range active {
		w := healthWeight(inputs[idx].Health)
		sumW += w
		sumWV += w * inputs[idx].Value
	}
	if sumW == 0 {
		// All active sensors somehow carry zero weight; fall back to a
		// plain mean rather than dividing by zero.
		var sum float64
		for _, idx := range active {
			sum += inputs[idx].Value
		}
		return sum / float64(len(active))
	}
	return sumWV / sumW
}

func healthWeight(h Health) float64 {
	switch h {
	case Healthy:
		return 1.0
	case Degraded:
		return 0.5
	default:
		return 0.0
	}
}

func spreadOf(inputs [3]SensorInput, active []int) float64 {
	lo, hi := inputs[active[0]].Value, inputs[active[0]].Value
	for _, idx := range active[1:] {
		v := inputs[idx].Value
		if v < lo {
			lo = v
		}
		if v > hi {
			hi = v
		}
	}
	return hi - lo
}

// computeConfidence implements §4.2 step 8: start from 1.0, subtract 0.25
// per active DEGRADED sensor and 0.5 per excluded (FAULTY or non-finite)
// sensor, then an additional spread-proportional penalty capped at 0.5,
// clamped to [0, 1]. This formula is an explicit open question in spec §9;
// the weights here are the required semantic target, treated as ordinal
// rather than a calibrated probability.
func computeConfidence(used [3]bool, inputs [3]SensorInput, spread, maxDeviation float64) float64 {
	confidence := 1.0
	for i, isActive := range used {
		if !isActive {
			confidence -= 0.5
			continue
		}
		if inputs[i].Health == Degraded {
			confidence -= 0.25
		}
	}

	spreadPenalty := spread / maxDeviation
	if spreadPenalty > 0.5 {
		spreadPenalty = 0.5
	}
	confidence -= spreadPenalty

	return core.Clamp(confidence, 0, 1)
}

func (f *FSM) noQuorumResult() Result {
	return Result{
		Value:      f.lastValue,
		Confidence: 0.1,
		State:      f.state,
		Valid:      false,
	}
}

func (f *FSM) clear() {
	f.state = StateInit
	f.lastValue = 0
	f.n = 0
	f.faultReentry = false
}

// Reset clears last value, tick counter, and the sticky fault latch, and
// returns the FSM to StateInit. Config is preserved.
func (f *FSM) Reset() {
	f.clear()
}

// State returns the current classification.
func (f *FSM) State() State { return f.state }

// IsFaulted reports whether the sticky fault-reentry latch is set.
func (f *FSM) IsFaulted() bool { return f.faultReentry }

// LastValue returns the last emitted consensus value (the fallback used on
// NO_QUORUM).
func (f *FSM) LastValue() float64 { return f.lastValue }

// N returns the accepted-tick counter.
func (f *FSM) N() uint64 { return f.n }
