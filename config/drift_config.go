// Package config centralizes the tunable parameters for the drift and
// consensus state machines, along with a fleet-level YAML loader for the
// demo/serve binaries. Mirrors goti's config.IndicatorConfig /
// DefaultConfig() shape: a single struct, a Validate method, and a
// sensible-defaults constructor.
package config

import "errors"

// DriftConfig holds the parameters validated once by drift.FSM.Init and
// never mutated afterward.
type DriftConfig struct {
	// Alpha is the EMA smoothing factor in (0, 1].
	Alpha float64
	// MaxSafeSlope is the magnitude threshold separating STABLE from
	// DRIFTING_UP/DRIFTING_DOWN.
	MaxSafeSlope float64
	// UpperLimit and LowerLimit are the physical bounds used for TTF.
	UpperLimit float64
	LowerLimit float64
	// NMin is the minimum accepted-sample count before non-LEARNING
	// classification is allowed.
	NMin uint32
	// MaxGapMS is the gap, in milliseconds, above which ResetOnGap governs
	// behavior.
	MaxGapMS uint64
	// ResetOnGap selects whether a gap exceeding MaxGapMS reinitializes the
	// EMA as a fresh start rather than computing a (likely meaningless)
	// slope across the gap.
	ResetOnGap bool
}

// DefaultDriftConfig returns conservative defaults suitable for a generic
// sensor channel.
func DefaultDriftConfig() DriftConfig {
	return DriftConfig{
		Alpha:        0.2,
		MaxSafeSlope: 0.05,
		UpperLimit:   100.0,
		LowerLimit:   0.0,
		NMin:         5,
		MaxGapMS:     5000,
		ResetOnGap:   true,
	}
}

// Validate enforces the §3.1 configuration constraints.
func (c DriftConfig) Validate() error {
	if c.Alpha <= 0 || c.Alpha > 1 {
		return errors.New("drift: alpha must be in (0, 1]")
	}
	if c.MaxSafeSlope <= 0 {
		return errors.New("drift: max_safe_slope must be > 0")
	}
	if c.UpperLimit <= c.LowerLimit {
		return errors.New("drift: upper_limit must be greater than lower_limit")
	}
	if c.NMin < 2 {
		return errors.New("drift: n_min must be >= 2")
	}
	return nil
}
