package config

import "errors"

// ConsensusConfig holds the parameters validated once by consensus.FSM.Init
// and never mutated afterward.
type ConsensusConfig struct {
	// MaxDeviation is the maximum permitted spread for state AGREE.
	MaxDeviation float64
	// TieBreaker is the sensor index (0, 1, or 2) used to break an exact
	// two-active-sensor tie in mid-value mode.
	TieBreaker int
	// NMin is the warm-up tick count. It is carried through for parity with
	// the original contract; the voting algorithm itself is tick-local and
	// does not require warm-up to produce a value.
	NMin uint32
	// UseWeightedAvg selects weighted-average voting (true) over
	// mid-value/median voting (false, the default).
	UseWeightedAvg bool
}

// DefaultConsensusConfig returns the library defaults: mid-value voting,
// tie-breaking toward sensor 0.
func DefaultConsensusConfig() ConsensusConfig {
	return ConsensusConfig{
		MaxDeviation:   1.0,
		TieBreaker:     0,
		NMin:           1,
		UseWeightedAvg: false,
	}
}

// Validate enforces the §3.2 configuration constraints.
func (c ConsensusConfig) Validate() error {
	if c.MaxDeviation <= 0 {
		return errors.New("consensus: max_deviation must be > 0")
	}
	if c.TieBreaker < 0 || c.TieBreaker > 2 {
		return errors.New("consensus: tie_breaker must be 0, 1, or 2")
	}
	return nil
}
