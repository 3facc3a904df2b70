package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// FleetConfig describes a set of sensor channels and the consensus voter
// that fuses them, as loaded from a YAML file by the demo/serve binaries.
// This lives entirely outside the FSM core: it only produces the immutable
// config values that Init consumes.
type FleetConfig struct {
	Channels  map[string]DriftConfig `yaml:"channels"`
	Consensus ConsensusConfig        `yaml:"consensus"`
}

// driftConfigYAML and consensusConfigYAML mirror the exported config
// structs with yaml tags, since DriftConfig/ConsensusConfig are shared with
// the hot init path and kept free of struct tags.
type driftConfigYAML struct {
	Alpha        float64 `yaml:"alpha"`
	MaxSafeSlope float64 `yaml:"max_safe_slope"`
	UpperLimit   float64 `yaml:"upper_limit"`
	LowerLimit   float64 `yaml:"lower_limit"`
	NMin         uint32  `yaml:"n_min"`
	MaxGapMS     uint64  `yaml:"max_gap_ms"`
	ResetOnGap   bool    `yaml:"reset_on_gap"`
}

type consensusConfigYAML struct {
	MaxDeviation   float64 `yaml:"max_deviation"`
	TieBreaker     int     `yaml:"tie_breaker"`
	NMin           uint32  `yaml:"n_min"`
	UseWeightedAvg bool    `yaml:"use_weighted_avg"`
}

type fleetConfigYAML struct {
	Channels  map[string]driftConfigYAML `yaml:"channels"`
	Consensus consensusConfigYAML        `yaml:"consensus"`
}

// LoadFleetFile reads and validates a YAML fleet description. Every channel
// config and the consensus config are validated via their own Validate
// methods before the function returns, so callers can pass the result
// straight to Init without re-checking.
func LoadFleetFile(path string) (FleetConfig, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return FleetConfig{}, fmt.Errorf("config: read fleet file: %w", err)
	}

	var parsed fleetConfigYAML
	if err := yaml.Unmarshal(raw, &parsed); err != nil {
		return FleetConfig{}, fmt.Errorf("config: parse fleet file: %w", err)
	}

	fleet := FleetConfig{
		Channels: make(map[string]DriftConfig, len(parsed.Channels)),
		Consensus: ConsensusConfig{
			MaxDeviation:   parsed.Consensus.MaxDeviation,
			TieBreaker:     parsed.Consensus.TieBreaker,
			NMin:           parsed.Consensus.NMin,
			UseWeightedAvg: parsed.Consensus.UseWeightedAvg,
		},
	}
	if err := fleet.Consensus.Validate(); err != nil {
		return FleetConfig{}, fmt.Errorf("config: consensus section: %w", err)
	}

	for name, dc := range parsed.Channels {
		cfg := DriftConfig{
			Alpha:        dc.Alpha,
			MaxSafeSlope: dc.MaxSafeSlope,
			UpperLimit:   dc.UpperLimit,
			LowerLimit:   dc.LowerLimit,
			NMin:         dc.NMin,
			MaxGapMS:     dc.MaxGapMS,
			ResetOnGap:   dc.ResetOnGap,
		}
		if err := cfg.Validate(); err != nil {
			return FleetConfig{}, fmt.Errorf("config: channel %q: %w", name, err)
		}
		fleet.Channels[name] = cfg
	}

	if len(fleet.Channels) != 3 {
		return FleetConfig{}, fmt.Errorf("config: fleet must declare exactly 3 channels, got %d", len(fleet.Channels))
	}

	return fleet, nil
}
