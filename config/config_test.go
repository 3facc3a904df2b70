package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDefaultDriftConfig(t *testing.T) {
	cfg := DefaultDriftConfig()
	assert.Equal(t, uint32(5), cfg.NMin)
	assert.NoError(t, cfg.Validate())
}

func TestDriftConfigValidation(t *testing.T) {
	cases := []struct {
		name    string
		modify  func(*DriftConfig)
		wantErr bool
	}{
		{"zero alpha", func(c *DriftConfig) { c.Alpha = 0 }, true},
		{"alpha above 1", func(c *DriftConfig) { c.Alpha = 1.5 }, true},
		{"negative max_safe_slope", func(c *DriftConfig) { c.MaxSafeSlope = -1 }, true},
		{"upper equals lower", func(c *DriftConfig) { c.UpperLimit = c.LowerLimit }, true},
		{"n_min below 2", func(c *DriftConfig) { c.NMin = 1 }, true},
		{"valid custom n_min", func(c *DriftConfig) { c.NMin = 10 }, false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := DefaultDriftConfig()
			tc.modify(&cfg)
			err := cfg.Validate()
			if tc.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestDefaultConsensusConfig(t *testing.T) {
	cfg := DefaultConsensusConfig()
	assert.NoError(t, cfg.Validate())
	assert.False(t, cfg.UseWeightedAvg)
}

func TestConsensusConfigValidation(t *testing.T) {
	cases := []struct {
		name    string
		modify  func(*ConsensusConfig)
		wantErr bool
	}{
		{"zero max_deviation", func(c *ConsensusConfig) { c.MaxDeviation = 0 }, true},
		{"tie_breaker too low", func(c *ConsensusConfig) { c.TieBreaker = -1 }, true},
		{"tie_breaker too high", func(c *ConsensusConfig) { c.TieBreaker = 3 }, true},
		{"valid tie_breaker 2", func(c *ConsensusConfig) { c.TieBreaker = 2 }, false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := DefaultConsensusConfig()
			tc.modify(&cfg)
			err := cfg.Validate()
			if tc.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
