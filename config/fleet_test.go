package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const validFleetYAML = `
channels:
  a:
    alpha: 0.2
    max_safe_slope: 0.05
    upper_limit: 100
    lower_limit: 0
    n_min: 5
    max_gap_ms: 5000
    reset_on_gap: true
  b:
    alpha: 0.2
    max_safe_slope: 0.05
    upper_limit: 100
    lower_limit: 0
    n_min: 5
    max_gap_ms: 5000
    reset_on_gap: true
  c:
    alpha: 0.2
    max_safe_slope: 0.05
    upper_limit: 100
    lower_limit: 0
    n_min: 5
    max_gap_ms: 5000
    reset_on_gap: true
consensus:
  max_deviation: 0.5
  tie_breaker: 0
  n_min: 1
  use_weighted_avg: false
`

func writeTempFleet(t *testing.T, contents string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "fleet.yaml")
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o644))
	return path
}

func TestLoadFleetFileValid(t *testing.T) {
	path := writeTempFleet(t, validFleetYAML)

	fleet, err := LoadFleetFile(path)
	require.NoError(t, err)
	assert.Len(t, fleet.Channels, 3)
	assert.Contains(t, fleet.Channels, "a")
	assert.InDelta(t, 0.5, fleet.Consensus.MaxDeviation, 1e-9)
}

func TestLoadFleetFileRejectsWrongChannelCount(t *testing.T) {
	path := writeTempFleet(t, `
channels:
  a:
    alpha: 0.2
    max_safe_slope: 0.05
    upper_limit: 100
    lower_limit: 0
    n_min: 5
consensus:
  max_deviation: 0.5
  tie_breaker: 0
`)

	_, err := LoadFleetFile(path)
	assert.Error(t, err)
}

func TestLoadFleetFileRejectsInvalidChannel(t *testing.T) {
	path := writeTempFleet(t, `
channels:
  a:
    alpha: 0
    max_safe_slope: 0.05
    upper_limit: 100
    lower_limit: 0
    n_min: 5
  b:
    alpha: 0.2
    max_safe_slope: 0.05
    upper_limit: 100
    lower_limit: 0
    n_min: 5
  c:
    alpha: 0.2
    max_safe_slope: 0.05
    upper_limit: 100
    lower_limit: 0
    n_min: 5
consensus:
  max_deviation: 0.5
  tie_breaker: 0
`)

	_, err := LoadFleetFile(path)
	assert.Error(t, err)
}

func TestLoadFleetFileMissingFile(t *testing.T) {
	_, err := LoadFleetFile(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}
