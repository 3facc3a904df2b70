package diagnostics

import (
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sentinellabs/sentinelfsm/config"
	"github.com/sentinellabs/sentinelfsm/fusion"
)

func buildHistory(t *testing.T) []fusion.Tick {
	t.Helper()
	dc := config.DefaultDriftConfig()
	cc := config.DefaultConsensusConfig()
	log := zerolog.Nop()

	var channels [3]*fusion.Channel
	for i, name := range []string{"a", "b", "c"} {
		ch, err := fusion.NewChannel(name, &dc, log)
		require.NoError(t, err)
		channels[i] = ch
	}

	v, err := fusion.NewVoter("diag", channels, &cc, log, 64)
	require.NoError(t, err)

	for k := uint64(0); k < 20; k++ {
		v.Tick([3]float64{50.0, 50.1, 49.9}, 1000+k*100)
	}
	return v.History()
}

func TestAnalyzeRejectsEmptyHistory(t *testing.T) {
	_, err := Analyze(nil)
	assert.ErrorIs(t, err, ErrEmptyHistory)
}

func TestAnalyzeProducesConsensusAndChannelReports(t *testing.T) {
	history := buildHistory(t)

	report, err := Analyze(history)
	require.NoError(t, err)

	assert.Equal(t, "a", report.Channels[0].Name)
	assert.Equal(t, len(history), report.Channels[0].SampledTicks)
	assert.InDelta(t, 50.0, report.Consensus.MeanValue, 0.5)
	assert.GreaterOrEqual(t, report.Consensus.MeanConfidence, 0.0)
	assert.LessOrEqual(t, report.Consensus.MeanConfidence, 1.0)
}
