package fusion

import (
	"math"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sentinellabs/sentinelfsm/config"
)

func newTestVoter(t *testing.T) *Voter {
	t.Helper()
	dc := config.DefaultDriftConfig()
	cc := config.DefaultConsensusConfig()
	log := zerolog.Nop()

	var channels [3]*Channel
	for i, name := range []string{"a", "b", "c"} {
		ch, err := NewChannel(name, &dc, log)
		require.NoError(t, err)
		channels[i] = ch
	}

	v, err := NewVoter("fleet1", channels, &cc, log, 16)
	require.NoError(t, err)
	return v
}

func TestVoterTickProducesConsensusSnapshot(t *testing.T) {
	v := newTestVoter(t)

	var tick Tick
	for k := uint64(0); k < 6; k++ {
		tick = v.Tick([3]float64{50.0, 50.1, 49.9}, 1000+k*100)
	}

	assert.True(t, tick.Valid)
	assert.Len(t, tick.Channels, 3)
	assert.Equal(t, "a", tick.Channels[0].Name)
}

func TestVoterRejectsWrongChannelCount(t *testing.T) {
	dc := config.DefaultDriftConfig()
	cc := config.DefaultConsensusConfig()
	log := zerolog.Nop()
	ch, err := NewChannel("solo", &dc, log)
	require.NoError(t, err)

	_, err = NewVoter("bad", [3]*Channel{ch, nil, nil}, &cc, log, 0)
	assert.ErrorIs(t, err, ErrChannelCount)
}

func TestVoterHistoryBounded(t *testing.T) {
	v := newTestVoter(t)
	for k := uint64(0); k < 20; k++ {
		v.Tick([3]float64{10, 10, 10}, 1000+k*100)
	}

	hist := v.History()
	assert.Len(t, hist, 16)
}

func TestVoterResetClearsChannelsAndConsensus(t *testing.T) {
	v := newTestVoter(t)
	for k := uint64(0); k < 3; k++ {
		v.Tick([3]float64{10, 10, 10}, 1000+k*100)
	}

	v.Reset()
	assert.Empty(t, v.History())
	for _, name := range []string{"a", "b", "c"} {
		ch := v.Channel(name)
		require.NotNil(t, ch)
		assert.False(t, ch.IsFaulted())
	}
}

func TestChannelHealthMapping(t *testing.T) {
	dc := config.DefaultDriftConfig()
	dc.NMin = 3
	log := zerolog.Nop()
	ch, err := NewChannel("drifter", &dc, log)
	require.NoError(t, err)

	var ts uint64 = 1000
	for k := 0; k < 10; k++ {
		ch.Observe(20+10*float64(k), ts)
		ts += 100
	}

	assert.Equal(t, "DEGRADED", ch.Health().String())
}

func TestChannelLatchesFaultyHealthOnNaN(t *testing.T) {
	dc := config.DefaultDriftConfig()
	log := zerolog.Nop()
	ch, err := NewChannel("flaky", &dc, log)
	require.NoError(t, err)

	ch.Observe(50.0, 1000)
	ch.Observe(math.NaN(), 1100)
	assert.Equal(t, "FAULTY", ch.Health().String())
	assert.True(t, ch.IsFaulted())
}
