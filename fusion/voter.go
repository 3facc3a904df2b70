package fusion

import (
	"errors"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/sentinellabs/sentinelfsm/config"
	"github.com/sentinellabs/sentinelfsm/fsm/consensus"
)

// ErrChannelCount is returned when a Voter is asked to supervise anything
// other than exactly three channels, matching spec §1's "no Non-goal
// to support more than 3 sensor channels in one voter".
var ErrChannelCount = errors.New("fusion: voter requires exactly 3 channels")

// ChannelSnapshot is the read-only, JSON-friendly view of one channel's
// state after a tick, used by the api and broadcast packages.
type ChannelSnapshot struct {
	Name     string  `json:"name"`
	State    string  `json:"state"`
	EMAValue float64 `json:"ema_value"`
	Slope    float64 `json:"slope"`
	Health   string  `json:"health"`
	Faulted  bool    `json:"faulted"`
}

// Tick is the combined result of one fusion cycle: all three channels'
// snapshots plus the consensus outcome they fed.
type Tick struct {
	TimestampMS uint64             `json:"timestamp_ms"`
	Channels    [3]ChannelSnapshot `json:"channels"`
	Value       float64            `json:"value"`
	Confidence  float64            `json:"confidence"`
	State       string             `json:"state"`
	Spread      float64            `json:"spread"`
	Valid       bool               `json:"valid"`
}

// Voter supervises exactly three Channels and fuses their output with one
// Consensus FSM, the wiring spec §2 describes as the typical upstream use
// of the two cooperating modules.
type Voter struct {
	name     string
	channels [3]*Channel
	fsm      *consensus.FSM
	log      zerolog.Logger

	history []Tick
	maxHist int
}

// NewVoter validates cfg and wires three already-constructed Channels to a
// fresh Consensus FSM. maxHistory bounds the in-process ring buffer that
// diagnostics reads from; 0 disables history retention.
func NewVoter(name string, channels [3]*Channel, cfg *config.ConsensusConfig, log zerolog.Logger, maxHistory int) (*Voter, error) {
	for _, c := range channels {
		if c == nil {
			return nil, ErrChannelCount
		}
	}
	fsm, err := consensus.New(cfg)
	if err != nil {
		return nil, err
	}
	return &Voter{
		name:     name,
		channels: channels,
		fsm:      fsm,
		log:      log.With().Str("voter", name).Logger(),
		maxHist:  maxHistory,
	}, nil
}

// Tick feeds one (value, timestamp) triple — one per channel, in channel
// order — through each channel's Drift FSM and then through the Consensus
// FSM, returning the combined snapshot. Each call invokes exactly one
// Update on each wrapped FSM; fusion never lets the two FSM kinds call each
// other.
func (v *Voter) Tick(values [3]float64, tsMS uint64) Tick {
	before := v.fsm.IsFaulted()

	var inputs [3]consensus.SensorInput
	var snapshots [3]ChannelSnapshot
	for i, ch := range v.channels {
		res := ch.Observe(values[i], tsMS)
		inputs[i] = ch.Input()
		snapshots[i] = ChannelSnapshot{
			Name:     ch.Name,
			State:    res.State.String(),
			EMAValue: res.EMAValue,
			Slope:    res.Slope,
			Health:   ch.Health().String(),
			Faulted:  ch.IsFaulted(),
		}
	}

	cres, err := v.fsm.Update(inputs)
	if err != nil && !errors.Is(err, consensus.ErrQuorum) {
		v.log.Error().Err(err).Msg("consensus update error")
	}
	if !before && v.fsm.IsFaulted() {
		faultTotal.WithLabelValues(v.name).Inc()
		v.log.Warn().
			Str("correlation_id", uuid.NewString()).
			Msg("voter latched fault")
	}

	activeSensorsGauge.WithLabelValues(v.name).Set(float64(cres.ActiveSensors))
	confidenceGauge.WithLabelValues(v.name).Set(cres.Confidence)

	tick := Tick{
		TimestampMS: tsMS,
		Channels:    snapshots,
		Value:       cres.Value,
		Confidence:  cres.Confidence,
		State:       cres.State.String(),
		Spread:      cres.Spread,
		Valid:       cres.Valid,
	}

	v.record(tick)
	return tick
}

func (v *Voter) record(t Tick) {
	if v.maxHist <= 0 {
		return
	}
	v.history = append(v.history, t)
	if len(v.history) > v.maxHist {
		v.history = v.history[len(v.history)-v.maxHist:]
	}
}

// History returns a copy of the retained tick history, oldest first.
func (v *Voter) History() []Tick {
	out := make([]Tick, len(v.history))
	copy(out, v.history)
	return out
}

// Name returns the voter's identifying label.
func (v *Voter) Name() string { return v.name }

// Reset clears every channel's Drift FSM and the Consensus FSM, including
// sticky fault latches, and discards recorded history.
func (v *Voter) Reset() {
	for _, c := range v.channels {
		c.Reset()
	}
	v.fsm.Reset()
	v.history = nil
}

// ConsensusState reports the voter's current Consensus FSM state.
func (v *Voter) ConsensusState() consensus.State { return v.fsm.State() }

// Channel returns the named channel, or nil if no channel by that name is
// supervised by this voter.
func (v *Voter) Channel(name string) *Channel {
	for _, c := range v.channels {
		if c.Name == name {
			return c
		}
	}
	return nil
}
