// Package fusion is the glue layer spec.md §2 describes as "upstream code":
// it runs one Drift FSM per sensor, maps each channel's state to a health
// tag, and feeds the resulting three (value, health) pairs into one
// Consensus tick. Neither FSM calls the other directly; fusion only ever
// invokes one FSM's Update at a time and carries the results between them.
package fusion

import (
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/sentinellabs/sentinelfsm/config"
	"github.com/sentinellabs/sentinelfsm/fsm/consensus"
	"github.com/sentinellabs/sentinelfsm/fsm/drift"
)

// Channel wraps one Drift FSM and derives a consensus.Health tag from its
// state, the way spec §2 describes upstream code tagging sensor health from
// Drift's output.
type Channel struct {
	Name string

	fsm    *drift.FSM
	log    zerolog.Logger
	health consensus.Health
	last   drift.Result
}

// NewChannel validates cfg and constructs a named Drift-backed channel.
func NewChannel(name string, cfg *config.DriftConfig, log zerolog.Logger) (*Channel, error) {
	fsm, err := drift.New(cfg)
	if err != nil {
		return nil, err
	}
	return &Channel{
		Name:   name,
		fsm:    fsm,
		log:    log.With().Str("channel", name).Logger(),
		health: consensus.Healthy,
	}, nil
}

// Observe feeds one (value, timestamp) tick through the channel's Drift FSM
// and refreshes its derived health tag. Errors from drift.Update are not
// propagated to the caller — a faulted sample still produces a usable
// SensorInput (FAULTY health), and a timestamp-rejected sample leaves the
// previous state and health in place, matching spec §2's model of Drift as
// a health classifier that Consensus always receives three inputs from.
func (c *Channel) Observe(value float64, tsMS uint64) drift.Result {
	before := c.fsm.IsFaulted()
	res, err := c.fsm.Update(value, tsMS)
	c.last = res
	c.health = healthFor(res.State)

	if !before && c.fsm.IsFaulted() {
		faultTotal.WithLabelValues(c.Name).Inc()
		c.log.Warn().
			Str("correlation_id", uuid.NewString()).
			Err(err).
			Uint64("n", res.N).
			Msg("channel latched fault")
	}

	return res
}

// healthFor maps a Drift state to the health tag Consensus expects: STABLE
// is HEALTHY, either drifting state is DEGRADED (still usable, but trending
// toward a limit), and FAULT is FAULTY. LEARNING is treated as HEALTHY since
// it carries a provisional but finite value.
func healthFor(s drift.State) consensus.Health {
	switch s {
	case drift.StateStable, drift.StateLearning:
		return consensus.Healthy
	case drift.StateDriftingUp, drift.StateDriftingDown:
		return consensus.Degraded
	default:
		return consensus.Faulty
	}
}

// Input builds the SensorInput Consensus will vote on for this tick's last
// observation.
func (c *Channel) Input() consensus.SensorInput {
	return consensus.SensorInput{Value: c.last.EMAValue, Health: c.health}
}

// Reset clears the channel's Drift FSM, including any sticky fault latch.
func (c *Channel) Reset() {
	c.fsm.Reset()
	c.health = consensus.Healthy
	c.last = drift.Result{}
}

// State reports the channel's current Drift state.
func (c *Channel) State() drift.State { return c.fsm.State() }

// Health reports the channel's currently derived consensus health tag.
func (c *Channel) Health() consensus.Health { return c.health }

// IsFaulted reports whether the underlying Drift FSM has a sticky fault.
func (c *Channel) IsFaulted() bool { return c.fsm.IsFaulted() }
