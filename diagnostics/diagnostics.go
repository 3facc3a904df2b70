// Package diagnostics runs batch statistics over a recorded window of
// fusion ticks. It never runs on the per-tick path and never mutates FSM
// state; it only reads the history a fusion.Voter has already retained.
package diagnostics

import (
	"errors"
	"fmt"

	"github.com/montanaflynn/stats"

	"github.com/sentinellabs/sentinelfsm/fusion"
)

// ErrEmptyHistory is returned when a report is requested over zero ticks.
var ErrEmptyHistory = errors.New("diagnostics: empty tick history")

// ChannelReport summarizes one channel's slope behavior across a window.
type ChannelReport struct {
	Name         string
	MeanSlope    float64
	StdDevSlope  float64
	MeanEMA      float64
	OutlierCount int
	FaultedTicks int
	SampledTicks int
}

// ConsensusReport summarizes the voter's consensus value and confidence
// across a window.
type ConsensusReport struct {
	MeanValue        float64
	MeanConfidence   float64
	MeanSpread       float64
	SpreadTrend      float64
	InvalidTickCount int
	SampledTicks     int
}

// Report bundles both report kinds for one diagnostic pass.
type Report struct {
	Channels  [3]ChannelReport
	Consensus ConsensusReport
}

// Analyze computes a Report over the given tick history. History is read
// only, in tick order (oldest first), as returned by fusion.Voter.History.
func Analyze(history []fusion.Tick) (Report, error) {
	if len(history) == 0 {
		return Report{}, ErrEmptyHistory
	}

	var report Report

	for i := 0; i < 3; i++ {
		slopes := make([]float64, 0, len(history))
		emas := make([]float64, 0, len(history))
		faulted := 0
		name := history[0].Channels[i].Name

		for _, tick := range history {
			ch := tick.Channels[i]
			slopes = append(slopes, ch.Slope)
			emas = append(emas, ch.EMAValue)
			if ch.Faulted {
				faulted++
			}
		}

		meanSlope, err := stats.Mean(slopes)
		if err != nil {
			return Report{}, fmt.Errorf("diagnostics: channel %q mean slope: %w", name, err)
		}
		stdDevSlope, err := stats.StandardDeviation(slopes)
		if err != nil {
			return Report{}, fmt.Errorf("diagnostics: channel %q stddev slope: %w", name, err)
		}
		meanEMA, err := stats.Mean(emas)
		if err != nil {
			return Report{}, fmt.Errorf("diagnostics: channel %q mean ema: %w", name, err)
		}
		outliers, err := outlierCount(slopes, meanSlope, stdDevSlope)
		if err != nil {
			return Report{}, fmt.Errorf("diagnostics: channel %q outliers: %w", name, err)
		}

		report.Channels[i] = ChannelReport{
			Name:         name,
			MeanSlope:    meanSlope,
			StdDevSlope:  stdDevSlope,
			MeanEMA:      meanEMA,
			OutlierCount: outliers,
			FaultedTicks: faulted,
			SampledTicks: len(history),
		}
	}

	values := make([]float64, 0, len(history))
	confidences := make([]float64, 0, len(history))
	spreads := make([]float64, 0, len(history))
	invalid := 0
	for _, tick := range history {
		values = append(values, tick.Value)
		confidences = append(confidences, tick.Confidence)
		spreads = append(spreads, tick.Spread)
		if !tick.Valid {
			invalid++
		}
	}

	meanValue, err := stats.Mean(values)
	if err != nil {
		return Report{}, fmt.Errorf("diagnostics: mean consensus value: %w", err)
	}
	meanConfidence, err := stats.Mean(confidences)
	if err != nil {
		return Report{}, fmt.Errorf("diagnostics: mean confidence: %w", err)
	}
	meanSpread, err := stats.Mean(spreads)
	if err != nil {
		return Report{}, fmt.Errorf("diagnostics: mean spread: %w", err)
	}
	trend := spreadTrend(spreads)

	report.Consensus = ConsensusReport{
		MeanValue:        meanValue,
		MeanConfidence:   meanConfidence,
		MeanSpread:       meanSpread,
		SpreadTrend:      trend,
		InvalidTickCount: invalid,
		SampledTicks:     len(history),
	}

	return report, nil
}

// outlierCount counts samples more than 2 standard deviations from the
// mean, a coarse but allocation-cheap-enough offline signal.
func outlierCount(samples []float64, mean, stdDev float64) (int, error) {
	if stdDev == 0 {
		return 0, nil
	}
	count := 0
	for _, v := range samples {
		if absF(v-mean) > 2*stdDev {
			count++
		}
	}
	return count, nil
}

// spreadTrend is the slope of a linear regression of spread over tick
// index, giving a simple "is disagreement growing?" signal.
func spreadTrend(spreads []float64) float64 {
	series := make(stats.Series, len(spreads))
	for i, v := range spreads {
		series[i] = stats.Coordinate{X: float64(i), Y: v}
	}
	line, err := stats.LinearRegression(series)
	if err != nil || len(line) < 2 {
		return 0
	}
	first, last := line[0], line[len(line)-1]
	return (last.Y - first.Y) / (last.X - first.X)
}

func absF(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
