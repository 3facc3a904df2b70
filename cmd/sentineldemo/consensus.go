package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/sentinellabs/sentinelfsm/config"
	"github.com/sentinellabs/sentinelfsm/fsm/consensus"
)

var consensusCmd = &cobra.Command{
	Use:   "consensus",
	Short: "Replay the canonical Consensus scenarios and print per-tick results",
	RunE:  runConsensus,
}

type consensusScenario struct {
	name   string
	ticks  [][3]consensus.SensorInput
	weight bool
}

func runConsensus(cmd *cobra.Command, args []string) error {
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	defer w.Flush()

	fmt.Fprintln(w, "scenario\ttick\tvalue\tconfidence\tstate\tspread\tvalid\terr")

	scenarios := []consensusScenario{
		{
			name: "one_liar",
			ticks: [][3]consensus.SensorInput{{
				{Value: 100.0, Health: consensus.Healthy},
				{Value: 100.2, Health: consensus.Healthy},
				{Value: 99999.0, Health: consensus.Healthy},
			}},
		},
		{
			name: "no_quorum",
			ticks: [][3]consensus.SensorInput{
				{
					{Value: 74.8, Health: consensus.Healthy},
					{Value: 75.1, Health: consensus.Healthy},
					{Value: 75.0, Health: consensus.Healthy},
				},
				{
					{Value: 80.0, Health: consensus.Healthy},
					{Value: 0, Health: consensus.Faulty},
					{Value: 0, Health: consensus.Faulty},
				},
			},
		},
		{
			name: "degraded",
			ticks: [][3]consensus.SensorInput{{
				{Value: 50.0, Health: consensus.Healthy},
				{Value: 50.2, Health: consensus.Degraded},
				{Value: 50.1, Health: consensus.Healthy},
			}},
		},
		{
			name: "all_identical",
			ticks: [][3]consensus.SensorInput{{
				{Value: 42.0, Health: consensus.Healthy},
				{Value: 42.0, Health: consensus.Healthy},
				{Value: 42.0, Health: consensus.Healthy},
			}},
		},
	}

	for _, s := range scenarios {
		cfg := config.DefaultConsensusConfig()
		cfg.UseWeightedAvg = s.weight
		f, err := consensus.New(&cfg)
		if err != nil {
			return fmt.Errorf("init %s: %w", s.name, err)
		}

		for i, tick := range s.ticks {
			res, err := f.Update(tick)
			errStr := ""
			if err != nil {
				errStr = err.Error()
			}
			fmt.Fprintf(w, "%s\t%d\t%.4f\t%.4f\t%s\t%.4f\t%t\t%s\n",
				s.name, i, res.Value, res.Confidence, res.State, res.Spread, res.Valid, errStr)
		}
	}

	return nil
}
