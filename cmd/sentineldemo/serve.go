package main

import (
	"fmt"
	"math"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/sentinellabs/sentinelfsm/api"
	"github.com/sentinellabs/sentinelfsm/broadcast"
	"github.com/sentinellabs/sentinelfsm/config"
	"github.com/sentinellabs/sentinelfsm/fusion"
)

var (
	fleetPath   string
	listenAddr  string
	tickPeriod  time.Duration
	historySize int
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run a synthetic fleet and expose it over REST and WebSocket",
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().StringVar(&fleetPath, "fleet", "", "path to a YAML fleet config (required)")
	serveCmd.Flags().StringVar(&listenAddr, "addr", ":8080", "HTTP listen address")
	serveCmd.Flags().DurationVar(&tickPeriod, "tick", 200*time.Millisecond, "synthetic tick period")
	serveCmd.Flags().IntVar(&historySize, "history", 256, "number of ticks retained in the voter's history")
}

func runServe(cmd *cobra.Command, args []string) error {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil {
			return fmt.Errorf("load env file: %w", err)
		}
	}
	if fleetPath == "" {
		return fmt.Errorf("--fleet is required")
	}

	level := zerolog.InfoLevel
	if verbose {
		level = zerolog.DebugLevel
	}
	log := zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}).
		With().Timestamp().Logger().Level(level)

	fleet, err := config.LoadFleetFile(fleetPath)
	if err != nil {
		return fmt.Errorf("load fleet: %w", err)
	}

	names := make([]string, 0, 3)
	for name := range fleet.Channels {
		names = append(names, name)
	}

	var channels [3]*fusion.Channel
	for i, name := range names {
		cfg := fleet.Channels[name]
		ch, err := fusion.NewChannel(name, &cfg, log)
		if err != nil {
			return fmt.Errorf("channel %q: %w", name, err)
		}
		channels[i] = ch
	}

	voter, err := fusion.NewVoter("fleet", channels, &fleet.Consensus, log, historySize)
	if err != nil {
		return fmt.Errorf("voter: %w", err)
	}

	apiServer := api.NewServer(voter, log)
	hub := broadcast.NewHub(log)

	stop := make(chan struct{})
	go hub.Run(stop)

	mux := http.NewServeMux()
	mux.Handle("/ws", http.HandlerFunc(hub.ServeWS))
	mux.Handle("/", apiServer.Handler())

	srv := &http.Server{Addr: listenAddr, Handler: mux}

	go func() {
		log.Info().Str("addr", listenAddr).Msg("serving api and broadcast")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error().Err(err).Msg("http server exited")
		}
	}()

	ticker := time.NewTicker(tickPeriod)
	defer ticker.Stop()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)

	var tickCount uint64
	var tsMS uint64
	for {
		select {
		case <-ticker.C:
			tsMS += uint64(tickPeriod.Milliseconds())
			values := syntheticReading(tickCount)
			tick := voter.Tick(values, tsMS)
			apiServer.Update(tick)
			hub.Publish(tick)
			tickCount++
		case <-sig:
			close(stop)
			return srv.Close()
		}
	}
}

// syntheticReading produces three correlated sensor values around a slow
// sine drift, standing in for the upstream acquisition loop spec.md §1
// names as an out-of-scope external collaborator.
func syntheticReading(tick uint64) [3]float64 {
	base := 50.0 + 5*math.Sin(float64(tick)/20.0)
	return [3]float64{base, base + 0.1, base - 0.1}
}
