package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/use-agent/duel/config"
	"github.com/use-agent/duel/engine"
	"github.com/use-agent/duel/models"
	"github.com/use-agent/duel/scoring"
)

var raceFlags struct {
	strategies     []string
	identityMode   string
	format         string
	includeContent bool
	progress       bool
}

var raceCmd = &cobra.Command{
	Use:   "race <url>",
	Short: "Race strategies against one URL and print the report",
	Args:  cobra.ExactArgs(1),
	RunE:  runRace,
}

func init() {
	f := raceCmd.Flags()
	f.StringSliceVarP(&raceFlags.strategies, "strategies", "s", nil, "Strategy IDs to race, in dispatch order (default: all)")
	f.StringVar(&raceFlags.identityMode, "identity-mode", "", "Identity mode: random or rotate (default: DUEL_IDENTITY_MODE)")
	f.StringVarP(&raceFlags.format, "format", "f", formatTable, "Output format: table, json or yaml")
	f.BoolVar(&raceFlags.includeContent, "include-content", false, "Keep outcome payloads in json/yaml output")
	f.BoolVar(&raceFlags.progress, "progress", true, "Print strategy progress to stderr")
}

func runRace(cmd *cobra.Command, args []string) error {
	if !validFormat(raceFlags.format) {
		return fmt.Errorf("unknown format %q (want table, json or yaml)", raceFlags.format)
	}
	targetURL := args[0]
	if err := engine.ValidateURL(targetURL); err != nil {
		return err
	}

	cfg := config.Load()
	// stdout carries the report.
	initLogger(cfg.Log, os.Stderr)

	a, err := newApp(cfg)
	if err != nil {
		return fmt.Errorf("initialise strategies: %w", err)
	}
	defer a.Close()

	ids := raceFlags.strategies
	if len(ids) == 0 {
		ids = a.registry.IDs()
	}
	entries, err := a.registry.Select(ids)
	if err != nil {
		return err
	}

	var observer engine.Observer
	if raceFlags.progress {
		stderr := cmd.ErrOrStderr()
		observer = func(ev models.ProgressEvent) {
			if ev.Outcome != nil {
				fmt.Fprintf(stderr, "%-16s %s (succeeded=%t, %.2fs)\n", ev.StrategyID, ev.Status, ev.Outcome.Succeeded, ev.Outcome.ElapsedSeconds)
				return
			}
			fmt.Fprintf(stderr, "%-16s %s\n", ev.StrategyID, ev.Status)
		}
	}

	results, err := a.orchestrator.WithMode(raceFlags.identityMode).Run(cmd.Context(), targetURL, entries, observer)
	if err != nil {
		return err
	}
	store := scoring.NewStore()
	store.AddAll(engine.Outcomes(results)...)
	report := store.Report(targetURL)
	slog.Debug("race finished", "url", targetURL, "winner", report.Winner.StrategyID)

	return writeReport(cmd.OutOrStdout(), &report, raceFlags.format, raceFlags.includeContent)
}
