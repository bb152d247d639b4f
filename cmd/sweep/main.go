// Command sweep runs a single proxy network sweep over the registry and exits.
package main

import (
	"context"
	"flag"
	"log/slog"
	"os"

	"github.com/mmynk/welfareguard/internal/config"
	"github.com/mmynk/welfareguard/internal/service"
	"github.com/mmynk/welfareguard/internal/storage/sqlite"
	"github.com/mmynk/welfareguard/pkg/logging"
)

func main() {
	if err := run(); err != nil {
		slog.Error("Sweep failed", "error", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	// After Load, so LOG_LEVEL and LOG_FORMAT may come from .env.
	logging.Setup()

	threshold := flag.Int("threshold", cfg.RingDegreeThreshold, "flag accounts shared by more than this many applicants")
	penalty := flag.Float64("penalty", cfg.Sweep.Penalty, "score added to each newly flagged applicant")
	flag.Parse()

	store, err := sqlite.New(cfg.DBPath)
	if err != nil {
		return err
	}
	defer store.Close()

	flagged, err := service.NewSweepService(store, *threshold, *penalty, nil).Run(context.Background())
	if err != nil {
		return err
	}
	slog.Info("Sweep finished", "database", cfg.DBPath, "newly_flagged", flagged)
	return nil
}
