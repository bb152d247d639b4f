package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/mmynk/welfareguard/internal/graph"
	"github.com/mmynk/welfareguard/internal/metrics"
	"github.com/mmynk/welfareguard/internal/models"
	"github.com/mmynk/welfareguard/internal/rules"
	"github.com/mmynk/welfareguard/internal/storage"
	"github.com/mmynk/welfareguard/internal/verdict"
)

// DefaultSweepPenalty is added to the score of every newly flagged applicant.
const DefaultSweepPenalty = 0.85

// SweepService re-runs ring detection over the whole registry.
type SweepService struct {
	store     storage.Registry
	threshold int
	penalty   float64
	metrics   *metrics.Metrics
}

// NewSweepService creates a SweepService. m may be nil.
func NewSweepService(store storage.Registry, threshold int, penalty float64, m *metrics.Metrics) *SweepService {
	return &SweepService{store: store, threshold: threshold, penalty: penalty, metrics: m}
}

// Run flags every applicant attached to an over-subscribed payout account and
// returns how many were newly flagged. Applicants already carrying the proxy
// network finding are left untouched, so repeated sweeps are stable.
func (s *SweepService) Run(ctx context.Context) (int, error) {
	claims, err := s.store.ListClaims(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to load claims: %w", err)
	}

	rings := graph.Sweep(claims, s.threshold)
	flagged := 0
	for _, ring := range rings {
		finding := rules.ProxyNetwork(ring.Account, ring.Degree)
		for _, applicantID := range ring.Members {
			changed, err := s.store.ModifyApplication(ctx, applicantID, func(app *models.Application) bool {
				return verdict.Flag(app, finding, verdict.ScoreAdditive, s.penalty)
			})
			if errors.Is(err, storage.ErrNotFound) {
				continue
			}
			if err != nil {
				s.metrics.AddRingFlags("sweep", flagged)
				return flagged, fmt.Errorf("failed to flag applicant %s: %w", applicantID, err)
			}
			if changed {
				flagged++
			}
		}
	}

	s.metrics.AddRingFlags("sweep", flagged)
	slog.Info("Ring sweep complete",
		"claims", len(claims),
		"rings", len(rings),
		"newly_flagged", flagged,
	)
	return flagged, nil
}

// RunEvery sweeps on a fixed interval until ctx is cancelled.
// A failed sweep is logged and retried on the next tick.
func (s *SweepService) RunEvery(ctx context.Context, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if _, err := s.Run(ctx); err != nil {
				slog.Error("Ring sweep failed", "error", err)
			}
		}
	}
}
