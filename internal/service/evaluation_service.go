package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/mmynk/welfareguard/internal/calculator"
	"github.com/mmynk/welfareguard/internal/graph"
	"github.com/mmynk/welfareguard/internal/metrics"
	"github.com/mmynk/welfareguard/internal/models"
	"github.com/mmynk/welfareguard/internal/rules"
	"github.com/mmynk/welfareguard/internal/scoring"
	"github.com/mmynk/welfareguard/internal/storage"
	"github.com/mmynk/welfareguard/internal/verdict"
)

// ErrEvaluation marks a fault raised while running the rules or the graph
// analysis. Such faults are recovered into a degraded verdict, never returned.
var ErrEvaluation = errors.New("evaluation failed")

// Result values reported back to the dispatch layer.
const (
	ResultSuccess = "success"
	ResultError   = "error"
)

// Degradation causes, used as metric labels.
const (
	CauseEvaluation       = "evaluation"
	CauseRetriesExhausted = "retries_exhausted"
)

// Result is the structured outcome of one evaluation, for logging and telemetry.
type Result struct {
	Status         string        `json:"status"`
	ApplicantID    string        `json:"applicant_id"`
	IdentityToken  string        `json:"identity_token"`
	DecisionStatus models.Status `json:"decision_status,omitempty"`
	FraudScore     float64       `json:"fraud_score"`
	Message        string        `json:"message,omitempty"`
}

// EvaluationService runs the full evaluation for one submission:
// load data, evaluate rules, detect rings, merge, persist.
// It holds no per-evaluation state and is safe for concurrent use.
type EvaluationService struct {
	store         storage.Store
	evaluator     *rules.Evaluator
	ringThreshold int
	metrics       *metrics.Metrics
	scorer        scoring.Scorer
	now           func() time.Time
}

// Option configures an EvaluationService.
type Option func(*EvaluationService)

// WithMetrics records outcomes and latencies.
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *EvaluationService) { s.metrics = m }
}

// WithScorer enables the advisory scorer.
func WithScorer(sc scoring.Scorer) Option {
	return func(s *EvaluationService) { s.scorer = sc }
}

// WithClock overrides the clock used for the trailing income window.
func WithClock(now func() time.Time) Option {
	return func(s *EvaluationService) { s.now = now }
}

// WithRingThreshold overrides graph.DefaultDegreeThreshold.
func WithRingThreshold(threshold int) Option {
	return func(s *EvaluationService) { s.ringThreshold = threshold }
}

// NewEvaluationService creates a new EvaluationService with the given storage backend.
func NewEvaluationService(store storage.Store, evaluator *rules.Evaluator, opts ...Option) *EvaluationService {
	s := &EvaluationService{
		store:         store,
		evaluator:     evaluator,
		ringThreshold: graph.DefaultDegreeThreshold,
		now:           time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Evaluate runs one submission to a terminal state.
//
// A returned error means a data-access failure: nothing was persisted for the
// submission and the caller should redeliver it. Any other failure, panics
// included, is persisted as the degraded manual-audit verdict; the Result then
// carries status "error" and the returned error is nil.
func (s *EvaluationService) Evaluate(ctx context.Context, sub models.Submission) (res Result, err error) {
	start := time.Now()
	defer func() { s.metrics.ObserveEvaluateLatency(time.Since(start)) }()
	defer func() {
		if r := recover(); r != nil {
			res, err = s.degrade(ctx, sub, CauseEvaluation, fmt.Errorf("%w: panic: %v", ErrEvaluation, r))
		}
	}()

	slog.Debug("Evaluation started",
		"applicant_id", sub.ApplicantID,
		"identity_token", sub.IdentityToken,
		"payout_account", sub.TargetPayoutAccount,
	)

	identity, err := s.store.GetApplicant(ctx, sub.ApplicantID)
	if errors.Is(err, storage.ErrNotFound) {
		return s.degrade(ctx, sub, CauseEvaluation, fmt.Errorf("%w: %w", ErrEvaluation, err))
	}
	if err != nil {
		return errorResult(sub, err), fmt.Errorf("failed to load applicant: %w", err)
	}

	ledger, err := s.store.ListFinancialRecords(ctx, sub.IdentityToken)
	if err != nil {
		return errorResult(sub, err), fmt.Errorf("failed to load ledger: %w", err)
	}
	if slog.Default().Enabled(ctx, slog.LevelDebug) {
		slog.Debug("Ledger loaded",
			"applicant_id", sub.ApplicantID,
			"records", len(ledger),
			"credits_by_period", calculator.CreditsByPeriod(ledger),
		)
	}

	claims, err := s.store.ListClaims(ctx)
	if err != nil {
		return errorResult(sub, err), fmt.Errorf("failed to load claims: %w", err)
	}

	ev, err := s.run(rules.Input{
		Identity:            *identity,
		IdentityToken:       sub.IdentityToken,
		TargetPayoutAccount: sub.TargetPayoutAccount,
		Ledger:              ledger,
		Now:                 s.now(),
	}, claims, sub.Claim())
	if err != nil {
		return s.degrade(ctx, sub, CauseEvaluation, err)
	}

	app := &models.Application{
		ApplicantID:         sub.ApplicantID,
		IdentityToken:       sub.IdentityToken,
		TargetPayoutAccount: sub.TargetPayoutAccount,
		Status:              ev.verdict.Status,
		FraudScore:          ev.verdict.Score,
		FlagReason:          ev.verdict.Reason,
		CalculatedIncome:    ev.income,
	}
	if err := s.store.UpsertApplication(ctx, app); err != nil {
		return errorResult(sub, err), fmt.Errorf("failed to persist verdict: %w", err)
	}

	if ev.ring.Flagged {
		s.flagRingMembers(ctx, ev.ring)
	}
	s.advise(sub, ev)

	s.metrics.IncrementOutcome(string(app.Status))
	slog.Info("Evaluation persisted",
		"applicant_id", sub.ApplicantID,
		"status", app.Status,
		"fraud_score", app.FraudScore,
		"reason", app.FlagReason,
		"calculated_income", app.CalculatedIncome,
		"duration_ms", time.Since(start).Milliseconds(),
	)

	return Result{
		Status:         ResultSuccess,
		ApplicantID:    sub.ApplicantID,
		IdentityToken:  sub.IdentityToken,
		DecisionStatus: app.Status,
		FraudScore:     app.FraudScore,
	}, nil
}

// Degrade persists the engine-error verdict for a submission that could not
// be evaluated. The dispatch layer calls it once redelivery is exhausted.
func (s *EvaluationService) Degrade(ctx context.Context, sub models.Submission, cause error) (Result, error) {
	return s.degrade(ctx, sub, CauseRetriesExhausted, cause)
}

func (s *EvaluationService) degrade(ctx context.Context, sub models.Submission, label string, cause error) (Result, error) {
	v := verdict.Degraded()
	slog.Error("Evaluation failed, persisting manual audit",
		"applicant_id", sub.ApplicantID,
		"cause", label,
		"error", cause,
	)

	app := &models.Application{
		ApplicantID:         sub.ApplicantID,
		IdentityToken:       sub.IdentityToken,
		TargetPayoutAccount: sub.TargetPayoutAccount,
		Status:              v.Status,
		FraudScore:          v.Score,
		FlagReason:          v.Reason,
		CalculatedIncome:    0,
	}
	if err := s.store.UpsertApplication(ctx, app); err != nil {
		return errorResult(sub, err), fmt.Errorf("failed to persist degraded verdict: %w", err)
	}

	s.metrics.IncrementDegraded(label)
	s.metrics.IncrementOutcome(string(v.Status))

	return Result{
		Status:         ResultError,
		ApplicantID:    sub.ApplicantID,
		IdentityToken:  sub.IdentityToken,
		DecisionStatus: v.Status,
		FraudScore:     v.Score,
		Message:        cause.Error(),
	}, nil
}

type evaluation struct {
	outcome rules.Outcome
	ring    graph.Ring
	verdict verdict.Verdict
	income  float64
}

// run is the pure part of an evaluation. Panics are recovered into ErrEvaluation.
func (s *EvaluationService) run(in rules.Input, claims []models.Claim, candidate models.Claim) (ev evaluation, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: panic: %v", ErrEvaluation, r)
		}
	}()

	for _, r := range in.Ledger {
		if r.Amount.IsNegative() {
			return evaluation{}, fmt.Errorf("%w: ledger record %s has negative amount", ErrEvaluation, r.ID)
		}
	}

	ev.outcome = s.evaluator.Evaluate(in)
	findings := ev.outcome.Findings

	if !ev.outcome.Terminal {
		ev.ring = graph.DetectRing(claims, candidate, s.ringThreshold)
		if ev.ring.Flagged {
			findings = append(findings, rules.ProxyNetwork(ev.ring.Account, ev.ring.Degree))
		}
	}

	ev.verdict = verdict.Merge(findings)
	ev.income = ev.outcome.CalculatedIncome.InexactFloat64()
	return ev, nil
}

// flagRingMembers marks every other applicant on the ring's account.
// Failures are logged and left for the periodic sweep.
func (s *EvaluationService) flagRingMembers(ctx context.Context, ring graph.Ring) {
	finding := rules.ProxyNetwork(ring.Account, ring.Degree)
	flagged := 0
	for _, applicantID := range ring.Members {
		changed, err := s.flagMember(ctx, applicantID, finding)
		if err != nil {
			slog.Warn("flagRingMembers: failed to flag applicant",
				"applicant_id", applicantID,
				"account", ring.Account,
				"error", err,
			)
			continue
		}
		if changed {
			flagged++
		}
	}
	s.metrics.AddRingFlags("inline", flagged)
	slog.Info("Proxy network detected",
		"account", ring.Account,
		"degree", ring.Degree,
		"newly_flagged", flagged,
	)
}

// flagMember folds the ring finding into one member's row. A panic is
// reported as an error so the remaining members are still flagged.
func (s *EvaluationService) flagMember(ctx context.Context, applicantID string, finding rules.Finding) (changed bool, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return s.store.ModifyApplication(ctx, applicantID, func(app *models.Application) bool {
		return verdict.Flag(app, finding, verdict.ScoreMax, 0)
	})
}

// advise computes the advisory score, if a scorer is configured. The score
// never affects the verdict, so a failing scorer is logged and ignored.
func (s *EvaluationService) advise(sub models.Submission, ev evaluation) {
	if s.scorer == nil {
		return
	}
	defer func() {
		if r := recover(); r != nil {
			slog.Warn("Advisory scorer panicked", "applicant_id", sub.ApplicantID, "panic", r)
		}
	}()
	// TODO: pass the declared income once intake stores it alongside the claim.
	ringSize := 0
	if ev.ring.Flagged {
		ringSize = ev.ring.Degree
	}
	score := s.scorer.Score(scoring.Signals{
		DerivedIncome: ev.income,
		RingFlagCount: ringSize,
	})
	s.metrics.ObserveAdvisoryScore(score)
	slog.Debug("Advisory score",
		"applicant_id", sub.ApplicantID,
		"advisory_score", score,
		"fraud_score", ev.verdict.Score,
	)
}

func errorResult(sub models.Submission, err error) Result {
	return Result{
		Status:        ResultError,
		ApplicantID:   sub.ApplicantID,
		IdentityToken: sub.IdentityToken,
		Message:       err.Error(),
	}
}
