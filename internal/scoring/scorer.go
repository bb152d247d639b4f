// Package scoring defines the optional advisory scorer.
//
// Advisory scores never change a verdict: the deterministic rules decide
// status, score and reason. A scorer only adds a logged, metered signal that
// can be compared against verdicts offline.
package scoring

import "math"

// Signals are the inputs a scorer may use.
type Signals struct {
	// StatedIncome is the income the applicant declared, zero when unknown.
	StatedIncome float64

	// DerivedIncome is the trailing income computed from the ledger.
	DerivedIncome float64

	// RingFlagCount is the size of the proxy network the applicant belongs to,
	// zero when the payout account is not over-subscribed.
	RingFlagCount int
}

// Scorer turns signals into a score in [0, 1].
type Scorer interface {
	Score(s Signals) float64
}

// Logistic is a linear model squashed through a sigmoid.
// Income figures are normalised to units of IncomeScale before weighting.
type Logistic struct {
	Bias        float64
	IncomeGap   float64 // weight on (derived - stated) income
	RingMembers float64 // weight on ring flag count
	IncomeScale float64
}

// DefaultLogistic returns weights that push large undeclared income or ring
// membership towards 1. They are hand-set, not trained.
func DefaultLogistic() Logistic {
	return Logistic{
		Bias:        -3,
		IncomeGap:   1,
		RingMembers: 1.5,
		IncomeScale: 100000,
	}
}

// Score implements Scorer.
func (l Logistic) Score(s Signals) float64 {
	scale := l.IncomeScale
	if scale <= 0 {
		scale = 1
	}
	gap := (s.DerivedIncome - s.StatedIncome) / scale
	z := l.Bias + l.IncomeGap*gap + l.RingMembers*float64(s.RingFlagCount)
	return 1 / (1 + math.Exp(-z))
}
