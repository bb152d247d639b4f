package rules

import (
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/mmynk/welfareguard/internal/calculator"
	"github.com/mmynk/welfareguard/internal/models"
)

// Thresholds are the externally configured limits the rules compare against.
type Thresholds struct {
	// IncomeCeiling is the statutory income limit. Zero disables the check.
	IncomeCeiling decimal.Decimal

	// LegacyWealthThreshold is the older aggregate limit kept for compatibility.
	// Zero disables the check.
	LegacyWealthThreshold decimal.Decimal

	// TrailingWindowMonths is the length of the income window.
	TrailingWindowMonths int

	// TreasurySalaryAccount is the debit account government salaries are paid from.
	TreasurySalaryAccount string

	// Eligibility restricts which applicants the scheme accepts.
	Eligibility Eligibility
}

// Eligibility describes the scheme's demographic restrictions.
// An empty Genders list accepts any gender; a zero bound is unbounded.
type Eligibility struct {
	Genders []string
	MinAge  int
	MaxAge  int
}

// DefaultThresholds mirrors the scheme as currently configured in production.
func DefaultThresholds() Thresholds {
	return Thresholds{
		IncomeCeiling:         decimal.NewFromInt(250000),
		LegacyWealthThreshold: decimal.NewFromInt(2500000),
		TrailingWindowMonths:  36,
		TreasurySalaryAccount: "MH_STATE_TREASURY_SALARY",
		Eligibility: Eligibility{
			Genders: []string{"Female"},
			MinAge:  21,
			MaxAge:  65,
		},
	}
}

// Input is everything the evaluator needs for one applicant.
type Input struct {
	Identity            models.ApplicantIdentity
	IdentityToken       string
	TargetPayoutAccount string
	Ledger              []models.FinancialRecord
	Now                 time.Time
}

// Outcome is the evaluator's result.
type Outcome struct {
	Findings         []Finding
	CalculatedIncome decimal.Decimal

	// Terminal is set when a hard rule ended evaluation early.
	// Later stages (ring detection) must not run.
	Terminal bool
}

// Evaluator applies the rule chain.
type Evaluator struct {
	thresholds Thresholds
}

// NewEvaluator creates an Evaluator with the given thresholds.
func NewEvaluator(t Thresholds) *Evaluator {
	return &Evaluator{thresholds: t}
}

// Evaluate applies the rules in priority order:
//  1. Identity eligibility (blocks, keeps evaluating)
//  2. Active government salary (blocks, stops everything)
//  3. Trailing income against the statutory ceiling (blocks)
//  4. Trailing income against the legacy threshold (manual audit, only if 3 did not fire)
func (e *Evaluator) Evaluate(in Input) Outcome {
	var out Outcome

	if f, ok := e.checkEligibility(in.Identity); ok {
		out.Findings = append(out.Findings, f)
	}

	if calculator.HasDebitFrom(in.Ledger, e.thresholds.TreasurySalaryAccount) {
		return Outcome{
			Findings:         []Finding{NewFinding(CodeActiveSalary, "")},
			CalculatedIncome: decimal.Zero,
			Terminal:         true,
		}
	}

	income := calculator.TrailingIncome(in.Ledger, in.Now, e.thresholds.TrailingWindowMonths)
	out.CalculatedIncome = income

	ceilingHit := exceeds(income, e.thresholds.IncomeCeiling)
	legacyHit := exceeds(income, e.thresholds.LegacyWealthThreshold)

	if ceilingHit {
		out.Findings = append(out.Findings, NewFinding(CodeIncomeMismatch,
			"calculated income "+income.StringFixed(2)))
	}
	if legacyHit && !ceilingHit {
		out.Findings = append(out.Findings, NewFinding(CodeHighWealth, ""))
	}

	return out
}

func (e *Evaluator) checkEligibility(id models.ApplicantIdentity) (Finding, bool) {
	el := e.thresholds.Eligibility
	var problems []string

	gender := normalizeGender(id.Gender)
	if len(el.Genders) > 0 && !slices.ContainsFunc(el.Genders, func(g string) bool {
		return normalizeGender(g) == gender
	}) {
		problems = append(problems, fmt.Sprintf("gender %q not eligible", id.Gender))
	}
	if el.MinAge > 0 && id.Age < el.MinAge {
		problems = append(problems, fmt.Sprintf("age %d below %d", id.Age, el.MinAge))
	}
	if el.MaxAge > 0 && id.Age > el.MaxAge {
		problems = append(problems, fmt.Sprintf("age %d above %d", id.Age, el.MaxAge))
	}

	if len(problems) == 0 {
		return Finding{}, false
	}
	return NewFinding(CodeIdentityIneligible, strings.Join(problems, "; ")), true
}

// normalizeGender folds the single-letter and spelled-out forms together,
// so "F", "female" and "Female" compare equal.
func normalizeGender(g string) string {
	g = strings.ToLower(strings.TrimSpace(g))
	switch g {
	case "f", "female":
		return "female"
	case "m", "male":
		return "male"
	case "o", "other":
		return "other"
	}
	return g
}

// exceeds reports whether v is above limit; a non-positive limit disables the check.
func exceeds(v, limit decimal.Decimal) bool {
	if !limit.IsPositive() {
		return false
	}
	return v.GreaterThan(limit)
}
