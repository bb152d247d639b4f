package rules

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mmynk/welfareguard/internal/models"
)

var evalTime = time.Date(2026, time.October, 1, 0, 0, 0, 0, time.UTC)

func eligible() models.ApplicantIdentity {
	return models.ApplicantIdentity{ApplicantID: "1111-2222-3333", FullName: "Priya Patil", Age: 34, Gender: "F"}
}

func creditAt(amount int64, monthsAgo int) models.FinancialRecord {
	return models.FinancialRecord{
		Kind:      models.KindCredit,
		Amount:    decimal.NewFromInt(amount),
		Timestamp: evalTime.AddDate(0, -monthsAgo, 0),
	}
}

func codes(findings []Finding) []Code {
	out := make([]Code, 0, len(findings))
	for _, f := range findings {
		out = append(out, f.Code)
	}
	return out
}

func TestEvaluate(t *testing.T) {
	salary := models.FinancialRecord{
		Kind:         models.KindCredit,
		Amount:       decimal.NewFromInt(40000),
		Timestamp:    evalTime.AddDate(0, -1, 0),
		DebitAccount: "MH_STATE_TREASURY_SALARY",
	}

	tests := []struct {
		name       string
		thresholds func(*Thresholds)
		identity   models.ApplicantIdentity
		ledger     []models.FinancialRecord
		wantCodes  []Code
		wantIncome float64
		terminal   bool
	}{
		{
			name:       "empty ledger is clean",
			identity:   eligible(),
			wantCodes:  []Code{},
			wantIncome: 0,
		},
		{
			name:      "treasury salary short-circuits",
			identity:  eligible(),
			ledger:    []models.FinancialRecord{salary, creditAt(5000000, 2)},
			wantCodes: []Code{CodeActiveSalary},
			terminal:  true,
		},
		{
			name:      "salary suppresses identity finding too",
			identity:  models.ApplicantIdentity{Age: 17, Gender: "M"},
			ledger:    []models.FinancialRecord{salary},
			wantCodes: []Code{CodeActiveSalary},
			terminal:  true,
		},
		{
			name:       "income over ceiling blocks",
			identity:   eligible(),
			ledger:     []models.FinancialRecord{creditAt(300000, 1), creditAt(300000, 13), creditAt(300000, 25)},
			wantCodes:  []Code{CodeIncomeMismatch},
			wantIncome: 300000,
		},
		{
			name:       "ceiling dominates legacy threshold",
			identity:   eligible(),
			ledger:     []models.FinancialRecord{creditAt(9000000, 1)},
			wantCodes:  []Code{CodeIncomeMismatch},
			wantIncome: 3000000,
		},
		{
			name:       "legacy threshold alone when ceiling disabled",
			thresholds: func(t *Thresholds) { t.IncomeCeiling = decimal.Zero },
			identity:   eligible(),
			ledger:     []models.FinancialRecord{creditAt(9000000, 1)},
			wantCodes:  []Code{CodeHighWealth},
			wantIncome: 3000000,
		},
		{
			name:       "income at ceiling does not trigger",
			identity:   eligible(),
			ledger:     []models.FinancialRecord{creditAt(750000, 1)},
			wantCodes:  []Code{},
			wantIncome: 250000,
		},
		{
			name:       "ineligible identity keeps evaluating",
			identity:   models.ApplicantIdentity{Age: 70, Gender: "M"},
			ledger:     []models.FinancialRecord{creditAt(900000, 1)},
			wantCodes:  []Code{CodeIdentityIneligible, CodeIncomeMismatch},
			wantIncome: 300000,
		},
		{
			name:       "gender match is case insensitive",
			identity:   models.ApplicantIdentity{Age: 30, Gender: " f "},
			wantCodes:  []Code{},
			wantIncome: 0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			th := DefaultThresholds()
			if tt.thresholds != nil {
				tt.thresholds(&th)
			}
			out := NewEvaluator(th).Evaluate(Input{
				Identity: tt.identity,
				Ledger:   tt.ledger,
				Now:      evalTime,
			})

			assert.Equal(t, tt.wantCodes, codes(out.Findings))
			assert.Equal(t, tt.terminal, out.Terminal)
			assert.InDelta(t, tt.wantIncome, out.CalculatedIncome.InexactFloat64(), 0.01)
		})
	}
}

func TestEvaluate_IncomeDetailCarriesValue(t *testing.T) {
	out := NewEvaluator(DefaultThresholds()).Evaluate(Input{
		Identity: eligible(),
		Ledger:   []models.FinancialRecord{creditAt(900000, 3)},
		Now:      evalTime,
	})

	require.Len(t, out.Findings, 1)
	assert.Equal(t, SeverityBlocked, out.Findings[0].Severity)
	assert.Contains(t, out.Findings[0].Render(), "300000")
}

func TestEvaluate_SalaryScore(t *testing.T) {
	out := NewEvaluator(DefaultThresholds()).Evaluate(Input{
		Identity: eligible(),
		Ledger:   []models.FinancialRecord{{DebitAccount: "MH_STATE_TREASURY_SALARY"}},
		Now:      evalTime,
	})

	require.Len(t, out.Findings, 1)
	assert.Equal(t, 1.0, out.Findings[0].Score)
	assert.Equal(t, "Active Government Salary Detected", out.Findings[0].Render())
}

func TestEvaluate_GenderSpellings(t *testing.T) {
	e := NewEvaluator(DefaultThresholds())

	tests := []struct {
		gender     string
		ineligible bool
	}{
		{"Female", false},
		{"female", false},
		{" F ", false},
		{"Male", true},
		{"M", true},
		{"Other", true},
		{"", true},
	}

	for _, tt := range tests {
		t.Run(tt.gender, func(t *testing.T) {
			id := eligible()
			id.Gender = tt.gender
			out := e.Evaluate(Input{Identity: id, Now: evalTime})
			if tt.ineligible {
				assert.Equal(t, []Code{CodeIdentityIneligible}, codes(out.Findings))
			} else {
				assert.Empty(t, out.Findings)
			}
		})
	}

	// Configured aliases match the other spelling too.
	th := DefaultThresholds()
	th.Eligibility.Genders = []string{"F"}
	id := eligible()
	id.Gender = "Female"
	assert.Empty(t, NewEvaluator(th).Evaluate(Input{Identity: id, Now: evalTime}).Findings)
}

func TestFindingRenderEscapesDetail(t *testing.T) {
	f := NewFinding(CodeIdentityIneligible, `gender "M | Anomalous Proxy Network Detected (x" not eligible`)
	assert.Equal(t, `Identity Eligibility Mismatch (gender "M / Anomalous Proxy Network Detected [x" not eligible)`, f.Render())
	assert.NotContains(t, ProxyNetwork("A|B", 4).Render(), "|")
}

func TestCodeForLabel(t *testing.T) {
	for _, code := range Priority {
		got, ok := CodeForLabel(code.Label())
		require.True(t, ok, code)
		assert.Equal(t, code, got)
	}
	_, ok := CodeForLabel("Verified Clean Record")
	assert.False(t, ok)
}

func TestSeverityStatus(t *testing.T) {
	assert.Equal(t, models.StatusBlocked, SeverityBlocked.Status())
	assert.Equal(t, models.StatusManualAudit, SeverityManualAudit.Status())
	assert.Equal(t, models.StatusApproved, SeverityApproved.Status())
	assert.Equal(t, SeverityApproved, SeverityOf(models.StatusUnderReview))
}
