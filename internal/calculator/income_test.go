package calculator

import (
	"math"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/mmynk/welfareguard/internal/models"
)

var now = time.Date(2026, time.October, 1, 12, 0, 0, 0, time.UTC)

func credit(amount int64, at time.Time) models.FinancialRecord {
	return models.FinancialRecord{
		IdentityToken: "ABCDE1234F",
		Kind:          models.KindCredit,
		Amount:        decimal.NewFromInt(amount),
		Timestamp:     at,
	}
}

func TestTrailingIncome(t *testing.T) {
	tests := []struct {
		name    string
		records []models.FinancialRecord
		months  int
		want    float64
	}{
		{
			name:    "empty ledger yields zero",
			records: nil,
			months:  36,
			want:    0,
		},
		{
			name: "three years summing to 900000",
			records: []models.FinancialRecord{
				credit(300000, now.AddDate(0, -2, 0)),
				credit(300000, now.AddDate(-1, -2, 0)),
				credit(300000, now.AddDate(-2, -2, 0)),
			},
			months: 36,
			want:   300000,
		},
		{
			// Divisor stays 3 even when only one year has data.
			name:    "single year still divided by three",
			records: []models.FinancialRecord{credit(90000, now.AddDate(0, -1, 0))},
			months:  36,
			want:    30000,
		},
		{
			name: "credits outside the window are ignored",
			records: []models.FinancialRecord{
				credit(60000, now.AddDate(0, -6, 0)),
				credit(1000000, now.AddDate(-4, 0, 0)),
				credit(500000, now.AddDate(0, 0, 3)),
			},
			months: 36,
			want:   20000,
		},
		{
			name: "debits are not income",
			records: []models.FinancialRecord{
				credit(30000, now.AddDate(0, -1, 0)),
				{Kind: models.KindDebit, Amount: decimal.NewFromInt(999999), Timestamp: now.AddDate(0, -1, 0)},
			},
			months: 36,
			want:   10000,
		},
		{
			name:    "shorter window",
			records: []models.FinancialRecord{credit(30000, now.AddDate(0, -13, 0)), credit(60000, now.AddDate(0, -2, 0))},
			months:  12,
			want:    20000,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := TrailingIncome(tt.records, now, tt.months).InexactFloat64()
			if math.Abs(got-tt.want) > 0.01 {
				t.Errorf("TrailingIncome() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestCreditsByPeriod(t *testing.T) {
	records := []models.FinancialRecord{
		{Kind: models.KindCredit, Amount: decimal.NewFromInt(100), PeriodLabel: "2025-2026"},
		{Kind: models.KindCredit, Amount: decimal.NewFromInt(50), PeriodLabel: "2025-2026"},
		{Kind: models.KindCredit, Amount: decimal.NewFromInt(70), PeriodLabel: "2024-2025"},
		{Kind: models.KindDebit, Amount: decimal.NewFromInt(10), PeriodLabel: "2024-2025"},
	}

	totals := CreditsByPeriod(records)
	if !totals["2025-2026"].Equal(decimal.NewFromInt(150)) {
		t.Errorf("2025-2026 total = %s, want 150", totals["2025-2026"])
	}
	if !totals["2024-2025"].Equal(decimal.NewFromInt(70)) {
		t.Errorf("2024-2025 total = %s, want 70", totals["2024-2025"])
	}
}

func TestHasDebitFrom(t *testing.T) {
	records := []models.FinancialRecord{
		{Kind: models.KindCredit, DebitAccount: "MH_STATE_TREASURY_SALARY"},
	}
	if !HasDebitFrom(records, "MH_STATE_TREASURY_SALARY") {
		t.Error("expected treasury debit to be detected")
	}
	if HasDebitFrom(records, "OTHER") {
		t.Error("unexpected match for unrelated account")
	}
	if HasDebitFrom([]models.FinancialRecord{{}}, "") {
		t.Error("empty account must never match")
	}
}
