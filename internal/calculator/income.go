package calculator

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/mmynk/welfareguard/internal/models"
)

// IncomeDivisor is the fixed number of years trailing credits are spread over.
// It does not depend on how many periods in the window actually hold data.
const IncomeDivisor = 3

// TrailingCredits sums every CREDIT amount whose timestamp falls within the
// trailing window of the given length ending at now.
// The window is (now - months, now]; records dated after now are ignored.
func TrailingCredits(records []models.FinancialRecord, now time.Time, months int) decimal.Decimal {
	cutoff := now.AddDate(0, -months, 0)
	sum := decimal.Zero
	for _, r := range records {
		if r.Kind != models.KindCredit {
			continue
		}
		if !r.Timestamp.After(cutoff) || r.Timestamp.After(now) {
			continue
		}
		sum = sum.Add(r.Amount)
	}
	return sum
}

// TrailingIncome computes the derived income for a ledger snapshot:
// trailing credits divided by IncomeDivisor. An empty window yields zero.
func TrailingIncome(records []models.FinancialRecord, now time.Time, months int) decimal.Decimal {
	sum := TrailingCredits(records, now, months)
	if sum.IsZero() {
		return decimal.Zero
	}
	return sum.Div(decimal.NewFromInt(IncomeDivisor))
}

// CreditsByPeriod totals CREDIT amounts per financial-year label.
// Used for diagnostics; the rules only look at the trailing window.
func CreditsByPeriod(records []models.FinancialRecord) map[string]decimal.Decimal {
	totals := make(map[string]decimal.Decimal)
	for _, r := range records {
		if r.Kind != models.KindCredit {
			continue
		}
		totals[r.PeriodLabel] = totals[r.PeriodLabel].Add(r.Amount)
	}
	return totals
}

// HasDebitFrom reports whether any record was debited from the given account.
func HasDebitFrom(records []models.FinancialRecord, account string) bool {
	if account == "" {
		return false
	}
	for _, r := range records {
		if r.DebitAccount == account {
			return true
		}
	}
	return false
}
