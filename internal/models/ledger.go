package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// TransactionKind is the direction of a ledger transaction.
type TransactionKind string

const (
	KindCredit TransactionKind = "CREDIT"
	KindDebit  TransactionKind = "DEBIT"
)

// FinancialRecord is a single transaction in the financial ledger.
// Records are append-only: the engine never mutates or deletes them.
type FinancialRecord struct {
	// ID is the unique identifier for the record (UUID format).
	ID string

	// IdentityToken is the financial-identity key (tax identifier analogue)
	// the record belongs to.
	IdentityToken string

	// Kind is CREDIT or DEBIT.
	Kind TransactionKind

	// Amount is the non-negative transaction amount.
	Amount decimal.Decimal

	// PeriodLabel is the financial year the record was booked in (e.g. "2025-2026").
	PeriodLabel string

	// Timestamp is when the transaction happened.
	Timestamp time.Time

	// CreditAccount is the counterparty account that was credited.
	CreditAccount string

	// DebitAccount is the counterparty account that was debited.
	// A treasury salary account here means the identity draws a government salary.
	DebitAccount string
}
