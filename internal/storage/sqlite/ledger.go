package sqlite

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/mmynk/welfareguard/internal/models"
)

// AppendFinancialRecord persists a new ledger record.
func (s *SQLiteStore) AppendFinancialRecord(ctx context.Context, record *models.FinancialRecord) error {
	if record.ID == "" {
		record.ID = uuid.New().String()
	}
	if record.Timestamp.IsZero() {
		record.Timestamp = time.Now().UTC()
	}
	if record.Amount.IsNegative() {
		return fmt.Errorf("financial record amount must be non-negative: %s", record.Amount)
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO financial_records (id, identity_token, kind, amount, period_label, timestamp, credit_account, debit_account)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		record.ID, record.IdentityToken, string(record.Kind), record.Amount.String(),
		record.PeriodLabel, record.Timestamp.Unix(), record.CreditAccount, record.DebitAccount,
	)
	if err != nil {
		return fmt.Errorf("failed to insert financial record: %w", err)
	}

	return nil
}

// ListFinancialRecords retrieves every record for an identity token, oldest first.
func (s *SQLiteStore) ListFinancialRecords(ctx context.Context, identityToken string) ([]models.FinancialRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, identity_token, kind, amount, period_label, timestamp, credit_account, debit_account
		 FROM financial_records WHERE identity_token = ? ORDER BY timestamp, id`,
		identityToken,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list financial records: %w", err)
	}
	defer rows.Close()

	records := []models.FinancialRecord{}
	for rows.Next() {
		var (
			r    models.FinancialRecord
			kind string
			ts   int64
		)
		if err := rows.Scan(&r.ID, &r.IdentityToken, &kind, &r.Amount, &r.PeriodLabel, &ts, &r.CreditAccount, &r.DebitAccount); err != nil {
			return nil, fmt.Errorf("failed to scan financial record: %w", err)
		}
		r.Kind = models.TransactionKind(kind)
		r.Timestamp = time.Unix(ts, 0).UTC()
		records = append(records, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate financial records: %w", err)
	}

	return records, nil
}
