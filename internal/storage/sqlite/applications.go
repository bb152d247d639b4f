package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/mmynk/welfareguard/internal/models"
	"github.com/mmynk/welfareguard/internal/storage"
)

const applicationColumns = `applicant_id, identity_token, target_payout_account, status,
	fraud_score, flag_reason, calculated_income, created_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanApplication(row rowScanner) (*models.Application, error) {
	app := &models.Application{}
	var status string
	err := row.Scan(&app.ApplicantID, &app.IdentityToken, &app.TargetPayoutAccount, &status,
		&app.FraudScore, &app.FlagReason, &app.CalculatedIncome, &app.CreatedAt)
	if err != nil {
		return nil, err
	}
	app.Status = models.Status(status)
	return app, nil
}

// SaveClaim records a claim and resets the application to Under Review.
// Score and reason are left in place until the engine rewrites them.
func (s *SQLiteStore) SaveClaim(ctx context.Context, sub models.Submission) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO applications (applicant_id, identity_token, target_payout_account, status, created_at)
		 VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT(applicant_id) DO UPDATE SET
		     identity_token = excluded.identity_token,
		     target_payout_account = excluded.target_payout_account,
		     status = excluded.status`,
		sub.ApplicantID, sub.IdentityToken, sub.TargetPayoutAccount,
		string(models.StatusUnderReview), time.Now().Unix(),
	)
	if err != nil {
		return fmt.Errorf("failed to save claim: %w", err)
	}
	return nil
}

// GetApplication retrieves an application by applicant ID.
func (s *SQLiteStore) GetApplication(ctx context.Context, applicantID string) (*models.Application, error) {
	app, err := scanApplication(s.db.QueryRowContext(ctx,
		"SELECT "+applicationColumns+" FROM applications WHERE applicant_id = ?",
		applicantID,
	))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("application %s: %w", applicantID, storage.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get application: %w", err)
	}
	return app, nil
}

// ListClaims returns every (applicant, payout account) pair in the registry.
func (s *SQLiteStore) ListClaims(ctx context.Context) ([]models.Claim, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT applicant_id, target_payout_account FROM applications
		 WHERE target_payout_account <> '' ORDER BY applicant_id`,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list claims: %w", err)
	}
	defer rows.Close()

	var claims []models.Claim
	for rows.Next() {
		var c models.Claim
		if err := rows.Scan(&c.ApplicantID, &c.PayoutAccount); err != nil {
			return nil, fmt.Errorf("failed to scan claim: %w", err)
		}
		claims = append(claims, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate claims: %w", err)
	}

	return claims, nil
}

// UpsertApplication writes an application's verdict, inserting the row if it
// does not exist yet. created_at is only set on insert.
func (s *SQLiteStore) UpsertApplication(ctx context.Context, app *models.Application) error {
	createdAt := app.CreatedAt
	if createdAt == 0 {
		createdAt = time.Now().Unix()
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO applications (`+applicationColumns+`)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(applicant_id) DO UPDATE SET
		     identity_token = excluded.identity_token,
		     target_payout_account = excluded.target_payout_account,
		     status = excluded.status,
		     fraud_score = excluded.fraud_score,
		     flag_reason = excluded.flag_reason,
		     calculated_income = excluded.calculated_income`,
		app.ApplicantID, app.IdentityToken, app.TargetPayoutAccount, string(app.Status),
		app.FraudScore, app.FlagReason, app.CalculatedIncome, createdAt,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert application: %w", err)
	}
	return nil
}

// ModifyApplication applies fn to one application inside a transaction.
func (s *SQLiteStore) ModifyApplication(ctx context.Context, applicantID string, fn func(app *models.Application) bool) (bool, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	app, err := scanApplication(tx.QueryRowContext(ctx,
		"SELECT "+applicationColumns+" FROM applications WHERE applicant_id = ?",
		applicantID,
	))
	if errors.Is(err, sql.ErrNoRows) {
		return false, fmt.Errorf("application %s: %w", applicantID, storage.ErrNotFound)
	}
	if err != nil {
		return false, fmt.Errorf("failed to get application: %w", err)
	}

	if !fn(app) {
		return false, nil
	}

	_, err = tx.ExecContext(ctx,
		`UPDATE applications SET status = ?, fraud_score = ?, flag_reason = ?
		 WHERE applicant_id = ?`,
		string(app.Status), app.FraudScore, app.FlagReason, applicantID,
	)
	if err != nil {
		return false, fmt.Errorf("failed to update application: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("failed to commit transaction: %w", err)
	}
	return true, nil
}
