package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/mmynk/welfareguard/internal/models"
	"github.com/mmynk/welfareguard/internal/storage"
)

// SaveApplicant inserts or replaces an applicant's demographic record.
func (s *SQLiteStore) SaveApplicant(ctx context.Context, identity *models.ApplicantIdentity) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO applicants (applicant_id, full_name, age, gender) VALUES (?, ?, ?, ?)
		 ON CONFLICT(applicant_id) DO UPDATE SET
		     full_name = excluded.full_name,
		     age = excluded.age,
		     gender = excluded.gender`,
		identity.ApplicantID, identity.FullName, identity.Age, identity.Gender,
	)
	if err != nil {
		return fmt.Errorf("failed to save applicant: %w", err)
	}
	return nil
}

// GetApplicant retrieves an applicant by ID.
func (s *SQLiteStore) GetApplicant(ctx context.Context, applicantID string) (*models.ApplicantIdentity, error) {
	identity := &models.ApplicantIdentity{}
	err := s.db.QueryRowContext(ctx,
		"SELECT applicant_id, full_name, age, gender FROM applicants WHERE applicant_id = ?",
		applicantID,
	).Scan(&identity.ApplicantID, &identity.FullName, &identity.Age, &identity.Gender)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("applicant %s: %w", applicantID, storage.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get applicant: %w", err)
	}
	return identity, nil
}
