// Package storage provides abstractions for persistent data storage.
package storage

import (
	"context"
	"errors"

	"github.com/mmynk/welfareguard/internal/models"
)

// ErrNotFound is returned (optionally wrapped) when a requested row does not exist.
var ErrNotFound = errors.New("not found")

// Ledger is read access to the append-only financial ledger.
type Ledger interface {
	// ListFinancialRecords returns every record for the identity token,
	// oldest first. An unknown token yields an empty slice.
	ListFinancialRecords(ctx context.Context, identityToken string) ([]models.FinancialRecord, error)

	// AppendFinancialRecord adds a record. Used by ingestion, never by the engine.
	AppendFinancialRecord(ctx context.Context, record *models.FinancialRecord) error
}

// Applicants holds applicant demographic data.
type Applicants interface {
	// GetApplicant returns ErrNotFound when the applicant is unknown.
	GetApplicant(ctx context.Context, applicantID string) (*models.ApplicantIdentity, error)

	// SaveApplicant inserts or replaces an applicant. Used by intake.
	SaveApplicant(ctx context.Context, identity *models.ApplicantIdentity) error
}

// Registry is the application registry.
type Registry interface {
	// SaveClaim records a claim for an applicant and resets it to Under Review.
	// Used by intake before a submission is dispatched.
	SaveClaim(ctx context.Context, sub models.Submission) error

	// GetApplication returns ErrNotFound when the applicant has no application.
	GetApplication(ctx context.Context, applicantID string) (*models.Application, error)

	// ListClaims scans every current (applicant, payout account) pair.
	// The scan is not a consistent snapshot against concurrent writers.
	ListClaims(ctx context.Context) ([]models.Claim, error)

	// UpsertApplication writes the verdict columns of the application keyed by
	// app.ApplicantID, creating the row if needed. CreatedAt of an existing row
	// is preserved, so repeating the same write leaves the row unchanged.
	UpsertApplication(ctx context.Context, app *models.Application) error

	// ModifyApplication runs fn against the current row inside a single-row
	// transaction and writes the result back if fn returns true.
	// Returns ErrNotFound when the applicant has no application.
	ModifyApplication(ctx context.Context, applicantID string, fn func(app *models.Application) bool) (bool, error)
}

// Store is the complete storage backend.
// This abstraction allows swapping storage backends (SQLite, PostgreSQL, etc.)
// without changing the service layer.
type Store interface {
	Ledger
	Applicants
	Registry

	// Ping checks the backend is reachable.
	Ping(ctx context.Context) error

	// Close releases any resources held by the store.
	Close() error
}
