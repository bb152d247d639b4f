// Package models defines the core domain models for WelfareGuard.
//
// # Models
//
//   - FinancialRecord: one immutable ledger transaction keyed by identity token
//   - ApplicantIdentity: demographic attributes captured at submission time
//   - Application: the registry row holding an applicant's claim and verdict
//   - Claim: an (applicant, payout account) edge read from the registry
//   - Submission: the payload dispatched to the evaluation engine
//
// # Ownership
//
// Financial records are written by external ingestion and only read here.
// Identities are written by the intake flow and only read by the engine.
// Applications are created by intake (status Under Review) and afterwards
// mutated only by the evaluation engine and the ring sweep. Nothing is deleted.
//
// Relationships use ID strings rather than pointers, so models can be loaded
// independently of each other.
package models
