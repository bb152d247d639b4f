package models

// Status is the decision state of an application.
type Status string

const (
	StatusUnderReview Status = "Under Review"
	StatusApproved    Status = "Approved"
	StatusManualAudit Status = "Manual Audit"
	StatusBlocked     Status = "Blocked"
)

// Application is the registry row for one applicant.
// There is exactly one application per ApplicantID.
type Application struct {
	// ApplicantID is the stable registry key.
	ApplicantID string

	// IdentityToken references the applicant's financial history.
	IdentityToken string

	// TargetPayoutAccount is the account the benefit would be paid into.
	TargetPayoutAccount string

	// Status is derived from the highest-severity finding.
	// It is never set independently of FraudScore and FlagReason.
	Status Status

	// FraudScore is in [0.0, 1.0].
	FraudScore float64

	// FlagReason is the ordered, deduplicated list of finding labels joined by " | ".
	FlagReason string

	// CalculatedIncome is the derived trailing income, always >= 0.
	CalculatedIncome float64

	// CreatedAt is the Unix timestamp when the application was first stored.
	CreatedAt int64
}

// Claim is one "applicant currently claims payout account" edge.
type Claim struct {
	ApplicantID   string
	PayoutAccount string
}

// Submission is the unit of work delivered to the evaluation engine.
type Submission struct {
	ApplicantID         string `json:"applicant_id"`
	IdentityToken       string `json:"identity_token"`
	TargetPayoutAccount string `json:"target_payout_account"`
}

// Claim returns the registry edge this submission asserts.
func (s Submission) Claim() Claim {
	return Claim{ApplicantID: s.ApplicantID, PayoutAccount: s.TargetPayoutAccount}
}
