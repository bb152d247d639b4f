package models

// ApplicantIdentity holds the demographic attributes of an applicant.
// It is keyed by the registry applicant ID, not by the identity token.
type ApplicantIdentity struct {
	ApplicantID string
	FullName    string
	Age         int
	Gender      string
}
