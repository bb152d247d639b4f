// Package rules turns an applicant's identity and ledger snapshot into findings.
// Everything here is pure: no I/O, no clock reads, no shared state.
package rules

import (
	"fmt"
	"strings"

	"github.com/mmynk/welfareguard/internal/models"
)

// Severity orders findings. Blocked > ManualAudit > Approved.
type Severity int

const (
	SeverityApproved Severity = iota
	SeverityManualAudit
	SeverityBlocked
)

// Status maps a severity onto the application status it produces.
func (s Severity) Status() models.Status {
	switch s {
	case SeverityBlocked:
		return models.StatusBlocked
	case SeverityManualAudit:
		return models.StatusManualAudit
	default:
		return models.StatusApproved
	}
}

// SeverityOf maps a stored status back onto its severity.
// Under Review ranks with Approved: it carries no finding.
func SeverityOf(status models.Status) Severity {
	switch status {
	case models.StatusBlocked:
		return SeverityBlocked
	case models.StatusManualAudit:
		return SeverityManualAudit
	default:
		return SeverityApproved
	}
}

// Code is the stable identifier of a finding.
type Code string

const (
	CodeIdentityIneligible Code = "IDENTITY_INELIGIBLE"
	CodeActiveSalary       Code = "ACTIVE_GOVT_SALARY"
	CodeIncomeMismatch     Code = "INCOME_CERTIFICATE_MISMATCH"
	CodeHighWealth         Code = "HIGH_WEALTH_THRESHOLD"
	CodeProxyNetwork       Code = "PROXY_NETWORK"
)

// Priority is the fixed order findings are rendered in.
var Priority = []Code{
	CodeIdentityIneligible,
	CodeActiveSalary,
	CodeIncomeMismatch,
	CodeHighWealth,
	CodeProxyNetwork,
}

type ruleDef struct {
	severity Severity
	score    float64
	label    string
}

var table = map[Code]ruleDef{
	CodeIdentityIneligible: {SeverityBlocked, 0.90, "Identity Eligibility Mismatch"},
	CodeActiveSalary:       {SeverityBlocked, 1.00, "Active Government Salary Detected"},
	CodeIncomeMismatch:     {SeverityBlocked, 0.90, "Income Certificate Mismatch"},
	CodeHighWealth:         {SeverityManualAudit, 0.85, "High Wealth Threshold Exceeded"},
	CodeProxyNetwork:       {SeverityBlocked, 0.95, "Anomalous Proxy Network Detected"},
}

// Label returns the human-readable rendering of a code.
func (c Code) Label() string {
	return table[c].label
}

// Rank returns the position of c in Priority, or len(Priority) for unknown codes.
func (c Code) Rank() int {
	for i, p := range Priority {
		if p == c {
			return i
		}
	}
	return len(Priority)
}

// CodeForLabel resolves a rendered label back to its code.
func CodeForLabel(label string) (Code, bool) {
	for code, def := range table {
		if def.label == label {
			return code, true
		}
	}
	return "", false
}

// Finding is one triggered rule.
type Finding struct {
	Code     Code
	Severity Severity
	Score    float64
	Detail   string
}

// Render formats the finding for the flag_reason column: the label, followed
// by the detail in parentheses when present. Details carry applicant-supplied
// text, so the characters that delimit reason segments are neutralised.
func (f Finding) Render() string {
	detail := detailEscaper.Replace(f.Detail)
	if detail == "" {
		return f.Code.Label()
	}
	return fmt.Sprintf("%s (%s)", f.Code.Label(), detail)
}

// detailEscaper keeps a detail inside its own segment: no "|" to split on,
// no parentheses to end the detail early.
var detailEscaper = strings.NewReplacer(
	"|", "/",
	"(", "[",
	")", "]",
	"\n", " ",
	"\r", " ",
)

// NewFinding builds a finding whose severity and score come from the rule table.
func NewFinding(code Code, detail string) Finding {
	def, ok := table[code]
	if !ok {
		panic(fmt.Sprintf("rules: unknown finding code %q", code))
	}
	return Finding{Code: code, Severity: def.severity, Score: def.score, Detail: detail}
}

// ProxyNetwork is the finding raised for every applicant attached to an
// over-subscribed payout account.
func ProxyNetwork(account string, degree int) Finding {
	return NewFinding(CodeProxyNetwork, fmt.Sprintf("account %s shared by %d applicants", account, degree))
}
