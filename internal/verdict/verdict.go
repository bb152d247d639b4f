// Package verdict merges rule findings into the (status, score, reason)
// triple stored on an application.
package verdict

import (
	"math"
	"slices"
	"sort"
	"strings"

	"github.com/mmynk/welfareguard/internal/models"
	"github.com/mmynk/welfareguard/internal/rules"
)

const (
	// CleanReason is stored when no finding triggers.
	CleanReason = "Verified Clean Record"

	// CleanScore is the baseline score of a clean record.
	CleanScore = 0.1

	// EngineErrorReason is stored when evaluation failed.
	EngineErrorReason = "Engine Error - Manual Review Required"

	// EngineErrorScore is the score of a degraded verdict.
	EngineErrorScore = 0.5

	separator = " | "
)

// Verdict is the merged decision for one applicant.
type Verdict struct {
	Status models.Status
	Score  float64
	Reason string
	Codes  []rules.Code
}

// Merge combines findings into one verdict. Status follows the highest
// severity, score is the maximum finding score, and the reason lists each
// code once in rules.Priority order. The first finding for a code wins.
func Merge(findings ...[]rules.Finding) Verdict {
	byCode := make(map[rules.Code]rules.Finding)
	for _, group := range findings {
		for _, f := range group {
			if _, seen := byCode[f.Code]; !seen {
				byCode[f.Code] = f
			}
		}
	}
	if len(byCode) == 0 {
		return Verdict{Status: models.StatusApproved, Score: CleanScore, Reason: CleanReason}
	}

	ordered := make([]rules.Finding, 0, len(byCode))
	for _, f := range byCode {
		ordered = append(ordered, f)
	}
	sort.Slice(ordered, func(i, j int) bool {
		return ordered[i].Code.Rank() < ordered[j].Code.Rank()
	})

	v := Verdict{Status: models.StatusApproved}
	severity := rules.SeverityApproved
	parts := make([]string, 0, len(ordered))
	for _, f := range ordered {
		if f.Severity > severity {
			severity = f.Severity
		}
		v.Score = math.Max(v.Score, f.Score)
		v.Codes = append(v.Codes, f.Code)
		parts = append(parts, f.Render())
	}
	v.Status = severity.Status()
	v.Score = clamp(v.Score)
	v.Reason = strings.Join(parts, separator)
	return v
}

// Degraded is the verdict persisted when evaluation fails.
func Degraded() Verdict {
	return Verdict{
		Status: models.StatusManualAudit,
		Score:  EngineErrorScore,
		Reason: EngineErrorReason,
	}
}

// ParseReason recovers the finding codes from a stored flag_reason, each
// code once, in the order they appear.
// Segments that are not finding labels (sentinels, free text) are skipped.
func ParseReason(reason string) []rules.Code {
	var out []rules.Code
	for _, segment := range splitReason(reason) {
		label, _, _ := strings.Cut(segment, " (")
		if code, ok := rules.CodeForLabel(label); ok && !slices.Contains(out, code) {
			out = append(out, code)
		}
	}
	return out
}

// HasCode reports whether the stored reason already carries the code.
func HasCode(reason string, code rules.Code) bool {
	for _, c := range ParseReason(reason) {
		if c == code {
			return true
		}
	}
	return false
}

func splitReason(reason string) []string {
	if strings.TrimSpace(reason) == "" {
		return nil
	}
	parts := strings.Split(reason, separator)
	out := parts[:0]
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// ScoreMode selects how Flag folds a finding's score into an existing one.
type ScoreMode int

const (
	// ScoreMax keeps the higher of the two scores.
	ScoreMax ScoreMode = iota

	// ScoreAdditive adds a fixed penalty to the existing score.
	ScoreAdditive
)

// Flag folds a single finding into a stored application. It returns false and
// leaves app untouched when the application already carries the finding code.
// The clean-record and engine-error sentinels are replaced rather than appended to.
func Flag(app *models.Application, f rules.Finding, mode ScoreMode, penalty float64) bool {
	if HasCode(app.FlagReason, f.Code) {
		return false
	}

	segments := splitReason(app.FlagReason)
	segments = slices.DeleteFunc(segments, isSentinel)
	segments = append(segments, f.Render())
	app.FlagReason = strings.Join(segments, separator)

	switch mode {
	case ScoreAdditive:
		app.FraudScore = clamp(app.FraudScore + penalty)
	default:
		app.FraudScore = clamp(math.Max(app.FraudScore, f.Score))
	}

	if f.Severity > rules.SeverityOf(app.Status) {
		app.Status = f.Severity.Status()
	}
	return true
}

func isSentinel(segment string) bool {
	return segment == CleanReason || segment == EngineErrorReason
}

func clamp(score float64) float64 {
	return math.Min(1, math.Max(0, score))
}
