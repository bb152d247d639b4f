package verdict

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mmynk/welfareguard/internal/models"
	"github.com/mmynk/welfareguard/internal/rules"
)

func TestMerge(t *testing.T) {
	income := rules.NewFinding(rules.CodeIncomeMismatch, "calculated income 300000.00")
	wealth := rules.NewFinding(rules.CodeHighWealth, "")
	ring := rules.ProxyNetwork("HDFC0001", 5)
	identity := rules.NewFinding(rules.CodeIdentityIneligible, "age 17 below 21")

	tests := []struct {
		name       string
		findings   [][]rules.Finding
		wantStatus models.Status
		wantScore  float64
		wantReason string
		wantCodes  []rules.Code
	}{
		{
			name:       "no findings is a clean record",
			wantStatus: models.StatusApproved,
			wantScore:  CleanScore,
			wantReason: CleanReason,
		},
		{
			name:       "empty groups are a clean record",
			findings:   [][]rules.Finding{{}, nil},
			wantStatus: models.StatusApproved,
			wantScore:  CleanScore,
			wantReason: CleanReason,
		},
		{
			name:       "manual audit only",
			findings:   [][]rules.Finding{{wealth}},
			wantStatus: models.StatusManualAudit,
			wantScore:  0.85,
			wantReason: "High Wealth Threshold Exceeded",
			wantCodes:  []rules.Code{rules.CodeHighWealth},
		},
		{
			name:       "ring and income in priority order regardless of input order",
			findings:   [][]rules.Finding{{ring}, {income}},
			wantStatus: models.StatusBlocked,
			wantScore:  0.95,
			wantReason: "Income Certificate Mismatch (calculated income 300000.00) | Anomalous Proxy Network Detected (account HDFC0001 shared by 5 applicants)",
			wantCodes:  []rules.Code{rules.CodeIncomeMismatch, rules.CodeProxyNetwork},
		},
		{
			name:       "duplicate codes collapse",
			findings:   [][]rules.Finding{{identity, ring}, {ring}},
			wantStatus: models.StatusBlocked,
			wantScore:  0.95,
			wantReason: "Identity Eligibility Mismatch (age 17 below 21) | Anomalous Proxy Network Detected (account HDFC0001 shared by 5 applicants)",
			wantCodes:  []rules.Code{rules.CodeIdentityIneligible, rules.CodeProxyNetwork},
		},
		{
			name:       "blocked beats manual audit",
			findings:   [][]rules.Finding{{wealth, identity}},
			wantStatus: models.StatusBlocked,
			wantScore:  0.9,
			wantReason: "Identity Eligibility Mismatch (age 17 below 21) | High Wealth Threshold Exceeded",
			wantCodes:  []rules.Code{rules.CodeIdentityIneligible, rules.CodeHighWealth},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := Merge(tt.findings...)
			assert.Equal(t, tt.wantStatus, v.Status)
			assert.InDelta(t, tt.wantScore, v.Score, 1e-9)
			assert.Equal(t, tt.wantReason, v.Reason)
			assert.Equal(t, tt.wantCodes, v.Codes)
			assert.GreaterOrEqual(t, v.Score, 0.0)
			assert.LessOrEqual(t, v.Score, 1.0)
		})
	}
}

func TestParseReason(t *testing.T) {
	v := Merge([]rules.Finding{
		rules.ProxyNetwork("X", 4),
		rules.NewFinding(rules.CodeIncomeMismatch, "calculated income 1.00"),
	})
	assert.Equal(t, v.Codes, ParseReason(v.Reason))

	assert.Empty(t, ParseReason(CleanReason))
	assert.Empty(t, ParseReason(EngineErrorReason))
	assert.Empty(t, ParseReason(""))

	// Substrings of a label are not the label.
	assert.False(t, HasCode("Network Detected", rules.CodeProxyNetwork))
	assert.True(t, HasCode("Engine Error - Manual Review Required | Anomalous Proxy Network Detected", rules.CodeProxyNetwork))

	// Each code is reported once even if a stored reason repeats it.
	assert.Equal(t, []rules.Code{rules.CodeProxyNetwork},
		ParseReason("Anomalous Proxy Network Detected (a) | Anomalous Proxy Network Detected (b)"))
}

func TestParseReasonIgnoresLabelsInsideDetails(t *testing.T) {
	forged := rules.NewFinding(rules.CodeIdentityIneligible,
		`gender "M | Anomalous Proxy Network Detected (x" not eligible`)
	account := rules.ProxyNetwork("HDFC | Income Certificate Mismatch (1)", 4)

	tests := []struct {
		name     string
		findings []rules.Finding
		want     []rules.Code
	}{
		{
			name:     "separator in gender",
			findings: []rules.Finding{forged},
			want:     []rules.Code{rules.CodeIdentityIneligible},
		},
		{
			name:     "separator in payout account",
			findings: []rules.Finding{account},
			want:     []rules.Code{rules.CodeProxyNetwork},
		},
		{
			name:     "both",
			findings: []rules.Finding{forged, account},
			want:     []rules.Code{rules.CodeIdentityIneligible, rules.CodeProxyNetwork},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := Merge(tt.findings)
			assert.Equal(t, tt.want, ParseReason(v.Reason))
			assert.Equal(t, v.Codes, ParseReason(v.Reason))
		})
	}

	app := &models.Application{Status: models.StatusBlocked, FraudScore: 0.9, FlagReason: forged.Render()}
	assert.False(t, HasCode(app.FlagReason, rules.CodeProxyNetwork))
	assert.True(t, Flag(app, rules.ProxyNetwork("HDFC0001", 4), ScoreMax, 0))
	assert.Equal(t, []rules.Code{rules.CodeIdentityIneligible, rules.CodeProxyNetwork}, ParseReason(app.FlagReason))
}

func TestFlag(t *testing.T) {
	ring := rules.ProxyNetwork("HDFC0001", 4)

	t.Run("under review row becomes blocked", func(t *testing.T) {
		app := &models.Application{Status: models.StatusUnderReview}
		require.True(t, Flag(app, ring, ScoreMax, 0))
		assert.Equal(t, models.StatusBlocked, app.Status)
		assert.InDelta(t, 0.95, app.FraudScore, 1e-9)
		assert.Equal(t, ring.Render(), app.FlagReason)
	})

	t.Run("clean sentinel is replaced", func(t *testing.T) {
		app := &models.Application{Status: models.StatusApproved, FraudScore: CleanScore, FlagReason: CleanReason}
		require.True(t, Flag(app, ring, ScoreAdditive, 0.85))
		assert.Equal(t, ring.Render(), app.FlagReason)
		assert.InDelta(t, 0.95, app.FraudScore, 1e-9)
	})

	t.Run("engine error sentinel is replaced", func(t *testing.T) {
		app := &models.Application{Status: models.StatusManualAudit, FraudScore: EngineErrorScore, FlagReason: EngineErrorReason}
		require.True(t, Flag(app, ring, ScoreMax, 0))
		assert.Equal(t, ring.Render(), app.FlagReason)
		assert.Equal(t, models.StatusBlocked, app.Status)
		assert.InDelta(t, 0.95, app.FraudScore, 1e-9)
	})

	t.Run("existing reasons are kept", func(t *testing.T) {
		app := &models.Application{Status: models.StatusManualAudit, FraudScore: 0.85, FlagReason: "High Wealth Threshold Exceeded"}
		require.True(t, Flag(app, ring, ScoreAdditive, 0.85))
		assert.Equal(t, "High Wealth Threshold Exceeded | "+ring.Render(), app.FlagReason)
		assert.Equal(t, 1.0, app.FraudScore)
		assert.Equal(t, models.StatusBlocked, app.Status)
	})

	t.Run("already flagged is untouched", func(t *testing.T) {
		app := &models.Application{Status: models.StatusBlocked, FraudScore: 0.95, FlagReason: rules.ProxyNetwork("OTHER", 9).Render()}
		before := *app
		assert.False(t, Flag(app, ring, ScoreAdditive, 0.85))
		assert.Equal(t, before, *app)
	})
}

func TestDegraded(t *testing.T) {
	v := Degraded()
	assert.Equal(t, models.StatusManualAudit, v.Status)
	assert.Equal(t, EngineErrorReason, v.Reason)
	assert.Equal(t, EngineErrorScore, v.Score)
}
