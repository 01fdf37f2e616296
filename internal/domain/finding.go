package domain

// Severity classifies how serious a risk finding is. Values are ordered:
// low < medium < high < critical.
type Severity string

const (
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

// Rank returns the ordinal position of the severity, for sorting.
// Unknown severities rank below low.
func (s Severity) Rank() int {
	switch s {
	case SeverityLow:
		return 1
	case SeverityMedium:
		return 2
	case SeverityHigh:
		return 3
	case SeverityCritical:
		return 4
	default:
		return 0
	}
}

// RiskType identifies one entry of the closed risk catalog.
type RiskType string

const (
	RiskAutoRenewalShortNotice RiskType = "auto_renewal_short_notice"
	RiskUnlimitedLiability     RiskType = "unlimited_liability"
	RiskBroadIndemnity         RiskType = "broad_indemnity"
	RiskNoTerminationRight     RiskType = "no_termination_right"
	RiskExclusiveTerms         RiskType = "exclusive_terms"
)

// RiskFinding is a flagged clause or derived condition. CharRange and Page are
// nil for findings derived from structured fields rather than a located match.
type RiskFinding struct {
	Type        RiskType `json:"risk_type"`
	Severity    Severity `json:"severity"`
	Description string   `json:"description"`
	Evidence    string   `json:"evidence"`
	CharRange   *[2]int  `json:"char_range"`
	Page        *int     `json:"page"`
	DocumentID  string   `json:"document_id"`
}
