package audit

import (
	"regexp"
	"strconv"

	"github.com/clauselab/contraq/internal/domain"
)

// patternSpec is one entry of the closed risk catalog: a pattern to locate
// candidate clauses and a fixed severity. Whether a textual match is a true
// positive is decided by accept.
type patternSpec struct {
	risk     domain.RiskType
	severity domain.Severity
	re       *regexp.Regexp
}

// minNoticeDays is the shortest acceptable auto-renewal notice period.
const minNoticeDays = 30

// catalog is the process-wide risk table. Closed: extending detection means
// adding entries here, not changing the scan.
//
// The auto-renewal pattern accepts the day count on either side of "notice"
// ("notice ... 10 days" and "10 days notice"); whichever capture group
// participates carries the count.
var catalog = []patternSpec{
	{
		risk:     domain.RiskAutoRenewalShortNotice,
		severity: domain.SeverityHigh,
		re: regexp.MustCompile(
			`(?im)auto[-\s]?renew(?:al|s)?` +
				`(?:.*?(?:written\s+)?notice.*?(\d+)\s*days?` +
				`|.*?(\d+)\s*days?[^\n]*?notice)`),
	},
	{
		risk:     domain.RiskUnlimitedLiability,
		severity: domain.SeverityCritical,
		re:       regexp.MustCompile(`(?im)(?:unlimited|no\s+limit|without\s+limit).*?liability`),
	},
	{
		risk:     domain.RiskBroadIndemnity,
		severity: domain.SeverityHigh,
		re: regexp.MustCompile(
			`(?im)indemnif(?:y|ies).*?(?:all|any|any\s+and\s+all).*?(?:loss|damage|claim|liability)`),
	},
	{
		risk:     domain.RiskNoTerminationRight,
		severity: domain.SeverityMedium,
		re:       regexp.MustCompile(`(?im)(?:may\s+not\s+terminate|cannot\s+terminate|no\s+right\s+to\s+terminate)`),
	},
	{
		risk:     domain.RiskExclusiveTerms,
		severity: domain.SeverityMedium,
		re:       regexp.MustCompile(`(?im)exclusive.*?(?:vendor|supplier|provider)`),
	},
}

// descriptions are the human-readable summaries per risk type.
var descriptions = map[domain.RiskType]string{
	domain.RiskAutoRenewalShortNotice: "Auto-renewal clause with less than 30 days notice period",
	domain.RiskUnlimitedLiability:     "Unlimited liability clause detected",
	domain.RiskBroadIndemnity:         "Broad indemnity clause that may expose party to excessive risk",
	domain.RiskNoTerminationRight:     "Clause that restricts or prevents termination rights",
	domain.RiskExclusiveTerms:         "Exclusive vendor/supplier terms that limit flexibility",
}

// describe returns the catalog description for a risk type.
func describe(risk domain.RiskType) string {
	if d, ok := descriptions[risk]; ok {
		return d
	}
	return "Potential risk detected in contract"
}

// accept is the validating predicate over a regex match: it decides whether
// a textual match is a true positive. groups holds the submatch texts, with
// the full match at index 0. Keyed by risk type as a closed enumeration so
// every predicate stays auditable in one place.
func accept(risk domain.RiskType, groups []string) bool {
	switch risk {
	case domain.RiskAutoRenewalShortNotice:
		for _, g := range groups[1:] {
			if g == "" {
				continue
			}
			days, err := strconv.Atoi(g)
			if err != nil {
				// Unparsable day count: skip the match, never fail the audit.
				return false
			}
			return days < minNoticeDays
		}
		return false
	default:
		return true
	}
}
