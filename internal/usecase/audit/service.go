package audit

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/clauselab/contraq/internal/domain"
	"github.com/clauselab/contraq/internal/metrics"
)

// evidenceWindow is how many characters of context are kept on each side of
// a pattern match.
const evidenceWindow = 100

// noticeDaysRe pulls a day count out of a captured auto-renewal field.
var noticeDaysRe = regexp.MustCompile(`(\d+)\s*(?:day|days)`)

// Storage reads documents and their extracted fields for auditing.
type Storage interface {
	GetDocument(ctx context.Context, id string) (domain.Document, error)
	GetExtractedFields(ctx context.Context, id string) (domain.ExtractedFields, error)
}

// Service audits stored contracts for risky clauses. Stateless over an
// immutable catalog; safe for concurrent use.
type Service struct {
	store Storage
}

// New creates an audit service.
func New(store Storage) *Service {
	return &Service{store: store}
}

// AuditDocument runs both detection passes over a stored document. Extracted
// fields are optional: when none were ever captured, only the pattern pass
// runs. No findings is a valid empty result, not an error.
func (s *Service) AuditDocument(ctx context.Context, documentID string) ([]domain.RiskFinding, error) {
	doc, err := s.store.GetDocument(ctx, documentID)
	if err != nil {
		return nil, fmt.Errorf("get document %s: %w", documentID, err)
	}

	var fields *domain.ExtractedFields
	if f, err := s.store.GetExtractedFields(ctx, documentID); err == nil {
		fields = &f
	} else if !errors.Is(err, domain.ErrFieldsNotFound) {
		return nil, fmt.Errorf("get extracted fields %s: %w", documentID, err)
	}

	findings := Audit(doc, fields)
	for _, f := range findings {
		metrics.RiskFindingsTotal.WithLabelValues(string(f.Severity)).Inc()
	}
	return findings, nil
}

// Audit is the pure detection pass over a document's text and its extracted
// fields. Idempotent: identical inputs always yield identical findings. The
// two passes are independent and both appended, never deduplicated; a
// clause may legitimately trigger both.
func Audit(doc domain.Document, fields *domain.ExtractedFields) []domain.RiskFinding {
	findings := patternPass(doc)
	if fields != nil {
		findings = append(findings, fieldPass(doc, *fields)...)
	}
	return findings
}

// patternPass scans the full text against every catalog entry.
func patternPass(doc domain.Document) []domain.RiskFinding {
	var findings []domain.RiskFinding
	pages := domain.NewPageIndex(doc.Text)

	for _, spec := range catalog {
		for _, loc := range spec.re.FindAllStringSubmatchIndex(doc.Text, -1) {
			groups := submatchTexts(doc.Text, loc)
			if !accept(spec.risk, groups) {
				continue
			}

			start, end := loc[0], loc[1]
			evStart := start - evidenceWindow
			if evStart < 0 {
				evStart = 0
			}
			evEnd := end + evidenceWindow
			if evEnd > len(doc.Text) {
				evEnd = len(doc.Text)
			}

			charRange := [2]int{start, end}
			page := pages.PageAt(start)
			findings = append(findings, domain.RiskFinding{
				Type:        spec.risk,
				Severity:    spec.severity,
				Description: describe(spec.risk),
				Evidence:    strings.TrimSpace(doc.Text[evStart:evEnd]),
				CharRange:   &charRange,
				Page:        &page,
				DocumentID:  doc.ID,
			})
		}
	}
	return findings
}

// fieldPass applies business-rule checks over previously extracted fields.
// These findings derive from structured data, not a located match, so they
// carry no character range or page.
func fieldPass(doc domain.Document, fields domain.ExtractedFields) []domain.RiskFinding {
	var findings []domain.RiskFinding

	if fields.AutoRenewal != "" {
		if m := noticeDaysRe.FindStringSubmatch(strings.ToLower(fields.AutoRenewal)); m != nil {
			if days, err := strconv.Atoi(m[1]); err == nil && days < minNoticeDays {
				findings = append(findings, domain.RiskFinding{
					Type:     domain.RiskAutoRenewalShortNotice,
					Severity: domain.SeverityHigh,
					Description: fmt.Sprintf(
						"Auto-renewal clause requires only %d days notice (recommended: %d+ days)",
						days, minNoticeDays),
					Evidence:   fields.AutoRenewal,
					DocumentID: doc.ID,
				})
			}
		}
	}

	if fields.LiabilityCap == nil {
		lower := strings.ToLower(doc.Text)
		if strings.Contains(lower, "unlimited") && strings.Contains(lower, "liability") {
			findings = append(findings, domain.RiskFinding{
				Type:        domain.RiskUnlimitedLiability,
				Severity:    domain.SeverityCritical,
				Description: "No liability cap found, potential unlimited liability exposure",
				Evidence:    "Unlimited liability clause detected",
				DocumentID:  doc.ID,
			})
		}
	}

	return findings
}

// submatchTexts converts FindAllStringSubmatchIndex pair offsets into the
// matched strings, empty for groups that did not participate.
func submatchTexts(text string, loc []int) []string {
	groups := make([]string, len(loc)/2)
	for i := range groups {
		a, b := loc[2*i], loc[2*i+1]
		if a < 0 || b < 0 {
			continue
		}
		groups[i] = text[a:b]
	}
	return groups
}
