package extract

import (
	"regexp"
	"strings"

	"github.com/clauselab/contraq/internal/domain"
)

// Extraction rules are independent of each other: each field is captured by
// the first matching pattern of its group, and a field that matches nothing
// simply stays empty. Case-insensitive throughout; contract capitalization
// is far too inconsistent to rely on.

var partyPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?im)(?:between|by and between)\s+([A-Z][A-Za-z0-9\s&,\.\-']+?)` +
		`(?:\s+and\s+|\s+,\s+)([A-Z][A-Za-z0-9\s&,\.\-']+?)(?:\s+\(|,|\.|$|;|\n)`),
	regexp.MustCompile(`(?im)party\s+(?:a|1)[\s:]+([A-Z][A-Za-z0-9\s&,\.\-']+?)(?:\s+party\s+(?:b|2)|$|;|\n)`),
	regexp.MustCompile(`(?im)party\s+(?:b|2)[\s:]+([A-Z][A-Za-z0-9\s&,\.\-']+?)(?:$|\.|,|;|\n)`),
	regexp.MustCompile(`(?im)([A-Z][A-Za-z0-9\s&,\.\-']+?)\s+and\s+([A-Z][A-Za-z0-9\s&,\.\-']+?)(?:\s+herein|$|\.|,|;|\n)`),
	regexp.MustCompile(`(?im)this\s+agreement\s+is\s+between\s+([A-Z][A-Za-z0-9\s&,\.\-']+?)` +
		`\s+and\s+([A-Z][A-Za-z0-9\s&,\.\-']+?)`),
}

// partyStopList filters capture noise that the loose party patterns produce.
var partyStopList = map[string]struct{}{
	"party": {}, "parties": {}, "agreement": {}, "contract": {}, "document": {},
}

var datePatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)effective\s+(?:date|as\s+of)[\s:]+(\d{1,2}[/-]\d{1,2}[/-]\d{2,4})`),
	regexp.MustCompile(`(?i)effective\s+(?:date|as\s+of)[\s:]+([A-Z][a-z]+\s+\d{1,2},?\s+\d{4})`),
	regexp.MustCompile(`(?i)this\s+agreement\s+is\s+effective\s+(?:as\s+of\s+)?(\d{1,2}[/-]\d{1,2}[/-]\d{2,4})`),
	regexp.MustCompile(`(?i)this\s+agreement\s+is\s+effective\s+(?:as\s+of\s+)?([A-Z][a-z]+\s+\d{1,2},?\s+\d{4})`),
	regexp.MustCompile(`(?i)dated[:\s]+(\d{1,2}[/-]\d{1,2}[/-]\d{2,4})`),
	regexp.MustCompile(`(?i)dated[:\s]+([A-Z][a-z]+\s+\d{1,2},?\s+\d{4})`),
	regexp.MustCompile(`(?i)executed\s+(?:on\s+)?(\d{1,2}[/-]\d{1,2}[/-]\d{2,4})`),
	regexp.MustCompile(`(?i)executed\s+(?:on\s+)?([A-Z][a-z]+\s+\d{1,2},?\s+\d{4})`),
}

var termPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)term\s+(?:of\s+)?(?:this\s+)?(?:agreement|contract)[\s:]+\d+\s+(?:year|month|day)`),
	regexp.MustCompile(`(?i)initial\s+term[\s:]+\d+\s+(?:year|month|day)`),
	regexp.MustCompile(`(?i)duration[\s:]+\d+\s+(?:year|month|day)`),
}

var lawPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)governed\s+by\s+(?:the\s+)?(?:laws?|law)\s+of\s+([A-Z][A-Za-z\s,]+?)(?:\.|,|$)`),
	regexp.MustCompile(`(?i)governing\s+law[\s:]+([A-Z][A-Za-z\s,]+?)(?:\.|,|$)`),
	regexp.MustCompile(`(?i)laws?\s+of\s+([A-Z][A-Za-z\s,]+?)(?:\s+shall\s+govern|\.|,|$)`),
}

var paymentPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)payment\s+(?:terms?|shall\s+be)[\s:]+([A-Za-z0-9\s,\.\$]+?)(?:\.|,|$)`),
	regexp.MustCompile(`(?i)invoice\s+(?:shall\s+be\s+)?(?:paid|due)[\s:]+([A-Za-z0-9\s,\.\$]+?)(?:\.|,|$)`),
}

var terminationPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)termination[\s:]+([A-Za-z0-9\s,\.]+?)(?:\.|,|$)`),
	regexp.MustCompile(`(?i)may\s+terminate[\s:]+([A-Za-z0-9\s,\.]+?)(?:\.|,|$)`),
}

var renewalPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)auto[-\s]?renew(?:al)?[\s:]+([A-Za-z0-9\s,\.]+?)(?:\.|,|$)`),
	regexp.MustCompile(`(?i)automatically\s+renew(?:s|ed)?[\s:]+([A-Za-z0-9\s,\.]+?)(?:\.|,|$)`),
	regexp.MustCompile(`(?i)renew(?:s|ed)?\s+automatically[\s:]+([A-Za-z0-9\s,\.]+?)(?:\.|,|$)`),
}

var confidentialityPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?im)confidential(?:ity)?[\s:]+([A-Za-z0-9\s,\.\(\)]+?)(?:\.|,|$|;|\n)`),
	regexp.MustCompile(`(?im)non[-\s]?disclosure[\s:]+([A-Za-z0-9\s,\.\(\)]+?)(?:\.|,|$|;|\n)`),
	regexp.MustCompile(`(?im)confidential\s+information[\s:]+([A-Za-z0-9\s,\.\(\)]+?)(?:\.|,|$|;|\n)`),
	regexp.MustCompile(`(?im)confidential\s+information\s+means[\s:]+([A-Za-z0-9\s,\.\(\)]+?)(?:\.|,|$|;|\n)`),
	regexp.MustCompile(`(?im)confidential\s+information\s+shall\s+mean[\s:]+([A-Za-z0-9\s,\.\(\)]+?)(?:\.|,|$|;|\n)`),
	regexp.MustCompile(`(?im)([A-Za-z0-9\s,\.\(\)]+?)\s+shall\s+be\s+deemed\s+confidential`),
	regexp.MustCompile(`(?im)confidential\s+information\s+includes[\s:]+([A-Za-z0-9\s,\.\(\)]+?)(?:\.|,|$|;|\n)`),
}

var indemnityPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)indemnif(?:y|ies)[\s:]+([A-Za-z0-9\s,\.]+?)(?:\.|,|$)`),
	regexp.MustCompile(`(?i)shall\s+indemnify[\s:]+([A-Za-z0-9\s,\.]+?)(?:\.|,|$)`),
}

var liabilityPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)liability\s+(?:cap|limit)[\s:]+([\$£€]?\s*\d+(?:,\d{3})*(?:\.\d{2})?)\s*([A-Z]{3})?`),
	regexp.MustCompile(`(?i)maximum\s+liability[\s:]+([\$£€]?\s*\d+(?:,\d{3})*(?:\.\d{2})?)\s*([A-Z]{3})?`),
}

var signatoryPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)(?:signed|executed)\s+by[\s:]+([A-Z][A-Za-z\s]+?)[\s:]+(?:title|as)[\s:]+([A-Z][A-Za-z\s]+?)(?:\.|,|$)`),
	regexp.MustCompile(`(?i)([A-Z][A-Za-z\s]+?)[\s:]+(?:title|as)[\s:]+([A-Z][A-Za-z\s]+?)(?:\.|,|$)`),
}

// Fields applies every extraction rule to the contract text. Best-effort by
// design: a failed rule leaves its field empty, never aborts the others.
func Fields(text string) domain.ExtractedFields {
	fields := domain.ExtractedFields{
		Parties:     []string{},
		Signatories: []domain.Signatory{},
	}

	fields.Parties = extractParties(text)
	fields.EffectiveDate = firstGroup(datePatterns, text)
	fields.Term = firstMatch(termPatterns, text)
	fields.GoverningLaw = firstGroup(lawPatterns, text)
	fields.PaymentTerms = firstGroup(paymentPatterns, text)
	fields.Termination = firstGroup(terminationPatterns, text)
	fields.AutoRenewal = firstGroup(renewalPatterns, text)
	fields.Confidentiality = extractConfidentiality(text)
	fields.Indemnity = firstGroup(indemnityPatterns, text)
	fields.LiabilityCap = extractLiabilityCap(text)
	fields.Signatories = extractSignatories(text)

	return fields
}

func extractParties(text string) []string {
	var parties []string
	seen := make(map[string]struct{})
	for _, re := range partyPatterns {
		for _, m := range re.FindAllStringSubmatch(text, -1) {
			for _, raw := range m[1:] {
				party := strings.TrimSpace(raw)
				if len(party) <= 3 {
					continue
				}
				if _, stop := partyStopList[strings.ToLower(party)]; stop {
					continue
				}
				if _, dup := seen[party]; dup {
					continue
				}
				seen[party] = struct{}{}
				parties = append(parties, party)
			}
		}
	}
	if parties == nil {
		parties = []string{}
	}
	return parties
}

func extractConfidentiality(text string) string {
	for _, re := range confidentialityPatterns {
		for _, m := range re.FindAllStringSubmatch(text, -1) {
			captured := strings.TrimSpace(m[1])
			// Only keep captures with real content; the loose patterns
			// match plenty of two-word noise.
			if len(captured) > 10 {
				if len(captured) > 500 {
					captured = captured[:500]
				}
				return captured
			}
		}
	}
	return ""
}

func extractLiabilityCap(text string) *domain.LiabilityCap {
	for _, re := range liabilityPatterns {
		m := re.FindStringSubmatch(text)
		if m == nil {
			continue
		}
		currency := strings.TrimSpace(m[2])
		if currency == "" {
			currency = "USD"
		}
		return &domain.LiabilityCap{Amount: strings.TrimSpace(m[1]), Currency: currency}
	}
	return nil
}

func extractSignatories(text string) []domain.Signatory {
	signatories := []domain.Signatory{}
	for _, re := range signatoryPatterns {
		for _, m := range re.FindAllStringSubmatch(text, -1) {
			signatories = append(signatories, domain.Signatory{
				Name:  strings.TrimSpace(m[1]),
				Title: strings.TrimSpace(m[2]),
			})
		}
	}
	return signatories
}

// firstGroup returns the first capture group of the first pattern matching text.
func firstGroup(patterns []*regexp.Regexp, text string) string {
	for _, re := range patterns {
		if m := re.FindStringSubmatch(text); m != nil {
			return strings.TrimSpace(m[1])
		}
	}
	return ""
}

// firstMatch returns the whole first match of the first pattern matching text.
func firstMatch(patterns []*regexp.Regexp, text string) string {
	for _, re := range patterns {
		if m := re.FindString(text); m != "" {
			return strings.TrimSpace(m)
		}
	}
	return ""
}
