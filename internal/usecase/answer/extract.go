package answer

import (
	"regexp"
	"strings"
)

// keyTerms are contract concepts the extractor recognizes in "what is/does"
// questions, checked in order.
var keyTerms = []string{
	"confidentiality", "confidential", "indemnity",
	"liability", "termination", "auto-renewal",
}

var (
	dateRe   = regexp.MustCompile(`\d{1,2}[/-]\d{1,2}[/-]\d{2,4}|[A-Z][a-z]+\s+\d{1,2},?\s+\d{4}`)
	partyRe  = regexp.MustCompile(`([A-Z][A-Za-z\s&,\.]+?)(?:\s+and\s+|\s+,\s+)([A-Z][A-Za-z\s&,\.]+)`)
	amountRe = regexp.MustCompile(`\$[\d,]+(?:\.\d{2})?|[\d,]+(?:\.\d{2})?\s*(?:USD|EUR|GBP)`)
)

// RuleBasedAnswer extracts an answer from context without any generation
// backend. It is the terminal fallback of the synthesis chain: deterministic,
// always available, and guaranteed to return a non-empty string.
func RuleBasedAnswer(question, contextText string) string {
	ql := strings.ToLower(question)

	if strings.Contains(ql, "what is") || strings.Contains(ql, "what does") {
		for _, term := range keyTerms {
			if !strings.Contains(ql, term) {
				continue
			}
			if ans := sentencesContaining(contextText, []string{term}, 2); ans != "" {
				return clip(ans, 500)
			}
			break
		}
	}

	if strings.Contains(ql, "when") || strings.Contains(ql, "date") {
		if m := dateRe.FindString(contextText); m != "" {
			return "Based on the document, the relevant date is: " + m
		}
	}

	if strings.Contains(ql, "who") || strings.Contains(ql, "party") {
		if m := partyRe.FindStringSubmatch(contextText); m != nil {
			return "The parties mentioned are: " + strings.TrimSpace(m[1]) + ", " + strings.TrimSpace(m[2])
		}
	}

	if strings.Contains(ql, "how much") || strings.Contains(ql, "amount") || strings.Contains(ql, "price") {
		if m := amountRe.FindString(contextText); m != "" {
			return "Based on the document, the amount is: " + m
		}
	}

	var terms []string
	for _, t := range strings.Fields(ql) {
		if len(t) > 2 {
			terms = append(terms, t)
		}
	}
	if ans := sentencesContaining(contextText, terms, 3); ans != "" {
		return clip(ans, 500)
	}

	return "Based on the document: " + clip(contextText, 400) + "..."
}

// sentencesContaining returns up to max sentences of text that contain any of
// the given lower-cased terms, joined back into prose. Empty when none match.
func sentencesContaining(text string, terms []string, max int) string {
	if len(terms) == 0 {
		return ""
	}
	var picked []string
	for _, s := range strings.Split(text, ".") {
		s = strings.TrimSpace(s)
		if s == "" {
			continue
		}
		lower := strings.ToLower(s)
		for _, term := range terms {
			if strings.Contains(lower, term) {
				picked = append(picked, s)
				break
			}
		}
		if len(picked) == max {
			break
		}
	}
	if len(picked) == 0 {
		return ""
	}
	return strings.Join(picked, ". ") + "."
}

func clip(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
