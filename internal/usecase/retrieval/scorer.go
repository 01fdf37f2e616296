package retrieval

import "strings"

// minChunkChars excludes near-empty chunks from scoring entirely.
const minChunkChars = 50

// stopWords are never scored as query terms.
var stopWords = map[string]struct{}{
	"what": {}, "is": {}, "are": {}, "the": {}, "a": {}, "an": {},
	"this": {}, "that": {}, "these": {}, "those": {},
}

// synonyms expands common contract vocabulary so that questions phrased
// differently from the document wording still match.
var synonyms = map[string][]string{
	"confidentiality": {"confidential", "confidential information", "non-disclosure", "nda", "disclosure"},
	"confidential":    {"confidentiality", "confidential information", "non-disclosure", "nda"},
	"party":           {"parties", "company", "companies", "entity", "entities"},
	"date":            {"effective date", "execution date", "dated"},
	"term":            {"duration", "period", "length"},
	"liability":       {"liability cap", "liability limit", "maximum liability"},
}

// Query is the tokenized, synonym-expanded form of a question.
type Query struct {
	// Terms are the lower-cased question tokens after dropping stop words
	// and tokens of length <= 2.
	Terms []string
	// Expanded are synonym terms not already present in Terms.
	Expanded []string

	phrase string
}

// ParseQuery tokenizes and expands a natural-language question.
func ParseQuery(question string) Query {
	var q Query
	seen := make(map[string]struct{})
	for _, tok := range strings.Fields(strings.ToLower(question)) {
		tok = strings.TrimSpace(tok)
		if len(tok) <= 2 {
			continue
		}
		if _, stop := stopWords[tok]; stop {
			continue
		}
		if _, dup := seen[tok]; dup {
			continue
		}
		seen[tok] = struct{}{}
		q.Terms = append(q.Terms, tok)
	}

	for _, term := range q.Terms {
		for _, syn := range synonyms[term] {
			if _, dup := seen[syn]; dup {
				continue
			}
			seen[syn] = struct{}{}
			q.Expanded = append(q.Expanded, syn)
		}
	}

	if len(q.Terms) > 1 {
		q.phrase = strings.Join(q.Terms, " ")
	}
	return q
}

// Score computes the relevance of a chunk to the query. Literal term
// occurrences weigh 3, synonym-only occurrences 1.5, and an exact contiguous
// match of the full query phrase adds a flat 10. A chunk that matches nothing
// but still contains any single query token scores a minimal 0.5, so the
// system degrades gracefully instead of returning nothing. Chunks shorter
// than minChunkChars after trimming are never scored: Score returns -1 to
// mark them ineligible.
func (q Query) Score(chunkText string) float64 {
	if len(strings.TrimSpace(chunkText)) < minChunkChars {
		return -1
	}

	lower := strings.ToLower(chunkText)
	var score float64

	for _, term := range q.Terms {
		score += float64(strings.Count(lower, term)) * 3
	}
	for _, syn := range q.Expanded {
		score += float64(strings.Count(lower, syn)) * 1.5
	}
	if q.phrase != "" && strings.Contains(lower, q.phrase) {
		score += 10
	}

	if score == 0 {
		for _, term := range q.Terms {
			if strings.Contains(lower, term) {
				return 0.5
			}
		}
	}
	return score
}
