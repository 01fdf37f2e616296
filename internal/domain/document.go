package domain

import "time"

// Document is a stored contract: flattened text with embedded page markers,
// plus extraction metadata. Owned by the repository layer; the analysis
// engines only ever read it.
type Document struct {
	ID         string            `json:"document_id"`
	Filename   string            `json:"filename"`
	Text       string            `json:"text_content"`
	PageCount  int               `json:"page_count"`
	Metadata   map[string]string `json:"metadata,omitempty"`
	UploadedAt time.Time         `json:"uploaded_at"`
}

// HasText reports whether the document carries any non-whitespace content.
func (d Document) HasText() bool {
	for _, r := range d.Text {
		if r != ' ' && r != '\t' && r != '\n' && r != '\r' {
			return true
		}
	}
	return false
}

// Chunk is a bounded contiguous slice of document text with tracked offsets.
// Derived per retrieval call, never persisted.
type Chunk struct {
	Text  string
	Start int
	End   int
	Score float64
}

// RetrievedChunk is a scored chunk attributed to its source document and page.
type RetrievedChunk struct {
	Chunk
	DocumentID string
	Page       int
}

// Citation points from a synthesized answer back to the exact document, page,
// and character range supporting it.
type Citation struct {
	DocumentID string `json:"document_id"`
	Page       int    `json:"page"`
	CharRange  [2]int `json:"char_range"`
	Snippet    string `json:"text_snippet"`
}

// Answer is the result of a retrieve-and-synthesize call.
type Answer struct {
	Text      string     `json:"answer"`
	Citations []Citation `json:"citations"`
}

// LiabilityCap is a captured liability limit with its currency.
type LiabilityCap struct {
	Amount   string `json:"amount"`
	Currency string `json:"currency"`
}

// Signatory is a captured signer name and title.
type Signatory struct {
	Name  string `json:"name"`
	Title string `json:"title"`
}

// ExtractedFields are the structured attributes pulled from a contract by the
// field extraction rules. Absent fields stay zero-valued; a nil LiabilityCap
// means no cap was captured, which is itself a signal to the risk detector.
type ExtractedFields struct {
	Parties         []string      `json:"parties"`
	EffectiveDate   string        `json:"effective_date,omitempty"`
	Term            string        `json:"term,omitempty"`
	GoverningLaw    string        `json:"governing_law,omitempty"`
	PaymentTerms    string        `json:"payment_terms,omitempty"`
	Termination     string        `json:"termination,omitempty"`
	AutoRenewal     string        `json:"auto_renewal,omitempty"`
	Confidentiality string        `json:"confidentiality,omitempty"`
	Indemnity       string        `json:"indemnity,omitempty"`
	LiabilityCap    *LiabilityCap `json:"liability_cap"`
	Signatories     []Signatory   `json:"signatories"`
}
