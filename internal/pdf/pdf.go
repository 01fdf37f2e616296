// Package pdf turns uploaded PDF bytes into page-marked plain text suitable
// for the retrieval and audit engines.
package pdf

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"github.com/ledongthuc/pdf"

	"github.com/clauselab/contraq/internal/domain"
)

const (
	// maxTextPerPage bounds a single page's contribution.
	maxTextPerPage = 50_000
	// maxTotalText bounds the whole document's text.
	maxTotalText = 500_000

	pageTruncationMarker = "\n[... text truncated ...]"
	docTruncationMarker  = "\n[... document truncated ...]"
)

// Extraction is the result of text extraction from one PDF.
type Extraction struct {
	Text      string
	PageCount int
	Metadata  map[string]string
}

// DocumentID derives a stable id from upload time and content hash.
// The timestamp prefix keeps lexicographic order chronological.
func DocumentID(content []byte, now time.Time) string {
	sum := sha256.Sum256(content)
	return now.Format("20060102150405") + "_" + hex.EncodeToString(sum[:])[:16]
}

// Extract pulls plain text out of a PDF, one marker-prefixed block per page.
// Pages that fail text extraction contribute an empty block rather than
// failing the document; a PDF that cannot be opened at all is an error.
func Extract(content []byte) (Extraction, error) {
	reader, err := pdf.NewReader(bytes.NewReader(content), int64(len(content)))
	if err != nil {
		return Extraction{}, fmt.Errorf("%w: %v", domain.ErrExtractionFailed, err)
	}

	pageCount := reader.NumPage()
	pages := make([]string, 0, pageCount)
	for i := 1; i <= pageCount; i++ {
		pages = append(pages, pageText(reader, i))
	}

	return Extraction{
		Text:      assembleText(pages),
		PageCount: pageCount,
		Metadata:  metadata(reader),
	}, nil
}

// assembleText joins per-page texts into one marker-prefixed string, applying
// the per-page and total size caps.
func assembleText(pages []string) string {
	var parts []string
	total := 0

	for i, text := range pages {
		if total >= maxTotalText {
			break
		}

		if len(text) > maxTextPerPage {
			text = text[:maxTextPerPage] + pageTruncationMarker
		}

		marker := domain.PageMarker(i + 1)
		block := marker + text + "\n"

		if total+len(block) > maxTotalText {
			remaining := maxTotalText - total
			if remaining > len(marker) {
				parts = append(parts, marker+text[:remaining-len(marker)]+docTruncationMarker)
			}
			break
		}

		parts = append(parts, block)
		total += len(block)
	}

	return strings.Join(parts, "\n")
}

func pageText(reader *pdf.Reader, num int) string {
	page := reader.Page(num)
	if page.V.IsNull() {
		return ""
	}
	text, err := page.GetPlainText(nil)
	if err != nil {
		return ""
	}
	return text
}

func metadata(reader *pdf.Reader) map[string]string {
	info := reader.Trailer().Key("Info")
	if info.IsNull() {
		return map[string]string{}
	}
	return map[string]string{
		"title":   info.Key("Title").Text(),
		"author":  info.Key("Author").Text(),
		"subject": info.Key("Subject").Text(),
		"creator": info.Key("Creator").Text(),
	}
}
