package pdf

import (
	"strings"
	"testing"
	"time"

	"github.com/clauselab/contraq/internal/domain"
)

func TestDocumentID(t *testing.T) {
	now := time.Date(2024, 1, 15, 10, 30, 0, 0, time.UTC)
	id := DocumentID([]byte("contract body"), now)

	if !strings.HasPrefix(id, "20240115103000_") {
		t.Errorf("id = %q, want timestamp prefix 20240115103000_", id)
	}
	suffix := strings.TrimPrefix(id, "20240115103000_")
	if len(suffix) != 16 {
		t.Errorf("hash suffix length = %d, want 16", len(suffix))
	}

	// Same content and time produce the same id.
	if other := DocumentID([]byte("contract body"), now); other != id {
		t.Errorf("id not deterministic: %q vs %q", id, other)
	}
	// Different content produces a different id.
	if other := DocumentID([]byte("different body"), now); other == id {
		t.Error("distinct content produced identical ids")
	}
}

func TestAssembleTextPageMarkers(t *testing.T) {
	text := assembleText([]string{"first page", "second page"})

	if !strings.Contains(text, domain.PageMarker(1)+"first page") {
		t.Errorf("missing marked first page in %q", text)
	}
	if !strings.Contains(text, domain.PageMarker(2)+"second page") {
		t.Errorf("missing marked second page in %q", text)
	}
	if domain.PageAt(text, strings.Index(text, "second page")) != 2 {
		t.Error("second page content not attributed to page 2")
	}
}

func TestAssembleTextEmpty(t *testing.T) {
	if got := assembleText(nil); got != "" {
		t.Errorf("assembleText(nil) = %q, want empty", got)
	}
}

func TestAssembleTextPerPageCap(t *testing.T) {
	huge := strings.Repeat("a", maxTextPerPage+1000)
	text := assembleText([]string{huge, "tail"})

	if !strings.Contains(text, pageTruncationMarker) {
		t.Error("expected page truncation marker")
	}
	// The second page still makes it in.
	if !strings.Contains(text, domain.PageMarker(2)+"tail") {
		t.Error("expected second page after truncated first page")
	}
}

func TestAssembleTextTotalCap(t *testing.T) {
	// Each page is just under the per-page cap, so the total cap is what trips.
	page := strings.Repeat("b", maxTextPerPage-100)
	pages := make([]string, 20)
	for i := range pages {
		pages[i] = page
	}

	text := assembleText(pages)

	// The cap applies to page blocks; joining newlines sit outside it.
	if len(text) > maxTotalText+len(docTruncationMarker)+len(pages) {
		t.Errorf("assembled length = %d, exceeds total cap", len(text))
	}
	if !strings.Contains(text, docTruncationMarker) {
		t.Error("expected document truncation marker")
	}
}
