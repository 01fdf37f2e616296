package ingest

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/clauselab/contraq/internal/domain"
	"github.com/clauselab/contraq/internal/metrics"
	"github.com/clauselab/contraq/internal/pdf"
)

// File is one uploaded document.
type File struct {
	Name    string
	Content []byte
}

// Ingested identifies a stored document to the caller.
type Ingested struct {
	DocumentID string
	Filename   string
}

// Service turns uploaded PDFs into stored, page-marked documents.
type Service struct {
	store Storage

	// Injection points for tests.
	extract func([]byte) (pdf.Extraction, error)
	now     func() time.Time
}

func New(store Storage) *Service {
	return &Service{
		store:   store,
		extract: pdf.Extract,
		now:     time.Now,
	}
}

// Ingest processes files in order. Validation and processing are per-file:
// a failure aborts the batch but documents already saved stay saved.
func (s *Service) Ingest(ctx context.Context, files []File) ([]Ingested, error) {
	if len(files) == 0 {
		return nil, domain.ErrNoFiles
	}

	ingested := make([]Ingested, 0, len(files))
	for _, f := range files {
		if !strings.HasSuffix(strings.ToLower(f.Name), ".pdf") {
			return nil, fmt.Errorf("%w: %s", domain.ErrNotPDF, f.Name)
		}

		extraction, err := s.extract(f.Content)
		if err != nil {
			return nil, fmt.Errorf("process %s: %w", f.Name, err)
		}

		now := s.now()
		doc := domain.Document{
			ID:         pdf.DocumentID(f.Content, now),
			Filename:   f.Name,
			Text:       extraction.Text,
			PageCount:  extraction.PageCount,
			Metadata:   extraction.Metadata,
			UploadedAt: now,
		}

		if err := s.store.SaveDocument(ctx, doc); err != nil {
			return nil, fmt.Errorf("save %s: %w", f.Name, err)
		}
		metrics.DocumentsIngestedTotal.Inc()

		ingested = append(ingested, Ingested{DocumentID: doc.ID, Filename: doc.Filename})
	}

	return ingested, nil
}

// Remove deletes a stored document together with its cached extracted
// fields. Unknown ids report domain.ErrDocumentNotFound.
func (s *Service) Remove(ctx context.Context, documentID string) error {
	if _, err := s.store.GetDocument(ctx, documentID); err != nil {
		return fmt.Errorf("get document %s: %w", documentID, err)
	}
	if err := s.store.DeleteDocument(ctx, documentID); err != nil {
		return fmt.Errorf("delete document %s: %w", documentID, err)
	}
	return nil
}
