package extract

import (
	"context"
	"errors"
	"fmt"

	"github.com/clauselab/contraq/internal/domain"
	"github.com/clauselab/contraq/internal/metrics"
)

// Service extracts structured fields from stored documents. Results are
// cached per document; extraction for an unchanged document runs once.
type Service struct {
	store Storage
}

func New(store Storage) *Service {
	return &Service{store: store}
}

// ExtractFields returns the structured fields for a document, extracting and
// caching them on first access.
func (s *Service) ExtractFields(ctx context.Context, documentID string) (domain.ExtractedFields, error) {
	cached, err := s.store.GetExtractedFields(ctx, documentID)
	if err == nil {
		return cached, nil
	}
	if !errors.Is(err, domain.ErrFieldsNotFound) {
		return domain.ExtractedFields{}, fmt.Errorf("load cached fields: %w", err)
	}

	doc, err := s.store.GetDocument(ctx, documentID)
	if err != nil {
		return domain.ExtractedFields{}, err
	}

	fields := Fields(doc.Text)

	if err := s.store.SaveExtractedFields(ctx, documentID, fields); err != nil {
		return domain.ExtractedFields{}, fmt.Errorf("save extracted fields: %w", err)
	}
	metrics.ExtractionsTotal.Inc()

	return fields, nil
}
