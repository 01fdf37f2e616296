package extract

import (
	"context"

	"github.com/clauselab/contraq/internal/domain"
)

type Storage interface {
	GetDocument(ctx context.Context, id string) (domain.Document, error)
	GetExtractedFields(ctx context.Context, id string) (domain.ExtractedFields, error)
	SaveExtractedFields(ctx context.Context, id string, fields domain.ExtractedFields) error
}
