package ingest

import (
	"context"

	"github.com/clauselab/contraq/internal/domain"
)

type Storage interface {
	SaveDocument(ctx context.Context, doc domain.Document) error
	GetDocument(ctx context.Context, id string) (domain.Document, error)
	DeleteDocument(ctx context.Context, id string) error
}
