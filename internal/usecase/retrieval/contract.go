package retrieval

import (
	"context"

	"github.com/clauselab/contraq/internal/domain"
)

// Storage is the read-only document source for retrieval.
type Storage interface {
	GetDocument(ctx context.Context, id string) (domain.Document, error)
	ListDocumentIDs(ctx context.Context) ([]string, error)
}
