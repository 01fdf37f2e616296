package answer

import (
	"context"

	"github.com/clauselab/contraq/internal/usecase/retrieval"
)

// Retriever supplies ranked context chunks for a question.
type Retriever interface {
	Retrieve(ctx context.Context, question string, documentIDs []string) (retrieval.Result, error)
}
