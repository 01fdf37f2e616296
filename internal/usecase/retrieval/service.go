package retrieval

import (
	"context"
	"fmt"
	"sort"

	"go.uber.org/zap"

	"github.com/clauselab/contraq/internal/chunker"
	"github.com/clauselab/contraq/internal/domain"
	"github.com/clauselab/contraq/internal/logger"
)

const (
	defaultChunkSize    = 1000
	defaultChunkOverlap = 200

	// perDocumentTopK bounds how many chunks each document contributes
	// before the cross-document merge, keeping cost flat on large corpora.
	perDocumentTopK = 2
	// defaultTopK is the size of the final ranked list.
	defaultTopK = 3

	// fallbackPrefixSize bounds the synthetic whole-document chunk used
	// when no chunk scored.
	fallbackPrefixSize = 10_000
	// fallbackMinText is the minimum document length worth falling back to.
	fallbackMinText = 100
	// fallbackScore is the nominal score of the synthetic chunk.
	fallbackScore = 0.1
)

// Result is the outcome of one retrieval call. DocumentCount distinguishes
// "no documents exist" from "documents exist but nothing matched".
type Result struct {
	Chunks        []domain.RetrievedChunk
	DocumentCount int
}

// Service ranks document chunks against a question. Stateless; safe for
// concurrent use.
type Service struct {
	store     Storage
	chunkSize int
	overlap   int
	topK      int
}

// New creates a retrieval service.
func New(store Storage) *Service {
	return &Service{
		store:     store,
		chunkSize: defaultChunkSize,
		overlap:   defaultChunkOverlap,
		topK:      defaultTopK,
	}
}

// WithChunking overrides the segmentation window. Callers must keep the
// overlap smaller than the size; config validation enforces this.
func (s *Service) WithChunking(size, overlap int) *Service {
	if size > 0 && overlap >= 0 && overlap < size {
		s.chunkSize = size
		s.overlap = overlap
	}
	return s
}

// WithTopK overrides the final ranked list size.
func (s *Service) WithTopK(k int) *Service {
	if k > 0 {
		s.topK = k
	}
	return s
}

// Retrieve segments and scores every requested document against the question
// and returns the merged top-ranked chunks, each attributed to its document
// and page. When documentIDs is nil, every stored document is searched.
// Unknown ids are skipped, not rejected; an empty Result is valid and means
// no relevant text exists.
func (s *Service) Retrieve(ctx context.Context, question string, documentIDs []string) (Result, error) {
	log := logger.FromContext(ctx)

	if documentIDs == nil {
		ids, err := s.store.ListDocumentIDs(ctx)
		if err != nil {
			return Result{}, fmt.Errorf("list documents: %w", err)
		}
		documentIDs = ids
	}
	if len(documentIDs) == 0 {
		return Result{}, nil
	}

	query := ParseQuery(question)

	var merged []domain.RetrievedChunk
	for _, id := range documentIDs {
		doc, err := s.store.GetDocument(ctx, id)
		if err != nil {
			continue
		}
		merged = append(merged, s.searchDocument(doc, query)...)
	}

	// Stable sort keeps document encounter order on score ties.
	sort.SliceStable(merged, func(i, j int) bool {
		return merged[i].Score > merged[j].Score
	})
	if len(merged) > s.topK {
		merged = merged[:s.topK]
	}

	if len(merged) == 0 {
		merged = s.wholeDocumentFallback(ctx, documentIDs)
		if len(merged) > 0 {
			log.Debug("retrieval fell back to whole-document context",
				zap.String("document_id", merged[0].DocumentID))
		}
	}

	return Result{Chunks: merged, DocumentCount: len(documentIDs)}, nil
}

// searchDocument scores one document's chunks and returns its local top
// entries with pages attached.
func (s *Service) searchDocument(doc domain.Document, query Query) []domain.RetrievedChunk {
	if !doc.HasText() {
		return nil
	}
	chunks := chunker.Split(doc.Text, s.chunkSize, s.overlap)
	if len(chunks) == 0 {
		return nil
	}

	scored := make([]domain.Chunk, 0, len(chunks))
	for _, c := range chunks {
		score := query.Score(c.Text)
		if score < 0 {
			continue
		}
		scored = append(scored, domain.Chunk{Text: c.Text, Start: c.Start, End: c.End, Score: score})
	}
	if len(scored) == 0 {
		// Every chunk fell under the scoring minimum, which happens on
		// very short documents. Hand back the leading chunks at the
		// nominal score rather than dropping the document entirely.
		for _, c := range chunks[:min(len(chunks), perDocumentTopK)] {
			scored = append(scored, domain.Chunk{Text: c.Text, Start: c.Start, End: c.End, Score: fallbackScore})
		}
	}

	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].Score > scored[j].Score
	})
	if len(scored) > perDocumentTopK {
		scored = scored[:perDocumentTopK]
	}

	pages := domain.NewPageIndex(doc.Text)
	out := make([]domain.RetrievedChunk, len(scored))
	for i, c := range scored {
		out[i] = domain.RetrievedChunk{
			Chunk:      c,
			DocumentID: doc.ID,
			Page:       pages.PageAt(c.Start),
		}
	}
	return out
}

// wholeDocumentFallback is the terminal retrieval fallback: a bounded prefix
// of the first document with non-trivial text, as a single synthetic chunk.
func (s *Service) wholeDocumentFallback(ctx context.Context, documentIDs []string) []domain.RetrievedChunk {
	for _, id := range documentIDs {
		doc, err := s.store.GetDocument(ctx, id)
		if err != nil || len(doc.Text) <= fallbackMinText {
			continue
		}
		text := doc.Text
		if len(text) > fallbackPrefixSize {
			text = text[:fallbackPrefixSize]
		}
		return []domain.RetrievedChunk{{
			Chunk:      domain.Chunk{Text: text, Start: 0, End: len(text), Score: fallbackScore},
			DocumentID: id,
			Page:       1,
		}}
	}
	return nil
}
