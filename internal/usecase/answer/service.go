package answer

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/clauselab/contraq/internal/domain"
	"github.com/clauselab/contraq/internal/logger"
	"github.com/clauselab/contraq/internal/metrics"
)

const (
	// maxContextSize bounds the text handed to a generation backend.
	maxContextSize = 2000
	// maxSnippetSize bounds citation snippets.
	maxSnippetSize = 200

	defaultBackendTimeout = 30 * time.Second

	answerNoDocuments = "No documents available to answer the question."

	answerNoRelevantInfo = "I couldn't find relevant information to answer this question " +
		"in the provided documents. Please ensure documents have been uploaded and contain text content."
)

// Service synthesizes answers from retrieved context. Generation proceeds
// through the configured backend chain; any backend failure falls through
// silently, and the rule-based extractor is the terminal step that cannot
// fail. Stateless; safe for concurrent use.
type Service struct {
	retriever Retriever
	chain     []domain.Generator
	timeout   time.Duration
}

// New creates an answer service. The chain may be empty, in which case every
// answer comes from the rule-based extractor.
func New(retriever Retriever, chain []domain.Generator) *Service {
	return &Service{retriever: retriever, chain: chain, timeout: defaultBackendTimeout}
}

// WithBackendTimeout overrides the per-backend call timeout.
func (s *Service) WithBackendTimeout(d time.Duration) *Service {
	if d > 0 {
		s.timeout = d
	}
	return s
}

// Ask answers a question over the given documents (all documents when
// documentIDs is nil) and cites its sources. "No answer found" is a valid
// placeholder result, never an error; the only errors are input errors and
// storage failures.
func (s *Service) Ask(ctx context.Context, question string, documentIDs []string) (domain.Answer, error) {
	if strings.TrimSpace(question) == "" {
		return domain.Answer{}, domain.ErrEmptyQuestion
	}

	res, err := s.retriever.Retrieve(ctx, question, documentIDs)
	if err != nil {
		return domain.Answer{}, fmt.Errorf("retrieve: %w", err)
	}

	if res.DocumentCount == 0 {
		return domain.Answer{Text: answerNoDocuments, Citations: []domain.Citation{}}, nil
	}
	if len(res.Chunks) == 0 {
		return domain.Answer{Text: answerNoRelevantInfo, Citations: []domain.Citation{}}, nil
	}

	contextText := buildContext(res.Chunks)
	text := s.generate(ctx, question, contextText)

	return domain.Answer{Text: text, Citations: buildCitations(res.Chunks)}, nil
}

// generate walks the backend chain with uniform failure handling. Each entry
// is tried exactly once; a timeout, transport failure, or empty response
// moves to the next entry. The rule-based extractor terminates the chain.
func (s *Service) generate(ctx context.Context, question, contextText string) string {
	log := logger.FromContext(ctx)

	for _, backend := range s.chain {
		callCtx, cancel := context.WithTimeout(ctx, s.timeout)
		out, err := backend.Generate(callCtx, question, contextText)
		cancel()

		if err == nil && strings.TrimSpace(out) != "" {
			return out
		}

		metrics.GenerationFallbacksTotal.WithLabelValues(backend.Name()).Inc()
		log.Warn("generation backend failed, falling through",
			zap.String("provider", backend.Name()),
			zap.Error(err),
		)
	}

	return RuleBasedAnswer(question, contextText)
}

// buildContext concatenates the top chunks' text, bounded to maxContextSize.
// When the joined context overflows, only the best chunk is kept, truncated.
func buildContext(chunks []domain.RetrievedChunk) string {
	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Text
	}
	joined := strings.Join(texts, "\n\n")
	if len(joined) > maxContextSize {
		return clip(texts[0], maxContextSize)
	}
	return joined
}

func buildCitations(chunks []domain.RetrievedChunk) []domain.Citation {
	citations := make([]domain.Citation, len(chunks))
	for i, c := range chunks {
		snippet := c.Text
		if len(snippet) > maxSnippetSize {
			snippet = snippet[:maxSnippetSize] + "..."
		}
		citations[i] = domain.Citation{
			DocumentID: c.DocumentID,
			Page:       c.Page,
			CharRange:  [2]int{c.Start, c.End},
			Snippet:    snippet,
		}
	}
	return citations
}
