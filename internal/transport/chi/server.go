package chi

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/clauselab/contraq/internal/domain"
	"github.com/clauselab/contraq/internal/metrics"
	answeruc "github.com/clauselab/contraq/internal/usecase/answer"
	audituc "github.com/clauselab/contraq/internal/usecase/audit"
	extractuc "github.com/clauselab/contraq/internal/usecase/extract"
	healthuc "github.com/clauselab/contraq/internal/usecase/health"
	ingestuc "github.com/clauselab/contraq/internal/usecase/ingest"
)

// maxUploadBytes caps the in-memory portion of a multipart ingest request.
const maxUploadBytes = 32 << 20

// streamTokenInterval paces word-by-word SSE delivery.
const streamTokenInterval = 50 * time.Millisecond

// Error codes returned in the error response body.
const (
	codeBadRequest       = "bad_request"
	codeValidationFailed = "validation_failed"
	codeDocumentNotFound = "document_not_found"
	codeUnauthorized     = "unauthorized"
	codeInternalError    = "internal_error"
)

// errorResponse is the JSON body for all error statuses.
type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// errorHandler tries to handle a domain error. Returns true if handled.
type errorHandler func(w http.ResponseWriter, err error, msg string) bool

// EventEmitter delivers webhook notifications for completed operations.
type EventEmitter interface {
	Emit(eventType string, payload any)
}

// Server exposes the contract analysis API over HTTP.
type Server struct {
	ingest        *ingestuc.Service
	extract       *extractuc.Service
	answer        *answeruc.Service
	audit         *audituc.Service
	health        *healthuc.Service
	events        EventEmitter
	logger        *zap.Logger
	errorHandlers []errorHandler
}

// NewServer creates an HTTP API server.
func NewServer(
	ingest *ingestuc.Service,
	extract *extractuc.Service,
	answer *answeruc.Service,
	audit *audituc.Service,
	health *healthuc.Service,
	events EventEmitter,
	logger *zap.Logger,
) *Server {
	s := &Server{
		ingest:  ingest,
		extract: extract,
		answer:  answer,
		audit:   audit,
		health:  health,
		events:  events,
		logger:  logger,
	}
	s.errorHandlers = []errorHandler{
		sentinelHandler(domain.ErrDocumentNotFound, http.StatusNotFound, codeDocumentNotFound),
		sentinelHandler(domain.ErrEmptyQuestion, http.StatusBadRequest, codeValidationFailed),
		sentinelHandler(domain.ErrNoFiles, http.StatusBadRequest, codeValidationFailed),
		sentinelHandler(domain.ErrNotPDF, http.StatusBadRequest, codeValidationFailed),
		sentinelHandler(domain.ErrExtractionFailed, http.StatusUnprocessableEntity, codeBadRequest),
	}
	return s
}

// Routes registers all API endpoints on the router.
func (s *Server) Routes(r chi.Router) {
	r.Post("/ingest", s.Ingest)
	r.Delete("/documents/{documentID}", s.DeleteDocument)
	r.Post("/extract", s.Extract)
	r.Post("/ask", s.Ask)
	r.Get("/ask/stream", s.AskStream)
	r.Post("/audit", s.Audit)
	r.Post("/webhook/events", s.WebhookEcho)
	r.Get("/healthz", s.HealthCheck)
	r.Get("/metrics", s.Metrics)
}

type ingestResponse struct {
	DocumentIDs []string `json:"document_ids"`
	Count       int      `json:"count"`
}

// Ingest handles POST /ingest. Accepts multipart PDF uploads under the
// "files" field and stores each as a searchable document.
func (s *Server) Ingest(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		writeError(w, http.StatusBadRequest, codeBadRequest, "invalid multipart request: "+err.Error())
		return
	}
	defer func() { _ = r.MultipartForm.RemoveAll() }()

	uploads := r.MultipartForm.File["files"]
	files := make([]ingestuc.File, 0, len(uploads))
	for _, fh := range uploads {
		f, err := fh.Open()
		if err != nil {
			writeError(w, http.StatusBadRequest, codeBadRequest, "cannot read uploaded file: "+err.Error())
			return
		}
		content, err := io.ReadAll(f)
		_ = f.Close()
		if err != nil {
			writeError(w, http.StatusBadRequest, codeBadRequest, "cannot read uploaded file: "+err.Error())
			return
		}
		files = append(files, ingestuc.File{Name: fh.Filename, Content: content})
	}

	ingested, err := s.ingest.Ingest(r.Context(), files)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	ids := make([]string, len(ingested))
	for i, d := range ingested {
		ids[i] = d.DocumentID
		s.events.Emit("document.ingested", map[string]any{
			"document_id": d.DocumentID,
			"filename":    d.Filename,
		})
	}

	writeJSON(w, http.StatusOK, ingestResponse{DocumentIDs: ids, Count: len(ids)})
}

// DeleteDocument handles DELETE /documents/{documentID}. Removes the
// document and its cached extracted fields.
func (s *Server) DeleteDocument(w http.ResponseWriter, r *http.Request) {
	documentID := chi.URLParam(r, "documentID")
	if err := s.ingest.Remove(r.Context(), documentID); err != nil {
		s.handleDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type documentRequest struct {
	DocumentID string `json:"document_id"`
}

// Extract handles POST /extract. Returns cached fields when present,
// otherwise runs the extraction rules and persists the result.
func (s *Server) Extract(w http.ResponseWriter, r *http.Request) {
	var req documentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, codeBadRequest, "invalid request body: "+err.Error())
		return
	}
	if req.DocumentID == "" {
		writeError(w, http.StatusBadRequest, codeValidationFailed, "document_id is required")
		return
	}

	fields, err := s.extract.ExtractFields(r.Context(), req.DocumentID)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	s.events.Emit("document.extracted", map[string]any{"document_id": req.DocumentID})

	writeJSON(w, http.StatusOK, fields)
}

type askRequest struct {
	Question    string   `json:"question"`
	DocumentIDs []string `json:"document_ids"`
}

// Ask handles POST /ask. Retrieves relevant chunks and synthesizes an
// answer with citations.
func (s *Server) Ask(w http.ResponseWriter, r *http.Request) {
	var req askRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, codeBadRequest, "invalid request body: "+err.Error())
		return
	}

	answer, err := s.answer.Ask(r.Context(), req.Question, req.DocumentIDs)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}
	metrics.QuestionsTotal.Inc()

	writeJSON(w, http.StatusOK, answer)
}

type streamToken struct {
	Token string `json:"token"`
	Done  bool   `json:"done"`
}

type streamFinal struct {
	Citations []domain.Citation `json:"citations"`
	Done      bool              `json:"done"`
}

// AskStream handles GET /ask/stream. Synthesizes the answer, then
// replays it word by word as server-sent events, closing with a final
// event carrying the citations. Question and optional repeated
// document_ids arrive as query parameters so EventSource clients can
// connect directly.
func (s *Server) AskStream(w http.ResponseWriter, r *http.Request) {
	question := r.URL.Query().Get("question")
	documentIDs := r.URL.Query()["document_ids"]

	answer, err := s.answer.Ask(r.Context(), question, documentIDs)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}
	metrics.QuestionsTotal.Inc()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)

	flusher, _ := w.(http.Flusher)
	enc := json.NewEncoder(w)

	for _, word := range strings.Fields(answer.Text) {
		select {
		case <-r.Context().Done():
			return
		default:
		}
		if _, err := io.WriteString(w, "data: "); err != nil {
			return
		}
		if err := enc.Encode(streamToken{Token: word + " "}); err != nil {
			return
		}
		if _, err := io.WriteString(w, "\n"); err != nil {
			return
		}
		if flusher != nil {
			flusher.Flush()
		}
		time.Sleep(streamTokenInterval)
	}

	_, _ = io.WriteString(w, "data: ")
	_ = enc.Encode(streamFinal{Citations: answer.Citations, Done: true})
	_, _ = io.WriteString(w, "\n")
	if flusher != nil {
		flusher.Flush()
	}
}

type auditResponse struct {
	DocumentID string               `json:"document_id"`
	Findings   []domain.RiskFinding `json:"findings"`
	Count      int                  `json:"count"`
}

// Audit handles POST /audit. Runs the risk detection passes over a
// stored document.
func (s *Server) Audit(w http.ResponseWriter, r *http.Request) {
	var req documentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, codeBadRequest, "invalid request body: "+err.Error())
		return
	}
	if req.DocumentID == "" {
		writeError(w, http.StatusBadRequest, codeValidationFailed, "document_id is required")
		return
	}

	findings, err := s.audit.AuditDocument(r.Context(), req.DocumentID)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}
	metrics.AuditsTotal.Inc()

	s.events.Emit("document.audited", map[string]any{
		"document_id":    req.DocumentID,
		"findings_count": len(findings),
	})

	writeJSON(w, http.StatusOK, auditResponse{
		DocumentID: req.DocumentID,
		Findings:   findings,
		Count:      len(findings),
	})
}

// WebhookEcho handles POST /webhook/events. A loopback receiver for
// testing webhook delivery against a running instance.
func (s *Server) WebhookEcho(w http.ResponseWriter, r *http.Request) {
	var event map[string]any
	if err := json.NewDecoder(r.Body).Decode(&event); err != nil {
		writeError(w, http.StatusBadRequest, codeBadRequest, "invalid request body: "+err.Error())
		return
	}
	s.logger.Info("webhook event received", zap.Any("event", event))
	writeJSON(w, http.StatusOK, map[string]any{"received": event})
}

// HealthCheck handles GET /healthz.
func (s *Server) HealthCheck(w http.ResponseWriter, r *http.Request) {
	report := s.health.Check(r.Context())

	httpStatus := http.StatusOK
	if report.Status != healthuc.Healthy {
		httpStatus = http.StatusServiceUnavailable
	}

	writeJSON(w, httpStatus, report)
}

// Metrics handles GET /metrics.
func (s *Server) Metrics(w http.ResponseWriter, r *http.Request) {
	promhttp.Handler().ServeHTTP(w, r)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code string, message string) {
	writeJSON(w, status, errorResponse{
		Code:    code,
		Message: message,
	})
}

// safeDomainMessage returns a sentinel error message for the client without exposing internals.
func safeDomainMessage(err error) string {
	sentinels := []error{
		domain.ErrDocumentNotFound,
		domain.ErrFieldsNotFound,
		domain.ErrEmptyQuestion,
		domain.ErrNoFiles,
		domain.ErrNotPDF,
		domain.ErrExtractionFailed,
	}
	for _, s := range sentinels {
		if errors.Is(err, s) {
			return s.Error()
		}
	}
	return "internal error"
}

// sentinelHandler returns an errorHandler that matches a single sentinel error.
func sentinelHandler(sentinel error, status int, code string) errorHandler {
	return func(w http.ResponseWriter, err error, msg string) bool {
		if !errors.Is(err, sentinel) {
			return false
		}
		writeError(w, status, code, msg)
		return true
	}
}

func (s *Server) handleDomainError(w http.ResponseWriter, err error) {
	s.logger.Warn("domain error", zap.Error(err))
	msg := safeDomainMessage(err)
	for _, h := range s.errorHandlers {
		if h(w, err, msg) {
			return
		}
	}
	s.logger.Error("internal error", zap.Error(err))
	writeError(w, http.StatusInternalServerError, codeInternalError, "internal error")
}
