package chi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/clauselab/contraq/internal/domain"
	answeruc "github.com/clauselab/contraq/internal/usecase/answer"
	audituc "github.com/clauselab/contraq/internal/usecase/audit"
	extractuc "github.com/clauselab/contraq/internal/usecase/extract"
	healthuc "github.com/clauselab/contraq/internal/usecase/health"
	ingestuc "github.com/clauselab/contraq/internal/usecase/ingest"
	"github.com/clauselab/contraq/internal/usecase/retrieval"
)

type fakeDocStore struct {
	docs   map[string]domain.Document
	fields map[string]domain.ExtractedFields
}

func newFakeDocStore() *fakeDocStore {
	return &fakeDocStore{
		docs:   make(map[string]domain.Document),
		fields: make(map[string]domain.ExtractedFields),
	}
}

func (s *fakeDocStore) SaveDocument(_ context.Context, doc domain.Document) error {
	s.docs[doc.ID] = doc
	return nil
}

func (s *fakeDocStore) GetDocument(_ context.Context, id string) (domain.Document, error) {
	doc, ok := s.docs[id]
	if !ok {
		return domain.Document{}, domain.ErrDocumentNotFound
	}
	return doc, nil
}

func (s *fakeDocStore) DeleteDocument(_ context.Context, id string) error {
	delete(s.docs, id)
	delete(s.fields, id)
	return nil
}

func (s *fakeDocStore) GetExtractedFields(_ context.Context, id string) (domain.ExtractedFields, error) {
	f, ok := s.fields[id]
	if !ok {
		return domain.ExtractedFields{}, domain.ErrFieldsNotFound
	}
	return f, nil
}

func (s *fakeDocStore) SaveExtractedFields(_ context.Context, id string, fields domain.ExtractedFields) error {
	s.fields[id] = fields
	return nil
}

type fakeRetriever struct {
	result retrieval.Result
	err    error
}

func (r *fakeRetriever) Retrieve(context.Context, string, []string) (retrieval.Result, error) {
	return r.result, r.err
}

type stubGenerator struct {
	answer string
	err    error
}

func (g *stubGenerator) Name() string { return "stub" }

func (g *stubGenerator) Generate(context.Context, string, string) (string, error) {
	return g.answer, g.err
}

type recordedEvent struct {
	eventType string
	payload   any
}

type fakeEmitter struct {
	mu     sync.Mutex
	events []recordedEvent
}

func (e *fakeEmitter) Emit(eventType string, payload any) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.events = append(e.events, recordedEvent{eventType: eventType, payload: payload})
}

func (e *fakeEmitter) recorded() []recordedEvent {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]recordedEvent(nil), e.events...)
}

type fakePinger struct{ err error }

func (p *fakePinger) Ping(context.Context) error { return p.err }

type fakeBackend struct {
	name string
	err  error
}

func (b *fakeBackend) Name() string { return b.name }

func (b *fakeBackend) HealthCheck(context.Context) error { return b.err }

type testHarness struct {
	router  http.Handler
	store   *fakeDocStore
	emitter *fakeEmitter
	pinger  *fakePinger
}

func newTestHarness(retrieved retrieval.Result) *testHarness {
	store := newFakeDocStore()
	emitter := &fakeEmitter{}
	pinger := &fakePinger{}

	srv := NewServer(
		ingestuc.New(store),
		extractuc.New(store),
		answeruc.New(&fakeRetriever{result: retrieved}, []domain.Generator{&stubGenerator{answer: "Payment is due in 30 days."}}),
		audituc.New(store),
		healthuc.New(pinger, &fakeBackend{name: "stub"}),
		emitter,
		zap.NewNop(),
	)

	r := chi.NewRouter()
	srv.Routes(r)

	return &testHarness{router: r, store: store, emitter: emitter, pinger: pinger}
}

func postJSON(t *testing.T, router http.Handler, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	raw, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("marshal request: %v", err)
	}
	req := httptest.NewRequest("POST", path, bytes.NewReader(raw))
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	return rr
}

func decodeError(t *testing.T, rr *httptest.ResponseRecorder) errorResponse {
	t.Helper()
	var errResp errorResponse
	if err := json.NewDecoder(rr.Body).Decode(&errResp); err != nil {
		t.Fatalf("decode error response: %v", err)
	}
	return errResp
}

func sampleChunks() []domain.RetrievedChunk {
	return []domain.RetrievedChunk{
		{
			Chunk:      domain.Chunk{Text: "Payment is due within 30 days of invoice.", Start: 0, End: 41, Score: 4.5},
			DocumentID: "doc-1",
			Page:       2,
		},
	}
}

func TestAsk_Success(t *testing.T) {
	h := newTestHarness(retrieval.Result{Chunks: sampleChunks(), DocumentCount: 1})

	rr := postJSON(t, h.router, "/ask", askRequest{Question: "When is payment due?"})

	if rr.Code != http.StatusOK {
		t.Fatalf("status: got %d, want %d (body %s)", rr.Code, http.StatusOK, rr.Body.String())
	}

	var answer domain.Answer
	if err := json.NewDecoder(rr.Body).Decode(&answer); err != nil {
		t.Fatalf("decode answer: %v", err)
	}
	if answer.Text != "Payment is due in 30 days." {
		t.Errorf("answer text: got %q", answer.Text)
	}
	if len(answer.Citations) != 1 {
		t.Fatalf("citations: got %d, want 1", len(answer.Citations))
	}
	c := answer.Citations[0]
	if c.DocumentID != "doc-1" || c.Page != 2 {
		t.Errorf("citation attribution: got %+v", c)
	}
	if c.CharRange != [2]int{0, 41} {
		t.Errorf("citation char range: got %v", c.CharRange)
	}
}

func TestAsk_EmptyQuestion_400(t *testing.T) {
	h := newTestHarness(retrieval.Result{})

	rr := postJSON(t, h.router, "/ask", askRequest{Question: "   "})

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("status: got %d, want %d", rr.Code, http.StatusBadRequest)
	}
	errResp := decodeError(t, rr)
	if errResp.Code != codeValidationFailed {
		t.Errorf("error code: got %s, want %s", errResp.Code, codeValidationFailed)
	}
	if errResp.Message != domain.ErrEmptyQuestion.Error() {
		t.Errorf("error message: got %q", errResp.Message)
	}
}

func TestAsk_NoDocuments_PlaceholderAnswer(t *testing.T) {
	h := newTestHarness(retrieval.Result{DocumentCount: 0})

	rr := postJSON(t, h.router, "/ask", askRequest{Question: "anything?"})

	if rr.Code != http.StatusOK {
		t.Fatalf("status: got %d, want %d", rr.Code, http.StatusOK)
	}
	var answer domain.Answer
	if err := json.NewDecoder(rr.Body).Decode(&answer); err != nil {
		t.Fatalf("decode answer: %v", err)
	}
	if answer.Text == "" {
		t.Error("placeholder answer text is empty")
	}
	if len(answer.Citations) != 0 {
		t.Errorf("citations: got %d, want 0", len(answer.Citations))
	}
}

func TestAsk_InvalidBody_400(t *testing.T) {
	h := newTestHarness(retrieval.Result{})

	req := httptest.NewRequest("POST", "/ask", strings.NewReader("{not json"))
	rr := httptest.NewRecorder()
	h.router.ServeHTTP(rr, req)

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("status: got %d, want %d", rr.Code, http.StatusBadRequest)
	}
	if errResp := decodeError(t, rr); errResp.Code != codeBadRequest {
		t.Errorf("error code: got %s, want %s", errResp.Code, codeBadRequest)
	}
}

func TestAskStream_TokensAndCitations(t *testing.T) {
	h := newTestHarness(retrieval.Result{Chunks: sampleChunks(), DocumentCount: 1})

	req := httptest.NewRequest("GET", "/ask/stream?question=When+is+payment+due%3F", http.NoBody)
	rr := httptest.NewRecorder()
	h.router.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("status: got %d, want %d (body %s)", rr.Code, http.StatusOK, rr.Body.String())
	}
	if ct := rr.Header().Get("Content-Type"); ct != "text/event-stream" {
		t.Errorf("content type: got %q", ct)
	}
	if rr.Header().Get("X-Accel-Buffering") != "no" {
		t.Error("X-Accel-Buffering header missing")
	}

	var tokens []string
	var final *streamFinal
	for _, line := range strings.Split(rr.Body.String(), "\n") {
		if !strings.HasPrefix(line, "data: ") {
			continue
		}
		payload := strings.TrimPrefix(line, "data: ")

		var f streamFinal
		if err := json.Unmarshal([]byte(payload), &f); err != nil {
			t.Fatalf("decode event %q: %v", payload, err)
		}
		if f.Done {
			final = &f
			continue
		}

		var tok streamToken
		if err := json.Unmarshal([]byte(payload), &tok); err != nil {
			t.Fatalf("decode token %q: %v", payload, err)
		}
		tokens = append(tokens, tok.Token)
	}

	got := strings.Join(tokens, "")
	if strings.TrimSpace(got) != "Payment is due in 30 days." {
		t.Errorf("streamed text: got %q", got)
	}
	if final == nil {
		t.Fatal("no final citations event")
	}
	if len(final.Citations) != 1 || final.Citations[0].DocumentID != "doc-1" {
		t.Errorf("final citations: got %+v", final.Citations)
	}
}

func TestAskStream_EmptyQuestion_400(t *testing.T) {
	h := newTestHarness(retrieval.Result{})

	req := httptest.NewRequest("GET", "/ask/stream", http.NoBody)
	rr := httptest.NewRecorder()
	h.router.ServeHTTP(rr, req)

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("status: got %d, want %d", rr.Code, http.StatusBadRequest)
	}
}

func TestExtract_Success_EmitsEvent(t *testing.T) {
	h := newTestHarness(retrieval.Result{})
	h.store.docs["doc-1"] = domain.Document{
		ID:   "doc-1",
		Text: "This Agreement is entered into between Acme Corporation and Beta Industries Ltd. Governed by the laws of Delaware.",
	}

	rr := postJSON(t, h.router, "/extract", documentRequest{DocumentID: "doc-1"})

	if rr.Code != http.StatusOK {
		t.Fatalf("status: got %d, want %d (body %s)", rr.Code, http.StatusOK, rr.Body.String())
	}

	var fields domain.ExtractedFields
	if err := json.NewDecoder(rr.Body).Decode(&fields); err != nil {
		t.Fatalf("decode fields: %v", err)
	}
	wantParties := map[string]bool{"Acme Corporation": false, "Beta Industries Ltd": false}
	for _, p := range fields.Parties {
		if _, ok := wantParties[p]; ok {
			wantParties[p] = true
		}
	}
	for p, found := range wantParties {
		if !found {
			t.Errorf("party %q not extracted (got %v)", p, fields.Parties)
		}
	}

	events := h.emitter.recorded()
	if len(events) != 1 || events[0].eventType != "document.extracted" {
		t.Fatalf("events: got %+v", events)
	}
}

func TestExtract_DocumentNotFound_404(t *testing.T) {
	h := newTestHarness(retrieval.Result{})

	rr := postJSON(t, h.router, "/extract", documentRequest{DocumentID: "missing"})

	if rr.Code != http.StatusNotFound {
		t.Fatalf("status: got %d, want %d", rr.Code, http.StatusNotFound)
	}
	if errResp := decodeError(t, rr); errResp.Code != codeDocumentNotFound {
		t.Errorf("error code: got %s, want %s", errResp.Code, codeDocumentNotFound)
	}
	if len(h.emitter.recorded()) != 0 {
		t.Error("event emitted for failed extraction")
	}
}

func TestExtract_MissingDocumentID_400(t *testing.T) {
	h := newTestHarness(retrieval.Result{})

	rr := postJSON(t, h.router, "/extract", documentRequest{})

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("status: got %d, want %d", rr.Code, http.StatusBadRequest)
	}
}

func TestAudit_Success_EmitsEvent(t *testing.T) {
	h := newTestHarness(retrieval.Result{})
	h.store.docs["doc-1"] = domain.Document{
		ID:   "doc-1",
		Text: domain.PageMarker(1) + "The Vendor shall have unlimited liability for all damages.",
	}

	rr := postJSON(t, h.router, "/audit", documentRequest{DocumentID: "doc-1"})

	if rr.Code != http.StatusOK {
		t.Fatalf("status: got %d, want %d (body %s)", rr.Code, http.StatusOK, rr.Body.String())
	}

	var resp auditResponse
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.DocumentID != "doc-1" {
		t.Errorf("document id: got %q", resp.DocumentID)
	}
	if resp.Count != len(resp.Findings) || resp.Count == 0 {
		t.Fatalf("count: got %d, findings %d", resp.Count, len(resp.Findings))
	}
	if resp.Findings[0].Type != domain.RiskUnlimitedLiability {
		t.Errorf("finding type: got %s", resp.Findings[0].Type)
	}

	events := h.emitter.recorded()
	if len(events) != 1 || events[0].eventType != "document.audited" {
		t.Fatalf("events: got %+v", events)
	}
	payload, ok := events[0].payload.(map[string]any)
	if !ok {
		t.Fatalf("payload type: %T", events[0].payload)
	}
	if payload["findings_count"] != resp.Count {
		t.Errorf("findings_count: got %v, want %d", payload["findings_count"], resp.Count)
	}
}

func TestAudit_DocumentNotFound_404(t *testing.T) {
	h := newTestHarness(retrieval.Result{})

	rr := postJSON(t, h.router, "/audit", documentRequest{DocumentID: "missing"})

	if rr.Code != http.StatusNotFound {
		t.Fatalf("status: got %d, want %d", rr.Code, http.StatusNotFound)
	}
}

func multipartBody(t *testing.T, files map[string][]byte) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for name, content := range files {
		part, err := mw.CreateFormFile("files", name)
		if err != nil {
			t.Fatalf("create form file: %v", err)
		}
		if _, err := part.Write(content); err != nil {
			t.Fatalf("write form file: %v", err)
		}
	}
	if err := mw.Close(); err != nil {
		t.Fatalf("close multipart writer: %v", err)
	}
	return &buf, mw.FormDataContentType()
}

func TestIngest_NoFiles_400(t *testing.T) {
	h := newTestHarness(retrieval.Result{})

	body, contentType := multipartBody(t, nil)
	req := httptest.NewRequest("POST", "/ingest", body)
	req.Header.Set("Content-Type", contentType)
	rr := httptest.NewRecorder()
	h.router.ServeHTTP(rr, req)

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("status: got %d, want %d (body %s)", rr.Code, http.StatusBadRequest, rr.Body.String())
	}
	if errResp := decodeError(t, rr); errResp.Code != codeValidationFailed {
		t.Errorf("error code: got %s, want %s", errResp.Code, codeValidationFailed)
	}
}

func TestIngest_NonPDF_400(t *testing.T) {
	h := newTestHarness(retrieval.Result{})

	body, contentType := multipartBody(t, map[string][]byte{"notes.txt": []byte("plain text")})
	req := httptest.NewRequest("POST", "/ingest", body)
	req.Header.Set("Content-Type", contentType)
	rr := httptest.NewRecorder()
	h.router.ServeHTTP(rr, req)

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("status: got %d, want %d (body %s)", rr.Code, http.StatusBadRequest, rr.Body.String())
	}
	if len(h.emitter.recorded()) != 0 {
		t.Error("event emitted for rejected ingest")
	}
}

func TestIngest_NotMultipart_400(t *testing.T) {
	h := newTestHarness(retrieval.Result{})

	req := httptest.NewRequest("POST", "/ingest", strings.NewReader("{}"))
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	h.router.ServeHTTP(rr, req)

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("status: got %d, want %d", rr.Code, http.StatusBadRequest)
	}
}

func TestDeleteDocument_Success_204(t *testing.T) {
	h := newTestHarness(retrieval.Result{})
	h.store.docs["doc-1"] = domain.Document{ID: "doc-1", Text: "some contract text"}
	h.store.fields["doc-1"] = domain.ExtractedFields{GoverningLaw: "Delaware"}

	req := httptest.NewRequest("DELETE", "/documents/doc-1", http.NoBody)
	rr := httptest.NewRecorder()
	h.router.ServeHTTP(rr, req)

	if rr.Code != http.StatusNoContent {
		t.Fatalf("status: got %d, want %d (body %s)", rr.Code, http.StatusNoContent, rr.Body.String())
	}
	if _, ok := h.store.docs["doc-1"]; ok {
		t.Error("document still stored after delete")
	}
	if _, ok := h.store.fields["doc-1"]; ok {
		t.Error("extracted fields still stored after delete")
	}
}

func TestDeleteDocument_NotFound_404(t *testing.T) {
	h := newTestHarness(retrieval.Result{})

	req := httptest.NewRequest("DELETE", "/documents/missing", http.NoBody)
	rr := httptest.NewRecorder()
	h.router.ServeHTTP(rr, req)

	if rr.Code != http.StatusNotFound {
		t.Fatalf("status: got %d, want %d", rr.Code, http.StatusNotFound)
	}
	if errResp := decodeError(t, rr); errResp.Code != codeDocumentNotFound {
		t.Errorf("error code: got %s, want %s", errResp.Code, codeDocumentNotFound)
	}
}

func TestHealthCheck_Healthy_200(t *testing.T) {
	h := newTestHarness(retrieval.Result{})

	req := httptest.NewRequest("GET", "/healthz", http.NoBody)
	rr := httptest.NewRecorder()
	h.router.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("status: got %d, want %d", rr.Code, http.StatusOK)
	}
	var report healthuc.Report
	if err := json.NewDecoder(rr.Body).Decode(&report); err != nil {
		t.Fatalf("decode report: %v", err)
	}
	if report.Status != healthuc.Healthy {
		t.Errorf("status: got %s", report.Status)
	}
}

func TestHealthCheck_Degraded_503(t *testing.T) {
	h := newTestHarness(retrieval.Result{})
	h.pinger.err = errors.New("connection refused")

	req := httptest.NewRequest("GET", "/healthz", http.NoBody)
	rr := httptest.NewRecorder()
	h.router.ServeHTTP(rr, req)

	if rr.Code != http.StatusServiceUnavailable {
		t.Fatalf("status: got %d, want %d", rr.Code, http.StatusServiceUnavailable)
	}
}

func TestWebhookEcho_EchoesEvent(t *testing.T) {
	h := newTestHarness(retrieval.Result{})

	rr := postJSON(t, h.router, "/webhook/events", map[string]any{
		"event_type": "document.ingested",
		"payload":    map[string]any{"document_id": "doc-1"},
	})

	if rr.Code != http.StatusOK {
		t.Fatalf("status: got %d, want %d", rr.Code, http.StatusOK)
	}
	var resp map[string]any
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	received, ok := resp["received"].(map[string]any)
	if !ok {
		t.Fatalf("received field: %v", resp)
	}
	if received["event_type"] != "document.ingested" {
		t.Errorf("echoed event type: got %v", received["event_type"])
	}
}

func TestMetrics_Exposed(t *testing.T) {
	h := newTestHarness(retrieval.Result{})

	req := httptest.NewRequest("GET", "/metrics", http.NoBody)
	rr := httptest.NewRecorder()
	h.router.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("status: got %d, want %d", rr.Code, http.StatusOK)
	}
	if !strings.Contains(rr.Body.String(), "go_goroutines") {
		t.Error("metrics output missing runtime collectors")
	}
}
