// Package webhook delivers lifecycle events to an external subscriber.
// Delivery is fire-and-forget: failures are logged, never surfaced to the
// request that triggered the event.
package webhook

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Event types emitted over the document lifecycle.
const (
	EventDocumentIngested  = "document.ingested"
	EventDocumentExtracted = "document.extracted"
	EventDocumentAudited   = "document.audited"
)

const emitTimeout = 5 * time.Second

// Event is the wire format of a webhook delivery.
type Event struct {
	EventID   string `json:"event_id"`
	EventType string `json:"event_type"`
	Payload   any    `json:"payload"`
	Timestamp string `json:"timestamp"`
}

// Emitter posts events to a single configured URL. A zero URL disables
// emission entirely.
type Emitter struct {
	url    string
	client *http.Client
	log    *zap.Logger
}

func New(url string, log *zap.Logger) *Emitter {
	return &Emitter{
		url:    url,
		client: &http.Client{Timeout: emitTimeout},
		log:    log,
	}
}

// Emit delivers the event in the background and returns immediately.
func (e *Emitter) Emit(eventType string, payload any) {
	if e.url == "" {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), emitTimeout)
		defer cancel()

		if err := e.send(ctx, eventType, payload); err != nil {
			e.log.Error("webhook delivery failed",
				zap.String("event_type", eventType),
				zap.Error(err))
			return
		}
		e.log.Info("webhook event emitted", zap.String("event_type", eventType))
	}()
}

func (e *Emitter) send(ctx context.Context, eventType string, payload any) error {
	body, err := json.Marshal(Event{
		EventID:   uuid.NewString(),
		EventType: eventType,
		Payload:   payload,
		Timestamp: time.Now().Format(time.RFC3339),
	})
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := e.client.Do(req)
	if err != nil {
		return fmt.Errorf("post event: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return fmt.Errorf("subscriber returned %d", resp.StatusCode)
	}
	return nil
}
