// Package ollama implements answer generation against a local Ollama server.
package ollama

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/clauselab/contraq/internal/domain"
	"github.com/clauselab/contraq/internal/metrics"
)

const (
	// maxContextChars bounds the contract excerpt in the prompt; local
	// models slow down sharply on long prompts.
	maxContextChars = 1500

	temperature = 0.1
	numPredict  = 300
	numCtx      = 2048

	requestTimeout     = 120 * time.Second
	healthCheckTimeout = 5 * time.Second
)

// Generator answers questions via the Ollama /api/generate endpoint.
type Generator struct {
	baseURL string
	model   string
	client  *http.Client
	logger  *zap.Logger
}

type Config struct {
	BaseURL string
	Model   string
	Logger  *zap.Logger
}

func NewGenerator(cfg *Config) *Generator {
	return &Generator{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		model:   cfg.Model,
		client:  &http.Client{Timeout: requestTimeout},
		logger:  cfg.Logger,
	}
}

// Name implements domain.Generator.
func (g *Generator) Name() string { return "ollama" }

type generateRequest struct {
	Model   string          `json:"model"`
	Prompt  string          `json:"prompt"`
	Stream  bool            `json:"stream"`
	Options generateOptions `json:"options"`
}

type generateOptions struct {
	Temperature float64 `json:"temperature"`
	NumPredict  int     `json:"num_predict"`
	NumCtx      int     `json:"num_ctx"`
}

type generateResponse struct {
	Response string `json:"response"`
	Error    string `json:"error"`
}

// Generate implements domain.Generator.
func (g *Generator) Generate(ctx context.Context, question, contextText string) (string, error) {
	if len(contextText) > maxContextChars {
		contextText = contextText[:maxContextChars]
	}

	prompt := fmt.Sprintf(
		"Based on this contract text, answer the question:\n\n%s\n\nQuestion: %s\n\nAnswer:",
		contextText, question)

	body, err := json.Marshal(generateRequest{
		Model:  g.model,
		Prompt: prompt,
		Stream: false,
		Options: generateOptions{
			Temperature: temperature,
			NumPredict:  numPredict,
			NumCtx:      numCtx,
		},
	})
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.baseURL+"/api/generate", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	start := time.Now()

	resp, err := g.client.Do(req)
	if err != nil {
		metrics.GenerationRequestsTotal.WithLabelValues("ollama", g.model, "error").Inc()
		metrics.GenerationErrorsTotal.WithLabelValues("ollama", g.model, "connection_error").Inc()
		return "", fmt.Errorf("cannot reach ollama at %s: %v: %w", g.baseURL, err, domain.ErrGenerationFailed)
	}
	defer resp.Body.Close()

	duration := time.Since(start)

	if resp.StatusCode != http.StatusOK {
		metrics.GenerationRequestsTotal.WithLabelValues("ollama", g.model, "error").Inc()
		metrics.GenerationErrorsTotal.WithLabelValues("ollama", g.model, "api_error").Inc()
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 200))
		return "", fmt.Errorf("ollama returned status %d: %s: %w", resp.StatusCode, detail, domain.ErrGenerationFailed)
	}

	var result generateResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		metrics.GenerationRequestsTotal.WithLabelValues("ollama", g.model, "error").Inc()
		metrics.GenerationErrorsTotal.WithLabelValues("ollama", g.model, "decode_error").Inc()
		return "", fmt.Errorf("decode ollama response: %v: %w", err, domain.ErrGenerationFailed)
	}

	if result.Error != "" {
		metrics.GenerationRequestsTotal.WithLabelValues("ollama", g.model, "error").Inc()
		metrics.GenerationErrorsTotal.WithLabelValues("ollama", g.model, "api_error").Inc()
		if strings.Contains(strings.ToLower(result.Error), "not found") {
			return "", fmt.Errorf("model %q not found, run: ollama pull %s: %w", g.model, g.model, domain.ErrGenerationFailed)
		}
		return "", fmt.Errorf("ollama error: %s: %w", result.Error, domain.ErrGenerationFailed)
	}

	answer := strings.TrimSpace(result.Response)
	if answer == "" {
		metrics.GenerationRequestsTotal.WithLabelValues("ollama", g.model, "error").Inc()
		metrics.GenerationErrorsTotal.WithLabelValues("ollama", g.model, "empty_response").Inc()
		return "", fmt.Errorf("ollama returned empty response: %w", domain.ErrGenerationFailed)
	}

	metrics.GenerationRequestsTotal.WithLabelValues("ollama", g.model, "success").Inc()
	metrics.GenerationRequestDuration.WithLabelValues("ollama", g.model).Observe(duration.Seconds())

	return answer, nil
}

// HealthCheck verifies the server is reachable via the tags endpoint.
func (g *Generator) HealthCheck(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, healthCheckTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, g.baseURL+"/api/tags", nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}

	resp, err := g.client.Do(req)
	if err != nil {
		return fmt.Errorf("cannot reach ollama at %s: %w", g.baseURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("ollama health check returned status %d", resp.StatusCode)
	}
	return nil
}
