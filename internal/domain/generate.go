package domain

import "context"

// Generator is the shared generation-backend contract between layers: it turns
// a question plus bounded context into natural-language text. Implementations
// enforce their own request timeouts; any failure mode (timeout, connection
// refused, malformed or empty response) is reported as an error, never a hang.
type Generator interface {
	// Name identifies the backend for logging and metrics.
	Name() string
	Generate(ctx context.Context, question, contextText string) (string, error)
}

// HealthChecker verifies generation backend availability.
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}
