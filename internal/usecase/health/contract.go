package health

import "context"

// DBPinger checks database availability.
type DBPinger interface {
	Ping(ctx context.Context) error
}

// GenerationChecker checks a generation backend's availability.
type GenerationChecker interface {
	Name() string
	HealthCheck(ctx context.Context) error
}
