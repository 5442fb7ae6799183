package telemetry

import (
	"context"
)

// Source provides the telemetry of a single ride, either parsed from a log file
// or read back from the ride database
type Source interface {
	Load(ctx context.Context) (*Store, error)
}

// SourceFunc adapts a function to the Source interface
type SourceFunc func(ctx context.Context) (*Store, error)

func (f SourceFunc) Load(ctx context.Context) (*Store, error) {
	return f(ctx)
}
