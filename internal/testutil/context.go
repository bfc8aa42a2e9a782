package testutil

import (
	"context"
	"time"
)

// SetupContext returns a context for a single test, cancelled on cleanup
func SetupContext(cleanup func(func())) context.Context {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	cleanup(cancel)
	return ctx
}
