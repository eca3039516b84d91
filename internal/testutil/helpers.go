package testutil

import (
	"context"
	"testing"
	"time"
)

// TestContext creates a context with timeout for tests
func TestContext(t *testing.T) context.Context {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	t.Cleanup(cancel)
	return ctx
}

// BaseTime is a fixed instant for deterministic fixtures (a Monday, 09:00 UTC).
var BaseTime = time.Date(2024, 3, 4, 9, 0, 0, 0, time.UTC)

// Ptr returns a pointer to the given value (useful for optional fields)
func Ptr[T any](v T) *T {
	return &v
}
