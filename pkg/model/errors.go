package model

import (
	"context"
	"errors"
	"strings"
)

var (
	// ErrNotFound is returned when a source entity does not exist or is soft-deleted
	ErrNotFound = errors.New("entity not found")
	// ErrIndexRowMissing is returned when a counter update targets an entity that has no index row yet
	ErrIndexRowMissing = errors.New("index row missing")
	// ErrInvalidFamily is returned when a family name is not one of business, catalog, product
	ErrInvalidFamily = errors.New("invalid family")
	// ErrInvalidScope is returned when a search scope is not recognized
	ErrInvalidScope = errors.New("invalid scope")
)

// IsCanceled returns true if the error is due to context cancellation or deadline exceeded.
// Drivers that flatten the context error into their own message are matched by text.
func IsCanceled(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	errStr := err.Error()
	return strings.Contains(errStr, "context canceled") || strings.Contains(errStr, "context deadline exceeded")
}
