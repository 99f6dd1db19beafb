// Package memory provides an in-memory job stream for standalone mode and tests.
package memory

import "errors"

var (
	// ErrEngineClosed is returned when operating on a closed engine.
	ErrEngineClosed = errors.New("engine is closed")

	// ErrPatternSubscribed is returned when a pattern already has a subscriber.
	ErrPatternSubscribed = errors.New("pattern already has a subscriber")

	// ErrBacklogFull is returned when a message matches no subscriber and the backlog is full.
	ErrBacklogFull = errors.New("backlog is full")
)
