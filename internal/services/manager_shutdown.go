package services

import (
	"context"
	"log/slog"
)

// Shutdown stops the server, waits for background work and closes the backends.
// Cancel the context passed to Start first so the consumer begins draining.
func (m *Manager) Shutdown(ctx context.Context) {
	m.draining.Store(true)
	if m.server != nil {
		slog.Info("Stopping operational server...")
		if err := m.server.Shutdown(ctx); err != nil {
			slog.Error("Error shutting down operational server", "error", err)
		}
	}

	slog.Info("Waiting for background tasks to finish...")
	done := make(chan struct{})
	go func() {
		m.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		slog.Info("Background tasks finished")
	case <-ctx.Done():
		slog.Warn("Timeout waiting for background tasks")
	}

	m.closeBackends()
}

func (m *Manager) closeBackends() {
	if m.events != nil {
		if err := m.events.Close(); err != nil {
			slog.Error("Error closing job publisher", "error", err)
		}
		m.events, m.publisher = nil, nil
	} else if m.publisher != nil {
		if err := m.publisher.Close(); err != nil {
			slog.Error("Error closing job publisher", "error", err)
		}
		m.publisher = nil
	}
	if m.provider != nil {
		if err := m.provider.Close(); err != nil {
			slog.Error("Error closing pubsub provider", "error", err)
		}
		m.provider = nil
	}
	if m.storageFactory != nil {
		if err := m.storageFactory.Close(); err != nil {
			slog.Error("Error closing storage factory", "error", err)
		}
		m.storageFactory = nil
	}
}
