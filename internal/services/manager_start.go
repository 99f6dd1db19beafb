package services

import (
	"context"
	"log/slog"
)

// Start runs the server and the consumer in the background until bgCtx is cancelled.
func (m *Manager) Start(bgCtx context.Context) {
	if m.server != nil {
		m.wg.Add(1)
		go func() {
			defer m.wg.Done()
			if err := m.server.ListenAndServe(); err != nil {
				slog.Error("Operational server failed", "error", err)
			}
		}()
	}

	if m.consumer != nil {
		m.wg.Add(1)
		go func() {
			defer m.wg.Done()
			slog.Info("Starting counter sync consumer...")
			if err := m.consumer.Start(bgCtx); err != nil {
				slog.Error("Counter sync consumer stopped with error", "error", err)
			}
		}()
	}
}
