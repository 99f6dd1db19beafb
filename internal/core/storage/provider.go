package storage

import (
	"context"

	mongodriver "go.mongodb.org/mongo-driver/mongo"
)

// Provider represents a physical connection to a storage backend.
type Provider interface {
	// Close closes the connection.
	Close(ctx context.Context) error
}

// mongoProvider is the part of the mongo provider the factory needs.
type mongoProvider interface {
	Provider
	Database() *mongodriver.Database
}
