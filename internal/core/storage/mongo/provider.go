package mongo

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const defaultConnectTimeout = 10 * time.Second

// Provider owns a MongoDB client and the database the dead-letter collection lives in.
type Provider struct {
	client *mongo.Client
	dbName string
}

// NewProvider connects to uri and verifies the connection with a ping.
func NewProvider(ctx context.Context, uri string, dbName string) (*Provider, error) {
	clientOpts := options.Client().ApplyURI(uri)
	if clientOpts.ConnectTimeout == nil {
		clientOpts.SetConnectTimeout(defaultConnectTimeout)
	}

	client, err := mongo.Connect(ctx, clientOpts)
	if err != nil {
		return nil, err
	}

	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(ctx)
		return nil, err
	}

	return &Provider{
		client: client,
		dbName: dbName,
	}, nil
}

func (p *Provider) Client() *mongo.Client {
	return p.client
}

func (p *Provider) DatabaseName() string {
	return p.dbName
}

// Database returns the provider's default database.
func (p *Provider) Database() *mongo.Database {
	return p.client.Database(p.dbName)
}

func (p *Provider) Close(ctx context.Context) error {
	return p.client.Disconnect(ctx)
}
