package nats

import (
	"context"
	"errors"
	"testing"

	"github.com/nats-io/nats.go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/syntrixbase/marketsearch/internal/core/pubsub"
)

func newTestProvider(js JetStream, connErr, jsErr error) *Provider {
	p := NewProvider(Options{URL: "nats://test:4222"})
	p.connect = func(Options) (*nats.Conn, error) {
		return nil, connErr
	}
	p.jetStreamFactory = func(*nats.Conn) (JetStream, error) {
		return js, jsErr
	}
	return p
}

func TestProvider_NotConnected(t *testing.T) {
	p := NewProvider(Options{})
	_, err := p.NewPublisher(pubsub.PublisherOptions{})
	assert.Error(t, err)
	_, err = p.NewConsumer(pubsub.ConsumerOptions{StreamName: "JOBS"})
	assert.Error(t, err)
	assert.NoError(t, p.Close())
}

func TestProvider_Connect(t *testing.T) {
	js := new(MockJetStream)
	js.On("CreateOrUpdateStream", mock.Anything, mock.Anything).Return(nil, nil)

	p := newTestProvider(js, nil, nil)
	require.NoError(t, p.Connect(context.Background()))

	pub, err := p.NewPublisher(pubsub.PublisherOptions{StreamName: "JOBS"})
	require.NoError(t, err)
	assert.NotNil(t, pub)

	cons, err := p.NewConsumer(pubsub.ConsumerOptions{StreamName: "JOBS"})
	require.NoError(t, err)
	assert.NotNil(t, cons)

	assert.NoError(t, p.Close())
	_, err = p.NewPublisher(pubsub.PublisherOptions{})
	assert.Error(t, err)
}

func TestProvider_ConnectErrors(t *testing.T) {
	p := newTestProvider(nil, errors.New("connection refused"), nil)
	err := p.Connect(context.Background())
	assert.ErrorContains(t, err, "connection refused")

	p = newTestProvider(nil, nil, errors.New("jetstream disabled"))
	err = p.Connect(context.Background())
	assert.ErrorContains(t, err, "jetstream disabled")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	p = newTestProvider(new(MockJetStream), nil, nil)
	assert.ErrorIs(t, p.Connect(ctx), context.Canceled)
}
