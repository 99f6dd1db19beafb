package nats

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/nats-io/nats.go/jetstream"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/syntrixbase/marketsearch/internal/core/pubsub"
)

func TestNewConsumer_Validation(t *testing.T) {
	_, err := NewConsumer(nil, pubsub.ConsumerOptions{StreamName: "JOBS"})
	assert.Error(t, err)

	_, err = NewConsumer(new(MockJetStream), pubsub.ConsumerOptions{})
	assert.Error(t, err)
}

func TestConsumer_SubscribeDelivers(t *testing.T) {
	js := new(MockJetStream)
	cons := NewMockConsumer()
	cc := NewMockConsumeContext()

	js.On("CreateOrUpdateStream", mock.Anything, mock.Anything).Return(nil, nil)
	js.On("CreateOrUpdateConsumer", mock.Anything, "JOBS", mock.MatchedBy(func(cfg jetstream.ConsumerConfig) bool {
		return cfg.Durable == "counter-sync" &&
			cfg.AckPolicy == jetstream.AckExplicitPolicy &&
			cfg.FilterSubject == "JOBS.>" &&
			cfg.MaxAckPending == 64 &&
			cfg.AckWait == 30*time.Second
	})).Return(cons, nil)
	cons.On("Consume", mock.Anything).Return(cc, nil)
	cc.On("Stop").Return()

	c, err := NewConsumer(js, pubsub.ConsumerOptions{
		StreamName:    "JOBS",
		ConsumerName:  "counter-sync",
		AckWait:       30 * time.Second,
		MaxAckPending: 64,
	})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	ch, err := c.Subscribe(ctx)
	require.NoError(t, err)

	handler := <-cons.HandlerCh()
	raw := NewMockMsg("JOBS.like-changed", []byte(`{}`))
	raw.On("Ack").Return(nil)
	handler(raw)

	msg := <-ch
	assert.Equal(t, "JOBS.like-changed", msg.Subject())
	assert.NoError(t, msg.Ack())

	cancel()
	for range ch {
	}
	raw.AssertExpectations(t)
	cc.AssertExpectations(t)
}

func TestConsumer_SubscribeErrors(t *testing.T) {
	js := new(MockJetStream)
	js.On("CreateOrUpdateStream", mock.Anything, mock.Anything).Return(nil, errors.New("stream down"))
	c, err := NewConsumer(js, pubsub.ConsumerOptions{StreamName: "JOBS"})
	require.NoError(t, err)
	_, err = c.Subscribe(context.Background())
	assert.ErrorContains(t, err, "stream down")

	js = new(MockJetStream)
	js.On("CreateOrUpdateStream", mock.Anything, mock.Anything).Return(nil, nil)
	js.On("CreateOrUpdateConsumer", mock.Anything, "JOBS", mock.Anything).Return(nil, errors.New("consumer error"))
	c, _ = NewConsumer(js, pubsub.ConsumerOptions{StreamName: "JOBS"})
	_, err = c.Subscribe(context.Background())
	assert.ErrorContains(t, err, "consumer error")

	js = new(MockJetStream)
	cons := NewMockConsumer()
	js.On("CreateOrUpdateStream", mock.Anything, mock.Anything).Return(nil, nil)
	js.On("CreateOrUpdateConsumer", mock.Anything, "JOBS", mock.Anything).Return(cons, nil)
	cons.On("Consume", mock.Anything).Return(nil, errors.New("consume error"))
	c, _ = NewConsumer(js, pubsub.ConsumerOptions{StreamName: "JOBS"})
	_, err = c.Subscribe(context.Background())
	assert.ErrorContains(t, err, "consume error")
}

func TestMessage_Metadata(t *testing.T) {
	raw := NewMockMsg("JOBS.visit-recorded", nil)
	ts := time.Now()
	raw.On("Metadata").Return(&jetstream.MsgMetadata{
		NumDelivered: 3,
		Timestamp:    ts,
		Stream:       "JOBS",
		Consumer:     "counter-sync",
	}, nil).Once()
	raw.On("Metadata").Return(nil, errors.New("not a jetstream message")).Once()
	raw.On("NakWithDelay", time.Second).Return(nil)
	raw.On("Term").Return(nil)

	msg := WrapMessage(raw)
	md, err := msg.Metadata()
	require.NoError(t, err)
	assert.Equal(t, uint64(3), md.NumDelivered)
	assert.Equal(t, "JOBS.visit-recorded", md.Subject)
	assert.Equal(t, "counter-sync", md.Consumer)

	_, err = msg.Metadata()
	assert.Error(t, err)

	assert.NoError(t, msg.NakWithDelay(time.Second))
	assert.NoError(t, msg.Term())
}
