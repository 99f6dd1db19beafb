package jobs

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	pubsubtest "github.com/syntrixbase/marketsearch/internal/core/pubsub/testing"
	"github.com/syntrixbase/marketsearch/pkg/model"
)

func TestEventPublisher(t *testing.T) {
	ctx := context.Background()
	mock := pubsubtest.NewMockPublisher()
	p := NewEventPublisher(mock)

	require.NoError(t, p.EntityCreated(ctx, model.FamilyProduct, 1))
	require.NoError(t, p.EntityUpdated(ctx, model.FamilyBusiness, 2))
	require.NoError(t, p.VisitRecorded(ctx, model.FamilyCatalog, 3))
	require.NoError(t, p.FollowChanged(ctx, 4, Follow))
	require.NoError(t, p.LikeChanged(ctx, 5, Unlike))
	require.NoError(t, p.RatingChanged(ctx, 6))
	require.NoError(t, p.RatingRecomputed(ctx, 6, 3.5))
	require.NoError(t, p.ProductsCountChanged(ctx, 7, Increment, nil))
	require.NoError(t, p.Publish(ctx, ReindexCatalog{ID: 8}, "catalog:8:v3"))

	msgs := mock.Messages()
	require.Len(t, msgs, 9)

	subjects := make([]string, len(msgs))
	for i, m := range msgs {
		subjects[i] = m.Subject
		assert.NotEmpty(t, m.MsgID)
	}
	assert.Equal(t, []string{
		"reindex-product", "reindex-business", "visit-recorded", "follow-changed", "like-changed",
		"rating-recalculate", "rating-recomputed", "products-count-changed", "reindex-catalog",
	}, subjects)
	assert.Equal(t, "catalog:8:v3", msgs[8].MsgID)

	job, _, err := Decode(msgs[4].Data)
	require.NoError(t, err)
	assert.Equal(t, LikeChanged{ProductID: 5, Action: Unlike}, job)

	require.NoError(t, p.Close())
	assert.True(t, mock.IsClosed())
}

func TestEventPublisher_Errors(t *testing.T) {
	ctx := context.Background()
	mock := pubsubtest.NewMockPublisher()
	p := NewEventPublisher(mock)

	assert.ErrorIs(t, p.EntityCreated(ctx, "user", 1), model.ErrInvalidFamily)
	assert.ErrorIs(t, p.VisitRecorded(ctx, model.FamilyProduct, 0), ErrInvalidPayload)

	mock.SetError(errors.New("no responders"))
	err := p.FollowChanged(ctx, 1, Follow)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "publish follow-changed")
	assert.Empty(t, mock.Messages())
}
