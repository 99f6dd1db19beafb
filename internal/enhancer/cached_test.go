package enhancer

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/syntrixbase/marketsearch/internal/enhancer/config"
)

type countingEnhancer struct {
	calls int
	err   error
}

func (c *countingEnhancer) Enhance(_ context.Context, raw string) (string, error) {
	c.calls++
	if c.err != nil {
		return "", c.err
	}
	return "enhanced " + raw, nil
}

func TestCached_Enhance(t *testing.T) {
	inner := &countingEnhancer{}
	c := NewCached(inner, "gpt-4o-mini", "describe", 2)

	for i := 0; i < 3; i++ {
		text, err := c.Enhance(context.Background(), "mug")
		require.NoError(t, err)
		assert.Equal(t, "enhanced mug", text)
	}
	assert.Equal(t, 1, inner.calls)

	_, _ = c.Enhance(context.Background(), "cup")
	_, _ = c.Enhance(context.Background(), "plate")
	assert.Equal(t, 2, c.Len())
}

func TestCached_ErrorsAreNotCached(t *testing.T) {
	inner := &countingEnhancer{err: errors.New("down")}
	c := NewCached(inner, "m", "p", 8)

	_, err := c.Enhance(context.Background(), "mug")
	assert.Error(t, err)
	_, err = c.Enhance(context.Background(), "mug")
	assert.Error(t, err)
	assert.Equal(t, 2, inner.calls)
	assert.Zero(t, c.Len())
}

func TestCached_KeyIncludesModelAndPrompt(t *testing.T) {
	a := NewCached(&countingEnhancer{}, "a", "p", 1)
	b := NewCached(&countingEnhancer{}, "b", "p", 1)
	assert.NotEqual(t, a.key("mug"), b.key("mug"))

	c := NewCached(&countingEnhancer{}, "a", "q", 1)
	assert.NotEqual(t, a.key("mug"), c.key("mug"))
	assert.Equal(t, a.key("mug"), NewCached(&countingEnhancer{}, "a", "p", 1).key("mug"))

	// separators keep shifted boundaries apart
	d := NewCached(&countingEnhancer{}, "a", "pm", 1)
	assert.NotEqual(t, a.key("mug"), d.key("ug"))
}

func TestNew(t *testing.T) {
	cfg := config.DefaultConfig()
	_, ok := New(cfg).(Noop)
	assert.True(t, ok)

	cfg.Provider = config.ProviderOpenAI
	_, ok = New(cfg).(*Cached)
	assert.True(t, ok)

	cfg.CacheSize = 0
	_, ok = New(cfg).(*Client)
	assert.True(t, ok)

	text, err := Noop{}.Enhance(context.Background(), "raw")
	require.NoError(t, err)
	assert.Equal(t, "raw", text)
}
