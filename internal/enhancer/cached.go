package enhancer

import (
	"context"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/zeebo/blake3"
)

// Cached memoizes successful enhancements. Reindexing an unchanged entity then
// costs no remote call.
type Cached struct {
	inner  Enhancer
	model  string
	prompt string
	cache  *lru.Cache[[32]byte, string]
}

// NewCached wraps inner with an LRU of the given size. model and prompt are part
// of the key, so changing either does not serve stale text.
func NewCached(inner Enhancer, model, prompt string, size int) *Cached {
	if size <= 0 {
		size = 1
	}
	cache, _ := lru.New[[32]byte, string](size)
	return &Cached{inner: inner, model: model, prompt: prompt, cache: cache}
}

func (c *Cached) key(raw string) [32]byte {
	return blake3.Sum256([]byte(c.model + "\x00" + c.prompt + "\x00" + raw))
}

func (c *Cached) Enhance(ctx context.Context, raw string) (string, error) {
	k := c.key(raw)
	if text, ok := c.cache.Get(k); ok {
		return text, nil
	}
	text, err := c.inner.Enhance(ctx, raw)
	if err != nil {
		return "", err
	}
	c.cache.Add(k, text)
	return text, nil
}

// Len returns the number of cached texts.
func (c *Cached) Len() int {
	return c.cache.Len()
}
