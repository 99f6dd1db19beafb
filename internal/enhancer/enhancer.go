// Package enhancer turns raw concatenated entity text into the text stored in
// the search index.
package enhancer

import (
	"context"
	"errors"
	"net/http"

	"github.com/syntrixbase/marketsearch/internal/enhancer/config"
)

var (
	// ErrEmptyResponse is returned when the model replies without usable text.
	ErrEmptyResponse = errors.New("enhancer returned empty text")
)

// Enhancer improves raw entity text for indexing. Callers treat any error as
// "use the raw text".
type Enhancer interface {
	Enhance(ctx context.Context, raw string) (string, error)
}

// Noop returns the raw text unchanged.
type Noop struct{}

func (Noop) Enhance(_ context.Context, raw string) (string, error) {
	return raw, nil
}

// New builds the enhancer selected by cfg.
func New(cfg config.Config) Enhancer {
	if cfg.Provider != config.ProviderOpenAI {
		return Noop{}
	}
	var e Enhancer = NewClient(cfg, &http.Client{})
	if cfg.CacheSize > 0 {
		e = NewCached(e, cfg.Model, cfg.Prompt, cfg.CacheSize)
	}
	return e
}
