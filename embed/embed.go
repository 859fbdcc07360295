// Package embed computes text embeddings through a backend and memoizes them.
package embed

import (
	"context"
	"time"

	"github.com/omniaura/mapcache"
	"github.com/rs/zerolog"
)

// DefaultCacheTTL is how long an embedding stays memoized unless WithCacheTTL says otherwise.
const DefaultCacheTTL = 10 * time.Minute

// Source computes embeddings. Both ollama.Client and openaicompat.Client implement it.
type Source interface {
	Embed(ctx context.Context, model, text string) ([]float64, error)
}

// Embedder turns text into vectors using a fixed model.
type Embedder struct {
	src    Source
	model  string
	logger zerolog.Logger
	cache  *mapcache.MapCache[string, []float64]
}

// Option configures an Embedder.
type Option func(*options)

type options struct {
	logger zerolog.Logger
	ttl    time.Duration
}

// WithLogger sets the logger used to report embedding failures.
func WithLogger(logger zerolog.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// WithCacheTTL sets how long results are memoized. Zero or less disables memoization.
func WithCacheTTL(ttl time.Duration) Option {
	return func(o *options) {
		o.ttl = ttl
	}
}

// New creates an Embedder for model.
func New(src Source, model string, opts ...Option) (*Embedder, error) {
	o := options{logger: zerolog.Nop(), ttl: DefaultCacheTTL}
	for _, opt := range opts {
		opt(&o)
	}
	e := &Embedder{src: src, model: model, logger: o.logger}
	if o.ttl > 0 {
		cache, err := mapcache.New[string, []float64](mapcache.WithTTL(o.ttl))
		if err != nil {
			return nil, err
		}
		e.cache = cache
	}
	return e, nil
}

// Model returns the embedding model name.
func (e *Embedder) Model() string { return e.model }

// Embed returns the embedding of text. Failures are logged and reported as nil.
func (e *Embedder) Embed(ctx context.Context, text string) []float64 {
	fetch := func() ([]float64, error) {
		return e.src.Embed(ctx, e.model, text)
	}
	var (
		vec []float64
		err error
	)
	if e.cache != nil {
		vec, err = e.cache.Get(text, fetch)
	} else {
		vec, err = fetch()
	}
	if err != nil {
		e.logger.Warn().Err(err).Str("model", e.model).Str("text", text).Msg("could not embed text")
		return nil
	}
	return vec
}
