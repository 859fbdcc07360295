package chainy

import (
	"context"
	"time"

	"github.com/rs/zerolog"
)

// Middleware wraps a capability call with cross-cutting behavior (logging, recovery).
type Middleware func(c *Capability, next Handler) Handler

// WithLogging returns a middleware that logs start, end, duration, and errors.
func WithLogging(logger zerolog.Logger) Middleware {
	return func(c *Capability, next Handler) Handler {
		return func(ctx context.Context, args Arguments) (any, error) {
			logger.Debug().Str("tool", c.Name()).Msg("tool start")
			start := time.Now()
			res, err := next(ctx, args)
			dur := time.Since(start)
			if err != nil {
				logger.Error().Err(err).Str("tool", c.Name()).Dur("duration", dur).Msg("tool error")
				return nil, err
			}
			logger.Debug().Str("tool", c.Name()).Dur("duration", dur).Msg("tool end")
			return res, nil
		}
	}
}

// WithRecovery returns a middleware that recovers panics and returns SystemError.
func WithRecovery() Middleware {
	return func(_ *Capability, next Handler) Handler {
		return func(ctx context.Context, args Arguments) (res any, err error) {
			defer func() {
				if p := recover(); p != nil {
					res = nil
					err = &SystemError{Err: &panicError{p: p}}
				}
			}()
			return next(ctx, args)
		}
	}
}
