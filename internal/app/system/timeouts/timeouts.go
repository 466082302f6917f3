// Package timeouts provides the context deadlines used around document
// store calls.
//
// Guidelines:
//   - Ping: health checks
//   - Short: single-document reads and lookups (login, fetch by id)
//   - Medium: list queries, single writes, the date-conflict scan
//   - Long: multi-step workflows (conflict check followed by a write)
package timeouts

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
)

const (
	DefaultPing   = 2 * time.Second
	DefaultShort  = 5 * time.Second
	DefaultMedium = 10 * time.Second
	DefaultLong   = 20 * time.Second
)

// Config holds deadline overrides. Zero values keep the current value.
type Config struct {
	Ping   time.Duration
	Short  time.Duration
	Medium time.Duration
	Long   time.Duration
}

var defaults = Config{Ping: DefaultPing, Short: DefaultShort, Medium: DefaultMedium, Long: DefaultLong}

var current atomic.Pointer[Config]

func init() { Reset() }

func Ping() time.Duration   { return current.Load().Ping }
func Short() time.Duration  { return current.Load().Short }
func Medium() time.Duration { return current.Load().Medium }
func Long() time.Duration   { return current.Load().Long }

// Configure applies overrides on top of the current values. Call it during
// startup, before handlers run.
func Configure(cfg Config) {
	next := *current.Load()
	for _, o := range []struct {
		dst *time.Duration
		v   time.Duration
	}{
		{&next.Ping, cfg.Ping},
		{&next.Short, cfg.Short},
		{&next.Medium, cfg.Medium},
		{&next.Long, cfg.Long},
	} {
		if o.v > 0 {
			*o.dst = o.v
		}
	}
	current.Store(&next)
}

// Reset restores the defaults.
func Reset() {
	d := defaults
	current.Store(&d)
}

// WithTimeout is context.WithTimeout whose cancel func logs a warning when
// the deadline was the reason the operation ended.
//
//	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Long(), h.Log, "save report")
//	defer cancel()
func WithTimeout(parent context.Context, timeout time.Duration, log *zap.Logger, operation string) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithTimeout(parent, timeout)
	return ctx, func() {
		defer cancel()
		if log == nil || !errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return
		}
		log.Warn("store call hit its deadline",
			zap.String("operation", operation),
			zap.Duration("timeout", timeout))
	}
}
