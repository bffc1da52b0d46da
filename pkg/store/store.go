// Package store holds the client-side state of the booking API: normalized
// entity maps, the ordered id lists of each list view, pagination and
// busy/error flags. Every store owns its state behind a lock and changes it
// only through pure transitions, so readers always observe a committed
// state. Every failing action records the classified user message, clears
// its busy flag and returns a *errors.ClassifiedError wrapping the
// original error.
package store

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/agentstation/evently/pkg/constants"
	"github.com/agentstation/evently/pkg/errors"
	"github.com/agentstation/evently/pkg/logging"
)

// Status is the fetch state of one collection.
type Status string

// Collection fetch states.
const (
	StatusIdle    Status = "idle"
	StatusLoading Status = "loading"
	StatusReady   Status = "ready"
	StatusError   Status = "error"
)

// String returns the string representation of a status.
func (s Status) String() string {
	return string(s)
}

// Option configures a store.
type Option func(*config)

type config struct {
	logger   *zerolog.Logger
	debounce time.Duration
	cacheTTL time.Duration
}

func newConfig(opts []Option) config {
	cfg := config{
		logger:   logging.Default(),
		debounce: constants.FilterDebounce,
		cacheTTL: constants.BookingCacheTTL,
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	return cfg
}

// WithLogger sets the logger stores report to.
func WithLogger(l *zerolog.Logger) Option {
	return func(c *config) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithDebounce sets the quiet window of queued filter changes.
func WithDebounce(d time.Duration) Option {
	return func(c *config) {
		if d > 0 {
			c.debounce = d
		}
	}
}

// WithCacheTTL sets how long a fetched booking is served from memory.
func WithCacheTTL(d time.Duration) Option {
	return func(c *config) {
		if d > 0 {
			c.cacheTTL = d
		}
	}
}

// observers are the change callbacks of one store.
type observers struct {
	mu  sync.RWMutex
	fns []func()
}

// OnChange registers fn to run after every committed change.
// fn runs on the goroutine that made the change, outside the store lock.
func (o *observers) OnChange(fn func()) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.fns = append(o.fns, fn)
}

func (o *observers) notify() {
	o.mu.RLock()
	fns := make([]func(), len(o.fns))
	copy(fns, o.fns)
	o.mu.RUnlock()

	for _, fn := range fns {
		fn()
	}
}

// classify sorts a failure once and logs its technical details.
func classify(logger *zerolog.Logger, op string, err error) *errors.ClassifiedError {
	ce := errors.Classify(err)
	logger.Debug().
		Str("operation", op).
		Str("kind", ce.Kind.String()).
		Int("status", ce.StatusCode).
		Str("technical", ce.Technical).
		Msg("store action failed")
	return ce
}

// forEvent tags the context logger, or logger when ctx carries none, with an
// event id. Requests sent with the returned context log the id as well.
func forEvent(ctx context.Context, logger *zerolog.Logger, id int) context.Context {
	return logging.WithEvent(logging.WithLogger(ctx, logging.Ctx(ctx, logger)), id)
}

// forUser is forEvent for a user id.
func forUser(ctx context.Context, logger *zerolog.Logger, id int) context.Context {
	return logging.WithUser(logging.WithLogger(ctx, logging.Ctx(ctx, logger)), id)
}

func copyMap[T any](m map[int]T) map[int]T {
	out := make(map[int]T, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

func copyIDs(ids []int) []int {
	if ids == nil {
		return nil
	}
	return append([]int(nil), ids...)
}
