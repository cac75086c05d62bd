package redisadp

import (
	"log/slog"
	"time"
)

const (
	defaultPrefix       = "tasklane"
	defaultMaxRetries   = 16
	defaultBlockTimeout = time.Second
	defaultLockTTL      = 30 * time.Second
)

type options struct {
	prefix       string
	maxRetries   int
	blockTimeout time.Duration
	lockTTL      time.Duration
	logger       *slog.Logger
}

// Option configures a TaskStore, an EventQueue or a TaskLocker.
type Option func(*options)

// WithPrefix sets the key prefix for Redis keys.
// Default is "tasklane".
func WithPrefix(prefix string) Option {
	return func(o *options) {
		o.prefix = prefix
	}
}

// WithMaxRetries bounds the optimistic transaction retries of TaskStore writes.
// Default is 16.
func WithMaxRetries(n int) Option {
	return func(o *options) {
		o.maxRetries = n
	}
}

// WithBlockTimeout sets how long one EventQueue.Dequeue round trip blocks in BLPOP
// before it checks its context again. Redis counts it in whole seconds.
// Default is one second.
func WithBlockTimeout(d time.Duration) Option {
	return func(o *options) {
		o.blockTimeout = d
	}
}

// WithLockTTL sets the lease of a TaskLocker key. Holders renew it every third of
// the lease, so it only bounds how long a crashed holder blocks the task.
// Default is 30 seconds.
func WithLockTTL(d time.Duration) Option {
	return func(o *options) {
		o.lockTTL = d
	}
}

// WithLogger sets the logger. Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

func newOptions(opts []Option) options {
	o := options{
		prefix:       defaultPrefix,
		maxRetries:   defaultMaxRetries,
		blockTimeout: defaultBlockTimeout,
		lockTTL:      defaultLockTTL,
	}
	for _, opt := range opts {
		opt(&o)
	}
	if o.maxRetries <= 0 {
		o.maxRetries = defaultMaxRetries
	}
	if o.blockTimeout < time.Second {
		o.blockTimeout = time.Second
	}
	if o.lockTTL < 3*time.Millisecond {
		o.lockTTL = defaultLockTTL
	}
	if o.logger == nil {
		o.logger = slog.Default()
	}
	return o
}
