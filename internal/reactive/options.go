package reactive

import (
	"log/slog"

	"github.com/roach88/rivulet/internal/sched"
)

// PanicObserver is told about every subscriber panic a hub recovers.
type PanicObserver func(streamID string, recovered any)

// Config holds the settings shared by every stream constructor.
type Config struct {
	// Scheduler runs deferred activation, pulls and timers.
	Scheduler sched.Scheduler

	// Kind is the stream type ("sequence", "batch", ...). It labels
	// metrics and is set by the constructor, never by options.
	Kind string

	// Name labels the stream in logs. Defaults to Kind.
	Name string

	// IDs generates the stream ID.
	IDs IDGenerator

	// Logger receives stream lifecycle logs.
	Logger *slog.Logger

	// Eager starts the stream at construction instead of on first subscribe.
	Eager bool

	// PropagatePanics disables per-handler panic recovery.
	PropagatePanics bool

	// OnPanic observes recovered panics.
	OnPanic PanicObserver
}

// Option configures a stream.
type Option func(*Config)

// WithScheduler sets the scheduler. Without it, a stream inherits its
// upstream's scheduler, falling back to sched.Default().
func WithScheduler(s sched.Scheduler) Option {
	return func(c *Config) {
		c.Scheduler = s
	}
}

// WithName overrides the stream's log and metrics label.
// Keep names low-cardinality: they become Prometheus label values.
func WithName(name string) Option {
	return func(c *Config) {
		if name != "" {
			c.Name = name
		}
	}
}

// WithIDGenerator sets the stream ID generator.
// Default: UUIDv7Generator.
func WithIDGenerator(g IDGenerator) Option {
	return func(c *Config) {
		c.IDs = g
	}
}

// WithLogger sets the logger. Default: slog.Default() at construction.
func WithLogger(l *slog.Logger) Option {
	return func(c *Config) {
		c.Logger = l
	}
}

// WithEager makes a lazy stream start producing at construction.
func WithEager() Option {
	return func(c *Config) {
		c.Eager = true
	}
}

// WithPropagatePanics lets a panicking handler unwind into whoever
// published the value, skipping the remaining handlers.
func WithPropagatePanics() Option {
	return func(c *Config) {
		c.PropagatePanics = true
	}
}

// WithPanicObserver registers an observer for recovered handler panics.
func WithPanicObserver(o PanicObserver) Option {
	return func(c *Config) {
		c.OnPanic = o
	}
}

// NewConfig applies opts over the defaults for a stream of the given kind.
// If upstream implements Scheduled and no scheduler was set, its scheduler
// is reused so a whole pipeline runs on one scheduler.
func NewConfig(kind string, upstream any, opts ...Option) Config {
	c := Config{Name: kind}
	for _, opt := range opts {
		opt(&c)
	}
	c.Kind = kind

	if c.Scheduler == nil {
		if s, ok := upstream.(Scheduled); ok {
			c.Scheduler = s.Scheduler()
		}
	}
	if c.Scheduler == nil {
		c.Scheduler = sched.Default()
	}
	if c.IDs == nil {
		c.IDs = UUIDv7Generator{}
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
	return c
}
