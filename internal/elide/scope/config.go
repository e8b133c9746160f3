package scope

import (
	"strconv"

	"github.com/cockroachdb/errors"
	"github.com/go-logr/logr"

	"github.com/kolkov/lockelide/internal/elide/htm"
)

const (
	// DefaultMaxRetries is the number of retries after the first attempt
	// before a scope falls back to its lock.
	DefaultMaxRetries = 3

	// DefaultAbortCode is the explicit abort code reserved for "fallback
	// lock held".
	DefaultAbortCode uint8 = 0xFF

	// DefaultName labels scopes created without WithName.
	DefaultName = "default"

	// DefaultLogSampleRate logs one in this many aborts at V(2).
	DefaultLogSampleRate = 1000
)

// Environment variables read by ConfigFromEnv.
const (
	EnvMaxRetries = "LOCKELIDE_MAX_RETRIES"
	EnvAbortCode  = "LOCKELIDE_ABORT_CODE"
	EnvDisable    = "LOCKELIDE_DISABLE"
)

// Config controls how an Elider enters and exits scopes.
type Config struct {
	// Name labels the scopes in logs and statistics.
	Name string

	// MaxRetries bounds the transaction attempts to MaxRetries+1 before
	// the fallback lock is taken. Zero means a single attempt.
	MaxRetries int

	// AbortCode is the explicit abort code used when a transaction finds
	// the fallback lock held. Critical sections that abort explicitly
	// must use other codes.
	AbortCode uint8

	// Unit is the transactional memory facility. Defaults to
	// htm.Unsupported, which always falls back.
	Unit htm.Unit

	// Logger receives fallback decisions at V(1) and sampled aborts at
	// V(2). Defaults to logr.Discard().
	Logger logr.Logger

	// Observer is notified of aborts, fences, commits and fallbacks.
	Observer Observer

	// LogSampleRate logs one in LogSampleRate aborts. 1 logs every abort.
	LogSampleRate uint64

	maxRetriesSet bool
	abortCodeSet  bool
}

func (c Config) withDefaults() Config {
	if c.Name == "" {
		c.Name = DefaultName
	}
	if !c.maxRetriesSet {
		c.MaxRetries = DefaultMaxRetries
	}
	if !c.abortCodeSet {
		c.AbortCode = DefaultAbortCode
	}
	if c.Unit == nil {
		c.Unit = htm.Unsupported{}
	}
	if c.Logger.GetSink() == nil {
		c.Logger = logr.Discard()
	}
	if c.Observer == nil {
		c.Observer = NopObserver{}
	}
	if c.LogSampleRate == 0 {
		c.LogSampleRate = DefaultLogSampleRate
	}
	return c
}

// Validate reports configuration errors.
func (c Config) Validate() error {
	if c.MaxRetries < 0 {
		return errors.Newf("scope %q: max retries must be non-negative, got %d", c.Name, c.MaxRetries)
	}
	return nil
}

// Option configures an Elider.
type Option func(*Config)

// WithName sets the label used in logs and statistics.
func WithName(name string) Option {
	return func(c *Config) {
		c.Name = name
	}
}

// WithMaxRetries sets the number of retries after the first attempt.
func WithMaxRetries(n int) Option {
	return func(c *Config) {
		c.MaxRetries = n
		c.maxRetriesSet = true
	}
}

// WithAbortCode sets the explicit abort code reserved for contention on
// the fallback lock.
func WithAbortCode(code uint8) Option {
	return func(c *Config) {
		c.AbortCode = code
		c.abortCodeSet = true
	}
}

// WithUnit sets the transactional memory facility.
func WithUnit(u htm.Unit) Option {
	return func(c *Config) {
		c.Unit = u
	}
}

// WithLogger sets the logger.
func WithLogger(l logr.Logger) Option {
	return func(c *Config) {
		c.Logger = l
	}
}

// WithObserver sets the observer notified of scope events.
func WithObserver(o Observer) Option {
	return func(c *Config) {
		c.Observer = o
	}
}

// WithLogSampleRate logs one in rate aborts.
func WithLogSampleRate(rate uint64) Option {
	return func(c *Config) {
		c.LogSampleRate = rate
	}
}

// ConfigFromEnv translates the LOCKELIDE_* environment variables into
// options. lookup is usually os.LookupEnv.
//
//	LOCKELIDE_MAX_RETRIES=5     retries after the first attempt
//	LOCKELIDE_ABORT_CODE=0xfe   reserved abort code (decimal, 0x or 0o)
//	LOCKELIDE_DISABLE=true      never start transactions
func ConfigFromEnv(lookup func(string) (string, bool)) ([]Option, error) {
	var opts []Option
	if v, ok := lookup(EnvMaxRetries); ok {
		n, err := strconv.Atoi(v)
		if err != nil {
			return nil, errors.Wrapf(err, "parsing %s", EnvMaxRetries)
		}
		opts = append(opts, WithMaxRetries(n))
	}
	if v, ok := lookup(EnvAbortCode); ok {
		code, err := strconv.ParseUint(v, 0, 8)
		if err != nil {
			return nil, errors.Wrapf(err, "parsing %s", EnvAbortCode)
		}
		opts = append(opts, WithAbortCode(uint8(code)))
	}
	if v, ok := lookup(EnvDisable); ok {
		disable, err := strconv.ParseBool(v)
		if err != nil {
			return nil, errors.Wrapf(err, "parsing %s", EnvDisable)
		}
		if disable {
			opts = append(opts, WithUnit(htm.Unsupported{}))
		}
	}
	return opts, nil
}
