package ingest

import "time"

// Defaults applied when an import does not override a setting
const (
	DefaultBatchSize             = 100
	DefaultSendTimeout           = 30000 * time.Millisecond
	DefaultMaxRetries            = 3
	DefaultDelayTime             = 1000 * time.Millisecond
	DefaultMaxConcurrentRequests = 5
)

// Options are caller overrides for a single import.
// Zero or negative values mean "use the default".
type Options struct {
	BatchSize             int `json:"batchSize"`
	SendTimeoutMs         int `json:"sendTimeout"`
	MaxRetries            int `json:"maxRetries"`
	DelayTimeMs           int `json:"delayTime"`
	MaxConcurrentRequests int `json:"maxConcurrentRequests"`
}

// Config is the resolved, immutable configuration of one import
type Config struct {
	BatchSize             int
	SendTimeout           time.Duration
	MaxRetries            int
	DelayTime             time.Duration
	MaxConcurrentRequests int
}

// DefaultConfig returns the built-in defaults
func DefaultConfig() Config {
	return Config{
		BatchSize:             DefaultBatchSize,
		SendTimeout:           DefaultSendTimeout,
		MaxRetries:            DefaultMaxRetries,
		DelayTime:             DefaultDelayTime,
		MaxConcurrentRequests: DefaultMaxConcurrentRequests,
	}
}

// ResolveConfig merges overrides over the built-in defaults
func ResolveConfig(opts Options) Config {
	return ResolveConfigWithBase(DefaultConfig(), opts)
}

// ResolveConfigWithBase merges overrides over base.
// Non-positive fields of base are themselves replaced by the built-in defaults,
// so the result always holds positive values.
func ResolveConfigWithBase(base Config, opts Options) Config {
	def := DefaultConfig()
	cfg := Config{
		BatchSize:             pickInt(opts.BatchSize, base.BatchSize, def.BatchSize),
		SendTimeout:           pickMs(opts.SendTimeoutMs, base.SendTimeout, def.SendTimeout),
		MaxRetries:            pickInt(opts.MaxRetries, base.MaxRetries, def.MaxRetries),
		DelayTime:             pickMs(opts.DelayTimeMs, base.DelayTime, def.DelayTime),
		MaxConcurrentRequests: pickInt(opts.MaxConcurrentRequests, base.MaxConcurrentRequests, def.MaxConcurrentRequests),
	}
	return cfg
}

func pickInt(override, base, def int) int {
	if override > 0 {
		return override
	}
	if base > 0 {
		return base
	}
	return def
}

func pickMs(overrideMs int, base, def time.Duration) time.Duration {
	if overrideMs > 0 {
		return time.Duration(overrideMs) * time.Millisecond
	}
	if base > 0 {
		return base
	}
	return def
}
