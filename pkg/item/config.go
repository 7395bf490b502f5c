package item

// config.go defines the internal configuration object and the set of
// functional options passed to Setup: every field is initialised with a
// sensible default, and an Option only ever captures a pointer to an
// external object (registry, logger, clock) or a plain value.
//
// © 2025 slabitem authors. MIT License.

import (
    "errors"
    "time"

    "github.com/prometheus/client_golang/prometheus"
    "go.uber.org/zap"

    "github.com/memstore/slabitem/internal/slab"
)

// Option configures a Store at Setup time.
type Option func(*config)

// EvictCallback is invoked synchronously whenever the slab allocator
// reclaims a still-linked item under memory pressure. It
// receives the key and value bytes *before* the item is unlinked, so a
// caller can write them through to a second-level store. It must not
// retain the slices past the call, and must not block.
type EvictCallback func(key, val []byte)

type config struct {
    useCAS     bool
    hashPower  uint32
    slabCfg    slab.Config
    registry   *prometheus.Registry
    logger     *zap.Logger
    clock      func() int64
    evictCb    EvictCallback
}

func defaultConfig() *config {
    return &config{
        useCAS:    true,
        hashPower: 20,
        slabCfg:   slab.DefaultConfig(),
        logger:    zap.NewNop(),
        clock:     relativeClock(time.Now()),
    }
}

// relativeClock returns a monotonic clock counting whole seconds since start,
// the time scale item exptimes are expressed in.
func relativeClock(start time.Time) func() int64 {
    return func() int64 { return int64(time.Since(start) / time.Second) }
}

// WithCAS toggles CAS-token bookkeeping (reserves slab.CASTokenSize bytes
// per item and gives linked items nonzero CAS tokens for Cas to match).
// Enabled by default.
func WithCAS(enabled bool) Option {
    return func(c *config) { c.useCAS = enabled }
}

// WithHashPower sets the hash index to 2^power buckets.
func WithHashPower(power uint32) Option {
    return func(c *config) { c.hashPower = power }
}

// WithSlabConfig overrides the default slab class ladder and memory budget.
func WithSlabConfig(sc slab.Config) Option {
    return func(c *config) { c.slabCfg = sc }
}

// WithMetrics enables Prometheus metrics collection. Passing nil disables
// metrics (the default): the hot path then pays no metric-update cost.
func WithMetrics(reg *prometheus.Registry) Option {
    return func(c *config) { c.registry = reg }
}

// WithLogger plugs an external zap.Logger. The store only logs slow events
// (slab growth, reclamation); nothing on the per-request hot path.
func WithLogger(l *zap.Logger) Option {
    return func(c *config) {
        if l != nil {
            c.logger = l
        }
    }
}

// WithClock overrides the clock used to evaluate expiration (by default,
// whole seconds elapsed since Setup). Intended for deterministic tests.
func WithClock(fn func() int64) Option {
    return func(c *config) {
        if fn != nil {
            c.clock = fn
        }
    }
}

// WithEvictCallback registers a function invoked whenever the slab
// allocator reclaims a linked item to satisfy a pending allocation under
// memory pressure. The callback runs in the caller's goroutine and must not
// block.
func WithEvictCallback(cb EvictCallback) Option {
    return func(c *config) { c.evictCb = cb }
}

func (c *config) validate() error {
    if c.hashPower == 0 || c.hashPower > 32 {
        return errInvalidHashPower
    }
    return nil
}

var errInvalidHashPower = errors.New("item: hash power must be in [1,32]")
