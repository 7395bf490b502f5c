package item

// metrics.go is a thin abstraction over Prometheus: a Store built with
// WithMetrics(reg) gets unlabeled counters/gauges, otherwise a no-op sink is
// used and the hot path does not pay for metric updates.
//
// The item_* metrics cover the item lifecycle; the three slab_* extras are
// fed by the allocator's observability hooks.
//
// ┌────────────────────────────┬───────┐
// │ Metric                     │ Type  │
// ├────────────────────────────┼───────┤
// │ item_req_total             │ Ctr   │
// │ item_req_ex_total          │ Ctr   │
// │ item_link_total            │ Ctr   │
// │ item_unlink_total          │ Ctr   │
// │ item_remove_total          │ Ctr   │
// │ item_curr                  │ Gge   │
// │ item_keyval_bytes          │ Gge   │
// │ item_val_bytes             │ Gge   │
// │ slab_grows_total           │ Ctr   │
// │ slab_evictions_total       │ Ctr   │
// │ slab_bytes                 │ Gge   │
// └────────────────────────────┴───────┘
//
// © 2025 slabitem authors. MIT License.

import (
    "sync/atomic"

    "github.com/prometheus/client_golang/prometheus"

    "github.com/memstore/slabitem/internal/slab"
)

type metricsSink interface {
    incReq()
    incReqEx()
    incLink()
    incUnlink()
    incRemove()
    addCurr(delta int64)
    addKeyValBytes(delta int64)
    addValBytes(delta int64)
    incSlabGrow()
    incSlabEvict()
    setSlabBytes(v int64)
}

type noopMetrics struct{}

func (noopMetrics) incReq()               {}
func (noopMetrics) incReqEx()             {}
func (noopMetrics) incLink()              {}
func (noopMetrics) incUnlink()            {}
func (noopMetrics) incRemove()            {}
func (noopMetrics) addCurr(int64)         {}
func (noopMetrics) addKeyValBytes(int64)  {}
func (noopMetrics) addValBytes(int64)     {}
func (noopMetrics) incSlabGrow()          {}
func (noopMetrics) incSlabEvict()         {}
func (noopMetrics) setSlabBytes(int64)    {}

type promMetrics struct {
    req     prometheus.Counter
    reqEx   prometheus.Counter
    link    prometheus.Counter
    unlink  prometheus.Counter
    remove  prometheus.Counter
    curr    prometheus.Gauge
    kvBytes prometheus.Gauge
    vBytes  prometheus.Gauge

    slabGrows     prometheus.Counter
    slabEvictions prometheus.Counter
    slabBytes     prometheus.Gauge

    currMirror    atomic.Int64
    kvBytesMirror atomic.Int64
    vBytesMirror  atomic.Int64
}

func newPromMetrics(reg *prometheus.Registry) *promMetrics {
    pm := &promMetrics{
        req: prometheus.NewCounter(prometheus.CounterOpts{
            Namespace: "slabitem", Name: "item_req_total",
            Help: "Number of item allocation requests.",
        }),
        reqEx: prometheus.NewCounter(prometheus.CounterOpts{
            Namespace: "slabitem", Name: "item_req_ex_total",
            Help: "Number of allocation requests the slab allocator could not serve (out of memory); oversized requests are not counted.",
        }),
        link: prometheus.NewCounter(prometheus.CounterOpts{
            Namespace: "slabitem", Name: "item_link_total",
            Help: "Number of items linked into the index.",
        }),
        unlink: prometheus.NewCounter(prometheus.CounterOpts{
            Namespace: "slabitem", Name: "item_unlink_total",
            Help: "Number of items unlinked from the index.",
        }),
        remove: prometheus.NewCounter(prometheus.CounterOpts{
            Namespace: "slabitem", Name: "item_remove_total",
            Help: "Number of items returned to the slab allocator.",
        }),
        curr: prometheus.NewGauge(prometheus.GaugeOpts{
            Namespace: "slabitem", Name: "item_curr",
            Help: "Number of items currently linked.",
        }),
        kvBytes: prometheus.NewGauge(prometheus.GaugeOpts{
            Namespace: "slabitem", Name: "item_keyval_bytes",
            Help: "Total key+value bytes of linked items.",
        }),
        vBytes: prometheus.NewGauge(prometheus.GaugeOpts{
            Namespace: "slabitem", Name: "item_val_bytes",
            Help: "Total value bytes of linked items.",
        }),
        slabGrows: prometheus.NewCounter(prometheus.CounterOpts{
            Namespace: "slabitem", Name: "slab_grows_total",
            Help: "Number of slab pages allocated across all classes.",
        }),
        slabEvictions: prometheus.NewCounter(prometheus.CounterOpts{
            Namespace: "slabitem", Name: "slab_evictions_total",
            Help: "Number of chunks reclaimed under memory pressure.",
        }),
        slabBytes: prometheus.NewGauge(prometheus.GaugeOpts{
            Namespace: "slabitem", Name: "slab_bytes",
            Help: "Total bytes committed to slab pages.",
        }),
    }
    reg.MustRegister(pm.req, pm.reqEx, pm.link, pm.unlink, pm.remove,
        pm.curr, pm.kvBytes, pm.vBytes, pm.slabGrows, pm.slabEvictions, pm.slabBytes)
    return pm
}

func (m *promMetrics) incReq()    { m.req.Inc() }
func (m *promMetrics) incReqEx()  { m.reqEx.Inc() }
func (m *promMetrics) incLink()   { m.link.Inc() }
func (m *promMetrics) incUnlink() { m.unlink.Inc() }
func (m *promMetrics) incRemove() { m.remove.Inc() }

func (m *promMetrics) addCurr(delta int64) {
    v := m.currMirror.Add(delta)
    m.curr.Set(float64(v))
}
func (m *promMetrics) addKeyValBytes(delta int64) {
    v := m.kvBytesMirror.Add(delta)
    m.kvBytes.Set(float64(v))
}
func (m *promMetrics) addValBytes(delta int64) {
    v := m.vBytesMirror.Add(delta)
    m.vBytes.Set(float64(v))
}
func (m *promMetrics) incSlabGrow()   { m.slabGrows.Inc() }
func (m *promMetrics) incSlabEvict()  { m.slabEvictions.Inc() }
func (m *promMetrics) setSlabBytes(v int64) { m.slabBytes.Set(float64(v)) }

func newMetricsSink(reg *prometheus.Registry) metricsSink {
    if reg == nil {
        return noopMetrics{}
    }
    return newPromMetrics(reg)
}

// slabHooksFor builds the slab.Hooks that forward allocator events into m.
func slabHooksFor(m metricsSink) slab.Hooks {
    return slab.Hooks{
        OnGrow:  func(slab.ClassID, int) { m.incSlabGrow() },
        OnEvict: func(slab.ClassID) { m.incSlabEvict() },
        OnBytes: func(total int64) { m.setSlabBytes(total) },
    }
}
