package item

// snapshot.go exposes a point-in-time view of the store's counters for
// embedding applications (debug endpoints, the slabitem-inspect CLI). The
// plain-field mirror sits in front of the optional Prometheus sink so that
// Snapshot works whether or not a registry was configured; like everything
// else in the store it assumes external serialization, so no atomics are
// needed.
//
// © 2025 slabitem authors. MIT License.

// Snapshot is a copy of the store's counters and gauges. JSON field names
// match the Prometheus metric names registered by WithMetrics without their
// "slabitem_" namespace prefix, so a debug
// endpoint that encodes a Snapshot is directly consumable by
// cmd/slabitem-inspect.
type Snapshot struct {
    ItemReq     uint64 `json:"item_req_total"`
    ItemReqEx   uint64 `json:"item_req_ex_total"`
    ItemLink    uint64 `json:"item_link_total"`
    ItemUnlink  uint64 `json:"item_unlink_total"`
    ItemRemove  uint64 `json:"item_remove_total"`
    ItemCurr    int64  `json:"item_curr"`
    KeyValBytes int64  `json:"item_keyval_bytes"`
    ValBytes    int64  `json:"item_val_bytes"`
    SlabGrows   uint64 `json:"slab_grows_total"`
    SlabEvicts  uint64 `json:"slab_evictions_total"`
    SlabBytes   int64  `json:"slab_bytes"`
}

// statsSink mirrors every metric into plain fields and forwards to the
// configured sink (no-op or Prometheus).
type statsSink struct {
    snap Snapshot
    next metricsSink
}

func (m *statsSink) incReq()    { m.snap.ItemReq++; m.next.incReq() }
func (m *statsSink) incReqEx()  { m.snap.ItemReqEx++; m.next.incReqEx() }
func (m *statsSink) incLink()   { m.snap.ItemLink++; m.next.incLink() }
func (m *statsSink) incUnlink() { m.snap.ItemUnlink++; m.next.incUnlink() }
func (m *statsSink) incRemove() { m.snap.ItemRemove++; m.next.incRemove() }

func (m *statsSink) addCurr(delta int64) {
    m.snap.ItemCurr += delta
    m.next.addCurr(delta)
}
func (m *statsSink) addKeyValBytes(delta int64) {
    m.snap.KeyValBytes += delta
    m.next.addKeyValBytes(delta)
}
func (m *statsSink) addValBytes(delta int64) {
    m.snap.ValBytes += delta
    m.next.addValBytes(delta)
}
func (m *statsSink) incSlabGrow()  { m.snap.SlabGrows++; m.next.incSlabGrow() }
func (m *statsSink) incSlabEvict() { m.snap.SlabEvicts++; m.next.incSlabEvict() }
func (m *statsSink) setSlabBytes(v int64) {
    m.snap.SlabBytes = v
    m.next.setSlabBytes(v)
}

// Snapshot returns a copy of the store's current counters.
func (s *Store) Snapshot() Snapshot { return s.stats.snap }
