package slab

import "go.uber.org/zap"

// reclaim.go implements the allocator's last-resort memory-pressure policy:
// when a class has no free chunk and no budget left to grow, sweep tracked
// (currently linked) chunks looking for one with a zero item refcount to
// reclaim via item.Reuse.
//
// The sweep is CLOCK-shaped: a "hand" walks forward across scans so that
// repeated pressure doesn't always re-inspect the same prefix, without any
// hot/cold state machine, since the item layer does not expose an
// access-recency bit across the slab/item boundary. A tracked chunk is
// skipped, never reclaimed, while its owning item reports a nonzero
// refcount: the allocator must not reuse a chunk someone has borrowed.
//
// reclaimOne scans at most one full lap of every page/slot in c; if it finds
// a tracked, refcount-zero owner it calls Reuse, clears the tracking slot,
// and hands the now-free chunk directly back to the caller (skipping the
// freelist round-trip).
//
// © 2025 slabitem authors. MIT License.
func (a *Allocator) reclaimOne(c *Class) (Handle, bool) {
    if a.reclaim.Refcount == nil || a.reclaim.Reuse == nil {
        return Handle{}, false
    }
    if len(c.pages) == 0 {
        return Handle{}, false
    }

    pages := len(c.pages)
    for laps := 0; laps < pages*c.capacity; laps++ {
        p := c.pages[c.reclaimPage]
        idx := c.reclaimIdx

        c.reclaimIdx++
        if c.reclaimIdx >= c.capacity {
            c.reclaimIdx = 0
            c.reclaimPage = (c.reclaimPage + 1) % pages
        }

        owner := p.owners[idx]
        if owner == nil {
            continue
        }
        if a.reclaim.Refcount(owner) != 0 {
            continue
        }

        a.reclaim.Reuse(owner)
        p.owners[idx] = nil
        if a.hooks.OnEvict != nil {
            a.hooks.OnEvict(c.id)
        }
        a.log.Debug("slab chunk reclaimed", zap.Int32("class", int32(c.id)), zap.Int("slot", idx))
        return Handle{class: c.id, ref: chunkRef{page: p, idx: int32(idx)}}, true
    }
    return Handle{}, false
}
