// Package assoc implements the hash index consumed by pkg/item: a
// closed-addressing (separate-chaining) hash table keyed by raw key bytes.
// Hashing uses hash/maphash with a per-table seed rather than a fixed one,
// avoiding cross-process hash-flooding predictability.
//
// Table does not know about *item.Item; it stores an opaque `any` per entry.
// Key uniqueness is not enforced here — the item layer guarantees at most
// one linked item per key — so Put simply overwrites whatever entry
// currently sits in the bucket under an equal key.
//
// Concurrency: single-threaded, like the item layer above it — no internal
// locking.
//
// © 2025 slabitem authors. MIT License.
package assoc

import "hash/maphash"

type entry struct {
    hash uint64
    key  []byte
    val  any
    next *entry
}

// Table is a fixed-bucket-count hash table over key bytes.
type Table struct {
    buckets []*entry
    mask    uint64
    seed    maphash.Seed
    count   int
}

// New creates a table with 2^hashPower buckets.
func New(hashPower uint32) *Table {
    n := uint64(1) << hashPower
    return &Table{
        buckets: make([]*entry, n),
        mask:    n - 1,
        seed:    maphash.MakeSeed(),
    }
}

// Destroy releases the table's buckets. The zero value is left unusable;
// callers must not use t afterwards.
func (t *Table) Destroy() {
    t.buckets = nil
    t.count = 0
}

func (t *Table) hash(key []byte) uint64 {
    var h maphash.Hash
    h.SetSeed(t.seed)
    h.Write(key)
    return h.Sum64()
}

func keysEqual(a, b []byte) bool {
    if len(a) != len(b) {
        return false
    }
    for i := range a {
        if a[i] != b[i] {
            return false
        }
    }
    return true
}

// Get returns the value stored under key, if any.
func (t *Table) Get(key []byte) (any, bool) {
    h := t.hash(key)
    for e := t.buckets[h&t.mask]; e != nil; e = e.next {
        if e.hash == h && keysEqual(e.key, key) {
            return e.val, true
        }
    }
    return nil, false
}

// Put inserts or overwrites the entry for key. Key bytes are copied so the
// table never outlives the caller's reuse of its buffer for an unrelated
// item.
func (t *Table) Put(key []byte, val any) {
    h := t.hash(key)
    idx := h & t.mask
    for e := t.buckets[idx]; e != nil; e = e.next {
        if e.hash == h && keysEqual(e.key, key) {
            e.val = val
            return
        }
    }
    owned := make([]byte, len(key))
    copy(owned, key)
    t.buckets[idx] = &entry{hash: h, key: owned, val: val, next: t.buckets[idx]}
    t.count++
}

// Delete removes the entry for key, if present. Reports whether a matching
// entry existed.
func (t *Table) Delete(key []byte) bool {
    h := t.hash(key)
    idx := h & t.mask
    var prev *entry
    for e := t.buckets[idx]; e != nil; e = e.next {
        if e.hash == h && keysEqual(e.key, key) {
            if prev == nil {
                t.buckets[idx] = e.next
            } else {
                prev.next = e.next
            }
            t.count--
            return true
        }
        prev = e
    }
    return false
}

// Len returns the number of entries currently indexed.
func (t *Table) Len() int { return t.count }
