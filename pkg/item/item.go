// Package item implements the core of a memcached-style slab-backed item
// store: the lifecycle of a single record (refcounting, linkage, lazy
// expiration) and an alignment-aware append/prepend fast path that grows
// values in place when the chunk has room. It consumes two
// narrowly-interfaced collaborators, internal/slab (chunk allocation) and
// internal/assoc (the hash index), and otherwise owns no memory of its own.
//
// © 2025 slabitem authors. MIT License.
package item

import (
    "strconv"

    "github.com/memstore/slabitem/internal/slab"
    "github.com/memstore/slabitem/internal/unsafehelpers"
)

// ValueType is the advisory classification recomputed on every write; it is
// consulted by arithmetic commands layered above this package.
type ValueType uint8

const (
    VTypeStr ValueType = iota
    VTypeInt
)

type itemFlags uint8

const (
    flagLinked itemFlags = 1 << iota
    flagHasCAS
    flagInFreeQ
    flagRaligned
)

const itemMagic = 0x1346

// Item is a record living inside a slab-allocated chunk. The exported
// accessors are read-only views of the header; mutation is only ever
// performed by the Store that owns it.
type Item struct {
    magic    uint32
    handle   slab.Handle
    class    slab.ClassID
    offset   uint32
    refcount uint32
    flags    itemFlags
    klen     uint8
    vlen     uint32
    exptime  int64
    vtype    ValueType
    cas      uint64
    chunk    []byte
}

func (it *Item) isLinked() bool  { return it.flags&flagLinked != 0 }
func (it *Item) hasCAS() bool    { return it.flags&flagHasCAS != 0 }
func (it *Item) inFreeQ() bool   { return it.flags&flagInFreeQ != 0 }
func (it *Item) raligned() bool  { return it.flags&flagRaligned != 0 }

// IsLinked reports whether the item is currently discoverable via the hash
// index.
func (it *Item) IsLinked() bool { return it.isLinked() }

// Refcount returns the item's current reference count.
func (it *Item) Refcount() uint32 { return it.refcount }

// ClassID returns the slab class the item was allocated from.
func (it *Item) ClassID() slab.ClassID { return it.class }

// Offset returns the item's byte offset within its owning slab page,
// satisfying `slab.PageHeaderSize <= Offset < slab.SizeSetting()`.
func (it *Item) Offset() uint32 { return it.offset }

// Exptime returns the item's relative expiration time; 0 means "never".
func (it *Item) Exptime() int64 { return it.exptime }

// CAS returns the item's current CAS token (0 when CAS is disabled).
func (it *Item) CAS() uint64 { return it.cas }

// VType returns the advisory value-type classification.
func (it *Item) VType() ValueType { return it.vtype }

// dataStart computes header_end + klen + (has_cas ? 8 : 0), the left-aligned
// payload base.
func (it *Item) dataStart() int {
    start := slab.ItemHeaderSize
    if it.hasCAS() {
        start += slab.CASTokenSize
    }
    return start + int(it.klen)
}

// Key returns the key bytes stored inside the chunk. The slice is a view;
// callers must not retain it past the item's lifetime.
func (it *Item) Key() []byte {
    start := slab.ItemHeaderSize
    if it.hasCAS() {
        start += slab.CASTokenSize
    }
    return it.chunk[start : start+int(it.klen)]
}

// Data returns the value bytes: the chunk's tail `vlen` bytes when
// right-aligned, else the region right after the key.
func (it *Item) Data() []byte {
    if it.raligned() {
        n := len(it.chunk)
        return it.chunk[n-int(it.vlen) : n]
    }
    start := it.dataStart()
    return it.chunk[start : start+int(it.vlen)]
}

func ntotal(klen uint8, vlen uint32, hasCAS bool) int {
    n := slab.ItemHeaderSize + int(klen) + int(vlen)
    if hasCAS {
        n += slab.CASTokenSize
    }
    return n
}

// checkType attempts to parse the value as an unsigned 64-bit integer,
// classifying vtype accordingly. Purely advisory.
func checkType(it *Item) {
    s := unsafehelpers.BytesToString(it.Data())
    if _, err := strconv.ParseUint(s, 10, 64); err == nil {
        it.vtype = VTypeInt
    } else {
        it.vtype = VTypeStr
    }
}
