// Package slab implements the chunk-pool allocator consumed by pkg/item.
//
// Chunks of equal size are grouped into classes, grown a page at a time from
// a growth-factor size ladder (MinChunkSize .. MaxChunkSize), mirroring the
// class/chunk/freelist shape of a classic slab allocator. Page memory is
// bump-allocated out of internal/arena so that pages never trigger a GC scan
// of their own, and growth stops once the allocator's MaxMemory budget is
// exhausted — at which point Get either reclaims a reusable chunk (see
// reclaim.go) or reports out-of-memory.
//
// Concurrency: single-threaded, matching the item layer's own model — no
// internal locking.
//
// © 2025 slabitem authors. MIT License.
package slab

import (
    "errors"
    "fmt"

    "go.uber.org/zap"

    "github.com/memstore/slabitem/internal/arena"
)

// ClassID identifies a slab size class.
type ClassID int32

// InvalidClassID is returned when a requested size exceeds every class.
const InvalidClassID ClassID = -1

// PageHeaderSize is reserved at the front of every page and is never part
// of a chunk's usable capacity, so item offsets always satisfy
// `PageHeaderSize <= offset < page size`.
const (
    ItemHeaderSize = 24 // fixed metadata overhead item.ntotal() reserves per item
    CASTokenSize   = 8  // bytes reserved for the CAS token when has_cas=1
    PageHeaderSize = 16 // reserved prefix of every page (magic + bookkeeping)
    pageMagic      = 0x5AB5AB

)

var (
    // ErrNoMemory is Get's out-of-memory path: the class is full, there is
    // no growth budget left, and no chunk could be reclaimed.
    ErrNoMemory = errors.New("slab: out of memory")
)

// ReclaimHooks let the item layer participate in chunk reclamation without
// internal/slab importing pkg/item (which would create an import cycle). The
// item layer passes these at construction time; the allocator calls them
// only against chunks it currently classifies as "tracked" (see Track).
type ReclaimHooks struct {
    // Refcount returns the current refcount of the item owning a tracked
    // chunk. A chunk whose owner reports nonzero refcount is never
    // reclaimed: the allocator must not reuse a chunk someone has borrowed.
    Refcount func(owner any) uint32
    // Reuse is invoked exactly once, synchronously, when the allocator
    // decides to reclaim a tracked, refcount-zero chunk to satisfy a
    // pending Get. It must unlink the owning item without freeing it (the
    // chunk is about to be handed to a new allocation).
    Reuse func(owner any)
}

// Hooks are optional observability callbacks; all fields may be nil.
type Hooks struct {
    OnGrow  func(id ClassID, pageBytes int)
    OnEvict func(id ClassID)
    OnBytes func(totalUsed int64)
}

// Config describes the class ladder and memory budget.
type Config struct {
    MinChunkSize int     // smallest class chunk size, bytes
    MaxChunkSize int     // largest class chunk size, bytes
    GrowthFactor float64 // >1.0, e.g. 1.25
    PageSize     int     // bytes per page allocated to grow a class
    MaxMemory    int64   // total budget across all classes/pages
}

// DefaultConfig mirrors common memcached-style slab geometry: a modest
// growth factor keeps internal fragmentation low without creating an
// impractical number of classes.
func DefaultConfig() Config {
    return Config{
        MinChunkSize: 64,
        MaxChunkSize: 512 << 10, // 512 KiB; one max-size chunk per page (the page header leaves no room for a second)
        GrowthFactor: 1.25,
        PageSize:     1 << 20, // 1 MiB pages
        MaxMemory:    64 << 20,
    }
}

type page struct {
    id       uint32
    magic    uint32
    buf      []byte
    refcount int32
    owners   []any // parallel to chunk slots; nil = free/untracked
    capacity int
}

// Class groups chunks of one fixed size.
type Class struct {
    id        ClassID
    chunkSize int
    capacity  int // chunks per page
    pages     []*page
    free      []chunkRef // LIFO freelist of (page, index)

    reclaimPage int // round-robin hand across pages
    reclaimIdx  int // round-robin hand within a page
}

type chunkRef struct {
    page *page
    idx  int32
}

// Handle is an opaque reference to one chunk, analogous to a raw `item*`
// pointer in the original allocator: it is everything the item layer needs
// to recover payload bytes, the owning page ("slab"), and class identity.
type Handle struct {
    class ClassID
    ref   chunkRef
}

// Allocator owns every class and the arena backing their pages.
type Allocator struct {
    cfg      Config
    classes  []*Class
    mem      *arena.Arena
    usedMem  int64
    nextPage uint32
    hooks    Hooks
    reclaim  ReclaimHooks
    log      *zap.Logger
}

// New builds an Allocator with a class ladder from cfg.MinChunkSize to
// cfg.MaxChunkSize, growing by cfg.GrowthFactor, grounded in the
// lightpaw-slab Pool constructor (NewPool) which builds the same kind of
// chunkSize *= factor ladder.
func New(cfg Config, hooks Hooks, reclaim ReclaimHooks, log *zap.Logger) (*Allocator, error) {
    if cfg.MinChunkSize <= 0 || cfg.MaxChunkSize < cfg.MinChunkSize {
        return nil, fmt.Errorf("slab: invalid chunk size range [%d,%d]", cfg.MinChunkSize, cfg.MaxChunkSize)
    }
    if cfg.GrowthFactor <= 1.0 {
        return nil, fmt.Errorf("slab: growth factor must be > 1.0, got %f", cfg.GrowthFactor)
    }
    if cfg.PageSize <= PageHeaderSize+cfg.MaxChunkSize {
        return nil, fmt.Errorf("slab: page size %d too small for max chunk size %d", cfg.PageSize, cfg.MaxChunkSize)
    }
    if cfg.MaxMemory <= 0 {
        return nil, errors.New("slab: max memory must be > 0")
    }
    if log == nil {
        log = zap.NewNop()
    }

    a := &Allocator{
        cfg:     cfg,
        mem:     arena.New(int(cfg.MaxMemory)),
        hooks:   hooks,
        reclaim: reclaim,
        log:     log,
    }

    size := cfg.MinChunkSize
    for {
        a.classes = append(a.classes, &Class{
            id:        ClassID(len(a.classes)),
            chunkSize: size,
            capacity:  (cfg.PageSize - PageHeaderSize) / size,
        })
        if size >= cfg.MaxChunkSize {
            break
        }
        next := int(float64(size) * cfg.GrowthFactor)
        if next <= size {
            next = size + 1
        }
        if next > cfg.MaxChunkSize {
            next = cfg.MaxChunkSize
        }
        size = next
    }
    a.log.Debug("slab allocator initialised", zap.Int("classes", len(a.classes)), zap.Int64("max_memory", cfg.MaxMemory))
    return a, nil
}

// IDForSize returns the smallest class whose chunk fits nbytes, or
// InvalidClassID when nbytes exceeds even the largest class.
func (a *Allocator) IDForSize(nbytes int) (ClassID, bool) {
    for _, c := range a.classes {
        if c.chunkSize >= nbytes {
            return c.id, true
        }
    }
    return InvalidClassID, false
}

// ItemSize returns the chunk size of class id.
func (a *Allocator) ItemSize(id ClassID) int {
    return a.classes[id].chunkSize
}

// SizeSetting returns the configured page size.
func (a *Allocator) SizeSetting() int { return a.cfg.PageSize }

// Bytes returns the whole chunk for h, from its first byte to its last; the
// caller locates header, key and value inside it by its own offsets.
func (a *Allocator) Bytes(h Handle) []byte {
    start := PageHeaderSize + int(h.ref.idx)*a.classes[h.class].chunkSize
    end := start + a.classes[h.class].chunkSize
    return h.ref.page.buf[start:end]
}

// Offset returns the byte offset of the chunk from the start of its owning
// page, satisfying `PageHeaderSize <= Offset < SizeSetting()`.
func (a *Allocator) Offset(h Handle) uint32 {
    return uint32(PageHeaderSize + int(h.ref.idx)*a.classes[h.class].chunkSize)
}

// PageMagic returns the owning page's sentinel, letting callers assert that
// a handle still points into a live page.
func (a *Allocator) PageMagic(h Handle) uint32 { return h.ref.page.magic }

// Get pops a free chunk from class id, growing the class (or reclaiming a
// tracked, refcount-zero chunk) if none is free.
func (a *Allocator) Get(id ClassID) (Handle, error) {
    c := a.classes[id]
    if len(c.free) == 0 {
        if !a.grow(c) {
            if h, ok := a.reclaimOne(c); ok {
                return h, nil
            }
            return Handle{}, ErrNoMemory
        }
    }
    ref := c.free[len(c.free)-1]
    c.free = c.free[:len(c.free)-1]
    return Handle{class: id, ref: ref}, nil
}

// Put returns a chunk to its class's freelist.
func (a *Allocator) Put(h Handle) {
    c := a.classes[h.class]
    c.free = append(c.free, h.ref)
    c.untrack(h.ref)
}

// AcquireRefcount pins the page owning h so the allocator's own bookkeeping
// agrees with the item layer's refcount.
func (a *Allocator) AcquireRefcount(h Handle) {
    h.ref.page.refcount++
}

// ReleaseRefcount is the inverse of AcquireRefcount; it is a defensive
// no-op when the page refcount is already zero, matching the item layer's
// own "only if refcount > 0" guard.
func (a *Allocator) ReleaseRefcount(h Handle) {
    if h.ref.page.refcount > 0 {
        h.ref.page.refcount--
    }
}

// Track registers owner (an opaque *item.Item) against h so that a future
// reclaim pass may consider it. Called by the item layer from Link.
func (a *Allocator) Track(h Handle, owner any) {
    h.ref.page.owners[h.ref.idx] = owner
}

// Untrack removes the tracked owner for h, called from Unlink before the
// chunk is actually returned via Put (Put also calls this defensively).
func (a *Allocator) Untrack(h Handle) {
    a.classes[h.class].untrack(h.ref)
}

func (c *Class) untrack(ref chunkRef) {
    ref.page.owners[ref.idx] = nil
}

// grow appends a new page to class c if the allocator's memory budget
// allows it, pushing all of its chunks onto the freelist. Returns false if
// the budget is exhausted.
func (a *Allocator) grow(c *Class) bool {
    buf := a.mem.Alloc(a.cfg.PageSize)
    if buf == nil {
        return false
    }
    a.nextPage++
    p := &page{
        id:       a.nextPage,
        magic:    pageMagic,
        buf:      buf,
        owners:   make([]any, c.capacity),
        capacity: c.capacity,
    }
    c.pages = append(c.pages, p)
    for i := 0; i < c.capacity; i++ {
        c.free = append(c.free, chunkRef{page: p, idx: int32(i)})
    }
    a.usedMem += int64(a.cfg.PageSize)
    if a.hooks.OnGrow != nil {
        a.hooks.OnGrow(c.id, a.cfg.PageSize)
    }
    if a.hooks.OnBytes != nil {
        a.hooks.OnBytes(a.usedMem)
    }
    a.log.Debug("slab class grew", zap.Int32("class", int32(c.id)), zap.Int("chunk_size", c.chunkSize), zap.Int("pages", len(c.pages)))
    return true
}

// Close releases all page memory at once.
func (a *Allocator) Close() {
    a.mem.Free()
    for _, c := range a.classes {
        c.pages = nil
        c.free = nil
    }
}
