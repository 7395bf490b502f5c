package item

// store.go implements the data-plane operations: Alloc, Get, Set, Cas,
// Annex (append/prepend), Update, Delete, and the link/unlink/reuse
// linkage primitives underneath them. Store is the single type that wires
// the slab allocator and the hash index together and exposes the public
// surface.
//
// © 2025 slabitem authors. MIT License.

import (
    "errors"
    "math"

    "go.uber.org/zap"

    "github.com/memstore/slabitem/internal/assoc"
    "github.com/memstore/slabitem/internal/slab"
)

// Store is the item layer: a single-threaded, unsharded collection of
// linked items addressed by key. Nothing in Store is safe for concurrent
// use; callers sharing a Store across goroutines must serialize every
// operation behind their own exclusion.
type Store struct {
    slabs   *slab.Allocator
    index   *assoc.Table
    useCAS  bool
    casCtr  uint64
    clock   func() int64
    metrics metricsSink
    stats   *statsSink
    log     *zap.Logger
    loaders *loaderGroup
    evictCb EvictCallback
}

// Setup constructs a Store: the hash index, the CAS counter, the metrics
// binding, and the slab allocator, all wired in one place.
func Setup(opts ...Option) (*Store, error) {
    cfg := defaultConfig()
    for _, o := range opts {
        o(cfg)
    }
    if err := cfg.validate(); err != nil {
        return nil, err
    }

    stats := &statsSink{next: newMetricsSink(cfg.registry)}
    s := &Store{
        index:   assoc.New(cfg.hashPower),
        useCAS:  cfg.useCAS,
        clock:   cfg.clock,
        metrics: stats,
        stats:   stats,
        log:     cfg.logger,
        loaders: newLoaderGroup(),
        evictCb: cfg.evictCb,
    }

    reclaim := slab.ReclaimHooks{
        Refcount: func(owner any) uint32 { return owner.(*Item).refcount },
        Reuse:    func(owner any) { s.reuse(owner.(*Item)) },
    }
    alloc, err := slab.New(cfg.slabCfg, slabHooksFor(s.metrics), reclaim, cfg.logger)
    if err != nil {
        return nil, err
    }
    s.slabs = alloc
    return s, nil
}

// Teardown destroys the index and releases every slab page. Items handed
// out by Get become invalid; Teardown is a lifecycle operation for the
// very end of a store's life, not a data-plane one.
func (s *Store) Teardown() {
    s.index.Destroy()
    s.slabs.Close()
}

func (s *Store) now() int64 { return s.clock() }

func (s *Store) nextCAS() uint64 {
    if !s.useCAS {
        return 0
    }
    s.casCtr++
    return s.casCtr
}

func (s *Store) slabID(klen uint8, vlen uint32) (slab.ClassID, bool) {
    return s.slabs.IDForSize(ntotal(klen, vlen, s.useCAS))
}

// Alloc reserves a chunk large enough for key/vlen/exptime and returns an
// unlinked, singly-referenced item. The caller owns that reference and must
// balance it with Release.
func (s *Store) Alloc(key []byte, exptime int64, vlen uint32) (*Item, error) {
    if len(key) == 0 || len(key) > math.MaxUint8 {
        return nil, ErrOversized
    }
    id, ok := s.slabID(uint8(len(key)), vlen)
    if !ok {
        return nil, ErrOversized
    }
    h, err := s.slabs.Get(id)
    if err != nil {
        s.metrics.incReqEx()
        if errors.Is(err, slab.ErrNoMemory) {
            return nil, ErrNoMemory
        }
        return nil, err
    }

    it := &Item{
        magic:  itemMagic,
        handle: h,
        class:  id,
        offset: s.slabs.Offset(h),
        chunk:  s.slabs.Bytes(h),
        klen:   uint8(len(key)),
        vlen:   vlen,
        exptime: exptime,
    }
    if s.useCAS {
        it.flags |= flagHasCAS
    }
    copy(it.Key(), key)
    s.acquire(it)
    s.metrics.incReq()
    return it, nil
}

func (s *Store) acquire(it *Item) {
    it.refcount++
    s.slabs.AcquireRefcount(it.handle)
}

// Release drops one reference; an item with zero references that is not
// linked is returned to the slab allocator.
func (s *Store) Release(it *Item) {
    if it.refcount > 0 {
        it.refcount--
        s.slabs.ReleaseRefcount(it.handle)
    }
    if it.refcount == 0 && !it.isLinked() {
        s.free(it)
    }
}

func (s *Store) free(it *Item) {
    if it.inFreeQ() {
        panic("item: double free")
    }
    it.flags |= flagInFreeQ
    s.slabs.Put(it.handle)
    s.metrics.incRemove()
}

// link makes it discoverable under its own key, assigning a fresh CAS token
// and recording it with the slab allocator for future reclaim
// consideration.
func (s *Store) link(it *Item) {
    if it.isLinked() {
        panic("item: link of already-linked item")
    }
    if it.inFreeQ() {
        panic("item: link of freed item")
    }
    it.flags |= flagLinked
    it.cas = s.nextCAS()
    s.index.Put(it.Key(), it)
    s.slabs.Track(it.handle, it)
    s.metrics.incLink()
    s.metrics.addCurr(1)
    s.metrics.addKeyValBytes(int64(it.klen) + int64(it.vlen))
    s.metrics.addValBytes(int64(it.vlen))
}

// unlink removes it from the index. Per the Open Question resolution
// recorded in the design ledger, the whole operation (counters included) is
// gated on is_linked, so calling unlink twice is a safe no-op rather than a
// double-decrement.
func (s *Store) unlink(it *Item) {
    if !it.isLinked() {
        return
    }
    it.flags &^= flagLinked
    s.index.Delete(it.Key())
    s.slabs.Untrack(it.handle)
    s.metrics.incUnlink()
    s.metrics.addCurr(-1)
    s.metrics.addKeyValBytes(-(int64(it.klen) + int64(it.vlen)))
    s.metrics.addValBytes(-int64(it.vlen))
    if it.refcount == 0 {
        s.free(it)
    }
}

// relink atomically (with respect to observers of the index, since nothing
// here yields) replaces old with new under old's key.
func (s *Store) relink(old, new *Item) {
    s.unlink(old)
    s.link(new)
}

// reuse is the slab allocator's ReclaimHooks.Reuse callback: it unlinks a
// tracked, refcount-zero item without freeing its chunk, which is about to
// be handed directly to a new allocation. Counters are deliberately not
// touched here — link/unlink bookkeeping never sees a reclaim; the slab
// eviction counter accounts for it.
func (s *Store) reuse(it *Item) {
    if it.inFreeQ() {
        panic("item: reuse of freed item")
    }
    if !it.isLinked() {
        panic("item: reuse of unlinked item")
    }
    if it.refcount != 0 {
        panic("item: reuse of referenced item")
    }
    if s.evictCb != nil {
        s.evictCb(it.Key(), it.Data())
    }
    it.flags &^= flagLinked
    s.index.Delete(it.Key())
}

// Get looks up key, transparently unlinking and reporting a miss for an
// item whose exptime has passed (lazy expiration; there is no background
// scanner). A returned item holds one reference the caller must Release.
func (s *Store) Get(key []byte) (*Item, bool) {
    v, ok := s.index.Get(key)
    if !ok {
        return nil, false
    }
    it := v.(*Item)
    if it.exptime != 0 && it.exptime <= s.now() {
        s.unlink(it)
        return nil, false
    }
    s.acquire(it)
    return it, true
}

// Set unconditionally stores val under key, replacing any existing linked
// item.
func (s *Store) Set(key, val []byte, exptime int64) error {
    nit, err := s.Alloc(key, exptime, uint32(len(val)))
    if err != nil {
        return err
    }
    copy(nit.Data(), val)
    checkType(nit)

    if oit, found := s.Get(key); found {
        s.relink(oit, nit)
        s.Release(oit)
    } else {
        s.link(nit)
    }
    s.Release(nit)
    return nil
}

// Cas stores val under key only if token matches the currently linked
// item's CAS value. The new item is minted a fresh CAS by relink/link, same
// as Set — a write, once accepted, always advances the token.
func (s *Store) Cas(key, val []byte, exptime int64, token uint64) error {
    oit, found := s.Get(key)
    if !found {
        return ErrNotFound
    }
    if token != oit.cas {
        s.Release(oit)
        return ErrCASMismatch
    }

    nit, err := s.Alloc(key, exptime, uint32(len(val)))
    if err != nil {
        s.Release(oit)
        return err
    }
    copy(nit.Data(), val)
    checkType(nit)

    s.relink(oit, nit)
    s.Release(oit)
    s.Release(nit)
    return nil
}

// Annex appends (appendFlag=true) or prepends (appendFlag=false) val to the
// value currently stored under key. When the new total still fits the
// item's existing slab class and its current alignment matches the
// requested direction, the bytes are written in place; otherwise a new item
// is allocated and relinked.
func (s *Store) Annex(key, val []byte, appendFlag bool) error {
    oit, found := s.Get(key)
    if !found {
        return ErrNotFound
    }
    total := oit.vlen + uint32(len(val))
    id, ok := s.slabID(oit.klen, total)
    if !ok {
        s.Release(oit)
        return ErrOversized
    }

    if appendFlag {
        if id == oit.class && !oit.raligned() {
            base := oit.dataStart() + int(oit.vlen)
            copy(oit.chunk[base:base+len(val)], val)
            oit.vlen = total
        } else {
            nit, err := s.Alloc(key, oit.exptime, total)
            if err != nil {
                s.Release(oit)
                return err
            }
            data := nit.Data()
            copy(data[:oit.vlen], oit.Data())
            copy(data[oit.vlen:], val)
            checkType(nit)
            s.relink(oit, nit)
            s.Release(nit)
            s.Release(oit)
            return nil
        }
    } else {
        if id == oit.class && oit.raligned() {
            base := len(oit.chunk) - int(oit.vlen)
            copy(oit.chunk[base-len(val):base], val)
            oit.vlen = total
        } else {
            nit, err := s.Alloc(key, oit.exptime, total)
            if err != nil {
                s.Release(oit)
                return err
            }
            nit.flags |= flagRaligned
            data := nit.Data()
            copy(data[len(val):], oit.Data())
            copy(data[:len(val)], val)
            checkType(nit)
            s.relink(oit, nit)
            s.Release(nit)
            s.Release(oit)
            return nil
        }
    }

    s.metrics.addKeyValBytes(int64(len(val)))
    s.metrics.addValBytes(int64(len(val)))
    oit.cas = s.nextCAS()
    checkType(oit)
    s.Release(oit)
    return nil
}

// Update overwrites a currently-held item's value in place, provided the
// new value's size still maps to the item's existing slab class. It does
// not touch linkage or CAS.
func (s *Store) Update(it *Item, val []byte) error {
    id, ok := s.slabID(it.klen, uint32(len(val)))
    if !ok || id != it.class {
        return ErrOversized
    }
    if it.isLinked() {
        delta := int64(len(val)) - int64(it.vlen)
        s.metrics.addKeyValBytes(delta)
        s.metrics.addValBytes(delta)
    }
    it.vlen = uint32(len(val))
    copy(it.Data(), val)
    checkType(it)
    return nil
}

// Delete unlinks and releases the item stored under key. The chunk frees
// when the refcount hits zero — typically immediately, since Get took the
// only outstanding reference.
func (s *Store) Delete(key []byte) error {
    it, found := s.Get(key)
    if !found {
        return ErrNotFound
    }
    s.unlink(it)
    s.Release(it)
    return nil
}
