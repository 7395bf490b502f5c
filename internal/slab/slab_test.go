// © 2025 slabitem authors. MIT License.

package slab

import (
    "errors"
    "testing"
)

func smallConfig() Config {
    return Config{
        MinChunkSize: 64,
        MaxChunkSize: 128,
        GrowthFactor: 1.5,
        PageSize:     512,
        MaxMemory:    512 * 4,
    }
}

func TestIDForSizeAndItemSize(t *testing.T) {
    a, err := New(smallConfig(), Hooks{}, ReclaimHooks{}, nil)
    if err != nil {
        t.Fatalf("New: %v", err)
    }
    defer a.Close()

    id, ok := a.IDForSize(10)
    if !ok {
        t.Fatalf("IDForSize(10) reported no class")
    }
    if got := a.ItemSize(id); got != 64 {
        t.Fatalf("ItemSize(first class) = %d, want 64", got)
    }

    if _, ok := a.IDForSize(1 << 20); ok {
        t.Fatalf("IDForSize(too large) unexpectedly succeeded")
    }
}

func TestGetPutRoundTrip(t *testing.T) {
    a, err := New(smallConfig(), Hooks{}, ReclaimHooks{}, nil)
    if err != nil {
        t.Fatalf("New: %v", err)
    }
    defer a.Close()

    id, _ := a.IDForSize(10)
    h, err := a.Get(id)
    if err != nil {
        t.Fatalf("Get: %v", err)
    }
    buf := a.Bytes(h)
    if len(buf) != a.ItemSize(id) {
        t.Fatalf("Bytes() length = %d, want %d", len(buf), a.ItemSize(id))
    }
    buf[0] = 0xAB

    a.Put(h)
    h2, err := a.Get(id)
    if err != nil {
        t.Fatalf("Get after Put: %v", err)
    }
    if h2.ref != h.ref {
        t.Fatalf("Get after Put did not reuse the freed chunk")
    }
}

func TestGrowthAcrossPages(t *testing.T) {
    cfg := smallConfig()
    a, err := New(cfg, Hooks{}, ReclaimHooks{}, nil)
    if err != nil {
        t.Fatalf("New: %v", err)
    }
    defer a.Close()

    id, _ := a.IDForSize(10)
    cap := a.classes[id].capacity

    handles := make([]Handle, 0, cap+1)
    for i := 0; i < cap+1; i++ {
        h, err := a.Get(id)
        if err != nil {
            t.Fatalf("Get #%d: %v", i, err)
        }
        handles = append(handles, h)
    }
    if len(a.classes[id].pages) < 2 {
        t.Fatalf("expected class to have grown a second page, has %d", len(a.classes[id].pages))
    }
}

func TestOutOfMemoryWithoutReclaim(t *testing.T) {
    cfg := smallConfig()
    cfg.MaxMemory = 512 // exactly one page
    a, err := New(cfg, Hooks{}, ReclaimHooks{}, nil)
    if err != nil {
        t.Fatalf("New: %v", err)
    }
    defer a.Close()

    id, _ := a.IDForSize(10)
    cap := a.classes[id].capacity
    for i := 0; i < cap; i++ {
        if _, err := a.Get(id); err != nil {
            t.Fatalf("Get #%d: %v", i, err)
        }
    }
    if _, err := a.Get(id); !errors.Is(err, ErrNoMemory) {
        t.Fatalf("Get past budget = %v, want ErrNoMemory", err)
    }
}

func TestReclaimRecyclesTrackedZeroRefcountChunk(t *testing.T) {
    cfg := smallConfig()
    cfg.MaxMemory = 512 // exactly one page, forcing reclaim to engage

    refcounts := map[any]uint32{}
    reused := map[any]bool{}
    reclaim := ReclaimHooks{
        Refcount: func(owner any) uint32 { return refcounts[owner] },
        Reuse:    func(owner any) { reused[owner] = true },
    }

    a, err := New(cfg, Hooks{}, reclaim, nil)
    if err != nil {
        t.Fatalf("New: %v", err)
    }
    defer a.Close()

    id, _ := a.IDForSize(10)
    cap := a.classes[id].capacity

    owners := make([]*int, cap)
    for i := 0; i < cap; i++ {
        h, err := a.Get(id)
        if err != nil {
            t.Fatalf("Get #%d: %v", i, err)
        }
        owner := new(int)
        *owner = i
        owners[i] = owner
        refcounts[owner] = 0
        a.Track(h, owner)
    }

    // Every chunk is tracked with refcount 0, so the next Get must reclaim one
    // rather than returning ErrNoMemory.
    if _, err := a.Get(id); err != nil {
        t.Fatalf("Get with reclaimable chunks = %v, want nil error", err)
    }
    if len(reused) != 1 {
        t.Fatalf("expected exactly one Reuse call, got %d", len(reused))
    }
}

func TestReclaimSkipsNonZeroRefcount(t *testing.T) {
    cfg := smallConfig()
    cfg.MaxMemory = 512

    refcounts := map[any]uint32{}
    reclaim := ReclaimHooks{
        Refcount: func(owner any) uint32 { return refcounts[owner] },
        Reuse:    func(owner any) { t.Fatalf("Reuse called on a referenced owner") },
    }

    a, err := New(cfg, Hooks{}, reclaim, nil)
    if err != nil {
        t.Fatalf("New: %v", err)
    }
    defer a.Close()

    id, _ := a.IDForSize(10)
    cap := a.classes[id].capacity
    for i := 0; i < cap; i++ {
        h, err := a.Get(id)
        if err != nil {
            t.Fatalf("Get #%d: %v", i, err)
        }
        owner := new(int)
        refcounts[owner] = 1
        a.Track(h, owner)
    }

    if _, err := a.Get(id); !errors.Is(err, ErrNoMemory) {
        t.Fatalf("Get with only referenced chunks = %v, want ErrNoMemory", err)
    }
}
