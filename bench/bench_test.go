// Package bench provides reproducible micro-benchmarks for the slabitem
// item store. Run via: go test ./bench -bench=. -benchmem -cpu 1,4,16
//
// The benchmarks intentionally use a single key/value shape so results are
// comparable across versions:
//   • Key   – 8 raw bytes (a uint64 fixed-endian encoding)
//   • Value – 64 bytes
//
// We measure:
//   1. Set          – write-only workload
//   2. Get          – read-only workload (after warm-up)
//   3. GetParallel  – highly concurrent reads, externally serialized with a
//      single mutex (the item layer itself never locks; callers sharing a
//      Store across goroutines must provide their own exclusion)
//   4. GetOrLoad    – 90% hits, 10% misses with loader cost
//
// NOTE: Unit tests live elsewhere; this file is only for performance.
//
// © 2025 slabitem authors. MIT License.
package bench

import (
    "context"
    "encoding/binary"
    "math/rand"
    "runtime"
    "sync"
    "sync/atomic"
    "testing"

    "github.com/memstore/slabitem/pkg/item"
)

const keys = 1 << 16 // distinct keys in the benchmark dataset

var ds = func() [][]byte {
    arr := make([][]byte, keys)
    for i := range arr {
        b := make([]byte, 8)
        binary.LittleEndian.PutUint64(b, rand.Uint64())
        arr[i] = b
    }
    return arr
}()

var value64 = make([]byte, 64)

func newTestStore(b *testing.B) *item.Store {
    s, err := item.Setup(item.WithHashPower(18))
    if err != nil {
        b.Fatalf("item setup: %v", err)
    }
    return s
}

func BenchmarkSet(b *testing.B) {
    s := newTestStore(b)
    defer s.Teardown()
    b.ReportAllocs()
    b.ResetTimer()
    for i := 0; i < b.N; i++ {
        key := ds[i&(keys-1)]
        _ = s.Set(key, value64, 0)
    }
}

func BenchmarkGet(b *testing.B) {
    s := newTestStore(b)
    defer s.Teardown()
    for _, k := range ds {
        _ = s.Set(k, value64, 0)
    }
    loader := func(ctx context.Context, key []byte) ([]byte, int64, error) {
        return value64, 0, nil
    }
    b.ReportAllocs()
    b.ResetTimer()
    for i := 0; i < b.N; i++ {
        k := ds[i&(keys-1)]
        _, _ = s.GetOrLoad(context.Background(), k, loader)
    }
}

func BenchmarkGetParallel(b *testing.B) {
    s := newTestStore(b)
    defer s.Teardown()
    for _, k := range ds {
        _ = s.Set(k, value64, 0)
    }
    var mu sync.Mutex
    loader := func(ctx context.Context, key []byte) ([]byte, int64, error) {
        return value64, 0, nil
    }
    b.ReportAllocs()
    b.ResetTimer()
    b.RunParallel(func(pb *testing.PB) {
        idx := rand.Intn(keys)
        for pb.Next() {
            idx = (idx + 1) & (keys - 1)
            mu.Lock()
            _, _ = s.GetOrLoad(context.Background(), ds[idx], loader)
            mu.Unlock()
        }
    })
}

func BenchmarkGetOrLoad(b *testing.B) {
    s := newTestStore(b)
    defer s.Teardown()
    for i, k := range ds {
        if i%10 != 0 { // 90% fill
            _ = s.Set(k, value64, 0)
        }
    }
    var loaderCnt atomic.Uint64
    loader := func(ctx context.Context, key []byte) ([]byte, int64, error) {
        loaderCnt.Add(1)
        return value64, 0, nil
    }
    b.ReportAllocs()
    b.ResetTimer()
    for i := 0; i < b.N; i++ {
        k := ds[i&(keys-1)]
        _, _ = s.GetOrLoad(context.Background(), k, loader)
    }
    b.ReportMetric(float64(loaderCnt.Load())/float64(b.N)*100, "miss-%")
}

func init() {
    rand.Seed(42)
    runtime.GOMAXPROCS(runtime.NumCPU())
}
