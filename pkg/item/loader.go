package item

// loader.go implements a singleflight-based GetOrLoad convenience on top of
// Get/Set. It is not itself one of the item-layer primitives; it exists so
// callers don't have to hand-roll the thundering-herd guard every time they
// sit a cache in front of a slower backing store.
//
// © 2025 slabitem authors. MIT License.

import (
    "context"

    "golang.org/x/sync/singleflight"

    "github.com/memstore/slabitem/internal/unsafehelpers"
)

type loaderGroup struct {
    g singleflight.Group
}

func newLoaderGroup() *loaderGroup {
    return &loaderGroup{}
}

// GetOrLoad returns the value stored under key, calling loader exactly once
// across concurrent callers to fill a miss and storing its result before
// returning it.
func (s *Store) GetOrLoad(ctx context.Context, key []byte, loader LoaderFunc) ([]byte, error) {
    if it, ok := s.Get(key); ok {
        val := append([]byte(nil), it.Data()...)
        s.Release(it)
        return val, nil
    }

    k := unsafehelpers.BytesToString(key)
    res, err, _ := s.loaders.g.Do(k, func() (any, error) {
        return s.loadAndStore(ctx, key, loader)
    })
    if err != nil {
        return nil, err
    }
    return res.([]byte), nil
}

func (s *Store) loadAndStore(ctx context.Context, key []byte, loader LoaderFunc) ([]byte, error) {
    val, exptime, err := loader(ctx, key)
    if err != nil {
        return nil, err
    }
    if err := s.Set(key, val, exptime); err != nil {
        return nil, err
    }
    return val, nil
}
