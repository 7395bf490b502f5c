// © 2025 slabitem authors. MIT License.

package item

import "context"

// LoaderFunc fetches the value for a missing key from whatever backs the
// store on a cache miss (a database, an L2 store, another service). It
// returns the relative exptime to store the value under, matching the
// exptime parameter Set/Alloc already take.
type LoaderFunc func(ctx context.Context, key []byte) (val []byte, exptime int64, err error)
