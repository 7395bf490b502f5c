// © 2025 slabitem authors. MIT License.

package item

import "errors"

// Result is the small enum of outcomes the store's operations are defined
// in terms of (OK / NOT_FOUND / CAS_MISMATCH / EOVERSIZED / ENOMEM).
type Result int

const (
    ResultOK Result = iota
    ResultNotFound
    ResultCASMismatch
    ResultOversized
    ResultNoMemory
)

func (r Result) String() string {
    switch r {
    case ResultOK:
        return "OK"
    case ResultNotFound:
        return "NOT_FOUND"
    case ResultCASMismatch:
        return "CAS_MISMATCH"
    case ResultOversized:
        return "EOVERSIZED"
    case ResultNoMemory:
        return "ENOMEM"
    default:
        return "UNKNOWN"
    }
}

var (
    // ErrOversized is returned when ntotal(klen, vlen) exceeds every slab
    // class, or (for Update) when it no longer fits the item's existing
    // class.
    ErrOversized = errors.New("item: value too large for any slab class")
    // ErrNotFound is returned when a key has no linked item.
    ErrNotFound = errors.New("item: key not found")
    // ErrCASMismatch is returned when a Cas token does not match the
    // linked item's current CAS value.
    ErrCASMismatch = errors.New("item: cas token mismatch")
    // ErrNoMemory is returned when the slab allocator cannot serve an
    // allocation request even after attempting reclamation.
    ErrNoMemory = errors.New("item: out of memory")
)

// ResultOf classifies err into a Result, for callers that prefer to switch
// on an enum rather than use errors.Is.
func ResultOf(err error) Result {
    switch {
    case err == nil:
        return ResultOK
    case errors.Is(err, ErrNotFound):
        return ResultNotFound
    case errors.Is(err, ErrCASMismatch):
        return ResultCASMismatch
    case errors.Is(err, ErrOversized):
        return ResultOversized
    case errors.Is(err, ErrNoMemory):
        return ResultNoMemory
    default:
        return ResultOK
    }
}
