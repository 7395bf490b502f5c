// Package unsafehelpers centralises **all** unavoidable usage of the
// `unsafe` standard‑library package so that the rest of slabitem stays clean
// and easier to audit.  Every helper is documented with clear pre‑/post‑
// conditions.
//
// ⚠️  **DISCLAIMER**   These helpers deliberately break the Go memory‑safety
// model for the sake of zero‑allocation conversions.  Use ONLY inside this
// repository; they are not part of the public API and may change without
// notice.  Misuse will lead to subtle data‑races or garbage‑collector
// corruption.
//
// All functions are `go:linkname`‑free, cgo‑free and pure Go (1.20 or later,
// for unsafe.String/unsafe.StringData).
//
// © 2025 slabitem authors. MIT License.

package unsafehelpers

import "unsafe"

/* -------------------------------------------------------------------------
   1. Zero‑copy string/[]byte conversions
   ------------------------------------------------------------------------- */

// BytesToString converts a mutable byte slice to an immutable string without
// allocating.  The caller must guarantee that `b` will never be modified for
// the lifetime of the resulting string; otherwise the program exhibits
// undefined behaviour.
//
// Uses inside slabitem: parsing a value that lives inside a slab chunk as an
// integer (item.checkType) and turning a key into a singleflight key
// (item.GetOrLoad), both without copying the bytes onto the heap.
//
// DO NOT expose the returned string outside controlled scopes.
func BytesToString(b []byte) string {
    if len(b) == 0 {
        return ""
    }
    return unsafe.String(&b[0], len(b))
}

// StringToBytes re-interprets string data as a byte slice using unsafe.Pointer.
// The slice MUST remain read-only; writing to it will mutate immutable string storage and crash in future versions of Go.
func StringToBytes(s string) []byte {
    if len(s) == 0 {
        return nil
    }
    return unsafe.Slice(unsafe.StringData(s), len(s))
}

/* -------------------------------------------------------------------------
   2. Alignment helpers
   ------------------------------------------------------------------------- */

// AlignUp rounds x up to the nearest multiple of align (which must be a power
// of two).  No package in slabitem calls it at present; the slab class
// ladder and page sizes are not aligned.
func AlignUp(x, align uintptr) uintptr {
    return (x + align - 1) &^ (align - 1)
}

// IsPowerOfTwo returns true if x is a power of two (exactly one bit set).
func IsPowerOfTwo(x uintptr) bool {
    return x != 0 && (x&(x-1)) == 0
}
