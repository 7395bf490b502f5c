// © 2025 slabitem authors. MIT License.

package assoc

import "testing"

func TestPutGetDelete(t *testing.T) {
    tbl := New(4)
    defer tbl.Destroy()

    k := []byte("hello")
    if _, ok := tbl.Get(k); ok {
        t.Fatalf("expected miss before Put")
    }

    tbl.Put(k, 42)
    v, ok := tbl.Get(k)
    if !ok || v.(int) != 42 {
        t.Fatalf("got (%v, %v), want (42, true)", v, ok)
    }

    if !tbl.Delete(k) {
        t.Fatalf("Delete reported no entry for an existing key")
    }
    if _, ok := tbl.Get(k); ok {
        t.Fatalf("expected miss after Delete")
    }
    if tbl.Delete(k) {
        t.Fatalf("Delete reported success for an already-removed key")
    }
}

func TestPutOverwritesSameKey(t *testing.T) {
    tbl := New(4)
    defer tbl.Destroy()

    k := []byte("a")
    tbl.Put(k, 1)
    tbl.Put(k, 2)
    if tbl.Len() != 1 {
        t.Fatalf("Len() = %d, want 1 after overwriting the same key", tbl.Len())
    }
    v, _ := tbl.Get(k)
    if v.(int) != 2 {
        t.Fatalf("Get() = %v, want 2", v)
    }
}

func TestKeyBytesAreCopied(t *testing.T) {
    tbl := New(4)
    defer tbl.Destroy()

    k := []byte("mutateme")
    tbl.Put(k, "v")
    k[0] = 'X'
    if _, ok := tbl.Get([]byte("mutateme")); !ok {
        t.Fatalf("mutating the caller's key slice after Put changed the stored entry")
    }
}

func TestCollisionChaining(t *testing.T) {
    tbl := New(1) // 2 buckets, forces collisions with enough keys
    defer tbl.Destroy()

    keys := [][]byte{[]byte("k0"), []byte("k1"), []byte("k2"), []byte("k3"), []byte("k4")}
    for i, k := range keys {
        tbl.Put(k, i)
    }
    if tbl.Len() != len(keys) {
        t.Fatalf("Len() = %d, want %d", tbl.Len(), len(keys))
    }
    for i, k := range keys {
        v, ok := tbl.Get(k)
        if !ok || v.(int) != i {
            t.Fatalf("Get(%s) = (%v, %v), want (%d, true)", k, v, ok, i)
        }
    }
}
