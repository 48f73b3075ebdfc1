// Package handles owns the mapping between the opaque 32-byte file handles
// clients hold and paths on the backing store.
//
// The protocol is handle-oriented and stateless: a client obtains a handle
// once (LOOKUP, CREATE, MKDIR, SYMLINK or MNT) and presents it on every
// later call, possibly across server-visible gaps of any length. The table
// is therefore the only place handle identity lives, and it guarantees:
//
//   - the same live path always resolves to the same handle
//   - a handle stays valid across RENAME of its path (clients hold handles,
//     not paths)
//   - a handle whose path was removed resolves to ErrStale, never to a
//     generic failure
//
// Handles are minted from a per-boot random nonce plus a counter, so values
// never collide within a server lifetime and never survive a restart.
package handles

import (
	"encoding/binary"
	"errors"
	"strings"
	"sync"

	"github.com/google/uuid"
)

// Size is the fixed handle width on the wire (FHSIZE).
const Size = 32

// Handle is an opaque 32-byte file handle. Layout: 16-byte boot nonce,
// 8-byte big-endian mint counter, 8 zero bytes. Clients must treat it as
// opaque; the structure exists only to make minting collision-free.
type Handle [Size]byte

// ErrStale marks a handle whose referent no longer exists or that this
// server instance never issued. Procedures receiving it must answer with
// the stale-file-handle status before touching the store.
var ErrStale = errors.New("handles: stale file handle")

// Table is the bidirectional handle/path map. A single mutex guards both
// directions; call rates are bounded by media I/O, not table contention.
type Table struct {
	mu       sync.Mutex
	nonce    uuid.UUID
	next     uint64
	byPath   map[string]Handle
	byHandle map[Handle]string
}

// NewTable returns an empty table with a fresh boot nonce.
func NewTable() *Table {
	return &Table{
		nonce:    uuid.New(),
		next:     1,
		byPath:   make(map[string]Handle),
		byHandle: make(map[Handle]string),
	}
}

// HandleFor returns the handle for path, minting one on first sight.
// Repeated calls for the same live path return the same handle.
func (t *Table) HandleFor(path string) Handle {
	t.mu.Lock()
	defer t.mu.Unlock()

	if h, ok := t.byPath[path]; ok {
		return h
	}

	var h Handle
	copy(h[:16], t.nonce[:])
	binary.BigEndian.PutUint64(h[16:24], t.next)
	t.next++

	t.byPath[path] = h
	t.byHandle[h] = path
	return h
}

// PathFor resolves a handle to its current path. Handles that were never
// issued, or whose path has been invalidated, return ErrStale.
func (t *Table) PathFor(h Handle) (string, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	path, ok := t.byHandle[h]
	if !ok {
		return "", ErrStale
	}
	return path, nil
}

// Invalidate retires path's handle after REMOVE, RMDIR or a RENAME that
// clobbers it. The handle value is never reused; subsequent PathFor calls
// for it fail with ErrStale, and a later re-creation of the same path
// mints a fresh handle.
func (t *Table) Invalidate(path string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if h, ok := t.byPath[path]; ok {
		delete(t.byPath, path)
		delete(t.byHandle, h)
	}
}

// Reparent moves oldPath's mapping to newPath after RENAME, preserving the
// handle value. Descendant mappings are rewritten too: renaming a
// directory must keep handles to files inside it live.
func (t *Table) Reparent(oldPath, newPath string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	prefix := strings.TrimSuffix(oldPath, "/") + "/"
	for path, h := range t.byPath {
		var moved string
		switch {
		case path == oldPath:
			moved = newPath
		case strings.HasPrefix(path, prefix):
			moved = strings.TrimSuffix(newPath, "/") + "/" + path[len(prefix):]
		default:
			continue
		}
		delete(t.byPath, path)
		t.byPath[moved] = h
		t.byHandle[h] = moved
	}
}

// Len returns the number of live mappings.
func (t *Table) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.byPath)
}
