// Package store defines the path-based storage abstraction the NFS layer
// serves from, plus the concrete backends under it (memory, local disk,
// Badger, S3).
//
// The protocol layer never touches a backend directly: it resolves a file
// handle to a path, then calls one of these operations. Paths are
// slash-separated, rooted at "/", and already in native (Go string) form;
// the UTF-16LE wire encoding is gone by the time a path reaches a store.
package store

import (
	"context"
	"time"

	"github.com/cespare/xxhash/v2"
)

// FileType classifies a stored object.
type FileType int

const (
	TypeNone FileType = iota
	TypeRegular
	TypeDirectory
	TypeSymlink
)

// FileInfo is the stat result for a single object. It is derived on demand
// and never cached across calls.
type FileInfo struct {
	Type   FileType
	Mode   uint32 // permission bits only; the type lives in Type
	Nlink  uint32
	UID    uint32
	GID    uint32
	Size   uint64
	FileID uint64
	Atime  time.Time
	Mtime  time.Time
	Ctime  time.Time
}

// Entry is one directory entry as returned by List, in a stable order.
type Entry struct {
	Name   string
	FileID uint64
}

// SetAttr carries the client-settable attribute subset. Nil fields are
// left unchanged; Size of zero truncates.
type SetAttr struct {
	Mode  *uint32
	UID   *uint32
	GID   *uint32
	Size  *uint64
	Atime *time.Time
	Mtime *time.Time
}

// FSStat is filesystem-wide usage, in blocks.
type FSStat struct {
	BlockSize   uint32
	TotalBlocks uint32
	FreeBlocks  uint32
	AvailBlocks uint32
}

// Store is the storage collaborator behind the NFS procedures.
//
// Completion contract: when a mutating call returns nil, the change is
// durable as far as the backend can make it; the protocol reports NFS_OK
// only for durable writes, and there is no later flush a client could
// observe.
//
// Implementations must be safe for concurrent use; calls for unrelated
// paths interleave freely.
type Store interface {
	// Stat returns the attributes of the object at path.
	Stat(ctx context.Context, path string) (*FileInfo, error)

	// SetAttr applies the non-nil fields of sa and returns the updated
	// attributes.
	SetAttr(ctx context.Context, path string, sa SetAttr) (*FileInfo, error)

	// List returns the entries of a directory in a stable order.
	List(ctx context.Context, path string) ([]Entry, error)

	// Read returns up to length bytes from offset. Reading at or past the
	// end of file returns a short (possibly empty) slice, not an error.
	Read(ctx context.Context, path string, offset uint64, length uint32) ([]byte, error)

	// Write stores data at offset, extending the file if needed.
	Write(ctx context.Context, path string, offset uint64, data []byte) error

	// Create makes an empty regular file with the given mode.
	Create(ctx context.Context, path string, mode uint32) error

	// Mkdir makes a directory with the given mode.
	Mkdir(ctx context.Context, path string, mode uint32) error

	// Symlink makes a symbolic link at path pointing at target.
	Symlink(ctx context.Context, path, target string) error

	// Readlink returns the target of a symbolic link.
	Readlink(ctx context.Context, path string) (string, error)

	// Remove deletes a regular file or symlink.
	Remove(ctx context.Context, path string) error

	// Rmdir deletes an empty directory.
	Rmdir(ctx context.Context, path string) error

	// Rename moves oldPath to newPath, replacing a non-directory target.
	Rename(ctx context.Context, oldPath, newPath string) error

	// Link makes newPath a hard link to oldPath.
	Link(ctx context.Context, oldPath, newPath string) error

	// StatFS returns filesystem-wide usage for the filesystem holding
	// path.
	StatFS(ctx context.Context, path string) (*FSStat, error)
}

// FileIDFor derives a stable 64-bit file id from a path. Backends without
// native inode numbers (local disk trees, object stores) use it so the
// same path always reports the same id within and across calls.
func FileIDFor(path string) uint64 {
	return xxhash.Sum64String(path)
}
