// Package badger keeps a media library inside a BadgerDB key-value
// store, surviving restarts without needing a real filesystem layout.
//
// Keyspace:
//
//	m:<path>        file metadata, JSON-encoded
//	c:<path>        file content, raw bytes
//	d:<dir>/<name>  directory entry marker, empty value
//
// Paths are clean, slash-separated and rooted at "/". Directory
// listings are prefix scans over the d: namespace, so a directory's
// entries are adjacent in the LSM tree.
package badger

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	gopath "path"
	"sort"
	"strings"
	"time"

	badger "github.com/dgraph-io/badger/v4"

	"github.com/konkers/prolink-nfs/internal/logger"
	"github.com/konkers/prolink-nfs/pkg/store"
)

// Store implements store.Store on a Badger database.
type Store struct {
	db *badger.DB
}

// meta is the persisted per-object metadata record.
type meta struct {
	Type   store.FileType `json:"type"`
	Mode   uint32         `json:"mode"`
	Size   uint64         `json:"size"`
	Target string         `json:"target,omitempty"` // symlink destination
	Atime  time.Time      `json:"atime"`
	Mtime  time.Time      `json:"mtime"`
	Ctime  time.Time      `json:"ctime"`
}

// Options configures a badger-backed store.
type Options struct {
	// Path is the directory Badger keeps its files in.
	Path string

	// InMemory runs Badger without touching disk, for tests.
	InMemory bool
}

// New opens (or creates) the database and ensures the root directory
// record exists.
func New(opts Options) (*Store, error) {
	var badgerOpts badger.Options
	if opts.InMemory {
		badgerOpts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		badgerOpts = badger.DefaultOptions(opts.Path)
	}
	badgerOpts = badgerOpts.WithLoggingLevel(badger.WARNING)

	db, err := badger.Open(badgerOpts)
	if err != nil {
		return nil, fmt.Errorf("opening badger at %q: %w", opts.Path, err)
	}

	s := &Store{db: db}
	if err := s.ensureRoot(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// Close releases the database.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) ensureRoot() error {
	return s.db.Update(func(txn *badger.Txn) error {
		_, err := txn.Get(metaKey("/"))
		if err == nil {
			return nil
		}
		if !errors.Is(err, badger.ErrKeyNotFound) {
			return err
		}
		now := time.Now()
		return putMeta(txn, "/", &meta{
			Type:  store.TypeDirectory,
			Mode:  0o755,
			Atime: now,
			Mtime: now,
			Ctime: now,
		})
	})
}

// ============================================================================
// Keys
// ============================================================================

func metaKey(path string) []byte {
	return []byte("m:" + path)
}

func contentKey(path string) []byte {
	return []byte("c:" + path)
}

// direntPrefix is the scan prefix for a directory's entries.
func direntPrefix(dir string) []byte {
	if dir == "/" {
		return []byte("d:/")
	}
	return []byte("d:" + dir + "/")
}

func direntKey(dir, name string) []byte {
	return append(direntPrefix(dir), name...)
}

// ============================================================================
// Transaction helpers
// ============================================================================

func getMeta(txn *badger.Txn, path string) (*meta, error) {
	item, err := txn.Get(metaKey(path))
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	var m meta
	err = item.Value(func(val []byte) error {
		return json.Unmarshal(val, &m)
	})
	if err != nil {
		return nil, fmt.Errorf("decoding metadata for %q: %w", path, err)
	}
	return &m, nil
}

func putMeta(txn *badger.Txn, path string, m *meta) error {
	data, err := json.Marshal(m)
	if err != nil {
		return fmt.Errorf("encoding metadata for %q: %w", path, err)
	}
	return txn.Set(metaKey(path), data)
}

// requireDir fails unless path exists and is a directory.
func requireDir(txn *badger.Txn, path string) (*meta, error) {
	m, err := getMeta(txn, path)
	if err != nil {
		return nil, err
	}
	if m.Type != store.TypeDirectory {
		return nil, store.ErrNotDir
	}
	return m, nil
}

// prepareChild validates the parent directory and checks the child slot
// is free. Returns the parent path.
func prepareChild(txn *badger.Txn, path string) (string, error) {
	parent := gopath.Dir(path)
	if _, err := requireDir(txn, parent); err != nil {
		return "", err
	}
	if _, err := getMeta(txn, path); err == nil {
		return "", store.ErrExist
	} else if !errors.Is(err, store.ErrNotFound) {
		return "", err
	}
	return parent, nil
}

func getContent(txn *badger.Txn, path string) ([]byte, error) {
	item, err := txn.Get(contentKey(path))
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return item.ValueCopy(nil)
}

func hasEntries(txn *badger.Txn, dir string) (bool, error) {
	it := txn.NewIterator(badger.IteratorOptions{Prefix: direntPrefix(dir)})
	defer it.Close()
	it.Rewind()
	return it.Valid(), nil
}

// ============================================================================
// store.Store implementation
// ============================================================================

func (s *Store) Stat(_ context.Context, path string) (*store.FileInfo, error) {
	var info *store.FileInfo
	err := s.db.View(func(txn *badger.Txn) error {
		m, err := getMeta(txn, path)
		if err != nil {
			return err
		}
		info = fileInfo(path, m)
		return nil
	})
	return info, err
}

func (s *Store) SetAttr(_ context.Context, path string, sa store.SetAttr) (*store.FileInfo, error) {
	var info *store.FileInfo
	err := s.db.Update(func(txn *badger.Txn) error {
		m, err := getMeta(txn, path)
		if err != nil {
			return err
		}

		if sa.Mode != nil {
			m.Mode = *sa.Mode & 0o7777
		}
		if sa.Size != nil {
			if m.Type == store.TypeDirectory {
				return store.ErrIsDir
			}
			content, err := getContent(txn, path)
			if err != nil {
				return err
			}
			content = resize(content, *sa.Size)
			if err := txn.Set(contentKey(path), content); err != nil {
				return err
			}
			m.Size = *sa.Size
			m.Mtime = time.Now()
		}
		if sa.Atime != nil {
			m.Atime = *sa.Atime
		}
		if sa.Mtime != nil {
			m.Mtime = *sa.Mtime
		}
		m.Ctime = time.Now()

		if err := putMeta(txn, path, m); err != nil {
			return err
		}
		info = fileInfo(path, m)
		return nil
	})
	return info, err
}

func (s *Store) List(_ context.Context, path string) ([]store.Entry, error) {
	var entries []store.Entry
	err := s.db.View(func(txn *badger.Txn) error {
		if _, err := requireDir(txn, path); err != nil {
			return err
		}

		prefix := direntPrefix(path)
		it := txn.NewIterator(badger.IteratorOptions{Prefix: prefix})
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			name := string(it.Item().Key()[len(prefix):])
			entries = append(entries, store.Entry{
				Name:   name,
				FileID: store.FileIDFor(joinPath(path, name)),
			})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name < entries[j].Name })
	return entries, nil
}

func (s *Store) Read(_ context.Context, path string, offset uint64, length uint32) ([]byte, error) {
	var data []byte
	err := s.db.View(func(txn *badger.Txn) error {
		m, err := getMeta(txn, path)
		if err != nil {
			return err
		}
		if m.Type == store.TypeDirectory {
			return store.ErrIsDir
		}

		content, err := getContent(txn, path)
		if err != nil {
			return err
		}
		if offset >= uint64(len(content)) {
			data = []byte{}
			return nil
		}
		end := offset + uint64(length)
		if end > uint64(len(content)) {
			end = uint64(len(content))
		}
		data = append([]byte(nil), content[offset:end]...)
		return nil
	})
	return data, err
}

func (s *Store) Write(_ context.Context, path string, offset uint64, data []byte) error {
	return s.db.Update(func(txn *badger.Txn) error {
		m, err := getMeta(txn, path)
		if err != nil {
			return err
		}
		if m.Type == store.TypeDirectory {
			return store.ErrIsDir
		}

		content, err := getContent(txn, path)
		if err != nil {
			return err
		}
		end := offset + uint64(len(data))
		if end > uint64(len(content)) {
			content = resize(content, end)
		}
		copy(content[offset:], data)

		if err := txn.Set(contentKey(path), content); err != nil {
			return err
		}
		m.Size = uint64(len(content))
		m.Mtime = time.Now()
		return putMeta(txn, path, m)
	})
}

func (s *Store) Create(_ context.Context, path string, mode uint32) error {
	return s.create(path, &meta{Type: store.TypeRegular, Mode: mode & 0o7777})
}

func (s *Store) Mkdir(_ context.Context, path string, mode uint32) error {
	return s.create(path, &meta{Type: store.TypeDirectory, Mode: mode & 0o7777})
}

func (s *Store) Symlink(_ context.Context, path, target string) error {
	return s.create(path, &meta{
		Type:   store.TypeSymlink,
		Mode:   0o777,
		Size:   uint64(len(target)),
		Target: target,
	})
}

func (s *Store) create(path string, m *meta) error {
	return s.db.Update(func(txn *badger.Txn) error {
		parent, err := prepareChild(txn, path)
		if err != nil {
			return err
		}

		now := time.Now()
		m.Atime, m.Mtime, m.Ctime = now, now, now
		if err := putMeta(txn, path, m); err != nil {
			return err
		}
		return txn.Set(direntKey(parent, gopath.Base(path)), nil)
	})
}

func (s *Store) Readlink(_ context.Context, path string) (string, error) {
	var target string
	err := s.db.View(func(txn *badger.Txn) error {
		m, err := getMeta(txn, path)
		if err != nil {
			return err
		}
		if m.Type != store.TypeSymlink {
			return store.ErrNotSupported
		}
		target = m.Target
		return nil
	})
	return target, err
}

func (s *Store) Remove(_ context.Context, path string) error {
	return s.db.Update(func(txn *badger.Txn) error {
		m, err := getMeta(txn, path)
		if err != nil {
			return err
		}
		if m.Type == store.TypeDirectory {
			return store.ErrIsDir
		}
		return deleteObject(txn, path)
	})
}

func (s *Store) Rmdir(_ context.Context, path string) error {
	return s.db.Update(func(txn *badger.Txn) error {
		if _, err := requireDir(txn, path); err != nil {
			return err
		}
		if path == "/" {
			return store.ErrPermission
		}
		populated, err := hasEntries(txn, path)
		if err != nil {
			return err
		}
		if populated {
			return store.ErrNotEmpty
		}
		return deleteObject(txn, path)
	})
}

func deleteObject(txn *badger.Txn, path string) error {
	if err := txn.Delete(metaKey(path)); err != nil {
		return err
	}
	if err := txn.Delete(contentKey(path)); err != nil && !errors.Is(err, badger.ErrKeyNotFound) {
		return err
	}
	return txn.Delete(direntKey(gopath.Dir(path), gopath.Base(path)))
}

func (s *Store) Rename(_ context.Context, oldPath, newPath string) error {
	return s.db.Update(func(txn *badger.Txn) error {
		m, err := getMeta(txn, oldPath)
		if err != nil {
			return err
		}
		// Same-path renames are no-ops; a rename into the source's own
		// subtree would orphan the whole keyspace under it.
		if newPath == oldPath {
			return nil
		}
		if strings.HasPrefix(newPath, oldPath+"/") {
			return store.ErrInvalid
		}
		if _, err := requireDir(txn, gopath.Dir(newPath)); err != nil {
			return err
		}

		if target, err := getMeta(txn, newPath); err == nil {
			if err := checkClobber(txn, m, target, newPath); err != nil {
				return err
			}
			if err := deleteObject(txn, newPath); err != nil {
				return err
			}
		} else if !errors.Is(err, store.ErrNotFound) {
			return err
		}

		if m.Type == store.TypeDirectory {
			if err := moveSubtree(txn, oldPath, newPath); err != nil {
				return err
			}
		}
		return moveObject(txn, oldPath, newPath, m)
	})
}

// checkClobber enforces the replace rules: only an empty directory may
// replace a directory, and a directory may only be replaced by one.
func checkClobber(txn *badger.Txn, src, dst *meta, dstPath string) error {
	if dst.Type == store.TypeDirectory {
		if src.Type != store.TypeDirectory {
			return store.ErrIsDir
		}
		populated, err := hasEntries(txn, dstPath)
		if err != nil {
			return err
		}
		if populated {
			return store.ErrNotEmpty
		}
		return nil
	}
	if src.Type == store.TypeDirectory {
		return store.ErrNotDir
	}
	return nil
}

// moveSubtree rewrites every descendant key of a directory under its
// new path. Keys are collected before writing since the iterator must
// not observe its own writes.
func moveSubtree(txn *badger.Txn, oldPath, newPath string) error {
	type renameKey struct{ old, new []byte }
	var moves []renameKey

	for _, ns := range []string{"m:", "c:", "d:"} {
		oldPrefix := []byte(ns + oldPath + "/")
		newPrefix := ns + newPath + "/"

		it := txn.NewIterator(badger.IteratorOptions{Prefix: oldPrefix})
		for it.Rewind(); it.Valid(); it.Next() {
			key := it.Item().KeyCopy(nil)
			moves = append(moves, renameKey{
				old: key,
				new: append([]byte(newPrefix), key[len(oldPrefix):]...),
			})
		}
		it.Close()
	}

	for _, mv := range moves {
		item, err := txn.Get(mv.old)
		if err != nil {
			return err
		}
		val, err := item.ValueCopy(nil)
		if err != nil {
			return err
		}
		if err := txn.Set(mv.new, val); err != nil {
			return err
		}
		if err := txn.Delete(mv.old); err != nil {
			return err
		}
	}
	return nil
}

func moveObject(txn *badger.Txn, oldPath, newPath string, m *meta) error {
	content, err := getContent(txn, oldPath)
	if err != nil {
		return err
	}

	if err := deleteObject(txn, oldPath); err != nil {
		return err
	}
	m.Ctime = time.Now()
	if err := putMeta(txn, newPath, m); err != nil {
		return err
	}
	if content != nil {
		if err := txn.Set(contentKey(newPath), content); err != nil {
			return err
		}
	}
	return txn.Set(direntKey(gopath.Dir(newPath), gopath.Base(newPath)), nil)
}

// Link is not expressible in a path-keyed schema without an inode
// indirection this backend deliberately avoids; the DJ hardware never
// hard-links.
func (s *Store) Link(_ context.Context, oldPath, newPath string) error {
	logger.Debug("badger store: LINK %s -> %s rejected", oldPath, newPath)
	return store.ErrNotSupported
}

func (s *Store) StatFS(_ context.Context, _ string) (*store.FSStat, error) {
	lsm, vlog := s.db.Size()
	used := uint32((lsm + vlog) / 4096)
	total := uint32(1 << 22)
	free := total - used
	if used > total {
		free = 0
	}
	return &store.FSStat{
		BlockSize:   4096,
		TotalBlocks: total,
		FreeBlocks:  free,
		AvailBlocks: free,
	}, nil
}

// ============================================================================
// Helpers
// ============================================================================

func fileInfo(path string, m *meta) *store.FileInfo {
	nlink := uint32(1)
	if m.Type == store.TypeDirectory {
		nlink = 2
	}
	return &store.FileInfo{
		Type:   m.Type,
		Mode:   m.Mode,
		Nlink:  nlink,
		Size:   m.Size,
		FileID: store.FileIDFor(path),
		Atime:  m.Atime,
		Mtime:  m.Mtime,
		Ctime:  m.Ctime,
	}
}

func resize(content []byte, size uint64) []byte {
	if uint64(len(content)) >= size {
		return content[:size]
	}
	grown := make([]byte, size)
	copy(grown, content)
	return grown
}

func joinPath(dir, name string) string {
	if dir == "/" {
		return "/" + name
	}
	return strings.TrimSuffix(dir, "/") + "/" + name
}
