// Package memory implements an in-memory store. It backs tests and small
// demo libraries; nothing survives a restart.
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/konkers/prolink-nfs/pkg/store"
)

const blockSize = 4096

// capacityBlocks is the synthetic filesystem size reported by StatFS.
const capacityBlocks = 1 << 20

// node is one object in the tree. Hard links share a node, so the link
// count and file id live here rather than in the parent's map.
type node struct {
	id       uint64
	typ      store.FileType
	mode     uint32
	uid, gid uint32
	nlink    uint32
	data     []byte
	target   string
	children map[string]*node
	atime    time.Time
	mtime    time.Time
	ctime    time.Time
}

// Store is a memory-backed store.Store. A single RWMutex guards the whole
// tree; per-operation atomicity is all the protocol requires.
type Store struct {
	mu     sync.RWMutex
	root   *node
	nextID uint64
}

var _ store.Store = (*Store)(nil)

// New returns an empty store containing only the root directory.
func New() *Store {
	s := &Store{nextID: 1}
	s.root = s.newNode(store.TypeDirectory, 0755)
	return s
}

func (s *Store) newNode(typ store.FileType, mode uint32) *node {
	now := time.Now()
	n := &node{
		id:    s.nextID,
		typ:   typ,
		mode:  mode & 0o7777,
		nlink: 1,
		atime: now,
		mtime: now,
		ctime: now,
	}
	s.nextID++
	if typ == store.TypeDirectory {
		n.children = make(map[string]*node)
		n.nlink = 2
	}
	return n
}

// split breaks a cleaned absolute path into components. "/" yields nil.
func split(path string) []string {
	trimmed := strings.Trim(path, "/")
	if trimmed == "" {
		return nil
	}
	return strings.Split(trimmed, "/")
}

func (s *Store) lookup(path string) (*node, error) {
	n := s.root
	for _, part := range split(path) {
		if n.typ != store.TypeDirectory {
			return nil, store.ErrNotDir
		}
		child, ok := n.children[part]
		if !ok {
			return nil, store.ErrNotFound
		}
		n = child
	}
	return n, nil
}

// lookupParent resolves the directory containing path and the final name.
func (s *Store) lookupParent(path string) (*node, string, error) {
	parts := split(path)
	if len(parts) == 0 {
		return nil, "", store.ErrPermission // operating on the root itself
	}
	dir, err := s.lookup("/" + strings.Join(parts[:len(parts)-1], "/"))
	if err != nil {
		return nil, "", err
	}
	if dir.typ != store.TypeDirectory {
		return nil, "", store.ErrNotDir
	}
	return dir, parts[len(parts)-1], nil
}

func (s *Store) info(n *node) *store.FileInfo {
	return &store.FileInfo{
		Type:   n.typ,
		Mode:   n.mode,
		Nlink:  n.nlink,
		UID:    n.uid,
		GID:    n.gid,
		Size:   n.size(),
		FileID: n.id,
		Atime:  n.atime,
		Mtime:  n.mtime,
		Ctime:  n.ctime,
	}
}

func (n *node) size() uint64 {
	switch n.typ {
	case store.TypeDirectory:
		return blockSize
	case store.TypeSymlink:
		return uint64(len(n.target))
	default:
		return uint64(len(n.data))
	}
}

func (s *Store) Stat(_ context.Context, path string) (*store.FileInfo, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	n, err := s.lookup(path)
	if err != nil {
		return nil, err
	}
	return s.info(n), nil
}

func (s *Store) SetAttr(_ context.Context, path string, sa store.SetAttr) (*store.FileInfo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	n, err := s.lookup(path)
	if err != nil {
		return nil, err
	}

	if sa.Mode != nil {
		n.mode = *sa.Mode & 0o7777
	}
	if sa.UID != nil {
		n.uid = *sa.UID
	}
	if sa.GID != nil {
		n.gid = *sa.GID
	}
	if sa.Size != nil {
		if n.typ == store.TypeDirectory {
			return nil, store.ErrIsDir
		}
		size := *sa.Size
		switch {
		case size <= uint64(len(n.data)):
			n.data = n.data[:size]
		default:
			n.data = append(n.data, make([]byte, size-uint64(len(n.data)))...)
		}
		n.mtime = time.Now()
	}
	if sa.Atime != nil {
		n.atime = *sa.Atime
	}
	if sa.Mtime != nil {
		n.mtime = *sa.Mtime
	}
	n.ctime = time.Now()

	return s.info(n), nil
}

func (s *Store) List(_ context.Context, path string) ([]store.Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	n, err := s.lookup(path)
	if err != nil {
		return nil, err
	}
	if n.typ != store.TypeDirectory {
		return nil, store.ErrNotDir
	}

	names := make([]string, 0, len(n.children))
	for name := range n.children {
		names = append(names, name)
	}
	sort.Strings(names)

	entries := make([]store.Entry, len(names))
	for i, name := range names {
		entries[i] = store.Entry{Name: name, FileID: n.children[name].id}
	}
	return entries, nil
}

func (s *Store) Read(_ context.Context, path string, offset uint64, length uint32) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	n, err := s.lookup(path)
	if err != nil {
		return nil, err
	}
	if n.typ == store.TypeDirectory {
		return nil, store.ErrIsDir
	}

	if offset >= uint64(len(n.data)) {
		return []byte{}, nil
	}
	end := offset + uint64(length)
	if end > uint64(len(n.data)) {
		end = uint64(len(n.data))
	}

	out := make([]byte, end-offset)
	copy(out, n.data[offset:end])
	return out, nil
}

func (s *Store) Write(_ context.Context, path string, offset uint64, data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	n, err := s.lookup(path)
	if err != nil {
		return err
	}
	if n.typ == store.TypeDirectory {
		return store.ErrIsDir
	}

	end := offset + uint64(len(data))
	if end > uint64(len(n.data)) {
		n.data = append(n.data, make([]byte, end-uint64(len(n.data)))...)
	}
	copy(n.data[offset:end], data)

	now := time.Now()
	n.mtime = now
	n.ctime = now
	return nil
}

func (s *Store) Create(_ context.Context, path string, mode uint32) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.insert(path, s.newNode(store.TypeRegular, mode))
}

func (s *Store) Mkdir(_ context.Context, path string, mode uint32) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.insert(path, s.newNode(store.TypeDirectory, mode))
}

func (s *Store) Symlink(_ context.Context, path, target string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := s.newNode(store.TypeSymlink, 0o777)
	n.target = target
	return s.insert(path, n)
}

func (s *Store) insert(path string, n *node) error {
	dir, name, err := s.lookupParent(path)
	if err != nil {
		return err
	}
	if _, ok := dir.children[name]; ok {
		return store.ErrExist
	}
	dir.children[name] = n
	if n.typ == store.TypeDirectory {
		dir.nlink++
	}
	dir.mtime = time.Now()
	return nil
}

func (s *Store) Readlink(_ context.Context, path string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	n, err := s.lookup(path)
	if err != nil {
		return "", err
	}
	if n.typ != store.TypeSymlink {
		return "", store.ErrNotSupported
	}
	return n.target, nil
}

func (s *Store) Remove(_ context.Context, path string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	dir, name, err := s.lookupParent(path)
	if err != nil {
		return err
	}
	n, ok := dir.children[name]
	if !ok {
		return store.ErrNotFound
	}
	if n.typ == store.TypeDirectory {
		return store.ErrIsDir
	}

	n.nlink--
	delete(dir.children, name)
	dir.mtime = time.Now()
	return nil
}

func (s *Store) Rmdir(_ context.Context, path string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	dir, name, err := s.lookupParent(path)
	if err != nil {
		return err
	}
	n, ok := dir.children[name]
	if !ok {
		return store.ErrNotFound
	}
	if n.typ != store.TypeDirectory {
		return store.ErrNotDir
	}
	if len(n.children) > 0 {
		return store.ErrNotEmpty
	}

	delete(dir.children, name)
	dir.nlink--
	dir.mtime = time.Now()
	return nil
}

func (s *Store) Rename(_ context.Context, oldPath, newPath string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	fromDir, fromName, err := s.lookupParent(oldPath)
	if err != nil {
		return err
	}
	n, ok := fromDir.children[fromName]
	if !ok {
		return store.ErrNotFound
	}

	// Renaming onto itself is a no-op; renaming into the entity's own
	// subtree would detach it from the namespace entirely.
	if newPath == oldPath {
		return nil
	}
	if strings.HasPrefix(newPath, oldPath+"/") {
		return store.ErrInvalid
	}

	toDir, toName, err := s.lookupParent(newPath)
	if err != nil {
		return err
	}

	if target, ok := toDir.children[toName]; ok {
		if target.typ == store.TypeDirectory {
			if n.typ != store.TypeDirectory {
				return store.ErrIsDir
			}
			if len(target.children) > 0 {
				return store.ErrNotEmpty
			}
			toDir.nlink--
		} else if n.typ == store.TypeDirectory {
			return store.ErrNotDir
		}
	}

	delete(fromDir.children, fromName)
	toDir.children[toName] = n
	if n.typ == store.TypeDirectory && fromDir != toDir {
		fromDir.nlink--
		toDir.nlink++
	}

	now := time.Now()
	fromDir.mtime = now
	toDir.mtime = now
	n.ctime = now
	return nil
}

func (s *Store) Link(_ context.Context, oldPath, newPath string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	n, err := s.lookup(oldPath)
	if err != nil {
		return err
	}
	if n.typ == store.TypeDirectory {
		return store.ErrIsDir
	}

	dir, name, err := s.lookupParent(newPath)
	if err != nil {
		return err
	}
	if _, ok := dir.children[name]; ok {
		return store.ErrExist
	}

	dir.children[name] = n
	n.nlink++
	n.ctime = time.Now()
	dir.mtime = n.ctime
	return nil
}

func (s *Store) StatFS(_ context.Context, _ string) (*store.FSStat, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	used := uint32(s.usedBlocks(s.root))
	free := uint32(capacityBlocks) - used
	return &store.FSStat{
		BlockSize:   blockSize,
		TotalBlocks: capacityBlocks,
		FreeBlocks:  free,
		AvailBlocks: free,
	}, nil
}

func (s *Store) usedBlocks(n *node) uint64 {
	blocks := (n.size() + blockSize - 1) / blockSize
	for _, child := range n.children {
		blocks += s.usedBlocks(child)
	}
	return blocks
}
