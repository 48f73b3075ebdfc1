// Package local serves a media library from a directory on disk.
package local

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/afero"

	"github.com/konkers/prolink-nfs/pkg/store"
)

// Store exposes a directory tree rooted at a configured path. All
// operations go through an afero filesystem scoped to the root, so a
// path from the wire can never escape it; hard links and symlinks fall
// back to the os package on the joined path since afero has no
// interface for them.
type Store struct {
	root string
	fs   afero.Fs
}

// New creates a store rooted at root, which must be an existing
// directory.
func New(root string) (*Store, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("resolving root %q: %w", root, err)
	}

	info, err := os.Stat(abs)
	if err != nil {
		return nil, fmt.Errorf("root %q: %w", abs, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("root %q is not a directory", abs)
	}

	return &Store{
		root: abs,
		fs:   afero.NewBasePathFs(afero.NewOsFs(), abs),
	}, nil
}

// hostPath joins a store path onto the root for the operations that
// bypass afero. The path is cleaned first so ".." segments cannot climb
// out of the tree.
func (s *Store) hostPath(path string) string {
	return filepath.Join(s.root, filepath.Clean("/"+path))
}

func (s *Store) Stat(_ context.Context, path string) (*store.FileInfo, error) {
	info, err := os.Lstat(s.hostPath(path))
	if err != nil {
		return nil, mapError(err)
	}
	return fileInfo(path, info), nil
}

func (s *Store) SetAttr(ctx context.Context, path string, sa store.SetAttr) (*store.FileInfo, error) {
	host := s.hostPath(path)

	if sa.Mode != nil {
		if err := s.fs.Chmod(path, fs.FileMode(*sa.Mode&0o777)); err != nil {
			return nil, mapError(err)
		}
	}
	if sa.UID != nil || sa.GID != nil {
		uid, gid := -1, -1
		if sa.UID != nil {
			uid = int(*sa.UID)
		}
		if sa.GID != nil {
			gid = int(*sa.GID)
		}
		// Ownership changes are best effort; the DJ hardware has no
		// notion of users and most runs are not privileged enough.
		_ = os.Chown(host, uid, gid)
	}
	if sa.Size != nil {
		info, err := os.Lstat(host)
		if err != nil {
			return nil, mapError(err)
		}
		if info.IsDir() {
			return nil, store.ErrIsDir
		}
		if err := os.Truncate(host, int64(*sa.Size)); err != nil {
			return nil, mapError(err)
		}
	}
	if sa.Atime != nil || sa.Mtime != nil {
		atime, mtime := time.Now(), time.Now()
		if sa.Atime != nil {
			atime = *sa.Atime
		}
		if sa.Mtime != nil {
			mtime = *sa.Mtime
		}
		if err := s.fs.Chtimes(path, atime, mtime); err != nil {
			return nil, mapError(err)
		}
	}

	return s.Stat(ctx, path)
}

func (s *Store) List(_ context.Context, path string) ([]store.Entry, error) {
	info, err := os.Lstat(s.hostPath(path))
	if err != nil {
		return nil, mapError(err)
	}
	if !info.IsDir() {
		return nil, store.ErrNotDir
	}

	infos, err := afero.ReadDir(s.fs, path)
	if err != nil {
		return nil, mapError(err)
	}

	entries := make([]store.Entry, 0, len(infos))
	for _, fi := range infos {
		entries = append(entries, store.Entry{
			Name:   fi.Name(),
			FileID: store.FileIDFor(childPath(path, fi.Name())),
		})
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name < entries[j].Name })
	return entries, nil
}

func (s *Store) Read(_ context.Context, path string, offset uint64, length uint32) ([]byte, error) {
	f, err := s.fs.Open(path)
	if err != nil {
		return nil, mapError(err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, mapError(err)
	}
	if info.IsDir() {
		return nil, store.ErrIsDir
	}

	buf := make([]byte, length)
	n, err := f.ReadAt(buf, int64(offset))
	if err != nil && !errors.Is(err, io.EOF) {
		return nil, mapError(err)
	}
	return buf[:n], nil
}

func (s *Store) Write(_ context.Context, path string, offset uint64, data []byte) error {
	f, err := s.fs.OpenFile(path, os.O_WRONLY, 0)
	if err != nil {
		return mapError(err)
	}
	defer f.Close()

	if _, err := f.WriteAt(data, int64(offset)); err != nil {
		return mapError(err)
	}
	// NFS_OK promises durability; there is no later commit call in v2.
	if err := f.Sync(); err != nil {
		return mapError(err)
	}
	return nil
}

func (s *Store) Create(_ context.Context, path string, mode uint32) error {
	f, err := s.fs.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, fs.FileMode(mode&0o777))
	if err != nil {
		return mapError(err)
	}
	return f.Close()
}

func (s *Store) Mkdir(_ context.Context, path string, mode uint32) error {
	if err := s.fs.Mkdir(path, fs.FileMode(mode&0o777)); err != nil {
		return mapError(err)
	}
	return nil
}

func (s *Store) Symlink(_ context.Context, path, target string) error {
	if err := os.Symlink(target, s.hostPath(path)); err != nil {
		return mapError(err)
	}
	return nil
}

func (s *Store) Readlink(_ context.Context, path string) (string, error) {
	target, err := os.Readlink(s.hostPath(path))
	if err != nil {
		return "", mapError(err)
	}
	return target, nil
}

func (s *Store) Remove(_ context.Context, path string) error {
	info, err := os.Lstat(s.hostPath(path))
	if err != nil {
		return mapError(err)
	}
	if info.IsDir() {
		return store.ErrIsDir
	}
	if err := s.fs.Remove(path); err != nil {
		return mapError(err)
	}
	return nil
}

func (s *Store) Rmdir(_ context.Context, path string) error {
	info, err := os.Lstat(s.hostPath(path))
	if err != nil {
		return mapError(err)
	}
	if !info.IsDir() {
		return store.ErrNotDir
	}
	if err := s.fs.Remove(path); err != nil {
		return mapError(err)
	}
	return nil
}

func (s *Store) Rename(_ context.Context, oldPath, newPath string) error {
	if newPath != oldPath && strings.HasPrefix(newPath, oldPath+"/") {
		return store.ErrInvalid
	}
	if err := s.fs.Rename(oldPath, newPath); err != nil {
		return mapError(err)
	}
	return nil
}

func (s *Store) Link(_ context.Context, oldPath, newPath string) error {
	if err := os.Link(s.hostPath(oldPath), s.hostPath(newPath)); err != nil {
		return mapError(err)
	}
	return nil
}

// StatFS reports a fixed geometry. The hardware only uses these numbers
// for a free-space readout, and portable Go has no statfs; a generous
// constant keeps clients from refusing writes.
func (s *Store) StatFS(_ context.Context, _ string) (*store.FSStat, error) {
	return &store.FSStat{
		BlockSize:   4096,
		TotalBlocks: 1 << 22,
		FreeBlocks:  1 << 21,
		AvailBlocks: 1 << 21,
	}, nil
}

func childPath(dir, name string) string {
	if dir == "/" || dir == "" {
		return "/" + name
	}
	return strings.TrimSuffix(dir, "/") + "/" + name
}

func fileInfo(path string, info os.FileInfo) *store.FileInfo {
	fi := &store.FileInfo{
		Mode:   uint32(info.Mode().Perm()),
		Nlink:  1,
		Size:   uint64(info.Size()),
		FileID: store.FileIDFor(path),
		Atime:  info.ModTime(),
		Mtime:  info.ModTime(),
		Ctime:  info.ModTime(),
	}

	switch {
	case info.IsDir():
		fi.Type = store.TypeDirectory
		fi.Nlink = 2
	case info.Mode()&os.ModeSymlink != 0:
		fi.Type = store.TypeSymlink
	case info.Mode().IsRegular():
		fi.Type = store.TypeRegular
	default:
		fi.Type = store.TypeNone
	}

	return fi
}

func mapError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, fs.ErrNotExist):
		return store.ErrNotFound
	case errors.Is(err, fs.ErrExist):
		return store.ErrExist
	case errors.Is(err, fs.ErrPermission):
		return store.ErrPermission
	case errors.Is(err, syscall.ENOTDIR):
		return store.ErrNotDir
	case errors.Is(err, syscall.EISDIR):
		return store.ErrIsDir
	case errors.Is(err, syscall.ENOTEMPTY):
		return store.ErrNotEmpty
	case errors.Is(err, syscall.ENOSPC):
		return store.ErrNoSpace
	case errors.Is(err, syscall.EFBIG):
		return store.ErrFileTooLarge
	default:
		return err
	}
}
