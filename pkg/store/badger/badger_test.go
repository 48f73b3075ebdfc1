package badger

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/konkers/prolink-nfs/pkg/store"
)

// newSeeded opens an in-memory database holding /music/a.mp3 with
// known content.
func newSeeded(t *testing.T) *Store {
	t.Helper()
	s, err := New(Options{InMemory: true})
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })

	ctx := context.Background()
	require.NoError(t, s.Mkdir(ctx, "/music", 0o755))
	require.NoError(t, s.Create(ctx, "/music/a.mp3", 0o644))
	require.NoError(t, s.Write(ctx, "/music/a.mp3", 0, []byte("hello")))
	return s
}

// ============================================================================
// Stat / List
// ============================================================================

func TestStat(t *testing.T) {
	ctx := context.Background()

	t.Run("RootIsDirectory", func(t *testing.T) {
		s := newSeeded(t)

		info, err := s.Stat(ctx, "/")
		require.NoError(t, err)
		assert.Equal(t, store.TypeDirectory, info.Type)
	})

	t.Run("FileAttributes", func(t *testing.T) {
		s := newSeeded(t)

		info, err := s.Stat(ctx, "/music/a.mp3")
		require.NoError(t, err)
		assert.Equal(t, store.TypeRegular, info.Type)
		assert.Equal(t, uint64(5), info.Size)
	})

	t.Run("Missing", func(t *testing.T) {
		s := newSeeded(t)

		_, err := s.Stat(ctx, "/nope")
		assert.ErrorIs(t, err, store.ErrNotFound)
	})
}

func TestList(t *testing.T) {
	ctx := context.Background()

	t.Run("SortedEntries", func(t *testing.T) {
		s := newSeeded(t)
		require.NoError(t, s.Create(ctx, "/music/b.mp3", 0o644))
		require.NoError(t, s.Create(ctx, "/music/0.mp3", 0o644))

		entries, err := s.List(ctx, "/music")
		require.NoError(t, err)
		require.Len(t, entries, 3)
		assert.Equal(t, "0.mp3", entries[0].Name)
		assert.Equal(t, "a.mp3", entries[1].Name)
		assert.Equal(t, "b.mp3", entries[2].Name)
	})

	t.Run("ListFileIsNotDir", func(t *testing.T) {
		s := newSeeded(t)

		_, err := s.List(ctx, "/music/a.mp3")
		assert.ErrorIs(t, err, store.ErrNotDir)
	})
}

// ============================================================================
// Read / Write / SetAttr
// ============================================================================

func TestReadWrite(t *testing.T) {
	ctx := context.Background()

	t.Run("ClampsAtEOF", func(t *testing.T) {
		s := newSeeded(t)

		data, err := s.Read(ctx, "/music/a.mp3", 3, 100)
		require.NoError(t, err)
		assert.Equal(t, []byte("lo"), data)
	})

	t.Run("PastEOFIsEmpty", func(t *testing.T) {
		s := newSeeded(t)

		data, err := s.Read(ctx, "/music/a.mp3", 100, 10)
		require.NoError(t, err)
		assert.Empty(t, data)
	})

	t.Run("WriteBeyondEndZeroFills", func(t *testing.T) {
		s := newSeeded(t)

		require.NoError(t, s.Write(ctx, "/music/a.mp3", 8, []byte("!")))
		data, err := s.Read(ctx, "/music/a.mp3", 0, 100)
		require.NoError(t, err)
		assert.Equal(t, []byte("hello\x00\x00\x00!"), data)
	})

	t.Run("WriteToDirectory", func(t *testing.T) {
		s := newSeeded(t)

		assert.ErrorIs(t, s.Write(ctx, "/music", 0, []byte("x")), store.ErrIsDir)
	})

	t.Run("TruncateViaSetAttr", func(t *testing.T) {
		s := newSeeded(t)

		size := uint64(2)
		info, err := s.SetAttr(ctx, "/music/a.mp3", store.SetAttr{Size: &size})
		require.NoError(t, err)
		assert.Equal(t, uint64(2), info.Size)

		data, err := s.Read(ctx, "/music/a.mp3", 0, 100)
		require.NoError(t, err)
		assert.Equal(t, []byte("he"), data)
	})

	t.Run("TruncateDirectoryRefused", func(t *testing.T) {
		s := newSeeded(t)

		size := uint64(0)
		_, err := s.SetAttr(ctx, "/music", store.SetAttr{Size: &size})
		assert.ErrorIs(t, err, store.ErrIsDir)
	})
}

// ============================================================================
// Create / Remove / Rmdir
// ============================================================================

func TestMutations(t *testing.T) {
	ctx := context.Background()

	t.Run("CreateExisting", func(t *testing.T) {
		s := newSeeded(t)

		assert.ErrorIs(t, s.Create(ctx, "/music/a.mp3", 0o644), store.ErrExist)
	})

	t.Run("CreateInMissingParent", func(t *testing.T) {
		s := newSeeded(t)

		assert.ErrorIs(t, s.Create(ctx, "/nope/x.mp3", 0o644), store.ErrNotFound)
	})

	t.Run("RemoveDirectoryRefused", func(t *testing.T) {
		s := newSeeded(t)

		assert.ErrorIs(t, s.Remove(ctx, "/music"), store.ErrIsDir)
	})

	t.Run("RmdirNonEmpty", func(t *testing.T) {
		s := newSeeded(t)

		assert.ErrorIs(t, s.Rmdir(ctx, "/music"), store.ErrNotEmpty)
	})

	t.Run("RmdirRootRefused", func(t *testing.T) {
		s := newSeeded(t)

		assert.ErrorIs(t, s.Rmdir(ctx, "/"), store.ErrPermission)
	})

	t.Run("RemoveThenGone", func(t *testing.T) {
		s := newSeeded(t)

		require.NoError(t, s.Remove(ctx, "/music/a.mp3"))
		_, err := s.Stat(ctx, "/music/a.mp3")
		assert.ErrorIs(t, err, store.ErrNotFound)

		require.NoError(t, s.Rmdir(ctx, "/music"))
		entries, err := s.List(ctx, "/")
		require.NoError(t, err)
		assert.Empty(t, entries)
	})
}

// ============================================================================
// Rename
// ============================================================================

func TestRename(t *testing.T) {
	ctx := context.Background()

	t.Run("MoveRewritesSubtreeKeys", func(t *testing.T) {
		s := newSeeded(t)
		require.NoError(t, s.Mkdir(ctx, "/music/sub", 0o755))
		require.NoError(t, s.Create(ctx, "/music/sub/b.mp3", 0o644))
		require.NoError(t, s.Write(ctx, "/music/sub/b.mp3", 0, []byte("deep")))

		require.NoError(t, s.Rename(ctx, "/music", "/audio"))

		// Metadata, content and dirent keys all follow the new path.
		data, err := s.Read(ctx, "/audio/sub/b.mp3", 0, 100)
		require.NoError(t, err)
		assert.Equal(t, []byte("deep"), data)

		entries, err := s.List(ctx, "/audio")
		require.NoError(t, err)
		require.Len(t, entries, 2)
		assert.Equal(t, "a.mp3", entries[0].Name)
		assert.Equal(t, "sub", entries[1].Name)

		_, err = s.Stat(ctx, "/music")
		assert.ErrorIs(t, err, store.ErrNotFound)
		_, err = s.Stat(ctx, "/music/sub/b.mp3")
		assert.ErrorIs(t, err, store.ErrNotFound)
	})

	t.Run("SamePathIsNoop", func(t *testing.T) {
		s := newSeeded(t)

		require.NoError(t, s.Rename(ctx, "/music", "/music"))

		_, err := s.Stat(ctx, "/music/a.mp3")
		require.NoError(t, err)
	})

	t.Run("IntoOwnSubtreeRefused", func(t *testing.T) {
		s := newSeeded(t)

		assert.ErrorIs(t, s.Rename(ctx, "/music", "/music/sub"), store.ErrInvalid)

		entries, err := s.List(ctx, "/")
		require.NoError(t, err)
		require.Len(t, entries, 1)
		assert.Equal(t, "music", entries[0].Name)
		_, err = s.Stat(ctx, "/music/a.mp3")
		require.NoError(t, err)
	})

	t.Run("ClobberEmptyDir", func(t *testing.T) {
		s := newSeeded(t)
		require.NoError(t, s.Mkdir(ctx, "/empty", 0o755))

		require.NoError(t, s.Rename(ctx, "/music", "/empty"))
		_, err := s.Stat(ctx, "/empty/a.mp3")
		require.NoError(t, err)
	})

	t.Run("ClobberPopulatedDirRefused", func(t *testing.T) {
		s := newSeeded(t)
		require.NoError(t, s.Mkdir(ctx, "/other", 0o755))
		require.NoError(t, s.Create(ctx, "/other/x.mp3", 0o644))

		assert.ErrorIs(t, s.Rename(ctx, "/music", "/other"), store.ErrNotEmpty)
	})

	t.Run("FileOverDirRefused", func(t *testing.T) {
		s := newSeeded(t)
		require.NoError(t, s.Mkdir(ctx, "/dir", 0o755))

		assert.ErrorIs(t, s.Rename(ctx, "/music/a.mp3", "/dir"), store.ErrIsDir)
	})

	t.Run("DirOverFileRefused", func(t *testing.T) {
		s := newSeeded(t)
		require.NoError(t, s.Create(ctx, "/plain", 0o644))

		assert.ErrorIs(t, s.Rename(ctx, "/music", "/plain"), store.ErrNotDir)
	})
}

// ============================================================================
// Symlink / Link / StatFS
// ============================================================================

func TestSymlink(t *testing.T) {
	ctx := context.Background()

	t.Run("RoundTrip", func(t *testing.T) {
		s := newSeeded(t)

		require.NoError(t, s.Symlink(ctx, "/latest", "/music/a.mp3"))
		target, err := s.Readlink(ctx, "/latest")
		require.NoError(t, err)
		assert.Equal(t, "/music/a.mp3", target)
	})

	t.Run("ReadlinkOnFile", func(t *testing.T) {
		s := newSeeded(t)

		_, err := s.Readlink(ctx, "/music/a.mp3")
		assert.ErrorIs(t, err, store.ErrNotSupported)
	})
}

func TestLink(t *testing.T) {
	s := newSeeded(t)

	err := s.Link(context.Background(), "/music/a.mp3", "/music/b.mp3")
	assert.ErrorIs(t, err, store.ErrNotSupported)
}

func TestStatFS(t *testing.T) {
	s := newSeeded(t)

	st, err := s.StatFS(context.Background(), "/")
	require.NoError(t, err)
	assert.Equal(t, uint32(4096), st.BlockSize)
	assert.NotZero(t, st.TotalBlocks)
	assert.Equal(t, st.FreeBlocks, st.AvailBlocks)
}
