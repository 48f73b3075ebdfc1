package s3

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"sort"
	"strings"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awss3 "github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/konkers/prolink-nfs/pkg/store"
)

// apiError mimics the SDK's error text for service-side failures.
type apiError struct{ code string }

func (e *apiError) Error() string { return "api error " + e.code + ": stubbed" }

// stubClient serves a fixed key-to-content map through the Client
// interface. Listings paginate at pageSize items to exercise
// continuation tokens.
type stubClient struct {
	objects  map[string][]byte
	pageSize int
}

func (c *stubClient) HeadObject(_ context.Context, params *awss3.HeadObjectInput, _ ...func(*awss3.Options)) (*awss3.HeadObjectOutput, error) {
	content, ok := c.objects[aws.ToString(params.Key)]
	if !ok {
		return nil, &types.NotFound{}
	}
	mtime := time.Unix(1700000000, 0)
	return &awss3.HeadObjectOutput{
		ContentLength: aws.Int64(int64(len(content))),
		LastModified:  &mtime,
	}, nil
}

func (c *stubClient) GetObject(_ context.Context, params *awss3.GetObjectInput, _ ...func(*awss3.Options)) (*awss3.GetObjectOutput, error) {
	content, ok := c.objects[aws.ToString(params.Key)]
	if !ok {
		return nil, &types.NoSuchKey{}
	}

	start, end := 0, len(content)-1
	if params.Range != nil {
		if _, err := fmt.Sscanf(aws.ToString(params.Range), "bytes=%d-%d", &start, &end); err != nil {
			return nil, &apiError{"InvalidArgument"}
		}
		if start >= len(content) {
			return nil, &apiError{"InvalidRange"}
		}
		if end >= len(content) {
			end = len(content) - 1
		}
	}
	return &awss3.GetObjectOutput{
		Body: io.NopCloser(bytes.NewReader(content[start : end+1])),
	}, nil
}

func (c *stubClient) ListObjectsV2(_ context.Context, params *awss3.ListObjectsV2Input, _ ...func(*awss3.Options)) (*awss3.ListObjectsV2Output, error) {
	prefix := aws.ToString(params.Prefix)
	delimiter := aws.ToString(params.Delimiter)

	var contents []string
	prefixSet := map[string]bool{}
	for key := range c.objects {
		if !strings.HasPrefix(key, prefix) {
			continue
		}
		rest := key[len(prefix):]
		if delimiter != "" {
			if idx := strings.Index(rest, delimiter); idx >= 0 {
				prefixSet[prefix+rest[:idx+1]] = true
				continue
			}
		}
		contents = append(contents, key)
	}
	sort.Strings(contents)
	var prefixes []string
	for p := range prefixSet {
		prefixes = append(prefixes, p)
	}
	sort.Strings(prefixes)

	// One flat sequence paginated by pageSize, prefixes first. Real S3
	// interleaves lexically but the store sorts for itself anyway.
	type item struct {
		prefix bool
		value  string
	}
	var all []item
	for _, p := range prefixes {
		all = append(all, item{prefix: true, value: p})
	}
	for _, k := range contents {
		all = append(all, item{value: k})
	}

	start := 0
	if params.ContinuationToken != nil {
		if _, err := fmt.Sscanf(aws.ToString(params.ContinuationToken), "%d", &start); err != nil {
			return nil, &apiError{"InvalidArgument"}
		}
	}
	limit := len(all)
	if c.pageSize > 0 {
		limit = c.pageSize
	}
	if params.MaxKeys != nil && int(aws.ToInt32(params.MaxKeys)) < limit {
		limit = int(aws.ToInt32(params.MaxKeys))
	}
	end := start + limit
	if end > len(all) {
		end = len(all)
	}

	out := &awss3.ListObjectsV2Output{IsTruncated: aws.Bool(end < len(all))}
	for _, it := range all[start:end] {
		if it.prefix {
			out.CommonPrefixes = append(out.CommonPrefixes, types.CommonPrefix{Prefix: aws.String(it.value)})
		} else {
			out.Contents = append(out.Contents, types.Object{Key: aws.String(it.value)})
		}
	}
	if end < len(all) {
		out.NextContinuationToken = aws.String(fmt.Sprintf("%d", end))
	}
	return out, nil
}

func newStub(t *testing.T, pageSize int) *Store {
	t.Helper()
	client := &stubClient{
		pageSize: pageSize,
		objects: map[string][]byte{
			"Contents/track1.mp3":   []byte("first track"),
			"Contents/track2.mp3":   []byte("second track"),
			"Contents/track3.mp3":   []byte("third track"),
			"Contents/sub/deep.mp3": []byte("nested"),
			"export.pdb":            []byte("library database"),
		},
	}
	s, err := New(context.Background(), Options{Client: client, Bucket: "library"})
	require.NoError(t, err)
	return s
}

// ============================================================================
// Stat
// ============================================================================

func TestStat(t *testing.T) {
	ctx := context.Background()

	t.Run("RootIsDirectory", func(t *testing.T) {
		s := newStub(t, 0)

		info, err := s.Stat(ctx, "/")
		require.NoError(t, err)
		assert.Equal(t, store.TypeDirectory, info.Type)
	})

	t.Run("ObjectIsFile", func(t *testing.T) {
		s := newStub(t, 0)

		info, err := s.Stat(ctx, "/Contents/track1.mp3")
		require.NoError(t, err)
		assert.Equal(t, store.TypeRegular, info.Type)
		assert.Equal(t, uint64(11), info.Size)
	})

	t.Run("ImpliedDirectory", func(t *testing.T) {
		s := newStub(t, 0)

		info, err := s.Stat(ctx, "/Contents/sub")
		require.NoError(t, err)
		assert.Equal(t, store.TypeDirectory, info.Type)
	})

	t.Run("Missing", func(t *testing.T) {
		s := newStub(t, 0)

		_, err := s.Stat(ctx, "/nope.mp3")
		assert.ErrorIs(t, err, store.ErrNotFound)
	})
}

// ============================================================================
// List
// ============================================================================

func TestList(t *testing.T) {
	ctx := context.Background()

	t.Run("RootEntries", func(t *testing.T) {
		s := newStub(t, 0)

		entries, err := s.List(ctx, "/")
		require.NoError(t, err)
		require.Len(t, entries, 2)
		assert.Equal(t, "Contents", entries[0].Name)
		assert.Equal(t, "export.pdb", entries[1].Name)
	})

	t.Run("PaginatedListingIsComplete", func(t *testing.T) {
		// A page of 2 forces two continuation rounds over the four
		// entries under /Contents.
		s := newStub(t, 2)

		entries, err := s.List(ctx, "/Contents")
		require.NoError(t, err)
		require.Len(t, entries, 4)
		assert.Equal(t, "sub", entries[0].Name)
		assert.Equal(t, "track1.mp3", entries[1].Name)
		assert.Equal(t, "track2.mp3", entries[2].Name)
		assert.Equal(t, "track3.mp3", entries[3].Name)
	})

	t.Run("ListFileIsNotDir", func(t *testing.T) {
		s := newStub(t, 0)

		_, err := s.List(ctx, "/export.pdb")
		assert.ErrorIs(t, err, store.ErrNotDir)
	})
}

// ============================================================================
// Read
// ============================================================================

func TestRead(t *testing.T) {
	ctx := context.Background()

	t.Run("RangedRead", func(t *testing.T) {
		s := newStub(t, 0)

		data, err := s.Read(ctx, "/Contents/track1.mp3", 6, 5)
		require.NoError(t, err)
		assert.Equal(t, []byte("track"), data)
	})

	t.Run("ClampsAtEOF", func(t *testing.T) {
		s := newStub(t, 0)

		data, err := s.Read(ctx, "/Contents/track1.mp3", 6, 100)
		require.NoError(t, err)
		assert.Equal(t, []byte("track"), data)
	})

	t.Run("PastEOFIsEmpty", func(t *testing.T) {
		// S3 answers InvalidRange; the store turns that into a legal
		// empty read.
		s := newStub(t, 0)

		data, err := s.Read(ctx, "/Contents/track1.mp3", 100, 10)
		require.NoError(t, err)
		assert.Empty(t, data)
	})

	t.Run("ZeroLength", func(t *testing.T) {
		s := newStub(t, 0)

		data, err := s.Read(ctx, "/Contents/track1.mp3", 0, 0)
		require.NoError(t, err)
		assert.Empty(t, data)
	})

	t.Run("MissingKey", func(t *testing.T) {
		s := newStub(t, 0)

		_, err := s.Read(ctx, "/nope.mp3", 0, 10)
		assert.ErrorIs(t, err, store.ErrNotFound)
	})
}

// ============================================================================
// Read-only surface
// ============================================================================

func TestMutationsRefused(t *testing.T) {
	ctx := context.Background()
	s := newStub(t, 0)

	assert.ErrorIs(t, s.Write(ctx, "/export.pdb", 0, []byte("x")), store.ErrReadOnly)
	assert.ErrorIs(t, s.Create(ctx, "/new.mp3", 0o644), store.ErrReadOnly)
	assert.ErrorIs(t, s.Mkdir(ctx, "/new", 0o755), store.ErrReadOnly)
	assert.ErrorIs(t, s.Symlink(ctx, "/l", "/export.pdb"), store.ErrReadOnly)
	assert.ErrorIs(t, s.Remove(ctx, "/export.pdb"), store.ErrReadOnly)
	assert.ErrorIs(t, s.Rmdir(ctx, "/Contents"), store.ErrReadOnly)
	assert.ErrorIs(t, s.Rename(ctx, "/export.pdb", "/renamed.pdb"), store.ErrReadOnly)
	assert.ErrorIs(t, s.Link(ctx, "/export.pdb", "/link.pdb"), store.ErrReadOnly)

	_, err := s.SetAttr(ctx, "/export.pdb", store.SetAttr{})
	assert.ErrorIs(t, err, store.ErrReadOnly)
	_, err = s.Readlink(ctx, "/export.pdb")
	assert.ErrorIs(t, err, store.ErrNotSupported)
}

func TestStatFS(t *testing.T) {
	s := newStub(t, 0)

	st, err := s.StatFS(context.Background(), "/")
	require.NoError(t, err)
	assert.Equal(t, uint32(0), st.FreeBlocks)
	assert.Equal(t, uint32(0), st.AvailBlocks)
	assert.NotZero(t, st.TotalBlocks)
}

// ============================================================================
// Options
// ============================================================================

func TestNew(t *testing.T) {
	t.Run("BucketRequired", func(t *testing.T) {
		_, err := New(context.Background(), Options{Client: &stubClient{}})
		assert.Error(t, err)
	})

	t.Run("KeyPrefixRootsTheLibrary", func(t *testing.T) {
		client := &stubClient{objects: map[string][]byte{
			"lib/track.mp3": []byte("prefixed"),
			"other.mp3":     []byte("outside"),
		}}
		s, err := New(context.Background(), Options{Client: client, Bucket: "library", KeyPrefix: "lib"})
		require.NoError(t, err)

		info, err := s.Stat(context.Background(), "/track.mp3")
		require.NoError(t, err)
		assert.Equal(t, uint64(8), info.Size)

		entries, err := s.List(context.Background(), "/")
		require.NoError(t, err)
		require.Len(t, entries, 1)
		assert.Equal(t, "track.mp3", entries[0].Name)
	})
}
