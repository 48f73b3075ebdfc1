// Package s3 serves a media library read-only from an S3 bucket.
//
// Objects are mapped onto paths directly: "/Music/track.mp3" is the
// object "Music/track.mp3" under the configured key prefix, and
// directories are implied by key structure via delimiter listings. The
// bucket is never written; every mutating operation reports
// store.ErrReadOnly, which the protocol layer surfaces as a read-only
// filesystem.
package s3

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"

	"github.com/konkers/prolink-nfs/pkg/store"
)

// Client is the slice of the S3 API this store consumes. *s3.Client
// satisfies it.
type Client interface {
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	HeadObject(ctx context.Context, params *s3.HeadObjectInput, optFns ...func(*s3.Options)) (*s3.HeadObjectOutput, error)
	ListObjectsV2(ctx context.Context, params *s3.ListObjectsV2Input, optFns ...func(*s3.Options)) (*s3.ListObjectsV2Output, error)
}

// Store implements store.Store over a bucket.
type Store struct {
	client Client
	bucket string
	prefix string
}

// Options configures an S3-backed store.
type Options struct {
	Client Client
	Bucket string

	// KeyPrefix roots the library at a sub-tree of the bucket.
	KeyPrefix string
}

// New creates the store. The bucket is probed once so a typo fails at
// startup instead of as a stream of stale-sounding errors later.
func New(ctx context.Context, opts Options) (*Store, error) {
	if opts.Bucket == "" {
		return nil, fmt.Errorf("s3 store: bucket is required")
	}

	s := &Store{
		client: opts.Client,
		bucket: opts.Bucket,
		prefix: strings.TrimPrefix(opts.KeyPrefix, "/"),
	}
	if s.prefix != "" && !strings.HasSuffix(s.prefix, "/") {
		s.prefix += "/"
	}

	_, err := s.client.ListObjectsV2(ctx, &s3.ListObjectsV2Input{
		Bucket:  aws.String(s.bucket),
		Prefix:  aws.String(s.prefix),
		MaxKeys: aws.Int32(1),
	})
	if err != nil {
		return nil, fmt.Errorf("probing bucket %q: %w", s.bucket, err)
	}
	return s, nil
}

// key maps a store path to an object key.
func (s *Store) key(path string) string {
	return s.prefix + strings.TrimPrefix(path, "/")
}

// dirPrefix maps a directory path to a listing prefix.
func (s *Store) dirPrefix(path string) string {
	if path == "/" {
		return s.prefix
	}
	return s.key(path) + "/"
}

func (s *Store) Stat(ctx context.Context, path string) (*store.FileInfo, error) {
	if path == "/" {
		return dirInfo(path), nil
	}

	head, err := s.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.key(path)),
	})
	if err == nil {
		return objectInfo(path, head), nil
	}
	if !isNotFound(err) {
		return nil, fmt.Errorf("heading %q: %w", path, err)
	}

	// No object at the key; if keys exist under it the path is a
	// directory implied by structure.
	isDir, err := s.hasChildren(ctx, path)
	if err != nil {
		return nil, err
	}
	if isDir {
		return dirInfo(path), nil
	}
	return nil, store.ErrNotFound
}

func (s *Store) hasChildren(ctx context.Context, path string) (bool, error) {
	out, err := s.client.ListObjectsV2(ctx, &s3.ListObjectsV2Input{
		Bucket:  aws.String(s.bucket),
		Prefix:  aws.String(s.dirPrefix(path)),
		MaxKeys: aws.Int32(1),
	})
	if err != nil {
		return false, fmt.Errorf("listing under %q: %w", path, err)
	}
	return len(out.Contents) > 0, nil
}

func (s *Store) List(ctx context.Context, path string) ([]store.Entry, error) {
	info, err := s.Stat(ctx, path)
	if err != nil {
		return nil, err
	}
	if info.Type != store.TypeDirectory {
		return nil, store.ErrNotDir
	}

	prefix := s.dirPrefix(path)
	var entries []store.Entry
	var token *string

	for {
		out, err := s.client.ListObjectsV2(ctx, &s3.ListObjectsV2Input{
			Bucket:            aws.String(s.bucket),
			Prefix:            aws.String(prefix),
			Delimiter:         aws.String("/"),
			ContinuationToken: token,
		})
		if err != nil {
			return nil, fmt.Errorf("listing %q: %w", path, err)
		}

		for _, cp := range out.CommonPrefixes {
			name := strings.TrimSuffix(strings.TrimPrefix(aws.ToString(cp.Prefix), prefix), "/")
			if name == "" {
				continue
			}
			entries = append(entries, entry(path, name))
		}
		for _, obj := range out.Contents {
			name := strings.TrimPrefix(aws.ToString(obj.Key), prefix)
			if name == "" || strings.Contains(name, "/") {
				continue
			}
			entries = append(entries, entry(path, name))
		}

		if !aws.ToBool(out.IsTruncated) {
			break
		}
		token = out.NextContinuationToken
	}

	sort.Slice(entries, func(i, j int) bool { return entries[i].Name < entries[j].Name })
	return entries, nil
}

func (s *Store) Read(ctx context.Context, path string, offset uint64, length uint32) ([]byte, error) {
	if length == 0 {
		return []byte{}, nil
	}

	// S3 ranges are inclusive on both ends.
	rangeSpec := fmt.Sprintf("bytes=%d-%d", offset, offset+uint64(length)-1)
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.key(path)),
		Range:  aws.String(rangeSpec),
	})
	if err != nil {
		if isNotFound(err) {
			return nil, store.ErrNotFound
		}
		// An offset at or past end of object is an invalid range to
		// S3 but a legal empty read to NFS.
		if strings.Contains(err.Error(), "InvalidRange") {
			return []byte{}, nil
		}
		return nil, fmt.Errorf("reading %q: %w", path, err)
	}
	defer out.Body.Close()

	data, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, fmt.Errorf("reading %q body: %w", path, err)
	}
	return data, nil
}

func (s *Store) Readlink(_ context.Context, _ string) (string, error) {
	return "", store.ErrNotSupported
}

// ============================================================================
// Mutations, all refused
// ============================================================================

func (s *Store) SetAttr(_ context.Context, _ string, _ store.SetAttr) (*store.FileInfo, error) {
	return nil, store.ErrReadOnly
}

func (s *Store) Write(_ context.Context, _ string, _ uint64, _ []byte) error {
	return store.ErrReadOnly
}

func (s *Store) Create(_ context.Context, _ string, _ uint32) error {
	return store.ErrReadOnly
}

func (s *Store) Mkdir(_ context.Context, _ string, _ uint32) error {
	return store.ErrReadOnly
}

func (s *Store) Symlink(_ context.Context, _, _ string) error {
	return store.ErrReadOnly
}

func (s *Store) Remove(_ context.Context, _ string) error {
	return store.ErrReadOnly
}

func (s *Store) Rmdir(_ context.Context, _ string) error {
	return store.ErrReadOnly
}

func (s *Store) Rename(_ context.Context, _, _ string) error {
	return store.ErrReadOnly
}

func (s *Store) Link(_ context.Context, _, _ string) error {
	return store.ErrReadOnly
}

// StatFS reports a full, read-only volume: zero free blocks is the
// strongest hint v2 can give that writes are pointless.
func (s *Store) StatFS(_ context.Context, _ string) (*store.FSStat, error) {
	return &store.FSStat{
		BlockSize:   4096,
		TotalBlocks: 1 << 22,
		FreeBlocks:  0,
		AvailBlocks: 0,
	}, nil
}

// ============================================================================
// Helpers
// ============================================================================

func entry(dir, name string) store.Entry {
	path := dir + "/" + name
	if dir == "/" {
		path = "/" + name
	}
	return store.Entry{Name: name, FileID: store.FileIDFor(path)}
}

func dirInfo(path string) *store.FileInfo {
	return &store.FileInfo{
		Type:   store.TypeDirectory,
		Mode:   0o555,
		Nlink:  2,
		FileID: store.FileIDFor(path),
		Atime:  time.Unix(0, 0),
		Mtime:  time.Unix(0, 0),
		Ctime:  time.Unix(0, 0),
	}
}

func objectInfo(path string, head *s3.HeadObjectOutput) *store.FileInfo {
	mtime := time.Unix(0, 0)
	if head.LastModified != nil {
		mtime = *head.LastModified
	}
	return &store.FileInfo{
		Type:   store.TypeRegular,
		Mode:   0o444,
		Nlink:  1,
		Size:   uint64(aws.ToInt64(head.ContentLength)),
		FileID: store.FileIDFor(path),
		Atime:  mtime,
		Mtime:  mtime,
		Ctime:  mtime,
	}
}

func isNotFound(err error) bool {
	var noSuchKey *types.NoSuchKey
	var notFound *types.NotFound
	return errors.As(err, &noSuchKey) || errors.As(err, &notFound)
}
