package nfs

import (
	"bytes"
	"io"
	"math"
	"time"

	"github.com/konkers/prolink-nfs/internal/handles"
	"github.com/konkers/prolink-nfs/internal/protocol/xdr"
	"github.com/konkers/prolink-nfs/pkg/store"
)

// TimeVal is the protocol timestamp: seconds and microseconds since the
// epoch (RFC 1094 Section 2.3.4).
type TimeVal struct {
	Seconds  uint32
	Useconds uint32
}

func timeValFromTime(t time.Time) TimeVal {
	return TimeVal{
		Seconds:  uint32(t.Unix()),
		Useconds: uint32(t.Nanosecond() / 1000),
	}
}

func (tv TimeVal) toTime() time.Time {
	return time.Unix(int64(tv.Seconds), int64(tv.Useconds)*1000)
}

func (tv TimeVal) encode(buf *bytes.Buffer) {
	xdr.EncodeUint32(buf, tv.Seconds)
	xdr.EncodeUint32(buf, tv.Useconds)
}

func decodeTimeVal(r io.Reader) (TimeVal, error) {
	var tv TimeVal
	var err error
	if tv.Seconds, err = xdr.DecodeUint32(r); err != nil {
		return tv, err
	}
	tv.Useconds, err = xdr.DecodeUint32(r)
	return tv, err
}

// FAttr is the full attribute set (fattr, RFC 1094 Section 2.3.5). It is
// derived from a store stat on every call and never cached.
type FAttr struct {
	Type      uint32
	Mode      uint32
	Nlink     uint32
	UID       uint32
	GID       uint32
	Size      uint32
	BlockSize uint32
	Rdev      uint32
	Blocks    uint32
	FSID      uint32
	FileID    uint32
	Atime     TimeVal
	Mtime     TimeVal
	Ctime     TimeVal
}

// encodedFAttrSize is the wire size of an fattr: 11 words + 3 timevals.
const encodedFAttrSize = 17 * 4

func (a *FAttr) encode(buf *bytes.Buffer) {
	xdr.EncodeUint32(buf, a.Type)
	xdr.EncodeUint32(buf, a.Mode)
	xdr.EncodeUint32(buf, a.Nlink)
	xdr.EncodeUint32(buf, a.UID)
	xdr.EncodeUint32(buf, a.GID)
	xdr.EncodeUint32(buf, a.Size)
	xdr.EncodeUint32(buf, a.BlockSize)
	xdr.EncodeUint32(buf, a.Rdev)
	xdr.EncodeUint32(buf, a.Blocks)
	xdr.EncodeUint32(buf, a.FSID)
	xdr.EncodeUint32(buf, a.FileID)
	a.Atime.encode(buf)
	a.Mtime.encode(buf)
	a.Ctime.encode(buf)
}

// fattrFromInfo converts a store stat result to wire attributes.
//
// The type is reported twice, as the ftype enum and as type bits inside
// mode. That redundancy is a protocol wart old clients rely on, so it is
// reproduced, not repaired.
func fattrFromInfo(info *store.FileInfo, fsid uint32) *FAttr {
	var ftype, typeBits uint32
	switch info.Type {
	case store.TypeDirectory:
		ftype, typeBits = FTypeDir, ModeDir
	case store.TypeSymlink:
		ftype, typeBits = FTypeLink, ModeLink
	case store.TypeRegular:
		ftype, typeBits = FTypeRegular, ModeRegular
	default:
		ftype, typeBits = FTypeNone, 0
	}

	size := info.Size
	if size > math.MaxUint32 {
		size = math.MaxUint32
	}

	const blockSize = 4096
	return &FAttr{
		Type:      ftype,
		Mode:      typeBits | (info.Mode & 0o7777),
		Nlink:     info.Nlink,
		UID:       info.UID,
		GID:       info.GID,
		Size:      uint32(size),
		BlockSize: blockSize,
		Rdev:      0,
		Blocks:    uint32((size + blockSize - 1) / blockSize),
		FSID:      fsid,
		FileID:    foldFileID(info.FileID),
		Atime:     timeValFromTime(info.Atime),
		Mtime:     timeValFromTime(info.Mtime),
		Ctime:     timeValFromTime(info.Ctime),
	}
}

// foldFileID compresses a 64-bit store file id into the protocol's 32-bit
// fileid. XOR-folding keeps both halves contributing, which matters when
// ids are path hashes.
func foldFileID(id uint64) uint32 {
	return uint32(id) ^ uint32(id>>32)
}

// SAttr is the settable attribute subset (sattr, RFC 1094 Section 2.3.6).
// A field holding NoValue is left unchanged; Size 0 truncates.
type SAttr struct {
	Mode  uint32
	UID   uint32
	GID   uint32
	Size  uint32
	Atime TimeVal
	Mtime TimeVal
}

func decodeSAttr(r io.Reader) (*SAttr, error) {
	sa := &SAttr{}
	var err error
	if sa.Mode, err = xdr.DecodeUint32(r); err != nil {
		return nil, err
	}
	if sa.UID, err = xdr.DecodeUint32(r); err != nil {
		return nil, err
	}
	if sa.GID, err = xdr.DecodeUint32(r); err != nil {
		return nil, err
	}
	if sa.Size, err = xdr.DecodeUint32(r); err != nil {
		return nil, err
	}
	if sa.Atime, err = decodeTimeVal(r); err != nil {
		return nil, err
	}
	if sa.Mtime, err = decodeTimeVal(r); err != nil {
		return nil, err
	}
	return sa, nil
}

// toSetAttr translates the wire sentinel convention into the store's
// nil-means-unchanged form.
func (sa *SAttr) toSetAttr() store.SetAttr {
	var out store.SetAttr
	if sa.Mode != NoValue {
		mode := sa.Mode & 0o7777
		out.Mode = &mode
	}
	if sa.UID != NoValue {
		uid := sa.UID
		out.UID = &uid
	}
	if sa.GID != NoValue {
		gid := sa.GID
		out.GID = &gid
	}
	if sa.Size != NoValue {
		size := uint64(sa.Size)
		out.Size = &size
	}
	if sa.Atime.Seconds != NoValue {
		at := sa.Atime.toTime()
		out.Atime = &at
	}
	if sa.Mtime.Seconds != NoValue {
		mt := sa.Mtime.toTime()
		out.Mtime = &mt
	}
	return out
}

// decodeHandle reads the fixed 32-byte fhandle. Unlike version 3 there is
// no length prefix on the wire.
func decodeHandle(r io.Reader) (handles.Handle, error) {
	var h handles.Handle
	data, err := xdr.DecodeFixedOpaque(r, handles.Size)
	if err != nil {
		return h, err
	}
	copy(h[:], data)
	return h, nil
}

func encodeHandle(buf *bytes.Buffer, h handles.Handle) {
	xdr.EncodeFixedOpaque(buf, h[:])
}

// decodeName reads a filename's raw UTF-16LE bytes. The wire bound is
// deliberately looser than MaxNameLen so that an over-long name reaches
// the handler and fails with NFSERR_NAMETOOLONG instead of being dropped
// as a malformed datagram.
func decodeName(r io.Reader) ([]byte, error) {
	return xdr.DecodeOpaque(r, MaxPathLen)
}

// decodePathBytes reads a pathname's raw UTF-16LE bytes, with the same
// loose-bound rationale as decodeName.
func decodePathBytes(r io.Reader) ([]byte, error) {
	return xdr.DecodeOpaque(r, 2*MaxPathLen)
}

// DirOpArgs is the (directory handle, name) pair used by LOOKUP, CREATE,
// REMOVE, RENAME, LINK, SYMLINK, MKDIR and RMDIR. Name stays in wire form
// until the handler transcodes it, so length and encoding problems map to
// protocol statuses.
type DirOpArgs struct {
	Dir  handles.Handle
	Name []byte
}

func decodeDirOpArgs(r io.Reader) (DirOpArgs, error) {
	var args DirOpArgs
	var err error
	if args.Dir, err = decodeHandle(r); err != nil {
		return args, err
	}
	args.Name, err = decodeName(r)
	return args, err
}
