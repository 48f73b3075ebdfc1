package nfs

// Program and version served. This is NFS version 2 (RFC 1094); the DJ
// hardware this server targets speaks nothing newer.
const (
	Program = 100003
	Version = 2
)

// NFS v2 procedure numbers (RFC 1094 Section 2.2).
const (
	ProcNull       = 0
	ProcGetAttr    = 1
	ProcSetAttr    = 2
	ProcRoot       = 3 // obsolete, void/void
	ProcLookup     = 4
	ProcReadLink   = 5
	ProcRead       = 6
	ProcWriteCache = 7 // unused in v2, void/void
	ProcWrite      = 8
	ProcCreate     = 9
	ProcRemove     = 10
	ProcRename     = 11
	ProcLink       = 12
	ProcSymlink    = 13
	ProcMkdir      = 14
	ProcRmdir      = 15
	ProcReadDir    = 16
	ProcStatFS     = 17
)

// Protocol size constants (RFC 1094 Section 2.3).
const (
	// MaxData bounds the data of a single READ or WRITE
	MaxData = 8192

	// MaxPathLen bounds a pathname in bytes
	MaxPathLen = 1024

	// MaxNameLen bounds a filename; with the UTF-16LE deviation the unit
	// is UTF-16 code units, not bytes
	MaxNameLen = 255

	// CookieSize is the fixed width of a READDIR cookie
	CookieSize = 4

	// FHSize is the fixed width of a file handle
	FHSize = 32
)

// Status is the nfsstat result discriminant (RFC 1094 Section 2.3.1).
// Values mirror Unix errno on purpose.
type Status uint32

const (
	OK             Status = 0
	ErrPerm        Status = 1
	ErrNoEnt       Status = 2
	ErrIO          Status = 5
	ErrNXIO        Status = 6
	ErrAcces       Status = 13
	ErrExist       Status = 17
	ErrNoDev       Status = 19
	ErrNotDir      Status = 20
	ErrIsDir       Status = 21
	ErrFBig        Status = 27
	ErrNoSpc       Status = 28
	ErrROFS        Status = 30
	ErrNameTooLong Status = 63
	ErrNotEmpty    Status = 66
	ErrDQuot       Status = 69
	ErrStale       Status = 70
	ErrWFlush      Status = 99
)

func (s Status) String() string {
	switch s {
	case OK:
		return "NFS_OK"
	case ErrPerm:
		return "NFSERR_PERM"
	case ErrNoEnt:
		return "NFSERR_NOENT"
	case ErrIO:
		return "NFSERR_IO"
	case ErrNXIO:
		return "NFSERR_NXIO"
	case ErrAcces:
		return "NFSERR_ACCES"
	case ErrExist:
		return "NFSERR_EXIST"
	case ErrNoDev:
		return "NFSERR_NODEV"
	case ErrNotDir:
		return "NFSERR_NOTDIR"
	case ErrIsDir:
		return "NFSERR_ISDIR"
	case ErrFBig:
		return "NFSERR_FBIG"
	case ErrNoSpc:
		return "NFSERR_NOSPC"
	case ErrROFS:
		return "NFSERR_ROFS"
	case ErrNameTooLong:
		return "NFSERR_NAMETOOLONG"
	case ErrNotEmpty:
		return "NFSERR_NOTEMPTY"
	case ErrDQuot:
		return "NFSERR_DQUOT"
	case ErrStale:
		return "NFSERR_STALE"
	case ErrWFlush:
		return "NFSERR_WFLUSH"
	default:
		return "NFSERR_UNKNOWN"
	}
}

// File types (ftype, RFC 1094 Section 2.3.2).
const (
	FTypeNone    = 0
	FTypeRegular = 1
	FTypeDir     = 2
	FTypeBlock   = 3
	FTypeChar    = 4
	FTypeLink    = 5
)

// Type bits carried redundantly inside the mode word (RFC 1094 Section
// 2.3.5). The protocol transmits the file type both as the ftype enum and
// as these bits; clients may depend on either, so both are always set.
const (
	ModeDir     = 0o040000
	ModeChar    = 0o020000
	ModeBlock   = 0o060000
	ModeRegular = 0o100000
	ModeLink    = 0o120000
)

// NoValue is the sattr sentinel: a field holding it (the unsigned reading
// of -1) is left unchanged by SETATTR and CREATE.
const NoValue = 0xFFFFFFFF
