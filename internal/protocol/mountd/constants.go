package mountd

// Program and version of the MOUNT service (RFC 1094 Appendix A).
const (
	Program = 100005
	Version = 1
)

// MOUNT v1 procedure numbers.
const (
	ProcNull    = 0
	ProcMnt     = 1
	ProcDump    = 2
	ProcUmnt    = 3
	ProcUmntAll = 4
	ProcExport  = 5
)

// Status is the fhstatus discriminant. Like nfsstat it mirrors Unix
// errno values.
type Status uint32

const (
	OK             Status = 0
	ErrPerm        Status = 1
	ErrNoEnt       Status = 2
	ErrIO          Status = 5
	ErrAccess      Status = 13
	ErrNotDir      Status = 20
	ErrInval       Status = 22
	ErrNameTooLong Status = 63
)
