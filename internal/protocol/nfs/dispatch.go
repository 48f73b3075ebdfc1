package nfs

import (
	"context"
	"errors"
	"fmt"
)

// ============================================================================
// Procedure Dispatch Table
// ============================================================================

// ErrUnknownProcedure reports a procedure number outside 0..17. The
// transport turns it into a PROC_UNAVAIL reply.
var ErrUnknownProcedure = errors.New("unknown NFS procedure")

// procedureHandler decodes a raw argument block, runs the procedure and
// returns the encoded result body. A returned error means the arguments
// did not decode; protocol-level failures are carried inside the encoded
// body as an nfsstat instead.
type procedureHandler func(ctx context.Context, h *Handler, data []byte) ([]byte, error)

// procedureInfo ties a procedure number to a name for logging and its
// handler function.
type procedureInfo struct {
	Name    string
	Handler procedureHandler
}

// dispatchTable maps NFS v2 procedure numbers to their handlers.
// The table is complete: all 18 procedures of RFC 1094 answer, including
// the obsolete ROOT and the unused WRITECACHE.
var dispatchTable = map[uint32]*procedureInfo{
	ProcNull: {
		Name: "NULL",
		Handler: func(ctx context.Context, h *Handler, _ []byte) ([]byte, error) {
			return h.Null(ctx)
		},
	},
	ProcGetAttr: {
		Name:    "GETATTR",
		Handler: handleProcedure(DecodeGetAttrRequest, (*Handler).GetAttr),
	},
	ProcSetAttr: {
		Name:    "SETATTR",
		Handler: handleProcedure(DecodeSetAttrRequest, (*Handler).SetAttr),
	},
	ProcRoot: {
		Name: "ROOT",
		Handler: func(ctx context.Context, h *Handler, _ []byte) ([]byte, error) {
			return h.Root(ctx)
		},
	},
	ProcLookup: {
		Name:    "LOOKUP",
		Handler: handleProcedure(DecodeLookupRequest, (*Handler).Lookup),
	},
	ProcReadLink: {
		Name:    "READLINK",
		Handler: handleProcedure(DecodeReadLinkRequest, (*Handler).ReadLink),
	},
	ProcRead: {
		Name:    "READ",
		Handler: handleProcedure(DecodeReadRequest, (*Handler).Read),
	},
	ProcWriteCache: {
		Name: "WRITECACHE",
		Handler: func(ctx context.Context, h *Handler, _ []byte) ([]byte, error) {
			return h.WriteCache(ctx)
		},
	},
	ProcWrite: {
		Name:    "WRITE",
		Handler: handleProcedure(DecodeWriteRequest, (*Handler).Write),
	},
	ProcCreate: {
		Name:    "CREATE",
		Handler: handleProcedure(DecodeCreateRequest, (*Handler).Create),
	},
	ProcRemove: {
		Name:    "REMOVE",
		Handler: handleProcedure(DecodeRemoveRequest, (*Handler).Remove),
	},
	ProcRename: {
		Name:    "RENAME",
		Handler: handleProcedure(DecodeRenameRequest, (*Handler).Rename),
	},
	ProcLink: {
		Name:    "LINK",
		Handler: handleProcedure(DecodeLinkRequest, (*Handler).Link),
	},
	ProcSymlink: {
		Name:    "SYMLINK",
		Handler: handleProcedure(DecodeSymlinkRequest, (*Handler).Symlink),
	},
	ProcMkdir: {
		Name:    "MKDIR",
		Handler: handleProcedure(DecodeMkdirRequest, (*Handler).Mkdir),
	},
	ProcRmdir: {
		Name:    "RMDIR",
		Handler: handleProcedure(DecodeRmdirRequest, (*Handler).Rmdir),
	},
	ProcReadDir: {
		Name:    "READDIR",
		Handler: handleProcedure(DecodeReadDirRequest, (*Handler).ReadDir),
	},
	ProcStatFS: {
		Name:    "STATFS",
		Handler: handleProcedure(DecodeStatFSRequest, (*Handler).StatFS),
	},
}

// encoder is satisfied by every procedure response type.
type encoder interface {
	Encode() ([]byte, error)
}

// handleProcedure builds a dispatch-table entry from a decoder and a
// handler method. Decode failures propagate so the transport can drop
// the datagram; everything after a successful decode answers with a
// status inside the reply body.
func handleProcedure[Req any, Resp encoder](
	decode func([]byte) (*Req, error),
	handle func(*Handler, context.Context, *Req) (Resp, error),
) procedureHandler {
	return func(ctx context.Context, h *Handler, data []byte) ([]byte, error) {
		req, err := decode(data)
		if err != nil {
			return nil, fmt.Errorf("decoding arguments: %w", err)
		}
		resp, err := handle(h, ctx, req)
		if err != nil {
			return nil, err
		}
		return resp.Encode()
	}
}

// Dispatch runs the named procedure against raw XDR argument bytes and
// returns the encoded reply body.
func (h *Handler) Dispatch(ctx context.Context, procedure uint32, data []byte) ([]byte, error) {
	info, ok := dispatchTable[procedure]
	if !ok {
		return nil, fmt.Errorf("%w: %d", ErrUnknownProcedure, procedure)
	}
	return info.Handler(ctx, h, data)
}

// ProcedureName returns the RFC 1094 name for a procedure number, for
// logging. Unknown numbers format as their decimal value.
func ProcedureName(procedure uint32) string {
	if info, ok := dispatchTable[procedure]; ok {
		return info.Name
	}
	return fmt.Sprintf("procedure-%d", procedure)
}
