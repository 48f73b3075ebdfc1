package nfs

import (
	"context"
	"errors"
	gopath "path"
	"strings"

	"github.com/konkers/prolink-nfs/internal/handles"
	"github.com/konkers/prolink-nfs/internal/logger"
	"github.com/konkers/prolink-nfs/internal/names"
	"github.com/konkers/prolink-nfs/pkg/store"
)

// Handler implements the NFS v2 procedures against a store. It owns no
// per-client state: every call is satisfiable from its arguments plus the
// handle table and the store, so retransmitted datagrams are harmless.
type Handler struct {
	store   store.Store
	handles *handles.Table
	fsid    uint32
}

// NewHandler returns a Handler serving st through the given handle table.
func NewHandler(st store.Store, table *handles.Table) *Handler {
	return &Handler{
		store:   st,
		handles: table,
		fsid:    1,
	}
}

// RootHandle returns the handle of the store's root directory, minting it
// if this is the first ask. The mount layer hands it out on MNT.
func (h *Handler) RootHandle() handles.Handle {
	return h.handles.HandleFor("/")
}

// resolve is every procedure's first step: map the presented handle to a
// path. A handle the table does not know is stale by definition, and the
// procedure fails before the store is touched.
func (h *Handler) resolve(hd handles.Handle) (string, Status) {
	path, err := h.handles.PathFor(hd)
	if err != nil {
		logger.Debug("stale handle %x", hd[:8])
		return "", ErrStale
	}
	return path, OK
}

// child transcodes a wire name and joins it under dir. Name problems come
// back as protocol statuses: over-long names are NFSERR_NAMETOOLONG (never
// silently truncated), undecodable UTF-16LE is NFSERR_IO because the base
// protocol has no closer status.
func (h *Handler) child(dir string, rawName []byte) (string, string, Status) {
	name, err := names.Decode(rawName)
	if err != nil {
		return "", "", statusFromNameError(err)
	}
	if name == "" || strings.ContainsRune(name, '/') {
		return "", "", ErrAcces
	}
	return gopath.Join(dir, name), name, OK
}

// attrFor stats path and converts to wire attributes.
func (h *Handler) attrFor(ctx context.Context, path string) (*FAttr, Status) {
	info, err := h.store.Stat(ctx, path)
	if err != nil {
		return nil, statusFromError(err)
	}
	return fattrFromInfo(info, h.fsid), OK
}

// statusFromError maps store errors onto the nfsstat enumeration.
func statusFromError(err error) Status {
	switch {
	case err == nil:
		return OK
	case errors.Is(err, store.ErrNotFound):
		return ErrNoEnt
	case errors.Is(err, store.ErrExist):
		return ErrExist
	case errors.Is(err, store.ErrNotDir):
		return ErrNotDir
	case errors.Is(err, store.ErrIsDir):
		return ErrIsDir
	case errors.Is(err, store.ErrNotEmpty):
		return ErrNotEmpty
	case errors.Is(err, store.ErrInvalid):
		// v2 has no EINVAL status; kernel servers answer I/O here too.
		return ErrIO
	case errors.Is(err, store.ErrPermission):
		return ErrPerm
	case errors.Is(err, store.ErrNoSpace):
		return ErrNoSpc
	case errors.Is(err, store.ErrFileTooLarge):
		return ErrFBig
	case errors.Is(err, store.ErrReadOnly):
		return ErrROFS
	case errors.Is(err, store.ErrNotSupported):
		// v2 has no ENOTSUP; EPERM is what kernel servers report for
		// operations a backend cannot express.
		return ErrPerm
	case errors.Is(err, handles.ErrStale):
		return ErrStale
	default:
		logger.Error("store error: %v", err)
		return ErrIO
	}
}

// statusFromNameError maps transcoder failures. Only length violations
// have a dedicated status; malformed encodings surface as the generic I/O
// error.
func statusFromNameError(err error) Status {
	switch {
	case errors.Is(err, names.ErrNameTooLong), errors.Is(err, names.ErrPathTooLong):
		return ErrNameTooLong
	default:
		return ErrIO
	}
}
