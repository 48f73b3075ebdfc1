package nfs

import (
	"bytes"
	"context"

	"github.com/konkers/prolink-nfs/internal/handles"
	"github.com/konkers/prolink-nfs/internal/logger"
)

// CreateRequest represents a CREATE request: where to create plus the
// initial attributes.
type CreateRequest struct {
	Args DirOpArgs
	Attr SAttr
}

// CreateResponse represents a CREATE response.
type CreateResponse struct {
	Status Status
	Handle handles.Handle // only present if Status == OK
	Attr   *FAttr         // only present if Status == OK
}

// Create makes a new regular file. An existing name fails with
// NFSERR_EXIST, including when the "new" request is a UDP retransmission
// of one that already succeeded, which clients of this protocol are
// expected to tolerate.
// RFC 1094 Section 2.2.10
func (h *Handler) Create(ctx context.Context, req *CreateRequest) (*CreateResponse, error) {
	dirPath, status := h.resolve(req.Args.Dir)
	if status != OK {
		return &CreateResponse{Status: status}, nil
	}

	childPath, name, status := h.child(dirPath, req.Args.Name)
	if status != OK {
		return &CreateResponse{Status: status}, nil
	}

	logger.Debug("CREATE %q in %s", name, dirPath)

	mode := req.Attr.Mode
	if mode == NoValue {
		mode = 0o644
	}
	if err := h.store.Create(ctx, childPath, mode&0o7777); err != nil {
		return &CreateResponse{Status: statusFromError(err)}, nil
	}

	if status := h.applyCreateAttrs(ctx, childPath, req.Attr); status != OK {
		return &CreateResponse{Status: status}, nil
	}

	attr, status := h.attrFor(ctx, childPath)
	if status != OK {
		return &CreateResponse{Status: status}, nil
	}

	return &CreateResponse{
		Status: OK,
		Handle: h.handles.HandleFor(childPath),
		Attr:   attr,
	}, nil
}

// applyCreateAttrs applies the non-mode sattr fields after a create. The
// mode already went in with the create itself; a freshly made file is
// empty, so a size of zero needs no extra work either.
func (h *Handler) applyCreateAttrs(ctx context.Context, path string, sa SAttr) Status {
	rest := sa.toSetAttr()
	rest.Mode = nil
	if rest.Size != nil && *rest.Size == 0 {
		rest.Size = nil
	}
	if rest.UID == nil && rest.GID == nil && rest.Size == nil &&
		rest.Atime == nil && rest.Mtime == nil {
		return OK
	}
	if _, err := h.store.SetAttr(ctx, path, rest); err != nil {
		return statusFromError(err)
	}
	return OK
}

func DecodeCreateRequest(data []byte) (*CreateRequest, error) {
	return decodeCreateArgs(data)
}

// decodeCreateArgs decodes createargs, the shared argument shape of
// CREATE and MKDIR.
func decodeCreateArgs(data []byte) (*CreateRequest, error) {
	r := bytes.NewReader(data)

	args, err := decodeDirOpArgs(r)
	if err != nil {
		return nil, err
	}
	attr, err := decodeSAttr(r)
	if err != nil {
		return nil, err
	}

	return &CreateRequest{Args: args, Attr: *attr}, nil
}

func (resp *CreateResponse) Encode() ([]byte, error) {
	return encodeDirOpRes(resp.Status, resp.Handle, resp.Attr)
}
