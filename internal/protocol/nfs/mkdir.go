package nfs

import (
	"context"

	"github.com/konkers/prolink-nfs/internal/handles"
	"github.com/konkers/prolink-nfs/internal/logger"
)

// MkdirRequest represents a MKDIR request; the argument shape is the same
// createargs as CREATE.
type MkdirRequest struct {
	Args DirOpArgs
	Attr SAttr
}

// MkdirResponse represents a MKDIR response.
type MkdirResponse struct {
	Status Status
	Handle handles.Handle // only present if Status == OK
	Attr   *FAttr         // only present if Status == OK
}

// Mkdir makes a new directory. Like CREATE, a retransmitted request
// surfaces NFSERR_EXIST rather than being deduplicated.
// RFC 1094 Section 2.2.14
func (h *Handler) Mkdir(ctx context.Context, req *MkdirRequest) (*MkdirResponse, error) {
	dirPath, status := h.resolve(req.Args.Dir)
	if status != OK {
		return &MkdirResponse{Status: status}, nil
	}

	childPath, name, status := h.child(dirPath, req.Args.Name)
	if status != OK {
		return &MkdirResponse{Status: status}, nil
	}

	logger.Debug("MKDIR %q in %s", name, dirPath)

	mode := req.Attr.Mode
	if mode == NoValue {
		mode = 0o755
	}
	if err := h.store.Mkdir(ctx, childPath, mode&0o7777); err != nil {
		return &MkdirResponse{Status: statusFromError(err)}, nil
	}

	if status := h.applyCreateAttrs(ctx, childPath, req.Attr); status != OK {
		return &MkdirResponse{Status: status}, nil
	}

	attr, status := h.attrFor(ctx, childPath)
	if status != OK {
		return &MkdirResponse{Status: status}, nil
	}

	return &MkdirResponse{
		Status: OK,
		Handle: h.handles.HandleFor(childPath),
		Attr:   attr,
	}, nil
}

func DecodeMkdirRequest(data []byte) (*MkdirRequest, error) {
	req, err := decodeCreateArgs(data)
	if err != nil {
		return nil, err
	}
	return &MkdirRequest{Args: req.Args, Attr: req.Attr}, nil
}

func (resp *MkdirResponse) Encode() ([]byte, error) {
	return encodeDirOpRes(resp.Status, resp.Handle, resp.Attr)
}
