package nfs

import (
	"bytes"
	"context"

	"github.com/konkers/prolink-nfs/internal/handles"
	"github.com/konkers/prolink-nfs/internal/logger"
	"github.com/konkers/prolink-nfs/pkg/store"
)

// LookupRequest represents a LOOKUP request.
type LookupRequest struct {
	Args DirOpArgs
}

// LookupResponse represents a LOOKUP response.
type LookupResponse struct {
	Status Status
	Handle handles.Handle // only present if Status == OK
	Attr   *FAttr         // only present if Status == OK
}

// Lookup finds a name in a directory and returns its handle and
// attributes. This is where handles for existing files are minted;
// repeated lookups of the same live path return the same handle.
// RFC 1094 Section 2.2.5
func (h *Handler) Lookup(ctx context.Context, req *LookupRequest) (*LookupResponse, error) {
	dirPath, status := h.resolve(req.Args.Dir)
	if status != OK {
		return &LookupResponse{Status: status}, nil
	}

	dirInfo, err := h.store.Stat(ctx, dirPath)
	if err != nil {
		return &LookupResponse{Status: statusFromError(err)}, nil
	}
	if dirInfo.Type != store.TypeDirectory {
		return &LookupResponse{Status: ErrNotDir}, nil
	}

	childPath, name, status := h.child(dirPath, req.Args.Name)
	if status != OK {
		return &LookupResponse{Status: status}, nil
	}

	logger.Debug("LOOKUP %q in %s", name, dirPath)

	attr, status := h.attrFor(ctx, childPath)
	if status != OK {
		return &LookupResponse{Status: status}, nil
	}

	return &LookupResponse{
		Status: OK,
		Handle: h.handles.HandleFor(childPath),
		Attr:   attr,
	}, nil
}

func DecodeLookupRequest(data []byte) (*LookupRequest, error) {
	r := bytes.NewReader(data)
	args, err := decodeDirOpArgs(r)
	if err != nil {
		return nil, err
	}
	return &LookupRequest{Args: args}, nil
}

func (resp *LookupResponse) Encode() ([]byte, error) {
	return encodeDirOpRes(resp.Status, resp.Handle, resp.Attr)
}
