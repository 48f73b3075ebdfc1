package nfs

import (
	"bytes"
	"context"

	"github.com/konkers/prolink-nfs/internal/logger"
	"github.com/konkers/prolink-nfs/internal/names"
)

// SymlinkRequest represents a SYMLINK request: where to create the link,
// its target path (still in wire encoding) and initial attributes.
type SymlinkRequest struct {
	From   DirOpArgs
	Target []byte
	Attr   SAttr
}

// SymlinkResponse represents a SYMLINK response. Version 2 returns only a
// status here, with no handle and no attributes; clients LOOKUP the new name if
// they want either.
type SymlinkResponse struct {
	Status Status
}

// Symlink creates a symbolic link. The target is an uninterpreted path:
// it is transcoded and stored, never resolved or validated by the server.
// RFC 1094 Section 2.2.13
func (h *Handler) Symlink(ctx context.Context, req *SymlinkRequest) (*SymlinkResponse, error) {
	dirPath, status := h.resolve(req.From.Dir)
	if status != OK {
		return &SymlinkResponse{Status: status}, nil
	}

	linkPath, name, status := h.child(dirPath, req.From.Name)
	if status != OK {
		return &SymlinkResponse{Status: status}, nil
	}

	target, err := names.DecodePath(req.Target)
	if err != nil {
		return &SymlinkResponse{Status: statusFromNameError(err)}, nil
	}

	logger.Debug("SYMLINK %q -> %q in %s", name, target, dirPath)

	if err := h.store.Symlink(ctx, linkPath, target); err != nil {
		return &SymlinkResponse{Status: statusFromError(err)}, nil
	}

	return &SymlinkResponse{Status: OK}, nil
}

func DecodeSymlinkRequest(data []byte) (*SymlinkRequest, error) {
	r := bytes.NewReader(data)
	req := &SymlinkRequest{}

	var err error
	if req.From, err = decodeDirOpArgs(r); err != nil {
		return nil, err
	}
	if req.Target, err = decodePathBytes(r); err != nil {
		return nil, err
	}
	attr, err := decodeSAttr(r)
	if err != nil {
		return nil, err
	}
	req.Attr = *attr

	return req, nil
}

func (resp *SymlinkResponse) Encode() ([]byte, error) {
	return encodeStatus(resp.Status)
}
