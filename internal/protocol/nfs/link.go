package nfs

import (
	"bytes"
	"context"

	"github.com/konkers/prolink-nfs/internal/handles"
	"github.com/konkers/prolink-nfs/internal/logger"
)

// LinkRequest represents a LINK request: the existing object's handle and
// the diropargs naming the new link.
type LinkRequest struct {
	From handles.Handle
	To   DirOpArgs
}

// LinkResponse represents a LINK response: status only.
type LinkResponse struct {
	Status Status
}

// Link makes a hard link. The new name gets its own handle on first
// lookup; the linked-to object's handle is untouched.
// RFC 1094 Section 2.2.13
func (h *Handler) Link(ctx context.Context, req *LinkRequest) (*LinkResponse, error) {
	fromPath, status := h.resolve(req.From)
	if status != OK {
		return &LinkResponse{Status: status}, nil
	}

	toDir, status := h.resolve(req.To.Dir)
	if status != OK {
		return &LinkResponse{Status: status}, nil
	}

	toPath, toName, status := h.child(toDir, req.To.Name)
	if status != OK {
		return &LinkResponse{Status: status}, nil
	}

	logger.Debug("LINK %s -> %q in %s", fromPath, toName, toDir)

	if err := h.store.Link(ctx, fromPath, toPath); err != nil {
		return &LinkResponse{Status: statusFromError(err)}, nil
	}

	return &LinkResponse{Status: OK}, nil
}

func DecodeLinkRequest(data []byte) (*LinkRequest, error) {
	r := bytes.NewReader(data)

	from, err := decodeHandle(r)
	if err != nil {
		return nil, err
	}
	to, err := decodeDirOpArgs(r)
	if err != nil {
		return nil, err
	}

	return &LinkRequest{From: from, To: to}, nil
}

func (resp *LinkResponse) Encode() ([]byte, error) {
	return encodeStatus(resp.Status)
}
