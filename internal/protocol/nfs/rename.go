package nfs

import (
	"bytes"
	"context"

	"github.com/konkers/prolink-nfs/internal/logger"
)

// RenameRequest represents a RENAME request: source and destination
// diropargs.
type RenameRequest struct {
	From DirOpArgs
	To   DirOpArgs
}

// RenameResponse represents a RENAME response: status only.
type RenameResponse struct {
	Status Status
}

// Rename moves an entry. Clients hold handles rather than paths, so the
// moved entity's handle is reparented and keeps resolving; a clobbered
// destination's handle is retired first. Table updates happen only after
// the store reports success; the two are not transactional across each
// other, and don't need to be.
// RFC 1094 Section 2.2.12
func (h *Handler) Rename(ctx context.Context, req *RenameRequest) (*RenameResponse, error) {
	fromDir, status := h.resolve(req.From.Dir)
	if status != OK {
		return &RenameResponse{Status: status}, nil
	}
	toDir, status := h.resolve(req.To.Dir)
	if status != OK {
		return &RenameResponse{Status: status}, nil
	}

	fromPath, fromName, status := h.child(fromDir, req.From.Name)
	if status != OK {
		return &RenameResponse{Status: status}, nil
	}
	toPath, toName, status := h.child(toDir, req.To.Name)
	if status != OK {
		return &RenameResponse{Status: status}, nil
	}

	logger.Debug("RENAME %q -> %q (%s -> %s)", fromName, toName, fromDir, toDir)

	if err := h.store.Rename(ctx, fromPath, toPath); err != nil {
		return &RenameResponse{Status: statusFromError(err)}, nil
	}

	// Renaming a name onto itself succeeds without touching the table;
	// invalidating first would strand the live handle.
	if fromPath != toPath {
		h.handles.Invalidate(toPath)
		h.handles.Reparent(fromPath, toPath)
	}
	return &RenameResponse{Status: OK}, nil
}

func DecodeRenameRequest(data []byte) (*RenameRequest, error) {
	r := bytes.NewReader(data)

	from, err := decodeDirOpArgs(r)
	if err != nil {
		return nil, err
	}
	to, err := decodeDirOpArgs(r)
	if err != nil {
		return nil, err
	}

	return &RenameRequest{From: from, To: to}, nil
}

func (resp *RenameResponse) Encode() ([]byte, error) {
	return encodeStatus(resp.Status)
}
