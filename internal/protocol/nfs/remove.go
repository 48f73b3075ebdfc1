package nfs

import (
	"bytes"
	"context"

	"github.com/konkers/prolink-nfs/internal/logger"
)

// RemoveRequest represents a REMOVE request.
type RemoveRequest struct {
	Args DirOpArgs
}

// RemoveResponse represents a REMOVE response: status only, no payload.
type RemoveResponse struct {
	Status Status
}

// Remove deletes a file or symlink and retires its handle. A handle held
// from before the remove resolves to NFSERR_STALE afterwards, not
// NFSERR_NOENT, which is reserved for names that never resolved.
// RFC 1094 Section 2.2.11
func (h *Handler) Remove(ctx context.Context, req *RemoveRequest) (*RemoveResponse, error) {
	dirPath, status := h.resolve(req.Args.Dir)
	if status != OK {
		return &RemoveResponse{Status: status}, nil
	}

	childPath, name, status := h.child(dirPath, req.Args.Name)
	if status != OK {
		return &RemoveResponse{Status: status}, nil
	}

	logger.Debug("REMOVE %q in %s", name, dirPath)

	if err := h.store.Remove(ctx, childPath); err != nil {
		return &RemoveResponse{Status: statusFromError(err)}, nil
	}

	h.handles.Invalidate(childPath)
	return &RemoveResponse{Status: OK}, nil
}

func DecodeRemoveRequest(data []byte) (*RemoveRequest, error) {
	r := bytes.NewReader(data)
	args, err := decodeDirOpArgs(r)
	if err != nil {
		return nil, err
	}
	return &RemoveRequest{Args: args}, nil
}

func (resp *RemoveResponse) Encode() ([]byte, error) {
	return encodeStatus(resp.Status)
}
