package nfs

import (
	"bytes"
	"context"

	"github.com/konkers/prolink-nfs/internal/logger"
)

// RmdirRequest represents a RMDIR request.
type RmdirRequest struct {
	Args DirOpArgs
}

// RmdirResponse represents a RMDIR response: status only.
type RmdirResponse struct {
	Status Status
}

// Rmdir deletes an empty directory and retires its handle. A directory
// with entries fails with NFSERR_NOTEMPTY.
// RFC 1094 Section 2.2.15
func (h *Handler) Rmdir(ctx context.Context, req *RmdirRequest) (*RmdirResponse, error) {
	dirPath, status := h.resolve(req.Args.Dir)
	if status != OK {
		return &RmdirResponse{Status: status}, nil
	}

	childPath, name, status := h.child(dirPath, req.Args.Name)
	if status != OK {
		return &RmdirResponse{Status: status}, nil
	}

	logger.Debug("RMDIR %q in %s", name, dirPath)

	if err := h.store.Rmdir(ctx, childPath); err != nil {
		return &RmdirResponse{Status: statusFromError(err)}, nil
	}

	h.handles.Invalidate(childPath)
	return &RmdirResponse{Status: OK}, nil
}

func DecodeRmdirRequest(data []byte) (*RmdirRequest, error) {
	r := bytes.NewReader(data)
	args, err := decodeDirOpArgs(r)
	if err != nil {
		return nil, err
	}
	return &RmdirRequest{Args: args}, nil
}

func (resp *RmdirResponse) Encode() ([]byte, error) {
	return encodeStatus(resp.Status)
}
