package nfs

import (
	"bytes"
	"context"

	"github.com/konkers/prolink-nfs/internal/handles"
	"github.com/konkers/prolink-nfs/internal/logger"
	"github.com/konkers/prolink-nfs/internal/names"
	"github.com/konkers/prolink-nfs/internal/protocol/xdr"
)

// ReadLinkRequest represents a READLINK request.
type ReadLinkRequest struct {
	Handle handles.Handle
}

// ReadLinkResponse represents a READLINK response.
type ReadLinkResponse struct {
	Status Status
	Target []byte // UTF-16LE path, only present if Status == OK
}

// ReadLink returns the target of a symbolic link, transcoded to the
// wire's UTF-16LE path encoding.
// RFC 1094 Section 2.2.6
func (h *Handler) ReadLink(ctx context.Context, req *ReadLinkRequest) (*ReadLinkResponse, error) {
	path, status := h.resolve(req.Handle)
	if status != OK {
		return &ReadLinkResponse{Status: status}, nil
	}

	logger.Debug("READLINK %s", path)

	target, err := h.store.Readlink(ctx, path)
	if err != nil {
		return &ReadLinkResponse{Status: statusFromError(err)}, nil
	}

	encoded, err := names.EncodePath(target)
	if err != nil {
		return &ReadLinkResponse{Status: statusFromNameError(err)}, nil
	}

	return &ReadLinkResponse{Status: OK, Target: encoded}, nil
}

func DecodeReadLinkRequest(data []byte) (*ReadLinkRequest, error) {
	r := bytes.NewReader(data)
	handle, err := decodeHandle(r)
	if err != nil {
		return nil, err
	}
	return &ReadLinkRequest{Handle: handle}, nil
}

func (resp *ReadLinkResponse) Encode() ([]byte, error) {
	var buf bytes.Buffer
	xdr.EncodeUint32(&buf, uint32(resp.Status))
	if resp.Status == OK {
		xdr.EncodeOpaque(&buf, resp.Target)
	}
	return buf.Bytes(), nil
}
