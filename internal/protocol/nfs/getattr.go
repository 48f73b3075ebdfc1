package nfs

import (
	"bytes"
	"context"

	"github.com/konkers/prolink-nfs/internal/handles"
	"github.com/konkers/prolink-nfs/internal/logger"
)

// GetAttrRequest represents a GETATTR request.
type GetAttrRequest struct {
	Handle handles.Handle
}

// GetAttrResponse represents a GETATTR response.
type GetAttrResponse struct {
	Status Status
	Attr   *FAttr // only present if Status == OK
}

// GetAttr returns the attributes of the object a handle refers to.
// RFC 1094 Section 2.2.2
func (h *Handler) GetAttr(ctx context.Context, req *GetAttrRequest) (*GetAttrResponse, error) {
	path, status := h.resolve(req.Handle)
	if status != OK {
		return &GetAttrResponse{Status: status}, nil
	}

	logger.Debug("GETATTR %s", path)

	attr, status := h.attrFor(ctx, path)
	if status != OK {
		return &GetAttrResponse{Status: status}, nil
	}

	return &GetAttrResponse{Status: OK, Attr: attr}, nil
}

func DecodeGetAttrRequest(data []byte) (*GetAttrRequest, error) {
	r := bytes.NewReader(data)
	handle, err := decodeHandle(r)
	if err != nil {
		return nil, err
	}
	return &GetAttrRequest{Handle: handle}, nil
}

func (resp *GetAttrResponse) Encode() ([]byte, error) {
	return encodeAttrStat(resp.Status, resp.Attr)
}
