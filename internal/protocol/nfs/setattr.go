package nfs

import (
	"bytes"
	"context"

	"github.com/konkers/prolink-nfs/internal/handles"
	"github.com/konkers/prolink-nfs/internal/logger"
)

// SetAttrRequest represents a SETATTR request.
type SetAttrRequest struct {
	Handle handles.Handle
	Attr   SAttr
}

// SetAttrResponse represents a SETATTR response.
type SetAttrResponse struct {
	Status Status
	Attr   *FAttr // attributes after the change, only if Status == OK
}

// SetAttr changes the settable attributes of an object. Fields carrying
// the NoValue sentinel pass through untouched; a size of zero truncates.
// RFC 1094 Section 2.2.3
func (h *Handler) SetAttr(ctx context.Context, req *SetAttrRequest) (*SetAttrResponse, error) {
	path, status := h.resolve(req.Handle)
	if status != OK {
		return &SetAttrResponse{Status: status}, nil
	}

	logger.Debug("SETATTR %s mode=%o size=%d", path, req.Attr.Mode, req.Attr.Size)

	info, err := h.store.SetAttr(ctx, path, req.Attr.toSetAttr())
	if err != nil {
		return &SetAttrResponse{Status: statusFromError(err)}, nil
	}

	return &SetAttrResponse{Status: OK, Attr: fattrFromInfo(info, h.fsid)}, nil
}

func DecodeSetAttrRequest(data []byte) (*SetAttrRequest, error) {
	r := bytes.NewReader(data)

	handle, err := decodeHandle(r)
	if err != nil {
		return nil, err
	}
	attr, err := decodeSAttr(r)
	if err != nil {
		return nil, err
	}

	return &SetAttrRequest{Handle: handle, Attr: *attr}, nil
}

func (resp *SetAttrResponse) Encode() ([]byte, error) {
	return encodeAttrStat(resp.Status, resp.Attr)
}
