package nfs

import (
	"bytes"
	"context"

	"github.com/konkers/prolink-nfs/internal/handles"
	"github.com/konkers/prolink-nfs/internal/logger"
	"github.com/konkers/prolink-nfs/internal/protocol/xdr"
)

// WriteRequest represents a WRITE request. BeginOffset and TotalCount are
// vestigial v2 fields; Offset and Data are what matters.
type WriteRequest struct {
	Handle      handles.Handle
	BeginOffset uint32
	Offset      uint32
	TotalCount  uint32
	Data        []byte
}

// WriteResponse represents a WRITE response.
type WriteResponse struct {
	Status Status
	Attr   *FAttr // attributes after the write, only if Status == OK
}

// Write stores Data at Offset. An OK status implies the data is durable;
// a client that retransmits the same write gets the same final content,
// which is what makes WRITE safe over a duplicating transport.
// RFC 1094 Section 2.2.9
func (h *Handler) Write(ctx context.Context, req *WriteRequest) (*WriteResponse, error) {
	path, status := h.resolve(req.Handle)
	if status != OK {
		return &WriteResponse{Status: status}, nil
	}

	logger.Debug("WRITE %s offset=%d len=%d", path, req.Offset, len(req.Data))

	if err := h.store.Write(ctx, path, uint64(req.Offset), req.Data); err != nil {
		return &WriteResponse{Status: statusFromError(err)}, nil
	}

	attr, status := h.attrFor(ctx, path)
	if status != OK {
		return &WriteResponse{Status: status}, nil
	}

	return &WriteResponse{Status: OK, Attr: attr}, nil
}

func DecodeWriteRequest(data []byte) (*WriteRequest, error) {
	r := bytes.NewReader(data)
	req := &WriteRequest{}

	var err error
	if req.Handle, err = decodeHandle(r); err != nil {
		return nil, err
	}
	if req.BeginOffset, err = xdr.DecodeUint32(r); err != nil {
		return nil, err
	}
	if req.Offset, err = xdr.DecodeUint32(r); err != nil {
		return nil, err
	}
	if req.TotalCount, err = xdr.DecodeUint32(r); err != nil {
		return nil, err
	}
	if req.Data, err = xdr.DecodeOpaque(r, MaxData); err != nil {
		return nil, err
	}

	return req, nil
}

func (resp *WriteResponse) Encode() ([]byte, error) {
	return encodeAttrStat(resp.Status, resp.Attr)
}
