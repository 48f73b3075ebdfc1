package nfs

import (
	"bytes"
	"context"

	"github.com/konkers/prolink-nfs/internal/handles"
	"github.com/konkers/prolink-nfs/internal/logger"
	"github.com/konkers/prolink-nfs/internal/protocol/xdr"
)

// ReadRequest represents a READ request. TotalCount is a hint from the
// days of block-transfer clients; the server is free to ignore it and
// does.
type ReadRequest struct {
	Handle     handles.Handle
	Offset     uint32
	Count      uint32
	TotalCount uint32
}

// ReadResponse represents a READ response.
type ReadResponse struct {
	Status Status
	Attr   *FAttr // attributes after the read, only if Status == OK
	Data   []byte // only present if Status == OK
}

// Read returns up to Count bytes from Offset, clamped to MaxData. A read
// at or past end of file succeeds with fewer (possibly zero) bytes; short
// reads are how EOF is communicated, not an error.
// RFC 1094 Section 2.2.7
func (h *Handler) Read(ctx context.Context, req *ReadRequest) (*ReadResponse, error) {
	path, status := h.resolve(req.Handle)
	if status != OK {
		return &ReadResponse{Status: status}, nil
	}

	count := req.Count
	if count > MaxData {
		count = MaxData
	}

	logger.Debug("READ %s offset=%d count=%d", path, req.Offset, count)

	data, err := h.store.Read(ctx, path, uint64(req.Offset), count)
	if err != nil {
		return &ReadResponse{Status: statusFromError(err)}, nil
	}

	attr, status := h.attrFor(ctx, path)
	if status != OK {
		return &ReadResponse{Status: status}, nil
	}

	return &ReadResponse{Status: OK, Attr: attr, Data: data}, nil
}

func DecodeReadRequest(data []byte) (*ReadRequest, error) {
	r := bytes.NewReader(data)
	req := &ReadRequest{}

	var err error
	if req.Handle, err = decodeHandle(r); err != nil {
		return nil, err
	}
	if req.Offset, err = xdr.DecodeUint32(r); err != nil {
		return nil, err
	}
	if req.Count, err = xdr.DecodeUint32(r); err != nil {
		return nil, err
	}
	if req.TotalCount, err = xdr.DecodeUint32(r); err != nil {
		return nil, err
	}

	return req, nil
}

func (resp *ReadResponse) Encode() ([]byte, error) {
	var buf bytes.Buffer
	xdr.EncodeUint32(&buf, uint32(resp.Status))
	if resp.Status == OK {
		resp.Attr.encode(&buf)
		xdr.EncodeOpaque(&buf, resp.Data)
	}
	return buf.Bytes(), nil
}
