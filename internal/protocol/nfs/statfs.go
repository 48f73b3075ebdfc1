package nfs

import (
	"bytes"
	"context"

	"github.com/konkers/prolink-nfs/internal/handles"
	"github.com/konkers/prolink-nfs/internal/logger"
	"github.com/konkers/prolink-nfs/internal/protocol/xdr"
)

// StatFSRequest represents a STATFS request.
type StatFSRequest struct {
	Handle handles.Handle
}

// StatFSResponse represents a STATFS response.
// RFC 1094 Section 2.2.18
type StatFSResponse struct {
	Status Status

	// The following fields are only present if Status == OK.
	TSize  uint32 // optimum transfer size
	BSize  uint32 // filesystem block size
	Blocks uint32 // total blocks
	BFree  uint32 // free blocks
	BAvail uint32 // blocks available to non-privileged users
}

// StatFS reports filesystem capacity for the volume holding the handle.
// TSize is pinned to the v2 transfer ceiling rather than whatever the
// backing store would prefer.
func (h *Handler) StatFS(ctx context.Context, req *StatFSRequest) (*StatFSResponse, error) {
	path, status := h.resolve(req.Handle)
	if status != OK {
		return &StatFSResponse{Status: status}, nil
	}

	logger.Debug("STATFS %s", path)

	fsstat, err := h.store.StatFS(ctx, path)
	if err != nil {
		return &StatFSResponse{Status: statusFromError(err)}, nil
	}

	return &StatFSResponse{
		Status: OK,
		TSize:  MaxData,
		BSize:  fsstat.BlockSize,
		Blocks: fsstat.TotalBlocks,
		BFree:  fsstat.FreeBlocks,
		BAvail: fsstat.AvailBlocks,
	}, nil
}

func DecodeStatFSRequest(data []byte) (*StatFSRequest, error) {
	r := bytes.NewReader(data)
	handle, err := decodeHandle(r)
	if err != nil {
		return nil, err
	}
	return &StatFSRequest{Handle: handle}, nil
}

func (resp *StatFSResponse) Encode() ([]byte, error) {
	var buf bytes.Buffer
	xdr.EncodeUint32(&buf, uint32(resp.Status))
	if resp.Status != OK {
		return buf.Bytes(), nil
	}

	xdr.EncodeUint32(&buf, resp.TSize)
	xdr.EncodeUint32(&buf, resp.BSize)
	xdr.EncodeUint32(&buf, resp.Blocks)
	xdr.EncodeUint32(&buf, resp.BFree)
	xdr.EncodeUint32(&buf, resp.BAvail)

	return buf.Bytes(), nil
}
