package nfs

import (
	"bytes"
	"context"
	"encoding/binary"

	"github.com/konkers/prolink-nfs/internal/handles"
	"github.com/konkers/prolink-nfs/internal/logger"
	"github.com/konkers/prolink-nfs/internal/names"
	"github.com/konkers/prolink-nfs/internal/protocol/xdr"
)

// ReadDirRequest represents a READDIR request. Cookie is the resume token
// from a previous reply, or zero to start from the first entry. Count
// bounds the encoded size of the reply, not the number of entries.
type ReadDirRequest struct {
	Handle handles.Handle
	Cookie uint32
	Count  uint32
}

// DirEntry is one directory entry in a READDIR reply.
type DirEntry struct {
	FileID uint32
	Name   []byte // UTF-16LE wire form
	Cookie uint32
}

// ReadDirResponse represents a READDIR response.
type ReadDirResponse struct {
	Status  Status
	Entries []DirEntry // only present if Status == OK
	EOF     bool
}

// replyOverhead is the fixed cost of an OK reply: status, the list
// terminator and the eof flag.
const replyOverhead = 12

// ReadDir returns one page of directory entries.
//
// The cookie is opaque to clients but is simply the index of the next
// unread entry in the directory's stable listing order; each entry
// carries the cookie that resumes after it, so a client chaining cookies
// walks the directory exactly once. Entries are emitted until the next
// one would push the encoded reply past Count; a Count too small for even
// the first entry fails with NFSERR_IO since v2 has nothing closer.
// RFC 1094 Section 2.2.17
func (h *Handler) ReadDir(ctx context.Context, req *ReadDirRequest) (*ReadDirResponse, error) {
	dirPath, status := h.resolve(req.Handle)
	if status != OK {
		return &ReadDirResponse{Status: status}, nil
	}

	logger.Debug("READDIR %s cookie=%d count=%d", dirPath, req.Cookie, req.Count)

	listing, err := h.store.List(ctx, dirPath)
	if err != nil {
		return &ReadDirResponse{Status: statusFromError(err)}, nil
	}

	resp := &ReadDirResponse{Status: OK}
	size := replyOverhead

	for i := int(req.Cookie); i < len(listing); i++ {
		wireName, err := names.Encode(listing[i].Name)
		if err != nil {
			logger.Warn("READDIR %s: skipping unencodable name %q: %v", dirPath, listing[i].Name, err)
			continue
		}

		entrySize := 4 + 4 + xdr.OpaqueSize(len(wireName)) + CookieSize
		if size+entrySize > int(req.Count) {
			if len(resp.Entries) == 0 {
				return &ReadDirResponse{Status: ErrIO}, nil
			}
			return resp, nil // more entries remain, EOF stays false
		}

		resp.Entries = append(resp.Entries, DirEntry{
			FileID: foldFileID(listing[i].FileID),
			Name:   wireName,
			Cookie: uint32(i + 1),
		})
		size += entrySize
	}

	resp.EOF = true
	return resp, nil
}

func DecodeReadDirRequest(data []byte) (*ReadDirRequest, error) {
	r := bytes.NewReader(data)
	req := &ReadDirRequest{}

	var err error
	if req.Handle, err = decodeHandle(r); err != nil {
		return nil, err
	}
	cookie, err := xdr.DecodeFixedOpaque(r, CookieSize)
	if err != nil {
		return nil, err
	}
	req.Cookie = binary.BigEndian.Uint32(cookie)
	if req.Count, err = xdr.DecodeUint32(r); err != nil {
		return nil, err
	}

	return req, nil
}

// Encode serializes the entry list in the wire's recursive
// optional-tail shape: a run of (1, entry) pairs closed by a lone 0,
// then the eof flag.
func (resp *ReadDirResponse) Encode() ([]byte, error) {
	var buf bytes.Buffer
	xdr.EncodeUint32(&buf, uint32(resp.Status))
	if resp.Status != OK {
		return buf.Bytes(), nil
	}

	for _, entry := range resp.Entries {
		xdr.EncodeListMark(&buf, true)
		xdr.EncodeUint32(&buf, entry.FileID)
		xdr.EncodeOpaque(&buf, entry.Name)
		var cookie [CookieSize]byte
		binary.BigEndian.PutUint32(cookie[:], entry.Cookie)
		xdr.EncodeFixedOpaque(&buf, cookie[:])
	}
	xdr.EncodeListMark(&buf, false)
	xdr.EncodeBool(&buf, resp.EOF)

	return buf.Bytes(), nil
}
