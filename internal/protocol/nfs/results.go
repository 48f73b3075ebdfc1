package nfs

import (
	"bytes"

	"github.com/konkers/prolink-nfs/internal/handles"
	"github.com/konkers/prolink-nfs/internal/protocol/xdr"
)

// Every NFS v2 result is a union discriminated by status: the OK arm
// carries a payload, every other arm carries nothing at all, not even
// zeroed placeholders. These helpers encode the two union shapes most
// procedures share.

// encodeAttrStat encodes an attrstat result (GETATTR, SETATTR, WRITE).
func encodeAttrStat(status Status, attr *FAttr) ([]byte, error) {
	var buf bytes.Buffer
	xdr.EncodeUint32(&buf, uint32(status))
	if status == OK {
		attr.encode(&buf)
	}
	return buf.Bytes(), nil
}

// encodeDirOpRes encodes a diropres result (LOOKUP, CREATE, MKDIR).
func encodeDirOpRes(status Status, handle handles.Handle, attr *FAttr) ([]byte, error) {
	var buf bytes.Buffer
	xdr.EncodeUint32(&buf, uint32(status))
	if status == OK {
		encodeHandle(&buf, handle)
		attr.encode(&buf)
	}
	return buf.Bytes(), nil
}

// encodeStatus encodes a bare status result (SETATTR-family failures,
// REMOVE, RMDIR, RENAME, LINK, SYMLINK).
func encodeStatus(status Status) ([]byte, error) {
	var buf bytes.Buffer
	xdr.EncodeUint32(&buf, uint32(status))
	return buf.Bytes(), nil
}
