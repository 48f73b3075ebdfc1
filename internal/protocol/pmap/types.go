package pmap

import (
	"bytes"

	"github.com/konkers/prolink-nfs/internal/protocol/xdr"
)

// Mapping is one portmapper registration: which port a given
// (program, version, protocol) triple is bound to.
type Mapping struct {
	Program  uint32
	Version  uint32
	Protocol uint32
	Port     uint32
}

func decodeMapping(r *bytes.Reader) (Mapping, error) {
	var m Mapping
	var err error
	if m.Program, err = xdr.DecodeUint32(r); err != nil {
		return m, err
	}
	if m.Version, err = xdr.DecodeUint32(r); err != nil {
		return m, err
	}
	if m.Protocol, err = xdr.DecodeUint32(r); err != nil {
		return m, err
	}
	if m.Port, err = xdr.DecodeUint32(r); err != nil {
		return m, err
	}
	return m, nil
}

func encodeMapping(buf *bytes.Buffer, m Mapping) {
	xdr.EncodeUint32(buf, m.Program)
	xdr.EncodeUint32(buf, m.Version)
	xdr.EncodeUint32(buf, m.Protocol)
	xdr.EncodeUint32(buf, m.Port)
}
