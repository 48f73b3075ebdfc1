package pmap

import (
	"bytes"
	"context"

	"github.com/konkers/prolink-nfs/internal/logger"
	"github.com/konkers/prolink-nfs/internal/protocol/xdr"
)

// Handler answers portmapper v2 procedures against a Registry.
type Handler struct {
	registry *Registry
}

// NewHandler creates a portmapper handler backed by the given registry.
func NewHandler(registry *Registry) *Handler {
	return &Handler{registry: registry}
}

// Null is the do-nothing ping procedure.
func (h *Handler) Null(_ context.Context) ([]byte, error) {
	logger.Debug("PMAP NULL")
	return []byte{}, nil
}

// ============================================================================
// GETPORT
// ============================================================================

// GetPortRequest carries the triple to look up; the Port field of the
// wire mapping is present but ignored.
type GetPortRequest struct {
	Mapping Mapping
}

// GetPortResponse reports the bound port, or 0 when the triple is
// unregistered. Absence is a successful reply, never an RPC error.
type GetPortResponse struct {
	Port uint32
}

func (h *Handler) GetPort(_ context.Context, req *GetPortRequest) (*GetPortResponse, error) {
	port := h.registry.GetPort(req.Mapping.Program, req.Mapping.Version, req.Mapping.Protocol)
	logger.Debug("PMAP GETPORT prog=%d vers=%d prot=%d -> %d",
		req.Mapping.Program, req.Mapping.Version, req.Mapping.Protocol, port)
	return &GetPortResponse{Port: port}, nil
}

func DecodeGetPortRequest(data []byte) (*GetPortRequest, error) {
	m, err := decodeMapping(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	return &GetPortRequest{Mapping: m}, nil
}

func (resp *GetPortResponse) Encode() ([]byte, error) {
	var buf bytes.Buffer
	xdr.EncodeUint32(&buf, resp.Port)
	return buf.Bytes(), nil
}

// ============================================================================
// SET
// ============================================================================

// SetRequest registers a mapping.
type SetRequest struct {
	Mapping Mapping
}

// SetResponse reports whether the registration was accepted.
type SetResponse struct {
	OK bool
}

func (h *Handler) Set(_ context.Context, req *SetRequest) (*SetResponse, error) {
	ok := h.registry.Set(req.Mapping)
	logger.Debug("PMAP SET prog=%d vers=%d prot=%d port=%d -> %v",
		req.Mapping.Program, req.Mapping.Version, req.Mapping.Protocol, req.Mapping.Port, ok)
	return &SetResponse{OK: ok}, nil
}

func DecodeSetRequest(data []byte) (*SetRequest, error) {
	m, err := decodeMapping(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	return &SetRequest{Mapping: m}, nil
}

func (resp *SetResponse) Encode() ([]byte, error) {
	var buf bytes.Buffer
	xdr.EncodeBool(&buf, resp.OK)
	return buf.Bytes(), nil
}

// ============================================================================
// UNSET
// ============================================================================

// UnsetRequest removes the mappings of a program and version.
type UnsetRequest struct {
	Mapping Mapping
}

// UnsetResponse always reports success; UNSET is idempotent.
type UnsetResponse struct {
	OK bool
}

func (h *Handler) Unset(_ context.Context, req *UnsetRequest) (*UnsetResponse, error) {
	ok := h.registry.Unset(req.Mapping.Program, req.Mapping.Version)
	logger.Debug("PMAP UNSET prog=%d vers=%d -> %v", req.Mapping.Program, req.Mapping.Version, ok)
	return &UnsetResponse{OK: ok}, nil
}

func DecodeUnsetRequest(data []byte) (*UnsetRequest, error) {
	m, err := decodeMapping(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	return &UnsetRequest{Mapping: m}, nil
}

func (resp *UnsetResponse) Encode() ([]byte, error) {
	var buf bytes.Buffer
	xdr.EncodeBool(&buf, resp.OK)
	return buf.Bytes(), nil
}

// ============================================================================
// DUMP
// ============================================================================

// DumpRequest has no arguments.
type DumpRequest struct{}

// DumpResponse lists every current mapping in insertion order.
type DumpResponse struct {
	Mappings []Mapping
}

func (h *Handler) Dump(_ context.Context, _ *DumpRequest) (*DumpResponse, error) {
	mappings := h.registry.Dump()
	logger.Debug("PMAP DUMP -> %d mappings", len(mappings))
	return &DumpResponse{Mappings: mappings}, nil
}

func DecodeDumpRequest(_ []byte) (*DumpRequest, error) {
	return &DumpRequest{}, nil
}

// Encode serializes the pmaplist in the wire's recursive optional-tail
// shape: (1, mapping)* closed by a lone 0.
func (resp *DumpResponse) Encode() ([]byte, error) {
	var buf bytes.Buffer
	for _, m := range resp.Mappings {
		xdr.EncodeListMark(&buf, true)
		encodeMapping(&buf, m)
	}
	xdr.EncodeListMark(&buf, false)
	return buf.Bytes(), nil
}
