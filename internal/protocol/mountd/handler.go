package mountd

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"sync"

	"github.com/konkers/prolink-nfs/internal/handles"
	"github.com/konkers/prolink-nfs/internal/logger"
	"github.com/konkers/prolink-nfs/internal/names"
	"github.com/konkers/prolink-nfs/internal/protocol/xdr"
)

// maxWirePath bounds a dirpath opaque at decode time. It is looser than
// the path limit itself so an over-long path surfaces as a status reply
// instead of a dropped datagram.
const maxWirePath = 2 * names.MaxPathBytes

// Handler answers MOUNT v1 procedures for a single configured export.
//
// The mount list it keeps is purely advisory, a courtesy record for
// DUMP. The NFS side never consults it; a client that skips MNT and
// presents a valid handle directly is served all the same.
type Handler struct {
	export string
	root   handles.Handle

	mu     sync.Mutex
	mounts []MountEntry
}

// MountEntry records one advisory mount: which host mounted which path.
type MountEntry struct {
	Hostname string
	Dirpath  string
}

// NewHandler creates a MOUNT handler serving a single export under the
// given name, handing out root as its file handle.
func NewHandler(export string, root handles.Handle) *Handler {
	return &Handler{export: export, root: root}
}

// clientHostKey carries the caller's host through the context, set by
// the transport layer.
type clientHostKey struct{}

// WithClientHost annotates a context with the calling host, used for
// the advisory mount list.
func WithClientHost(ctx context.Context, host string) context.Context {
	return context.WithValue(ctx, clientHostKey{}, host)
}

func clientHost(ctx context.Context) string {
	if host, ok := ctx.Value(clientHostKey{}).(string); ok {
		return host
	}
	return "unknown"
}

// Null is the do-nothing ping procedure.
func (h *Handler) Null(_ context.Context) ([]byte, error) {
	logger.Debug("MOUNT NULL")
	return []byte{}, nil
}

// ============================================================================
// MNT
// ============================================================================

// MntRequest asks to mount a directory. Dirpath is the UTF-16LE wire
// form.
type MntRequest struct {
	Dirpath []byte
}

// MntResponse is the fhstatus union: the handle is only present when
// Status is OK.
type MntResponse struct {
	Status Status
	Handle handles.Handle
}

// Mnt resolves a dirpath to the export's root handle. The comparison
// tolerates a missing or extra trailing slash since clients disagree on
// which form to send.
func (h *Handler) Mnt(ctx context.Context, req *MntRequest) (*MntResponse, error) {
	dirpath, err := names.DecodePath(req.Dirpath)
	if err != nil {
		return &MntResponse{Status: statusFromNameError(err)}, nil
	}

	logger.Debug("MOUNT MNT %s from %s", dirpath, clientHost(ctx))

	if !samePath(dirpath, h.export) {
		logger.Info("MOUNT MNT refused: %s is not exported", dirpath)
		return &MntResponse{Status: ErrNoEnt}, nil
	}

	h.mu.Lock()
	h.mounts = append(h.mounts, MountEntry{Hostname: clientHost(ctx), Dirpath: h.export})
	h.mu.Unlock()

	return &MntResponse{Status: OK, Handle: h.root}, nil
}

func DecodeMntRequest(data []byte) (*MntRequest, error) {
	r := bytes.NewReader(data)
	dirpath, err := xdr.DecodeOpaque(r, maxWirePath)
	if err != nil {
		return nil, err
	}
	return &MntRequest{Dirpath: dirpath}, nil
}

func (resp *MntResponse) Encode() ([]byte, error) {
	var buf bytes.Buffer
	xdr.EncodeUint32(&buf, uint32(resp.Status))
	if resp.Status != OK {
		return buf.Bytes(), nil
	}
	xdr.EncodeFixedOpaque(&buf, resp.Handle[:])
	return buf.Bytes(), nil
}

// ============================================================================
// DUMP
// ============================================================================

// DumpRequest has no arguments.
type DumpRequest struct{}

// DumpResponse lists the advisory mount records.
type DumpResponse struct {
	Entries []MountEntry
}

func (h *Handler) Dump(_ context.Context, _ *DumpRequest) (*DumpResponse, error) {
	h.mu.Lock()
	entries := make([]MountEntry, len(h.mounts))
	copy(entries, h.mounts)
	h.mu.Unlock()

	logger.Debug("MOUNT DUMP -> %d entries", len(entries))
	return &DumpResponse{Entries: entries}, nil
}

func DecodeDumpRequest(_ []byte) (*DumpRequest, error) {
	return &DumpRequest{}, nil
}

// Encode serializes the mountlist: hostnames travel as plain bytes,
// dirpaths in the UTF-16LE wire form like every other path.
func (resp *DumpResponse) Encode() ([]byte, error) {
	var buf bytes.Buffer
	for _, entry := range resp.Entries {
		wirePath, err := names.EncodePath(entry.Dirpath)
		if err != nil {
			return nil, err
		}
		xdr.EncodeListMark(&buf, true)
		xdr.EncodeOpaque(&buf, []byte(entry.Hostname))
		xdr.EncodeOpaque(&buf, wirePath)
	}
	xdr.EncodeListMark(&buf, false)
	return buf.Bytes(), nil
}

// ============================================================================
// UMNT / UMNTALL
// ============================================================================

// UmntRequest removes one advisory mount record.
type UmntRequest struct {
	Dirpath []byte
}

// UmntResponse is empty; UMNT is void-result and idempotent.
type UmntResponse struct{}

func (h *Handler) Umnt(ctx context.Context, req *UmntRequest) (*UmntResponse, error) {
	dirpath, err := names.DecodePath(req.Dirpath)
	if err != nil {
		// Nothing sensible to report on a void-result procedure.
		return &UmntResponse{}, nil
	}

	host := clientHost(ctx)
	logger.Debug("MOUNT UMNT %s from %s", dirpath, host)

	h.mu.Lock()
	h.removeMounts(func(e MountEntry) bool {
		return e.Hostname == host && samePath(e.Dirpath, dirpath)
	})
	h.mu.Unlock()

	return &UmntResponse{}, nil
}

// UmntAll drops every advisory record for the calling host.
func (h *Handler) UmntAll(ctx context.Context, _ *UmntAllRequest) (*UmntResponse, error) {
	host := clientHost(ctx)
	logger.Debug("MOUNT UMNTALL from %s", host)

	h.mu.Lock()
	h.removeMounts(func(e MountEntry) bool { return e.Hostname == host })
	h.mu.Unlock()

	return &UmntResponse{}, nil
}

// UmntAllRequest has no arguments.
type UmntAllRequest struct{}

func DecodeUmntRequest(data []byte) (*UmntRequest, error) {
	r := bytes.NewReader(data)
	dirpath, err := xdr.DecodeOpaque(r, maxWirePath)
	if err != nil {
		return nil, err
	}
	return &UmntRequest{Dirpath: dirpath}, nil
}

func DecodeUmntAllRequest(_ []byte) (*UmntAllRequest, error) {
	return &UmntAllRequest{}, nil
}

func (resp *UmntResponse) Encode() ([]byte, error) {
	return []byte{}, nil
}

// removeMounts filters the mount list in place. Caller holds mu.
func (h *Handler) removeMounts(drop func(MountEntry) bool) {
	kept := h.mounts[:0]
	for _, e := range h.mounts {
		if !drop(e) {
			kept = append(kept, e)
		}
	}
	h.mounts = kept
}

// ============================================================================
// EXPORT
// ============================================================================

// ExportRequest has no arguments.
type ExportRequest struct{}

// ExportResponse lists the exported directories. This server exports
// exactly one, with an empty group list (no access restriction).
type ExportResponse struct {
	Exports []string
}

func (h *Handler) Export(_ context.Context, _ *ExportRequest) (*ExportResponse, error) {
	logger.Debug("MOUNT EXPORT -> %s", h.export)
	return &ExportResponse{Exports: []string{h.export}}, nil
}

func DecodeExportRequest(_ []byte) (*ExportRequest, error) {
	return &ExportRequest{}, nil
}

func (resp *ExportResponse) Encode() ([]byte, error) {
	var buf bytes.Buffer
	for _, export := range resp.Exports {
		wirePath, err := names.EncodePath(export)
		if err != nil {
			return nil, err
		}
		xdr.EncodeListMark(&buf, true)
		xdr.EncodeOpaque(&buf, wirePath)
		xdr.EncodeListMark(&buf, false) // empty groups list
	}
	xdr.EncodeListMark(&buf, false)
	return buf.Bytes(), nil
}

// ============================================================================
// Helpers
// ============================================================================

// samePath compares dirpaths ignoring a trailing slash.
func samePath(a, b string) bool {
	return strings.TrimSuffix(a, "/") == strings.TrimSuffix(b, "/")
}

func statusFromNameError(err error) Status {
	switch {
	case errors.Is(err, names.ErrPathTooLong):
		return ErrNameTooLong
	default:
		return ErrIO
	}
}
