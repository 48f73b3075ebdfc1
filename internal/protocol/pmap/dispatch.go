package pmap

import (
	"context"
	"errors"
	"fmt"
)

// ErrUnknownProcedure reports an unimplemented portmapper procedure.
// The transport turns it into a PROC_UNAVAIL reply; this covers CALLIT,
// which this server deliberately does not forward.
var ErrUnknownProcedure = errors.New("unknown portmapper procedure")

type procedureHandler func(ctx context.Context, h *Handler, data []byte) ([]byte, error)

type procedureInfo struct {
	Name    string
	Handler procedureHandler
}

var dispatchTable = map[uint32]*procedureInfo{
	ProcNull: {
		Name: "NULL",
		Handler: func(ctx context.Context, h *Handler, _ []byte) ([]byte, error) {
			return h.Null(ctx)
		},
	},
	ProcSet: {
		Name:    "SET",
		Handler: handleProcedure(DecodeSetRequest, (*Handler).Set),
	},
	ProcUnset: {
		Name:    "UNSET",
		Handler: handleProcedure(DecodeUnsetRequest, (*Handler).Unset),
	},
	ProcGetPort: {
		Name:    "GETPORT",
		Handler: handleProcedure(DecodeGetPortRequest, (*Handler).GetPort),
	},
	ProcDump: {
		Name:    "DUMP",
		Handler: handleProcedure(DecodeDumpRequest, (*Handler).Dump),
	},
}

type encoder interface {
	Encode() ([]byte, error)
}

func handleProcedure[Req any, Resp encoder](
	decode func([]byte) (*Req, error),
	handle func(*Handler, context.Context, *Req) (Resp, error),
) procedureHandler {
	return func(ctx context.Context, h *Handler, data []byte) ([]byte, error) {
		req, err := decode(data)
		if err != nil {
			return nil, fmt.Errorf("decoding arguments: %w", err)
		}
		resp, err := handle(h, ctx, req)
		if err != nil {
			return nil, err
		}
		return resp.Encode()
	}
}

// Dispatch runs the named procedure against raw XDR argument bytes and
// returns the encoded reply body.
func (h *Handler) Dispatch(ctx context.Context, procedure uint32, data []byte) ([]byte, error) {
	info, ok := dispatchTable[procedure]
	if !ok {
		return nil, fmt.Errorf("%w: %d", ErrUnknownProcedure, procedure)
	}
	return info.Handler(ctx, h, data)
}

// ProcedureName returns the name for a procedure number, for logging.
func ProcedureName(procedure uint32) string {
	if info, ok := dispatchTable[procedure]; ok {
		return info.Name
	}
	return fmt.Sprintf("procedure-%d", procedure)
}
