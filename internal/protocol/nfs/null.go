package nfs

import (
	"context"

	"github.com/konkers/prolink-nfs/internal/logger"
)

// Null is the do-nothing ping procedure (RFC 1094 Section 2.2.1).
func (h *Handler) Null(_ context.Context) ([]byte, error) {
	logger.Debug("NULL")
	return []byte{}, nil
}

// Root is procedure 3, obsolete in v2 and defined as void/void
// (RFC 1094 Section 2.2.4). Answering it keeps old clients quiet.
func (h *Handler) Root(_ context.Context) ([]byte, error) {
	logger.Debug("ROOT (obsolete)")
	return []byte{}, nil
}

// WriteCache is procedure 7, reserved and unused in v2
// (RFC 1094 Section 2.2.8). Like ROOT it is void/void.
func (h *Handler) WriteCache(_ context.Context) ([]byte, error) {
	logger.Debug("WRITECACHE (unused)")
	return []byte{}, nil
}
