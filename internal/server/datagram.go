package server

import (
	"context"
	"errors"
	"net"
	"time"

	"github.com/konkers/prolink-nfs/internal/logger"
	"github.com/konkers/prolink-nfs/internal/protocol/mountd"
	"github.com/konkers/prolink-nfs/internal/protocol/nfs"
	"github.com/konkers/prolink-nfs/internal/protocol/pmap"
	"github.com/konkers/prolink-nfs/internal/protocol/rpc"
)

// serveDatagram handles one inbound datagram end to end. A nil reply
// means drop: malformed datagrams get no answer at all, so a scanning
// client cannot distinguish this server from silence.
func (s *Server) serveDatagram(ctx context.Context, conn *net.UDPConn, addr *net.UDPAddr, datagram []byte) {
	reply := s.handleDatagram(ctx, addr, datagram)
	if reply == nil {
		return
	}
	if _, err := conn.WriteToUDP(reply, addr); err != nil {
		logger.Debug("writing reply to %s: %v", addr, err)
	}
}

func (s *Server) handleDatagram(ctx context.Context, addr *net.UDPAddr, datagram []byte) []byte {
	call, args, err := rpc.ReadCall(datagram)
	if err != nil {
		logger.Debug("dropping malformed datagram from %s: %v", addr, err)
		s.metrics.RecordDropped("malformed")
		return nil
	}

	logger.Debug("call xid=0x%x prog=%d vers=%d proc=%d from %s",
		call.XID, call.Program, call.Version, call.Procedure, addr)

	if call.RPCVersion != rpc.Version {
		return replyOrDrop(rpc.RPCMismatchReply(call.XID))
	}

	switch call.Program {
	case pmap.Program:
		if call.Version != pmap.Version {
			return replyOrDrop(rpc.ProgMismatchReply(call.XID, pmap.Version, pmap.Version))
		}
		return s.finish(ctx, call, "portmap", pmap.ProcedureName, s.pmapHandler.Dispatch, pmap.ErrUnknownProcedure, args)

	case nfs.Program:
		if call.Version != nfs.Version {
			return replyOrDrop(rpc.ProgMismatchReply(call.XID, nfs.Version, nfs.Version))
		}
		return s.finish(ctx, call, "nfs", nfs.ProcedureName, s.nfsHandler.Dispatch, nfs.ErrUnknownProcedure, args)

	case mountd.Program:
		if call.Version != mountd.Version {
			return replyOrDrop(rpc.ProgMismatchReply(call.XID, mountd.Version, mountd.Version))
		}
		ctx = mountd.WithClientHost(ctx, addr.IP.String())
		return s.finish(ctx, call, "mount", mountd.ProcedureName, s.mountHandler.Dispatch, mountd.ErrUnknownProcedure, args)

	default:
		return replyOrDrop(rpc.ProgUnavailReply(call.XID))
	}
}

// finish dispatches the procedure and wraps its result in an RPC reply.
// Unknown procedures answer PROC_UNAVAIL; anything else that fails
// (argument decode included) drops the datagram.
func (s *Server) finish(
	ctx context.Context,
	call *rpc.CallMessage,
	program string,
	procName func(uint32) string,
	dispatch func(context.Context, uint32, []byte) ([]byte, error),
	unknownProc error,
	args []byte,
) []byte {
	start := time.Now()
	body, err := dispatch(ctx, call.Procedure, args)
	if err != nil {
		if errors.Is(err, unknownProc) {
			s.metrics.RecordRequest(program, procName(call.Procedure), time.Since(start), "proc_unavail")
			return replyOrDrop(rpc.ProcUnavailReply(call.XID))
		}
		logger.Debug("dropping call xid=0x%x: %v", call.XID, err)
		s.metrics.RecordDropped("decode")
		return nil
	}
	s.metrics.RecordRequest(program, procName(call.Procedure), time.Since(start), "success")
	return replyOrDrop(rpc.AcceptedReply(call.XID, body))
}

func replyOrDrop(reply []byte, err error) []byte {
	if err != nil {
		logger.Error("encoding RPC reply: %v", err)
		return nil
	}
	return reply
}
