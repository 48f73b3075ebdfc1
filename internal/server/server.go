package server

import (
	"context"
	"fmt"
	"net"
	"sync"

	"github.com/konkers/prolink-nfs/internal/handles"
	"github.com/konkers/prolink-nfs/internal/logger"
	"github.com/konkers/prolink-nfs/internal/protocol/mountd"
	"github.com/konkers/prolink-nfs/internal/protocol/nfs"
	"github.com/konkers/prolink-nfs/internal/protocol/pmap"
	"github.com/konkers/prolink-nfs/internal/ratelimiter"
	"github.com/konkers/prolink-nfs/pkg/metrics"
	"github.com/konkers/prolink-nfs/pkg/store"
)

// maxDatagram is the read buffer size per datagram. It comfortably
// covers a WRITE of MAXDATA plus headers without trusting the client.
const maxDatagram = 65535

// Options configures a Server.
type Options struct {
	// Bind is the local address to listen on, without a port.
	Bind string

	// PmapPort is the portmapper's port, conventionally 111.
	PmapPort int

	// NFSPort is the NFS and MOUNT programs' port. 0 binds a dynamic
	// port, which clients then discover through the portmapper.
	NFSPort int

	// Export is the dirpath the MOUNT program answers for.
	Export string

	// MaxInflight bounds concurrently served datagrams. Excess
	// datagrams are dropped, leaning on client retry.
	MaxInflight int

	// RateLimit is the sustained datagrams-per-second ceiling, with
	// RateBurst extra headroom. 0 disables limiting.
	RateLimit uint
	RateBurst uint

	// Metrics observes the dispatch path. nil means no-op.
	Metrics metrics.RPCMetrics
}

// Server serves the portmapper on one UDP socket and the NFS and MOUNT
// programs on a second, routing each datagram by RPC program number.
type Server struct {
	opts Options

	registry     *pmap.Registry
	pmapHandler  *pmap.Handler
	nfsHandler   *nfs.Handler
	mountHandler *mountd.Handler

	limiter  *ratelimiter.RateLimiter
	inflight chan struct{}
	metrics  metrics.RPCMetrics

	mu       sync.Mutex
	pmapConn *net.UDPConn
	nfsConn  *net.UDPConn

	wg sync.WaitGroup
}

// New builds a server over the given store. Handlers and the handle
// table are created here; nothing listens until Serve.
func New(opts Options, st store.Store) *Server {
	if opts.MaxInflight <= 0 {
		opts.MaxInflight = 64
	}
	if opts.Export == "" {
		opts.Export = "/C/"
	}
	if opts.Metrics == nil {
		opts.Metrics = metrics.NoopRPCMetrics()
	}

	registry := pmap.NewRegistry()
	table := handles.NewTable()
	nfsHandler := nfs.NewHandler(st, table)

	return &Server{
		opts:         opts,
		registry:     registry,
		pmapHandler:  pmap.NewHandler(registry),
		nfsHandler:   nfsHandler,
		mountHandler: mountd.NewHandler(opts.Export, nfsHandler.RootHandle()),
		limiter:      ratelimiter.New(opts.RateLimit, opts.RateBurst),
		inflight:     make(chan struct{}, opts.MaxInflight),
		metrics:      opts.Metrics,
	}
}

// NFSPort returns the port the NFS socket is actually bound to. Valid
// after Serve has started listening.
func (s *Server) NFSPort() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.nfsConn == nil {
		return 0
	}
	return s.nfsConn.LocalAddr().(*net.UDPAddr).Port
}

// Serve binds both sockets, registers the served programs in the
// portmapper and reads datagrams until the context is cancelled.
func (s *Server) Serve(ctx context.Context) error {
	pmapConn, err := listenUDP(s.opts.Bind, s.opts.PmapPort)
	if err != nil {
		return fmt.Errorf("binding portmapper socket: %w", err)
	}
	nfsConn, err := listenUDP(s.opts.Bind, s.opts.NFSPort)
	if err != nil {
		pmapConn.Close()
		return fmt.Errorf("binding NFS socket: %w", err)
	}

	s.mu.Lock()
	s.pmapConn = pmapConn
	s.nfsConn = nfsConn
	s.mu.Unlock()

	pmapPort := uint32(pmapConn.LocalAddr().(*net.UDPAddr).Port)
	nfsPort := uint32(nfsConn.LocalAddr().(*net.UDPAddr).Port)

	// The registry is rebuilt on every start; whatever port the NFS
	// socket actually got is what clients discover.
	s.registry.Set(pmap.Mapping{Program: pmap.Program, Version: pmap.Version, Protocol: pmap.ProtoUDP, Port: pmapPort})
	s.registry.Set(pmap.Mapping{Program: nfs.Program, Version: nfs.Version, Protocol: pmap.ProtoUDP, Port: nfsPort})
	s.registry.Set(pmap.Mapping{Program: mountd.Program, Version: mountd.Version, Protocol: pmap.ProtoUDP, Port: nfsPort})

	logger.Info("portmapper listening on %s", pmapConn.LocalAddr())
	logger.Info("NFS and MOUNT listening on %s, exporting %s", nfsConn.LocalAddr(), s.opts.Export)

	go func() {
		<-ctx.Done()
		pmapConn.Close()
		nfsConn.Close()
	}()

	var loops sync.WaitGroup
	loops.Add(2)
	go func() {
		defer loops.Done()
		s.readLoop(ctx, pmapConn)
	}()
	go func() {
		defer loops.Done()
		s.readLoop(ctx, nfsConn)
	}()
	loops.Wait()

	// Let in-flight datagrams finish before reporting shutdown.
	s.wg.Wait()
	return nil
}

// Stop closes both sockets, unblocking Serve.
func (s *Server) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.pmapConn != nil {
		s.pmapConn.Close()
	}
	if s.nfsConn != nil {
		s.nfsConn.Close()
	}
	return nil
}

func (s *Server) readLoop(ctx context.Context, conn *net.UDPConn) {
	buf := make([]byte, maxDatagram)
	for {
		n, addr, err := conn.ReadFromUDP(buf)
		if err != nil {
			select {
			case <-ctx.Done():
				return
			default:
			}
			logger.Debug("read error on %s: %v", conn.LocalAddr(), err)
			return
		}

		if !s.limiter.Allow() {
			logger.Debug("rate limit exceeded, dropping datagram from %s", addr)
			s.metrics.RecordDropped("rate_limit")
			continue
		}

		select {
		case s.inflight <- struct{}{}:
		default:
			logger.Debug("inflight limit reached, dropping datagram from %s", addr)
			s.metrics.RecordDropped("inflight")
			continue
		}

		datagram := make([]byte, n)
		copy(datagram, buf[:n])

		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			defer func() { <-s.inflight }()
			s.serveDatagram(ctx, conn, addr, datagram)
		}()
	}
}

func listenUDP(bind string, port int) (*net.UDPConn, error) {
	addr, err := net.ResolveUDPAddr("udp", fmt.Sprintf("%s:%d", bind, port))
	if err != nil {
		return nil, err
	}
	return net.ListenUDP("udp", addr)
}
