package pmap

// Program and version of the portmapper service (RFC 1057 Appendix A).
const (
	Program = 100000
	Version = 2
)

// Portmapper procedure numbers. CALLIT is deliberately unimplemented and
// answers PROC_UNAVAIL at the transport layer.
const (
	ProcNull    = 0
	ProcSet     = 1
	ProcUnset   = 2
	ProcGetPort = 3
	ProcDump    = 4
	ProcCallit  = 5
)

// Transport protocol numbers used in mappings.
const (
	ProtoTCP = 6
	ProtoUDP = 17
)

// Port is the well-known portmapper port.
const Port = 111
