package recipe

import (
	"net"

	"github.com/tessellate-io/shardcache/internal/logging"
)

// AllocatorHandle is the subset of the allocator the recipe server needs.
type AllocatorHandle interface {
	OnAccess(key string)
	RecipeOf(key string) int
}

const maxDatagramSize = 65507 // max UDP payload over IPv4

// Server is the proxy-side recipe server: one goroutine reading datagrams
// off a UDP socket, handling each inline (§4.2 — fanning the cheap handler
// out to a worker pool would only reorder replies, not speed anything up).
type Server struct {
	conn  *net.UDPConn
	alloc AllocatorHandle
	log   *logging.Logger
}

// Listen starts a Server bound to addr (host:port).
func Listen(addr string, alloc AllocatorHandle, log *logging.Logger) (*Server, error) {
	udpAddr, err := net.ResolveUDPAddr("udp", addr)
	if err != nil {
		return nil, err
	}
	conn, err := net.ListenUDP("udp", udpAddr)
	if err != nil {
		return nil, err
	}
	return &Server{conn: conn, alloc: alloc, log: log}, nil
}

// Addr returns the bound local address, useful when addr was "host:0".
func (s *Server) Addr() net.Addr { return s.conn.LocalAddr() }

// Serve runs the read loop until Close is called, at which point the
// blocking ReadFromUDP returns an error and Serve exits.
func (s *Server) Serve() error {
	buf := make([]byte, maxDatagramSize)
	for {
		n, clientAddr, err := s.conn.ReadFromUDP(buf)
		if err != nil {
			return err
		}
		s.handle(buf[:n], clientAddr)
	}
}

func (s *Server) handle(datagram []byte, from *net.UDPAddr) {
	msg, err := Decode(datagram)
	if err != nil {
		if s.log != nil {
			s.log.Debug("dropped malformed recipe datagram", "from", from.String(), "err", err.Error())
		}
		return
	}
	req, ok := msg.(*Request)
	if !ok {
		// A RECIPE_REP arriving at the server is also silently dropped:
		// the server only ever expects requests.
		return
	}
	if req.Key == "" {
		return
	}

	s.alloc.OnAccess(req.Key)
	cachedBlocks := s.alloc.RecipeOf(req.Key)

	reply := EncodeReply(req.Key, cachedBlocks)
	if _, err := s.conn.WriteToUDP(reply, from); err != nil && s.log != nil {
		s.log.Debug("failed to send recipe reply", "to", from.String(), "err", err.Error())
	}
}

// Close stops the server.
func (s *Server) Close() error { return s.conn.Close() }
