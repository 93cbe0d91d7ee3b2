package recipe

import (
	"context"
	"errors"
	"net"
	"syscall"
)

// Client is the client-side half of the recipe protocol: send one
// datagram, await one reply, with a hard timeout. Requests are idempotent;
// a timeout is reported as ok=false and the caller proceeds as if c=0.
type Client struct {
	conn *net.UDPConn
}

// Dial connects a UDP "socket" to the proxy's recipe server address.
// UDP Dial does not perform a handshake; it just fixes the destination for
// subsequent writes and filters reads to that peer.
func Dial(proxyAddr string) (*Client, error) {
	udpAddr, err := net.ResolveUDPAddr("udp", proxyAddr)
	if err != nil {
		return nil, err
	}
	conn, err := net.DialUDP("udp", nil, udpAddr)
	if err != nil {
		return nil, err
	}
	return &Client{conn: conn}, nil
}

// RequestRecipe sends a RECIPE_REQ for key and awaits a RECIPE_REP, honoring
// ctx's deadline as the T1 timeout. ok=false (with no error) means the
// proxy was unreachable in time; callers must proceed with cachedBlocks=0.
func (c *Client) RequestRecipe(ctx context.Context, key string) (cachedBlocks int, ok bool, err error) {
	if deadline, hasDeadline := ctx.Deadline(); hasDeadline {
		if err := c.conn.SetDeadline(deadline); err != nil {
			return 0, false, err
		}
	}

	if _, err := c.conn.Write(EncodeRequest(key)); err != nil {
		if errors.Is(err, syscall.ECONNREFUSED) {
			return 0, false, nil
		}
		return 0, false, err
	}

	buf := make([]byte, maxDatagramSize)
	n, err := c.conn.Read(buf)
	if err != nil {
		if netErr, isNetErr := err.(net.Error); isNetErr && netErr.Timeout() {
			return 0, false, nil
		}
		if errors.Is(err, syscall.ECONNREFUSED) {
			return 0, false, nil
		}
		return 0, false, err
	}

	msg, decErr := Decode(buf[:n])
	if decErr != nil {
		return 0, false, nil
	}
	rep, isReply := msg.(*Reply)
	if !isReply || rep.Key != key {
		return 0, false, nil
	}
	return rep.CachedBlocks, true, nil
}

// Close releases the underlying socket.
func (c *Client) Close() error { return c.conn.Close() }
