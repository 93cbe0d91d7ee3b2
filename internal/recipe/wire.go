// Package recipe implements the proxy's recipe server and the client's
// recipe RPC, exactly per the wire framing in the specification: a single
// UDP datagram each direction, length-prefixed binary, no session state.
package recipe

import (
	"encoding/binary"
	"errors"
)

// Message types, per the wire format.
const (
	MsgRecipeRequest byte = 1
	MsgRecipeReply   byte = 2
)

var (
	errTooShort    = errors.New("recipe: datagram too short")
	errBadKeyLen   = errors.New("recipe: key length exceeds datagram")
	errUnknownType = errors.New("recipe: unknown message type")
)

// Request is a RECIPE_REQ message.
type Request struct {
	Key string
}

// Reply is a RECIPE_REP message.
type Reply struct {
	Key          string
	CachedBlocks int
}

// EncodeRequest serializes a RECIPE_REQ datagram:
// msgType(u8) keyLen(u16 BE) key(keyLen bytes).
func EncodeRequest(key string) []byte {
	buf := make([]byte, 1+2+len(key))
	buf[0] = MsgRecipeRequest
	binary.BigEndian.PutUint16(buf[1:3], uint16(len(key)))
	copy(buf[3:], key)
	return buf
}

// EncodeReply serializes a RECIPE_REP datagram:
// msgType(u8) keyLen(u16 BE) key(keyLen bytes) cachedBlocks(u16 BE).
func EncodeReply(key string, cachedBlocks int) []byte {
	buf := make([]byte, 1+2+len(key)+2)
	buf[0] = MsgRecipeReply
	binary.BigEndian.PutUint16(buf[1:3], uint16(len(key)))
	copy(buf[3:3+len(key)], key)
	binary.BigEndian.PutUint16(buf[3+len(key):], uint16(cachedBlocks))
	return buf
}

// Decode parses a datagram into either a *Request or a *Reply. An unknown
// msgType, or a datagram too short to hold its declared fields, is reported
// as an error; callers (the UDP read loops) must treat that as a silent
// drop per the specification, not a crash.
func Decode(datagram []byte) (interface{}, error) {
	if len(datagram) < 3 {
		return nil, errTooShort
	}
	msgType := datagram[0]
	keyLen := int(binary.BigEndian.Uint16(datagram[1:3]))
	if 3+keyLen > len(datagram) {
		return nil, errBadKeyLen
	}
	key := string(datagram[3 : 3+keyLen])

	switch msgType {
	case MsgRecipeRequest:
		return &Request{Key: key}, nil
	case MsgRecipeReply:
		rest := datagram[3+keyLen:]
		if len(rest) < 2 {
			return nil, errTooShort
		}
		cachedBlocks := int(binary.BigEndian.Uint16(rest[:2]))
		return &Reply{Key: key, CachedBlocks: cachedBlocks}, nil
	default:
		return nil, errUnknownType
	}
}
