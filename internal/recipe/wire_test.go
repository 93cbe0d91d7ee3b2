package recipe

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRequestRoundTrip(t *testing.T) {
	datagram := EncodeRequest("obj1")
	msg, err := Decode(datagram)
	require.NoError(t, err)
	req, ok := msg.(*Request)
	require.True(t, ok)
	require.Equal(t, "obj1", req.Key)
}

func TestReplyRoundTrip(t *testing.T) {
	datagram := EncodeReply("obj2", 42)
	msg, err := Decode(datagram)
	require.NoError(t, err)
	rep, ok := msg.(*Reply)
	require.True(t, ok)
	require.Equal(t, "obj2", rep.Key)
	require.Equal(t, 42, rep.CachedBlocks)
}

func TestDecodeUnknownMsgTypeIsDropped(t *testing.T) {
	datagram := []byte{99, 0, 0}
	_, err := Decode(datagram)
	require.Error(t, err)
}

func TestDecodeTooShortIsDropped(t *testing.T) {
	_, err := Decode([]byte{1, 0})
	require.Error(t, err)
}

func TestDecodeBadKeyLenIsDropped(t *testing.T) {
	datagram := []byte{1, 0, 10, 'a', 'b'} // keyLen=10 but only 2 bytes follow
	_, err := Decode(datagram)
	require.Error(t, err)
}
