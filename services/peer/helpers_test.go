package peer

import (
	"bytes"
	"encoding/binary"
	"io"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/dash-blockchain/mnsync/chaincfg"
	"github.com/dash-blockchain/mnsync/settings"
	"github.com/dash-blockchain/mnsync/ulogger"
	"github.com/dash-blockchain/mnsync/wire"
)

// testLogger keeps quiet runs quiet but surfaces service logs under -v.
func testLogger(t *testing.T) ulogger.Logger {
	t.Helper()

	if testing.Verbose() {
		return ulogger.NewVerboseTestLogger(t)
	}

	return ulogger.TestLogger{}
}

func testSettings() *settings.Settings {
	return &settings.Settings{
		ClientName:     "test",
		ChainCfgParams: &chaincfg.MainNetParams,
		Peer: settings.PeerSettings{
			Host:               "127.0.0.1",
			Port:               9999,
			UserAgent:          "/mnsync-test:0.1/",
			ResyncScanLimit:    4096,
			HandshakePollSleep: time.Millisecond,
		},
		Sync: settings.SyncSettings{
			CacheCapacity:    1024,
			QuorumProofDepth: 8,
		},
	}
}

// frameBytes serializes msg as one complete mainnet frame.
func frameBytes(t *testing.T, msg wire.Message) []byte {
	t.Helper()

	var buf bytes.Buffer
	require.NoError(t, wire.WriteMessage(&buf, msg, wire.ProtocolVersion, wire.MainNet))

	return buf.Bytes()
}

// rawFrame builds a mainnet frame for an arbitrary command string, with a
// valid checksum. Used to inject traffic this client never sends, like ping.
func rawFrame(t *testing.T, command string, payload []byte) []byte {
	t.Helper()

	require.LessOrEqual(t, len(command), wire.CommandSize)

	var buf bytes.Buffer

	require.NoError(t, binary.Write(&buf, binary.LittleEndian, uint32(wire.MainNet)))

	var cmd [wire.CommandSize]byte

	copy(cmd[:], command)
	buf.Write(cmd[:])

	require.NoError(t, binary.Write(&buf, binary.LittleEndian, uint32(len(payload)))) //nolint:gosec

	csum := wire.Checksum(payload)
	buf.Write(csum[:])
	buf.Write(payload)

	return buf.Bytes()
}

// readPeerFrame reads one frame from the far end of the pipe, playing the
// remote peer.
func readPeerFrame(t *testing.T, conn net.Conn) (*wire.MessageHeader, []byte) {
	t.Helper()

	hdr := make([]byte, wire.HeaderLength)
	_, err := io.ReadFull(conn, hdr)
	require.NoError(t, err)

	header, err := wire.ParseMessageHeader(hdr)
	require.NoError(t, err)

	payload := make([]byte, header.Length)
	_, err = io.ReadFull(conn, payload)
	require.NoError(t, err)

	return header, payload
}

// peerVersionMsg builds the version message the remote peer answers with.
func peerVersionMsg() *wire.MsgVersion {
	addr := wire.NewNetAddressIPPort(net.IPv4zero, 0, 0)

	return wire.NewMsgVersion(addr, addr, 42, 43, "/DashCore:21.0/")
}

// serveHandshake plays the remote side of a full handshake: read the client's
// version, answer with version and verack, then consume the client's verack.
func serveHandshake(t *testing.T, conn net.Conn) {
	t.Helper()

	header, payload := readPeerFrame(t, conn)
	require.Equal(t, wire.CmdVersion, header.Command)

	msg, err := wire.DecodeMessage(header.Command, payload, wire.ProtocolVersion)
	require.NoError(t, err)

	version := msg.(*wire.MsgVersion)
	require.Equal(t, wire.ProtocolVersion, version.ProtocolVersion)
	require.Equal(t, "/mnsync-test:0.1/", version.UserAgent)
	require.False(t, version.Relay)

	_, err = conn.Write(frameBytes(t, peerVersionMsg()))
	require.NoError(t, err)

	_, err = conn.Write(frameBytes(t, &wire.MsgVerack{}))
	require.NoError(t, err)

	header, _ = readPeerFrame(t, conn)
	require.Equal(t, wire.CmdVerack, header.Command)
}
