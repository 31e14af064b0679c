package peer

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/bsv-blockchain/go-bt/v2/chainhash"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dash-blockchain/mnsync/errors"
	"github.com/dash-blockchain/mnsync/settings"
	"github.com/dash-blockchain/mnsync/wire"
)

func testConnection(t *testing.T, tSettings *settings.Settings) (*Connection, net.Conn) {
	t.Helper()

	client, server := net.Pipe()

	conn := NewConnectionFromNetConn(testLogger(t), tSettings, client)

	t.Cleanup(func() {
		_ = conn.Close()
		_ = server.Close()
	})

	return conn, server
}

func TestReadFrame(t *testing.T) {
	conn, server := testConnection(t, testSettings())

	msg := wire.NewMsgGetMnListDiff(&chainhash.Hash{0x01}, &chainhash.Hash{0x02})

	go func() {
		_, _ = server.Write(frameBytes(t, msg))
	}()

	header, payload, err := conn.ReadFrame(context.Background())
	require.NoError(t, err)

	assert.Equal(t, wire.CmdGetMnListDiff, header.Command)
	assert.Equal(t, uint32(64), header.Length)

	decoded, err := wire.DecodeMessage(header.Command, payload, wire.ProtocolVersion)
	require.NoError(t, err)
	assert.Equal(t, msg, decoded)
}

func TestReadFrameResynchronizes(t *testing.T) {
	conn, server := testConnection(t, testSettings())

	go func() {
		garbage := make([]byte, 10)
		for i := range garbage {
			garbage[i] = 0xab
		}

		_, _ = server.Write(garbage)
		_, _ = server.Write(frameBytes(t, &wire.MsgVerack{}))
	}()

	header, payload, err := conn.ReadFrame(context.Background())
	require.NoError(t, err)

	assert.Equal(t, wire.CmdVerack, header.Command)
	assert.Empty(t, payload)
}

func TestReadFrameResyncLimit(t *testing.T) {
	tSettings := testSettings()
	tSettings.Peer.ResyncScanLimit = 64

	conn, server := testConnection(t, tSettings)

	go func() {
		// Enough bytes for the initial header read plus the full scan,
		// never containing the magic.
		garbage := make([]byte, wire.HeaderLength+64)
		for i := range garbage {
			garbage[i] = 0x01
		}

		_, _ = server.Write(garbage)
	}()

	_, _, err := conn.ReadFrame(context.Background())
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrResyncLimit))
}

func TestReadFrameChecksumMismatch(t *testing.T) {
	conn, server := testConnection(t, testSettings())

	frame := frameBytes(t, wire.NewMsgGetMnListDiff(&chainhash.Hash{0x01}, &chainhash.Hash{0x02}))
	frame[len(frame)-1] ^= 0xff

	go func() {
		_, _ = server.Write(frame)
	}()

	_, _, err := conn.ReadFrame(context.Background())
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrChecksumMismatch))
}

func TestReadFramePayloadTooLarge(t *testing.T) {
	conn, server := testConnection(t, testSettings())

	// A bare header declaring more payload than the protocol allows. The
	// read must fail before asking for a single payload byte.
	frame := rawFrame(t, "mnlistdiff", nil)
	frame[16] = 0x00
	frame[17] = 0x00
	frame[18] = 0x00
	frame[19] = 0x03

	go func() {
		_, _ = server.Write(frame[:wire.HeaderLength])
	}()

	_, _, err := conn.ReadFrame(context.Background())
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrPayloadTooLarge))
}

func TestReadFrameContextCanceled(t *testing.T) {
	conn, _ := testConnection(t, testSettings())

	ctx, cancel := context.WithCancel(context.Background())

	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()

	_, _, err := conn.ReadFrame(ctx)
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrContextCanceled))
}

func TestReadFrameContextAlreadyCanceled(t *testing.T) {
	conn, _ := testConnection(t, testSettings())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, _, err := conn.ReadFrame(ctx)
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrContextCanceled))
}

func TestReadFrameContextCanceledMidFrame(t *testing.T) {
	conn, server := testConnection(t, testSettings())

	frame := frameBytes(t, wire.NewMsgGetMnListDiff(&chainhash.Hash{0x01}, &chainhash.Hash{0x02}))

	ctx, cancel := context.WithCancel(context.Background())

	go func() {
		// Only the header arrives, so the payload read blocks until the
		// cancellation wakes it.
		_, _ = server.Write(frame[:wire.HeaderLength])
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()

	done := make(chan error, 1)

	go func() {
		_, _, err := conn.ReadFrame(ctx)
		done <- err
	}()

	select {
	case err := <-done:
		require.Error(t, err)
		assert.True(t, errors.Is(err, errors.ErrContextCanceled))
	case <-time.After(2 * time.Second):
		t.Fatal("ReadFrame did not return after the context was canceled")
	}
}

func TestConnectionNotConnected(t *testing.T) {
	conn := NewConnection(testLogger(t), testSettings())

	err := conn.WriteMessage(&wire.MsgVerack{})
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrTransport))

	_, _, err = conn.ReadFrame(context.Background())
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrTransport))
}

func TestConnectionCloseIdempotent(t *testing.T) {
	conn, _ := testConnection(t, testSettings())

	require.NoError(t, conn.Close())
	require.NoError(t, conn.Close())
}
