package peer

import (
	"context"
	"net"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dash-blockchain/mnsync/errors"
	"github.com/dash-blockchain/mnsync/settings"
	"github.com/dash-blockchain/mnsync/wire"
)

func testClient(t *testing.T, tSettings *settings.Settings) (*Client, net.Conn) {
	t.Helper()

	clientConn, server := net.Pipe()

	logger := testLogger(t)

	conn := NewConnectionFromNetConn(logger, tSettings, clientConn)
	client := NewClientWithConnection(logger, tSettings, conn)

	t.Cleanup(func() {
		_ = client.Close()
		_ = server.Close()
	})

	return client, server
}

func TestEnsureReady(t *testing.T) {
	client, server := testClient(t, testSettings())

	done := make(chan struct{})

	go func() {
		defer close(done)
		serveHandshake(t, server)
	}()

	require.NoError(t, client.EnsureReady(context.Background()))
	<-done

	assert.Equal(t, StateReady, client.fsm.Current())

	// Idempotent; the peer is not consulted again.
	require.NoError(t, client.EnsureReady(context.Background()))
}

func TestEnsureReadyVerackBeforeVersion(t *testing.T) {
	client, server := testClient(t, testSettings())

	go func() {
		header, _ := readPeerFrame(t, server)
		require.Equal(t, wire.CmdVersion, header.Command)

		// Verack without a preceding version violates the exchange order.
		_, _ = server.Write(frameBytes(t, &wire.MsgVerack{}))
	}()

	err := client.EnsureReady(context.Background())
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrHandshake))

	// A failed handshake does not restart; the retry fails fast.
	err = client.EnsureReady(context.Background())
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrHandshake))
}

func TestEnsureReadyDiscardsUnrelatedTraffic(t *testing.T) {
	client, server := testClient(t, testSettings())

	go func() {
		header, _ := readPeerFrame(t, server)
		require.Equal(t, wire.CmdVersion, header.Command)

		_, _ = server.Write(rawFrame(t, "ping", make([]byte, 8)))
		_, _ = server.Write(frameBytes(t, peerVersionMsg()))
		_, _ = server.Write(rawFrame(t, "sendheaders", nil))
		_, _ = server.Write(frameBytes(t, &wire.MsgVerack{}))

		header, _ = readPeerFrame(t, server)
		require.Equal(t, wire.CmdVerack, header.Command)
	}()

	require.NoError(t, client.EnsureReady(context.Background()))
	assert.Equal(t, StateReady, client.fsm.Current())
}
