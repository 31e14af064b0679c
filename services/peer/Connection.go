package peer

import (
	"bufio"
	"bytes"
	"context"
	"encoding/binary"
	"io"
	"net"
	"strconv"
	"time"

	"go.uber.org/atomic"

	"github.com/dash-blockchain/mnsync/errors"
	"github.com/dash-blockchain/mnsync/settings"
	"github.com/dash-blockchain/mnsync/ulogger"
	"github.com/dash-blockchain/mnsync/wire"
)

// Connection owns a single TCP connection to a Dash Core peer and the frame
// layer on top of it: writing complete frames and reading frames back,
// resynchronizing on the network magic when the stream contains garbage.
//
// Connection is not safe for concurrent use; Client serializes access to it.
type Connection struct {
	logger    ulogger.Logger
	settings  *settings.Settings
	conn      net.Conn
	reader    *bufio.Reader
	magic     wire.DashNet
	connected atomic.Bool
}

// NewConnection creates an unconnected Connection. Call Connect before use.
func NewConnection(logger ulogger.Logger, tSettings *settings.Settings) *Connection {
	initPrometheusMetrics()

	return &Connection{
		logger:   logger,
		settings: tSettings,
		magic:    tSettings.ChainCfgParams.Net,
	}
}

// NewConnectionFromNetConn wraps an already established net.Conn. Used by
// tests with net.Pipe.
func NewConnectionFromNetConn(logger ulogger.Logger, tSettings *settings.Settings, conn net.Conn) *Connection {
	c := NewConnection(logger, tSettings)
	c.conn = conn
	c.reader = bufio.NewReader(conn)
	c.connected.Store(true)

	return c
}

// Connect dials the configured peer.
func (c *Connection) Connect(ctx context.Context) error {
	addr := net.JoinHostPort(c.settings.Peer.Host, strconv.Itoa(c.settings.Peer.Port))

	dialer := &net.Dialer{Timeout: c.settings.Peer.DialTimeout}

	conn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return errors.NewTransportError("failed to connect to peer %s", addr, err)
	}

	c.logger.Infof("[Connection] connected to peer %s on %s", addr, c.magic)

	c.conn = conn
	c.reader = bufio.NewReader(conn)
	c.connected.Store(true)

	return nil
}

// Close closes the underlying connection.
func (c *Connection) Close() error {
	if !c.connected.CompareAndSwap(true, false) {
		return nil
	}

	err := c.conn.Close()
	c.conn = nil
	c.reader = nil

	return err
}

// WriteMessage sends msg to the peer as one complete frame.
func (c *Connection) WriteMessage(msg wire.Message) error {
	if !c.connected.Load() {
		return errors.NewTransportError("not connected")
	}

	return wire.WriteMessage(c.conn, msg, wire.ProtocolVersion, c.magic)
}

// ReadFrame reads the next frame from the peer. When the stream does not
// start with the network magic, bytes are discarded one at a time until the
// magic is found again, up to the configured scan limit. The declared payload
// length is validated before any payload byte is read, and the payload
// checksum is verified against the header.
func (c *Connection) ReadFrame(ctx context.Context) (*wire.MessageHeader, []byte, error) {
	if !c.connected.Load() {
		return nil, nil, errors.NewTransportError("not connected")
	}

	stop := c.watchContext(ctx)
	defer stop()

	hdr := make([]byte, wire.HeaderLength)
	if err := c.readFull(ctx, hdr); err != nil {
		return nil, nil, err
	}

	var magic [4]byte

	binary.LittleEndian.PutUint32(magic[:], uint32(c.magic))

	// Resynchronize on the magic byte by byte. The scan is bounded so a
	// stream that never contains the magic fails instead of spinning.
	discarded := 0
	for !bytes.Equal(hdr[0:4], magic[:]) {
		if discarded >= c.settings.Peer.ResyncScanLimit {
			return nil, nil, errors.NewResyncLimitError("no %s magic found after discarding %d bytes", c.magic, discarded)
		}

		copy(hdr, hdr[1:])

		if err := c.readFull(ctx, hdr[wire.HeaderLength-1:]); err != nil {
			return nil, nil, err
		}

		discarded++

		prometheusPeerResyncBytes.Inc()
	}

	if discarded > 0 {
		c.logger.Warnf("[Connection] discarded %d bytes resynchronizing to %s magic", discarded, c.magic)
	}

	header, err := wire.ParseMessageHeader(hdr)
	if err != nil {
		return nil, nil, err
	}

	// Reject an oversize declaration before reading a single payload byte.
	if header.Length > wire.MaxMessagePayload {
		return nil, nil, errors.NewPayloadTooLargeError("%s header declares %d payload bytes, maximum is %d", header.Command, header.Length, wire.MaxMessagePayload)
	}

	payload := make([]byte, header.Length)
	if err = c.readFull(ctx, payload); err != nil {
		return nil, nil, err
	}

	if csum := wire.Checksum(payload); csum != header.Checksum {
		prometheusPeerChecksumErrors.Inc()

		return nil, nil, errors.NewChecksumMismatchError("%s payload checksum %x does not match header checksum %x [payload %x]", header.Command, csum, header.Checksum, payload)
	}

	prometheusPeerFramesRead.Inc()

	return header, payload, nil
}

// readFull fills buf from the connection, honouring the optional read timeout
// and context cancellation.
func (c *Connection) readFull(ctx context.Context, buf []byte) error {
	// A zero deadline clears any timeout left over from a previous read or
	// a context cancellation.
	var deadline time.Time
	if c.settings.Peer.ReadTimeout > 0 {
		deadline = time.Now().Add(c.settings.Peer.ReadTimeout)
	}

	if err := c.conn.SetReadDeadline(deadline); err != nil {
		return errors.NewTransportError("failed to set read deadline", err)
	}

	// The watcher only fires once. A cancellation that landed before the
	// deadline reset above would otherwise be lost and the read would block
	// with no one left to wake it.
	if ctx.Err() != nil {
		return errors.NewContextCanceledError("read interrupted", ctx.Err())
	}

	if _, err := io.ReadFull(c.reader, buf); err != nil {
		if ctx.Err() != nil {
			return errors.NewContextCanceledError("read interrupted", ctx.Err())
		}

		return errors.NewTransportError("failed to read %d bytes from peer", len(buf), err)
	}

	return nil
}

// watchContext unblocks a pending read when ctx is cancelled by expiring the
// read deadline. The returned stop function must be called when the read
// completes.
func (c *Connection) watchContext(ctx context.Context) func() {
	done := make(chan struct{})
	conn := c.conn

	go func() {
		select {
		case <-ctx.Done():
			_ = conn.SetReadDeadline(time.Now())
		case <-done:
		}
	}()

	return func() { close(done) }
}
