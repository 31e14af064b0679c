package peer

import (
	"context"
	"sync"
	"time"

	"github.com/bsv-blockchain/go-bt/v2/chainhash"
	"github.com/looplab/fsm"

	"github.com/dash-blockchain/mnsync/settings"
	"github.com/dash-blockchain/mnsync/ulogger"
	"github.com/dash-blockchain/mnsync/wire"
)

// Client is a request/response view over a single peer connection. At most
// one request is in flight at a time; responses are correlated by command
// name, and any other inbound traffic is discarded while waiting.
type Client struct {
	logger   ulogger.Logger
	settings *settings.Settings
	conn     *Connection
	fsm      *fsm.FSM

	// mu serializes the handshake and requests, giving the one-in-flight
	// guarantee.
	mu sync.Mutex
}

// NewClient dials the configured peer and returns a client for it. The
// handshake is not performed until EnsureReady or the first request.
func NewClient(ctx context.Context, logger ulogger.Logger, tSettings *settings.Settings) (*Client, error) {
	conn := NewConnection(logger, tSettings)
	if err := conn.Connect(ctx); err != nil {
		return nil, err
	}

	return NewClientWithConnection(logger, tSettings, conn), nil
}

// NewClientWithConnection wraps an existing connection. Used by tests.
func NewClientWithConnection(logger ulogger.Logger, tSettings *settings.Settings, conn *Connection) *Client {
	initPrometheusMetrics()

	return &Client{
		logger:   logger,
		settings: tSettings,
		conn:     conn,
		fsm:      newHandshakeFSM(),
	}
}

// Close tears down the underlying connection.
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.conn.Close()
}

// GetMnListDiff requests the masternode list diff between the two block
// hashes and waits for the matching mnlistdiff response.
func (c *Client) GetMnListDiff(ctx context.Context, baseBlockHash, blockHash *chainhash.Hash) (*wire.MsgMnListDiff, error) {
	msg, err := c.request(ctx, wire.NewMsgGetMnListDiff(baseBlockHash, blockHash), wire.CmdMnListDiff)
	if err != nil {
		return nil, err
	}

	return msg.(*wire.MsgMnListDiff), nil
}

// GetQRInfo requests quorum rotation information for the target block,
// relative to the given known base block hashes.
func (c *Client) GetQRInfo(ctx context.Context, baseBlockHashes []chainhash.Hash, blockRequestHash *chainhash.Hash, extraShare bool) (*wire.MsgQRInfo, error) {
	msg, err := c.request(ctx, wire.NewMsgGetQRInfo(baseBlockHashes, blockRequestHash, extraShare), wire.CmdQRInfo)
	if err != nil {
		return nil, err
	}

	return msg.(*wire.MsgQRInfo), nil
}

// request sends req and waits for a frame carrying wantCmd, discarding
// everything else. The connection stays usable after a response; any error
// surfaces to the caller and leaves the stream position undefined.
func (c *Client) request(ctx context.Context, req wire.Message, wantCmd string) (wire.Message, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.ensureReady(ctx); err != nil {
		return nil, err
	}

	c.logger.Debugf("[Client] sending %s request, waiting for %s", req.Command(), wantCmd)
	prometheusPeerRequests.WithLabelValues(req.Command()).Inc()

	start := time.Now()

	if err := c.conn.WriteMessage(req); err != nil {
		return nil, err
	}

	for {
		header, payload, err := c.conn.ReadFrame(ctx)
		if err != nil {
			return nil, err
		}

		if header.Command != wantCmd {
			c.logger.Debugf("[Client] discarding %s message while waiting for %s", header.Command, wantCmd)
			prometheusPeerFramesDiscarded.Inc()

			continue
		}

		msg, err := wire.DecodeMessage(header.Command, payload, wire.ProtocolVersion)
		if err != nil {
			return nil, err
		}

		prometheusPeerRequestDuration.Observe(time.Since(start).Seconds())

		return msg, nil
	}
}
