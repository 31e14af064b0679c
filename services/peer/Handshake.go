package peer

import (
	"context"
	"crypto/rand"
	"encoding/binary"
	"net"
	"time"

	"github.com/looplab/fsm"

	"github.com/dash-blockchain/mnsync/errors"
	"github.com/dash-blockchain/mnsync/wire"
)

// Handshake states.
const (
	StateNotStarted          = "NotStarted"
	StateVersionSent         = "VersionSent"
	StatePeerVersionReceived = "PeerVersionReceived"
	StateVerackReceived      = "VerackReceived"
	StateReady               = "Ready"
)

// Handshake events.
const (
	EventSendVersion    = "SendVersion"
	EventReceiveVersion = "ReceiveVersion"
	EventReceiveVerack  = "ReceiveVerack"
	EventSendVerack     = "SendVerack"
)

// newHandshakeFSM creates the finite state machine for the version/verack
// handshake. The transitions are strictly sequential: our version goes out
// first, the peer's version must arrive before its verack, and our verack
// completes the exchange.
func newHandshakeFSM() *fsm.FSM {
	return fsm.NewFSM(
		StateNotStarted,
		fsm.Events{
			{
				Name: EventSendVersion,
				Src:  []string{StateNotStarted},
				Dst:  StateVersionSent,
			},
			{
				Name: EventReceiveVersion,
				Src:  []string{StateVersionSent},
				Dst:  StatePeerVersionReceived,
			},
			{
				Name: EventReceiveVerack,
				Src:  []string{StatePeerVersionReceived},
				Dst:  StateVerackReceived,
			},
			{
				Name: EventSendVerack,
				Src:  []string{StateVerackReceived},
				Dst:  StateReady,
			},
		},
		fsm.Callbacks{},
	)
}

// EnsureReady performs the handshake if the connection is not Ready yet. It
// is idempotent; once the handshake has completed, subsequent calls return
// immediately. A failed handshake leaves the state machine where it stopped,
// so a retry on the same connection fails fast rather than desynchronizing
// the stream.
func (c *Client) EnsureReady(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.ensureReady(ctx)
}

// ensureReady is the lock-free inner handshake, shared with Request.
func (c *Client) ensureReady(ctx context.Context) error {
	if c.fsm.Current() == StateReady {
		return nil
	}

	if c.fsm.Current() != StateNotStarted {
		return errors.NewHandshakeError("handshake previously failed in state %s", c.fsm.Current())
	}

	if err := c.sendVersion(ctx); err != nil {
		return err
	}

	for c.fsm.Current() != StateVerackReceived {
		header, payload, err := c.conn.ReadFrame(ctx)
		if err != nil {
			return err
		}

		switch header.Command {
		case wire.CmdVersion:
			msg, err := wire.DecodeMessage(header.Command, payload, wire.ProtocolVersion)
			if err != nil {
				return err
			}

			version := msg.(*wire.MsgVersion)

			// The peer's version is informational only.
			c.logger.Infof("[Handshake] peer version %d, user agent %s, start height %d", version.ProtocolVersion, version.UserAgent, version.StartHeight)

			if err = c.fsm.Event(ctx, EventReceiveVersion); err != nil {
				return errors.NewHandshakeError("unexpected version message in state %s", c.fsm.Current(), err)
			}

		case wire.CmdVerack:
			if err := c.fsm.Event(ctx, EventReceiveVerack); err != nil {
				return errors.NewHandshakeError("verack received before version in state %s", c.fsm.Current(), err)
			}

		default:
			c.logger.Debugf("[Handshake] discarding %s message while waiting for handshake", header.Command)
			prometheusPeerFramesDiscarded.Inc()

			time.Sleep(c.settings.Peer.HandshakePollSleep)
		}
	}

	if err := c.conn.WriteMessage(&wire.MsgVerack{}); err != nil {
		return err
	}

	if err := c.fsm.Event(ctx, EventSendVerack); err != nil {
		return errors.NewHandshakeError("failed to complete handshake from state %s", c.fsm.Current(), err)
	}

	c.logger.Infof("[Handshake] handshake complete")

	return nil
}

func (c *Client) sendVersion(ctx context.Context) error {
	nonce, err := randomUint64()
	if err != nil {
		return err
	}

	mnAuthChallenge, err := randomUint64()
	if err != nil {
		return err
	}

	// The peer's address as we dialed it, flagged as bloom-capable; our own
	// address is unroutable and carries no services.
	addrRecv := wire.NewNetAddressIPPort(net.ParseIP(c.settings.Peer.Host), uint16(c.settings.Peer.Port), wire.SFNodeBloom)
	addrFrom := wire.NewNetAddressIPPort(net.IPv4zero, 0, 0)

	version := wire.NewMsgVersion(addrRecv, addrFrom, nonce, mnAuthChallenge, c.settings.Peer.UserAgent)

	if err = c.conn.WriteMessage(version); err != nil {
		return err
	}

	if err = c.fsm.Event(ctx, EventSendVersion); err != nil {
		return errors.NewHandshakeError("failed to record version sent from state %s", c.fsm.Current(), err)
	}

	return nil
}

func randomUint64() (uint64, error) {
	var b [8]byte
	if _, err := rand.Read(b[:]); err != nil {
		return 0, errors.NewProcessingError("failed to generate random nonce", err)
	}

	return binary.LittleEndian.Uint64(b[:]), nil
}
