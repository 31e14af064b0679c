package wire

import (
	"io"
	"time"

	"github.com/dash-blockchain/mnsync/errors"
)

// MaxUserAgentLen is the maximum allowed length for the user agent field in a
// version message.
const MaxUserAgentLen = 256

// MsgVersion implements the Message interface and represents a Dash version
// message. It is used for a peer to advertise itself as soon as an outbound
// connection is made.
//
// On top of the plain bitcoin fields, Dash appends a masternode auth
// challenge and a masternode-connection flag; the peer uses the challenge to
// decide whether to run MNAUTH against us.
type MsgVersion struct {
	ProtocolVersion uint32
	Services        ServiceFlag
	Timestamp       time.Time
	AddrRecv        NetAddress
	AddrFrom        NetAddress
	Nonce           uint64
	UserAgent       string
	StartHeight     int32
	Relay           bool

	// MNAuthChallenge is a process-random value echoed back by masternode
	// peers. It is not otherwise validated by this client.
	MNAuthChallenge uint64

	// MNConnection indicates whether this connection is made by a
	// masternode. Always false for this client.
	MNConnection bool
}

// NewMsgVersion returns a new Dash version message populated with the
// defaults this client advertises.
func NewMsgVersion(addrRecv, addrFrom *NetAddress, nonce, mnAuthChallenge uint64, userAgent string) *MsgVersion {
	return &MsgVersion{
		ProtocolVersion: ProtocolVersion,
		Services:        0,
		Timestamp:       time.Unix(time.Now().Unix(), 0),
		AddrRecv:        *addrRecv,
		AddrFrom:        *addrFrom,
		Nonce:           nonce,
		UserAgent:       userAgent,
		StartHeight:     0,
		Relay:           false,
		MNAuthChallenge: mnAuthChallenge,
		MNConnection:    false,
	}
}

// DashDecode decodes r using the Dash protocol encoding into the receiver.
// This is part of the Message interface implementation.
func (msg *MsgVersion) DashDecode(r io.Reader, pver uint32) error {
	var err error

	if msg.ProtocolVersion, err = binarySerializer.Uint32(r, littleEndian); err != nil {
		return err
	}

	services, err := binarySerializer.Uint64(r, littleEndian)
	if err != nil {
		return err
	}

	msg.Services = ServiceFlag(services)

	ts, err := binarySerializer.Uint64(r, littleEndian)
	if err != nil {
		return err
	}

	msg.Timestamp = time.Unix(int64(ts), 0)

	if err = readNetAddress(r, &msg.AddrRecv); err != nil {
		return err
	}

	if err = readNetAddress(r, &msg.AddrFrom); err != nil {
		return err
	}

	if msg.Nonce, err = binarySerializer.Uint64(r, littleEndian); err != nil {
		return err
	}

	ua, err := readVarBytes(r, MaxUserAgentLen, "user agent")
	if err != nil {
		return err
	}

	msg.UserAgent = string(ua)

	height, err := binarySerializer.Uint32(r, littleEndian)
	if err != nil {
		return err
	}

	msg.StartHeight = int32(height)

	relay, err := binarySerializer.Uint8(r)
	if err != nil {
		return err
	}

	msg.Relay = relay != 0

	// The Dash extensions are optional on the wire; older peers stop here.
	if msg.MNAuthChallenge, err = binarySerializer.Uint64(r, littleEndian); err != nil {
		if err == io.EOF || err == io.ErrUnexpectedEOF {
			return nil
		}

		return err
	}

	mnConn, err := binarySerializer.Uint8(r)
	if err != nil {
		if err == io.EOF || err == io.ErrUnexpectedEOF {
			return nil
		}

		return err
	}

	msg.MNConnection = mnConn != 0

	return nil
}

// DashEncode encodes the receiver to w using the Dash protocol encoding.
// This is part of the Message interface implementation.
func (msg *MsgVersion) DashEncode(w io.Writer, pver uint32) error {
	if len(msg.UserAgent) > MaxUserAgentLen {
		return errors.NewInvalidArgumentError("user agent too long [len %d, max %d]", len(msg.UserAgent), MaxUserAgentLen)
	}

	if err := binarySerializer.PutUint32(w, littleEndian, msg.ProtocolVersion); err != nil {
		return err
	}

	if err := binarySerializer.PutUint64(w, littleEndian, uint64(msg.Services)); err != nil {
		return err
	}

	if err := binarySerializer.PutUint64(w, littleEndian, uint64(msg.Timestamp.Unix())); err != nil {
		return err
	}

	if err := writeNetAddress(w, &msg.AddrRecv); err != nil {
		return err
	}

	if err := writeNetAddress(w, &msg.AddrFrom); err != nil {
		return err
	}

	if err := binarySerializer.PutUint64(w, littleEndian, msg.Nonce); err != nil {
		return err
	}

	if err := writeVarBytes(w, []byte(msg.UserAgent)); err != nil {
		return err
	}

	if err := binarySerializer.PutUint32(w, littleEndian, uint32(msg.StartHeight)); err != nil {
		return err
	}

	var relay uint8
	if msg.Relay {
		relay = 1
	}

	if err := binarySerializer.PutUint8(w, relay); err != nil {
		return err
	}

	if err := binarySerializer.PutUint64(w, littleEndian, msg.MNAuthChallenge); err != nil {
		return err
	}

	var mnConn uint8
	if msg.MNConnection {
		mnConn = 1
	}

	return binarySerializer.PutUint8(w, mnConn)
}

// Command returns the protocol command string for the message. This is part
// of the Message interface implementation.
func (msg *MsgVersion) Command() string {
	return CmdVersion
}
