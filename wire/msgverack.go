package wire

import "io"

// MsgVerack implements the Message interface and represents a Dash verack
// message, sent in reply to a version message to finish the handshake. It
// has no payload.
type MsgVerack struct{}

// NewMsgVerack returns a new Dash verack message.
func NewMsgVerack() *MsgVerack {
	return &MsgVerack{}
}

// DashDecode is part of the Message interface implementation.
func (msg *MsgVerack) DashDecode(r io.Reader, pver uint32) error {
	return nil
}

// DashEncode is part of the Message interface implementation.
func (msg *MsgVerack) DashEncode(w io.Writer, pver uint32) error {
	return nil
}

// Command returns the protocol command string for the message.
func (msg *MsgVerack) Command() string {
	return CmdVerack
}
