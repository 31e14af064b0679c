package wire

import (
	"bytes"
	"io"

	"github.com/bsv-blockchain/go-bt/v2/chainhash"

	"github.com/dash-blockchain/mnsync/errors"
)

const (
	// HeaderLength is the number of bytes in a Dash message header:
	// magic 4 bytes + command 12 bytes + payload length 4 bytes +
	// checksum 4 bytes.
	HeaderLength = 24

	// CommandSize is the fixed size of all commands in the common message
	// header. Shorter commands must be zero padded.
	CommandSize = 12

	// MaxMessagePayload is the maximum bytes a message can be regardless of
	// other individual limits imposed by messages themselves.
	MaxMessagePayload = 0x02000000 // 32MB

	// checksumSize is the number of leading double-SHA256 bytes carried in
	// the header.
	checksumSize = 4
)

// Commands used in Dash message headers which describe the type of message.
const (
	CmdVersion       = "version"
	CmdVerack        = "verack"
	CmdGetMnListDiff = "getmnlistdiff"
	CmdMnListDiff    = "mnlistdiff"
	CmdGetQRInfo     = "getqrinfo"
	CmdQRInfo        = "qrinfo"
)

// Message is an interface that describes a Dash P2P message. Implementations
// encode and decode only the payload; the surrounding frame is owned by
// WriteMessage and the transport's frame reader.
type Message interface {
	DashDecode(r io.Reader, pver uint32) error
	DashEncode(w io.Writer, pver uint32) error
	Command() string
}

// makeEmptyMessage creates a message of the appropriate concrete type based on
// the command.
func makeEmptyMessage(command string) (Message, error) {
	var msg Message

	switch command {
	case CmdVersion:
		msg = &MsgVersion{}
	case CmdVerack:
		msg = &MsgVerack{}
	case CmdGetMnListDiff:
		msg = &MsgGetMnListDiff{}
	case CmdMnListDiff:
		msg = &MsgMnListDiff{}
	case CmdGetQRInfo:
		msg = &MsgGetQRInfo{}
	case CmdQRInfo:
		msg = &MsgQRInfo{}
	default:
		return nil, errors.NewUnexpectedMessageError("unhandled command [%s]", command)
	}

	return msg, nil
}

// MessageHeader is the decoded form of the 24 byte frame header.
type MessageHeader struct {
	Magic    DashNet
	Command  string
	Length   uint32
	Checksum [checksumSize]byte
}

// ParseMessageHeader decodes hdr, which must be exactly HeaderLength bytes.
// It does not validate the magic; the transport's resynchronization loop owns
// that check.
func ParseMessageHeader(hdr []byte) (*MessageHeader, error) {
	if len(hdr) != HeaderLength {
		return nil, errors.NewMalformedMessageError("message header must be %d bytes, got %d", HeaderLength, len(hdr))
	}

	h := &MessageHeader{
		Magic:  DashNet(littleEndian.Uint32(hdr[0:4])),
		Length: littleEndian.Uint32(hdr[16:20]),
	}

	h.Command = string(bytes.TrimRight(hdr[4:16], "\x00"))
	copy(h.Checksum[:], hdr[20:24])

	return h, nil
}

// Checksum returns the first 4 bytes of the double-SHA256 of payload, as
// carried in the message header.
func Checksum(payload []byte) [checksumSize]byte {
	var csum [checksumSize]byte
	copy(csum[:], chainhash.DoubleHashB(payload))

	return csum
}

// WriteMessage writes a Dash Message to w as a complete frame: header with
// the given network magic followed by the encoded payload.
func WriteMessage(w io.Writer, msg Message, pver uint32, dashNet DashNet) error {
	var payload bytes.Buffer
	if err := msg.DashEncode(&payload, pver); err != nil {
		return err
	}

	if payload.Len() > MaxMessagePayload {
		return errors.NewPayloadTooLargeError("message payload is too large - encoded %d bytes, but maximum message payload is %d bytes", payload.Len(), MaxMessagePayload)
	}

	command := msg.Command()
	if len(command) > CommandSize {
		return errors.NewInvalidArgumentError("command [%s] is too long [max %d]", command, CommandSize)
	}

	var cmd [CommandSize]byte
	copy(cmd[:], command)

	csum := Checksum(payload.Bytes())

	frame := make([]byte, 0, HeaderLength+payload.Len())
	frame = littleEndian.AppendUint32(frame, uint32(dashNet))
	frame = append(frame, cmd[:]...)
	frame = littleEndian.AppendUint32(frame, uint32(payload.Len()))
	frame = append(frame, csum[:]...)
	frame = append(frame, payload.Bytes()...)

	// A single write keeps the frame atomic with respect to this process.
	if _, err := w.Write(frame); err != nil {
		return errors.NewTransportError("failed to write %s message", command, err)
	}

	return nil
}

// DecodeMessage decodes the payload portion of a frame whose header declared
// the given command. The returned message is the concrete type registered for
// the command.
func DecodeMessage(command string, payload []byte, pver uint32) (Message, error) {
	msg, err := makeEmptyMessage(command)
	if err != nil {
		return nil, err
	}

	if err = msg.DashDecode(bytes.NewReader(payload), pver); err != nil {
		return nil, errors.NewMalformedMessageError("failed to deserialize %s payload [%x]", command, payload, err)
	}

	return msg, nil
}
