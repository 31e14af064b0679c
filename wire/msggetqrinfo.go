package wire

import (
	"io"

	"github.com/bsv-blockchain/go-bt/v2/chainhash"

	"github.com/dash-blockchain/mnsync/errors"
)

// maxBaseBlockHashes caps the known-hash list in a getqrinfo request, per
// DIP-24.
const maxBaseBlockHashes = 512

// MsgGetQRInfo implements the Message interface and represents a Dash
// getqrinfo message. It requests quorum rotation information relative to a
// set of base block hashes the requester already knows.
type MsgGetQRInfo struct {
	BaseBlockHashes  []chainhash.Hash
	BlockRequestHash chainhash.Hash
	ExtraShare       bool
}

// NewMsgGetQRInfo returns a new getqrinfo message.
func NewMsgGetQRInfo(baseBlockHashes []chainhash.Hash, blockRequestHash *chainhash.Hash, extraShare bool) *MsgGetQRInfo {
	return &MsgGetQRInfo{
		BaseBlockHashes:  baseBlockHashes,
		BlockRequestHash: *blockRequestHash,
		ExtraShare:       extraShare,
	}
}

// DashDecode is part of the Message interface implementation.
func (msg *MsgGetQRInfo) DashDecode(r io.Reader, pver uint32) error {
	count, err := readVarInt(r)
	if err != nil {
		return err
	}

	if count > maxBaseBlockHashes {
		return errors.NewMalformedMessageError("too many base block hashes [count %d, max %d]", count, maxBaseBlockHashes)
	}

	msg.BaseBlockHashes = make([]chainhash.Hash, count)
	for i := range msg.BaseBlockHashes {
		if err = readHash(r, &msg.BaseBlockHashes[i]); err != nil {
			return err
		}
	}

	if err = readHash(r, &msg.BlockRequestHash); err != nil {
		return err
	}

	extraShare, err := binarySerializer.Uint8(r)
	if err != nil {
		return err
	}

	msg.ExtraShare = extraShare != 0

	return nil
}

// DashEncode is part of the Message interface implementation.
func (msg *MsgGetQRInfo) DashEncode(w io.Writer, pver uint32) error {
	if err := writeVarInt(w, uint64(len(msg.BaseBlockHashes))); err != nil {
		return err
	}

	for i := range msg.BaseBlockHashes {
		if err := writeHash(w, &msg.BaseBlockHashes[i]); err != nil {
			return err
		}
	}

	if err := writeHash(w, &msg.BlockRequestHash); err != nil {
		return err
	}

	var extraShare uint8
	if msg.ExtraShare {
		extraShare = 1
	}

	return binarySerializer.PutUint8(w, extraShare)
}

// Command returns the protocol command string for the message.
func (msg *MsgGetQRInfo) Command() string {
	return CmdGetQRInfo
}
