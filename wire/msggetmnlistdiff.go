package wire

import (
	"io"

	"github.com/bsv-blockchain/go-bt/v2/chainhash"
)

// MsgGetMnListDiff implements the Message interface and represents a Dash
// getmnlistdiff message. It requests the masternode list diff between the
// base block and the target block.
type MsgGetMnListDiff struct {
	BaseBlockHash chainhash.Hash
	BlockHash     chainhash.Hash
}

// NewMsgGetMnListDiff returns a new getmnlistdiff message for the given
// height range.
func NewMsgGetMnListDiff(baseBlockHash, blockHash *chainhash.Hash) *MsgGetMnListDiff {
	return &MsgGetMnListDiff{
		BaseBlockHash: *baseBlockHash,
		BlockHash:     *blockHash,
	}
}

// DashDecode is part of the Message interface implementation.
func (msg *MsgGetMnListDiff) DashDecode(r io.Reader, pver uint32) error {
	if err := readHash(r, &msg.BaseBlockHash); err != nil {
		return err
	}

	return readHash(r, &msg.BlockHash)
}

// DashEncode is part of the Message interface implementation.
func (msg *MsgGetMnListDiff) DashEncode(w io.Writer, pver uint32) error {
	if err := writeHash(w, &msg.BaseBlockHash); err != nil {
		return err
	}

	return writeHash(w, &msg.BlockHash)
}

// Command returns the protocol command string for the message.
func (msg *MsgGetMnListDiff) Command() string {
	return CmdGetMnListDiff
}
