package wire

import (
	"bytes"
	"io"

	"github.com/bsv-blockchain/go-bt/v2/chainhash"

	"github.com/dash-blockchain/mnsync/errors"
)

const (
	// TxTypeClassical is a plain pre-DIP2 transaction with no extra
	// payload.
	TxTypeClassical uint16 = 0

	// TxTypeCoinbase is the DIP-4 coinbase special transaction carrying
	// the masternode/quorum merkle roots and the best chain-lock
	// signature.
	TxTypeCoinbase uint16 = 5

	// maxTxInPerMessage caps input/output counts against malformed
	// prefixes. A coinbase has exactly one input, but the decoder is also
	// used for the cbTx carried inside mnlistdiff.
	maxTxInPerMessage = 16384

	maxScriptSize = 100000
)

// OutPoint defines a Dash data type that is used to track previous
// transaction outputs.
type OutPoint struct {
	Hash  chainhash.Hash
	Index uint32
}

// TxIn defines a Dash transaction input.
type TxIn struct {
	PreviousOutPoint OutPoint
	SignatureScript  []byte
	Sequence         uint32
}

// TxOut defines a Dash transaction output.
type TxOut struct {
	Value    int64
	PkScript []byte
}

// MsgTx represents a Dash transaction. Dash splits the classic 32-bit
// version field into a 16-bit version and a 16-bit type; transactions with a
// non-zero type carry a variable length extra payload after the lock time
// (DIP-2).
type MsgTx struct {
	Version      uint16
	Type         uint16
	TxIn         []*TxIn
	TxOut        []*TxOut
	LockTime     uint32
	ExtraPayload []byte
}

// DashDecode decodes r using the Dash protocol encoding into the receiver.
func (msg *MsgTx) DashDecode(r io.Reader, pver uint32) error {
	version, err := binarySerializer.Uint32(r, littleEndian)
	if err != nil {
		return err
	}

	msg.Version = uint16(version & 0xffff)
	msg.Type = uint16(version >> 16)

	count, err := readVarInt(r)
	if err != nil {
		return err
	}

	if count > maxTxInPerMessage {
		return errors.NewMalformedMessageError("too many transaction inputs [count %d]", count)
	}

	msg.TxIn = make([]*TxIn, count)
	for i := range msg.TxIn {
		ti := &TxIn{}
		if err = readHash(r, &ti.PreviousOutPoint.Hash); err != nil {
			return err
		}

		if ti.PreviousOutPoint.Index, err = binarySerializer.Uint32(r, littleEndian); err != nil {
			return err
		}

		if ti.SignatureScript, err = readVarBytes(r, maxScriptSize, "signature script"); err != nil {
			return err
		}

		if ti.Sequence, err = binarySerializer.Uint32(r, littleEndian); err != nil {
			return err
		}

		msg.TxIn[i] = ti
	}

	count, err = readVarInt(r)
	if err != nil {
		return err
	}

	if count > maxTxInPerMessage {
		return errors.NewMalformedMessageError("too many transaction outputs [count %d]", count)
	}

	msg.TxOut = make([]*TxOut, count)
	for i := range msg.TxOut {
		to := &TxOut{}

		value, err := binarySerializer.Uint64(r, littleEndian)
		if err != nil {
			return err
		}

		to.Value = int64(value)

		if to.PkScript, err = readVarBytes(r, maxScriptSize, "public key script"); err != nil {
			return err
		}

		msg.TxOut[i] = to
	}

	if msg.LockTime, err = binarySerializer.Uint32(r, littleEndian); err != nil {
		return err
	}

	if msg.Type != TxTypeClassical {
		if msg.ExtraPayload, err = readVarBytes(r, MaxMessagePayload, "extra payload"); err != nil {
			return err
		}
	}

	return nil
}

// DashEncode encodes the receiver to w using the Dash protocol encoding.
func (msg *MsgTx) DashEncode(w io.Writer, pver uint32) error {
	version := uint32(msg.Version) | uint32(msg.Type)<<16
	if err := binarySerializer.PutUint32(w, littleEndian, version); err != nil {
		return err
	}

	if err := writeVarInt(w, uint64(len(msg.TxIn))); err != nil {
		return err
	}

	for _, ti := range msg.TxIn {
		if err := writeHash(w, &ti.PreviousOutPoint.Hash); err != nil {
			return err
		}

		if err := binarySerializer.PutUint32(w, littleEndian, ti.PreviousOutPoint.Index); err != nil {
			return err
		}

		if err := writeVarBytes(w, ti.SignatureScript); err != nil {
			return err
		}

		if err := binarySerializer.PutUint32(w, littleEndian, ti.Sequence); err != nil {
			return err
		}
	}

	if err := writeVarInt(w, uint64(len(msg.TxOut))); err != nil {
		return err
	}

	for _, to := range msg.TxOut {
		if err := binarySerializer.PutUint64(w, littleEndian, uint64(to.Value)); err != nil {
			return err
		}

		if err := writeVarBytes(w, to.PkScript); err != nil {
			return err
		}
	}

	if err := binarySerializer.PutUint32(w, littleEndian, msg.LockTime); err != nil {
		return err
	}

	if msg.Type != TxTypeClassical {
		return writeVarBytes(w, msg.ExtraPayload)
	}

	return nil
}

// CoinbasePayload is the decoded DIP-4 coinbase special transaction payload.
// From payload version 3 it carries the best known chain-lock signature at
// that block, which is the trust anchor used to validate quorum commitments.
type CoinbasePayload struct {
	Version           uint16
	Height            uint32
	MerkleRootMNList  chainhash.Hash
	MerkleRootQuorums chainhash.Hash
	BestCLHeightDiff  uint64
	BestCLSignature   *BLSSignature
	CreditPoolBalance int64
}

// coinbasePayloadVersionCL is the first coinbase payload version carrying a
// chain-lock signature.
const coinbasePayloadVersionCL = 3

// CoinbasePayload parses the transaction's extra payload as a coinbase
// special transaction payload.
func (msg *MsgTx) CoinbasePayload() (*CoinbasePayload, error) {
	if msg.Type != TxTypeCoinbase {
		return nil, errors.NewCoinbasePayloadError("transaction type %d is not a coinbase special transaction", msg.Type)
	}

	if len(msg.ExtraPayload) == 0 {
		return nil, errors.NewCoinbasePayloadError("coinbase special transaction has no extra payload")
	}

	r := bytes.NewReader(msg.ExtraPayload)

	cp := &CoinbasePayload{}

	var err error
	if cp.Version, err = binarySerializer.Uint16(r, littleEndian); err != nil {
		return nil, err
	}

	if cp.Height, err = binarySerializer.Uint32(r, littleEndian); err != nil {
		return nil, err
	}

	if err = readHash(r, &cp.MerkleRootMNList); err != nil {
		return nil, err
	}

	if cp.Version >= 2 {
		if err = readHash(r, &cp.MerkleRootQuorums); err != nil {
			return nil, err
		}
	}

	if cp.Version >= coinbasePayloadVersionCL {
		if cp.BestCLHeightDiff, err = readVarInt(r); err != nil {
			return nil, err
		}

		var sig BLSSignature
		if _, err = io.ReadFull(r, sig[:]); err != nil {
			return nil, err
		}

		// An all-zero signature means no chain lock was known at that
		// block.
		if sig != (BLSSignature{}) {
			cp.BestCLSignature = &sig
		}

		balance, err := binarySerializer.Uint64(r, littleEndian)
		if err != nil {
			return nil, err
		}

		cp.CreditPoolBalance = int64(balance)
	}

	return cp, nil
}
