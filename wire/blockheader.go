package wire

import (
	"bytes"
	"io"

	"github.com/bsv-blockchain/go-bt/v2/chainhash"
)

// BlockHeaderLength is the serialized size of a Dash block header.
const BlockHeaderLength = 80

// BlockHeader defines information about a block.
type BlockHeader struct {
	Version    int32
	PrevBlock  chainhash.Hash
	MerkleRoot chainhash.Hash
	Timestamp  uint32
	Bits       uint32
	Nonce      uint32
}

// BlockHash computes the block identifier hash for the given block header.
func (h *BlockHeader) BlockHash() chainhash.Hash {
	var buf bytes.Buffer
	_ = h.Serialize(&buf)

	return chainhash.DoubleHashH(buf.Bytes())
}

// Deserialize decodes a block header from r.
func (h *BlockHeader) Deserialize(r io.Reader) error {
	version, err := binarySerializer.Uint32(r, littleEndian)
	if err != nil {
		return err
	}

	h.Version = int32(version)

	if err = readHash(r, &h.PrevBlock); err != nil {
		return err
	}

	if err = readHash(r, &h.MerkleRoot); err != nil {
		return err
	}

	if h.Timestamp, err = binarySerializer.Uint32(r, littleEndian); err != nil {
		return err
	}

	if h.Bits, err = binarySerializer.Uint32(r, littleEndian); err != nil {
		return err
	}

	h.Nonce, err = binarySerializer.Uint32(r, littleEndian)

	return err
}

// Serialize encodes a block header to w.
func (h *BlockHeader) Serialize(w io.Writer) error {
	if err := binarySerializer.PutUint32(w, littleEndian, uint32(h.Version)); err != nil {
		return err
	}

	if err := writeHash(w, &h.PrevBlock); err != nil {
		return err
	}

	if err := writeHash(w, &h.MerkleRoot); err != nil {
		return err
	}

	if err := binarySerializer.PutUint32(w, littleEndian, h.Timestamp); err != nil {
		return err
	}

	if err := binarySerializer.PutUint32(w, littleEndian, h.Bits); err != nil {
		return err
	}

	return binarySerializer.PutUint32(w, littleEndian, h.Nonce)
}

// ExtractCoinbase reads a raw serialized block and returns its header and
// coinbase transaction. The remaining transactions are not parsed; callers
// of this package only ever need the coinbase special transaction payload.
func ExtractCoinbase(rawBlock []byte) (*BlockHeader, *MsgTx, error) {
	r := bytes.NewReader(rawBlock)

	header := &BlockHeader{}
	if err := header.Deserialize(r); err != nil {
		return nil, nil, err
	}

	txCount, err := readVarInt(r)
	if err != nil {
		return nil, nil, err
	}

	if txCount == 0 {
		return header, nil, nil
	}

	coinbase := &MsgTx{}
	if err = coinbase.DashDecode(r, ProtocolVersion); err != nil {
		return nil, nil, err
	}

	return header, coinbase, nil
}
