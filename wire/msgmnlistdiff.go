package wire

import (
	"io"
	"net"

	"github.com/bsv-blockchain/go-bt/v2/chainhash"

	"github.com/dash-blockchain/mnsync/errors"
)

const (
	// maxSMLEntries caps list sizes in a single diff; Dash mainnet has
	// fewer than 5000 registered masternodes.
	maxSMLEntries = 65536

	// mnListDiffVersionCLSigs is the first diff version carrying per-index
	// quorum chain-lock signatures.
	mnListDiffVersionCLSigs = 1

	// smlEntryVersionTyped is the first SML entry version carrying a
	// masternode type field.
	smlEntryVersionTyped = 2

	// mnTypeEvo identifies an Evo (platform) masternode, which carries
	// platform connectivity fields on the wire.
	mnTypeEvo = 1
)

// SMLEntry is one simplified masternode list entry as carried in a
// mnlistdiff message (DIP-4).
type SMLEntry struct {
	Version          uint16
	ProRegTxHash     chainhash.Hash
	ConfirmedHash    chainhash.Hash
	Service          net.IP
	Port             uint16
	PubKeyOperator   BLSPubKey
	KeyIDVoting      [20]byte
	IsValid          bool
	Type             uint16
	PlatformHTTPPort uint16
	PlatformNodeID   [20]byte
}

func readSMLEntry(r io.Reader, e *SMLEntry) error {
	var err error

	if e.Version, err = binarySerializer.Uint16(r, littleEndian); err != nil {
		return err
	}

	if err = readHash(r, &e.ProRegTxHash); err != nil {
		return err
	}

	if err = readHash(r, &e.ConfirmedHash); err != nil {
		return err
	}

	var ip [16]byte
	if _, err = io.ReadFull(r, ip[:]); err != nil {
		return err
	}

	e.Service = net.IP(ip[:])

	if e.Port, err = binarySerializer.Uint16(r, bigEndian); err != nil {
		return err
	}

	if _, err = io.ReadFull(r, e.PubKeyOperator[:]); err != nil {
		return err
	}

	if _, err = io.ReadFull(r, e.KeyIDVoting[:]); err != nil {
		return err
	}

	valid, err := binarySerializer.Uint8(r)
	if err != nil {
		return err
	}

	e.IsValid = valid != 0

	if e.Version >= smlEntryVersionTyped {
		if e.Type, err = binarySerializer.Uint16(r, littleEndian); err != nil {
			return err
		}

		if e.Type == mnTypeEvo {
			if e.PlatformHTTPPort, err = binarySerializer.Uint16(r, littleEndian); err != nil {
				return err
			}

			if _, err = io.ReadFull(r, e.PlatformNodeID[:]); err != nil {
				return err
			}
		}
	}

	return nil
}

func writeSMLEntry(w io.Writer, e *SMLEntry) error {
	if err := binarySerializer.PutUint16(w, littleEndian, e.Version); err != nil {
		return err
	}

	if err := writeHash(w, &e.ProRegTxHash); err != nil {
		return err
	}

	if err := writeHash(w, &e.ConfirmedHash); err != nil {
		return err
	}

	var ip [16]byte
	if e.Service != nil {
		copy(ip[:], e.Service.To16())
	}

	if _, err := w.Write(ip[:]); err != nil {
		return err
	}

	if err := binarySerializer.PutUint16(w, bigEndian, e.Port); err != nil {
		return err
	}

	if _, err := w.Write(e.PubKeyOperator[:]); err != nil {
		return err
	}

	if _, err := w.Write(e.KeyIDVoting[:]); err != nil {
		return err
	}

	var valid uint8
	if e.IsValid {
		valid = 1
	}

	if err := binarySerializer.PutUint8(w, valid); err != nil {
		return err
	}

	if e.Version >= smlEntryVersionTyped {
		if err := binarySerializer.PutUint16(w, littleEndian, e.Type); err != nil {
			return err
		}

		if e.Type == mnTypeEvo {
			if err := binarySerializer.PutUint16(w, littleEndian, e.PlatformHTTPPort); err != nil {
				return err
			}

			if _, err := w.Write(e.PlatformNodeID[:]); err != nil {
				return err
			}
		}
	}

	return nil
}

// MsgMnListDiff implements the Message interface and represents the Dash
// mnlistdiff message: the incremental change between the masternode lists and
// quorum sets at two block heights.
type MsgMnListDiff struct {
	BaseBlockHash     chainhash.Hash
	BlockHash         chainhash.Hash
	TotalTransactions uint32
	MerkleHashes      []chainhash.Hash
	MerkleFlags       []byte
	CbTx              MsgTx
	Version           uint16
	DeletedMNs        []chainhash.Hash
	NewMNs            []*SMLEntry
	DeletedQuorums    []QuorumIdentity
	NewQuorums        []*QuorumEntry
	QuorumCLSigs      []*QuorumCLSig
}

// DashDecode decodes r using the Dash protocol encoding into the receiver.
func (msg *MsgMnListDiff) DashDecode(r io.Reader, pver uint32) error {
	var err error

	if err = readHash(r, &msg.BaseBlockHash); err != nil {
		return err
	}

	if err = readHash(r, &msg.BlockHash); err != nil {
		return err
	}

	if msg.TotalTransactions, err = binarySerializer.Uint32(r, littleEndian); err != nil {
		return err
	}

	count, err := readVarInt(r)
	if err != nil {
		return err
	}

	if count > maxSMLEntries {
		return errors.NewMalformedMessageError("too many merkle hashes [count %d]", count)
	}

	msg.MerkleHashes = make([]chainhash.Hash, count)
	for i := range msg.MerkleHashes {
		if err = readHash(r, &msg.MerkleHashes[i]); err != nil {
			return err
		}
	}

	if msg.MerkleFlags, err = readVarBytes(r, maxSMLEntries, "merkle flags"); err != nil {
		return err
	}

	if err = msg.CbTx.DashDecode(r, pver); err != nil {
		return err
	}

	if msg.Version, err = binarySerializer.Uint16(r, littleEndian); err != nil {
		return err
	}

	if count, err = readVarInt(r); err != nil {
		return err
	}

	if count > maxSMLEntries {
		return errors.NewMalformedMessageError("too many deleted masternodes [count %d]", count)
	}

	msg.DeletedMNs = make([]chainhash.Hash, count)
	for i := range msg.DeletedMNs {
		if err = readHash(r, &msg.DeletedMNs[i]); err != nil {
			return err
		}
	}

	if count, err = readVarInt(r); err != nil {
		return err
	}

	if count > maxSMLEntries {
		return errors.NewMalformedMessageError("too many new masternodes [count %d]", count)
	}

	msg.NewMNs = make([]*SMLEntry, count)
	for i := range msg.NewMNs {
		e := &SMLEntry{}
		if err = readSMLEntry(r, e); err != nil {
			return err
		}

		msg.NewMNs[i] = e
	}

	if count, err = readVarInt(r); err != nil {
		return err
	}

	if count > maxSMLEntries {
		return errors.NewMalformedMessageError("too many deleted quorums [count %d]", count)
	}

	msg.DeletedQuorums = make([]QuorumIdentity, count)
	for i := range msg.DeletedQuorums {
		llmqType, err := binarySerializer.Uint8(r)
		if err != nil {
			return err
		}

		msg.DeletedQuorums[i].Type = LLMQType(llmqType)

		if err = readHash(r, &msg.DeletedQuorums[i].Hash); err != nil {
			return err
		}
	}

	if count, err = readVarInt(r); err != nil {
		return err
	}

	if count > maxSMLEntries {
		return errors.NewMalformedMessageError("too many new quorums [count %d]", count)
	}

	msg.NewQuorums = make([]*QuorumEntry, count)
	for i := range msg.NewQuorums {
		qe := &QuorumEntry{}
		if err = readQuorumEntry(r, qe); err != nil {
			return err
		}

		msg.NewQuorums[i] = qe
	}

	if msg.Version >= mnListDiffVersionCLSigs {
		if count, err = readVarInt(r); err != nil {
			// The signature list is absent on diffs from peers
			// that predate it.
			if err == io.EOF {
				return nil
			}

			return err
		}

		if count > maxSMLEntries {
			return errors.NewMalformedMessageError("too many quorum chain lock signatures [count %d]", count)
		}

		msg.QuorumCLSigs = make([]*QuorumCLSig, count)
		for i := range msg.QuorumCLSigs {
			cl := &QuorumCLSig{}
			if err = readQuorumCLSig(r, cl); err != nil {
				return err
			}

			msg.QuorumCLSigs[i] = cl
		}
	}

	return nil
}

// DashEncode encodes the receiver to w using the Dash protocol encoding.
func (msg *MsgMnListDiff) DashEncode(w io.Writer, pver uint32) error {
	if err := writeHash(w, &msg.BaseBlockHash); err != nil {
		return err
	}

	if err := writeHash(w, &msg.BlockHash); err != nil {
		return err
	}

	if err := binarySerializer.PutUint32(w, littleEndian, msg.TotalTransactions); err != nil {
		return err
	}

	if err := writeVarInt(w, uint64(len(msg.MerkleHashes))); err != nil {
		return err
	}

	for i := range msg.MerkleHashes {
		if err := writeHash(w, &msg.MerkleHashes[i]); err != nil {
			return err
		}
	}

	if err := writeVarBytes(w, msg.MerkleFlags); err != nil {
		return err
	}

	if err := msg.CbTx.DashEncode(w, pver); err != nil {
		return err
	}

	if err := binarySerializer.PutUint16(w, littleEndian, msg.Version); err != nil {
		return err
	}

	if err := writeVarInt(w, uint64(len(msg.DeletedMNs))); err != nil {
		return err
	}

	for i := range msg.DeletedMNs {
		if err := writeHash(w, &msg.DeletedMNs[i]); err != nil {
			return err
		}
	}

	if err := writeVarInt(w, uint64(len(msg.NewMNs))); err != nil {
		return err
	}

	for _, e := range msg.NewMNs {
		if err := writeSMLEntry(w, e); err != nil {
			return err
		}
	}

	if err := writeVarInt(w, uint64(len(msg.DeletedQuorums))); err != nil {
		return err
	}

	for i := range msg.DeletedQuorums {
		if err := binarySerializer.PutUint8(w, uint8(msg.DeletedQuorums[i].Type)); err != nil {
			return err
		}

		if err := writeHash(w, &msg.DeletedQuorums[i].Hash); err != nil {
			return err
		}
	}

	if err := writeVarInt(w, uint64(len(msg.NewQuorums))); err != nil {
		return err
	}

	for _, qe := range msg.NewQuorums {
		if err := writeQuorumEntry(w, qe); err != nil {
			return err
		}
	}

	if msg.Version >= mnListDiffVersionCLSigs {
		if err := writeVarInt(w, uint64(len(msg.QuorumCLSigs))); err != nil {
			return err
		}

		for _, cl := range msg.QuorumCLSigs {
			if err := writeQuorumCLSig(w, cl); err != nil {
				return err
			}
		}
	}

	return nil
}

// Command returns the protocol command string for the message.
func (msg *MsgMnListDiff) Command() string {
	return CmdMnListDiff
}
