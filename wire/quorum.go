package wire

import (
	"encoding/hex"
	"fmt"
	"io"

	"github.com/bsv-blockchain/go-bt/v2/chainhash"

	"github.com/dash-blockchain/mnsync/errors"
)

const (
	// BLSPubKeySize is the size of a BLS12-381 public key on the wire.
	BLSPubKeySize = 48

	// BLSSignatureSize is the size of a BLS12-381 signature on the wire.
	BLSSignatureSize = 96

	// maxQuorumMembers caps member bitset sizes; the largest deployed
	// quorum is 400 members.
	maxQuorumMembers = 512
)

// BLSPubKey is a raw BLS public key. This client never evaluates it; the
// masternode-list engine owns all signature math.
type BLSPubKey [BLSPubKeySize]byte

// BLSSignature is a raw BLS signature as carried in quorum commitments and
// coinbase chain-lock payloads.
type BLSSignature [BLSSignatureSize]byte

// String returns the signature as a hex string.
func (s BLSSignature) String() string {
	return hex.EncodeToString(s[:])
}

// LLMQType is an enumerated long-living masternode quorum scheme. The values
// are protocol constants; this client treats them as opaque except for the
// rotating/non-rotating distinction.
type LLMQType uint8

const (
	LLMQType50_60       LLMQType = 1
	LLMQType400_60      LLMQType = 2
	LLMQType400_85      LLMQType = 3
	LLMQType100_67      LLMQType = 4
	LLMQType60_75       LLMQType = 5
	LLMQType25_67       LLMQType = 6
	LLMQTypeTest        LLMQType = 100
	LLMQTypeDevnet      LLMQType = 101
	LLMQTypeTestV17     LLMQType = 102
	LLMQTypeTestDIP24   LLMQType = 103
	LLMQTypeDevnetDIP24 LLMQType = 105
)

// IsRotating reports whether the quorum type reshuffles membership each cycle
// (DIP-24) rather than being tied to a single DKG session.
func (t LLMQType) IsRotating() bool {
	switch t {
	case LLMQType60_75, LLMQTypeTestDIP24, LLMQTypeDevnetDIP24:
		return true
	default:
		return false
	}
}

// String returns the LLMQ type in human-readable form.
func (t LLMQType) String() string {
	switch t {
	case LLMQType50_60:
		return "llmq_50_60"
	case LLMQType400_60:
		return "llmq_400_60"
	case LLMQType400_85:
		return "llmq_400_85"
	case LLMQType100_67:
		return "llmq_100_67"
	case LLMQType60_75:
		return "llmq_60_75"
	case LLMQType25_67:
		return "llmq_25_67"
	default:
		return fmt.Sprintf("llmq_type_%d", uint8(t))
	}
}

// QuorumIdentity uniquely identifies one quorum instance.
type QuorumIdentity struct {
	Type LLMQType
	Hash chainhash.Hash
}

// QuorumEntry represents one qfcommit quorum commitment as carried in
// mnlistdiff and qrinfo messages.
type QuorumEntry struct {
	Version           uint16
	LLMQType          LLMQType
	QuorumHash        chainhash.Hash
	QuorumIndex       uint16 // present for version 2 and 4 (rotated) entries
	Signers           []byte // bitset, one bit per member
	SignersCount      uint64
	ValidMembers      []byte
	ValidMembersCount uint64
	QuorumPublicKey   BLSPubKey
	QuorumVvecHash    chainhash.Hash
	QuorumSig         BLSSignature
	MembersSig        BLSSignature
}

// entry versions carrying a quorum index (DIP-24 rotated commitments).
const (
	quorumEntryVersionIndexed    = 2
	quorumEntryVersionIndexedBLS = 4
)

func (qe *QuorumEntry) hasIndex() bool {
	return qe.Version == quorumEntryVersionIndexed || qe.Version == quorumEntryVersionIndexedBLS
}

func readQuorumEntry(r io.Reader, qe *QuorumEntry) error {
	var err error

	if qe.Version, err = binarySerializer.Uint16(r, littleEndian); err != nil {
		return err
	}

	llmqType, err := binarySerializer.Uint8(r)
	if err != nil {
		return err
	}

	qe.LLMQType = LLMQType(llmqType)

	if err = readHash(r, &qe.QuorumHash); err != nil {
		return err
	}

	if qe.hasIndex() {
		if qe.QuorumIndex, err = binarySerializer.Uint16(r, littleEndian); err != nil {
			return err
		}
	}

	if qe.SignersCount, qe.Signers, err = readBitSet(r, "quorum signers"); err != nil {
		return err
	}

	if qe.ValidMembersCount, qe.ValidMembers, err = readBitSet(r, "quorum valid members"); err != nil {
		return err
	}

	if _, err = io.ReadFull(r, qe.QuorumPublicKey[:]); err != nil {
		return err
	}

	if err = readHash(r, &qe.QuorumVvecHash); err != nil {
		return err
	}

	if _, err = io.ReadFull(r, qe.QuorumSig[:]); err != nil {
		return err
	}

	_, err = io.ReadFull(r, qe.MembersSig[:])

	return err
}

func writeQuorumEntry(w io.Writer, qe *QuorumEntry) error {
	if err := binarySerializer.PutUint16(w, littleEndian, qe.Version); err != nil {
		return err
	}

	if err := binarySerializer.PutUint8(w, uint8(qe.LLMQType)); err != nil {
		return err
	}

	if err := writeHash(w, &qe.QuorumHash); err != nil {
		return err
	}

	if qe.hasIndex() {
		if err := binarySerializer.PutUint16(w, littleEndian, qe.QuorumIndex); err != nil {
			return err
		}
	}

	if err := writeBitSet(w, qe.SignersCount, qe.Signers); err != nil {
		return err
	}

	if err := writeBitSet(w, qe.ValidMembersCount, qe.ValidMembers); err != nil {
		return err
	}

	if _, err := w.Write(qe.QuorumPublicKey[:]); err != nil {
		return err
	}

	if err := writeHash(w, &qe.QuorumVvecHash); err != nil {
		return err
	}

	if _, err := w.Write(qe.QuorumSig[:]); err != nil {
		return err
	}

	_, err := w.Write(qe.MembersSig[:])

	return err
}

// readBitSet reads a dynamic bitset: a compact size bit count followed by
// ceil(count/8) bytes.
func readBitSet(r io.Reader, fieldName string) (uint64, []byte, error) {
	count, err := readVarInt(r)
	if err != nil {
		return 0, nil, err
	}

	if count > maxQuorumMembers {
		return 0, nil, errors.NewMalformedMessageError("%s bitset too large [count %d, max %d]", fieldName, count, maxQuorumMembers)
	}

	b := make([]byte, (count+7)/8)
	if _, err = io.ReadFull(r, b); err != nil {
		return 0, nil, err
	}

	return count, b, nil
}

func writeBitSet(w io.Writer, count uint64, bits []byte) error {
	if err := writeVarInt(w, count); err != nil {
		return err
	}

	_, err := w.Write(bits)

	return err
}

// QuorumCLSig pairs one chain-lock signature with the set of quorum indexes
// (into the new-quorums list of the enclosing diff) it applies to.
type QuorumCLSig struct {
	Signature BLSSignature
	Indexes   []uint16
}

func readQuorumCLSig(r io.Reader, cl *QuorumCLSig) error {
	if _, err := io.ReadFull(r, cl.Signature[:]); err != nil {
		return err
	}

	count, err := readVarInt(r)
	if err != nil {
		return err
	}

	if count > maxQuorumMembers {
		return errors.NewMalformedMessageError("chain lock signature index set too large [count %d]", count)
	}

	cl.Indexes = make([]uint16, count)
	for i := range cl.Indexes {
		if cl.Indexes[i], err = binarySerializer.Uint16(r, littleEndian); err != nil {
			return err
		}
	}

	return nil
}

func writeQuorumCLSig(w io.Writer, cl *QuorumCLSig) error {
	if _, err := w.Write(cl.Signature[:]); err != nil {
		return err
	}

	if err := writeVarInt(w, uint64(len(cl.Indexes))); err != nil {
		return err
	}

	for _, idx := range cl.Indexes {
		if err := binarySerializer.PutUint16(w, littleEndian, idx); err != nil {
			return err
		}
	}

	return nil
}

// QuorumSnapshot describes the DKG member selection state at one of the
// rotation cycle heights returned by qrinfo (DIP-24).
type QuorumSnapshot struct {
	SkipListMode        int32
	ActiveQuorumMembers []byte
	ActiveMembersCount  uint64
	SkipList            []int32
}

func readQuorumSnapshot(r io.Reader, qs *QuorumSnapshot) error {
	mode, err := binarySerializer.Uint32(r, littleEndian)
	if err != nil {
		return err
	}

	qs.SkipListMode = int32(mode)

	if qs.ActiveMembersCount, qs.ActiveQuorumMembers, err = readBitSet(r, "active quorum members"); err != nil {
		return err
	}

	count, err := readVarInt(r)
	if err != nil {
		return err
	}

	if count > maxQuorumMembers {
		return errors.NewMalformedMessageError("quorum snapshot skip list too large [count %d]", count)
	}

	qs.SkipList = make([]int32, count)
	for i := range qs.SkipList {
		v, err := binarySerializer.Uint32(r, littleEndian)
		if err != nil {
			return err
		}

		qs.SkipList[i] = int32(v)
	}

	return nil
}

func writeQuorumSnapshot(w io.Writer, qs *QuorumSnapshot) error {
	if err := binarySerializer.PutUint32(w, littleEndian, uint32(qs.SkipListMode)); err != nil {
		return err
	}

	if err := writeBitSet(w, qs.ActiveMembersCount, qs.ActiveQuorumMembers); err != nil {
		return err
	}

	if err := writeVarInt(w, uint64(len(qs.SkipList))); err != nil {
		return err
	}

	for _, v := range qs.SkipList {
		if err := binarySerializer.PutUint32(w, littleEndian, uint32(v)); err != nil {
			return err
		}
	}

	return nil
}
