package wire

import (
	"io"

	"github.com/dash-blockchain/mnsync/errors"
)

// maxQRInfoDiffs caps the trailing diff/snapshot lists in a qrinfo message.
const maxQRInfoDiffs = 256

// MsgQRInfo implements the Message interface and represents a Dash qrinfo
// message: the quorum rotation information for the request height, including
// quorum snapshots and masternode list diffs at the rotation cycle heights
// (DIP-24).
type MsgQRInfo struct {
	QuorumSnapshotAtHMinusC  QuorumSnapshot
	QuorumSnapshotAtHMinus2C QuorumSnapshot
	QuorumSnapshotAtHMinus3C QuorumSnapshot
	MnListDiffTip            MsgMnListDiff
	MnListDiffH              MsgMnListDiff
	MnListDiffAtHMinusC      MsgMnListDiff
	MnListDiffAtHMinus2C     MsgMnListDiff
	MnListDiffAtHMinus3C     MsgMnListDiff
	ExtraShare               bool
	QuorumSnapshotAtHMinus4C *QuorumSnapshot
	MnListDiffAtHMinus4C     *MsgMnListDiff
	LastCommitmentPerIndex   []*QuorumEntry
	QuorumSnapshotList       []*QuorumSnapshot
	MnListDiffList           []*MsgMnListDiff
}

// DashDecode decodes r using the Dash protocol encoding into the receiver.
func (msg *MsgQRInfo) DashDecode(r io.Reader, pver uint32) error {
	for _, qs := range []*QuorumSnapshot{
		&msg.QuorumSnapshotAtHMinusC,
		&msg.QuorumSnapshotAtHMinus2C,
		&msg.QuorumSnapshotAtHMinus3C,
	} {
		if err := readQuorumSnapshot(r, qs); err != nil {
			return err
		}
	}

	for _, diff := range []*MsgMnListDiff{
		&msg.MnListDiffTip,
		&msg.MnListDiffH,
		&msg.MnListDiffAtHMinusC,
		&msg.MnListDiffAtHMinus2C,
		&msg.MnListDiffAtHMinus3C,
	} {
		if err := diff.DashDecode(r, pver); err != nil {
			return err
		}
	}

	extraShare, err := binarySerializer.Uint8(r)
	if err != nil {
		return err
	}

	msg.ExtraShare = extraShare != 0

	if msg.ExtraShare {
		qs := &QuorumSnapshot{}
		if err = readQuorumSnapshot(r, qs); err != nil {
			return err
		}

		msg.QuorumSnapshotAtHMinus4C = qs

		diff := &MsgMnListDiff{}
		if err = diff.DashDecode(r, pver); err != nil {
			return err
		}

		msg.MnListDiffAtHMinus4C = diff
	}

	count, err := readVarInt(r)
	if err != nil {
		return err
	}

	if count > maxQRInfoDiffs {
		return errors.NewMalformedMessageError("too many last commitments [count %d]", count)
	}

	msg.LastCommitmentPerIndex = make([]*QuorumEntry, count)
	for i := range msg.LastCommitmentPerIndex {
		qe := &QuorumEntry{}
		if err = readQuorumEntry(r, qe); err != nil {
			return err
		}

		msg.LastCommitmentPerIndex[i] = qe
	}

	if count, err = readVarInt(r); err != nil {
		return err
	}

	if count > maxQRInfoDiffs {
		return errors.NewMalformedMessageError("too many quorum snapshots [count %d]", count)
	}

	msg.QuorumSnapshotList = make([]*QuorumSnapshot, count)
	for i := range msg.QuorumSnapshotList {
		qs := &QuorumSnapshot{}
		if err = readQuorumSnapshot(r, qs); err != nil {
			return err
		}

		msg.QuorumSnapshotList[i] = qs
	}

	if count, err = readVarInt(r); err != nil {
		return err
	}

	if count > maxQRInfoDiffs {
		return errors.NewMalformedMessageError("too many masternode list diffs [count %d]", count)
	}

	msg.MnListDiffList = make([]*MsgMnListDiff, count)
	for i := range msg.MnListDiffList {
		diff := &MsgMnListDiff{}
		if err = diff.DashDecode(r, pver); err != nil {
			return err
		}

		msg.MnListDiffList[i] = diff
	}

	return nil
}

// DashEncode encodes the receiver to w using the Dash protocol encoding.
func (msg *MsgQRInfo) DashEncode(w io.Writer, pver uint32) error {
	for _, qs := range []*QuorumSnapshot{
		&msg.QuorumSnapshotAtHMinusC,
		&msg.QuorumSnapshotAtHMinus2C,
		&msg.QuorumSnapshotAtHMinus3C,
	} {
		if err := writeQuorumSnapshot(w, qs); err != nil {
			return err
		}
	}

	for _, diff := range []*MsgMnListDiff{
		&msg.MnListDiffTip,
		&msg.MnListDiffH,
		&msg.MnListDiffAtHMinusC,
		&msg.MnListDiffAtHMinus2C,
		&msg.MnListDiffAtHMinus3C,
	} {
		if err := diff.DashEncode(w, pver); err != nil {
			return err
		}
	}

	var extraShare uint8
	if msg.ExtraShare {
		extraShare = 1
	}

	if err := binarySerializer.PutUint8(w, extraShare); err != nil {
		return err
	}

	if msg.ExtraShare {
		if msg.QuorumSnapshotAtHMinus4C == nil || msg.MnListDiffAtHMinus4C == nil {
			return errors.NewInvalidArgumentError("extra share set but h-4c snapshot or diff missing")
		}

		if err := writeQuorumSnapshot(w, msg.QuorumSnapshotAtHMinus4C); err != nil {
			return err
		}

		if err := msg.MnListDiffAtHMinus4C.DashEncode(w, pver); err != nil {
			return err
		}
	}

	if err := writeVarInt(w, uint64(len(msg.LastCommitmentPerIndex))); err != nil {
		return err
	}

	for _, qe := range msg.LastCommitmentPerIndex {
		if err := writeQuorumEntry(w, qe); err != nil {
			return err
		}
	}

	if err := writeVarInt(w, uint64(len(msg.QuorumSnapshotList))); err != nil {
		return err
	}

	for _, qs := range msg.QuorumSnapshotList {
		if err := writeQuorumSnapshot(w, qs); err != nil {
			return err
		}
	}

	if err := writeVarInt(w, uint64(len(msg.MnListDiffList))); err != nil {
		return err
	}

	for _, diff := range msg.MnListDiffList {
		if err := diff.DashEncode(w, pver); err != nil {
			return err
		}
	}

	return nil
}

// Command returns the protocol command string for the message.
func (msg *MsgQRInfo) Command() string {
	return CmdQRInfo
}
