package sml

import (
	"testing"

	"github.com/bsv-blockchain/go-bt/v2/chainhash"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dash-blockchain/mnsync/errors"
	"github.com/dash-blockchain/mnsync/settings"
	"github.com/dash-blockchain/mnsync/ulogger"
	"github.com/dash-blockchain/mnsync/wire"
)

func newTestTracker(t *testing.T) *Tracker {
	t.Helper()

	var logger ulogger.Logger = ulogger.TestLogger{}
	if testing.Verbose() {
		logger = ulogger.NewVerboseTestLogger(t)
	}

	return NewTracker(logger, &settings.Settings{
		Sync: settings.SyncSettings{QuorumProofDepth: 8},
	})
}

func entry(id byte) *wire.SMLEntry {
	return &wire.SMLEntry{
		Version:      1,
		ProRegTxHash: chainhash.Hash{id},
		IsValid:      true,
	}
}

func TestInitializeAndApply(t *testing.T) {
	tracker := newTestTracker(t)

	h100 := chainhash.Hash{0x64}
	h101 := chainhash.Hash{0x65}

	require.NoError(t, tracker.InitializeFromDiff(&wire.MsgMnListDiff{
		BlockHash: h100,
		NewMNs:    []*wire.SMLEntry{entry(0x01), entry(0x02)},
	}, 100))

	assert.Equal(t, 2, tracker.MasternodeCount())
	assert.False(t, tracker.IsEmpty())

	require.NoError(t, tracker.ApplyDiff(&wire.MsgMnListDiff{
		BaseBlockHash: h100,
		BlockHash:     h101,
		DeletedMNs:    []chainhash.Hash{{0x01}},
		NewMNs:        []*wire.SMLEntry{entry(0x03)},
	}, 101))

	// The latest list carries 0x02 and 0x03.
	assert.Equal(t, 2, tracker.MasternodeCount())

	height, ok := tracker.HeightOf(&h101)
	require.True(t, ok)
	assert.Equal(t, uint32(101), height)

	hash, ok := tracker.HashAt(100)
	require.True(t, ok)
	assert.Equal(t, h100, *hash)

	earliestHeight, earliestHash, ok := tracker.EarliestList()
	require.True(t, ok)
	assert.Equal(t, uint32(100), earliestHeight)
	assert.Equal(t, h100, *earliestHash)
}

func TestInitializeTwice(t *testing.T) {
	tracker := newTestTracker(t)

	require.NoError(t, tracker.InitializeFromDiff(&wire.MsgMnListDiff{BlockHash: chainhash.Hash{0x01}}, 1))

	err := tracker.InitializeFromDiff(&wire.MsgMnListDiff{BlockHash: chainhash.Hash{0x02}}, 2)
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrEngine))
}

func TestApplyDiffBeforeInitialize(t *testing.T) {
	tracker := newTestTracker(t)

	err := tracker.ApplyDiff(&wire.MsgMnListDiff{BlockHash: chainhash.Hash{0x01}}, 1)
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrEngine))
}

func TestApplyDiffUnknownBase(t *testing.T) {
	tracker := newTestTracker(t)

	require.NoError(t, tracker.InitializeFromDiff(&wire.MsgMnListDiff{BlockHash: chainhash.Hash{0x01}}, 100))

	err := tracker.ApplyDiff(&wire.MsgMnListDiff{
		BaseBlockHash: chainhash.Hash{0x50},
		BlockHash:     chainhash.Hash{0x51},
	}, 101)
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrEngine))
}

func TestApplyDiffGenesisBase(t *testing.T) {
	tracker := newTestTracker(t)

	genesis := chainhash.Hash{0xaa}
	h82 := chainhash.Hash{0x52}

	require.NoError(t, tracker.InitializeFromDiff(&wire.MsgMnListDiff{
		BlockHash: chainhash.Hash{0x64},
		NewMNs:    []*wire.SMLEntry{entry(0x01), entry(0x02)},
	}, 100))

	// A backfill diff based on the genesis block carries a full list and
	// applies against an empty base once genesis is on record at height 0.
	tracker.FeedBlockHeight(&genesis, 0)

	require.NoError(t, tracker.ApplyDiff(&wire.MsgMnListDiff{
		BaseBlockHash: genesis,
		BlockHash:     h82,
		NewMNs:        []*wire.SMLEntry{entry(0x01)},
	}, 82))

	quorums, ok := tracker.QuorumsAt(&h82)
	require.True(t, ok)
	assert.Empty(t, quorums)

	// The tip list is untouched by the backfill.
	assert.Equal(t, 2, tracker.MasternodeCount())
}

func TestLatestQuorumHashes(t *testing.T) {
	tracker := newTestTracker(t)

	nonRotating := wire.QuorumIdentity{Type: wire.LLMQType50_60, Hash: chainhash.Hash{0x01}}
	rotating := wire.QuorumIdentity{Type: wire.LLMQType60_75, Hash: chainhash.Hash{0x02}}
	unwanted := wire.QuorumIdentity{Type: wire.LLMQType400_60, Hash: chainhash.Hash{0x03}}

	require.NoError(t, tracker.InitializeFromDiff(&wire.MsgMnListDiff{
		BlockHash: chainhash.Hash{0x64},
		NewQuorums: []*wire.QuorumEntry{
			{Version: 1, LLMQType: nonRotating.Type, QuorumHash: nonRotating.Hash},
			{Version: 2, LLMQType: rotating.Type, QuorumHash: rotating.Hash},
			{Version: 1, LLMQType: unwanted.Type, QuorumHash: unwanted.Hash},
		},
	}, 100))

	types := []wire.LLMQType{wire.LLMQType50_60, wire.LLMQType60_75}

	assert.Equal(t, []wire.QuorumIdentity{nonRotating}, tracker.LatestNonRotatingQuorumHashes(types))
	assert.Equal(t, []wire.QuorumIdentity{rotating}, tracker.LatestRotatingQuorumHashes(types))
}

func TestVerifyQuorumsAtHeight(t *testing.T) {
	tracker := newTestTracker(t)

	h100 := chainhash.Hash{0x64}
	hq90 := chainhash.Hash{0x5a}
	h82 := chainhash.Hash{0x52}

	require.NoError(t, tracker.InitializeFromDiff(&wire.MsgMnListDiff{
		BlockHash: h100,
		NewQuorums: []*wire.QuorumEntry{
			{Version: 1, LLMQType: wire.LLMQType50_60, QuorumHash: hq90},
		},
	}, 100))

	types := []wire.LLMQType{wire.LLMQType50_60}

	// Unknown formation height.
	err := tracker.VerifyQuorumsAtHeight(100, types)
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrEngine))

	tracker.FeedBlockHeight(&hq90, 90)

	// Proof height resolved but no list held there yet.
	err = tracker.VerifyQuorumsAtHeight(100, types)
	require.Error(t, err)

	tracker.FeedBlockHeight(&chainhash.Hash{0xaa}, 0)
	require.NoError(t, tracker.ApplyDiff(&wire.MsgMnListDiff{
		BaseBlockHash: chainhash.Hash{0xaa},
		BlockHash:     h82,
	}, 82))

	require.NoError(t, tracker.VerifyQuorumsAtHeight(100, types))

	// Types not requested are not checked.
	require.NoError(t, tracker.VerifyQuorumsAtHeight(100, []wire.LLMQType{wire.LLMQType400_85}))

	// No list at the requested height.
	err = tracker.VerifyQuorumsAtHeight(99, types)
	require.Error(t, err)
}

func TestVerifyQuorumsBelowProofDepth(t *testing.T) {
	tracker := newTestTracker(t)

	hq5 := chainhash.Hash{0x05}
	h10 := chainhash.Hash{0x0a}

	require.NoError(t, tracker.InitializeFromDiff(&wire.MsgMnListDiff{
		BlockHash: h10,
		NewQuorums: []*wire.QuorumEntry{
			{Version: 1, LLMQType: wire.LLMQType50_60, QuorumHash: hq5},
		},
	}, 10))

	tracker.FeedBlockHeight(&hq5, 5)

	err := tracker.VerifyQuorumsAtHeight(10, []wire.LLMQType{wire.LLMQType50_60})
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrEngine))
}

func TestFeedChainLockSignature(t *testing.T) {
	tracker := newTestTracker(t)

	hash := chainhash.Hash{0x01}

	// A nil signature means the coinbase carried none; nothing is recorded.
	tracker.FeedChainLockSignature(&hash, nil)

	_, ok := tracker.ChainLockSignature(&hash)
	assert.False(t, ok)

	sig := wire.BLSSignature{0x77}
	tracker.FeedChainLockSignature(&hash, &sig)

	got, ok := tracker.ChainLockSignature(&hash)
	require.True(t, ok)
	assert.Equal(t, sig, *got)
}
