package mnsync

import (
	"bytes"
	"context"
	"encoding/binary"
	"testing"

	"github.com/bsv-blockchain/go-bt/v2/chainhash"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dash-blockchain/mnsync/chaincfg"
	"github.com/dash-blockchain/mnsync/errors"
	"github.com/dash-blockchain/mnsync/settings"
	"github.com/dash-blockchain/mnsync/sml"
	"github.com/dash-blockchain/mnsync/ulogger"
	"github.com/dash-blockchain/mnsync/wire"
)

func testSyncSettings() *settings.Settings {
	return &settings.Settings{
		ClientName:     "test",
		ChainCfgParams: &chaincfg.MainNetParams,
		Sync: settings.SyncSettings{
			CacheCapacity:    1024,
			QuorumProofDepth: 8,
		},
	}
}

func diffKey(base, target *chainhash.Hash) string {
	return base.String() + ":" + target.String()
}

// mockPeer serves canned diffs keyed by base and target hash.
type mockPeer struct {
	diffs     map[string]*wire.MsgMnListDiff
	qrinfo    *wire.MsgQRInfo
	diffCalls int

	qrKnown      []chainhash.Hash
	qrExtraShare bool
}

func (m *mockPeer) EnsureReady(_ context.Context) error { return nil }

func (m *mockPeer) Close() error { return nil }

func (m *mockPeer) GetMnListDiff(_ context.Context, baseBlockHash, blockHash *chainhash.Hash) (*wire.MsgMnListDiff, error) {
	m.diffCalls++

	diff, ok := m.diffs[diffKey(baseBlockHash, blockHash)]
	if !ok {
		return nil, errors.NewProcessingError("no canned diff %s -> %s", baseBlockHash, blockHash)
	}

	return diff, nil
}

func (m *mockPeer) GetQRInfo(_ context.Context, baseBlockHashes []chainhash.Hash, _ *chainhash.Hash, extraShare bool) (*wire.MsgQRInfo, error) {
	m.qrKnown = baseBlockHashes
	m.qrExtraShare = extraShare

	return m.qrinfo, nil
}

// mockCore answers block lookups from in-memory maps.
type mockCore struct {
	heights   map[chainhash.Hash]uint32
	hashes    map[uint32]chainhash.Hash
	rawBlocks map[chainhash.Hash][]byte
}

func (m *mockCore) GetBlockHash(_ context.Context, height uint32) (*chainhash.Hash, error) {
	hash, ok := m.hashes[height]
	if !ok {
		return nil, errors.NewRPCError("no block at height %d", height)
	}

	return &hash, nil
}

func (m *mockCore) GetBlockHeight(_ context.Context, hash *chainhash.Hash) (uint32, error) {
	height, ok := m.heights[*hash]
	if !ok {
		return 0, errors.NewRPCError("unknown block %s", hash)
	}

	return height, nil
}

func (m *mockCore) GetBestBlockHash(_ context.Context) (*chainhash.Hash, error) {
	var (
		best       chainhash.Hash
		bestHeight uint32
	)

	for height, hash := range m.hashes {
		if height >= bestHeight {
			bestHeight = height
			best = hash
		}
	}

	return &best, nil
}

func (m *mockCore) GetRawBlock(_ context.Context, hash *chainhash.Hash) ([]byte, error) {
	raw, ok := m.rawBlocks[*hash]
	if !ok {
		return nil, errors.NewRPCError("unknown block %s", hash)
	}

	return raw, nil
}

// rawBlockWithCLSig serializes a minimal block whose coinbase special
// transaction carries the given chain-lock signature.
func rawBlockWithCLSig(t *testing.T, height uint32, sig *wire.BLSSignature) []byte {
	t.Helper()

	var payload bytes.Buffer

	require.NoError(t, binary.Write(&payload, binary.LittleEndian, uint16(3)))
	require.NoError(t, binary.Write(&payload, binary.LittleEndian, height))

	var roots [64]byte
	payload.Write(roots[:])

	payload.WriteByte(0) // best chain-lock height diff

	var s wire.BLSSignature
	if sig != nil {
		s = *sig
	}

	payload.Write(s[:])

	require.NoError(t, binary.Write(&payload, binary.LittleEndian, uint64(0)))

	coinbase := &wire.MsgTx{
		Version: 3,
		Type:    wire.TxTypeCoinbase,
		TxIn: []*wire.TxIn{{
			PreviousOutPoint: wire.OutPoint{Index: 0xffffffff},
			Sequence:         0xffffffff,
		}},
		TxOut:        []*wire.TxOut{{Value: 1}},
		ExtraPayload: payload.Bytes(),
	}

	header := &wire.BlockHeader{Version: 0x20000000, Timestamp: 1724000000}

	var raw bytes.Buffer
	require.NoError(t, header.Serialize(&raw))
	raw.WriteByte(0x01)
	require.NoError(t, coinbase.DashEncode(&raw, wire.ProtocolVersion))

	return raw.Bytes()
}

func smlEntry(id byte) *wire.SMLEntry {
	return &wire.SMLEntry{
		Version:      1,
		ProRegTxHash: chainhash.Hash{id},
		IsValid:      true,
	}
}

func testLogger(t *testing.T) ulogger.Logger {
	t.Helper()

	if testing.Verbose() {
		return ulogger.NewVerboseTestLogger(t)
	}

	return ulogger.TestLogger{}
}

func newTestOrchestrator(t *testing.T, p *mockPeer, core *mockCore) (*Orchestrator, *sml.Tracker) {
	t.Helper()

	logger := testLogger(t)

	tSettings := testSyncSettings()
	tracker := sml.NewTracker(logger, tSettings)

	return NewOrchestrator(logger, tSettings, p, core, tracker), tracker
}

func TestSyncToFromGenesis(t *testing.T) {
	genesis := *chaincfg.MainNetParams.GenesisHash
	h100 := chainhash.Hash{0x64}

	p := &mockPeer{diffs: map[string]*wire.MsgMnListDiff{
		diffKey(&genesis, &h100): {
			BaseBlockHash: genesis,
			BlockHash:     h100,
			NewMNs:        []*wire.SMLEntry{smlEntry(0x01), smlEntry(0x02)},
		},
	}}

	o, tracker := newTestOrchestrator(t, p, &mockCore{})

	base := SyncPoint{Height: 0, Hash: genesis}
	target := SyncPoint{Height: 100, Hash: h100}

	require.NoError(t, o.SyncTo(context.Background(), base, target, false))

	assert.Equal(t, 2, tracker.MasternodeCount())
	assert.Equal(t, [][2]uint32{{0, 100}}, o.RecordedRanges())

	height, ok := tracker.HeightOf(&h100)
	require.True(t, ok)
	assert.Equal(t, uint32(100), height)

	// A second sync over the same range is a no-op.
	require.NoError(t, o.SyncTo(context.Background(), base, target, false))
	assert.Equal(t, 1, p.diffCalls)
}

func TestSyncToWithValidation(t *testing.T) {
	genesis := *chaincfg.MainNetParams.GenesisHash
	h100 := chainhash.Hash{0x64}
	hq90 := chainhash.Hash{0x5a}
	h82 := chainhash.Hash{0x52}

	clSig := &wire.BLSSignature{0x77}

	p := &mockPeer{diffs: map[string]*wire.MsgMnListDiff{
		diffKey(&genesis, &h100): {
			BaseBlockHash: genesis,
			BlockHash:     h100,
			NewMNs:        []*wire.SMLEntry{smlEntry(0x01), smlEntry(0x02)},
			NewQuorums: []*wire.QuorumEntry{{
				Version:    1,
				LLMQType:   wire.LLMQType50_60,
				QuorumHash: hq90,
			}},
		},
		diffKey(&genesis, &h82): {
			BaseBlockHash: genesis,
			BlockHash:     h82,
			NewMNs:        []*wire.SMLEntry{smlEntry(0x01)},
		},
	}}

	core := &mockCore{
		heights:   map[chainhash.Hash]uint32{hq90: 90},
		hashes:    map[uint32]chainhash.Hash{82: h82},
		rawBlocks: map[chainhash.Hash][]byte{h82: rawBlockWithCLSig(t, 82, clSig)},
	}

	o, tracker := newTestOrchestrator(t, p, core)

	base := SyncPoint{Height: 0, Hash: genesis}
	target := SyncPoint{Height: 100, Hash: h100}

	require.NoError(t, o.SyncTo(context.Background(), base, target, true))

	// The main diff plus the backfill covering the proof point at 90-8.
	assert.Equal(t, [][2]uint32{{0, 82}, {0, 100}}, o.RecordedRanges())
	assert.Equal(t, 2, p.diffCalls)

	sig, ok := tracker.ChainLockSignature(&h82)
	require.True(t, ok)
	assert.Equal(t, *clSig, *sig)

	require.NoError(t, tracker.VerifyQuorumsAtHeight(100, []wire.LLMQType{wire.LLMQType50_60}))

	// Repeating the sync refetches nothing; the range is on record.
	require.NoError(t, o.SyncTo(context.Background(), base, target, true))
	assert.Equal(t, 2, p.diffCalls)
}

func TestSyncToValidationMissingProofBlock(t *testing.T) {
	genesis := *chaincfg.MainNetParams.GenesisHash
	h100 := chainhash.Hash{0x64}
	hq90 := chainhash.Hash{0x5a}

	p := &mockPeer{diffs: map[string]*wire.MsgMnListDiff{
		diffKey(&genesis, &h100): {
			BaseBlockHash: genesis,
			BlockHash:     h100,
			NewMNs:        []*wire.SMLEntry{smlEntry(0x01)},
			NewQuorums: []*wire.QuorumEntry{{
				Version:    1,
				LLMQType:   wire.LLMQType50_60,
				QuorumHash: hq90,
			}},
		},
	}}

	// The proof height cannot be resolved to a block hash.
	core := &mockCore{heights: map[chainhash.Hash]uint32{hq90: 90}}

	o, _ := newTestOrchestrator(t, p, core)

	err := o.SyncTo(context.Background(), SyncPoint{Height: 0, Hash: genesis}, SyncPoint{Height: 100, Hash: h100}, true)
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrRPC))

	// Nothing gets recorded for a failed sync.
	assert.Empty(t, o.RecordedRanges())
}

func TestSyncToEngineRejectsGap(t *testing.T) {
	h50 := chainhash.Hash{0x32}
	h100 := chainhash.Hash{0x64}

	p := &mockPeer{diffs: map[string]*wire.MsgMnListDiff{
		diffKey(&h50, &h100): {
			BaseBlockHash: h50,
			BlockHash:     h100,
		},
	}}

	o, _ := newTestOrchestrator(t, p, &mockCore{})

	// A non-genesis base on an empty engine is a gap.
	err := o.SyncTo(context.Background(), SyncPoint{Height: 50, Hash: h50}, SyncPoint{Height: 100, Hash: h100}, false)
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrEngine))
	assert.Empty(t, o.RecordedRanges())
}

func TestSyncRotated(t *testing.T) {
	genesis := *chaincfg.MainNetParams.GenesisHash

	hashes := make([]chainhash.Hash, 5)
	heights := make(map[chainhash.Hash]uint32, 5)
	qrinfo := &wire.MsgQRInfo{}

	diffs := []*wire.MsgMnListDiff{
		&qrinfo.MnListDiffTip,
		&qrinfo.MnListDiffH,
		&qrinfo.MnListDiffAtHMinusC,
		&qrinfo.MnListDiffAtHMinus2C,
		&qrinfo.MnListDiffAtHMinus3C,
	}

	for i, diff := range diffs {
		hashes[i] = chainhash.Hash{byte(0x60 + i)}
		heights[hashes[i]] = uint32(100 - i*24)
		diff.BlockHash = hashes[i]
	}

	p := &mockPeer{qrinfo: qrinfo}
	core := &mockCore{heights: heights}

	o, _ := newTestOrchestrator(t, p, core)

	target := SyncPoint{Height: 100, Hash: hashes[0]}

	require.NoError(t, o.SyncRotated(context.Background(), SyncPoint{Height: 0, Hash: genesis}, target))

	assert.True(t, p.qrExtraShare)
	assert.Equal(t, []chainhash.Hash{genesis}, p.qrKnown)

	// Every embedded diff lands under its resolved height range, based at 0
	// because the canned diffs carry the all-zero base hash.
	assert.Equal(t, [][2]uint32{{0, 4}, {0, 28}, {0, 52}, {0, 76}, {0, 100}}, o.RecordedRanges())

	diff, ok := o.RecordedDiff(0, 100)
	require.True(t, ok)
	assert.Equal(t, hashes[0], diff.BlockHash)
}
