// Package sml provides an in-process bookkeeping implementation of the
// masternode list engine: simplified masternode lists and quorum sets per
// block, a block height table, and recorded chain-lock signatures. It
// verifies data completeness only; cryptographic validation of quorum
// commitments is the job of an external engine.
package sml

import (
	"sync"

	"github.com/bsv-blockchain/go-bt/v2/chainhash"

	"github.com/dash-blockchain/mnsync/errors"
	"github.com/dash-blockchain/mnsync/settings"
	"github.com/dash-blockchain/mnsync/ulogger"
	"github.com/dash-blockchain/mnsync/wire"
)

// list is the masternode list and quorum set at one block.
type list struct {
	blockHash   chainhash.Hash
	masternodes map[chainhash.Hash]*wire.SMLEntry
	quorums     map[wire.QuorumIdentity]*wire.QuorumEntry
}

// Tracker keeps masternode lists keyed by block hash, so diffs can be applied
// both at the tip and on backfilled history. It implements mnsync.EngineI.
type Tracker struct {
	logger     ulogger.Logger
	proofDepth uint32

	mu           sync.RWMutex
	lists        map[chainhash.Hash]*list
	hashToHeight map[chainhash.Hash]uint32
	heightToHash map[uint32]chainhash.Hash
	chainLocks   map[chainhash.Hash]wire.BLSSignature
}

// NewTracker creates an empty tracker.
func NewTracker(logger ulogger.Logger, tSettings *settings.Settings) *Tracker {
	return &Tracker{
		logger:       logger,
		proofDepth:   uint32(tSettings.Sync.QuorumProofDepth), //nolint:gosec
		lists:        make(map[chainhash.Hash]*list),
		hashToHeight: make(map[chainhash.Hash]uint32),
		heightToHash: make(map[uint32]chainhash.Hash),
		chainLocks:   make(map[chainhash.Hash]wire.BLSSignature),
	}
}

// InitializeFromDiff seeds the tracker from a diff built against the genesis
// block, which carries the full masternode list.
func (t *Tracker) InitializeFromDiff(diff *wire.MsgMnListDiff, height uint32) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if len(t.lists) > 0 {
		return errors.NewEngineError("tracker already initialized")
	}

	l := &list{
		blockHash:   diff.BlockHash,
		masternodes: make(map[chainhash.Hash]*wire.SMLEntry, len(diff.NewMNs)),
		quorums:     make(map[wire.QuorumIdentity]*wire.QuorumEntry, len(diff.NewQuorums)),
	}

	applyDiffTo(l, diff)

	t.lists[diff.BlockHash] = l
	t.recordHeight(diff.BlockHash, height)

	t.logger.Infof("[Tracker] initialized with %d masternodes and %d quorums at height %d", len(l.masternodes), len(l.quorums), height)

	return nil
}

// ApplyDiff applies an incremental diff whose base list the tracker already
// holds. A zero base hash applies against an empty list.
func (t *Tracker) ApplyDiff(diff *wire.MsgMnListDiff, height uint32) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if len(t.lists) == 0 {
		return errors.NewEngineError("tracker is empty, initialize first")
	}

	l := &list{
		blockHash:   diff.BlockHash,
		masternodes: make(map[chainhash.Hash]*wire.SMLEntry),
		quorums:     make(map[wire.QuorumIdentity]*wire.QuorumEntry),
	}

	if diff.BaseBlockHash != (chainhash.Hash{}) {
		if base, ok := t.lists[diff.BaseBlockHash]; ok {
			for proRegTx, entry := range base.masternodes {
				l.masternodes[proRegTx] = entry
			}

			for id, quorum := range base.quorums {
				l.quorums[id] = quorum
			}
		} else if height, known := t.hashToHeight[diff.BaseBlockHash]; !known || height != 0 {
			// A diff based on the genesis block carries a full list and
			// applies against an empty base. Anything else is a gap.
			return errors.NewEngineError("unknown base list %s", diff.BaseBlockHash)
		}
	}

	applyDiffTo(l, diff)

	t.lists[diff.BlockHash] = l
	t.recordHeight(diff.BlockHash, height)

	t.logger.Debugf("[Tracker] applied diff to height %d: %d masternodes, %d quorums", height, len(l.masternodes), len(l.quorums))

	return nil
}

// applyDiffTo mutates l with the diff's deletions and additions. Caller holds
// the lock.
func applyDiffTo(l *list, diff *wire.MsgMnListDiff) {
	for i := range diff.DeletedMNs {
		delete(l.masternodes, diff.DeletedMNs[i])
	}

	for _, entry := range diff.NewMNs {
		l.masternodes[entry.ProRegTxHash] = entry
	}

	for i := range diff.DeletedQuorums {
		delete(l.quorums, diff.DeletedQuorums[i])
	}

	for _, quorum := range diff.NewQuorums {
		l.quorums[wire.QuorumIdentity{Type: quorum.LLMQType, Hash: quorum.QuorumHash}] = quorum
	}
}

// FeedBlockHeight records a block hash to height association.
func (t *Tracker) FeedBlockHeight(hash *chainhash.Hash, height uint32) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.recordHeight(*hash, height)
}

func (t *Tracker) recordHeight(hash chainhash.Hash, height uint32) {
	t.hashToHeight[hash] = height
	t.heightToHash[height] = hash
}

// FeedChainLockSignature records a chain-lock signature for a block hash.
func (t *Tracker) FeedChainLockSignature(blockHash *chainhash.Hash, sig *wire.BLSSignature) {
	if sig == nil {
		return
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	t.chainLocks[*blockHash] = *sig
}

// LatestNonRotatingQuorumHashes returns the identities of the non-rotating
// quorums of the given types on the latest list.
func (t *Tracker) LatestNonRotatingQuorumHashes(types []wire.LLMQType) []wire.QuorumIdentity {
	return t.latestQuorumHashes(types, false)
}

// LatestRotatingQuorumHashes returns the identities of the rotating quorums
// of the given types on the latest list.
func (t *Tracker) LatestRotatingQuorumHashes(types []wire.LLMQType) []wire.QuorumIdentity {
	return t.latestQuorumHashes(types, true)
}

func (t *Tracker) latestQuorumHashes(types []wire.LLMQType, rotating bool) []wire.QuorumIdentity {
	t.mu.RLock()
	defer t.mu.RUnlock()

	l := t.latestList()
	if l == nil {
		return nil
	}

	wanted := make(map[wire.LLMQType]struct{}, len(types))
	for _, llmqType := range types {
		wanted[llmqType] = struct{}{}
	}

	var identities []wire.QuorumIdentity

	for id := range l.quorums {
		if _, ok := wanted[id.Type]; !ok {
			continue
		}

		if id.Type.IsRotating() != rotating {
			continue
		}

		identities = append(identities, id)
	}

	return identities
}

// latestList returns the list with the greatest known height. Caller holds at
// least a read lock.
func (t *Tracker) latestList() *list {
	var (
		best       *list
		bestHeight uint32
		found      bool
	)

	for hash, l := range t.lists {
		height, ok := t.hashToHeight[hash]
		if !ok {
			continue
		}

		if !found || height > bestHeight {
			best = l
			bestHeight = height
			found = true
		}
	}

	return best
}

// VerifyQuorumsAtHeight checks that for every quorum of the given types on
// the list at the given height, the tracker knows the quorum's formation
// height and holds the list at the chain-lock proof point below it. It does
// not verify BLS signatures.
func (t *Tracker) VerifyQuorumsAtHeight(height uint32, types []wire.LLMQType) error {
	t.mu.RLock()
	defer t.mu.RUnlock()

	listHash, ok := t.heightToHash[height]
	if !ok {
		return errors.NewEngineError("no block hash recorded at height %d", height)
	}

	l, ok := t.lists[listHash]
	if !ok {
		return errors.NewEngineError("no masternode list at height %d", height)
	}

	wanted := make(map[wire.LLMQType]struct{}, len(types))
	for _, llmqType := range types {
		wanted[llmqType] = struct{}{}
	}

	for id := range l.quorums {
		if _, ok = wanted[id.Type]; !ok {
			continue
		}

		formationHeight, ok := t.hashToHeight[id.Hash]
		if !ok {
			return errors.NewEngineError("formation height of quorum %s (type %s) is unknown", id.Hash, id.Type)
		}

		if formationHeight < t.proofDepth {
			return errors.NewEngineError("quorum %s formed at height %d, below the proof depth %d", id.Hash, formationHeight, t.proofDepth)
		}

		proofHeight := formationHeight - t.proofDepth

		proofHash, ok := t.heightToHash[proofHeight]
		if !ok {
			return errors.NewEngineError("no block hash recorded at proof height %d for quorum %s", proofHeight, id.Hash)
		}

		if _, ok = t.lists[proofHash]; !ok {
			return errors.NewEngineError("no masternode list at proof height %d for quorum %s", proofHeight, id.Hash)
		}
	}

	return nil
}

// HeightOf returns the recorded height for a block hash.
func (t *Tracker) HeightOf(hash *chainhash.Hash) (uint32, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	height, ok := t.hashToHeight[*hash]

	return height, ok
}

// HashAt returns the recorded block hash at a height.
func (t *Tracker) HashAt(height uint32) (*chainhash.Hash, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	hash, ok := t.heightToHash[height]
	if !ok {
		return nil, false
	}

	return &hash, true
}

// EarliestList returns the height and block hash of the earliest list held.
func (t *Tracker) EarliestList() (uint32, *chainhash.Hash, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	var (
		bestHash   chainhash.Hash
		bestHeight uint32
		found      bool
	)

	for hash := range t.lists {
		height, ok := t.hashToHeight[hash]
		if !ok {
			continue
		}

		if !found || height < bestHeight {
			bestHash = hash
			bestHeight = height
			found = true
		}
	}

	if !found {
		return 0, nil, false
	}

	return bestHeight, &bestHash, true
}

// IsEmpty reports whether the tracker holds no masternode list yet.
func (t *Tracker) IsEmpty() bool {
	t.mu.RLock()
	defer t.mu.RUnlock()

	return len(t.lists) == 0
}

// QuorumsAt returns the quorum entries active on the list at the given block
// hash.
func (t *Tracker) QuorumsAt(blockHash *chainhash.Hash) ([]*wire.QuorumEntry, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	l, ok := t.lists[*blockHash]
	if !ok {
		return nil, false
	}

	quorums := make([]*wire.QuorumEntry, 0, len(l.quorums))
	for _, quorum := range l.quorums {
		quorums = append(quorums, quorum)
	}

	return quorums, true
}

// ChainLockSignature returns the recorded chain-lock signature for a block
// hash, if any.
func (t *Tracker) ChainLockSignature(blockHash *chainhash.Hash) (*wire.BLSSignature, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	sig, ok := t.chainLocks[*blockHash]
	if !ok {
		return nil, false
	}

	return &sig, true
}

// MasternodeCount returns the number of masternodes on the latest list.
func (t *Tracker) MasternodeCount() int {
	t.mu.RLock()
	defer t.mu.RUnlock()

	l := t.latestList()
	if l == nil {
		return 0
	}

	return len(l.masternodes)
}
