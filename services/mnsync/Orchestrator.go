// Package mnsync orchestrates masternode list synchronization: it drives a
// peer client and the Core RPC interface to fetch masternode list diffs,
// feeds them to a list engine, and backfills the diffs and chain-lock proofs
// the engine needs to validate quorums.
package mnsync

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/bsv-blockchain/go-bt/v2/chainhash"

	"github.com/dash-blockchain/mnsync/errors"
	"github.com/dash-blockchain/mnsync/services/peer"
	"github.com/dash-blockchain/mnsync/settings"
	"github.com/dash-blockchain/mnsync/ulogger"
	"github.com/dash-blockchain/mnsync/wire"
)

// nonRotatingLLMQTypes are the quorum types validated against chain-lock
// proofs during a sync.
var nonRotatingLLMQTypes = []wire.LLMQType{
	wire.LLMQType50_60,
	wire.LLMQType400_85,
}

// rotatingLLMQTypes only get height bookkeeping during a sync; their
// validation runs off qrinfo.
var rotatingLLMQTypes = []wire.LLMQType{
	wire.LLMQType60_75,
}

// heightRange identifies a recorded diff by its base and target heights.
type heightRange struct {
	base   uint32
	target uint32
}

// proofPoint is one chain-lock proof the validation walk must cover: the
// block at a quorum's formation height minus the proof depth.
type proofPoint struct {
	height uint32
	hash   chainhash.Hash
}

// Orchestrator drives diff sync. It is the sole mutator of the engine; the
// recorded diff table is guarded for concurrent snapshot readers.
type Orchestrator struct {
	logger   ulogger.Logger
	settings *settings.Settings
	peer     peer.ClientI
	core     CoreClientI
	engine   EngineI
	caches   *caches

	mu            sync.RWMutex
	recordedDiffs map[heightRange]*wire.MsgMnListDiff
}

// NewOrchestrator creates an orchestrator over the given peer client, Core
// RPC client and engine.
func NewOrchestrator(logger ulogger.Logger, tSettings *settings.Settings, peerClient peer.ClientI, coreClient CoreClientI, engine EngineI) *Orchestrator {
	initPrometheusMetrics()

	return &Orchestrator{
		logger:        logger,
		settings:      tSettings,
		peer:          peerClient,
		core:          coreClient,
		engine:        engine,
		caches:        newCaches(tSettings.Sync.CacheCapacity),
		recordedDiffs: make(map[heightRange]*wire.MsgMnListDiff),
	}
}

// SyncTo fetches and applies the masternode list diff from base to target.
// When validate is set and the engine already holds state, it additionally
// resolves quorum formation heights, extracts chain-lock proofs, backfills
// the diffs covering every proof point, and asks the engine to verify the
// quorums at the target height.
//
// Partial progress is never rolled back; every failure surfaces to the
// caller with the engine and diff table reflecting the work done so far.
func (o *Orchestrator) SyncTo(ctx context.Context, base, target SyncPoint, validate bool) error {
	start := time.Now()
	defer func() {
		prometheusSyncDuration.Observe(time.Since(start).Seconds())
	}()

	if o.isRecorded(base.Height, target.Height) {
		o.logger.Debugf("[Orchestrator] diff %d -> %d already recorded, skipping", base.Height, target.Height)
		prometheusSyncDiffsSkipped.Inc()

		return nil
	}

	o.logger.Infof("[Orchestrator] syncing masternode list %d -> %d (validate: %v)", base.Height, target.Height, validate)

	diff, err := o.peer.GetMnListDiff(ctx, &base.Hash, &target.Hash)
	if err != nil {
		return err
	}

	if err = o.feedDiff(diff, base.Height, target.Height); err != nil {
		return err
	}

	if validate && !o.engine.IsEmpty() {
		if err = o.validateQuorums(ctx, target); err != nil {
			return err
		}
	}

	o.record(base.Height, target.Height, diff)

	return nil
}

// feedDiff hands a diff to the engine, initializing it when this is the
// first list from genesis, and records the target block's height.
func (o *Orchestrator) feedDiff(diff *wire.MsgMnListDiff, baseHeight, targetHeight uint32) error {
	var err error
	if baseHeight == 0 && o.engine.IsEmpty() {
		err = o.engine.InitializeFromDiff(diff, targetHeight)
	} else {
		err = o.engine.ApplyDiff(diff, targetHeight)
	}

	if err != nil {
		return errors.NewEngineError("engine rejected diff %d -> %d", baseHeight, targetHeight, err)
	}

	o.engine.FeedBlockHeight(&diff.BlockHash, targetHeight)
	o.caches.setHeight(diff.BlockHash, targetHeight)
	o.caches.setHashAt(targetHeight, diff.BlockHash)

	prometheusSyncDiffsApplied.Inc()

	return nil
}

// validateQuorums resolves the formation heights of the latest non-rotating
// quorums, feeds their chain-lock proofs to the engine, backfills the diffs
// covering every proof point, does height bookkeeping for rotating quorums,
// and finally asks the engine to verify.
func (o *Orchestrator) validateQuorums(ctx context.Context, target SyncPoint) error {
	quorumHeights, err := o.quorumHeightsForList(ctx, target.Hash)
	if err != nil {
		return err
	}

	points := make([]proofPoint, 0, len(quorumHeights))
	seen := make(map[uint32]struct{}, len(quorumHeights))

	for quorum, height := range quorumHeights {
		if height < uint32(o.settings.Sync.QuorumProofDepth) {
			return errors.NewProcessingError("quorum %s at height %d is below the proof depth %d", quorum.Hash, height, o.settings.Sync.QuorumProofDepth)
		}

		proofHeight := height - uint32(o.settings.Sync.QuorumProofDepth)

		proofHash, err := o.getHash(ctx, proofHeight)
		if err != nil {
			return err
		}

		sig, err := o.chainLockSigAt(ctx, proofHash)
		if err != nil {
			return err
		}

		if sig != nil {
			o.engine.FeedChainLockSignature(proofHash, sig)
		}

		if _, ok := seen[proofHeight]; !ok {
			seen[proofHeight] = struct{}{}

			points = append(points, proofPoint{height: proofHeight, hash: *proofHash})
			prometheusSyncProofPoints.Inc()
		}
	}

	if err = o.backfill(ctx, points); err != nil {
		return err
	}

	// Rotating quorums only need their heights on record here; their
	// members come from qrinfo.
	for _, quorum := range o.engine.LatestRotatingQuorumHashes(rotatingLLMQTypes) {
		if _, err = o.getHeight(ctx, &quorum.Hash); err != nil {
			return err
		}
	}

	if err = o.engine.VerifyQuorumsAtHeight(target.Height, nonRotatingLLMQTypes); err != nil {
		return errors.NewEngineError("quorum verification failed at height %d", target.Height, err)
	}

	return nil
}

// quorumHeightsForList resolves the formation height of every latest
// non-rotating quorum, computing the map at most once per masternode list
// block hash.
func (o *Orchestrator) quorumHeightsForList(ctx context.Context, listBlockHash chainhash.Hash) (map[wire.QuorumIdentity]uint32, error) {
	if heights, ok := o.caches.quorumHeightMap(listBlockHash); ok {
		return heights, nil
	}

	quorums := o.engine.LatestNonRotatingQuorumHashes(nonRotatingLLMQTypes)
	heights := make(map[wire.QuorumIdentity]uint32, len(quorums))

	for _, quorum := range quorums {
		height, err := o.getHeight(ctx, &quorum.Hash)
		if err != nil {
			return nil, err
		}

		heights[quorum] = height
	}

	o.caches.setQuorumHeightMap(listBlockHash, heights)

	return heights, nil
}

// backfill walks the proof points in height order, fetching and applying a
// diff per step from the engine's earliest list (or the network genesis) up
// through each point. Ranges already recorded are skipped without a fetch.
func (o *Orchestrator) backfill(ctx context.Context, points []proofPoint) error {
	if len(points) == 0 {
		return nil
	}

	sort.Slice(points, func(i, j int) bool { return points[i].height < points[j].height })

	cur, err := o.backfillStart(ctx, points[0].height)
	if err != nil {
		return err
	}

	for _, point := range points {
		if point.height <= cur.Height {
			continue
		}

		if o.isRecorded(cur.Height, point.height) {
			o.logger.Debugf("[Orchestrator] backfill %d -> %d already recorded", cur.Height, point.height)
			prometheusSyncDiffsSkipped.Inc()

			cur = SyncPoint{Height: point.height, Hash: point.hash}

			continue
		}

		diff, err := o.peer.GetMnListDiff(ctx, &cur.Hash, &point.hash)
		if err != nil {
			return err
		}

		if err = o.feedDiff(diff, cur.Height, point.height); err != nil {
			return err
		}

		o.record(cur.Height, point.height, diff)

		cur = SyncPoint{Height: point.height, Hash: point.hash}
	}

	return nil
}

// backfillStart returns the point the backfill walk starts from: the
// engine's earliest masternode list when it sits at or below the lowest
// proof point, otherwise the network genesis block.
func (o *Orchestrator) backfillStart(ctx context.Context, lowestPoint uint32) (SyncPoint, error) {
	if height, hash, ok := o.engine.EarliestList(); ok && height <= lowestPoint {
		return SyncPoint{Height: height, Hash: *hash}, nil
	}

	if genesis := o.settings.ChainCfgParams.GenesisHash; genesis != nil {
		o.engine.FeedBlockHeight(genesis, 0)

		return SyncPoint{Height: 0, Hash: *genesis}, nil
	}

	// Devnets and regtest have no hard-coded genesis.
	hash, err := o.core.GetBlockHash(ctx, 0)
	if err != nil {
		return SyncPoint{}, err
	}

	prometheusSyncRPCLookups.WithLabelValues("getblockhash").Inc()

	o.engine.FeedBlockHeight(hash, 0)

	return SyncPoint{Height: 0, Hash: *hash}, nil
}

// SyncRotated fetches quorum rotation information for the target block and
// records every masternode list diff embedded in the response under its
// resolved height range. The known-hash set sent to the peer is the base
// hash plus the target hash of every recorded diff.
func (o *Orchestrator) SyncRotated(ctx context.Context, base, target SyncPoint) error {
	known := o.knownBlockHashes(base.Hash)

	o.logger.Infof("[Orchestrator] requesting quorum rotation info for height %d with %d known hashes", target.Height, len(known))

	qrinfo, err := o.peer.GetQRInfo(ctx, known, &target.Hash, true)
	if err != nil {
		return err
	}

	diffs := []*wire.MsgMnListDiff{
		&qrinfo.MnListDiffTip,
		&qrinfo.MnListDiffH,
		&qrinfo.MnListDiffAtHMinusC,
		&qrinfo.MnListDiffAtHMinus2C,
		&qrinfo.MnListDiffAtHMinus3C,
	}

	if qrinfo.ExtraShare && qrinfo.MnListDiffAtHMinus4C != nil {
		diffs = append(diffs, qrinfo.MnListDiffAtHMinus4C)
	}

	diffs = append(diffs, qrinfo.MnListDiffList...)

	for _, diff := range diffs {
		baseHeight, err := o.diffBaseHeight(ctx, &diff.BaseBlockHash)
		if err != nil {
			return err
		}

		targetHeight, err := o.getHeight(ctx, &diff.BlockHash)
		if err != nil {
			return err
		}

		o.record(baseHeight, targetHeight, diff)
	}

	o.logger.Infof("[Orchestrator] recorded %d rotation diffs for height %d", len(diffs), target.Height)

	return nil
}

// diffBaseHeight resolves the base height of an embedded diff; the all-zero
// base hash means the diff starts from scratch.
func (o *Orchestrator) diffBaseHeight(ctx context.Context, baseHash *chainhash.Hash) (uint32, error) {
	if *baseHash == (chainhash.Hash{}) {
		return 0, nil
	}

	return o.getHeight(ctx, baseHash)
}

// knownBlockHashes returns the base hash plus the target block hash of every
// recorded diff, deduplicated.
func (o *Orchestrator) knownBlockHashes(base chainhash.Hash) []chainhash.Hash {
	o.mu.RLock()
	defer o.mu.RUnlock()

	seen := map[chainhash.Hash]struct{}{base: {}}
	known := []chainhash.Hash{base}

	for _, diff := range o.recordedDiffs {
		if _, ok := seen[diff.BlockHash]; ok {
			continue
		}

		seen[diff.BlockHash] = struct{}{}
		known = append(known, diff.BlockHash)
	}

	return known
}

// getHeight resolves a block hash to its height: engine first, then cache,
// then Core RPC. The result is cached both ways and fed to the engine.
func (o *Orchestrator) getHeight(ctx context.Context, hash *chainhash.Hash) (uint32, error) {
	if height, ok := o.engine.HeightOf(hash); ok {
		return height, nil
	}

	if height, ok := o.caches.height(*hash); ok {
		o.engine.FeedBlockHeight(hash, height)
		return height, nil
	}

	height, err := o.core.GetBlockHeight(ctx, hash)
	if err != nil {
		return 0, err
	}

	prometheusSyncRPCLookups.WithLabelValues("getblockheader").Inc()

	o.caches.setHeight(*hash, height)
	o.caches.setHashAt(height, *hash)
	o.engine.FeedBlockHeight(hash, height)

	return height, nil
}

// getHash resolves a height to its block hash: engine first, then cache,
// then Core RPC. The result is cached both ways and fed to the engine.
func (o *Orchestrator) getHash(ctx context.Context, height uint32) (*chainhash.Hash, error) {
	if hash, ok := o.engine.HashAt(height); ok {
		return hash, nil
	}

	if hash, ok := o.caches.hashAt(height); ok {
		return &hash, nil
	}

	hash, err := o.core.GetBlockHash(ctx, height)
	if err != nil {
		return nil, err
	}

	prometheusSyncRPCLookups.WithLabelValues("getblockhash").Inc()

	o.caches.setHashAt(height, *hash)
	o.caches.setHeight(*hash, height)
	o.engine.FeedBlockHeight(hash, height)

	return hash, nil
}

// chainLockSigAt returns the best chain-lock signature carried in the
// coinbase of the block with the given hash, or nil when the coinbase does
// not carry one. The result, including absence, is cached.
func (o *Orchestrator) chainLockSigAt(ctx context.Context, blockHash *chainhash.Hash) (*wire.BLSSignature, error) {
	if sig, ok := o.caches.chainLockSig(*blockHash); ok {
		return sig, nil
	}

	raw, err := o.core.GetRawBlock(ctx, blockHash)
	if err != nil {
		return nil, err
	}

	prometheusSyncRPCLookups.WithLabelValues("getblock").Inc()

	_, coinbase, err := wire.ExtractCoinbase(raw)
	if err != nil {
		return nil, errors.NewCoinbasePayloadError("failed to parse block %s", blockHash, err)
	}

	var sig *wire.BLSSignature

	if coinbase != nil && coinbase.Type == wire.TxTypeCoinbase {
		payload, err := coinbase.CoinbasePayload()
		if err != nil {
			return nil, errors.NewCoinbasePayloadError("failed to parse coinbase payload of block %s", blockHash, err)
		}

		sig = payload.BestCLSignature
	}

	o.caches.setChainLockSig(*blockHash, sig)

	return sig, nil
}

// isRecorded reports whether a diff covering exactly this height range has
// been recorded already.
func (o *Orchestrator) isRecorded(baseHeight, targetHeight uint32) bool {
	o.mu.RLock()
	defer o.mu.RUnlock()

	_, ok := o.recordedDiffs[heightRange{base: baseHeight, target: targetHeight}]

	return ok
}

// record stores a fetched diff under its height range.
func (o *Orchestrator) record(baseHeight, targetHeight uint32, diff *wire.MsgMnListDiff) {
	o.mu.Lock()
	defer o.mu.Unlock()

	o.recordedDiffs[heightRange{base: baseHeight, target: targetHeight}] = diff
}

// RecordedDiff returns the recorded diff for the exact height range, if any.
func (o *Orchestrator) RecordedDiff(baseHeight, targetHeight uint32) (*wire.MsgMnListDiff, bool) {
	o.mu.RLock()
	defer o.mu.RUnlock()

	diff, ok := o.recordedDiffs[heightRange{base: baseHeight, target: targetHeight}]

	return diff, ok
}

// RecordedRanges returns the height ranges of all recorded diffs, ordered by
// base then target height.
func (o *Orchestrator) RecordedRanges() [][2]uint32 {
	o.mu.RLock()
	defer o.mu.RUnlock()

	ranges := make([][2]uint32, 0, len(o.recordedDiffs))
	for r := range o.recordedDiffs {
		ranges = append(ranges, [2]uint32{r.base, r.target})
	}

	sort.Slice(ranges, func(i, j int) bool {
		if ranges[i][0] != ranges[j][0] {
			return ranges[i][0] < ranges[j][0]
		}

		return ranges[i][1] < ranges[j][1]
	})

	return ranges
}
