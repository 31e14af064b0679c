package mnsync

import (
	"github.com/bsv-blockchain/go-bt/v2/chainhash"
	"github.com/jellydator/ttlcache/v3"

	"github.com/dash-blockchain/mnsync/wire"
)

// caches holds the orchestrator's lookup caches. Entries never expire; once a
// block height or chain-lock signature is known it stays known for the life
// of the process.
type caches struct {
	hashToHeight  *ttlcache.Cache[chainhash.Hash, uint32]
	heightToHash  *ttlcache.Cache[uint32, chainhash.Hash]
	chainLockSigs *ttlcache.Cache[chainhash.Hash, *wire.BLSSignature]

	// quorumHeights maps a masternode list block hash to the formation
	// heights of every quorum active on that list. Computed once per list.
	quorumHeights *ttlcache.Cache[chainhash.Hash, map[wire.QuorumIdentity]uint32]
}

func newCaches(capacity int) *caches {
	cap64 := uint64(capacity) //nolint:gosec

	return &caches{
		hashToHeight: ttlcache.New[chainhash.Hash, uint32](
			ttlcache.WithCapacity[chainhash.Hash, uint32](cap64),
		),
		heightToHash: ttlcache.New[uint32, chainhash.Hash](
			ttlcache.WithCapacity[uint32, chainhash.Hash](cap64),
		),
		chainLockSigs: ttlcache.New[chainhash.Hash, *wire.BLSSignature](
			ttlcache.WithCapacity[chainhash.Hash, *wire.BLSSignature](cap64),
		),
		quorumHeights: ttlcache.New[chainhash.Hash, map[wire.QuorumIdentity]uint32](
			ttlcache.WithCapacity[chainhash.Hash, map[wire.QuorumIdentity]uint32](cap64),
		),
	}
}

func (c *caches) height(hash chainhash.Hash) (uint32, bool) {
	item := c.hashToHeight.Get(hash)
	if item == nil {
		prometheusSyncCacheMisses.WithLabelValues("hash_height").Inc()
		return 0, false
	}

	prometheusSyncCacheHits.WithLabelValues("hash_height").Inc()

	return item.Value(), true
}

func (c *caches) setHeight(hash chainhash.Hash, height uint32) {
	c.hashToHeight.Set(hash, height, ttlcache.NoTTL)
}

func (c *caches) hashAt(height uint32) (chainhash.Hash, bool) {
	item := c.heightToHash.Get(height)
	if item == nil {
		prometheusSyncCacheMisses.WithLabelValues("height_hash").Inc()
		return chainhash.Hash{}, false
	}

	prometheusSyncCacheHits.WithLabelValues("height_hash").Inc()

	return item.Value(), true
}

func (c *caches) setHashAt(height uint32, hash chainhash.Hash) {
	c.heightToHash.Set(height, hash, ttlcache.NoTTL)
}

func (c *caches) chainLockSig(blockHash chainhash.Hash) (*wire.BLSSignature, bool) {
	item := c.chainLockSigs.Get(blockHash)
	if item == nil {
		prometheusSyncCacheMisses.WithLabelValues("chainlock_sig").Inc()
		return nil, false
	}

	prometheusSyncCacheHits.WithLabelValues("chainlock_sig").Inc()

	return item.Value(), true
}

func (c *caches) setChainLockSig(blockHash chainhash.Hash, sig *wire.BLSSignature) {
	c.chainLockSigs.Set(blockHash, sig, ttlcache.NoTTL)
}

func (c *caches) quorumHeightMap(listBlockHash chainhash.Hash) (map[wire.QuorumIdentity]uint32, bool) {
	item := c.quorumHeights.Get(listBlockHash)
	if item == nil {
		prometheusSyncCacheMisses.WithLabelValues("quorum_heights").Inc()
		return nil, false
	}

	prometheusSyncCacheHits.WithLabelValues("quorum_heights").Inc()

	return item.Value(), true
}

func (c *caches) setQuorumHeightMap(listBlockHash chainhash.Hash, heights map[wire.QuorumIdentity]uint32) {
	c.quorumHeights.Set(listBlockHash, heights, ttlcache.NoTTL)
}
