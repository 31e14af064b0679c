package mnsync

import (
	"context"

	"github.com/bsv-blockchain/go-bt/v2/chainhash"

	"github.com/dash-blockchain/mnsync/wire"
)

// SyncPoint identifies one end of a diff request: a block hash and its
// height. Height 0 with the zero hash denotes "from scratch".
type SyncPoint struct {
	Height uint32
	Hash   chainhash.Hash
}

// EngineI is the masternode list engine the orchestrator drives. The engine
// owns list and quorum state; the orchestrator owns fetching and ordering.
// Implementations are not required to be safe for concurrent mutation; the
// orchestrator is the sole mutator.
type EngineI interface {
	// InitializeFromDiff seeds the engine from a diff whose base is the
	// genesis block (a full list).
	InitializeFromDiff(diff *wire.MsgMnListDiff, height uint32) error

	// ApplyDiff applies an incremental diff on top of existing state.
	ApplyDiff(diff *wire.MsgMnListDiff, height uint32) error

	// FeedBlockHeight records a block hash to height association.
	FeedBlockHeight(hash *chainhash.Hash, height uint32)

	// FeedChainLockSignature records the best chain-lock signature carried
	// in the coinbase of the block with the given hash.
	FeedChainLockSignature(blockHash *chainhash.Hash, sig *wire.BLSSignature)

	// LatestNonRotatingQuorumHashes returns the quorum identities of the
	// given non-rotating LLMQ types on the latest masternode list.
	LatestNonRotatingQuorumHashes(types []wire.LLMQType) []wire.QuorumIdentity

	// LatestRotatingQuorumHashes returns the quorum identities of the
	// given rotating LLMQ types on the latest masternode list.
	LatestRotatingQuorumHashes(types []wire.LLMQType) []wire.QuorumIdentity

	// VerifyQuorumsAtHeight checks that the engine holds everything needed
	// to validate the quorums of the given types at the given height.
	VerifyQuorumsAtHeight(height uint32, types []wire.LLMQType) error

	// HeightOf returns the recorded height for a block hash.
	HeightOf(hash *chainhash.Hash) (uint32, bool)

	// HashAt returns the recorded block hash at a height.
	HashAt(height uint32) (*chainhash.Hash, bool)

	// EarliestList returns the height and block hash of the earliest
	// masternode list the engine holds.
	EarliestList() (uint32, *chainhash.Hash, bool)

	// IsEmpty reports whether the engine holds no masternode list yet.
	IsEmpty() bool

	// QuorumsAt returns the quorum entries active on the masternode list
	// at the given block hash.
	QuorumsAt(blockHash *chainhash.Hash) ([]*wire.QuorumEntry, bool)
}

// CoreClientI is the view of Dash Core RPC the orchestrator needs.
type CoreClientI interface {
	GetBlockHash(ctx context.Context, height uint32) (*chainhash.Hash, error)
	GetBlockHeight(ctx context.Context, hash *chainhash.Hash) (uint32, error)
	GetBestBlockHash(ctx context.Context) (*chainhash.Hash, error)
	GetRawBlock(ctx context.Context, hash *chainhash.Hash) ([]byte, error)
}
