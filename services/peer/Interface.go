package peer

import (
	"context"

	"github.com/bsv-blockchain/go-bt/v2/chainhash"

	"github.com/dash-blockchain/mnsync/wire"
)

// ClientI is the interface the sync orchestrator uses to talk to a Dash Core
// peer over P2P.
type ClientI interface {
	// EnsureReady performs the version/verack handshake if it has not been
	// completed yet. It is idempotent; subsequent calls return immediately.
	EnsureReady(ctx context.Context) error

	// GetMnListDiff requests the masternode list diff between the two
	// block hashes and waits for the matching mnlistdiff response.
	GetMnListDiff(ctx context.Context, baseBlockHash, blockHash *chainhash.Hash) (*wire.MsgMnListDiff, error)

	// GetQRInfo requests quorum rotation information for the target block,
	// relative to the given known base block hashes.
	GetQRInfo(ctx context.Context, baseBlockHashes []chainhash.Hash, blockRequestHash *chainhash.Hash, extraShare bool) (*wire.MsgQRInfo, error)

	// Close tears down the underlying connection.
	Close() error
}
