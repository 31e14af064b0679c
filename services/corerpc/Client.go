// Package corerpc wraps the Dash Core JSON-RPC interface behind the small
// surface the sync orchestrator needs: block hash and height lookups plus raw
// block retrieval for chain-lock proof extraction.
package corerpc

import (
	"context"
	"encoding/hex"

	"github.com/bsv-blockchain/go-bt/v2/chainhash"
	"github.com/ordishs/go-bitcoin"

	"github.com/dash-blockchain/mnsync/errors"
	"github.com/dash-blockchain/mnsync/settings"
	"github.com/dash-blockchain/mnsync/ulogger"
)

type Client struct {
	logger ulogger.Logger
	node   *bitcoin.Bitcoind
}

// NewClient connects to the Core node configured in rpc_url.
func NewClient(logger ulogger.Logger, tSettings *settings.Settings) (*Client, error) {
	if tSettings.RPC.URL == nil {
		return nil, errors.NewConfigurationError("rpc_url is not set")
	}

	node, err := bitcoin.NewFromURL(tSettings.RPC.URL, false)
	if err != nil {
		return nil, errors.NewConfigurationError("failed to create rpc client for %s", tSettings.RPC.URL.Host, err)
	}

	return &Client{
		logger: logger,
		node:   node,
	}, nil
}

// GetBlockHash returns the hash of the block at the given height.
func (c *Client) GetBlockHash(_ context.Context, height uint32) (*chainhash.Hash, error) {
	hashStr, err := c.node.GetBlockHash(int(height))
	if err != nil {
		return nil, errors.NewRPCError("getblockhash %d failed", height, err)
	}

	hash, err := chainhash.NewHashFromStr(hashStr)
	if err != nil {
		return nil, errors.NewRPCError("getblockhash %d returned invalid hash %q", height, hashStr, err)
	}

	return hash, nil
}

// GetBlockHeight returns the height of the block with the given hash, via
// getblockheader.
func (c *Client) GetBlockHeight(_ context.Context, hash *chainhash.Hash) (uint32, error) {
	header, err := c.node.GetBlockHeader(hash.String())
	if err != nil {
		return 0, errors.NewRPCError("getblockheader %s failed", hash, err)
	}

	return uint32(header.Height), nil
}

// GetBestBlockHash returns the hash of the current chain tip.
func (c *Client) GetBestBlockHash(_ context.Context) (*chainhash.Hash, error) {
	hashStr, err := c.node.GetBestBlockHash()
	if err != nil {
		return nil, errors.NewRPCError("getbestblockhash failed", err)
	}

	hash, err := chainhash.NewHashFromStr(hashStr)
	if err != nil {
		return nil, errors.NewRPCError("getbestblockhash returned invalid hash %q", hashStr, err)
	}

	return hash, nil
}

// GetRawBlock returns the serialized block with the given hash.
func (c *Client) GetRawBlock(_ context.Context, hash *chainhash.Hash) ([]byte, error) {
	blockHex, err := c.node.GetBlockHex(hash.String())
	if err != nil {
		return nil, errors.NewRPCError("getblock %s failed", hash, err)
	}

	raw, err := hex.DecodeString(*blockHex)
	if err != nil {
		return nil, errors.NewRPCError("getblock %s returned invalid hex", hash, err)
	}

	return raw, nil
}
