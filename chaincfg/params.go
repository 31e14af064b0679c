// Copyright (c) 2014-2016 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package chaincfg

import (
	"errors"
	"fmt"

	"github.com/bsv-blockchain/go-bt/v2/chainhash"

	"github.com/dash-blockchain/mnsync/wire"
)

// Params defines a Dash network by its parameters. These parameters may be
// used by applications to differentiate networks as well as address and key
// formats.
type Params struct {
	// Name defines a human-readable identifier for the network.
	Name string

	// Net defines the magic bytes used to identify the network.
	Net wire.DashNet

	// DefaultPort defines the default peer-to-peer port for the network.
	DefaultPort uint16

	// DefaultRPCPort defines the default Core JSON-RPC port for the
	// network.
	DefaultRPCPort uint16

	// GenesisHash is the starting block hash. It is nil for devnets and
	// regression test networks, whose genesis depends on the deployment;
	// callers resolve it via RPC instead.
	GenesisHash *chainhash.Hash
}

// MainNetParams defines the network parameters for the main Dash network.
var MainNetParams = Params{
	Name:           "mainnet",
	Net:            wire.MainNet,
	DefaultPort:    9999,
	DefaultRPCPort: 9998,
	GenesisHash:    newHashFromStr("00000ffd590b1485b3caadc19b22e6379c733355108f107a430458cdf3407ab6"),
}

// TestNetParams defines the network parameters for the public Dash test
// network.
var TestNetParams = Params{
	Name:           "testnet",
	Net:            wire.TestNet,
	DefaultPort:    19999,
	DefaultRPCPort: 19998,
	GenesisHash:    newHashFromStr("00000bafbc94add76cb75e2ec92894837288a481e5c005f6563d91623bf8bc2c"),
}

// DevNetParams defines the network parameters for Dash devnets. Each devnet
// has its own genesis block, so GenesisHash is left nil and callers resolve
// it via RPC.
var DevNetParams = Params{
	Name:           "devnet",
	Net:            wire.DevNet,
	DefaultPort:    29999,
	DefaultRPCPort: 19998,
	GenesisHash:    nil,
}

// RegressionNetParams defines the network parameters for the regression test
// network. The regtest genesis depends on local mining, so GenesisHash is
// left nil.
var RegressionNetParams = Params{
	Name:           "regtest",
	Net:            wire.RegTest,
	DefaultPort:    29999,
	DefaultRPCPort: 19898,
	GenesisHash:    nil,
}

var (
	// ErrDuplicateNet describes an error where the parameters for a Dash
	// network could not be set due to the network already being a standard
	// network or previously-registered via this package.
	ErrDuplicateNet = errors.New("duplicate Dash network")

	registeredNets = make(map[wire.DashNet]struct{})
)

// Register registers the network parameters for a Dash network. This may
// error with ErrDuplicateNet if the network is already registered, either
// due to a previous Register call or the network being one of the default
// networks.
func Register(params *Params) error {
	if _, ok := registeredNets[params.Net]; ok {
		return ErrDuplicateNet
	}

	registeredNets[params.Net] = struct{}{}

	return nil
}

// mustRegister performs the same function as Register except it panics if
// there is an error. This should only be called from package init functions.
func mustRegister(params *Params) {
	if err := Register(params); err != nil {
		panic("failed to register network: " + err.Error())
	}
}

// GetChainParams returns the chain parameters for the named network.
func GetChainParams(network string) (*Params, error) {
	switch network {
	case "mainnet":
		return &MainNetParams, nil
	case "testnet":
		return &TestNetParams, nil
	case "devnet":
		return &DevNetParams, nil
	case "regtest":
		return &RegressionNetParams, nil
	default:
		return nil, fmt.Errorf("unknown network %s", network)
	}
}

// newHashFromStr converts the passed big-endian hex string into a
// chainhash.Hash. It only differs from the one available in the chainhash
// package in that it panics on an error since it will only (and must only)
// be called with hard-coded, and therefore known good, hashes.
func newHashFromStr(hexStr string) *chainhash.Hash {
	hash, err := chainhash.NewHashFromStr(hexStr)
	if err != nil {
		panic(err)
	}

	return hash
}

func init() {
	// Register all default networks when the package is initialized.
	mustRegister(&MainNetParams)
	mustRegister(&TestNetParams)
	mustRegister(&DevNetParams)
	mustRegister(&RegressionNetParams)
}
