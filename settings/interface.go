package settings

import (
	"net/url"
	"time"

	"github.com/dash-blockchain/mnsync/chaincfg"
)

type PeerSettings struct {
	Host               string
	Port               int
	UserAgent          string
	ReadTimeout        time.Duration
	ResyncScanLimit    int
	HandshakePollSleep time.Duration
	DialTimeout        time.Duration
}

type RPCSettings struct {
	URL *url.URL
}

type SyncSettings struct {
	CacheCapacity    int
	QuorumProofDepth int
}

type Settings struct {
	ClientName     string
	LogLevel       string
	LoggerType     string
	ChainCfgParams *chaincfg.Params
	Peer           PeerSettings
	RPC            RPCSettings
	Sync           SyncSettings
}
