package wire

import "fmt"

// ProtocolVersion is the protocol version this client advertises in its
// version message. Dash Core accepts mnlistdiff/qrinfo requests from 70219
// onwards; 70235 matches current Core releases.
const ProtocolVersion uint32 = 70235

// ServiceFlag identifies services supported by a Dash peer.
type ServiceFlag uint64

const (
	// SFNodeNetwork is a flag used to indicate a peer is a full node.
	SFNodeNetwork ServiceFlag = 1 << iota

	_ // getutxo, never deployed on Dash

	// SFNodeBloom is a flag used to indicate a peer supports bloom
	// filtering.
	SFNodeBloom
)

// DashNet represents which Dash network a message belongs to.
type DashNet uint32

// Constants used to indicate the message Dash network. They can also be used
// to seek to the next message when a stream's state is unknown, but this
// package does not provide that functionality since it is typically a better
// idea to simply disconnect peers that are misbehaving over TCP.
const (
	// MainNet represents the main Dash network. The wire bytes are
	// bf 0c 6b bd.
	MainNet DashNet = 0xbd6b0cbf

	// TestNet represents the Dash test network. The wire bytes are
	// ce e2 ca ff.
	TestNet DashNet = 0xffcae2ce

	// DevNet represents a Dash development network. The wire bytes are
	// e2 ca ff ce.
	DevNet DashNet = 0xceffcae2

	// RegTest represents the regression test network. The wire bytes are
	// fc c1 b7 dc.
	RegTest DashNet = 0xdcb7c1fc
)

// dnStrings is a map of Dash networks back to their constant names for
// pretty printing.
var dnStrings = map[DashNet]string{
	MainNet: "MainNet",
	TestNet: "TestNet",
	DevNet:  "DevNet",
	RegTest: "RegTest",
}

// String returns the DashNet in human-readable form.
func (n DashNet) String() string {
	if s, ok := dnStrings[n]; ok {
		return s
	}

	return fmt.Sprintf("Unknown DashNet (%d)", uint32(n))
}
