package peer

import (
	"context"
	"testing"

	"github.com/bsv-blockchain/go-bt/v2/chainhash"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dash-blockchain/mnsync/wire"
)

func TestGetMnListDiff(t *testing.T) {
	client, server := testClient(t, testSettings())

	base := chainhash.Hash{0x01}
	target := chainhash.Hash{0x02}

	response := &wire.MsgMnListDiff{
		BaseBlockHash:     base,
		BlockHash:         target,
		TotalTransactions: 1,
		NewMNs: []*wire.SMLEntry{{
			Version:      1,
			ProRegTxHash: chainhash.Hash{0x03},
			IsValid:      true,
		}},
	}

	go func() {
		serveHandshake(t, server)

		header, payload := readPeerFrame(t, server)
		require.Equal(t, wire.CmdGetMnListDiff, header.Command)

		msg, err := wire.DecodeMessage(header.Command, payload, wire.ProtocolVersion)
		require.NoError(t, err)

		req := msg.(*wire.MsgGetMnListDiff)
		require.Equal(t, base, req.BaseBlockHash)
		require.Equal(t, target, req.BlockHash)

		// Unsolicited traffic ahead of the response must not confuse the
		// request correlation.
		_, _ = server.Write(rawFrame(t, "ping", make([]byte, 8)))
		_, _ = server.Write(frameBytes(t, response))
	}()

	// The first request performs the handshake implicitly.
	diff, err := client.GetMnListDiff(context.Background(), &base, &target)
	require.NoError(t, err)

	assert.Equal(t, base, diff.BaseBlockHash)
	assert.Equal(t, target, diff.BlockHash)
	require.Len(t, diff.NewMNs, 1)
	assert.Equal(t, chainhash.Hash{0x03}, diff.NewMNs[0].ProRegTxHash)
	assert.True(t, diff.NewMNs[0].IsValid)
}

func TestGetQRInfo(t *testing.T) {
	client, server := testClient(t, testSettings())

	known := []chainhash.Hash{{0x01}, {0x02}}
	request := chainhash.Hash{0x03}

	go func() {
		serveHandshake(t, server)

		header, payload := readPeerFrame(t, server)
		require.Equal(t, wire.CmdGetQRInfo, header.Command)

		msg, err := wire.DecodeMessage(header.Command, payload, wire.ProtocolVersion)
		require.NoError(t, err)

		req := msg.(*wire.MsgGetQRInfo)
		require.Equal(t, known, req.BaseBlockHashes)
		require.Equal(t, request, req.BlockRequestHash)
		require.True(t, req.ExtraShare)

		response := &wire.MsgQRInfo{}
		response.MnListDiffH.BlockHash = request

		_, _ = server.Write(frameBytes(t, response))
	}()

	qrinfo, err := client.GetQRInfo(context.Background(), known, &request, true)
	require.NoError(t, err)

	assert.Equal(t, request, qrinfo.MnListDiffH.BlockHash)
	assert.False(t, qrinfo.ExtraShare)
	assert.Empty(t, qrinfo.MnListDiffList)
}
