package bitcoin

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rawblock/address-risk-engine/internal/explorer"
	"github.com/rawblock/address-risk-engine/internal/logger"
)

type fakeRPC struct {
	calls     []string
	responses map[string]string
}

func (f *fakeRPC) RawRequest(method string, _ []json.RawMessage) (json.RawMessage, error) {
	f.calls = append(f.calls, method)
	return json.RawMessage(f.responses[method]), nil
}

const watched = "bc1qar0srrr7xfkvy5l643lydnw9re59gtzzwf5mdq"

func TestNodeSource_FetchTransactions(t *testing.T) {
	wallet := &fakeRPC{responses: map[string]string{
		"getdescriptorinfo": `{"descriptor":"addr(` + watched + `)#abcd"}`,
		"importdescriptors": `[{"success":true}]`,
		"listtransactions": `[
			{"address":"` + watched + `","category":"receive","amount":0.5,"txid":"aa","blocktime":1700000000,"time":1700000000},
			{"address":"1Other","category":"send","amount":-0.1,"txid":"bb","time":1700000100}
		]`,
	}}
	src := newNodeSource(&fakeRPC{}, wallet, "risk_watch", 10, logger.NewNop())

	raw, err := src.FetchTransactions(context.Background(), watched)
	require.NoError(t, err)

	var entries []map[string]any
	require.NoError(t, json.Unmarshal(raw, &entries))
	require.Len(t, entries, 1)
	assert.Equal(t, "receive", entries[0]["category"])

	_, err = src.FetchTransactions(context.Background(), watched)
	require.NoError(t, err)
	imports := 0
	for _, c := range wallet.calls {
		if c == "importdescriptors" {
			imports++
		}
	}
	assert.Equal(t, 1, imports, "addresses are imported once")
}

func TestNodeSource_EmptyHistory(t *testing.T) {
	wallet := &fakeRPC{responses: map[string]string{
		"getdescriptorinfo": `{"descriptor":"addr(x)#abcd"}`,
		"importdescriptors": `[{"success":true}]`,
		"listtransactions":  `[]`,
	}}
	src := newNodeSource(&fakeRPC{}, wallet, "risk_watch", 10, logger.NewNop())

	_, err := src.FetchTransactions(context.Background(), watched)
	assert.ErrorIs(t, err, explorer.ErrAddressNotFound)
}

func TestNodeSource_InitializeWalletCreatesWhenMissing(t *testing.T) {
	rpc := &fakeRPC{responses: map[string]string{"listwallets": `["other"]`}}
	src := newNodeSource(rpc, rpc, "risk_watch", 10, logger.NewNop())

	require.NoError(t, src.InitializeWallet())
	assert.Equal(t, []string{"listwallets", "loadwallet"}, rpc.calls)
}
