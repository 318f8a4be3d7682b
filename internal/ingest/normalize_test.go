package ingest

import (
	"encoding/json"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const blockCypherFixture = `{
  "address": "1BoatSLRHtKNngkdXEeobR76b53LETtpyT",
  "txs": [
    {
      "hash": "A1075DB55D416D3CA199F55B6084E2115B9345E16C5CF302FC80E9D5FBF5D48D",
      "confirmed": "2024-03-01T12:00:30Z",
      "fees": 1200,
      "vin_sz": 1,
      "vout_sz": 2,
      "inputs": [{"addresses": ["1Sender111111111111111111111111111"]}],
      "outputs": [
        {"value": 150000, "addresses": ["1Dest1111111111111111111111111111A"]},
        {"value": 9000, "addresses": ["1Multi111111111111111111111111111", "1Multi222222222222222222222222222"]}
      ]
    },
    {
      "hash": "bb",
      "received": "2024-03-01T12:00:00+00:00",
      "outputs": [{"value": 42, "addresses": ["bc1qearlier"]}]
    },
    {
      "hash": "cc",
      "confirmed": "not a date",
      "outputs": [{"value": 1, "addresses": ["bc1qdropped"]}]
    }
  ]
}`

func TestNormalize_BlockCypherFansOutDestinations(t *testing.T) {
	txs := Normalize([]byte(blockCypherFixture))
	require.Len(t, txs, 4)

	// The received-only entry is earlier and must sort first.
	assert.Equal(t, "bc1qearlier", txs[0].To)
	assert.Equal(t, int64(42), txs[0].Amount)

	assert.Equal(t, "1Dest1111111111111111111111111111A", txs[1].To)
	assert.Equal(t, int64(150000), txs[1].Amount)
	assert.Equal(t, "1Sender111111111111111111111111111", txs[1].From)
	assert.Equal(t, int64(1200), txs[1].Fee)
	assert.Equal(t, 1, txs[1].NumInputs)
	assert.Equal(t, 2, txs[1].NumOutputs)
	assert.Equal(t, "a1075db55d416d3ca199f55b6084e2115b9345e16c5cf302fc80e9d5fbf5d48d", txs[1].TxHash)

	// Both addresses of the multi-address output inherit its value.
	assert.Equal(t, int64(9000), txs[2].Amount)
	assert.Equal(t, int64(9000), txs[3].Amount)
	assert.Equal(t, txs[1].Timestamp, txs[3].Timestamp)
}

func TestNormalize_Esplora(t *testing.T) {
	raw := `[
	  {"txid": "t2", "fee": 300, "status": {"confirmed": true, "block_time": 1700000600},
	   "vin": [{"prevout": {"scriptpubkey_address": "bc1qfrom", "value": 5000}}],
	   "vout": [{"scriptpubkey_address": "bc1qto", "value": 4700}, {"scriptpubkey_type": "op_return", "value": 0}]},
	  {"txid": "t1", "status": {"confirmed": false}, "received_at": "1700000000",
	   "vin": [], "vout": [{"scriptpubkey_address": "3Pay", "value": 100}]}
	]`

	txs := Normalize([]byte(raw))
	require.Len(t, txs, 2)
	assert.Equal(t, "t1", txs[0].TxHash)
	assert.Equal(t, time.Unix(1700000000, 0).UTC(), txs[0].Timestamp)
	assert.Equal(t, "bc1qfrom", txs[1].From)
	assert.Equal(t, "bc1qto", txs[1].To)
	assert.Equal(t, int64(4700), txs[1].Amount)
	assert.Equal(t, int64(300), txs[1].Fee)
	assert.Equal(t, 2, txs[1].NumOutputs)
}

func TestNormalize_NodeWalletConvertsBTC(t *testing.T) {
	raw := `[
	  {"address": "bc1qnode", "category": "send", "amount": -0.1, "fee": -0.00001, "txid": "n1", "time": 1700000100},
	  {"address": "bc1qnode", "category": "receive", "amount": 1.23456789, "txid": "n0", "time": 1700000000}
	]`

	txs := Normalize([]byte(raw))
	require.Len(t, txs, 2)
	assert.Equal(t, int64(123456789), txs[0].Amount)
	assert.Equal(t, int64(10000000), txs[1].Amount)
	assert.Equal(t, int64(1000), txs[1].Fee)
}

func TestNormalize_CanonicalRecords(t *testing.T) {
	raw := `{"transactions": [
	  {"timestamp": "2024-01-02 10:00:00", "amount": "0.5", "to": "1A", "from": "1B", "fee": 0.0001, "tx_hash": "h2"},
	  {"timestamp": "2024-01-01", "amount": 1, "to": "1C"},
	  {"timestamp": "garbage", "amount": 1, "to": "1D"},
	  {"amount": 1, "to": "1E"},
	  {"timestamp": 1704067200, "amount": -3, "to": "1F"},
	  {"timestamp": "2024-01-03T00:00:00Z", "amountSats": 777, "feeSats": 12, "to": "1G"}
	]}`

	txs := Normalize([]byte(raw))
	require.Len(t, txs, 3)
	assert.Equal(t, "1C", txs[0].To)
	assert.Equal(t, int64(100000000), txs[0].Amount)
	assert.Equal(t, int64(50000000), txs[1].Amount)
	assert.Equal(t, int64(10000), txs[1].Fee)
	assert.Equal(t, "1B", txs[1].From)
	assert.Equal(t, int64(777), txs[2].Amount)
	assert.Equal(t, int64(12), txs[2].Fee)
}

func TestNormalize_AscendingOrder(t *testing.T) {
	raw := `[
	  {"timestamp": 1700000300, "amount": 1, "to": "a"},
	  {"timestamp": 1700000100, "amount": 1, "to": "b"},
	  {"timestamp": "2023-11-14T22:16:40Z", "amount": 1, "to": "c"},
	  {"timestamp": 1700000200, "amount": 1, "to": "d"}
	]`

	txs := Normalize([]byte(raw))
	require.Len(t, txs, 4)
	for i := 1; i < len(txs); i++ {
		assert.False(t, txs[i].Timestamp.Before(txs[i-1].Timestamp), "record %d out of order", i)
	}
}

func TestNormalize_MalformedInput(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{"empty", ``},
		{"not json", `<html>`},
		{"scalar", `42`},
		{"object without list", `{"error": "rate limited"}`},
		{"list of scalars", `[1, 2, 3]`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			txs := Normalize([]byte(tt.raw))
			assert.NotNil(t, txs)
			assert.Empty(t, txs)
		})
	}
}

func TestTimestampFrom_RejectsOutOfRangeEpochs(t *testing.T) {
	tests := []struct {
		name string
		in   any
		ok   bool
	}{
		{"seconds", json.Number("1700000000"), true},
		{"fractional", json.Number("1700000000.75"), true},
		{"float", float64(1700000000), true},
		{"last representable", json.Number("253402300799"), true},
		{"past year 9999", json.Number("253402300800"), false},
		{"huge exponent", json.Number("1e30"), false},
		{"huge float", 1e30, false},
		{"infinite", math.Inf(1), false},
		{"huge numeric string", "1e300", false},
		{"zero", json.Number("0"), false},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			ts, ok := timestampFrom(tc.in)
			assert.Equal(t, tc.ok, ok)
			if ok {
				assert.GreaterOrEqual(t, ts.Year(), 2023)
			}
		})
	}

	txs := Normalize([]byte(`[{"timestamp": 1e30, "amount": 1, "to": "a"}, {"timestamp": 1700000000, "amount": 1, "to": "b"}]`))
	require.Len(t, txs, 1)
	assert.Equal(t, "b", txs[0].To)
}
