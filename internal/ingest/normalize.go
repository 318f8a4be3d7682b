package ingest

import (
	"bytes"
	"encoding/json"
	"sort"

	"github.com/rawblock/address-risk-engine/pkg/models"
)

// Transaction Normalizer
//
// Explorer APIs disagree on almost everything: field names, time formats,
// whether amounts are satoshis or BTC, and whether an output may pay more
// than one address. The normalizer is the single boundary where that mess
// is resolved into models.Transaction records:
//
//   - BlockCypher   (/addrs/{addr}/full)    → outputs[].addresses[], sats
//   - Esplora       (mempool.space, blockstream) → vout[].scriptpubkey_address, sats
//   - Bitcoin Core  (listtransactions)     → address/amount, BTC
//   - canonical     {timestamp, amount, from, to, fee, tx_hash}, BTC
//
// Entries without a resolvable timestamp are dropped. Nothing downstream
// re-checks field presence. Output is sorted ascending by timestamp, the
// one ordering contract every interval detector depends on.

// entryKeys are the object keys under which providers wrap their list.
var entryKeys = []string{"txs", "transactions"}

// Normalize converts raw explorer JSON into canonical records sorted by
// timestamp. Malformed input yields an empty slice, never an error.
func Normalize(raw []byte) []models.Transaction {
	out := make([]models.Transaction, 0)
	for _, entry := range extractEntries(raw) {
		out = append(out, normalizeEntry(entry)...)
	}
	SortByTime(out)
	return out
}

// SortByTime orders records ascending by timestamp, keeping the provider
// order for equal timestamps.
func SortByTime(txs []models.Transaction) {
	sort.SliceStable(txs, func(i, j int) bool {
		return txs[i].Timestamp.Before(txs[j].Timestamp)
	})
}

func extractEntries(raw []byte) []map[string]any {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()

	var doc any
	if err := dec.Decode(&doc); err != nil {
		return nil
	}

	var list []any
	switch v := doc.(type) {
	case []any:
		list = v
	case map[string]any:
		for _, key := range entryKeys {
			if items, ok := v[key].([]any); ok {
				list = items
				break
			}
		}
	}

	entries := make([]map[string]any, 0, len(list))
	for _, item := range list {
		if m, ok := item.(map[string]any); ok {
			entries = append(entries, m)
		}
	}
	return entries
}

func normalizeEntry(m map[string]any) []models.Transaction {
	switch {
	case has(m, "outputs"):
		return fromBlockCypher(m)
	case has(m, "vout"):
		return fromEsplora(m)
	case has(m, "category"):
		return fromNodeWallet(m)
	default:
		return fromCanonical(m)
	}
}
