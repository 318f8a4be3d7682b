package heuristics

import (
	"sort"

	"github.com/rawblock/address-risk-engine/pkg/models"
)

// Repeated Address Detector
//
// Paying the same destination again and again is what consolidation
// wallets and laundering relays do. Any destination seen at least three
// times is flagged, 5 points per distinct address, capped at 25.

const (
	repeatThreshold = 3
	repeatPoints    = 5
	repeatCap       = 25
)

// DetectRepeatedAddresses flags destinations that appear three or more times.
func DetectRepeatedAddresses(txs []models.Transaction) models.DetectorResult {
	result := emptyResult(RepeatedAddressName)
	if len(txs) < 2 {
		return result
	}

	counts := destinationCounts(txs)
	addrs := make([]string, 0, len(counts))
	for addr, n := range counts {
		if n >= repeatThreshold {
			addrs = append(addrs, addr)
		}
	}
	sort.Strings(addrs)

	for _, addr := range addrs {
		result.Evidence = append(result.Evidence, models.AddressEvidence{Address: addr, Count: counts[addr]})
	}

	result.Score = capScore(len(addrs)*repeatPoints, repeatCap)
	return result
}

func destinationCounts(txs []models.Transaction) map[string]int {
	counts := make(map[string]int)
	for _, tx := range txs {
		if tx.To != "" {
			counts[tx.To]++
		}
	}
	return counts
}
