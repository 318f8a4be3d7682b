package heuristics

import (
	"fmt"

	"github.com/rawblock/address-risk-engine/pkg/models"
)

// Cross-Chain Bridge Detector
//
// Bridging is a favorite exit once funds have been mixed: value leaves
// Bitcoin and reappears as a wrapped asset elsewhere. Sub-signals, summed:
//   a. Known bridge destinations          +10 per hit, cap 30
//   b. Large single transfer (>1M sats)   +5 per tx,   cap 20
//   c. Split after a large deposit        +15 flat
//      A transfer above 500k sats followed by at least two transfers each
//      below 10% of it (deposit then fan-out to bridge relayers).
//
// The summed score is capped at 30.

const (
	bridgeTablePoints   = 10
	bridgeTableCap      = 30
	largeTransferSats   = 1_000_000
	largeTransferPoints = 5
	largeTransferCap    = 20
	splitSourceSats     = 500_000
	splitFraction       = 0.10
	splitMinFollowers   = 2
	splitPoints         = 15
	bridgeScoreCap      = 30
)

// DetectBridge scores cross-chain bridge usage.
func (d *DetectorSet) DetectBridge(txs []models.Transaction) models.DetectorResult {
	result := emptyResult(BridgeName)
	if len(txs) < 2 {
		return result
	}

	// a. known bridge destinations
	if hits := tableHits(txs, d.bridges); len(hits) > 0 {
		points := capScore(hitCount(hits)*bridgeTablePoints, bridgeTableCap)
		result.Score += points
		result.Evidence = append(result.Evidence, hits...)
		result.Evidence = append(result.Evidence, models.IndicatorEvidence{
			Indicator: "known_bridge_destination",
			Detail:    fmt.Sprintf("%d payments to listed bridges", hitCount(hits)),
			Points:    points,
		})
	}

	// b. large single transfers
	large := 0
	for _, tx := range txs {
		if tx.Amount > largeTransferSats {
			large++
			result.Evidence = append(result.Evidence, models.AmountEvidence{
				Amount:    tx.Amount,
				TxHash:    tx.TxHash,
				Threshold: largeTransferSats,
			})
		}
	}
	if large > 0 {
		points := capScore(large*largeTransferPoints, largeTransferCap)
		result.Score += points
		result.Evidence = append(result.Evidence, models.IndicatorEvidence{
			Indicator: "large_transfer",
			Detail:    fmt.Sprintf("%d transfers above %d sats", large, largeTransferSats),
			Points:    points,
		})
	}

	// c. large transfer followed by small splits
	if source, followers, ok := findSplitPattern(timedAscending(txs)); ok {
		result.Score += splitPoints
		result.Evidence = append(result.Evidence, models.IndicatorEvidence{
			Indicator: "split_after_large_transfer",
			Detail:    fmt.Sprintf("%d sats followed by %d transfers under %.0f%% of it", source.Amount, followers, splitFraction*100),
			Points:    splitPoints,
		})
	}

	result.Score = capScore(result.Score, bridgeScoreCap)
	return result
}

// findSplitPattern returns the first transfer above splitSourceSats that is
// followed by at least splitMinFollowers transfers each below splitFraction
// of its amount.
func findSplitPattern(sorted []models.Transaction) (models.Transaction, int, bool) {
	for i, tx := range sorted {
		if tx.Amount <= splitSourceSats {
			continue
		}
		limit := float64(tx.Amount) * splitFraction
		followers := 0
		for _, next := range sorted[i+1:] {
			if float64(next.Amount) < limit {
				followers++
			}
		}
		if followers >= splitMinFollowers {
			return tx, followers, true
		}
	}
	return models.Transaction{}, 0, false
}
