package heuristics

import (
	"github.com/rawblock/address-risk-engine/pkg/models"
)

// Activity Statistics
//
// The four aggregates that threat-actor scenario templates are written
// against. avg_interval defaults to 9999s when there is no gap to measure,
// so a single-transaction history never satisfies an interval ceiling.

const (
	noIntervalSeconds = 9999
	highFeeSats       = 500
)

// ComputeActivityStats derives scenario statistics from normalized records.
func ComputeActivityStats(txs []models.Transaction) models.ActivityStats {
	stats := models.ActivityStats{
		TxCount:     len(txs),
		AvgInterval: noIntervalSeconds,
	}

	if gaps := consecutiveGaps(timedAscending(txs)); len(gaps) > 0 {
		var sum float64
		for _, g := range gaps {
			sum += g.Seconds
		}
		stats.AvgInterval = sum / float64(len(gaps))
	}

	total := 0
	unique := make(map[string]struct{})
	for _, tx := range txs {
		if tx.To != "" {
			total++
			unique[tx.To] = struct{}{}
		}
		if tx.Fee > highFeeSats {
			stats.HighFeeFlag = true
		}
	}
	if total > 0 {
		stats.ReusedAddressRatio = 1 - float64(len(unique))/float64(total)
	}

	return stats
}
