package heuristics

import (
	"github.com/rawblock/address-risk-engine/pkg/models"
)

// Time Gap Anomaly Detector
//
// Flags both extremes of the inter-arrival distribution: gaps under 10s
// (machine bursts) and gaps over an hour (dormancy followed by sudden
// activity). 5 points per gap, capped at 15.

const (
	burstGapSeconds   = 10
	silenceGapSeconds = 3600
	timeGapPoints     = 5
	timeGapCap        = 15
)

// DetectTimeGapAnomalies flags gaps under 10 seconds or over one hour.
func DetectTimeGapAnomalies(txs []models.Transaction) models.DetectorResult {
	result := emptyResult(TimeGapName)
	if len(txs) < 2 {
		return result
	}

	for _, gap := range consecutiveGaps(timedAscending(txs)) {
		if gap.Seconds < burstGapSeconds || gap.Seconds > silenceGapSeconds {
			result.Evidence = append(result.Evidence, gap)
		}
	}

	result.Score = capScore(len(result.Evidence)*timeGapPoints, timeGapCap)
	return result
}
