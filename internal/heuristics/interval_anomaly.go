package heuristics

import (
	"github.com/rawblock/address-risk-engine/pkg/models"
)

// Interval Anomaly Detector
//
// Bursts of transactions less than a minute apart are typical of scripted
// payouts, peel chains and automated laundering. Each short gap is one
// piece of evidence worth 5 points, capped at 25.

const (
	shortIntervalSeconds = 60
	intervalPoints       = 5
	intervalAnomalyCap   = 25
)

// DetectIntervalAnomalies flags consecutive gaps shorter than 60 seconds.
func DetectIntervalAnomalies(txs []models.Transaction) models.DetectorResult {
	result := emptyResult(IntervalAnomalyName)
	if len(txs) < 2 {
		return result
	}

	for _, gap := range consecutiveGaps(timedAscending(txs)) {
		if gap.Seconds < shortIntervalSeconds {
			result.Evidence = append(result.Evidence, gap)
		}
	}

	result.Score = capScore(len(result.Evidence)*intervalPoints, intervalAnomalyCap)
	return result
}
