package heuristics

import (
	"fmt"

	"github.com/rawblock/address-risk-engine/pkg/models"
)

// Money-Laundering Composite
//
// Aggregates the mixer and bridge scores with two volume signals:
//   +10 when the history holds more than 10 transactions
//   +15 when the amount variance exceeds the high-variance threshold
//
// The sum is intentionally unbounded. It is a raw severity signal and is
// kept out of the report total (it re-counts mixer and bridge); consumers
// clip it for display.

const (
	launderingVolumeTxs    = 10
	launderingVolumePoints = 10
	launderingVarPoints    = 15
)

// DetectMoneyLaundering returns the unbounded laundering composite.
func (d *DetectorSet) DetectMoneyLaundering(txs []models.Transaction) models.DetectorResult {
	result := emptyResult(MoneyLaunderingName)
	if len(txs) < 2 {
		return result
	}

	mixer := d.DetectMixer(txs)
	bridge := d.DetectBridge(txs)

	if mixer.Score > 0 {
		result.Score += mixer.Score
		result.Evidence = append(result.Evidence, models.IndicatorEvidence{Indicator: MixerName, Points: mixer.Score})
	}
	if bridge.Score > 0 {
		result.Score += bridge.Score
		result.Evidence = append(result.Evidence, models.IndicatorEvidence{Indicator: BridgeName, Points: bridge.Score})
	}

	if len(txs) > launderingVolumeTxs {
		result.Score += launderingVolumePoints
		result.Evidence = append(result.Evidence, models.IndicatorEvidence{
			Indicator: "high_volume",
			Detail:    fmt.Sprintf("%d transactions", len(txs)),
			Points:    launderingVolumePoints,
		})
	}

	if v := amountVariance(txs); v > d.highVarianceLimit {
		result.Score += launderingVarPoints
		result.Evidence = append(result.Evidence, models.IndicatorEvidence{
			Indicator: "high_amount_variance",
			Detail:    fmt.Sprintf("variance %.0f sats² exceeds %.0f", v, d.highVarianceLimit),
			Points:    launderingVarPoints,
		})
	}

	return result
}

// amountVariance is the population variance of amounts in sats².
func amountVariance(txs []models.Transaction) float64 {
	if len(txs) == 0 {
		return 0
	}
	var sum float64
	for _, tx := range txs {
		sum += float64(tx.Amount)
	}
	mean := sum / float64(len(txs))
	var sq float64
	for _, tx := range txs {
		diff := float64(tx.Amount) - mean
		sq += diff * diff
	}
	return sq / float64(len(txs))
}
