package heuristics

import (
	"math"
	"sort"

	"github.com/rawblock/address-risk-engine/pkg/models"
)

// Amount Outlier Detector
//
// Tukey fence over the address's own amount distribution: anything above
// Q3 + 1.5×IQR is an abnormally large transfer for this address. Quartiles
// use linear interpolation between closest ranks.

const (
	outlierPoints = 5
	outlierCap    = 25
	tukeyFactor   = 1.5
)

// DetectAmountOutliers flags amounts above the upper Tukey fence.
func DetectAmountOutliers(txs []models.Transaction) models.DetectorResult {
	result := emptyResult(AmountOutlierName)
	if len(txs) < 2 {
		return result
	}

	amounts := make([]float64, len(txs))
	for i, tx := range txs {
		amounts[i] = float64(tx.Amount)
	}
	sort.Float64s(amounts)

	q1 := quantile(amounts, 0.25)
	q3 := quantile(amounts, 0.75)
	fence := q3 + tukeyFactor*(q3-q1)

	for _, tx := range txs {
		if float64(tx.Amount) > fence {
			result.Evidence = append(result.Evidence, models.AmountEvidence{
				Amount:    tx.Amount,
				TxHash:    tx.TxHash,
				Threshold: fence,
			})
		}
	}

	result.Score = capScore(len(result.Evidence)*outlierPoints, outlierCap)
	return result
}

// quantile returns the q-th quantile of an ascending slice using linear
// interpolation between closest ranks.
func quantile(sorted []float64, q float64) float64 {
	n := len(sorted)
	if n == 0 {
		return 0
	}
	pos := q * float64(n-1)
	lo := int(math.Floor(pos))
	hi := int(math.Ceil(pos))
	return sorted[lo] + (sorted[hi]-sorted[lo])*(pos-float64(lo))
}
