package heuristics

import (
	"fmt"
	"sort"

	"github.com/rawblock/address-risk-engine/pkg/models"
)

// Mixer Usage Detector
//
// Four independent sub-signals, summed:
//   a. Known mixer destinations           +10 per hit, cap 25
//   b. Multi-party shape (≥3 in, ≥3 out) +5 per tx,   cap 20
//      CoinJoin rounds and mixer batches both look like this.
//   c. Repeated identical amounts         +3 per value, cap 15
//      Equal-denomination outputs are the core of every CoinJoin design.
//   d. Rapid-fire cadence                 +10 flat
//      More than half of all consecutive gaps under 30 seconds.
//
// Each sub-score is capped on its own and their sum is capped at 25.
//
// References:
//   - Möser & Böhme, "Anonymous Alone? Measuring Bitcoin's Second-Generation
//     Anonymization Techniques" (EuroS&PW 2017)
//   - Ficsór et al., "WabiSabi" (2021): equal-output structure

const (
	mixerTablePoints   = 10
	mixerTableCap      = 25
	multiPartyMinSides = 3
	multiPartyPoints   = 5
	multiPartyCap      = 20
	repeatAmountPoints = 3
	repeatAmountCap    = 15
	rapidGapSeconds    = 30
	rapidCadencePoints = 10
	mixerScoreCap      = 25
)

// DetectMixer scores mixer usage from reference hits and transaction shape.
func (d *DetectorSet) DetectMixer(txs []models.Transaction) models.DetectorResult {
	result := emptyResult(MixerName)
	if len(txs) < 2 {
		return result
	}

	// a. known mixer destinations
	if hits := tableHits(txs, d.mixers); len(hits) > 0 {
		points := capScore(hitCount(hits)*mixerTablePoints, mixerTableCap)
		result.Score += points
		result.Evidence = append(result.Evidence, hits...)
		result.Evidence = append(result.Evidence, models.IndicatorEvidence{
			Indicator: "known_mixer_destination",
			Detail:    fmt.Sprintf("%d payments to listed mixers", hitCount(hits)),
			Points:    points,
		})
	}

	// b. multi-party transaction shape
	multiParty := 0
	for _, g := range groupByTx(txs) {
		if g.Inputs >= multiPartyMinSides && g.Outputs >= multiPartyMinSides {
			multiParty++
		}
	}
	if multiParty > 0 {
		points := capScore(multiParty*multiPartyPoints, multiPartyCap)
		result.Score += points
		result.Evidence = append(result.Evidence, models.IndicatorEvidence{
			Indicator: "multi_party_transaction",
			Detail:    fmt.Sprintf("%d transactions with ≥%d inputs and ≥%d outputs", multiParty, multiPartyMinSides, multiPartyMinSides),
			Points:    points,
		})
	}

	// c. repeated identical amounts
	if repeated := repeatedAmounts(txs); len(repeated) > 0 {
		points := capScore(len(repeated)*repeatAmountPoints, repeatAmountCap)
		result.Score += points
		for _, amt := range repeated {
			result.Evidence = append(result.Evidence, models.AmountEvidence{Amount: amt})
		}
		result.Evidence = append(result.Evidence, models.IndicatorEvidence{
			Indicator: "repeated_amount",
			Detail:    fmt.Sprintf("%d distinct amounts seen at least twice", len(repeated)),
			Points:    points,
		})
	}

	// d. rapid-fire cadence
	gaps := consecutiveGaps(timedAscending(txs))
	if len(gaps) > 0 {
		rapid := 0
		for _, g := range gaps {
			if g.Seconds < rapidGapSeconds {
				rapid++
			}
		}
		if float64(rapid)/float64(len(gaps)) > 0.5 {
			result.Score += rapidCadencePoints
			result.Evidence = append(result.Evidence, models.IndicatorEvidence{
				Indicator: "rapid_cadence",
				Detail:    fmt.Sprintf("%d of %d gaps under %ds", rapid, len(gaps), rapidGapSeconds),
				Points:    rapidCadencePoints,
			})
		}
	}

	result.Score = capScore(result.Score, mixerScoreCap)
	return result
}

// repeatedAmounts returns the non-zero amounts that occur at least twice,
// ascending.
func repeatedAmounts(txs []models.Transaction) []int64 {
	counts := make(map[int64]int)
	for _, tx := range txs {
		if tx.Amount != 0 {
			counts[tx.Amount]++
		}
	}
	var out []int64
	for amt, n := range counts {
		if n >= 2 {
			out = append(out, amt)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
