package heuristics

import (
	"fmt"
	"math"
	"sort"

	"github.com/rawblock/address-risk-engine/pkg/models"
)

// Scenario Matcher
//
// Graded similarity between an address's activity stats and threat-actor
// templates. Each template field present contributes a sub-score in [0,1]:
//
//   threshold met           1
//   shortfall s > 0         2 / (1 + e^(k·s))     (1 at s=0, → 0)
//   fee flag                exact match only
//
// Sub-scores are weighted (tx count 0.3, interval 0.3, reuse 0.2, fee 0.2)
// and renormalized over the fields the template defines, then scaled to
// 0-100. Templates with no fields are skipped.

const (
	scenarioWeightTxCount  = 0.3
	scenarioWeightInterval = 0.3
	scenarioWeightReuse    = 0.2
	scenarioWeightFee      = 0.2
)

// ScenarioScales are the logistic decay rates per field. Larger values
// punish a shortfall faster.
type ScenarioScales struct {
	TxCount     float64 `mapstructure:"tx_count"`
	AvgInterval float64 `mapstructure:"avg_interval"`
	ReusedRatio float64 `mapstructure:"reused_ratio"`
}

// DefaultScenarioScales: half score at ~5.5 missing txs, ~730s excess
// interval, or ~0.22 missing reuse ratio.
func DefaultScenarioScales() ScenarioScales {
	return ScenarioScales{TxCount: 0.2, AvgInterval: 0.0015, ReusedRatio: 5}
}

func (s ScenarioScales) withDefaults() ScenarioScales {
	d := DefaultScenarioScales()
	if s.TxCount <= 0 {
		s.TxCount = d.TxCount
	}
	if s.AvgInterval <= 0 {
		s.AvgInterval = d.AvgInterval
	}
	if s.ReusedRatio <= 0 {
		s.ReusedRatio = d.ReusedRatio
	}
	return s
}

// MatchScenarios ranks templates by similarity to stats, dropping those
// below minSimilarity. Ties are ordered by template ID.
func MatchScenarios(stats models.ActivityStats, templates []models.ScenarioTemplate, minSimilarity float64, scales ScenarioScales) []models.ScenarioMatch {
	scales = scales.withDefaults()
	matches := make([]models.ScenarioMatch, 0, len(templates))

	for _, t := range templates {
		sim, log, ok := scenarioSimilarity(stats, t.Pattern, scales)
		if !ok || sim < minSimilarity {
			continue
		}
		matches = append(matches, models.ScenarioMatch{
			ID:          t.ID,
			Actor:       t.Actor,
			Description: t.Description,
			Similarity:  sim,
			Log:         log,
		})
	}

	sort.SliceStable(matches, func(i, j int) bool {
		if matches[i].Similarity != matches[j].Similarity {
			return matches[i].Similarity > matches[j].Similarity
		}
		return matches[i].ID < matches[j].ID
	})
	return matches
}

func scenarioSimilarity(stats models.ActivityStats, p models.ScenarioPattern, k ScenarioScales) (float64, []string, bool) {
	var score, weight float64
	log := make([]string, 0, 4)

	if p.TxCountMin != nil {
		s := logisticDecay(float64(*p.TxCountMin-stats.TxCount), k.TxCount)
		score += s * scenarioWeightTxCount
		weight += scenarioWeightTxCount
		log = append(log, fmt.Sprintf("tx_count %d vs min %d: %.2f", stats.TxCount, *p.TxCountMin, s))
	}
	if p.AvgIntervalMax != nil {
		s := logisticDecay(stats.AvgInterval-*p.AvgIntervalMax, k.AvgInterval)
		score += s * scenarioWeightInterval
		weight += scenarioWeightInterval
		log = append(log, fmt.Sprintf("avg_interval %.1fs vs max %.1fs: %.2f", stats.AvgInterval, *p.AvgIntervalMax, s))
	}
	if p.ReusedAddressRatioMin != nil {
		s := logisticDecay(*p.ReusedAddressRatioMin-stats.ReusedAddressRatio, k.ReusedRatio)
		score += s * scenarioWeightReuse
		weight += scenarioWeightReuse
		log = append(log, fmt.Sprintf("reused_address_ratio %.2f vs min %.2f: %.2f", stats.ReusedAddressRatio, *p.ReusedAddressRatioMin, s))
	}
	if p.HighFeeFlag != nil {
		s := 0.0
		if stats.HighFeeFlag == *p.HighFeeFlag {
			s = 1
		}
		score += s * scenarioWeightFee
		weight += scenarioWeightFee
		log = append(log, fmt.Sprintf("high_fee_flag %t vs %t: %.2f", stats.HighFeeFlag, *p.HighFeeFlag, s))
	}

	if weight == 0 {
		return 0, nil, false
	}
	sim := score / weight * 100
	sim = math.Max(0, math.Min(100, sim))
	return math.Round(sim*100) / 100, log, true
}

// logisticDecay maps a shortfall to (0,1], equal to 1 when the threshold
// is met.
func logisticDecay(shortfall, k float64) float64 {
	if shortfall <= 0 {
		return 1
	}
	return 2 / (1 + math.Exp(k*shortfall))
}
