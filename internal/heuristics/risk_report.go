package heuristics

import (
	"github.com/rawblock/address-risk-engine/pkg/models"
)

// Composite Risk Scorer
//
// Sums the primary detector scores into one raw total. The raw total
// drives classification so that stacked signals (e.g. denylist + mixer)
// still rank above a lone denylist hit; the display score is clipped to
// 100 for presentation.
//
// Default tiers:
//   high     (≥75)
//   moderate (40-74)
//   low      (<40)

const maxDisplayScore = 100

// RiskPolicy holds the classification cut points.
type RiskPolicy struct {
	HighThreshold     int
	ModerateThreshold int
}

// DefaultRiskPolicy returns the 75/40 policy.
func DefaultRiskPolicy() RiskPolicy {
	return RiskPolicy{HighThreshold: 75, ModerateThreshold: 40}
}

// ComposeReport aggregates detector results into a score summary.
func ComposeReport(results []models.DetectorResult, policy RiskPolicy) models.ScoreSummary {
	summary := models.ScoreSummary{Breakdown: make(map[string]int, len(results))}
	for _, r := range results {
		summary.Breakdown[r.Name] += r.Score
		summary.TotalScore += r.Score
	}
	summary.DisplayScore = ClipForDisplay(summary.TotalScore)
	summary.RiskLevel = ClassifyRisk(summary.TotalScore, policy)
	return summary
}

// ClassifyRisk maps a raw total to a risk tier.
func ClassifyRisk(total int, policy RiskPolicy) models.RiskLevel {
	switch {
	case total >= policy.HighThreshold:
		return models.RiskHigh
	case total >= policy.ModerateThreshold:
		return models.RiskModerate
	default:
		return models.RiskLow
	}
}

// ClipForDisplay bounds a raw score to [0, 100].
func ClipForDisplay(score int) int {
	if score > maxDisplayScore {
		return maxDisplayScore
	}
	if score < 0 {
		return 0
	}
	return score
}
