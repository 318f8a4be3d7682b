package heuristics

import (
	"math"

	"github.com/rawblock/address-risk-engine/pkg/models"
)

// Cross-validation weights. The official table counts double.
const (
	officialVote = 2
	externalVote = 1
	patternVote  = 1
	clusterVote  = 1
)

// crossValidationChecks is the fixed denominator. Checks that did not run
// (no history, no lookup configured) abstain.
const crossValidationChecks = 4

type crossValidationInput struct {
	official bool
	external bool
	pattern  *models.PatternAnalysis
	cluster  bool
}

// crossValidate votes across the official, external, pattern and cluster
// checks. The official table's double vote can push the score past the
// number of checks; the ratio is clamped to 1.
func crossValidate(in crossValidationInput) models.CrossValidation {
	cv := models.CrossValidation{Signals: []string{}, Total: crossValidationChecks}

	if in.official {
		cv.Score += officialVote
		cv.Signals = append(cv.Signals, StrategyOfficialAddress)
	}
	if in.external {
		cv.Score += externalVote
		cv.Signals = append(cv.Signals, StrategyExternalLabel)
	}
	if in.pattern != nil {
		switch in.pattern.BestMatch.Confidence {
		case models.ConfidenceHigh, models.ConfidenceVeryHigh:
			cv.Score += patternVote
			cv.Signals = append(cv.Signals, StrategyPatternAnalysis)
		}
	}
	if in.cluster {
		cv.Score += clusterVote
		cv.Signals = append(cv.Signals, StrategyClusterAnalysis)
	}

	ratio := math.Min(1, float64(cv.Score)/float64(cv.Total))
	cv.Ratio = math.Round(ratio*100) / 100
	cv.Confidence = crossValidationTier(ratio)
	return cv
}

func crossValidationTier(ratio float64) models.Confidence {
	switch {
	case ratio >= 0.75:
		return models.ConfidenceVeryHigh
	case ratio >= 0.5:
		return models.ConfidenceHigh
	case ratio >= 0.25:
		return models.ConfidenceMedium
	default:
		return models.ConfidenceLow
	}
}
