package heuristics

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rawblock/address-risk-engine/pkg/models"
)

func intp(v int) *int           { return &v }
func floatp(v float64) *float64 { return &v }
func boolp(v bool) *bool        { return &v }

func TestMatchScenarios_ThresholdMet(t *testing.T) {
	templates := []models.ScenarioTemplate{
		{ID: "lazarus-peel", Actor: "Lazarus", Pattern: models.ScenarioPattern{
			TxCountMin: intp(5), AvgIntervalMax: floatp(120), HighFeeFlag: boolp(true),
		}},
	}
	stats := models.ActivityStats{TxCount: 8, AvgInterval: 60, HighFeeFlag: true}

	matches := MatchScenarios(stats, templates, 0, DefaultScenarioScales())

	require.Len(t, matches, 1)
	assert.InDelta(t, 100, matches[0].Similarity, 1e-9)
	assert.Equal(t, "Lazarus", matches[0].Actor)
	assert.Len(t, matches[0].Log, 3)
}

func TestMatchScenarios_GradedShortfall(t *testing.T) {
	templates := []models.ScenarioTemplate{{ID: "t", Pattern: models.ScenarioPattern{TxCountMin: intp(10)}}}
	matches := MatchScenarios(models.ActivityStats{TxCount: 5}, templates, 0, DefaultScenarioScales())

	require.Len(t, matches, 1)
	// 2/(1+e^(0.2*5))
	assert.InDelta(t, 53.79, matches[0].Similarity, 0.01)
}

func TestMatchScenarios_FilterSkipAndOrder(t *testing.T) {
	templates := []models.ScenarioTemplate{
		{ID: "empty"},
		{ID: "b", Pattern: models.ScenarioPattern{TxCountMin: intp(1)}},
		{ID: "a", Pattern: models.ScenarioPattern{ReusedAddressRatioMin: floatp(0.1)}},
		{ID: "fee", Pattern: models.ScenarioPattern{HighFeeFlag: boolp(true)}},
	}
	stats := models.ActivityStats{TxCount: 3, ReusedAddressRatio: 0.5}

	matches := MatchScenarios(stats, templates, 50, DefaultScenarioScales())

	require.Len(t, matches, 2)
	assert.Equal(t, "a", matches[0].ID)
	assert.Equal(t, "b", matches[1].ID)
}

func TestMatchScenarios_SimilarityInRange(t *testing.T) {
	templates := []models.ScenarioTemplate{{ID: "x", Pattern: models.ScenarioPattern{
		TxCountMin: intp(1000), AvgIntervalMax: floatp(1), ReusedAddressRatioMin: floatp(1), HighFeeFlag: boolp(false),
	}}}
	for _, stats := range []models.ActivityStats{
		{},
		{TxCount: 1, AvgInterval: 9999, HighFeeFlag: true},
		{TxCount: 5000, AvgInterval: 0, ReusedAddressRatio: 1},
	} {
		matches := MatchScenarios(stats, templates, 0, ScenarioScales{})
		require.Len(t, matches, 1)
		assert.GreaterOrEqual(t, matches[0].Similarity, 0.0)
		assert.LessOrEqual(t, matches[0].Similarity, 100.0)
	}
}
