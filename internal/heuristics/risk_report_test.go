package heuristics

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/rawblock/address-risk-engine/pkg/models"
)

func TestComposeReport(t *testing.T) {
	summary := ComposeReport([]models.DetectorResult{
		{Name: BlacklistName, Score: 100},
		{Name: MixerName, Score: 25},
		{Name: BridgeName},
	}, DefaultRiskPolicy())

	assert.Equal(t, 125, summary.TotalScore)
	assert.Equal(t, 100, summary.DisplayScore)
	assert.Equal(t, models.RiskHigh, summary.RiskLevel)
	assert.Equal(t, map[string]int{BlacklistName: 100, MixerName: 25, BridgeName: 0}, summary.Breakdown)
}

func TestClassifyRisk_Boundaries(t *testing.T) {
	p := DefaultRiskPolicy()
	cases := []struct {
		total int
		want  models.RiskLevel
	}{
		{0, models.RiskLow},
		{39, models.RiskLow},
		{40, models.RiskModerate},
		{74, models.RiskModerate},
		{75, models.RiskHigh},
		{300, models.RiskHigh},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, ClassifyRisk(tc.total, p), "total=%d", tc.total)
	}

	custom := RiskPolicy{HighThreshold: 50, ModerateThreshold: 10}
	assert.Equal(t, models.RiskHigh, ClassifyRisk(50, custom))
}

func TestClipForDisplay(t *testing.T) {
	assert.Equal(t, 100, ClipForDisplay(250))
	assert.Equal(t, 0, ClipForDisplay(-5))
	assert.Equal(t, 42, ClipForDisplay(42))
}

func TestComputeActivityStats(t *testing.T) {
	a := txAt(0, 1, "A")
	b := txAt(60, 2, "A")
	c := txAt(180, 3, "B")
	c.Fee = 600

	stats := ComputeActivityStats([]models.Transaction{c, a, b})
	assert.Equal(t, 3, stats.TxCount)
	assert.InDelta(t, 90, stats.AvgInterval, 1e-9)
	assert.InDelta(t, 1.0/3, stats.ReusedAddressRatio, 1e-9)
	assert.True(t, stats.HighFeeFlag)

	single := ComputeActivityStats([]models.Transaction{a})
	assert.Equal(t, float64(noIntervalSeconds), single.AvgInterval)
	assert.Zero(t, single.ReusedAddressRatio)
	assert.False(t, single.HighFeeFlag)
}
