package db

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rawblock/address-risk-engine/pkg/models"
)

func TestPageBounds(t *testing.T) {
	tests := []struct {
		name        string
		page, limit int
		wantLimit   int
		wantOffset  int
	}{
		{"defaults", 0, 0, defaultPageSize, 0},
		{"third page", 3, 20, 20, 40},
		{"limit too large", 1, 10000, defaultPageSize, 0},
		{"negative page", -4, 10, 10, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			limit, offset := pageBounds(tt.page, tt.limit)
			assert.Equal(t, tt.wantLimit, limit)
			assert.Equal(t, tt.wantOffset, offset)
		})
	}
}

func TestDecodeReport(t *testing.T) {
	report := models.RiskReport{
		ID:          "6f1c2d4e-0000-4000-8000-000000000001",
		Address:     "bc1qar0srrr7xfkvy5l643lydnw9re59gtzzwf5mdq",
		GeneratedAt: time.Date(2024, 3, 4, 1, 0, 0, 0, time.UTC),
		TxCount:     4,
		Summary:     models.ScoreSummary{TotalScore: 120, DisplayScore: 100, RiskLevel: models.RiskHigh},
		Results: []models.DetectorResult{{
			Name:     "blacklist",
			Score:    100,
			Evidence: []models.Evidence{models.AddressEvidence{Address: "12QtD5BFwRsdNsAZY76UVE1xyCGNTojH9h", Count: 1}},
		}},
		LaunderingRisk: models.DetectorResult{Name: "money_laundering", Evidence: []models.Evidence{}},
		Scenarios:      []models.ScenarioMatch{},
		Identification: &models.Identification{Result: models.IdentificationResult{Exchange: "Binance"}},
	}
	doc, err := json.Marshal(report)
	require.NoError(t, err)

	got, err := decodeReport(doc)
	require.NoError(t, err)
	assert.Equal(t, report.Results, got.Results)
	assert.Equal(t, report.Summary, got.Summary)
	assert.Equal(t, "Binance", reportExchange(got))

	_, err = decodeReport([]byte(`{`))
	assert.Error(t, err)
}

func TestNullableString(t *testing.T) {
	assert.Nil(t, nullableString(""))
	require.NotNil(t, nullableString("Upbit"))
	assert.Equal(t, "Upbit", *nullableString("Upbit"))
}
