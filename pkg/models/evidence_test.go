package models

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDetectorResult_EvidenceKindsSurviveArchive(t *testing.T) {
	in := DetectorResult{
		Name:  "mixer",
		Score: 55,
		Evidence: []Evidence{
			AddressEvidence{Address: "bc1qmix", Count: 2, Label: "Wasabi"},
			IndicatorEvidence{Indicator: "equal_outputs", Points: 15},
		},
	}

	raw, err := json.Marshal(in)
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"kind":"address"`)

	var out DetectorResult
	require.NoError(t, json.Unmarshal(raw, &out))
	assert.Equal(t, in, out)
}

func TestDetectorResult_UnknownKindSkipped(t *testing.T) {
	var out DetectorResult
	raw := `{"name":"x","score":1,"evidence":[{"kind":"future","data":{}},{"kind":"amount","data":{"amount":5}}]}`
	require.NoError(t, json.Unmarshal([]byte(raw), &out))
	require.Len(t, out.Evidence, 1)
	assert.Equal(t, AmountEvidence{Amount: 5}, out.Evidence[0])
}
