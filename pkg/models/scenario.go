package models

// ScenarioPattern holds the optional thresholds of a threat-actor template.
// A nil field does not participate in matching.
type ScenarioPattern struct {
	TxCountMin            *int     `json:"tx_count_min,omitempty" yaml:"tx_count_min,omitempty"`
	AvgIntervalMax        *float64 `json:"avg_interval_max,omitempty" yaml:"avg_interval_max,omitempty"`
	ReusedAddressRatioMin *float64 `json:"reused_address_ratio_min,omitempty" yaml:"reused_address_ratio_min,omitempty"`
	HighFeeFlag           *bool    `json:"high_fee_flag,omitempty" yaml:"high_fee_flag,omitempty"`
}

// ScenarioTemplate is a named behavioral template, read-only reference data.
type ScenarioTemplate struct {
	ID          string          `json:"id" yaml:"id"`
	Actor       string          `json:"actor" yaml:"actor"`
	Description string          `json:"description" yaml:"description"`
	Pattern     ScenarioPattern `json:"pattern" yaml:"pattern"`
}

// ActivityStats are the aggregate statistics of a transaction set that
// scenario templates are matched against.
type ActivityStats struct {
	TxCount            int     `json:"tx_count"`
	AvgInterval        float64 `json:"avg_interval"` // seconds
	ReusedAddressRatio float64 `json:"reused_address_ratio"`
	HighFeeFlag        bool    `json:"high_fee_flag"`
}

// ScenarioMatch is one ranked template match.
type ScenarioMatch struct {
	ID          string   `json:"id"`
	Actor       string   `json:"actor"`
	Description string   `json:"description"`
	Similarity  float64  `json:"similarity"` // 0-100
	Log         []string `json:"log"`
}
