package models

import "time"

// RiskLevel is the policy tier assigned from the raw total score.
type RiskLevel string

const (
	RiskHigh     RiskLevel = "high"
	RiskModerate RiskLevel = "moderate"
	RiskLow      RiskLevel = "low"
)

// ScoreSummary is the composite of all primary detector scores.
type ScoreSummary struct {
	TotalScore   int            `json:"totalScore"`   // Raw sum, used for classification
	DisplayScore int            `json:"displayScore"` // Clipped to 100 for presentation
	RiskLevel    RiskLevel      `json:"riskLevel"`
	Breakdown    map[string]int `json:"breakdown"`
}

// RiskReport is the complete assessment of one address.
type RiskReport struct {
	ID             string           `json:"id"`
	Address        string           `json:"address"`
	GeneratedAt    time.Time        `json:"generatedAt"`
	TxCount        int              `json:"txCount"`
	Summary        ScoreSummary     `json:"summary"`
	Results        []DetectorResult `json:"results"`
	LaunderingRisk DetectorResult   `json:"launderingRisk"` // Unbounded; clip for display
	Stats          ActivityStats    `json:"stats"`
	Scenarios      []ScenarioMatch  `json:"scenarios"`
	Identification *Identification  `json:"identification,omitempty"`
}
