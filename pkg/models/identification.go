package models

// Confidence is an ordered qualitative tier plus two terminal
// classifications (genesis_block, invalid_address).
type Confidence string

const (
	ConfidenceVeryHigh       Confidence = "very_high"
	ConfidenceHigh           Confidence = "high"
	ConfidenceMedium         Confidence = "medium"
	ConfidenceLow            Confidence = "low"
	ConfidenceGenesisBlock   Confidence = "genesis_block"
	ConfidenceInvalidAddress Confidence = "invalid_address"
)

// Method names the identification strategy that produced a verdict.
type Method string

const (
	MethodOfficialAddress Method = "official_address"
	MethodExternalLabel   Method = "external_label"
	MethodPatternAnalysis Method = "pattern_analysis"
	MethodClusterAnalysis Method = "cluster_analysis"
	MethodAddressPattern  Method = "address_pattern"
	MethodNone            Method = "none"
)

// IdentificationResult is the final exchange verdict for one address.
type IdentificationResult struct {
	Exchange    string     `json:"exchange,omitempty"` // Empty when no exchange is named
	Confidence  Confidence `json:"confidence"`
	Method      Method     `json:"method"`
	Description string     `json:"description"`
}

// StrategyOutcome records what one identification strategy concluded.
type StrategyOutcome struct {
	Strategy string                `json:"strategy"`
	Applied  bool                  `json:"applied"`  // Strategy produced an opinion
	Selected bool                  `json:"selected"` // Opinion became the final verdict
	Result   *IdentificationResult `json:"result,omitempty"`
	Note     string                `json:"note,omitempty"`
}

// CrossValidation is the weighted vote across independent strategies.
type CrossValidation struct {
	Score      int        `json:"score"`
	Total      int        `json:"total"`
	Ratio      float64    `json:"ratio"`
	Confidence Confidence `json:"confidence"`
	Signals    []string   `json:"signals"`
}

// Identification is the verdict plus the audit trail behind it.
type Identification struct {
	Address         string                `json:"address"`
	Result          IdentificationResult  `json:"result"`
	Trail           []StrategyOutcome     `json:"trail"`
	CrossValidation CrossValidation       `json:"crossValidation"`
	PatternAnalysis *PatternAnalysis      `json:"patternAnalysis,omitempty"`
	ClusterAnalysis *ClusterAnalysis      `json:"clusterAnalysis,omitempty"`
	ExternalLabels  *ExternalLabelSummary `json:"externalLabels,omitempty"`
}

// ExternalLabelSummary is what the label collaborator reported.
type ExternalLabelSummary struct {
	Found      bool       `json:"found"`
	Exchange   string     `json:"exchange,omitempty"`
	Tags       []string   `json:"tags,omitempty"`
	Source     string     `json:"source,omitempty"`
	Confidence Confidence `json:"confidence,omitempty"`
	Error      string     `json:"error,omitempty"`
}

// ExchangeMatch is the similarity of a transaction set to one exchange profile.
type ExchangeMatch struct {
	Exchange   string     `json:"exchange"`
	Similarity float64    `json:"similarity"` // 0-100
	Confidence Confidence `json:"confidence"`
}

// AmountFeatures are amount-distribution counts in satoshis.
type AmountFeatures struct {
	Count         int     `json:"count"`
	Total         int64   `json:"total"`
	Mean          float64 `json:"mean"`
	StdDev        float64 `json:"stdDev"`
	Min           int64   `json:"min"`
	Max           int64   `json:"max"`
	RoundNumbers  int     `json:"roundNumbers"`
	HighVolume    int     `json:"highVolume"`
	KRWConversion int     `json:"krwConversion"`
	USDConversion int     `json:"usdConversion"`
	Institutional int     `json:"institutional"`
}

// TimeFeatures are hour-bucket and inter-arrival ratios.
type TimeFeatures struct {
	Count             int     `json:"count"`
	KoreanTimezone    float64 `json:"koreanTimezone"`
	USTimezone        float64 `json:"usTimezone"`
	AsianTimezone     float64 `json:"asianTimezone"`
	BusinessHours     float64 `json:"businessHours"`
	ContinuousTrading float64 `json:"continuousTrading"`
	RegularIntervals  float64 `json:"regularIntervals"`
	BatchProcessing   float64 `json:"batchProcessing"`
	MeanInterval      float64 `json:"meanInterval"` // seconds
	StdInterval       float64 `json:"stdInterval"`
}

// AddressFeatures are address-format counts and output-structure ratios.
type AddressFeatures struct {
	Total           int     `json:"total"`
	Unique          int     `json:"unique"`
	Bc1Prefix       int     `json:"bc1Prefix"`
	SegwitFormat    int     `json:"segwitFormat"`
	LegacyFormat    int     `json:"legacyFormat"`
	P2SHFormat      int     `json:"p2shFormat"`
	FormatsSeen     int     `json:"formatsSeen"`
	KnownOutputs    int     `json:"knownOutputs"` // Transactions with a known output count
	SingleOutput    float64 `json:"singleOutput"`
	MultipleOutputs float64 `json:"multipleOutputs"`
}

// PatternFeatures are the raw features the fingerprint classifier scores.
type PatternFeatures struct {
	Entropy        float64         `json:"entropy"`        // Mean over destination addresses
	EntropySamples int             `json:"entropySamples"`
	Amount         AmountFeatures  `json:"amount"`
	Time           TimeFeatures    `json:"time"`
	Address        AddressFeatures `json:"address"`
}

// PatternAnalysis is the nearest-fingerprint classification of a set.
type PatternAnalysis struct {
	BestMatch  ExchangeMatch            `json:"bestMatch"`
	AllMatches map[string]ExchangeMatch `json:"allMatches"`
	Features   PatternFeatures          `json:"features"`
}

// ClusterCandidate is an address whose in/out activity looks like a service.
type ClusterCandidate struct {
	Address    string     `json:"address"`
	Incoming   int        `json:"incoming"`
	Outgoing   int        `json:"outgoing"`
	AvgAmount  float64    `json:"avgAmount"` // sats
	Likelihood Confidence `json:"likelihood"`
}

// ClusterAnalysis is the per-address activity grouping.
type ClusterAnalysis struct {
	Candidates []ClusterCandidate `json:"candidates"`
	Confidence Confidence         `json:"confidence"`
}
