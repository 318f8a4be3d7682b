package heuristics

// Exchange Fingerprint Profiles
//
// Hand-tuned behavioral fingerprints of large exchanges. Each profile is
// an expected address-entropy band plus the amount, time and address tags
// its wallets tend to show. These are heuristics, not ground truth: a
// "Binance-like" pattern means the flow resembles Binance's batching
// habits, nothing more.
//
// Observed habits the tags encode:
//   - Binance:  bc1 hot wallets, large batched withdrawals every few minutes
//   - Upbit:    legacy/P2SH custody, KRW-sized amounts, Korean business hours
//   - Coinbase: native SegWit, USD-sized and institutional amounts, US hours
//   - OKX:      mixed formats, large amounts, round-the-clock Asian activity

// Amount tags, matched when the count is non-zero.
const (
	TagRoundNumbers  = "round_numbers"
	TagHighVolume    = "high_volume"
	TagKRWConversion = "krw_conversion"
	TagUSDConversion = "usd_conversion"
	TagInstitutional = "institutional"
)

// Time tags, matched when the ratio exceeds timeTagRatio.
const (
	TagKoreanTimezone    = "korean_timezone"
	TagUSTimezone        = "us_timezone"
	TagAsianTimezone     = "asian_timezone"
	TagBusinessHours     = "business_hours"
	TagContinuousTrading = "continuous_trading"
	TagRegularIntervals  = "regular_intervals"
	TagBatchProcessing   = "batch_processing"
)

// Address tags. Format tags match on a non-zero count, output-structure
// tags when they describe the majority of transactions.
const (
	TagBc1Prefix       = "bc1_prefix"
	TagSegwitFormat    = "segwit_format"
	TagLegacyFormat    = "legacy_format"
	TagP2SHFormat      = "p2sh_format"
	TagMixedFormats    = "mixed_formats"
	TagSingleOutput    = "single_output"
	TagMultipleOutputs = "multiple_outputs"
)

// ExchangeProfile is the static fingerprint of one exchange.
type ExchangeProfile struct {
	Name         string
	EntropyRange [2]float64
	AmountTags   []string
	TimeTags     []string
	AddressTags  []string
}

var exchangeProfiles = []ExchangeProfile{
	{
		Name:         "Binance",
		EntropyRange: [2]float64{3.2, 3.8},
		AmountTags:   []string{TagRoundNumbers, TagHighVolume},
		TimeTags:     []string{TagRegularIntervals, TagBatchProcessing},
		AddressTags:  []string{TagBc1Prefix, TagMultipleOutputs},
	},
	{
		Name:         "Upbit",
		EntropyRange: [2]float64{3.0, 3.6},
		AmountTags:   []string{TagKRWConversion, TagRoundNumbers},
		TimeTags:     []string{TagKoreanTimezone, TagBusinessHours},
		AddressTags:  []string{TagLegacyFormat, TagSingleOutput},
	},
	{
		Name:         "Coinbase",
		EntropyRange: [2]float64{3.4, 3.9},
		AmountTags:   []string{TagUSDConversion, TagInstitutional},
		TimeTags:     []string{TagUSTimezone, TagRegularIntervals},
		AddressTags:  []string{TagSegwitFormat, TagMultipleOutputs},
	},
	{
		Name:         "OKX",
		EntropyRange: [2]float64{3.1, 3.7},
		AmountTags:   []string{TagHighVolume, TagInstitutional},
		TimeTags:     []string{TagAsianTimezone, TagContinuousTrading},
		AddressTags:  []string{TagMixedFormats, TagP2SHFormat},
	},
}

// ExchangeProfiles returns a copy of the built-in fingerprint table.
func ExchangeProfiles() []ExchangeProfile {
	out := make([]ExchangeProfile, len(exchangeProfiles))
	copy(out, exchangeProfiles)
	return out
}
