package heuristics

import (
	"math"
	"strings"
	"time"

	"github.com/rawblock/address-risk-engine/pkg/models"
)

// Exchange Pattern Analyzer
//
// Nearest-fingerprint classifier. Raw features are extracted once from
// the transaction set, then scored against every profile:
//
//   similarity = matched weight / applicable weight × 100
//
//   entropy in range        0.3
//   amount tags             0.2 shared across the profile's amount tags
//   time tags               0.2 shared across its time tags
//   address tags            0.1 shared across its address tags
//
// A check is applicable only when its feature group has data (time checks
// need two timestamps, output-structure checks need a known output count),
// so sparse histories are not penalized for what they cannot show.
//
// Tiers: >70 high, >50 medium, else low. Heuristic only.

const (
	entropyWeight = 0.3
	amountWeight  = 0.2
	timeWeight    = 0.2
	addressWeight = 0.1

	timeTagRatio      = 0.3
	outputMajority    = 0.5
	highSimilarity    = 70
	mediumSimilarity  = 50
	roundAmountSats   = 100_000       // 0.001 BTC
	highVolumeSats    = 100_000_000   // 1 BTC
	institutionalSats = 1_000_000_000 // 10 BTC
	regularGapMin     = 30
	regularGapMax     = 300
	batchGapMax       = 60
)

// Currency-conversion bands, in sats.
var (
	krwBand = [2]int64{45_000_000, 55_000_000}
	usdBand = [2]int64{35_000_000, 45_000_000}
)

var (
	zoneKST     = time.FixedZone("UTC+9", 9*3600)
	zoneUSEast  = time.FixedZone("UTC-5", -5*3600)
	zoneAsiaCST = time.FixedZone("UTC+8", 8*3600)
)

// AnalyzeExchangePatterns scores a transaction set against every profile.
func AnalyzeExchangePatterns(txs []models.Transaction) models.PatternAnalysis {
	analysis := models.PatternAnalysis{
		BestMatch:  models.ExchangeMatch{Confidence: models.ConfidenceLow},
		AllMatches: make(map[string]models.ExchangeMatch, len(exchangeProfiles)),
	}
	if len(txs) == 0 {
		return analysis
	}

	analysis.Features = ExtractPatternFeatures(txs)

	best := -1.0
	for _, p := range exchangeProfiles {
		sim := profileSimilarity(p, analysis.Features)
		match := models.ExchangeMatch{
			Exchange:   p.Name,
			Similarity: math.Round(sim*100) / 100,
			Confidence: similarityTier(sim),
		}
		analysis.AllMatches[p.Name] = match
		if sim > best {
			best = sim
			analysis.BestMatch = match
		}
	}
	return analysis
}

func similarityTier(sim float64) models.Confidence {
	switch {
	case sim > highSimilarity:
		return models.ConfidenceHigh
	case sim > mediumSimilarity:
		return models.ConfidenceMedium
	default:
		return models.ConfidenceLow
	}
}

func profileSimilarity(p ExchangeProfile, f models.PatternFeatures) float64 {
	var matched, applicable float64

	if f.EntropySamples > 0 {
		applicable += entropyWeight
		if f.Entropy >= p.EntropyRange[0] && f.Entropy <= p.EntropyRange[1] {
			matched += entropyWeight
		}
	}

	score := func(tags []string, groupWeight float64, eval func(string) (hit, ok bool)) {
		if len(tags) == 0 {
			return
		}
		w := groupWeight / float64(len(tags))
		for _, tag := range tags {
			hit, ok := eval(tag)
			if !ok {
				continue
			}
			applicable += w
			if hit {
				matched += w
			}
		}
	}
	score(p.AmountTags, amountWeight, func(tag string) (bool, bool) { return amountTagMatch(f.Amount, tag) })
	score(p.TimeTags, timeWeight, func(tag string) (bool, bool) { return timeTagMatch(f.Time, tag) })
	score(p.AddressTags, addressWeight, func(tag string) (bool, bool) { return addressTagMatch(f.Address, tag) })

	if applicable == 0 {
		return 0
	}
	return matched / applicable * 100
}

func amountTagMatch(f models.AmountFeatures, tag string) (hit, ok bool) {
	if f.Count == 0 {
		return false, false
	}
	switch tag {
	case TagRoundNumbers:
		return f.RoundNumbers > 0, true
	case TagHighVolume:
		return f.HighVolume > 0, true
	case TagKRWConversion:
		return f.KRWConversion > 0, true
	case TagUSDConversion:
		return f.USDConversion > 0, true
	case TagInstitutional:
		return f.Institutional > 0, true
	}
	return false, false
}

func timeTagMatch(f models.TimeFeatures, tag string) (hit, ok bool) {
	if f.Count < 2 {
		return false, false
	}
	var ratio float64
	switch tag {
	case TagKoreanTimezone:
		ratio = f.KoreanTimezone
	case TagUSTimezone:
		ratio = f.USTimezone
	case TagAsianTimezone:
		ratio = f.AsianTimezone
	case TagBusinessHours:
		ratio = f.BusinessHours
	case TagContinuousTrading:
		ratio = f.ContinuousTrading
	case TagRegularIntervals:
		ratio = f.RegularIntervals
	case TagBatchProcessing:
		ratio = f.BatchProcessing
	default:
		return false, false
	}
	return ratio > timeTagRatio, true
}

func addressTagMatch(f models.AddressFeatures, tag string) (hit, ok bool) {
	switch tag {
	case TagSingleOutput:
		if f.KnownOutputs == 0 {
			return false, false
		}
		return f.SingleOutput > outputMajority, true
	case TagMultipleOutputs:
		if f.KnownOutputs == 0 {
			return false, false
		}
		return f.MultipleOutputs > outputMajority, true
	}
	if f.Total == 0 {
		return false, false
	}
	switch tag {
	case TagBc1Prefix:
		return f.Bc1Prefix > 0, true
	case TagSegwitFormat:
		return f.SegwitFormat > 0, true
	case TagLegacyFormat:
		return f.LegacyFormat > 0, true
	case TagP2SHFormat:
		return f.P2SHFormat > 0, true
	case TagMixedFormats:
		return f.FormatsSeen >= 2, true
	}
	return false, false
}

// ExtractPatternFeatures computes the raw features of a transaction set.
func ExtractPatternFeatures(txs []models.Transaction) models.PatternFeatures {
	f := models.PatternFeatures{
		Amount:  amountFeatures(txs),
		Time:    timeFeatures(txs),
		Address: addressFeatures(txs),
	}

	var sum float64
	for _, tx := range txs {
		if tx.To != "" {
			sum += AddressEntropy(tx.To)
			f.EntropySamples++
		}
	}
	if f.EntropySamples > 0 {
		f.Entropy = math.Round(sum/float64(f.EntropySamples)*1000) / 1000
	}
	return f
}

// AddressEntropy is the Shannon entropy of an address's character
// distribution: H = -Σ p(c) · log₂ p(c).
func AddressEntropy(addr string) float64 {
	if addr == "" {
		return 0
	}
	counts := make(map[rune]int)
	total := 0
	for _, r := range addr {
		counts[r]++
		total++
	}
	entropy := 0.0
	for _, n := range counts {
		p := float64(n) / float64(total)
		entropy -= p * math.Log2(p)
	}
	return entropy
}

func amountFeatures(txs []models.Transaction) models.AmountFeatures {
	var f models.AmountFeatures
	var values []float64
	for _, tx := range txs {
		amt := tx.Amount
		if amt <= 0 {
			continue
		}
		if f.Count == 0 || amt < f.Min {
			f.Min = amt
		}
		if amt > f.Max {
			f.Max = amt
		}
		f.Count++
		f.Total += amt
		values = append(values, float64(amt))

		if amt%roundAmountSats == 0 {
			f.RoundNumbers++
		}
		if amt > highVolumeSats {
			f.HighVolume++
		}
		if amt >= institutionalSats {
			f.Institutional++
		}
		if amt >= krwBand[0] && amt <= krwBand[1] {
			f.KRWConversion++
		}
		if amt >= usdBand[0] && amt <= usdBand[1] {
			f.USDConversion++
		}
	}
	f.Mean, f.StdDev = meanStd(values)
	return f
}

func timeFeatures(txs []models.Transaction) models.TimeFeatures {
	sorted := timedAscending(txs)
	f := models.TimeFeatures{Count: len(sorted)}
	if len(sorted) < 2 {
		return f
	}

	var korean, us, asian, business int
	hours := make(map[int]struct{})
	for _, tx := range sorted {
		ts := tx.Timestamp
		if inBusinessHours(ts.In(zoneKST)) {
			korean++
			if wd := ts.In(zoneKST).Weekday(); wd >= time.Monday && wd <= time.Friday {
				business++
			}
		}
		if inBusinessHours(ts.In(zoneUSEast)) {
			us++
		}
		if inBusinessHours(ts.In(zoneAsiaCST)) {
			asian++
		}
		hours[ts.UTC().Hour()] = struct{}{}
	}
	n := float64(len(sorted))
	f.KoreanTimezone = ratio2(float64(korean) / n)
	f.USTimezone = ratio2(float64(us) / n)
	f.AsianTimezone = ratio2(float64(asian) / n)
	f.BusinessHours = ratio2(float64(business) / n)
	f.ContinuousTrading = ratio2(float64(len(hours)) / 24)

	gaps := consecutiveGaps(sorted)
	secs := make([]float64, len(gaps))
	var regular, batch int
	for i, g := range gaps {
		secs[i] = g.Seconds
		if g.Seconds >= regularGapMin && g.Seconds <= regularGapMax {
			regular++
		}
		if g.Seconds < batchGapMax {
			batch++
		}
	}
	f.RegularIntervals = ratio2(float64(regular) / float64(len(gaps)))
	f.BatchProcessing = ratio2(float64(batch) / float64(len(gaps)))
	f.MeanInterval, f.StdInterval = meanStd(secs)
	return f
}

// inBusinessHours reports 09:00-18:59 local time.
func inBusinessHours(t time.Time) bool {
	h := t.Hour()
	return h >= 9 && h <= 18
}

func addressFeatures(txs []models.Transaction) models.AddressFeatures {
	var f models.AddressFeatures
	unique := make(map[string]struct{})
	families := make(map[string]struct{})

	for _, tx := range txs {
		for _, addr := range []string{tx.To, tx.From} {
			if addr == "" {
				continue
			}
			f.Total++
			unique[addr] = struct{}{}
			switch {
			case strings.HasPrefix(addr, "bc1"):
				f.Bc1Prefix++
				if strings.HasPrefix(addr, "bc1q") {
					f.SegwitFormat++
					families["segwit"] = struct{}{}
				} else {
					families["taproot"] = struct{}{}
				}
			case strings.HasPrefix(addr, "3"):
				f.LegacyFormat++
				f.P2SHFormat++
				families["p2sh"] = struct{}{}
			case strings.HasPrefix(addr, "1"):
				f.LegacyFormat++
				families["p2pkh"] = struct{}{}
			}
		}
	}
	f.Unique = len(unique)
	f.FormatsSeen = len(families)

	var single, multiple int
	for _, g := range groupByTx(txs) {
		if g.Outputs == 0 {
			continue
		}
		f.KnownOutputs++
		if g.Outputs == 1 {
			single++
		} else {
			multiple++
		}
	}
	if f.KnownOutputs > 0 {
		f.SingleOutput = ratio2(float64(single) / float64(f.KnownOutputs))
		f.MultipleOutputs = ratio2(float64(multiple) / float64(f.KnownOutputs))
	}
	return f
}

func meanStd(values []float64) (mean, std float64) {
	if len(values) == 0 {
		return 0, 0
	}
	for _, v := range values {
		mean += v
	}
	mean /= float64(len(values))
	for _, v := range values {
		d := v - mean
		std += d * d
	}
	std = math.Sqrt(std / float64(len(values)))
	return mean, std
}

func ratio2(v float64) float64 {
	return math.Round(v*100) / 100
}
