package heuristics

import (
	"sort"

	"github.com/rawblock/address-risk-engine/pkg/models"
)

// Detector names, also the keys of the report breakdown.
const (
	IntervalAnomalyName = "interval_anomaly"
	AmountOutlierName   = "amount_outlier"
	RepeatedAddressName = "repeated_address"
	TimeGapName         = "time_gap"
	BlacklistName       = "blacklist"
	MixerName           = "mixer"
	BridgeName          = "bridge"
	MoneyLaunderingName = "money_laundering"
)

// DefaultHighVarianceThreshold is the amount variance (sats²) above which
// the money-laundering composite adds its variance points. It corresponds
// to a standard deviation of 0.1 BTC.
const DefaultHighVarianceThreshold = 1e14

// DetectorSet runs the detectors that need reference tables. Tables are
// injected once and never re-read.
type DetectorSet struct {
	denylist          models.AddressBook
	mixers            models.AddressBook
	bridges           models.AddressBook
	highVarianceLimit float64
}

// NewDetectorSet builds a detector set over the given reference tables.
// A non-positive variance threshold selects the default.
func NewDetectorSet(ref models.ReferenceData, highVarianceThreshold float64) *DetectorSet {
	if highVarianceThreshold <= 0 {
		highVarianceThreshold = DefaultHighVarianceThreshold
	}
	return &DetectorSet{
		denylist:          nonNilBook(ref.Denylist),
		mixers:            nonNilBook(ref.Mixers),
		bridges:           nonNilBook(ref.Bridges),
		highVarianceLimit: highVarianceThreshold,
	}
}

// RunAll runs every primary detector in a fixed order. The money-laundering
// composite is not included; it re-counts mixer and bridge.
func (d *DetectorSet) RunAll(txs []models.Transaction) []models.DetectorResult {
	return []models.DetectorResult{
		DetectIntervalAnomalies(txs),
		DetectAmountOutliers(txs),
		DetectRepeatedAddresses(txs),
		DetectTimeGapAnomalies(txs),
		d.DetectBlacklist(txs),
		d.DetectMixer(txs),
		d.DetectBridge(txs),
	}
}

func nonNilBook(b models.AddressBook) models.AddressBook {
	if b == nil {
		return models.AddressBook{}
	}
	return b
}

func emptyResult(name string) models.DetectorResult {
	return models.DetectorResult{Name: name, Evidence: []models.Evidence{}}
}

func capScore(points, limit int) int {
	if points > limit {
		return limit
	}
	return points
}

// timedAscending returns the records that carry a timestamp, sorted
// ascending. The input slice is never reordered.
func timedAscending(txs []models.Transaction) []models.Transaction {
	out := make([]models.Transaction, 0, len(txs))
	for _, tx := range txs {
		if !tx.Timestamp.IsZero() {
			out = append(out, tx)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Timestamp.Before(out[j].Timestamp)
	})
	return out
}

// consecutiveGaps returns the gaps between adjacent records of an
// ascending list.
func consecutiveGaps(sorted []models.Transaction) []models.IntervalEvidence {
	if len(sorted) < 2 {
		return nil
	}
	gaps := make([]models.IntervalEvidence, 0, len(sorted)-1)
	for i := 1; i < len(sorted); i++ {
		gaps = append(gaps, models.IntervalEvidence{
			Seconds: sorted[i].Timestamp.Sub(sorted[i-1].Timestamp).Seconds(),
			FromTx:  sorted[i-1].TxHash,
			ToTx:    sorted[i].TxHash,
		})
	}
	return gaps
}

// txGroup is one parent transaction reassembled from its per-destination
// records.
type txGroup struct {
	Key          string
	Inputs       int
	Outputs      int
	Destinations int
}

// groupByTx reassembles records into parent transactions. Records without
// a hash are keyed by timestamp and sender, which keeps fan-out records of
// the same payment together.
func groupByTx(txs []models.Transaction) []txGroup {
	index := make(map[string]int)
	var groups []txGroup
	dests := make(map[string]map[string]struct{})

	for _, tx := range txs {
		key := tx.TxHash
		if key == "" {
			key = tx.Timestamp.UTC().Format("20060102T150405.000000000") + "|" + tx.From
		}
		i, ok := index[key]
		if !ok {
			i = len(groups)
			index[key] = i
			groups = append(groups, txGroup{Key: key})
			dests[key] = make(map[string]struct{})
		}
		g := &groups[i]
		if tx.NumInputs > g.Inputs {
			g.Inputs = tx.NumInputs
		}
		if tx.NumOutputs > g.Outputs {
			g.Outputs = tx.NumOutputs
		}
		if tx.To != "" {
			dests[key][tx.To] = struct{}{}
		}
	}

	for i := range groups {
		groups[i].Destinations = len(dests[groups[i].Key])
		if groups[i].Destinations > groups[i].Outputs {
			groups[i].Outputs = groups[i].Destinations
		}
	}
	return groups
}
