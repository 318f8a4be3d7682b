package heuristics

import (
	"math"
	"sort"

	"github.com/rawblock/address-risk-engine/pkg/models"
)

// Exchange Cluster Analysis
//
// Service wallets both receive and send at volume. Every address seen in
// the set is tallied by direction; an address touched at least three times
// with activity on both sides becomes a candidate:
//
//   high:   >5 incoming, >5 outgoing, average amount > 0.001 BTC
//   medium: >3 incoming, >3 outgoing
//   low:    anything else that qualified
//
// The overall confidence is the strongest candidate tier.

const (
	clusterMinTouches     = 3
	clusterHighSides      = 5
	clusterMediumSides    = 3
	clusterAvgAmountFloor = 100_000
)

type addressActivity struct {
	incoming int
	outgoing int
	volume   int64
}

// AnalyzeClusters groups a transaction set by address and ranks service-like
// candidates. Candidates are ordered by address.
func AnalyzeClusters(txs []models.Transaction) models.ClusterAnalysis {
	activity := make(map[string]*addressActivity)
	touch := func(addr string) *addressActivity {
		a, ok := activity[addr]
		if !ok {
			a = &addressActivity{}
			activity[addr] = a
		}
		return a
	}

	for _, tx := range txs {
		if tx.To != "" {
			a := touch(tx.To)
			a.incoming++
			a.volume += tx.Amount
		}
		if tx.From != "" {
			a := touch(tx.From)
			a.outgoing++
			a.volume += tx.Amount
		}
	}

	analysis := models.ClusterAnalysis{
		Candidates: []models.ClusterCandidate{},
		Confidence: models.ConfidenceLow,
	}
	for addr, a := range activity {
		touches := a.incoming + a.outgoing
		if touches < clusterMinTouches || a.incoming == 0 || a.outgoing == 0 {
			continue
		}
		avg := float64(a.volume) / float64(touches)
		c := models.ClusterCandidate{
			Address:    addr,
			Incoming:   a.incoming,
			Outgoing:   a.outgoing,
			AvgAmount:  math.Round(avg),
			Likelihood: clusterLikelihood(a.incoming, a.outgoing, avg),
		}
		analysis.Candidates = append(analysis.Candidates, c)
		analysis.Confidence = strongerConfidence(analysis.Confidence, c.Likelihood)
	}
	sort.Slice(analysis.Candidates, func(i, j int) bool {
		return analysis.Candidates[i].Address < analysis.Candidates[j].Address
	})
	return analysis
}

// CandidateFor returns the cluster candidate for addr, if it qualified.
func CandidateFor(analysis models.ClusterAnalysis, addr string) (models.ClusterCandidate, bool) {
	for _, c := range analysis.Candidates {
		if c.Address == addr {
			return c, true
		}
	}
	return models.ClusterCandidate{}, false
}

// StrongestCandidate returns the candidate with the highest likelihood,
// the lowest address winning ties.
func StrongestCandidate(analysis models.ClusterAnalysis) (models.ClusterCandidate, bool) {
	var best models.ClusterCandidate
	found := false
	for _, c := range analysis.Candidates {
		if !found || confidenceRank[c.Likelihood] > confidenceRank[best.Likelihood] {
			best, found = c, true
		}
	}
	return best, found
}

func clusterLikelihood(in, out int, avg float64) models.Confidence {
	switch {
	case in > clusterHighSides && out > clusterHighSides && avg > clusterAvgAmountFloor:
		return models.ConfidenceHigh
	case in > clusterMediumSides && out > clusterMediumSides:
		return models.ConfidenceMedium
	default:
		return models.ConfidenceLow
	}
}

var confidenceRank = map[models.Confidence]int{
	models.ConfidenceLow:      1,
	models.ConfidenceMedium:   2,
	models.ConfidenceHigh:     3,
	models.ConfidenceVeryHigh: 4,
}

func strongerConfidence(a, b models.Confidence) models.Confidence {
	if confidenceRank[b] > confidenceRank[a] {
		return b
	}
	return a
}
