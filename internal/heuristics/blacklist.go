package heuristics

import (
	"sort"

	"github.com/rawblock/address-risk-engine/pkg/models"
)

// Denylist Detector
//
// Binary: a single payment to a sanctioned or known-bad address is enough
// to mark the whole history. Score is 100 on any hit, 0 otherwise.

const blacklistScore = 100

// DetectBlacklist flags destinations present in the denylist.
func (d *DetectorSet) DetectBlacklist(txs []models.Transaction) models.DetectorResult {
	result := emptyResult(BlacklistName)
	if len(txs) < 2 || len(d.denylist) == 0 {
		return result
	}

	hits := tableHits(txs, d.denylist)
	if len(hits) == 0 {
		return result
	}
	result.Evidence = hits
	result.Score = blacklistScore
	return result
}

// tableHits returns one evidence item per listed destination, with the
// number of records paying it. Order is by address for stable output.
func tableHits(txs []models.Transaction, book models.AddressBook) []models.Evidence {
	counts := make(map[string]int)
	for _, tx := range txs {
		if _, ok := book.Lookup(tx.To); ok {
			counts[tx.To]++
		}
	}
	addrs := make([]string, 0, len(counts))
	for addr := range counts {
		addrs = append(addrs, addr)
	}
	sort.Strings(addrs)

	hits := make([]models.Evidence, 0, len(addrs))
	for _, addr := range addrs {
		label := book[addr]
		hits = append(hits, models.AddressEvidence{
			Address: addr,
			Count:   counts[addr],
			Label:   label.Label,
			Source:  label.Source,
		})
	}
	return hits
}

func hitCount(hits []models.Evidence) int {
	n := 0
	for _, h := range hits {
		if a, ok := h.(models.AddressEvidence); ok {
			n += a.Count
		}
	}
	return n
}
