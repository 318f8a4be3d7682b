package heuristics

import (
	"fmt"
	"strings"

	"github.com/rawblock/address-risk-engine/pkg/models"
)

// Strategy names, in identification priority order.
const (
	StrategyGenesisBlock    = "genesis_block"
	StrategyOfficialAddress = "official_address"
	StrategyInvalidAddress  = "invalid_address"
	StrategyExternalLabel   = "external_label"
	StrategyClusterAnalysis = "cluster_analysis"
	StrategyPatternAnalysis = "pattern_analysis"
	StrategyAddressPattern  = "address_pattern"
)

const unknownExchange = "Unknown Exchange"

// Verdict is one identification strategy's opinion about an address.
type Verdict interface {
	Strategy() string
	Result() models.IdentificationResult
}

// GenesisBlock is the fixed verdict for the block-0 coinbase address.
type GenesisBlock struct{}

func (GenesisBlock) Strategy() string { return StrategyGenesisBlock }

func (GenesisBlock) Result() models.IdentificationResult {
	return models.IdentificationResult{
		Confidence:  models.ConfidenceGenesisBlock,
		Method:      models.MethodNone,
		Description: "Genesis block coinbase address; not an exchange",
	}
}

// OfficialMatch is an exact hit in the official exchange table.
type OfficialMatch struct {
	Address string
	Label   models.AddressLabel
}

func (OfficialMatch) Strategy() string { return StrategyOfficialAddress }

func (v OfficialMatch) Result() models.IdentificationResult {
	desc := fmt.Sprintf("Listed %s wallet", v.Label.Label)
	if v.Label.Source != "" {
		desc += " (source: " + v.Label.Source + ")"
	}
	return models.IdentificationResult{
		Exchange:    v.Label.Label,
		Confidence:  models.ConfidenceVeryHigh,
		Method:      models.MethodOfficialAddress,
		Description: desc,
	}
}

// ExternalLabel is a positive answer from the label service.
type ExternalLabel struct {
	Label LabelResult
}

func (ExternalLabel) Strategy() string { return StrategyExternalLabel }

func (v ExternalLabel) Result() models.IdentificationResult {
	exchange := v.Label.Exchange
	if exchange == "" {
		exchange = unknownExchange
	}
	conf := v.Label.Confidence
	if conf != models.ConfidenceHigh {
		conf = models.ConfidenceMedium
	}
	desc := "Labelled by external service"
	if v.Label.Source != "" {
		desc = "Labelled by " + v.Label.Source
	}
	if len(v.Label.Tags) > 0 {
		desc += " [" + strings.Join(v.Label.Tags, ", ") + "]"
	}
	return models.IdentificationResult{
		Exchange:    exchange,
		Confidence:  conf,
		Method:      models.MethodExternalLabel,
		Description: desc,
	}
}

// ClusterHeuristic is a high-likelihood service cluster around the address.
type ClusterHeuristic struct {
	Candidate models.ClusterCandidate
}

func (ClusterHeuristic) Strategy() string { return StrategyClusterAnalysis }

func (v ClusterHeuristic) Result() models.IdentificationResult {
	return models.IdentificationResult{
		Exchange:   unknownExchange,
		Confidence: models.ConfidenceMedium,
		Method:     models.MethodClusterAnalysis,
		Description: fmt.Sprintf("Service-like activity at %s: %d incoming, %d outgoing, avg %.0f sats",
			v.Candidate.Address, v.Candidate.Incoming, v.Candidate.Outgoing, v.Candidate.AvgAmount),
	}
}

// PatternHeuristic is a high-similarity fingerprint match.
type PatternHeuristic struct {
	Match models.ExchangeMatch
}

func (PatternHeuristic) Strategy() string { return StrategyPatternAnalysis }

func (v PatternHeuristic) Result() models.IdentificationResult {
	return models.IdentificationResult{
		Exchange:    v.Match.Exchange,
		Confidence:  models.ConfidenceMedium,
		Method:      models.MethodPatternAnalysis,
		Description: fmt.Sprintf("Transaction pattern resembles %s (%.1f%% similar)", v.Match.Exchange, v.Match.Similarity),
	}
}

// FormatHeuristic is the last-resort guess from the address encoding.
type FormatHeuristic struct {
	Format AddressFormat
}

func (FormatHeuristic) Strategy() string { return StrategyAddressPattern }

func (v FormatHeuristic) Result() models.IdentificationResult {
	r := models.IdentificationResult{
		Confidence: models.ConfidenceLow,
		Method:     models.MethodAddressPattern,
	}
	switch v.Format {
	case FormatP2SH:
		r.Description = "P2SH address; common for custodial wallets (e.g. Upbit, Korean exchanges)"
	case FormatP2PKH:
		r.Description = "Legacy P2PKH address; no exchange indicators"
	case FormatP2WPKH, FormatP2WSH, FormatP2TR, FormatBech32:
		r.Description = "Native SegWit address; no exchange indicators"
	default:
		r.Description = "No exchange indicators"
	}
	return r
}

// Invalid is returned for malformed addresses that are not officially listed.
type Invalid struct {
	Address string
}

func (Invalid) Strategy() string { return StrategyInvalidAddress }

func (Invalid) Result() models.IdentificationResult {
	return models.IdentificationResult{
		Confidence:  models.ConfidenceInvalidAddress,
		Method:      models.MethodNone,
		Description: "Not a valid Bitcoin address",
	}
}
