package heuristics

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/rawblock/address-risk-engine/pkg/models"
)

// Exchange Identifier
//
// Multi-strategy attribution of an address to an exchange. Strategies in
// priority order:
//
//   1. genesis block       fixed verdict, nothing else runs
//   2. official address    exact table hit              very_high
//   3. invalid address     malformed and not listed     no network call
//   4. external label      label service                high/medium
//   5. cluster analysis    service-like in/out activity medium
//   6. pattern analysis    fingerprint similarity > 70  medium
//   7. address pattern     encoding only                low
//
// Every strategy is evaluated and recorded in the trail so the reasoning
// behind a verdict can be audited; the first one with an opinion wins.

// DefaultLabelTimeout bounds a single external label lookup.
const DefaultLabelTimeout = 12 * time.Second

// LabelLookup queries an external address-labelling service.
type LabelLookup interface {
	LookupLabels(ctx context.Context, address string) (LabelResult, error)
}

// LabelResult is the answer of a label service.
type LabelResult struct {
	Found      bool
	Exchange   string
	Tags       []string
	Source     string
	Confidence models.Confidence
}

// IdentifierOption configures an ExchangeIdentifier.
type IdentifierOption func(*ExchangeIdentifier)

// WithLabelLookup enables the external label strategy. A non-positive
// timeout falls back to DefaultLabelTimeout.
func WithLabelLookup(l LabelLookup, timeout time.Duration) IdentifierOption {
	return func(ei *ExchangeIdentifier) {
		ei.labels = l
		if timeout > 0 {
			ei.labelTimeout = timeout
		}
	}
}

// WithIdentifierLogger sets the logger used for lookup failures.
func WithIdentifierLogger(log *zap.Logger) IdentifierOption {
	return func(ei *ExchangeIdentifier) {
		if log != nil {
			ei.log = log
		}
	}
}

// ExchangeIdentifier attributes addresses to exchanges. It holds only
// read-only tables and is safe for concurrent use.
type ExchangeIdentifier struct {
	official     models.AddressBook
	labels       LabelLookup
	labelTimeout time.Duration
	log          *zap.Logger
}

// NewExchangeIdentifier builds an identifier over the given official
// table. Pass the result of OfficialExchangeBook to include the curated
// wallets.
func NewExchangeIdentifier(official models.AddressBook, opts ...IdentifierOption) *ExchangeIdentifier {
	ei := &ExchangeIdentifier{
		official:     nonNilBook(official),
		labelTimeout: DefaultLabelTimeout,
		log:          zap.NewNop(),
	}
	for _, opt := range opts {
		opt(ei)
	}
	return ei
}

type candidate struct {
	strategy string
	verdict  Verdict
	note     string
}

// Identify attributes address to an exchange. txs is the address's
// history and may be empty, in which case the cluster and pattern
// strategies are skipped.
func (ei *ExchangeIdentifier) Identify(ctx context.Context, address string, txs []models.Transaction) models.Identification {
	address = strings.TrimSpace(address)
	id := models.Identification{
		Address: address,
		Trail:   []models.StrategyOutcome{},
	}

	if address == GenesisAddress {
		v := GenesisBlock{}
		r := v.Result()
		id.Result = r
		id.Trail = append(id.Trail, models.StrategyOutcome{
			Strategy: v.Strategy(), Applied: true, Selected: true, Result: &r,
		})
		id.CrossValidation = models.CrossValidation{
			Confidence: models.ConfidenceGenesisBlock,
			Signals:    []string{},
		}
		return id
	}

	var official Verdict
	if label, ok := ei.official.Lookup(address); ok {
		official = OfficialMatch{Address: address, Label: label}
	}

	if official == nil && !IsValidAddress(address) {
		v := Invalid{Address: address}
		r := v.Result()
		id.Result = r
		id.Trail = append(id.Trail,
			models.StrategyOutcome{Strategy: StrategyOfficialAddress, Note: "not listed"},
			models.StrategyOutcome{Strategy: v.Strategy(), Applied: true, Selected: true, Result: &r},
		)
		id.CrossValidation = models.CrossValidation{
			Confidence: models.ConfidenceInvalidAddress,
			Signals:    []string{},
		}
		return id
	}

	external, extNote := ei.lookupExternal(ctx, address, &id)

	var cluster, pattern Verdict
	var clusterNote, patternNote string
	if len(txs) > 0 {
		ca := AnalyzeClusters(txs)
		id.ClusterAnalysis = &ca
		c, ok := CandidateFor(ca, address)
		if !ok {
			c, ok = StrongestCandidate(ca)
		}
		switch {
		case !ok:
			clusterNote = "no cluster candidates"
		case c.Likelihood == models.ConfidenceHigh:
			cluster = ClusterHeuristic{Candidate: c}
		default:
			clusterNote = fmt.Sprintf("candidate %s likelihood %s", c.Address, c.Likelihood)
		}

		pa := AnalyzeExchangePatterns(txs)
		id.PatternAnalysis = &pa
		if pa.BestMatch.Confidence == models.ConfidenceHigh {
			pattern = PatternHeuristic{Match: pa.BestMatch}
		} else {
			patternNote = fmt.Sprintf("best match %s at %.1f%%", pa.BestMatch.Exchange, pa.BestMatch.Similarity)
		}
	} else {
		clusterNote = "no transactions supplied"
		patternNote = "no transactions supplied"
	}

	var format Verdict
	if IsValidAddress(address) {
		format = FormatHeuristic{Format: ClassifyAddress(address)}
	}

	officialNote := ""
	if official == nil {
		officialNote = "not listed"
	}
	ordered := []candidate{
		{StrategyOfficialAddress, official, officialNote},
		{StrategyExternalLabel, external, extNote},
		{StrategyClusterAnalysis, cluster, clusterNote},
		{StrategyPatternAnalysis, pattern, patternNote},
		{StrategyAddressPattern, format, ""},
	}

	selected := false
	for _, c := range ordered {
		outcome := models.StrategyOutcome{Strategy: c.strategy, Note: c.note}
		if c.verdict != nil {
			r := c.verdict.Result()
			outcome.Applied = true
			outcome.Result = &r
			if !selected {
				outcome.Selected = true
				id.Result = r
				selected = true
			}
		}
		id.Trail = append(id.Trail, outcome)
	}

	id.CrossValidation = crossValidate(crossValidationInput{
		official: official != nil,
		external: external != nil,
		pattern:  id.PatternAnalysis,
		cluster:  cluster != nil,
	})
	return id
}

type lookupReply struct {
	res LabelResult
	err error
}

// lookupExternal runs the label lookup under the configured timeout. Any
// failure is treated as "not found" and noted in the trail.
func (ei *ExchangeIdentifier) lookupExternal(ctx context.Context, address string, id *models.Identification) (Verdict, string) {
	if ei.labels == nil {
		return nil, "no label lookup configured"
	}

	lctx, cancel := context.WithTimeout(ctx, ei.labelTimeout)
	defer cancel()

	ch := make(chan lookupReply, 1)
	go func() {
		res, err := ei.labels.LookupLabels(lctx, address)
		ch <- lookupReply{res: res, err: err}
	}()

	var rep lookupReply
	select {
	case rep = <-ch:
	case <-lctx.Done():
		rep.err = lctx.Err()
	}

	if rep.err != nil {
		note := "lookup failed: " + rep.err.Error()
		if errors.Is(rep.err, context.DeadlineExceeded) {
			note = fmt.Sprintf("lookup timed out after %s", ei.labelTimeout)
		}
		ei.log.Warn("label lookup failed, treating as not found",
			zap.String("address", address), zap.Error(rep.err))
		id.ExternalLabels = &models.ExternalLabelSummary{Error: rep.err.Error()}
		return nil, note
	}

	res := rep.res
	id.ExternalLabels = &models.ExternalLabelSummary{
		Found:      res.Found,
		Exchange:   res.Exchange,
		Tags:       res.Tags,
		Source:     res.Source,
		Confidence: res.Confidence,
	}
	if !res.Found {
		return nil, "no label found"
	}
	return ExternalLabel{Label: res}, ""
}
