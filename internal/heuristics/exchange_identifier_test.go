package heuristics

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rawblock/address-risk-engine/pkg/models"
)

type fakeLabels struct {
	res   LabelResult
	err   error
	block bool
	calls int32
}

func (f *fakeLabels) LookupLabels(ctx context.Context, _ string) (LabelResult, error) {
	atomic.AddInt32(&f.calls, 1)
	if f.block {
		<-ctx.Done()
		return LabelResult{}, ctx.Err()
	}
	return f.res, f.err
}

func trailEntry(t *testing.T, id models.Identification, strategy string) models.StrategyOutcome {
	t.Helper()
	for _, o := range id.Trail {
		if o.Strategy == strategy {
			return o
		}
	}
	t.Fatalf("strategy %s missing from trail", strategy)
	return models.StrategyOutcome{}
}

func TestIdentify_GenesisShortCircuits(t *testing.T) {
	labels := &fakeLabels{res: LabelResult{Found: true, Exchange: "Binance"}}
	ei := NewExchangeIdentifier(OfficialExchangeBook(nil), WithLabelLookup(labels, time.Second))

	id := ei.Identify(context.Background(), GenesisAddress, nil)

	assert.Equal(t, models.ConfidenceGenesisBlock, id.Result.Confidence)
	assert.Equal(t, models.MethodNone, id.Result.Method)
	assert.Empty(t, id.Result.Exchange)
	assert.Len(t, id.Trail, 1)
	assert.Zero(t, atomic.LoadInt32(&labels.calls))
}

func TestIdentify_InvalidAddressSkipsNetwork(t *testing.T) {
	labels := &fakeLabels{}
	ei := NewExchangeIdentifier(OfficialExchangeBook(nil), WithLabelLookup(labels, time.Second))

	id := ei.Identify(context.Background(), "0xdeadbeef", nil)

	assert.Equal(t, models.ConfidenceInvalidAddress, id.Result.Confidence)
	assert.Equal(t, models.MethodNone, id.Result.Method)
	assert.Zero(t, atomic.LoadInt32(&labels.calls))
}

func TestIdentify_OfficialBeatsExternalLabel(t *testing.T) {
	labels := &fakeLabels{res: LabelResult{Found: true, Exchange: "Coinbase", Confidence: models.ConfidenceHigh}}
	ei := NewExchangeIdentifier(OfficialExchangeBook(nil), WithLabelLookup(labels, time.Second))

	id := ei.Identify(context.Background(), "1NDyJtNTjmwk5xPNhjgAMu4HDHigtobu1s", nil)

	assert.Equal(t, "Binance", id.Result.Exchange)
	assert.Equal(t, models.ConfidenceVeryHigh, id.Result.Confidence)
	assert.Equal(t, models.MethodOfficialAddress, id.Result.Method)

	ext := trailEntry(t, id, StrategyExternalLabel)
	assert.True(t, ext.Applied)
	assert.False(t, ext.Selected)
	require.NotNil(t, ext.Result)
	assert.Equal(t, "Coinbase", ext.Result.Exchange)

	assert.Equal(t, 3, id.CrossValidation.Score)
	assert.Equal(t, 4, id.CrossValidation.Total)
	assert.InDelta(t, 0.75, id.CrossValidation.Ratio, 1e-9)
	assert.Equal(t, models.ConfidenceVeryHigh, id.CrossValidation.Confidence)
}

func TestIdentify_ExternalLabel(t *testing.T) {
	labels := &fakeLabels{res: LabelResult{Found: true, Exchange: "Kraken", Source: "blockchair", Confidence: models.ConfidenceHigh}}
	ei := NewExchangeIdentifier(OfficialExchangeBook(nil), WithLabelLookup(labels, time.Second))

	id := ei.Identify(context.Background(), "bc1qar0srrr7xfkvy5l643lydnw9re59gtzzwf5mdq", nil)

	assert.Equal(t, "Kraken", id.Result.Exchange)
	assert.Equal(t, models.ConfidenceHigh, id.Result.Confidence)
	assert.Equal(t, models.MethodExternalLabel, id.Result.Method)
	require.NotNil(t, id.ExternalLabels)
	assert.True(t, id.ExternalLabels.Found)
}

func TestIdentify_LookupTimeoutFallsThrough(t *testing.T) {
	labels := &fakeLabels{block: true}
	ei := NewExchangeIdentifier(OfficialExchangeBook(nil), WithLabelLookup(labels, 20*time.Millisecond))

	id := ei.Identify(context.Background(), "3P14159f73E4gFr7JterCCQh9QjiTjiZrG", nil)

	assert.Equal(t, models.MethodAddressPattern, id.Result.Method)
	assert.Equal(t, models.ConfidenceLow, id.Result.Confidence)
	assert.Contains(t, id.Result.Description, "Upbit")
	assert.Contains(t, trailEntry(t, id, StrategyExternalLabel).Note, "timed out")
	require.NotNil(t, id.ExternalLabels)
	assert.NotEmpty(t, id.ExternalLabels.Error)
}

func TestIdentify_LookupErrorIsNotFound(t *testing.T) {
	labels := &fakeLabels{err: errors.New("503 from upstream")}
	ei := NewExchangeIdentifier(OfficialExchangeBook(nil), WithLabelLookup(labels, time.Second))

	id := ei.Identify(context.Background(), "1BvBMSEYstWetqTFn5Au4m4GFg7xJaNVN2", nil)

	assert.Equal(t, models.MethodAddressPattern, id.Result.Method)
	assert.Contains(t, trailEntry(t, id, StrategyExternalLabel).Note, "503 from upstream")
	assert.Equal(t, 0, id.CrossValidation.Score)
	assert.Equal(t, models.ConfidenceLow, id.CrossValidation.Confidence)
}

func TestIdentify_ClusterBeforePattern(t *testing.T) {
	const hub = "1BvBMSEYstWetqTFn5Au4m4GFg7xJaNVN2"
	var txs []models.Transaction
	for i := 0; i < 6; i++ {
		in := txAt(i*100, 200_000, hub)
		in.From = "1Sender" + string(rune('a'+i))
		out := txAt(i*100+50, 200_000, "1Receiver"+string(rune('a'+i)))
		out.From = hub
		txs = append(txs, in, out)
	}

	ei := NewExchangeIdentifier(OfficialExchangeBook(nil))
	id := ei.Identify(context.Background(), hub, txs)

	assert.Equal(t, "Unknown Exchange", id.Result.Exchange)
	assert.Equal(t, models.ConfidenceMedium, id.Result.Confidence)
	assert.Equal(t, models.MethodClusterAnalysis, id.Result.Method)
	require.NotNil(t, id.ClusterAnalysis)
	require.NotNil(t, id.PatternAnalysis)
	assert.Equal(t, 4, id.CrossValidation.Total)
	assert.Contains(t, id.CrossValidation.Signals, StrategyClusterAnalysis)

	selected := 0
	for _, o := range id.Trail {
		if o.Selected {
			selected++
		}
	}
	assert.Equal(t, 1, selected)
}

func TestIdentify_NoHistoryNoLookup(t *testing.T) {
	ei := NewExchangeIdentifier(nil)
	id := ei.Identify(context.Background(), "bc1qar0srrr7xfkvy5l643lydnw9re59gtzzwf5mdq", nil)

	assert.Equal(t, models.MethodAddressPattern, id.Result.Method)
	assert.Nil(t, id.PatternAnalysis)
	assert.Nil(t, id.ClusterAnalysis)
	assert.Equal(t, 4, id.CrossValidation.Total)
	assert.Zero(t, id.CrossValidation.Score)
	assert.Equal(t, "no transactions supplied", trailEntry(t, id, StrategyPatternAnalysis).Note)
}

func TestIdentify_ClusterFallsBackToCounterpartyHub(t *testing.T) {
	const (
		subject = "bc1qar0srrr7xfkvy5l643lydnw9re59gtzzwf5mdq"
		hub     = "1BvBMSEYstWetqTFn5Au4m4GFg7xJaNVN2"
	)
	var txs []models.Transaction
	for i := 0; i < 6; i++ {
		in := txAt(i*100, 200_000, hub)
		in.From = subject
		out := txAt(i*100+50, 200_000, "1Receiver"+string(rune('a'+i)))
		out.From = hub
		txs = append(txs, in, out)
	}

	ei := NewExchangeIdentifier(OfficialExchangeBook(nil))
	id := ei.Identify(context.Background(), subject, txs)

	require.NotNil(t, id.ClusterAnalysis)
	_, listed := CandidateFor(*id.ClusterAnalysis, subject)
	assert.False(t, listed)
	assert.Equal(t, models.ConfidenceHigh, id.ClusterAnalysis.Confidence)

	assert.Equal(t, models.MethodClusterAnalysis, id.Result.Method)
	assert.Equal(t, models.ConfidenceMedium, id.Result.Confidence)
	assert.Contains(t, id.Result.Description, hub)
	assert.True(t, trailEntry(t, id, StrategyClusterAnalysis).Selected)
}

func TestIdentify_OfficialAloneIsHighNotVeryHigh(t *testing.T) {
	ei := NewExchangeIdentifier(OfficialExchangeBook(nil))

	id := ei.Identify(context.Background(), "1NDyJtNTjmwk5xPNhjgAMu4HDHigtobu1s", nil)

	assert.Equal(t, models.MethodOfficialAddress, id.Result.Method)
	assert.Equal(t, 2, id.CrossValidation.Score)
	assert.Equal(t, 4, id.CrossValidation.Total)
	assert.InDelta(t, 0.5, id.CrossValidation.Ratio, 1e-9)
	assert.Equal(t, models.ConfidenceHigh, id.CrossValidation.Confidence)
}

func TestStrongestCandidate(t *testing.T) {
	ca := models.ClusterAnalysis{Candidates: []models.ClusterCandidate{
		{Address: "a", Likelihood: models.ConfidenceLow},
		{Address: "b", Likelihood: models.ConfidenceHigh},
		{Address: "c", Likelihood: models.ConfidenceHigh},
	}}
	c, ok := StrongestCandidate(ca)
	require.True(t, ok)
	assert.Equal(t, "b", c.Address)

	_, ok = StrongestCandidate(models.ClusterAnalysis{})
	assert.False(t, ok)
}
