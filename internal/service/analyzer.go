package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/rawblock/address-risk-engine/internal/explorer"
	"github.com/rawblock/address-risk-engine/internal/heuristics"
	"github.com/rawblock/address-risk-engine/internal/ingest"
	"github.com/rawblock/address-risk-engine/internal/logger"
	"github.com/rawblock/address-risk-engine/pkg/models"
)

// ErrNoData means the address has no usable transaction history. It is
// distinct from a fetch failure.
var ErrNoData = errors.New("no transactions for address")

// TransactionSource returns the raw history document of an address.
type TransactionSource interface {
	FetchTransactions(ctx context.Context, address string) (json.RawMessage, error)
}

// ReportStore archives completed work.
type ReportStore interface {
	SaveRiskReport(ctx context.Context, report models.RiskReport) error
	SaveIdentification(ctx context.Context, id models.Identification) error
}

// ReportPublisher pushes completed reports to downstream consumers.
type ReportPublisher interface {
	PublishReport(ctx context.Context, report models.RiskReport) error
}

// Broadcaster fans a message out to live stream subscribers.
type Broadcaster interface {
	Broadcast(data []byte)
}

// Recorder receives operational measurements.
type Recorder interface {
	ObserveAnalysis(level models.RiskLevel, txCount int, elapsed time.Duration)
	ObserveFetchError(source string)
	ObserveIdentification(method models.Method)
}

// Options holds the scoring policy.
type Options struct {
	Policy                heuristics.RiskPolicy
	HighVarianceThreshold float64 // sats²; zero selects the default
	MinSimilarity         float64
	Scales                heuristics.ScenarioScales
}

// Option attaches optional collaborators.
type Option func(*Analyzer)

func WithStore(s ReportStore) Option { return func(a *Analyzer) { a.store = s } }
func WithPublisher(p ReportPublisher) Option { return func(a *Analyzer) { a.publisher = p } }
func WithBroadcaster(b Broadcaster) Option { return func(a *Analyzer) { a.broadcaster = b } }
func WithRecorder(r Recorder) Option { return func(a *Analyzer) { a.recorder = r } }
func WithClock(now func() time.Time) Option { return func(a *Analyzer) { a.now = now } }
func WithSourceName(name string) Option { return func(a *Analyzer) { a.sourceName = name } }

// Analyzer runs the full pipeline for one address: fetch, normalize,
// detect, compose, derive stats, match scenarios, identify.
type Analyzer struct {
	source     TransactionSource
	sourceName string
	detectors  *heuristics.DetectorSet
	identifier *heuristics.ExchangeIdentifier
	scenarios  []models.ScenarioTemplate
	opts       Options

	store       ReportStore
	publisher   ReportPublisher
	broadcaster Broadcaster
	recorder    Recorder
	now         func() time.Time
	log         *logger.Logger
}

// NewAnalyzer wires the pipeline over fixed reference data.
func NewAnalyzer(source TransactionSource, ref models.ReferenceData, identifier *heuristics.ExchangeIdentifier,
	opts Options, log *logger.Logger, options ...Option) *Analyzer {

	scenarios := ref.Scenarios
	if scenarios == nil {
		scenarios = []models.ScenarioTemplate{}
	}
	a := &Analyzer{
		source:     source,
		sourceName: "explorer",
		detectors:  heuristics.NewDetectorSet(ref, opts.HighVarianceThreshold),
		identifier: identifier,
		scenarios:  scenarios,
		opts:       opts,
		now:        time.Now,
		log:        log.WithComponent("service"),
	}
	for _, o := range options {
		o(a)
	}
	return a
}

// Analyze fetches and scores an address. A malformed address yields an
// empty report carrying an invalid_address identification; no fetch is
// attempted.
func (a *Analyzer) Analyze(ctx context.Context, address string) (models.RiskReport, error) {
	address = strings.TrimSpace(address)
	if !heuristics.IsValidAddress(address) {
		id := a.identifier.Identify(ctx, address, nil)
		report := a.buildReport(ctx, address, nil)
		report.Scenarios = []models.ScenarioMatch{}
		report.Identification = &id
		return report, nil
	}

	txs, err := a.fetch(ctx, address)
	if err != nil {
		return models.RiskReport{}, err
	}
	if len(txs) == 0 {
		return models.RiskReport{}, ErrNoData
	}

	report := a.score(ctx, address, txs)
	a.deliver(ctx, report)
	return report, nil
}

// AnalyzeRaw scores caller-supplied explorer JSON without fetching.
// address may be empty, in which case no identification is attached.
func (a *Analyzer) AnalyzeRaw(ctx context.Context, address string, raw []byte) (models.RiskReport, error) {
	txs := ingest.Normalize(raw)
	if len(txs) == 0 {
		return models.RiskReport{}, ErrNoData
	}
	report := a.score(ctx, strings.TrimSpace(address), txs)
	a.deliver(ctx, report)
	return report, nil
}

// Identify attributes an address to an exchange. With withTransactions
// the address history is fetched and fed to the cluster and pattern
// strategies; an unknown address simply has no history.
func (a *Analyzer) Identify(ctx context.Context, address string, withTransactions bool) (models.Identification, error) {
	address = strings.TrimSpace(address)
	var txs []models.Transaction
	if withTransactions && heuristics.IsValidAddress(address) && address != heuristics.GenesisAddress {
		fetched, err := a.fetch(ctx, address)
		if err != nil && !errors.Is(err, ErrNoData) {
			return models.Identification{}, err
		}
		txs = fetched
	}

	id := a.identifier.Identify(ctx, address, txs)
	if a.recorder != nil {
		a.recorder.ObserveIdentification(id.Result.Method)
	}
	if a.store != nil && id.Result.Confidence != models.ConfidenceInvalidAddress {
		if err := a.store.SaveIdentification(ctx, id); err != nil {
			a.log.Warn("Failed to archive identification", zap.String("address", address), zap.Error(err))
		}
	}
	return id, nil
}

// MatchScenarios matches caller-supplied stats against the loaded
// templates. A nil minSimilarity uses the configured default.
func (a *Analyzer) MatchScenarios(stats models.ActivityStats, minSimilarity *float64) []models.ScenarioMatch {
	threshold := a.opts.MinSimilarity
	if minSimilarity != nil {
		threshold = *minSimilarity
	}
	return heuristics.MatchScenarios(stats, a.scenarios, threshold, a.opts.Scales)
}

// Scenarios returns the loaded templates.
func (a *Analyzer) Scenarios() []models.ScenarioTemplate {
	return a.scenarios
}

func (a *Analyzer) fetch(ctx context.Context, address string) ([]models.Transaction, error) {
	raw, err := a.source.FetchTransactions(ctx, address)
	if errors.Is(err, explorer.ErrAddressNotFound) {
		return nil, ErrNoData
	}
	if err != nil {
		if a.recorder != nil {
			a.recorder.ObserveFetchError(a.sourceName)
		}
		a.log.Warn("Transaction fetch failed", zap.String("address", address), zap.Error(err))
		return nil, fmt.Errorf("fetch %s: %w", address, err)
	}
	return ingest.Normalize(raw), nil
}

func (a *Analyzer) score(ctx context.Context, address string, txs []models.Transaction) models.RiskReport {
	start := time.Now()
	report := a.buildReport(ctx, address, txs)
	if address != "" {
		id := a.identifier.Identify(ctx, address, txs)
		report.Identification = &id
		if a.recorder != nil {
			a.recorder.ObserveIdentification(id.Result.Method)
		}
	}
	if a.recorder != nil {
		a.recorder.ObserveAnalysis(report.Summary.RiskLevel, report.TxCount, time.Since(start))
	}
	a.log.Info("Address scored",
		zap.String("address", address),
		zap.Int("txs", report.TxCount),
		zap.Int("total", report.Summary.TotalScore),
		zap.String("level", string(report.Summary.RiskLevel)))
	return report
}

func (a *Analyzer) buildReport(_ context.Context, address string, txs []models.Transaction) models.RiskReport {
	results := a.detectors.RunAll(txs)
	stats := heuristics.ComputeActivityStats(txs)
	return models.RiskReport{
		ID:             uuid.NewString(),
		Address:        address,
		GeneratedAt:    a.now().UTC(),
		TxCount:        len(txs),
		Summary:        heuristics.ComposeReport(results, a.opts.Policy),
		Results:        results,
		LaunderingRisk: a.detectors.DetectMoneyLaundering(txs),
		Stats:          stats,
		Scenarios:      a.MatchScenarios(stats, nil),
	}
}

// deliver archives, publishes and streams a report. Failures are logged
// and never surface to the caller.
func (a *Analyzer) deliver(ctx context.Context, report models.RiskReport) {
	if a.store != nil {
		if err := a.store.SaveRiskReport(ctx, report); err != nil {
			a.log.Warn("Failed to archive report", zap.String("id", report.ID), zap.Error(err))
		}
	}
	if a.publisher != nil {
		if err := a.publisher.PublishReport(ctx, report); err != nil {
			a.log.Warn("Failed to publish report", zap.String("id", report.ID), zap.Error(err))
		}
	}
	a.Stream(Event{Type: EventReport, Address: report.Address, Level: report.Summary.RiskLevel, Report: &report})
}
