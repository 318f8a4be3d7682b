package monitor

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/rawblock/address-risk-engine/internal/logger"
	"github.com/rawblock/address-risk-engine/internal/service"
	"github.com/rawblock/address-risk-engine/pkg/models"
)

// DefaultInterval is the re-scoring period when none is configured.
const DefaultInterval = 5 * time.Minute

// Scorer is the part of the analyzer the poller drives.
type Scorer interface {
	Analyze(ctx context.Context, address string) (models.RiskReport, error)
	Stream(ev service.Event)
}

// Poller periodically re-scores every watched address and streams a
// risk_level_change event when an address moves between tiers.
type Poller struct {
	scorer    Scorer
	watchlist *Watchlist
	interval  time.Duration
	log       *logger.Logger
}

func NewPoller(scorer Scorer, watchlist *Watchlist, interval time.Duration, log *logger.Logger) *Poller {
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &Poller{
		scorer:    scorer,
		watchlist: watchlist,
		interval:  interval,
		log:       log.WithComponent("monitor"),
	}
}

// Run blocks until ctx is cancelled.
func (p *Poller) Run(ctx context.Context) {
	p.log.Info("Starting address monitor", zap.Duration("interval", p.interval))

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			p.log.Info("Stopping address monitor")
			return
		case <-ticker.C:
			p.Sweep(ctx)
		}
	}
}

// Sweep scores every watched address once and returns the number of
// level changes observed.
func (p *Poller) Sweep(ctx context.Context) int {
	changes := 0
	for _, entry := range p.watchlist.List() {
		if ctx.Err() != nil {
			return changes
		}
		if p.check(ctx, entry.Address) {
			changes++
		}
	}
	return changes
}

func (p *Poller) check(ctx context.Context, address string) bool {
	report, err := p.scorer.Analyze(ctx, address)
	if err != nil {
		p.log.Warn("Re-scoring failed", zap.String("address", address), zap.Error(err))
		p.watchlist.RecordError(address, err)
		return false
	}

	level := report.Summary.RiskLevel
	previous, ok := p.watchlist.Record(address, level, report.Summary.TotalScore)
	if !ok || previous == "" || previous == level {
		return false
	}

	p.log.Info("Risk level changed",
		zap.String("address", address),
		zap.String("from", string(previous)),
		zap.String("to", string(level)))
	p.scorer.Stream(service.Event{
		Type:          service.EventLevelChange,
		Address:       address,
		Level:         level,
		PreviousLevel: previous,
		Report:        &report,
	})
	return true
}
