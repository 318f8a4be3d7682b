package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
	"go.uber.org/zap"

	"github.com/rawblock/address-risk-engine/internal/api"
	"github.com/rawblock/address-risk-engine/internal/bitcoin"
	"github.com/rawblock/address-risk-engine/internal/config"
	"github.com/rawblock/address-risk-engine/internal/db"
	"github.com/rawblock/address-risk-engine/internal/explorer"
	"github.com/rawblock/address-risk-engine/internal/heuristics"
	"github.com/rawblock/address-risk-engine/internal/logger"
	"github.com/rawblock/address-risk-engine/internal/messaging"
	"github.com/rawblock/address-risk-engine/internal/metrics"
	"github.com/rawblock/address-risk-engine/internal/monitor"
	"github.com/rawblock/address-risk-engine/internal/refdata"
	"github.com/rawblock/address-risk-engine/internal/service"
	"github.com/rawblock/address-risk-engine/pkg/models"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.NewLogger(cfg.Log.Level)
	if err != nil {
		fmt.Printf("Failed to create logger: %v\n", err)
		os.Exit(1)
	}
	if strings.EqualFold(cfg.Log.Level, "debug") {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	app := fx.New(
		fx.Supply(cfg),
		fx.Supply(log),

		// Infrastructure providers
		fx.Provide(
			newReferenceData,
			newSource,
			newStore,
			newPublisher,
			metrics.NewCollector,
			func() *monitor.Watchlist { return monitor.NewWatchlist() },
			func(cfg *config.Config, log *logger.Logger) *api.Hub {
				return api.NewHub(cfg.Server.AllowedOrigins, log)
			},
			func(cfg *config.Config) *api.RateLimiter {
				return api.NewRateLimiter(cfg.Server.RateLimit, cfg.Server.RateBurst)
			},
		),

		// Application providers
		fx.Provide(
			newIdentifier,
			newAnalyzer,
		),

		// Lifecycle hooks
		fx.Invoke(startBackground),
		fx.Invoke(startHTTPServer),

		fx.WithLogger(func() fxevent.Logger {
			return fxevent.NopLogger
		}),
	)

	ctx := context.Background()
	if err := app.Start(ctx); err != nil {
		log.Error("Failed to start application", zap.Error(err))
		os.Exit(1)
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	log.Info("Shutting down application...")

	stopCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := app.Stop(stopCtx); err != nil {
		log.Error("Failed to stop application gracefully", zap.Error(err))
		os.Exit(1)
	}

	log.Info("Application stopped successfully")
}

// namedSource is a transaction source that reports its name to metrics.
type namedSource interface {
	service.TransactionSource
	Name() string
}

func newReferenceData(cfg *config.Config, log *logger.Logger) models.ReferenceData {
	return refdata.NewLoader(log).Load(cfg.RefData)
}

// newSource selects the transaction source from explorer.provider.
func newSource(cfg *config.Config, log *logger.Logger) (namedSource, error) {
	ex := cfg.Explorer
	switch strings.ToLower(ex.Provider) {
	case "", "blockcypher":
		return explorer.NewBlockCypher(ex.BlockCypherURL, ex.BlockCypherToken, ex.MaxTransactions, ex.Timeout), nil
	case "mempool", "esplora":
		return explorer.NewMempool(ex.MempoolURL, ex.Timeout), nil
	case "node", "bitcoind":
		return bitcoin.Connect(cfg.Bitcoin, ex.MaxTransactions, log)
	}
	return nil, fmt.Errorf("unknown explorer provider %q", ex.Provider)
}

// newStore connects the report archive. The engine keeps serving without
// one when the database is disabled or unreachable.
func newStore(lc fx.Lifecycle, cfg *config.Config, log *logger.Logger) *db.PostgresStore {
	if !cfg.Database.Enabled || cfg.Database.URL == "" {
		log.Info("Report archive disabled")
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	store, err := db.Connect(ctx, cfg.Database.URL, log)
	if err != nil {
		log.Warn("Failed to connect to PostgreSQL, continuing without an archive", zap.Error(err))
		return nil
	}
	if err := store.InitSchema(ctx); err != nil {
		log.Warn("DB schema init failed", zap.Error(err))
	}
	lc.Append(fx.Hook{
		OnStop: func(context.Context) error {
			store.Close()
			return nil
		},
	})
	return store
}

func newPublisher(lc fx.Lifecycle, cfg *config.Config, log *logger.Logger) *messaging.NATSPublisher {
	if !cfg.NATS.Enabled {
		log.Info("NATS is disabled, reports will not be published")
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), cfg.NATS.ConnectTimeout+time.Second)
	defer cancel()
	pub, err := messaging.NewNATSPublisher(ctx, cfg.NATS, log)
	if err != nil {
		log.Warn("Continuing without report publication", zap.Error(err))
		return nil
	}
	lc.Append(fx.Hook{
		OnStop: func(context.Context) error {
			pub.Close()
			return nil
		},
	})
	return pub
}

func newIdentifier(cfg *config.Config, ref models.ReferenceData, log *logger.Logger) *heuristics.ExchangeIdentifier {
	opts := []heuristics.IdentifierOption{
		heuristics.WithIdentifierLogger(log.WithComponent("identifier").Logger),
	}
	if cfg.Labels.Enabled {
		chain := explorer.NewChain(
			explorer.NewBlockchair(cfg.Labels.BlockchairURL, cfg.Labels.Timeout),
			explorer.NewWalletExplorer(cfg.Labels.WalletExplorerURL, cfg.Labels.Timeout),
		)
		opts = append(opts, heuristics.WithLabelLookup(chain, cfg.Labels.Timeout))
	}
	return heuristics.NewExchangeIdentifier(heuristics.OfficialExchangeBook(ref.Exchanges), opts...)
}

func newAnalyzer(
	cfg *config.Config,
	log *logger.Logger,
	source namedSource,
	ref models.ReferenceData,
	identifier *heuristics.ExchangeIdentifier,
	store *db.PostgresStore,
	publisher *messaging.NATSPublisher,
	hub *api.Hub,
	collector *metrics.Collector,
) *service.Analyzer {
	options := []service.Option{
		service.WithBroadcaster(hub),
		service.WithRecorder(collector),
		service.WithSourceName(source.Name()),
	}
	if store != nil {
		options = append(options, service.WithStore(store))
	}
	if publisher != nil {
		options = append(options, service.WithPublisher(publisher))
	}

	opts := service.Options{
		Policy: heuristics.RiskPolicy{
			HighThreshold:     cfg.Risk.HighThreshold,
			ModerateThreshold: cfg.Risk.ModerateThreshold,
		},
		HighVarianceThreshold: cfg.Risk.HighVarianceThreshold,
		MinSimilarity:         cfg.Scenario.MinSimilarity,
		Scales: heuristics.ScenarioScales{
			TxCount:     cfg.Scenario.TxCountScale,
			AvgInterval: cfg.Scenario.AvgIntervalScale,
			ReusedRatio: cfg.Scenario.ReusedRatioScale,
		},
	}
	return service.NewAnalyzer(source, ref, identifier, opts, log, options...)
}

// startBackground runs the stream hub, the rate-limiter sweeper and,
// when enabled, the address monitor.
func startBackground(
	lifecycle fx.Lifecycle,
	cfg *config.Config,
	log *logger.Logger,
	hub *api.Hub,
	limiter *api.RateLimiter,
	analyzer *service.Analyzer,
	watchlist *monitor.Watchlist,
) {
	ctx, cancel := context.WithCancel(context.Background())
	lifecycle.Append(fx.Hook{
		OnStart: func(context.Context) error {
			go hub.Run(ctx)
			go limiter.Run(ctx)
			if cfg.Monitor.Enabled {
				poller := monitor.NewPoller(analyzer, watchlist, cfg.Monitor.Interval, log)
				go poller.Run(ctx)
			}
			return nil
		},
		OnStop: func(context.Context) error {
			cancel()
			return nil
		},
	})
}

// startHTTPServer serves the API until the application stops.
func startHTTPServer(
	lifecycle fx.Lifecycle,
	cfg *config.Config,
	log *logger.Logger,
	analyzer *service.Analyzer,
	store *db.PostgresStore,
	watchlist *monitor.Watchlist,
	hub *api.Hub,
	limiter *api.RateLimiter,
	collector *metrics.Collector,
) {
	var archive api.ReportArchive
	if store != nil {
		archive = store
	}
	handler := api.NewAPIHandler(analyzer, archive, watchlist, collector, log)
	router := api.SetupRouter(cfg.Server, handler, hub, limiter, collector.Handler())

	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	lifecycle.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			log.Info("Starting HTTP server...", zap.Int("port", cfg.Server.Port))
			go func() {
				if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					log.Error("HTTP server error", zap.Error(err))
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			log.Info("Stopping HTTP server...")
			return server.Shutdown(ctx)
		},
	})
}
