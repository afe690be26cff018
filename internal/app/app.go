// Package app wires the configured components together and runs the
// engine's independent cycles.
package app

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/newthinker/aegis/internal/broker"
	"github.com/newthinker/aegis/internal/broker/paper"
	"github.com/newthinker/aegis/internal/config"
	"github.com/newthinker/aegis/internal/core"
	"github.com/newthinker/aegis/internal/ensemble"
	"github.com/newthinker/aegis/internal/export"
	"github.com/newthinker/aegis/internal/llm"
	"github.com/newthinker/aegis/internal/marketdata"
	"github.com/newthinker/aegis/internal/metrics"
	"github.com/newthinker/aegis/internal/portfolio"
	"github.com/newthinker/aegis/internal/resolver"
	"github.com/newthinker/aegis/internal/source"
	llmsource "github.com/newthinker/aegis/internal/source/llm"
	"github.com/newthinker/aegis/internal/source/momentum"
	"github.com/newthinker/aegis/internal/storage/signal"
	"github.com/newthinker/aegis/internal/trading"
)

const (
	// analysisWindow is the number of bars handed to each prediction
	// source.
	analysisWindow = 120

	// startPrice seeds the simulated feed for each watched symbol.
	startPrice = 100.0
)

// App owns the full pipeline: market data, prediction sources, fusion,
// resolution, admission, execution and the portfolio ledger.
type App struct {
	cfg      *config.Config
	logger   *zap.Logger
	registry *metrics.Registry

	feed     *marketdata.SimFeed
	sources  *source.Registry
	fuser    *ensemble.Fuser
	resolver *resolver.Resolver
	store    *signal.Store
	ledger   *portfolio.Ledger
	engine   *trading.Engine
	exporter *export.Exporter

	marketBusy    atomic.Bool
	analysisBusy  atomic.Bool
	portfolioBusy atomic.Bool
	exportBusy    atomic.Bool
}

// New builds an App from validated configuration.
func New(cfg *config.Config, logger *zap.Logger) (*App, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	registry := metrics.NewRegistry()

	start := make(map[string]float64, len(cfg.Watchlist))
	for _, symbol := range cfg.Watchlist {
		start[symbol] = startPrice
	}
	feed := marketdata.NewSimFeed(start, time.Now().UnixNano())

	ledger := portfolio.NewLedger(cfg.Portfolio.InitialCapital,
		portfolio.WithRiskFreeRate(cfg.Portfolio.RiskFreeRate),
		portfolio.WithVaRZScore(cfg.Portfolio.VaRZScore),
		portfolio.WithLogger(logger),
	)

	sources, weights, err := buildSources(cfg, registry, logger)
	if err != nil {
		return nil, err
	}

	fuser, err := ensemble.New(cfg.Ensemble.Method,
		ensemble.WithWeights(weights),
		ensemble.WithTiePrecedence(parseActions(cfg.Ensemble.TiePrecedence)),
	)
	if err != nil {
		return nil, fmt.Errorf("building fuser: %w", err)
	}

	res := resolver.New(parseClassWeights(cfg.Resolver.ClassWeights))

	venue := paper.New(feed, cfg.Broker.CommissionRate, logger)
	cooldowns := trading.NewCooldownTable()
	gate := trading.NewGate(trading.GateParams{
		MaxPositions:         cfg.Gate.MaxPositions,
		PositionSizeFraction: cfg.Gate.PositionSizeFraction,
		MinTradeInterval:     cfg.Gate.MinTradeInterval,
		MinConfidence:        cfg.Gate.MinConfidence,
	}, cooldowns)
	executor := trading.NewExecutor(venue, cfg.Broker.SubmitTimeout, logger)
	engine := trading.NewEngine(cfg.Broker.Mode, gate, cooldowns, executor, venue, ledger, registry, logger)

	app := &App{
		cfg:      cfg,
		logger:   logger,
		registry: registry,
		feed:     feed,
		sources:  sources,
		fuser:    fuser,
		resolver: res,
		store:    signal.NewStore(0),
		ledger:   ledger,
		engine:   engine,
	}

	if cfg.Export.Enabled {
		sink, err := export.NewSink(cfg.Export)
		if err != nil {
			return nil, fmt.Errorf("building export sink: %w", err)
		}
		app.exporter = export.New(sink, ledger, app.store, logger,
			export.WithRetention(cfg.Export.Retain))
	}

	return app, nil
}

func buildSources(cfg *config.Config, registry *metrics.Registry, logger *zap.Logger) (*source.Registry, map[string]float64, error) {
	sources := source.NewRegistry(cfg.Intervals.Analysis, registry, logger)
	weights := make(map[string]float64)

	var provider llm.Provider
	for name, mc := range cfg.Ensemble.Models {
		if !mc.Enabled {
			continue
		}
		switch mc.Type {
		case "momentum":
			fast := intParam(mc.Params, "fast_period", 10)
			slow := intParam(mc.Params, "slow_period", 30)
			sources.Register(momentum.New(name, fast, slow))
		case "llm":
			if provider == nil {
				var err error
				provider, err = llm.New(cfg.LLM)
				if err != nil {
					return nil, nil, fmt.Errorf("building LLM provider for model %q: %w", name, err)
				}
			}
			sources.Register(llmsource.New(name, provider))
		default:
			return nil, nil, fmt.Errorf("model %q: unknown type %q", name, mc.Type)
		}
		weights[name] = mc.Weight
	}
	return sources, weights, nil
}

func intParam(params map[string]any, key string, def int) int {
	v, ok := params[key]
	if !ok {
		return def
	}
	switch n := v.(type) {
	case int:
		return n
	case int64:
		return int(n)
	case float64:
		return int(n)
	default:
		return def
	}
}

func parseActions(names []string) []core.Action {
	actions := make([]core.Action, 0, len(names))
	for _, n := range names {
		a := core.Action(n)
		if a.IsValid() {
			actions = append(actions, a)
		}
	}
	return actions
}

func parseClassWeights(weights map[string]float64) map[core.Action]float64 {
	if len(weights) == 0 {
		return nil
	}
	out := make(map[core.Action]float64, len(weights))
	for name, w := range weights {
		out[core.Action(name)] = w
	}
	return out
}

// Run starts all cycles and blocks until the context is cancelled.
func (a *App) Run(ctx context.Context) error {
	if a.cfg.Metrics.Enabled {
		go func() {
			if err := a.registry.Serve(ctx, a.cfg.Metrics.Addr, a.cfg.Metrics.Path); err != nil {
				a.logger.Error("metrics server stopped", zap.Error(err))
			}
		}()
	}

	a.logger.Info("engine started",
		zap.Strings("watchlist", a.cfg.Watchlist),
		zap.String("fusion_method", a.cfg.Ensemble.Method),
		zap.String("broker_mode", a.cfg.Broker.Mode),
		zap.Int("sources", a.sources.Len()))

	var wg sync.WaitGroup
	a.startCycle(ctx, &wg, "market", a.cfg.Intervals.Market, &a.marketBusy, a.marketCycle)
	a.startCycle(ctx, &wg, "analysis", a.cfg.Intervals.Analysis, &a.analysisBusy, a.analysisCycle)
	a.startCycle(ctx, &wg, "portfolio", a.cfg.Intervals.Portfolio, &a.portfolioBusy, a.portfolioCycle)
	if a.exporter != nil {
		a.startCycle(ctx, &wg, "export", a.cfg.Intervals.Export, &a.exportBusy, a.exportCycle)
	}
	wg.Wait()

	a.logger.Info("engine stopped")
	return nil
}

// RunOnce executes a single pass of every cycle in pipeline order.
// Used by the --once flag and by tests.
func (a *App) RunOnce(ctx context.Context) {
	a.marketCycle(ctx)
	a.analysisCycle(ctx)
	a.portfolioCycle(ctx)
	if a.exporter != nil {
		a.exportCycle(ctx)
	}
}

// startCycle runs fn on every tick. An overrunning cycle is skipped,
// never queued.
func (a *App) startCycle(ctx context.Context, wg *sync.WaitGroup, name string, interval time.Duration, busy *atomic.Bool, fn func(context.Context)) {
	wg.Add(1)
	go func() {
		defer wg.Done()
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if !busy.CompareAndSwap(false, true) {
					a.registry.RecordCycleSkipped(name)
					a.logger.Warn("cycle overrun, skipping tick", zap.String("cycle", name))
					continue
				}
				started := time.Now()
				fn(ctx)
				a.registry.RecordCycle(name, time.Since(started).Seconds())
				busy.Store(false)
			}
		}
	}()
}

// marketCycle advances the simulated feed and refreshes ledger marks.
func (a *App) marketCycle(ctx context.Context) {
	a.feed.Step()
	for _, symbol := range a.cfg.Watchlist {
		quote, err := a.feed.Quote(ctx, symbol)
		if err != nil {
			a.logger.Warn("quote refresh failed",
				zap.String("symbol", symbol), zap.Error(err))
			continue
		}
		a.ledger.UpdatePrice(symbol, quote.Price)
	}
}

// analysisCycle runs the full pipeline: predict, fuse, resolve, decide.
func (a *App) analysisCycle(ctx context.Context) {
	now := time.Now()
	signals := make([]core.Signal, 0, len(a.cfg.Watchlist))

	for _, symbol := range a.cfg.Watchlist {
		if ctx.Err() != nil {
			return
		}
		window, err := a.feed.Window(ctx, symbol, analysisWindow)
		if err != nil {
			a.logger.Warn("window unavailable",
				zap.String("symbol", symbol), zap.Error(err))
			continue
		}

		preds := a.sources.PredictAll(ctx, symbol, window)
		fused, err := a.fuser.Fuse(preds)
		if err != nil {
			a.logger.Debug("fusion produced no signal",
				zap.String("symbol", symbol), zap.Error(err))
			continue
		}
		a.registry.RecordFusion(fused.Method, string(fused.Action))

		signals = append(signals, core.Signal{
			ID:         uuid.NewString(),
			Symbol:     fused.Symbol,
			Action:     fused.Action,
			Confidence: fused.Confidence,
			Source:     "ensemble",
			ProducedAt: now,
		})
	}

	if len(signals) == 0 {
		return
	}

	resolved := a.resolver.Resolve(signals)
	a.registry.RecordResolved(len(resolved))
	a.store.Add(resolved...)
	a.engine.Decide(ctx, resolved)
}

// portfolioCycle records a valuation snapshot, surfaces risk warnings
// and refreshes the portfolio gauges.
func (a *App) portfolioCycle(ctx context.Context) {
	a.ledger.RecordSnapshot()
	a.ledger.CheckRisks()

	view := a.ledger.Snapshot()
	a.registry.SetPortfolio(view.TotalValue, view.CashBalance,
		len(view.Positions), view.Metrics.MaxDrawdown)
}

func (a *App) exportCycle(ctx context.Context) {
	if err := a.exporter.Export(ctx); err != nil {
		a.logger.Error("export failed", zap.Error(err))
	}
}

// Ledger exposes the portfolio for read-only inspection.
func (a *App) Ledger() *portfolio.Ledger {
	return a.ledger
}

// RecentOrders returns the most recent orders, newest first.
func (a *App) RecentOrders(n int) []broker.Order {
	return a.engine.RecentOrders(n)
}
