package export

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"sort"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/newthinker/aegis/internal/core"
	"github.com/newthinker/aegis/internal/portfolio"
)

// SignalReader exposes the recent resolved signals.
type SignalReader interface {
	Recent(n int) []core.ResolvedSignal
}

// PortfolioReader exposes the current portfolio view.
type PortfolioReader interface {
	Snapshot() portfolio.View
}

// signalExportLimit bounds signals per export run.
const signalExportLimit = 200

// defaultRetention is how many files are kept per prefix.
const defaultRetention = 96

// Exporter periodically serializes positions and resolved signals into
// timestamped CSV files on a Sink, pruning files beyond the retention
// limit.
type Exporter struct {
	sink      Sink
	ledger    PortfolioReader
	signals   SignalReader
	logger    *zap.Logger
	retain    int
	timestamp func() time.Time
}

// Option customizes an Exporter.
type Option func(*Exporter)

// WithRetention sets how many files are kept per prefix. 0 or negative
// disables pruning.
func WithRetention(n int) Option {
	return func(e *Exporter) { e.retain = n }
}

// WithClock overrides the timestamp source.
func WithClock(now func() time.Time) Option {
	return func(e *Exporter) { e.timestamp = now }
}

// New creates an Exporter.
func New(sink Sink, ledger PortfolioReader, signals SignalReader, logger *zap.Logger, opts ...Option) *Exporter {
	if logger == nil {
		logger = zap.NewNop()
	}
	e := &Exporter{
		sink:      sink,
		ledger:    ledger,
		signals:   signals,
		logger:    logger,
		retain:    defaultRetention,
		timestamp: time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Export writes one positions file and one signals file, then prunes
// files beyond the retention limit.
func (e *Exporter) Export(ctx context.Context) error {
	stamp := e.timestamp().UTC().Format("20060102T150405Z")

	view := e.ledger.Snapshot()
	if err := e.sink.Write(ctx, fmt.Sprintf("positions/%s.csv", stamp), positionsCSV(view)); err != nil {
		return core.WrapError(core.ErrStorageFailed, fmt.Errorf("writing positions: %w", err))
	}

	recent := e.signals.Recent(signalExportLimit)
	if err := e.sink.Write(ctx, fmt.Sprintf("signals/%s.csv", stamp), signalsCSV(recent)); err != nil {
		return core.WrapError(core.ErrStorageFailed, fmt.Errorf("writing signals: %w", err))
	}

	e.prune(ctx, "positions")
	e.prune(ctx, "signals")

	e.logger.Debug("export complete",
		zap.String("stamp", stamp),
		zap.Int("positions", len(view.Positions)),
		zap.Int("signals", len(recent)))
	return nil
}

// prune deletes the oldest files beyond the retention limit. Timestamped
// names sort chronologically, so lexicographic order is age order.
// Pruning failures are logged, never fatal: the export itself succeeded.
func (e *Exporter) prune(ctx context.Context, prefix string) {
	if e.retain <= 0 {
		return
	}
	paths, err := e.sink.List(ctx, prefix)
	if err != nil {
		e.logger.Warn("retention listing failed",
			zap.String("prefix", prefix), zap.Error(err))
		return
	}
	if len(paths) <= e.retain {
		return
	}
	sort.Strings(paths)
	for _, path := range paths[:len(paths)-e.retain] {
		if err := e.sink.Delete(ctx, path); err != nil {
			e.logger.Warn("retention delete failed",
				zap.String("path", path), zap.Error(err))
		}
	}
}

func positionsCSV(view portfolio.View) []byte {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)

	_ = w.Write([]string{"symbol", "quantity", "price", "value", "pnl", "pnl_percent"})
	for _, p := range view.Positions {
		_ = w.Write([]string{
			p.Symbol,
			strconv.FormatInt(p.Quantity, 10),
			formatFloat(p.CurrentPrice),
			formatFloat(p.MarketValue),
			formatFloat(p.UnrealizedPL),
			formatFloat(p.UnrealizedPLPercent),
		})
	}
	w.Flush()
	return buf.Bytes()
}

func signalsCSV(signals []core.ResolvedSignal) []byte {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)

	_ = w.Write([]string{"time", "symbol", "action", "confidence", "source"})
	for _, s := range signals {
		_ = w.Write([]string{
			s.ProducedAt.UTC().Format(time.RFC3339),
			s.Symbol,
			string(s.Action),
			formatFloat(s.Confidence),
			s.Source,
		})
	}
	w.Flush()
	return buf.Bytes()
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', 4, 64)
}
