package export_test

import (
	"context"
	"encoding/csv"
	"errors"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/newthinker/aegis/internal/broker"
	"github.com/newthinker/aegis/internal/core"
	"github.com/newthinker/aegis/internal/export"
	"github.com/newthinker/aegis/internal/portfolio"
	"github.com/newthinker/aegis/internal/storage/signal"
)

func filledBuy(symbol string, qty int64, price float64) broker.Order {
	now := time.Now()
	return broker.Order{
		ID:             "ord-" + symbol,
		Symbol:         symbol,
		Side:           broker.OrderSideBuy,
		Type:           broker.OrderTypeMarket,
		Quantity:       qty,
		Status:         broker.OrderStatusFilled,
		FilledPrice:    price,
		FilledQuantity: qty,
		CreatedAt:      now,
		FilledAt:       &now,
	}
}

func TestExportWritesPositionsAndSignals(t *testing.T) {
	dir := t.TempDir()
	sink, err := export.NewLocalFS(dir)
	require.NoError(t, err)

	ledger := portfolio.NewLedger(100000)
	require.NoError(t, ledger.Apply(filledBuy("AAPL", 10, 150.0)))

	store := signal.NewStore(10)
	store.Add(core.ResolvedSignal{
		Signal: core.Signal{
			ID:         "sig-1",
			Symbol:     "AAPL",
			Action:     core.ActionBuy,
			Confidence: 0.82,
			Source:     "ensemble",
			ProducedAt: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
		},
	})

	exp := export.New(sink, ledger, store, nil)
	require.NoError(t, exp.Export(context.Background()))

	positions, err := sink.List(context.Background(), "positions")
	require.NoError(t, err)
	require.Len(t, positions, 1)

	data, err := os.ReadFile(filepath.Join(dir, positions[0]))
	require.NoError(t, err)
	records, err := csv.NewReader(strings.NewReader(string(data))).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, []string{"symbol", "quantity", "price", "value", "pnl", "pnl_percent"}, records[0])
	assert.Equal(t, "AAPL", records[1][0])
	assert.Equal(t, "10", records[1][1])
	assert.Equal(t, "150.0000", records[1][2])

	signals, err := sink.List(context.Background(), "signals")
	require.NoError(t, err)
	require.Len(t, signals, 1)

	data, err = os.ReadFile(filepath.Join(dir, signals[0]))
	require.NoError(t, err)
	records, err = csv.NewReader(strings.NewReader(string(data))).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, []string{"time", "symbol", "action", "confidence", "source"}, records[0])
	assert.Equal(t, "2026-03-01T12:00:00Z", records[1][0])
	assert.Equal(t, "BUY", records[1][2])
	assert.Equal(t, "ensemble", records[1][4])
}

func TestExportPrunesBeyondRetention(t *testing.T) {
	dir := t.TempDir()
	sink, err := export.NewLocalFS(dir)
	require.NoError(t, err)

	clock := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	exp := export.New(sink, portfolio.NewLedger(1000), signal.NewStore(10), nil,
		export.WithRetention(2),
		export.WithClock(func() time.Time {
			clock = clock.Add(time.Second)
			return clock
		}))

	for i := 0; i < 5; i++ {
		require.NoError(t, exp.Export(context.Background()))
	}

	for _, prefix := range []string{"positions", "signals"} {
		paths, err := sink.List(context.Background(), prefix)
		require.NoError(t, err)
		require.Len(t, paths, 2, prefix)
		// The two newest stamps survive.
		sort.Strings(paths)
		assert.Equal(t, filepath.Join(prefix, "20260301T120004Z.csv"), paths[0])
		assert.Equal(t, filepath.Join(prefix, "20260301T120005Z.csv"), paths[1])
	}
}

type failSink struct{ err error }

func (f *failSink) Write(context.Context, string, []byte) error { return f.err }
func (f *failSink) List(context.Context, string) ([]string, error) {
	return nil, nil
}
func (f *failSink) Delete(context.Context, string) error { return nil }

func TestExportSinkFailureWrapped(t *testing.T) {
	sink := &failSink{err: errors.New("bucket gone")}
	exp := export.New(sink, portfolio.NewLedger(1000), signal.NewStore(10), nil)

	err := exp.Export(context.Background())
	assert.ErrorIs(t, err, core.ErrStorageFailed)
}

func TestExportEmptyPortfolio(t *testing.T) {
	dir := t.TempDir()
	sink, err := export.NewLocalFS(dir)
	require.NoError(t, err)

	exp := export.New(sink, portfolio.NewLedger(1000), signal.NewStore(10), nil)
	require.NoError(t, exp.Export(context.Background()))

	positions, err := sink.List(context.Background(), "positions")
	require.NoError(t, err)
	require.Len(t, positions, 1)

	data, err := os.ReadFile(filepath.Join(dir, positions[0]))
	require.NoError(t, err)
	records, err := csv.NewReader(strings.NewReader(string(data))).ReadAll()
	require.NoError(t, err)
	assert.Len(t, records, 1)
}
