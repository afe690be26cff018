package app

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/newthinker/aegis/internal/config"
)

func testConfig(t *testing.T) *config.Config {
	cfg := config.Defaults()
	cfg.Watchlist = []string{"AAPL", "GOOG"}
	cfg.Ensemble.Models = map[string]config.ModelConfig{
		"fast-cross": {
			Enabled: true,
			Type:    "momentum",
			Weight:  1.0,
			Params:  map[string]any{"fast_period": 2, "slow_period": 3},
		},
	}
	cfg.Gate.MinConfidence = 0
	cfg.Gate.MinTradeInterval = 0
	cfg.Metrics.Enabled = false
	cfg.Export.Enabled = true
	cfg.Export.Type = "localfs"
	cfg.Export.Path = t.TempDir()
	require.NoError(t, cfg.Validate())
	return cfg
}

func TestNewWiresConfiguredModels(t *testing.T) {
	a, err := New(testConfig(t), nil)
	require.NoError(t, err)
	assert.Equal(t, 1, a.sources.Len())
	assert.NotNil(t, a.exporter)
}

func TestNewRejectsUnknownModelType(t *testing.T) {
	cfg := testConfig(t)
	cfg.Ensemble.Models["bad"] = config.ModelConfig{Enabled: true, Type: "astrology"}
	_, err := New(cfg, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown type")
}

func TestNewSkipsDisabledModels(t *testing.T) {
	cfg := testConfig(t)
	cfg.Ensemble.Models["off"] = config.ModelConfig{Enabled: false, Type: "momentum"}
	a, err := New(cfg, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, a.sources.Len())
}

func TestRunOnceMaintainsLedgerInvariant(t *testing.T) {
	a, err := New(testConfig(t), nil)
	require.NoError(t, err)

	ctx := context.Background()
	for i := 0; i < 10; i++ {
		a.RunOnce(ctx)
	}

	view := a.Ledger().Snapshot()
	invested := 0.0
	for _, p := range view.Positions {
		invested += p.MarketValue
	}
	assert.InDelta(t, view.TotalValue, view.CashBalance+invested, 1e-6)
	assert.False(t, view.TakenAt.IsZero())
}

func TestRunStopsOnContextCancel(t *testing.T) {
	cfg := testConfig(t)
	cfg.Export.Enabled = false
	cfg.Intervals = config.IntervalsConfig{
		Market:    5 * time.Millisecond,
		Analysis:  5 * time.Millisecond,
		Portfolio: 5 * time.Millisecond,
		Export:    5 * time.Millisecond,
	}
	a, err := New(cfg, nil)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Millisecond)
	defer cancel()

	done := make(chan struct{})
	go func() {
		_ = a.Run(ctx)
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not stop after context cancellation")
	}
}

func TestIntParam(t *testing.T) {
	params := map[string]any{"a": 5, "b": float64(7), "c": "nope"}
	assert.Equal(t, 5, intParam(params, "a", 1))
	assert.Equal(t, 7, intParam(params, "b", 1))
	assert.Equal(t, 1, intParam(params, "c", 1))
	assert.Equal(t, 1, intParam(params, "missing", 1))
}
