package resolver

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/newthinker/aegis/internal/core"
)

var baseTime = time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

func sig(symbol string, action core.Action, conf float64, offset time.Duration) core.Signal {
	return core.Signal{
		ID:         symbol + "-" + string(action),
		Symbol:     symbol,
		Action:     action,
		Confidence: conf,
		Source:     "test",
		ProducedAt: baseTime.Add(offset),
	}
}

func TestResolve_Empty(t *testing.T) {
	r := New(nil)
	assert.Nil(t, r.Resolve(nil))
}

func TestResolve_SingleSignalPassesThrough(t *testing.T) {
	r := New(nil)

	out := r.Resolve([]core.Signal{sig("AAPL", core.ActionBuy, 0.8, 0)})
	require.Len(t, out, 1)
	assert.Equal(t, core.ActionBuy, out[0].Action)
	assert.Equal(t, 0, out[0].RejectedAlternatives)
}

func TestResolve_DuplicateClusterCollapses(t *testing.T) {
	r := New(nil)

	out := r.Resolve([]core.Signal{
		sig("AAPL", core.ActionBuy, 0.6, 0),
		sig("AAPL", core.ActionBuy, 0.9, time.Minute),
	})
	require.Len(t, out, 1)
	assert.Equal(t, core.ActionBuy, out[0].Action)
	assert.Equal(t, 0.9, out[0].Confidence)
	assert.Equal(t, 1, out[0].RejectedAlternatives)
}

func TestResolve_ConflictScoredByClassWeight(t *testing.T) {
	r := New(map[core.Action]float64{
		core.ActionBuy:  1.0,
		core.ActionSell: 1.2,
		core.ActionHold: 0.5,
	})

	// BUY cluster collapses to 0.9 (score 0.9); SELL scores 1.2 × 0.7 = 0.84.
	out := r.Resolve([]core.Signal{
		sig("ABC", core.ActionBuy, 0.8, 0),
		sig("ABC", core.ActionBuy, 0.9, time.Minute),
		sig("ABC", core.ActionSell, 0.7, 2*time.Minute),
	})
	require.Len(t, out, 1)
	assert.Equal(t, core.ActionBuy, out[0].Action)
	assert.Equal(t, 0.9, out[0].Confidence)
	assert.Equal(t, 2, out[0].RejectedAlternatives)

	// A boosted class outweighs a higher raw confidence: 1.2 × 0.8 = 0.96
	// beats 1.0 × 0.9 = 0.9.
	out = r.Resolve([]core.Signal{
		sig("ABC", core.ActionBuy, 0.9, 0),
		sig("ABC", core.ActionSell, 0.8, time.Minute),
	})
	require.Len(t, out, 1)
	assert.Equal(t, core.ActionSell, out[0].Action)
	assert.Equal(t, 1, out[0].RejectedAlternatives)
}

func TestResolve_TiePrefersEarliest(t *testing.T) {
	r := New(map[core.Action]float64{
		core.ActionBuy:  1.0,
		core.ActionSell: 1.0,
	})

	out := r.Resolve([]core.Signal{
		sig("AAPL", core.ActionSell, 0.8, time.Minute),
		sig("AAPL", core.ActionBuy, 0.8, 0),
	})
	require.Len(t, out, 1)
	assert.Equal(t, core.ActionBuy, out[0].Action)
}

func TestResolve_HoldOnlyStillResolves(t *testing.T) {
	r := New(nil)

	out := r.Resolve([]core.Signal{
		sig("AAPL", core.ActionHold, 0.5, 0),
		sig("AAPL", core.ActionHold, 0.6, time.Minute),
	})
	require.Len(t, out, 1)
	assert.Equal(t, core.ActionHold, out[0].Action)
	assert.Equal(t, 0.6, out[0].Confidence)
}

func TestResolve_MultipleInstrumentsSorted(t *testing.T) {
	r := New(nil)

	out := r.Resolve([]core.Signal{
		sig("MSFT", core.ActionBuy, 0.7, 0),
		sig("AAPL", core.ActionSell, 0.8, 0),
		sig("GOOG", core.ActionHold, 0.5, 0),
	})
	require.Len(t, out, 3)
	assert.Equal(t, "AAPL", out[0].Symbol)
	assert.Equal(t, "GOOG", out[1].Symbol)
	assert.Equal(t, "MSFT", out[2].Symbol)
}

func TestResolve_Idempotent(t *testing.T) {
	r := New(nil)

	in := []core.Signal{
		sig("AAPL", core.ActionBuy, 0.8, 0),
		sig("AAPL", core.ActionSell, 0.7, time.Minute),
		sig("MSFT", core.ActionBuy, 0.6, 0),
	}
	first := r.Resolve(in)

	again := make([]core.Signal, 0, len(first))
	for _, rs := range first {
		again = append(again, rs.Signal)
	}
	second := r.Resolve(again)

	require.Len(t, second, len(first))
	for i := range first {
		assert.Equal(t, first[i].Signal, second[i].Signal)
		assert.Equal(t, 0, second[i].RejectedAlternatives)
	}
}
