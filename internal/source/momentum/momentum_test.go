package momentum

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/newthinker/aegis/internal/core"
)

func bars(closes ...float64) []core.OHLCV {
	out := make([]core.OHLCV, len(closes))
	base := time.Date(2026, 3, 1, 9, 30, 0, 0, time.UTC)
	for i, c := range closes {
		out[i] = core.OHLCV{
			Symbol:   "AAPL",
			Interval: "1m",
			Open:     c,
			High:     c,
			Low:      c,
			Close:    c,
			Time:     base.Add(time.Duration(i) * time.Minute),
		}
	}
	return out
}

func TestPredict_InsufficientData(t *testing.T) {
	s := New("momo", 2, 3)

	_, err := s.Predict(context.Background(), "AAPL", bars(10, 11))
	require.Error(t, err)
	assert.ErrorIs(t, err, core.ErrInsufficientData)
}

func TestPredict_GoldenCross(t *testing.T) {
	s := New("momo", 2, 3)

	// Fast MA crosses above slow MA on the last bar.
	pred, err := s.Predict(context.Background(), "AAPL", bars(10, 9, 8, 12))
	require.NoError(t, err)
	assert.Equal(t, core.ActionBuy, pred.Action)
	assert.Equal(t, "momo", pred.ModelID)
	assert.GreaterOrEqual(t, pred.Confidence, 0.5)
	assert.LessOrEqual(t, pred.Confidence, 0.9)
}

func TestPredict_DeathCross(t *testing.T) {
	s := New("momo", 2, 3)

	pred, err := s.Predict(context.Background(), "AAPL", bars(8, 9, 10, 6))
	require.NoError(t, err)
	assert.Equal(t, core.ActionSell, pred.Action)
}

func TestPredict_NoCrossHolds(t *testing.T) {
	s := New("momo", 2, 3)

	pred, err := s.Predict(context.Background(), "AAPL", bars(8, 9, 10, 11))
	require.NoError(t, err)
	assert.Equal(t, core.ActionHold, pred.Action)
	assert.Equal(t, 0.5, pred.Confidence)
}

func TestNew_Defaults(t *testing.T) {
	s := New("", 0, 0)
	assert.Equal(t, "momentum", s.Name())
	assert.Equal(t, 10, s.fastPeriod)
	assert.Equal(t, 30, s.slowPeriod)
}
