package marketdata

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/newthinker/aegis/internal/core"
)

func TestSimFeed_QuoteUnknownSymbol(t *testing.T) {
	f := NewSimFeed(map[string]float64{"AAPL": 150}, 42)

	_, err := f.Quote(context.Background(), "MSFT")
	assert.ErrorIs(t, err, ErrNoData)
	assert.ErrorIs(t, err, core.ErrSymbolNotFound)
}

func TestSimFeed_StepAdvancesHistory(t *testing.T) {
	f := NewSimFeed(map[string]float64{"AAPL": 150}, 42)

	_, err := f.Window(context.Background(), "AAPL", 10)
	assert.ErrorIs(t, err, ErrNoData)

	for i := 0; i < 5; i++ {
		f.Step()
	}

	bars, err := f.Window(context.Background(), "AAPL", 3)
	require.NoError(t, err)
	assert.Len(t, bars, 3)

	q, err := f.Quote(context.Background(), "AAPL")
	require.NoError(t, err)
	assert.Equal(t, bars[len(bars)-1].Close, q.Price)
	assert.Greater(t, q.Price, 0.0)
}

func TestSimFeed_HistoryCapped(t *testing.T) {
	f := NewSimFeed(map[string]float64{"AAPL": 150}, 1)

	for i := 0; i < simHistoryCap+50; i++ {
		f.Step()
	}

	bars, err := f.Window(context.Background(), "AAPL", 0)
	require.NoError(t, err)
	assert.Len(t, bars, simHistoryCap)
}
