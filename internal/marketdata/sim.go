package marketdata

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"github.com/newthinker/aegis/internal/core"
)

const simHistoryCap = 500

// SimFeed is a random-walk price feed for paper trading. Each Step
// advances every symbol's price by a small random return and appends a
// bar to its history.
type SimFeed struct {
	mu      sync.RWMutex
	rng     *rand.Rand
	prices  map[string]float64
	history map[string][]core.OHLCV
	drift   float64
	vol     float64
}

// NewSimFeed creates a simulated feed seeded with starting prices.
func NewSimFeed(start map[string]float64, seed int64) *SimFeed {
	f := &SimFeed{
		rng:     rand.New(rand.NewSource(seed)),
		prices:  make(map[string]float64, len(start)),
		history: make(map[string][]core.OHLCV, len(start)),
		drift:   0.0001,
		vol:     0.01,
	}
	for symbol, price := range start {
		f.prices[symbol] = price
	}
	return f
}

// Step advances every symbol by one bar.
func (f *SimFeed) Step() {
	f.mu.Lock()
	defer f.mu.Unlock()

	now := time.Now()
	for symbol, price := range f.prices {
		ret := f.drift + f.vol*f.rng.NormFloat64()
		next := price * (1 + ret)
		if next < 0.01 {
			next = 0.01
		}

		high, low := price, next
		if next > price {
			high, low = next, price
		}
		bar := core.OHLCV{
			Symbol:   symbol,
			Interval: "1m",
			Open:     price,
			High:     high,
			Low:      low,
			Close:    next,
			Volume:   1000 + f.rng.Int63n(9000),
			Time:     now,
		}

		bars := append(f.history[symbol], bar)
		if len(bars) > simHistoryCap {
			bars = bars[len(bars)-simHistoryCap:]
		}
		f.history[symbol] = bars
		f.prices[symbol] = next
	}
}

// Quote returns the latest simulated price.
func (f *SimFeed) Quote(ctx context.Context, symbol string) (core.Quote, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()

	price, ok := f.prices[symbol]
	if !ok {
		return core.Quote{}, core.WrapError(core.ErrSymbolNotFound, ErrNoData)
	}
	return core.Quote{
		Symbol: symbol,
		Price:  price,
		Time:   time.Now(),
		Source: "sim",
	}, nil
}

// Window returns up to n most recent bars, oldest first.
func (f *SimFeed) Window(ctx context.Context, symbol string, n int) ([]core.OHLCV, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()

	bars, ok := f.history[symbol]
	if !ok || len(bars) == 0 {
		return nil, ErrNoData
	}
	if n > 0 && len(bars) > n {
		bars = bars[len(bars)-n:]
	}
	out := make([]core.OHLCV, len(bars))
	copy(out, bars)
	return out, nil
}
