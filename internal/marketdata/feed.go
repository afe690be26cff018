// Package marketdata defines the market data boundary consumed by the
// engine and a simulated feed for paper trading.
package marketdata

import (
	"context"
	"errors"

	"github.com/newthinker/aegis/internal/core"
)

// ErrNoData indicates the feed has no data for a symbol.
var ErrNoData = errors.New("marketdata: no data for symbol")

// Feed supplies quotes and recent bar windows. Implementations must be
// safe for concurrent use.
type Feed interface {
	// Quote returns the latest quote for a symbol.
	Quote(ctx context.Context, symbol string) (core.Quote, error)
	// Window returns up to n most recent bars for a symbol, oldest
	// first.
	Window(ctx context.Context, symbol string, n int) ([]core.OHLCV, error)
}
