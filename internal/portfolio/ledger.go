// Package portfolio owns cash, positions and derived risk metrics. The
// Ledger is the single source of truth: all mutation goes through its
// lock, and readers get immutable snapshots.
package portfolio

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/newthinker/aegis/internal/broker"
	"github.com/newthinker/aegis/internal/core"
)

// historyCap bounds the total-value history used for return metrics.
const historyCap = 1000

// Position represents a holding. Owned exclusively by the Ledger;
// quantity sign encodes long/short.
type Position struct {
	Symbol              string    `json:"symbol"`
	Quantity            int64     `json:"quantity"`
	AveragePrice        float64   `json:"average_price"`
	CurrentPrice        float64   `json:"current_price"`
	MarketValue         float64   `json:"market_value"`
	UnrealizedPL        float64   `json:"unrealized_pl"`
	UnrealizedPLPercent float64   `json:"unrealized_pl_percent"`
	RealizedPL          float64   `json:"realized_pl"`
	LastUpdated         time.Time `json:"last_updated"`
}

// Transaction is one applied fill, kept for audit.
type Transaction struct {
	Time       time.Time        `json:"time"`
	OrderID    string           `json:"order_id"`
	Symbol     string           `json:"symbol"`
	Side       broker.OrderSide `json:"side"`
	Quantity   int64            `json:"quantity"`
	Price      float64          `json:"price"`
	Commission float64          `json:"commission"`
}

// View is an immutable point-in-time snapshot for the admission gate
// and exporters.
type View struct {
	TotalValue  float64
	CashBalance float64
	Positions   []Position
	Metrics     Metrics
	TakenAt     time.Time
}

// Position returns the snapshot position for a symbol, if any.
func (v View) Position(symbol string) (Position, bool) {
	for _, p := range v.Positions {
		if p.Symbol == symbol {
			return p, true
		}
	}
	return Position{}, false
}

// Ledger tracks cash, positions and metrics under a single mutex.
type Ledger struct {
	mu sync.Mutex

	cash         float64
	positions    map[string]*Position
	realized     float64
	history      []float64
	transactions []Transaction
	metrics      Metrics

	initialCapital float64
	riskFreeRate   float64
	varZ           float64
	logger         *zap.Logger
}

// Option configures a Ledger.
type Option func(*Ledger)

// WithRiskFreeRate sets the per-period risk-free rate used by the
// Sharpe ratio.
func WithRiskFreeRate(r float64) Option {
	return func(l *Ledger) { l.riskFreeRate = r }
}

// WithVaRZScore sets the z-score of the parametric VaR approximation.
func WithVaRZScore(z float64) Option {
	return func(l *Ledger) { l.varZ = z }
}

// WithLogger sets the ledger logger.
func WithLogger(logger *zap.Logger) Option {
	return func(l *Ledger) {
		if logger != nil {
			l.logger = logger
		}
	}
}

// NewLedger creates a Ledger holding the initial capital in cash.
func NewLedger(initialCapital float64, opts ...Option) *Ledger {
	l := &Ledger{
		cash:           initialCapital,
		positions:      make(map[string]*Position),
		initialCapital: initialCapital,
		varZ:           1.645,
		logger:         zap.NewNop(),
	}
	for _, opt := range opts {
		opt(l)
	}
	l.recompute()
	return l
}

// Apply commits a filled order: one position mutation plus the cash
// move, then a metrics recompute. A consistency violation (negative
// cash after a BUY, overselling) aborts without committing.
func (l *Ledger) Apply(o broker.Order) error {
	if !o.IsFilled() {
		return core.WrapError(core.ErrOrderFailed,
			fmt.Errorf("cannot apply order %s in status %s", o.ID, o.Status))
	}
	if o.FilledQuantity <= 0 || o.FilledPrice <= 0 {
		return core.WrapError(core.ErrOrderFailed,
			fmt.Errorf("order %s has no usable fill", o.ID))
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	qty := o.FilledQuantity
	price := o.FilledPrice
	notional := float64(qty) * price

	switch o.Side {
	case broker.OrderSideBuy:
		cost := notional + o.Commission
		if l.cash-cost < 0 {
			return core.WrapError(core.ErrLedgerViolation,
				fmt.Errorf("buy %s would drive cash negative: have %.2f, need %.2f",
					o.Symbol, l.cash, cost))
		}
		l.cash -= cost

		pos, ok := l.positions[o.Symbol]
		if !ok {
			pos = &Position{Symbol: o.Symbol}
			l.positions[o.Symbol] = pos
		}
		total := float64(pos.Quantity)*pos.AveragePrice + notional
		pos.Quantity += qty
		pos.AveragePrice = total / float64(pos.Quantity)
		pos.CurrentPrice = price
		pos.LastUpdated = time.Now()

	case broker.OrderSideSell:
		pos, ok := l.positions[o.Symbol]
		if !ok || pos.Quantity < qty {
			held := int64(0)
			if ok {
				held = pos.Quantity
			}
			return core.WrapError(core.ErrLedgerViolation,
				fmt.Errorf("sell %d %s exceeds held %d", qty, o.Symbol, held))
		}
		l.cash += notional - o.Commission

		realized := (price - pos.AveragePrice) * float64(qty)
		pos.RealizedPL += realized
		l.realized += realized
		pos.Quantity -= qty
		pos.CurrentPrice = price
		pos.LastUpdated = time.Now()
		if pos.Quantity == 0 {
			delete(l.positions, o.Symbol)
		}

	default:
		return core.WrapError(core.ErrOrderFailed,
			fmt.Errorf("order %s has unknown side %q", o.ID, o.Side))
	}

	l.transactions = append(l.transactions, Transaction{
		Time:       time.Now(),
		OrderID:    o.ID,
		Symbol:     o.Symbol,
		Side:       o.Side,
		Quantity:   qty,
		Price:      price,
		Commission: o.Commission,
	})
	l.recompute()

	l.logger.Info("order applied",
		zap.String("order_id", o.ID),
		zap.String("symbol", o.Symbol),
		zap.String("side", string(o.Side)),
		zap.Int64("quantity", qty),
		zap.Float64("price", price),
		zap.Float64("cash", l.cash))
	return nil
}

// UpdatePrice refreshes a position's market price and the derived
// metrics. Unknown symbols are ignored.
func (l *Ledger) UpdatePrice(symbol string, price float64) {
	if price <= 0 {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	pos, ok := l.positions[symbol]
	if !ok {
		return
	}
	pos.CurrentPrice = price
	pos.LastUpdated = time.Now()
	l.recompute()
}

// RecordSnapshot appends the current total value to the return history
// feeding volatility, Sharpe and drawdown.
func (l *Ledger) RecordSnapshot() {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.history = append(l.history, l.metrics.TotalValue)
	if len(l.history) > historyCap {
		l.history = l.history[len(l.history)-historyCap:]
	}
	l.recompute()
}

// Snapshot returns an immutable consistent view.
func (l *Ledger) Snapshot() View {
	l.mu.Lock()
	defer l.mu.Unlock()

	positions := make([]Position, 0, len(l.positions))
	for _, p := range l.positions {
		positions = append(positions, *p)
	}
	sort.Slice(positions, func(i, j int) bool {
		return positions[i].Symbol < positions[j].Symbol
	})

	return View{
		TotalValue:  l.metrics.TotalValue,
		CashBalance: l.cash,
		Positions:   positions,
		Metrics:     l.metrics,
		TakenAt:     time.Now(),
	}
}

// Metrics returns the latest computed metrics.
func (l *Ledger) Metrics() Metrics {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.metrics
}

// Transactions returns a copy of the audit log.
func (l *Ledger) Transactions() []Transaction {
	l.mu.Lock()
	defer l.mu.Unlock()

	out := make([]Transaction, len(l.transactions))
	copy(out, l.transactions)
	return out
}
