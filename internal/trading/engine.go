package trading

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/newthinker/aegis/internal/broker"
	"github.com/newthinker/aegis/internal/core"
	"github.com/newthinker/aegis/internal/metrics"
	"github.com/newthinker/aegis/internal/portfolio"
)

// Broker execution modes.
const (
	ModePaper     = "paper"
	ModeDelegated = "delegated"
)

// recentOrdersCap bounds the engine's order history.
const recentOrdersCap = 256

// Engine runs the decision pipeline for resolved signals: admission,
// execution and ledger application. In paper mode the engine mutex is
// held for the full Admit→Apply span. In delegated mode the venue call
// must not block other instruments, so each symbol instead holds its
// own lock from Admit through Apply: concurrent decisions on the same
// instrument serialize, and the second one re-runs admission against
// the state the first one left behind. The ledger's consistency checks
// still guard the fill before it commits.
type Engine struct {
	gate      *Gate
	cooldowns *CooldownTable
	executor  *Executor
	venue     broker.Broker
	ledger    *portfolio.Ledger
	registry  *metrics.Registry
	logger    *zap.Logger
	mode      string

	mu        sync.Mutex
	orders    map[string]*broker.Order
	orderIDs  []string
	submitted map[string]bool
	symLocks  map[string]*sync.Mutex
}

// NewEngine creates a decision engine.
func NewEngine(
	mode string,
	gate *Gate,
	cooldowns *CooldownTable,
	executor *Executor,
	venue broker.Broker,
	ledger *portfolio.Ledger,
	registry *metrics.Registry,
	logger *zap.Logger,
) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{
		gate:      gate,
		cooldowns: cooldowns,
		executor:  executor,
		venue:     venue,
		ledger:    ledger,
		registry:  registry,
		logger:    logger,
		mode:      mode,
		orders:    make(map[string]*broker.Order),
		submitted: make(map[string]bool),
		symLocks:  make(map[string]*sync.Mutex),
	}
}

// Decide processes one cycle of resolved signals. Signals for distinct
// instruments are independent; each is decided in turn.
func (e *Engine) Decide(ctx context.Context, resolved []core.ResolvedSignal) {
	for _, sig := range resolved {
		if ctx.Err() != nil {
			return
		}
		e.decideOne(ctx, sig)
	}
}

func (e *Engine) decideOne(ctx context.Context, sig core.ResolvedSignal) {
	price, err := e.venue.GetCurrentPrice(ctx, sig.Symbol)
	if err != nil {
		e.logger.Warn("skipping signal, price unavailable",
			zap.String("symbol", sig.Symbol),
			zap.Error(err))
		e.recordAdmission("price_unavailable")
		return
	}

	if e.mode == ModePaper {
		e.mu.Lock()
		defer e.mu.Unlock()
		e.run(ctx, sig, price)
		return
	}

	lock := e.symbolLock(sig.Symbol)
	lock.Lock()
	defer lock.Unlock()
	e.run(ctx, sig, price)
}

// symbolLock returns the per-symbol lock held across the delegated
// Admit→Apply span.
func (e *Engine) symbolLock(symbol string) *sync.Mutex {
	e.mu.Lock()
	defer e.mu.Unlock()
	lock, ok := e.symLocks[symbol]
	if !ok {
		lock = &sync.Mutex{}
		e.symLocks[symbol] = lock
	}
	return lock
}

// run admits and executes one signal. The caller holds e.mu (paper) or
// the symbol lock (delegated) for the whole span.
func (e *Engine) run(ctx context.Context, sig core.ResolvedSignal, price float64) {
	view := e.ledger.Snapshot()
	req, reason := e.gate.Admit(sig, view, price, time.Now())
	if reason != RejectNone {
		e.logger.Debug("signal rejected",
			zap.String("symbol", sig.Symbol),
			zap.String("action", string(sig.Action)),
			zap.String("reason", string(reason)))
		e.recordAdmission(string(reason))
		return
	}
	e.recordAdmission("admitted")

	order := e.trackPending(req)
	if !e.markSubmitted(order.ID) {
		// Cancelled between admission and submission.
		return
	}

	result := e.executor.Execute(ctx, req)
	e.finalize(order.ID, result)

	if result.IsFilled() {
		e.cooldowns.MarkTraded(sig.Symbol, time.Now())
		if err := e.ledger.Apply(*result); err != nil {
			e.logger.Error("filled order could not be applied",
				zap.String("order_id", result.ID),
				zap.String("symbol", result.Symbol),
				zap.Error(err))
		}
	}
	if e.registry != nil {
		e.registry.RecordOrder(string(result.Status), result.Commission)
	}
}

// trackPending records a PENDING order for the request.
func (e *Engine) trackPending(req broker.OrderRequest) *broker.Order {
	order := &broker.Order{
		ID:        uuid.NewString(),
		Symbol:    req.Symbol,
		Side:      req.Side,
		Type:      req.Type,
		Quantity:  req.Quantity,
		Status:    broker.OrderStatusPending,
		CreatedAt: time.Now(),
	}

	if e.mode == ModePaper {
		e.storeOrder(order)
		return order
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.storeOrder(order)
	return order
}

// storeOrder appends to the bounded history. Caller holds e.mu.
func (e *Engine) storeOrder(order *broker.Order) {
	e.orders[order.ID] = order
	e.orderIDs = append(e.orderIDs, order.ID)
	if len(e.orderIDs) > recentOrdersCap {
		drop := e.orderIDs[0]
		e.orderIDs = e.orderIDs[1:]
		delete(e.orders, drop)
		delete(e.submitted, drop)
	}
}

// markSubmitted flips the order to submitted unless it was cancelled
// first. Returns false when the order is no longer PENDING.
func (e *Engine) markSubmitted(orderID string) bool {
	if e.mode != ModePaper {
		e.mu.Lock()
		defer e.mu.Unlock()
	}
	order, ok := e.orders[orderID]
	if !ok || order.Status != broker.OrderStatusPending {
		return false
	}
	e.submitted[orderID] = true
	return true
}

// finalize copies the venue's terminal state onto the tracked order.
func (e *Engine) finalize(orderID string, result *broker.Order) {
	if e.mode != ModePaper {
		e.mu.Lock()
		defer e.mu.Unlock()
	}
	order, ok := e.orders[orderID]
	if !ok {
		return
	}
	order.Status = result.Status
	order.FilledPrice = result.FilledPrice
	order.FilledQuantity = result.FilledQuantity
	order.Commission = result.Commission
	order.FilledAt = result.FilledAt
	order.RejectionReason = result.RejectionReason
}

// CancelPending cancels a tracked order that has not been submitted
// yet. Submitted or terminal orders report false: an in-flight
// submission is not cancellable mid-flight.
func (e *Engine) CancelPending(orderID string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	order, ok := e.orders[orderID]
	if !ok || order.Status != broker.OrderStatusPending || e.submitted[orderID] {
		return false
	}
	order.Status = broker.OrderStatusCancelled
	return true
}

// RecentOrders returns up to n most recent orders, newest first.
func (e *Engine) RecentOrders(n int) []broker.Order {
	e.mu.Lock()
	defer e.mu.Unlock()

	if n <= 0 || n > len(e.orderIDs) {
		n = len(e.orderIDs)
	}
	out := make([]broker.Order, 0, n)
	for i := len(e.orderIDs) - 1; i >= 0 && len(out) < n; i-- {
		out = append(out, *e.orders[e.orderIDs[i]])
	}
	return out
}

func (e *Engine) recordAdmission(result string) {
	if e.registry != nil {
		e.registry.RecordAdmission(result)
	}
}
