// Package paper implements a simulated execution venue: orders fill
// immediately and fully at the current market price, minus a fixed
// percentage commission.
package paper

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/newthinker/aegis/internal/broker"
	"github.com/newthinker/aegis/internal/core"
)

// PriceSource supplies current quotes for fills.
type PriceSource interface {
	Quote(ctx context.Context, symbol string) (core.Quote, error)
}

// Broker is an in-memory paper trading venue.
type Broker struct {
	feed           PriceSource
	commissionRate float64
	logger         *zap.Logger

	mu     sync.Mutex
	orders map[string]*broker.Order
}

// New creates a paper broker filling against the given price source.
func New(feed PriceSource, commissionRate float64, logger *zap.Logger) *Broker {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Broker{
		feed:           feed,
		commissionRate: commissionRate,
		logger:         logger,
		orders:         make(map[string]*broker.Order),
	}
}

// Name returns the venue identifier.
func (b *Broker) Name() string {
	return "paper"
}

// SubmitOrder fills the full requested quantity at the current price.
// An unavailable price yields a REJECTED order, not an error.
func (b *Broker) SubmitOrder(ctx context.Context, req broker.OrderRequest) (*broker.Order, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	order := &broker.Order{
		ID:        uuid.NewString(),
		Symbol:    req.Symbol,
		Side:      req.Side,
		Type:      req.Type,
		Quantity:  req.Quantity,
		Status:    broker.OrderStatusPending,
		CreatedAt: time.Now(),
	}

	quote, err := b.feed.Quote(ctx, req.Symbol)
	if err != nil {
		order.Status = broker.OrderStatusRejected
		order.RejectionReason = fmt.Sprintf("price unavailable: %v", err)
		b.store(order)
		b.logger.Warn("paper order rejected",
			zap.String("symbol", req.Symbol),
			zap.Error(err))
		return copyOrder(order), nil
	}

	now := time.Now()
	order.Status = broker.OrderStatusFilled
	order.FilledPrice = quote.Price
	order.FilledQuantity = req.Quantity
	order.Commission = quote.Price * float64(req.Quantity) * b.commissionRate
	order.FilledAt = &now
	b.store(order)

	b.logger.Info("paper order filled",
		zap.String("order_id", order.ID),
		zap.String("symbol", order.Symbol),
		zap.String("side", string(order.Side)),
		zap.Int64("quantity", order.FilledQuantity),
		zap.Float64("price", order.FilledPrice),
		zap.Float64("commission", order.Commission))

	return copyOrder(order), nil
}

// CancelOrder reports false for unknown or terminal orders. Paper
// orders fill or reject on submission, so there is never anything to
// cancel venue-side.
func (b *Broker) CancelOrder(ctx context.Context, orderID string) (bool, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	order, ok := b.orders[orderID]
	if !ok {
		return false, fmt.Errorf("%w: %s", broker.ErrOrderNotFound, orderID)
	}
	if order.IsTerminal() {
		return false, fmt.Errorf("%w: %s is %s", broker.ErrOrderNotCancellable, orderID, order.Status)
	}
	order.Status = broker.OrderStatusCancelled
	return true, nil
}

// GetCurrentPrice returns the latest price from the feed.
func (b *Broker) GetCurrentPrice(ctx context.Context, symbol string) (float64, error) {
	quote, err := b.feed.Quote(ctx, symbol)
	if err != nil {
		return 0, fmt.Errorf("%w: %s", broker.ErrPriceUnavailable, symbol)
	}
	return quote.Price, nil
}

// GetOrder returns a copy of a previously submitted order.
func (b *Broker) GetOrder(orderID string) (*broker.Order, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	order, ok := b.orders[orderID]
	if !ok {
		return nil, false
	}
	return copyOrder(order), true
}

func (b *Broker) store(order *broker.Order) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.orders[order.ID] = order
}

func copyOrder(o *broker.Order) *broker.Order {
	cp := *o
	if o.FilledAt != nil {
		t := *o.FilledAt
		cp.FilledAt = &t
	}
	return &cp
}
