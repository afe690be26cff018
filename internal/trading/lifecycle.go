package trading

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/newthinker/aegis/internal/broker"
)

// Executor submits order requests to the execution venue with a bounded
// timeout. Venue errors and timeouts become REJECTED orders; there is
// no same-cycle retry.
type Executor struct {
	venue   broker.Broker
	timeout time.Duration
	logger  *zap.Logger
}

// NewExecutor creates an Executor for the given venue.
func NewExecutor(venue broker.Broker, timeout time.Duration, logger *zap.Logger) *Executor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Executor{venue: venue, timeout: timeout, logger: logger}
}

// Execute submits the request and returns the terminal order. Must not
// be called while holding the portfolio lock.
func (e *Executor) Execute(ctx context.Context, req broker.OrderRequest) *broker.Order {
	if e.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.timeout)
		defer cancel()
	}

	order, err := e.venue.SubmitOrder(ctx, req)
	if err != nil {
		e.logger.Warn("order submission failed",
			zap.String("symbol", req.Symbol),
			zap.String("side", string(req.Side)),
			zap.Error(err))
		return &broker.Order{
			ID:              uuid.NewString(),
			Symbol:          req.Symbol,
			Side:            req.Side,
			Type:            req.Type,
			Quantity:        req.Quantity,
			Status:          broker.OrderStatusRejected,
			RejectionReason: err.Error(),
			CreatedAt:       time.Now(),
		}
	}
	return order
}
