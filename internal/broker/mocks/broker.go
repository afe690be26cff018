// Package mocks provides a configurable broker for tests.
package mocks

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/newthinker/aegis/internal/broker"
)

// MockBroker is a configurable in-memory Broker implementation.
type MockBroker struct {
	mu sync.Mutex

	prices      map[string]float64
	submitErr   error
	rejectNext  string
	partialQty  int64
	commission  float64
	submitDelay time.Duration

	submitted []broker.OrderRequest
	orders    map[string]*broker.Order
}

var _ broker.Broker = (*MockBroker)(nil)

// NewMockBroker creates a mock broker with no prices configured.
func NewMockBroker() *MockBroker {
	return &MockBroker{
		prices: make(map[string]float64),
		orders: make(map[string]*broker.Order),
	}
}

// SetPrice configures the current price for a symbol.
func (m *MockBroker) SetPrice(symbol string, price float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.prices[symbol] = price
}

// SetSubmitError makes subsequent SubmitOrder calls return err.
func (m *MockBroker) SetSubmitError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.submitErr = err
}

// RejectNext makes the next SubmitOrder produce a REJECTED order with
// the given reason.
func (m *MockBroker) RejectNext(reason string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rejectNext = reason
}

// SetPartialFill makes subsequent fills report only qty shares filled.
func (m *MockBroker) SetPartialFill(qty int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.partialQty = qty
}

// SetCommission configures the flat commission charged per fill.
func (m *MockBroker) SetCommission(c float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.commission = c
}

// SetSubmitDelay makes SubmitOrder block for d (or until ctx expires).
func (m *MockBroker) SetSubmitDelay(d time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.submitDelay = d
}

// SubmittedRequests returns a copy of all requests seen so far.
func (m *MockBroker) SubmittedRequests() []broker.OrderRequest {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]broker.OrderRequest, len(m.submitted))
	copy(out, m.submitted)
	return out
}

// Name implements broker.Broker.
func (m *MockBroker) Name() string {
	return "mock"
}

// SubmitOrder implements broker.Broker.
func (m *MockBroker) SubmitOrder(ctx context.Context, req broker.OrderRequest) (*broker.Order, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	m.mu.Lock()
	delay := m.submitDelay
	m.mu.Unlock()
	if delay > 0 {
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.submitted = append(m.submitted, req)
	if m.submitErr != nil {
		return nil, m.submitErr
	}

	order := &broker.Order{
		ID:        uuid.NewString(),
		Symbol:    req.Symbol,
		Side:      req.Side,
		Type:      req.Type,
		Quantity:  req.Quantity,
		CreatedAt: time.Now(),
	}

	if m.rejectNext != "" {
		order.Status = broker.OrderStatusRejected
		order.RejectionReason = m.rejectNext
		m.rejectNext = ""
		m.orders[order.ID] = order
		cp := *order
		return &cp, nil
	}

	price, ok := m.prices[req.Symbol]
	if !ok {
		order.Status = broker.OrderStatusRejected
		order.RejectionReason = "price unavailable"
		m.orders[order.ID] = order
		cp := *order
		return &cp, nil
	}

	filled := req.Quantity
	if m.partialQty > 0 && m.partialQty < filled {
		filled = m.partialQty
	}
	now := time.Now()
	order.Status = broker.OrderStatusFilled
	order.FilledPrice = price
	order.FilledQuantity = filled
	order.Commission = m.commission
	order.FilledAt = &now
	m.orders[order.ID] = order

	cp := *order
	return &cp, nil
}

// CancelOrder implements broker.Broker.
func (m *MockBroker) CancelOrder(ctx context.Context, orderID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	order, ok := m.orders[orderID]
	if !ok {
		return false, broker.ErrOrderNotFound
	}
	if order.IsTerminal() {
		return false, broker.ErrOrderNotCancellable
	}
	order.Status = broker.OrderStatusCancelled
	return true, nil
}

// GetCurrentPrice implements broker.Broker.
func (m *MockBroker) GetCurrentPrice(ctx context.Context, symbol string) (float64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	price, ok := m.prices[symbol]
	if !ok {
		return 0, broker.ErrPriceUnavailable
	}
	return price, nil
}
