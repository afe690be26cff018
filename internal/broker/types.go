// Package broker provides order types and the execution venue interface.
package broker

import (
	"context"
	"errors"
	"time"
)

// Broker-specific errors.
var (
	// ErrInvalidSymbol indicates an invalid or empty symbol.
	ErrInvalidSymbol = errors.New("broker: invalid symbol")
	// ErrInvalidQuantity indicates an invalid quantity.
	ErrInvalidQuantity = errors.New("broker: invalid quantity")
	// ErrInvalidSide indicates an unsupported order side.
	ErrInvalidSide = errors.New("broker: invalid side")
	// ErrOrderNotFound indicates the order was not found.
	ErrOrderNotFound = errors.New("broker: order not found")
	// ErrOrderNotCancellable indicates the order cannot be cancelled.
	ErrOrderNotCancellable = errors.New("broker: order cannot be cancelled")
	// ErrPriceUnavailable indicates no current price could be obtained.
	ErrPriceUnavailable = errors.New("broker: price unavailable")
)

// OrderSide represents the direction of an order.
type OrderSide string

const (
	// OrderSideBuy represents a buy order.
	OrderSideBuy OrderSide = "BUY"
	// OrderSideSell represents a sell order.
	OrderSideSell OrderSide = "SELL"
)

// OrderType represents the type of order execution.
type OrderType string

const (
	// OrderTypeMarket executes at current market price.
	OrderTypeMarket OrderType = "MARKET"
	// OrderTypeLimit executes at specified price or better.
	OrderTypeLimit OrderType = "LIMIT"
)

// OrderStatus represents the lifecycle status of an order.
type OrderStatus string

const (
	// OrderStatusPending indicates order is awaiting submission.
	OrderStatusPending OrderStatus = "PENDING"
	// OrderStatusFilled indicates order has been filled.
	OrderStatusFilled OrderStatus = "FILLED"
	// OrderStatusCancelled indicates order was cancelled before submission.
	OrderStatusCancelled OrderStatus = "CANCELLED"
	// OrderStatusRejected indicates order was rejected.
	OrderStatusRejected OrderStatus = "REJECTED"
)

// OrderRequest represents a request to place a new order.
type OrderRequest struct {
	// Symbol is the instrument identifier (e.g., "AAPL").
	Symbol string `json:"symbol"`
	// Side indicates buy or sell.
	Side OrderSide `json:"side"`
	// Type specifies the order execution type.
	Type OrderType `json:"type"`
	// Quantity is the number of shares/units to trade.
	Quantity int64 `json:"quantity"`
	// PriceHint is the price observed at admission time, informational.
	PriceHint float64 `json:"price_hint,omitempty"`
}

// Validate checks if the order request has valid required fields.
func (r OrderRequest) Validate() error {
	if r.Symbol == "" {
		return ErrInvalidSymbol
	}
	if r.Quantity <= 0 {
		return ErrInvalidQuantity
	}
	if r.Side != OrderSideBuy && r.Side != OrderSideSell {
		return ErrInvalidSide
	}
	return nil
}

// Order represents an order through its lifecycle. Mutable only by the
// order lifecycle; terminal once FILLED, CANCELLED or REJECTED.
type Order struct {
	// ID is the unique order identifier.
	ID string `json:"id"`
	// Symbol is the instrument identifier.
	Symbol string `json:"symbol"`
	// Side indicates buy or sell.
	Side OrderSide `json:"side"`
	// Type specifies the order execution type.
	Type OrderType `json:"type"`
	// Quantity is the total requested quantity.
	Quantity int64 `json:"quantity"`
	// Status is the current order status.
	Status OrderStatus `json:"status"`
	// FilledPrice is the average execution price.
	FilledPrice float64 `json:"filled_price,omitempty"`
	// FilledQuantity is the number of shares filled. A venue-side
	// partial fill surfaces as FILLED with FilledQuantity < Quantity.
	FilledQuantity int64 `json:"filled_quantity"`
	// Commission is the total commission charged.
	Commission float64 `json:"commission"`
	// CreatedAt is when the order was created.
	CreatedAt time.Time `json:"created_at"`
	// FilledAt is when the order was filled (nil if not filled).
	FilledAt *time.Time `json:"filled_at,omitempty"`
	// RejectionReason contains the reason if order was rejected.
	RejectionReason string `json:"rejection_reason,omitempty"`
}

// RemainingQuantity returns the unfilled quantity.
func (o Order) RemainingQuantity() int64 {
	return o.Quantity - o.FilledQuantity
}

// IsFilled returns true if the order has been filled.
func (o Order) IsFilled() bool {
	return o.Status == OrderStatusFilled
}

// IsTerminal returns true if the order is in a final state.
func (o Order) IsTerminal() bool {
	return o.Status == OrderStatusFilled ||
		o.Status == OrderStatusCancelled ||
		o.Status == OrderStatusRejected
}

// Broker defines the interface for execution venues.
type Broker interface {
	// Name returns the venue identifier (e.g., "paper").
	Name() string
	// SubmitOrder places an order and returns its terminal state.
	SubmitOrder(ctx context.Context, request OrderRequest) (*Order, error)
	// CancelOrder cancels a pending order. Returns false with
	// ErrOrderNotFound for unknown orders and ErrOrderNotCancellable
	// for terminal ones.
	CancelOrder(ctx context.Context, orderID string) (bool, error)
	// GetCurrentPrice returns the latest market price for a symbol.
	GetCurrentPrice(ctx context.Context, symbol string) (float64, error)
}
