// Package trading turns resolved signals into orders: the admission
// gate, the cooldown table, order execution and the decision engine.
package trading

import (
	"math"
	"time"

	"github.com/newthinker/aegis/internal/broker"
	"github.com/newthinker/aegis/internal/core"
	"github.com/newthinker/aegis/internal/portfolio"
)

// RejectReason explains why a signal was not admitted. Rejections are
// normal control flow, not errors.
type RejectReason string

const (
	// RejectNone means the signal was admitted.
	RejectNone RejectReason = ""
	// RejectNoAction means the signal was HOLD.
	RejectNoAction RejectReason = "no_action"
	// RejectLowConfidence means the signal fell below the confidence floor.
	RejectLowConfidence RejectReason = "low_confidence"
	// RejectCooldown means the instrument traded too recently.
	RejectCooldown RejectReason = "cooldown"
	// RejectNoInventory means a SELL had no long position to sell.
	RejectNoInventory RejectReason = "no_inventory"
	// RejectPositionLimit means a BUY would exceed max open positions.
	RejectPositionLimit RejectReason = "position_limit_reached"
	// RejectSizeTooSmall means sizing rounded down to zero shares.
	RejectSizeTooSmall RejectReason = "size_too_small"
)

// GateParams configure the admission checks.
type GateParams struct {
	MaxPositions         int
	PositionSizeFraction float64
	MinTradeInterval     time.Duration
	// MinConfidence below which signals are rejected; 0 disables the
	// check.
	MinConfidence float64
}

// Gate decides whether a resolved signal becomes an order request. It
// performs no mutation: admission is a pure decision over the signal,
// a point-in-time portfolio view and the cooldown table.
type Gate struct {
	params    GateParams
	cooldowns *CooldownTable
}

// NewGate creates a Gate reading the given cooldown table.
func NewGate(params GateParams, cooldowns *CooldownTable) *Gate {
	return &Gate{params: params, cooldowns: cooldowns}
}

// Admit runs the admission checks in order, short-circuiting on the
// first failure, and sizes the order on success.
func (g *Gate) Admit(sig core.ResolvedSignal, view portfolio.View, price float64, now time.Time) (broker.OrderRequest, RejectReason) {
	if sig.Action == core.ActionHold {
		return broker.OrderRequest{}, RejectNoAction
	}

	if g.params.MinConfidence > 0 && sig.Confidence < g.params.MinConfidence {
		return broker.OrderRequest{}, RejectLowConfidence
	}

	if last, ok := g.cooldowns.LastTrade(sig.Symbol); ok {
		if now.Sub(last) < g.params.MinTradeInterval {
			return broker.OrderRequest{}, RejectCooldown
		}
	}

	pos, held := view.Position(sig.Symbol)

	if sig.Action == core.ActionSell && (!held || pos.Quantity <= 0) {
		return broker.OrderRequest{}, RejectNoInventory
	}

	if sig.Action == core.ActionBuy && len(view.Positions) >= g.params.MaxPositions {
		return broker.OrderRequest{}, RejectPositionLimit
	}

	var quantity int64
	switch sig.Action {
	case core.ActionBuy:
		if price <= 0 {
			return broker.OrderRequest{}, RejectSizeTooSmall
		}
		quantity = int64(math.Floor(view.TotalValue * g.params.PositionSizeFraction / price))
		if quantity < 1 {
			return broker.OrderRequest{}, RejectSizeTooSmall
		}
	case core.ActionSell:
		quantity = int64(math.Floor(float64(pos.Quantity) * g.params.PositionSizeFraction))
		if quantity < 1 {
			// Below one share, close the whole position instead.
			quantity = pos.Quantity
		}
	}

	side := broker.OrderSideBuy
	if sig.Action == core.ActionSell {
		side = broker.OrderSideSell
	}
	return broker.OrderRequest{
		Symbol:    sig.Symbol,
		Side:      side,
		Type:      broker.OrderTypeMarket,
		Quantity:  quantity,
		PriceHint: price,
	}, RejectNone
}
