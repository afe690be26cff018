package portfolio

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/newthinker/aegis/internal/broker"
	"github.com/newthinker/aegis/internal/core"
)

func filledOrder(id, symbol string, side broker.OrderSide, qty int64, price, commission float64) broker.Order {
	now := time.Now()
	return broker.Order{
		ID:             id,
		Symbol:         symbol,
		Side:           side,
		Type:           broker.OrderTypeMarket,
		Quantity:       qty,
		Status:         broker.OrderStatusFilled,
		FilledPrice:    price,
		FilledQuantity: qty,
		Commission:     commission,
		CreatedAt:      now,
		FilledAt:       &now,
	}
}

func assertInvariant(t *testing.T, l *Ledger) {
	t.Helper()
	v := l.Snapshot()
	sum := v.CashBalance
	for _, p := range v.Positions {
		sum += p.MarketValue
	}
	assert.InDelta(t, v.TotalValue, sum, 1e-6)
}

func TestApply_BuyCreatesPosition(t *testing.T) {
	l := NewLedger(100000)

	err := l.Apply(filledOrder("o1", "AAPL", broker.OrderSideBuy, 10, 100, 1))
	require.NoError(t, err)

	v := l.Snapshot()
	assert.InDelta(t, 100000-1001, v.CashBalance, 1e-9)

	pos, ok := v.Position("AAPL")
	require.True(t, ok)
	assert.Equal(t, int64(10), pos.Quantity)
	assert.Equal(t, 100.0, pos.AveragePrice)
	assertInvariant(t, l)
}

func TestApply_BuyAveragesCost(t *testing.T) {
	l := NewLedger(100000)

	require.NoError(t, l.Apply(filledOrder("o1", "AAPL", broker.OrderSideBuy, 10, 100, 0)))
	require.NoError(t, l.Apply(filledOrder("o2", "AAPL", broker.OrderSideBuy, 10, 120, 0)))

	pos, ok := l.Snapshot().Position("AAPL")
	require.True(t, ok)
	assert.Equal(t, int64(20), pos.Quantity)
	assert.InDelta(t, 110.0, pos.AveragePrice, 1e-9)
	assertInvariant(t, l)
}

func TestApply_SellRealizesPL(t *testing.T) {
	l := NewLedger(100000)

	require.NoError(t, l.Apply(filledOrder("o1", "AAPL", broker.OrderSideBuy, 10, 100, 0)))
	require.NoError(t, l.Apply(filledOrder("o2", "AAPL", broker.OrderSideSell, 4, 110, 0.5)))

	v := l.Snapshot()
	pos, ok := v.Position("AAPL")
	require.True(t, ok)
	assert.Equal(t, int64(6), pos.Quantity)
	// (110 − 100) × 4
	assert.InDelta(t, 40.0, v.Metrics.RealizedPL, 1e-9)
	// 100000 − 1000 + 440 − 0.5
	assert.InDelta(t, 99439.5, v.CashBalance, 1e-9)
	assertInvariant(t, l)
}

func TestApply_SellToZeroRemovesPosition(t *testing.T) {
	l := NewLedger(100000)

	require.NoError(t, l.Apply(filledOrder("o1", "AAPL", broker.OrderSideBuy, 10, 100, 0)))
	require.NoError(t, l.Apply(filledOrder("o2", "AAPL", broker.OrderSideSell, 10, 90, 0)))

	v := l.Snapshot()
	_, ok := v.Position("AAPL")
	assert.False(t, ok)
	assert.InDelta(t, -100.0, v.Metrics.RealizedPL, 1e-9)
	assert.Equal(t, 0, v.Metrics.PositionCount)
	assertInvariant(t, l)
}

func TestApply_OversellRejected(t *testing.T) {
	l := NewLedger(100000)

	require.NoError(t, l.Apply(filledOrder("o1", "AAPL", broker.OrderSideBuy, 5, 100, 0)))
	before := l.Snapshot()

	err := l.Apply(filledOrder("o2", "AAPL", broker.OrderSideSell, 10, 100, 0))
	require.Error(t, err)
	assert.ErrorIs(t, err, core.ErrLedgerViolation)

	after := l.Snapshot()
	assert.Equal(t, before.CashBalance, after.CashBalance)
	pos, _ := after.Position("AAPL")
	assert.Equal(t, int64(5), pos.Quantity)
}

func TestApply_SellWithoutPositionRejected(t *testing.T) {
	l := NewLedger(100000)

	err := l.Apply(filledOrder("o1", "AAPL", broker.OrderSideSell, 10, 100, 0))
	assert.ErrorIs(t, err, core.ErrLedgerViolation)
	assert.Empty(t, l.Transactions())
}

func TestApply_InsufficientCashRejected(t *testing.T) {
	l := NewLedger(500)

	err := l.Apply(filledOrder("o1", "AAPL", broker.OrderSideBuy, 10, 100, 1))
	require.Error(t, err)
	assert.ErrorIs(t, err, core.ErrLedgerViolation)

	v := l.Snapshot()
	assert.Equal(t, 500.0, v.CashBalance)
	assert.Empty(t, v.Positions)
}

func TestApply_NonFilledOrderRejected(t *testing.T) {
	l := NewLedger(100000)

	o := filledOrder("o1", "AAPL", broker.OrderSideBuy, 10, 100, 0)
	o.Status = broker.OrderStatusRejected
	err := l.Apply(o)
	assert.ErrorIs(t, err, core.ErrOrderFailed)
}

func TestApply_PartialFillUsesFilledQuantity(t *testing.T) {
	l := NewLedger(100000)

	o := filledOrder("o1", "AAPL", broker.OrderSideBuy, 10, 100, 0)
	o.FilledQuantity = 7
	require.NoError(t, l.Apply(o))

	pos, ok := l.Snapshot().Position("AAPL")
	require.True(t, ok)
	assert.Equal(t, int64(7), pos.Quantity)
	assertInvariant(t, l)
}

func TestUpdatePrice_RefreshesUnrealizedPL(t *testing.T) {
	l := NewLedger(100000)

	require.NoError(t, l.Apply(filledOrder("o1", "AAPL", broker.OrderSideBuy, 10, 100, 0)))
	l.UpdatePrice("AAPL", 110)

	pos, ok := l.Snapshot().Position("AAPL")
	require.True(t, ok)
	assert.Equal(t, 110.0, pos.CurrentPrice)
	assert.InDelta(t, 100.0, pos.UnrealizedPL, 1e-9)
	assert.InDelta(t, 10.0, pos.UnrealizedPLPercent, 1e-9)
	assertInvariant(t, l)

	// Unknown symbols are a no-op.
	l.UpdatePrice("MSFT", 50)
	assertInvariant(t, l)
}

func TestTransactions_Recorded(t *testing.T) {
	l := NewLedger(100000)

	require.NoError(t, l.Apply(filledOrder("o1", "AAPL", broker.OrderSideBuy, 10, 100, 1)))
	require.NoError(t, l.Apply(filledOrder("o2", "AAPL", broker.OrderSideSell, 5, 105, 1)))

	txs := l.Transactions()
	require.Len(t, txs, 2)
	assert.Equal(t, "o1", txs[0].OrderID)
	assert.Equal(t, broker.OrderSideSell, txs[1].Side)
}

func TestSnapshot_IsDeepCopy(t *testing.T) {
	l := NewLedger(100000)
	require.NoError(t, l.Apply(filledOrder("o1", "AAPL", broker.OrderSideBuy, 10, 100, 0)))

	v := l.Snapshot()
	v.Positions[0].Quantity = 999

	pos, _ := l.Snapshot().Position("AAPL")
	assert.Equal(t, int64(10), pos.Quantity)
}
