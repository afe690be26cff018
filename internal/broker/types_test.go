package broker

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestOrderRequest_Validate(t *testing.T) {
	valid := OrderRequest{Symbol: "AAPL", Side: OrderSideBuy, Type: OrderTypeMarket, Quantity: 10}
	assert.NoError(t, valid.Validate())

	noSymbol := valid
	noSymbol.Symbol = ""
	assert.ErrorIs(t, noSymbol.Validate(), ErrInvalidSymbol)

	zeroQty := valid
	zeroQty.Quantity = 0
	assert.ErrorIs(t, zeroQty.Validate(), ErrInvalidQuantity)

	badSide := valid
	badSide.Side = "SHORT"
	assert.ErrorIs(t, badSide.Validate(), ErrInvalidSide)
}

func TestOrder_StateHelpers(t *testing.T) {
	o := Order{Status: OrderStatusPending, Quantity: 10}
	assert.False(t, o.IsTerminal())
	assert.False(t, o.IsFilled())

	o.Status = OrderStatusFilled
	o.FilledQuantity = 7
	assert.True(t, o.IsTerminal())
	assert.True(t, o.IsFilled())
	assert.Equal(t, int64(3), o.RemainingQuantity())

	for _, s := range []OrderStatus{OrderStatusCancelled, OrderStatusRejected} {
		o.Status = s
		assert.True(t, o.IsTerminal())
		assert.False(t, o.IsFilled())
	}
}
