package trading

import (
	"sync"
	"time"
)

// CooldownTable records the last fill time per instrument. Updated only
// on FILLED orders; read by the gate to enforce the minimum trade
// interval.
type CooldownTable struct {
	mu   sync.Mutex
	last map[string]time.Time
}

// NewCooldownTable creates an empty cooldown table.
func NewCooldownTable() *CooldownTable {
	return &CooldownTable{last: make(map[string]time.Time)}
}

// LastTrade returns the last fill time for a symbol.
func (c *CooldownTable) LastTrade(symbol string) (time.Time, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	t, ok := c.last[symbol]
	return t, ok
}

// MarkTraded records a fill for a symbol.
func (c *CooldownTable) MarkTraded(symbol string, at time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.last[symbol] = at
}
