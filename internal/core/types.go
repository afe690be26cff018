package core

import "time"

// Action represents a directional trading call.
type Action string

const (
	ActionBuy  Action = "BUY"
	ActionSell Action = "SELL"
	ActionHold Action = "HOLD"
)

// IsValid reports whether the action is one of the known calls.
func (a Action) IsValid() bool {
	return a == ActionBuy || a == ActionSell || a == ActionHold
}

// Quote represents a real-time price quote.
type Quote struct {
	Symbol string
	Price  float64
	Volume int64
	Time   time.Time
	Source string
}

// OHLCV represents a candlestick/bar.
type OHLCV struct {
	Symbol   string
	Interval string // "1m", "5m", "1d"
	Open     float64
	High     float64
	Low      float64
	Close    float64
	Volume   int64
	Time     time.Time
}

// Prediction is the typed output of a single prediction model for one
// instrument. Immutable once created; discarded after fusion.
type Prediction struct {
	Symbol      string
	ModelID     string
	Action      Action
	Confidence  float64 // [0,1]
	TargetPrice float64 // 0 = not provided
	Rationale   string
	ProducedAt  time.Time
}

// FusedSignal is the ensemble result for one instrument in one analysis
// cycle. Derived, never persisted on its own.
type FusedSignal struct {
	Symbol     string
	Action     Action
	Confidence float64
	ModelIDs   []string
	Method     string
	ProducedAt time.Time
}

// Signal represents one admissible trading opinion for an instrument.
// Multiple signals per instrument may coexist before resolution.
type Signal struct {
	ID         string
	Symbol     string
	Action     Action
	Confidence float64
	Source     string
	ProducedAt time.Time
}

// ResolvedSignal is the single surviving signal for an instrument after
// deduplication and conflict arbitration.
type ResolvedSignal struct {
	Signal
	// RejectedAlternatives counts the signals for the same instrument
	// that were collapsed or lost arbitration.
	RejectedAlternatives int
}
