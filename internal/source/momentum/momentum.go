// Package momentum implements a moving-average crossover prediction
// source.
package momentum

import (
	"context"
	"fmt"
	"time"

	"github.com/newthinker/aegis/internal/core"
)

// Source predicts from the relation of a fast and a slow simple moving
// average: a fresh golden cross reads BUY, a death cross SELL,
// everything else HOLD.
type Source struct {
	name       string
	fastPeriod int
	slowPeriod int
}

// New creates a momentum source. Defaults: 10/30 periods.
func New(name string, fastPeriod, slowPeriod int) *Source {
	if fastPeriod <= 0 {
		fastPeriod = 10
	}
	if slowPeriod <= fastPeriod {
		slowPeriod = 3 * fastPeriod
	}
	if name == "" {
		name = "momentum"
	}
	return &Source{name: name, fastPeriod: fastPeriod, slowPeriod: slowPeriod}
}

// Name returns the model identifier.
func (s *Source) Name() string {
	return s.name
}

// Predict computes the crossover call over the bar window.
func (s *Source) Predict(ctx context.Context, symbol string, window []core.OHLCV) (core.Prediction, error) {
	if len(window) < s.slowPeriod+1 {
		return core.Prediction{}, core.WrapError(core.ErrInsufficientData,
			fmt.Errorf("%s: need %d bars, have %d", symbol, s.slowPeriod+1, len(window)))
	}

	prices := make([]float64, len(window))
	for i, bar := range window {
		prices[i] = bar.Close
	}

	fastMA := sma(prices, s.fastPeriod)
	slowMA := sma(prices, s.slowPeriod)

	currFast := fastMA[len(fastMA)-1]
	prevFast := fastMA[len(fastMA)-2]
	currSlow := slowMA[len(slowMA)-1]
	prevSlow := slowMA[len(slowMA)-2]

	action := core.ActionHold
	switch {
	case prevFast <= prevSlow && currFast > currSlow:
		action = core.ActionBuy
	case prevFast >= prevSlow && currFast < currSlow:
		action = core.ActionSell
	}

	confidence := 0.5
	if action != core.ActionHold {
		confidence = crossConfidence(currFast, currSlow)
	}

	return core.Prediction{
		Symbol:     symbol,
		ModelID:    s.name,
		Action:     action,
		Confidence: confidence,
		Rationale: fmt.Sprintf("MA%d %.2f vs MA%d %.2f",
			s.fastPeriod, currFast, s.slowPeriod, currSlow),
		ProducedAt: time.Now(),
	}, nil
}

// sma calculates a rolling simple moving average; result length is
// len(prices) − period + 1.
func sma(prices []float64, period int) []float64 {
	result := make([]float64, 0, len(prices)-period+1)

	var sum float64
	for i := 0; i < period; i++ {
		sum += prices[i]
	}
	result = append(result, sum/float64(period))

	for i := period; i < len(prices); i++ {
		sum = sum - prices[i-period] + prices[i]
		result = append(result, sum/float64(period))
	}
	return result
}

// crossConfidence scales divergence into a 0.5–0.9 confidence.
func crossConfidence(fast, slow float64) float64 {
	diff := (fast - slow) / slow
	if diff < 0 {
		diff = -diff
	}
	confidence := 0.5 + diff*10
	if confidence > 0.9 {
		confidence = 0.9
	}
	return confidence
}
