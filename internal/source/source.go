// Package source defines the prediction model boundary and the registry
// that collects predictions across models.
package source

import (
	"context"

	"github.com/newthinker/aegis/internal/core"
)

// Source is a prediction model. Each concrete source adapts its native
// output into a Prediction at its own boundary; the engine never
// branches on source type.
type Source interface {
	// Name returns the model identifier used for weighting.
	Name() string
	// Predict produces a prediction for a symbol over a bar window
	// (oldest first).
	Predict(ctx context.Context, symbol string, window []core.OHLCV) (core.Prediction, error)
}
