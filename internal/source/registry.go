package source

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/newthinker/aegis/internal/core"
	"github.com/newthinker/aegis/internal/metrics"
)

// Registry runs every registered source and collects usable
// predictions. A source returning an error or a stale prediction is
// excluded without aborting the cycle.
type Registry struct {
	sources    []Source
	staleAfter time.Duration
	registry   *metrics.Registry
	logger     *zap.Logger
}

// NewRegistry creates a Registry. Predictions older than staleAfter are
// dropped (0 disables the staleness check).
func NewRegistry(staleAfter time.Duration, registry *metrics.Registry, logger *zap.Logger) *Registry {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Registry{staleAfter: staleAfter, registry: registry, logger: logger}
}

// Register adds a source.
func (r *Registry) Register(s Source) {
	r.sources = append(r.sources, s)
}

// Len returns the number of registered sources.
func (r *Registry) Len() int {
	return len(r.sources)
}

// PredictAll collects predictions from every source for one symbol.
// Partial failure is tolerated: the returned slice holds whatever
// succeeded.
func (r *Registry) PredictAll(ctx context.Context, symbol string, window []core.OHLCV) []core.Prediction {
	now := time.Now()
	preds := make([]core.Prediction, 0, len(r.sources))
	for _, s := range r.sources {
		if ctx.Err() != nil {
			return preds
		}

		pred, err := s.Predict(ctx, symbol, window)
		if err != nil {
			r.logger.Warn("prediction source failed",
				zap.String("model", s.Name()),
				zap.String("symbol", symbol),
				zap.Error(core.WrapError(core.ErrSourceFailed, err)))
			r.record(s.Name(), "error")
			continue
		}
		if r.staleAfter > 0 && now.Sub(pred.ProducedAt) > r.staleAfter {
			r.logger.Warn("prediction source stale",
				zap.String("model", s.Name()),
				zap.String("symbol", symbol),
				zap.Time("produced_at", pred.ProducedAt),
				zap.Error(core.WrapError(core.ErrSourceStale,
					fmt.Errorf("produced %s before the cycle", now.Sub(pred.ProducedAt)))))
			r.record(s.Name(), "stale")
			continue
		}

		r.record(s.Name(), "ok")
		preds = append(preds, pred)
	}
	return preds
}

func (r *Registry) record(model, status string) {
	if r.registry != nil {
		r.registry.RecordPrediction(model, status)
	}
}
