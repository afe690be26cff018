package source

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/newthinker/aegis/internal/core"
)

type fakeSource struct {
	name string
	pred core.Prediction
	err  error
}

func (f *fakeSource) Name() string { return f.name }

func (f *fakeSource) Predict(context.Context, string, []core.OHLCV) (core.Prediction, error) {
	if f.err != nil {
		return core.Prediction{}, f.err
	}
	return f.pred, nil
}

func TestPredictAll_PartialFailureTolerated(t *testing.T) {
	r := NewRegistry(5*time.Minute, nil, nil)
	r.Register(&fakeSource{name: "ok", pred: core.Prediction{
		Symbol: "AAPL", ModelID: "ok", Action: core.ActionBuy,
		Confidence: 0.8, ProducedAt: time.Now(),
	}})
	r.Register(&fakeSource{name: "broken", err: errors.New("model offline")})
	r.Register(&fakeSource{name: "stale", pred: core.Prediction{
		Symbol: "AAPL", ModelID: "stale", Action: core.ActionSell,
		Confidence: 0.9, ProducedAt: time.Now().Add(-time.Hour),
	}})

	preds := r.PredictAll(context.Background(), "AAPL", nil)
	require.Len(t, preds, 1)
	assert.Equal(t, "ok", preds[0].ModelID)
	assert.Equal(t, 3, r.Len())
}

func TestPredictAll_ZeroStaleAfterDisablesCheck(t *testing.T) {
	r := NewRegistry(0, nil, nil)
	r.Register(&fakeSource{name: "old", pred: core.Prediction{
		Symbol: "AAPL", ModelID: "old", Action: core.ActionHold,
		Confidence: 0.5, ProducedAt: time.Now().Add(-24 * time.Hour),
	}})

	preds := r.PredictAll(context.Background(), "AAPL", nil)
	assert.Len(t, preds, 1)
}

func TestPredictAll_ExclusionsCarryErrorCodes(t *testing.T) {
	obs, logs := observer.New(zap.WarnLevel)
	r := NewRegistry(5*time.Minute, nil, zap.New(obs))
	r.Register(&fakeSource{name: "broken", err: errors.New("model offline")})
	r.Register(&fakeSource{name: "old", pred: core.Prediction{
		Symbol: "AAPL", ModelID: "old", Action: core.ActionSell,
		Confidence: 0.9, ProducedAt: time.Now().Add(-time.Hour),
	}})

	preds := r.PredictAll(context.Background(), "AAPL", nil)
	assert.Empty(t, preds)

	entries := logs.All()
	require.Len(t, entries, 2)
	failMsg, _ := entries[0].ContextMap()["error"].(string)
	assert.Contains(t, failMsg, "SOURCE_FAILED")
	staleMsg, _ := entries[1].ContextMap()["error"].(string)
	assert.Contains(t, staleMsg, "SOURCE_STALE")
}

func TestPredictAll_ContextCancelled(t *testing.T) {
	r := NewRegistry(0, nil, nil)
	r.Register(&fakeSource{name: "a", pred: core.Prediction{ProducedAt: time.Now()}})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	preds := r.PredictAll(ctx, "AAPL", nil)
	assert.Empty(t, preds)
}
