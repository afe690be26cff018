// Package ensemble fuses per-instrument predictions from multiple models
// into a single signal using a configurable strategy.
package ensemble

import (
	"fmt"
	"math"
	"time"

	"github.com/newthinker/aegis/internal/core"
)

// Fusion methods.
const (
	MethodWeightedAverage    = "weighted_average"
	MethodMajorityVote       = "majority_vote"
	MethodConfidenceWeighted = "confidence_weighted"
)

// Fuser combines predictions for one instrument into a FusedSignal.
// Pure and deterministic given its configuration; safe for concurrent use.
type Fuser struct {
	method     string
	weights    map[string]float64
	precedence []core.Action
}

// Option configures a Fuser.
type Option func(*Fuser)

// WithWeights sets static per-model weights. Models without an entry
// weigh 1.0.
func WithWeights(weights map[string]float64) Option {
	return func(f *Fuser) {
		f.weights = weights
	}
}

// WithTiePrecedence sets the action order used to break exact ties.
// Earlier actions win.
func WithTiePrecedence(actions []core.Action) Option {
	return func(f *Fuser) {
		if len(actions) > 0 {
			f.precedence = actions
		}
	}
}

// New creates a Fuser for the given method.
func New(method string, opts ...Option) (*Fuser, error) {
	switch method {
	case MethodWeightedAverage, MethodMajorityVote, MethodConfidenceWeighted:
	default:
		return nil, core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("unknown ensemble method %q", method))
	}

	f := &Fuser{
		method:     method,
		weights:    map[string]float64{},
		precedence: []core.Action{core.ActionSell, core.ActionBuy, core.ActionHold},
	}
	for _, opt := range opts {
		opt(f)
	}

	// A partial precedence list still has to rank every action.
	for _, a := range []core.Action{core.ActionSell, core.ActionBuy, core.ActionHold} {
		found := false
		for _, p := range f.precedence {
			if p == a {
				found = true
				break
			}
		}
		if !found {
			f.precedence = append(f.precedence, a)
		}
	}
	return f, nil
}

// Fuse combines predictions sharing one instrument into a FusedSignal.
// Predictions with zero confidence or an invalid action contribute
// nothing. Empty or mixed-instrument input is an error.
func (f *Fuser) Fuse(preds []core.Prediction) (core.FusedSignal, error) {
	if len(preds) == 0 {
		return core.FusedSignal{}, core.WrapError(core.ErrEnsembleFailed,
			fmt.Errorf("no predictions to fuse"))
	}

	symbol := preds[0].Symbol
	participating := make([]core.Prediction, 0, len(preds))
	for _, p := range preds {
		if p.Symbol != symbol {
			return core.FusedSignal{}, core.WrapError(core.ErrEnsembleFailed,
				fmt.Errorf("mixed instruments: %s and %s", symbol, p.Symbol))
		}
		if p.Confidence <= 0 || !p.Action.IsValid() {
			continue
		}
		participating = append(participating, p)
	}
	if len(participating) == 0 {
		return core.FusedSignal{}, core.WrapError(core.ErrEnsembleFailed,
			fmt.Errorf("no usable predictions for %s", symbol))
	}

	var action core.Action
	var confidence float64
	switch f.method {
	case MethodWeightedAverage:
		action, confidence = f.fuseWeightedAverage(participating)
	case MethodMajorityVote:
		action, confidence = f.fuseMajorityVote(participating)
	case MethodConfidenceWeighted:
		action, confidence = f.fuseConfidenceWeighted(participating)
	}

	modelIDs := make([]string, 0, len(participating))
	for _, p := range participating {
		modelIDs = append(modelIDs, p.ModelID)
	}

	return core.FusedSignal{
		Symbol:     symbol,
		Action:     action,
		Confidence: clamp01(confidence),
		ModelIDs:   modelIDs,
		Method:     f.method,
		ProducedAt: time.Now(),
	}, nil
}

func (f *Fuser) weight(modelID string) float64 {
	if w, ok := f.weights[modelID]; ok {
		return w
	}
	return 1.0
}

// fuseWeightedAverage picks the action with the highest weight×confidence
// sum; the result confidence is that sum over the total participating
// weight.
func (f *Fuser) fuseWeightedAverage(preds []core.Prediction) (core.Action, float64) {
	scores := map[core.Action]float64{}
	totalWeight := 0.0
	for _, p := range preds {
		w := f.weight(p.ModelID)
		scores[p.Action] += w * p.Confidence
		totalWeight += w
	}

	winner := f.pickWinner(scores, nil)
	if totalWeight == 0 {
		return winner, 0
	}
	return winner, scores[winner] / totalWeight
}

// fuseMajorityVote picks the action with the highest summed weight,
// ignoring confidence magnitude. Ties fall back to aggregate confidence,
// then to the configured precedence. The result confidence is the
// weighted mean confidence of the winning voters.
func (f *Fuser) fuseMajorityVote(preds []core.Prediction) (core.Action, float64) {
	votes := map[core.Action]float64{}
	confSums := map[core.Action]float64{}
	weightedConf := map[core.Action]float64{}
	for _, p := range preds {
		w := f.weight(p.ModelID)
		votes[p.Action] += w
		confSums[p.Action] += p.Confidence
		weightedConf[p.Action] += w * p.Confidence
	}

	winner := f.pickWinner(votes, confSums)
	if votes[winner] == 0 {
		return winner, 0
	}
	return winner, weightedConf[winner] / votes[winner]
}

// fuseConfidenceWeighted averages weight×confidence per action among the
// models choosing it and picks the highest average.
func (f *Fuser) fuseConfidenceWeighted(preds []core.Prediction) (core.Action, float64) {
	sums := map[core.Action]float64{}
	counts := map[core.Action]int{}
	for _, p := range preds {
		sums[p.Action] += f.weight(p.ModelID) * p.Confidence
		counts[p.Action]++
	}

	avgs := map[core.Action]float64{}
	for a, s := range sums {
		avgs[a] = s / float64(counts[a])
	}

	winner := f.pickWinner(avgs, nil)
	return winner, avgs[winner]
}

// pickWinner returns the action with the highest score. Exact ties are
// broken by the secondary score (when provided), then by configured
// precedence so the result never depends on map iteration order.
func (f *Fuser) pickWinner(scores map[core.Action]float64, secondary map[core.Action]float64) core.Action {
	best := core.Action("")
	bestScore := math.Inf(-1)
	for _, a := range f.precedence {
		s, ok := scores[a]
		if !ok {
			continue
		}
		if s > bestScore {
			best, bestScore = a, s
			continue
		}
		if s == bestScore && secondary != nil && secondary[a] > secondary[best] {
			best = a
		}
	}
	return best
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
