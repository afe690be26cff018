// Package resolver deduplicates and arbitrates raw signals down to at
// most one per instrument.
package resolver

import (
	"sort"

	"github.com/newthinker/aegis/internal/core"
)

// DefaultClassWeights is used when no class weights are configured.
var DefaultClassWeights = map[core.Action]float64{
	core.ActionBuy:  1.0,
	core.ActionSell: 1.0,
	core.ActionHold: 0.5,
}

// Resolver arbitrates conflicting signals for the same instrument.
// Pure and idempotent; safe for concurrent use.
type Resolver struct {
	classWeights map[core.Action]float64
}

// New creates a Resolver. Missing class weights default to
// DefaultClassWeights.
func New(classWeights map[core.Action]float64) *Resolver {
	weights := make(map[core.Action]float64, len(DefaultClassWeights))
	for a, w := range DefaultClassWeights {
		weights[a] = w
	}
	for a, w := range classWeights {
		weights[a] = w
	}
	return &Resolver{classWeights: weights}
}

// Resolve collapses the input down to at most one signal per instrument.
// Signals with the same action form a duplicate cluster represented by
// the highest-confidence member; remaining distinct actions conflict and
// are scored classWeight × confidence, highest score winning. Ties keep
// the earliest produced signal. Output is sorted by instrument.
func (r *Resolver) Resolve(signals []core.Signal) []core.ResolvedSignal {
	if len(signals) == 0 {
		return nil
	}

	groups := map[string][]core.Signal{}
	for _, s := range signals {
		groups[s.Symbol] = append(groups[s.Symbol], s)
	}

	resolved := make([]core.ResolvedSignal, 0, len(groups))
	for _, group := range groups {
		winner := r.arbitrate(group)
		resolved = append(resolved, core.ResolvedSignal{
			Signal:               winner,
			RejectedAlternatives: len(group) - 1,
		})
	}

	sort.Slice(resolved, func(i, j int) bool {
		return resolved[i].Symbol < resolved[j].Symbol
	})
	return resolved
}

// arbitrate picks the surviving signal within one instrument group.
func (r *Resolver) arbitrate(group []core.Signal) core.Signal {
	// Collapse duplicate clusters to their max-confidence representative.
	reps := map[core.Action]core.Signal{}
	for _, s := range group {
		rep, ok := reps[s.Action]
		if !ok || s.Confidence > rep.Confidence ||
			(s.Confidence == rep.Confidence && s.ProducedAt.Before(rep.ProducedAt)) {
			reps[s.Action] = s
		}
	}

	var winner core.Signal
	bestScore := -1.0
	for _, rep := range reps {
		score := r.classWeights[rep.Action] * rep.Confidence
		switch {
		case score > bestScore:
			winner, bestScore = rep, score
		case score == bestScore && rep.ProducedAt.Before(winner.ProducedAt):
			winner = rep
		}
	}
	return winner
}
