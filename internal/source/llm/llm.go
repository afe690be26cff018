// Package llm implements a prediction source backed by a chat-completion
// provider.
package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/newthinker/aegis/internal/core"
	chat "github.com/newthinker/aegis/internal/llm"
)

const systemPrompt = `You are a quantitative trading analyst. Given recent price history for one instrument, respond with a single JSON object:
{"action": "BUY"|"SELL"|"HOLD", "confidence": <0.0-1.0>, "rationale": "<one sentence>"}
Respond with JSON only.`

// windowTail bounds how many bars are included in the prompt.
const windowTail = 30

// Source asks an LLM provider for a directional call.
type Source struct {
	name     string
	provider chat.Provider
}

// New creates an LLM-backed source.
func New(name string, provider chat.Provider) *Source {
	if name == "" {
		name = "llm"
	}
	return &Source{name: name, provider: provider}
}

// Name returns the model identifier.
func (s *Source) Name() string {
	return s.name
}

type verdict struct {
	Action     string  `json:"action"`
	Confidence float64 `json:"confidence"`
	Rationale  string  `json:"rationale"`
}

// Predict prompts the provider and adapts its JSON verdict into a
// Prediction.
func (s *Source) Predict(ctx context.Context, symbol string, window []core.OHLCV) (core.Prediction, error) {
	if len(window) == 0 {
		return core.Prediction{}, core.WrapError(core.ErrInsufficientData,
			fmt.Errorf("%s: empty window", symbol))
	}

	resp, err := s.provider.Chat(ctx, chat.ChatRequest{
		SystemPrompt: systemPrompt,
		Messages: []chat.Message{
			{Role: "user", Content: buildPrompt(symbol, window)},
		},
		MaxTokens:   256,
		Temperature: 0.2,
		JSONMode:    true,
	})
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
			return core.Prediction{}, core.WrapError(core.ErrLLMTimeout, err)
		}
		return core.Prediction{}, core.WrapError(core.ErrLLMFailed, err)
	}

	var v verdict
	if err := json.Unmarshal([]byte(stripFences(resp.Content)), &v); err != nil {
		return core.Prediction{}, core.WrapError(core.ErrLLMFailed,
			fmt.Errorf("unparseable verdict %q: %w", resp.Content, err))
	}

	action := core.Action(strings.ToUpper(strings.TrimSpace(v.Action)))
	if !action.IsValid() {
		return core.Prediction{}, core.WrapError(core.ErrLLMFailed,
			fmt.Errorf("invalid action %q", v.Action))
	}
	if v.Confidence < 0 {
		v.Confidence = 0
	}
	if v.Confidence > 1 {
		v.Confidence = 1
	}

	return core.Prediction{
		Symbol:     symbol,
		ModelID:    s.name,
		Action:     action,
		Confidence: v.Confidence,
		Rationale:  v.Rationale,
		ProducedAt: time.Now(),
	}, nil
}

// buildPrompt summarizes the tail of the window.
func buildPrompt(symbol string, window []core.OHLCV) string {
	if len(window) > windowTail {
		window = window[len(window)-windowTail:]
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Instrument: %s\n", symbol)
	first := window[0].Close
	last := window[len(window)-1].Close
	if first > 0 {
		fmt.Fprintf(&b, "Change over window: %+.2f%%\n", (last/first-1)*100)
	}
	b.WriteString("Recent closes (oldest first):\n")
	for _, bar := range window {
		fmt.Fprintf(&b, "%s close=%.2f volume=%d\n",
			bar.Time.Format("2006-01-02 15:04"), bar.Close, bar.Volume)
	}
	return b.String()
}

// stripFences removes a markdown code fence around a JSON reply.
func stripFences(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}
