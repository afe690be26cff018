package llm

import (
	"context"
	"fmt"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
)

const defaultClaudeModel = "claude-sonnet-4-20250514"

// defaultMaxTokens caps responses when the request does not set a limit.
const defaultMaxTokens = 1024

// Claude is the Anthropic-backed provider.
type Claude struct {
	client anthropic.Client
	model  string
}

// NewClaude creates a Claude provider.
func NewClaude(apiKey, model string) (*Claude, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("API key required")
	}
	if model == "" {
		model = defaultClaudeModel
	}
	client := anthropic.NewClient(option.WithAPIKey(apiKey))
	return &Claude{client: client, model: model}, nil
}

// Name returns the provider name.
func (p *Claude) Name() string {
	return "claude"
}

// Chat sends a chat request to the Claude API. The API has no native
// JSON mode, so JSONMode prefills an assistant turn with "{" and the
// brace is restored onto the response.
func (p *Claude) Chat(ctx context.Context, req ChatRequest) (*ChatResponse, error) {
	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(p.model),
		MaxTokens: maxTokensOrDefault(req.MaxTokens),
		Messages:  toMessageParams(req.Messages),
	}
	if req.SystemPrompt != "" {
		params.System = []anthropic.TextBlockParam{{Text: req.SystemPrompt}}
	}
	if req.Temperature > 0 {
		params.Temperature = anthropic.Float(req.Temperature)
	}
	if req.JSONMode {
		params.Messages = append(params.Messages,
			anthropic.NewAssistantMessage(anthropic.NewTextBlock("{")))
	}

	resp, err := p.client.Messages.New(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("claude API error: %w", err)
	}

	content := textContent(resp)
	if req.JSONMode && !strings.HasPrefix(strings.TrimSpace(content), "{") {
		content = "{" + content
	}

	return &ChatResponse{
		Content: content,
		Usage: Usage{
			InputTokens:  int(resp.Usage.InputTokens),
			OutputTokens: int(resp.Usage.OutputTokens),
		},
		FinishReason: string(resp.StopReason),
	}, nil
}

func maxTokensOrDefault(n int) int64 {
	if n <= 0 {
		return defaultMaxTokens
	}
	return int64(n)
}

func toMessageParams(messages []Message) []anthropic.MessageParam {
	out := make([]anthropic.MessageParam, len(messages))
	for i, m := range messages {
		block := anthropic.NewTextBlock(m.Content)
		if m.Role == "assistant" {
			out[i] = anthropic.NewAssistantMessage(block)
		} else {
			out[i] = anthropic.NewUserMessage(block)
		}
	}
	return out
}

// textContent joins the text blocks of a response.
func textContent(resp *anthropic.Message) string {
	var sb strings.Builder
	for _, block := range resp.Content {
		if block.Type == "text" {
			sb.WriteString(block.Text)
		}
	}
	return sb.String()
}
