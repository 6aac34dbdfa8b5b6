package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	anthropic "github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
)

const systemPrompt = "You are a research assistant for literature reviews. You produce conservative, structured outputs and do not invent facts."

// Request describes one model call. ExpectJSON asks the model for strict
// JSON; callers still must tolerate anything coming back.
type Request struct {
	Prompt      string
	ExpectJSON  bool
	Temperature float64
	MaxTokens   int64
}

// Caller is the model-service boundary. Implementations may time out,
// refuse, or return malformed output; callers own the fallback.
type Caller interface {
	Generate(ctx context.Context, req Request) (string, error)
	ModelName() string
}

type AnthropicMessager interface {
	New(ctx context.Context, params anthropic.MessageNewParams, opts ...option.RequestOption) (*anthropic.Message, error)
}

type AnthropicCaller struct {
	messages AnthropicMessager
	model    string
}

// NewAnthropicCaller builds the production caller. The key comes from the
// explicit config object, never from ambient environment state.
func NewAnthropicCaller(apiKey, model string) (*AnthropicCaller, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, errors.New("anthropic api key not configured")
	}
	c := anthropic.NewClient(option.WithAPIKey(apiKey))
	return &AnthropicCaller{messages: &c.Messages, model: model}, nil
}

func (a *AnthropicCaller) ModelName() string { return a.model }

func (a *AnthropicCaller) Generate(ctx context.Context, req Request) (string, error) {
	maxTokens := req.MaxTokens
	if maxTokens <= 0 {
		maxTokens = 4096
	}
	prompt := req.Prompt
	if req.ExpectJSON {
		prompt = "Return valid JSON only. No markdown fences, no commentary.\n\n" + prompt
	}
	resp, err := a.messages.New(ctx, anthropic.MessageNewParams{
		Model:       anthropic.Model(a.model),
		MaxTokens:   maxTokens,
		System:      []anthropic.TextBlockParam{{Text: systemPrompt}},
		Messages:    []anthropic.MessageParam{anthropic.NewUserMessage(anthropic.NewTextBlock(prompt))},
		Temperature: anthropic.Float(req.Temperature),
	})
	if err != nil {
		return "", err
	}
	var sb strings.Builder
	for _, b := range resp.Content {
		if b.Type == "text" {
			sb.WriteString(b.Text)
		}
	}
	return sb.String(), nil
}

// Executor wraps a Caller with JSON decoding and validation. One attempt per
// call: any transport, parse, or validation failure surfaces as an error and
// the stage substitutes its documented fallback. There is no retry policy.
type Executor struct {
	caller Caller
}

func NewExecutor(caller Caller) *Executor {
	return &Executor{caller: caller}
}

func (e *Executor) ModelName() string {
	if e == nil || e.caller == nil {
		return ""
	}
	return e.caller.ModelName()
}

// GenerateText runs a free-text call.
func (e *Executor) GenerateText(ctx context.Context, step string, req Request) (string, error) {
	start := time.Now()
	raw, err := e.caller.Generate(ctx, req)
	if err != nil {
		log.Printf("research-assistant llm_call_error step=%s elapsed_ms=%d err=%q", step, time.Since(start).Milliseconds(), err.Error())
		return "", fmt.Errorf("%s transport failure: %w", step, err)
	}
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", fmt.Errorf("%s failed: empty response", step)
	}
	log.Printf("research-assistant llm_call_done step=%s elapsed_ms=%d response_chars=%d", step, time.Since(start).Milliseconds(), len(raw))
	return raw, nil
}

// GenerateJSON runs a call, strips code fences, decodes into out, and runs
// the stage's validator.
func (e *Executor) GenerateJSON(ctx context.Context, step string, req Request, out any, validate func() error) error {
	req.ExpectJSON = true
	raw, err := e.GenerateText(ctx, step, req)
	if err != nil {
		return err
	}
	clean := StripCodeFences(raw)
	if err := json.Unmarshal([]byte(clean), out); err != nil {
		log.Printf("research-assistant llm_json_error step=%s err=%q", step, err.Error())
		return fmt.Errorf("%s failed json parse: %w", step, err)
	}
	if validate != nil {
		if err := validate(); err != nil {
			log.Printf("research-assistant llm_validation_error step=%s err=%q", step, err.Error())
			return fmt.Errorf("%s failed validation: %w", step, err)
		}
	}
	return nil
}

// StripCodeFences removes a surrounding ```json fence if the model added one
// despite instructions.
func StripCodeFences(s string) string {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "```") {
		parts := strings.SplitN(s, "\n", 2)
		if len(parts) == 2 {
			s = parts[1]
		}
		s = strings.TrimPrefix(s, "json")
		s = strings.TrimSpace(strings.TrimSuffix(s, "```"))
	}
	return s
}
