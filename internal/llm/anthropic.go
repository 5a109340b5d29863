package llm

import (
	"context"
	"fmt"
	"log"
	"os"
	"strings"
	"sync"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/bedrock"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/aws/aws-sdk-go-v2/config"

	valetcfg "github.com/ShayCichocki/valet/internal/config"
)

// AnthropicClient implements Collaborator on the Anthropic API, optionally
// routed through AWS Bedrock. Classify uses the cheaper router model;
// Complete and Stream use the main model.
type AnthropicClient struct {
	inner       anthropic.Client
	model       anthropic.Model
	routerModel anthropic.Model
	tracker     *TokenTracker
}

// NewAnthropicClient builds a client from the anthropic config section.
func NewAnthropicClient(cfg valetcfg.AnthropicConfig) (*AnthropicClient, error) {
	var opts []option.RequestOption

	if cfg.UseAWSBedrock {
		ctx := context.Background()

		var loadOpts []func(*config.LoadOptions) error
		if cfg.AWSRegion != "" {
			loadOpts = append(loadOpts, config.WithRegion(cfg.AWSRegion))
		}
		if cfg.AWSProfile != "" {
			loadOpts = append(loadOpts, config.WithSharedConfigProfile(cfg.AWSProfile))
		}

		opts = append(opts, bedrock.WithLoadDefaultConfig(ctx, loadOpts...))
	} else {
		apiKey := cfg.APIKey
		if apiKey == "" {
			apiKey = os.Getenv("ANTHROPIC_API_KEY")
		}
		if apiKey == "" {
			return nil, fmt.Errorf("ANTHROPIC_API_KEY environment variable is not set")
		}
		opts = append(opts, option.WithAPIKey(apiKey))
	}

	model := anthropic.Model(cfg.Model)
	if model == "" {
		model = anthropic.ModelClaudeSonnet4_20250514
	}
	routerModel := anthropic.Model(cfg.RouterModel)
	if routerModel == "" {
		routerModel = anthropic.ModelClaude3_5Haiku20241022
	}

	if cfg.UseAWSBedrock {
		model = translateModelForBedrock(model)
		routerModel = translateModelForBedrock(routerModel)
	}

	return &AnthropicClient{
		inner:       anthropic.NewClient(opts...),
		model:       model,
		routerModel: routerModel,
		tracker:     NewTokenTracker(),
	}, nil
}

// translateModelForBedrock converts standard Anthropic model names to Bedrock
// cross-region inference profile format: us.anthropic.{model}-v1:0
func translateModelForBedrock(model anthropic.Model) anthropic.Model {
	bedrockModels := map[anthropic.Model]string{
		anthropic.ModelClaudeSonnet4_20250514:   "us.anthropic.claude-sonnet-4-20250514-v1:0",
		anthropic.ModelClaudeSonnet4_5_20250929: "us.anthropic.claude-sonnet-4-5-20250929-v1:0",
		anthropic.ModelClaudeHaiku4_5_20251001:  "us.anthropic.claude-haiku-4-5-20251001-v1:0",
		anthropic.ModelClaudeOpus4_1_20250805:   "us.anthropic.claude-opus-4-1-20250805-v1:0",
		anthropic.ModelClaude3_7Sonnet20250219:  "us.anthropic.claude-3-7-sonnet-20250219-v1:0",
		anthropic.ModelClaude3_5Haiku20241022:   "us.anthropic.claude-3-5-haiku-20241022-v1:0",
	}

	if bedrockModel, ok := bedrockModels[model]; ok {
		return anthropic.Model(bedrockModel)
	}
	return model
}

// Tracker returns the token tracker for this client.
func (c *AnthropicClient) Tracker() *TokenTracker {
	return c.tracker
}

// Complete implements Collaborator.
func (c *AnthropicClient) Complete(ctx context.Context, system, prompt string) (string, error) {
	return c.call(ctx, c.model, system, prompt, nil)
}

// Classify implements Collaborator. The router model runs at temperature
// zero so routing is reproducible.
func (c *AnthropicClient) Classify(ctx context.Context, system, prompt string) (string, error) {
	temp := 0.0
	return c.call(ctx, c.routerModel, system, prompt, &temp)
}

func (c *AnthropicClient) call(ctx context.Context, model anthropic.Model, system, prompt string, temp *float64) (string, error) {
	params := anthropic.MessageNewParams{
		Model:     model,
		MaxTokens: 8192,
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(prompt)),
		},
	}
	if system != "" {
		params.System = []anthropic.TextBlockParam{{Text: system}}
	}
	if temp != nil {
		params.Temperature = anthropic.Float(*temp)
	}

	resp, err := c.inner.Messages.New(ctx, params)
	if err != nil {
		return "", fmt.Errorf("messages.new: %w", err)
	}
	c.tracker.Add(resp.Usage.InputTokens, resp.Usage.OutputTokens)

	var sb strings.Builder
	for _, block := range resp.Content {
		if tb, ok := block.AsAny().(anthropic.TextBlock); ok {
			sb.WriteString(tb.Text)
		}
	}
	return sb.String(), nil
}

// Stream implements Collaborator using the server-sent events API. Tokens
// reach fn as they arrive.
func (c *AnthropicClient) Stream(ctx context.Context, system, prompt string, fn func(token string)) error {
	params := anthropic.MessageNewParams{
		Model:     c.model,
		MaxTokens: 8192,
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(prompt)),
		},
	}
	if system != "" {
		params.System = []anthropic.TextBlockParam{{Text: system}}
	}

	stream := c.inner.Messages.NewStreaming(ctx, params)
	for stream.Next() {
		event := stream.Current()
		switch ev := event.AsAny().(type) {
		case anthropic.ContentBlockDeltaEvent:
			if delta, ok := ev.Delta.AsAny().(anthropic.TextDelta); ok && delta.Text != "" {
				fn(delta.Text)
			}
		case anthropic.MessageDeltaEvent:
			c.tracker.Add(0, ev.Usage.OutputTokens)
		}
	}
	if err := stream.Err(); err != nil {
		return fmt.Errorf("messages.stream: %w", err)
	}
	return nil
}

// TokenTracker tracks token usage across API calls.
type TokenTracker struct {
	mu        sync.Mutex
	inputTok  int64
	outputTok int64
	calls     int
}

// NewTokenTracker creates a new token tracker.
func NewTokenTracker() *TokenTracker {
	return &TokenTracker{}
}

// Add records token usage from an API call.
func (t *TokenTracker) Add(input, output int64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.inputTok += input
	t.outputTok += output
	t.calls++
}

// Total returns the total input and output tokens tracked.
func (t *TokenTracker) Total() (input, output int64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.inputTok, t.outputTok
}

// Calls returns the number of API calls made.
func (t *TokenTracker) Calls() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.calls
}

// LogUsage writes a one-line usage summary to the standard logger.
func (t *TokenTracker) LogUsage() {
	in, out := t.Total()
	log.Printf("[llm] %d calls, %d input tokens, %d output tokens", t.Calls(), in, out)
}
