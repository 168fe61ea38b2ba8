package providers

import (
	"context"
	"errors"
	"fmt"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	gerrors "github.com/adalundhe/instructgen/core/errors"
)

// AnthropicProvider implements Provider for Anthropic's Claude models
type AnthropicProvider struct {
	client *anthropic.Client
	config BaseConfig
}

type AnthropicModel string

const (
	Opus              AnthropicModel = "claude-opus-4-5-20251101"
	SonnetLongContext AnthropicModel = "claude-sonnet-4-5-20250901"
	Haiku             AnthropicModel = "claude-haiku-4-5-20251001"
)

var anthropicModels = []ModelInfo{
	{ID: string(Opus), Name: "Claude Opus 4.5", MaxContext: 200000},
	{ID: string(SonnetLongContext), Name: "Claude Sonnet 4.5", MaxContext: 1000000},
	{ID: string(Haiku), Name: "Claude Haiku 4.5", MaxContext: 200000},
}

// NewAnthropicProvider creates a new Anthropic provider with the given configuration
func NewAnthropicProvider(config BaseConfig) (*AnthropicProvider, error) {
	config = config.withDefaults(string(SonnetLongContext))
	if err := config.Validate(); err != nil {
		return nil, gerrors.NewTieredError(gerrors.TierUserFixable, "anthropic config", err)
	}

	opts := []option.RequestOption{
		option.WithAPIKey(config.APIKey),
		option.WithRequestTimeout(config.Timeout),
		// Retries are driven by the tiered retry executor.
		option.WithMaxRetries(0),
	}
	if config.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(config.BaseURL))
	}
	if config.Model == string(SonnetLongContext) {
		opts = append(opts, option.WithHeader("anthropic-beta", string(anthropic.AnthropicBetaContext1m2025_08_07)))
	}

	client := anthropic.NewClient(opts...)
	return &AnthropicProvider{client: &client, config: config}, nil
}

// Name returns the provider identifier
func (p *AnthropicProvider) Name() string {
	return string(ProviderTypeAnthropic)
}

func (p *AnthropicProvider) Complete(ctx context.Context, req *Request) (*Response, error) {
	msg, err := p.client.Messages.New(ctx, p.buildParams(req))
	if err != nil {
		return nil, classifyAnthropicError(err)
	}
	return p.convertResponse(msg), nil
}

func (p *AnthropicProvider) ValidateConfig() error {
	return p.config.Validate()
}

func (p *AnthropicProvider) SupportsModel(model string) bool {
	return supportsModel(anthropicModels, model)
}

func (p *AnthropicProvider) SupportedModels() []ModelInfo {
	return anthropicModels
}

func (p *AnthropicProvider) MaxContextTokens(model string) int {
	return getModelContextLimit(model)
}

func (p *AnthropicProvider) Close() error {
	return nil
}

// buildParams constructs Anthropic API parameters from a Request
func (p *AnthropicProvider) buildParams(req *Request) anthropic.MessageNewParams {
	model := req.Model
	if model == "" {
		model = p.config.Model
	}
	maxTokens := req.MaxTokens
	if maxTokens == 0 {
		maxTokens = p.config.MaxTokens
	}

	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(model),
		MaxTokens: int64(maxTokens),
		Messages:  p.convertMessages(req.Messages),
	}
	if req.SystemPrompt != "" {
		params.System = []anthropic.TextBlockParam{{Text: req.SystemPrompt}}
	}

	if req.Temperature != nil {
		params.Temperature = anthropic.Float(*req.Temperature)
	} else if p.config.Temperature > 0 {
		params.Temperature = anthropic.Float(p.config.Temperature)
	}
	if len(req.StopSequences) > 0 {
		params.StopSequences = req.StopSequences
	}
	return params
}

func (p *AnthropicProvider) convertMessages(messages []Message) []anthropic.MessageParam {
	result := make([]anthropic.MessageParam, 0, len(messages))
	for _, msg := range messages {
		switch msg.Role {
		case RoleUser, RoleSystem:
			result = append(result, anthropic.NewUserMessage(anthropic.NewTextBlock(msg.Content)))
		case RoleAssistant:
			result = append(result, anthropic.NewAssistantMessage(anthropic.NewTextBlock(msg.Content)))
		}
	}
	return result
}

func (p *AnthropicProvider) convertResponse(msg *anthropic.Message) *Response {
	var content string
	for _, block := range msg.Content {
		if b, ok := block.AsAny().(anthropic.TextBlock); ok {
			content += b.Text
		}
	}

	return &Response{
		Content:    content,
		Model:      string(msg.Model),
		StopReason: convertAnthropicStopReason(msg.StopReason),
		Usage: Usage{
			InputTokens:  int(msg.Usage.InputTokens),
			OutputTokens: int(msg.Usage.OutputTokens),
			TotalTokens:  int(msg.Usage.InputTokens + msg.Usage.OutputTokens),
		},
	}
}

func convertAnthropicStopReason(reason anthropic.StopReason) StopReason {
	switch reason {
	case anthropic.StopReasonMaxTokens:
		return StopReasonMaxTokens
	case anthropic.StopReasonStopSequence:
		return StopReasonStopSequence
	default:
		return StopReasonEndTurn
	}
}

func classifyAnthropicError(err error) error {
	var apiErr *anthropic.Error
	if errors.As(err, &apiErr) {
		return gerrors.ClassifyProviderError(string(ProviderTypeAnthropic), apiErr.StatusCode, responseHeader(apiErr.Response), err)
	}
	return gerrors.ClassifyProviderError(string(ProviderTypeAnthropic), 0, nil, fmt.Errorf("anthropic complete: %w", err))
}
