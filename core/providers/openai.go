package providers

import (
	"context"
	"errors"
	"fmt"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/responses"
	"github.com/openai/openai-go/shared"

	gerrors "github.com/adalundhe/instructgen/core/errors"
)

// OpenAIProvider implements Provider for OpenAI models through the Responses API
type OpenAIProvider struct {
	client *openai.Client
	config BaseConfig
}

var openaiModels = []ModelInfo{
	{ID: "gpt-4o", Name: "GPT-4o", MaxContext: 128000},
	{ID: "gpt-4o-mini", Name: "GPT-4o mini", MaxContext: 128000},
	{ID: "gpt-5.2-codex", Name: "GPT-5.2 Codex", MaxContext: 400000},
}

// NewOpenAIProvider creates a new OpenAI provider. BaseURL may point at any
// Responses-compatible endpoint.
func NewOpenAIProvider(config BaseConfig) (*OpenAIProvider, error) {
	config = config.withDefaults("gpt-4o")
	if err := config.Validate(); err != nil {
		return nil, gerrors.NewTieredError(gerrors.TierUserFixable, "openai config", err)
	}

	opts := []option.RequestOption{
		option.WithAPIKey(config.APIKey),
		option.WithRequestTimeout(config.Timeout),
		option.WithMaxRetries(0),
	}
	if config.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(config.BaseURL))
	}

	client := openai.NewClient(opts...)
	return &OpenAIProvider{client: &client, config: config}, nil
}

// Name returns the provider identifier
func (p *OpenAIProvider) Name() string {
	return string(ProviderTypeOpenAI)
}

func (p *OpenAIProvider) Complete(ctx context.Context, req *Request) (*Response, error) {
	result, err := p.client.Responses.New(ctx, p.buildResponseParams(req))
	if err != nil {
		return nil, classifyOpenAIError(err)
	}
	return p.convertResponse(result), nil
}

func (p *OpenAIProvider) ValidateConfig() error {
	return p.config.Validate()
}

func (p *OpenAIProvider) SupportsModel(model string) bool {
	return supportsModel(openaiModels, model)
}

func (p *OpenAIProvider) SupportedModels() []ModelInfo {
	return openaiModels
}

func (p *OpenAIProvider) MaxContextTokens(model string) int {
	return getModelContextLimit(model)
}

func (p *OpenAIProvider) Close() error {
	return nil
}

func (p *OpenAIProvider) buildResponseParams(req *Request) responses.ResponseNewParams {
	model := req.Model
	if model == "" {
		model = p.config.Model
	}
	maxTokens := req.MaxTokens
	if maxTokens == 0 {
		maxTokens = p.config.MaxTokens
	}

	params := responses.ResponseNewParams{
		Model: shared.ResponsesModel(model),
		Input: responses.ResponseNewParamsInputUnion{
			OfInputItemList: p.convertResponseMessages(req.Messages, req.SystemPrompt),
		},
		MaxOutputTokens: openai.Int(int64(maxTokens)),
	}

	if req.Temperature != nil {
		params.Temperature = openai.Float(*req.Temperature)
	} else if p.config.Temperature > 0 {
		params.Temperature = openai.Float(p.config.Temperature)
	}
	return params
}

func (p *OpenAIProvider) convertResponseMessages(messages []Message, systemPrompt string) responses.ResponseInputParam {
	result := make(responses.ResponseInputParam, 0, len(messages)+1)
	if systemPrompt != "" {
		result = append(result, responses.ResponseInputItemParamOfMessage(systemPrompt, responses.EasyInputMessageRoleSystem))
	}
	for _, msg := range messages {
		switch msg.Role {
		case RoleSystem:
			result = append(result, responses.ResponseInputItemParamOfMessage(msg.Content, responses.EasyInputMessageRoleSystem))
		case RoleUser:
			result = append(result, responses.ResponseInputItemParamOfMessage(msg.Content, responses.EasyInputMessageRoleUser))
		case RoleAssistant:
			result = append(result, responses.ResponseInputItemParamOfMessage(msg.Content, responses.EasyInputMessageRoleAssistant))
		}
	}
	return result
}

func (p *OpenAIProvider) convertResponse(result *responses.Response) *Response {
	if result == nil {
		return &Response{StopReason: StopReasonError}
	}
	return &Response{
		Content:    result.OutputText(),
		Model:      string(result.Model),
		StopReason: convertOpenAIStopReason(*result),
		Usage: Usage{
			InputTokens:  int(result.Usage.InputTokens),
			OutputTokens: int(result.Usage.OutputTokens),
			TotalTokens:  int(result.Usage.TotalTokens),
		},
	}
}

func convertOpenAIStopReason(result responses.Response) StopReason {
	switch {
	case result.IncompleteDetails.Reason == "max_output_tokens":
		return StopReasonMaxTokens
	case result.IncompleteDetails.Reason != "", result.Error.Message != "":
		return StopReasonError
	default:
		return StopReasonEndTurn
	}
}

func classifyOpenAIError(err error) error {
	var apiErr *openai.Error
	if errors.As(err, &apiErr) {
		return gerrors.ClassifyProviderError(string(ProviderTypeOpenAI), apiErr.StatusCode, responseHeader(apiErr.Response), err)
	}
	return gerrors.ClassifyProviderError(string(ProviderTypeOpenAI), 0, nil, fmt.Errorf("openai complete: %w", err))
}
