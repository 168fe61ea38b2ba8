package providers

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"google.golang.org/genai"

	gerrors "github.com/adalundhe/instructgen/core/errors"
)

// GoogleProvider implements Provider for Gemini models via the Gemini API.
type GoogleProvider struct {
	client *genai.Client
	config BaseConfig
}

type GoogleModel string

const (
	Gemini3Pro   GoogleModel = "gemini-3-pro"
	Gemini3Flash GoogleModel = "gemini-3-flash"
)

var googleModels = []ModelInfo{
	{ID: string(Gemini3Pro), Name: "Gemini 3 Pro", MaxContext: 2000000},
	{ID: "gemini-3-pro-preview", Name: "Gemini 3 Pro Preview", MaxContext: 2000000},
	{ID: string(Gemini3Flash), Name: "Gemini 3 Flash", MaxContext: 1000000},
}

// NewGoogleProvider creates a Gemini API client.
func NewGoogleProvider(ctx context.Context, config BaseConfig) (*GoogleProvider, error) {
	config = config.withDefaults(string(Gemini3Flash))
	if err := config.Validate(); err != nil {
		return nil, gerrors.NewTieredError(gerrors.TierUserFixable, "google config", err)
	}

	cc := &genai.ClientConfig{
		APIKey:  config.APIKey,
		Backend: genai.BackendGeminiAPI,
	}
	if config.BaseURL != "" {
		cc.HTTPOptions = genai.HTTPOptions{BaseURL: config.BaseURL}
	}
	client, err := genai.NewClient(ctx, cc)
	if err != nil {
		return nil, gerrors.NewTieredError(gerrors.TierUserFixable, "google client", err)
	}
	return &GoogleProvider{client: client, config: config}, nil
}

func (p *GoogleProvider) Name() string {
	return string(ProviderTypeGoogle)
}

func (p *GoogleProvider) Complete(ctx context.Context, req *Request) (*Response, error) {
	model := req.Model
	if model == "" {
		model = p.config.Model
	}

	resp, err := p.client.Models.GenerateContent(ctx, model, p.convertMessages(req.Messages), p.buildConfig(req))
	if err != nil {
		return nil, classifyGoogleError(err)
	}
	return convertGoogleResponse(model, resp), nil
}

func (p *GoogleProvider) buildConfig(req *Request) *genai.GenerateContentConfig {
	maxTokens := req.MaxTokens
	if maxTokens == 0 {
		maxTokens = p.config.MaxTokens
	}
	temperature := float32(p.config.Temperature)
	if req.Temperature != nil {
		temperature = float32(*req.Temperature)
	}

	cfg := &genai.GenerateContentConfig{
		MaxOutputTokens: int32(maxTokens),
		Temperature:     &temperature,
		StopSequences:   req.StopSequences,
	}
	if req.SystemPrompt != "" {
		cfg.SystemInstruction = &genai.Content{Parts: []*genai.Part{{Text: req.SystemPrompt}}}
	}
	return cfg
}

func (p *GoogleProvider) convertMessages(messages []Message) []*genai.Content {
	result := make([]*genai.Content, 0, len(messages))
	for _, msg := range messages {
		role := genai.RoleUser
		if msg.Role == RoleAssistant {
			role = genai.RoleModel
		}
		result = append(result, &genai.Content{
			Role:  string(role),
			Parts: []*genai.Part{{Text: msg.Content}},
		})
	}
	return result
}

func convertGoogleResponse(model string, resp *genai.GenerateContentResponse) *Response {
	out := &Response{Model: model, StopReason: StopReasonEndTurn}
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		out.StopReason = StopReasonError
		return out
	}

	candidate := resp.Candidates[0]
	var b strings.Builder
	for _, part := range candidate.Content.Parts {
		if part != nil && !part.Thought {
			b.WriteString(part.Text)
		}
	}
	out.Content = b.String()

	switch candidate.FinishReason {
	case genai.FinishReasonMaxTokens:
		out.StopReason = StopReasonMaxTokens
	case genai.FinishReasonSafety, genai.FinishReasonRecitation:
		out.StopReason = StopReasonError
	}

	if u := resp.UsageMetadata; u != nil {
		out.Usage = Usage{
			InputTokens:  int(u.PromptTokenCount),
			OutputTokens: int(u.CandidatesTokenCount),
			TotalTokens:  int(u.TotalTokenCount),
		}
	}
	return out
}

func (p *GoogleProvider) ValidateConfig() error {
	return p.config.Validate()
}

func (p *GoogleProvider) SupportsModel(model string) bool {
	return supportsModel(googleModels, model)
}

func (p *GoogleProvider) SupportedModels() []ModelInfo {
	return googleModels
}

func (p *GoogleProvider) MaxContextTokens(model string) int {
	return getModelContextLimit(model)
}

func (p *GoogleProvider) Close() error {
	return nil
}

func classifyGoogleError(err error) error {
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		return gerrors.ClassifyProviderError(string(ProviderTypeGoogle), apiErr.Code, nil, err)
	}
	return gerrors.ClassifyProviderError(string(ProviderTypeGoogle), 0, nil, fmt.Errorf("google complete: %w", err))
}
