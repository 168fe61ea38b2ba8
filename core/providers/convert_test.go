package providers

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/openai/openai-go"
	"github.com/openai/openai-go/responses"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/genai"

	gerrors "github.com/adalundhe/instructgen/core/errors"
)

func TestConvertAnthropicStopReason(t *testing.T) {
	assert.Equal(t, StopReasonMaxTokens, convertAnthropicStopReason(anthropic.StopReasonMaxTokens))
	assert.Equal(t, StopReasonStopSequence, convertAnthropicStopReason(anthropic.StopReasonStopSequence))
	assert.Equal(t, StopReasonEndTurn, convertAnthropicStopReason(anthropic.StopReasonEndTurn))
}

func TestAnthropicBuildParams_Defaults(t *testing.T) {
	p := &AnthropicProvider{config: BaseConfig{Model: string(Haiku), MaxTokens: 512}}

	params := p.buildParams(&Request{
		Messages:     []Message{{Role: RoleUser, Content: "hi"}, {Role: RoleAssistant, Content: "hello"}},
		SystemPrompt: "be brief",
	})

	assert.Equal(t, anthropic.Model(Haiku), params.Model)
	assert.Equal(t, int64(512), params.MaxTokens)
	assert.Len(t, params.Messages, 2)
	assert.Len(t, params.System, 1)
}

func TestAnthropicBuildParams_RequestOverrides(t *testing.T) {
	p := &AnthropicProvider{config: BaseConfig{Model: string(Haiku), MaxTokens: 512}}

	params := p.buildParams(&Request{
		Messages:      []Message{{Role: RoleUser, Content: "hi"}},
		Model:         string(Opus),
		MaxTokens:     64,
		StopSequences: []string{"###"},
	})

	assert.Equal(t, anthropic.Model(Opus), params.Model)
	assert.Equal(t, int64(64), params.MaxTokens)
	assert.Equal(t, []string{"###"}, params.StopSequences)
	assert.Empty(t, params.System)
}

func TestConvertOpenAIStopReason(t *testing.T) {
	var done responses.Response
	assert.Equal(t, StopReasonEndTurn, convertOpenAIStopReason(done))

	var truncated responses.Response
	truncated.IncompleteDetails.Reason = "max_output_tokens"
	assert.Equal(t, StopReasonMaxTokens, convertOpenAIStopReason(truncated))

	var filtered responses.Response
	filtered.IncompleteDetails.Reason = "content_filter"
	assert.Equal(t, StopReasonError, convertOpenAIStopReason(filtered))
}

func TestOpenAIConvertResponseMessages_SystemFirst(t *testing.T) {
	p := &OpenAIProvider{}

	items := p.convertResponseMessages([]Message{{Role: RoleUser, Content: "hi"}}, "sys")
	assert.Len(t, items, 2)
}

func TestConvertGoogleResponse(t *testing.T) {
	resp := &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{{
			Content: &genai.Content{Parts: []*genai.Part{
				{Text: "plan", Thought: true},
				{Text: "Hello, "},
				{Text: "world"},
			}},
			FinishReason: genai.FinishReasonMaxTokens,
		}},
		UsageMetadata: &genai.GenerateContentResponseUsageMetadata{
			PromptTokenCount:     3,
			CandidatesTokenCount: 4,
			TotalTokenCount:      7,
		},
	}

	out := convertGoogleResponse(string(Gemini3Flash), resp)

	assert.Equal(t, "Hello, world", out.Content)
	assert.Equal(t, StopReasonMaxTokens, out.StopReason)
	assert.Equal(t, Usage{InputTokens: 3, OutputTokens: 4, TotalTokens: 7}, out.Usage)
}

func TestConvertGoogleResponse_NoCandidates(t *testing.T) {
	out := convertGoogleResponse("m", &genai.GenerateContentResponse{})

	assert.Empty(t, out.Content)
	assert.Equal(t, StopReasonError, out.StopReason)
}

func TestClassifyOpenAIError_CarriesRetryAfter(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "https://api.openai.com/v1/responses", nil)
	resp := &http.Response{StatusCode: http.StatusTooManyRequests, Header: http.Header{}, Request: req}
	resp.Header.Set("Retry-After", "20")

	err := classifyOpenAIError(&openai.Error{StatusCode: http.StatusTooManyRequests, Request: req, Response: resp})
	var te *gerrors.TieredError
	require.True(t, errors.As(err, &te))
	assert.Equal(t, gerrors.TierExternalRateLimit, te.Tier)
	assert.Equal(t, 20*time.Second, te.RetryAfter)

	err = classifyOpenAIError(&openai.Error{StatusCode: http.StatusBadGateway, Request: req})
	require.True(t, errors.As(err, &te))
	assert.Equal(t, gerrors.TierExternalDegrading, te.Tier)
	assert.Zero(t, te.RetryAfter)
}
