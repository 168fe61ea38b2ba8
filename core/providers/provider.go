// Package providers adapts hosted language model APIs to the text completion
// and token counting capability dataset generation needs.
package providers

import (
	"context"
	"net/http"
)

type ModelInfo struct {
	ID         string
	Name       string
	MaxContext int
}

// Provider is a hosted model API.
type Provider interface {
	Name() string
	SupportedModels() []ModelInfo
	SupportsModel(model string) bool
	Complete(ctx context.Context, req *Request) (*Response, error)
	MaxContextTokens(model string) int
	ValidateConfig() error
	Close() error
}

type Request struct {
	Messages      []Message `json:"messages"`
	Model         string    `json:"model,omitempty"`
	MaxTokens     int       `json:"max_tokens,omitempty"`
	Temperature   *float64  `json:"temperature,omitempty"`
	StopSequences []string  `json:"stop_sequences,omitempty"`
	SystemPrompt  string    `json:"system_prompt,omitempty"`
}

// PromptRequest wraps a single user prompt.
func PromptRequest(prompt string) *Request {
	return &Request{Messages: []Message{{Role: RoleUser, Content: prompt}}}
}

type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
)

type Response struct {
	Content    string     `json:"content"`
	Model      string     `json:"model"`
	StopReason StopReason `json:"stop_reason"`
	Usage      Usage      `json:"usage"`
}

type StopReason string

const (
	StopReasonEndTurn      StopReason = "end_turn"
	StopReasonMaxTokens    StopReason = "max_tokens"
	StopReasonStopSequence StopReason = "stop_sequence"
	StopReasonError        StopReason = "error"
)

type Usage struct {
	InputTokens  int `json:"input_tokens"`
	OutputTokens int `json:"output_tokens"`
	TotalTokens  int `json:"total_tokens"`
}

// responseHeader returns the headers of an SDK error's HTTP response, if any.
func responseHeader(resp *http.Response) http.Header {
	if resp == nil {
		return nil
	}
	return resp.Header
}
