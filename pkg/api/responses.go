package api

// FinishReason is the canonical, provider-independent reason a completion
// stopped. Every provider-native reason string collapses into this set.
type FinishReason string

const (
	FinishStop          FinishReason = "stop"
	FinishLength        FinishReason = "length"
	FinishContentFilter FinishReason = "content_filter"
	FinishToolCall      FinishReason = "tool_call"
	FinishError         FinishReason = "error"
	FinishUnknown       FinishReason = "unknown"
)

// ChatResponse is the canonical chat completion response. A successful
// response carries at least one Choice, in the order the provider returned
// them.
type ChatResponse struct {
	ID      string   `json:"id,omitempty"`
	Model   string   `json:"model,omitempty"`
	Created int64    `json:"created,omitempty"`
	Choices []Choice `json:"choices"`
	Usage   *Usage   `json:"usage,omitempty"`
}

// Choice is one completion alternative.
type Choice struct {
	Index        int          `json:"index"`
	Message      Message      `json:"message"`
	FinishReason FinishReason `json:"finish_reason"`
}

// Usage carries the provider-reported token counts. Parley reports the
// numbers as-is; cost accounting is the caller's business.
type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}
