// Package openai implements the OpenAI-compatible dialect, the convention
// the majority of hosted providers speak.
package openai

import (
	"encoding/json"
	"net/http"

	"github.com/parley-llm/parley/internal/dialect"
	"github.com/parley-llm/parley/pkg/api"
	"github.com/parley-llm/parley/pkg/provider"
)

func init() {
	dialect.Register(provider.DialectOpenAI, Codec{})
}

// Codec is the OpenAI-compatible encoder/decoder.
type Codec struct{}

// The canonical request is deliberately wire-compatible with this dialect:
// model, ordered messages, params flattened at top level. Encoding is a
// validate-then-marshal.
func (Codec) EncodeChat(req *api.ChatRequest) (string, []byte, map[string]string, error) {
	if err := req.Validate(); err != nil {
		return "", nil, nil, err
	}
	body, err := json.Marshal(req)
	if err != nil {
		return "", nil, nil, &api.EncodeError{Reason: err.Error()}
	}
	return "/chat/completions", body, nil, nil
}

// wireResponse is the upstream success shape.
type wireResponse struct {
	ID      string `json:"id"`
	Model   string `json:"model"`
	Created int64  `json:"created"`
	Choices []struct {
		Index   int `json:"index"`
		Message struct {
			Role    string `json:"role"`
			Content string `json:"content"`
		} `json:"message"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
	Usage *struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
		TotalTokens      int `json:"total_tokens"`
	} `json:"usage"`
}

// errorEnvelope mirrors the standard OpenAI error shape.
type errorEnvelope struct {
	Error *struct {
		Message string `json:"message"`
		Type    string `json:"type"`
		Code    any    `json:"code"`
	} `json:"error"`
}

func (Codec) DecodeChat(prov string, status int, header http.Header, body []byte) (*api.ChatResponse, error) {
	if status < 200 || status >= 300 {
		return nil, decodeError(prov, status, header, body)
	}

	var wire wireResponse
	if err := json.Unmarshal(body, &wire); err != nil {
		return nil, api.WrapError(api.KindDecodeFault, prov, "response is not valid JSON", err)
	}
	if len(wire.Choices) == 0 {
		// Success status with no usable payload is an anomaly, not an
		// empty result.
		return nil, api.NewError(api.KindDecodeFault, prov, "success response carried no choices")
	}

	resp := &api.ChatResponse{
		ID:      wire.ID,
		Model:   wire.Model,
		Created: wire.Created,
		Choices: make([]api.Choice, 0, len(wire.Choices)),
	}
	for i, c := range wire.Choices {
		idx := c.Index
		if idx == 0 {
			idx = i
		}
		resp.Choices = append(resp.Choices, api.Choice{
			Index: idx,
			Message: api.Message{
				Role:    api.Role(c.Message.Role),
				Content: c.Message.Content,
			},
			FinishReason: mapFinishReason(c.FinishReason),
		})
	}
	if wire.Usage != nil {
		resp.Usage = &api.Usage{
			PromptTokens:     wire.Usage.PromptTokens,
			CompletionTokens: wire.Usage.CompletionTokens,
			TotalTokens:      wire.Usage.TotalTokens,
		}
	}
	return resp, nil
}

// decodeError maps a non-2xx reply to a canonical error, preferring the
// provider's error-envelope message over the raw body.
func decodeError(prov string, status int, header http.Header, body []byte) *api.Error {
	msg := ""
	var env errorEnvelope
	if err := json.Unmarshal(body, &env); err == nil && env.Error != nil {
		msg = env.Error.Message
	}
	if msg == "" {
		msg = string(body)
	}
	if msg == "" {
		msg = http.StatusText(status)
	}

	e := api.NewError(api.ClassifyStatus(status), prov, msg)
	e.HTTPStatus = status
	if e.Kind == api.KindRateLimited {
		e.RetryAfter = api.ParseRetryAfter(header)
	}
	return e
}

func mapFinishReason(native string) api.FinishReason {
	switch native {
	case "stop":
		return api.FinishStop
	case "length":
		return api.FinishLength
	case "content_filter":
		return api.FinishContentFilter
	case "tool_calls", "function_call":
		return api.FinishToolCall
	case "error":
		return api.FinishError
	case "":
		return ""
	default:
		return api.FinishUnknown
	}
}
