// Package anthropic implements the Anthropic messages dialect: system
// prompts ride a dedicated field, max_tokens is mandatory, and streaming is
// event-typed rather than chunk-shaped.
package anthropic

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/parley-llm/parley/internal/dialect"
	"github.com/parley-llm/parley/pkg/api"
	"github.com/parley-llm/parley/pkg/provider"
)

func init() {
	dialect.Register(provider.DialectAnthropic, Codec{})
}

// Codec is the Anthropic messages encoder/decoder.
type Codec struct{}

// defaultMaxTokens applies when the caller didn't set one; the field is
// required by this dialect.
const defaultMaxTokens = 4096

type wireMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type wireRequest struct {
	Model         string        `json:"model"`
	Messages      []wireMessage `json:"messages"`
	System        string        `json:"system,omitempty"`
	MaxTokens     int           `json:"max_tokens"`
	Temperature   *float64      `json:"temperature,omitempty"`
	TopP          *float64      `json:"top_p,omitempty"`
	StopSequences []string      `json:"stop_sequences,omitempty"`
	Stream        bool          `json:"stream,omitempty"`
}

func (Codec) EncodeChat(req *api.ChatRequest) (string, []byte, map[string]string, error) {
	if err := req.Validate(); err != nil {
		return "", nil, nil, err
	}

	wire := wireRequest{
		Model:         req.Model,
		MaxTokens:     req.MaxTokens,
		Temperature:   req.Temperature,
		TopP:          req.TopP,
		StopSequences: req.Stop,
		Stream:        req.Stream,
	}
	if wire.MaxTokens == 0 {
		wire.MaxTokens = defaultMaxTokens
	}

	// System turns move to the dedicated field; conversation order of the
	// remaining turns is preserved as-is.
	var system []string
	for _, m := range req.Messages {
		if m.Role == api.RoleSystem {
			system = append(system, m.Content)
			continue
		}
		wire.Messages = append(wire.Messages, wireMessage{
			Role:    string(m.Role),
			Content: m.Content,
		})
	}
	wire.System = strings.Join(system, "\n")

	if len(wire.Messages) == 0 {
		return "", nil, nil, &api.EncodeError{Reason: "anthropic dialect needs at least one non-system message"}
	}

	body, err := json.Marshal(wire)
	if err != nil {
		return "", nil, nil, &api.EncodeError{Reason: err.Error()}
	}
	return "/messages", body, nil, nil
}

type wireContent struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

type wireResponse struct {
	ID         string        `json:"id"`
	Model      string        `json:"model"`
	Content    []wireContent `json:"content"`
	StopReason string        `json:"stop_reason"`
	Usage      *struct {
		InputTokens  int `json:"input_tokens"`
		OutputTokens int `json:"output_tokens"`
	} `json:"usage"`
}

type errorEnvelope struct {
	Error *struct {
		Type    string `json:"type"`
		Message string `json:"message"`
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
	if len(wire.Content) == 0 {
		return nil, api.NewError(api.KindDecodeFault, prov, "success response carried no content")
	}

	var text strings.Builder
	for _, c := range wire.Content {
		if c.Type == "text" {
			text.WriteString(c.Text)
		}
	}

	resp := &api.ChatResponse{
		ID:    wire.ID,
		Model: wire.Model,
		Choices: []api.Choice{{
			Index: 0,
			Message: api.Message{
				Role:    api.RoleAssistant,
				Content: text.String(),
			},
			FinishReason: mapStopReason(wire.StopReason),
		}},
	}
	if wire.Usage != nil {
		resp.Usage = &api.Usage{
			PromptTokens:     wire.Usage.InputTokens,
			CompletionTokens: wire.Usage.OutputTokens,
			TotalTokens:      wire.Usage.InputTokens + wire.Usage.OutputTokens,
		}
	}
	return resp, nil
}

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

func mapStopReason(native string) api.FinishReason {
	switch native {
	case "end_turn", "stop_sequence":
		return api.FinishStop
	case "max_tokens":
		return api.FinishLength
	case "tool_use":
		return api.FinishToolCall
	case "refusal":
		return api.FinishContentFilter
	case "":
		return ""
	default:
		return api.FinishUnknown
	}
}
