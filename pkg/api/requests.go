package api

// Role identifies the author of a message.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleTool      Role = "tool"
)

// Message is a single turn of a conversation. Order within a request is
// conversation order and is preserved through encoding.
type Message struct {
	Role    Role   `json:"role" binding:"required,oneof=system user assistant tool"`
	Content string `json:"content" binding:"required"`
}

// ChatRequest is the canonical, provider-independent chat completion request.
//
// Model is an opaque, provider-specific identifier. Generation parameters are
// optional; nil pointers mean the provider default applies. Out-of-range
// values are not validated here: accepted ranges vary per provider, so a bad
// value comes back as the provider's own bad-request error.
type ChatRequest struct {
	Model    string    `json:"model" binding:"required"`
	Messages []Message `json:"messages" binding:"required,min=1,dive"`

	// Generation parameters, flattened at the top level on the wire.
	Temperature      *float64 `json:"temperature,omitempty"`
	TopP             *float64 `json:"top_p,omitempty"`
	MaxTokens        int      `json:"max_tokens,omitempty"`
	Stop             []string `json:"stop,omitempty"`
	Seed             *int     `json:"seed,omitempty"`
	FrequencyPenalty *float64 `json:"frequency_penalty,omitempty"`
	PresencePenalty  *float64 `json:"presence_penalty,omitempty"`

	// Stream selects incremental delivery. The client sets this itself
	// based on which call was made; callers don't need to touch it.
	Stream bool `json:"stream,omitempty"`
}

// Validate checks the request invariants: non-empty model, at least one
// message, every message carrying a known role.
func (r *ChatRequest) Validate() error {
	if r == nil {
		return &EncodeError{Reason: "nil request"}
	}
	if r.Model == "" {
		return &EncodeError{Reason: "model must not be empty"}
	}
	if len(r.Messages) == 0 {
		return &EncodeError{Reason: "messages must not be empty"}
	}
	for _, m := range r.Messages {
		switch m.Role {
		case RoleSystem, RoleUser, RoleAssistant, RoleTool:
		default:
			return &EncodeError{Reason: "unknown message role: " + string(m.Role)}
		}
	}
	return nil
}
