package anthropic

import (
	"encoding/json"

	"github.com/parley-llm/parley/internal/dialect"
	"github.com/parley-llm/parley/pkg/api"
)

func (Codec) NewFrameDecoder(prov string) dialect.FrameDecoder {
	return &frameDecoder{prov: prov}
}

// frameDecoder folds Anthropic's typed event stream into canonical deltas.
// The terminal marker is the message_stop event; pings pass through as
// heartbeats.
type frameDecoder struct {
	prov string
	done bool

	// stopReason arrives on message_delta, before message_stop; it is held
	// until the final delta is emitted.
	stopReason api.FinishReason
}

type streamEvent struct {
	Type  string `json:"type"`
	Index int    `json:"index"`
	Delta *struct {
		Type       string `json:"type"`
		Text       string `json:"text"`
		StopReason string `json:"stop_reason"`
	} `json:"delta"`
	Message *struct {
		Role string `json:"role"`
	} `json:"message"`
	Error *struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"error"`
}

func (d *frameDecoder) Decode(frame []byte) ([]api.StreamDelta, bool, error) {
	if d.done {
		return nil, true, nil
	}

	var ev streamEvent
	if err := json.Unmarshal(frame, &ev); err != nil {
		return nil, false, api.WrapError(api.KindDecodeFault, d.prov, "malformed stream event", err)
	}

	switch ev.Type {
	case "message_start":
		role := api.RoleAssistant
		if ev.Message != nil && ev.Message.Role != "" {
			role = api.Role(ev.Message.Role)
		}
		return []api.StreamDelta{{Role: role}}, false, nil

	case "content_block_delta":
		if ev.Delta == nil || ev.Delta.Type != "text_delta" {
			return []api.StreamDelta{{}}, false, nil
		}
		return []api.StreamDelta{{Content: ev.Delta.Text}}, false, nil

	case "message_delta":
		if ev.Delta != nil && ev.Delta.StopReason != "" {
			d.stopReason = mapStopReason(ev.Delta.StopReason)
		}
		return []api.StreamDelta{{}}, false, nil

	case "message_stop":
		d.done = true
		fin := d.stopReason
		if fin == "" {
			fin = api.FinishStop
		}
		return []api.StreamDelta{{FinishReason: fin, Final: true}}, true, nil

	case "error":
		msg := "provider stream error"
		if ev.Error != nil && ev.Error.Message != "" {
			msg = ev.Error.Message
		}
		return nil, false, api.NewError(api.KindProviderFault, d.prov, msg)

	case "ping", "content_block_start", "content_block_stop":
		return []api.StreamDelta{{}}, false, nil

	default:
		// Unknown event types are forward-compatibility noise, treated as
		// heartbeats.
		return []api.StreamDelta{{}}, false, nil
	}
}
