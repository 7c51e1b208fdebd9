package openai

import (
	"bytes"
	"encoding/json"

	"github.com/parley-llm/parley/internal/dialect"
	"github.com/parley-llm/parley/pkg/api"
)

// doneMarker is the dialect's designated end-of-stream sentinel.
var doneMarker = []byte("[DONE]")

func (Codec) NewFrameDecoder(prov string) dialect.FrameDecoder {
	return &frameDecoder{prov: prov}
}

type frameDecoder struct {
	prov string
	done bool
}

// chunk is the per-frame shape: same per-choice layout as the non-streaming
// response, with partial content under delta.
type chunk struct {
	Choices []struct {
		Index int `json:"index"`
		Delta struct {
			Role    string `json:"role"`
			Content string `json:"content"`
		} `json:"delta"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
}

func (d *frameDecoder) Decode(frame []byte) ([]api.StreamDelta, bool, error) {
	if d.done {
		return nil, true, nil
	}
	if bytes.Equal(bytes.TrimSpace(frame), doneMarker) {
		d.done = true
		return []api.StreamDelta{{Final: true}}, true, nil
	}

	var c chunk
	if err := json.Unmarshal(frame, &c); err != nil {
		return nil, false, api.WrapError(api.KindDecodeFault, d.prov, "malformed stream frame", err)
	}

	// Frames with no choices are provider keep-alives; surface them as an
	// empty delta rather than swallowing the liveness signal.
	if len(c.Choices) == 0 {
		return []api.StreamDelta{{}}, false, nil
	}

	deltas := make([]api.StreamDelta, 0, len(c.Choices))
	for _, ch := range c.Choices {
		deltas = append(deltas, api.StreamDelta{
			Index:        ch.Index,
			Role:         api.Role(ch.Delta.Role),
			Content:      ch.Delta.Content,
			FinishReason: mapFinishReason(ch.FinishReason),
		})
	}
	return deltas, false, nil
}
