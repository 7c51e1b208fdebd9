package anthropic

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/parley-llm/parley/pkg/api"
)

func TestFrameDecoderFullEventSequence(t *testing.T) {
	dec := Codec{}.NewFrameDecoder("anthropic")

	frames := []string{
		`{"type":"message_start","message":{"role":"assistant"}}`,
		`{"type":"content_block_start","index":0}`,
		`{"type":"content_block_delta","index":0,"delta":{"type":"text_delta","text":"hello "}}`,
		`{"type":"content_block_delta","index":0,"delta":{"type":"text_delta","text":"world"}}`,
		`{"type":"content_block_stop","index":0}`,
		`{"type":"message_delta","delta":{"stop_reason":"end_turn"}}`,
		`{"type":"message_stop"}`,
	}

	var content strings.Builder
	var final api.StreamDelta
	var sawDone bool
	for _, frame := range frames {
		deltas, done, err := dec.Decode([]byte(frame))
		require.NoError(t, err)
		for _, d := range deltas {
			content.WriteString(d.Content)
			if d.Final {
				final = d
			}
		}
		if done {
			sawDone = true
		}
	}

	assert.True(t, sawDone)
	assert.Equal(t, "hello world", content.String())
	assert.True(t, final.Final)
	assert.Equal(t, api.FinishStop, final.FinishReason)
}

func TestFrameDecoderMaxTokensStopReason(t *testing.T) {
	dec := Codec{}.NewFrameDecoder("anthropic")

	_, _, err := dec.Decode([]byte(`{"type":"message_delta","delta":{"stop_reason":"max_tokens"}}`))
	require.NoError(t, err)

	deltas, done, err := dec.Decode([]byte(`{"type":"message_stop"}`))
	require.NoError(t, err)
	assert.True(t, done)
	require.Len(t, deltas, 1)
	assert.Equal(t, api.FinishLength, deltas[0].FinishReason)
}

func TestFrameDecoderPingIsHeartbeat(t *testing.T) {
	dec := Codec{}.NewFrameDecoder("anthropic")

	deltas, done, err := dec.Decode([]byte(`{"type":"ping"}`))
	require.NoError(t, err)
	assert.False(t, done)
	require.Len(t, deltas, 1)
	assert.Empty(t, deltas[0].Content)
	assert.False(t, deltas[0].Final)
}

func TestFrameDecoderErrorEvent(t *testing.T) {
	dec := Codec{}.NewFrameDecoder("anthropic")

	_, _, err := dec.Decode([]byte(`{"type":"error","error":{"type":"overloaded_error","message":"Overloaded"}}`))
	require.Error(t, err)

	var canonical *api.Error
	require.ErrorAs(t, err, &canonical)
	assert.Equal(t, api.KindProviderFault, canonical.Kind)
	assert.Contains(t, canonical.Message, "Overloaded")
}

func TestFrameDecoderMalformedFrame(t *testing.T) {
	dec := Codec{}.NewFrameDecoder("anthropic")

	_, _, err := dec.Decode([]byte(`{"type": "content_bl`))
	require.Error(t, err)

	var canonical *api.Error
	require.ErrorAs(t, err, &canonical)
	assert.Equal(t, api.KindDecodeFault, canonical.Kind)
}

func TestFrameDecoderUnknownEventIsHeartbeat(t *testing.T) {
	dec := Codec{}.NewFrameDecoder("anthropic")

	deltas, done, err := dec.Decode([]byte(`{"type":"shiny_new_event"}`))
	require.NoError(t, err)
	assert.False(t, done)
	require.Len(t, deltas, 1)
	assert.False(t, deltas[0].Final)
}
