package api

// StreamDelta is one increment of a streamed completion. Concatenating the
// Content of every delta in arrival order reconstructs the message a
// non-streaming call would have returned for the same request.
//
// Empty-content deltas are heartbeats; they are delivered rather than
// dropped so consumers keep seeing liveness.
type StreamDelta struct {
	Index        int          `json:"index"`
	Role         Role         `json:"role,omitempty"`
	Content      string       `json:"content"`
	FinishReason FinishReason `json:"finish_reason,omitempty"`

	// Final marks the last delta of the stream. No deltas follow it.
	Final bool `json:"final,omitempty"`
}

// StreamResult is the channel-delivery wrapper for a delta: exactly one of
// Delta or Err is meaningful. A result with Err set is terminal.
type StreamResult struct {
	Delta StreamDelta
	Err   error
}
