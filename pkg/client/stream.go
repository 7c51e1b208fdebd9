package client

import (
	"context"
	"errors"
	"io"
	"sync"

	"github.com/parley-llm/parley/internal/dialect"
	"github.com/parley-llm/parley/internal/httpclient"
	"github.com/parley-llm/parley/pkg/api"
)

type streamState int

const (
	stateStreaming streamState = iota
	stateDone
	stateErrored
)

// Stream is a single-pass, lazy sequence of canonical deltas. Recv suspends
// until the next frame arrives; io.EOF marks a clean end. Once the stream is
// Done or Errored no further deltas are produced. A fresh call to
// Client.Stream opens a new stream; this one cannot be restarted.
//
// Concatenating the Content of every delta Recv returns, in order, equals
// the content a non-streaming call would have produced for the same
// upstream data.
type Stream struct {
	fs   *httpclient.FrameStream
	dec  dialect.FrameDecoder
	prov string

	mu      sync.Mutex
	state   streamState
	err     error
	pending []api.StreamDelta
}

func newStream(fs *httpclient.FrameStream, dec dialect.FrameDecoder, prov string) *Stream {
	return &Stream{fs: fs, dec: dec, prov: prov}
}

// Recv returns the next delta. It returns io.EOF after the provider's
// end-of-stream marker (or a clean connection close), and a canonical
// *api.Error when the stream errored. After either, every subsequent call
// returns the same terminal condition.
func (s *Stream) Recv() (api.StreamDelta, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for {
		if len(s.pending) > 0 {
			d := s.pending[0]
			s.pending = s.pending[1:]
			return d, nil
		}

		switch s.state {
		case stateDone:
			return api.StreamDelta{}, io.EOF
		case stateErrored:
			return api.StreamDelta{}, s.err
		}

		frame, err := s.fs.Next()
		if err != nil {
			if s.fs.Closed() {
				// Abandoned by a concurrent Close; not a fault.
				s.state = stateDone
				s.pending = nil
				return api.StreamDelta{}, io.EOF
			}
			if errors.Is(err, io.EOF) {
				// Upstream closed without its terminal marker after a run
				// of well-formed frames. Real servers do this; flag the
				// end explicitly rather than erroring.
				s.finish()
				return api.StreamDelta{Final: true}, nil
			}
			s.fail(api.WrapError(api.KindNetworkFault, s.prov, "connection lost mid-stream", err))
			return api.StreamDelta{}, s.err
		}

		deltas, done, err := s.dec.Decode(frame)
		if err != nil {
			var canonical *api.Error
			if !errors.As(err, &canonical) {
				err = api.WrapError(api.KindDecodeFault, s.prov, "frame decode failed", err)
			}
			s.fail(err)
			return api.StreamDelta{}, s.err
		}

		s.pending = append(s.pending, deltas...)
		if done {
			s.finish()
		}
	}
}

// Close abandons the stream: the underlying connection is released and no
// further deltas are delivered. Safe to call any number of times and from a
// goroutine other than the one blocked in Recv; required once the consumer
// stops early.
func (s *Stream) Close() error {
	// Close the connection first so a Recv suspended on the network wakes
	// up; only then take the lock to flip the state.
	err := s.fs.Close()
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == stateStreaming {
		s.state = stateDone
		s.pending = nil
	}
	return err
}

// Results drains the stream into a channel, the delivery style channel-based
// consumers expect. The channel closes after the final delta or a terminal
// error; cancelling ctx abandons the stream and closes the connection.
func (s *Stream) Results(ctx context.Context) <-chan api.StreamResult {
	ch := make(chan api.StreamResult)
	go func() {
		defer close(ch)
		defer func() {
			_ = s.Close()
		}()
		for {
			delta, err := s.Recv()
			if errors.Is(err, io.EOF) {
				return
			}
			if err != nil {
				select {
				case ch <- api.StreamResult{Err: err}:
				case <-ctx.Done():
				}
				return
			}
			select {
			case ch <- api.StreamResult{Delta: delta}:
			case <-ctx.Done():
				return
			}
			if delta.Final {
				return
			}
		}
	}()
	return ch
}

// finish transitions to Done and releases the connection; the terminal
// marker means nothing further is coming.
func (s *Stream) finish() {
	s.state = stateDone
	_ = s.fs.Close()
}

func (s *Stream) fail(err error) {
	s.state = stateErrored
	s.err = err
	s.pending = nil
	_ = s.fs.Close()
}
