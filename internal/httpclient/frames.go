package httpclient

import (
	"bufio"
	"bytes"
	"io"
	"sync"
	"sync/atomic"

	"go.opentelemetry.io/otel/trace"
)

// FrameStream yields server-sent event payloads one at a time. One frame is
// the concatenated data of a single SSE event; comment lines are skipped and
// multiple data: lines join with \n, per the SSE spec.
//
// Next suspends until the upstream delivers more bytes. After io.EOF or any
// other error the stream is spent; Close is idempotent and safe to call from
// a different goroutine than Next.
type FrameStream struct {
	body io.ReadCloser
	r    *bufio.Reader
	span trace.Span

	closeOnce sync.Once
	closed    atomic.Bool
}

func newFrameStream(body io.ReadCloser, span trace.Span) *FrameStream {
	return &FrameStream{
		body: body,
		r:    bufio.NewReaderSize(body, 64*1024),
		span: span,
	}
}

// Next returns the next frame, or io.EOF when the upstream closed cleanly.
// A connection dropped mid-read surfaces as the underlying network error.
func (s *FrameStream) Next() ([]byte, error) {
	var dataLines [][]byte
	for {
		line, err := s.r.ReadBytes('\n')
		if err != nil {
			// Flush whatever data accumulated before EOF.
			line = bytes.TrimRight(line, "\r\n")
			if len(line) > 0 {
				dataLines = appendDataLine(dataLines, line)
			}
			if len(dataLines) > 0 {
				return bytes.Join(dataLines, []byte("\n")), nil
			}
			return nil, err
		}

		line = bytes.TrimRight(line, "\r\n")
		if len(line) == 0 {
			if len(dataLines) == 0 {
				continue
			}
			return bytes.Join(dataLines, []byte("\n")), nil
		}
		if line[0] == ':' {
			continue
		}
		dataLines = appendDataLine(dataLines, line)
	}
}

// Close releases the underlying connection. No frames are delivered after
// Close returns.
func (s *FrameStream) Close() error {
	var err error
	s.closeOnce.Do(func() {
		s.closed.Store(true)
		err = s.body.Close()
		if s.span != nil {
			s.span.End()
		}
	})
	return err
}

// Closed reports whether Close has been called. A read error on a closed
// stream is abandonment, not a network fault.
func (s *FrameStream) Closed() bool {
	return s.closed.Load()
}

func appendDataLine(dst [][]byte, line []byte) [][]byte {
	if !bytes.HasPrefix(line, []byte("data:")) {
		return dst
	}
	val := line[len("data:"):]
	if len(val) > 0 && val[0] == ' ' {
		val = val[1:]
	}
	return append(dst, append([]byte(nil), val...))
}
