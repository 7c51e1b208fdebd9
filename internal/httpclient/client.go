// Package httpclient is the transport: it issues the HTTP call or opens the
// streaming connection and hands raw bytes back. It knows nothing about
// dialects; status interpretation belongs to the decoders.
package httpclient

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"

	"github.com/parley-llm/parley/internal/platform/logger"
)

const tracerName = "parley/httpclient"

// Doer is the minimal HTTP client surface, satisfied by *http.Client and by
// test doubles.
type Doer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Default returns the client used for unary calls.
func Default() *http.Client {
	return &http.Client{Timeout: 120 * time.Second}
}

// DefaultStreaming returns the client used for streaming calls. No overall
// timeout: stream lifetime is governed by the caller's context.
func DefaultStreaming() *http.Client {
	return &http.Client{}
}

// Response is a fully-received upstream reply, whatever its status. The
// decoder owns interpretation.
type Response struct {
	Status int
	Header http.Header
	Body   []byte
}

func newRequest(ctx context.Context, method, url string, headers map[string]string, body []byte) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Request-ID", uuid.NewString())
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	return req, nil
}

// Send issues one blocking call and returns the complete reply. The error
// return covers our side only (request construction, network, body read);
// upstream 4xx/5xx come back as a normal Response.
func Send(ctx context.Context, doer Doer, method, url string, headers map[string]string, body []byte) (*Response, error) {
	ctx, span := otel.Tracer(tracerName).Start(ctx, "llm.send")
	defer span.End()
	span.SetAttributes(attribute.String("http.url", url))

	req, err := newRequest(ctx, method, url, headers, body)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	logger.Get().Debug("sending request",
		zap.String("method", method),
		zap.String("url", url),
		zap.Int("body_bytes", len(body)),
	)

	resp, err := doer.Do(req)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("read response body: %w", err)
	}

	span.SetAttributes(attribute.Int("http.status_code", resp.StatusCode))

	return &Response{
		Status: resp.StatusCode,
		Header: resp.Header,
		Body:   respBody,
	}, nil
}

// StatusError reports a streaming connection refused with a non-2xx status
// at open. The body is the provider's error payload for the decoder.
type StatusError struct {
	Status int
	Header http.Header
	Body   []byte
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("upstream status %d", e.Status)
}

// OpenStream opens a streaming connection. The returned FrameStream
// suspends between frames; Close releases the connection. A non-2xx status
// at open is returned as a *StatusError.
func OpenStream(ctx context.Context, doer Doer, method, url string, headers map[string]string, body []byte) (*FrameStream, error) {
	ctx, span := otel.Tracer(tracerName).Start(ctx, "llm.stream")
	span.SetAttributes(attribute.String("http.url", url))

	req, err := newRequest(ctx, method, url, headers, body)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		span.End()
		return nil, err
	}
	req.Header.Set("Accept", "text/event-stream")
	req.Header.Set("Cache-Control", "no-cache")

	logger.Get().Debug("opening stream",
		zap.String("method", method),
		zap.String("url", url),
	)

	resp, err := doer.Do(req)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		span.End()
		return nil, fmt.Errorf("stream request failed: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		respBody, _ := io.ReadAll(resp.Body)
		_ = resp.Body.Close()
		span.SetAttributes(attribute.Int("http.status_code", resp.StatusCode))
		span.End()
		return nil, &StatusError{
			Status: resp.StatusCode,
			Header: resp.Header,
			Body:   respBody,
		}
	}

	return newFrameStream(resp.Body, span), nil
}
