// Package client ties the pieces together: it resolves a credential, picks
// the provider's dialect codec, sends the encoded request through the
// transport, and hands back canonical results. One Client serves any number
// of concurrent callers; it holds no per-request state.
package client

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/parley-llm/parley/internal/dialect"
	_ "github.com/parley-llm/parley/internal/dialect/anthropic" // register codec
	_ "github.com/parley-llm/parley/internal/dialect/openai"    // register codec
	"github.com/parley-llm/parley/internal/httpclient"
	"github.com/parley-llm/parley/internal/platform/logger"
	"github.com/parley-llm/parley/pkg/api"
	"github.com/parley-llm/parley/pkg/keys"
	"github.com/parley-llm/parley/pkg/provider"
)

// Client is the unification layer's entry point.
type Client struct {
	store    *keys.Store
	doer     httpclient.Doer
	streamer httpclient.Doer
	baseURLs map[provider.Provider]string
	log      *zap.Logger
}

// Option adjusts a Client at construction.
type Option func(*Client)

// WithTransport swaps the unary HTTP client; tests inject doubles here.
func WithTransport(d httpclient.Doer) Option {
	return func(c *Client) { c.doer = d }
}

// WithStreamTransport swaps the streaming HTTP client.
func WithStreamTransport(d httpclient.Doer) Option {
	return func(c *Client) { c.streamer = d }
}

// WithBaseURL overrides a provider's endpoint, for self-hosted gateways and
// test servers.
func WithBaseURL(p provider.Provider, url string) Option {
	return func(c *Client) { c.baseURLs[p] = url }
}

// WithLogger swaps the structured logger.
func WithLogger(l *zap.Logger) Option {
	return func(c *Client) { c.log = l }
}

// New builds a Client over a loaded credential store.
func New(store *keys.Store, opts ...Option) *Client {
	c := &Client{
		store:    store,
		doer:     httpclient.Default(),
		streamer: httpclient.DefaultStreaming(),
		baseURLs: make(map[provider.Provider]string),
		log:      logger.Get(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// resolve gathers everything a call needs: registry entry, codec, endpoint
// and merged headers. Missing credentials surface as an explicit auth error
// naming the provider; providers that authenticate with nothing (local
// runtimes) proceed without one.
func (c *Client) resolve(p provider.Provider) (dialect.Codec, string, map[string]string, error) {
	entry := p.Registry()

	codec, err := dialect.Get(entry.Dialect)
	if err != nil {
		return nil, "", nil, api.WrapError(api.KindUnknown, p.String(), "unsupported dialect", err)
	}

	cred, ok := c.store.Lookup(p)
	if !ok && len(entry.AuthHeaders("")) != 0 {
		return nil, "", nil, api.NewError(api.KindAuth, p.String(),
			fmt.Sprintf("no credential configured for provider %s (set %s)", p, p.EnvVar()))
	}

	base := entry.BaseURL
	if override, found := c.baseURLs[p]; found {
		base = override
	}

	return codec, base, entry.AuthHeaders(cred.Secret()), nil
}

// Chat performs one non-streaming completion. The call blocks until the
// full response is received and decoded; all failures come back as a
// canonical *api.Error.
func (c *Client) Chat(ctx context.Context, p provider.Provider, req *api.ChatRequest) (*api.ChatResponse, error) {
	codec, base, auth, err := c.resolve(p)
	if err != nil {
		return nil, err
	}

	// Work on a copy: the caller's request is never mutated.
	r := *req
	r.Stream = false

	path, body, headers, err := codec.EncodeChat(&r)
	if err != nil {
		return nil, err
	}

	c.log.Debug("chat request",
		zap.String("provider", p.String()),
		zap.String("model", r.Model),
		zap.Int("messages", len(r.Messages)),
	)

	resp, err := httpclient.Send(ctx, c.doer, "POST", base+path, mergeHeaders(headers, auth), body)
	if err != nil {
		return nil, api.WrapError(api.KindNetworkFault, p.String(), "request failed", err)
	}

	return codec.DecodeChat(p.String(), resp.Status, resp.Header, resp.Body)
}

// Stream opens a streaming completion. The returned Stream is single-pass;
// abandoning it (Close, or cancelling ctx) closes the connection.
func (c *Client) Stream(ctx context.Context, p provider.Provider, req *api.ChatRequest) (*Stream, error) {
	codec, base, auth, err := c.resolve(p)
	if err != nil {
		return nil, err
	}

	r := *req
	r.Stream = true

	path, body, headers, err := codec.EncodeChat(&r)
	if err != nil {
		return nil, err
	}

	c.log.Debug("stream request",
		zap.String("provider", p.String()),
		zap.String("model", r.Model),
	)

	fs, err := httpclient.OpenStream(ctx, c.streamer, "POST", base+path, mergeHeaders(headers, auth), body)
	if err != nil {
		var statusErr *httpclient.StatusError
		if errors.As(err, &statusErr) {
			// The provider refused the stream with a regular error reply;
			// decode it the same way a unary failure would be.
			if _, decodeErr := codec.DecodeChat(p.String(), statusErr.Status, statusErr.Header, statusErr.Body); decodeErr != nil {
				return nil, decodeErr
			}
			return nil, api.NewError(api.KindProviderFault, p.String(), statusErr.Error())
		}
		return nil, api.WrapError(api.KindNetworkFault, p.String(), "stream open failed", err)
	}

	return newStream(fs, codec.NewFrameDecoder(p.String()), p.String()), nil
}

// mergeHeaders combines dialect headers with auth headers, auth winning on
// conflicts. Inputs are not mutated.
func mergeHeaders(headers, auth map[string]string) map[string]string {
	if len(headers) == 0 {
		return auth
	}
	merged := make(map[string]string, len(headers)+len(auth))
	for k, v := range headers {
		merged[k] = v
	}
	for k, v := range auth {
		merged[k] = v
	}
	return merged
}
