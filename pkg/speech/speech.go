// Package speech is the text-to-speech surface. Unlike chat, TTS endpoints
// never converged on one convention: every vendor has its own path, body
// shape and audio envelope, so the per-provider branching lives here rather
// than in a dialect codec.
package speech

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"

	"go.uber.org/zap"

	"github.com/parley-llm/parley/internal/httpclient"
	"github.com/parley-llm/parley/internal/platform/logger"
	"github.com/parley-llm/parley/pkg/api"
	"github.com/parley-llm/parley/pkg/keys"
	"github.com/parley-llm/parley/pkg/provider"
)

// Config carries the optional synthesis parameters. Zero values mean the
// provider default.
type Config struct {
	Voice        string
	Speed        float64
	OutputFormat string
	LanguageCode string

	// Extra is merged into the request body verbatim, for provider knobs
	// without a canonical field.
	Extra map[string]any
}

// Speech is synthesized audio, decoded from whatever envelope the provider
// wrapped it in.
type Speech struct {
	RequestID string
	Format    string
	Audio     []byte
}

// Synthesizer performs text-to-speech calls. Like the chat client it is
// stateless across requests and safe for concurrent use.
type Synthesizer struct {
	store    *keys.Store
	doer     httpclient.Doer
	baseURLs map[provider.Provider]string
	log      *zap.Logger
}

// Option adjusts a Synthesizer at construction.
type Option func(*Synthesizer)

// WithTransport swaps the HTTP client.
func WithTransport(d httpclient.Doer) Option {
	return func(s *Synthesizer) { s.doer = d }
}

// WithBaseURL overrides a provider's TTS endpoint base.
func WithBaseURL(p provider.Provider, base string) Option {
	return func(s *Synthesizer) { s.baseURLs[p] = base }
}

// New builds a Synthesizer over a loaded credential store.
func New(store *keys.Store, opts ...Option) *Synthesizer {
	s := &Synthesizer{
		store:    store,
		doer:     httpclient.Default(),
		baseURLs: make(map[provider.Provider]string),
		log:      logger.Get(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// googleTTSDomain hosts Google's synthesis API, which does not live under
// the inference domain.
const googleTTSDomain = "https://texttospeech.googleapis.com"

// defaultDeepInfraModel is DeepInfra's inference-path model when the caller
// gave none.
const defaultDeepInfraModel = "hexgrad/Kokoro-82M"

// Synthesize turns text into audio with the given provider. Providers
// without a TTS surface yield a bad-request error, not a panic.
func (s *Synthesizer) Synthesize(ctx context.Context, p provider.Provider, model, text string, cfg Config) (*Speech, error) {
	if text == "" {
		return nil, &api.EncodeError{Reason: "text must not be empty"}
	}

	cred, ok := s.store.Lookup(p)
	if !ok {
		return nil, api.NewError(api.KindAuth, p.String(),
			fmt.Sprintf("no credential configured for provider %s (set %s)", p, p.EnvVar()))
	}

	addr, headers, err := s.address(p, model, cred)
	if err != nil {
		return nil, err
	}

	body, err := buildBody(p, model, text, cfg)
	if err != nil {
		return nil, err
	}

	s.log.Debug("tts request",
		zap.String("provider", p.String()),
		zap.String("model", model),
		zap.Int("text_len", len(text)),
	)

	resp, err := httpclient.Send(ctx, s.doer, "POST", addr, headers, body)
	if err != nil {
		return nil, api.WrapError(api.KindNetworkFault, p.String(), "request failed", err)
	}
	if resp.Status < 200 || resp.Status >= 300 {
		return nil, statusError(p, resp)
	}

	return decodeSpeech(p, resp.Body)
}

// address resolves the provider's TTS endpoint and auth headers. Google
// authenticates with a query-parameter key instead of a header.
func (s *Synthesizer) address(p provider.Provider, model string, cred keys.Credential) (string, map[string]string, error) {
	domain := p.Registry().Domain
	if override, found := s.baseURLs[p]; found {
		domain = override
	}

	switch p {
	case provider.OpenAI:
		return domain + "/v1/audio/speech", p.Registry().AuthHeaders(cred.Secret()), nil
	case provider.Hyperbolic:
		return domain + "/v1/audio/generation", p.Registry().AuthHeaders(cred.Secret()), nil
	case provider.DeepInfra:
		if model == "" {
			model = defaultDeepInfraModel
		}
		return domain + "/v1/inference/" + model, p.Registry().AuthHeaders(cred.Secret()), nil
	case provider.Google:
		if _, found := s.baseURLs[p]; !found {
			domain = googleTTSDomain
		}
		return domain + "/v1beta1/text:synthesize?key=" + url.QueryEscape(cred.Secret()), nil, nil
	default:
		return "", nil, api.NewError(api.KindBadRequest, p.String(),
			"provider has no text-to-speech support")
	}
}

func buildBody(p provider.Provider, model, text string, cfg Config) ([]byte, error) {
	body := map[string]any{}

	switch p {
	case provider.OpenAI:
		body["input"] = text
	case provider.Google:
		body["input"] = map[string]any{"text": text}
	default:
		body["text"] = text
	}

	if model != "" && p != provider.DeepInfra {
		body["model"] = model
	}

	if cfg.Voice != "" {
		switch p {
		case provider.OpenAI:
			body["voice"] = cfg.Voice
		case provider.Google:
			voice := map[string]any{"name": cfg.Voice}
			if cfg.LanguageCode != "" {
				voice["languageCode"] = cfg.LanguageCode
			}
			body["voice"] = voice
			body["audioConfig"] = map[string]any{
				"audioEncoding": "LINEAR16",
				"pitch":         0,
				"speakingRate":  1,
			}
		case provider.DeepInfra:
			body["preset_voice"] = cfg.Voice
		default:
			body["voice"] = cfg.Voice
		}
	}

	if cfg.Speed != 0 {
		body["speed"] = cfg.Speed
	}
	if cfg.OutputFormat != "" {
		body["output_format"] = cfg.OutputFormat
	}
	for k, v := range cfg.Extra {
		body[k] = v
	}

	encoded, err := json.Marshal(body)
	if err != nil {
		return nil, &api.EncodeError{Reason: err.Error()}
	}
	return encoded, nil
}

func statusError(p provider.Provider, resp *httpclient.Response) *api.Error {
	msg := extractErrorMessage(resp.Body)
	if msg == "" {
		msg = string(resp.Body)
	}
	e := api.NewError(api.ClassifyStatus(resp.Status), p.String(), msg)
	e.HTTPStatus = resp.Status
	if e.Kind == api.KindRateLimited {
		e.RetryAfter = api.ParseRetryAfter(resp.Header)
	}
	return e
}

// extractErrorMessage pulls a human message out of the common error
// envelopes ({"error": ...}, {"detail": ...}) without caring which vendor
// produced them.
func extractErrorMessage(body []byte) string {
	var env struct {
		Error  json.RawMessage `json:"error"`
		Detail json.RawMessage `json:"detail"`
	}
	if err := json.Unmarshal(body, &env); err != nil {
		return ""
	}
	for _, raw := range []json.RawMessage{env.Error, env.Detail} {
		if len(raw) == 0 {
			continue
		}
		var s string
		if err := json.Unmarshal(raw, &s); err == nil {
			return s
		}
		var obj struct {
			Message string `json:"message"`
		}
		if err := json.Unmarshal(raw, &obj); err == nil && obj.Message != "" {
			return obj.Message
		}
		return string(raw)
	}
	return ""
}

// deepInfraAudioPrefix wraps DeepInfra's base64 audio payloads.
const deepInfraAudioPrefix = "data:audio/mp3;base64,"

func decodeSpeech(p provider.Provider, body []byte) (*Speech, error) {
	switch p {
	case provider.OpenAI:
		// OpenAI returns the raw audio bytes; a JSON body at this point is
		// an error envelope that slipped through with a 200.
		if msg := extractErrorMessage(body); msg != "" {
			return nil, api.NewError(api.KindProviderFault, p.String(), msg)
		}
		return &Speech{Format: "mp3", Audio: body}, nil

	case provider.DeepInfra:
		var resp struct {
			RequestID    string `json:"request_id"`
			OutputFormat string `json:"output_format"`
			Audio        string `json:"audio"`
			Detail       any    `json:"detail"`
		}
		if err := json.Unmarshal(body, &resp); err != nil {
			return nil, api.WrapError(api.KindDecodeFault, p.String(), "response is not valid JSON", err)
		}
		if resp.Detail != nil {
			return nil, api.NewError(api.KindProviderFault, p.String(), fmt.Sprint(resp.Detail))
		}
		audio, err := decodeBase64Audio(resp.Audio, deepInfraAudioPrefix)
		if err != nil {
			return nil, api.WrapError(api.KindDecodeFault, p.String(), "bad audio payload", err)
		}
		format := resp.OutputFormat
		if format == "" {
			format = "mp3"
		}
		return &Speech{RequestID: resp.RequestID, Format: format, Audio: audio}, nil

	case provider.Hyperbolic:
		var resp struct {
			Audio string `json:"audio"`
		}
		if err := json.Unmarshal(body, &resp); err != nil {
			return nil, api.WrapError(api.KindDecodeFault, p.String(), "response is not valid JSON", err)
		}
		audio, err := decodeBase64Audio(resp.Audio, "")
		if err != nil {
			return nil, api.WrapError(api.KindDecodeFault, p.String(), "bad audio payload", err)
		}
		return &Speech{Format: "mp3", Audio: audio}, nil

	case provider.Google:
		var resp struct {
			AudioContent string `json:"audioContent"`
		}
		if err := json.Unmarshal(body, &resp); err != nil {
			return nil, api.WrapError(api.KindDecodeFault, p.String(), "response is not valid JSON", err)
		}
		if resp.AudioContent == "" {
			return nil, api.NewError(api.KindDecodeFault, p.String(), "success response carried no audio")
		}
		audio, err := decodeBase64Audio(resp.AudioContent, "")
		if err != nil {
			return nil, api.WrapError(api.KindDecodeFault, p.String(), "bad audio payload", err)
		}
		return &Speech{Format: "mp3", Audio: audio}, nil

	default:
		return nil, api.NewError(api.KindBadRequest, p.String(),
			"provider has no text-to-speech support")
	}
}

func decodeBase64Audio(encoded, prefix string) ([]byte, error) {
	if encoded == "" {
		return nil, fmt.Errorf("empty audio field")
	}
	if prefix != "" {
		encoded = strings.TrimPrefix(encoded, prefix)
	}
	return base64.StdEncoding.DecodeString(encoded)
}
