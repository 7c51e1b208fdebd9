package speech_test

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/parley-llm/parley/pkg/api"
	"github.com/parley-llm/parley/pkg/keys"
	"github.com/parley-llm/parley/pkg/provider"
	"github.com/parley-llm/parley/pkg/speech"
)

var audioBytes = []byte{0x49, 0x44, 0x33, 0x04, 0x00} // ID3 tag start

func speechStore(t *testing.T, p provider.Provider) *keys.Store {
	t.Helper()
	store, err := keys.Load(keys.Static(map[provider.Provider]string{p: "sk-tts"}))
	require.NoError(t, err)
	return store
}

func TestSynthesizeOpenAIRawBytes(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/audio/speech", r.URL.Path)
		assert.Equal(t, "Bearer sk-tts", r.Header.Get("Authorization"))

		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "hello", body["input"])
		assert.Equal(t, "tts-1", body["model"])
		assert.Equal(t, "alloy", body["voice"])

		w.Header().Set("Content-Type", "audio/mpeg")
		_, _ = w.Write(audioBytes)
	}))
	defer srv.Close()

	s := speech.New(speechStore(t, provider.OpenAI),
		speech.WithBaseURL(provider.OpenAI, srv.URL))

	sp, err := s.Synthesize(context.Background(), provider.OpenAI, "tts-1", "hello",
		speech.Config{Voice: "alloy"})
	require.NoError(t, err)
	assert.Equal(t, audioBytes, sp.Audio)
	assert.Equal(t, "mp3", sp.Format)
}

func TestSynthesizeDeepInfraBase64Envelope(t *testing.T) {
	encoded := "data:audio/mp3;base64," + base64.StdEncoding.EncodeToString(audioBytes)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/inference/hexgrad/Kokoro-82M", r.URL.Path)

		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "hello", body["text"])
		assert.Equal(t, "af_bella", body["preset_voice"])
		assert.NotContains(t, body, "model")

		w.Header().Set("Content-Type", "application/json")
		fmt.Fprintf(w, `{"request_id":"req-1","output_format":"mp3","audio":%q}`, encoded)
	}))
	defer srv.Close()

	s := speech.New(speechStore(t, provider.DeepInfra),
		speech.WithBaseURL(provider.DeepInfra, srv.URL))

	// Empty model falls back to the provider default.
	sp, err := s.Synthesize(context.Background(), provider.DeepInfra, "", "hello",
		speech.Config{Voice: "af_bella"})
	require.NoError(t, err)
	assert.Equal(t, "req-1", sp.RequestID)
	assert.Equal(t, "mp3", sp.Format)
	assert.Equal(t, audioBytes, sp.Audio)
}

func TestSynthesizeHyperbolic(t *testing.T) {
	encoded := base64.StdEncoding.EncodeToString(audioBytes)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/audio/generation", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprintf(w, `{"audio":%q}`, encoded)
	}))
	defer srv.Close()

	s := speech.New(speechStore(t, provider.Hyperbolic),
		speech.WithBaseURL(provider.Hyperbolic, srv.URL))

	sp, err := s.Synthesize(context.Background(), provider.Hyperbolic, "", "hello", speech.Config{})
	require.NoError(t, err)
	assert.Equal(t, audioBytes, sp.Audio)
}

func TestSynthesizeGoogleQueryKeyAuth(t *testing.T) {
	encoded := base64.StdEncoding.EncodeToString(audioBytes)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1beta1/text:synthesize", r.URL.Path)
		assert.Equal(t, "sk-tts", r.URL.Query().Get("key"))
		assert.Empty(t, r.Header.Get("Authorization"))

		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		input, ok := body["input"].(map[string]any)
		require.True(t, ok)
		assert.Equal(t, "hello", input["text"])
		voice, ok := body["voice"].(map[string]any)
		require.True(t, ok)
		assert.Equal(t, "en-US-Standard-A", voice["name"])
		assert.Equal(t, "en-US", voice["languageCode"])

		w.Header().Set("Content-Type", "application/json")
		fmt.Fprintf(w, `{"audioContent":%q}`, encoded)
	}))
	defer srv.Close()

	s := speech.New(speechStore(t, provider.Google),
		speech.WithBaseURL(provider.Google, srv.URL))

	sp, err := s.Synthesize(context.Background(), provider.Google, "", "hello",
		speech.Config{Voice: "en-US-Standard-A", LanguageCode: "en-US"})
	require.NoError(t, err)
	assert.Equal(t, audioBytes, sp.Audio)
}

func TestSynthesizeUnsupportedProvider(t *testing.T) {
	s := speech.New(speechStore(t, provider.Groq))

	_, err := s.Synthesize(context.Background(), provider.Groq, "", "hello", speech.Config{})
	require.Error(t, err)

	var canonical *api.Error
	require.ErrorAs(t, err, &canonical)
	assert.Equal(t, api.KindBadRequest, canonical.Kind)
	assert.Contains(t, canonical.Message, "no text-to-speech support")
}

func TestSynthesizeMissingCredential(t *testing.T) {
	store, err := keys.Load()
	require.NoError(t, err)
	s := speech.New(store)

	_, err = s.Synthesize(context.Background(), provider.OpenAI, "tts-1", "hello", speech.Config{})
	require.Error(t, err)

	var canonical *api.Error
	require.ErrorAs(t, err, &canonical)
	assert.Equal(t, api.KindAuth, canonical.Kind)
}

func TestSynthesizeEmptyText(t *testing.T) {
	s := speech.New(speechStore(t, provider.OpenAI))

	_, err := s.Synthesize(context.Background(), provider.OpenAI, "tts-1", "", speech.Config{})
	require.Error(t, err)

	var encodeErr *api.EncodeError
	assert.ErrorAs(t, err, &encodeErr)
}

func TestSynthesizeDeepInfraDetailError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"detail":"model is warming up"}`)
	}))
	defer srv.Close()

	s := speech.New(speechStore(t, provider.DeepInfra),
		speech.WithBaseURL(provider.DeepInfra, srv.URL))

	_, err := s.Synthesize(context.Background(), provider.DeepInfra, "", "hello", speech.Config{})
	require.Error(t, err)

	var canonical *api.Error
	require.ErrorAs(t, err, &canonical)
	assert.Equal(t, api.KindProviderFault, canonical.Kind)
	assert.Contains(t, canonical.Message, "warming up")
}

func TestSynthesizeUpstreamErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		fmt.Fprint(w, `{"error":{"message":"bad key"}}`)
	}))
	defer srv.Close()

	s := speech.New(speechStore(t, provider.OpenAI),
		speech.WithBaseURL(provider.OpenAI, srv.URL))

	_, err := s.Synthesize(context.Background(), provider.OpenAI, "tts-1", "hello", speech.Config{})
	require.Error(t, err)

	var canonical *api.Error
	require.ErrorAs(t, err, &canonical)
	assert.Equal(t, api.KindAuth, canonical.Kind)
	assert.Contains(t, canonical.Message, "bad key")
}
