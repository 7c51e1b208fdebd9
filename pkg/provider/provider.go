// Package provider holds the compiled-in knowledge of every supported
// inference vendor: which wire dialect it speaks, where it lives, and how it
// wants to be authenticated. Adding a vendor means adding an enum value and
// a registry entry; unknown providers are a compile-time impossibility, not
// a runtime error.
package provider

import "strings"

// Provider is the closed enumeration of supported vendors.
type Provider string

const (
	OpenAI     Provider = "openai"
	Anthropic  Provider = "anthropic"
	Google     Provider = "google"
	DeepInfra  Provider = "deepinfra"
	Hyperbolic Provider = "hyperbolic"
	Groq       Provider = "groq"
	Mistral    Provider = "mistral"
	OpenRouter Provider = "openrouter"
	Ollama     Provider = "ollama"
)

// Dialect tags the wire-format convention a provider speaks.
type Dialect string

const (
	// DialectOpenAI is the OpenAI-compatible chat completions convention,
	// the dominant one across vendors.
	DialectOpenAI Dialect = "openai"
	// DialectAnthropic is the Anthropic messages convention.
	DialectAnthropic Dialect = "anthropic"
)

// Entry is one provider's registry record. Entries are process-wide,
// read-only and safe for concurrent use.
type Entry struct {
	// Dialect selects the codec used to encode requests and decode
	// responses for this provider.
	Dialect Dialect

	// BaseURL is the chat-completions API base, including any vendor path
	// prefix, without a trailing slash.
	BaseURL string

	// Domain is the bare scheme+host, used by endpoints that don't live
	// under BaseURL (text-to-speech paths differ per vendor).
	Domain string

	// AuthHeaders encodes the provider's authentication convention for a
	// given secret. Bearer tokens are the common case; Anthropic wants a
	// custom header pair; Ollama wants nothing.
	AuthHeaders func(secret string) map[string]string
}

func bearer(secret string) map[string]string {
	return map[string]string{"Authorization": "Bearer " + secret}
}

func anthropicAuth(secret string) map[string]string {
	return map[string]string{
		"x-api-key":         secret,
		"anthropic-version": "2023-06-01",
	}
}

func noAuth(string) map[string]string { return nil }

var registry = map[Provider]Entry{
	OpenAI: {
		Dialect:     DialectOpenAI,
		BaseURL:     "https://api.openai.com/v1",
		Domain:      "https://api.openai.com",
		AuthHeaders: bearer,
	},
	Anthropic: {
		Dialect:     DialectAnthropic,
		BaseURL:     "https://api.anthropic.com/v1",
		Domain:      "https://api.anthropic.com",
		AuthHeaders: anthropicAuth,
	},
	Google: {
		// Google serves an OpenAI-compatible surface for chat.
		Dialect:     DialectOpenAI,
		BaseURL:     "https://generativelanguage.googleapis.com/v1beta/openai",
		Domain:      "https://generativelanguage.googleapis.com",
		AuthHeaders: bearer,
	},
	DeepInfra: {
		Dialect:     DialectOpenAI,
		BaseURL:     "https://api.deepinfra.com/v1/openai",
		Domain:      "https://api.deepinfra.com",
		AuthHeaders: bearer,
	},
	Hyperbolic: {
		Dialect:     DialectOpenAI,
		BaseURL:     "https://api.hyperbolic.xyz/v1",
		Domain:      "https://api.hyperbolic.xyz",
		AuthHeaders: bearer,
	},
	Groq: {
		Dialect:     DialectOpenAI,
		BaseURL:     "https://api.groq.com/openai/v1",
		Domain:      "https://api.groq.com",
		AuthHeaders: bearer,
	},
	Mistral: {
		Dialect:     DialectOpenAI,
		BaseURL:     "https://api.mistral.ai/v1",
		Domain:      "https://api.mistral.ai",
		AuthHeaders: bearer,
	},
	OpenRouter: {
		Dialect:     DialectOpenAI,
		BaseURL:     "https://openrouter.ai/api/v1",
		Domain:      "https://openrouter.ai",
		AuthHeaders: bearer,
	},
	Ollama: {
		Dialect:     DialectOpenAI,
		BaseURL:     "http://localhost:11434/v1",
		Domain:      "http://localhost:11434",
		AuthHeaders: noAuth,
	},
}

// Registry returns the provider's compiled entry. The enum is closed, so a
// Provider constant always resolves.
func (p Provider) Registry() Entry {
	return registry[p]
}

// Known reports whether p is one of the compiled providers. Only relevant
// when a Provider is parsed from external input.
func (p Provider) Known() bool {
	_, ok := registry[p]
	return ok
}

// EnvVar is the environment variable the credential store reads this
// provider's secret from, e.g. OPENAI_KEY.
func (p Provider) EnvVar() string {
	return strings.ToUpper(string(p)) + "_KEY"
}

func (p Provider) String() string { return string(p) }

// Parse resolves a provider name from external input (config files, the
// <provider>/<model> addressing scheme).
func Parse(name string) (Provider, bool) {
	p := Provider(strings.ToLower(strings.TrimSpace(name)))
	return p, p.Known()
}

// All lists every compiled provider in a stable order.
func All() []Provider {
	return []Provider{
		OpenAI, Anthropic, Google, DeepInfra, Hyperbolic,
		Groq, Mistral, OpenRouter, Ollama,
	}
}
