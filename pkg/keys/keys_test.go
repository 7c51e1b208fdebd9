package keys_test

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/parley-llm/parley/pkg/api"
	"github.com/parley-llm/parley/pkg/keys"
	"github.com/parley-llm/parley/pkg/provider"
)

func TestEmptyStoreMissesEveryProvider(t *testing.T) {
	store, err := keys.Load()
	require.NoError(t, err)

	for _, p := range provider.All() {
		_, ok := store.Lookup(p)
		assert.False(t, ok, "%s should be absent", p)
	}
	assert.Empty(t, store.Providers())
}

func TestLaterSourcesOverrideEarlier(t *testing.T) {
	store, err := keys.Load(
		keys.Static(map[provider.Provider]string{
			provider.OpenAI: "first",
			provider.Groq:   "gq",
		}),
		keys.Static(map[provider.Provider]string{
			provider.OpenAI: "second",
		}),
	)
	require.NoError(t, err)

	cred, ok := store.Lookup(provider.OpenAI)
	require.True(t, ok)
	assert.Equal(t, "second", cred.Secret())

	cred, ok = store.Lookup(provider.Groq)
	require.True(t, ok)
	assert.Equal(t, "gq", cred.Secret())
}

func TestEmptySecretsAreSkipped(t *testing.T) {
	store, err := keys.Load(keys.Static(map[provider.Provider]string{
		provider.Mistral: "",
	}))
	require.NoError(t, err)

	_, ok := store.Lookup(provider.Mistral)
	assert.False(t, ok)
}

func TestCredentialRedaction(t *testing.T) {
	store, err := keys.Load(keys.Static(map[provider.Provider]string{
		provider.OpenAI: "sk-very-secret",
	}))
	require.NoError(t, err)

	cred, _ := store.Lookup(provider.OpenAI)
	assert.NotContains(t, cred.String(), "sk-very-secret")
	assert.NotContains(t, fmt.Sprintf("%v", cred), "sk-very-secret")
	assert.NotContains(t, fmt.Sprintf("%#v", cred), "sk-very-secret")
	assert.NotContains(t, fmt.Sprintf("%s", cred), "sk-very-secret")
	assert.Equal(t, "sk-very-secret", cred.Secret())
}

func TestFromEnv(t *testing.T) {
	t.Setenv("OPENAI_KEY", "sk-env")
	t.Setenv("ANTHROPIC_KEY", "")

	store, err := keys.Load(keys.FromEnv())
	require.NoError(t, err)

	cred, ok := store.Lookup(provider.OpenAI)
	require.True(t, ok)
	assert.Equal(t, "sk-env", cred.Secret())

	_, ok = store.Lookup(provider.Anthropic)
	assert.False(t, ok)
}

func TestFromDotenv(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	content := "OPENAI_KEY=sk-dotenv\nGROQ_KEY=gq-dotenv\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	store, err := keys.Load(keys.FromDotenv(path))
	require.NoError(t, err)

	cred, ok := store.Lookup(provider.OpenAI)
	require.True(t, ok)
	assert.Equal(t, "sk-dotenv", cred.Secret())

	cred, ok = store.Lookup(provider.Groq)
	require.True(t, ok)
	assert.Equal(t, "gq-dotenv", cred.Secret())
}

func TestFromDotenvMissingFile(t *testing.T) {
	store, err := keys.Load(keys.FromDotenv(filepath.Join(t.TempDir(), "nope.env")))
	require.NoError(t, err)
	assert.Empty(t, store.Providers())
}

func TestFromDotenvMalformed(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(path, []byte("not a dotenv line at all\n"), 0o600))

	_, err := keys.Load(keys.FromDotenv(path))
	require.Error(t, err)

	var cfgErr *api.ConfigError
	assert.ErrorAs(t, err, &cfgErr)
	assert.Equal(t, path, cfgErr.Source)
}

func TestEnvOverridesDotenv(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(path, []byte("OPENAI_KEY=sk-file\n"), 0o600))
	t.Setenv("OPENAI_KEY", "sk-env")

	store, err := keys.Load(keys.FromDotenv(path), keys.FromEnv())
	require.NoError(t, err)

	cred, _ := store.Lookup(provider.OpenAI)
	assert.Equal(t, "sk-env", cred.Secret())
}
