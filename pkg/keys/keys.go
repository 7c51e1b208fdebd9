// Package keys loads and holds provider credentials. A Store is built once
// from one or more sources, is immutable afterwards, and is safe to share
// across concurrent callers. A provider with no configured secret is a
// normal, expected state: Lookup reports absence, it never errors.
package keys

import (
	"os"

	"github.com/joho/godotenv"

	"github.com/parley-llm/parley/pkg/api"
	"github.com/parley-llm/parley/pkg/provider"
)

// Credential is an opaque secret bound to exactly one provider. The secret
// never appears in String output, so credentials are safe to pass to
// loggers by accident.
type Credential struct {
	provider provider.Provider
	secret   string
}

// Provider returns the vendor this credential authenticates against.
func (c Credential) Provider() provider.Provider { return c.provider }

// Secret returns the raw secret for building auth headers. Handle with
// care: never log the result.
func (c Credential) Secret() string { return c.secret }

// String redacts the secret.
func (c Credential) String() string {
	return string(c.provider) + ":<redacted>"
}

// GoString redacts the secret from %#v as well.
func (c Credential) GoString() string { return c.String() }

// Source supplies provider/secret pairs. Sources report only pairs they
// actually have; absence of a provider is not an error.
type Source func() (map[provider.Provider]string, error)

// Store maps providers to their credentials. Read-only after Load.
type Store struct {
	creds map[provider.Provider]Credential
}

// Load builds a Store from the given sources, later sources overriding
// earlier ones. A malformed source fails the whole load with a ConfigError;
// missing individual providers never do.
func Load(sources ...Source) (*Store, error) {
	creds := make(map[provider.Provider]Credential)
	for _, src := range sources {
		pairs, err := src()
		if err != nil {
			return nil, err
		}
		for p, secret := range pairs {
			if secret == "" {
				continue
			}
			creds[p] = Credential{provider: p, secret: secret}
		}
	}
	return &Store{creds: creds}, nil
}

// Lookup returns the credential for p. The second return is false when no
// secret was configured; the caller decides what that means.
func (s *Store) Lookup(p provider.Provider) (Credential, bool) {
	c, ok := s.creds[p]
	return c, ok
}

// Providers lists the providers a credential was loaded for.
func (s *Store) Providers() []provider.Provider {
	var out []provider.Provider
	for _, p := range provider.All() {
		if _, ok := s.creds[p]; ok {
			out = append(out, p)
		}
	}
	return out
}

// FromEnv reads each provider's secret from its conventional environment
// variable (OPENAI_KEY, ANTHROPIC_KEY, ...). The environment is never
// malformed, so this source cannot fail.
func FromEnv() Source {
	return func() (map[provider.Provider]string, error) {
		pairs := make(map[provider.Provider]string)
		for _, p := range provider.All() {
			if v, ok := os.LookupEnv(p.EnvVar()); ok && v != "" {
				pairs[p] = v
			}
		}
		return pairs, nil
	}
}

// FromDotenv reads secrets from a .env style file. A missing file yields an
// empty source; unparseable content is a ConfigError.
func FromDotenv(path string) Source {
	return func() (map[provider.Provider]string, error) {
		vars, err := godotenv.Read(path)
		if err != nil {
			if os.IsNotExist(err) {
				return nil, nil
			}
			return nil, &api.ConfigError{Source: path, Err: err}
		}
		pairs := make(map[provider.Provider]string)
		for _, p := range provider.All() {
			if v := vars[p.EnvVar()]; v != "" {
				pairs[p] = v
			}
		}
		return pairs, nil
	}
}

// Static wraps literal pairs as a source. Mostly useful in tests and small
// programs.
func Static(pairs map[provider.Provider]string) Source {
	return func() (map[provider.Provider]string, error) {
		return pairs, nil
	}
}
