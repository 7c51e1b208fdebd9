// Package dialect defines the codec contract each wire-format convention
// implements, and the registry codecs install themselves into at init time.
// The provider enum is closed, so every registered dialect tag resolves; the
// registry exists to keep codec packages self-contained, the way provider
// adapters register their constructors.
package dialect

import (
	"fmt"
	"net/http"
	"sync"

	"github.com/parley-llm/parley/pkg/api"
	"github.com/parley-llm/parley/pkg/provider"
)

// Codec translates between the canonical types and one provider dialect.
// Implementations are stateless and safe for concurrent use.
type Codec interface {
	// EncodeChat turns a validated canonical request into the wire payload,
	// the URL path under the provider's base, and any dialect-specific
	// headers (auth headers are the registry's business, not the codec's).
	EncodeChat(req *api.ChatRequest) (path string, body []byte, headers map[string]string, err error)

	// DecodeChat turns a complete upstream reply into the canonical
	// response or a canonical *api.Error. Total over
	// (status x parseable/unparseable body); never panics on garbage.
	DecodeChat(prov string, status int, header http.Header, body []byte) (*api.ChatResponse, error)

	// NewFrameDecoder returns a fresh per-stream decoder. Decoders may be
	// stateful and are used by a single goroutine.
	NewFrameDecoder(prov string) FrameDecoder
}

// FrameDecoder turns one transport frame into zero or more canonical
// deltas. done reports the provider's end-of-stream marker; after done or an
// error the decoder is spent.
type FrameDecoder interface {
	Decode(frame []byte) (deltas []api.StreamDelta, done bool, err error)
}

var (
	mu     sync.RWMutex
	codecs = make(map[provider.Dialect]Codec)
)

// Register installs a codec for a dialect tag. Called from codec package
// init; duplicate registration is a programmer error.
func Register(tag provider.Dialect, c Codec) {
	mu.Lock()
	defer mu.Unlock()
	if _, exists := codecs[tag]; exists {
		panic(fmt.Sprintf("dialect codec %q already registered", tag))
	}
	codecs[tag] = c
}

// Get resolves the codec for a dialect tag.
func Get(tag provider.Dialect) (Codec, error) {
	mu.RLock()
	defer mu.RUnlock()
	c, ok := codecs[tag]
	if !ok {
		return nil, fmt.Errorf("no codec registered for dialect %q", tag)
	}
	return c, nil
}
