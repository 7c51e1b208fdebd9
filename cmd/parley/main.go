// Command parley is a small CLI over the library: one-shot chat, streaming
// chat, and text-to-speech.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/parley-llm/parley/internal/platform/logger"
	"github.com/parley-llm/parley/internal/version"
	"github.com/parley-llm/parley/pkg/api"
	"github.com/parley-llm/parley/pkg/client"
	"github.com/parley-llm/parley/pkg/keys"
	"github.com/parley-llm/parley/pkg/provider"
	"github.com/parley-llm/parley/pkg/speech"
)

func main() {
	providerName := flag.String("provider", "openai", "provider to call")
	model := flag.String("model", "", "model identifier (provider-specific)")
	system := flag.String("system", "", "optional system prompt")
	stream := flag.Bool("stream", false, "stream the completion")
	tts := flag.Bool("tts", false, "synthesize speech instead of chatting")
	voice := flag.String("voice", "", "voice for -tts")
	out := flag.String("out", "speech.mp3", "output file for -tts")
	timeout := flag.Duration("timeout", 2*time.Minute, "request timeout")
	flag.Parse()

	version.CheckForUpdates()

	p, ok := provider.Parse(*providerName)
	if !ok {
		fatalf("unknown provider %q", *providerName)
	}
	if *model == "" {
		fatalf("-model is required")
	}

	prompt := strings.Join(flag.Args(), " ")
	if prompt == "" {
		data, err := io.ReadAll(os.Stdin)
		if err != nil {
			fatalf("read stdin: %v", err)
		}
		prompt = strings.TrimSpace(string(data))
	}
	if prompt == "" {
		fatalf("no prompt given (arguments or stdin)")
	}

	store, err := keys.Load(keys.FromEnv(), keys.FromDotenv(".env"))
	if err != nil {
		fatalf("load keys: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	if *tts {
		runTTS(ctx, store, p, *model, *voice, *out, prompt)
		return
	}

	var messages []api.Message
	if *system != "" {
		messages = append(messages, api.Message{Role: api.RoleSystem, Content: *system})
	}
	messages = append(messages, api.Message{Role: api.RoleUser, Content: prompt})

	req := &api.ChatRequest{Model: *model, Messages: messages}
	c := client.New(store)

	if *stream {
		runStream(ctx, c, p, req)
		return
	}

	resp, err := c.Chat(ctx, p, req)
	if err != nil {
		fatalf("%v", err)
	}
	fmt.Println(resp.Choices[0].Message.Content)
}

func runStream(ctx context.Context, c *client.Client, p provider.Provider, req *api.ChatRequest) {
	s, err := c.Stream(ctx, p, req)
	if err != nil {
		fatalf("%v", err)
	}
	defer func() {
		_ = s.Close()
	}()

	for {
		delta, err := s.Recv()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			fatalf("stream: %v", err)
		}
		fmt.Print(delta.Content)
		if delta.Final {
			break
		}
	}
	fmt.Println()
}

func runTTS(ctx context.Context, store *keys.Store, p provider.Provider, model, voice, out, text string) {
	synth := speech.New(store)
	sp, err := synth.Synthesize(ctx, p, model, text, speech.Config{Voice: voice})
	if err != nil {
		fatalf("%v", err)
	}
	if err := os.WriteFile(out, sp.Audio, 0o644); err != nil {
		fatalf("write %s: %v", out, err)
	}
	fmt.Printf("wrote %d bytes of %s audio to %s\n", len(sp.Audio), sp.Format, out)
}

func fatalf(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "parley: "+format+"\n", args...)
	logger.Sync()
	os.Exit(1)
}
