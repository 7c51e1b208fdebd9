// Command benchmark load-tests the proxy against a local mock upstream, so
// numbers measure our overhead rather than a vendor's latency.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"net/http"
	"time"

	vegeta "github.com/tsenart/vegeta/v12/lib"

	"github.com/parley-llm/parley/internal/platform/logger"
	"github.com/parley-llm/parley/internal/server"
	"github.com/parley-llm/parley/pkg/client"
	"github.com/parley-llm/parley/pkg/keys"
	"github.com/parley-llm/parley/pkg/provider"
)

const (
	mockAddr  = "127.0.0.1:9091"
	proxyAddr = "127.0.0.1:8081"
)

var (
	unaryResp = []byte(`{"id":"bench-1","model":"gpt-4o-mini","choices":[{"index":0,"message":{"role":"assistant","content":"Hello from the bench."},"finish_reason":"stop"}],"usage":{"prompt_tokens":5,"completion_tokens":5,"total_tokens":10}}`)

	streamChunks = []string{
		`data: {"choices":[{"index":0,"delta":{"role":"assistant","content":"Bench"}}]}`,
		`data: {"choices":[{"index":0,"delta":{"content":"mark"}}]}`,
		`data: {"choices":[{"index":0,"delta":{"content":" response"},"finish_reason":"stop"}]}`,
		`data: [DONE]`,
	}
)

func main() {
	duration := flag.Duration("duration", 10*time.Second, "duration of the attack")
	rate := flag.Int("rate", 50, "requests per second")
	stream := flag.Bool("stream", false, "use streaming requests")
	flag.Parse()

	go startMockUpstream()
	go startProxy()
	waitForReady("http://" + proxyAddr + "/healthz")

	body := `{"model":"openai/gpt-4o-mini","messages":[{"role":"user","content":"Hello"}]}`
	mode := "unary"
	if *stream {
		body = `{"model":"openai/gpt-4o-mini","stream":true,"messages":[{"role":"user","content":"Hello"}]}`
		mode = "streaming"
	}

	fmt.Printf("running %s benchmark: %s at %d req/s\n", mode, *duration, *rate)

	targeter := vegeta.NewStaticTargeter(vegeta.Target{
		Method: "POST",
		URL:    "http://" + proxyAddr + "/v1/chat/completions",
		Body:   []byte(body),
		Header: http.Header{"Content-Type": []string{"application/json"}},
	})

	attacker := vegeta.NewAttacker()
	var metrics vegeta.Metrics
	pace := vegeta.Rate{Freq: *rate, Per: time.Second}
	for res := range attacker.Attack(targeter, pace, *duration, "parley-bench") {
		metrics.Add(res)
	}
	metrics.Close()

	fmt.Printf("requests:  %d\n", metrics.Requests)
	fmt.Printf("success:   %.2f%%\n", metrics.Success*100)
	fmt.Printf("p50:       %s\n", metrics.Latencies.P50)
	fmt.Printf("p99:       %s\n", metrics.Latencies.P99)
	fmt.Printf("max:       %s\n", metrics.Latencies.Max)
	fmt.Printf("throughput: %.2f req/s\n", metrics.Throughput)
}

func startMockUpstream() {
	mux := http.NewServeMux()
	mux.HandleFunc("/chat/completions", func(w http.ResponseWriter, r *http.Request) {
		var probe struct {
			Stream bool `json:"stream"`
		}
		_ = jsonDecode(r, &probe)

		if probe.Stream {
			w.Header().Set("Content-Type", "text/event-stream")
			flusher := w.(http.Flusher)
			for _, chunk := range streamChunks {
				fmt.Fprintf(w, "%s\n\n", chunk)
				flusher.Flush()
			}
			return
		}

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write(unaryResp)
	})

	if err := http.ListenAndServe(mockAddr, mux); err != nil {
		log.Fatalf("mock upstream failed: %v", err)
	}
}

func startProxy() {
	store, err := keys.Load(keys.Static(map[provider.Provider]string{
		provider.OpenAI: "bench-key",
	}))
	if err != nil {
		log.Fatalf("keys: %v", err)
	}

	c := client.New(store, client.WithBaseURL(provider.OpenAI, "http://"+mockAddr))
	engine := server.NewRouter(c, logger.Get(), "production")

	if err := engine.Run(proxyAddr); err != nil {
		log.Fatalf("proxy failed: %v", err)
	}
}

func waitForReady(url string) {
	for i := 0; i < 100; i++ {
		resp, err := http.Get(url)
		if err == nil {
			_ = resp.Body.Close()
			if resp.StatusCode == http.StatusOK {
				return
			}
		}
		time.Sleep(100 * time.Millisecond)
	}
	log.Fatal("proxy never became ready")
}

func jsonDecode(r *http.Request, v any) error {
	defer func() {
		_ = r.Body.Close()
	}()
	return json.NewDecoder(r.Body).Decode(v)
}
