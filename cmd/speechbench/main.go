package main

import (
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sashabaranov/go-openai"
)

type options struct {
	baseURL     string
	apiKey      string
	text        string
	voice       string
	model       string
	format      string
	runs        int
	concurrency int
	chunkSize   int
	stream      bool
	ws          bool
	timeout     time.Duration
	verbose     bool
}

// benchRequest mirrors the gateway's speech body.
type benchRequest struct {
	openai.CreateSpeechRequest
	Stream      bool `json:"stream,omitempty"`
	Concurrency int  `json:"concurrency,omitempty"`
	ChunkSize   int  `json:"chunk_size,omitempty"`
}

type wsControl struct {
	Type  string `json:"type"`
	Error *struct {
		Message string `json:"message"`
		Code    string `json:"code"`
	} `json:"error,omitempty"`
}

type sample struct {
	firstByte time.Duration
	total     time.Duration
	bytes     int
}

const defaultText = "The gateway splits long input into chunks. Each batch is synthesized concurrently. " +
	"Audio is returned in order, either buffered or streamed. This sentence exists to make a third chunk likely."

func main() {
	cfg, err := parseFlags(os.Args[1:])
	if err != nil {
		fmt.Fprintf(os.Stderr, "speechbench: %v\n", err)
		os.Exit(2)
	}
	if err := run(cfg); err != nil {
		fmt.Fprintf(os.Stderr, "speechbench: %v\n", err)
		os.Exit(1)
	}
}

func parseFlags(args []string) (options, error) {
	var cfg options
	var textFile string
	fs := flag.NewFlagSet("speechbench", flag.ContinueOnError)
	fs.StringVar(&cfg.baseURL, "base-url", "http://127.0.0.1:8080", "speechgate base URL")
	fs.StringVar(&cfg.apiKey, "api-key", os.Getenv("API_KEY"), "bearer key, when the gateway requires one")
	fs.StringVar(&cfg.text, "text", defaultText, "input text")
	fs.StringVar(&textFile, "text-file", "", "read input text from a file instead of -text")
	fs.StringVar(&cfg.voice, "voice", "", "voice name or OpenAI alias")
	fs.StringVar(&cfg.model, "model", "tts-1", "model id")
	fs.StringVar(&cfg.format, "format", "mp3", "response_format (mp3|wav|pcm)")
	fs.IntVar(&cfg.runs, "runs", 5, "number of sequential requests")
	fs.IntVar(&cfg.concurrency, "concurrency", 0, "per-request batch size (0 = server default)")
	fs.IntVar(&cfg.chunkSize, "chunk-size", 0, "max chunk length (0 = server default)")
	fs.BoolVar(&cfg.stream, "stream", true, "request a streamed HTTP response")
	fs.BoolVar(&cfg.ws, "ws", false, "use the websocket endpoint")
	fs.DurationVar(&cfg.timeout, "timeout", 2*time.Minute, "per-request timeout")
	fs.BoolVar(&cfg.verbose, "verbose", true, "print per-run results")
	if err := fs.Parse(args); err != nil {
		return options{}, err
	}

	if textFile != "" {
		raw, err := os.ReadFile(textFile)
		if err != nil {
			return options{}, fmt.Errorf("read text-file: %w", err)
		}
		cfg.text = string(raw)
	}
	cfg.baseURL = strings.TrimRight(strings.TrimSpace(cfg.baseURL), "/")
	if cfg.baseURL == "" {
		return options{}, fmt.Errorf("base-url is required")
	}
	if strings.TrimSpace(cfg.text) == "" {
		return options{}, fmt.Errorf("text is required")
	}
	if cfg.runs <= 0 {
		return options{}, fmt.Errorf("runs must be > 0")
	}
	if cfg.concurrency < 0 || cfg.chunkSize < 0 {
		return options{}, fmt.Errorf("concurrency and chunk-size must be >= 0")
	}
	return cfg, nil
}

func run(cfg options) error {
	client := &http.Client{Timeout: cfg.timeout}
	body := benchRequest{
		CreateSpeechRequest: openai.CreateSpeechRequest{
			Model:          openai.SpeechModel(cfg.model),
			Input:          cfg.text,
			Voice:          openai.SpeechVoice(cfg.voice),
			ResponseFormat: openai.SpeechResponseFormat(cfg.format),
		},
		Stream:      cfg.stream && !cfg.ws,
		Concurrency: cfg.concurrency,
		ChunkSize:   cfg.chunkSize,
	}

	mode := "buffered"
	switch {
	case cfg.ws:
		mode = "ws"
	case cfg.stream:
		mode = "stream"
	}
	if cfg.verbose {
		fmt.Printf("speechbench: mode=%s runs=%d chars=%d\n", mode, cfg.runs, len([]rune(cfg.text)))
	}

	samples := make([]sample, 0, cfg.runs)
	for i := 0; i < cfg.runs; i++ {
		ctx, cancel := context.WithTimeout(context.Background(), cfg.timeout)
		var s sample
		var err error
		if cfg.ws {
			s, err = runWS(ctx, cfg, body)
		} else {
			s, err = runHTTP(ctx, client, cfg, body)
		}
		cancel()
		if err != nil {
			return fmt.Errorf("run %d: %w", i+1, err)
		}
		samples = append(samples, s)
		if cfg.verbose {
			fmt.Printf("speechbench: run %d/%d first_byte_ms=%d total_ms=%d bytes=%d\n",
				i+1, cfg.runs, s.firstByte.Milliseconds(), s.total.Milliseconds(), s.bytes)
		}
	}

	fmt.Println(summarize(samples))
	return nil
}

func runHTTP(ctx context.Context, client *http.Client, cfg options, body benchRequest) (sample, error) {
	raw, err := json.Marshal(body)
	if err != nil {
		return sample{}, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, cfg.baseURL+"/v1/audio/speech", bytes.NewReader(raw))
	if err != nil {
		return sample{}, err
	}
	req.Header.Set("Content-Type", "application/json")
	if cfg.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+cfg.apiKey)
	}

	start := time.Now()
	res, err := client.Do(req)
	if err != nil {
		return sample{}, err
	}
	defer res.Body.Close()
	if res.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(res.Body, 4<<10))
		return sample{}, fmt.Errorf("status %d: %s", res.StatusCode, strings.TrimSpace(string(msg)))
	}

	var s sample
	buf := make([]byte, 32<<10)
	for {
		n, err := res.Body.Read(buf)
		if n > 0 {
			if s.bytes == 0 {
				s.firstByte = time.Since(start)
			}
			s.bytes += n
		}
		if err == io.EOF {
			break
		}
		if err != nil {
			// A truncated stream means the gateway aborted mid-synthesis.
			return sample{}, fmt.Errorf("read body after %d bytes: %w", s.bytes, err)
		}
	}
	s.total = time.Since(start)
	return s, nil
}

func runWS(ctx context.Context, cfg options, body benchRequest) (sample, error) {
	wsURL, err := wsURLForSpeech(cfg.baseURL)
	if err != nil {
		return sample{}, fmt.Errorf("build ws URL: %w", err)
	}
	header := http.Header{}
	if cfg.apiKey != "" {
		header.Set("Authorization", "Bearer "+cfg.apiKey)
	}

	start := time.Now()
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, wsURL, header)
	if err != nil {
		return sample{}, fmt.Errorf("open websocket: %w", err)
	}
	defer conn.Close()
	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetReadDeadline(deadline)
	}
	if err := conn.WriteJSON(body); err != nil {
		return sample{}, fmt.Errorf("send request: %w", err)
	}

	var s sample
	for {
		mt, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsCloseError(err, websocket.CloseNormalClosure) {
				break
			}
			return sample{}, fmt.Errorf("read after %d bytes: %w", s.bytes, err)
		}
		if mt == websocket.BinaryMessage {
			if s.bytes == 0 {
				s.firstByte = time.Since(start)
			}
			s.bytes += len(data)
			continue
		}
		var ctl wsControl
		if err := json.Unmarshal(data, &ctl); err != nil {
			return sample{}, fmt.Errorf("decode control frame: %w", err)
		}
		if ctl.Type == "speech_error" && ctl.Error != nil {
			return sample{}, fmt.Errorf("%s: %s", ctl.Error.Code, ctl.Error.Message)
		}
	}
	s.total = time.Since(start)
	return s, nil
}

func wsURLForSpeech(baseURL string) (string, error) {
	u, err := url.Parse(strings.TrimSpace(baseURL))
	if err != nil {
		return "", err
	}
	switch strings.ToLower(u.Scheme) {
	case "http":
		u.Scheme = "ws"
	case "https":
		u.Scheme = "wss"
	default:
		return "", fmt.Errorf("unsupported base-url scheme %q", u.Scheme)
	}
	if strings.TrimSpace(u.Host) == "" {
		return "", fmt.Errorf("base-url host is required")
	}
	u.Path = strings.TrimRight(u.Path, "/") + "/v1/audio/speech/ws"
	return u.String(), nil
}

func summarize(samples []sample) string {
	if len(samples) == 0 {
		return "speechbench: no samples"
	}
	first := make([]time.Duration, len(samples))
	total := make([]time.Duration, len(samples))
	var totalBytes int
	for i, s := range samples {
		first[i] = s.firstByte
		total[i] = s.total
		totalBytes += s.bytes
	}
	return fmt.Sprintf("speechbench: runs=%d first_byte_p50_ms=%d first_byte_p95_ms=%d total_p50_ms=%d total_p95_ms=%d avg_bytes=%d",
		len(samples),
		percentile(first, 0.50).Milliseconds(),
		percentile(first, 0.95).Milliseconds(),
		percentile(total, 0.50).Milliseconds(),
		percentile(total, 0.95).Milliseconds(),
		totalBytes/len(samples),
	)
}

// percentile uses nearest-rank on a sorted copy.
func percentile(values []time.Duration, q float64) time.Duration {
	if len(values) == 0 {
		return 0
	}
	sorted := append([]time.Duration(nil), values...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })
	idx := int(q*float64(len(sorted))+0.5) - 1
	if idx < 0 {
		idx = 0
	}
	if idx >= len(sorted) {
		idx = len(sorted) - 1
	}
	return sorted[idx]
}
