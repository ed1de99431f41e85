package main

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

func TestWSURLForSpeech(t *testing.T) {
	cases := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{in: "http://127.0.0.1:8080", want: "ws://127.0.0.1:8080/v1/audio/speech/ws"},
		{in: "https://tts.example.com/gw/", want: "wss://tts.example.com/gw/v1/audio/speech/ws"},
		{in: "ftp://example.com", wantErr: true},
		{in: "http://", wantErr: true},
	}
	for _, tc := range cases {
		got, err := wsURLForSpeech(tc.in)
		if tc.wantErr {
			if err == nil {
				t.Fatalf("wsURLForSpeech(%q) error = nil", tc.in)
			}
			continue
		}
		if err != nil || got != tc.want {
			t.Fatalf("wsURLForSpeech(%q) = %q, %v; want %q", tc.in, got, err, tc.want)
		}
	}
}

func TestPercentile(t *testing.T) {
	values := []time.Duration{40, 10, 30, 20}
	if got := percentile(values, 0.5); got != 20 {
		t.Fatalf("p50 = %v, want 20", got)
	}
	if got := percentile(values, 0.95); got != 40 {
		t.Fatalf("p95 = %v, want 40", got)
	}
	if got := percentile(nil, 0.5); got != 0 {
		t.Fatalf("p50(nil) = %v, want 0", got)
	}
	if values[0] != 40 {
		t.Fatalf("percentile mutated its input")
	}
}

func TestParseFlagsValidates(t *testing.T) {
	if _, err := parseFlags([]string{"-runs", "0"}); err == nil {
		t.Fatalf("parseFlags(runs=0) error = nil")
	}
	if _, err := parseFlags([]string{"-text", "  "}); err == nil {
		t.Fatalf("parseFlags(blank text) error = nil")
	}
	cfg, err := parseFlags([]string{"-base-url", "http://host:9000/", "-ws"})
	if err != nil {
		t.Fatalf("parseFlags() error = %v", err)
	}
	if cfg.baseURL != "http://host:9000" || !cfg.ws {
		t.Fatalf("parseFlags() = %+v", cfg)
	}
}

func TestRunHTTPMeasuresStream(t *testing.T) {
	var got benchRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/audio/speech" || r.Header.Get("Authorization") != "Bearer k" {
			http.Error(w, "bad request", http.StatusBadRequest)
			return
		}
		_ = json.NewDecoder(r.Body).Decode(&got)
		w.Header().Set("Content-Type", "audio/mpeg")
		_, _ = w.Write([]byte("abc"))
		w.(http.Flusher).Flush()
		_, _ = w.Write([]byte("defg"))
	}))
	defer srv.Close()

	cfg := options{baseURL: srv.URL, apiKey: "k"}
	body := benchRequest{Stream: true, ChunkSize: 50}
	body.Input = "hello"
	s, err := runHTTP(context.Background(), srv.Client(), cfg, body)
	if err != nil {
		t.Fatalf("runHTTP() error = %v", err)
	}
	if s.bytes != 7 || s.firstByte <= 0 || s.total < s.firstByte {
		t.Fatalf("sample = %+v", s)
	}
	if got.Input != "hello" || !got.Stream || got.ChunkSize != 50 {
		t.Fatalf("server saw %+v", got)
	}
}

func TestRunHTTPReportsErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":{"message":"input is required"}}`, http.StatusBadRequest)
	}))
	defer srv.Close()

	_, err := runHTTP(context.Background(), srv.Client(), options{baseURL: srv.URL}, benchRequest{})
	if err == nil || !strings.Contains(err.Error(), "status 400") {
		t.Fatalf("runHTTP() error = %v, want status 400", err)
	}
}

func TestRunWSCountsBinaryFrames(t *testing.T) {
	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		var req benchRequest
		if err := conn.ReadJSON(&req); err != nil {
			return
		}
		_ = conn.WriteMessage(websocket.BinaryMessage, []byte("12"))
		_ = conn.WriteMessage(websocket.BinaryMessage, []byte("345"))
		_ = conn.WriteJSON(map[string]string{"type": "speech_done"})
		_ = conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, "done"), time.Now().Add(time.Second))
	}))
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	s, err := runWS(ctx, options{baseURL: srv.URL}, benchRequest{})
	if err != nil {
		t.Fatalf("runWS() error = %v", err)
	}
	if s.bytes != 5 {
		t.Fatalf("bytes = %d, want 5", s.bytes)
	}
}

func TestSummarize(t *testing.T) {
	out := summarize([]sample{
		{firstByte: 100 * time.Millisecond, total: 400 * time.Millisecond, bytes: 10},
		{firstByte: 200 * time.Millisecond, total: 600 * time.Millisecond, bytes: 30},
	})
	for _, want := range []string{"runs=2", "first_byte_p50_ms=100", "total_p95_ms=600", "avg_bytes=20"} {
		if !strings.Contains(out, want) {
			t.Fatalf("summarize() = %q, missing %q", out, want)
		}
	}
	if summarize(nil) != "speechbench: no samples" {
		t.Fatalf("summarize(nil) = %q", summarize(nil))
	}
}
