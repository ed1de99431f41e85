package voice

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/ent0n29/speechgate/internal/credential"
	"github.com/ent0n29/speechgate/internal/observability"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

type staticCredentials struct {
	cred credential.Credential
	err  error
}

func (s staticCredentials) Acquire(context.Context) (credential.Credential, error) {
	return s.cred, s.err
}

func testCredential() credential.Credential {
	return credential.Credential{Region: "eastasia", Token: "tok-123", ExpiresAt: time.Now().Add(time.Hour)}
}

func TestEdgeSynthesizerSendsSSML(t *testing.T) {
	var gotBody string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer tok-123" {
			t.Errorf("Authorization = %q", got)
		}
		if got := r.Header.Get("Content-Type"); got != "application/ssml+xml" {
			t.Errorf("Content-Type = %q", got)
		}
		if got := r.Header.Get("X-Microsoft-OutputFormat"); got != "audio-24khz-48kbitrate-mono-mp3" {
			t.Errorf("X-Microsoft-OutputFormat = %q", got)
		}
		if got := r.Header.Get("User-Agent"); got != "speechgate-test" {
			t.Errorf("User-Agent = %q", got)
		}
		body, _ := io.ReadAll(r.Body)
		gotBody = string(body)
		_, _ = w.Write([]byte("AUDIO"))
	}))
	defer srv.Close()

	s := NewEdgeSynthesizer(staticCredentials{cred: testCredential()}, EdgeConfig{
		EndpointOverride: srv.URL,
		UserAgent:        "speechgate-test",
	}, nil)

	audio, err := s.Synthesize(context.Background(), Chunk{Index: 0, Text: "hello"}, Params{
		Voice:        "zh-CN-XiaoxiaoNeural",
		OutputFormat: "audio-24khz-48kbitrate-mono-mp3",
	})
	if err != nil {
		t.Fatalf("Synthesize() error = %v", err)
	}
	if string(audio) != "AUDIO" {
		t.Fatalf("Synthesize() audio = %q", audio)
	}
	if !strings.Contains(gotBody, `<voice name="zh-CN-XiaoxiaoNeural">`) || !strings.Contains(gotBody, ">hello<") {
		t.Fatalf("request body = %s", gotBody)
	}
}

func TestEdgeSynthesizerReportsStatusError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "slow down", http.StatusTooManyRequests)
	}))
	defer srv.Close()

	metrics := observability.NewMetrics("test_edge")
	s := NewEdgeSynthesizer(staticCredentials{cred: testCredential()}, EdgeConfig{EndpointOverride: srv.URL}, metrics)

	_, err := s.Synthesize(context.Background(), Chunk{Index: 4, Text: "x"}, Params{Voice: "v", OutputFormat: "f"})
	var synthErr *SynthesisError
	if !errors.As(err, &synthErr) {
		t.Fatalf("Synthesize() error = %v, want *SynthesisError", err)
	}
	if synthErr.Status != http.StatusTooManyRequests || synthErr.ChunkIndex != 4 || !synthErr.Retryable {
		t.Fatalf("SynthesisError = %+v", synthErr)
	}
	if got := testutil.ToFloat64(metrics.ProviderErrors.WithLabelValues("edge", "rate_limited")); got != 1 {
		t.Fatalf("provider errors = %v, want 1", got)
	}
}

func TestEdgeSynthesizerCredentialFailure(t *testing.T) {
	s := NewEdgeSynthesizer(staticCredentials{err: credential.ErrNoCredential}, EdgeConfig{EndpointOverride: "http://127.0.0.1:1"}, nil)
	_, err := s.Synthesize(context.Background(), Chunk{Text: "x"}, Params{Voice: "v", OutputFormat: "f"})
	if !errors.Is(err, credential.ErrNoCredential) {
		t.Fatalf("Synthesize() error = %v, want ErrNoCredential", err)
	}
}

func TestEdgeSynthesizerRequiresVoiceAndFormat(t *testing.T) {
	s := NewEdgeSynthesizer(staticCredentials{cred: testCredential()}, EdgeConfig{}, nil)
	if _, err := s.Synthesize(context.Background(), Chunk{Text: "x"}, Params{OutputFormat: "f"}); err == nil {
		t.Fatalf("Synthesize() without voice error = nil")
	}
	if _, err := s.Synthesize(context.Background(), Chunk{Text: "x"}, Params{Voice: "v"}); err == nil {
		t.Fatalf("Synthesize() without format error = nil")
	}
}
