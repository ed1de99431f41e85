package voice

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/ent0n29/speechgate/internal/credential"
	"github.com/ent0n29/speechgate/internal/observability"
	"github.com/ent0n29/speechgate/internal/reliability"
)

const edgeProvider = "edge"

// CredentialSource hands out the current backend credential.
type CredentialSource interface {
	Acquire(ctx context.Context) (credential.Credential, error)
}

type EdgeConfig struct {
	// EndpointOverride replaces the region-derived synthesis URL when set.
	EndpointOverride string
	UserAgent        string
	HTTPTimeout      time.Duration
}

// EdgeSynthesizer calls the cognitive-services read-aloud endpoint once per chunk.
type EdgeSynthesizer struct {
	cfg     EdgeConfig
	creds   CredentialSource
	client  *http.Client
	metrics *observability.Metrics
}

func NewEdgeSynthesizer(creds CredentialSource, cfg EdgeConfig, metrics *observability.Metrics) *EdgeSynthesizer {
	if strings.TrimSpace(cfg.UserAgent) == "" {
		cfg.UserAgent = "okhttp/4.5.0"
	}
	if cfg.HTTPTimeout <= 0 {
		cfg.HTTPTimeout = 60 * time.Second
	}
	return &EdgeSynthesizer{
		cfg:     cfg,
		creds:   creds,
		client:  &http.Client{Timeout: cfg.HTTPTimeout},
		metrics: metrics,
	}
}

func (s *EdgeSynthesizer) Synthesize(ctx context.Context, chunk Chunk, params Params) ([]byte, error) {
	if strings.TrimSpace(params.Voice) == "" {
		return nil, fmt.Errorf("voice is required")
	}
	if strings.TrimSpace(params.OutputFormat) == "" {
		return nil, fmt.Errorf("output format is required")
	}

	cred, err := s.creds.Acquire(ctx)
	if err != nil {
		return nil, fmt.Errorf("acquire credential: %w", err)
	}
	endpoint := strings.TrimSpace(s.cfg.EndpointOverride)
	if endpoint == "" {
		endpoint = cred.Endpoint()
	}

	payload := BuildSSML(chunk.Text, params)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+cred.Token)
	req.Header.Set("Content-Type", "application/ssml+xml")
	req.Header.Set("X-Microsoft-OutputFormat", params.OutputFormat)
	req.Header.Set("User-Agent", s.cfg.UserAgent)

	res, err := s.client.Do(req)
	if err != nil {
		s.metrics.ObserveProviderError(edgeProvider, "transport")
		return nil, fmt.Errorf("chunk %d: send request: %w", chunk.Index, err)
	}
	defer res.Body.Close()

	if res.StatusCode < 200 || res.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(res.Body, 4<<10))
		s.metrics.ObserveProviderError(edgeProvider, reliability.HTTPStatusCode(res.StatusCode))
		return nil, &SynthesisError{
			Provider:   edgeProvider,
			ChunkIndex: chunk.Index,
			Status:     res.StatusCode,
			Body:       string(body),
			Retryable:  reliability.IsRetryableHTTPStatus(res.StatusCode),
		}
	}

	audio, err := io.ReadAll(res.Body)
	if err != nil {
		s.metrics.ObserveProviderError(edgeProvider, "read_body")
		return nil, fmt.Errorf("chunk %d: read audio: %w", chunk.Index, err)
	}
	return audio, nil
}
