package credential

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/singleflight"

	"github.com/ent0n29/speechgate/internal/observability"
)

// ErrNoCredential is returned when a refresh fails and nothing is cached to fall back on.
var ErrNoCredential = errors.New("no usable backend credential")

// Credential is a time-bounded backend bearer token and the region it is valid against.
type Credential struct {
	Region    string
	Token     string
	ExpiresAt time.Time
}

// Endpoint returns the synthesis URL for the credential's region.
func (c Credential) Endpoint() string {
	return fmt.Sprintf("https://%s.tts.speech.microsoft.com/cognitiveservices/v1", c.Region)
}

// Exchanger performs one network exchange with the backend identity service.
type Exchanger interface {
	Exchange(ctx context.Context) (Credential, error)
}

// Status describes the cached credential without exposing the token.
type Status struct {
	Cached    bool      `json:"cached"`
	Region    string    `json:"region,omitempty"`
	ExpiresAt time.Time `json:"expires_at,omitempty"`
	Fresh     bool      `json:"fresh"`
}

// Manager caches the backend credential for the process lifetime and refreshes it
// ahead of expiry. Concurrent callers share a single in-flight refresh.
type Manager struct {
	exchanger Exchanger
	margin    time.Duration
	metrics   *observability.Metrics
	now       func() time.Time

	mu     sync.RWMutex
	cached *Credential

	flight singleflight.Group
}

func NewManager(exchanger Exchanger, refreshMargin time.Duration, metrics *observability.Metrics) *Manager {
	if refreshMargin < 0 {
		refreshMargin = 0
	}
	return &Manager{
		exchanger: exchanger,
		margin:    refreshMargin,
		metrics:   metrics,
		now:       time.Now,
	}
}

// Acquire returns the cached credential while it is outside the refresh margin,
// otherwise refreshes it. When the refresh fails, a previously cached credential
// is returned even if expired; the backend may still honour it.
func (m *Manager) Acquire(ctx context.Context) (Credential, error) {
	if c, ok := m.fresh(); ok {
		return c, nil
	}

	// The refresh outlives any single caller: others may be waiting on it.
	refreshCtx := context.WithoutCancel(ctx)
	ch := m.flight.DoChan("refresh", func() (any, error) {
		if c, ok := m.fresh(); ok {
			return c, nil
		}
		return m.refresh(refreshCtx)
	})
	select {
	case <-ctx.Done():
		return Credential{}, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return Credential{}, res.Err
		}
		return res.Val.(Credential), nil
	}
}

// Status reports the cached credential's region and expiry.
func (m *Manager) Status() Status {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.cached == nil {
		return Status{}
	}
	return Status{
		Cached:    true,
		Region:    m.cached.Region,
		ExpiresAt: m.cached.ExpiresAt,
		Fresh:     m.now().Before(m.cached.ExpiresAt.Add(-m.margin)),
	}
}

func (m *Manager) fresh() (Credential, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.cached == nil {
		return Credential{}, false
	}
	if !m.now().Before(m.cached.ExpiresAt.Add(-m.margin)) {
		return Credential{}, false
	}
	return *m.cached, true
}

func (m *Manager) refresh(ctx context.Context) (Credential, error) {
	start := time.Now()
	next, err := m.exchanger.Exchange(ctx)
	if err == nil {
		err = validate(next)
	}
	if err == nil {
		m.mu.Lock()
		m.cached = &next
		m.mu.Unlock()
		m.metrics.ObserveCredentialRefresh("ok", time.Since(start))
		log.Debug().
			Str("region", next.Region).
			Time("expires_at", next.ExpiresAt).
			Msg("backend credential refreshed")
		return next, nil
	}

	m.mu.RLock()
	stale := m.cached
	m.mu.RUnlock()
	if stale != nil {
		m.metrics.ObserveCredentialRefresh("stale_fallback", time.Since(start))
		log.Warn().
			Err(err).
			Bool("stale_credential", true).
			Str("region", stale.Region).
			Time("expires_at", stale.ExpiresAt).
			Msg("credential refresh failed, continuing with cached credential")
		return *stale, nil
	}

	m.metrics.ObserveCredentialRefresh("failed", time.Since(start))
	log.Error().Err(err).Msg("credential refresh failed with nothing cached")
	return Credential{}, fmt.Errorf("%w: %w", ErrNoCredential, err)
}

func validate(c Credential) error {
	if strings.TrimSpace(c.Token) == "" {
		return errors.New("identity service returned an empty token")
	}
	if strings.TrimSpace(c.Region) == "" {
		return errors.New("identity service returned an empty region")
	}
	if c.ExpiresAt.IsZero() {
		return errors.New("credential has no expiry")
	}
	return nil
}
