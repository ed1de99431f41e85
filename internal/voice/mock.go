package voice

import (
	"context"
	"time"
)

// MockSynthesizer is an offline backend that echoes chunk text as audio bytes.
// Used when VOICE_PROVIDER=mock and in tests.
type MockSynthesizer struct {
	// Delay, when set, is waited per chunk and honors cancellation.
	Delay time.Duration
}

func NewMockSynthesizer() *MockSynthesizer { return &MockSynthesizer{} }

func (m *MockSynthesizer) Synthesize(ctx context.Context, chunk Chunk, _ Params) ([]byte, error) {
	if m.Delay > 0 {
		timer := time.NewTimer(m.Delay)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-timer.C:
		}
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return []byte(chunk.Text), nil
}
