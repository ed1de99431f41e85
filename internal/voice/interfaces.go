package voice

import (
	"context"
	"fmt"
	"math"
	"strings"
)

// Chunk is one ordinally indexed unit of text scheduled for a single backend call.
type Chunk struct {
	Index int
	Text  string
}

// Params carries the voice and prosody settings shared by every chunk of a request.
type Params struct {
	Voice        string
	RatePercent  int
	PitchPercent int
	Style        string
	// OutputFormat is the backend's output format identifier.
	OutputFormat string
}

// Synthesizer turns one chunk into audio bytes with a single backend call.
type Synthesizer interface {
	Synthesize(ctx context.Context, chunk Chunk, params Params) ([]byte, error)
}

// SynthesisError reports a non-success response from the synthesis backend.
type SynthesisError struct {
	Provider   string
	ChunkIndex int
	Status     int
	Body       string
	Retryable  bool
}

func (e *SynthesisError) Error() string {
	body := strings.TrimSpace(e.Body)
	if body == "" {
		return fmt.Sprintf("%s: chunk %d: synthesis http status %d", e.Provider, e.ChunkIndex, e.Status)
	}
	return fmt.Sprintf("%s: chunk %d: synthesis http status %d: %s", e.Provider, e.ChunkIndex, e.Status, body)
}

// PercentOffset converts a multiplier around 1.0 into a signed percentage offset.
// Zero means unset and maps to no offset.
func PercentOffset(v float64) int {
	if v == 0 || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return int(math.Round((v - 1) * 100))
}
