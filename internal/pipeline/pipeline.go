package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ent0n29/speechgate/internal/observability"
	"github.com/ent0n29/speechgate/internal/voice"
	"golang.org/x/sync/errgroup"
)

var ErrInvalidLimit = errors.New("concurrency limit must be positive")

// Sink receives the audio of each completed batch, in chunk order.
type Sink interface {
	WriteBatch(ctx context.Context, audio [][]byte) error
}

// StreamingSink is a Sink backed by an open output channel. Abort marks the
// stream as truncated; Close releases it and is always called exactly once.
type StreamingSink interface {
	Sink
	Abort(err error)
	Close() error
}

// Runner drives chunks through a synthesizer in bounded, sequential batches.
type Runner struct {
	synth   voice.Synthesizer
	metrics *observability.Metrics
	now     func() time.Time
}

func New(synth voice.Synthesizer, metrics *observability.Metrics) *Runner {
	return &Runner{synth: synth, metrics: metrics, now: time.Now}
}

// Run partitions chunks into batches of at most limit, synthesizes each batch
// concurrently and hands results to sink before starting the next batch.
// The first failure stops the run; later batches are never dispatched.
func (r *Runner) Run(ctx context.Context, chunks []voice.Chunk, params voice.Params, limit int, sink Sink) error {
	if limit <= 0 {
		return ErrInvalidLimit
	}
	started := r.now()
	firstAudio := false

	for n, lo := 0, 0; lo < len(chunks); n, lo = n+1, lo+limit {
		if err := ctx.Err(); err != nil {
			return err
		}
		hi := min(lo+limit, len(chunks))

		batchStart := r.now()
		audio, err := r.runBatch(ctx, chunks[lo:hi], params)
		r.metrics.ObserveBatch(r.now().Sub(batchStart))
		if err != nil {
			return fmt.Errorf("batch %d: %w", n, err)
		}

		if err := sink.WriteBatch(ctx, audio); err != nil {
			return fmt.Errorf("batch %d: write: %w", n, err)
		}
		if !firstAudio {
			firstAudio = true
			r.metrics.ObserveFirstAudioLatency(r.now().Sub(started))
		}
	}
	return nil
}

// Stream runs the pipeline into a streaming sink. Any failure, including
// cancellation, aborts the sink; the sink is closed on every path.
func (r *Runner) Stream(ctx context.Context, chunks []voice.Chunk, params voice.Params, limit int, sink StreamingSink) (err error) {
	defer func() {
		if err != nil {
			sink.Abort(err)
		}
		if closeErr := sink.Close(); err == nil && closeErr != nil {
			err = fmt.Errorf("close stream: %w", closeErr)
		}
	}()
	return r.Run(ctx, chunks, params, limit, sink)
}

// Collect runs the pipeline into a buffer and returns the concatenated audio.
// Nothing is returned on failure.
func (r *Runner) Collect(ctx context.Context, chunks []voice.Chunk, params voice.Params, limit int) ([]byte, error) {
	var sink BufferedSink
	if err := r.Run(ctx, chunks, params, limit, &sink); err != nil {
		return nil, err
	}
	return sink.Bytes(), nil
}

// runBatch synthesizes every chunk of one batch concurrently. Results are
// stored by position so completion order never affects output order.
func (r *Runner) runBatch(ctx context.Context, batch []voice.Chunk, params voice.Params) ([][]byte, error) {
	results := make([][]byte, len(batch))
	g, gctx := errgroup.WithContext(ctx)
	for i, chunk := range batch {
		g.Go(func() error {
			r.metrics.SynthesisStarted()
			start := r.now()
			audio, err := r.synth.Synthesize(gctx, chunk, params)
			result := "ok"
			if err != nil {
				result = "error"
			}
			r.metrics.SynthesisFinished(result, r.now().Sub(start))
			if err != nil {
				return err
			}
			results[i] = audio
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}
