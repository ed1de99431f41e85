package httpapi

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/sashabaranov/go-openai"

	"github.com/ent0n29/speechgate/internal/audio"
	"github.com/ent0n29/speechgate/internal/credential"
	"github.com/ent0n29/speechgate/internal/pipeline"
	"github.com/ent0n29/speechgate/internal/policy"
	"github.com/ent0n29/speechgate/internal/voice"
)

// speechRequest is the OpenAI speech body plus the gateway's tuning fields.
type speechRequest struct {
	openai.CreateSpeechRequest
	Pitch           float64               `json:"pitch"`
	Style           string                `json:"style"`
	Stream          bool                  `json:"stream"`
	Concurrency     int                   `json:"concurrency"`
	ChunkSize       int                   `json:"chunk_size"`
	CleaningOptions voice.CleaningOptions `json:"cleaning_options"`
}

// newSpeechRequest returns a request pre-filled with defaults that a partial
// JSON body only overrides field by field.
func newSpeechRequest() speechRequest {
	return speechRequest{CleaningOptions: voice.DefaultCleaningOptions()}
}

const inputPreviewRunes = 80

// speechJob is a validated request ready for the pipeline.
type speechJob struct {
	chunks []voice.Chunk
	params voice.Params
	format voice.Format
	limit  int
	stream bool
}

type requestError struct {
	code    string
	message string
}

func (e *requestError) Error() string { return e.message }

func invalid(code, format string, args ...any) *requestError {
	return &requestError{code: code, message: fmt.Sprintf(format, args...)}
}

func (s *Server) prepareSpeech(req speechRequest) (speechJob, *requestError) {
	if strings.TrimSpace(req.Input) == "" {
		return speechJob{}, invalid("missing_input", "input is required")
	}
	if n := utf8.RuneCountInString(req.Input); s.cfg.MaxInputChars > 0 && n > s.cfg.MaxInputChars {
		return speechJob{}, invalid("input_too_long", "input has %d characters, limit is %d", n, s.cfg.MaxInputChars)
	}
	if req.Speed != 0 && (req.Speed < 0.25 || req.Speed > 4.0) {
		return speechJob{}, invalid("invalid_speed", "speed must be between 0.25 and 4.0")
	}
	if req.Pitch != 0 && (req.Pitch < 0.5 || req.Pitch > 2.0) {
		return speechJob{}, invalid("invalid_pitch", "pitch must be between 0.5 and 2.0")
	}

	limit := req.Concurrency
	switch {
	case limit < 0 || limit > s.cfg.MaxConcurrency:
		return speechJob{}, invalid("invalid_concurrency", "concurrency must be between 1 and %d", s.cfg.MaxConcurrency)
	case limit == 0:
		limit = s.cfg.DefaultConcurrency
	}

	chunkSize := req.ChunkSize
	switch {
	case chunkSize < 0:
		return speechJob{}, invalid("invalid_chunk_size", "chunk_size must be positive")
	case chunkSize == 0:
		chunkSize = s.cfg.DefaultChunkSize
	}

	format, err := voice.ResolveFormat(string(req.ResponseFormat), s.cfg.EdgeOutputFormat)
	if err != nil {
		return speechJob{}, invalid("invalid_response_format", "%s", err.Error())
	}

	text := voice.CleanText(req.Input, req.CleaningOptions)
	chunks := voice.Chunks(text, chunkSize)
	s.metrics.ObserveSegmentation(len(chunks))

	return speechJob{
		chunks: chunks,
		params: voice.Params{
			Voice:        voice.ResolveVoice(string(req.Model), string(req.Voice), s.cfg.DefaultVoice),
			RatePercent:  voice.PercentOffset(req.Speed),
			PitchPercent: voice.PercentOffset(req.Pitch),
			Style:        strings.TrimSpace(req.Style),
			OutputFormat: format.BackendFormat,
		},
		format: format,
		limit:  limit,
		stream: req.Stream,
	}, nil
}

func (s *Server) handleSpeech(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	requestID := uuid.NewString()
	w.Header().Set("X-Request-Id", requestID)
	logger := log.With().Str("request_id", requestID).Logger()

	if s.cfg.MaxInputChars > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, int64(s.cfg.MaxInputChars)*4+64<<10)
	}
	req := newSpeechRequest()
	if err := decodeJSON(r, &req); err != nil {
		msg := "invalid JSON body: " + err.Error()
		if errors.Is(err, errEmptyBody) {
			msg = "request body is required"
		}
		s.metrics.ObserveRequest("buffered", "400")
		respondError(w, http.StatusBadRequest, errTypeInvalidRequest, "invalid_json", msg)
		return
	}

	mode := "buffered"
	if req.Stream {
		mode = "stream"
	}
	job, reqErr := s.prepareSpeech(req)
	if reqErr != nil {
		s.metrics.ObserveRequest(mode, "400")
		respondError(w, http.StatusBadRequest, errTypeInvalidRequest, reqErr.code, reqErr.message)
		return
	}

	logger = logger.With().
		Str("mode", mode).
		Str("voice", job.params.Voice).
		Str("format", job.format.Name).
		Int("chunks", len(job.chunks)).
		Int("concurrency", job.limit).
		Logger()
	logger.Debug().Str("input_preview", policy.InputPreview(req.Input, inputPreviewRunes)).Msg("speech request accepted")

	defer func() {
		s.metrics.ObserveRequestTotal(time.Since(start))
	}()
	if job.stream {
		s.streamSpeech(r.Context(), w, job, logger)
		return
	}
	s.bufferSpeech(r.Context(), w, job, logger)
}

func (s *Server) bufferSpeech(ctx context.Context, w http.ResponseWriter, job speechJob, logger zerolog.Logger) {
	payload, err := s.runner.Collect(ctx, job.chunks, job.params, job.limit)
	if err != nil {
		status := s.respondPipelineError(w, err, logger)
		s.metrics.ObserveRequest("buffered", strconv.Itoa(status))
		return
	}
	if job.format.WrapWAV {
		payload = audio.EncodeWAVPCM16LE(payload, voice.PCMSampleRate)
	}

	w.Header().Set("Content-Type", job.format.ContentType)
	w.Header().Set("Content-Length", strconv.Itoa(len(payload)))
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(payload); err != nil {
		s.metrics.ObserveStreamWriteError()
		logger.Warn().Err(err).Msg("write speech response failed")
	}
	s.metrics.ObserveRequest("buffered", "200")
	logger.Info().Int("bytes", len(payload)).Msg("speech completed")
}

func (s *Server) streamSpeech(ctx context.Context, w http.ResponseWriter, job speechJob, logger zerolog.Logger) {
	w.Header().Set("Content-Type", job.format.ContentType)
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("X-Accel-Buffering", "no")

	sink := pipeline.NewWriterSink(w)
	if job.format.WrapWAV {
		sink.Preamble = audio.StreamingWAVHeader(voice.PCMSampleRate)
	}

	err := s.runner.Stream(ctx, job.chunks, job.params, job.limit, sink)
	if err == nil {
		if sink.Written() == 0 {
			w.WriteHeader(http.StatusOK)
		}
		s.metrics.ObserveRequest("stream", "200")
		logger.Info().Int64("bytes", sink.Written()).Msg("speech stream completed")
		return
	}

	if sink.Written() == 0 {
		// Nothing reached the client yet, so a proper error response is still possible.
		status := s.respondPipelineError(w, err, logger)
		s.metrics.ObserveRequest("stream", strconv.Itoa(status))
		return
	}

	s.metrics.ObserveRequest("stream", "aborted")
	logger.Warn().Err(err).Int64("bytes", sink.Written()).Msg("speech stream aborted")
	// Abort the connection so the client sees a truncated transfer, not a clean end.
	panic(http.ErrAbortHandler)
}

// respondPipelineError writes the error envelope for a failed run and returns
// the status it used.
func (s *Server) respondPipelineError(w http.ResponseWriter, err error, logger zerolog.Logger) int {
	var synthErr *voice.SynthesisError
	switch {
	case errors.Is(err, context.Canceled):
		logger.Info().Msg("client went away before speech completed")
		return 499
	case errors.Is(err, credential.ErrNoCredential):
		logger.Error().Err(err).Msg("no backend credential available")
		respondError(w, http.StatusInternalServerError, errTypeAPI, "credential_unavailable", err.Error())
		return http.StatusInternalServerError
	case errors.As(err, &synthErr):
		logger.Error().Err(err).Int("backend_status", synthErr.Status).Int("chunk", synthErr.ChunkIndex).Msg("synthesis failed")
		respondError(w, http.StatusInternalServerError, errTypeAPI, "synthesis_failed", err.Error())
		return http.StatusInternalServerError
	default:
		logger.Error().Err(err).Msg("speech pipeline failed")
		respondError(w, http.StatusInternalServerError, errTypeAPI, "internal_error", err.Error())
		return http.StatusInternalServerError
	}
}
