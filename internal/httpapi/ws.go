package httpapi

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/ent0n29/speechgate/internal/audio"
	"github.com/ent0n29/speechgate/internal/credential"
	"github.com/ent0n29/speechgate/internal/observability"
	"github.com/ent0n29/speechgate/internal/policy"
	"github.com/ent0n29/speechgate/internal/voice"
)

const wsWriteTimeout = 10 * time.Second

// wsMessage is the JSON control frame sent alongside binary audio frames.
type wsMessage struct {
	Type      string    `json:"type"`
	RequestID string    `json:"request_id"`
	Chunks    int       `json:"chunks,omitempty"`
	Bytes     int64     `json:"bytes,omitempty"`
	Error     *apiError `json:"error,omitempty"`
}

const (
	wsTypeDone  = "speech_done"
	wsTypeError = "speech_error"
)

// handleSpeechWS accepts one JSON speech request per connection and streams
// each chunk's audio as a binary frame, in chunk order.
func (s *Server) handleSpeechWS(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()

	start := time.Now()
	requestID := uuid.NewString()
	logger := log.With().Str("request_id", requestID).Str("mode", "ws").Logger()

	conn.SetReadLimit(int64(s.cfg.MaxInputChars)*4 + 64<<10)
	_ = conn.SetReadDeadline(time.Now().Add(30 * time.Second))

	req := newSpeechRequest()
	if err := conn.ReadJSON(&req); err != nil {
		s.metrics.ObserveRequest("ws", "400")
		writeWSFailure(conn, requestID, websocket.CloseUnsupportedData, apiError{
			Message: "invalid JSON request: " + err.Error(),
			Type:    errTypeInvalidRequest,
			Code:    "invalid_json",
		})
		return
	}
	job, reqErr := s.prepareSpeech(req)
	if reqErr != nil {
		s.metrics.ObserveRequest("ws", "400")
		writeWSFailure(conn, requestID, websocket.ClosePolicyViolation, apiError{
			Message: reqErr.message,
			Type:    errTypeInvalidRequest,
			Code:    reqErr.code,
		})
		return
	}
	_ = conn.SetReadDeadline(time.Time{})
	logger.Debug().
		Str("voice", job.params.Voice).
		Int("chunks", len(job.chunks)).
		Str("input_preview", policy.InputPreview(req.Input, inputPreviewRunes)).
		Msg("speech websocket accepted")

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	// The client sends nothing further; a read error means it hung up.
	go func() {
		for {
			if _, _, err := conn.NextReader(); err != nil {
				cancel()
				return
			}
		}
	}()

	sink := &wsSink{conn: conn, requestID: requestID, chunks: len(job.chunks), metrics: s.metrics}
	if job.format.WrapWAV {
		sink.preamble = audio.StreamingWAVHeader(voice.PCMSampleRate)
	}

	err = s.runner.Stream(ctx, job.chunks, job.params, job.limit, sink)
	s.metrics.ObserveRequestTotal(time.Since(start))
	if err != nil {
		code := "500"
		if errors.Is(err, context.Canceled) {
			code = "499"
		}
		s.metrics.ObserveRequest("ws", code)
		logger.Warn().Err(err).Int64("bytes", sink.bytes).Msg("speech websocket aborted")
		return
	}
	s.metrics.ObserveRequest("ws", "200")
	logger.Info().Int("chunks", len(job.chunks)).Int64("bytes", sink.bytes).Msg("speech websocket completed")
}

// wsSink writes one binary frame per chunk. Abort reports the failure and
// closes with 1011; a clean Close sends speech_done and a normal closure.
type wsSink struct {
	conn      *websocket.Conn
	requestID string
	chunks    int
	preamble  []byte
	metrics   *observability.Metrics

	mu      sync.Mutex
	started bool
	bytes   int64
	aborted bool
}

func (s *wsSink) WriteBatch(ctx context.Context, frames [][]byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.started {
		s.started = true
		if len(s.preamble) > 0 {
			if err := s.writeBinary(s.preamble); err != nil {
				return err
			}
		}
	}
	for _, frame := range frames {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := s.writeBinary(frame); err != nil {
			return err
		}
	}
	return nil
}

func (s *wsSink) writeBinary(p []byte) error {
	_ = s.conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
	if err := s.conn.WriteMessage(websocket.BinaryMessage, p); err != nil {
		s.metrics.ObserveStreamWriteError()
		return err
	}
	s.bytes += int64(len(p))
	return nil
}

func (s *wsSink) Abort(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.aborted {
		return
	}
	s.aborted = true
	writeWSFailure(s.conn, s.requestID, websocket.CloseInternalServerErr, apiError{
		Message: err.Error(),
		Type:    errTypeAPI,
		Code:    failureCode(err),
	})
}

func (s *wsSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.aborted {
		return nil
	}
	_ = s.conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
	if err := s.conn.WriteJSON(wsMessage{Type: wsTypeDone, RequestID: s.requestID, Chunks: s.chunks, Bytes: s.bytes}); err != nil {
		return err
	}
	return s.conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, "done"),
		time.Now().Add(wsWriteTimeout))
}

func writeWSFailure(conn *websocket.Conn, requestID string, closeCode int, e apiError) {
	_ = conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
	_ = conn.WriteJSON(wsMessage{Type: wsTypeError, RequestID: requestID, Error: &e})
	_ = conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(closeCode, truncateCloseReason(e.Code)),
		time.Now().Add(wsWriteTimeout))
}

// truncateCloseReason keeps the reason inside the 123-byte control frame budget.
func truncateCloseReason(reason string) string {
	if len(reason) > 120 {
		return reason[:120]
	}
	return reason
}

func failureCode(err error) string {
	if errors.Is(err, credential.ErrNoCredential) {
		return "credential_unavailable"
	}
	var synthErr *voice.SynthesisError
	if errors.As(err, &synthErr) {
		return "synthesis_failed"
	}
	return "internal_error"
}
