package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"

	"github.com/modelgate/modelgate/pkg/api"
	"github.com/modelgate/modelgate/pkg/stream"
	"github.com/modelgate/modelgate/pkg/transport"
)

// writerState tracks the state of a frame writer.
type writerState int

const (
	writerIdle      writerState = iota // Initial state, no writes yet
	writerStreaming                    // WriteFrame has been called at least once
	writerCompleted                    // Terminal frame sent or WriteResult called
)

// wireFrame is the JSON envelope for one SSE frame.
type wireFrame struct {
	Type  stream.FrameType `json:"type"`
	Data  string           `json:"data,omitempty"`
	Error *api.Error       `json:"error,omitempty"`
}

// frameWriter implements transport.ResultWriter for HTTP responses.
// It handles both streaming (SSE) and non-streaming (JSON) output.
type frameWriter struct {
	w  http.ResponseWriter
	rc *http.ResponseController

	mu    sync.Mutex
	state writerState

	// onStreamStarted is called once, when the first frame is written.
	// The adapter uses it to register the stream for shutdown teardown.
	onStreamStarted func()
}

var _ transport.ResultWriter = (*frameWriter)(nil)

// newFrameWriter creates a ResultWriter wrapping an http.ResponseWriter.
// onStreamStarted may be nil.
func newFrameWriter(w http.ResponseWriter, onStreamStarted func()) *frameWriter {
	return &frameWriter{
		w:               w,
		rc:              http.NewResponseController(w),
		onStreamStarted: onStreamStarted,
	}
}

// WriteFrame sends a single SSE frame. The frame is formatted as:
//
//	event: {type}\n
//	data: {json}\n
//	\n
//
// After a terminal frame (done or error), it also sends:
//
//	data: [DONE]\n
//	\n
func (s *frameWriter) WriteFrame(ctx context.Context, frame stream.Frame) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state == writerCompleted {
		return errors.New("cannot write frame: writer is completed")
	}

	// First frame: set SSE headers.
	if s.state == writerIdle {
		s.w.Header().Set("Content-Type", "text/event-stream")
		s.w.Header().Set("Cache-Control", "no-cache")
		s.w.Header().Set("Connection", "keep-alive")
		s.state = writerStreaming
		if s.onStreamStarted != nil {
			s.onStreamStarted()
			s.onStreamStarted = nil
		}
	}

	data, err := json.Marshal(wireFrame{
		Type:  frame.Type,
		Data:  string(frame.Data),
		Error: frame.Err,
	})
	if err != nil {
		return fmt.Errorf("failed to marshal frame: %w", err)
	}

	if _, err := fmt.Fprintf(s.w, "event: %s\ndata: %s\n\n", frame.Type, data); err != nil {
		return fmt.Errorf("failed to write frame: %w", err)
	}

	if err := s.rc.Flush(); err != nil {
		return fmt.Errorf("failed to flush: %w", err)
	}

	if frame.Type == stream.FrameDone || frame.Type == stream.FrameError {
		if _, err := fmt.Fprint(s.w, "data: [DONE]\n\n"); err != nil {
			return fmt.Errorf("failed to write [DONE]: %w", err)
		}
		if err := s.rc.Flush(); err != nil {
			return fmt.Errorf("failed to flush [DONE]: %w", err)
		}
		s.state = writerCompleted
	}

	return nil
}

// WriteResult sends a complete non-streaming JSON result.
// This is mutually exclusive with WriteFrame.
func (s *frameWriter) WriteResult(ctx context.Context, result *api.InferenceResult) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state == writerStreaming {
		return errors.New("cannot write result: streaming has already started")
	}
	if s.state == writerCompleted {
		return errors.New("cannot write result: writer is completed")
	}

	s.w.Header().Set("Content-Type", "application/json")
	s.state = writerCompleted

	if err := json.NewEncoder(s.w).Encode(result); err != nil {
		return fmt.Errorf("failed to encode result: %w", err)
	}

	return nil
}

// Flush ensures buffered data is sent to the client.
func (s *frameWriter) Flush() error {
	return s.rc.Flush()
}

// errorFrame builds a terminal error frame carrying a gateway error.
func errorFrame(err *api.Error) stream.Frame {
	return stream.Frame{Type: stream.FrameError, Err: err}
}

// hasStartedStreaming reports whether at least one SSE frame has been written.
func (s *frameWriter) hasStartedStreaming() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state == writerStreaming || (s.state == writerCompleted && s.w.Header().Get("Content-Type") == "text/event-stream")
}
