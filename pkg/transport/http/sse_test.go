package http

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/modelgate/modelgate/pkg/api"
	"github.com/modelgate/modelgate/pkg/stream"
)

func TestFrameWriterResult(t *testing.T) {
	rec := httptest.NewRecorder()
	fw := newFrameWriter(rec, nil)

	result := &api.InferenceResult{ModelID: "gpt-4o-mini", Text: "hello", CreatedAt: 1700000000}
	if err := fw.WriteResult(context.Background(), result); err != nil {
		t.Fatalf("WriteResult failed: %v", err)
	}

	if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("expected application/json, got %q", ct)
	}

	var got api.InferenceResult
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatalf("failed to decode result: %v", err)
	}
	if got.ModelID != "gpt-4o-mini" || got.Text != "hello" {
		t.Errorf("unexpected result %+v", got)
	}
}

func TestFrameWriterStreaming(t *testing.T) {
	rec := httptest.NewRecorder()
	started := false
	fw := newFrameWriter(rec, func() { started = true })

	ctx := context.Background()
	if err := fw.WriteFrame(ctx, stream.Frame{Type: stream.FrameDelta, Data: []byte("chunk-1")}); err != nil {
		t.Fatalf("WriteFrame failed: %v", err)
	}
	if !started {
		t.Error("expected onStreamStarted callback on first frame")
	}
	if err := fw.WriteFrame(ctx, stream.Frame{Type: stream.FrameDone}); err != nil {
		t.Fatalf("WriteFrame done failed: %v", err)
	}

	if ct := rec.Header().Get("Content-Type"); ct != "text/event-stream" {
		t.Errorf("expected text/event-stream, got %q", ct)
	}

	body := rec.Body.String()
	if !strings.Contains(body, "event: delta\n") {
		t.Errorf("expected a delta event, got:\n%s", body)
	}
	if !strings.Contains(body, `"data":"chunk-1"`) {
		t.Errorf("expected chunk payload, got:\n%s", body)
	}
	if !strings.Contains(body, "event: done\n") {
		t.Errorf("expected a done event, got:\n%s", body)
	}
	if !strings.HasSuffix(body, "data: [DONE]\n\n") {
		t.Errorf("expected trailing [DONE], got:\n%s", body)
	}
}

func TestFrameWriterErrorFrame(t *testing.T) {
	rec := httptest.NewRecorder()
	fw := newFrameWriter(rec, nil)

	ctx := context.Background()
	fw.WriteFrame(ctx, stream.Frame{Type: stream.FrameDelta, Data: []byte("partial")})
	if err := fw.WriteFrame(ctx, errorFrame(api.NewStreamingError("connection dropped"))); err != nil {
		t.Fatalf("WriteFrame error frame failed: %v", err)
	}

	body := rec.Body.String()
	if !strings.Contains(body, "event: error\n") {
		t.Errorf("expected an error event, got:\n%s", body)
	}
	if !strings.Contains(body, "streaming_error") {
		t.Errorf("expected the error kind in payload, got:\n%s", body)
	}
	if !strings.Contains(body, "data: [DONE]\n\n") {
		t.Errorf("expected [DONE] after terminal error, got:\n%s", body)
	}
}

func TestFrameWriterRejectsAfterTerminal(t *testing.T) {
	rec := httptest.NewRecorder()
	fw := newFrameWriter(rec, nil)

	ctx := context.Background()
	fw.WriteFrame(ctx, stream.Frame{Type: stream.FrameDone})

	if err := fw.WriteFrame(ctx, stream.Frame{Type: stream.FrameDelta, Data: []byte("late")}); err == nil {
		t.Error("expected an error writing after the terminal frame")
	}
	if err := fw.WriteResult(ctx, &api.InferenceResult{}); err == nil {
		t.Error("expected an error writing a result after the terminal frame")
	}
}

func TestFrameWriterMutualExclusion(t *testing.T) {
	rec := httptest.NewRecorder()
	fw := newFrameWriter(rec, nil)

	ctx := context.Background()
	fw.WriteFrame(ctx, stream.Frame{Type: stream.FrameDelta, Data: []byte("x")})

	if err := fw.WriteResult(ctx, &api.InferenceResult{}); err == nil {
		t.Error("expected WriteResult to fail after streaming started")
	}
	if !fw.hasStartedStreaming() {
		t.Error("expected hasStartedStreaming to be true")
	}
}

func TestFrameWriterResultThenFrameRejected(t *testing.T) {
	rec := httptest.NewRecorder()
	fw := newFrameWriter(rec, nil)

	ctx := context.Background()
	fw.WriteResult(ctx, &api.InferenceResult{ModelID: "m"})

	if err := fw.WriteFrame(ctx, stream.Frame{Type: stream.FrameDelta}); err == nil {
		t.Error("expected WriteFrame to fail after WriteResult")
	}
	if fw.hasStartedStreaming() {
		t.Error("expected hasStartedStreaming to be false for a JSON result")
	}
}
