// Package stream translates a provider's raw byte stream into uniform
// output frames for the rendering layer.
//
// Chunks pass through as opaque payloads, one frame per read. Every stream
// ends with exactly one terminal frame: a done frame on clean end-of-stream,
// or a single error frame when the underlying read fails mid-stream. A
// partially-delivered stream is therefore always observably terminated,
// never silently truncated.
package stream

import (
	"errors"
	"io"

	"github.com/modelgate/modelgate/pkg/api"
)

// FrameType discriminates the frames a Reader emits.
type FrameType string

const (
	// FrameDelta carries one opaque chunk of provider bytes.
	FrameDelta FrameType = "delta"

	// FrameDone terminates a stream that ended cleanly.
	FrameDone FrameType = "done"

	// FrameError terminates a stream that failed mid-flight.
	FrameError FrameType = "error"
)

// Frame is one unit of translated stream output.
type Frame struct {
	Type FrameType

	// Data is the opaque chunk payload. Set only on delta frames.
	Data []byte

	// Err carries the streaming error. Set only on error frames.
	Err *api.Error
}

// chunkSize bounds a single delta frame's payload.
const chunkSize = 4096

// Reader turns a StreamHandle's byte stream into frames.
type Reader struct {
	handle *api.StreamHandle

	pending  error
	terminal bool
}

// NewReader creates a frame reader over an open stream handle. The reader
// does not close the handle; that stays with the caller.
func NewReader(handle *api.StreamHandle) *Reader {
	return &Reader{handle: handle}
}

// Next returns the next frame. ok is false once the terminal frame has been
// delivered; the terminal frame itself is returned with ok true.
func (r *Reader) Next() (Frame, bool) {
	if r.terminal {
		return Frame{}, false
	}

	if r.pending != nil {
		return r.finish(r.pending), true
	}

	buf := make([]byte, chunkSize)
	for {
		n, err := r.handle.Body.Read(buf)
		if n > 0 {
			// Deliver the chunk now; a read error accompanies the next call.
			r.pending = err
			return Frame{Type: FrameDelta, Data: buf[:n]}, true
		}
		if err != nil {
			return r.finish(err), true
		}
		// Zero-byte read without error; read again.
	}
}

// finish builds the terminal frame for the stream's end condition.
func (r *Reader) finish(err error) Frame {
	r.terminal = true
	if errors.Is(err, io.EOF) {
		return Frame{Type: FrameDone}
	}
	return Frame{
		Type: FrameError,
		Err:  api.NewStreamingError("stream read failed: " + err.Error()),
	}
}
