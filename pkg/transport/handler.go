package transport

import (
	"context"

	"github.com/modelgate/modelgate/pkg/api"
	"github.com/modelgate/modelgate/pkg/stream"
)

// InferenceHandler handles the core inference operation. The implementation
// receives a request and writes the outcome (stream frames or a complete
// result) to the ResultWriter.
type InferenceHandler interface {
	HandleInference(ctx context.Context, req *api.InferenceRequest, w ResultWriter) error
}

// InferenceHandlerFunc is an adapter that allows using an ordinary function
// as an InferenceHandler.
type InferenceHandlerFunc func(ctx context.Context, req *api.InferenceRequest, w ResultWriter) error

// HandleInference calls f(ctx, req, w).
func (f InferenceHandlerFunc) HandleInference(ctx context.Context, req *api.InferenceRequest, w ResultWriter) error {
	return f(ctx, req, w)
}

// ModelRegistry covers the activation-registry operations exposed through
// the model-management endpoints.
type ModelRegistry interface {
	// ListModels returns every catalog model with its activation state.
	ListModels() []api.ModelStatus

	// GetModel returns one catalog model's status.
	GetModel(id string) (api.ModelStatus, error)

	// ActivateModel activates a catalog model with config overrides.
	ActivateModel(ctx context.Context, id string, overrides map[string]any) (*api.ActivationRecord, error)

	// DeactivateModel deactivates the currently active model; ok is false
	// when no model was active.
	DeactivateModel(ctx context.Context) (string, bool)

	// GetActiveModel returns the model occupying the activation slot.
	GetActiveModel() (api.ModelStatus, bool)
}

// ResultWriter abstracts streaming and non-streaming output for the handler.
// The transport layer creates a ResultWriter for each request and provides
// it to the handler. The handler uses WriteFrame for streaming results or
// WriteResult for non-streaming results.
//
// WriteFrame and WriteResult are mutually exclusive on a single writer
// instance. Calling WriteFrame after a terminal frame (done or error) also
// returns an error.
type ResultWriter interface {
	// WriteFrame sends a single stream frame. Returns an error if called
	// after a terminal frame has been sent or after WriteResult was called.
	WriteFrame(ctx context.Context, frame stream.Frame) error

	// WriteResult sends a complete non-streaming result. Returns an error
	// if called after WriteFrame was called on this writer.
	WriteResult(ctx context.Context, result *api.InferenceResult) error

	// Flush ensures buffered data is sent to the client. Returns an error
	// if the client has disconnected.
	Flush() error
}
