package gateway

import (
	"context"

	"github.com/modelgate/modelgate/pkg/api"
	"github.com/modelgate/modelgate/pkg/stream"
	"github.com/modelgate/modelgate/pkg/transport"
)

var _ transport.InferenceHandler = (*Gateway)(nil)

// HandleInference implements transport.InferenceHandler. Non-streaming
// requests resolve to a single WriteResult; streaming requests drain the
// provider stream frame by frame into the writer.
func (g *Gateway) HandleInference(ctx context.Context, req *api.InferenceRequest, w transport.ResultWriter) error {
	if !req.Stream {
		result, err := g.Infer(ctx, req)
		if err != nil {
			return err
		}
		return w.WriteResult(ctx, result)
	}

	handle, err := g.InferStreaming(ctx, req)
	if err != nil {
		return err
	}
	defer handle.Close()

	reader := stream.NewReader(handle)
	for {
		frame, ok := reader.Next()
		if !ok {
			return nil
		}
		if err := w.WriteFrame(ctx, frame); err != nil {
			// Client is gone; tearing down the handle stops the upstream read.
			return err
		}
	}
}
