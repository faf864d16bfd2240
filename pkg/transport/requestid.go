package transport

import (
	"context"

	"github.com/google/uuid"

	"github.com/modelgate/modelgate/pkg/api"
)

// RequestID returns middleware that assigns a unique request ID to each
// request. If the incoming request context already carries a request ID
// (set by the HTTP adapter from the X-Request-ID header), that value is
// used. Otherwise, a new unique ID is generated.
//
// The request ID is stored in the context and can be retrieved with
// RequestIDFromContext.
func RequestID() Middleware {
	return func(next InferenceHandler) InferenceHandler {
		return InferenceHandlerFunc(func(ctx context.Context, req *api.InferenceRequest, w ResultWriter) error {
			id := RequestIDFromContext(ctx)
			if id == "" {
				id = uuid.NewString()
				ctx = ContextWithRequestID(ctx, id)
			}
			return next.HandleInference(ctx, req, w)
		})
	}
}
