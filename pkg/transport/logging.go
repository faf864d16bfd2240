package transport

import (
	"context"
	"log/slog"
	"time"

	"github.com/modelgate/modelgate/pkg/api"
)

// Logging returns middleware that emits structured log entries for each
// inference request. The log entry includes the request ID (from context),
// model, streaming flag, duration, and whether the request succeeded or
// failed.
func Logging(logger *slog.Logger) Middleware {
	if logger == nil {
		logger = slog.Default()
	}
	return func(next InferenceHandler) InferenceHandler {
		return InferenceHandlerFunc(func(ctx context.Context, req *api.InferenceRequest, w ResultWriter) error {
			start := time.Now()
			requestID := RequestIDFromContext(ctx)

			err := next.HandleInference(ctx, req, w)

			attrs := []slog.Attr{
				slog.String("request_id", requestID),
				slog.String("model", req.Model),
				slog.Bool("stream", req.Stream),
				slog.Duration("duration", time.Since(start)),
			}

			if err != nil {
				attrs = append(attrs, slog.String("error", err.Error()))
				logger.LogAttrs(ctx, slog.LevelError, "inference failed", attrs...)
			} else {
				logger.LogAttrs(ctx, slog.LevelInfo, "inference completed", attrs...)
			}

			return err
		})
	}
}
