package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/google/uuid"

	"github.com/modelgate/modelgate/pkg/api"
	"github.com/modelgate/modelgate/pkg/transport"
)

// Adapter serves the gateway API over HTTP.
// It routes requests to the appropriate handler and serializes responses.
type Adapter struct {
	handler  transport.InferenceHandler
	registry transport.ModelRegistry
	streams  *transport.StreamRegistry
	mux      *http.ServeMux
	config   Config
}

// Config holds configuration for the HTTP adapter.
type Config struct {
	Addr            string
	MaxBodySize     int64
	ShutdownTimeout int // seconds
}

// DefaultConfig returns the default adapter configuration.
func DefaultConfig() Config {
	return Config{
		Addr:            ":8080",
		MaxBodySize:     10 << 20, // 10 MB
		ShutdownTimeout: 30,
	}
}

// activateRequest is the body of POST /v1/models/activate.
type activateRequest struct {
	ModelID string         `json:"model_id"`
	Config  map[string]any `json:"config,omitempty"`
}

// deactivateResponse is the body of POST /v1/models/deactivate.
type deactivateResponse struct {
	ModelID     string `json:"model_id,omitempty"`
	Deactivated bool   `json:"deactivated"`
}

// modelListResponse is the body of GET /v1/models.
type modelListResponse struct {
	Models []api.ModelStatus `json:"models"`
}

// NewAdapter creates an HTTP adapter with the given inference handler and
// model registry. Middleware is applied to the inference handler in the
// given order.
func NewAdapter(handler transport.InferenceHandler, registry transport.ModelRegistry, cfg Config, middlewares ...transport.Middleware) *Adapter {
	if len(middlewares) > 0 {
		handler = transport.Chain(middlewares...)(handler)
	}

	a := &Adapter{
		handler:  handler,
		registry: registry,
		streams:  transport.NewStreamRegistry(),
		mux:      http.NewServeMux(),
		config:   cfg,
	}

	a.mux.HandleFunc("POST /v1/infer", a.handleInfer)
	a.mux.HandleFunc("GET /v1/models", a.handleListModels)
	a.mux.HandleFunc("GET /v1/models/active", a.handleGetActiveModel)
	a.mux.HandleFunc("GET /v1/models/{id}", a.handleGetModel)
	a.mux.HandleFunc("POST /v1/models/activate", a.handleActivateModel)
	a.mux.HandleFunc("POST /v1/models/deactivate", a.handleDeactivateModel)
	a.mux.HandleFunc("GET /healthz", a.handleHealth)

	return a
}

// Handler returns the http.Handler for this adapter. Use this to integrate
// with an http.Server or test with httptest. The returned handler includes
// HTTP-level middleware for request ID propagation.
func (a *Adapter) Handler() http.Handler {
	return httpRequestIDMiddleware(a.mux)
}

// Streams returns the in-flight stream registry, used by the server to
// tear down open streams on shutdown.
func (a *Adapter) Streams() *transport.StreamRegistry {
	return a.streams
}

// httpRequestIDMiddleware is HTTP-level middleware that propagates the
// X-Request-ID header. If present in the request, it is forwarded to
// the response. After the handler runs, it checks the context for a
// request ID (set by the transport-level RequestID middleware) and adds
// it to the response headers if not already set.
func httpRequestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if id := r.Header.Get("X-Request-ID"); id != "" {
			ctx := transport.ContextWithRequestID(r.Context(), id)
			r = r.WithContext(ctx)
		}
		rw := &requestIDResponseWriter{ResponseWriter: w, r: r}
		next.ServeHTTP(rw, r)
	})
}

// requestIDResponseWriter wraps http.ResponseWriter to inject the
// X-Request-ID header before the first write.
type requestIDResponseWriter struct {
	http.ResponseWriter
	r           *http.Request
	headersSent bool
}

func (w *requestIDResponseWriter) WriteHeader(statusCode int) {
	w.ensureRequestIDHeader()
	w.ResponseWriter.WriteHeader(statusCode)
}

func (w *requestIDResponseWriter) Write(b []byte) (int, error) {
	w.ensureRequestIDHeader()
	return w.ResponseWriter.Write(b)
}

func (w *requestIDResponseWriter) Flush() {
	if f, ok := w.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

// Unwrap returns the underlying ResponseWriter for http.NewResponseController.
func (w *requestIDResponseWriter) Unwrap() http.ResponseWriter {
	return w.ResponseWriter
}

func (w *requestIDResponseWriter) ensureRequestIDHeader() {
	if w.headersSent {
		return
	}
	w.headersSent = true
	if id := transport.RequestIDFromContext(w.r.Context()); id != "" {
		w.ResponseWriter.Header().Set("X-Request-ID", id)
	}
}

// handleInfer handles POST /v1/infer.
func (a *Adapter) handleInfer(w http.ResponseWriter, r *http.Request) {
	ct := r.Header.Get("Content-Type")
	if ct != "" && ct != "application/json" {
		transport.WriteErrorResponse(w,
			api.NewValidationError("content_type", "Content-Type must be application/json"),
			http.StatusUnsupportedMediaType,
		)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, a.config.MaxBodySize)

	var req api.InferenceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			transport.WriteErrorResponse(w,
				api.NewValidationError("body", fmt.Sprintf("request body too large (max %d bytes)", a.config.MaxBodySize)),
				http.StatusRequestEntityTooLarge,
			)
			return
		}
		transport.WriteErrorResponse(w,
			api.NewValidationError("body", "invalid JSON: "+err.Error()),
			http.StatusBadRequest,
		)
		return
	}

	if req.Stream {
		a.handleStreamingInfer(w, r, &req)
		return
	}

	rw := newFrameWriter(w, nil)
	if err := a.handler.HandleInference(r.Context(), &req, rw); err != nil {
		a.writeHandlerError(w, rw, err)
		return
	}
}

// handleStreamingInfer handles streaming POST requests (stream: true).
func (a *Adapter) handleStreamingInfer(w http.ResponseWriter, r *http.Request, req *api.InferenceRequest) {
	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	streamID := uuid.NewString()
	registered := false
	rw := newFrameWriter(w, func() {
		registered = true
		a.streams.Register(streamID, cancel)
	})

	err := a.handler.HandleInference(ctx, req, rw)

	if registered {
		a.streams.Remove(streamID)
	}

	if err != nil {
		a.writeHandlerError(w, rw, err)
	}
}

// handleListModels handles GET /v1/models.
func (a *Adapter) handleListModels(w http.ResponseWriter, r *http.Request) {
	models := a.registry.ListModels()
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(modelListResponse{Models: models})
}

// handleGetModel handles GET /v1/models/{id}.
func (a *Adapter) handleGetModel(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	model, err := a.registry.GetModel(id)
	if err != nil {
		transport.WriteAPIError(w, api.AsError(err))
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(model)
}

// handleGetActiveModel handles GET /v1/models/active.
func (a *Adapter) handleGetActiveModel(w http.ResponseWriter, r *http.Request) {
	model, ok := a.registry.GetActiveModel()
	if !ok {
		transport.WriteAPIError(w, api.NewActivationError("no model is active"))
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(model)
}

// handleActivateModel handles POST /v1/models/activate.
func (a *Adapter) handleActivateModel(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, a.config.MaxBodySize)

	var req activateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		transport.WriteErrorResponse(w,
			api.NewValidationError("body", "invalid JSON: "+err.Error()),
			http.StatusBadRequest,
		)
		return
	}
	if req.ModelID == "" {
		transport.WriteErrorResponse(w,
			api.NewValidationError("model_id", "model_id is required"),
			http.StatusBadRequest,
		)
		return
	}

	record, err := a.registry.ActivateModel(r.Context(), req.ModelID, req.Config)
	if err != nil {
		transport.WriteAPIError(w, api.AsError(err))
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(record)
}

// handleDeactivateModel handles POST /v1/models/deactivate.
// Deactivation with no active model is not an error; the response reports
// whether a model was actually deactivated.
func (a *Adapter) handleDeactivateModel(w http.ResponseWriter, r *http.Request) {
	id, ok := a.registry.DeactivateModel(r.Context())

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(deactivateResponse{ModelID: id, Deactivated: ok})
}

// handleHealth handles GET /healthz.
func (a *Adapter) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

// writeHandlerError writes an error response from the inference handler.
// If streaming has already started, the error travels as a terminal error
// frame. Otherwise it is a standard JSON error response.
func (a *Adapter) writeHandlerError(w http.ResponseWriter, rw *frameWriter, err error) {
	apiErr := api.AsError(err)

	if rw.hasStartedStreaming() {
		rw.WriteFrame(context.Background(), errorFrame(apiErr))
		return
	}

	transport.WriteAPIError(w, apiErr)
}
