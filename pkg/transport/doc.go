// Package transport defines the handler interfaces and middleware chain for
// the modelgate HTTP transport layer.
//
// The transport layer bridges external clients and the inference gateway.
// It deserializes incoming requests into the core types defined in pkg/api,
// dispatches them for processing, and serializes results back to the client
// in either synchronous (JSON) or streaming (SSE) format.
//
// # Handler Interfaces
//
// InferenceHandler is the contract between the transport layer and the
// gateway: it receives an inference request and writes the outcome, either
// a complete result or a sequence of stream frames, to a ResultWriter.
// ModelRegistry covers the activation operations the model-management
// endpoints dispatch to.
//
// # Middleware
//
// The middleware chain wraps InferenceHandler with cross-cutting concerns.
// Built-in middleware provides panic recovery, request ID assignment
// (X-Request-ID), and structured logging via log/slog.
package transport
