package api

import (
	"errors"
	"fmt"
)

// ErrorKind represents the category of a gateway error. The kind determines
// both the retry behavior in the executor and the HTTP status the transport
// layer maps the error to.
type ErrorKind string

const (
	// ErrorKindValidation marks a malformed request. Never retried; no
	// registry or network interaction happens before it is returned.
	ErrorKindValidation ErrorKind = "validation_error"

	// ErrorKindActivation marks an activation failure for a model id that
	// is not present in the catalog. Never retried.
	ErrorKindActivation ErrorKind = "activation_error"

	// ErrorKindProviderConfig marks a missing credential for the resolved
	// provider. Never retried; no network call is attempted.
	ErrorKindProviderConfig ErrorKind = "provider_config_error"

	// ErrorKindTransientNetwork marks a non-success response or network
	// exception from the provider. Retried up to the configured bound,
	// then surfaced with the upstream status and body when available.
	ErrorKindTransientNetwork ErrorKind = "transient_network_error"

	// ErrorKindTimeout marks an inference call that exceeded the configured
	// inference timeout. Surfaced distinctly from transient failures.
	ErrorKindTimeout ErrorKind = "timeout_error"

	// ErrorKindStreamingUnsupported marks a streaming request against a
	// provider that has no streaming operation. Never retried.
	ErrorKindStreamingUnsupported ErrorKind = "streaming_unsupported"

	// ErrorKindStreaming marks a mid-stream translation failure. It is
	// delivered as the single terminal frame of a partially-delivered
	// stream, never retried.
	ErrorKindStreaming ErrorKind = "streaming_error"

	// ErrorKindInternal marks everything else: marshalling failures,
	// malformed backend payloads, recovered panics.
	ErrorKindInternal ErrorKind = "internal_error"
)

// Error is the structured gateway error. All errors crossing the gateway's
// public operations are of this type so that callers can discriminate on Kind.
type Error struct {
	Kind    ErrorKind `json:"kind"`
	Param   string    `json:"param,omitempty"`
	Message string    `json:"message"`

	// UpstreamStatus and UpstreamBody carry the backend HTTP status and
	// response body for transient network errors, when available.
	UpstreamStatus int    `json:"upstream_status,omitempty"`
	UpstreamBody   string `json:"upstream_body,omitempty"`
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Param != "" {
		return fmt.Sprintf("%s: %s (param: %s)", e.Kind, e.Message, e.Param)
	}
	if e.UpstreamStatus != 0 {
		return fmt.Sprintf("%s: %s (upstream status: %d)", e.Kind, e.Message, e.UpstreamStatus)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// Retryable reports whether the executor may retry the operation that
// produced this error. Only transient network failures are retryable.
func (e *Error) Retryable() bool {
	return e.Kind == ErrorKindTransientNetwork
}

// ErrorResponse wraps an Error for JSON serialization as the top-level
// error response body.
type ErrorResponse struct {
	Error *Error `json:"error"`
}

// KindOf extracts the ErrorKind from an error. Errors that are not gateway
// errors report ErrorKindInternal.
func KindOf(err error) ErrorKind {
	var ge *Error
	if errors.As(err, &ge) {
		return ge.Kind
	}
	return ErrorKindInternal
}

// AsError converts any error into a gateway *Error. Gateway errors pass
// through unchanged; anything else is wrapped as an internal error.
func AsError(err error) *Error {
	var ge *Error
	if errors.As(err, &ge) {
		return ge
	}
	return NewInternalError(err.Error())
}

// NewValidationError creates an Error for a malformed request parameter.
func NewValidationError(param, message string) *Error {
	return &Error{Kind: ErrorKindValidation, Param: param, Message: message}
}

// NewActivationError creates an Error for a model id absent from the catalog.
func NewActivationError(message string) *Error {
	return &Error{Kind: ErrorKindActivation, Message: message}
}

// NewProviderConfigError creates an Error for a provider with no usable credential.
func NewProviderConfigError(message string) *Error {
	return &Error{Kind: ErrorKindProviderConfig, Message: message}
}

// NewTransientNetworkError creates an Error for a retryable backend failure.
// status and body may be zero-valued when the failure happened below HTTP.
func NewTransientNetworkError(message string, status int, body string) *Error {
	return &Error{
		Kind:           ErrorKindTransientNetwork,
		Message:        message,
		UpstreamStatus: status,
		UpstreamBody:   body,
	}
}

// NewTimeoutError creates an Error for an exceeded inference timeout.
func NewTimeoutError(message string) *Error {
	return &Error{Kind: ErrorKindTimeout, Message: message}
}

// NewStreamingUnsupportedError creates an Error for a provider without streaming.
func NewStreamingUnsupportedError(message string) *Error {
	return &Error{Kind: ErrorKindStreamingUnsupported, Message: message}
}

// NewStreamingError creates an Error for a mid-stream translation failure.
func NewStreamingError(message string) *Error {
	return &Error{Kind: ErrorKindStreaming, Message: message}
}

// NewInternalError creates an Error for internal gateway failures.
func NewInternalError(message string) *Error {
	return &Error{Kind: ErrorKindInternal, Message: message}
}
