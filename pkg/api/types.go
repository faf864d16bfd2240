package api

import (
	"context"
	"encoding/json"
	"io"
	"time"
)

// Capability tags what a model can do. Descriptors carry a set of these;
// they are informational and do not gate resolution.
type Capability string

const (
	CapabilityTextGeneration  Capability = "text-generation"
	CapabilityChat            Capability = "chat"
	CapabilityImageGeneration Capability = "image-generation"
	CapabilitySpeechToText    Capability = "speech-to-text"
)

// ModelDescriptor is a static catalog entry. The catalog is seeded at
// process start and never mutated at runtime.
type ModelDescriptor struct {
	ID           string       `json:"id" yaml:"id"`
	Name         string       `json:"name" yaml:"name"`
	Version      string       `json:"version,omitempty" yaml:"version"`
	Description  string       `json:"description,omitempty" yaml:"description"`
	Capabilities []Capability `json:"capabilities,omitempty" yaml:"capabilities"`
	Provider     string       `json:"provider,omitempty" yaml:"provider"`
}

// ActivationStatus is the lifecycle state of a model in the registry.
// AVAILABLE is the implicit initial state for any catalog id with no
// activation record; activated and deactivated cycle freely.
type ActivationStatus string

const (
	StatusAvailable   ActivationStatus = "available"
	StatusActivated   ActivationStatus = "activated"
	StatusDeactivated ActivationStatus = "deactivated"
)

// ActivationRecord tracks the activation state of a single catalog model.
// Created on first activation, updated in place afterwards, never deleted.
type ActivationRecord struct {
	ModelID       string           `json:"model_id"`
	Status        ActivationStatus `json:"status"`
	ActivatedAt   *time.Time       `json:"activated_at,omitempty"`
	DeactivatedAt *time.Time       `json:"deactivated_at,omitempty"`

	// Config holds opaque key-value overrides merged across activations.
	Config map[string]any `json:"config,omitempty"`
}

// ModelStatus is a catalog descriptor decorated with its current
// activation state, as returned by the registry's read operations.
type ModelStatus struct {
	ModelDescriptor
	Status ActivationStatus `json:"status"`

	// Active reports whether this model currently occupies the global
	// activation slot. A model can be activated without being active.
	Active bool `json:"active"`
}

// InferenceRequest is a single logical inference request. Constructed fresh
// per call and never persisted.
type InferenceRequest struct {
	Prompt      string   `json:"prompt"`
	Temperature *float64 `json:"temperature,omitempty"`
	MaxTokens   *int     `json:"max_tokens,omitempty"`
	TopP        *float64 `json:"top_p,omitempty"`
	Stream      bool     `json:"stream,omitempty"`

	// Model optionally overrides the default active model.
	Model string `json:"model,omitempty"`

	// Credential optionally overrides the configured provider credential.
	// It is stripped from every outbound payload field; providers place it
	// exclusively in their authentication header.
	Credential string `json:"credential,omitempty"`
}

// EchoedParameters are the generation parameters echoed back on a result,
// exactly as they were accepted on the request.
type EchoedParameters struct {
	Temperature *float64 `json:"temperature,omitempty"`
	MaxTokens   *int     `json:"max_tokens,omitempty"`
	TopP        *float64 `json:"top_p,omitempty"`
}

// GeneratedImage is one image of an image-generation result. Exactly one
// of URL and B64JSON is set, depending on the vendor response format.
type GeneratedImage struct {
	URL     string `json:"url,omitempty"`
	B64JSON string `json:"b64_json,omitempty"`
}

// InferenceResult is the outcome of one non-streaming inference call.
// Never mutated after construction.
type InferenceResult struct {
	ModelID   string           `json:"model_id"`
	Text      string           `json:"text,omitempty"`
	Images    []GeneratedImage `json:"images,omitempty"`
	CreatedAt int64            `json:"created_at"`

	// Raw is the provider's payload, passed through opaquely.
	Raw json.RawMessage `json:"raw,omitempty"`

	// Parameters echoes the accepted generation parameters.
	Parameters EchoedParameters `json:"parameters"`
}

// StreamHandle owns an open provider-native byte stream. Ownership of the
// underlying connection transfers to the caller on return; the gateway
// retains no reference after handoff. Close cancels the outbound call and
// releases the connection.
type StreamHandle struct {
	ModelID     string
	CreatedAt   int64
	Streaming   bool
	ContentType string
	Body        io.ReadCloser

	cancel context.CancelFunc
}

// NewStreamHandle builds a StreamHandle around an open byte stream.
// cancel may be nil when the stream has no associated cancellation.
func NewStreamHandle(modelID, contentType string, body io.ReadCloser, cancel context.CancelFunc) *StreamHandle {
	return &StreamHandle{
		ModelID:     modelID,
		CreatedAt:   time.Now().Unix(),
		Streaming:   true,
		ContentType: contentType,
		Body:        body,
		cancel:      cancel,
	}
}

// Close tears down the underlying connection. Safe to call more than once.
func (h *StreamHandle) Close() error {
	if h.cancel != nil {
		h.cancel()
		h.cancel = nil
	}
	if h.Body != nil {
		err := h.Body.Close()
		h.Body = nil
		return err
	}
	return nil
}

// Echo builds the EchoedParameters for a request.
func (r *InferenceRequest) Echo() EchoedParameters {
	return EchoedParameters{
		Temperature: r.Temperature,
		MaxTokens:   r.MaxTokens,
		TopP:        r.TopP,
	}
}

// MergeConfig deep-merges override values into base, returning a new map.
// Nested maps are merged recursively; scalar overrides win (last writer).
func MergeConfig(base, overrides map[string]any) map[string]any {
	merged := make(map[string]any, len(base)+len(overrides))
	for k, v := range base {
		merged[k] = v
	}
	for k, v := range overrides {
		if subOverride, ok := v.(map[string]any); ok {
			if subBase, ok := merged[k].(map[string]any); ok {
				merged[k] = MergeConfig(subBase, subOverride)
				continue
			}
		}
		merged[k] = v
	}
	return merged
}
