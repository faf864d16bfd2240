package provider

import (
	"encoding/json"
	"io"

	"github.com/modelgate/modelgate/pkg/api"
)

// Capabilities declares what features a vendor adapter supports.
// The executor uses it for early streaming validation.
type Capabilities struct {
	// Streaming indicates whether the adapter has a streaming operation.
	Streaming bool
}

// Request is the adapter-facing request. It carries only what the vendor
// call needs, already validated and stripped of transport concerns.
type Request struct {
	Model       string   `json:"model"`
	Prompt      string   `json:"prompt"`
	Temperature *float64 `json:"temperature,omitempty"`
	MaxTokens   *int     `json:"max_tokens,omitempty"`
	TopP        *float64 `json:"top_p,omitempty"`

	// Credential is the resolved API credential for this call. It is
	// excluded from serialization: adapters place it exclusively in the
	// vendor's authentication header.
	Credential string `json:"-"`
}

// Response is the adapter's normalized non-streaming result.
type Response struct {
	// Text holds the generated or transcribed text. Empty for image results.
	Text string

	// Images holds structured image-generation output.
	Images []api.GeneratedImage

	// Raw is the vendor's response body, passed through opaquely.
	Raw json.RawMessage
}

// StreamConn is an open vendor-native byte stream. The adapter hands it
// over once HTTP headers have been received; the caller owns the body.
type StreamConn struct {
	Body        io.ReadCloser
	ContentType string
}
