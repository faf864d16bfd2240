// Package generic is the catch-all adapter for arbitrary externally hosted
// models. It speaks the common hosted-inference protocol (JSON inputs and
// parameters, model name in the URL path) and serves every model id no
// other adapter claims. The protocol has no streaming mode.
package generic

import (
	"context"
	"encoding/json"
	"net/url"
	"strings"
	"time"

	"resty.dev/v3"

	"github.com/modelgate/modelgate/pkg/api"
	"github.com/modelgate/modelgate/pkg/provider"
)

// Config holds connection settings for the hosted-inference backend.
type Config struct {
	// BaseURL is the backend base URL (e.g., "https://api-inference.example.com").
	BaseURL string

	// APIKey is the default credential. A per-request credential override
	// takes precedence when present.
	APIKey string

	// Timeout bounds the inference call (default: 120s).
	Timeout time.Duration
}

// inferencePayload is the hosted-inference request wire format.
type inferencePayload struct {
	Inputs     string          `json:"inputs"`
	Parameters inferenceParams `json:"parameters"`
}

// inferenceParams maps the gateway's generation parameters onto the hosted
// protocol's names.
type inferenceParams struct {
	Temperature  *float64 `json:"temperature,omitempty"`
	MaxNewTokens *int     `json:"max_new_tokens,omitempty"`
	TopP         *float64 `json:"top_p,omitempty"`
}

// Client implements provider.Provider for hosted-inference backends.
type Client struct {
	cfg    Config
	client *resty.Client
}

var _ provider.Provider = (*Client)(nil)

// New creates a generic adapter. BaseURL is required.
func New(cfg Config) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, api.NewProviderConfigError("generic: BaseURL is required")
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	if cfg.Timeout == 0 {
		cfg.Timeout = 120 * time.Second
	}

	client := resty.New().
		SetBaseURL(cfg.BaseURL).
		SetTimeout(cfg.Timeout)

	return &Client{cfg: cfg, client: client}, nil
}

// Name returns the adapter identifier.
func (c *Client) Name() string {
	return "generic"
}

// Capabilities reports that streaming is unsupported.
func (c *Client) Capabilities() provider.Capabilities {
	return provider.Capabilities{Streaming: false}
}

// Infer performs a hosted-inference call for the named model.
func (c *Client) Infer(ctx context.Context, req *provider.Request) (*provider.Response, error) {
	credential := req.Credential
	if credential == "" {
		credential = c.cfg.APIKey
	}
	if credential == "" {
		return nil, api.NewProviderConfigError("generic: no API credential configured")
	}

	payload := inferencePayload{
		Inputs: req.Prompt,
		Parameters: inferenceParams{
			Temperature:  req.Temperature,
			MaxNewTokens: req.MaxTokens,
			TopP:         req.TopP,
		},
	}

	res, err := c.client.R().
		SetContext(ctx).
		SetHeader("Authorization", "Bearer "+credential).
		SetContentType("application/json").
		SetBody(payload).
		Post("/models/" + url.PathEscape(req.Model))
	if err != nil {
		return nil, provider.MapNetworkError(err)
	}

	raw := res.Bytes()
	if res.IsError() {
		return nil, provider.MapStatusError(res.StatusCode(), raw)
	}

	text, err := extractGeneratedText(raw)
	if err != nil {
		return nil, err
	}

	return &provider.Response{Text: text, Raw: raw}, nil
}

// Stream always fails: the hosted-inference protocol has no streaming mode.
func (c *Client) Stream(_ context.Context, _ *provider.Request) (*provider.StreamConn, error) {
	return nil, api.NewStreamingUnsupportedError("hosted inference backend has no streaming mode")
}

// Close releases the underlying HTTP client.
func (c *Client) Close() error {
	return c.client.Close()
}

// extractGeneratedText pulls the generated text out of the two response
// shapes the hosted protocol uses: a one-element array of objects, or a
// bare object.
func extractGeneratedText(raw []byte) (string, error) {
	var asList []struct {
		GeneratedText string `json:"generated_text"`
	}
	if err := json.Unmarshal(raw, &asList); err == nil && len(asList) > 0 {
		return asList[0].GeneratedText, nil
	}

	var asObject struct {
		GeneratedText string `json:"generated_text"`
	}
	if err := json.Unmarshal(raw, &asObject); err == nil && asObject.GeneratedText != "" {
		return asObject.GeneratedText, nil
	}

	return "", api.NewInternalError("generic: unrecognized backend response shape")
}
