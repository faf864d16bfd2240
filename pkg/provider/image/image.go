// Package image adapts an image-generation vendor to the provider contract.
// Results are structured (URL or base64 payloads) rather than text. The
// vendor API has no streaming mode.
package image

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/modelgate/modelgate/pkg/api"
	"github.com/modelgate/modelgate/pkg/provider"
)

// Config holds connection settings for the image backend.
type Config struct {
	// BaseURL is the backend base URL.
	BaseURL string

	// APIKey is the default credential. A per-request credential override
	// takes precedence when present.
	APIKey string

	// Timeout bounds the generation call (default: 120s).
	Timeout time.Duration

	// Size is the generated image size (default: "1024x1024").
	Size string
}

// generationRequest is the image-generation request wire format.
type generationRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
	N      int    `json:"n"`
	Size   string `json:"size,omitempty"`
}

// generationResponse is the image-generation response wire format.
type generationResponse struct {
	Created int64 `json:"created"`
	Data    []struct {
		URL     string `json:"url,omitempty"`
		B64JSON string `json:"b64_json,omitempty"`
	} `json:"data"`
}

// Client implements provider.Provider for image-generation backends.
type Client struct {
	cfg    Config
	client *http.Client
}

var _ provider.Provider = (*Client)(nil)

// New creates an image-generation adapter. BaseURL is required.
func New(cfg Config) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, api.NewProviderConfigError("image: BaseURL is required")
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	if cfg.Timeout == 0 {
		cfg.Timeout = 120 * time.Second
	}
	if cfg.Size == "" {
		cfg.Size = "1024x1024"
	}

	return &Client{
		cfg:    cfg,
		client: &http.Client{Timeout: cfg.Timeout},
	}, nil
}

// Name returns the adapter identifier.
func (c *Client) Name() string {
	return "image"
}

// Capabilities reports that streaming is unsupported.
func (c *Client) Capabilities() provider.Capabilities {
	return provider.Capabilities{Streaming: false}
}

// Infer generates one image from the request prompt.
func (c *Client) Infer(ctx context.Context, req *provider.Request) (*provider.Response, error) {
	credential := req.Credential
	if credential == "" {
		credential = c.cfg.APIKey
	}
	if credential == "" {
		return nil, api.NewProviderConfigError("image: no API credential configured")
	}

	body, err := json.Marshal(generationRequest{
		Model:  req.Model,
		Prompt: req.Prompt,
		N:      1,
		Size:   c.cfg.Size,
	})
	if err != nil {
		return nil, api.NewInternalError("image: marshalling request: " + err.Error())
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.cfg.BaseURL+"/v1/images/generations", bytes.NewReader(body))
	if err != nil {
		return nil, api.NewInternalError("image: building request: " + err.Error())
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+credential)

	httpResp, err := c.client.Do(httpReq)
	if err != nil {
		return nil, provider.MapNetworkError(err)
	}
	defer httpResp.Body.Close()

	if httpResp.StatusCode < 200 || httpResp.StatusCode >= 300 {
		return nil, provider.MapHTTPError(httpResp)
	}

	raw, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, provider.MapNetworkError(err)
	}

	var genResp generationResponse
	if err := json.Unmarshal(raw, &genResp); err != nil {
		return nil, api.NewInternalError("image: malformed backend response: " + err.Error())
	}
	if len(genResp.Data) == 0 {
		return nil, api.NewInternalError("image: backend produced no images")
	}

	images := make([]api.GeneratedImage, 0, len(genResp.Data))
	for _, d := range genResp.Data {
		images = append(images, api.GeneratedImage{URL: d.URL, B64JSON: d.B64JSON})
	}

	return &provider.Response{Images: images, Raw: raw}, nil
}

// Stream always fails: the vendor API has no streaming mode.
func (c *Client) Stream(_ context.Context, _ *provider.Request) (*provider.StreamConn, error) {
	return nil, api.NewStreamingUnsupportedError("image generation backend has no streaming mode")
}

// Close releases idle connections.
func (c *Client) Close() error {
	c.client.CloseIdleConnections()
	return nil
}
