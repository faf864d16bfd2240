// Package completion adapts OpenAI-compatible Chat Completions backends
// (text-completion class models) to the provider contract. Streaming is
// delivered as the backend's native SSE byte stream.
package completion

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"

	"github.com/modelgate/modelgate/pkg/api"
	"github.com/modelgate/modelgate/pkg/provider"
)

// Client implements provider.Provider for Chat Completions backends.
type Client struct {
	cfg    Config
	client *http.Client
}

var _ provider.Provider = (*Client)(nil)

// New creates a completion adapter. BaseURL is required.
func New(cfg Config) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, api.NewProviderConfigError("completion: BaseURL is required")
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	cfg.defaults()

	return &Client{
		cfg:    cfg,
		client: &http.Client{Timeout: cfg.Timeout},
	}, nil
}

// Name returns the adapter identifier.
func (c *Client) Name() string {
	return "completion"
}

// Capabilities reports streaming support.
func (c *Client) Capabilities() provider.Capabilities {
	return provider.Capabilities{Streaming: true}
}

// Infer performs a non-streaming Chat Completions call.
func (c *Client) Infer(ctx context.Context, req *provider.Request) (*provider.Response, error) {
	httpReq, err := c.newRequest(ctx, req, false)
	if err != nil {
		return nil, err
	}

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

	var chatResp chatCompletionResponse
	if err := json.Unmarshal(raw, &chatResp); err != nil {
		return nil, api.NewInternalError("completion: malformed backend response: " + err.Error())
	}
	if len(chatResp.Choices) == 0 {
		return nil, api.NewInternalError("completion: backend produced no choices")
	}

	return &provider.Response{
		Text: chatResp.Choices[0].Message.Content,
		Raw:  raw,
	}, nil
}

// Stream opens a streaming Chat Completions call and hands over the raw SSE
// byte stream once headers have been received. The HTTP client timeout is
// not applied; the request context controls the stream lifetime.
func (c *Client) Stream(ctx context.Context, req *provider.Request) (*provider.StreamConn, error) {
	httpReq, err := c.newRequest(ctx, req, true)
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Accept", "text/event-stream")

	streamClient := &http.Client{Transport: c.client.Transport}

	httpResp, err := streamClient.Do(httpReq)
	if err != nil {
		return nil, provider.MapNetworkError(err)
	}

	if httpResp.StatusCode < 200 || httpResp.StatusCode >= 300 {
		defer httpResp.Body.Close()
		return nil, provider.MapHTTPError(httpResp)
	}

	return &provider.StreamConn{
		Body:        httpResp.Body,
		ContentType: httpResp.Header.Get("Content-Type"),
	}, nil
}

// Close releases idle connections.
func (c *Client) Close() error {
	c.client.CloseIdleConnections()
	return nil
}

// newRequest builds the outbound HTTP request. The resolved credential goes
// into the Authorization header and nowhere else; a missing credential fails
// before any network activity.
func (c *Client) newRequest(ctx context.Context, req *provider.Request, stream bool) (*http.Request, error) {
	credential := req.Credential
	if credential == "" {
		credential = c.cfg.APIKey
	}
	if credential == "" {
		return nil, api.NewProviderConfigError("completion: no API credential configured")
	}

	chatReq := chatCompletionRequest{
		Model:       req.Model,
		Messages:    []chatMessage{{Role: "user", Content: req.Prompt}},
		Temperature: req.Temperature,
		MaxTokens:   req.MaxTokens,
		TopP:        req.TopP,
		Stream:      stream,
	}

	body, err := json.Marshal(chatReq)
	if err != nil {
		return nil, api.NewInternalError("completion: marshalling request: " + err.Error())
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.cfg.BaseURL+"/v1/chat/completions", bytes.NewReader(body))
	if err != nil {
		return nil, api.NewInternalError("completion: building request: " + err.Error())
	}

	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+credential)

	return httpReq, nil
}
