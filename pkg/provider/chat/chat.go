// Package chat adapts multi-turn chat vendors exposing the OpenAI API
// surface to the provider contract, using the go-openai client library.
// Streaming is re-framed as an SSE byte stream so the gateway's stream
// handling stays uniform across adapters.
package chat

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"github.com/modelgate/modelgate/pkg/api"
	"github.com/modelgate/modelgate/pkg/provider"
)

// Config holds connection settings for the chat vendor.
type Config struct {
	// BaseURL overrides the vendor endpoint (empty = vendor default).
	BaseURL string

	// APIKey is the default credential. A per-request credential override
	// takes precedence when present.
	APIKey string

	// Timeout bounds non-streaming calls (default: 120s).
	Timeout time.Duration
}

// Client implements provider.Provider for multi-turn chat vendors.
type Client struct {
	cfg Config
}

var _ provider.Provider = (*Client)(nil)

// New creates a chat adapter.
func New(cfg Config) (*Client, error) {
	if cfg.Timeout == 0 {
		cfg.Timeout = 120 * time.Second
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	return &Client{cfg: cfg}, nil
}

// Name returns the adapter identifier.
func (c *Client) Name() string {
	return "chat"
}

// Capabilities reports streaming support.
func (c *Client) Capabilities() provider.Capabilities {
	return provider.Capabilities{Streaming: true}
}

// Infer performs a non-streaming chat completion.
func (c *Client) Infer(ctx context.Context, req *provider.Request) (*provider.Response, error) {
	client, err := c.newClient(req)
	if err != nil {
		return nil, err
	}

	resp, err := client.CreateChatCompletion(ctx, buildChatRequest(req, false))
	if err != nil {
		return nil, mapVendorError(err)
	}
	if len(resp.Choices) == 0 {
		return nil, api.NewInternalError("chat: backend produced no choices")
	}

	raw, err := json.Marshal(resp)
	if err != nil {
		return nil, api.NewInternalError("chat: marshalling vendor response: " + err.Error())
	}

	return &provider.Response{
		Text: resp.Choices[0].Message.Content,
		Raw:  raw,
	}, nil
}

// Stream opens a streaming chat completion. The vendor stream is consumed by
// a background goroutine and re-emitted as SSE data lines over a pipe, so
// the returned StreamConn carries plain bytes like every other adapter. A
// mid-stream vendor failure closes the pipe with that error; readers see it
// instead of a silent EOF.
func (c *Client) Stream(ctx context.Context, req *provider.Request) (*provider.StreamConn, error) {
	client, err := c.newClient(req)
	if err != nil {
		return nil, err
	}

	stream, err := client.CreateChatCompletionStream(ctx, buildChatRequest(req, true))
	if err != nil {
		return nil, mapVendorError(err)
	}

	pr, pw := io.Pipe()

	go func() {
		defer stream.Close()
		for {
			chunk, err := stream.Recv()
			if errors.Is(err, io.EOF) {
				fmt.Fprint(pw, "data: [DONE]\n\n")
				pw.Close()
				return
			}
			if err != nil {
				pw.CloseWithError(mapVendorError(err))
				return
			}

			data, err := json.Marshal(chunk)
			if err != nil {
				pw.CloseWithError(api.NewStreamingError("chat: marshalling stream chunk: " + err.Error()))
				return
			}
			if _, err := fmt.Fprintf(pw, "data: %s\n\n", data); err != nil {
				// Reader side closed; stop consuming the vendor stream.
				return
			}
		}
	}()

	return &provider.StreamConn{
		Body:        pr,
		ContentType: "text/event-stream",
	}, nil
}

// Close releases adapter resources.
func (c *Client) Close() error {
	return nil
}

// newClient builds a vendor client for one call, resolving the credential
// from the request override or the configured default.
func (c *Client) newClient(req *provider.Request) (*openai.Client, error) {
	credential := req.Credential
	if credential == "" {
		credential = c.cfg.APIKey
	}
	if credential == "" {
		return nil, api.NewProviderConfigError("chat: no API credential configured")
	}

	vendorCfg := openai.DefaultConfig(credential)
	if c.cfg.BaseURL != "" {
		vendorCfg.BaseURL = c.cfg.BaseURL + "/v1"
	}
	return openai.NewClientWithConfig(vendorCfg), nil
}

// buildChatRequest translates a provider request into the vendor format.
func buildChatRequest(req *provider.Request, stream bool) openai.ChatCompletionRequest {
	chatReq := openai.ChatCompletionRequest{
		Model: req.Model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: req.Prompt},
		},
		Stream: stream,
	}
	if req.Temperature != nil {
		chatReq.Temperature = float32(*req.Temperature)
	}
	if req.TopP != nil {
		chatReq.TopP = float32(*req.TopP)
	}
	if req.MaxTokens != nil {
		chatReq.MaxTokens = *req.MaxTokens
	}
	return chatReq
}

// mapVendorError translates go-openai error types into the gateway taxonomy.
func mapVendorError(err error) *api.Error {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.HTTPStatusCode {
		case 400:
			return api.NewValidationError("", apiErr.Message)
		case 401, 403:
			return api.NewProviderConfigError(apiErr.Message)
		default:
			return api.NewTransientNetworkError(apiErr.Message, apiErr.HTTPStatusCode, "")
		}
	}

	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return api.NewTransientNetworkError(reqErr.Error(), reqErr.HTTPStatusCode, "")
	}

	return provider.MapNetworkError(err)
}
