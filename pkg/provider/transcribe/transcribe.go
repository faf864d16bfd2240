// Package transcribe adapts a speech-to-text vendor to the provider
// contract. The request prompt names the audio source: a local file path or
// an http(s) URL. The vendor API has no streaming mode, so the adapter
// reports Streaming=false and Stream fails unconditionally without any
// network activity.
package transcribe

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path"
	"strings"
	"time"

	"github.com/modelgate/modelgate/pkg/api"
	"github.com/modelgate/modelgate/pkg/provider"
)

// Config holds connection settings for the transcription backend.
type Config struct {
	// BaseURL is the backend base URL.
	BaseURL string

	// APIKey is the default credential. A per-request credential override
	// takes precedence when present.
	APIKey string

	// Timeout bounds the transcription call (default: 300s; audio uploads
	// are slow).
	Timeout time.Duration
}

// Client implements provider.Provider for transcription backends.
type Client struct {
	cfg    Config
	client *http.Client
}

var _ provider.Provider = (*Client)(nil)

// New creates a transcription adapter. BaseURL is required.
func New(cfg Config) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, api.NewProviderConfigError("transcribe: BaseURL is required")
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	if cfg.Timeout == 0 {
		cfg.Timeout = 300 * time.Second
	}

	return &Client{
		cfg:    cfg,
		client: &http.Client{Timeout: cfg.Timeout},
	}, nil
}

// Name returns the adapter identifier.
func (c *Client) Name() string {
	return "transcribe"
}

// Capabilities reports that streaming is unsupported.
func (c *Client) Capabilities() provider.Capabilities {
	return provider.Capabilities{Streaming: false}
}

// Infer uploads the audio named by the request prompt and returns the
// transcribed text.
func (c *Client) Infer(ctx context.Context, req *provider.Request) (*provider.Response, error) {
	credential := req.Credential
	if credential == "" {
		credential = c.cfg.APIKey
	}
	if credential == "" {
		return nil, api.NewProviderConfigError("transcribe: no API credential configured")
	}

	audio, filename, err := c.openAudio(ctx, req.Prompt)
	if err != nil {
		return nil, err
	}
	defer audio.Close()

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)

	part, err := mw.CreateFormFile("file", filename)
	if err != nil {
		return nil, api.NewInternalError("transcribe: building form: " + err.Error())
	}
	if _, err := io.Copy(part, audio); err != nil {
		return nil, api.NewInternalError("transcribe: reading audio: " + err.Error())
	}
	if err := mw.WriteField("model", req.Model); err != nil {
		return nil, api.NewInternalError("transcribe: building form: " + err.Error())
	}
	if err := mw.Close(); err != nil {
		return nil, api.NewInternalError("transcribe: building form: " + err.Error())
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.cfg.BaseURL+"/v1/audio/transcriptions", &buf)
	if err != nil {
		return nil, api.NewInternalError("transcribe: building request: " + err.Error())
	}
	httpReq.Header.Set("Content-Type", mw.FormDataContentType())
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

	var result struct {
		Text string `json:"text"`
	}
	if err := json.Unmarshal(raw, &result); err != nil {
		return nil, api.NewInternalError("transcribe: malformed backend response: " + err.Error())
	}

	return &provider.Response{Text: result.Text, Raw: raw}, nil
}

// Stream always fails: the vendor API has no streaming mode.
func (c *Client) Stream(_ context.Context, _ *provider.Request) (*provider.StreamConn, error) {
	return nil, api.NewStreamingUnsupportedError("transcription backend has no streaming mode")
}

// Close releases idle connections.
func (c *Client) Close() error {
	c.client.CloseIdleConnections()
	return nil
}

// openAudio resolves the audio source named by the prompt. http(s) sources
// are fetched; anything else is treated as a local file path.
func (c *Client) openAudio(ctx context.Context, source string) (io.ReadCloser, string, error) {
	if strings.HasPrefix(source, "http://") || strings.HasPrefix(source, "https://") {
		httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, source, nil)
		if err != nil {
			return nil, "", api.NewValidationError("prompt", "invalid audio URL: "+err.Error())
		}
		resp, err := c.client.Do(httpReq)
		if err != nil {
			return nil, "", provider.MapNetworkError(err)
		}
		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			resp.Body.Close()
			return nil, "", api.NewTransientNetworkError(
				fmt.Sprintf("fetching audio: HTTP %d", resp.StatusCode), resp.StatusCode, "")
		}
		return resp.Body, path.Base(source), nil
	}

	f, err := os.Open(source)
	if err != nil {
		return nil, "", api.NewValidationError("prompt", "cannot open audio file: "+err.Error())
	}
	return f, path.Base(source), nil
}
