package gateway

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/modelgate/modelgate/pkg/api"
	"github.com/modelgate/modelgate/pkg/provider"
	"github.com/modelgate/modelgate/pkg/registry"
)

// mockProvider records invocations and delegates to configurable functions.
type mockProvider struct {
	name string
	caps provider.Capabilities

	mu          sync.Mutex
	inferCalls  int
	streamCalls int
	lastRequest *provider.Request

	inferFn  func(ctx context.Context, req *provider.Request) (*provider.Response, error)
	streamFn func(ctx context.Context, req *provider.Request) (*provider.StreamConn, error)
}

var _ provider.Provider = (*mockProvider)(nil)

func (m *mockProvider) Name() string {
	if m.name == "" {
		return "mock"
	}
	return m.name
}

func (m *mockProvider) Capabilities() provider.Capabilities { return m.caps }

func (m *mockProvider) Infer(ctx context.Context, req *provider.Request) (*provider.Response, error) {
	m.mu.Lock()
	m.inferCalls++
	m.lastRequest = req
	m.mu.Unlock()
	if m.inferFn == nil {
		return &provider.Response{Text: "ok"}, nil
	}
	return m.inferFn(ctx, req)
}

func (m *mockProvider) Stream(ctx context.Context, req *provider.Request) (*provider.StreamConn, error) {
	m.mu.Lock()
	m.streamCalls++
	m.lastRequest = req
	m.mu.Unlock()
	if m.streamFn == nil {
		return nil, api.NewStreamingUnsupportedError("no stream configured")
	}
	return m.streamFn(ctx, req)
}

func (m *mockProvider) Close() error { return nil }

func (m *mockProvider) calls() (infer, stream int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.inferCalls, m.streamCalls
}

// countingRegistry wraps a real registry and counts ActivateModel calls.
type countingRegistry struct {
	*registry.Registry
	activations atomic.Int32
}

func (c *countingRegistry) ActivateModel(ctx context.Context, id string, overrides map[string]any) (*api.ActivationRecord, error) {
	c.activations.Add(1)
	return c.Registry.ActivateModel(ctx, id, overrides)
}

func testRegistry() *countingRegistry {
	catalog := []api.ModelDescriptor{
		{ID: "test-model"},
		{ID: "fallback-model"},
		{ID: "org/unknown-model"},
		{ID: "whisper-1"},
	}
	return &countingRegistry{Registry: registry.New(catalog, nil, nil)}
}

// newTestGateway routes every model id to the given mock via the generic
// slot, using fast retry timings.
func newTestGateway(cfg Config, reg *countingRegistry, mock *mockProvider) *Gateway {
	if cfg.InferenceTimeout == 0 {
		cfg.InferenceTimeout = 5 * time.Second
	}
	if cfg.RetryDelay == 0 {
		cfg.RetryDelay = time.Millisecond
	}
	resolver := NewResolver(Providers{
		Completion: mock,
		Transcribe: mock,
		Image:      mock,
		Chat:       mock,
		Generic:    mock,
	}, Rules{})
	return New(cfg, reg, resolver, nil)
}

func f(v float64) *float64 { return &v }

func TestInfer(t *testing.T) {
	reg := testRegistry()
	mock := &mockProvider{
		inferFn: func(_ context.Context, _ *provider.Request) (*provider.Response, error) {
			return &provider.Response{Text: "hello back", Raw: []byte(`{"x":1}`)}, nil
		},
	}
	g := newTestGateway(Config{}, reg, mock)

	result, err := g.Infer(context.Background(), &api.InferenceRequest{
		Prompt: "hello", Model: "test-model",
	})
	if err != nil {
		t.Fatalf("Infer: %v", err)
	}

	if result.ModelID != "test-model" {
		t.Errorf("ModelID = %q", result.ModelID)
	}
	if result.Text != "hello back" {
		t.Errorf("Text = %q", result.Text)
	}
	if result.CreatedAt == 0 {
		t.Error("CreatedAt not set")
	}
	if string(result.Raw) != `{"x":1}` {
		t.Errorf("Raw = %s", result.Raw)
	}
}

func TestInfer_ValidationFailureInvokesNothing(t *testing.T) {
	reg := testRegistry()
	mock := &mockProvider{}
	g := newTestGateway(Config{}, reg, mock)

	_, err := g.Infer(context.Background(), &api.InferenceRequest{
		Prompt: "", Model: "test-model",
	})
	if api.KindOf(err) != api.ErrorKindValidation {
		t.Fatalf("kind = %q, want validation_error", api.KindOf(err))
	}

	if calls, _ := mock.calls(); calls != 0 {
		t.Errorf("provider invoked %d times on validation failure", calls)
	}
	if n := reg.activations.Load(); n != 0 {
		t.Errorf("registry touched %d times on validation failure", n)
	}
}

func TestInfer_AutoActivation(t *testing.T) {
	reg := testRegistry()
	mock := &mockProvider{}
	g := newTestGateway(Config{}, reg, mock)
	ctx := context.Background()

	if _, err := g.Infer(ctx, &api.InferenceRequest{Prompt: "hi", Model: "test-model"}); err != nil {
		t.Fatalf("Infer: %v", err)
	}
	if n := reg.activations.Load(); n != 1 {
		t.Errorf("ActivateModel called %d times, want 1", n)
	}

	rec := reg.RecordFor("test-model")
	if rec == nil || rec.Status != api.StatusActivated {
		t.Errorf("record after auto-activation = %+v", rec)
	}

	// An already-activated model is not re-activated.
	if _, err := g.Infer(ctx, &api.InferenceRequest{Prompt: "hi again", Model: "test-model"}); err != nil {
		t.Fatalf("second Infer: %v", err)
	}
	if n := reg.activations.Load(); n != 1 {
		t.Errorf("ActivateModel called %d times after second infer, want 1", n)
	}
}

func TestInfer_UnknownModel(t *testing.T) {
	reg := testRegistry()
	mock := &mockProvider{}
	g := newTestGateway(Config{}, reg, mock)

	_, err := g.Infer(context.Background(), &api.InferenceRequest{
		Prompt: "hi", Model: "not-in-catalog",
	})
	if api.KindOf(err) != api.ErrorKindActivation {
		t.Fatalf("kind = %q, want activation_error", api.KindOf(err))
	}
	if calls, _ := mock.calls(); calls != 0 {
		t.Errorf("provider invoked %d times for unknown model", calls)
	}
}

func TestInfer_ModelSelection(t *testing.T) {
	t.Run("active model", func(t *testing.T) {
		reg := testRegistry()
		mock := &mockProvider{}
		g := newTestGateway(Config{}, reg, mock)
		ctx := context.Background()

		reg.Registry.ActivateModel(ctx, "test-model", nil)

		result, err := g.Infer(ctx, &api.InferenceRequest{Prompt: "hi"})
		if err != nil {
			t.Fatalf("Infer: %v", err)
		}
		if result.ModelID != "test-model" {
			t.Errorf("ModelID = %q, want active model", result.ModelID)
		}
	})

	t.Run("default model", func(t *testing.T) {
		reg := testRegistry()
		mock := &mockProvider{}
		g := newTestGateway(Config{DefaultModel: "fallback-model"}, reg, mock)

		result, err := g.Infer(context.Background(), &api.InferenceRequest{Prompt: "hi"})
		if err != nil {
			t.Fatalf("Infer: %v", err)
		}
		if result.ModelID != "fallback-model" {
			t.Errorf("ModelID = %q, want default model", result.ModelID)
		}
	})

	t.Run("nothing to select", func(t *testing.T) {
		reg := testRegistry()
		mock := &mockProvider{}
		g := newTestGateway(Config{}, reg, mock)

		_, err := g.Infer(context.Background(), &api.InferenceRequest{Prompt: "hi"})
		if api.KindOf(err) != api.ErrorKindActivation {
			t.Errorf("kind = %q, want activation_error", api.KindOf(err))
		}
	})
}

func TestInfer_RetriesTransientThenSucceeds(t *testing.T) {
	reg := testRegistry()
	var attempts atomic.Int32
	mock := &mockProvider{
		inferFn: func(_ context.Context, _ *provider.Request) (*provider.Response, error) {
			if attempts.Add(1) <= 2 {
				return nil, api.NewTransientNetworkError("backend hiccup", 503, "")
			}
			return &provider.Response{Text: "recovered"}, nil
		},
	}
	g := newTestGateway(Config{MaxRetries: 3}, reg, mock)

	result, err := g.Infer(context.Background(), &api.InferenceRequest{
		Prompt: "hi", Model: "test-model",
	})
	if err != nil {
		t.Fatalf("Infer: %v", err)
	}
	if result.Text != "recovered" {
		t.Errorf("Text = %q", result.Text)
	}
	if n := attempts.Load(); n != 3 {
		t.Errorf("attempts = %d, want 3", n)
	}
}

func TestInfer_RetriesExhausted(t *testing.T) {
	reg := testRegistry()
	mock := &mockProvider{
		inferFn: func(_ context.Context, _ *provider.Request) (*provider.Response, error) {
			return nil, api.NewTransientNetworkError("still down", 502, "bad gateway")
		},
	}
	g := newTestGateway(Config{MaxRetries: 2}, reg, mock)

	_, err := g.Infer(context.Background(), &api.InferenceRequest{
		Prompt: "hi", Model: "test-model",
	})
	ge := api.AsError(err)
	if ge.Kind != api.ErrorKindTransientNetwork {
		t.Fatalf("kind = %q, want transient_network_error", ge.Kind)
	}
	if ge.UpstreamStatus != 502 {
		t.Errorf("upstream status = %d", ge.UpstreamStatus)
	}

	// MaxRetries of 2 means 3 total attempts.
	if calls, _ := mock.calls(); calls != 3 {
		t.Errorf("attempts = %d, want 3", calls)
	}
}

func TestInfer_NonRetryableNotRetried(t *testing.T) {
	reg := testRegistry()
	mock := &mockProvider{
		inferFn: func(_ context.Context, _ *provider.Request) (*provider.Response, error) {
			return nil, api.NewProviderConfigError("no credential")
		},
	}
	g := newTestGateway(Config{MaxRetries: 3}, reg, mock)

	_, err := g.Infer(context.Background(), &api.InferenceRequest{
		Prompt: "hi", Model: "test-model",
	})
	if api.KindOf(err) != api.ErrorKindProviderConfig {
		t.Fatalf("kind = %q, want provider_config_error", api.KindOf(err))
	}
	if calls, _ := mock.calls(); calls != 1 {
		t.Errorf("attempts = %d, want 1", calls)
	}
}

func TestInfer_Timeout(t *testing.T) {
	reg := testRegistry()
	mock := &mockProvider{
		inferFn: func(ctx context.Context, _ *provider.Request) (*provider.Response, error) {
			<-ctx.Done()
			return nil, provider.MapNetworkError(ctx.Err())
		},
	}
	g := newTestGateway(Config{InferenceTimeout: 50 * time.Millisecond, MaxRetries: 1}, reg, mock)

	start := time.Now()
	_, err := g.Infer(context.Background(), &api.InferenceRequest{
		Prompt: "hi", Model: "test-model",
	})
	elapsed := time.Since(start)

	if api.KindOf(err) != api.ErrorKindTimeout {
		t.Fatalf("kind = %q, want timeout_error", api.KindOf(err))
	}
	if elapsed > time.Second {
		t.Errorf("timeout took %v, want well under 1s", elapsed)
	}
}

func TestInfer_CredentialTravelsOnDedicatedField(t *testing.T) {
	reg := testRegistry()
	mock := &mockProvider{}
	g := newTestGateway(Config{}, reg, mock)

	_, err := g.Infer(context.Background(), &api.InferenceRequest{
		Prompt: "hi", Model: "test-model", Credential: "caller-key",
	})
	if err != nil {
		t.Fatalf("Infer: %v", err)
	}

	mock.mu.Lock()
	defer mock.mu.Unlock()
	if mock.lastRequest.Credential != "caller-key" {
		t.Errorf("Credential = %q", mock.lastRequest.Credential)
	}
}

func TestInfer_EndToEndUnrecognizedModel(t *testing.T) {
	reg := testRegistry()
	mock := &mockProvider{}
	g := newTestGateway(Config{}, reg, mock)

	result, err := g.Infer(context.Background(), &api.InferenceRequest{
		Prompt:      "hello",
		Temperature: f(0.5),
		Model:       "org/unknown-model",
	})
	if err != nil {
		t.Fatalf("Infer: %v", err)
	}

	if n := reg.activations.Load(); n != 1 {
		t.Errorf("ActivateModel called %d times, want 1", n)
	}
	if calls, _ := mock.calls(); calls != 1 {
		t.Errorf("provider invoked %d times, want 1", calls)
	}
	if result.Parameters.Temperature == nil || *result.Parameters.Temperature != 0.5 {
		t.Errorf("echoed temperature = %v, want 0.5", result.Parameters.Temperature)
	}
}
